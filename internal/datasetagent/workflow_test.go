package datasetagent

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/store"
)

type fakeProjects struct {
	store.ProjectRepository
	project       store.Project
	advanceErr    error
	advanceResult store.ClaimResult
	advanceCalls  int
	lastTo        store.ProjectStatus
}

func (f *fakeProjects) Get(ctx context.Context, id string) (*store.Project, error) {
	p := f.project
	return &p, nil
}

func (f *fakeProjects) AdvanceStatus(ctx context.Context, id string, from, to store.ProjectStatus, patch map[string]any) (store.ClaimResult, error) {
	f.advanceCalls++
	f.lastTo = to
	if f.advanceErr != nil {
		return "", f.advanceErr
	}
	f.project.Status = to
	return f.advanceResult, nil
}

type fakeDatasets struct {
	store.DatasetRepository
	existing *store.Dataset
	inserted []store.Dataset
}

func (f *fakeDatasets) GetByProject(ctx context.Context, projectID string) (*store.Dataset, error) {
	if f.existing != nil {
		return f.existing, nil
	}
	return nil, errkind.New(errkind.NotFound, "no dataset")
}

func (f *fakeDatasets) Insert(ctx context.Context, d *store.Dataset) error {
	f.inserted = append(f.inserted, *d)
	f.existing = d
	return nil
}

type fakeMessages struct {
	store.MessageRepository
	written []string
}

func (f *fakeMessages) Write(ctx context.Context, userID string, role store.MessageRole, content string) error {
	f.written = append(f.written, content)
	return nil
}

type fakeLogs struct {
	store.LogRepository
	entries []string
	levels  []store.AgentLogLevel
}

func (f *fakeLogs) Append(ctx context.Context, projectID *string, agent store.AgentName, level store.AgentLogLevel, message string) error {
	f.entries = append(f.entries, message)
	f.levels = append(f.levels, level)
	return nil
}

type fakeObjectStore struct {
	uploaded map[string]string
}

func (f *fakeObjectStore) Download(ctx context.Context, rawURI, destPath string) error { return nil }
func (f *fakeObjectStore) Upload(ctx context.Context, srcPath, rawURI string) error {
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[rawURI] = srcPath
	return nil
}
func (f *fakeObjectStore) Head(ctx context.Context, rawURI string) (int64, error) { return 1, nil }
func (f *fakeObjectStore) OpenRead(ctx context.Context, rawURI string) (io.ReadCloser, error) {
	return nil, nil
}

type fakeSource struct {
	candidates []Candidate
	searchErr  error
}

func (f *fakeSource) Search(ctx context.Context, keywords []string, maxSizeGB float64) ([]Candidate, error) {
	return f.candidates, f.searchErr
}

func (f *fakeSource) Download(ctx context.Context, candidate Candidate, destPath string) error {
	return os.WriteFile(destPath, []byte("fake archive contents"), 0o644)
}

func newTestProject(keywords []string, maxSizeGB float64) store.Project {
	kwJSON, _ := json.Marshal(keywords)
	metaJSON, _ := json.Marshal(map[string]any{"max_dataset_size_gb": maxSizeGB})
	return store.Project{
		ID:             "proj-1",
		UserID:         "user-1",
		Name:           "Flower Classifier",
		Status:         store.StatusPendingDataset,
		SearchKeywords: kwJSON,
		Metadata:       metaJSON,
		DatasetSource:  store.DatasetSourceKaggle,
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	projects := &fakeProjects{project: newTestProject([]string{"flower"}, 5), advanceResult: store.Claimed}
	datasets := &fakeDatasets{}
	messages := &fakeMessages{}
	logs := &fakeLogs{}
	objects := &fakeObjectStore{}
	source := &fakeSource{candidates: []Candidate{{Ref: "user/flowers", SizeGB: 1, Downloads: 50}}}

	wf := NewWorkflow(zap.NewNop(), projects, datasets, messages, logs, objects, source, nil, Config{})

	if err := wf.Run(context.Background(), "proj-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(datasets.inserted) != 1 {
		t.Fatalf("expected a dataset row to be inserted, got %d", len(datasets.inserted))
	}
	if projects.advanceCalls != 1 || projects.lastTo != store.StatusPendingTraining {
		t.Errorf("expected one advance to pending_training, got %d calls, last=%s", projects.advanceCalls, projects.lastTo)
	}
	if len(messages.written) == 0 {
		t.Error("expected a user-visible message")
	}
}

func TestWorkflowNoCandidateFailsProject(t *testing.T) {
	projects := &fakeProjects{project: newTestProject([]string{"rare-extinct-species-x"}, 5)}
	datasets := &fakeDatasets{}
	wf := NewWorkflow(zap.NewNop(), projects, datasets, &fakeMessages{}, &fakeLogs{}, &fakeObjectStore{}, &fakeSource{}, nil, Config{})

	err := wf.Run(context.Background(), "proj-1")
	if err == nil {
		t.Fatal("expected an error for no candidates")
	}
	ek, ok := errkind.As(err)
	if !ok || ek.Kind != errkind.NoCandidate {
		t.Errorf("expected NoCandidate, got %v", err)
	}
	if projects.lastTo != store.StatusFailed {
		t.Errorf("expected project to transition to failed, got %s", projects.lastTo)
	}
}

func TestWorkflowSmartFailureIntegrityPath(t *testing.T) {
	existing := &store.Dataset{ProjectID: "proj-1", Name: "user/flowers", ObjectURI: "datasets://raw/flowers.zip", Size: "1.0 GiB"}
	projects := &fakeProjects{
		project:    newTestProject([]string{"flower"}, 5),
		advanceErr: errkind.New(errkind.Permanent, "db unreachable"),
	}
	datasets := &fakeDatasets{existing: existing}
	logs := &fakeLogs{}

	wf := NewWorkflow(zap.NewNop(), projects, datasets, &fakeMessages{}, logs, &fakeObjectStore{}, &fakeSource{}, nil, Config{})

	err := wf.Run(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("expected integrity path to not return an error, got %v", err)
	}
	if projects.project.Status != store.StatusPendingDataset {
		t.Errorf("expected project to remain pending_dataset, got %s", projects.project.Status)
	}
	found := false
	for i, e := range logs.entries {
		if logs.levels[i] == store.LogLevelWarning && strings.Contains(e, "status update failed") {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning log containing 'status update failed'")
	}
}

func TestWorkflowConflictExitsCleanly(t *testing.T) {
	projects := &fakeProjects{project: newTestProject([]string{"flower"}, 5), advanceResult: store.NotClaimed}
	wf := NewWorkflow(zap.NewNop(), projects, &fakeDatasets{}, &fakeMessages{}, &fakeLogs{}, &fakeObjectStore{}, &fakeSource{candidates: []Candidate{{Ref: "user/flowers", SizeGB: 1, Downloads: 5}}}, nil, Config{})

	err := wf.Run(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("expected conflict to exit cleanly, got %v", err)
	}
}
