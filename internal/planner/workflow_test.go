package planner

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/llm"
	"automl-orchestrator/internal/store"
)

type fakeUsers struct {
	store.UserRepository
}

func (f *fakeUsers) GetOrCreate(ctx context.Context, externalAuthID string) (*store.User, error) {
	return &store.User{ID: "user-1", ExternalAuthID: externalAuthID}, nil
}

type fakeProjects struct {
	store.ProjectRepository
	created []store.Project
	failN   int // fail the first failN Create calls with Conflict
}

func (f *fakeProjects) Create(ctx context.Context, p *store.Project) error {
	if f.failN > 0 {
		f.failN--
		return errkind.New(errkind.Conflict, "id collision")
	}
	p.ID = "project-1"
	f.created = append(f.created, *p)
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
}

func (f *fakeLogs) Append(ctx context.Context, projectID *string, agent store.AgentName, level store.AgentLogLevel, message string) error {
	return nil
}

type fakeProvider struct {
	responses []string
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return &llm.Response{Content: f.responses[idx]}, nil
}

func TestWorkflowHandleSuccess(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"name":"Flower Classifier","search_keywords":["flowers","petals"],"preferred_model":"resnet18"}`,
	}}
	projects := &fakeProjects{}
	messages := &fakeMessages{}
	wf := NewWorkflow(zap.NewNop(), &fakeUsers{}, projects, messages, &fakeLogs{}, provider)

	plan, projectID, err := wf.Handle(context.Background(), "ext-1", "Classify flower species, keep dataset under 1GB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projectID != "project-1" {
		t.Errorf("expected project-1, got %s", projectID)
	}
	if plan.MaxDatasetSizeGB != 1 {
		t.Errorf("expected deterministic size parse to win, got %v", plan.MaxDatasetSizeGB)
	}
	if len(projects.created) != 1 {
		t.Fatalf("expected one project created, got %d", len(projects.created))
	}
	if projects.created[0].Status != store.StatusPendingDataset {
		t.Errorf("expected new project status pending_dataset, got %s", projects.created[0].Status)
	}
	var keywords []string
	json.Unmarshal(projects.created[0].SearchKeywords, &keywords)
	if len(keywords) != 2 {
		t.Errorf("expected 2 keywords persisted, got %v", keywords)
	}
	if len(messages.written) != 2 {
		t.Errorf("expected user + assistant message recorded, got %d", len(messages.written))
	}
}

func TestWorkflowHandleRetriesOnInvalidPlan(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`not json at all`,
		`{"name":"Bird Classifier","search_keywords":["birds"]}`,
	}}
	projects := &fakeProjects{}
	wf := NewWorkflow(zap.NewNop(), &fakeUsers{}, projects, &fakeMessages{}, &fakeLogs{}, provider)

	_, _, err := wf.Handle(context.Background(), "ext-1", "classify bird species")
	if err != nil {
		t.Fatalf("expected retry to recover, got error: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected exactly 2 llm calls, got %d", provider.calls)
	}
}

func TestWorkflowHandleGivesUpAfterRetryFails(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`not json`,
		`also not json`,
	}}
	wf := NewWorkflow(zap.NewNop(), &fakeUsers{}, &fakeProjects{}, &fakeMessages{}, &fakeLogs{}, provider)

	_, _, err := wf.Handle(context.Background(), "ext-1", "gibberish")
	if err == nil {
		t.Fatal("expected error after exhausting retry")
	}
	ek, ok := errkind.As(err)
	if !ok || ek.Kind != errkind.PlanInvalid {
		t.Errorf("expected PlanInvalid, got %v", err)
	}
}

func TestWorkflowRetriesProjectCreateOnConflict(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"name":"Dog Breed Classifier","search_keywords":["dogs","breeds"]}`,
	}}
	projects := &fakeProjects{failN: 2}
	wf := NewWorkflow(zap.NewNop(), &fakeUsers{}, projects, &fakeMessages{}, &fakeLogs{}, provider)

	_, projectID, err := wf.Handle(context.Background(), "ext-1", "classify dog breeds")
	if err != nil {
		t.Fatalf("expected conflict retries to succeed, got %v", err)
	}
	if projectID != "project-1" {
		t.Errorf("expected project-1, got %s", projectID)
	}
}
