package agenthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/polling"
	"automl-orchestrator/internal/store"
)

type fakeProjects struct {
	store.ProjectRepository
	byStatus map[store.ProjectStatus][]store.Project
	project  *store.Project
	getErr   error
}

func (f *fakeProjects) Get(ctx context.Context, id string) (*store.Project, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.project, nil
}

func (f *fakeProjects) ListByStatus(ctx context.Context, status store.ProjectStatus, limit int) ([]store.Project, error) {
	return f.byStatus[status], nil
}

type fakeLogs struct {
	store.LogRepository
}

func (f *fakeLogs) ListByProject(ctx context.Context, projectID string, limit int) ([]store.AgentLog, error) {
	return []store.AgentLog{{ID: "log-1", Message: "hello"}}, nil
}

type fakeWorkflow struct {
	ranWith string
	err     error
}

func (f *fakeWorkflow) Run(ctx context.Context, projectID string) error {
	f.ranWith = projectID
	return f.err
}

func TestRouterStartRunsWorkflowSynchronously(t *testing.T) {
	projects := &fakeProjects{project: &store.Project{ID: "proj-1", Status: store.StatusPendingDataset}}
	logs := &fakeLogs{}
	wf := &fakeWorkflow{}
	runtime := polling.New(zap.NewNop(), projects, wf, store.StatusPendingDataset, polling.Config{PollInterval: time.Hour, BatchLimit: 1})

	r := NewRouter("dataset", logs, projects, wf, runtime)

	body, _ := json.Marshal(map[string]string{"project_id": "proj-1"})
	req := httptest.NewRequest(http.MethodPost, "/agents/dataset/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if wf.ranWith != "proj-1" {
		t.Errorf("expected workflow to run with proj-1, got %q", wf.ranWith)
	}
}

func TestRouterStartPropagatesWorkflowError(t *testing.T) {
	projects := &fakeProjects{project: &store.Project{ID: "proj-1"}}
	logs := &fakeLogs{}
	wf := &fakeWorkflow{err: errkind.New(errkind.Conflict, "already claimed")}
	runtime := polling.New(zap.NewNop(), projects, wf, store.StatusPendingDataset, polling.Config{PollInterval: time.Hour, BatchLimit: 1})

	r := NewRouter("dataset", logs, projects, wf, runtime)

	body, _ := json.Marshal(map[string]string{"project_id": "proj-1"})
	req := httptest.NewRequest(http.MethodPost, "/agents/dataset/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestRouterStatusReturnsProjectStatusAndLogs(t *testing.T) {
	projects := &fakeProjects{project: &store.Project{ID: "proj-1", Status: store.StatusPendingTraining}}
	logs := &fakeLogs{}
	wf := &fakeWorkflow{}
	runtime := polling.New(zap.NewNop(), projects, wf, store.StatusPendingDataset, polling.Config{PollInterval: time.Hour, BatchLimit: 1})

	r := NewRouter("dataset", logs, projects, wf, runtime)

	req := httptest.NewRequest(http.MethodGet, "/agents/dataset/status/proj-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Status string           `json:"status"`
		Logs   []store.AgentLog `json:"logs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != string(store.StatusPendingTraining) {
		t.Errorf("expected status pending_training, got %q", body.Status)
	}
	if len(body.Logs) != 1 {
		t.Errorf("expected one log entry, got %d", len(body.Logs))
	}
}

func TestRouterPollingStartStopStatus(t *testing.T) {
	projects := &fakeProjects{byStatus: map[store.ProjectStatus][]store.Project{}}
	logs := &fakeLogs{}
	wf := &fakeWorkflow{}
	runtime := polling.New(zap.NewNop(), projects, wf, store.StatusPendingDataset, polling.Config{PollInterval: 10 * time.Millisecond, BatchLimit: 1})

	r := NewRouter("dataset", logs, projects, wf, runtime)

	startReq := httptest.NewRequest(http.MethodPost, "/agents/dataset/polling/start", nil)
	startRec := httptest.NewRecorder()
	r.ServeHTTP(startRec, startReq)
	if startRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from polling/start, got %d", startRec.Code)
	}

	statusReq := httptest.NewRequest(http.MethodGet, "/agents/dataset/polling/status", nil)
	statusRec := httptest.NewRecorder()
	r.ServeHTTP(statusRec, statusReq)
	var status struct {
		IsRunning bool `json:"is_running"`
	}
	if err := json.Unmarshal(statusRec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if !status.IsRunning {
		t.Error("expected is_running true after polling/start")
	}

	stopReq := httptest.NewRequest(http.MethodPost, "/agents/dataset/polling/stop", nil)
	stopRec := httptest.NewRecorder()
	r.ServeHTTP(stopRec, stopReq)
	if stopRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from polling/stop, got %d", stopRec.Code)
	}
	if runtime.IsRunning() {
		t.Error("expected runtime stopped after polling/stop")
	}
}

func TestRouterHealth(t *testing.T) {
	projects := &fakeProjects{}
	logs := &fakeLogs{}
	wf := &fakeWorkflow{}
	runtime := polling.New(zap.NewNop(), projects, wf, store.StatusPendingDataset, polling.Config{PollInterval: time.Hour, BatchLimit: 1})

	r := NewRouter("dataset", logs, projects, wf, runtime)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
