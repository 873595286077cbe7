package polling

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"automl-orchestrator/internal/store"
	"automl-orchestrator/internal/telemetry"
)

type fakeProjectRepo struct {
	store.ProjectRepository // embed to satisfy the interface; unused methods panic if called

	mu       sync.Mutex
	byStatus map[store.ProjectStatus][]store.Project
}

func (f *fakeProjectRepo) ListByStatus(ctx context.Context, status store.ProjectStatus, limit int) ([]store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	projects := f.byStatus[status]
	if limit > 0 && len(projects) > limit {
		projects = projects[:limit]
	}
	out := make([]store.Project, len(projects))
	copy(out, projects)
	return out, nil
}

type fakeWorkflow struct {
	mu  sync.Mutex
	ran []string
}

func (f *fakeWorkflow) Run(ctx context.Context, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, projectID)
	return nil
}

func TestRuntimeTickRunsCandidates(t *testing.T) {
	repo := &fakeProjectRepo{byStatus: map[store.ProjectStatus][]store.Project{
		store.StatusPendingDataset: {{ID: "p1"}, {ID: "p2"}},
	}}
	wf := &fakeWorkflow{}
	logger := zap.NewNop()

	rt := New(logger, repo, wf, store.StatusPendingDataset, Config{PollInterval: time.Hour, BatchLimit: 5})
	rt.tick(context.Background())

	wf.mu.Lock()
	defer wf.mu.Unlock()
	if len(wf.ran) != 2 {
		t.Fatalf("expected 2 workflow runs, got %d: %v", len(wf.ran), wf.ran)
	}
	if rt.ProcessedCount() != 2 {
		t.Errorf("expected processed count 2, got %d", rt.ProcessedCount())
	}
}

func TestRuntimeStartStopIsIdempotent(t *testing.T) {
	repo := &fakeProjectRepo{byStatus: map[store.ProjectStatus][]store.Project{}}
	wf := &fakeWorkflow{}
	rt := New(zap.NewNop(), repo, wf, store.StatusPendingDataset, Config{PollInterval: 10 * time.Millisecond, BatchLimit: 1})

	ctx := context.Background()
	rt.Start(ctx)
	rt.Start(ctx) // second Start should be a no-op
	if !rt.IsRunning() {
		t.Fatal("expected runtime to be running")
	}

	time.Sleep(30 * time.Millisecond)

	rt.Stop()
	rt.Stop() // second Stop should be a no-op
	if rt.IsRunning() {
		t.Fatal("expected runtime to be stopped")
	}
}

func TestRuntimePersistedProcessedCountFallsBackWithoutTracker(t *testing.T) {
	repo := &fakeProjectRepo{byStatus: map[store.ProjectStatus][]store.Project{
		store.StatusPendingDataset: {{ID: "p1"}},
	}}
	wf := &fakeWorkflow{}
	rt := New(zap.NewNop(), repo, wf, store.StatusPendingDataset, Config{PollInterval: time.Hour, BatchLimit: 5})
	rt.tick(context.Background())

	if got := rt.PersistedProcessedCount(context.Background()); got != 1 {
		t.Errorf("expected fallback to in-memory count of 1, got %d", got)
	}
}

func TestRuntimeTickWithTracerStillRunsCandidates(t *testing.T) {
	repo := &fakeProjectRepo{byStatus: map[store.ProjectStatus][]store.Project{
		store.StatusPendingDataset: {{ID: "p1"}},
	}}
	wf := &fakeWorkflow{}
	rt := New(zap.NewNop(), repo, wf, store.StatusPendingDataset, Config{PollInterval: time.Hour, BatchLimit: 5})
	rt.SetTracer(noop.NewTracerProvider().Tracer("test"), telemetry.DatasetDownload, "dataset")

	rt.tick(context.Background())

	if rt.ProcessedCount() != 1 {
		t.Errorf("expected processed count 1 with a tracer attached, got %d", rt.ProcessedCount())
	}
}

func TestRuntimeMarkInFlightPreventsDoubleClaim(t *testing.T) {
	repo := &fakeProjectRepo{}
	wf := &fakeWorkflow{}
	rt := New(zap.NewNop(), repo, wf, store.StatusPendingDataset, Config{PollInterval: time.Hour, BatchLimit: 1})

	if rt.markInFlight("p1") {
		t.Fatal("expected first mark to succeed")
	}
	if !rt.markInFlight("p1") {
		t.Fatal("expected second mark of the same id to report already in flight")
	}
	rt.clearInFlight("p1")
	if rt.markInFlight("p1") {
		t.Fatal("expected mark to succeed again after clear")
	}
}
