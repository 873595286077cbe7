// Package polling implements the shared poll-and-claim loop used by the
// dataset, training, and evaluation agents (spec §4.8), generalizing
// crs-scheduler's internal/scheduler.Scheduler from "one process running
// many routines" to "one process running exactly one agent's workflow on
// its own interval".
package polling

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"automl-orchestrator/internal/store"
	"automl-orchestrator/internal/telemetry"
)

// Workflow is the single unit of work a Runtime drives: process one
// project currently in the owned status, returning any error encountered.
// The workflow itself is responsible for calling AdvanceStatus; Runtime
// only sequences *which* project gets a turn and when.
type Workflow interface {
	Run(ctx context.Context, projectID string) error
}

// Config controls tick cadence and batch size, per spec §4.8 / §6's
// configuration table.
type Config struct {
	PollInterval time.Duration
	BatchLimit   int
}

// Runtime owns one status's poll loop: on each tick it fetches candidate
// project ids, skips any already in flight, and runs the workflow on the
// rest in order. It can be started/stopped independently of process
// lifetime via the /polling/start and /polling/stop endpoints.
type Runtime struct {
	logger   *zap.Logger
	projects store.ProjectRepository
	workflow Workflow
	status   store.ProjectStatus
	cfg      Config

	mu         sync.Mutex
	running    bool
	stopChan   chan struct{}
	doneChan   chan struct{}
	inFlight   map[string]struct{}
	inFlightMu sync.Mutex

	processedCount int64
	processedMu    sync.Mutex
	tracker        *ProcessedCountTracker

	tracer    trace.Tracer
	step      telemetry.WorkflowStep
	agentName string
}

// SetTracer attaches an optional tracer so every workflow run gets its own
// span, named after step and tagged with agentName and the project id
// being processed. Safe to call before Start; nil is a valid no-op value
// (telemetry.New can fail to reach a collector without failing process
// startup).
func (r *Runtime) SetTracer(tracer trace.Tracer, step telemetry.WorkflowStep, agentName string) {
	r.tracer = tracer
	r.step = step
	r.agentName = agentName
}

// SetTracker attaches an optional Redis-backed mirror of the processed
// count. Safe to call before Start; nil is a valid no-op value.
func (r *Runtime) SetTracker(tracker *ProcessedCountTracker) {
	r.tracker = tracker
}

// PersistedProcessedCount reports the Redis-mirrored counter if a tracker
// is attached and reachable, falling back to the in-process counter
// otherwise. Only /polling/status calls this; correctness never depends
// on it.
func (r *Runtime) PersistedProcessedCount(ctx context.Context) int64 {
	if r.tracker == nil {
		return r.ProcessedCount()
	}
	count, err := r.tracker.Get(ctx)
	if err != nil {
		r.logger.Warn("failed to read persisted processed count, falling back to in-memory", zap.Error(err))
		return r.ProcessedCount()
	}
	return count
}

// New constructs a Runtime for a single owned status. Agents wire one of
// these each, not a shared multi-routine scheduler, since each status has
// exactly one owning workflow.
func New(logger *zap.Logger, projects store.ProjectRepository, workflow Workflow, status store.ProjectStatus, cfg Config) *Runtime {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 1
	}
	return &Runtime{
		logger:   logger,
		projects: projects,
		workflow: workflow,
		status:   status,
		cfg:      cfg,
		inFlight: make(map[string]struct{}),
	}
}

// Start begins the poll loop if it isn't already running. Idempotent.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.doneChan = make(chan struct{})
	go r.loop(ctx, r.stopChan, r.doneChan)
}

// Stop signals the loop to finish its current tick and exit, then blocks
// until it has. Idempotent.
func (r *Runtime) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	stopChan := r.stopChan
	doneChan := r.doneChan
	r.running = false
	r.mu.Unlock()

	close(stopChan)
	<-doneChan
}

// IsRunning reports whether the poll loop is currently active.
func (r *Runtime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// ProcessedCount returns the number of projects this runtime has finished
// processing (success or failure) since it started.
func (r *Runtime) ProcessedCount() int64 {
	r.processedMu.Lock()
	defer r.processedMu.Unlock()
	return r.processedCount
}

// PollInterval reports the configured tick cadence.
func (r *Runtime) PollInterval() time.Duration {
	return r.cfg.PollInterval
}

func (r *Runtime) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		r.tick(ctx)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			continue
		}
	}
}

func (r *Runtime) tick(ctx context.Context) {
	candidates, err := r.projects.ListByStatus(ctx, r.status, r.cfg.BatchLimit)
	if err != nil {
		r.logger.Error("failed to list candidate projects", zap.String("status", string(r.status)), zap.Error(err))
		return
	}

	for _, project := range candidates {
		if r.markInFlight(project.ID) {
			continue // already being processed, should not happen synchronously but guards future concurrency
		}

		runCtx := ctx
		var span trace.Span
		if r.tracer != nil {
			runCtx, span = r.tracer.Start(ctx, r.step.String())
			attrs := telemetry.NewSpanAttributes(r.step).
				WithProjectID(project.ID).
				WithAgentName(r.agentName)
			span.SetAttributes(attrs.Attributes()...)
		}

		if err := r.workflow.Run(runCtx, project.ID); err != nil {
			r.logger.Error("workflow run failed",
				zap.String("project_id", project.ID),
				zap.String("status", string(r.status)),
				zap.Error(err),
			)
		}
		if span != nil {
			span.End()
		}

		r.clearInFlight(project.ID)
		r.processedMu.Lock()
		r.processedCount++
		r.processedMu.Unlock()
		if r.tracker != nil {
			if err := r.tracker.Increment(ctx); err != nil {
				r.logger.Warn("failed to persist processed count", zap.Error(err))
			}
		}
	}
}

// markInFlight returns true if id was already in flight (caller should
// skip it), false if it successfully claimed the slot.
func (r *Runtime) markInFlight(id string) bool {
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	if _, ok := r.inFlight[id]; ok {
		return true
	}
	r.inFlight[id] = struct{}{}
	return false
}

func (r *Runtime) clearInFlight(id string) {
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	delete(r.inFlight, id)
}
