package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/llm"
	"automl-orchestrator/internal/store"
)

// Workflow implements spec.md §4.3's five-step algorithm: resolve the
// caller, ask the LLM for a plan, validate it (retrying the LLM once on
// failure), insert the Project, and record the exchange in the transcript.
type Workflow struct {
	logger   *zap.Logger
	users    store.UserRepository
	projects store.ProjectRepository
	messages store.MessageRepository
	logs     store.LogRepository
	provider llm.Provider
}

func NewWorkflow(
	logger *zap.Logger,
	users store.UserRepository,
	projects store.ProjectRepository,
	messages store.MessageRepository,
	logs store.LogRepository,
	provider llm.Provider,
) *Workflow {
	return &Workflow{
		logger:   logger,
		users:    users,
		projects: projects,
		messages: messages,
		logs:     logs,
		provider: provider,
	}
}

// Handle converts one utterance from externalAuthID into a persisted
// Project, returning the plan and the created project's id.
func (w *Workflow) Handle(ctx context.Context, externalAuthID, utterance string) (*Plan, string, error) {
	user, err := w.users.GetOrCreate(ctx, externalAuthID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve user: %w", err)
	}

	if err := w.messages.Write(ctx, user.ID, store.RoleUser, utterance); err != nil {
		w.logger.Warn("failed to record user message", zap.Error(err))
	}

	plan, err := w.planWithRetry(ctx, utterance)
	if err != nil {
		w.appendLog(ctx, nil, store.LogLevelError, fmt.Sprintf("planning failed: %v", err))
		return nil, "", err
	}

	project, err := w.createProject(ctx, user.ID, plan)
	if err != nil {
		w.appendLog(ctx, nil, store.LogLevelError, fmt.Sprintf("project creation failed: %v", err))
		return nil, "", err
	}

	summary := fmt.Sprintf(
		"Created project %q: %s task using %s, searching for %v, targeting %s >= %.2f.",
		project.Name, plan.TaskType, plan.PreferredModel, plan.SearchKeywords, plan.TargetMetric, plan.TargetValue,
	)
	if err := w.messages.Write(ctx, user.ID, store.RoleAssistant, summary); err != nil {
		w.logger.Warn("failed to record assistant message", zap.Error(err))
	}
	w.appendLog(ctx, &project.ID, store.LogLevelInfo, "plan accepted, project created")

	return plan, project.ID, nil
}

// planWithRetry calls the LLM, applies defaults, and validates; on a
// PlanInvalid failure it retries the LLM call exactly once with a schema
// reminder prefix before giving up.
func (w *Workflow) planWithRetry(ctx context.Context, utterance string) (*Plan, error) {
	plan, err := w.planOnce(ctx, utterance, false)
	if err == nil {
		return plan, nil
	}

	ek, ok := errkind.As(err)
	if !ok || ek.Kind != errkind.PlanInvalid {
		return nil, err
	}

	w.logger.Info("retrying plan with schema reminder", zap.Error(err))
	return w.planOnce(ctx, utterance, true)
}

func (w *Workflow) planOnce(ctx context.Context, utterance string, retry bool) (*Plan, error) {
	prompt := buildPrompt(utterance, retry)
	resp, err := w.provider.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, errkind.Wrap(errkind.Dependency, "llm completion failed", err)
	}

	plan, err := parseLLMPlan(resp.Content)
	if err != nil {
		return nil, err
	}

	plan.ApplyDefaults(utterance)
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (w *Workflow) createProject(ctx context.Context, userID string, plan *Plan) (*store.Project, error) {
	keywordsJSON, err := json.Marshal(plan.SearchKeywords)
	if err != nil {
		return nil, errkind.Wrap(errkind.Permanent, "marshal search keywords", err)
	}

	metadata := map[string]any{
		"preferred_model":     plan.PreferredModel,
		"target_metric":       plan.TargetMetric,
		"target_value":        plan.TargetValue,
		"max_dataset_size_gb": plan.MaxDatasetSizeGB,
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, errkind.Wrap(errkind.Permanent, "marshal project metadata", err)
	}

	project := &store.Project{
		UserID:         userID,
		Name:           plan.Name,
		TaskType:       store.TaskTypeEnum(plan.TaskType),
		Framework:      store.FrameworkEnum(plan.Framework),
		DatasetSource:  store.DatasetSourceEnum(plan.DatasetSource),
		SearchKeywords: keywordsJSON,
		Status:         store.StatusPendingDataset,
		Metadata:       metadataJSON,
	}

	// A fresh UUID is generated per attempt, so a Conflict (id collision)
	// is always safe to retry with a new id rather than surfacing to the
	// caller.
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		project.ID = ""
		err := w.projects.Create(ctx, project)
		if err == nil {
			return project, nil
		}
		lastErr = err
		ek, ok := errkind.As(err)
		if !ok || ek.Kind != errkind.Conflict {
			return nil, err
		}
	}
	return nil, lastErr
}

func (w *Workflow) appendLog(ctx context.Context, projectID *string, level store.AgentLogLevel, message string) {
	if err := w.logs.Append(ctx, projectID, store.AgentPlanner, level, message); err != nil {
		w.logger.Warn("failed to append agent log", zap.Error(err))
	}
}
