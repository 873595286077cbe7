package evaluationagent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"automl-orchestrator/internal/archiveutil"
	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/eventbus"
	"automl-orchestrator/internal/objectstore"
	"automl-orchestrator/internal/retry"
	"automl-orchestrator/internal/slug"
	"automl-orchestrator/internal/store"
)

// Config is the subset of the configuration table this agent consumes.
type Config struct {
	Bucket string
}

// Workflow implements polling.Workflow for status = pending_evaluation.
type Workflow struct {
	logger    *zap.Logger
	projects  store.ProjectRepository
	datasets  store.DatasetRepository
	models    store.ModelRepository
	logs      store.LogRepository
	messages  store.MessageRepository
	objects   objectstore.ObjectStore
	evaluator Evaluator
	bus       *eventbus.Bus
	cfg       Config
}

func NewWorkflow(
	logger *zap.Logger,
	projects store.ProjectRepository,
	datasets store.DatasetRepository,
	models store.ModelRepository,
	logs store.LogRepository,
	messages store.MessageRepository,
	objects objectstore.ObjectStore,
	evaluator Evaluator,
	bus *eventbus.Bus,
	cfg Config,
) *Workflow {
	if cfg.Bucket == "" {
		cfg.Bucket = "automl-artifacts"
	}
	return &Workflow{
		logger: logger, projects: projects, datasets: datasets, models: models,
		logs: logs, messages: messages, objects: objects, evaluator: evaluator,
		bus: bus, cfg: cfg,
	}
}

// Run implements polling.Workflow.
func (w *Workflow) Run(ctx context.Context, projectID string) error {
	project, err := w.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	dataset, err := w.datasets.GetByProject(ctx, projectID)
	if err != nil {
		return w.fail(ctx, project, err, "load_dataset")
	}
	model, err := w.models.GetByProject(ctx, projectID)
	if err != nil {
		return w.fail(ctx, project, err, "load_model")
	}

	workDir, err := os.MkdirTemp("", "evaluation-"+projectID+"-")
	if err != nil {
		return w.fail(ctx, project, errkind.Wrap(errkind.Permanent, "create work directory", err), "workdir")
	}
	defer os.RemoveAll(workDir)

	archivePath := filepath.Join(workDir, "archive.zip")
	if err := w.objects.Download(ctx, dataset.ObjectURI, archivePath); err != nil {
		return w.fail(ctx, project, err, "download_dataset")
	}
	weightsPath := filepath.Join(workDir, "model.pth")
	if err := w.objects.Download(ctx, model.ObjectURI, weightsPath); err != nil {
		return w.fail(ctx, project, err, "download_weights")
	}

	datasetDir := filepath.Join(workDir, "dataset")
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		return w.fail(ctx, project, errkind.Wrap(errkind.Permanent, "create dataset directory", err), "extract")
	}
	if err := archiveutil.ExtractZip(archivePath, datasetDir); err != nil {
		return w.fail(ctx, project, err, "extract")
	}

	splitName := "test"
	splitDir := filepath.Join(datasetDir, "test")
	if _, statErr := os.Stat(splitDir); statErr != nil {
		splitName = "val"
		splitDir = filepath.Join(datasetDir, "val")
		w.appendLog(ctx, projectID, store.LogLevelInfo, "test split absent, scoring on val split instead")
	}
	classes, err := classesIn(splitDir)
	if err != nil {
		return w.fail(ctx, project, err, "validate_split")
	}

	req := EvalRequest{
		DatasetRoot: datasetDir,
		ModelName:   model.Name,
		WeightsPath: weightsPath,
		SplitDir:    splitDir,
		Classes:     classes,
	}
	result, err := w.evaluator.Evaluate(ctx, req)
	if err != nil {
		return w.fail(ctx, project, err, "score")
	}
	w.appendLog(ctx, projectID, store.LogLevelInfo, fmt.Sprintf("scored on %s split: accuracy=%.4f macro_f1=%.4f", splitName, result.Accuracy, result.MacroF1))

	zipPath := filepath.Join(workDir, "bundle.zip")
	if err := BuildBundle(workDir, weightsPath, classes, zipPath); err != nil {
		return w.fail(ctx, project, err, "assemble_bundle")
	}

	bundleURI := fmt.Sprintf("s3://%s/bundles/%s.zip", w.cfg.Bucket, slug.Slugify(project.Name))
	if err := w.objects.Upload(ctx, zipPath, bundleURI); err != nil {
		return w.fail(ctx, project, err, "upload_bundle")
	}

	metadataPatch := map[string]any{
		"accuracy":         result.Accuracy,
		"macro_precision":  result.MacroPrecision,
		"macro_recall":     result.MacroRecall,
		"macro_f1":         result.MacroF1,
		"per_class_report": result.PerClassReport,
		"bundle_uri":       bundleURI,
		"eval_split":       splitName,
	}
	if err := w.models.RecordEvaluation(ctx, projectID, result.Accuracy, metadataPatch); err != nil {
		return w.fail(ctx, project, err, "record_evaluation")
	}

	return w.advance(ctx, project, bundleURI, classes)
}

func (w *Workflow) advance(ctx context.Context, project *store.Project, bundleURI string, classes []string) error {
	patch := map[string]any{"bundle_uri": bundleURI, "num_classes": len(classes)}

	policy := retry.AdvanceStatusPolicy()
	var result store.ClaimResult
	err := policy.Execute(ctx, func() error {
		r, advErr := w.projects.AdvanceStatus(ctx, project.ID, store.StatusPendingEvaluation, store.StatusCompleted, patch)
		if advErr != nil {
			return advErr
		}
		result = r
		if r == store.NotClaimed {
			return errkind.New(errkind.Conflict, "project already claimed by another worker")
		}
		if r == store.NoSuchProject {
			return errkind.New(errkind.NotFound, "project vanished during advance")
		}
		return nil
	})

	if err != nil {
		ek, _ := errkind.As(err)
		if ek != nil && ek.Kind == errkind.Conflict {
			w.appendLog(ctx, project.ID, store.LogLevelInfo, "status advance lost race to another worker, exiting without changes")
			return nil
		}
		w.appendLog(ctx, project.ID, store.LogLevelWarning, "status update failed after bundle was recorded, manual intervention needed: "+err.Error())
		return nil
	}

	if result == store.Claimed {
		w.notifyUser(ctx, project.UserID, "Your model is ready. Download the bundle from your project page.")
		w.appendLog(ctx, project.ID, store.LogLevelInfo, "advanced to completed")
		if w.bus != nil {
			w.bus.Publish(ctx, eventbus.ProjectStatusChanged{
				ProjectID: project.ID,
				From:      string(store.StatusPendingEvaluation),
				To:        string(store.StatusCompleted),
				At:        time.Now().UTC(),
			})
		}
	}
	return nil
}

func (w *Workflow) fail(ctx context.Context, project *store.Project, cause error, step string) error {
	ek, ok := errkind.As(cause)
	kind := errkind.Permanent
	detail := cause.Error()
	if ok {
		kind = ek.Kind
		detail = ek.Detail
	}

	w.appendLog(ctx, project.ID, store.LogLevelError, fmt.Sprintf("evaluation agent failed at %s: %v", step, cause))

	patch := map[string]any{
		"error": map[string]any{"kind": string(kind), "detail": detail, "step": step},
	}
	policy := retry.AdvanceStatusPolicy()
	_ = policy.Execute(ctx, func() error {
		_, advErr := w.projects.AdvanceStatus(ctx, project.ID, store.StatusPendingEvaluation, store.StatusFailed, patch)
		return advErr
	})
	w.notifyUser(ctx, project.UserID, "We trained your model but ran into a problem finishing evaluation. Our team has been notified.")
	return cause
}

func (w *Workflow) appendLog(ctx context.Context, projectID string, level store.AgentLogLevel, message string) {
	id := projectID
	if err := w.logs.Append(ctx, &id, store.AgentEvaluation, level, message); err != nil {
		w.logger.Warn("failed to append agent log", zap.Error(err))
	}
}

func (w *Workflow) notifyUser(ctx context.Context, userID, content string) {
	if err := w.messages.Write(ctx, userID, store.RoleAssistant, content); err != nil {
		w.logger.Warn("failed to write user message", zap.Error(err))
	}
}

func classesIn(splitDir string) ([]string, error) {
	entries, err := os.ReadDir(splitDir)
	if err != nil {
		return nil, errkind.Wrap(errkind.BadDatasetLayout, "read split directory", err)
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	if len(classes) == 0 {
		return nil, errkind.New(errkind.BadDatasetLayout, "split directory has no class subdirectories: "+splitDir)
	}
	return classes, nil
}
