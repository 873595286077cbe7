package trainingagent

import (
	"context"
	"encoding/json"
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

// Config is the subset of the configuration table this agent consumes
// (spec.md §6: batch_size, default_epochs, default_learning_rate).
type Config struct {
	BatchSize      int
	DefaultEpochs  int
	DefaultLR      float64
	HasAccelerator bool
	Bucket         string
}

type Workflow struct {
	logger   *zap.Logger
	projects store.ProjectRepository
	datasets store.DatasetRepository
	models   store.ModelRepository
	logs     store.LogRepository
	objects  objectstore.ObjectStore
	trainer  Trainer
	bus      *eventbus.Bus
	cfg      Config
}

func NewWorkflow(
	logger *zap.Logger,
	projects store.ProjectRepository,
	datasets store.DatasetRepository,
	models store.ModelRepository,
	logs store.LogRepository,
	objects objectstore.ObjectStore,
	trainer Trainer,
	bus *eventbus.Bus,
	cfg Config,
) *Workflow {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.DefaultEpochs <= 0 {
		cfg.DefaultEpochs = 10
	}
	if cfg.DefaultLR <= 0 {
		cfg.DefaultLR = 1e-3
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "automl-artifacts"
	}
	return &Workflow{
		logger: logger, projects: projects, datasets: datasets, models: models,
		logs: logs, objects: objects, trainer: trainer, bus: bus, cfg: cfg,
	}
}

// Run implements polling.Workflow for status = pending_training.
func (w *Workflow) Run(ctx context.Context, projectID string) error {
	project, err := w.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	dataset, err := w.datasets.GetByProject(ctx, projectID)
	if err != nil {
		return w.fail(ctx, project, err, "load_dataset")
	}

	workDir, err := os.MkdirTemp("", "training-"+projectID+"-")
	if err != nil {
		return w.fail(ctx, project, errkind.Wrap(errkind.Permanent, "create work directory", err), "workdir")
	}
	defer os.RemoveAll(workDir)

	archivePath := filepath.Join(workDir, "archive.zip")
	if err := w.objects.Download(ctx, dataset.ObjectURI, archivePath); err != nil {
		return w.fail(ctx, project, err, "download")
	}

	datasetDir := filepath.Join(workDir, "dataset")
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		return w.fail(ctx, project, errkind.Wrap(errkind.Permanent, "create dataset directory", err), "extract")
	}
	if err := archiveutil.ExtractZip(archivePath, datasetDir); err != nil {
		return w.fail(ctx, project, err, "extract")
	}

	layout, err := ClassifyLayout(datasetDir)
	if err != nil {
		return w.fail(ctx, project, err, "validate_layout")
	}

	var classes []string
	if layout == LayoutSingleRoot {
		classes, err = ClassesIn(datasetDir)
		if err != nil {
			return w.fail(ctx, project, err, "validate_layout")
		}
		if err := AutoSplit(datasetDir, classes); err != nil {
			return w.fail(ctx, project, err, "auto_split")
		}
	} else {
		classes, err = ClassesIn(filepath.Join(datasetDir, "train"))
		if err != nil {
			return w.fail(ctx, project, err, "validate_layout")
		}
		for _, split := range []string{"val", "test"} {
			splitClasses, err := ClassesIn(filepath.Join(datasetDir, split))
			if err != nil {
				return w.fail(ctx, project, err, "validate_layout")
			}
			if len(splitClasses) != len(classes) {
				return w.fail(ctx, project, errkind.New(errkind.BadDatasetLayout, fmt.Sprintf("class count mismatch between train (%d) and %s (%d)", len(classes), split, len(splitClasses))), "validate_layout")
			}
		}
	}
	numClasses := len(classes)

	preferredModel, epochs, lr := w.resolvePlan(project.Metadata)
	modelName, ok := ResolveModel(preferredModel)
	if !ok {
		modelName = "resnet18"
	}

	useAccelerator := HasAccelerator(w.cfg.HasAccelerator)
	batchSize := w.cfg.BatchSize
	if !useAccelerator {
		batchSize = batchSize / 2
		if batchSize < 1 {
			batchSize = 1
		}
	}

	modelPath := filepath.Join(workDir, "model.pth")
	req := TrainRequest{
		DatasetRoot:    datasetDir,
		ModelName:      modelName,
		NumClasses:     numClasses,
		Epochs:         epochs,
		LearningRate:   lr,
		BatchSize:      batchSize,
		OutputPath:     modelPath,
		UseAccelerator: useAccelerator,
	}

	start := time.Now()
	result, err := w.trainer.Train(ctx, req, func(e EpochLog) {
		w.appendLog(ctx, projectID, store.LogLevelInfo, fmt.Sprintf("epoch %d: train_loss=%.4f val_loss=%.4f", e.Epoch, e.TrainLoss, e.ValLoss))
	})
	if err != nil {
		return w.fail(ctx, project, err, "train")
	}
	if result.TrainingSeconds == 0 {
		result.TrainingSeconds = time.Since(start).Seconds()
	}

	if _, statErr := os.Stat(modelPath); statErr != nil {
		return w.fail(ctx, project, errkind.Wrap(errkind.Dependency, "trainer did not produce model weights", statErr), "train")
	}

	objectURI := fmt.Sprintf("s3://%s/models/%s_model.pth", w.cfg.Bucket, slug.Slugify(project.Name))
	if err := w.objects.Upload(ctx, modelPath, objectURI); err != nil {
		return w.fail(ctx, project, err, "upload")
	}

	metadata := map[string]any{
		"epochs":           epochs,
		"final_loss":       result.FinalLoss,
		"training_seconds": result.TrainingSeconds,
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return w.fail(ctx, project, errkind.Wrap(errkind.Permanent, "marshal model metadata", err), "insert_model")
	}

	model := &store.Model{
		ProjectID: projectID,
		Name:      modelName,
		Framework: project.Framework,
		ObjectURI: objectURI,
		Metadata:  metadataJSON,
	}
	if err := w.models.Insert(ctx, model); err != nil {
		return w.fail(ctx, project, err, "insert_model")
	}

	patch := map[string]any{"num_classes": numClasses}
	return w.advance(ctx, project, patch)
}

func (w *Workflow) advance(ctx context.Context, project *store.Project, patch map[string]any) error {
	policy := retry.AdvanceStatusPolicy()
	var result store.ClaimResult
	err := policy.Execute(ctx, func() error {
		r, advErr := w.projects.AdvanceStatus(ctx, project.ID, store.StatusPendingTraining, store.StatusPendingEvaluation, patch)
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
		return w.fail(ctx, project, err, "advance_status")
	}

	if result == store.Claimed {
		w.appendLog(ctx, project.ID, store.LogLevelInfo, "advanced to pending_evaluation")
		if w.bus != nil {
			w.bus.Publish(ctx, eventbus.ProjectStatusChanged{
				ProjectID: project.ID,
				From:      string(store.StatusPendingTraining),
				To:        string(store.StatusPendingEvaluation),
				At:        time.Now().UTC(),
			})
		}
	}
	return nil
}

func (w *Workflow) resolvePlan(metadataRaw []byte) (model string, epochs int, lr float64) {
	model = "resnet18"
	epochs = w.cfg.DefaultEpochs
	lr = w.cfg.DefaultLR

	var metadata map[string]any
	if len(metadataRaw) == 0 {
		return
	}
	_ = json.Unmarshal(metadataRaw, &metadata)
	if v, ok := metadata["preferred_model"].(string); ok && v != "" {
		model = v
	}
	if v, ok := metadata["epochs"].(float64); ok && v > 0 {
		epochs = int(v)
	}
	if v, ok := metadata["learning_rate"].(float64); ok && v > 0 {
		lr = v
	}
	return
}

func (w *Workflow) fail(ctx context.Context, project *store.Project, cause error, step string) error {
	ek, ok := errkind.As(cause)
	kind := errkind.Permanent
	detail := cause.Error()
	if ok {
		kind = ek.Kind
		detail = ek.Detail
	}

	w.appendLog(ctx, project.ID, store.LogLevelError, fmt.Sprintf("training agent failed at %s: %v", step, cause))

	patch := map[string]any{
		"error": map[string]any{"kind": string(kind), "detail": detail, "step": step},
	}
	policy := retry.AdvanceStatusPolicy()
	_ = policy.Execute(ctx, func() error {
		_, advErr := w.projects.AdvanceStatus(ctx, project.ID, store.StatusPendingTraining, store.StatusFailed, patch)
		return advErr
	})
	return cause
}

func (w *Workflow) appendLog(ctx context.Context, projectID string, level store.AgentLogLevel, message string) {
	id := projectID
	if err := w.logs.Append(ctx, &id, store.AgentTraining, level, message); err != nil {
		w.logger.Warn("failed to append agent log", zap.Error(err))
	}
}
