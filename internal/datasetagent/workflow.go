package datasetagent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/eventbus"
	"automl-orchestrator/internal/objectstore"
	"automl-orchestrator/internal/retry"
	"automl-orchestrator/internal/slug"
	"automl-orchestrator/internal/store"
)

// hardSizeCeilingGB is the size cap used when Config.MaxDatasetSizeGB is
// unset (spec.md §6 configuration table's max_dataset_size_gb default).
// The configured cap, not this constant, bounds whatever the plan requested.
const hardSizeCeilingGB = 50

// Config is the subset of the configuration table this agent consumes.
type Config struct {
	MaxDatasetSizeGB float64
	Bucket           string
}

// Workflow implements polling.Workflow for status = pending_dataset.
type Workflow struct {
	logger   *zap.Logger
	projects store.ProjectRepository
	datasets store.DatasetRepository
	messages store.MessageRepository
	logs     store.LogRepository
	objects  objectstore.ObjectStore
	source   DatasetSource
	bus      *eventbus.Bus
	cfg      Config
}

func NewWorkflow(
	logger *zap.Logger,
	projects store.ProjectRepository,
	datasets store.DatasetRepository,
	messages store.MessageRepository,
	logs store.LogRepository,
	objects objectstore.ObjectStore,
	source DatasetSource,
	bus *eventbus.Bus,
	cfg Config,
) *Workflow {
	if cfg.MaxDatasetSizeGB <= 0 {
		cfg.MaxDatasetSizeGB = hardSizeCeilingGB
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "automl-artifacts"
	}
	return &Workflow{
		logger:   logger,
		projects: projects,
		datasets: datasets,
		messages: messages,
		logs:     logs,
		objects:  objects,
		source:   source,
		bus:      bus,
		cfg:      cfg,
	}
}

// Run implements polling.Workflow.
func (w *Workflow) Run(ctx context.Context, projectID string) error {
	project, err := w.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}

	// Smart-failure re-entry (spec.md §4.4, P7, S5): a Dataset row already
	// existing means a prior run got as far as step 5 and only the final
	// advance_status failed. Skip straight to the retry instead of
	// re-downloading.
	if existing, getErr := w.datasets.GetByProject(ctx, projectID); getErr == nil {
		w.appendLog(ctx, projectID, store.LogLevelInfo, "dataset row already present, retrying status advance only")
		return w.advanceOrIntegrity(ctx, project, existing)
	}

	workDir, err := os.MkdirTemp("", "dataset-"+projectID+"-")
	if err != nil {
		return w.fail(ctx, project, errkind.Wrap(errkind.Permanent, "create work directory", err), "workdir")
	}
	defer os.RemoveAll(workDir)

	keywords := decodeKeywords(project.SearchKeywords)
	maxSizeGB := resolveMaxSizeGB(project.Metadata, w.cfg.MaxDatasetSizeGB)

	candidates, err := w.source.Search(ctx, keywords, maxSizeGB)
	if err != nil {
		return w.fail(ctx, project, err, "search")
	}

	ranked := RankCandidates(candidates, keywords, maxSizeGB)
	if len(ranked) == 0 {
		return w.fail(ctx, project, errkind.New(errkind.NoCandidate, "no dataset candidate within size cap"), "search")
	}
	best := ranked[0]

	archivePath := filepath.Join(workDir, "archive.zip")
	if err := w.source.Download(ctx, best, archivePath); err != nil {
		return w.fail(ctx, project, err, "download")
	}
	info, statErr := os.Stat(archivePath)
	if statErr != nil || info.Size() == 0 {
		return w.fail(ctx, project, errkind.New(errkind.Permanent, "downloaded archive is empty"), "download")
	}

	objectURI := fmt.Sprintf("s3://%s/raw/%s.zip", w.cfg.Bucket, slug.Slugify(project.Name))
	if err := w.objects.Upload(ctx, archivePath, objectURI); err != nil {
		return w.fail(ctx, project, err, "upload")
	}

	dataset := &store.Dataset{
		ProjectID: projectID,
		Name:      best.Ref,
		ObjectURI: objectURI,
		Size:      humanSize(info.Size()),
		Source:    string(project.DatasetSource),
	}
	if err := w.datasets.Insert(ctx, dataset); err != nil {
		return w.fail(ctx, project, err, "insert_dataset")
	}

	return w.advanceOrIntegrity(ctx, project, dataset)
}

// advanceOrIntegrity performs the conditional status advance with retries;
// a persistent failure here is the "smart failure" integrity case, not a
// project failure, since the Dataset row is already durable.
func (w *Workflow) advanceOrIntegrity(ctx context.Context, project *store.Project, dataset *store.Dataset) error {
	policy := retry.AdvanceStatusPolicy()
	var result store.ClaimResult
	err := policy.Execute(ctx, func() error {
		r, advErr := w.projects.AdvanceStatus(ctx, project.ID, store.StatusPendingDataset, store.StatusPendingTraining, map[string]any{})
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
		// Smart-failure/integrity path: do not mark failed, the Dataset
		// row already exists and is durable.
		w.appendLog(ctx, project.ID, store.LogLevelWarning, "status update failed after dataset was recorded, manual intervention needed: "+err.Error())
		w.notifyUser(ctx, project.UserID, "We found and saved your dataset, but ran into a hiccup finishing the handoff to training. Our team has been notified.")
		return nil
	}

	if result == store.Claimed {
		w.notifyUser(ctx, project.UserID, fmt.Sprintf("Found dataset %q (%s). Moving on to training.", dataset.Name, dataset.Size))
		w.appendLog(ctx, project.ID, store.LogLevelInfo, "advanced to pending_training")
		if w.bus != nil {
			w.bus.Publish(ctx, eventbus.ProjectStatusChanged{
				ProjectID: project.ID,
				From:      string(store.StatusPendingDataset),
				To:        string(store.StatusPendingTraining),
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

	w.appendLog(ctx, project.ID, store.LogLevelError, fmt.Sprintf("dataset agent failed at %s: %v", step, cause))

	patch := map[string]any{
		"error": map[string]any{"kind": string(kind), "detail": detail, "step": step},
	}
	policy := retry.AdvanceStatusPolicy()
	_ = policy.Execute(ctx, func() error {
		_, advErr := w.projects.AdvanceStatus(ctx, project.ID, store.StatusPendingDataset, store.StatusFailed, patch)
		return advErr
	})
	w.notifyUser(ctx, project.UserID, "We couldn't find or prepare a dataset for your project. Please try a different description.")
	return cause
}

func (w *Workflow) appendLog(ctx context.Context, projectID string, level store.AgentLogLevel, message string) {
	id := projectID
	if err := w.logs.Append(ctx, &id, store.AgentDataset, level, message); err != nil {
		w.logger.Warn("failed to append agent log", zap.Error(err))
	}
}

func (w *Workflow) notifyUser(ctx context.Context, userID, content string) {
	if err := w.messages.Write(ctx, userID, store.RoleAssistant, content); err != nil {
		w.logger.Warn("failed to write user message", zap.Error(err))
	}
}

func decodeKeywords(raw []byte) []string {
	var keywords []string
	if len(raw) == 0 {
		return keywords
	}
	_ = decodeJSON(raw, &keywords)
	return keywords
}

func resolveMaxSizeGB(metadataRaw []byte, hardCap float64) float64 {
	var metadata map[string]any
	if len(metadataRaw) > 0 {
		_ = decodeJSON(metadataRaw, &metadata)
	}
	requested := hardCap
	if v, ok := metadata["max_dataset_size_gb"]; ok {
		if f, ok := toFloat(v); ok && f > 0 {
			requested = f
		}
	}
	if requested > hardCap {
		return hardCap
	}
	return requested
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
