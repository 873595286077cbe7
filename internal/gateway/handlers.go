package gateway

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/evaluationagent"
	"automl-orchestrator/internal/gateway/middleware"
	"automl-orchestrator/internal/objectstore"
	"automl-orchestrator/internal/planner"
	"automl-orchestrator/internal/slug"
	"automl-orchestrator/internal/store"
)

// Handlers holds the dependencies every gin.HandlerFunc in this package
// closes over, mirroring the teacher's handlers-take-db-as-argument shape
// but bundled into a receiver since there are more collaborators here.
type Handlers struct {
	logger    *zap.Logger
	users     store.UserRepository
	projects  store.ProjectRepository
	models    store.ModelRepository
	logs      store.LogRepository
	objects   objectstore.ObjectStore
	workflow  *planner.Workflow
	evaluator evaluationagent.Evaluator
	cache     *StatusCache
}

func errorStatus(kind errkind.Kind) int {
	switch kind {
	case errkind.NotFound:
		return http.StatusNotFound
	case errkind.Conflict:
		return http.StatusConflict
	case errkind.InputInvalid, errkind.PlanInvalid, errkind.BadDatasetLayout:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	if ek, ok := errkind.As(err); ok {
		c.JSON(errorStatus(ek.Kind), gin.H{"success": false, "kind": string(ek.Kind), "detail": ek.Detail})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "kind": "permanent", "detail": err.Error()})
}

// chatRequest is the gateway's public chat body (spec.md §6).
type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat forwards the caller's utterance to the planner in-process and
// relays its response verbatim (spec.md §4.7).
func (h *Handlers) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "kind": "input_invalid", "detail": err.Error()})
		return
	}

	externalAuthID := middleware.ExternalAuthID(c)
	plan, projectID, err := h.workflow.Handle(c.Request.Context(), externalAuthID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project_id": projectID, "plan": plan})
}

// ListProjects returns the caller's own projects, or, for an admin passing
// ?user_id=, that user's projects.
func (h *Handlers) ListProjects(c *gin.Context) {
	user := middleware.ResolvedUser(c)
	userID := user.ID
	if middleware.IsAdmin(c) {
		if q := c.Query("user_id"); q != "" {
			userID = q
		}
	}

	projects, err := h.projects.ListByUser(c.Request.Context(), userID, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects": projects})
}

// GetProject returns one project; OwnerCheck has already enforced
// ownership and attached it to the context. The model row, if one
// exists yet, is attached so the caller can see accuracy/bundle state
// without a second round trip.
func (h *Handlers) GetProject(c *gin.Context) {
	project := middleware.ResolvedProject(c)
	model, _ := h.models.GetByProject(c.Request.Context(), project.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "project": project, "model": model})
}

func (h *Handlers) ProjectLogs(c *gin.Context) {
	project := middleware.ResolvedProject(c)
	limit := queryLimit(c, 50)
	entries, err := h.logs.ListByProject(c.Request.Context(), project.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": entries})
}

// ProjectEvents serves the (ADD) lightweight status-change feed from the
// in-memory cache, never the database.
func (h *Handlers) ProjectEvents(c *gin.Context) {
	project := middleware.ResolvedProject(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "events": h.cache.Recent(project.ID)})
}

// Download streams the bundle zip without materializing it in memory
// (spec.md §4.7).
func (h *Handlers) Download(c *gin.Context) {
	project := middleware.ResolvedProject(c)

	var metadata map[string]any
	if err := decodeJSON(project.Metadata, &metadata); err != nil {
		respondError(c, errkind.Wrap(errkind.Permanent, "decode project metadata", err))
		return
	}
	bundleURI, _ := metadata["bundle_uri"].(string)
	if bundleURI == "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "kind": "not_found", "detail": "bundle not ready"})
		return
	}

	reader, err := h.objects.OpenRead(c.Request.Context(), bundleURI)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	filename := fmt.Sprintf("%s.zip", slug.Slugify(project.Name))
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.logger.Warn("failed to stream bundle download", zap.Error(err))
	}
}

// modelClasses recovers the class index a model was evaluated against from
// its per_class_report metadata, written by evaluationagent.Workflow.Run.
func modelClasses(model *store.Model) ([]string, error) {
	var metadata struct {
		PerClassReport []struct {
			ClassName string `json:"class_name"`
		} `json:"per_class_report"`
	}
	if err := decodeJSON(model.Metadata, &metadata); err != nil {
		return nil, errkind.Wrap(errkind.Permanent, "decode model metadata", err)
	}
	if len(metadata.PerClassReport) == 0 {
		return nil, errkind.New(errkind.Conflict, "model has not been evaluated yet")
	}
	classes := make([]string, len(metadata.PerClassReport))
	for i, c := range metadata.PerClassReport {
		classes[i] = c.ClassName
	}
	return classes, nil
}

// TestPredict is the admin/testing-only endpoint that scores a single
// uploaded image against the project's trained model (spec.md §4.7),
// delegating to the same Go-orchestrates/subprocess-executes boundary the
// evaluation agent uses to score held-out splits.
func (h *Handlers) TestPredict(c *gin.Context) {
	project := middleware.ResolvedProject(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "kind": "input_invalid", "detail": "multipart file field is required"})
		return
	}

	model, err := h.models.GetByProject(c.Request.Context(), project.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	classes, err := modelClasses(model)
	if err != nil {
		respondError(c, err)
		return
	}

	workDir, err := os.MkdirTemp("", "test-predict-*")
	if err != nil {
		respondError(c, errkind.Wrap(errkind.Permanent, "create scratch directory", err))
		return
	}
	defer os.RemoveAll(workDir)

	weightsPath := filepath.Join(workDir, "model.pth")
	if err := h.objects.Download(c.Request.Context(), model.ObjectURI, weightsPath); err != nil {
		respondError(c, err)
		return
	}

	imagePath := filepath.Join(workDir, slug.Slugify(fileHeader.Filename)+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, imagePath); err != nil {
		respondError(c, errkind.Wrap(errkind.Permanent, "save uploaded image", err))
		return
	}

	result, err := h.evaluator.Predict(c.Request.Context(), evaluationagent.PredictRequest{
		ModelName:   model.Name,
		WeightsPath: weightsPath,
		ImagePath:   imagePath,
		Classes:     classes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "label": result.Label, "confidence": result.Confidence})
}

// AdminStats aggregates simple counts across all known statuses.
func (h *Handlers) AdminStats(c *gin.Context) {
	counts := map[string]int{}
	for _, status := range []store.ProjectStatus{
		store.StatusDraft, store.StatusPendingDataset, store.StatusPendingTraining,
		store.StatusPendingEvaluation, store.StatusCompleted, store.StatusFailed,
	} {
		projects, err := h.projects.ListByStatus(c.Request.Context(), status, 10000)
		if err != nil {
			respondError(c, err)
			return
		}
		counts[string(status)] = len(projects)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects_by_status": counts})
}

func (h *Handlers) AdminUsers(c *gin.Context) {
	users, err := h.users.ListRecent(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

func (h *Handlers) AdminProjects(c *gin.Context) {
	projects, err := h.projects.ListRecent(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects": projects})
}

func (h *Handlers) AdminLogs(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "kind": "input_invalid", "detail": "project_id query parameter is required"})
		return
	}
	entries, err := h.logs.ListByProject(c.Request.Context(), projectID, queryLimit(c, 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": entries})
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": nowRFC3339()})
}

func queryLimit(c *gin.Context, def int) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
