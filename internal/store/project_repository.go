package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"automl-orchestrator/internal/errkind"
)

// ProjectRepository is the typed access surface for the projects table,
// grounded on crs-scheduler's TaskRepository shape but adding the
// conditional advance_status primitive that replaces distributed locking.
type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	ListByStatus(ctx context.Context, status ProjectStatus, limit int) ([]Project, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Project, error)
	ListRecent(ctx context.Context, limit int) ([]Project, error)

	// AdvanceStatus succeeds only if the project's current status equals
	// from; patch is shallow-merged into the existing metadata jsonb
	// column atomically with the status change. Never retries internally;
	// callers apply retry.AdvanceStatusPolicy around transient failures.
	AdvanceStatus(ctx context.Context, id string, from, to ProjectStatus, patch map[string]any) (ClaimResult, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	result := r.db.WithContext(ctx).Create(p)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return errkind.Wrap(errkind.Conflict, "project id collision", result.Error)
		}
		return classify(result.Error, "insert project")
	}
	return nil
}

func (r *projectRepository) Get(ctx context.Context, id string) (*Project, error) {
	var p Project
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&p)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errkind.New(errkind.NotFound, "project not found")
		}
		return nil, classify(result.Error, "get project")
	}
	return &p, nil
}

func (r *projectRepository) ListByStatus(ctx context.Context, status ProjectStatus, limit int) ([]Project, error) {
	var projects []Project
	result := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Limit(limit).
		Find(&projects)
	if result.Error != nil {
		return nil, classify(result.Error, "list projects by status")
	}
	return projects, nil
}

func (r *projectRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Project, error) {
	var projects []Project
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if result := q.Find(&projects); result.Error != nil {
		return nil, classify(result.Error, "list projects by user")
	}
	return projects, nil
}

func (r *projectRepository) ListRecent(ctx context.Context, limit int) ([]Project, error) {
	var projects []Project
	result := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&projects)
	if result.Error != nil {
		return nil, classify(result.Error, "list recent projects")
	}
	return projects, nil
}

func (r *projectRepository) AdvanceStatus(ctx context.Context, id string, from, to ProjectStatus, patch map[string]any) (ClaimResult, error) {
	if !IsValidAdvance(from, to) {
		return "", errkind.New(errkind.InputInvalid, "invalid status transition: "+string(from)+" -> "+string(to))
	}
	if patch == nil {
		patch = map[string]any{}
	}
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return "", errkind.Wrap(errkind.Permanent, "marshal metadata patch", err)
	}

	// The jsonb || operator performs the metadata merge server-side so the
	// status flip and the metadata write commit as a single atomic
	// statement; no read-modify-write round trip is needed.
	result := r.db.WithContext(ctx).Exec(
		`UPDATE projects SET status = ?, metadata = COALESCE(metadata, '{}'::jsonb) || ?::jsonb, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), string(patchJSON), time.Now().UTC(), id, string(from),
	)
	if result.Error != nil {
		return "", classify(result.Error, "advance status")
	}
	if result.RowsAffected > 0 {
		return Claimed, nil
	}

	// No rows matched: either the project doesn't exist, or its status
	// already differs from `from` (another worker claimed it, or it's
	// further along than expected).
	var exists int64
	if err := r.db.WithContext(ctx).Model(&Project{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return "", classify(err, "check project existence")
	}
	if exists == 0 {
		return NoSuchProject, nil
	}
	return NotClaimed, nil
}

// classify maps a gorm/driver error into the closed errkind taxonomy.
// Connection-level failures are transient; everything else not already
// recognized is permanent, matching the conservative default crs-scheduler
// uses for unclassified database errors.
func classify(err error, detail string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errkind.Wrap(errkind.NotFound, detail, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errkind.Wrap(errkind.Timeout, detail, err)
	}
	if isTransientDBError(err) {
		return errkind.Wrap(errkind.Transient, detail, err)
	}
	return errkind.Wrap(errkind.Permanent, detail, err)
}
