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

// ModelRepository manages the single Model row inserted by the training
// agent and later enriched (accuracy, bundle URI) by the evaluation agent.
type ModelRepository interface {
	Insert(ctx context.Context, m *Model) error
	GetByProject(ctx context.Context, projectID string) (*Model, error)
	// RecordEvaluation merges evaluation results into the model's metadata
	// and sets accuracy, matching the write-artifact-before-status-flip
	// ordering the evaluation workflow requires.
	RecordEvaluation(ctx context.Context, projectID string, accuracy float64, metadataPatch map[string]any) error
}

type modelRepository struct {
	db *gorm.DB
}

func NewModelRepository(db *gorm.DB) ModelRepository {
	return &modelRepository{db: db}
}

func (r *modelRepository) Insert(ctx context.Context, m *Model) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	result := r.db.WithContext(ctx).Create(m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return errkind.Wrap(errkind.Conflict, "model already recorded for project", result.Error)
		}
		return classify(result.Error, "insert model")
	}
	return nil
}

func (r *modelRepository) GetByProject(ctx context.Context, projectID string) (*Model, error) {
	var m Model
	result := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&m)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errkind.New(errkind.NotFound, "model not found")
		}
		return nil, classify(result.Error, "get model by project")
	}
	return &m, nil
}

func (r *modelRepository) RecordEvaluation(ctx context.Context, projectID string, accuracy float64, metadataPatch map[string]any) error {
	if metadataPatch == nil {
		metadataPatch = map[string]any{}
	}
	patchJSON, err := json.Marshal(metadataPatch)
	if err != nil {
		return errkind.Wrap(errkind.Permanent, "marshal model metadata patch", err)
	}

	result := r.db.WithContext(ctx).Exec(
		`UPDATE models SET accuracy = ?, metadata = COALESCE(metadata, '{}'::jsonb) || ?::jsonb, updated_at = ?
		 WHERE project_id = ?`,
		accuracy, string(patchJSON), time.Now().UTC(), projectID,
	)
	if result.Error != nil {
		return classify(result.Error, "record evaluation")
	}
	if result.RowsAffected == 0 {
		return errkind.New(errkind.NotFound, "model not found for project")
	}
	return nil
}
