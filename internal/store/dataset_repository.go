package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"automl-orchestrator/internal/errkind"
)

// DatasetRepository manages the single Dataset row a project gets once the
// dataset agent succeeds.
type DatasetRepository interface {
	Insert(ctx context.Context, d *Dataset) error
	GetByProject(ctx context.Context, projectID string) (*Dataset, error)
}

type datasetRepository struct {
	db *gorm.DB
}

func NewDatasetRepository(db *gorm.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

func (r *datasetRepository) Insert(ctx context.Context, d *Dataset) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).Create(d)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return errkind.Wrap(errkind.Conflict, "dataset already recorded for project", result.Error)
		}
		return classify(result.Error, "insert dataset")
	}
	return nil
}

func (r *datasetRepository) GetByProject(ctx context.Context, projectID string) (*Dataset, error) {
	var d Dataset
	result := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&d)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errkind.New(errkind.NotFound, "dataset not found")
		}
		return nil, classify(result.Error, "get dataset by project")
	}
	return &d, nil
}
