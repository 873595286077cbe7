package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogRepository appends to the append-only agent_logs audit trail.
type LogRepository interface {
	Append(ctx context.Context, projectID *string, agent AgentName, level AgentLogLevel, message string) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]AgentLog, error)
}

type logRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Append(ctx context.Context, projectID *string, agent AgentName, level AgentLogLevel, message string) error {
	entry := AgentLog{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		AgentName: agent,
		Message:   message,
		LogLevel:  level,
		CreatedAt: time.Now().UTC(),
	}
	if result := r.db.WithContext(ctx).Create(&entry); result.Error != nil {
		return classify(result.Error, "append agent log")
	}
	return nil
}

func (r *logRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]AgentLog, error) {
	var logs []AgentLog
	result := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs)
	if result.Error != nil {
		return nil, classify(result.Error, "list agent logs")
	}
	return logs, nil
}
