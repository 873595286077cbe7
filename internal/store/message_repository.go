package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository manages the chat transcript surfaced to the user.
type MessageRepository interface {
	Write(ctx context.Context, userID string, role MessageRole, content string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Write(ctx context.Context, userID string, role MessageRole, content string) error {
	msg := Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if result := r.db.WithContext(ctx).Create(&msg); result.Error != nil {
		return classify(result.Error, "write message")
	}
	return nil
}

func (r *messageRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Message, error) {
	var messages []Message
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages)
	if result.Error != nil {
		return nil, classify(result.Error, "list messages")
	}
	return messages, nil
}
