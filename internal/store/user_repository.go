package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"automl-orchestrator/internal/errkind"
)

// UserRepository resolves or creates a User by external_auth_id. Users are
// never deleted by agents.
type UserRepository interface {
	GetOrCreate(ctx context.Context, externalAuthID string) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	ListRecent(ctx context.Context, limit int) ([]User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetOrCreate(ctx context.Context, externalAuthID string) (*User, error) {
	var existing User
	result := r.db.WithContext(ctx).Where("external_auth_id = ?", externalAuthID).First(&existing)
	if result.Error == nil {
		return &existing, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, classify(result.Error, "lookup user")
	}

	u := User{
		ID:             uuid.NewString(),
		ExternalAuthID: externalAuthID,
		CreatedAt:      time.Now().UTC(),
	}
	if createResult := r.db.WithContext(ctx).Create(&u); createResult.Error != nil {
		if errors.Is(createResult.Error, gorm.ErrDuplicatedKey) {
			// Lost a race with another insert of the same external id;
			// the row now exists, so fetch it instead of failing.
			if refetch := r.db.WithContext(ctx).Where("external_auth_id = ?", externalAuthID).First(&existing); refetch.Error == nil {
				return &existing, nil
			}
		}
		return nil, errkind.Wrap(errkind.Permanent, "create user", createResult.Error)
	}
	return &u, nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*User, error) {
	var u User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errkind.New(errkind.NotFound, "user not found")
		}
		return nil, classify(result.Error, "get user")
	}
	return &u, nil
}

func (r *userRepository) ListRecent(ctx context.Context, limit int) ([]User, error) {
	var users []User
	result := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&users)
	if result.Error != nil {
		return nil, classify(result.Error, "list users")
	}
	return users, nil
}
