package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ponziland/chainindexer/internal/chain"
	"github.com/ponziland/chainindexer/internal/models"
)

// MessageRepository is the thin CRUD accessor for the out-of-scope-in-depth
// chat feature (SPEC_FULL §3 [ADD]).
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, authorAddress, body string) (*models.Message, error) {
	msg := models.Message{AuthorAddress: chain.NormalizeAddress(authorAddress), Body: body}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return &msg, nil
}

// ListRecent returns the most recent, non-deleted messages, newest first.
func (r *MessageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return messages, nil
}

// SoftDelete marks id as deleted without removing the row, preserving
// moderation history.
func (r *MessageRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("deleted_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to delete message %d: %w", id, err)
	}
	return nil
}
