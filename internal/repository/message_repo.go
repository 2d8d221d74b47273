package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/models"
)

const defaultMessagePageLimit = 30

// MessageRepository persists the per-room message log. The log is logically
// append-only: edits and deletes mutate rows in place, Clean is the only
// physical removal and exists for test teardown.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByMessageID(ctx context.Context, roomID, messageID string) (models.Message, error)
	Save(ctx context.Context, message *models.Message) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	ListByRoomBeforeMessage(ctx context.Context, roomID, beforeMessageID string, limit int) ([]models.Message, error)
	ListByRoomBeforeCreatedAt(ctx context.Context, roomID string, before time.Time, limit int) ([]models.Message, error)
	Clean(ctx context.Context, roomID, messageID string) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) FindByMessageID(ctx context.Context, roomID, messageID string) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND message_id = ?", roomID, messageID).
		First(&message).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) Save(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Save(message).Error
}

// ListByRoom returns the newest messages first. Ties on created_at fall back
// to write order via the surrogate id.
func (r *messageRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	return r.list(ctx, roomID, limit, nil)
}

// ListByRoomBeforeMessage pages strictly past the cursor message. A vanished
// cursor surfaces as gorm.ErrRecordNotFound.
func (r *messageRepository) ListByRoomBeforeMessage(ctx context.Context, roomID, beforeMessageID string, limit int) ([]models.Message, error) {
	cursor, err := r.FindByMessageID(ctx, roomID, beforeMessageID)
	if err != nil {
		return nil, err
	}

	return r.list(ctx, roomID, limit, func(query *gorm.DB) *gorm.DB {
		return query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	})
}

func (r *messageRepository) ListByRoomBeforeCreatedAt(ctx context.Context, roomID string, before time.Time, limit int) ([]models.Message, error) {
	return r.list(ctx, roomID, limit, func(query *gorm.DB) *gorm.DB {
		return query.Where("created_at < ?", before)
	})
}

func (r *messageRepository) list(ctx context.Context, roomID string, limit int, scope func(*gorm.DB) *gorm.DB) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultMessagePageLimit
	}

	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if scope != nil {
		query = scope(query)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

// Clean physically removes the row without an existence check.
func (r *messageRepository) Clean(ctx context.Context, roomID, messageID string) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND message_id = ?", roomID, messageID).
		Delete(&models.Message{}).Error
}
