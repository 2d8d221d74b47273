package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/models"
)

const defaultRoomPageLimit = 30

// RoomRepository persists room records and keeps the room_members index in
// step with each room's member-id array. Every write that touches MemberIDs
// goes through Save so the index can never drift from the document.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByRoomID(ctx context.Context, roomID string) (models.Room, error)
	FindPrivateByPairKey(ctx context.Context, pairKey string) (models.Room, error)
	Save(ctx context.Context, room *models.Room) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Room, error)
	ListForUserAfterRoom(ctx context.Context, userID, afterRoomID string, limit int) ([]models.Room, error)
	ListForUserAfterUpdatedAt(ctx context.Context, userID string, after time.Time, limit int) ([]models.Room, error)
	Clean(ctx context.Context, roomID string) error
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository constructs a room repository backed by GORM.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		return syncMemberIndex(tx, room)
	})
}

func (r *roomRepository) FindByRoomID(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error; err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (r *roomRepository) FindPrivateByPairKey(ctx context.Context, pairKey string) (models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("pair_key = ?", pairKey).First(&room).Error; err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (r *roomRepository) Save(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(room).Error; err != nil {
			return err
		}
		return syncMemberIndex(tx, room)
	})
}

func (r *roomRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.Room, error) {
	return r.listForUser(ctx, userID, limit, nil)
}

// ListForUserAfterRoom resolves the cursor room first to learn its position,
// then returns rooms updated more recently than it; a vanished cursor room
// surfaces as gorm.ErrRecordNotFound.
func (r *roomRepository) ListForUserAfterRoom(ctx context.Context, userID, afterRoomID string, limit int) ([]models.Room, error) {
	cursor, err := r.FindByRoomID(ctx, afterRoomID)
	if err != nil {
		return nil, err
	}

	return r.listForUser(ctx, userID, limit, func(query *gorm.DB) *gorm.DB {
		return query.Where(
			"rooms.updated_at > ? OR (rooms.updated_at = ? AND rooms.id > ?)",
			cursor.UpdatedAt, cursor.UpdatedAt, cursor.ID,
		)
	})
}

func (r *roomRepository) ListForUserAfterUpdatedAt(ctx context.Context, userID string, after time.Time, limit int) ([]models.Room, error) {
	return r.listForUser(ctx, userID, limit, func(query *gorm.DB) *gorm.DB {
		return query.Where("rooms.updated_at > ?", after)
	})
}

func (r *roomRepository) listForUser(ctx context.Context, userID string, limit int, scope func(*gorm.DB) *gorm.DB) ([]models.Room, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultRoomPageLimit
	}

	query := r.db.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = rooms.room_id").
		Where("room_members.user_id = ?", userID)
	if scope != nil {
		query = scope(query)
	}

	var rooms []models.Room
	if err := query.Order("rooms.updated_at DESC, rooms.id DESC").Limit(limit).Find(&rooms).Error; err != nil {
		return nil, err
	}

	return rooms, nil
}

// Clean hard-deletes the room and its member index rows. Test teardown only.
func (r *roomRepository) Clean(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomMember{}).Error; err != nil {
			return err
		}
		return tx.Where("room_id = ?", roomID).Delete(&models.Room{}).Error
	})
}

// syncMemberIndex reconciles room_members with the room's member-id array:
// rows for departed members go away, rows for new members appear.
func syncMemberIndex(tx *gorm.DB, room *models.Room) error {
	members := []string(room.MemberIDs)

	if len(members) == 0 {
		return tx.Where("room_id = ?", room.RoomID).Delete(&models.RoomMember{}).Error
	}

	if err := tx.Where("room_id = ? AND user_id NOT IN ?", room.RoomID, members).
		Delete(&models.RoomMember{}).Error; err != nil {
		return err
	}

	var existing []models.RoomMember
	if err := tx.Where("room_id = ?", room.RoomID).Find(&existing).Error; err != nil {
		return err
	}

	present := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		present[row.UserID] = struct{}{}
	}

	now := time.Now().UTC()
	for _, userID := range members {
		if _, ok := present[userID]; ok {
			continue
		}
		row := models.RoomMember{RoomID: room.RoomID, UserID: userID, JoinedAt: now}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	return nil
}
