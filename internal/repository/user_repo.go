package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/models"
)

// UserRepository persists user profile records. Left (soft-deleted) users are
// not filtered here; visibility rules live in the service layer so historic
// references stay resolvable.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUserID(ctx context.Context, userID string) (models.User, error)
	FindMany(ctx context.Context, userIDs []string) ([]models.User, error)
	Save(ctx context.Context, user *models.User) error
	UpdatePushTokens(ctx context.Context, userID string, tokens []string) error
	Clean(ctx context.Context, userID string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByUserID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindMany(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdatePushTokens(ctx context.Context, userID string, tokens []string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("push_tokens", datatypes.NewJSONSlice(tokens)).Error
}

// Clean hard-deletes the record. It exists for test teardown and bypasses
// the soft-delete lifecycle entirely.
func (r *userRepository) Clean(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.User{}).Error
}
