package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/i18n"
	"github.com/chattr-app/chattr-go-api/internal/models"
	"github.com/chattr-app/chattr-go-api/internal/repository"
)

// UserService implements registration and profile management. Left users are
// invisible here; they resolve only through room rosters.
type UserService interface {
	Register(ctx context.Context, userID string, payload dto.RegisterUserRequest) (dto.UserResponse, error)
	Modify(ctx context.Context, userID string, payload dto.ModifyUserRequest) (dto.UserResponse, error)
	Leave(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (dto.UserResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewUserService constructs a user service instance.
func NewUserService(repo repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Register(ctx context.Context, userID string, payload dto.RegisterUserRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil && !existing.HasLeft():
		return dto.UserResponse{}, ErrUserExists
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.UserResponse{}, err
	}

	locale := payload.Locale
	if locale == "" {
		locale = i18n.DefaultLocale
	}

	tokens := []string{}
	if payload.PushToken != nil && *payload.PushToken != "" {
		tokens = append(tokens, *payload.PushToken)
	}

	now := time.Now().UTC()
	user := models.User{
		UserID:       userID,
		PhoneNumber:  strings.TrimSpace(payload.PhoneNumber),
		Nickname:     s.cleanNickname(payload.Nickname),
		Locale:       locale,
		Avatar:       payload.Avatar,
		PushTokens:   datatypes.NewJSONSlice(tokens),
		RegisteredAt: now,
	}

	if user.Nickname == "" {
		return dto.UserResponse{}, errors.New("nickname empty after sanitization")
	}

	// A left account registering again is resurrected in place rather than
	// violating the unique user id.
	if err == nil && existing.HasLeft() {
		user.ID = existing.ID
		if saveErr := s.repo.Save(ctx, &user); saveErr != nil {
			return dto.UserResponse{}, saveErr
		}
	} else if createErr := s.repo.Create(ctx, &user); createErr != nil {
		return dto.UserResponse{}, createErr
	}

	s.logger.Info().Str("user_id", userID).Msg("user registered")

	return dto.NewUserResponse(user), nil
}

func (s *userService) Modify(ctx context.Context, userID string, payload dto.ModifyUserRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if payload.Nickname != nil {
		clean := s.cleanNickname(*payload.Nickname)
		if clean == "" {
			return dto.UserResponse{}, errors.New("nickname empty after sanitization")
		}
		user.Nickname = clean
	}
	if payload.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*payload.PhoneNumber)
	}
	if payload.Locale != nil {
		user.Locale = *payload.Locale
	}
	if payload.Avatar != nil {
		user.Avatar = payload.Avatar
	}
	if payload.PushToken != nil && *payload.PushToken != "" {
		user.PushTokens = appendToken(user.PushTokens, *payload.PushToken)
	}

	now := time.Now().UTC()
	user.UpdatedAt = &now

	if err := s.repo.Save(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

// Leave soft-deletes the account: the record stays so historic rooms and
// messages keep resolving, but every profile surface reports the user gone.
func (s *userService) Leave(ctx context.Context, userID string) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	user.LeftAt = &now

	if err := s.repo.Save(ctx, &user); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", userID).Msg("user left")

	return nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (dto.UserResponse, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) activeUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if user.HasLeft() {
		return models.User{}, ErrUserLeft
	}

	return user, nil
}

func (s *userService) cleanNickname(nickname string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(nickname))
}

func appendToken(tokens datatypes.JSONSlice[string], token string) datatypes.JSONSlice[string] {
	for _, existing := range tokens {
		if existing == token {
			return tokens
		}
	}
	return append(tokens, token)
}
