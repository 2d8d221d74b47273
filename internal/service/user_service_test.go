package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/repository"
)

func newUserService(t *testing.T) (UserService, repository.UserRepository) {
	t.Helper()
	db := setupTestDB(t)
	repo := repository.NewUserRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewUserService(repo, validate, testLogger()), repo
}

func strPtr(s string) *string {
	return &s
}

func TestUserServiceRegisterAndDuplicate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", dto.RegisterUserRequest{
		Nickname:    "Alice",
		PhoneNumber: "+15550100",
		PushToken:   strPtr("token-alice-1"),
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.UserID)
	require.Equal(t, "en-US", user.Locale)
	require.Equal(t, []string{"token-alice-1"}, user.PushTokens)

	_, err = svc.Register(ctx, "alice", dto.RegisterUserRequest{
		Nickname:    "Alice Again",
		PhoneNumber: "+15550100",
	})
	require.True(t, errors.Is(err, ErrUserExists))
}

func TestUserServiceRegisterSanitizesNickname(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.Register(context.Background(), "alice", dto.RegisterUserRequest{
		Nickname:    "<script>alert('x')</script>Alice",
		PhoneNumber: "+15550100",
	})
	require.NoError(t, err)
	require.Equal(t, "Alice", user.Nickname)
}

func TestUserServiceModifyPartialUpdate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", dto.RegisterUserRequest{
		Nickname:    "Alice",
		PhoneNumber: "+15550100",
		PushToken:   strPtr("token-alice-1"),
	})
	require.NoError(t, err)

	updated, err := svc.Modify(ctx, "alice", dto.ModifyUserRequest{
		Nickname:  strPtr("Alicia"),
		Locale:    strPtr("ko-KR"),
		PushToken: strPtr("token-alice-2"),
	})
	require.NoError(t, err)
	require.Equal(t, "Alicia", updated.Nickname)
	require.Equal(t, "ko-KR", updated.Locale)
	require.Equal(t, "+15550100", updated.PhoneNumber)
	require.Equal(t, []string{"token-alice-1", "token-alice-2"}, updated.PushTokens)
	require.NotNil(t, updated.UpdatedAt)

	// Re-registering the same device token must not duplicate it.
	again, err := svc.Modify(ctx, "alice", dto.ModifyUserRequest{PushToken: strPtr("token-alice-2")})
	require.NoError(t, err)
	require.Equal(t, []string{"token-alice-1", "token-alice-2"}, again.PushTokens)
}

func TestUserServiceLeaveAndResurrect(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", dto.RegisterUserRequest{
		Nickname:    "Alice",
		PhoneNumber: "+15550100",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, "alice"))

	_, err = svc.GetProfile(ctx, "alice")
	require.True(t, errors.Is(err, ErrUserLeft))

	_, err = svc.Modify(ctx, "alice", dto.ModifyUserRequest{Nickname: strPtr("Ghost")})
	require.True(t, errors.Is(err, ErrUserLeft))

	// A left account may register again; the profile starts over.
	fresh, err := svc.Register(ctx, "alice", dto.RegisterUserRequest{
		Nickname:    "Alice Reborn",
		PhoneNumber: "+15550199",
	})
	require.NoError(t, err)
	require.Equal(t, "Alice Reborn", fresh.Nickname)
	require.Empty(t, fresh.PushTokens)

	profile, err := svc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice Reborn", profile.Nickname)
}

func TestUserServiceUnknownUser(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetProfile(context.Background(), "nobody")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
