package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chattr-app/chattr-go-api/internal/dto"
	"github.com/chattr-app/chattr-go-api/internal/handler"
	"github.com/chattr-app/chattr-go-api/internal/service"
)

type mockUserService struct {
	lastUserID  string
	lastPayload interface{}
	response    dto.UserResponse
	err         error
}

func (m *mockUserService) Register(_ context.Context, userID string, payload dto.RegisterUserRequest) (dto.UserResponse, error) {
	m.lastUserID = userID
	m.lastPayload = payload
	return m.response, m.err
}

func (m *mockUserService) Modify(_ context.Context, userID string, payload dto.ModifyUserRequest) (dto.UserResponse, error) {
	m.lastUserID = userID
	m.lastPayload = payload
	return m.response, m.err
}

func (m *mockUserService) Leave(_ context.Context, userID string) error {
	m.lastUserID = userID
	return m.err
}

func (m *mockUserService) GetProfile(_ context.Context, userID string) (dto.UserResponse, error) {
	m.lastUserID = userID
	return m.response, m.err
}

func newUserApp(svc service.UserService, callerID string) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/users", authAs(callerID))
	handler.NewUserHandler(svc, testLogger()).Register(group)
	return app
}

func TestUserHandlerRegister(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{UserID: "alice", Nickname: "Alice"}}
	app := newUserApp(svc, "alice")

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/users", dto.RegisterUserRequest{
		Nickname:    "Alice",
		PhoneNumber: "+15550100",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", svc.lastUserID)

	var response struct {
		Success bool             `json:"success"`
		Data    dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "alice", response.Data.UserID)
}

func TestUserHandlerProfileByID(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{UserID: "bob", Nickname: "Bob"}}
	app := newUserApp(svc, "alice")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/users/bob", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "bob", svc.lastUserID)

	var response struct {
		Success bool             `json:"success"`
		Data    dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "bob", response.Data.UserID)

	svc.err = service.ErrUserLeft
	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/v1/users/bob", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestUserHandlerProfileByIDKeepsMeRoute(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{UserID: "alice"}}
	app := newUserApp(svc, "alice")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/users/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", svc.lastUserID)
}

func TestUserHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "duplicate", err: service.ErrUserExists, statusCode: fiber.StatusConflict},
		{name: "missing", err: gorm.ErrRecordNotFound, statusCode: fiber.StatusNotFound},
		{name: "left", err: service.ErrUserLeft, statusCode: fiber.StatusServiceUnavailable},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockUserService{err: tc.err}
			app := newUserApp(svc, "alice")

			resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/users/me", nil))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestUserHandlerRequiresAuthentication(t *testing.T) {
	svc := &mockUserService{}
	app := newUserApp(svc, "")

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/users/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUserHandlerLeave(t *testing.T) {
	svc := &mockUserService{}
	app := newUserApp(svc, "alice")

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/v1/users/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", svc.lastUserID)
}
