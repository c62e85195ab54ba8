package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthFlow struct {
	businessflow.AuthFlow
	mock.Mock
}

func (m *mockAuthFlow) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockAuthFlow) HasPermission(ctx context.Context, userID uint, permission string) (bool, error) {
	args := m.Called(ctx, userID, permission)
	return args.Bool(0), args.Error(1)
}

func newTestApp(m *mockAuthFlow, chain ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := make([]any, 0, len(chain)+1)
	for _, h := range chain {
		handlers = append(handlers, h)
	}
	handlers = append(handlers, func(c fiber.Ctx) error {
		id, _ := GetUserIDFromContext(c)
		return c.JSON(fiber.Map{"user_id": id})
	})
	app.Get("/protected", handlers[0], handlers[1:]...)
	return app
}

func doGet(t *testing.T, app *fiber.App, authHeader string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAuthenticate(t *testing.T) {
	user := &models.User{ID: 7, Email: "owner@example.com"}

	tests := []struct {
		name   string
		header string
		setup  func(m *mockAuthFlow)
		want   int
	}{
		{name: "missing header", want: fiber.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: fiber.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: fiber.StatusUnauthorized},
		{
			name:   "unknown session",
			header: "Bearer stale",
			setup:  func(m *mockAuthFlow) { m.On("ValidateSession", mock.Anything, "stale").Return(nil, nil) },
			want:   fiber.StatusUnauthorized,
		},
		{
			name:   "lookup failure",
			header: "Bearer boom",
			setup: func(m *mockAuthFlow) {
				m.On("ValidateSession", mock.Anything, "boom").Return(nil, errors.New("db down"))
			},
			want: fiber.StatusInternalServerError,
		},
		{
			name:   "valid session",
			header: "Bearer good",
			setup:  func(m *mockAuthFlow) { m.On("ValidateSession", mock.Anything, "good").Return(user, nil) },
			want:   fiber.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockAuthFlow{}
			if tt.setup != nil {
				tt.setup(m)
			}
			mw := NewAuthMiddleware(m, utils.NopLogger())
			app := newTestApp(m, mw.Authenticate())
			assert.Equal(t, tt.want, doGet(t, app, tt.header))
			m.AssertExpectations(t)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := &mockAuthFlow{}
	m.On("ValidateSession", mock.Anything, "bad").Return(nil, errors.New("db down"))
	mw := NewAuthMiddleware(m, utils.NopLogger())
	app := newTestApp(m, mw.OptionalAuth())

	assert.Equal(t, fiber.StatusOK, doGet(t, app, ""))
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "Bearer bad"))
}

func TestRequirePermission(t *testing.T) {
	user := &models.User{ID: 3}

	t.Run("granted", func(t *testing.T) {
		m := &mockAuthFlow{}
		m.On("ValidateSession", mock.Anything, "tok").Return(user, nil)
		m.On("HasPermission", mock.Anything, uint(3), models.PermissionModerateReviews).Return(true, nil)
		mw := NewAuthMiddleware(m, utils.NopLogger())
		app := newTestApp(m, mw.Authenticate(), mw.RequirePermission(models.PermissionModerateReviews))
		assert.Equal(t, fiber.StatusOK, doGet(t, app, "Bearer tok"))
	})

	t.Run("denied", func(t *testing.T) {
		m := &mockAuthFlow{}
		m.On("ValidateSession", mock.Anything, "tok").Return(user, nil)
		m.On("HasPermission", mock.Anything, uint(3), models.PermissionModerateReviews).Return(false, nil)
		mw := NewAuthMiddleware(m, utils.NopLogger())
		app := newTestApp(m, mw.Authenticate(), mw.RequirePermission(models.PermissionModerateReviews))
		assert.Equal(t, fiber.StatusForbidden, doGet(t, app, "Bearer tok"))
	})

	t.Run("without authentication", func(t *testing.T) {
		m := &mockAuthFlow{}
		mw := NewAuthMiddleware(m, utils.NopLogger())
		app := newTestApp(m, mw.RequirePermission(models.PermissionModerateReviews))
		assert.Equal(t, fiber.StatusUnauthorized, doGet(t, app, ""))
	})
}

func TestUnauthorizedEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c fiber.Ctx) error { return unauthorized(c, "nope", "CODE") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Success bool            `json:"success"`
		Error   dto.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "CODE", body.Error.Code)
}
