// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/handlers"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/models"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

const sessionLookupTimeout = 5 * time.Second

// AuthMiddleware resolves bearer session tokens to users
type AuthMiddleware struct {
	authFlow businessflow.AuthFlow
	logger   *logrus.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authFlow businessflow.AuthFlow, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authFlow: authFlow,
		logger:   logger,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate rejects requests without a live session
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		user, err := m.resolve(c, token)
		if err != nil {
			m.logger.WithError(err).WithField("path", c.Path()).Error("Session lookup failed")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Session validation failed",
				Error:   dto.ErrorDetail{Code: "SESSION_VALIDATION_FAILED"},
			})
		}
		if user == nil {
			return unauthorized(c, "Session is invalid or expired", "SESSION_INVALID")
		}

		setUser(c, user)
		return c.Next()
	}
}

// OptionalAuth attaches the user when a valid session is presented and never rejects
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return c.Next()
		}

		user, err := m.resolve(c, token)
		if err != nil {
			m.logger.WithError(err).Debug("Optional session lookup failed")
			return c.Next()
		}
		if user != nil {
			setUser(c, user)
		}
		return c.Next()
	}
}

// RequirePermission must run after Authenticate
func (m *AuthMiddleware) RequirePermission(permission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, ok := GetUserIDFromContext(c)
		if !ok || userID == 0 {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}

		ctx, cancel := context.WithTimeout(c.Context(), sessionLookupTimeout)
		defer cancel()

		allowed, err := m.authFlow.HasPermission(ctx, userID, permission)
		if err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":    userID,
				"permission": permission,
			}).Error("Permission lookup failed")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Permission check failed",
				Error:   dto.ErrorDetail{Code: "PERMISSION_CHECK_FAILED"},
			})
		}
		if !allowed {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "You do not have permission to perform this action",
				Error:   dto.ErrorDetail{Code: "PERMISSION_DENIED", Details: permission},
			})
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) resolve(c fiber.Ctx, token string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(c.Context(), sessionLookupTimeout)
	defer cancel()
	return m.authFlow.ValidateSession(ctx, token)
}

func setUser(c fiber.Ctx, user *models.User) {
	c.Locals(handlers.LocalUserID, user.ID)
	c.Locals(handlers.LocalUser, user)
}

// GetUserIDFromContext extracts the authenticated user ID
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals(handlers.LocalUserID).(uint)
	return userID, ok
}

// GetUserFromContext extracts the authenticated user
func GetUserFromContext(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(handlers.LocalUser).(*models.User)
	return user, ok
}
