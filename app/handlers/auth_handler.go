package handlers

import (
	"strings"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Register(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Me(c fiber.Ctx) error
	UpdateMe(c fiber.Ctx) error
	ChangePassword(c fiber.Ctx) error
	ForgotPassword(c fiber.Ctx) error
	ResetPassword(c fiber.Ctx) error
	GrantPermission(c fiber.Ctx) error
	RevokePermission(c fiber.Ctx) error
	Captcha(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authFlow   businessflow.AuthFlow
	captchaSvc services.CaptchaService
	validator  *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow, captchaSvc services.CaptchaService) *AuthHandler {
	return &AuthHandler{
		authFlow:   authFlow,
		captchaSvc: captchaSvc,
		validator:  utils.NewValidator(),
	}
}

// Register creates a new account
// @Summary Register
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.UserDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.authFlow.Register(ctx, &req, clientMetadata(c))
	if err != nil {
		return flowError(c, err, "REGISTRATION_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Registration successful", user)
}

// Login authenticates with email and password
// @Summary Login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse}
// @Failure 401 {object} dto.APIResponse "Invalid credentials or account locked"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.authFlow.Authenticate(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsAccountLocked(err) {
			return ErrorResponse(c, fiber.StatusTooManyRequests, "Too many failed attempts, try again later", "ACCOUNT_LOCKED", nil)
		}
		return flowError(c, err, "LOGIN_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

func (h *AuthHandler) Logout(c fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return unauthorized(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.authFlow.Logout(ctx, token, clientMetadata(c)); err != nil {
		return flowError(c, err, "LOGOUT_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) Me(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.authFlow.GetProfile(ctx, userID)
	if err != nil {
		return flowError(c, err, "PROFILE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Profile retrieved", profile)
}

func (h *AuthHandler) UpdateMe(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.UpdateProfileRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := h.authFlow.UpdateProfile(ctx, userID, &req, clientMetadata(c))
	if err != nil {
		return flowError(c, err, "PROFILE_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Profile updated", profile)
}

func (h *AuthHandler) ChangePassword(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.ChangePasswordRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.authFlow.ChangePassword(ctx, userID, &req, clientMetadata(c)); err != nil {
		return flowError(c, err, "PASSWORD_CHANGE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Password changed", nil)
}

// ForgotPassword always answers with the same message
// @Summary Request password reset
// @Tags Authentication
// @Param request body dto.ForgotPasswordRequest true "Email"
// @Success 200 {object} dto.APIResponse{data=dto.ForgotPasswordResponse}
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.authFlow.InitiatePasswordReset(ctx, &req, clientMetadata(c))
	if err != nil {
		return flowError(c, err, "PASSWORD_RESET_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.authFlow.ResetPassword(ctx, &req, clientMetadata(c)); err != nil {
		return flowError(c, err, "PASSWORD_RESET_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Password has been reset", nil)
}

func (h *AuthHandler) GrantPermission(c fiber.Ctx) error {
	return h.changePermission(c, true)
}

func (h *AuthHandler) RevokePermission(c fiber.Ctx) error {
	return h.changePermission(c, false)
}

func (h *AuthHandler) changePermission(c fiber.Ctx, grant bool) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.PermissionRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if grant {
		if err := h.authFlow.GrantPermission(ctx, actorID, &req, clientMetadata(c)); err != nil {
			return flowError(c, err, "PERMISSION_GRANT_FAILED")
		}
		return SuccessResponse(c, fiber.StatusOK, "Permission granted", nil)
	}
	if err := h.authFlow.RevokePermission(ctx, actorID, &req, clientMetadata(c)); err != nil {
		return flowError(c, err, "PERMISSION_REVOKE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Permission revoked", nil)
}

// Captcha issues a rotate challenge for registration and complaint filing
func (h *AuthHandler) Captcha(c fiber.Ctx) error {
	if h.captchaSvc == nil {
		return ErrorResponse(c, fiber.StatusNotFound, "Captcha is disabled", "CAPTCHA_DISABLED", nil)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	challenge, err := h.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate captcha", "CAPTCHA_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Captcha generated", dto.CaptchaResponse{
		ID:          challenge.ID,
		MasterImage: challenge.MasterImageBase64,
		ThumbImage:  challenge.ThumbImageBase64,
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(c fiber.Ctx) string {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
