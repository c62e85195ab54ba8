package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthFlow handles accounts, sessions, password resets and permission grants
type AuthFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	Authenticate(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	// ValidateSession returns nil when the token does not resolve to a usable session
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string, metadata *ClientMetadata) error
	InitiatePasswordReset(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error
	ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest, metadata *ClientMetadata) error
	GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UserDTO, error)
	HasPermission(ctx context.Context, userID uint, permission string) (bool, error)
	GrantPermission(ctx context.Context, actorID uint, req *dto.PermissionRequest, metadata *ClientMetadata) error
	RevokePermission(ctx context.Context, actorID uint, req *dto.PermissionRequest, metadata *ClientMetadata) error
	CleanupExpired(ctx context.Context) (*CleanupResult, error)
}

// CleanupResult counts the rows purged by one cleanup sweep
type CleanupResult struct {
	Sessions      int64 `json:"sessions"`
	PasswordReset int64 `json:"password_resets"`
	LoginAttempts int64 `json:"login_attempts"`
}

const genericResetMessage = "If an account exists for this email, a reset link has been sent"

// AuthFlowImpl implements AuthFlow
type AuthFlowImpl struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.UserSessionRepository
	resetRepo       repository.PasswordResetRepository
	attemptRepo     repository.LoginAttemptRepository
	permissionRepo  repository.UserPermissionRepository
	auditRepo       repository.AuditLogRepository
	notificationSvc services.NotificationService
	captchaSvc      services.CaptchaService
	tx              repository.Transactor
	resetURL        string
	logger          *logrus.Logger
}

// NewAuthFlow creates a new auth flow instance. captchaSvc may be nil to disable the registration captcha.
func NewAuthFlow(
	userRepo repository.UserRepository,
	sessionRepo repository.UserSessionRepository,
	resetRepo repository.PasswordResetRepository,
	attemptRepo repository.LoginAttemptRepository,
	permissionRepo repository.UserPermissionRepository,
	auditRepo repository.AuditLogRepository,
	notificationSvc services.NotificationService,
	captchaSvc services.CaptchaService,
	tx repository.Transactor,
	resetURL string,
	logger *logrus.Logger,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		resetRepo:       resetRepo,
		attemptRepo:     attemptRepo,
		permissionRepo:  permissionRepo,
		auditRepo:       auditRepo,
		notificationSvc: notificationSvc,
		captchaSvc:      captchaSvc,
		tx:              tx,
		resetURL:        resetURL,
		logger:          logger,
	}
}

// Register creates a consumer or business account
func (af *AuthFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("REGISTER_VALIDATION_FAILED", "Registration validation failed", err)
	}
	if af.captchaSvc != nil && !af.captchaSvc.VerifyRotate(ctx, req.CaptchaID, req.CaptchaAngle) {
		return nil, NewBusinessError("REGISTER_VALIDATION_FAILED", "Registration validation failed", ErrInvalidCaptcha)
	}

	userType := models.UserTypeConsumer
	if req.UserType != "" {
		userType = models.UserType(req.UserType)
	}
	if !userType.Valid() || userType.IsStaff() {
		return nil, NewBusinessError("REGISTER_VALIDATION_FAILED", "Registration validation failed",
			validationErrorf("user_type %q cannot be self-assigned", req.UserType))
	}

	email := utils.NormalizeEmail(req.Email)

	user, err := runInTx(ctx, af.tx, func(ctx context.Context) (*models.User, error) {
		existing, err := af.userRepo.ByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrEmailAlreadyExists
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}

		now := utils.UTCNow()
		user := &models.User{
			Email:             email,
			PasswordHash:      string(hash),
			FirstName:         strings.TrimSpace(req.FirstName),
			LastName:          strings.TrimSpace(req.LastName),
			Phone:             req.Phone,
			UserType:          userType,
			Status:            models.UserStatusActive,
			VerificationLevel: models.VerificationLevelNone,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := af.userRepo.Save(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		errMsg := err.Error()
		af.audit(ctx, nil, models.AuditActionRegistered, "Registration failed for "+email, false, &errMsg, metadata, nil)
		return nil, NewBusinessError("REGISTER_FAILED", "Registration failed", err)
	}

	af.audit(ctx, &user.ID, models.AuditActionRegistered, fmt.Sprintf("User registered: %d", user.ID), true, nil, metadata, nil)

	out := ToUserDTO(*user)
	return &out, nil
}

// Authenticate verifies credentials and opens a session
func (af *AuthFlowImpl) Authenticate(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Login validation failed", err)
	}

	email := utils.NormalizeEmail(req.Email)
	now := utils.UTCNow()

	failures, err := af.attemptRepo.CountSince(ctx, email, now.Add(-utils.LoginLockoutWindow))
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if failures >= utils.MaxFailedLoginAttempts {
		errMsg := ErrAccountLocked.Error()
		af.audit(ctx, nil, models.AuditActionLoginLocked, "Login refused for locked account "+email, false, &errMsg, metadata, nil)
		return nil, NewBusinessError("ACCOUNT_LOCKED", "Account temporarily locked", ErrAccountLocked)
	}

	user, err := af.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	if user == nil || !user.Status.CanAuthenticate() ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		// Recorded outside any transaction so the attempt survives
		af.recordFailedAttempt(ctx, email, metadata)

		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		errMsg := ErrInvalidCredentials.Error()
		af.audit(ctx, userID, models.AuditActionLoginFailed, "Login failed for "+email, false, &errMsg, metadata, nil)
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrInvalidCredentials)
	}

	session, err := runInTx(ctx, af.tx, func(ctx context.Context) (*models.UserSession, error) {
		if err := af.attemptRepo.ClearForEmail(ctx, email); err != nil {
			return nil, err
		}

		session, err := af.createSession(ctx, user.ID, metadata)
		if err != nil {
			return nil, err
		}

		if err := af.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
			return nil, err
		}
		user.LastLoginAt = &now
		return session, nil
	})
	if err != nil {
		errMsg := err.Error()
		af.audit(ctx, &user.ID, models.AuditActionLoginFailed, "Session creation failed", false, &errMsg, metadata, nil)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	af.audit(ctx, &user.ID, models.AuditActionLoginSuccess, fmt.Sprintf("User logged in successfully: %d", user.ID), true, nil, metadata, nil)

	return &dto.LoginResponse{
		User:    ToUserDTO(*user),
		Session: ToSessionDTO(*session),
	}, nil
}

func (af *AuthFlowImpl) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	session, err := af.sessionRepo.ByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := utils.UTCNow()
	if session == nil || session.IsExpired(now) {
		return nil, nil
	}

	user, err := af.userRepo.ByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Status.CanAuthenticate() {
		return nil, nil
	}

	if err := af.sessionRepo.Extend(ctx, session.ID, now.Add(utils.SessionTTL), now); err != nil {
		return nil, err
	}

	return user, nil
}

func (af *AuthFlowImpl) Logout(ctx context.Context, token string, metadata *ClientMetadata) error {
	session, err := af.sessionRepo.ByToken(ctx, token)
	if err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if session == nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", ErrInvalidSession)
	}
	if err := af.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	af.audit(ctx, &session.UserID, models.AuditActionLogout, "User logged out", true, nil, metadata, nil)
	return nil
}

// InitiatePasswordReset answers identically whether or not the email belongs to an account
func (af *AuthFlowImpl) InitiatePasswordReset(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error) {
	resp := &dto.ForgotPasswordResponse{Message: genericResetMessage}

	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("FORGOT_PASSWORD_VALIDATION_FAILED", "Forgot password validation failed", err)
	}

	email := utils.NormalizeEmail(req.Email)
	user, err := af.userRepo.ByEmail(ctx, email)
	if err != nil {
		af.logger.WithError(err).WithField("email", email).Error("password reset lookup failed")
		return resp, nil
	}
	if user == nil || !user.Status.CanAuthenticate() {
		af.logger.WithField("email", email).Debug("password reset requested for unknown account")
		return resp, nil
	}

	reset, err := runInTx(ctx, af.tx, func(ctx context.Context) (*models.PasswordReset, error) {
		now := utils.UTCNow()
		if err := af.resetRepo.InvalidateForUser(ctx, user.ID, now); err != nil {
			return nil, err
		}

		token, err := generateSecureToken(utils.SessionTokenBytes)
		if err != nil {
			return nil, err
		}

		reset := &models.PasswordReset{
			UserID:    user.ID,
			Token:     token,
			ExpiresAt: now.Add(utils.PasswordResetTTL),
			CreatedAt: now,
		}
		if err := af.resetRepo.Save(ctx, reset); err != nil {
			return nil, err
		}
		return reset, nil
	})
	if err != nil {
		errMsg := err.Error()
		af.audit(ctx, &user.ID, models.AuditActionPasswordResetFailed, "Password reset token creation failed", false, &errMsg, metadata, nil)
		af.logger.WithError(err).WithField("user_id", user.ID).Error("password reset token creation failed")
		return resp, nil
	}

	link := af.resetURL + "?token=" + reset.Token
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in one hour and can be used once.\n\n%s\n",
		user.FirstName, link)
	if err := af.notificationSvc.SendEmail(user.Email, "Reset your password", body); err != nil {
		errMsg := fmt.Sprintf("reset token issued but email failed: %v", err)
		af.audit(ctx, &user.ID, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata, nil)
		return resp, nil
	}

	af.audit(ctx, &user.ID, models.AuditActionPasswordResetRequested, "Password reset link sent", true, nil, metadata, nil)
	return resp, nil
}

// ResetPassword consumes a reset token and signs the user out everywhere
func (af *AuthFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error {
	if err := validateRequest(req); err != nil {
		return NewBusinessError("RESET_PASSWORD_VALIDATION_FAILED", "Reset password validation failed", err)
	}

	var userID *uint
	_, err := runInTx(ctx, af.tx, func(ctx context.Context) (struct{}, error) {
		now := utils.UTCNow()
		reset, err := af.resetRepo.ByToken(ctx, req.Token)
		if err != nil {
			return struct{}{}, err
		}
		if reset == nil || !reset.Usable(now) {
			return struct{}{}, ErrInvalidOrExpiredToken
		}
		userID = &reset.UserID

		user, err := af.userRepo.ByID(ctx, reset.UserID)
		if err != nil {
			return struct{}{}, err
		}
		if user == nil {
			return struct{}{}, ErrInvalidOrExpiredToken
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return struct{}{}, fmt.Errorf("hash password: %w", err)
		}
		if err := af.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return struct{}{}, err
		}
		if err := af.resetRepo.MarkUsed(ctx, reset.ID, now); err != nil {
			return struct{}{}, err
		}
		if _, err := af.sessionRepo.DeleteByUser(ctx, user.ID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		errMsg := err.Error()
		af.audit(ctx, userID, models.AuditActionPasswordResetFailed, "Password reset failed", false, &errMsg, metadata, nil)
		return NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	}

	af.audit(ctx, userID, models.AuditActionPasswordResetCompleted, "Password reset completed", true, nil, metadata, nil)
	return nil
}

func (af *AuthFlowImpl) ChangePassword(ctx context.Context, userID uint, req *dto.ChangePasswordRequest, metadata *ClientMetadata) error {
	if err := validateRequest(req); err != nil {
		return NewBusinessError("CHANGE_PASSWORD_VALIDATION_FAILED", "Change password validation failed", err)
	}

	user, err := af.userRepo.ByID(ctx, userID)
	if err != nil {
		return NewBusinessError("CHANGE_PASSWORD_FAILED", "Change password failed", err)
	}
	if user == nil {
		return NewBusinessError("CHANGE_PASSWORD_FAILED", "Change password failed", ErrUserNotFound)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		errMsg := ErrIncorrectPassword.Error()
		af.audit(ctx, &userID, models.AuditActionPasswordChanged, "Password change refused", false, &errMsg, metadata, nil)
		return NewBusinessError("INCORRECT_PASSWORD", "Current password is incorrect", ErrIncorrectPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return NewBusinessError("CHANGE_PASSWORD_FAILED", "Change password failed", err)
	}
	if err := af.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return NewBusinessError("CHANGE_PASSWORD_FAILED", "Change password failed", err)
	}

	af.audit(ctx, &userID, models.AuditActionPasswordChanged, "Password changed", true, nil, metadata, nil)
	return nil
}

func (af *AuthFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error) {
	user, err := af.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Failed to load profile", err)
	}
	if user == nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Failed to load profile", ErrUserNotFound)
	}
	out := ToUserDTO(*user)
	return &out, nil
}

func (af *AuthFlowImpl) UpdateProfile(ctx context.Context, userID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UserDTO, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("UPDATE_PROFILE_VALIDATION_FAILED", "Profile validation failed", err)
	}

	user, err := af.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_PROFILE_FAILED", "Failed to update profile", err)
	}
	if user == nil {
		return nil, NewBusinessError("UPDATE_PROFILE_FAILED", "Failed to update profile", ErrUserNotFound)
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	user.UpdatedAt = utils.UTCNow()

	if err := af.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("UPDATE_PROFILE_FAILED", "Failed to update profile", err)
	}

	af.audit(ctx, &userID, models.AuditActionProfileUpdated, "Profile updated", true, nil, metadata, nil)
	out := ToUserDTO(*user)
	return &out, nil
}

// HasPermission is true for admins and for explicit grants
func (af *AuthFlowImpl) HasPermission(ctx context.Context, userID uint, permission string) (bool, error) {
	user, err := af.userRepo.ByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	if user.IsAdmin() {
		return true, nil
	}
	return af.permissionRepo.Has(ctx, userID, permission)
}

func (af *AuthFlowImpl) GrantPermission(ctx context.Context, actorID uint, req *dto.PermissionRequest, metadata *ClientMetadata) error {
	if err := validateRequest(req); err != nil {
		return NewBusinessError("GRANT_PERMISSION_VALIDATION_FAILED", "Permission validation failed", err)
	}
	if err := af.requireAdmin(ctx, actorID); err != nil {
		return NewBusinessError("GRANT_PERMISSION_FAILED", "Failed to grant permission", err)
	}

	target, err := af.userRepo.ByID(ctx, req.UserID)
	if err != nil {
		return NewBusinessError("GRANT_PERMISSION_FAILED", "Failed to grant permission", err)
	}
	if target == nil {
		return NewBusinessError("GRANT_PERMISSION_FAILED", "Failed to grant permission", ErrUserNotFound)
	}

	has, err := af.permissionRepo.Has(ctx, req.UserID, req.Permission)
	if err != nil {
		return NewBusinessError("GRANT_PERMISSION_FAILED", "Failed to grant permission", err)
	}
	if !has {
		grant := &models.UserPermission{
			UserID:     req.UserID,
			Permission: req.Permission,
			GrantedBy:  &actorID,
			CreatedAt:  utils.UTCNow(),
		}
		if err := af.permissionRepo.Save(ctx, grant); err != nil {
			return NewBusinessError("GRANT_PERMISSION_FAILED", "Failed to grant permission", err)
		}
	}

	af.audit(ctx, &actorID, models.AuditActionPermissionGranted,
		fmt.Sprintf("Granted %s to user %d", req.Permission, req.UserID), true, nil, metadata,
		map[string]any{"target_user_id": req.UserID, "permission": req.Permission})
	return nil
}

func (af *AuthFlowImpl) RevokePermission(ctx context.Context, actorID uint, req *dto.PermissionRequest, metadata *ClientMetadata) error {
	if err := validateRequest(req); err != nil {
		return NewBusinessError("REVOKE_PERMISSION_VALIDATION_FAILED", "Permission validation failed", err)
	}
	if err := af.requireAdmin(ctx, actorID); err != nil {
		return NewBusinessError("REVOKE_PERMISSION_FAILED", "Failed to revoke permission", err)
	}

	if _, err := af.permissionRepo.Revoke(ctx, req.UserID, req.Permission); err != nil {
		return NewBusinessError("REVOKE_PERMISSION_FAILED", "Failed to revoke permission", err)
	}

	af.audit(ctx, &actorID, models.AuditActionPermissionRevoked,
		fmt.Sprintf("Revoked %s from user %d", req.Permission, req.UserID), true, nil, metadata,
		map[string]any{"target_user_id": req.UserID, "permission": req.Permission})
	return nil
}

// CleanupExpired purges expired sessions, spent reset tokens and stale login attempts
func (af *AuthFlowImpl) CleanupExpired(ctx context.Context) (*CleanupResult, error) {
	now := utils.UTCNow()
	result := &CleanupResult{}

	var err error
	if result.Sessions, err = af.sessionRepo.DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("cleanup sessions: %w", err)
	}
	if result.PasswordReset, err = af.resetRepo.DeleteStale(ctx, now); err != nil {
		return nil, fmt.Errorf("cleanup password resets: %w", err)
	}
	if result.LoginAttempts, err = af.attemptRepo.DeleteOlderThan(ctx, now.Add(-utils.LoginLockoutWindow)); err != nil {
		return nil, fmt.Errorf("cleanup login attempts: %w", err)
	}

	af.logger.WithFields(logrus.Fields{
		"sessions":       result.Sessions,
		"password_reset": result.PasswordReset,
		"login_attempts": result.LoginAttempts,
	}).Info("auth cleanup completed")

	return result, nil
}

// Private helper methods

func (af *AuthFlowImpl) requireAdmin(ctx context.Context, userID uint) error {
	actor, err := af.userRepo.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if actor == nil || !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

func (af *AuthFlowImpl) createSession(ctx context.Context, userID uint, metadata *ClientMetadata) (*models.UserSession, error) {
	token, err := generateSecureToken(utils.SessionTokenBytes)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	session := &models.UserSession{
		UserID:         userID,
		Token:          token,
		IPAddress:      metadata.ipPtr(),
		UserAgent:      metadata.userAgentPtr(),
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(utils.SessionTTL),
	}
	if err := af.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (af *AuthFlowImpl) recordFailedAttempt(ctx context.Context, email string, metadata *ClientMetadata) {
	attempt := &models.LoginAttempt{
		Email:       email,
		IPAddress:   metadata.ipPtr(),
		AttemptedAt: utils.UTCNow(),
	}
	if err := af.attemptRepo.Save(ctx, attempt); err != nil {
		af.logger.WithError(err).WithField("email", email).Error("failed to record login attempt")
	}
}

func (af *AuthFlowImpl) audit(ctx context.Context, userID *uint, action, description string, success bool, errMsg *string, metadata *ClientMetadata, extra map[string]any) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		IPAddress:    metadata.ipPtr(),
		UserAgent:    metadata.userAgentPtr(),
		RequestID:    requestIDFromContext(ctx),
		Success:      utils.ToPtr(success),
		ErrorMessage: errMsg,
		CreatedAt:    time.Now().UTC(),
	}
	if metadata != nil && metadata.RequestID != "" && entry.RequestID == nil {
		entry.RequestID = utils.ToPtr(metadata.RequestID)
	}
	if len(extra) > 0 {
		if raw, err := json.Marshal(extra); err == nil {
			entry.Metadata = raw
		}
	}

	if err := af.auditRepo.Save(ctx, entry); err != nil {
		af.logger.WithError(err).WithField("action", action).Error("failed to write audit log")
	}
}
