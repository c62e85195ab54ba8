package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/business-registry/models"
	"gorm.io/gorm"
)

// UserSessionRepositoryImpl implements UserSessionRepository interface
type UserSessionRepositoryImpl struct {
	*BaseRepository[models.UserSession, struct{}]
}

// NewUserSessionRepository creates a new session repository
func NewUserSessionRepository(db *gorm.DB) UserSessionRepository {
	return &UserSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserSession, struct{}](db, nil),
	}
}

// ByToken retrieves a session by token regardless of expiry
func (r *UserSessionRepositoryImpl) ByToken(ctx context.Context, token string) (*models.UserSession, error) {
	return firstOrNil[models.UserSession](r.getDB(ctx).Where("token = ?", token), "session by token")
}

// Extend slides the expiry of a session
func (r *UserSessionRepositoryImpl) Extend(ctx context.Context, sessionID uint, expiresAt, lastActivity time.Time) error {
	err := r.getDB(ctx).Model(&models.UserSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{"expires_at": expiresAt, "last_activity_at": lastActivity}).Error
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

// DeleteByToken removes one session
func (r *UserSessionRepositoryImpl) DeleteByToken(ctx context.Context, token string) error {
	if err := r.getDB(ctx).Where("token = ?", token).Delete(&models.UserSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUser removes every session of a user
func (r *UserSessionRepositoryImpl) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.getDB(ctx).Where("user_id = ?", userID).Delete(&models.UserSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteExpired purges sessions whose expiry has passed
func (r *UserSessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.getDB(ctx).Where("expires_at <= ?", now).Delete(&models.UserSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PasswordResetRepositoryImpl implements PasswordResetRepository interface
type PasswordResetRepositoryImpl struct {
	*BaseRepository[models.PasswordReset, struct{}]
}

// NewPasswordResetRepository creates a new password reset repository
func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &PasswordResetRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PasswordReset, struct{}](db, nil),
	}
}

// ByToken retrieves a reset token row
func (r *PasswordResetRepositoryImpl) ByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	return firstOrNil[models.PasswordReset](r.getDB(ctx).Where("token = ?", token), "password reset by token")
}

// MarkUsed consumes a reset token
func (r *PasswordResetRepositoryImpl) MarkUsed(ctx context.Context, id uint, at time.Time) error {
	err := r.getDB(ctx).Model(&models.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	return nil
}

// InvalidateForUser consumes every outstanding token of a user
func (r *PasswordResetRepositoryImpl) InvalidateForUser(ctx context.Context, userID uint, at time.Time) error {
	err := r.getDB(ctx).Model(&models.PasswordReset{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to invalidate reset tokens: %w", err)
	}
	return nil
}

// DeleteStale purges expired or consumed tokens
func (r *PasswordResetRepositoryImpl) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.getDB(ctx).Where("expires_at <= ? OR used_at IS NOT NULL", now).Delete(&models.PasswordReset{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete stale reset tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LoginAttemptRepositoryImpl implements LoginAttemptRepository interface
type LoginAttemptRepositoryImpl struct {
	*BaseRepository[models.LoginAttempt, struct{}]
}

// NewLoginAttemptRepository creates a new login attempt repository
func NewLoginAttemptRepository(db *gorm.DB) LoginAttemptRepository {
	return &LoginAttemptRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LoginAttempt, struct{}](db, nil),
	}
}

// CountSince counts failed attempts for an email since the given instant
func (r *LoginAttemptRepositoryImpl) CountSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.LoginAttempt{}).
		Where("email = ? AND attempted_at >= ?", email, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}
	return count, nil
}

// ClearForEmail resets the failed attempt counter of an email
func (r *LoginAttemptRepositoryImpl) ClearForEmail(ctx context.Context, email string) error {
	if err := r.getDB(ctx).Where("email = ?", email).Delete(&models.LoginAttempt{}).Error; err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// DeleteOlderThan purges attempts outside any lockout window
func (r *LoginAttemptRepositoryImpl) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.getDB(ctx).Where("attempted_at < ?", before).Delete(&models.LoginAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete old login attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UserPermissionRepositoryImpl implements UserPermissionRepository interface
type UserPermissionRepositoryImpl struct {
	*BaseRepository[models.UserPermission, struct{}]
}

// NewUserPermissionRepository creates a new permission repository
func NewUserPermissionRepository(db *gorm.DB) UserPermissionRepository {
	return &UserPermissionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserPermission, struct{}](db, nil),
	}
}

// Has reports whether the user holds an explicit grant
func (r *UserPermissionRepositoryImpl) Has(ctx context.Context, userID uint, permission string) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.UserPermission{}).
		Where("user_id = ? AND permission = ?", userID, permission).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return count > 0, nil
}

// Revoke removes a grant
func (r *UserPermissionRepositoryImpl) Revoke(ctx context.Context, userID uint, permission string) (int64, error) {
	res := r.getDB(ctx).Where("user_id = ? AND permission = ?", userID, permission).Delete(&models.UserPermission{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to revoke permission: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListByUser lists grants of a user
func (r *UserPermissionRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.UserPermission, error) {
	return findAll[models.UserPermission](r.getDB(ctx).Where("user_id = ?", userID).Order("permission ASC"), "permissions")
}
