package models

import (
	"database/sql/driver"
	"time"
)

// UserType classifies an account
type UserType string

const (
	UserTypeConsumer               UserType = "consumer"
	UserTypeBusinessOwner          UserType = "business_owner"
	UserTypeBusinessRepresentative UserType = "business_representative"
	UserTypeAdmin                  UserType = "admin"
	UserTypeModerator              UserType = "moderator"
)

func (t UserType) String() string { return string(t) }

// Valid checks if the user type is valid
func (t UserType) Valid() bool {
	switch t {
	case UserTypeConsumer, UserTypeBusinessOwner, UserTypeBusinessRepresentative,
		UserTypeAdmin, UserTypeModerator:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the type moderates content
func (t UserType) IsStaff() bool {
	return t == UserTypeAdmin || t == UserTypeModerator
}

func (t *UserType) Scan(value any) error        { return scanEnum(t, value) }
func (t UserType) Value() (driver.Value, error) { return enumValue(t, t.Valid()) }

// UserStatus represents the account status
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusPending   UserStatus = "pending"
	UserStatusVerified  UserStatus = "verified"
)

func (s UserStatus) String() string { return string(s) }

// Valid checks if the status is valid
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended,
		UserStatusPending, UserStatusVerified:
		return true
	default:
		return false
	}
}

// CanAuthenticate reports whether an account in this status may log in
func (s UserStatus) CanAuthenticate() bool {
	return s == UserStatusActive || s == UserStatusVerified
}

func (s *UserStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s UserStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// VerificationLevel is the trust gradient of a user
type VerificationLevel string

const (
	VerificationLevelNone  VerificationLevel = "none"
	VerificationLevelBasic VerificationLevel = "basic"
	VerificationLevelFull  VerificationLevel = "full"
)

// Valid checks if the verification level is valid
func (l VerificationLevel) Valid() bool {
	switch l {
	case VerificationLevelNone, VerificationLevelBasic, VerificationLevelFull:
		return true
	default:
		return false
	}
}

func (l *VerificationLevel) Scan(value any) error        { return scanEnum(l, value) }
func (l VerificationLevel) Value() (driver.Value, error) { return enumValue(l, l.Valid()) }

// User is an account of the registry
// Table: users
// Email is unique and stored lowercased
type User struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	Email             string            `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash      string            `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	FirstName         string            `gorm:"size:100;not null" json:"first_name"`
	LastName          string            `gorm:"size:100;not null" json:"last_name"`
	Phone             *string           `gorm:"size:30" json:"phone,omitempty"`
	UserType          UserType          `gorm:"type:varchar(32);not null;default:'consumer';index:idx_users_user_type" json:"user_type"`
	Status            UserStatus        `gorm:"type:varchar(32);not null;default:'active';index:idx_users_status" json:"status"`
	VerificationLevel VerificationLevel `gorm:"type:varchar(16);not null;default:'none'" json:"verification_level"`
	LastLoginAt       *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt         time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user is an administrator
func (u *User) IsAdmin() bool {
	return u.UserType == UserTypeAdmin
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID       *uint
	Email    *string
	UserType *UserType
	Status   *UserStatus
}

// UserSession is a login session identified by an opaque random token
type UserSession struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index:idx_sessions_user_id" json:"user_id"`
	Token          string    `gorm:"size:128;not null;uniqueIndex:uk_sessions_token" json:"-"` // Never serialize token
	IPAddress      *string   `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent      *string   `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	LastActivityAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"last_activity_at"`
	ExpiresAt      time.Time `gorm:"not null;index:idx_sessions_expires_at" json:"expires_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

func (s *UserSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PasswordReset is a single-use reset token
type PasswordReset struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_password_resets_user_id" json:"user_id"`
	Token     string     `gorm:"size:128;not null;uniqueIndex:uk_password_resets_token" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PasswordReset) TableName() string {
	return "password_resets"
}

// Usable reports whether the token is unused and unexpired
func (p *PasswordReset) Usable(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}

// LoginAttempt records one failed authentication for lockout accounting
type LoginAttempt struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"size:255;not null;index:idx_login_attempts_email" json:"email"`
	IPAddress   *string   `gorm:"size:64" json:"ip_address,omitempty"`
	AttemptedAt time.Time `gorm:"not null;index:idx_login_attempts_attempted_at" json:"attempted_at"`
}

func (LoginAttempt) TableName() string {
	return "login_attempts"
}

// UserPermission is an explicit permission grant
type UserPermission struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:uk_user_permissions" json:"user_id"`
	Permission string    `gorm:"size:100;not null;uniqueIndex:uk_user_permissions" json:"permission"`
	GrantedBy  *uint     `json:"granted_by,omitempty"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

// Permission names checked by the flows
const (
	PermissionModerateReviews     = "reviews.moderate"
	PermissionManageComplaints    = "complaints.manage"
	PermissionReviewAccreditation = "accreditation.review"
	PermissionManageBusinesses    = "businesses.manage"
	PermissionExportReports       = "reports.export"
)
