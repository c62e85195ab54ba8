package dto

import "time"

// RegisterRequest represents the request payload for account registration
type RegisterRequest struct {
	Email        string  `json:"email" validate:"required,email,max=255" example:"jane@example.com"`
	Password     string  `json:"password" validate:"required,min=8,max=100,password_strength" example:"SecurePass123!"`
	FirstName    string  `json:"first_name" validate:"required,min=1,max=100" example:"Jane"`
	LastName     string  `json:"last_name" validate:"required,min=1,max=100" example:"Doe"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,phone_format" example:"+15551234567"`
	UserType     string  `json:"user_type,omitempty" validate:"omitempty,oneof=consumer business_owner business_representative" example:"consumer"`
	CaptchaID    string  `json:"captcha_id,omitempty" example:"6f1c..."`
	CaptchaAngle float64 `json:"captcha_angle,omitempty" example:"127"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"jane@example.com"`
	Password string `json:"password" validate:"required,max=100" example:"SecurePass123!"`
}

// UserDTO is the public view of an account. It never carries the password hash.
type UserDTO struct {
	ID                uint       `json:"id" example:"42"`
	Email             string     `json:"email" example:"jane@example.com"`
	FirstName         string     `json:"first_name" example:"Jane"`
	LastName          string     `json:"last_name" example:"Doe"`
	Phone             *string    `json:"phone,omitempty"`
	UserType          string     `json:"user_type" example:"consumer"`
	Status            string     `json:"status" example:"active"`
	VerificationLevel string     `json:"verification_level" example:"none"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// SessionDTO carries the opaque bearer token of a login session
type SessionDTO struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in" example:"2592000"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	User    UserDTO    `json:"user"`
	Session SessionDTO `json:"session"`
}

// ForgotPasswordRequest represents the request to initiate password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"jane@example.com"`
}

// ForgotPasswordResponse is identical whether or not the account exists
type ForgotPasswordResponse struct {
	Message string `json:"message" example:"If an account exists for this email, a reset link has been sent"`
}

// ResetPasswordRequest represents the request to reset a password with an emailed token
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required,min=16,max=128"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,password_strength" example:"NewSecurePass123!"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword" example:"NewSecurePass123!"`
}

// ChangePasswordRequest represents an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=100"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,password_strength"`
}

// UpdateProfileRequest patches the caller's own account
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,phone_format"`
}

// PermissionRequest grants or revokes one permission
type PermissionRequest struct {
	UserID     uint   `json:"user_id" validate:"required" example:"42"`
	Permission string `json:"permission" validate:"required,max=100" example:"reviews.moderate"`
}

// CaptchaResponse is a rotate captcha challenge
type CaptchaResponse struct {
	ID          string `json:"id"`
	MasterImage string `json:"master_image"`
	ThumbImage  string `json:"thumb_image"`
}
