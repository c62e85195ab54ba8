package utils

import (
	"time"
)

// Session and credential constants
const (
	// SessionTTL is the sliding lifetime of a login session (30 days)
	SessionTTL = 30 * 24 * time.Hour

	// SessionTokenBytes is the entropy of a session token (256 bits)
	SessionTokenBytes = 32

	// PasswordResetTTL is the lifetime of a password reset token (1 hour)
	PasswordResetTTL = time.Hour

	// LoginLockoutWindow is the window in which failed attempts are counted
	LoginLockoutWindow = 15 * time.Minute

	// MaxFailedLoginAttempts locks the account once reached inside the window
	MaxFailedLoginAttempts = 5

	// MinPasswordLength is the minimum accepted password length
	MinPasswordLength = 8
)

// Accreditation constants
const (
	// AccreditationValidity is how long an approved accreditation lasts
	AccreditationValidity = 365 * 24 * time.Hour

	// AccreditationRenewalWindowDays is how many days before expiry renewal opens
	AccreditationRenewalWindowDays = 30

	// AccreditationReminderDays drives the expiring-soon reminders
	AccreditationReminderDays = 30
)

// Upload constants
const (
	// MaxDocumentSize bounds documents and complaint evidence (10MB)
	MaxDocumentSize = int64(10 * 1024 * 1024)

	// MaxReviewMediaSize bounds review photos (10MB)
	MaxReviewMediaSize = int64(10 * 1024 * 1024)

	// UploadRoot is the relative directory holding stored files
	UploadRoot = "data/uploads"
)

// Pagination constants
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Subscription constants
const (
	// PaidSubscriptionTerm is the term granted to paid tiers on creation
	PaidSubscriptionTerm = 365 * 24 * time.Hour

	// Unlimited marks a tier limit without a cap
	Unlimited = -1

	// UnsubscribeTokenTTL is the lifetime of newsletter unsubscribe links
	UnsubscribeTokenTTL = 90 * 24 * time.Hour
)
