// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/business-registry/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// UserSessionRepository defines operations for login sessions
type UserSessionRepository interface {
	Save(ctx context.Context, session *models.UserSession) error
	ByToken(ctx context.Context, token string) (*models.UserSession, error)
	Extend(ctx context.Context, sessionID uint, expiresAt, lastActivity time.Time) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PasswordResetRepository defines operations for password reset tokens
type PasswordResetRepository interface {
	Save(ctx context.Context, reset *models.PasswordReset) error
	ByToken(ctx context.Context, token string) (*models.PasswordReset, error)
	MarkUsed(ctx context.Context, id uint, at time.Time) error
	InvalidateForUser(ctx context.Context, userID uint, at time.Time) error
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

// LoginAttemptRepository defines operations for failed login accounting
type LoginAttemptRepository interface {
	Save(ctx context.Context, attempt *models.LoginAttempt) error
	CountSince(ctx context.Context, email string, since time.Time) (int64, error)
	ClearForEmail(ctx context.Context, email string) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// UserPermissionRepository defines operations for explicit permission grants
type UserPermissionRepository interface {
	Save(ctx context.Context, permission *models.UserPermission) error
	Has(ctx context.Context, userID uint, permission string) (bool, error)
	Revoke(ctx context.Context, userID uint, permission string) (int64, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.UserPermission, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
}

// BusinessProfileRepository defines operations for business profiles
type BusinessProfileRepository interface {
	Repository[models.BusinessProfile, models.BusinessProfileFilter]
	ByBusinessID(ctx context.Context, businessID string) (*models.BusinessProfile, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	UpdateStatus(ctx context.Context, id uint, status models.BusinessStatus) error
	UpdateAccreditationLevel(ctx context.Context, id uint, level models.AccreditationLevel) error
	// RecomputeRating rewrites rating and total_reviews from approved reviews in one statement
	RecomputeRating(ctx context.Context, id uint) error
}

// BusinessLocationRepository defines operations for business locations
type BusinessLocationRepository interface {
	ByID(ctx context.Context, id uint) (*models.BusinessLocation, error)
	Save(ctx context.Context, location *models.BusinessLocation) error
	Update(ctx context.Context, location *models.BusinessLocation) error
	Delete(ctx context.Context, id uint) error
	ListByBusiness(ctx context.Context, businessID uint) ([]*models.BusinessLocation, error)
	SetPrimary(ctx context.Context, businessID, locationID uint) error
}

// BusinessDocumentRepository defines operations for business documents
type BusinessDocumentRepository interface {
	ByID(ctx context.Context, id uint) (*models.BusinessDocument, error)
	Save(ctx context.Context, document *models.BusinessDocument) error
	Update(ctx context.Context, document *models.BusinessDocument) error
	ListByBusiness(ctx context.Context, businessID uint) ([]*models.BusinessDocument, error)
}

// BusinessCategoryRepository defines operations for categories and their assignments
type BusinessCategoryRepository interface {
	List(ctx context.Context) ([]*models.BusinessCategory, error)
	ByIDs(ctx context.Context, ids []uint) ([]*models.BusinessCategory, error)
	ListByBusiness(ctx context.Context, businessID uint) ([]*models.BusinessCategory, error)
	ReplaceAssignments(ctx context.Context, businessID uint, categoryIDs []uint) error
}

// SearchHistoryRepository defines operations for search analytics
type SearchHistoryRepository interface {
	Save(ctx context.Context, entry *models.SearchHistory) error
}

// AccreditationRepository defines operations for accreditation records
type AccreditationRepository interface {
	Repository[models.Accreditation, models.AccreditationFilter]
	LatestByBusiness(ctx context.Context, businessID uint) (*models.Accreditation, error)
}

// AccreditationHistoryRepository defines operations for the append-only status log
type AccreditationHistoryRepository interface {
	Save(ctx context.Context, entry *models.AccreditationHistory) error
	ListByAccreditation(ctx context.Context, accreditationID uint) ([]*models.AccreditationHistory, error)
}

// ReviewRepository defines operations for reviews
type ReviewRepository interface {
	Repository[models.Review, models.ReviewFilter]
	ByUserAndBusiness(ctx context.Context, userID, businessID uint) (*models.Review, error)
	SetVoteCounts(ctx context.Context, reviewID uint, helpful, notHelpful int64) error
	RatingDistribution(ctx context.Context, businessID uint) (models.RatingDistribution, error)
	// ResponseStats returns approved review count and how many of those have a response
	ResponseStats(ctx context.Context, businessID uint) (approved int64, responded int64, err error)
}

// ReviewResponseRepository defines operations for business replies
type ReviewResponseRepository interface {
	Save(ctx context.Context, response *models.ReviewResponse) error
	ByReviewID(ctx context.Context, reviewID uint) (*models.ReviewResponse, error)
}

// ReviewVoteRepository defines operations for helpfulness votes
type ReviewVoteRepository interface {
	Save(ctx context.Context, vote *models.ReviewVote) error
	Update(ctx context.Context, vote *models.ReviewVote) error
	Delete(ctx context.Context, id uint) error
	ByReviewAndUser(ctx context.Context, reviewID, userID uint) (*models.ReviewVote, error)
	CountByType(ctx context.Context, reviewID uint) (helpful int64, notHelpful int64, err error)
}

// ReviewMediaRepository defines operations for review attachments
type ReviewMediaRepository interface {
	ByID(ctx context.Context, id uint) (*models.ReviewMedia, error)
	Save(ctx context.Context, media *models.ReviewMedia) error
	ListByReview(ctx context.Context, reviewID uint) ([]*models.ReviewMedia, error)
}

// ComplaintRepository defines operations for complaints
type ComplaintRepository interface {
	Repository[models.Complaint, models.ComplaintFilter]
	ByComplaintID(ctx context.Context, complaintID string) (*models.Complaint, error)
	Statistics(ctx context.Context, businessID *uint) (*models.ComplaintStatistics, error)
}

// ComplaintThreadRepository defines operations for complaint threads
type ComplaintThreadRepository interface {
	Save(ctx context.Context, entry *models.ComplaintThread) error
	ListByComplaint(ctx context.Context, complaintID uint, includeInternal bool) ([]*models.ComplaintThread, error)
}

// ComplaintEvidenceRepository defines operations for complaint attachments
type ComplaintEvidenceRepository interface {
	Save(ctx context.Context, evidence *models.ComplaintEvidence) error
	ListByComplaint(ctx context.Context, complaintID uint) ([]*models.ComplaintEvidence, error)
}

// BusinessSubscriptionRepository defines operations for business plans
type BusinessSubscriptionRepository interface {
	ByBusiness(ctx context.Context, businessID uint) (*models.BusinessSubscription, error)
	Save(ctx context.Context, subscription *models.BusinessSubscription) error
	Update(ctx context.Context, subscription *models.BusinessSubscription) error
}

// NewsletterSubscriberRepository defines operations for newsletter subscribers
type NewsletterSubscriberRepository interface {
	Repository[models.NewsletterSubscriber, models.NewsletterSubscriberFilter]
	ByBusinessAndEmail(ctx context.Context, businessID uint, email string) (*models.NewsletterSubscriber, error)
}

// NewsletterTemplateRepository defines operations for newsletter templates
type NewsletterTemplateRepository interface {
	ByID(ctx context.Context, id uint) (*models.NewsletterTemplate, error)
	Save(ctx context.Context, template *models.NewsletterTemplate) error
	Update(ctx context.Context, template *models.NewsletterTemplate) error
	Delete(ctx context.Context, id uint) error
	ListByBusiness(ctx context.Context, businessID uint) ([]*models.NewsletterTemplate, error)
}

// NewsletterCampaignRepository defines operations for newsletter campaigns
type NewsletterCampaignRepository interface {
	Repository[models.NewsletterCampaign, models.NewsletterCampaignFilter]
}

// MessageRepository defines operations for direct messages
type MessageRepository interface {
	Repository[models.Message, models.MessageFilter]
	MarkRead(ctx context.Context, id uint, at time.Time) error
}

// NotificationRepository defines operations for in-app notifications
type NotificationRepository interface {
	Repository[models.Notification, models.NotificationFilter]
	MarkRead(ctx context.Context, id uint, at time.Time) error
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
}

// ChatSessionRepository defines operations for live chat sessions
type ChatSessionRepository interface {
	ByID(ctx context.Context, id uint) (*models.ChatSession, error)
	Save(ctx context.Context, session *models.ChatSession) error
	Update(ctx context.Context, session *models.ChatSession) error
	OpenFor(ctx context.Context, businessID, userID uint) (*models.ChatSession, error)
	TouchActivity(ctx context.Context, id uint, at time.Time) error
}

// ChatMessageRepository defines operations for chat lines
type ChatMessageRepository interface {
	Save(ctx context.Context, message *models.ChatMessage) error
	ListBySession(ctx context.Context, sessionID uint, limit, offset int) ([]*models.ChatMessage, error)
}
