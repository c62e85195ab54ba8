package repository

import (
	"context"

	"github.com/amirphl/business-registry/models"
	"gorm.io/gorm"
)

// BusinessSubscriptionRepositoryImpl implements BusinessSubscriptionRepository interface
type BusinessSubscriptionRepositoryImpl struct {
	*BaseRepository[models.BusinessSubscription, struct{}]
}

// NewBusinessSubscriptionRepository creates a new subscription repository
func NewBusinessSubscriptionRepository(db *gorm.DB) BusinessSubscriptionRepository {
	return &BusinessSubscriptionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BusinessSubscription, struct{}](db, nil),
	}
}

// ByBusiness returns the subscription row of a business, nil when it has none
func (r *BusinessSubscriptionRepositoryImpl) ByBusiness(ctx context.Context, businessID uint) (*models.BusinessSubscription, error) {
	return firstOrNil[models.BusinessSubscription](r.getDB(ctx).Where("business_id = ?", businessID), "business subscription")
}

// NewsletterSubscriberRepositoryImpl implements NewsletterSubscriberRepository interface
type NewsletterSubscriberRepositoryImpl struct {
	*BaseRepository[models.NewsletterSubscriber, models.NewsletterSubscriberFilter]
}

// NewNewsletterSubscriberRepository creates a new subscriber repository
func NewNewsletterSubscriberRepository(db *gorm.DB) NewsletterSubscriberRepository {
	return &NewsletterSubscriberRepositoryImpl{
		BaseRepository: NewBaseRepository[models.NewsletterSubscriber](db, applySubscriberFilter),
	}
}

func applySubscriberFilter(db *gorm.DB, filter models.NewsletterSubscriberFilter) *gorm.DB {
	if filter.BusinessID != nil {
		db = db.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	return db
}

// ByBusinessAndEmail returns the subscriber row in any status
func (r *NewsletterSubscriberRepositoryImpl) ByBusinessAndEmail(ctx context.Context, businessID uint, email string) (*models.NewsletterSubscriber, error) {
	return firstOrNil[models.NewsletterSubscriber](
		r.getDB(ctx).Where("business_id = ? AND email = ?", businessID, email),
		"newsletter subscriber",
	)
}

// NewsletterTemplateRepositoryImpl implements NewsletterTemplateRepository interface
type NewsletterTemplateRepositoryImpl struct {
	*BaseRepository[models.NewsletterTemplate, struct{}]
}

// NewNewsletterTemplateRepository creates a new template repository
func NewNewsletterTemplateRepository(db *gorm.DB) NewsletterTemplateRepository {
	return &NewsletterTemplateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.NewsletterTemplate, struct{}](db, nil),
	}
}

// ListByBusiness lists templates of a business by name
func (r *NewsletterTemplateRepositoryImpl) ListByBusiness(ctx context.Context, businessID uint) ([]*models.NewsletterTemplate, error) {
	return findAll[models.NewsletterTemplate](r.getDB(ctx).Where("business_id = ?", businessID).Order("name ASC"), "newsletter templates")
}

// NewsletterCampaignRepositoryImpl implements NewsletterCampaignRepository interface
type NewsletterCampaignRepositoryImpl struct {
	*BaseRepository[models.NewsletterCampaign, models.NewsletterCampaignFilter]
}

// NewNewsletterCampaignRepository creates a new campaign repository
func NewNewsletterCampaignRepository(db *gorm.DB) NewsletterCampaignRepository {
	return &NewsletterCampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.NewsletterCampaign](db, applyCampaignFilter),
	}
}

func applyCampaignFilter(db *gorm.DB, filter models.NewsletterCampaignFilter) *gorm.DB {
	if filter.BusinessID != nil {
		db = db.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.SentAfter != nil {
		db = db.Where("sent_at >= ?", *filter.SentAfter)
	}
	if filter.ScheduledBefore != nil {
		db = db.Where("scheduled_at <= ?", *filter.ScheduledBefore)
	}
	return db
}
