package models

import (
	"database/sql/driver"
	"time"
)

// SubscriptionTier is a plan level gating newsletter and communication features
type SubscriptionTier string

const (
	SubscriptionTierFree         SubscriptionTier = "free"
	SubscriptionTierBasic        SubscriptionTier = "basic"
	SubscriptionTierProfessional SubscriptionTier = "professional"
	SubscriptionTierEnterprise   SubscriptionTier = "enterprise"
)

func (t SubscriptionTier) String() string { return string(t) }

// Valid checks if the tier is valid
func (t SubscriptionTier) Valid() bool {
	switch t {
	case SubscriptionTierFree, SubscriptionTierBasic, SubscriptionTierProfessional, SubscriptionTierEnterprise:
		return true
	default:
		return false
	}
}

// IsPaid reports whether the tier is billed
func (t SubscriptionTier) IsPaid() bool {
	return t.Valid() && t != SubscriptionTierFree
}

func (t *SubscriptionTier) Scan(value any) error        { return scanEnum(t, value) }
func (t SubscriptionTier) Value() (driver.Value, error) { return enumValue(t, t.Valid()) }

// TierFeatures are the limits and flags of a tier. -1 means unlimited.
type TierFeatures struct {
	Tier                   SubscriptionTier `json:"tier"`
	NewsletterSubscribers  int              `json:"newsletter_subscribers"`
	MonthlyNewsletters     int              `json:"monthly_newsletters"`
	Analytics              bool             `json:"analytics"`
	LiveChat               bool             `json:"live_chat"`
	PrioritySupport        bool             `json:"priority_support"`
	CustomBranding         bool             `json:"custom_branding"`
	NewsletterTemplates    int              `json:"newsletter_templates"`
	ReviewResponseInsights bool             `json:"review_response_insights"`
}

var tierFeatures = map[SubscriptionTier]TierFeatures{
	SubscriptionTierFree: {
		Tier: SubscriptionTierFree, NewsletterSubscribers: 100, MonthlyNewsletters: 2,
		NewsletterTemplates: 1,
	},
	SubscriptionTierBasic: {
		Tier: SubscriptionTierBasic, NewsletterSubscribers: 1000, MonthlyNewsletters: 5,
		Analytics: true, NewsletterTemplates: 5,
	},
	SubscriptionTierProfessional: {
		Tier: SubscriptionTierProfessional, NewsletterSubscribers: 10000, MonthlyNewsletters: 20,
		Analytics: true, LiveChat: true, PrioritySupport: true, NewsletterTemplates: 25,
		ReviewResponseInsights: true,
	},
	SubscriptionTierEnterprise: {
		Tier: SubscriptionTierEnterprise, NewsletterSubscribers: -1, MonthlyNewsletters: -1,
		Analytics: true, LiveChat: true, PrioritySupport: true, CustomBranding: true,
		NewsletterTemplates: -1, ReviewResponseInsights: true,
	},
}

// Features returns the feature table row of the tier. Unknown tiers get free.
func (t SubscriptionTier) Features() TierFeatures {
	if f, ok := tierFeatures[t]; ok {
		return f
	}
	return tierFeatures[SubscriptionTierFree]
}

// WithinLimit reports whether used is still below limit, honouring -1
func WithinLimit(limit int, used int64) bool {
	return limit < 0 || used < int64(limit)
}

// SubscriptionStatus is the lifecycle state of a business subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Valid checks if the status is valid
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusInactive, SubscriptionStatusSuspended,
		SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	default:
		return false
	}
}

func (s *SubscriptionStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s SubscriptionStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// BusinessSubscription is the plan of one business
// Table: business_subscriptions
type BusinessSubscription struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	BusinessID   uint               `gorm:"not null;uniqueIndex:uk_business_subscriptions_business_id" json:"business_id"`
	Tier         SubscriptionTier   `gorm:"type:varchar(32);not null;default:'free'" json:"tier"`
	Status       SubscriptionStatus `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	BillingCycle string             `gorm:"size:16;not null;default:'yearly'" json:"billing_cycle"`
	AutoRenew    bool               `gorm:"not null;default:false" json:"auto_renew"`
	StartDate    time.Time          `gorm:"not null" json:"start_date"`
	EndDate      *time.Time         `json:"end_date,omitempty"`
	CreatedAt    time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BusinessSubscription) TableName() string {
	return "business_subscriptions"
}

// EffectiveTier is the tier whose features apply now. Inactive plans fall back to free.
func (s *BusinessSubscription) EffectiveTier(now time.Time) SubscriptionTier {
	if s == nil || s.Status != SubscriptionStatusActive {
		return SubscriptionTierFree
	}
	if s.EndDate != nil && !now.Before(*s.EndDate) {
		return SubscriptionTierFree
	}
	return s.Tier
}

// SubscriberStatus is the state of a newsletter subscriber
type SubscriberStatus string

const (
	SubscriberStatusActive       SubscriberStatus = "active"
	SubscriberStatusUnsubscribed SubscriberStatus = "unsubscribed"
	SubscriberStatusBounced      SubscriberStatus = "bounced"
)

// Valid checks if the status is valid
func (s SubscriberStatus) Valid() bool {
	switch s {
	case SubscriberStatusActive, SubscriberStatusUnsubscribed, SubscriberStatusBounced:
		return true
	default:
		return false
	}
}

func (s *SubscriberStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s SubscriberStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// NewsletterSubscriber is an email address subscribed to a business newsletter
// Unique (business_id, email)
type NewsletterSubscriber struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	BusinessID     uint             `gorm:"not null;uniqueIndex:uk_newsletter_subscribers_business_email" json:"business_id"`
	Email          string           `gorm:"size:255;not null;uniqueIndex:uk_newsletter_subscribers_business_email" json:"email"`
	Name           *string          `gorm:"size:255" json:"name,omitempty"`
	Status         SubscriberStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_newsletter_subscribers_status" json:"status"`
	SubscribedAt   time.Time        `gorm:"not null" json:"subscribed_at"`
	UnsubscribedAt *time.Time       `json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (NewsletterSubscriber) TableName() string {
	return "newsletter_subscribers"
}

// NewsletterSubscriberFilter represents filter criteria for subscriber queries
type NewsletterSubscriberFilter struct {
	BusinessID *uint
	Email      *string
	Status     *SubscriberStatus
}

// NewsletterTemplate is a reusable newsletter layout owned by a business
type NewsletterTemplate struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID uint      `gorm:"not null;index:idx_newsletter_templates_business_id" json:"business_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Subject    string    `gorm:"size:255;not null" json:"subject"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (NewsletterTemplate) TableName() string {
	return "newsletter_templates"
}

// CampaignStatus is the delivery state of a newsletter campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusSent      CampaignStatus = "sent"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:     {CampaignStatusScheduled, CampaignStatusSending, CampaignStatusCancelled},
	CampaignStatusScheduled: {CampaignStatusSending, CampaignStatusCancelled, CampaignStatusDraft},
	CampaignStatusSending:   {CampaignStatusSent, CampaignStatusDraft, CampaignStatusScheduled},
}

func (s CampaignStatus) String() string { return string(s) }

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusSending,
		CampaignStatusSent, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether target is reachable from s
func (s CampaignStatus) CanTransitionTo(target CampaignStatus) bool {
	for _, next := range campaignTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s *CampaignStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s CampaignStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// NewsletterCampaign is one newsletter send
// Table: newsletter_campaigns
type NewsletterCampaign struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	BusinessID     uint           `gorm:"not null;index:idx_newsletter_campaigns_business_id" json:"business_id"`
	TemplateID     *uint          `json:"template_id,omitempty"`
	Subject        string         `gorm:"size:255;not null" json:"subject"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Status         CampaignStatus `gorm:"type:varchar(16);not null;default:'draft';index:idx_newsletter_campaigns_status" json:"status"`
	ScheduledAt    *time.Time     `gorm:"index:idx_newsletter_campaigns_scheduled_at" json:"scheduled_at,omitempty"`
	SentAt         *time.Time     `gorm:"index:idx_newsletter_campaigns_sent_at" json:"sent_at,omitempty"`
	RecipientCount int64          `gorm:"not null;default:0" json:"recipient_count"`
	CreatedBy      uint           `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (NewsletterCampaign) TableName() string {
	return "newsletter_campaigns"
}

// NewsletterCampaignFilter represents filter criteria for campaign queries
type NewsletterCampaignFilter struct {
	BusinessID      *uint
	Status          *CampaignStatus
	SentAfter       *time.Time
	ScheduledBefore *time.Time
}
