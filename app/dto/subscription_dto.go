package dto

import (
	"time"

	"github.com/amirphl/business-registry/models"
)

// UpdateSubscriptionRequest upserts a business plan
type UpdateSubscriptionRequest struct {
	Tier         string `json:"tier" validate:"required" example:"professional"`
	BillingCycle string `json:"billing_cycle,omitempty" validate:"omitempty,oneof=monthly yearly" example:"yearly"`
	AutoRenew    *bool  `json:"auto_renew,omitempty"`
}

// SubscriptionResponse is the plan with the features currently in effect
type SubscriptionResponse struct {
	Subscription  *models.BusinessSubscription `json:"subscription,omitempty"`
	EffectiveTier string                       `json:"effective_tier"`
	Features      models.TierFeatures          `json:"features"`
}

// AddSubscriberRequest subscribes an email to a business newsletter
type AddSubscriberRequest struct {
	Email string  `json:"email" validate:"required,max=255" example:"reader@example.com"`
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// UnsubscribeRequest removes an email by business or by signed link token
type UnsubscribeRequest struct {
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Token string `json:"token,omitempty"`
}

// ListSubscribersRequest filters subscribers
type ListSubscribersRequest struct {
	Status string `json:"status,omitempty" query:"status"`
	PaginationRequest
}

// ListSubscribersResponse is one page of subscribers
type ListSubscribersResponse struct {
	Subscribers []*models.NewsletterSubscriber `json:"subscribers"`
	Pagination  PaginationInfo                 `json:"pagination"`
}

// TemplateRequest creates or replaces a newsletter template
type TemplateRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required"`
}

// CreateCampaignRequest drafts a newsletter campaign
type CreateCampaignRequest struct {
	TemplateID  *uint      `json:"template_id,omitempty"`
	Subject     string     `json:"subject,omitempty" validate:"omitempty,max=255"`
	Content     string     `json:"content,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// ScheduleCampaignRequest sets the send time of a draft
type ScheduleCampaignRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// NewsletterQuotaResponse reports the monthly newsletter allowance
type NewsletterQuotaResponse struct {
	CanSend       bool  `json:"can_send"`
	SentThisMonth int64 `json:"sent_this_month"`
	MonthlyLimit  int   `json:"monthly_limit"`
}

// ListCampaignsResponse is one page of campaigns
type ListCampaignsResponse struct {
	Campaigns  []*models.NewsletterCampaign `json:"campaigns"`
	Pagination PaginationInfo               `json:"pagination"`
}
