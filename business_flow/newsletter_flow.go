package businessflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
)

const (
	subscriberLockTTL  = 10 * time.Second
	subscriberLockWait = 3 * time.Second
)

// NewsletterFlow manages subscribers, templates and campaigns of business newsletters
type NewsletterFlow interface {
	AddSubscriber(ctx context.Context, businessID uint, req *dto.AddSubscriberRequest) (*models.NewsletterSubscriber, error)
	Unsubscribe(ctx context.Context, businessID uint, email string) error
	UnsubscribeByToken(ctx context.Context, token string) error
	ListSubscribers(ctx context.Context, businessID, actorID uint, req *dto.ListSubscribersRequest) (*dto.ListSubscribersResponse, error)
	CanSendNewsletter(ctx context.Context, businessID uint) (*dto.NewsletterQuotaResponse, error)

	CreateTemplate(ctx context.Context, businessID, actorID uint, req *dto.TemplateRequest) (*models.NewsletterTemplate, error)
	UpdateTemplate(ctx context.Context, businessID, templateID, actorID uint, req *dto.TemplateRequest) (*models.NewsletterTemplate, error)
	DeleteTemplate(ctx context.Context, businessID, templateID, actorID uint) error
	ListTemplates(ctx context.Context, businessID, actorID uint) ([]*models.NewsletterTemplate, error)

	CreateCampaign(ctx context.Context, businessID, actorID uint, req *dto.CreateCampaignRequest) (*models.NewsletterCampaign, error)
	ScheduleCampaign(ctx context.Context, campaignID, actorID uint, req *dto.ScheduleCampaignRequest) (*models.NewsletterCampaign, error)
	CancelCampaign(ctx context.Context, campaignID, actorID uint) (*models.NewsletterCampaign, error)
	SendCampaign(ctx context.Context, campaignID, actorID uint) (*models.NewsletterCampaign, error)
	ListCampaigns(ctx context.Context, businessID, actorID uint, req *dto.PaginationRequest) (*dto.ListCampaignsResponse, error)
	DispatchDueCampaigns(ctx context.Context) (int, error)
}

// NewsletterFlowImpl implements NewsletterFlow
type NewsletterFlowImpl struct {
	subscriberRepo   repository.NewsletterSubscriberRepository
	templateRepo     repository.NewsletterTemplateRepository
	campaignRepo     repository.NewsletterCampaignRepository
	subscriptionRepo repository.BusinessSubscriptionRepository
	businessRepo     repository.BusinessProfileRepository
	access           accessChecker
	locker           services.KeyLocker
	tokenSvc         services.TokenService
	notificationSvc  services.NotificationService
	tx               repository.Transactor
	unsubscribeURL   string
	logger           *logrus.Logger
}

// NewNewsletterFlow creates a new newsletter flow instance
func NewNewsletterFlow(
	subscriberRepo repository.NewsletterSubscriberRepository,
	templateRepo repository.NewsletterTemplateRepository,
	campaignRepo repository.NewsletterCampaignRepository,
	subscriptionRepo repository.BusinessSubscriptionRepository,
	businessRepo repository.BusinessProfileRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	locker services.KeyLocker,
	tokenSvc services.TokenService,
	notificationSvc services.NotificationService,
	tx repository.Transactor,
	unsubscribeURL string,
	logger *logrus.Logger,
) NewsletterFlow {
	return &NewsletterFlowImpl{
		subscriberRepo:   subscriberRepo,
		templateRepo:     templateRepo,
		campaignRepo:     campaignRepo,
		subscriptionRepo: subscriptionRepo,
		businessRepo:     businessRepo,
		access:           newAccessChecker(userRepo, permissionRepo),
		locker:           locker,
		tokenSvc:         tokenSvc,
		notificationSvc:  notificationSvc,
		tx:               tx,
		unsubscribeURL:   unsubscribeURL,
		logger:           logger,
	}
}

// AddSubscriber subscribes an email, reactivating an earlier unsubscribe.
// Additions for one business are serialized so the tier cap holds.
func (nf *NewsletterFlowImpl) AddSubscriber(ctx context.Context, businessID uint, req *dto.AddSubscriberRequest) (*models.NewsletterSubscriber, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("SUBSCRIBER_VALIDATION_FAILED", "Subscriber validation failed", err)
	}
	email := utils.NormalizeEmail(req.Email)
	if !isValidEmail(email) {
		return nil, NewBusinessError("SUBSCRIBER_VALIDATION_FAILED", "Subscriber validation failed", ErrInvalidEmail)
	}

	release, err := nf.locker.Acquire(ctx, fmt.Sprintf("newsletter:subscribers:%d", businessID), subscriberLockTTL, subscriberLockWait)
	if err != nil {
		if errors.Is(err, services.ErrLockBusy) {
			err = ErrConcurrentUpdate
		}
		return nil, NewBusinessError("SUBSCRIBER_ADD_FAILED", "Failed to add subscriber", err)
	}
	defer release()

	subscriber, err := runInTx(ctx, nf.tx, func(ctx context.Context) (*models.NewsletterSubscriber, error) {
		business, err := nf.businessRepo.ByID(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}

		existing, err := nf.subscriberRepo.ByBusinessAndEmail(ctx, businessID, email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status == models.SubscriberStatusActive {
			return nil, ErrAlreadySubscribed
		}

		features, err := effectiveFeatures(ctx, nf.subscriptionRepo, businessID)
		if err != nil {
			return nil, err
		}
		active := models.SubscriberStatusActive
		count, err := nf.subscriberRepo.Count(ctx, models.NewsletterSubscriberFilter{BusinessID: &businessID, Status: &active})
		if err != nil {
			return nil, err
		}
		if !models.WithinLimit(features.NewsletterSubscribers, count) {
			return nil, ErrSubscriberLimitReached
		}

		now := utils.UTCNow()
		if existing != nil {
			existing.Status = models.SubscriberStatusActive
			existing.SubscribedAt = now
			existing.UnsubscribedAt = nil
			if req.Name != nil {
				existing.Name = req.Name
			}
			existing.UpdatedAt = now
			if err := nf.subscriberRepo.Update(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		}

		subscriber := &models.NewsletterSubscriber{
			BusinessID:   businessID,
			Email:        email,
			Name:         req.Name,
			Status:       models.SubscriberStatusActive,
			SubscribedAt: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := nf.subscriberRepo.Save(ctx, subscriber); err != nil {
			return nil, err
		}
		return subscriber, nil
	})
	if err != nil {
		return nil, NewBusinessError("SUBSCRIBER_ADD_FAILED", "Failed to add subscriber", err)
	}
	return subscriber, nil
}

func (nf *NewsletterFlowImpl) Unsubscribe(ctx context.Context, businessID uint, email string) error {
	email = utils.NormalizeEmail(email)
	subscriber, err := nf.subscriberRepo.ByBusinessAndEmail(ctx, businessID, email)
	if err != nil {
		return NewBusinessError("UNSUBSCRIBE_FAILED", "Failed to unsubscribe", err)
	}
	if subscriber == nil {
		return NewBusinessError("UNSUBSCRIBE_FAILED", "Failed to unsubscribe", ErrSubscriberNotFound)
	}
	if subscriber.Status == models.SubscriberStatusUnsubscribed {
		return nil
	}

	now := utils.UTCNow()
	subscriber.Status = models.SubscriberStatusUnsubscribed
	subscriber.UnsubscribedAt = &now
	subscriber.UpdatedAt = now
	if err := nf.subscriberRepo.Update(ctx, subscriber); err != nil {
		return NewBusinessError("UNSUBSCRIBE_FAILED", "Failed to unsubscribe", err)
	}
	return nil
}

// UnsubscribeByToken honours the signed link embedded in newsletter emails
func (nf *NewsletterFlowImpl) UnsubscribeByToken(ctx context.Context, token string) error {
	claims, err := nf.tokenSvc.ValidateUnsubscribeToken(token)
	if err != nil {
		return NewBusinessError("UNSUBSCRIBE_FAILED", "Failed to unsubscribe", fmt.Errorf("%w: %v", ErrInvalidOrExpiredToken, err))
	}
	return nf.Unsubscribe(ctx, claims.BusinessID, claims.Email)
}

func (nf *NewsletterFlowImpl) ListSubscribers(ctx context.Context, businessID, actorID uint, req *dto.ListSubscribersRequest) (*dto.ListSubscribersResponse, error) {
	if err := nf.requireManager(ctx, businessID, actorID); err != nil {
		return nil, NewBusinessError("SUBSCRIBER_LIST_FAILED", "Failed to list subscribers", err)
	}
	if req == nil {
		req = &dto.ListSubscribersRequest{}
	}

	filter := models.NewsletterSubscriberFilter{BusinessID: &businessID}
	if req.Status != "" {
		status := models.SubscriberStatus(req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("SUBSCRIBER_LIST_FAILED", "Failed to list subscribers", ErrInvalidStatus)
		}
		filter.Status = &status
	}

	page, perPage, offset := normalizePage(req.Page, req.PerPage)
	total, err := nf.subscriberRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SUBSCRIBER_LIST_FAILED", "Failed to list subscribers", err)
	}
	rows, err := nf.subscriberRepo.ByFilter(ctx, filter, "subscribed_at DESC, id DESC", perPage, offset)
	if err != nil {
		return nil, NewBusinessError("SUBSCRIBER_LIST_FAILED", "Failed to list subscribers", err)
	}
	if rows == nil {
		rows = []*models.NewsletterSubscriber{}
	}
	return &dto.ListSubscribersResponse{Subscribers: rows, Pagination: paginationInfo(page, perPage, total)}, nil
}

// CanSendNewsletter compares campaigns sent this calendar month (UTC) with the tier allowance
func (nf *NewsletterFlowImpl) CanSendNewsletter(ctx context.Context, businessID uint) (*dto.NewsletterQuotaResponse, error) {
	quota, err := nf.quota(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("NEWSLETTER_QUOTA_FAILED", "Failed to check newsletter quota", err)
	}
	return quota, nil
}

func (nf *NewsletterFlowImpl) CreateTemplate(ctx context.Context, businessID, actorID uint, req *dto.TemplateRequest) (*models.NewsletterTemplate, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("TEMPLATE_VALIDATION_FAILED", "Template validation failed", err)
	}

	template, err := runInTx(ctx, nf.tx, func(ctx context.Context) (*models.NewsletterTemplate, error) {
		if err := nf.requireManager(ctx, businessID, actorID); err != nil {
			return nil, err
		}
		existing, err := nf.templateRepo.ListByBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}
		features, err := effectiveFeatures(ctx, nf.subscriptionRepo, businessID)
		if err != nil {
			return nil, err
		}
		if !models.WithinLimit(features.NewsletterTemplates, int64(len(existing))) {
			return nil, ErrTemplateLimitReached
		}

		now := utils.UTCNow()
		template := &models.NewsletterTemplate{
			BusinessID: businessID,
			Name:       strings.TrimSpace(req.Name),
			Subject:    strings.TrimSpace(req.Subject),
			Body:       req.Body,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := nf.templateRepo.Save(ctx, template); err != nil {
			return nil, err
		}
		return template, nil
	})
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_CREATE_FAILED", "Failed to create template", err)
	}
	return template, nil
}

func (nf *NewsletterFlowImpl) UpdateTemplate(ctx context.Context, businessID, templateID, actorID uint, req *dto.TemplateRequest) (*models.NewsletterTemplate, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("TEMPLATE_VALIDATION_FAILED", "Template validation failed", err)
	}
	if err := nf.requireManager(ctx, businessID, actorID); err != nil {
		return nil, NewBusinessError("TEMPLATE_UPDATE_FAILED", "Failed to update template", err)
	}
	template, err := nf.ownedTemplate(ctx, businessID, templateID)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_UPDATE_FAILED", "Failed to update template", err)
	}

	template.Name = strings.TrimSpace(req.Name)
	template.Subject = strings.TrimSpace(req.Subject)
	template.Body = req.Body
	template.UpdatedAt = utils.UTCNow()
	if err := nf.templateRepo.Update(ctx, template); err != nil {
		return nil, NewBusinessError("TEMPLATE_UPDATE_FAILED", "Failed to update template", err)
	}
	return template, nil
}

func (nf *NewsletterFlowImpl) DeleteTemplate(ctx context.Context, businessID, templateID, actorID uint) error {
	if err := nf.requireManager(ctx, businessID, actorID); err != nil {
		return NewBusinessError("TEMPLATE_DELETE_FAILED", "Failed to delete template", err)
	}
	if _, err := nf.ownedTemplate(ctx, businessID, templateID); err != nil {
		return NewBusinessError("TEMPLATE_DELETE_FAILED", "Failed to delete template", err)
	}
	if err := nf.templateRepo.Delete(ctx, templateID); err != nil {
		return NewBusinessError("TEMPLATE_DELETE_FAILED", "Failed to delete template", err)
	}
	return nil
}

func (nf *NewsletterFlowImpl) ListTemplates(ctx context.Context, businessID, actorID uint) ([]*models.NewsletterTemplate, error) {
	if err := nf.requireManager(ctx, businessID, actorID); err != nil {
		return nil, NewBusinessError("TEMPLATE_LIST_FAILED", "Failed to list templates", err)
	}
	templates, err := nf.templateRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("TEMPLATE_LIST_FAILED", "Failed to list templates", err)
	}
	return templates, nil
}

// CreateCampaign drafts a campaign, or schedules it when a send time is given
func (nf *NewsletterFlowImpl) CreateCampaign(ctx context.Context, businessID, actorID uint, req *dto.CreateCampaignRequest) (*models.NewsletterCampaign, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	campaign, err := runInTx(ctx, nf.tx, func(ctx context.Context) (*models.NewsletterCampaign, error) {
		if err := nf.requireManager(ctx, businessID, actorID); err != nil {
			return nil, err
		}

		subject := strings.TrimSpace(req.Subject)
		content := req.Content
		if req.TemplateID != nil {
			template, err := nf.ownedTemplate(ctx, businessID, *req.TemplateID)
			if err != nil {
				return nil, err
			}
			if subject == "" {
				subject = template.Subject
			}
			if strings.TrimSpace(content) == "" {
				content = template.Body
			}
		}
		if subject == "" || strings.TrimSpace(content) == "" {
			return nil, validationErrorf("subject and content are required without a template")
		}

		quota, err := nf.quota(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if !quota.CanSend {
			return nil, ErrNewsletterLimitReached
		}

		now := utils.UTCNow()
		campaign := &models.NewsletterCampaign{
			BusinessID: businessID,
			TemplateID: req.TemplateID,
			Subject:    subject,
			Content:    content,
			Status:     models.CampaignStatusDraft,
			CreatedBy:  actorID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if req.ScheduledAt != nil {
			if !req.ScheduledAt.After(now) {
				return nil, validationErrorf("scheduled_at must be in the future")
			}
			campaign.Status = models.CampaignStatusScheduled
			campaign.ScheduledAt = utils.ToPtr(req.ScheduledAt.UTC())
		}
		if err := nf.campaignRepo.Save(ctx, campaign); err != nil {
			return nil, err
		}
		return campaign, nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Failed to create campaign", err)
	}
	return campaign, nil
}

func (nf *NewsletterFlowImpl) ScheduleCampaign(ctx context.Context, campaignID, actorID uint, req *dto.ScheduleCampaignRequest) (*models.NewsletterCampaign, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}
	if !req.ScheduledAt.After(utils.UTCNow()) {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed",
			validationErrorf("scheduled_at must be in the future"))
	}

	campaign, err := runInTx(ctx, nf.tx, func(ctx context.Context) (*models.NewsletterCampaign, error) {
		campaign, err := nf.managedCampaign(ctx, campaignID, actorID)
		if err != nil {
			return nil, err
		}
		if campaign.Status != models.CampaignStatusScheduled {
			if err := nf.moveCampaign(campaign, models.CampaignStatusScheduled); err != nil {
				return nil, err
			}
		}
		campaign.ScheduledAt = utils.ToPtr(req.ScheduledAt.UTC())
		campaign.UpdatedAt = utils.UTCNow()
		if err := nf.campaignRepo.Update(ctx, campaign); err != nil {
			return nil, err
		}
		return campaign, nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SCHEDULE_FAILED", "Failed to schedule campaign", err)
	}
	return campaign, nil
}

func (nf *NewsletterFlowImpl) CancelCampaign(ctx context.Context, campaignID, actorID uint) (*models.NewsletterCampaign, error) {
	campaign, err := runInTx(ctx, nf.tx, func(ctx context.Context) (*models.NewsletterCampaign, error) {
		campaign, err := nf.managedCampaign(ctx, campaignID, actorID)
		if err != nil {
			return nil, err
		}
		if err := nf.moveCampaign(campaign, models.CampaignStatusCancelled); err != nil {
			return nil, err
		}
		campaign.UpdatedAt = utils.UTCNow()
		if err := nf.campaignRepo.Update(ctx, campaign); err != nil {
			return nil, err
		}
		return campaign, nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel campaign", err)
	}
	return campaign, nil
}

// SendCampaign sends a draft or scheduled campaign immediately
func (nf *NewsletterFlowImpl) SendCampaign(ctx context.Context, campaignID, actorID uint) (*models.NewsletterCampaign, error) {
	if _, err := nf.managedCampaign(ctx, campaignID, actorID); err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
	}
	campaign, err := nf.send(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SEND_FAILED", "Failed to send campaign", err)
	}
	return campaign, nil
}

func (nf *NewsletterFlowImpl) ListCampaigns(ctx context.Context, businessID, actorID uint, req *dto.PaginationRequest) (*dto.ListCampaignsResponse, error) {
	if err := nf.requireManager(ctx, businessID, actorID); err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}
	if req == nil {
		req = &dto.PaginationRequest{}
	}
	filter := models.NewsletterCampaignFilter{BusinessID: &businessID}
	page, perPage, offset := normalizePage(req.Page, req.PerPage)
	total, err := nf.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}
	rows, err := nf.campaignRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", perPage, offset)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}
	if rows == nil {
		rows = []*models.NewsletterCampaign{}
	}
	return &dto.ListCampaignsResponse{Campaigns: rows, Pagination: paginationInfo(page, perPage, total)}, nil
}

// DispatchDueCampaigns sends scheduled campaigns whose time has come
func (nf *NewsletterFlowImpl) DispatchDueCampaigns(ctx context.Context) (int, error) {
	now := utils.UTCNow()
	status := models.CampaignStatusScheduled
	due, err := nf.campaignRepo.ByFilter(ctx, models.NewsletterCampaignFilter{Status: &status, ScheduledBefore: &now}, "scheduled_at ASC", 0, 0)
	if err != nil {
		return 0, NewBusinessError("CAMPAIGN_DISPATCH_FAILED", "Failed to load due campaigns", err)
	}

	sent := 0
	for _, c := range due {
		if _, err := nf.send(ctx, c.ID); err != nil {
			nf.logger.WithError(err).WithField("campaign_id", c.ID).Error("failed to dispatch campaign")
			continue
		}
		sent++
	}
	return sent, nil
}

// Private helper methods

// send claims the campaign by moving it to sending, mails active subscribers outside the
// transaction and finally records it as sent. A failure after the claim hands the
// campaign back to its previous status so it can be retried or cancelled.
func (nf *NewsletterFlowImpl) send(ctx context.Context, campaignID uint) (*models.NewsletterCampaign, error) {
	var previous models.CampaignStatus
	campaign, err := runInTx(ctx, nf.tx, func(ctx context.Context) (*models.NewsletterCampaign, error) {
		campaign, err := nf.campaignRepo.ByID(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		if campaign == nil {
			return nil, ErrCampaignNotFound
		}
		quota, err := nf.quota(ctx, campaign.BusinessID)
		if err != nil {
			return nil, err
		}
		if !quota.CanSend {
			return nil, ErrNewsletterLimitReached
		}
		previous = campaign.Status
		if err := nf.moveCampaign(campaign, models.CampaignStatusSending); err != nil {
			return nil, err
		}
		campaign.UpdatedAt = utils.UTCNow()
		if err := nf.campaignRepo.Update(ctx, campaign); err != nil {
			return nil, err
		}
		return campaign, nil
	})
	if err != nil {
		return nil, err
	}

	active := models.SubscriberStatusActive
	subscribers, err := nf.subscriberRepo.ByFilter(ctx, models.NewsletterSubscriberFilter{BusinessID: &campaign.BusinessID, Status: &active}, "id ASC", 0, 0)
	if err != nil {
		nf.releaseClaim(ctx, campaign, previous)
		return nil, err
	}

	var delivered int64
	for _, s := range subscribers {
		body, err := nf.renderBody(campaign, s)
		if err != nil {
			nf.logger.WithError(err).WithField("subscriber_id", s.ID).Warn("failed to sign unsubscribe link")
			newsletterEmailsTotal.WithLabelValues("failed").Inc()
			continue
		}
		if err := nf.notificationSvc.SendEmail(s.Email, campaign.Subject, body); err != nil {
			nf.logger.WithError(err).WithFields(logrus.Fields{
				"campaign_id":   campaign.ID,
				"subscriber_id": s.ID,
			}).Warn("newsletter email failed")
			newsletterEmailsTotal.WithLabelValues("failed").Inc()
			continue
		}
		newsletterEmailsTotal.WithLabelValues("sent").Inc()
		delivered++
	}

	now := utils.UTCNow()
	if err := nf.moveCampaign(campaign, models.CampaignStatusSent); err != nil {
		nf.releaseClaim(ctx, campaign, previous)
		return nil, err
	}
	campaign.SentAt = &now
	campaign.RecipientCount = delivered
	campaign.UpdatedAt = now
	if err := nf.campaignRepo.Update(ctx, campaign); err != nil {
		nf.logger.WithError(err).WithFields(logrus.Fields{
			"campaign_id": campaign.ID,
			"recipients":  delivered,
		}).Error("failed to record sent campaign, releasing claim")
		nf.releaseClaim(ctx, campaign, previous)
		return nil, err
	}

	nf.logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"business_id": campaign.BusinessID,
		"recipients":  delivered,
	}).Info("newsletter campaign sent")

	return campaign, nil
}

// releaseClaim moves a campaign stuck in sending back to previous in its own transaction
func (nf *NewsletterFlowImpl) releaseClaim(ctx context.Context, campaign *models.NewsletterCampaign, previous models.CampaignStatus) {
	ctx = context.WithoutCancel(ctx)
	err := nf.tx.WithTransaction(ctx, func(ctx context.Context) error {
		stored, err := nf.campaignRepo.ByID(ctx, campaign.ID)
		if err != nil {
			return err
		}
		if stored == nil || stored.Status != models.CampaignStatusSending {
			return nil
		}
		if err := nf.moveCampaign(stored, previous); err != nil {
			return err
		}
		stored.SentAt = nil
		stored.UpdatedAt = utils.UTCNow()
		return nf.campaignRepo.Update(ctx, stored)
	})
	if err != nil {
		nf.logger.WithError(err).WithField("campaign_id", campaign.ID).Error("failed to release campaign claim")
		return
	}
	campaign.Status = previous
	campaign.SentAt = nil
}

func (nf *NewsletterFlowImpl) renderBody(campaign *models.NewsletterCampaign, subscriber *models.NewsletterSubscriber) (string, error) {
	if nf.tokenSvc == nil || nf.unsubscribeURL == "" {
		return campaign.Content, nil
	}
	token, err := nf.tokenSvc.GenerateUnsubscribeToken(subscriber.BusinessID, subscriber.Email)
	if err != nil {
		return "", err
	}
	link := nf.unsubscribeURL + "?token=" + url.QueryEscape(token)
	return fmt.Sprintf("%s\n\n<p><a href=\"%s\">Unsubscribe</a></p>", campaign.Content, link), nil
}

func (nf *NewsletterFlowImpl) quota(ctx context.Context, businessID uint) (*dto.NewsletterQuotaResponse, error) {
	features, err := effectiveFeatures(ctx, nf.subscriptionRepo, businessID)
	if err != nil {
		return nil, err
	}
	monthStart := utils.StartOfMonthUTC(utils.UTCNow())
	sentStatus := models.CampaignStatusSent
	sent, err := nf.campaignRepo.Count(ctx, models.NewsletterCampaignFilter{
		BusinessID: &businessID,
		Status:     &sentStatus,
		SentAfter:  &monthStart,
	})
	if err != nil {
		return nil, err
	}
	// in-flight sends hold a slot until they land or are released
	sendingStatus := models.CampaignStatusSending
	sending, err := nf.campaignRepo.Count(ctx, models.NewsletterCampaignFilter{
		BusinessID: &businessID,
		Status:     &sendingStatus,
	})
	if err != nil {
		return nil, err
	}
	sent += sending
	return &dto.NewsletterQuotaResponse{
		CanSend:       models.WithinLimit(features.MonthlyNewsletters, sent),
		SentThisMonth: sent,
		MonthlyLimit:  features.MonthlyNewsletters,
	}, nil
}

func (nf *NewsletterFlowImpl) moveCampaign(campaign *models.NewsletterCampaign, target models.CampaignStatus) error {
	if !campaign.Status.CanTransitionTo(target) {
		return transitionError(campaign.Status, target)
	}
	campaign.Status = target
	return nil
}

func (nf *NewsletterFlowImpl) requireManager(ctx context.Context, businessID, actorID uint) error {
	business, err := nf.businessRepo.ByID(ctx, businessID)
	if err != nil {
		return err
	}
	if business == nil {
		return ErrBusinessNotFound
	}
	return nf.access.requireBusinessManager(ctx, business, actorID)
}

func (nf *NewsletterFlowImpl) ownedTemplate(ctx context.Context, businessID, templateID uint) (*models.NewsletterTemplate, error) {
	template, err := nf.templateRepo.ByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template == nil || template.BusinessID != businessID {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

func (nf *NewsletterFlowImpl) managedCampaign(ctx context.Context, campaignID, actorID uint) (*models.NewsletterCampaign, error) {
	campaign, err := nf.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if err := nf.requireManager(ctx, campaign.BusinessID, actorID); err != nil {
		return nil, err
	}
	return campaign, nil
}
