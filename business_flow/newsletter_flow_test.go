package businessflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNewsletterFlow(s *memStore) NewsletterFlow {
	return NewNewsletterFlow(
		fakeSubscriberRepo{s: s},
		fakeTemplateRepo{s: s},
		fakeCampaignRepo{s: s},
		fakeSubscriptionRepo{s: s},
		fakeBusinessRepo{s: s},
		fakeUserRepo{s: s},
		fakePermissionRepo{s: s},
		services.NewMemoryLocker(),
		nil,
		fakeMailer{s: s},
		s,
		"https://registry.test/unsubscribe",
		utils.NopLogger(),
	)
}

func seedSubscribers(s *memStore, businessID uint, n int, status models.SubscriberStatus) {
	for i := range n {
		id := s.id()
		s.subscribers[id] = models.NewsletterSubscriber{
			ID:         id,
			BusinessID: businessID,
			Email:      fmt.Sprintf("reader%d-%d@example.com", businessID, i),
			Status:     status,
		}
	}
}

func TestAddSubscriber_FreeTierLimit(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	flow := newTestNewsletterFlow(s)

	limit := models.SubscriptionTierFree.Features().NewsletterSubscribers
	seedSubscribers(s, business, limit, models.SubscriberStatusActive)
	seedSubscribers(s, business, 3, models.SubscriberStatusUnsubscribed)

	_, err := flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "late@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubscriberLimitReached))
	assert.Equal(t, KindLimit, ErrorKindOf(err))

	// free one slot
	for id, sub := range s.subscribers {
		if sub.Status == models.SubscriberStatusActive {
			sub.Status = models.SubscriberStatusUnsubscribed
			s.subscribers[id] = sub
			break
		}
	}
	added, err := flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "late@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriberStatusActive, added.Status)
}

func TestAddSubscriber_PaidTierRaisesLimit(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	s.subscriptions[business] = models.BusinessSubscription{
		BusinessID: business,
		Tier:       models.SubscriptionTierBasic,
		Status:     models.SubscriptionStatusActive,
	}
	flow := newTestNewsletterFlow(s)

	seedSubscribers(s, business, models.SubscriptionTierFree.Features().NewsletterSubscribers, models.SubscriberStatusActive)

	_, err := flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "reader@example.com"})
	require.NoError(t, err)

	// a cancelled plan falls back to free
	sub := s.subscriptions[business]
	sub.Status = models.SubscriptionStatusCancelled
	s.subscriptions[business] = sub
	_, err = flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "another@example.com"})
	assert.Equal(t, KindLimit, ErrorKindOf(err))
}

func TestAddSubscriber_DuplicatesAndResubscribe(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	flow := newTestNewsletterFlow(s)

	first, err := flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "Reader@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", first.Email)

	_, err = flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "reader@example.com"})
	assert.True(t, errors.Is(err, ErrAlreadySubscribed))
	assert.Equal(t, KindConflict, ErrorKindOf(err))

	stored := s.subscribers[first.ID]
	stored.Status = models.SubscriberStatusUnsubscribed
	s.subscribers[first.ID] = stored

	again, err := flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "reader@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "re-subscribing reuses the row")
	assert.Equal(t, models.SubscriberStatusActive, again.Status)
	assert.Nil(t, again.UnsubscribedAt)
	assert.Len(t, s.subscribers, 1)
}

func TestAddSubscriber_Rejections(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	flow := newTestNewsletterFlow(s)

	_, err := flow.AddSubscriber(ctx, business, &dto.AddSubscriberRequest{Email: "not-an-email"})
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	_, err = flow.AddSubscriber(ctx, 8080, &dto.AddSubscriberRequest{Email: "reader@example.com"})
	assert.Equal(t, KindNotFound, ErrorKindOf(err))

	assert.Empty(t, s.subscribers)
}

func seedCampaign(s *memStore, businessID uint, status models.CampaignStatus, sentAt *time.Time) uint {
	id := s.id()
	s.campaigns[id] = models.NewsletterCampaign{
		ID:         id,
		BusinessID: businessID,
		Subject:    "Spring offers",
		Content:    "<p>Hello</p>",
		Status:     status,
		SentAt:     sentAt,
	}
	return id
}

func TestCanSendNewsletter_MonthlyCap(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	flow := newTestNewsletterFlow(s)

	now := time.Now().UTC()
	lastMonth := utils.StartOfMonthUTC(now).Add(-time.Hour)
	seedCampaign(s, business, models.CampaignStatusSent, &lastMonth)
	seedCampaign(s, business, models.CampaignStatusDraft, nil)

	quota, err := flow.CanSendNewsletter(ctx, business)
	require.NoError(t, err)
	assert.True(t, quota.CanSend)
	assert.EqualValues(t, 0, quota.SentThisMonth, "last month and drafts do not count")
	assert.Equal(t, 2, quota.MonthlyLimit)

	seedCampaign(s, business, models.CampaignStatusSent, &now)
	seedCampaign(s, business, models.CampaignStatusSent, &now)

	quota, err = flow.CanSendNewsletter(ctx, business)
	require.NoError(t, err)
	assert.False(t, quota.CanSend)
	assert.EqualValues(t, 2, quota.SentThisMonth)

	_, err = flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{Subject: "One more", Content: "<p>Hi</p>"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNewsletterLimitReached))
	assert.True(t, IsNewsletterLimitReached(err))
	assert.True(t, IsLimitError(err))
	assert.Equal(t, KindLimit, ErrorKindOf(err))
	assert.Len(t, s.campaigns, 4)
}

func TestCanSendNewsletter_SendingHoldsASlot(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	flow := newTestNewsletterFlow(s)

	now := time.Now().UTC()
	seedCampaign(s, business, models.CampaignStatusSent, &now)
	seedCampaign(s, business, models.CampaignStatusSending, nil)

	quota, err := flow.CanSendNewsletter(ctx, business)
	require.NoError(t, err)
	assert.False(t, quota.CanSend)
	assert.EqualValues(t, 2, quota.SentThisMonth)
}

func TestCanSendNewsletter_UnlimitedTier(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	s.subscriptions[business] = models.BusinessSubscription{
		BusinessID: business,
		Tier:       models.SubscriptionTierEnterprise,
		Status:     models.SubscriptionStatusActive,
	}
	flow := newTestNewsletterFlow(s)

	now := time.Now().UTC()
	for range 50 {
		seedCampaign(s, business, models.CampaignStatusSent, &now)
	}

	quota, err := flow.CanSendNewsletter(ctx, business)
	require.NoError(t, err)
	assert.True(t, quota.CanSend)
	assert.Equal(t, -1, quota.MonthlyLimit)
	assert.EqualValues(t, 50, quota.SentThisMonth)

	campaign, err := flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{Subject: "Weekly", Content: "<p>Hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
}

func TestCreateCampaign_Templates(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	otherOwner := s.addUser(models.UserTypeBusinessOwner)
	other := s.addBusiness(otherOwner)
	flow := newTestNewsletterFlow(s)

	own, err := flow.CreateTemplate(ctx, business, owner, &dto.TemplateRequest{Name: "Monthly", Subject: "News from Acme", Body: "<p>Body</p>"})
	require.NoError(t, err)
	foreign, err := flow.CreateTemplate(ctx, other, otherOwner, &dto.TemplateRequest{Name: "Theirs", Subject: "Not yours", Body: "<p>x</p>"})
	require.NoError(t, err)

	_, err = flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{TemplateID: &foreign.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
	assert.Equal(t, KindNotFound, ErrorKindOf(err))

	campaign, err := flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{TemplateID: &own.ID})
	require.NoError(t, err)
	assert.Equal(t, "News from Acme", campaign.Subject)
	assert.Equal(t, "<p>Body</p>", campaign.Content)

	_, err = flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{Subject: "No body"})
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	at := time.Now().Add(24 * time.Hour)
	scheduled, err := flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{Subject: "Later", Content: "<p>x</p>", ScheduledAt: &at})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, scheduled.Status)

	_, err = flow.CreateTemplate(ctx, business, owner, &dto.TemplateRequest{Name: "Second", Subject: "s", Body: "b"})
	assert.True(t, errors.Is(err, ErrTemplateLimitReached), "free tier keeps one template")
}

func TestSendCampaign_FailedSendCanBeRetried(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	seedSubscribers(s, business, 2, models.SubscriberStatusActive)
	seedSubscribers(s, business, 1, models.SubscriberStatusUnsubscribed)
	flow := newTestNewsletterFlow(s)

	campaign, err := flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{Subject: "Hello", Content: "<p>Hi</p>"})
	require.NoError(t, err)

	s.failSubscriberList = true
	_, err = flow.SendCampaign(ctx, campaign.ID, owner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInjected))
	assert.Equal(t, models.CampaignStatusDraft, s.campaigns[campaign.ID].Status)
	assert.Nil(t, s.campaigns[campaign.ID].SentAt)
	assert.Empty(t, s.emails)

	quota, err := flow.CanSendNewsletter(ctx, business)
	require.NoError(t, err)
	assert.EqualValues(t, 0, quota.SentThisMonth, "a released claim frees its slot")

	s.failSubscriberList = false
	sent, err := flow.SendCampaign(ctx, campaign.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSent, sent.Status)
	assert.EqualValues(t, 2, sent.RecipientCount)
	assert.NotNil(t, s.campaigns[campaign.ID].SentAt)
	assert.Len(t, s.emails, 2)

	_, err = flow.SendCampaign(ctx, campaign.ID, owner)
	assert.Equal(t, KindState, ErrorKindOf(err), "sent is final")
}

func TestSendCampaign_FailedScheduledSendCanBeCancelled(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	business := s.addBusiness(owner)
	flow := newTestNewsletterFlow(s)

	at := time.Now().Add(time.Hour)
	campaign, err := flow.CreateCampaign(ctx, business, owner, &dto.CreateCampaignRequest{Subject: "Later", Content: "<p>x</p>", ScheduledAt: &at})
	require.NoError(t, err)

	s.failSubscriberList = true
	_, err = flow.SendCampaign(ctx, campaign.ID, owner)
	require.Error(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, s.campaigns[campaign.ID].Status)

	cancelled, err := flow.CancelCampaign(ctx, campaign.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCancelled, cancelled.Status)
}
