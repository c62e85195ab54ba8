package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccreditationFlow(s *memStore) AccreditationFlow {
	return NewAccreditationFlow(
		fakeAccreditationRepo{s: s},
		fakeHistoryRepo{s: s},
		fakeBusinessRepo{s: s},
		fakeNotificationRepo{s: s},
		fakeUserRepo{s: s},
		fakePermissionRepo{s: s},
		nil,
		nil,
		s,
		utils.NopLogger(),
	)
}

func setStatus(ctx context.Context, flow AccreditationFlow, id, reviewer uint, status models.AccreditationStatus) (*models.Accreditation, error) {
	return flow.UpdateStatus(ctx, id, reviewer, &dto.UpdateAccreditationStatusRequest{Status: string(status)})
}

func TestAccreditationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	reviewer := s.addUser(models.UserTypeAdmin)
	business := s.addBusiness(owner)
	flow := newTestAccreditationFlow(s)

	record, err := flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "premium"})
	require.NoError(t, err)
	assert.Equal(t, models.AccreditationStatusPending, record.Status)
	require.Len(t, s.history, 1)
	assert.Empty(t, s.history[0].OldStatus)

	_, err = flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "basic"})
	assert.True(t, errors.Is(err, ErrPendingApplicationExists))

	approved, err := setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusApproved)
	require.NoError(t, err)
	require.NotNil(t, approved.ExpiryDate)
	assert.WithinDuration(t, time.Now().Add(utils.AccreditationValidity), *approved.ExpiryDate, time.Minute)
	assert.Equal(t, models.AccreditationLevelPremium, s.businesses[business].AccreditationLevel)

	_, err = flow.RenewAccreditation(ctx, record.ID, owner)
	assert.True(t, errors.Is(err, ErrRenewalTooEarly))
	assert.Equal(t, KindState, ErrorKindOf(err))

	s.expireIn(record.ID, 10*24*time.Hour)
	renewing, err := flow.RenewAccreditation(ctx, record.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.AccreditationStatusRenewalPending, renewing.Status)
	assert.Equal(t, models.AccreditationLevelPremium, s.businesses[business].AccreditationLevel, "level survives while renewal is pending")

	_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusApproved)
	require.NoError(t, err)

	_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.AccreditationLevelNone, s.businesses[business].AccreditationLevel)

	detail, err := flow.GetAccreditationHistory(ctx, record.ID)
	require.NoError(t, err)
	var trail []string
	for _, h := range detail.History {
		trail = append(trail, h.NewStatus)
	}
	assert.Equal(t, []string{"pending", "approved", "renewal_pending", "approved", "suspended"}, trail)
}

func TestAccreditationUpdateStatus_Rejections(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	reviewer := s.addUser(models.UserTypeAdmin)
	business := s.addBusiness(owner)
	flow := newTestAccreditationFlow(s)

	record, err := flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "basic"})
	require.NoError(t, err)

	_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusSuspended)
	assert.Equal(t, KindState, ErrorKindOf(err), "pending cannot be suspended")

	_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusRenewalPending)
	assert.Equal(t, KindValidation, ErrorKindOf(err), "renewal_pending is not a reviewer decision")

	_, err = setStatus(ctx, flow, 4242, reviewer, models.AccreditationStatusApproved)
	assert.Equal(t, KindNotFound, ErrorKindOf(err))

	assert.Equal(t, models.AccreditationStatusPending, s.accreditations[record.ID].Status)
	assert.Len(t, s.history, 1)
}

func TestApplyForAccreditation_Rejections(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	stranger := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestAccreditationFlow(s)

	_, err := flow.ApplyForAccreditation(ctx, stranger, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "basic"})
	assert.Equal(t, KindPermission, ErrorKindOf(err))

	_, err = flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "none"})
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	_, err = flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: 777, Level: "basic"})
	assert.Equal(t, KindNotFound, ErrorKindOf(err))

	assert.Empty(t, s.accreditations)
}

func TestAccreditationApproval_RollsBackWhenLevelWriteFails(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	reviewer := s.addUser(models.UserTypeAdmin)
	business := s.addBusiness(owner)
	flow := newTestAccreditationFlow(s)

	record, err := flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "verified"})
	require.NoError(t, err)

	s.failLevelUpdate = true
	_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusApproved)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInjected))

	stored := s.accreditations[record.ID]
	assert.Equal(t, models.AccreditationStatusPending, stored.Status)
	assert.Nil(t, stored.ExpiryDate)
	assert.Len(t, s.history, 1)
	assert.Equal(t, models.AccreditationLevelNone, s.businesses[business].AccreditationLevel)
	assert.Equal(t, 1, s.rollbacks)
}

func TestExpireOverdue(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	reviewer := s.addUser(models.UserTypeAdmin)
	flow := newTestAccreditationFlow(s)

	var ids []uint
	for range 2 {
		business := s.addBusiness(owner)
		record, err := flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "basic"})
		require.NoError(t, err)
		_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusApproved)
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}
	s.expireIn(ids[0], -time.Hour)

	expired, err := flow.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	assert.Equal(t, models.AccreditationStatusExpired, s.accreditations[ids[0]].Status)
	assert.Equal(t, models.AccreditationLevelNone, s.businesses[s.accreditations[ids[0]].BusinessID].AccreditationLevel)
	assert.Equal(t, models.AccreditationStatusApproved, s.accreditations[ids[1]].Status)
}

func TestGetExpiringAccreditations(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	reviewer := s.addUser(models.UserTypeAdmin)
	business := s.addBusiness(owner)
	flow := newTestAccreditationFlow(s)

	record, err := flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "basic"})
	require.NoError(t, err)
	_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusApproved)
	require.NoError(t, err)
	s.expireIn(record.ID, 5*24*time.Hour)

	soon, err := flow.GetExpiringAccreditations(ctx, 7)
	require.NoError(t, err)
	require.Len(t, soon, 1)
	assert.Equal(t, record.ID, soon[0].ID)

	later, err := flow.GetExpiringAccreditations(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, later)

	_, err = flow.GetExpiringAccreditations(ctx, -1)
	assert.Equal(t, KindValidation, ErrorKindOf(err))
}

func TestSendExpiryReminders(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	reviewer := s.addUser(models.UserTypeAdmin)
	business := s.addBusiness(owner)
	flow := newTestAccreditationFlow(s)

	record, err := flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "basic"})
	require.NoError(t, err)
	_, err = setStatus(ctx, flow, record.ID, reviewer, models.AccreditationStatusApproved)
	require.NoError(t, err)
	before := len(s.notifications)

	s.expireIn(record.ID, 7*24*time.Hour-time.Minute)
	sent, err := flow.SendExpiryReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, s.notifications, before+1)
	assert.Equal(t, models.NotificationTypeAccreditationExpiry, s.notifications[before].Type)
	assert.Equal(t, owner, s.notifications[before].UserID)

	s.expireIn(record.ID, 12*24*time.Hour-time.Minute)
	sent, err = flow.SendExpiryReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestRenewAccreditation_RequiresApproved(t *testing.T) {
	for _, status := range []models.AccreditationStatus{
		models.AccreditationStatusPending,
		models.AccreditationStatusSuspended,
	} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			s := newMemStore()
			owner := s.addUser(models.UserTypeBusinessOwner)
			business := s.addBusiness(owner)
			flow := newTestAccreditationFlow(s)

			record, err := flow.ApplyForAccreditation(ctx, owner, &dto.ApplyAccreditationRequest{BusinessID: business, Level: "basic"})
			require.NoError(t, err)
			a := s.accreditations[record.ID]
			a.Status = status
			s.accreditations[record.ID] = a
			s.expireIn(record.ID, 10*24*time.Hour)

			_, err = flow.RenewAccreditation(ctx, record.ID, owner)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidStatus))
			assert.False(t, errors.Is(err, ErrRenewalTooEarly))
			assert.Equal(t, KindState, ErrorKindOf(err))
			assert.Equal(t, status, s.accreditations[record.ID].Status)
			assert.Len(t, s.history, 1)
		})
	}
}
