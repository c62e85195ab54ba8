package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComplaintFlow(s *memStore) ComplaintFlow {
	return NewComplaintFlow(
		fakeComplaintRepo{s: s},
		fakeThreadRepo{s: s},
		nil,
		fakeBusinessRepo{s: s},
		fakeNotificationRepo{s: s},
		fakeUserRepo{s: s},
		fakePermissionRepo{s: s},
		nil,
		nil,
		nil,
		s,
		utils.NopLogger(),
	)
}

func complaintRequest(businessID uint) *dto.CreateComplaintRequest {
	return &dto.CreateComplaintRequest{
		BusinessID:    businessID,
		Title:         "Charged twice",
		Description:   "My card was charged twice for one visit.",
		ComplaintType: "billing",
	}
}

func TestComplaintLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	consumer := s.addUser(models.UserTypeConsumer)
	staff := s.addUser(models.UserTypeModerator)
	s.grant(staff, models.PermissionManageComplaints)
	business := s.addBusiness(owner)
	flow := newTestComplaintFlow(s)

	complaint, err := flow.CreateComplaint(ctx, consumer, complaintRequest(business))
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusNew, complaint.Status)
	assert.Equal(t, models.ComplaintPriorityMedium, complaint.Priority)
	assert.Regexp(t, `^CMP-\d{8}-[A-Z0-9]{6}$`, complaint.ComplaintID)
	require.Len(t, s.threads, 1)
	assert.Equal(t, models.ThreadMessageTypeComplaintCreated, s.threads[0].MessageType)
	require.NotEmpty(t, s.notifications)
	assert.Equal(t, owner, s.notifications[len(s.notifications)-1].UserID)

	status := func(actor uint, to models.ComplaintStatus) (*models.Complaint, error) {
		return flow.UpdateComplaintStatus(ctx, complaint.ID, actor, &dto.UpdateComplaintStatusRequest{Status: string(to)})
	}

	_, err = status(consumer, models.ComplaintStatusInProgress)
	assert.Equal(t, KindPermission, ErrorKindOf(err), "complainants cannot drive the workflow")

	_, err = status(owner, models.ComplaintStatusInProgress)
	require.NoError(t, err)
	resolved, err := status(owner, models.ComplaintStatusResolved)
	require.NoError(t, err)
	assert.NotNil(t, resolved.ResolvedAt)
	_, err = status(owner, models.ComplaintStatusClosed)
	require.NoError(t, err)

	escalated, err := flow.EscalateComplaint(ctx, complaint.ID, consumer, &dto.EscalateComplaintRequest{Reason: "Refund never arrived"})
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusEscalated, escalated.Status)
	require.NotNil(t, escalated.EscalatedBy)
	assert.Equal(t, consumer, *escalated.EscalatedBy)

	_, err = flow.EscalateComplaint(ctx, complaint.ID, consumer, &dto.EscalateComplaintRequest{Reason: "again"})
	assert.True(t, errors.Is(err, ErrAlreadyEscalated))
	assert.Equal(t, KindState, ErrorKindOf(err))

	reopened, err := status(staff, models.ComplaintStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusInProgress, reopened.Status)

	// filed + 3 owner transitions + escalation + staff transition
	assert.Len(t, s.threads, 6)
}

func TestUpdateComplaintStatus_IllegalTransition(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	consumer := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestComplaintFlow(s)

	complaint, err := flow.CreateComplaint(ctx, consumer, complaintRequest(business))
	require.NoError(t, err)

	_, err = flow.UpdateComplaintStatus(ctx, complaint.ID, owner, &dto.UpdateComplaintStatusRequest{Status: "resolved"})
	assert.Equal(t, KindState, ErrorKindOf(err))

	_, err = flow.UpdateComplaintStatus(ctx, complaint.ID, owner, &dto.UpdateComplaintStatusRequest{Status: "archived"})
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	assert.Equal(t, models.ComplaintStatusNew, s.complaints[complaint.ID].Status)
	assert.Len(t, s.threads, 1)
}

func TestCreateComplaint_Validation(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	consumer := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestComplaintFlow(s)

	badType := complaintRequest(business)
	badType.ComplaintType = "rudeness"
	badPriority := complaintRequest(business)
	badPriority.Priority = "whenever"
	blankTitle := complaintRequest(business)
	blankTitle.Title = "   "
	blankDescription := complaintRequest(business)
	blankDescription.Description = "\t"

	tests := []struct {
		name string
		req  *dto.CreateComplaintRequest
		kind ErrorKind
	}{
		{name: "unknown type", req: badType, kind: KindValidation},
		{name: "unknown priority", req: badPriority, kind: KindValidation},
		{name: "blank title", req: blankTitle, kind: KindValidation},
		{name: "blank description", req: blankDescription, kind: KindValidation},
		{name: "unknown business", req: complaintRequest(31337), kind: KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.CreateComplaint(ctx, consumer, tt.req)
			assert.Equal(t, tt.kind, ErrorKindOf(err))
		})
	}
	assert.Empty(t, s.complaints)
}

func TestComplaintThread_InternalNotes(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	consumer := s.addUser(models.UserTypeConsumer)
	outsider := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestComplaintFlow(s)

	complaint, err := flow.CreateComplaint(ctx, consumer, complaintRequest(business))
	require.NoError(t, err)

	note := &dto.ThreadMessageRequest{Message: "Checking the payment logs", IsInternal: true}
	_, err = flow.AddThreadMessage(ctx, complaint.ID, consumer, note)
	assert.Equal(t, KindPermission, ErrorKindOf(err))

	_, err = flow.AddThreadMessage(ctx, complaint.ID, owner, &dto.ThreadMessageRequest{Message: "  "})
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	_, err = flow.AddThreadMessage(ctx, complaint.ID, owner, note)
	require.NoError(t, err)
	_, err = flow.AddThreadMessage(ctx, complaint.ID, consumer, &dto.ThreadMessageRequest{Message: "Any update?"})
	require.NoError(t, err)

	public, err := flow.GetThread(ctx, complaint.ID, consumer, false)
	require.NoError(t, err)
	assert.Len(t, public, 2)

	all, err := flow.GetThread(ctx, complaint.ID, owner, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = flow.GetThread(ctx, complaint.ID, consumer, true)
	assert.Equal(t, KindPermission, ErrorKindOf(err))
	_, err = flow.GetThread(ctx, complaint.ID, outsider, false)
	assert.Equal(t, KindPermission, ErrorKindOf(err))
}

func TestUpdateComplaintStatus_EscalationOnlyThroughEscalate(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	consumer := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestComplaintFlow(s)

	complaint, err := flow.CreateComplaint(ctx, consumer, complaintRequest(business))
	require.NoError(t, err)

	_, err = flow.UpdateComplaintStatus(ctx, complaint.ID, owner, &dto.UpdateComplaintStatusRequest{Status: "escalated"})
	assert.True(t, errors.Is(err, ErrInvalidStatus))
	assert.Equal(t, KindValidation, ErrorKindOf(err))

	stored := s.complaints[complaint.ID]
	assert.Equal(t, models.ComplaintStatusNew, stored.Status)
	assert.Nil(t, stored.EscalatedAt)
	assert.Nil(t, stored.EscalatedBy)
	assert.Len(t, s.threads, 1)
}
