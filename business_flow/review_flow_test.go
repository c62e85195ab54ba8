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

func newTestReviewFlow(s *memStore) ReviewFlow {
	return NewReviewFlow(
		fakeReviewRepo{s: s},
		nil,
		fakeVoteRepo{s: s},
		nil,
		fakeBusinessRepo{s: s},
		fakeNotificationRepo{s: s},
		fakeUserRepo{s: s},
		fakePermissionRepo{s: s},
		s,
		utils.NopLogger(),
	)
}

func reviewRequest(businessID uint, rating float64) *dto.CreateReviewRequest {
	return &dto.CreateReviewRequest{
		BusinessID: businessID,
		Title:      "Solid work",
		Content:    "Showed up on time and fixed the leak.",
		Rating:     rating,
	}
}

func moderate(t *testing.T, flow ReviewFlow, reviewID, moderatorID uint, status models.ReviewStatus) {
	t.Helper()
	_, err := flow.UpdateReviewStatus(context.Background(), reviewID, moderatorID, &dto.ModerateReviewRequest{Status: string(status)})
	require.NoError(t, err)
}

func TestCreateReview_OnePerUserAndBusiness(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	author := s.addUser(models.UserTypeConsumer)
	moderator := s.addUser(models.UserTypeModerator)
	business := s.addBusiness(owner)
	flow := newTestReviewFlow(s)

	first, err := flow.CreateReview(ctx, author, reviewRequest(business, 4))
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, first.Status)

	_, err = flow.CreateReview(ctx, author, reviewRequest(business, 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateReview))
	assert.Equal(t, KindConflict, ErrorKindOf(err))

	// a rejected review still blocks a second one
	moderate(t, flow, first.ID, moderator, models.ReviewStatusRejected)
	_, err = flow.CreateReview(ctx, author, reviewRequest(business, 5))
	assert.True(t, errors.Is(err, ErrDuplicateReview))

	assert.Len(t, s.reviews, 1)
}

func TestCreateReview_Validation(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	author := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestReviewFlow(s)

	tests := []struct {
		name string
		req  *dto.CreateReviewRequest
		kind ErrorKind
	}{
		{name: "rating above range", req: reviewRequest(business, 5.5), kind: KindValidation},
		{name: "rating below range", req: reviewRequest(business, 0), kind: KindValidation},
		{name: "missing title", req: &dto.CreateReviewRequest{BusinessID: business, Content: "x", Rating: 3}, kind: KindValidation},
		{name: "whitespace title", req: &dto.CreateReviewRequest{BusinessID: business, Title: "   ", Content: "x", Rating: 3}, kind: KindValidation},
		{name: "whitespace content", req: &dto.CreateReviewRequest{BusinessID: business, Title: "t", Content: "\n\t ", Rating: 3}, kind: KindValidation},
		{name: "breakdown score out of range", req: &dto.CreateReviewRequest{
			BusinessID: business, Title: "t", Content: "c",
			RatingBreakdown: map[string]float64{"quality": 6},
		}, kind: KindValidation},
		{name: "unknown business", req: reviewRequest(9999, 4), kind: KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.CreateReview(ctx, author, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKindOf(err))
		})
	}
	assert.Empty(t, s.reviews)
}

func TestCreateReview_RatingFromBreakdown(t *testing.T) {
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	author := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestReviewFlow(s)

	req := reviewRequest(business, 1)
	req.RatingBreakdown = map[string]float64{"quality": 4, "service": 5, "price": 4}

	review, err := flow.CreateReview(context.Background(), author, req)
	require.NoError(t, err)
	assert.Equal(t, 4.3, review.Rating)
	assert.Len(t, review.RatingBreakdown, 3)
}

func TestBusinessRating_CountsApprovedReviewsOnly(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	moderator := s.addUser(models.UserTypeModerator)
	business := s.addBusiness(owner)
	flow := newTestReviewFlow(s)

	var ids []uint
	for _, rating := range []float64{5, 3, 1} {
		author := s.addUser(models.UserTypeConsumer)
		review, err := flow.CreateReview(ctx, author, reviewRequest(business, rating))
		require.NoError(t, err)
		ids = append(ids, review.ID)
	}

	assert.Zero(t, s.businesses[business].Rating, "pending reviews must not count")
	assert.Zero(t, s.businesses[business].TotalReviews)

	moderate(t, flow, ids[0], moderator, models.ReviewStatusApproved)
	moderate(t, flow, ids[1], moderator, models.ReviewStatusApproved)
	assert.InDelta(t, 4.0, s.businesses[business].Rating, 1e-9)
	assert.Equal(t, int64(2), s.businesses[business].TotalReviews)

	moderate(t, flow, ids[0], moderator, models.ReviewStatusFlagged)
	assert.InDelta(t, 3.0, s.businesses[business].Rating, 1e-9)
	assert.Equal(t, int64(1), s.businesses[business].TotalReviews)

	// an author edit sends the review back to moderation
	authorOf := s.reviews[ids[1]].UserID
	newContent := "Updated after a second visit."
	edited, err := flow.UpdateReview(ctx, ids[1], authorOf, &dto.UpdateReviewRequest{Content: &newContent})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusEdited, edited.Status)
	assert.Zero(t, s.businesses[business].Rating)
	assert.Zero(t, s.businesses[business].TotalReviews)
}

func TestVoteOnReview_Toggle(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	author := s.addUser(models.UserTypeConsumer)
	voter := s.addUser(models.UserTypeConsumer)
	business := s.addBusiness(owner)
	flow := newTestReviewFlow(s)

	review, err := flow.CreateReview(ctx, author, reviewRequest(business, 4))
	require.NoError(t, err)

	vote := func(voteType string) *dto.VoteResponse {
		t.Helper()
		resp, err := flow.VoteOnReview(ctx, review.ID, voter, &dto.VoteRequest{VoteType: voteType})
		require.NoError(t, err)
		return resp
	}

	resp := vote("helpful")
	require.NotNil(t, resp.VoteType)
	assert.Equal(t, "helpful", *resp.VoteType)
	assert.Equal(t, int64(1), resp.HelpfulCount)
	assert.Equal(t, int64(1), s.reviews[review.ID].HelpfulCount)

	resp = vote("helpful")
	assert.Nil(t, resp.VoteType, "same vote twice removes it")
	assert.Zero(t, resp.HelpfulCount)
	assert.Empty(t, s.votes)

	vote("helpful")
	resp = vote("not_helpful")
	require.NotNil(t, resp.VoteType)
	assert.Equal(t, "not_helpful", *resp.VoteType)
	assert.Zero(t, resp.HelpfulCount)
	assert.Equal(t, int64(1), resp.NotHelpfulCount)
	assert.Len(t, s.votes, 1)

	_, err = flow.VoteOnReview(ctx, review.ID, voter, &dto.VoteRequest{VoteType: "love"})
	assert.Equal(t, KindValidation, ErrorKindOf(err))
}

func TestDeleteReview_Permissions(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	owner := s.addUser(models.UserTypeBusinessOwner)
	author := s.addUser(models.UserTypeConsumer)
	stranger := s.addUser(models.UserTypeConsumer)
	moderator := s.addUser(models.UserTypeModerator)
	s.grant(moderator, models.PermissionModerateReviews)
	business := s.addBusiness(owner)
	flow := newTestReviewFlow(s)

	review, err := flow.CreateReview(ctx, author, reviewRequest(business, 2))
	require.NoError(t, err)
	moderate(t, flow, review.ID, moderator, models.ReviewStatusApproved)
	assert.InDelta(t, 2.0, s.businesses[business].Rating, 1e-9)

	err = flow.DeleteReview(ctx, review.ID, stranger)
	assert.Equal(t, KindPermission, ErrorKindOf(err))

	require.NoError(t, flow.DeleteReview(ctx, review.ID, moderator))
	assert.Empty(t, s.reviews)
	assert.Zero(t, s.businesses[business].Rating)
	assert.Zero(t, s.businesses[business].TotalReviews)
}
