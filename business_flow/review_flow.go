package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
)

// ReviewFlow handles reviews, business responses and helpfulness votes
type ReviewFlow interface {
	CreateReview(ctx context.Context, userID uint, req *dto.CreateReviewRequest) (*models.Review, error)
	UpdateReview(ctx context.Context, id, userID uint, req *dto.UpdateReviewRequest) (*models.Review, error)
	DeleteReview(ctx context.Context, id, actorID uint) error
	UpdateReviewStatus(ctx context.Context, id, moderatorID uint, req *dto.ModerateReviewRequest) (*models.Review, error)
	AddReviewResponse(ctx context.Context, reviewID, respondentID uint, req *dto.ReviewResponseRequest) (*models.ReviewResponse, error)
	VoteOnReview(ctx context.Context, reviewID, userID uint, req *dto.VoteRequest) (*dto.VoteResponse, error)
	GetReview(ctx context.Context, id uint) (*dto.ReviewDetailResponse, error)
	ListBusinessReviews(ctx context.Context, businessID uint, req *dto.ListReviewsRequest) (*dto.ListReviewsResponse, error)
	ListUserReviews(ctx context.Context, userID uint, req *dto.ListReviewsRequest) (*dto.ListReviewsResponse, error)
	GetReviewSummary(ctx context.Context, businessID uint) (*dto.ReviewSummaryResponse, error)
}

// ReviewFlowImpl implements ReviewFlow
type ReviewFlowImpl struct {
	reviewRepo       repository.ReviewRepository
	responseRepo     repository.ReviewResponseRepository
	voteRepo         repository.ReviewVoteRepository
	mediaRepo        repository.ReviewMediaRepository
	businessRepo     repository.BusinessProfileRepository
	notificationRepo repository.NotificationRepository
	access           accessChecker
	tx               repository.Transactor
	logger           *logrus.Logger
}

// NewReviewFlow creates a new review flow instance
func NewReviewFlow(
	reviewRepo repository.ReviewRepository,
	responseRepo repository.ReviewResponseRepository,
	voteRepo repository.ReviewVoteRepository,
	mediaRepo repository.ReviewMediaRepository,
	businessRepo repository.BusinessProfileRepository,
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	tx repository.Transactor,
	logger *logrus.Logger,
) ReviewFlow {
	return &ReviewFlowImpl{
		reviewRepo:       reviewRepo,
		responseRepo:     responseRepo,
		voteRepo:         voteRepo,
		mediaRepo:        mediaRepo,
		businessRepo:     businessRepo,
		notificationRepo: notificationRepo,
		access:           newAccessChecker(userRepo, permissionRepo),
		tx:               tx,
		logger:           logger,
	}
}

// CreateReview stores a pending review. One review per (user, business) in any status.
func (rf *ReviewFlowImpl) CreateReview(ctx context.Context, userID uint, req *dto.CreateReviewRequest) (*models.Review, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("REVIEW_VALIDATION_FAILED", "Review validation failed", err)
	}
	rating, breakdown, err := resolveRating(req.Rating, req.RatingBreakdown)
	if err != nil {
		return nil, NewBusinessError("REVIEW_VALIDATION_FAILED", "Review validation failed", err)
	}

	var business *models.BusinessProfile
	review, err := runInTx(ctx, rf.tx, func(ctx context.Context) (*models.Review, error) {
		var err error
		business, err = rf.businessRepo.ByID(ctx, req.BusinessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}

		existing, err := rf.reviewRepo.ByUserAndBusiness(ctx, userID, req.BusinessID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrDuplicateReview
		}

		now := utils.UTCNow()
		review := &models.Review{
			UserID:          userID,
			BusinessID:      req.BusinessID,
			Title:           strings.TrimSpace(req.Title),
			Content:         strings.TrimSpace(req.Content),
			Rating:          rating,
			RatingBreakdown: breakdown,
			Status:          models.ReviewStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := rf.reviewRepo.Save(ctx, review); err != nil {
			return nil, err
		}
		if err := rf.businessRepo.RecomputeRating(ctx, req.BusinessID); err != nil {
			return nil, err
		}
		return review, nil
	})
	if err != nil {
		return nil, NewBusinessError("REVIEW_CREATE_FAILED", "Failed to create review", err)
	}

	reviewsCreatedTotal.Inc()
	notifyUser(ctx, rf.notificationRepo, rf.logger, business.OwnerID, models.NotificationTypeReviewReceived,
		"New review received",
		fmt.Sprintf("%s received a %.1f star review.", business.LegalName, review.Rating),
		models.NotificationData{"review_id": review.ID, "business_id": business.ID})

	return review, nil
}

// UpdateReview lets the author edit a review. The review re-enters moderation as edited.
func (rf *ReviewFlowImpl) UpdateReview(ctx context.Context, id, userID uint, req *dto.UpdateReviewRequest) (*models.Review, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("REVIEW_VALIDATION_FAILED", "Review validation failed", err)
	}

	review, err := runInTx(ctx, rf.tx, func(ctx context.Context) (*models.Review, error) {
		review, err := rf.mustReview(ctx, id)
		if err != nil {
			return nil, err
		}
		if review.UserID != userID {
			return nil, ErrPermissionDenied
		}

		if req.Title != nil {
			if strings.TrimSpace(*req.Title) == "" {
				return nil, validationErrorf("title must not be empty")
			}
			review.Title = strings.TrimSpace(*req.Title)
		}
		if req.Content != nil {
			if strings.TrimSpace(*req.Content) == "" {
				return nil, validationErrorf("content must not be empty")
			}
			review.Content = strings.TrimSpace(*req.Content)
		}
		if req.Rating != nil || len(req.RatingBreakdown) > 0 {
			rating, breakdown, err := resolveRating(utils.Deref(req.Rating), req.RatingBreakdown)
			if err != nil {
				return nil, err
			}
			review.Rating = rating
			review.RatingBreakdown = breakdown
		}

		wasApproved := review.Status == models.ReviewStatusApproved
		review.Status = models.ReviewStatusEdited
		review.UpdatedAt = utils.UTCNow()
		if err := rf.reviewRepo.Update(ctx, review); err != nil {
			return nil, err
		}
		if wasApproved {
			if err := rf.businessRepo.RecomputeRating(ctx, review.BusinessID); err != nil {
				return nil, err
			}
		}
		return review, nil
	})
	if err != nil {
		return nil, NewBusinessError("REVIEW_UPDATE_FAILED", "Failed to update review", err)
	}
	return review, nil
}

// DeleteReview is open to the author and moderators
func (rf *ReviewFlowImpl) DeleteReview(ctx context.Context, id, actorID uint) error {
	_, err := runInTx(ctx, rf.tx, func(ctx context.Context) (struct{}, error) {
		review, err := rf.mustReview(ctx, id)
		if err != nil {
			return struct{}{}, err
		}
		if review.UserID != actorID {
			if err := rf.access.require(ctx, actorID, models.PermissionModerateReviews); err != nil {
				return struct{}{}, err
			}
		}
		if err := rf.reviewRepo.Delete(ctx, id); err != nil {
			return struct{}{}, err
		}
		if review.Status == models.ReviewStatusApproved {
			if err := rf.businessRepo.RecomputeRating(ctx, review.BusinessID); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return NewBusinessError("REVIEW_DELETE_FAILED", "Failed to delete review", err)
	}
	return nil
}

// UpdateReviewStatus is a moderation decision. The aggregate is recomputed only when approved is crossed.
func (rf *ReviewFlowImpl) UpdateReviewStatus(ctx context.Context, id, moderatorID uint, req *dto.ModerateReviewRequest) (*models.Review, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("REVIEW_VALIDATION_FAILED", "Review validation failed", err)
	}
	target := models.ReviewStatus(req.Status)
	if !target.IsModerationTarget() {
		return nil, NewBusinessError("REVIEW_VALIDATION_FAILED", "Review validation failed", ErrInvalidStatus)
	}

	review, err := runInTx(ctx, rf.tx, func(ctx context.Context) (*models.Review, error) {
		review, err := rf.mustReview(ctx, id)
		if err != nil {
			return nil, err
		}

		crossesApproved := (review.Status == models.ReviewStatusApproved) != (target == models.ReviewStatusApproved)

		now := utils.UTCNow()
		review.Status = target
		review.ModerationReason = req.Reason
		review.ModeratedBy = &moderatorID
		review.ModeratedAt = &now
		review.UpdatedAt = now
		if err := rf.reviewRepo.Update(ctx, review); err != nil {
			return nil, err
		}
		if crossesApproved {
			if err := rf.businessRepo.RecomputeRating(ctx, review.BusinessID); err != nil {
				return nil, err
			}
		}
		return review, nil
	})
	if err != nil {
		return nil, NewBusinessError("REVIEW_MODERATION_FAILED", "Failed to moderate review", err)
	}

	rf.logger.WithFields(logrus.Fields{
		"review_id":    review.ID,
		"status":       review.Status,
		"moderator_id": moderatorID,
	}).Info("review moderated")

	return review, nil
}

// AddReviewResponse stores the single business reply to a review
func (rf *ReviewFlowImpl) AddReviewResponse(ctx context.Context, reviewID, respondentID uint, req *dto.ReviewResponseRequest) (*models.ReviewResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("REVIEW_RESPONSE_VALIDATION_FAILED", "Review response validation failed", err)
	}

	var review *models.Review
	response, err := runInTx(ctx, rf.tx, func(ctx context.Context) (*models.ReviewResponse, error) {
		var err error
		review, err = rf.mustReview(ctx, reviewID)
		if err != nil {
			return nil, err
		}
		if review.BusinessID != req.BusinessID {
			return nil, ErrReviewNotForBusiness
		}

		business, err := rf.businessRepo.ByID(ctx, req.BusinessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}
		if err := rf.access.requireBusinessManager(ctx, business, respondentID); err != nil {
			return nil, err
		}

		existing, err := rf.responseRepo.ByReviewID(ctx, reviewID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrResponseAlreadyExists
		}

		response := &models.ReviewResponse{
			ReviewID:     reviewID,
			BusinessID:   req.BusinessID,
			RespondentID: respondentID,
			Response:     strings.TrimSpace(req.Response),
			CreatedAt:    utils.UTCNow(),
		}
		if err := rf.responseRepo.Save(ctx, response); err != nil {
			return nil, err
		}
		return response, nil
	})
	if err != nil {
		return nil, NewBusinessError("REVIEW_RESPONSE_FAILED", "Failed to add review response", err)
	}

	notifyUser(ctx, rf.notificationRepo, rf.logger, review.UserID, models.NotificationTypeReviewResponse,
		"The business replied to your review", response.Response,
		models.NotificationData{"review_id": review.ID, "business_id": review.BusinessID})

	return response, nil
}

// VoteOnReview toggles a vote. Same type removes it, the opposite type replaces it.
func (rf *ReviewFlowImpl) VoteOnReview(ctx context.Context, reviewID, userID uint, req *dto.VoteRequest) (*dto.VoteResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("REVIEW_VOTE_VALIDATION_FAILED", "Vote validation failed", err)
	}
	voteType := models.VoteType(req.VoteType)
	if !voteType.Valid() {
		return nil, NewBusinessError("REVIEW_VOTE_VALIDATION_FAILED", "Vote validation failed", ErrInvalidVoteType)
	}

	resp, err := runInTx(ctx, rf.tx, func(ctx context.Context) (*dto.VoteResponse, error) {
		if _, err := rf.mustReview(ctx, reviewID); err != nil {
			return nil, err
		}

		existing, err := rf.voteRepo.ByReviewAndUser(ctx, reviewID, userID)
		if err != nil {
			return nil, err
		}

		var current *string
		switch {
		case existing == nil:
			vote := &models.ReviewVote{ReviewID: reviewID, UserID: userID, VoteType: voteType, CreatedAt: utils.UTCNow()}
			if err := rf.voteRepo.Save(ctx, vote); err != nil {
				return nil, err
			}
			current = utils.ToPtr(string(voteType))
		case existing.VoteType == voteType:
			if err := rf.voteRepo.Delete(ctx, existing.ID); err != nil {
				return nil, err
			}
		default:
			existing.VoteType = voteType
			if err := rf.voteRepo.Update(ctx, existing); err != nil {
				return nil, err
			}
			current = utils.ToPtr(string(voteType))
		}

		helpful, notHelpful, err := rf.voteRepo.CountByType(ctx, reviewID)
		if err != nil {
			return nil, err
		}
		if err := rf.reviewRepo.SetVoteCounts(ctx, reviewID, helpful, notHelpful); err != nil {
			return nil, err
		}

		return &dto.VoteResponse{
			ReviewID:        reviewID,
			VoteType:        current,
			HelpfulCount:    helpful,
			NotHelpfulCount: notHelpful,
		}, nil
	})
	if err != nil {
		return nil, NewBusinessError("REVIEW_VOTE_FAILED", "Failed to vote on review", err)
	}
	return resp, nil
}

func (rf *ReviewFlowImpl) GetReview(ctx context.Context, id uint) (*dto.ReviewDetailResponse, error) {
	review, err := rf.mustReview(ctx, id)
	if err != nil {
		return nil, NewBusinessError("REVIEW_GET_FAILED", "Failed to load review", err)
	}
	response, err := rf.responseRepo.ByReviewID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("REVIEW_GET_FAILED", "Failed to load review", err)
	}
	media, err := rf.mediaRepo.ListByReview(ctx, id)
	if err != nil {
		return nil, NewBusinessError("REVIEW_GET_FAILED", "Failed to load review", err)
	}
	return &dto.ReviewDetailResponse{Review: review, Response: response, Media: media}, nil
}

func (rf *ReviewFlowImpl) ListBusinessReviews(ctx context.Context, businessID uint, req *dto.ListReviewsRequest) (*dto.ListReviewsResponse, error) {
	return rf.list(ctx, models.ReviewFilter{BusinessID: &businessID}, req)
}

func (rf *ReviewFlowImpl) ListUserReviews(ctx context.Context, userID uint, req *dto.ListReviewsRequest) (*dto.ListReviewsResponse, error) {
	return rf.list(ctx, models.ReviewFilter{UserID: &userID}, req)
}

// GetReviewSummary returns the stored aggregate plus the star distribution and response rate
func (rf *ReviewFlowImpl) GetReviewSummary(ctx context.Context, businessID uint) (*dto.ReviewSummaryResponse, error) {
	business, err := rf.businessRepo.ByID(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_SUMMARY_FAILED", "Failed to load review summary", err)
	}
	if business == nil {
		return nil, NewBusinessError("REVIEW_SUMMARY_FAILED", "Failed to load review summary", ErrBusinessNotFound)
	}

	distribution, err := rf.reviewRepo.RatingDistribution(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_SUMMARY_FAILED", "Failed to load review summary", err)
	}
	approved, responded, err := rf.reviewRepo.ResponseStats(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("REVIEW_SUMMARY_FAILED", "Failed to load review summary", err)
	}

	return &dto.ReviewSummaryResponse{
		BusinessID:   businessID,
		Rating:       business.Rating,
		TotalReviews: business.TotalReviews,
		Distribution: distribution,
		ResponseRate: responseRate(approved, responded),
	}, nil
}

// Private helper methods

func (rf *ReviewFlowImpl) mustReview(ctx context.Context, id uint) (*models.Review, error) {
	review, err := rf.reviewRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	return review, nil
}

func (rf *ReviewFlowImpl) list(ctx context.Context, filter models.ReviewFilter, req *dto.ListReviewsRequest) (*dto.ListReviewsResponse, error) {
	if req == nil {
		req = &dto.ListReviewsRequest{}
	}
	if req.Status != "" {
		status := models.ReviewStatus(req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("REVIEW_LIST_FAILED", "Failed to list reviews", ErrInvalidStatus)
		}
		filter.Status = &status
	}

	page, perPage, offset := normalizePage(req.Page, req.PerPage)
	total, err := rf.reviewRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("REVIEW_LIST_FAILED", "Failed to list reviews", err)
	}
	reviews, err := rf.reviewRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", perPage, offset)
	if err != nil {
		return nil, NewBusinessError("REVIEW_LIST_FAILED", "Failed to list reviews", err)
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return &dto.ListReviewsResponse{Reviews: reviews, Pagination: paginationInfo(page, perPage, total)}, nil
}

// resolveRating validates the overall rating or derives it from the breakdown
func resolveRating(rating float64, breakdown map[string]float64) (float64, models.RatingBreakdown, error) {
	if len(breakdown) == 0 {
		if rating < 1 || rating > 5 {
			return 0, nil, ErrInvalidRating
		}
		return rating, nil, nil
	}

	for criterion, score := range breakdown {
		if strings.TrimSpace(criterion) == "" {
			return 0, nil, validationErrorf("rating_breakdown has an empty criterion")
		}
		if score < 1 || score > 5 {
			return 0, nil, fmt.Errorf("%w: %s=%v", ErrInvalidRating, criterion, score)
		}
	}
	b := models.RatingBreakdown(breakdown)
	return utils.RoundTo(b.Mean(), 1), b, nil
}

func responseRate(approved, responded int64) float64 {
	if approved == 0 {
		return 0
	}
	return utils.RoundTo(float64(responded)/float64(approved), 4)
}
