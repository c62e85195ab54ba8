package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/business-registry/models"
	"gorm.io/gorm"
)

const ratingDistributionSQL = `SELECT CAST(ROUND(rating) AS INTEGER) AS stars, COUNT(*) AS total
FROM reviews
WHERE business_id = ? AND status = 'approved'
GROUP BY CAST(ROUND(rating) AS INTEGER)`

const responseStatsSQL = `SELECT
	COUNT(*) AS approved,
	COUNT(rr.id) AS responded
FROM reviews r
LEFT JOIN review_responses rr ON rr.review_id = r.id
WHERE r.business_id = ? AND r.status = 'approved'`

// ReviewRepositoryImpl implements ReviewRepository interface
type ReviewRepositoryImpl struct {
	*BaseRepository[models.Review, models.ReviewFilter]
	gateway Gateway
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &ReviewRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Review](db, applyReviewFilter),
		gateway:        NewGateway(db),
	}
}

func applyReviewFilter(db *gorm.DB, filter models.ReviewFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.BusinessID != nil {
		db = db.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.MinRating != nil {
		db = db.Where("rating >= ?", *filter.MinRating)
	}
	return db
}

// ByUserAndBusiness returns the review a user left for a business in any status
func (r *ReviewRepositoryImpl) ByUserAndBusiness(ctx context.Context, userID, businessID uint) (*models.Review, error) {
	return firstOrNil[models.Review](
		r.getDB(ctx).Where("user_id = ? AND business_id = ?", userID, businessID),
		"review by user and business",
	)
}

// SetVoteCounts stores refreshed helpfulness counters
func (r *ReviewRepositoryImpl) SetVoteCounts(ctx context.Context, reviewID uint, helpful, notHelpful int64) error {
	err := r.getDB(ctx).Model(&models.Review{}).
		Where("id = ?", reviewID).
		Updates(map[string]any{
			"helpful_count":     helpful,
			"not_helpful_count": notHelpful,
			"updated_at":        time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update vote counts: %w", err)
	}
	return nil
}

// RatingDistribution counts approved reviews per star 1..5
func (r *ReviewRepositoryImpl) RatingDistribution(ctx context.Context, businessID uint) (models.RatingDistribution, error) {
	var rows []struct {
		Stars int
		Total int64
	}
	if err := r.gateway.FetchAll(ctx, &rows, ratingDistributionSQL, businessID); err != nil {
		return nil, fmt.Errorf("failed to load rating distribution: %w", err)
	}

	dist := models.RatingDistribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, row := range rows {
		if row.Stars >= 1 && row.Stars <= 5 {
			dist[row.Stars] += row.Total
		}
	}
	return dist, nil
}

// ResponseStats returns approved review count and how many of those have a response
func (r *ReviewRepositoryImpl) ResponseStats(ctx context.Context, businessID uint) (int64, int64, error) {
	var row struct {
		Approved  int64
		Responded int64
	}
	if _, err := r.gateway.FetchOne(ctx, &row, responseStatsSQL, businessID); err != nil {
		return 0, 0, fmt.Errorf("failed to load response stats: %w", err)
	}
	return row.Approved, row.Responded, nil
}

// ReviewResponseRepositoryImpl implements ReviewResponseRepository interface
type ReviewResponseRepositoryImpl struct {
	*BaseRepository[models.ReviewResponse, struct{}]
}

// NewReviewResponseRepository creates a new review response repository
func NewReviewResponseRepository(db *gorm.DB) ReviewResponseRepository {
	return &ReviewResponseRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ReviewResponse, struct{}](db, nil),
	}
}

// ByReviewID returns the business reply to a review
func (r *ReviewResponseRepositoryImpl) ByReviewID(ctx context.Context, reviewID uint) (*models.ReviewResponse, error) {
	return firstOrNil[models.ReviewResponse](r.getDB(ctx).Where("review_id = ?", reviewID), "review response")
}

// ReviewVoteRepositoryImpl implements ReviewVoteRepository interface
type ReviewVoteRepositoryImpl struct {
	*BaseRepository[models.ReviewVote, struct{}]
}

// NewReviewVoteRepository creates a new review vote repository
func NewReviewVoteRepository(db *gorm.DB) ReviewVoteRepository {
	return &ReviewVoteRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ReviewVote, struct{}](db, nil),
	}
}

// ByReviewAndUser returns the vote a user cast on a review
func (r *ReviewVoteRepositoryImpl) ByReviewAndUser(ctx context.Context, reviewID, userID uint) (*models.ReviewVote, error) {
	return firstOrNil[models.ReviewVote](
		r.getDB(ctx).Where("review_id = ? AND user_id = ?", reviewID, userID),
		"review vote",
	)
}

// CountByType counts helpful and not-helpful votes of a review
func (r *ReviewVoteRepositoryImpl) CountByType(ctx context.Context, reviewID uint) (int64, int64, error) {
	var rows []struct {
		VoteType string
		Total    int64
	}
	err := r.getDB(ctx).Model(&models.ReviewVote{}).
		Select("vote_type, COUNT(*) AS total").
		Where("review_id = ?", reviewID).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count votes: %w", err)
	}

	var helpful, notHelpful int64
	for _, row := range rows {
		switch models.VoteType(row.VoteType) {
		case models.VoteTypeHelpful:
			helpful = row.Total
		case models.VoteTypeNotHelpful:
			notHelpful = row.Total
		}
	}
	return helpful, notHelpful, nil
}

// ReviewMediaRepositoryImpl implements ReviewMediaRepository interface
type ReviewMediaRepositoryImpl struct {
	*BaseRepository[models.ReviewMedia, struct{}]
}

// NewReviewMediaRepository creates a new review media repository
func NewReviewMediaRepository(db *gorm.DB) ReviewMediaRepository {
	return &ReviewMediaRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ReviewMedia, struct{}](db, nil),
	}
}

// ListByReview lists attachments of a review oldest first
func (r *ReviewMediaRepositoryImpl) ListByReview(ctx context.Context, reviewID uint) ([]*models.ReviewMedia, error) {
	return findAll[models.ReviewMedia](r.getDB(ctx).Where("review_id = ?", reviewID).Order("id ASC"), "review media")
}
