package dto

import "github.com/amirphl/business-registry/models"

// CreateReviewRequest represents the request payload for reviewing a business
type CreateReviewRequest struct {
	BusinessID      uint               `json:"business_id" validate:"required" example:"7"`
	Title           string             `json:"title" validate:"required,notblank,max=255" example:"Fast and friendly"`
	Content         string             `json:"content" validate:"required,notblank" example:"Fixed our sink the same day."`
	Rating          float64            `json:"rating" example:"4.5"`
	RatingBreakdown map[string]float64 `json:"rating_breakdown,omitempty"`
}

// UpdateReviewRequest is an author edit
type UpdateReviewRequest struct {
	Title           *string            `json:"title,omitempty" validate:"omitempty,max=255"`
	Content         *string            `json:"content,omitempty"`
	Rating          *float64           `json:"rating,omitempty"`
	RatingBreakdown map[string]float64 `json:"rating_breakdown,omitempty"`
}

// ModerateReviewRequest is a moderator decision
type ModerateReviewRequest struct {
	Status string  `json:"status" validate:"required" example:"approved"`
	Reason *string `json:"reason,omitempty"`
}

// ReviewResponseRequest is the business's reply to a review
type ReviewResponseRequest struct {
	BusinessID uint   `json:"business_id" validate:"required" example:"7"`
	Response   string `json:"response" validate:"required,notblank" example:"Thanks for the kind words!"`
}

// VoteRequest casts a helpfulness vote
type VoteRequest struct {
	VoteType string `json:"vote_type" validate:"required" example:"helpful"`
}

// VoteResponse is the caller's vote after toggling plus refreshed counts
type VoteResponse struct {
	ReviewID        uint    `json:"review_id"`
	VoteType        *string `json:"vote_type"`
	HelpfulCount    int64   `json:"helpful_count"`
	NotHelpfulCount int64   `json:"not_helpful_count"`
}

// ListReviewsRequest filters a business's or user's reviews
type ListReviewsRequest struct {
	Status string `json:"status,omitempty" query:"status"`
	PaginationRequest
}

// ListReviewsResponse is one page of reviews
type ListReviewsResponse struct {
	Reviews    []*models.Review `json:"reviews"`
	Pagination PaginationInfo   `json:"pagination"`
}

// ReviewDetailResponse bundles a review with its response and media
type ReviewDetailResponse struct {
	Review   *models.Review         `json:"review"`
	Response *models.ReviewResponse `json:"response,omitempty"`
	Media    []*models.ReviewMedia  `json:"media"`
}

// ReviewSummaryResponse holds the read-only review aggregates of a business
type ReviewSummaryResponse struct {
	BusinessID   uint                      `json:"business_id"`
	Rating       float64                   `json:"rating"`
	TotalReviews int64                     `json:"total_reviews"`
	Distribution models.RatingDistribution `json:"distribution"`
	ResponseRate float64                   `json:"response_rate"`
}
