package models

import (
	"database/sql/driver"
	"time"
)

// ReviewStatus is the moderation state of a review
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusFlagged  ReviewStatus = "flagged"
	ReviewStatusEdited   ReviewStatus = "edited"
)

func (s ReviewStatus) String() string { return string(s) }

// Valid checks if the status is valid
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected,
		ReviewStatusFlagged, ReviewStatusEdited:
		return true
	default:
		return false
	}
}

// IsModerationTarget reports whether a moderator may set this status.
// edited is only reached by the author changing the review.
func (s ReviewStatus) IsModerationTarget() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected, ReviewStatusFlagged:
		return true
	default:
		return false
	}
}

func (s *ReviewStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s ReviewStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// RatingBreakdown holds per-criterion scores such as service or value
type RatingBreakdown map[string]float64

func (b RatingBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return jsonValue(map[string]float64(b))
}

func (b *RatingBreakdown) Scan(value any) error { return jsonScan(b, value) }

// Mean returns the arithmetic mean of the scores
func (b RatingBreakdown) Mean() float64 {
	if len(b) == 0 {
		return 0
	}
	var sum float64
	for _, v := range b {
		sum += v
	}
	return sum / float64(len(b))
}

// Review is a user's review of one business
// Table: reviews
// Unique (user_id, business_id)
type Review struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"not null;uniqueIndex:uk_reviews_user_business" json:"user_id"`
	BusinessID       uint            `gorm:"not null;uniqueIndex:uk_reviews_user_business;index:idx_reviews_business_id" json:"business_id"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Content          string          `gorm:"type:text;not null" json:"content"`
	Rating           float64         `gorm:"type:double precision;not null" json:"rating"`
	RatingBreakdown  RatingBreakdown `gorm:"type:jsonb" json:"rating_breakdown,omitempty"`
	Status           ReviewStatus    `gorm:"type:varchar(16);not null;default:'pending';index:idx_reviews_status" json:"status"`
	ModerationReason *string         `gorm:"type:text" json:"moderation_reason,omitempty"`
	ModeratedBy      *uint           `json:"moderated_by,omitempty"`
	ModeratedAt      *time.Time      `json:"moderated_at,omitempty"`
	HelpfulCount     int64           `gorm:"not null;default:0" json:"helpful_count"`
	NotHelpfulCount  int64           `gorm:"not null;default:0" json:"not_helpful_count"`
	CreatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// ReviewFilter represents filter criteria for review queries
type ReviewFilter struct {
	ID         *uint
	UserID     *uint
	BusinessID *uint
	Status     *ReviewStatus
	MinRating  *float64
}

// ReviewResponse is the business's single public reply to a review
type ReviewResponse struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ReviewID     uint      `gorm:"not null;uniqueIndex:uk_review_responses_review_id" json:"review_id"`
	BusinessID   uint      `gorm:"not null;index:idx_review_responses_business_id" json:"business_id"`
	RespondentID uint      `gorm:"not null" json:"respondent_id"`
	Response     string    `gorm:"type:text;not null" json:"response"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ReviewResponse) TableName() string {
	return "review_responses"
}

// VoteType is a helpfulness vote on a review
type VoteType string

const (
	VoteTypeHelpful    VoteType = "helpful"
	VoteTypeNotHelpful VoteType = "not_helpful"
)

// Valid checks if the vote type is valid
func (v VoteType) Valid() bool {
	return v == VoteTypeHelpful || v == VoteTypeNotHelpful
}

func (v *VoteType) Scan(value any) error        { return scanEnum(v, value) }
func (v VoteType) Value() (driver.Value, error) { return enumValue(v, v.Valid()) }

// ReviewVote is one user's vote on one review
// Unique (review_id, user_id)
type ReviewVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReviewID  uint      `gorm:"not null;uniqueIndex:uk_review_votes_review_user" json:"review_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_review_votes_review_user" json:"user_id"`
	VoteType  VoteType  `gorm:"type:varchar(16);not null" json:"vote_type"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ReviewVote) TableName() string {
	return "review_votes"
}

// ReviewMedia is an image attached to a review
type ReviewMedia struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ReviewID         uint      `gorm:"not null;index:idx_review_media_review_id" json:"review_id"`
	UploadedBy       uint      `gorm:"not null" json:"uploaded_by"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	StoredPath       string    `gorm:"size:512;not null" json:"-"`
	MimeType         string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes        int64     `gorm:"not null" json:"size_bytes"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ReviewMedia) TableName() string {
	return "review_media"
}

// RatingDistribution counts approved reviews per star, 1 through 5
type RatingDistribution map[int]int64
