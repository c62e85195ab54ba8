package dto

import "github.com/amirphl/business-registry/models"

// CreateComplaintRequest represents the request payload for filing a complaint
type CreateComplaintRequest struct {
	BusinessID        uint     `json:"business_id" validate:"required" example:"7"`
	Title             string   `json:"title" validate:"required,notblank,max=255" example:"Charged twice"`
	Description       string   `json:"description" validate:"required,notblank" example:"My card was charged twice for one visit."`
	ComplaintType     string   `json:"complaint_type" validate:"required" example:"billing"`
	Priority          string   `json:"priority,omitempty" example:"medium"`
	DesiredResolution *string  `json:"desired_resolution,omitempty"`
	AmountDisputed    *float64 `json:"amount_disputed,omitempty" validate:"omitempty,gte=0"`
	CaptchaID         string   `json:"captcha_id,omitempty"`
	CaptchaAngle      float64  `json:"captcha_angle,omitempty"`
}

// UpdateComplaintStatusRequest moves a complaint through its workflow
type UpdateComplaintStatusRequest struct {
	Status string `json:"status" validate:"required" example:"in_progress"`
	Note   string `json:"note,omitempty"`
}

// EscalateComplaintRequest escalates a complaint
type EscalateComplaintRequest struct {
	Reason string `json:"reason" validate:"required,notblank" example:"No response in 14 days"`
}

// ThreadMessageRequest posts an entry to a complaint thread
type ThreadMessageRequest struct {
	Message     string `json:"message" validate:"required,notblank"`
	MessageType string `json:"message_type,omitempty" example:"message"`
	IsInternal  bool   `json:"is_internal"`
}

// UpdatePriorityRequest changes the triage priority
type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required" example:"high"`
}

// AssignComplaintRequest assigns a handler
type AssignComplaintRequest struct {
	AssigneeID uint `json:"assignee_id" validate:"required"`
}

// UploadEvidenceRequest carries a complaint evidence upload
type UploadEvidenceRequest struct {
	Description *string `json:"description,omitempty"`
	UploadRequest
}

// ListComplaintsRequest filters complaints
type ListComplaintsRequest struct {
	BusinessID *uint  `json:"business_id,omitempty" query:"business_id"`
	UserID     *uint  `json:"user_id,omitempty" query:"user_id"`
	Status     string `json:"status,omitempty" query:"status"`
	Priority   string `json:"priority,omitempty" query:"priority"`
	PaginationRequest
}

// ListComplaintsResponse is one page of complaints
type ListComplaintsResponse struct {
	Complaints []*models.Complaint `json:"complaints"`
	Pagination PaginationInfo      `json:"pagination"`
}

// ComplaintDetailResponse bundles a complaint with its visible thread and evidence
type ComplaintDetailResponse struct {
	Complaint *models.Complaint           `json:"complaint"`
	Thread    []*models.ComplaintThread   `json:"thread"`
	Evidence  []*models.ComplaintEvidence `json:"evidence"`
}
