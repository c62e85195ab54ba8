package dto

import "github.com/amirphl/business-registry/models"

// ApplyAccreditationRequest represents an accreditation application
type ApplyAccreditationRequest struct {
	BusinessID uint                           `json:"business_id" validate:"required" example:"7"`
	Level      string                         `json:"level" validate:"required" example:"premium"`
	Documents  []models.AccreditationDocument `json:"documents,omitempty" validate:"omitempty,dive"`
}

// UpdateAccreditationStatusRequest is a reviewer decision
type UpdateAccreditationStatusRequest struct {
	Status string  `json:"status" validate:"required" example:"approved"`
	Notes  *string `json:"notes,omitempty"`
}

// AccreditationDetailResponse bundles a record with its status log
type AccreditationDetailResponse struct {
	Accreditation *models.Accreditation          `json:"accreditation"`
	History       []*models.AccreditationHistory `json:"history"`
}
