package dto

import "github.com/amirphl/business-registry/models"

// CreateBusinessRequest represents the request payload for listing a business
type CreateBusinessRequest struct {
	LegalName       string            `json:"legal_name" validate:"required,max=255" example:"Acme Plumbing LLC"`
	TradingName     *string           `json:"trading_name,omitempty" validate:"omitempty,max=255" example:"Acme Plumbing"`
	BusinessType    string            `json:"business_type" validate:"required,max=64" example:"plumbing"`
	Description     *string           `json:"description,omitempty"`
	Email           string            `json:"email" validate:"required,email,max=255" example:"office@acme.test"`
	Phone           string            `json:"phone" validate:"required,phone_format" example:"+15551234567"`
	Website         *string           `json:"website,omitempty" validate:"omitempty,url,max=255" example:"https://acme.test"`
	AddressLine     string            `json:"address_line" validate:"required,max=255" example:"1 Main St"`
	City            string            `json:"city" validate:"required,max=100" example:"Springfield"`
	State           string            `json:"state" validate:"required,max=100" example:"IL"`
	PostalCode      *string           `json:"postal_code,omitempty" validate:"omitempty,max=20" example:"62701"`
	Country         string            `json:"country" validate:"required,max=100" example:"US"`
	YearEstablished *int              `json:"year_established,omitempty" validate:"omitempty,gte=1800,lte=2100" example:"1998"`
	EmployeeCount   *int              `json:"employee_count,omitempty" validate:"omitempty,gte=0" example:"12"`
	SocialLinks     map[string]string `json:"social_links,omitempty"`
	CategoryIDs     []uint            `json:"category_ids,omitempty"`
}

// UpdateBusinessStatusRequest sets the listing status
type UpdateBusinessStatusRequest struct {
	Status string `json:"status" validate:"required" example:"active"`
}

// UpdateAccreditationLevelRequest sets the accreditation level directly
type UpdateAccreditationLevelRequest struct {
	Level string `json:"level" validate:"required" example:"premium"`
}

// SearchBusinessesRequest holds conjunctive directory filters
type SearchBusinessesRequest struct {
	Name               string   `json:"name,omitempty" query:"name"`
	BusinessType       string   `json:"business_type,omitempty" query:"business_type"`
	City               string   `json:"city,omitempty" query:"city"`
	State              string   `json:"state,omitempty" query:"state"`
	Country            string   `json:"country,omitempty" query:"country"`
	Status             string   `json:"status,omitempty" query:"status"`
	AccreditationLevel string   `json:"accreditation_level,omitempty" query:"accreditation_level"`
	CategoryID         *uint    `json:"category_id,omitempty" query:"category_id"`
	MinRating          *float64 `json:"min_rating,omitempty" query:"min_rating" validate:"omitempty,gte=0,lte=5"`
	PaginationRequest
}

// SearchBusinessesResponse is one page of search results
type SearchBusinessesResponse struct {
	Businesses []*models.BusinessProfile `json:"businesses"`
	Pagination PaginationInfo            `json:"pagination"`
}

// BusinessDetailResponse bundles a profile with its related rows
type BusinessDetailResponse struct {
	Business   *models.BusinessProfile    `json:"business"`
	Locations  []*models.BusinessLocation `json:"locations"`
	Categories []*models.BusinessCategory `json:"categories"`
}

// LocationRequest creates or replaces a business location
type LocationRequest struct {
	Name        string  `json:"name" validate:"required,max=255" example:"Downtown"`
	AddressLine string  `json:"address_line" validate:"required,max=255"`
	City        string  `json:"city" validate:"required,max=100"`
	State       string  `json:"state" validate:"required,max=100"`
	PostalCode  *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country     string  `json:"country" validate:"required,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,phone_format"`
	IsPrimary   bool    `json:"is_primary"`
}

// UploadDocumentRequest carries a business document upload
type UploadDocumentRequest struct {
	DocumentType string `json:"document_type" validate:"required,max=64" example:"license"`
	UploadRequest
}

// VerifyDocumentRequest marks a document verified or rejected
type VerifyDocumentRequest struct {
	Status string `json:"status" validate:"required,oneof=verified rejected" example:"verified"`
}

// AssignCategoriesRequest replaces the category set of a business
type AssignCategoriesRequest struct {
	CategoryIDs []uint `json:"category_ids" validate:"max=10"`
}
