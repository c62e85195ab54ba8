package models

import (
	"database/sql/driver"
	"time"
)

// BusinessStatus represents the listing status of a business
type BusinessStatus string

const (
	BusinessStatusPending   BusinessStatus = "pending"
	BusinessStatusActive    BusinessStatus = "active"
	BusinessStatusSuspended BusinessStatus = "suspended"
	BusinessStatusRejected  BusinessStatus = "rejected"
	BusinessStatusInactive  BusinessStatus = "inactive"
)

func (s BusinessStatus) String() string { return string(s) }

// Valid checks if the status is valid
func (s BusinessStatus) Valid() bool {
	switch s {
	case BusinessStatusPending, BusinessStatusActive, BusinessStatusSuspended,
		BusinessStatusRejected, BusinessStatusInactive:
		return true
	default:
		return false
	}
}

func (s *BusinessStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s BusinessStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// AccreditationLevel is the certified-trust level carried by a business
type AccreditationLevel string

const (
	AccreditationLevelNone     AccreditationLevel = "none"
	AccreditationLevelBasic    AccreditationLevel = "basic"
	AccreditationLevelPremium  AccreditationLevel = "premium"
	AccreditationLevelVerified AccreditationLevel = "verified"
)

func (l AccreditationLevel) String() string { return string(l) }

// Valid checks if the level is valid
func (l AccreditationLevel) Valid() bool {
	switch l {
	case AccreditationLevelNone, AccreditationLevelBasic,
		AccreditationLevelPremium, AccreditationLevelVerified:
		return true
	default:
		return false
	}
}

// Applicable reports whether a business can apply for this level
func (l AccreditationLevel) Applicable() bool {
	return l.Valid() && l != AccreditationLevelNone
}

func (l *AccreditationLevel) Scan(value any) error        { return scanEnum(l, value) }
func (l AccreditationLevel) Value() (driver.Value, error) { return enumValue(l, l.Valid()) }

// SocialLinks maps a network name to a profile URL
type SocialLinks map[string]string

func (s SocialLinks) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return jsonValue(map[string]string(s))
}

func (s *SocialLinks) Scan(value any) error { return jsonScan(s, value) }

// BusinessProfile is the canonical record of a listed business
// Table: business_profiles
// Rating and TotalReviews are derived from approved reviews only
type BusinessProfile struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	BusinessID         string             `gorm:"size:32;not null;uniqueIndex:uk_business_profiles_business_id" json:"business_id"`
	OwnerID            uint               `gorm:"not null;index:idx_business_profiles_owner_id" json:"owner_id"`
	LegalName          string             `gorm:"size:255;not null;index:idx_business_profiles_legal_name" json:"legal_name"`
	TradingName        *string            `gorm:"size:255" json:"trading_name,omitempty"`
	BusinessType       string             `gorm:"size:64;not null;index:idx_business_profiles_business_type" json:"business_type"`
	Description        *string            `gorm:"type:text" json:"description,omitempty"`
	Email              string             `gorm:"size:255;not null" json:"email"`
	Phone              string             `gorm:"size:30;not null" json:"phone"`
	Website            *string            `gorm:"size:255" json:"website,omitempty"`
	AddressLine        string             `gorm:"size:255;not null" json:"address_line"`
	City               string             `gorm:"size:100;not null;index:idx_business_profiles_city" json:"city"`
	State              string             `gorm:"size:100;not null;index:idx_business_profiles_state" json:"state"`
	PostalCode         *string            `gorm:"size:20" json:"postal_code,omitempty"`
	Country            string             `gorm:"size:100;not null;index:idx_business_profiles_country" json:"country"`
	YearEstablished    *int               `json:"year_established,omitempty"`
	EmployeeCount      *int               `json:"employee_count,omitempty"`
	SocialLinks        SocialLinks        `gorm:"type:jsonb;not null;default:'{}'" json:"social_links"`
	Status             BusinessStatus     `gorm:"type:varchar(32);not null;default:'pending';index:idx_business_profiles_status" json:"status"`
	AccreditationLevel AccreditationLevel `gorm:"type:varchar(32);not null;default:'none';index:idx_business_profiles_accreditation_level" json:"accreditation_level"`
	Rating             float64            `gorm:"type:double precision;not null;default:0" json:"rating"`
	TotalReviews       int64              `gorm:"not null;default:0" json:"total_reviews"`
	CreatedAt          time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BusinessProfile) TableName() string {
	return "business_profiles"
}

// BusinessProfileFilter represents filter criteria for business queries
// Name matches legal or trading name as a case-insensitive substring
type BusinessProfileFilter struct {
	ID                 *uint
	BusinessID         *string
	OwnerID            *uint
	Name               *string
	BusinessType       *string
	City               *string
	State              *string
	Country            *string
	Status             *BusinessStatus
	AccreditationLevel *AccreditationLevel
	CategoryID         *uint
	MinRating          *float64
}

// BusinessLocation is a physical location of a business
type BusinessLocation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BusinessID  uint      `gorm:"not null;index:idx_business_locations_business_id" json:"business_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	AddressLine string    `gorm:"size:255;not null" json:"address_line"`
	City        string    `gorm:"size:100;not null" json:"city"`
	State       string    `gorm:"size:100;not null" json:"state"`
	PostalCode  *string   `gorm:"size:20" json:"postal_code,omitempty"`
	Country     string    `gorm:"size:100;not null" json:"country"`
	Phone       *string   `gorm:"size:30" json:"phone,omitempty"`
	IsPrimary   bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BusinessLocation) TableName() string {
	return "business_locations"
}

// DocumentStatus is the verification state of an uploaded business document
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusVerified DocumentStatus = "verified"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// Valid checks if the status is valid
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusVerified, DocumentStatusRejected:
		return true
	default:
		return false
	}
}

func (s *DocumentStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s DocumentStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// BusinessDocument is a file supporting a business listing or accreditation
type BusinessDocument struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	BusinessID       uint           `gorm:"not null;index:idx_business_documents_business_id" json:"business_id"`
	DocumentType     string         `gorm:"size:64;not null" json:"document_type"`
	OriginalFilename string         `gorm:"size:255;not null" json:"original_filename"`
	StoredPath       string         `gorm:"size:512;not null" json:"-"`
	MimeType         string         `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes        int64          `gorm:"not null" json:"size_bytes"`
	Status           DocumentStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	VerifiedBy       *uint          `json:"verified_by,omitempty"`
	VerifiedAt       *time.Time     `json:"verified_at,omitempty"`
	CreatedAt        time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BusinessDocument) TableName() string {
	return "business_documents"
}

// BusinessCategory is a directory category
type BusinessCategory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Slug      string    `gorm:"size:100;not null;uniqueIndex:uk_business_categories_slug" json:"slug"`
	ParentID  *uint     `json:"parent_id,omitempty"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BusinessCategory) TableName() string {
	return "business_categories"
}

// BusinessCategoryAssignment is the junction between businesses and categories
type BusinessCategoryAssignment struct {
	BusinessID uint      `gorm:"primaryKey" json:"business_id"`
	CategoryID uint      `gorm:"primaryKey" json:"category_id"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BusinessCategoryAssignment) TableName() string {
	return "business_category_assignments"
}

// SearchFilters is the JSON snapshot of a directory search
type SearchFilters map[string]string

func (f SearchFilters) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return jsonValue(map[string]string(f))
}

func (f *SearchFilters) Scan(value any) error { return jsonScan(f, value) }

// SearchHistory records a directory search for analytics
type SearchHistory struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      *uint         `gorm:"index:idx_search_history_user_id" json:"user_id,omitempty"`
	Query       string        `gorm:"size:255;not null" json:"query"`
	Filters     SearchFilters `gorm:"type:jsonb;not null;default:'{}'" json:"filters"`
	ResultCount int64         `gorm:"not null;default:0" json:"result_count"`
	CreatedAt   time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SearchHistory) TableName() string {
	return "search_history"
}
