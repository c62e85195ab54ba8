package models

import (
	"database/sql/driver"
	"time"
)

// AccreditationStatus is the state of an accreditation application
type AccreditationStatus string

const (
	AccreditationStatusPending        AccreditationStatus = "pending"
	AccreditationStatusApproved       AccreditationStatus = "approved"
	AccreditationStatusRejected       AccreditationStatus = "rejected"
	AccreditationStatusExpired        AccreditationStatus = "expired"
	AccreditationStatusSuspended      AccreditationStatus = "suspended"
	AccreditationStatusRenewalPending AccreditationStatus = "renewal_pending"
)

// accreditationTransitions lists the legal (current, target) pairs
var accreditationTransitions = map[AccreditationStatus][]AccreditationStatus{
	AccreditationStatusPending:        {AccreditationStatusApproved, AccreditationStatusRejected},
	AccreditationStatusApproved:       {AccreditationStatusRenewalPending, AccreditationStatusSuspended, AccreditationStatusExpired},
	AccreditationStatusRenewalPending: {AccreditationStatusApproved, AccreditationStatusRejected, AccreditationStatusExpired},
	AccreditationStatusSuspended:      {AccreditationStatusApproved, AccreditationStatusExpired},
}

func (s AccreditationStatus) String() string { return string(s) }

// Valid checks if the status is valid
func (s AccreditationStatus) Valid() bool {
	switch s {
	case AccreditationStatusPending, AccreditationStatusApproved, AccreditationStatusRejected,
		AccreditationStatusExpired, AccreditationStatusSuspended, AccreditationStatusRenewalPending:
		return true
	default:
		return false
	}
}

// IsManualTarget reports whether a reviewer may set this status directly.
// pending and renewal_pending are only reached through applications.
func (s AccreditationStatus) IsManualTarget() bool {
	switch s {
	case AccreditationStatusApproved, AccreditationStatusRejected,
		AccreditationStatusSuspended, AccreditationStatusExpired:
		return true
	default:
		return false
	}
}

// IsOpenApplication reports whether the record blocks a new application
func (s AccreditationStatus) IsOpenApplication() bool {
	return s == AccreditationStatusPending || s == AccreditationStatusRenewalPending
}

// RevokesLevel reports whether entering this status resets the business level
func (s AccreditationStatus) RevokesLevel() bool {
	switch s {
	case AccreditationStatusRejected, AccreditationStatusSuspended, AccreditationStatusExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether target is reachable from s
func (s AccreditationStatus) CanTransitionTo(target AccreditationStatus) bool {
	for _, next := range accreditationTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s *AccreditationStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s AccreditationStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// AccreditationDocument references supporting evidence of an application
type AccreditationDocument struct {
	DocumentID *uint  `json:"document_id,omitempty"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
}

// AccreditationDocuments is stored as a JSON array
type AccreditationDocuments []AccreditationDocument

func (d AccreditationDocuments) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return jsonValue([]AccreditationDocument(d))
}

func (d *AccreditationDocuments) Scan(value any) error { return jsonScan(d, value) }

// Accreditation is one application of a business for an accreditation level
// Table: accreditations
type Accreditation struct {
	ID                 uint                   `gorm:"primaryKey" json:"id"`
	BusinessID         uint                   `gorm:"not null;index:idx_accreditations_business_id" json:"business_id"`
	AccreditationLevel AccreditationLevel     `gorm:"type:varchar(32);not null" json:"accreditation_level"`
	Status             AccreditationStatus    `gorm:"type:varchar(32);not null;default:'pending';index:idx_accreditations_status" json:"status"`
	Documents          AccreditationDocuments `gorm:"type:jsonb;not null;default:'[]'" json:"documents"`
	Notes              *string                `gorm:"type:text" json:"notes,omitempty"`
	ReviewedBy         *uint                  `json:"reviewed_by,omitempty"`
	ApprovedDate       *time.Time             `json:"approved_date,omitempty"`
	ExpiryDate         *time.Time             `gorm:"index:idx_accreditations_expiry_date" json:"expiry_date,omitempty"`
	CreatedAt          time.Time              `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time              `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Accreditation) TableName() string {
	return "accreditations"
}

// AccreditationFilter represents filter criteria for accreditation queries
type AccreditationFilter struct {
	ID            *uint
	BusinessID    *uint
	Status        *AccreditationStatus
	Statuses      []AccreditationStatus
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
}

// AccreditationHistory is an immutable log entry of one status change.
// OldStatus is empty for the entry written with the application.
type AccreditationHistory struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AccreditationID uint      `gorm:"not null;index:idx_accreditation_history_accreditation_id" json:"accreditation_id"`
	OldStatus       string    `gorm:"size:32;not null;default:''" json:"old_status"`
	NewStatus       string    `gorm:"size:32;not null" json:"new_status"`
	Notes           *string   `gorm:"type:text" json:"notes,omitempty"`
	ChangedBy       *uint     `json:"changed_by,omitempty"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AccreditationHistory) TableName() string {
	return "accreditation_history"
}
