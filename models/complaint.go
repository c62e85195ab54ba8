package models

import (
	"database/sql/driver"
	"time"
)

// ComplaintStatus is the handling state of a complaint
type ComplaintStatus string

const (
	ComplaintStatusNew         ComplaintStatus = "new"
	ComplaintStatusInProgress  ComplaintStatus = "in_progress"
	ComplaintStatusUnderReview ComplaintStatus = "under_review"
	ComplaintStatusResolved    ComplaintStatus = "resolved"
	ComplaintStatusClosed      ComplaintStatus = "closed"
	ComplaintStatusRejected    ComplaintStatus = "rejected"
	ComplaintStatusEscalated   ComplaintStatus = "escalated"
)

var complaintTransitions = map[ComplaintStatus][]ComplaintStatus{
	ComplaintStatusNew:         {ComplaintStatusInProgress, ComplaintStatusUnderReview, ComplaintStatusRejected, ComplaintStatusEscalated, ComplaintStatusClosed},
	ComplaintStatusInProgress:  {ComplaintStatusUnderReview, ComplaintStatusResolved, ComplaintStatusClosed, ComplaintStatusEscalated},
	ComplaintStatusUnderReview: {ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusClosed, ComplaintStatusRejected, ComplaintStatusEscalated},
	ComplaintStatusEscalated:   {ComplaintStatusInProgress, ComplaintStatusUnderReview, ComplaintStatusResolved, ComplaintStatusClosed, ComplaintStatusRejected},
	ComplaintStatusResolved:    {ComplaintStatusClosed, ComplaintStatusInProgress, ComplaintStatusEscalated},
	ComplaintStatusClosed:      {ComplaintStatusEscalated},
	ComplaintStatusRejected:    {ComplaintStatusEscalated},
}

func (s ComplaintStatus) String() string { return string(s) }

// Valid checks if the status is valid
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusNew, ComplaintStatusInProgress, ComplaintStatusUnderReview,
		ComplaintStatusResolved, ComplaintStatusClosed, ComplaintStatusRejected,
		ComplaintStatusEscalated:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether target is reachable from s
func (s ComplaintStatus) CanTransitionTo(target ComplaintStatus) bool {
	for _, next := range complaintTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s *ComplaintStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s ComplaintStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// ComplaintPriority is the triage priority of a complaint
type ComplaintPriority string

const (
	ComplaintPriorityLow    ComplaintPriority = "low"
	ComplaintPriorityMedium ComplaintPriority = "medium"
	ComplaintPriorityHigh   ComplaintPriority = "high"
	ComplaintPriorityUrgent ComplaintPriority = "urgent"
)

// Valid checks if the priority is valid
func (p ComplaintPriority) Valid() bool {
	switch p {
	case ComplaintPriorityLow, ComplaintPriorityMedium, ComplaintPriorityHigh, ComplaintPriorityUrgent:
		return true
	default:
		return false
	}
}

func (p *ComplaintPriority) Scan(value any) error        { return scanEnum(p, value) }
func (p ComplaintPriority) Value() (driver.Value, error) { return enumValue(p, p.Valid()) }

// ComplaintType categorizes what a complaint is about
type ComplaintType string

const (
	ComplaintTypeBilling        ComplaintType = "billing"
	ComplaintTypeProductQuality ComplaintType = "product_quality"
	ComplaintTypeService        ComplaintType = "service"
	ComplaintTypeDelivery       ComplaintType = "delivery"
	ComplaintTypeWarranty       ComplaintType = "warranty"
	ComplaintTypeAdvertising    ComplaintType = "advertising"
	ComplaintTypeContract       ComplaintType = "contract"
	ComplaintTypeRefund         ComplaintType = "refund"
	ComplaintTypeOther          ComplaintType = "other"
)

// Valid checks if the complaint type is valid
func (t ComplaintType) Valid() bool {
	switch t {
	case ComplaintTypeBilling, ComplaintTypeProductQuality, ComplaintTypeService,
		ComplaintTypeDelivery, ComplaintTypeWarranty, ComplaintTypeAdvertising,
		ComplaintTypeContract, ComplaintTypeRefund, ComplaintTypeOther:
		return true
	default:
		return false
	}
}

func (t *ComplaintType) Scan(value any) error        { return scanEnum(t, value) }
func (t ComplaintType) Value() (driver.Value, error) { return enumValue(t, t.Valid()) }

// Complaint is a consumer complaint filed against a business
// Table: complaints
// ComplaintID is the human-readable identifier CMP-YYYYMMDD-XXXXXX
type Complaint struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	ComplaintID       string            `gorm:"size:32;not null;uniqueIndex:uk_complaints_complaint_id" json:"complaint_id"`
	UserID            uint              `gorm:"not null;index:idx_complaints_user_id" json:"user_id"`
	BusinessID        uint              `gorm:"not null;index:idx_complaints_business_id" json:"business_id"`
	Title             string            `gorm:"size:255;not null" json:"title"`
	Description       string            `gorm:"type:text;not null" json:"description"`
	ComplaintType     ComplaintType     `gorm:"type:varchar(32);not null;index:idx_complaints_type" json:"complaint_type"`
	Status            ComplaintStatus   `gorm:"type:varchar(32);not null;default:'new';index:idx_complaints_status" json:"status"`
	Priority          ComplaintPriority `gorm:"type:varchar(16);not null;default:'medium'" json:"priority"`
	DesiredResolution *string           `gorm:"type:text" json:"desired_resolution,omitempty"`
	AmountDisputed    *float64          `gorm:"type:numeric(12,2)" json:"amount_disputed,omitempty"`
	AssignedTo        *uint             `gorm:"index:idx_complaints_assigned_to" json:"assigned_to,omitempty"`
	EscalatedAt       *time.Time        `json:"escalated_at,omitempty"`
	EscalatedBy       *uint             `json:"escalated_by,omitempty"`
	EscalationReason  *string           `gorm:"type:text" json:"escalation_reason,omitempty"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt         time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Complaint) TableName() string {
	return "complaints"
}

// ComplaintFilter represents filter criteria for complaint queries
type ComplaintFilter struct {
	ID            *uint
	ComplaintID   *string
	UserID        *uint
	BusinessID    *uint
	Status        *ComplaintStatus
	Priority      *ComplaintPriority
	ComplaintType *ComplaintType
	AssignedTo    *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ThreadMessageType classifies a complaint thread entry
type ThreadMessageType string

const (
	ThreadMessageTypeComplaintCreated ThreadMessageType = "complaint_created"
	ThreadMessageTypeMessage          ThreadMessageType = "message"
	ThreadMessageTypeStatusUpdate     ThreadMessageType = "status_update"
	ThreadMessageTypePriorityUpdate   ThreadMessageType = "priority_update"
	ThreadMessageTypeResolutionNote   ThreadMessageType = "resolution_note"
	ThreadMessageTypeInternalNote     ThreadMessageType = "internal_note"
)

// Valid checks if the message type is valid
func (t ThreadMessageType) Valid() bool {
	switch t {
	case ThreadMessageTypeComplaintCreated, ThreadMessageTypeMessage, ThreadMessageTypeStatusUpdate,
		ThreadMessageTypePriorityUpdate, ThreadMessageTypeResolutionNote, ThreadMessageTypeInternalNote:
		return true
	default:
		return false
	}
}

// Postable reports whether a caller may post this type through AddThreadMessage.
// complaint_created is written only when the complaint is filed.
func (t ThreadMessageType) Postable() bool {
	return t.Valid() && t != ThreadMessageTypeComplaintCreated
}

func (t *ThreadMessageType) Scan(value any) error        { return scanEnum(t, value) }
func (t ThreadMessageType) Value() (driver.Value, error) { return enumValue(t, t.Valid()) }

// ComplaintThread is an append-only entry in a complaint's conversation
type ComplaintThread struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	ComplaintID uint              `gorm:"not null;index:idx_complaint_threads_complaint_id" json:"complaint_id"`
	UserID      uint              `gorm:"not null" json:"user_id"`
	Message     string            `gorm:"type:text;not null" json:"message"`
	MessageType ThreadMessageType `gorm:"type:varchar(32);not null" json:"message_type"`
	IsInternal  bool              `gorm:"not null;default:false" json:"is_internal"`
	CreatedAt   time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ComplaintThread) TableName() string {
	return "complaint_threads"
}

// ComplaintEvidence is a file attached to a complaint
type ComplaintEvidence struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ComplaintID      uint      `gorm:"not null;index:idx_complaint_evidence_complaint_id" json:"complaint_id"`
	UploadedBy       uint      `gorm:"not null" json:"uploaded_by"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	StoredPath       string    `gorm:"size:512;not null" json:"-"`
	MimeType         string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes        int64     `gorm:"not null" json:"size_bytes"`
	Description      *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ComplaintEvidence) TableName() string {
	return "complaint_evidence"
}

// ComplaintStatistics are read-only aggregates over a business's complaints
type ComplaintStatistics struct {
	Total                  int64                     `json:"total"`
	Resolved               int64                     `json:"resolved"`
	ResolutionRate         float64                   `json:"resolution_rate"`
	AverageResolutionHours float64                   `json:"average_resolution_hours"`
	ByStatus               map[ComplaintStatus]int64 `json:"by_status"`
	ByType                 map[ComplaintType]int64   `json:"by_type"`
}
