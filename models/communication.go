package models

import (
	"database/sql/driver"
	"time"
)

// Message is a direct message between two users, optionally about a business
type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    uint       `gorm:"not null;index:idx_messages_sender_id" json:"sender_id"`
	RecipientID uint       `gorm:"not null;index:idx_messages_recipient_id" json:"recipient_id"`
	BusinessID  *uint      `gorm:"index:idx_messages_business_id" json:"business_id,omitempty"`
	ParentID    *uint      `gorm:"index:idx_messages_parent_id" json:"parent_id,omitempty"`
	Subject     string     `gorm:"size:255;not null" json:"subject"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// MessageFilter represents filter criteria for message queries
type MessageFilter struct {
	SenderID    *uint
	RecipientID *uint
	ParentID    *uint
	Unread      *bool
}

// NotificationData is the variable-shape payload of a notification
type NotificationData map[string]any

func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return jsonValue(map[string]any(d))
}

func (d *NotificationData) Scan(value any) error { return jsonScan(d, value) }

// Notification types emitted by the flows
const (
	NotificationTypeReviewReceived       = "review_received"
	NotificationTypeReviewResponse       = "review_response"
	NotificationTypeComplaintFiled       = "complaint_filed"
	NotificationTypeComplaintUpdated     = "complaint_updated"
	NotificationTypeAccreditationUpdated = "accreditation_updated"
	NotificationTypeAccreditationExpiry  = "accreditation_expiring"
	NotificationTypeMessageReceived      = "message_received"
)

// Notification is an in-app notification for one user
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_user_id" json:"user_id"`
	Type      string           `gorm:"size:64;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Body      string           `gorm:"type:text;not null" json:"body"`
	Data      NotificationData `gorm:"type:jsonb;not null;default:'{}'" json:"data"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationFilter represents filter criteria for notification queries
type NotificationFilter struct {
	UserID *uint
	Type   *string
	Unread *bool
}

// ChatSessionStatus is the state of a live chat session
type ChatSessionStatus string

const (
	ChatSessionStatusOpen   ChatSessionStatus = "open"
	ChatSessionStatusClosed ChatSessionStatus = "closed"
)

// Valid checks if the status is valid
func (s ChatSessionStatus) Valid() bool {
	return s == ChatSessionStatusOpen || s == ChatSessionStatusClosed
}

func (s *ChatSessionStatus) Scan(value any) error        { return scanEnum(s, value) }
func (s ChatSessionStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

// ChatSession is a live chat between a user and a business
type ChatSession struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	BusinessID     uint              `gorm:"not null;index:idx_chat_sessions_business_id" json:"business_id"`
	UserID         uint              `gorm:"not null;index:idx_chat_sessions_user_id" json:"user_id"`
	Status         ChatSessionStatus `gorm:"type:varchar(16);not null;default:'open'" json:"status"`
	LastActivityAt time.Time         `gorm:"not null" json:"last_activity_at"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
	CreatedAt      time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage is one line of a chat session
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index:idx_chat_messages_session_id" json:"session_id"`
	SenderID  uint      `gorm:"not null" json:"sender_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
