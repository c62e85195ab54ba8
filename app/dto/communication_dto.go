package dto

import "github.com/amirphl/business-registry/models"

// SendMessageRequest sends a direct message
type SendMessageRequest struct {
	RecipientID uint   `json:"recipient_id" validate:"required"`
	BusinessID  *uint  `json:"business_id,omitempty"`
	ParentID    *uint  `json:"parent_id,omitempty"`
	Subject     string `json:"subject" validate:"required,max=255"`
	Body        string `json:"body" validate:"required"`
}

// ListMessagesRequest selects inbox or sent box
type ListMessagesRequest struct {
	Box        string `json:"box,omitempty" query:"box" validate:"omitempty,oneof=inbox sent"`
	UnreadOnly bool   `json:"unread_only,omitempty" query:"unread_only"`
	PaginationRequest
}

// ListMessagesResponse is one page of messages plus the unread inbox count
type ListMessagesResponse struct {
	Messages    []*models.Message `json:"messages"`
	UnreadCount int64             `json:"unread_count"`
	Pagination  PaginationInfo    `json:"pagination"`
}

// CreateNotificationRequest is used by staff tooling to notify a user
type CreateNotificationRequest struct {
	UserID uint           `json:"user_id" validate:"required"`
	Type   string         `json:"type" validate:"required,max=64"`
	Title  string         `json:"title" validate:"required,max=255"`
	Body   string         `json:"body" validate:"required"`
	Data   map[string]any `json:"data,omitempty"`
}

// ListNotificationsRequest filters notifications
type ListNotificationsRequest struct {
	UnreadOnly bool `json:"unread_only,omitempty" query:"unread_only"`
	PaginationRequest
}

// ListNotificationsResponse is one page of notifications plus the unread count
type ListNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
	Pagination    PaginationInfo         `json:"pagination"`
}

// StartChatRequest opens a live chat with a business
type StartChatRequest struct {
	BusinessID uint `json:"business_id" validate:"required"`
}

// ChatMessageRequest posts a chat line
type ChatMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// ChatTranscriptResponse is a chat session with a page of its lines
type ChatTranscriptResponse struct {
	Session  *models.ChatSession   `json:"session"`
	Messages []*models.ChatMessage `json:"messages"`
}
