package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/business-registry/models"
	"gorm.io/gorm"
)

// MessageRepositoryImpl implements MessageRepository interface
type MessageRepositoryImpl struct {
	*BaseRepository[models.Message, models.MessageFilter]
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &MessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Message](db, applyMessageFilter),
	}
}

func applyMessageFilter(db *gorm.DB, filter models.MessageFilter) *gorm.DB {
	if filter.SenderID != nil {
		db = db.Where("sender_id = ?", *filter.SenderID)
	}
	if filter.RecipientID != nil {
		db = db.Where("recipient_id = ?", *filter.RecipientID)
	}
	if filter.ParentID != nil {
		db = db.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.Unread != nil {
		if *filter.Unread {
			db = db.Where("read_at IS NULL")
		} else {
			db = db.Where("read_at IS NOT NULL")
		}
	}
	return db
}

// MarkRead stamps read_at once
func (r *MessageRepositoryImpl) MarkRead(ctx context.Context, id uint, at time.Time) error {
	err := r.getDB(ctx).Model(&models.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}

// NotificationRepositoryImpl implements NotificationRepository interface
type NotificationRepositoryImpl struct {
	*BaseRepository[models.Notification, models.NotificationFilter]
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Notification](db, applyNotificationFilter),
	}
}

func applyNotificationFilter(db *gorm.DB, filter models.NotificationFilter) *gorm.DB {
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.Unread != nil {
		if *filter.Unread {
			db = db.Where("read_at IS NULL")
		} else {
			db = db.Where("read_at IS NOT NULL")
		}
	}
	return db
}

// MarkRead stamps read_at once
func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id uint, at time.Time) error {
	err := r.getDB(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead stamps every unread notification of a user
func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := r.getDB(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ChatSessionRepositoryImpl implements ChatSessionRepository interface
type ChatSessionRepositoryImpl struct {
	*BaseRepository[models.ChatSession, struct{}]
}

// NewChatSessionRepository creates a new chat session repository
func NewChatSessionRepository(db *gorm.DB) ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ChatSession, struct{}](db, nil),
	}
}

// OpenFor returns the open session between a user and a business
func (r *ChatSessionRepositoryImpl) OpenFor(ctx context.Context, businessID, userID uint) (*models.ChatSession, error) {
	return firstOrNil[models.ChatSession](
		r.getDB(ctx).
			Where("business_id = ? AND user_id = ? AND status = ?", businessID, userID, models.ChatSessionStatusOpen).
			Order("id DESC"),
		"open chat session",
	)
}

// TouchActivity stamps last_activity_at
func (r *ChatSessionRepositoryImpl) TouchActivity(ctx context.Context, id uint, at time.Time) error {
	err := r.getDB(ctx).Model(&models.ChatSession{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to touch chat session: %w", err)
	}
	return nil
}

// ChatMessageRepositoryImpl implements ChatMessageRepository interface
type ChatMessageRepositoryImpl struct {
	*BaseRepository[models.ChatMessage, struct{}]
}

// NewChatMessageRepository creates a new chat message repository
func NewChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ChatMessage, struct{}](db, nil),
	}
}

// ListBySession pages chat lines oldest first
func (r *ChatMessageRepositoryImpl) ListBySession(ctx context.Context, sessionID uint, limit, offset int) ([]*models.ChatMessage, error) {
	query := r.getDB(ctx).Where("session_id = ?", sessionID).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return findAll[models.ChatMessage](query, "chat messages")
}
