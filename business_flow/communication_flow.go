package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
)

// CommunicationFlow covers direct messages, in-app notifications and live chat
type CommunicationFlow interface {
	SendMessage(ctx context.Context, senderID uint, req *dto.SendMessageRequest) (*models.Message, error)
	ListMessages(ctx context.Context, userID uint, req *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error)
	MarkMessageRead(ctx context.Context, messageID, userID uint) error
	GetMessageThread(ctx context.Context, messageID, userID uint) ([]*models.Message, error)

	CreateNotification(ctx context.Context, req *dto.CreateNotificationRequest) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID uint, req *dto.ListNotificationsRequest) (*dto.ListNotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID uint) error
	MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error)
	UnreadNotificationCount(ctx context.Context, userID uint) (int64, error)

	StartChat(ctx context.Context, userID uint, req *dto.StartChatRequest) (*models.ChatSession, error)
	PostChatMessage(ctx context.Context, sessionID, senderID uint, req *dto.ChatMessageRequest) (*models.ChatMessage, error)
	GetChatTranscript(ctx context.Context, sessionID, actorID uint, req *dto.PaginationRequest) (*dto.ChatTranscriptResponse, error)
	CloseChat(ctx context.Context, sessionID, actorID uint) (*models.ChatSession, error)
}

// CommunicationFlowImpl implements CommunicationFlow
type CommunicationFlowImpl struct {
	messageRepo      repository.MessageRepository
	notificationRepo repository.NotificationRepository
	chatSessionRepo  repository.ChatSessionRepository
	chatMessageRepo  repository.ChatMessageRepository
	businessRepo     repository.BusinessProfileRepository
	subscriptionRepo repository.BusinessSubscriptionRepository
	userRepo         repository.UserRepository
	access           accessChecker
	tx               repository.Transactor
	logger           *logrus.Logger
}

// NewCommunicationFlow creates a new communication flow instance
func NewCommunicationFlow(
	messageRepo repository.MessageRepository,
	notificationRepo repository.NotificationRepository,
	chatSessionRepo repository.ChatSessionRepository,
	chatMessageRepo repository.ChatMessageRepository,
	businessRepo repository.BusinessProfileRepository,
	subscriptionRepo repository.BusinessSubscriptionRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	tx repository.Transactor,
	logger *logrus.Logger,
) CommunicationFlow {
	return &CommunicationFlowImpl{
		messageRepo:      messageRepo,
		notificationRepo: notificationRepo,
		chatSessionRepo:  chatSessionRepo,
		chatMessageRepo:  chatMessageRepo,
		businessRepo:     businessRepo,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		access:           newAccessChecker(userRepo, permissionRepo),
		tx:               tx,
		logger:           logger,
	}
}

func (cf *CommunicationFlowImpl) SendMessage(ctx context.Context, senderID uint, req *dto.SendMessageRequest) (*models.Message, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("MESSAGE_VALIDATION_FAILED", "Message validation failed", err)
	}
	if req.RecipientID == senderID {
		return nil, NewBusinessError("MESSAGE_VALIDATION_FAILED", "Message validation failed", validationErrorf("cannot message yourself"))
	}

	recipient, err := cf.userRepo.ByID(ctx, req.RecipientID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send message", err)
	}
	if recipient == nil {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send message", ErrUserNotFound)
	}
	if req.ParentID != nil {
		parent, err := cf.messageRepo.ByID(ctx, *req.ParentID)
		if err != nil {
			return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send message", err)
		}
		if parent == nil || !isMessageParticipant(parent, senderID) {
			return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send message", ErrMessageNotFound)
		}
	}

	msg := &models.Message{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		BusinessID:  req.BusinessID,
		ParentID:    req.ParentID,
		Subject:     strings.TrimSpace(req.Subject),
		Body:        req.Body,
		CreatedAt:   utils.UTCNow(),
	}
	if err := cf.messageRepo.Save(ctx, msg); err != nil {
		return nil, NewBusinessError("MESSAGE_SEND_FAILED", "Failed to send message", err)
	}

	notifyUser(ctx, cf.notificationRepo, cf.logger, req.RecipientID, models.NotificationTypeMessageReceived,
		"New message", msg.Subject, models.NotificationData{"message_id": msg.ID, "sender_id": senderID})

	return msg, nil
}

// ListMessages returns the inbox by default, or the sent box
func (cf *CommunicationFlowImpl) ListMessages(ctx context.Context, userID uint, req *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error) {
	if req == nil {
		req = &dto.ListMessagesRequest{}
	}
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}

	filter := models.MessageFilter{RecipientID: &userID}
	if req.Box == "sent" {
		filter = models.MessageFilter{SenderID: &userID}
	} else if req.UnreadOnly {
		filter.Unread = utils.ToPtr(true)
	}

	page, perPage, offset := normalizePage(req.Page, req.PerPage)
	total, err := cf.messageRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}
	rows, err := cf.messageRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", perPage, offset)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}
	unread, err := cf.messageRepo.Count(ctx, models.MessageFilter{RecipientID: &userID, Unread: utils.ToPtr(true)})
	if err != nil {
		return nil, NewBusinessError("MESSAGE_LIST_FAILED", "Failed to list messages", err)
	}
	if rows == nil {
		rows = []*models.Message{}
	}
	return &dto.ListMessagesResponse{Messages: rows, UnreadCount: unread, Pagination: paginationInfo(page, perPage, total)}, nil
}

// MarkMessageRead is allowed to the recipient only
func (cf *CommunicationFlowImpl) MarkMessageRead(ctx context.Context, messageID, userID uint) error {
	msg, err := cf.messageRepo.ByID(ctx, messageID)
	if err != nil {
		return NewBusinessError("MESSAGE_READ_FAILED", "Failed to mark message read", err)
	}
	if msg == nil || msg.RecipientID != userID {
		return NewBusinessError("MESSAGE_READ_FAILED", "Failed to mark message read", ErrMessageNotFound)
	}
	if msg.ReadAt != nil {
		return nil
	}
	if err := cf.messageRepo.MarkRead(ctx, messageID, utils.UTCNow()); err != nil {
		return NewBusinessError("MESSAGE_READ_FAILED", "Failed to mark message read", err)
	}
	return nil
}

// GetMessageThread returns the root message followed by its replies, oldest first
func (cf *CommunicationFlowImpl) GetMessageThread(ctx context.Context, messageID, userID uint) ([]*models.Message, error) {
	root, err := cf.messageRepo.ByID(ctx, messageID)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_THREAD_FAILED", "Failed to load message thread", err)
	}
	if root == nil || !isMessageParticipant(root, userID) {
		return nil, NewBusinessError("MESSAGE_THREAD_FAILED", "Failed to load message thread", ErrMessageNotFound)
	}
	replies, err := cf.messageRepo.ByFilter(ctx, models.MessageFilter{ParentID: &root.ID}, "created_at ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("MESSAGE_THREAD_FAILED", "Failed to load message thread", err)
	}
	return append([]*models.Message{root}, replies...), nil
}

func (cf *CommunicationFlowImpl) CreateNotification(ctx context.Context, req *dto.CreateNotificationRequest) (*models.Notification, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("NOTIFICATION_VALIDATION_FAILED", "Notification validation failed", err)
	}
	n := &models.Notification{
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Body:      req.Body,
		Data:      models.NotificationData(req.Data),
		CreatedAt: utils.UTCNow(),
	}
	if err := cf.notificationRepo.Save(ctx, n); err != nil {
		return nil, NewBusinessError("NOTIFICATION_CREATE_FAILED", "Failed to create notification", err)
	}
	return n, nil
}

func (cf *CommunicationFlowImpl) ListNotifications(ctx context.Context, userID uint, req *dto.ListNotificationsRequest) (*dto.ListNotificationsResponse, error) {
	if req == nil {
		req = &dto.ListNotificationsRequest{}
	}
	filter := models.NotificationFilter{UserID: &userID}
	if req.UnreadOnly {
		filter.Unread = utils.ToPtr(true)
	}

	page, perPage, offset := normalizePage(req.Page, req.PerPage)
	total, err := cf.notificationRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("NOTIFICATION_LIST_FAILED", "Failed to list notifications", err)
	}
	rows, err := cf.notificationRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", perPage, offset)
	if err != nil {
		return nil, NewBusinessError("NOTIFICATION_LIST_FAILED", "Failed to list notifications", err)
	}
	unread, err := cf.UnreadNotificationCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*models.Notification{}
	}
	return &dto.ListNotificationsResponse{Notifications: rows, UnreadCount: unread, Pagination: paginationInfo(page, perPage, total)}, nil
}

func (cf *CommunicationFlowImpl) MarkNotificationRead(ctx context.Context, notificationID, userID uint) error {
	n, err := cf.notificationRepo.ByID(ctx, notificationID)
	if err != nil {
		return NewBusinessError("NOTIFICATION_READ_FAILED", "Failed to mark notification read", err)
	}
	if n == nil || n.UserID != userID {
		return NewBusinessError("NOTIFICATION_READ_FAILED", "Failed to mark notification read", ErrNotificationNotFound)
	}
	if n.ReadAt != nil {
		return nil
	}
	if err := cf.notificationRepo.MarkRead(ctx, notificationID, utils.UTCNow()); err != nil {
		return NewBusinessError("NOTIFICATION_READ_FAILED", "Failed to mark notification read", err)
	}
	return nil
}

func (cf *CommunicationFlowImpl) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	n, err := cf.notificationRepo.MarkAllRead(ctx, userID, utils.UTCNow())
	if err != nil {
		return 0, NewBusinessError("NOTIFICATION_READ_FAILED", "Failed to mark notifications read", err)
	}
	return n, nil
}

func (cf *CommunicationFlowImpl) UnreadNotificationCount(ctx context.Context, userID uint) (int64, error) {
	n, err := cf.notificationRepo.Count(ctx, models.NotificationFilter{UserID: &userID, Unread: utils.ToPtr(true)})
	if err != nil {
		return 0, NewBusinessError("NOTIFICATION_COUNT_FAILED", "Failed to count notifications", err)
	}
	return n, nil
}

// StartChat reuses an open session for the same user and business.
// The business tier must include live chat.
func (cf *CommunicationFlowImpl) StartChat(ctx context.Context, userID uint, req *dto.StartChatRequest) (*models.ChatSession, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("CHAT_VALIDATION_FAILED", "Chat validation failed", err)
	}

	session, err := runInTx(ctx, cf.tx, func(ctx context.Context) (*models.ChatSession, error) {
		business, err := cf.businessRepo.ByID(ctx, req.BusinessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}
		features, err := effectiveFeatures(ctx, cf.subscriptionRepo, req.BusinessID)
		if err != nil {
			return nil, err
		}
		if !features.LiveChat {
			return nil, ErrLiveChatUnavailable
		}

		open, err := cf.chatSessionRepo.OpenFor(ctx, req.BusinessID, userID)
		if err != nil {
			return nil, err
		}
		if open != nil {
			return open, nil
		}

		now := utils.UTCNow()
		session := &models.ChatSession{
			BusinessID:     req.BusinessID,
			UserID:         userID,
			Status:         models.ChatSessionStatusOpen,
			LastActivityAt: now,
			CreatedAt:      now,
		}
		if err := cf.chatSessionRepo.Save(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	})
	if err != nil {
		return nil, NewBusinessError("CHAT_START_FAILED", "Failed to start chat", err)
	}
	return session, nil
}

// PostChatMessage inserts the line and touches the session in one transaction
func (cf *CommunicationFlowImpl) PostChatMessage(ctx context.Context, sessionID, senderID uint, req *dto.ChatMessageRequest) (*models.ChatMessage, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("CHAT_VALIDATION_FAILED", "Chat validation failed", err)
	}

	msg, err := runInTx(ctx, cf.tx, func(ctx context.Context) (*models.ChatMessage, error) {
		session, err := cf.chatParticipant(ctx, sessionID, senderID)
		if err != nil {
			return nil, err
		}
		if session.Status != models.ChatSessionStatusOpen {
			return nil, ErrChatSessionClosed
		}

		now := utils.UTCNow()
		msg := &models.ChatMessage{
			SessionID: sessionID,
			SenderID:  senderID,
			Body:      req.Body,
			CreatedAt: now,
		}
		if err := cf.chatMessageRepo.Save(ctx, msg); err != nil {
			return nil, err
		}
		if err := cf.chatSessionRepo.TouchActivity(ctx, sessionID, now); err != nil {
			return nil, err
		}
		return msg, nil
	})
	if err != nil {
		return nil, NewBusinessError("CHAT_MESSAGE_FAILED", "Failed to post chat message", err)
	}
	return msg, nil
}

func (cf *CommunicationFlowImpl) GetChatTranscript(ctx context.Context, sessionID, actorID uint, req *dto.PaginationRequest) (*dto.ChatTranscriptResponse, error) {
	session, err := cf.chatParticipant(ctx, sessionID, actorID)
	if err != nil {
		return nil, NewBusinessError("CHAT_TRANSCRIPT_FAILED", "Failed to load chat transcript", err)
	}
	if req == nil {
		req = &dto.PaginationRequest{}
	}
	_, perPage, offset := normalizePage(req.Page, req.PerPage)
	messages, err := cf.chatMessageRepo.ListBySession(ctx, sessionID, perPage, offset)
	if err != nil {
		return nil, NewBusinessError("CHAT_TRANSCRIPT_FAILED", "Failed to load chat transcript", err)
	}
	return &dto.ChatTranscriptResponse{Session: session, Messages: messages}, nil
}

func (cf *CommunicationFlowImpl) CloseChat(ctx context.Context, sessionID, actorID uint) (*models.ChatSession, error) {
	session, err := cf.chatParticipant(ctx, sessionID, actorID)
	if err != nil {
		return nil, NewBusinessError("CHAT_CLOSE_FAILED", "Failed to close chat", err)
	}
	if session.Status == models.ChatSessionStatusClosed {
		return session, nil
	}
	now := utils.UTCNow()
	session.Status = models.ChatSessionStatusClosed
	session.ClosedAt = &now
	if err := cf.chatSessionRepo.Update(ctx, session); err != nil {
		return nil, NewBusinessError("CHAT_CLOSE_FAILED", "Failed to close chat", err)
	}
	return session, nil
}

// chatParticipant loads the session when actor is its user or a manager of its business
func (cf *CommunicationFlowImpl) chatParticipant(ctx context.Context, sessionID, actorID uint) (*models.ChatSession, error) {
	session, err := cf.chatSessionRepo.ByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrChatSessionNotFound
	}
	if session.UserID == actorID {
		return session, nil
	}
	business, err := cf.businessRepo.ByID(ctx, session.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, ErrBusinessNotFound
	}
	if err := cf.access.requireBusinessManager(ctx, business, actorID); err != nil {
		return nil, err
	}
	return session, nil
}

func isMessageParticipant(msg *models.Message, userID uint) bool {
	return msg.SenderID == userID || msg.RecipientID == userID
}
