package handlers

import (
	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CommunicationHandler handles messages, notifications and live chat
type CommunicationHandler struct {
	flow      businessflow.CommunicationFlow
	validator *validator.Validate
}

// NewCommunicationHandler creates a new communication handler
func NewCommunicationHandler(flow businessflow.CommunicationFlow) *CommunicationHandler {
	return &CommunicationHandler{
		flow:      flow,
		validator: utils.NewValidator(),
	}
}

func (h *CommunicationHandler) SendMessage(c fiber.Ctx) error {
	senderID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.SendMessageRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.flow.SendMessage(ctx, senderID, &req)
	if err != nil {
		return flowError(c, err, "MESSAGE_SEND_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Message sent", msg)
}

// ListMessages serves ?box=inbox|sent
func (h *CommunicationHandler) ListMessages(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	req := dto.ListMessagesRequest{
		Box:               c.Query("box"),
		UnreadOnly:        queryBool(c, "unread_only"),
		PaginationRequest: paginationFromQuery(c),
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.flow.ListMessages(ctx, userID, &req)
	if err != nil {
		return flowError(c, err, "MESSAGE_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Messages retrieved", result)
}

func (h *CommunicationHandler) MarkMessageRead(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.flow.MarkMessageRead(ctx, id, userID); err != nil {
		return flowError(c, err, "MESSAGE_READ_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Message marked read", nil)
}

func (h *CommunicationHandler) MessageThread(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	thread, err := h.flow.GetMessageThread(ctx, id, userID)
	if err != nil {
		return flowError(c, err, "MESSAGE_THREAD_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Thread retrieved", thread)
}

// CreateNotification is staff tooling
func (h *CommunicationHandler) CreateNotification(c fiber.Ctx) error {
	var req dto.CreateNotificationRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.flow.CreateNotification(ctx, &req)
	if err != nil {
		return flowError(c, err, "NOTIFICATION_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Notification created", n)
}

func (h *CommunicationHandler) ListNotifications(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	req := dto.ListNotificationsRequest{
		UnreadOnly:        queryBool(c, "unread_only"),
		PaginationRequest: paginationFromQuery(c),
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.flow.ListNotifications(ctx, userID, &req)
	if err != nil {
		return flowError(c, err, "NOTIFICATION_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Notifications retrieved", result)
}

func (h *CommunicationHandler) MarkNotificationRead(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.flow.MarkNotificationRead(ctx, id, userID); err != nil {
		return flowError(c, err, "NOTIFICATION_READ_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Notification marked read", nil)
}

func (h *CommunicationHandler) MarkAllNotificationsRead(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.flow.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return flowError(c, err, "NOTIFICATION_READ_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Notifications marked read", fiber.Map{"updated": n})
}

func (h *CommunicationHandler) UnreadCount(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.flow.UnreadNotificationCount(ctx, userID)
	if err != nil {
		return flowError(c, err, "NOTIFICATION_COUNT_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Unread count retrieved", fiber.Map{"unread": n})
}

func (h *CommunicationHandler) StartChat(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.StartChatRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := h.flow.StartChat(ctx, userID, &req)
	if err != nil {
		return flowError(c, err, "CHAT_START_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Chat session ready", session)
}

func (h *CommunicationHandler) PostChatMessage(c fiber.Ctx) error {
	senderID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.ChatMessageRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.flow.PostChatMessage(ctx, sessionID, senderID, &req)
	if err != nil {
		return flowError(c, err, "CHAT_MESSAGE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Message posted", msg)
}

func (h *CommunicationHandler) ChatTranscript(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	page := paginationFromQuery(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	transcript, err := h.flow.GetChatTranscript(ctx, sessionID, actorID, &page)
	if err != nil {
		return flowError(c, err, "CHAT_TRANSCRIPT_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Transcript retrieved", transcript)
}

func (h *CommunicationHandler) CloseChat(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := h.flow.CloseChat(ctx, sessionID, actorID)
	if err != nil {
		return flowError(c, err, "CHAT_CLOSE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Chat closed", session)
}
