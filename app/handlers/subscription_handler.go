package handlers

import (
	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// SubscriptionHandler handles plans, newsletter subscribers, templates and campaigns
type SubscriptionHandler struct {
	subscriptionFlow businessflow.SubscriptionFlow
	newsletterFlow   businessflow.NewsletterFlow
	validator        *validator.Validate
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionFlow businessflow.SubscriptionFlow, newsletterFlow businessflow.NewsletterFlow) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionFlow: subscriptionFlow,
		newsletterFlow:   newsletterFlow,
		validator:        utils.NewValidator(),
	}
}

func (h *SubscriptionHandler) Get(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.subscriptionFlow.GetSubscription(ctx, businessID, actorID)
	if err != nil {
		return flowError(c, err, "SUBSCRIPTION_GET_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Subscription retrieved", result)
}

// Update changes the plan of a business
// @Summary Update subscription
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path integer true "Business ID"
// @Param request body dto.UpdateSubscriptionRequest true "Plan"
// @Success 200 {object} dto.APIResponse{data=dto.SubscriptionResponse}
// @Router /api/v1/businesses/{id}/subscription [put]
func (h *SubscriptionHandler) Update(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UpdateSubscriptionRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.subscriptionFlow.UpdateSubscription(ctx, businessID, actorID, &req)
	if err != nil {
		return flowError(c, err, "SUBSCRIPTION_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Subscription updated", result)
}

func (h *SubscriptionHandler) Cancel(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.subscriptionFlow.CancelSubscription(ctx, businessID, actorID)
	if err != nil {
		return flowError(c, err, "SUBSCRIPTION_CANCEL_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Subscription cancelled", result)
}

func (h *SubscriptionHandler) TierFeatures(c fiber.Ctx) error {
	features, err := h.subscriptionFlow.GetTierFeatures(c.Params("tier"))
	if err != nil {
		return flowError(c, err, "SUBSCRIPTION_VALIDATION_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Tier features retrieved", features)
}

// Subscribe is public. The tier cap of the business applies.
func (h *SubscriptionHandler) Subscribe(c fiber.Ctx) error {
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.AddSubscriberRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	subscriber, err := h.newsletterFlow.AddSubscriber(ctx, businessID, &req)
	if err != nil {
		return flowError(c, err, "SUBSCRIBER_ADD_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Subscribed", subscriber)
}

func (h *SubscriptionHandler) Unsubscribe(c fiber.Ctx) error {
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UnsubscribeRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}
	if req.Email == "" {
		return ErrorResponse(c, fiber.StatusBadRequest, "Email is required", "VALIDATION_ERROR", nil)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.newsletterFlow.Unsubscribe(ctx, businessID, req.Email); err != nil {
		return flowError(c, err, "SUBSCRIBER_REMOVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Unsubscribed", nil)
}

// UnsubscribeByToken serves the link embedded in newsletter emails
func (h *SubscriptionHandler) UnsubscribeByToken(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return ErrorResponse(c, fiber.StatusBadRequest, "Token is required", "VALIDATION_ERROR", nil)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.newsletterFlow.UnsubscribeByToken(ctx, token); err != nil {
		return flowError(c, err, "SUBSCRIBER_REMOVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Unsubscribed", nil)
}

func (h *SubscriptionHandler) ListSubscribers(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	req := dto.ListSubscribersRequest{Status: c.Query("status"), PaginationRequest: paginationFromQuery(c)}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.newsletterFlow.ListSubscribers(ctx, businessID, actorID, &req)
	if err != nil {
		return flowError(c, err, "SUBSCRIBER_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Subscribers retrieved", result)
}

func (h *SubscriptionHandler) Quota(c fiber.Ctx) error {
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	quota, err := h.newsletterFlow.CanSendNewsletter(ctx, businessID)
	if err != nil {
		return flowError(c, err, "NEWSLETTER_QUOTA_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Newsletter quota retrieved", quota)
}

func (h *SubscriptionHandler) CreateTemplate(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.TemplateRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	template, err := h.newsletterFlow.CreateTemplate(ctx, businessID, actorID, &req)
	if err != nil {
		return flowError(c, err, "TEMPLATE_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Template created", template)
}

func (h *SubscriptionHandler) UpdateTemplate(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	templateID, err := paramUint(c, "templateId")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.TemplateRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	template, err := h.newsletterFlow.UpdateTemplate(ctx, businessID, templateID, actorID, &req)
	if err != nil {
		return flowError(c, err, "TEMPLATE_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Template updated", template)
}

func (h *SubscriptionHandler) DeleteTemplate(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	templateID, err := paramUint(c, "templateId")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.newsletterFlow.DeleteTemplate(ctx, businessID, templateID, actorID); err != nil {
		return flowError(c, err, "TEMPLATE_DELETE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Template deleted", nil)
}

func (h *SubscriptionHandler) ListTemplates(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	templates, err := h.newsletterFlow.ListTemplates(ctx, businessID, actorID)
	if err != nil {
		return flowError(c, err, "TEMPLATE_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Templates retrieved", templates)
}

// CreateCampaign drafts a newsletter, or schedules it when scheduled_at is set
func (h *SubscriptionHandler) CreateCampaign(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.CreateCampaignRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	campaign, err := h.newsletterFlow.CreateCampaign(ctx, businessID, actorID, &req)
	if err != nil {
		return flowError(c, err, "CAMPAIGN_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Campaign created", campaign)
}

func (h *SubscriptionHandler) ScheduleCampaign(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	campaignID, err := paramUint(c, "campaignId")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.ScheduleCampaignRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	campaign, err := h.newsletterFlow.ScheduleCampaign(ctx, campaignID, actorID, &req)
	if err != nil {
		return flowError(c, err, "CAMPAIGN_SCHEDULE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Campaign scheduled", campaign)
}

func (h *SubscriptionHandler) CancelCampaign(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	campaignID, err := paramUint(c, "campaignId")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	campaign, err := h.newsletterFlow.CancelCampaign(ctx, campaignID, actorID)
	if err != nil {
		return flowError(c, err, "CAMPAIGN_CANCEL_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Campaign cancelled", campaign)
}

func (h *SubscriptionHandler) SendCampaign(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	campaignID, err := paramUint(c, "campaignId")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	campaign, err := h.newsletterFlow.SendCampaign(ctx, campaignID, actorID)
	if err != nil {
		return flowError(c, err, "CAMPAIGN_SEND_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Campaign sent", campaign)
}

func (h *SubscriptionHandler) ListCampaigns(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	page := paginationFromQuery(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.newsletterFlow.ListCampaigns(ctx, businessID, actorID, &page)
	if err != nil {
		return flowError(c, err, "CAMPAIGN_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved", result)
}
