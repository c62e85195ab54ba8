package handlers

import (
	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AccreditationHandler handles accreditation applications and reviews
type AccreditationHandler struct {
	flow      businessflow.AccreditationFlow
	validator *validator.Validate
}

// NewAccreditationHandler creates a new accreditation handler
func NewAccreditationHandler(flow businessflow.AccreditationFlow) *AccreditationHandler {
	return &AccreditationHandler{
		flow:      flow,
		validator: utils.NewValidator(),
	}
}

// Apply submits an application for the caller's business
// @Summary Apply for accreditation
// @Tags Accreditations
// @Accept json
// @Produce json
// @Param request body dto.ApplyAccreditationRequest true "Application"
// @Success 201 {object} dto.APIResponse{data=models.Accreditation}
// @Failure 409 {object} dto.APIResponse "An application is already open"
// @Router /api/v1/accreditations [post]
func (h *AccreditationHandler) Apply(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.ApplyAccreditationRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	record, err := h.flow.ApplyForAccreditation(ctx, actorID, &req)
	if err != nil {
		return flowError(c, err, "ACCREDITATION_APPLY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Application submitted", record)
}

func (h *AccreditationHandler) UpdateStatus(c fiber.Ctx) error {
	reviewerID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UpdateAccreditationStatusRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	record, err := h.flow.UpdateStatus(ctx, id, reviewerID, &req)
	if err != nil {
		return flowError(c, err, "ACCREDITATION_STATUS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Accreditation updated", record)
}

func (h *AccreditationHandler) Renew(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	record, err := h.flow.RenewAccreditation(ctx, id, actorID)
	if err != nil {
		return flowError(c, err, "ACCREDITATION_RENEW_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Renewal submitted", record)
}

// Expiring lists approved accreditations expiring within ?days (default 30)
func (h *AccreditationHandler) Expiring(c fiber.Ctx) error {
	days := queryInt(c, "days")
	if days <= 0 {
		days = utils.AccreditationReminderDays
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	records, err := h.flow.GetExpiringAccreditations(ctx, days)
	if err != nil {
		return flowError(c, err, "ACCREDITATION_EXPIRING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Expiring accreditations retrieved", records)
}

func (h *AccreditationHandler) History(c fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	detail, err := h.flow.GetAccreditationHistory(ctx, id)
	if err != nil {
		return flowError(c, err, "ACCREDITATION_HISTORY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Accreditation retrieved", detail)
}

func (h *AccreditationHandler) Current(c fiber.Ctx) error {
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	record, err := h.flow.GetCurrent(ctx, businessID)
	if err != nil {
		return flowError(c, err, "ACCREDITATION_GET_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Accreditation retrieved", record)
}
