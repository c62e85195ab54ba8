package handlers

import (
	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ComplaintHandler handles complaint filing, handling and threads
type ComplaintHandler struct {
	flow      businessflow.ComplaintFlow
	validator *validator.Validate
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(flow businessflow.ComplaintFlow) *ComplaintHandler {
	return &ComplaintHandler{
		flow:      flow,
		validator: utils.NewValidator(),
	}
}

// Create files a complaint against a business
// @Summary File complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param request body dto.CreateComplaintRequest true "Complaint"
// @Success 201 {object} dto.APIResponse{data=models.Complaint}
// @Failure 400 {object} dto.APIResponse "Validation error or captcha failed"
// @Router /api/v1/complaints [post]
func (h *ComplaintHandler) Create(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateComplaintRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	complaint, err := h.flow.CreateComplaint(ctx, userID, &req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Complaint filed", complaint)
}

func (h *ComplaintHandler) UpdateStatus(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UpdateComplaintStatusRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	complaint, err := h.flow.UpdateComplaintStatus(ctx, id, actorID, &req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_STATUS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Complaint updated", complaint)
}

func (h *ComplaintHandler) Escalate(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.EscalateComplaintRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	complaint, err := h.flow.EscalateComplaint(ctx, id, actorID, &req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_ESCALATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Complaint escalated", complaint)
}

func (h *ComplaintHandler) AddMessage(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.ThreadMessageRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	entry, err := h.flow.AddThreadMessage(ctx, id, actorID, &req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_MESSAGE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Message added", entry)
}

// Thread returns the conversation. ?internal=true is honored for handlers only.
func (h *ComplaintHandler) Thread(c fiber.Ctx) error {
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

	thread, err := h.flow.GetThread(ctx, id, actorID, queryBool(c, "internal"))
	if err != nil {
		return flowError(c, err, "COMPLAINT_THREAD_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Thread retrieved", thread)
}

func (h *ComplaintHandler) UpdatePriority(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UpdatePriorityRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	complaint, err := h.flow.UpdatePriority(ctx, id, actorID, &req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_PRIORITY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Priority updated", complaint)
}

func (h *ComplaintHandler) Assign(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.AssignComplaintRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	complaint, err := h.flow.AssignComplaint(ctx, id, actorID, &req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_ASSIGN_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Complaint assigned", complaint)
}

func (h *ComplaintHandler) Get(c fiber.Ctx) error {
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

	detail, err := h.flow.GetComplaint(ctx, id, actorID)
	if err != nil {
		return flowError(c, err, "COMPLAINT_GET_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Complaint retrieved", detail)
}

// ListMine lists complaints filed by the caller
func (h *ComplaintHandler) ListMine(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	req := dto.ListComplaintsRequest{
		UserID:            &userID,
		Status:            c.Query("status"),
		Priority:          c.Query("priority"),
		PaginationRequest: paginationFromQuery(c),
	}
	return h.list(c, &req)
}

// List is the staff queue. Mounted behind complaints.manage.
func (h *ComplaintHandler) List(c fiber.Ctx) error {
	req := dto.ListComplaintsRequest{
		BusinessID:        queryUintPtr(c, "business_id"),
		UserID:            queryUintPtr(c, "user_id"),
		Status:            c.Query("status"),
		Priority:          c.Query("priority"),
		PaginationRequest: paginationFromQuery(c),
	}
	return h.list(c, &req)
}

func (h *ComplaintHandler) list(c fiber.Ctx, req *dto.ListComplaintsRequest) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.flow.ListComplaints(ctx, req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Complaints retrieved", result)
}

func (h *ComplaintHandler) UploadEvidence(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	upload, closer, err := formUpload(c, "file")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "File is required", "FILE_REQUIRED", err.Error())
	}
	defer closer.Close()

	req := dto.UploadEvidenceRequest{UploadRequest: *upload}
	if desc := c.FormValue("description"); desc != "" {
		req.Description = &desc
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	evidence, err := h.flow.UploadEvidence(ctx, id, actorID, &req)
	if err != nil {
		return flowError(c, err, "COMPLAINT_EVIDENCE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Evidence uploaded", evidence)
}

func (h *ComplaintHandler) ListEvidence(c fiber.Ctx) error {
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

	evidence, err := h.flow.ListEvidence(ctx, id, actorID)
	if err != nil {
		return flowError(c, err, "COMPLAINT_EVIDENCE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Evidence retrieved", evidence)
}

func (h *ComplaintHandler) Statistics(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.flow.GetStatistics(ctx, queryUintPtr(c, "business_id"))
	if err != nil {
		return flowError(c, err, "COMPLAINT_STATISTICS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Statistics retrieved", stats)
}
