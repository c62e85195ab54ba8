package handlers

import (
	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ReviewHandler handles reviews, their responses, votes and media
type ReviewHandler struct {
	flow      businessflow.ReviewFlow
	mediaFlow businessflow.ReviewMediaFlow
	validator *validator.Validate
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(flow businessflow.ReviewFlow, mediaFlow businessflow.ReviewMediaFlow) *ReviewHandler {
	return &ReviewHandler{
		flow:      flow,
		mediaFlow: mediaFlow,
		validator: utils.NewValidator(),
	}
}

// Create posts a review. One review per user and business.
// @Summary Create review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param request body dto.CreateReviewRequest true "Review"
// @Success 201 {object} dto.APIResponse{data=models.Review}
// @Failure 409 {object} dto.APIResponse "Already reviewed"
// @Router /api/v1/reviews [post]
func (h *ReviewHandler) Create(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateReviewRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.flow.CreateReview(ctx, userID, &req)
	if err != nil {
		return flowError(c, err, "REVIEW_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Review submitted", review)
}

func (h *ReviewHandler) Update(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UpdateReviewRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.flow.UpdateReview(ctx, id, userID, &req)
	if err != nil {
		return flowError(c, err, "REVIEW_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Review updated", review)
}

func (h *ReviewHandler) Delete(c fiber.Ctx) error {
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

	if err := h.flow.DeleteReview(ctx, id, actorID); err != nil {
		return flowError(c, err, "REVIEW_DELETE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Review deleted", nil)
}

func (h *ReviewHandler) Moderate(c fiber.Ctx) error {
	moderatorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.ModerateReviewRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.flow.UpdateReviewStatus(ctx, id, moderatorID, &req)
	if err != nil {
		return flowError(c, err, "REVIEW_MODERATION_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Review moderated", review)
}

func (h *ReviewHandler) Respond(c fiber.Ctx) error {
	respondentID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.ReviewResponseRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	response, err := h.flow.AddReviewResponse(ctx, id, respondentID, &req)
	if err != nil {
		return flowError(c, err, "REVIEW_RESPONSE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Response posted", response)
}

// Vote toggles a helpful / not helpful vote
func (h *ReviewHandler) Vote(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.VoteRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.flow.VoteOnReview(ctx, id, userID, &req)
	if err != nil {
		return flowError(c, err, "REVIEW_VOTE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Vote recorded", result)
}

func (h *ReviewHandler) Get(c fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	detail, err := h.flow.GetReview(ctx, id)
	if err != nil {
		return flowError(c, err, "REVIEW_GET_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Review retrieved", detail)
}

func (h *ReviewHandler) ListForBusiness(c fiber.Ctx) error {
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	req := dto.ListReviewsRequest{Status: c.Query("status"), PaginationRequest: paginationFromQuery(c)}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.flow.ListBusinessReviews(ctx, businessID, &req)
	if err != nil {
		return flowError(c, err, "REVIEW_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Reviews retrieved", result)
}

func (h *ReviewHandler) ListMine(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	req := dto.ListReviewsRequest{Status: c.Query("status"), PaginationRequest: paginationFromQuery(c)}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.flow.ListUserReviews(ctx, userID, &req)
	if err != nil {
		return flowError(c, err, "REVIEW_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Reviews retrieved", result)
}

func (h *ReviewHandler) Summary(c fiber.Ctx) error {
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := h.flow.GetReviewSummary(ctx, businessID)
	if err != nil {
		return flowError(c, err, "REVIEW_SUMMARY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Review summary retrieved", summary)
}

func (h *ReviewHandler) UploadMedia(c fiber.Ctx) error {
	userID, ok := currentUserID(c)
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

	ctx, cancel := requestContext(c)
	defer cancel()

	media, err := h.mediaFlow.UploadMedia(ctx, id, userID, upload)
	if err != nil {
		return flowError(c, err, "REVIEW_MEDIA_UPLOAD_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Media uploaded", media)
}

func (h *ReviewHandler) ListMedia(c fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	media, err := h.mediaFlow.ListMedia(ctx, id)
	if err != nil {
		return flowError(c, err, "REVIEW_MEDIA_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Media retrieved", media)
}

func (h *ReviewHandler) DownloadMedia(c fiber.Ctx) error {
	mediaID, err := paramUint(c, "mediaId")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	filename, contentType, data, err := h.mediaFlow.DownloadMedia(ctx, mediaID)
	if err != nil {
		return flowError(c, err, "REVIEW_MEDIA_DOWNLOAD_FAILED")
	}
	return sendFile(c, filename, contentType, data, false)
}

func (h *ReviewHandler) PreviewMedia(c fiber.Ctx) error {
	mediaID, err := paramUint(c, "mediaId")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	filename, contentType, data, err := h.mediaFlow.PreviewMedia(ctx, mediaID)
	if err != nil {
		return flowError(c, err, "REVIEW_MEDIA_PREVIEW_FAILED")
	}
	return sendFile(c, filename, contentType, data, true)
}
