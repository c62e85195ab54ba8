package handlers

import (
	"strconv"

	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// BusinessHandler handles business profile, location, document and category requests
type BusinessHandler struct {
	flow      businessflow.BusinessProfileFlow
	validator *validator.Validate
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(flow businessflow.BusinessProfileFlow) *BusinessHandler {
	return &BusinessHandler{
		flow:      flow,
		validator: utils.NewValidator(),
	}
}

// Create registers a business owned by the caller
// @Summary Create business
// @Tags Businesses
// @Accept json
// @Produce json
// @Param request body dto.CreateBusinessRequest true "Business data"
// @Success 201 {object} dto.APIResponse{data=models.BusinessProfile}
// @Router /api/v1/businesses [post]
func (h *BusinessHandler) Create(c fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreateBusinessRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	business, err := h.flow.Create(ctx, ownerID, &req)
	if err != nil {
		return flowError(c, err, "BUSINESS_CREATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Business created", business)
}

func (h *BusinessHandler) Get(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	// numeric ids address the row, anything else is a BIZ code
	raw := c.Params("id")
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		detail, err := h.flow.Get(ctx, uint(id))
		if err != nil {
			return flowError(c, err, "BUSINESS_GET_FAILED")
		}
		return SuccessResponse(c, fiber.StatusOK, "Business retrieved", detail)
	}

	detail, err := h.flow.GetByBusinessID(ctx, raw)
	if err != nil {
		return flowError(c, err, "BUSINESS_GET_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Business retrieved", detail)
}

func (h *BusinessHandler) ListMine(c fiber.Ctx) error {
	ownerID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	businesses, err := h.flow.ListByOwner(ctx, ownerID)
	if err != nil {
		return flowError(c, err, "BUSINESS_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Businesses retrieved", businesses)
}

// Update applies a partial update. Unknown and immutable fields are rejected by the flow.
func (h *BusinessHandler) Update(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	patch := map[string]any{}
	if err := c.Bind().JSON(&patch); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	business, err := h.flow.Update(ctx, id, actorID, patch)
	if err != nil {
		return flowError(c, err, "BUSINESS_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Business updated", business)
}

func (h *BusinessHandler) UpdateStatus(c fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UpdateBusinessStatusRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	business, err := h.flow.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return flowError(c, err, "BUSINESS_STATUS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Business status updated", business)
}

func (h *BusinessHandler) UpdateAccreditationLevel(c fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.UpdateAccreditationLevelRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	business, err := h.flow.UpdateAccreditation(ctx, id, req.Level)
	if err != nil {
		return flowError(c, err, "BUSINESS_LEVEL_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Accreditation level updated", business)
}

// Search lists businesses by public criteria, best rated first
// @Summary Search businesses
// @Tags Businesses
// @Produce json
// @Param name query string false "Name contains"
// @Param city query string false "City"
// @Param category_id query integer false "Category"
// @Param min_rating query number false "Minimum rating"
// @Param page query integer false "Page"
// @Param per_page query integer false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.SearchBusinessesResponse}
// @Router /api/v1/businesses/search [get]
func (h *BusinessHandler) Search(c fiber.Ctx) error {
	req := dto.SearchBusinessesRequest{
		Name:               c.Query("name"),
		BusinessType:       c.Query("business_type"),
		City:               c.Query("city"),
		State:              c.Query("state"),
		Country:            c.Query("country"),
		Status:             c.Query("status"),
		AccreditationLevel: c.Query("accreditation_level"),
		CategoryID:         queryUintPtr(c, "category_id"),
		PaginationRequest:  paginationFromQuery(c),
	}
	if v := c.Query("min_rating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			req.MinRating = &f
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.flow.Search(ctx, &req, optionalUserID(c))
	if err != nil {
		return flowError(c, err, "BUSINESS_SEARCH_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Businesses retrieved", result)
}

func (h *BusinessHandler) AddLocation(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.LocationRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	location, err := h.flow.AddLocation(ctx, businessID, actorID, &req)
	if err != nil {
		return flowError(c, err, "LOCATION_ADD_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Location added", location)
}

func (h *BusinessHandler) UpdateLocation(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	locationID, err := paramUint(c, "locationId")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.LocationRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	location, err := h.flow.UpdateLocation(ctx, businessID, locationID, actorID, &req)
	if err != nil {
		return flowError(c, err, "LOCATION_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Location updated", location)
}

func (h *BusinessHandler) DeleteLocation(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	locationID, err := paramUint(c, "locationId")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.flow.DeleteLocation(ctx, businessID, locationID, actorID); err != nil {
		return flowError(c, err, "LOCATION_DELETE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Location deleted", nil)
}

func (h *BusinessHandler) ListLocations(c fiber.Ctx) error {
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	locations, err := h.flow.ListLocations(ctx, businessID)
	if err != nil {
		return flowError(c, err, "LOCATION_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Locations retrieved", locations)
}

// UploadDocument accepts multipart form fields document_type and file
func (h *BusinessHandler) UploadDocument(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	upload, closer, err := formUpload(c, "file")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "File is required", "FILE_REQUIRED", err.Error())
	}
	defer closer.Close()

	req := dto.UploadDocumentRequest{
		DocumentType:  c.FormValue("document_type"),
		UploadRequest: *upload,
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	document, err := h.flow.UploadDocument(ctx, businessID, actorID, &req)
	if err != nil {
		return flowError(c, err, "DOCUMENT_UPLOAD_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Document uploaded", document)
}

func (h *BusinessHandler) ListDocuments(c fiber.Ctx) error {
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

	documents, err := h.flow.ListDocuments(ctx, businessID, actorID)
	if err != nil {
		return flowError(c, err, "DOCUMENT_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Documents retrieved", documents)
}

func (h *BusinessHandler) VerifyDocument(c fiber.Ctx) error {
	reviewerID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	documentID, err := paramUint(c, "documentId")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.VerifyDocumentRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	document, err := h.flow.VerifyDocument(ctx, documentID, reviewerID, &req)
	if err != nil {
		return flowError(c, err, "DOCUMENT_VERIFY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Document reviewed", document)
}

func (h *BusinessHandler) ListCategories(c fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	categories, err := h.flow.ListCategories(ctx)
	if err != nil {
		return flowError(c, err, "CATEGORY_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Categories retrieved", categories)
}

func (h *BusinessHandler) AssignCategories(c fiber.Ctx) error {
	actorID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	businessID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req dto.AssignCategoriesRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	categories, err := h.flow.AssignCategories(ctx, businessID, actorID, &req)
	if err != nil {
		return flowError(c, err, "CATEGORY_ASSIGN_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Categories assigned", categories)
}
