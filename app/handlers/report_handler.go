package handlers

import (
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves xlsx exports
type ReportHandler struct {
	flow businessflow.ReportFlow
}

// NewReportHandler creates a new report handler
func NewReportHandler(flow businessflow.ReportFlow) *ReportHandler {
	return &ReportHandler{flow: flow}
}

// ExportComplaints downloads the complaints of a business
// @Summary Export complaints
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path integer true "Business ID"
// @Success 200 {file} file
// @Router /api/v1/businesses/{id}/reports/complaints [get]
func (h *ReportHandler) ExportComplaints(c fiber.Ctx) error {
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

	filename, data, err := h.flow.ExportComplaints(ctx, businessID, actorID)
	if err != nil {
		return flowError(c, err, "REPORT_EXPORT_FAILED")
	}
	return sendFile(c, filename, xlsxContentType, data, false)
}

func (h *ReportHandler) ExportReviews(c fiber.Ctx) error {
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

	filename, data, err := h.flow.ExportReviews(ctx, businessID, actorID)
	if err != nil {
		return flowError(c, err, "REPORT_EXPORT_FAILED")
	}
	return sendFile(c, filename, xlsxContentType, data, false)
}
