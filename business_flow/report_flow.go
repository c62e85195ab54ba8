package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ReportFlow exports business data as xlsx workbooks
type ReportFlow interface {
	ExportComplaints(ctx context.Context, businessID, actorID uint) (string, []byte, error)
	ExportReviews(ctx context.Context, businessID, actorID uint) (string, []byte, error)
}

// ReportFlowImpl implements ReportFlow
type ReportFlowImpl struct {
	complaintRepo repository.ComplaintRepository
	reviewRepo    repository.ReviewRepository
	businessRepo  repository.BusinessProfileRepository
	access        accessChecker
	logger        *logrus.Logger
}

// NewReportFlow creates a new report flow instance
func NewReportFlow(
	complaintRepo repository.ComplaintRepository,
	reviewRepo repository.ReviewRepository,
	businessRepo repository.BusinessProfileRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	logger *logrus.Logger,
) ReportFlow {
	return &ReportFlowImpl{
		complaintRepo: complaintRepo,
		reviewRepo:    reviewRepo,
		businessRepo:  businessRepo,
		access:        newAccessChecker(userRepo, permissionRepo),
		logger:        logger,
	}
}

var complaintReportHeader = []string{
	"complaint_id", "title", "type", "status", "priority", "amount_disputed",
	"assigned_to", "escalated_at", "resolved_at", "created_at",
}

var reviewReportHeader = []string{
	"id", "user_id", "title", "rating", "status", "helpful", "not_helpful", "created_at",
}

func (rf *ReportFlowImpl) ExportComplaints(ctx context.Context, businessID, actorID uint) (string, []byte, error) {
	business, err := rf.authorize(ctx, businessID, actorID)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_EXPORT_FAILED", "Failed to export complaints", err)
	}

	rows, err := rf.complaintRepo.ByFilter(ctx, models.ComplaintFilter{BusinessID: &businessID}, "created_at ASC, id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_EXPORT_FAILED", "Failed to export complaints", err)
	}

	records := make([][]string, 0, len(rows))
	for _, c := range rows {
		amount := ""
		if c.AmountDisputed != nil {
			amount = strconv.FormatFloat(*c.AmountDisputed, 'f', 2, 64)
		}
		assigned := ""
		if c.AssignedTo != nil {
			assigned = strconv.FormatUint(uint64(*c.AssignedTo), 10)
		}
		records = append(records, []string{
			c.ComplaintID,
			c.Title,
			string(c.ComplaintType),
			string(c.Status),
			string(c.Priority),
			amount,
			assigned,
			formatReportTime(c.EscalatedAt),
			formatReportTime(c.ResolvedAt),
			formatReportTime(&c.CreatedAt),
		})
	}

	data, err := buildWorkbook("Complaints", complaintReportHeader, records)
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	rf.logger.WithFields(logrus.Fields{
		"business_id": businessID,
		"actor_id":    actorID,
		"rows":        len(records),
	}).Info("complaint report exported")

	return fmt.Sprintf("complaints_%s.xlsx", business.BusinessID), data, nil
}

func (rf *ReportFlowImpl) ExportReviews(ctx context.Context, businessID, actorID uint) (string, []byte, error) {
	business, err := rf.authorize(ctx, businessID, actorID)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_EXPORT_FAILED", "Failed to export reviews", err)
	}

	rows, err := rf.reviewRepo.ByFilter(ctx, models.ReviewFilter{BusinessID: &businessID}, "created_at ASC, id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_EXPORT_FAILED", "Failed to export reviews", err)
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.FormatUint(uint64(r.ID), 10),
			strconv.FormatUint(uint64(r.UserID), 10),
			r.Title,
			strconv.FormatFloat(r.Rating, 'f', 1, 64),
			string(r.Status),
			strconv.FormatInt(r.HelpfulCount, 10),
			strconv.FormatInt(r.NotHelpfulCount, 10),
			formatReportTime(&r.CreatedAt),
		})
	}

	data, err := buildWorkbook("Reviews", reviewReportHeader, records)
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return fmt.Sprintf("reviews_%s.xlsx", business.BusinessID), data, nil
}

// authorize admits the owner and holders of reports.export
func (rf *ReportFlowImpl) authorize(ctx context.Context, businessID, actorID uint) (*models.BusinessProfile, error) {
	business, err := rf.businessRepo.ByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, ErrBusinessNotFound
	}
	if business.OwnerID == actorID {
		return business, nil
	}
	if err := rf.access.require(ctx, actorID, models.PermissionExportReports); err != nil {
		return nil, err
	}
	return business, nil
}

func buildWorkbook(sheet string, header []string, records [][]string) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
