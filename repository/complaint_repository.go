package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/business-registry/models"
	"gorm.io/gorm"
)

const complaintResolutionSQL = `SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'resolved') AS resolved,
	COALESCE(AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 3600.0) FILTER (WHERE status = 'resolved' AND resolved_at IS NOT NULL), 0) AS average_hours
FROM complaints
WHERE (?::bigint IS NULL OR business_id = ?)`

const complaintBreakdownSQL = `SELECT status, complaint_type, COUNT(*) AS total
FROM complaints
WHERE (?::bigint IS NULL OR business_id = ?)
GROUP BY status, complaint_type`

// ComplaintRepositoryImpl implements ComplaintRepository interface
type ComplaintRepositoryImpl struct {
	*BaseRepository[models.Complaint, models.ComplaintFilter]
	gateway Gateway
}

// NewComplaintRepository creates a new complaint repository
func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &ComplaintRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Complaint](db, applyComplaintFilter),
		gateway:        NewGateway(db),
	}
}

func applyComplaintFilter(db *gorm.DB, filter models.ComplaintFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ComplaintID != nil {
		db = db.Where("complaint_id = ?", *filter.ComplaintID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.BusinessID != nil {
		db = db.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		db = db.Where("priority = ?", *filter.Priority)
	}
	if filter.ComplaintType != nil {
		db = db.Where("complaint_type = ?", *filter.ComplaintType)
	}
	if filter.AssignedTo != nil {
		db = db.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByComplaintID retrieves a complaint by its public CMP- code
func (r *ComplaintRepositoryImpl) ByComplaintID(ctx context.Context, complaintID string) (*models.Complaint, error) {
	return firstOrNil[models.Complaint](r.getDB(ctx).Where("complaint_id = ?", complaintID), "complaint by code")
}

// Statistics aggregates complaints of one business, or of all businesses when businessID is nil
func (r *ComplaintRepositoryImpl) Statistics(ctx context.Context, businessID *uint) (*models.ComplaintStatistics, error) {
	var summary struct {
		Total        int64
		Resolved     int64
		AverageHours float64
	}
	if _, err := r.gateway.FetchOne(ctx, &summary, complaintResolutionSQL, businessID, businessID); err != nil {
		return nil, fmt.Errorf("failed to load complaint statistics: %w", err)
	}

	var rows []struct {
		Status        string
		ComplaintType string
		Total         int64
	}
	if err := r.gateway.FetchAll(ctx, &rows, complaintBreakdownSQL, businessID, businessID); err != nil {
		return nil, fmt.Errorf("failed to load complaint breakdown: %w", err)
	}

	stats := &models.ComplaintStatistics{
		Total:                  summary.Total,
		Resolved:               summary.Resolved,
		AverageResolutionHours: summary.AverageHours,
		ByStatus:               make(map[models.ComplaintStatus]int64),
		ByType:                 make(map[models.ComplaintType]int64),
	}
	if summary.Total > 0 {
		stats.ResolutionRate = float64(summary.Resolved) / float64(summary.Total)
	}
	for _, row := range rows {
		stats.ByStatus[models.ComplaintStatus(row.Status)] += row.Total
		stats.ByType[models.ComplaintType(row.ComplaintType)] += row.Total
	}
	return stats, nil
}

// ComplaintThreadRepositoryImpl implements ComplaintThreadRepository interface
type ComplaintThreadRepositoryImpl struct {
	*BaseRepository[models.ComplaintThread, struct{}]
}

// NewComplaintThreadRepository creates a new complaint thread repository
func NewComplaintThreadRepository(db *gorm.DB) ComplaintThreadRepository {
	return &ComplaintThreadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ComplaintThread, struct{}](db, nil),
	}
}

// ListByComplaint returns thread entries oldest first
func (r *ComplaintThreadRepositoryImpl) ListByComplaint(ctx context.Context, complaintID uint, includeInternal bool) ([]*models.ComplaintThread, error) {
	query := r.getDB(ctx).Where("complaint_id = ?", complaintID)
	if !includeInternal {
		query = query.Where("is_internal = ?", false)
	}
	return findAll[models.ComplaintThread](query.Order("id ASC"), "complaint thread")
}

// ComplaintEvidenceRepositoryImpl implements ComplaintEvidenceRepository interface
type ComplaintEvidenceRepositoryImpl struct {
	*BaseRepository[models.ComplaintEvidence, struct{}]
}

// NewComplaintEvidenceRepository creates a new complaint evidence repository
func NewComplaintEvidenceRepository(db *gorm.DB) ComplaintEvidenceRepository {
	return &ComplaintEvidenceRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ComplaintEvidence, struct{}](db, nil),
	}
}

// ListByComplaint lists evidence files oldest first
func (r *ComplaintEvidenceRepositoryImpl) ListByComplaint(ctx context.Context, complaintID uint) ([]*models.ComplaintEvidence, error) {
	return findAll[models.ComplaintEvidence](r.getDB(ctx).Where("complaint_id = ?", complaintID).Order("id ASC"), "complaint evidence")
}
