package repository

import (
	"context"

	"github.com/amirphl/business-registry/models"
	"gorm.io/gorm"
)

// AccreditationRepositoryImpl implements AccreditationRepository interface
type AccreditationRepositoryImpl struct {
	*BaseRepository[models.Accreditation, models.AccreditationFilter]
}

// NewAccreditationRepository creates a new accreditation repository
func NewAccreditationRepository(db *gorm.DB) AccreditationRepository {
	return &AccreditationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Accreditation](db, applyAccreditationFilter),
	}
}

func applyAccreditationFilter(db *gorm.DB, filter models.AccreditationFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.BusinessID != nil {
		db = db.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		db = db.Where("status IN ?", statuses)
	}
	if filter.ExpiresAfter != nil {
		db = db.Where("expiry_date >= ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		db = db.Where("expiry_date <= ?", *filter.ExpiresBefore)
	}
	return db
}

// LatestByBusiness returns the most recent application of a business
func (r *AccreditationRepositoryImpl) LatestByBusiness(ctx context.Context, businessID uint) (*models.Accreditation, error) {
	return firstOrNil[models.Accreditation](
		r.getDB(ctx).Where("business_id = ?", businessID).Order("id DESC"),
		"latest accreditation",
	)
}

// AccreditationHistoryRepositoryImpl implements AccreditationHistoryRepository interface
type AccreditationHistoryRepositoryImpl struct {
	*BaseRepository[models.AccreditationHistory, struct{}]
}

// NewAccreditationHistoryRepository creates a new accreditation history repository
func NewAccreditationHistoryRepository(db *gorm.DB) AccreditationHistoryRepository {
	return &AccreditationHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AccreditationHistory, struct{}](db, nil),
	}
}

// ListByAccreditation returns the status log oldest first
func (r *AccreditationHistoryRepositoryImpl) ListByAccreditation(ctx context.Context, accreditationID uint) ([]*models.AccreditationHistory, error) {
	return findAll[models.AccreditationHistory](
		r.getDB(ctx).Where("accreditation_id = ?", accreditationID).Order("id ASC"),
		"accreditation history",
	)
}
