package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/business-registry/models"
	"gorm.io/gorm"
)

const recomputeRatingSQL = `UPDATE business_profiles SET
	rating = COALESCE((SELECT AVG(r.rating) FROM reviews r WHERE r.business_id = ? AND r.status = 'approved'), 0),
	total_reviews = (SELECT COUNT(*) FROM reviews r WHERE r.business_id = ? AND r.status = 'approved'),
	updated_at = ?
WHERE id = ?`

// BusinessProfileRepositoryImpl implements BusinessProfileRepository interface
type BusinessProfileRepositoryImpl struct {
	*BaseRepository[models.BusinessProfile, models.BusinessProfileFilter]
	gateway Gateway
}

// NewBusinessProfileRepository creates a new business profile repository
func NewBusinessProfileRepository(db *gorm.DB) BusinessProfileRepository {
	return &BusinessProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BusinessProfile](db, applyBusinessProfileFilter),
		gateway:        NewGateway(db),
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere in the column
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func applyBusinessProfileFilter(db *gorm.DB, filter models.BusinessProfileFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.BusinessID != nil {
		db = db.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.OwnerID != nil {
		db = db.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Name != nil && *filter.Name != "" {
		like := containsPattern(*filter.Name)
		db = db.Where(`(legal_name ILIKE ? ESCAPE '\' OR trading_name ILIKE ? ESCAPE '\')`, like, like)
	}
	if filter.BusinessType != nil {
		db = db.Where("business_type = ?", *filter.BusinessType)
	}
	if filter.City != nil {
		db = db.Where("city = ?", *filter.City)
	}
	if filter.State != nil {
		db = db.Where("state = ?", *filter.State)
	}
	if filter.Country != nil {
		db = db.Where("country = ?", *filter.Country)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.AccreditationLevel != nil {
		db = db.Where("accreditation_level = ?", *filter.AccreditationLevel)
	}
	if filter.CategoryID != nil {
		db = db.Where("id IN (SELECT business_id FROM business_category_assignments WHERE category_id = ?)", *filter.CategoryID)
	}
	if filter.MinRating != nil {
		db = db.Where("rating >= ?", *filter.MinRating)
	}
	return db
}

// ByBusinessID retrieves a profile by its public BIZ- code
func (r *BusinessProfileRepositoryImpl) ByBusinessID(ctx context.Context, businessID string) (*models.BusinessProfile, error) {
	return firstOrNil[models.BusinessProfile](r.getDB(ctx).Where("business_id = ?", businessID), "business by code")
}

// UpdateFields applies a column patch. Keys must already be whitelisted by the caller.
func (r *BusinessProfileRepositoryImpl) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	if err := r.getDB(ctx).Model(&models.BusinessProfile{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update business profile: %w", err)
	}
	return nil
}

// UpdateStatus sets the lifecycle status
func (r *BusinessProfileRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.BusinessStatus) error {
	return r.UpdateFields(ctx, id, map[string]any{"status": status})
}

// UpdateAccreditationLevel sets the denormalized accreditation level
func (r *BusinessProfileRepositoryImpl) UpdateAccreditationLevel(ctx context.Context, id uint, level models.AccreditationLevel) error {
	return r.UpdateFields(ctx, id, map[string]any{"accreditation_level": level})
}

// RecomputeRating rewrites rating and total_reviews from approved reviews in one statement
func (r *BusinessProfileRepositoryImpl) RecomputeRating(ctx context.Context, id uint) error {
	if _, err := r.gateway.Exec(ctx, recomputeRatingSQL, id, id, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to recompute business rating: %w", err)
	}
	return nil
}

// BusinessLocationRepositoryImpl implements BusinessLocationRepository interface
type BusinessLocationRepositoryImpl struct {
	*BaseRepository[models.BusinessLocation, struct{}]
}

// NewBusinessLocationRepository creates a new location repository
func NewBusinessLocationRepository(db *gorm.DB) BusinessLocationRepository {
	return &BusinessLocationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BusinessLocation, struct{}](db, nil),
	}
}

// ListByBusiness lists locations with the primary first
func (r *BusinessLocationRepositoryImpl) ListByBusiness(ctx context.Context, businessID uint) ([]*models.BusinessLocation, error) {
	return findAll[models.BusinessLocation](
		r.getDB(ctx).Where("business_id = ?", businessID).Order("is_primary DESC, id ASC"),
		"business locations",
	)
}

// SetPrimary marks one location primary and clears the flag on the rest
func (r *BusinessLocationRepositoryImpl) SetPrimary(ctx context.Context, businessID, locationID uint) error {
	db := r.getDB(ctx)
	if err := db.Model(&models.BusinessLocation{}).
		Where("business_id = ? AND id <> ?", businessID, locationID).
		Update("is_primary", false).Error; err != nil {
		return fmt.Errorf("failed to clear primary location: %w", err)
	}
	if err := db.Model(&models.BusinessLocation{}).
		Where("business_id = ? AND id = ?", businessID, locationID).
		Update("is_primary", true).Error; err != nil {
		return fmt.Errorf("failed to set primary location: %w", err)
	}
	return nil
}

// BusinessDocumentRepositoryImpl implements BusinessDocumentRepository interface
type BusinessDocumentRepositoryImpl struct {
	*BaseRepository[models.BusinessDocument, struct{}]
}

// NewBusinessDocumentRepository creates a new document repository
func NewBusinessDocumentRepository(db *gorm.DB) BusinessDocumentRepository {
	return &BusinessDocumentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BusinessDocument, struct{}](db, nil),
	}
}

// ListByBusiness lists documents newest first
func (r *BusinessDocumentRepositoryImpl) ListByBusiness(ctx context.Context, businessID uint) ([]*models.BusinessDocument, error) {
	return findAll[models.BusinessDocument](r.getDB(ctx).Where("business_id = ?", businessID).Order("id DESC"), "business documents")
}

// BusinessCategoryRepositoryImpl implements BusinessCategoryRepository interface
type BusinessCategoryRepositoryImpl struct {
	db *gorm.DB
}

// NewBusinessCategoryRepository creates a new category repository
func NewBusinessCategoryRepository(db *gorm.DB) BusinessCategoryRepository {
	return &BusinessCategoryRepositoryImpl{db: db}
}

func (r *BusinessCategoryRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// List returns every category ordered by name
func (r *BusinessCategoryRepositoryImpl) List(ctx context.Context) ([]*models.BusinessCategory, error) {
	return findAll[models.BusinessCategory](r.getDB(ctx).Order("name ASC"), "categories")
}

// ByIDs returns the categories with the given ids
func (r *BusinessCategoryRepositoryImpl) ByIDs(ctx context.Context, ids []uint) ([]*models.BusinessCategory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findAll[models.BusinessCategory](r.getDB(ctx).Where("id IN ?", ids), "categories by id")
}

// ListByBusiness returns the categories assigned to a business
func (r *BusinessCategoryRepositoryImpl) ListByBusiness(ctx context.Context, businessID uint) ([]*models.BusinessCategory, error) {
	return findAll[models.BusinessCategory](
		r.getDB(ctx).
			Joins("JOIN business_category_assignments a ON a.category_id = business_categories.id").
			Where("a.business_id = ?", businessID).
			Order("business_categories.name ASC"),
		"business categories",
	)
}

// ReplaceAssignments swaps the whole category set of a business
func (r *BusinessCategoryRepositoryImpl) ReplaceAssignments(ctx context.Context, businessID uint, categoryIDs []uint) error {
	db := r.getDB(ctx)
	if err := db.Where("business_id = ?", businessID).Delete(&models.BusinessCategoryAssignment{}).Error; err != nil {
		return fmt.Errorf("failed to clear category assignments: %w", err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]models.BusinessCategoryAssignment, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		rows = append(rows, models.BusinessCategoryAssignment{BusinessID: businessID, CategoryID: id})
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save category assignments: %w", err)
	}
	return nil
}

// SearchHistoryRepositoryImpl implements SearchHistoryRepository interface
type SearchHistoryRepositoryImpl struct {
	*BaseRepository[models.SearchHistory, struct{}]
}

// NewSearchHistoryRepository creates a new search history repository
func NewSearchHistoryRepository(db *gorm.DB) SearchHistoryRepository {
	return &SearchHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SearchHistory, struct{}](db, nil),
	}
}
