package businessflow

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
)

// BusinessProfileFlow manages business listings and their locations, documents and categories
type BusinessProfileFlow interface {
	Create(ctx context.Context, ownerID uint, req *dto.CreateBusinessRequest) (*models.BusinessProfile, error)
	Get(ctx context.Context, id uint) (*dto.BusinessDetailResponse, error)
	GetByBusinessID(ctx context.Context, businessID string) (*dto.BusinessDetailResponse, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]*models.BusinessProfile, error)
	Update(ctx context.Context, id, actorID uint, patch map[string]any) (*models.BusinessProfile, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*models.BusinessProfile, error)
	UpdateAccreditation(ctx context.Context, id uint, level string) (*models.BusinessProfile, error)
	Search(ctx context.Context, req *dto.SearchBusinessesRequest, userID *uint) (*dto.SearchBusinessesResponse, error)

	AddLocation(ctx context.Context, businessID, actorID uint, req *dto.LocationRequest) (*models.BusinessLocation, error)
	UpdateLocation(ctx context.Context, businessID, locationID, actorID uint, req *dto.LocationRequest) (*models.BusinessLocation, error)
	DeleteLocation(ctx context.Context, businessID, locationID, actorID uint) error
	ListLocations(ctx context.Context, businessID uint) ([]*models.BusinessLocation, error)

	UploadDocument(ctx context.Context, businessID, actorID uint, req *dto.UploadDocumentRequest) (*models.BusinessDocument, error)
	ListDocuments(ctx context.Context, businessID, actorID uint) ([]*models.BusinessDocument, error)
	VerifyDocument(ctx context.Context, documentID, reviewerID uint, req *dto.VerifyDocumentRequest) (*models.BusinessDocument, error)

	ListCategories(ctx context.Context) ([]*models.BusinessCategory, error)
	AssignCategories(ctx context.Context, businessID, actorID uint, req *dto.AssignCategoriesRequest) ([]*models.BusinessCategory, error)
}

// BusinessProfileFlowImpl implements BusinessProfileFlow
type BusinessProfileFlowImpl struct {
	businessRepo  repository.BusinessProfileRepository
	locationRepo  repository.BusinessLocationRepository
	documentRepo  repository.BusinessDocumentRepository
	categoryRepo  repository.BusinessCategoryRepository
	searchRepo    repository.SearchHistoryRepository
	access        accessChecker
	fileStore     services.FileStore
	publisher     services.EventPublisher
	tx            repository.Transactor
	logger        *logrus.Logger
	maxCodeTrials int
}

// NewBusinessProfileFlow creates a new business profile flow instance
func NewBusinessProfileFlow(
	businessRepo repository.BusinessProfileRepository,
	locationRepo repository.BusinessLocationRepository,
	documentRepo repository.BusinessDocumentRepository,
	categoryRepo repository.BusinessCategoryRepository,
	searchRepo repository.SearchHistoryRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	fileStore services.FileStore,
	publisher services.EventPublisher,
	tx repository.Transactor,
	logger *logrus.Logger,
) BusinessProfileFlow {
	return &BusinessProfileFlowImpl{
		businessRepo:  businessRepo,
		locationRepo:  locationRepo,
		documentRepo:  documentRepo,
		categoryRepo:  categoryRepo,
		searchRepo:    searchRepo,
		access:        newAccessChecker(userRepo, permissionRepo),
		fileStore:     fileStore,
		publisher:     publisher,
		tx:            tx,
		logger:        logger,
		maxCodeTrials: 5,
	}
}

// Fields the owner may never patch
var immutableBusinessFields = map[string]bool{
	"id":                  true,
	"business_id":         true,
	"owner_id":            true,
	"created_at":          true,
	"updated_at":          true,
	"status":              true,
	"accreditation_level": true,
	"rating":              true,
	"total_reviews":       true,
}

func (bf *BusinessProfileFlowImpl) Create(ctx context.Context, ownerID uint, req *dto.CreateBusinessRequest) (*models.BusinessProfile, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("BUSINESS_VALIDATION_FAILED", "Business validation failed", err)
	}

	business, err := runInTx(ctx, bf.tx, func(ctx context.Context) (*models.BusinessProfile, error) {
		code, err := bf.uniqueBusinessCode(ctx)
		if err != nil {
			return nil, err
		}

		now := utils.UTCNow()
		business := &models.BusinessProfile{
			BusinessID:         code,
			OwnerID:            ownerID,
			LegalName:          strings.TrimSpace(req.LegalName),
			TradingName:        req.TradingName,
			BusinessType:       strings.TrimSpace(req.BusinessType),
			Description:        req.Description,
			Email:              utils.NormalizeEmail(req.Email),
			Phone:              strings.TrimSpace(req.Phone),
			Website:            req.Website,
			AddressLine:        strings.TrimSpace(req.AddressLine),
			City:               strings.TrimSpace(req.City),
			State:              strings.TrimSpace(req.State),
			PostalCode:         req.PostalCode,
			Country:            strings.TrimSpace(req.Country),
			YearEstablished:    req.YearEstablished,
			EmployeeCount:      req.EmployeeCount,
			SocialLinks:        models.SocialLinks(req.SocialLinks),
			Status:             models.BusinessStatusPending,
			AccreditationLevel: models.AccreditationLevelNone,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := bf.businessRepo.Save(ctx, business); err != nil {
			return nil, err
		}

		// The registered address doubles as the primary location
		location := &models.BusinessLocation{
			BusinessID:  business.ID,
			Name:        "Main",
			AddressLine: business.AddressLine,
			City:        business.City,
			State:       business.State,
			PostalCode:  business.PostalCode,
			Country:     business.Country,
			Phone:       utils.ToPtr(business.Phone),
			IsPrimary:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := bf.locationRepo.Save(ctx, location); err != nil {
			return nil, err
		}

		if len(req.CategoryIDs) > 0 {
			if err := bf.replaceCategories(ctx, business.ID, req.CategoryIDs); err != nil {
				return nil, err
			}
		}
		return business, nil
	})
	if err != nil {
		return nil, NewBusinessError("BUSINESS_CREATE_FAILED", "Failed to create business", err)
	}

	bf.logger.WithFields(logrus.Fields{
		"business_id": business.BusinessID,
		"owner_id":    ownerID,
	}).Info("business created")

	return business, nil
}

func (bf *BusinessProfileFlowImpl) Get(ctx context.Context, id uint) (*dto.BusinessDetailResponse, error) {
	business, err := bf.businessRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_GET_FAILED", "Failed to load business", err)
	}
	return bf.detail(ctx, business)
}

func (bf *BusinessProfileFlowImpl) GetByBusinessID(ctx context.Context, businessID string) (*dto.BusinessDetailResponse, error) {
	business, err := bf.businessRepo.ByBusinessID(ctx, strings.ToUpper(strings.TrimSpace(businessID)))
	if err != nil {
		return nil, NewBusinessError("BUSINESS_GET_FAILED", "Failed to load business", err)
	}
	return bf.detail(ctx, business)
}

func (bf *BusinessProfileFlowImpl) ListByOwner(ctx context.Context, ownerID uint) ([]*models.BusinessProfile, error) {
	businesses, err := bf.businessRepo.ByFilter(ctx, models.BusinessProfileFilter{OwnerID: &ownerID}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_LIST_FAILED", "Failed to list businesses", err)
	}
	return businesses, nil
}

// Update applies a field patch. Identity and derived fields are rejected.
func (bf *BusinessProfileFlowImpl) Update(ctx context.Context, id, actorID uint, patch map[string]any) (*models.BusinessProfile, error) {
	fields, err := businessPatchColumns(patch)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_VALIDATION_FAILED", "Business validation failed", err)
	}

	business, err := runInTx(ctx, bf.tx, func(ctx context.Context) (*models.BusinessProfile, error) {
		business, err := bf.mustBusiness(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := bf.access.requireBusinessManager(ctx, business, actorID); err != nil {
			return nil, err
		}
		if err := bf.businessRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
		return bf.mustBusiness(ctx, id)
	})
	if err != nil {
		return nil, NewBusinessError("BUSINESS_UPDATE_FAILED", "Failed to update business", err)
	}
	return business, nil
}

func (bf *BusinessProfileFlowImpl) UpdateStatus(ctx context.Context, id uint, status string) (*models.BusinessProfile, error) {
	target := models.BusinessStatus(status)
	if !target.Valid() {
		return nil, NewBusinessError("BUSINESS_STATUS_INVALID", "Invalid business status", ErrInvalidStatus)
	}

	var previous models.BusinessStatus
	business, err := runInTx(ctx, bf.tx, func(ctx context.Context) (*models.BusinessProfile, error) {
		business, err := bf.mustBusiness(ctx, id)
		if err != nil {
			return nil, err
		}
		previous = business.Status
		if err := bf.businessRepo.UpdateStatus(ctx, id, target); err != nil {
			return nil, err
		}
		business.Status = target
		return business, nil
	})
	if err != nil {
		return nil, NewBusinessError("BUSINESS_STATUS_UPDATE_FAILED", "Failed to update business status", err)
	}

	if previous != target {
		publishEvent(ctx, bf.publisher, bf.logger, services.SubjectBusinessStatusChanged, map[string]any{
			"business_id": business.ID,
			"code":        business.BusinessID,
			"old_status":  string(previous),
			"new_status":  string(target),
		})
	}
	return business, nil
}

func (bf *BusinessProfileFlowImpl) UpdateAccreditation(ctx context.Context, id uint, level string) (*models.BusinessProfile, error) {
	target := models.AccreditationLevel(level)
	if !target.Valid() {
		return nil, NewBusinessError("BUSINESS_LEVEL_INVALID", "Invalid accreditation level", ErrInvalidLevel)
	}

	business, err := runInTx(ctx, bf.tx, func(ctx context.Context) (*models.BusinessProfile, error) {
		business, err := bf.mustBusiness(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := bf.businessRepo.UpdateAccreditationLevel(ctx, id, target); err != nil {
			return nil, err
		}
		business.AccreditationLevel = target
		return business, nil
	})
	if err != nil {
		return nil, NewBusinessError("BUSINESS_LEVEL_UPDATE_FAILED", "Failed to update accreditation level", err)
	}
	return business, nil
}

// Search applies every given filter conjunctively
func (bf *BusinessProfileFlowImpl) Search(ctx context.Context, req *dto.SearchBusinessesRequest, userID *uint) (*dto.SearchBusinessesResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("BUSINESS_SEARCH_VALIDATION_FAILED", "Search validation failed", err)
	}

	filter, snapshot, err := businessSearchFilter(req)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_SEARCH_VALIDATION_FAILED", "Search validation failed", err)
	}

	page, perPage, offset := normalizePage(req.Page, req.PerPage)

	total, err := bf.businessRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_SEARCH_FAILED", "Search failed", err)
	}
	rows, err := bf.businessRepo.ByFilter(ctx, filter, "rating DESC, total_reviews DESC, id ASC", perPage, offset)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_SEARCH_FAILED", "Search failed", err)
	}

	entry := &models.SearchHistory{
		UserID:      userID,
		Query:       utils.Truncate(strings.TrimSpace(req.Name), 255),
		Filters:     snapshot,
		ResultCount: total,
		CreatedAt:   utils.UTCNow(),
	}
	if err := bf.searchRepo.Save(ctx, entry); err != nil {
		bf.logger.WithError(err).Warn("failed to record search history")
	}

	if rows == nil {
		rows = []*models.BusinessProfile{}
	}
	return &dto.SearchBusinessesResponse{
		Businesses: rows,
		Pagination: paginationInfo(page, perPage, total),
	}, nil
}

func (bf *BusinessProfileFlowImpl) AddLocation(ctx context.Context, businessID, actorID uint, req *dto.LocationRequest) (*models.BusinessLocation, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("LOCATION_VALIDATION_FAILED", "Location validation failed", err)
	}

	location, err := runInTx(ctx, bf.tx, func(ctx context.Context) (*models.BusinessLocation, error) {
		business, err := bf.mustBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if err := bf.access.requireBusinessManager(ctx, business, actorID); err != nil {
			return nil, err
		}

		existing, err := bf.locationRepo.ListByBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}

		now := utils.UTCNow()
		location := &models.BusinessLocation{BusinessID: businessID, CreatedAt: now}
		applyLocationRequest(location, req, now)
		location.IsPrimary = false
		if err := bf.locationRepo.Save(ctx, location); err != nil {
			return nil, err
		}

		if req.IsPrimary || len(existing) == 0 {
			if err := bf.locationRepo.SetPrimary(ctx, businessID, location.ID); err != nil {
				return nil, err
			}
			location.IsPrimary = true
		}
		return location, nil
	})
	if err != nil {
		return nil, NewBusinessError("LOCATION_CREATE_FAILED", "Failed to add location", err)
	}
	return location, nil
}

func (bf *BusinessProfileFlowImpl) UpdateLocation(ctx context.Context, businessID, locationID, actorID uint, req *dto.LocationRequest) (*models.BusinessLocation, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("LOCATION_VALIDATION_FAILED", "Location validation failed", err)
	}

	location, err := runInTx(ctx, bf.tx, func(ctx context.Context) (*models.BusinessLocation, error) {
		business, err := bf.mustBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if err := bf.access.requireBusinessManager(ctx, business, actorID); err != nil {
			return nil, err
		}

		location, err := bf.locationRepo.ByID(ctx, locationID)
		if err != nil {
			return nil, err
		}
		if location == nil || location.BusinessID != businessID {
			return nil, ErrLocationNotFound
		}

		wasPrimary := location.IsPrimary
		applyLocationRequest(location, req, utils.UTCNow())
		// Primary can be moved onto a location, never cleared from the only one carrying it
		location.IsPrimary = wasPrimary
		if err := bf.locationRepo.Update(ctx, location); err != nil {
			return nil, err
		}
		if req.IsPrimary && !wasPrimary {
			if err := bf.locationRepo.SetPrimary(ctx, businessID, location.ID); err != nil {
				return nil, err
			}
			location.IsPrimary = true
		}
		return location, nil
	})
	if err != nil {
		return nil, NewBusinessError("LOCATION_UPDATE_FAILED", "Failed to update location", err)
	}
	return location, nil
}

// DeleteLocation refuses to remove the last location and promotes a new primary when needed
func (bf *BusinessProfileFlowImpl) DeleteLocation(ctx context.Context, businessID, locationID, actorID uint) error {
	_, err := runInTx(ctx, bf.tx, func(ctx context.Context) (struct{}, error) {
		business, err := bf.mustBusiness(ctx, businessID)
		if err != nil {
			return struct{}{}, err
		}
		if err := bf.access.requireBusinessManager(ctx, business, actorID); err != nil {
			return struct{}{}, err
		}

		locations, err := bf.locationRepo.ListByBusiness(ctx, businessID)
		if err != nil {
			return struct{}{}, err
		}

		var target *models.BusinessLocation
		for _, l := range locations {
			if l.ID == locationID {
				target = l
			}
		}
		if target == nil {
			return struct{}{}, ErrLocationNotFound
		}
		if len(locations) == 1 {
			return struct{}{}, ErrOnlyLocation
		}

		if err := bf.locationRepo.Delete(ctx, locationID); err != nil {
			return struct{}{}, err
		}
		if target.IsPrimary {
			for _, l := range locations {
				if l.ID != locationID {
					if err := bf.locationRepo.SetPrimary(ctx, businessID, l.ID); err != nil {
						return struct{}{}, err
					}
					break
				}
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return NewBusinessError("LOCATION_DELETE_FAILED", "Failed to delete location", err)
	}
	return nil
}

func (bf *BusinessProfileFlowImpl) ListLocations(ctx context.Context, businessID uint) ([]*models.BusinessLocation, error) {
	if _, err := bf.mustBusiness(ctx, businessID); err != nil {
		return nil, NewBusinessError("LOCATION_LIST_FAILED", "Failed to list locations", err)
	}
	locations, err := bf.locationRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("LOCATION_LIST_FAILED", "Failed to list locations", err)
	}
	return locations, nil
}

func (bf *BusinessProfileFlowImpl) UploadDocument(ctx context.Context, businessID, actorID uint, req *dto.UploadDocumentRequest) (*models.BusinessDocument, error) {
	if req == nil || strings.TrimSpace(req.DocumentType) == "" {
		return nil, NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", validationErrorf("document_type is required"))
	}

	business, err := bf.mustBusiness(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_UPLOAD_FAILED", "Failed to upload document", err)
	}
	if err := bf.access.requireBusinessManager(ctx, business, actorID); err != nil {
		return nil, NewBusinessError("DOCUMENT_UPLOAD_FAILED", "Failed to upload document", err)
	}

	stored, err := storeUpload(ctx, bf.fileStore, documentUploadPolicy, req.UploadRequest)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_UPLOAD_FAILED", "Failed to upload document", err)
	}

	doc := &models.BusinessDocument{
		BusinessID:       businessID,
		DocumentType:     strings.TrimSpace(req.DocumentType),
		OriginalFilename: req.OriginalFilename,
		StoredPath:       stored.path,
		MimeType:         stored.mimeType,
		SizeBytes:        stored.size,
		Status:           models.DocumentStatusPending,
		CreatedAt:        utils.UTCNow(),
	}
	if err := bf.documentRepo.Save(ctx, doc); err != nil {
		_ = bf.fileStore.Remove(ctx, stored.path)
		return nil, NewBusinessError("DOCUMENT_UPLOAD_FAILED", "Failed to upload document", err)
	}
	return doc, nil
}

func (bf *BusinessProfileFlowImpl) ListDocuments(ctx context.Context, businessID, actorID uint) ([]*models.BusinessDocument, error) {
	business, err := bf.mustBusiness(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LIST_FAILED", "Failed to list documents", err)
	}
	if err := bf.access.requireBusinessManager(ctx, business, actorID); err != nil {
		return nil, NewBusinessError("DOCUMENT_LIST_FAILED", "Failed to list documents", err)
	}
	docs, err := bf.documentRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_LIST_FAILED", "Failed to list documents", err)
	}
	return docs, nil
}

func (bf *BusinessProfileFlowImpl) VerifyDocument(ctx context.Context, documentID, reviewerID uint, req *dto.VerifyDocumentRequest) (*models.BusinessDocument, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", err)
	}
	status := models.DocumentStatus(req.Status)
	if !status.Valid() || status == models.DocumentStatusPending {
		return nil, NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", ErrInvalidStatus)
	}

	doc, err := bf.documentRepo.ByID(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_VERIFY_FAILED", "Failed to verify document", err)
	}
	if doc == nil {
		return nil, NewBusinessError("DOCUMENT_VERIFY_FAILED", "Failed to verify document", ErrDocumentNotFound)
	}

	doc.Status = status
	doc.VerifiedBy = &reviewerID
	doc.VerifiedAt = utils.UTCNowPtr()
	if err := bf.documentRepo.Update(ctx, doc); err != nil {
		return nil, NewBusinessError("DOCUMENT_VERIFY_FAILED", "Failed to verify document", err)
	}
	return doc, nil
}

func (bf *BusinessProfileFlowImpl) ListCategories(ctx context.Context) ([]*models.BusinessCategory, error) {
	categories, err := bf.categoryRepo.List(ctx)
	if err != nil {
		return nil, NewBusinessError("CATEGORY_LIST_FAILED", "Failed to list categories", err)
	}
	return categories, nil
}

func (bf *BusinessProfileFlowImpl) AssignCategories(ctx context.Context, businessID, actorID uint, req *dto.AssignCategoriesRequest) ([]*models.BusinessCategory, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("CATEGORY_VALIDATION_FAILED", "Category validation failed", err)
	}

	categories, err := runInTx(ctx, bf.tx, func(ctx context.Context) ([]*models.BusinessCategory, error) {
		business, err := bf.mustBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}
		if err := bf.access.requireBusinessManager(ctx, business, actorID); err != nil {
			return nil, err
		}
		if err := bf.replaceCategories(ctx, businessID, req.CategoryIDs); err != nil {
			return nil, err
		}
		return bf.categoryRepo.ListByBusiness(ctx, businessID)
	})
	if err != nil {
		return nil, NewBusinessError("CATEGORY_ASSIGN_FAILED", "Failed to assign categories", err)
	}
	return categories, nil
}

// Private helper methods

func (bf *BusinessProfileFlowImpl) mustBusiness(ctx context.Context, id uint) (*models.BusinessProfile, error) {
	business, err := bf.businessRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, ErrBusinessNotFound
	}
	return business, nil
}

func (bf *BusinessProfileFlowImpl) detail(ctx context.Context, business *models.BusinessProfile) (*dto.BusinessDetailResponse, error) {
	if business == nil {
		return nil, NewBusinessError("BUSINESS_NOT_FOUND", "Business not found", ErrBusinessNotFound)
	}
	locations, err := bf.locationRepo.ListByBusiness(ctx, business.ID)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_GET_FAILED", "Failed to load business", err)
	}
	categories, err := bf.categoryRepo.ListByBusiness(ctx, business.ID)
	if err != nil {
		return nil, NewBusinessError("BUSINESS_GET_FAILED", "Failed to load business", err)
	}
	return &dto.BusinessDetailResponse{
		Business:   business,
		Locations:  locations,
		Categories: categories,
	}, nil
}

func (bf *BusinessProfileFlowImpl) uniqueBusinessCode(ctx context.Context) (string, error) {
	for i := 0; i < bf.maxCodeTrials; i++ {
		code, err := generateBusinessCode()
		if err != nil {
			return "", err
		}
		existing, err := bf.businessRepo.ByBusinessID(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique business identifier after %d attempts", bf.maxCodeTrials)
}

func (bf *BusinessProfileFlowImpl) replaceCategories(ctx context.Context, businessID uint, ids []uint) error {
	ids = dedupeIDs(ids)
	if len(ids) > 0 {
		found, err := bf.categoryRepo.ByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return ErrCategoryNotFound
		}
	}
	return bf.categoryRepo.ReplaceAssignments(ctx, businessID, ids)
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func applyLocationRequest(location *models.BusinessLocation, req *dto.LocationRequest, now time.Time) {
	location.Name = strings.TrimSpace(req.Name)
	location.AddressLine = strings.TrimSpace(req.AddressLine)
	location.City = strings.TrimSpace(req.City)
	location.State = strings.TrimSpace(req.State)
	location.PostalCode = req.PostalCode
	location.Country = strings.TrimSpace(req.Country)
	location.Phone = req.Phone
	location.IsPrimary = req.IsPrimary
	location.UpdatedAt = now
}

func businessSearchFilter(req *dto.SearchBusinessesRequest) (models.BusinessProfileFilter, models.SearchFilters, error) {
	filter := models.BusinessProfileFilter{}
	snapshot := models.SearchFilters{}

	setString := func(key, value string, dst **string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		*dst = utils.ToPtr(value)
		snapshot[key] = value
	}
	setString("name", req.Name, &filter.Name)
	setString("business_type", req.BusinessType, &filter.BusinessType)
	setString("city", req.City, &filter.City)
	setString("state", req.State, &filter.State)
	setString("country", req.Country, &filter.Country)

	if req.Status != "" {
		status := models.BusinessStatus(req.Status)
		if !status.Valid() {
			return filter, nil, ErrInvalidStatus
		}
		filter.Status = &status
		snapshot["status"] = req.Status
	}
	if req.AccreditationLevel != "" {
		level := models.AccreditationLevel(req.AccreditationLevel)
		if !level.Valid() {
			return filter, nil, ErrInvalidLevel
		}
		filter.AccreditationLevel = &level
		snapshot["accreditation_level"] = req.AccreditationLevel
	}
	if req.CategoryID != nil {
		filter.CategoryID = req.CategoryID
		snapshot["category_id"] = fmt.Sprint(*req.CategoryID)
	}
	if req.MinRating != nil {
		filter.MinRating = req.MinRating
		snapshot["min_rating"] = fmt.Sprint(*req.MinRating)
	}

	return filter, snapshot, nil
}

// businessPatchColumns validates a patch and maps it to column values
func businessPatchColumns(patch map[string]any) (map[string]any, error) {
	if len(patch) == 0 {
		return nil, validationErrorf("patch is empty")
	}

	fields := make(map[string]any, len(patch))
	for key, raw := range patch {
		if immutableBusinessFields[key] {
			return nil, fmt.Errorf("%w: %s", ErrImmutableField, key)
		}

		switch key {
		case "legal_name", "business_type", "address_line", "city", "state", "country":
			s, ok := raw.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return nil, validationErrorf("%s must be a non-empty string", key)
			}
			fields[key] = strings.TrimSpace(s)
		case "trading_name", "description", "postal_code":
			v, err := optionalString(key, raw)
			if err != nil {
				return nil, err
			}
			fields[key] = v
		case "email":
			s, ok := raw.(string)
			if !ok || !isValidEmail(utils.NormalizeEmail(s)) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, raw)
			}
			fields[key] = utils.NormalizeEmail(s)
		case "phone":
			s, ok := raw.(string)
			if !ok || !utils.IsValidPhone(s) {
				return nil, validationErrorf("phone is malformed")
			}
			fields[key] = strings.TrimSpace(s)
		case "website":
			v, err := optionalString(key, raw)
			if err != nil {
				return nil, err
			}
			if v != nil && !isValidURL(*v) {
				return nil, validationErrorf("website must be a valid URL")
			}
			fields[key] = v
		case "year_established", "employee_count":
			if raw == nil {
				fields[key] = nil
				continue
			}
			n, ok := wholeNumber(raw)
			if !ok || n < 0 {
				return nil, validationErrorf("%s must be a non-negative whole number", key)
			}
			fields[key] = n
		case "social_links":
			links, err := socialLinks(raw)
			if err != nil {
				return nil, err
			}
			fields[key] = links
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	return fields, nil
}

func optionalString(key string, raw any) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, validationErrorf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

func wholeNumber(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func socialLinks(raw any) (models.SocialLinks, error) {
	switch v := raw.(type) {
	case nil:
		return models.SocialLinks{}, nil
	case map[string]string:
		return models.SocialLinks(v), nil
	case map[string]any:
		links := make(models.SocialLinks, len(v))
		for k, val := range v {
			s, ok := val.(string)
			if !ok {
				return nil, validationErrorf("social_links.%s must be a string", k)
			}
			links[k] = s
		}
		return links, nil
	default:
		return nil, validationErrorf("social_links must be an object")
	}
}
