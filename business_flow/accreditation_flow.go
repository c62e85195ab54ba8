package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
)

// AccreditationFlow drives the accreditation state machine
type AccreditationFlow interface {
	ApplyForAccreditation(ctx context.Context, actorID uint, req *dto.ApplyAccreditationRequest) (*models.Accreditation, error)
	UpdateStatus(ctx context.Context, id, reviewerID uint, req *dto.UpdateAccreditationStatusRequest) (*models.Accreditation, error)
	RenewAccreditation(ctx context.Context, id, actorID uint) (*models.Accreditation, error)
	GetExpiringAccreditations(ctx context.Context, daysThreshold int) ([]*models.Accreditation, error)
	GetAccreditationHistory(ctx context.Context, id uint) (*dto.AccreditationDetailResponse, error)
	GetCurrent(ctx context.Context, businessID uint) (*models.Accreditation, error)
	ExpireOverdue(ctx context.Context) (int, error)
	SendExpiryReminders(ctx context.Context) (int, error)
}

// AccreditationFlowImpl implements AccreditationFlow
type AccreditationFlowImpl struct {
	accreditationRepo repository.AccreditationRepository
	historyRepo       repository.AccreditationHistoryRepository
	businessRepo      repository.BusinessProfileRepository
	notificationRepo  repository.NotificationRepository
	access            accessChecker
	notificationSvc   services.NotificationService
	publisher         services.EventPublisher
	tx                repository.Transactor
	logger            *logrus.Logger
	reminderDays      []int
}

// NewAccreditationFlow creates a new accreditation flow instance
func NewAccreditationFlow(
	accreditationRepo repository.AccreditationRepository,
	historyRepo repository.AccreditationHistoryRepository,
	businessRepo repository.BusinessProfileRepository,
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	notificationSvc services.NotificationService,
	publisher services.EventPublisher,
	tx repository.Transactor,
	logger *logrus.Logger,
) AccreditationFlow {
	return &AccreditationFlowImpl{
		accreditationRepo: accreditationRepo,
		historyRepo:       historyRepo,
		businessRepo:      businessRepo,
		notificationRepo:  notificationRepo,
		access:            newAccessChecker(userRepo, permissionRepo),
		notificationSvc:   notificationSvc,
		publisher:         publisher,
		tx:                tx,
		logger:            logger,
		reminderDays:      []int{utils.AccreditationReminderDays, 7, 1},
	}
}

// ApplyForAccreditation opens a pending application. Only one open application per business.
func (af *AccreditationFlowImpl) ApplyForAccreditation(ctx context.Context, actorID uint, req *dto.ApplyAccreditationRequest) (*models.Accreditation, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("ACCREDITATION_VALIDATION_FAILED", "Accreditation validation failed", err)
	}
	level := models.AccreditationLevel(req.Level)
	if !level.Applicable() {
		return nil, NewBusinessError("ACCREDITATION_VALIDATION_FAILED", "Accreditation validation failed", ErrInvalidLevel)
	}

	record, err := runInTx(ctx, af.tx, func(ctx context.Context) (*models.Accreditation, error) {
		business, err := af.businessRepo.ByID(ctx, req.BusinessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}
		if err := af.access.requireBusinessManager(ctx, business, actorID); err != nil {
			return nil, err
		}

		open, err := af.accreditationRepo.Exists(ctx, models.AccreditationFilter{
			BusinessID: &req.BusinessID,
			Statuses:   []models.AccreditationStatus{models.AccreditationStatusPending, models.AccreditationStatusRenewalPending},
		})
		if err != nil {
			return nil, err
		}
		if open {
			return nil, ErrPendingApplicationExists
		}

		now := utils.UTCNow()
		record := &models.Accreditation{
			BusinessID:         req.BusinessID,
			AccreditationLevel: level,
			Status:             models.AccreditationStatusPending,
			Documents:          models.AccreditationDocuments(req.Documents),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := af.accreditationRepo.Save(ctx, record); err != nil {
			return nil, err
		}
		if err := af.appendHistory(ctx, record.ID, "", record.Status, nil, &actorID); err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return nil, NewBusinessError("ACCREDITATION_APPLY_FAILED", "Failed to apply for accreditation", err)
	}

	af.logger.WithFields(logrus.Fields{
		"accreditation_id": record.ID,
		"business_id":      record.BusinessID,
		"level":            record.AccreditationLevel,
	}).Info("accreditation application submitted")

	return record, nil
}

// UpdateStatus applies a reviewer decision and cascades the level onto the business
func (af *AccreditationFlowImpl) UpdateStatus(ctx context.Context, id, reviewerID uint, req *dto.UpdateAccreditationStatusRequest) (*models.Accreditation, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("ACCREDITATION_VALIDATION_FAILED", "Accreditation validation failed", err)
	}
	target := models.AccreditationStatus(req.Status)
	if !target.IsManualTarget() {
		return nil, NewBusinessError("ACCREDITATION_VALIDATION_FAILED", "Accreditation validation failed", ErrInvalidStatus)
	}

	var previous models.AccreditationStatus
	var business *models.BusinessProfile
	record, err := runInTx(ctx, af.tx, func(ctx context.Context) (*models.Accreditation, error) {
		record, err := af.mustAccreditation(ctx, id)
		if err != nil {
			return nil, err
		}
		previous = record.Status
		if err := af.transition(ctx, record, target, req.Notes, &reviewerID); err != nil {
			return nil, err
		}
		business, err = af.businessRepo.ByID(ctx, record.BusinessID)
		if err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return nil, NewBusinessError("ACCREDITATION_STATUS_UPDATE_FAILED", "Failed to update accreditation status", err)
	}

	af.afterTransition(ctx, record, business, previous)
	return record, nil
}

// RenewAccreditation moves an approved record into renewal_pending within the renewal window
func (af *AccreditationFlowImpl) RenewAccreditation(ctx context.Context, id, actorID uint) (*models.Accreditation, error) {
	var previous models.AccreditationStatus
	var business *models.BusinessProfile
	record, err := runInTx(ctx, af.tx, func(ctx context.Context) (*models.Accreditation, error) {
		record, err := af.mustAccreditation(ctx, id)
		if err != nil {
			return nil, err
		}
		business, err = af.businessRepo.ByID(ctx, record.BusinessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}
		if err := af.access.requireBusinessManager(ctx, business, actorID); err != nil {
			return nil, err
		}

		// still a state error; also matches ErrInvalidStatus for callers branching on the source status
		if record.Status != models.AccreditationStatusApproved {
			return nil, fmt.Errorf("%w: %w", transitionError(record.Status, models.AccreditationStatusRenewalPending), ErrInvalidStatus)
		}
		if record.ExpiryDate == nil || utils.DaysUntil(*record.ExpiryDate) > utils.AccreditationRenewalWindowDays {
			return nil, ErrRenewalTooEarly
		}

		previous = record.Status
		if err := af.transition(ctx, record, models.AccreditationStatusRenewalPending, nil, &actorID); err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return nil, NewBusinessError("ACCREDITATION_RENEW_FAILED", "Failed to renew accreditation", err)
	}

	af.afterTransition(ctx, record, business, previous)
	return record, nil
}

// GetExpiringAccreditations returns approved records expiring between today and today+daysThreshold
func (af *AccreditationFlowImpl) GetExpiringAccreditations(ctx context.Context, daysThreshold int) ([]*models.Accreditation, error) {
	if daysThreshold < 0 {
		return nil, NewBusinessError("ACCREDITATION_VALIDATION_FAILED", "Accreditation validation failed",
			validationErrorf("days threshold must not be negative"))
	}

	today := utils.StartOfDayUTC(utils.UTCNow())
	until := today.AddDate(0, 0, daysThreshold+1).Add(-time.Nanosecond)
	status := models.AccreditationStatusApproved

	records, err := af.accreditationRepo.ByFilter(ctx, models.AccreditationFilter{
		Status:        &status,
		ExpiresAfter:  &today,
		ExpiresBefore: &until,
	}, "expiry_date ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ACCREDITATION_LIST_FAILED", "Failed to list expiring accreditations", err)
	}
	return records, nil
}

func (af *AccreditationFlowImpl) GetAccreditationHistory(ctx context.Context, id uint) (*dto.AccreditationDetailResponse, error) {
	record, err := af.mustAccreditation(ctx, id)
	if err != nil {
		return nil, NewBusinessError("ACCREDITATION_GET_FAILED", "Failed to load accreditation", err)
	}
	history, err := af.historyRepo.ListByAccreditation(ctx, id)
	if err != nil {
		return nil, NewBusinessError("ACCREDITATION_GET_FAILED", "Failed to load accreditation", err)
	}
	return &dto.AccreditationDetailResponse{Accreditation: record, History: history}, nil
}

// GetCurrent returns the latest application of the business or NotFound
func (af *AccreditationFlowImpl) GetCurrent(ctx context.Context, businessID uint) (*models.Accreditation, error) {
	record, err := af.accreditationRepo.LatestByBusiness(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("ACCREDITATION_GET_FAILED", "Failed to load accreditation", err)
	}
	if record == nil {
		return nil, NewBusinessError("ACCREDITATION_NOT_FOUND", "Accreditation not found", ErrAccreditationNotFound)
	}
	return record, nil
}

// ExpireOverdue expires approved and renewal_pending records past their expiry date.
// Each record runs in its own transaction so one failure does not block the rest.
func (af *AccreditationFlowImpl) ExpireOverdue(ctx context.Context) (int, error) {
	now := utils.UTCNow()
	overdue, err := af.accreditationRepo.ByFilter(ctx, models.AccreditationFilter{
		Statuses:      []models.AccreditationStatus{models.AccreditationStatusApproved, models.AccreditationStatusRenewalPending},
		ExpiresBefore: &now,
	}, "id ASC", 0, 0)
	if err != nil {
		return 0, NewBusinessError("ACCREDITATION_EXPIRE_FAILED", "Failed to load overdue accreditations", err)
	}

	note := utils.ToPtr("expired automatically")
	expired := 0
	for _, candidate := range overdue {
		var previous models.AccreditationStatus
		var business *models.BusinessProfile
		record, err := runInTx(ctx, af.tx, func(ctx context.Context) (*models.Accreditation, error) {
			record, err := af.mustAccreditation(ctx, candidate.ID)
			if err != nil {
				return nil, err
			}
			previous = record.Status
			if err := af.transition(ctx, record, models.AccreditationStatusExpired, note, nil); err != nil {
				return nil, err
			}
			business, err = af.businessRepo.ByID(ctx, record.BusinessID)
			return record, err
		})
		if err != nil {
			af.logger.WithError(err).WithField("accreditation_id", candidate.ID).Error("failed to expire accreditation")
			continue
		}
		af.afterTransition(ctx, record, business, previous)
		expired++
	}
	return expired, nil
}

// SendExpiryReminders notifies owners of approved records hitting a reminder day
func (af *AccreditationFlowImpl) SendExpiryReminders(ctx context.Context) (int, error) {
	records, err := af.GetExpiringAccreditations(ctx, utils.AccreditationReminderDays)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, record := range records {
		days := utils.DaysUntil(*record.ExpiryDate)
		if !af.isReminderDay(days) {
			continue
		}
		business, err := af.businessRepo.ByID(ctx, record.BusinessID)
		if err != nil || business == nil {
			af.logger.WithError(err).WithField("accreditation_id", record.ID).Warn("skipping reminder, business unavailable")
			continue
		}

		title := "Accreditation expiring soon"
		body := fmt.Sprintf("The %s accreditation of %s expires in %d day(s). Renew it to keep your badge.",
			record.AccreditationLevel, business.LegalName, days)
		notifyUser(ctx, af.notificationRepo, af.logger, business.OwnerID, models.NotificationTypeAccreditationExpiry, title, body,
			models.NotificationData{"accreditation_id": record.ID, "business_id": business.ID, "days_left": days})

		if af.notificationSvc != nil {
			if err := af.notificationSvc.SendEmail(business.Email, title, body); err != nil {
				af.logger.WithError(err).WithField("business_id", business.ID).Warn("failed to email expiry reminder")
			}
		}
		sent++
	}
	return sent, nil
}

// Private helper methods

func (af *AccreditationFlowImpl) mustAccreditation(ctx context.Context, id uint) (*models.Accreditation, error) {
	record, err := af.accreditationRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrAccreditationNotFound
	}
	return record, nil
}

// transition must run inside a transaction. It writes the record, its history row and the business level.
func (af *AccreditationFlowImpl) transition(ctx context.Context, record *models.Accreditation, target models.AccreditationStatus, notes *string, actorID *uint) error {
	from := record.Status
	if !from.CanTransitionTo(target) {
		return transitionError(from, target)
	}

	now := utils.UTCNow()
	record.Status = target
	record.UpdatedAt = now
	if notes != nil {
		record.Notes = notes
	}
	if actorID != nil && target != models.AccreditationStatusRenewalPending {
		record.ReviewedBy = actorID
	}
	if target == models.AccreditationStatusApproved {
		record.ApprovedDate = &now
		record.ExpiryDate = utils.ToPtr(now.Add(utils.AccreditationValidity))
	}
	if err := af.accreditationRepo.Update(ctx, record); err != nil {
		return err
	}

	if err := af.appendHistory(ctx, record.ID, from, target, notes, actorID); err != nil {
		return err
	}

	switch {
	case target == models.AccreditationStatusApproved:
		return af.businessRepo.UpdateAccreditationLevel(ctx, record.BusinessID, record.AccreditationLevel)
	case target.RevokesLevel():
		return af.businessRepo.UpdateAccreditationLevel(ctx, record.BusinessID, models.AccreditationLevelNone)
	}
	return nil
}

func (af *AccreditationFlowImpl) appendHistory(ctx context.Context, accreditationID uint, from, to models.AccreditationStatus, notes *string, actorID *uint) error {
	return af.historyRepo.Save(ctx, &models.AccreditationHistory{
		AccreditationID: accreditationID,
		OldStatus:       string(from),
		NewStatus:       string(to),
		Notes:           notes,
		ChangedBy:       actorID,
		CreatedAt:       utils.UTCNow(),
	})
}

// afterTransition runs the side effects of a committed status change
func (af *AccreditationFlowImpl) afterTransition(ctx context.Context, record *models.Accreditation, business *models.BusinessProfile, previous models.AccreditationStatus) {
	accreditationTransitionsTotal.WithLabelValues(string(record.Status)).Inc()

	af.logger.WithFields(logrus.Fields{
		"accreditation_id": record.ID,
		"business_id":      record.BusinessID,
		"from":             previous,
		"to":               record.Status,
	}).Info("accreditation status changed")

	publishEvent(ctx, af.publisher, af.logger, services.SubjectAccreditationStatusChanged, map[string]any{
		"accreditation_id": record.ID,
		"business_id":      record.BusinessID,
		"level":            string(record.AccreditationLevel),
		"old_status":       string(previous),
		"new_status":       string(record.Status),
	})

	if business != nil {
		notifyUser(ctx, af.notificationRepo, af.logger, business.OwnerID, models.NotificationTypeAccreditationUpdated,
			"Accreditation status updated",
			fmt.Sprintf("The accreditation of %s is now %s.", business.LegalName, record.Status),
			models.NotificationData{"accreditation_id": record.ID, "business_id": business.ID, "status": string(record.Status)})
	}
}

func (af *AccreditationFlowImpl) isReminderDay(days int) bool {
	for _, d := range af.reminderDays {
		if d == days {
			return true
		}
	}
	return false
}
