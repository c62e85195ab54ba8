package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/sirupsen/logrus"
)

// ComplaintFlow drives the complaint state machine and its thread
type ComplaintFlow interface {
	CreateComplaint(ctx context.Context, userID uint, req *dto.CreateComplaintRequest) (*models.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id, actorID uint, req *dto.UpdateComplaintStatusRequest) (*models.Complaint, error)
	EscalateComplaint(ctx context.Context, id, escalatedBy uint, req *dto.EscalateComplaintRequest) (*models.Complaint, error)
	AddThreadMessage(ctx context.Context, complaintID, userID uint, req *dto.ThreadMessageRequest) (*models.ComplaintThread, error)
	GetThread(ctx context.Context, complaintID, actorID uint, includeInternal bool) ([]*models.ComplaintThread, error)
	UpdatePriority(ctx context.Context, id, actorID uint, req *dto.UpdatePriorityRequest) (*models.Complaint, error)
	AssignComplaint(ctx context.Context, id, actorID uint, req *dto.AssignComplaintRequest) (*models.Complaint, error)
	GetComplaint(ctx context.Context, id, actorID uint) (*dto.ComplaintDetailResponse, error)
	ListComplaints(ctx context.Context, req *dto.ListComplaintsRequest) (*dto.ListComplaintsResponse, error)
	UploadEvidence(ctx context.Context, complaintID, actorID uint, req *dto.UploadEvidenceRequest) (*models.ComplaintEvidence, error)
	ListEvidence(ctx context.Context, complaintID, actorID uint) ([]*models.ComplaintEvidence, error)
	GetStatistics(ctx context.Context, businessID *uint) (*models.ComplaintStatistics, error)
}

// ComplaintFlowImpl implements ComplaintFlow
type ComplaintFlowImpl struct {
	complaintRepo    repository.ComplaintRepository
	threadRepo       repository.ComplaintThreadRepository
	evidenceRepo     repository.ComplaintEvidenceRepository
	businessRepo     repository.BusinessProfileRepository
	notificationRepo repository.NotificationRepository
	access           accessChecker
	captchaSvc       services.CaptchaService
	fileStore        services.FileStore
	publisher        services.EventPublisher
	tx               repository.Transactor
	logger           *logrus.Logger
	maxCodeTrials    int
}

// NewComplaintFlow creates a new complaint flow instance. captchaSvc may be nil.
func NewComplaintFlow(
	complaintRepo repository.ComplaintRepository,
	threadRepo repository.ComplaintThreadRepository,
	evidenceRepo repository.ComplaintEvidenceRepository,
	businessRepo repository.BusinessProfileRepository,
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	permissionRepo repository.UserPermissionRepository,
	captchaSvc services.CaptchaService,
	fileStore services.FileStore,
	publisher services.EventPublisher,
	tx repository.Transactor,
	logger *logrus.Logger,
) ComplaintFlow {
	return &ComplaintFlowImpl{
		complaintRepo:    complaintRepo,
		threadRepo:       threadRepo,
		evidenceRepo:     evidenceRepo,
		businessRepo:     businessRepo,
		notificationRepo: notificationRepo,
		access:           newAccessChecker(userRepo, permissionRepo),
		captchaSvc:       captchaSvc,
		fileStore:        fileStore,
		publisher:        publisher,
		tx:               tx,
		logger:           logger,
		maxCodeTrials:    5,
	}
}

// complaintRole is how an actor relates to one complaint
type complaintRole int

const (
	roleNone complaintRole = iota
	roleComplainant
	roleHandler
)

// CreateComplaint files a complaint with its initial thread entry in one transaction
func (cf *ComplaintFlowImpl) CreateComplaint(ctx context.Context, userID uint, req *dto.CreateComplaintRequest) (*models.Complaint, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", err)
	}
	complaintType := models.ComplaintType(req.ComplaintType)
	if !complaintType.Valid() {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", ErrInvalidComplaintType)
	}
	priority := models.ComplaintPriorityMedium
	if req.Priority != "" {
		priority = models.ComplaintPriority(req.Priority)
		if !priority.Valid() {
			return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", ErrInvalidPriority)
		}
	}
	if cf.captchaSvc != nil && !cf.captchaSvc.VerifyRotate(ctx, req.CaptchaID, req.CaptchaAngle) {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", ErrInvalidCaptcha)
	}

	var business *models.BusinessProfile
	complaint, err := runInTx(ctx, cf.tx, func(ctx context.Context) (*models.Complaint, error) {
		var err error
		business, err = cf.businessRepo.ByID(ctx, req.BusinessID)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, ErrBusinessNotFound
		}

		code, err := cf.uniqueComplaintCode(ctx)
		if err != nil {
			return nil, err
		}

		now := utils.UTCNow()
		complaint := &models.Complaint{
			ComplaintID:       code,
			UserID:            userID,
			BusinessID:        req.BusinessID,
			Title:             strings.TrimSpace(req.Title),
			Description:       strings.TrimSpace(req.Description),
			ComplaintType:     complaintType,
			Status:            models.ComplaintStatusNew,
			Priority:          priority,
			DesiredResolution: req.DesiredResolution,
			AmountDisputed:    req.AmountDisputed,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := cf.complaintRepo.Save(ctx, complaint); err != nil {
			return nil, err
		}
		if err := cf.appendThread(ctx, complaint.ID, userID, "Complaint filed", models.ThreadMessageTypeComplaintCreated, false); err != nil {
			return nil, err
		}
		return complaint, nil
	})
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_CREATE_FAILED", "Failed to file complaint", err)
	}

	complaintsTotal.WithLabelValues(string(complaint.ComplaintType)).Inc()
	cf.logger.WithFields(logrus.Fields{
		"complaint_id": complaint.ComplaintID,
		"business_id":  complaint.BusinessID,
		"type":         complaint.ComplaintType,
	}).Info("complaint filed")

	publishEvent(ctx, cf.publisher, cf.logger, services.SubjectComplaintCreated, map[string]any{
		"complaint_id": complaint.ID,
		"code":         complaint.ComplaintID,
		"business_id":  complaint.BusinessID,
		"type":         string(complaint.ComplaintType),
		"priority":     string(complaint.Priority),
	})
	notifyUser(ctx, cf.notificationRepo, cf.logger, business.OwnerID, models.NotificationTypeComplaintFiled,
		"New complaint filed",
		fmt.Sprintf("Complaint %s was filed against %s: %s", complaint.ComplaintID, business.LegalName, complaint.Title),
		models.NotificationData{"complaint_id": complaint.ID, "business_id": business.ID})

	return complaint, nil
}

// UpdateComplaintStatus moves a complaint along the transition table and logs a status_update entry
func (cf *ComplaintFlowImpl) UpdateComplaintStatus(ctx context.Context, id, actorID uint, req *dto.UpdateComplaintStatusRequest) (*models.Complaint, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", err)
	}
	target := models.ComplaintStatus(req.Status)
	if !target.Valid() {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", ErrInvalidStatus)
	}
	// escalation carries its own fields and goes through EscalateComplaint
	if target == models.ComplaintStatusEscalated {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed",
			fmt.Errorf("%w: use the escalate endpoint", ErrInvalidStatus))
	}

	complaint, err := runInTx(ctx, cf.tx, func(ctx context.Context) (*models.Complaint, error) {
		complaint, role, err := cf.loadWithRole(ctx, id, actorID)
		if err != nil {
			return nil, err
		}
		if role != roleHandler {
			return nil, ErrPermissionDenied
		}
		from := complaint.Status
		if !from.CanTransitionTo(target) {
			return nil, transitionError(from, target)
		}

		now := utils.UTCNow()
		complaint.Status = target
		complaint.UpdatedAt = now
		if target == models.ComplaintStatusResolved {
			complaint.ResolvedAt = &now
		}
		if err := cf.complaintRepo.Update(ctx, complaint); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Status changed from %s to %s", from, target)
		if note := strings.TrimSpace(req.Note); note != "" {
			message += ": " + note
		}
		if err := cf.appendThread(ctx, complaint.ID, actorID, message, models.ThreadMessageTypeStatusUpdate, false); err != nil {
			return nil, err
		}
		return complaint, nil
	})
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_STATUS_UPDATE_FAILED", "Failed to update complaint status", err)
	}

	cf.notifyComplainant(ctx, complaint, fmt.Sprintf("Your complaint %s is now %s.", complaint.ComplaintID, complaint.Status))
	return complaint, nil
}

// EscalateComplaint is allowed from every status except escalated
func (cf *ComplaintFlowImpl) EscalateComplaint(ctx context.Context, id, escalatedBy uint, req *dto.EscalateComplaintRequest) (*models.Complaint, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", err)
	}
	reason := strings.TrimSpace(req.Reason)

	var previous models.ComplaintStatus
	complaint, err := runInTx(ctx, cf.tx, func(ctx context.Context) (*models.Complaint, error) {
		complaint, role, err := cf.loadWithRole(ctx, id, escalatedBy)
		if err != nil {
			return nil, err
		}
		if role == roleNone {
			return nil, ErrPermissionDenied
		}
		if complaint.Status == models.ComplaintStatusEscalated {
			return nil, ErrAlreadyEscalated
		}
		if !complaint.Status.CanTransitionTo(models.ComplaintStatusEscalated) {
			return nil, transitionError(complaint.Status, models.ComplaintStatusEscalated)
		}

		previous = complaint.Status
		now := utils.UTCNow()
		complaint.Status = models.ComplaintStatusEscalated
		complaint.EscalatedAt = &now
		complaint.EscalatedBy = &escalatedBy
		complaint.EscalationReason = &reason
		complaint.UpdatedAt = now
		if err := cf.complaintRepo.Update(ctx, complaint); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Complaint escalated: %s", reason)
		if err := cf.appendThread(ctx, complaint.ID, escalatedBy, message, models.ThreadMessageTypeStatusUpdate, false); err != nil {
			return nil, err
		}
		return complaint, nil
	})
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_ESCALATE_FAILED", "Failed to escalate complaint", err)
	}

	cf.logger.WithFields(logrus.Fields{
		"complaint_id": complaint.ComplaintID,
		"from":         previous,
		"escalated_by": escalatedBy,
	}).Warn("complaint escalated")

	publishEvent(ctx, cf.publisher, cf.logger, services.SubjectComplaintEscalated, map[string]any{
		"complaint_id": complaint.ID,
		"code":         complaint.ComplaintID,
		"business_id":  complaint.BusinessID,
		"old_status":   string(previous),
		"reason":       reason,
	})
	return complaint, nil
}

// AddThreadMessage appends to the thread. internal_note entries are always internal
// and only handlers may post internal entries.
func (cf *ComplaintFlowImpl) AddThreadMessage(ctx context.Context, complaintID, userID uint, req *dto.ThreadMessageRequest) (*models.ComplaintThread, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("COMPLAINT_THREAD_VALIDATION_FAILED", "Thread message validation failed", err)
	}
	messageType := models.ThreadMessageTypeMessage
	if req.MessageType != "" {
		messageType = models.ThreadMessageType(req.MessageType)
	}
	if !messageType.Postable() {
		return nil, NewBusinessError("COMPLAINT_THREAD_VALIDATION_FAILED", "Thread message validation failed", ErrInvalidMessageType)
	}
	internal := req.IsInternal || messageType == models.ThreadMessageTypeInternalNote

	_, role, err := cf.loadWithRole(ctx, complaintID, userID)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_THREAD_FAILED", "Failed to add thread message", err)
	}
	if role == roleNone || (internal && role != roleHandler) {
		return nil, NewBusinessError("COMPLAINT_THREAD_FAILED", "Failed to add thread message", ErrPermissionDenied)
	}

	entry := &models.ComplaintThread{
		ComplaintID: complaintID,
		UserID:      userID,
		Message:     strings.TrimSpace(req.Message),
		MessageType: messageType,
		IsInternal:  internal,
		CreatedAt:   utils.UTCNow(),
	}
	if err := cf.threadRepo.Save(ctx, entry); err != nil {
		return nil, NewBusinessError("COMPLAINT_THREAD_FAILED", "Failed to add thread message", err)
	}
	return entry, nil
}

// GetThread excludes internal entries unless asked. Only handlers may ask.
func (cf *ComplaintFlowImpl) GetThread(ctx context.Context, complaintID, actorID uint, includeInternal bool) ([]*models.ComplaintThread, error) {
	_, role, err := cf.loadWithRole(ctx, complaintID, actorID)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_THREAD_FAILED", "Failed to load thread", err)
	}
	if role == roleNone || (includeInternal && role != roleHandler) {
		return nil, NewBusinessError("COMPLAINT_THREAD_FAILED", "Failed to load thread", ErrPermissionDenied)
	}
	thread, err := cf.threadRepo.ListByComplaint(ctx, complaintID, includeInternal)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_THREAD_FAILED", "Failed to load thread", err)
	}
	return thread, nil
}

func (cf *ComplaintFlowImpl) UpdatePriority(ctx context.Context, id, actorID uint, req *dto.UpdatePriorityRequest) (*models.Complaint, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", err)
	}
	priority := models.ComplaintPriority(req.Priority)
	if !priority.Valid() {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", ErrInvalidPriority)
	}

	complaint, err := runInTx(ctx, cf.tx, func(ctx context.Context) (*models.Complaint, error) {
		complaint, role, err := cf.loadWithRole(ctx, id, actorID)
		if err != nil {
			return nil, err
		}
		if role != roleHandler {
			return nil, ErrPermissionDenied
		}
		if complaint.Priority == priority {
			return complaint, nil
		}

		message := fmt.Sprintf("Priority changed from %s to %s", complaint.Priority, priority)
		complaint.Priority = priority
		complaint.UpdatedAt = utils.UTCNow()
		if err := cf.complaintRepo.Update(ctx, complaint); err != nil {
			return nil, err
		}
		if err := cf.appendThread(ctx, complaint.ID, actorID, message, models.ThreadMessageTypePriorityUpdate, false); err != nil {
			return nil, err
		}
		return complaint, nil
	})
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_PRIORITY_UPDATE_FAILED", "Failed to update complaint priority", err)
	}
	return complaint, nil
}

// AssignComplaint hands a complaint to a staff member holding complaints.manage
func (cf *ComplaintFlowImpl) AssignComplaint(ctx context.Context, id, actorID uint, req *dto.AssignComplaintRequest) (*models.Complaint, error) {
	if err := validateRequest(req); err != nil {
		return nil, NewBusinessError("COMPLAINT_VALIDATION_FAILED", "Complaint validation failed", err)
	}

	complaint, err := runInTx(ctx, cf.tx, func(ctx context.Context) (*models.Complaint, error) {
		if err := cf.access.require(ctx, actorID, models.PermissionManageComplaints); err != nil {
			return nil, err
		}
		assignee, err := cf.access.userRepo.ByID(ctx, req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, ErrUserNotFound
		}
		if ok, err := cf.access.has(ctx, req.AssigneeID, models.PermissionManageComplaints); err != nil {
			return nil, err
		} else if !ok {
			return nil, validationErrorf("assignee cannot handle complaints")
		}

		complaint, err := cf.mustComplaint(ctx, id)
		if err != nil {
			return nil, err
		}
		complaint.AssignedTo = &req.AssigneeID
		complaint.UpdatedAt = utils.UTCNow()
		if err := cf.complaintRepo.Update(ctx, complaint); err != nil {
			return nil, err
		}
		note := fmt.Sprintf("Assigned to user %d", req.AssigneeID)
		if err := cf.appendThread(ctx, complaint.ID, actorID, note, models.ThreadMessageTypeInternalNote, true); err != nil {
			return nil, err
		}
		return complaint, nil
	})
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_ASSIGN_FAILED", "Failed to assign complaint", err)
	}
	return complaint, nil
}

// GetComplaint returns the complaint with the thread visible to the actor
func (cf *ComplaintFlowImpl) GetComplaint(ctx context.Context, id, actorID uint) (*dto.ComplaintDetailResponse, error) {
	complaint, role, err := cf.loadWithRole(ctx, id, actorID)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_GET_FAILED", "Failed to load complaint", err)
	}
	if role == roleNone {
		return nil, NewBusinessError("COMPLAINT_GET_FAILED", "Failed to load complaint", ErrPermissionDenied)
	}

	thread, err := cf.threadRepo.ListByComplaint(ctx, id, role == roleHandler)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_GET_FAILED", "Failed to load complaint", err)
	}
	evidence, err := cf.evidenceRepo.ListByComplaint(ctx, id)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_GET_FAILED", "Failed to load complaint", err)
	}
	return &dto.ComplaintDetailResponse{Complaint: complaint, Thread: thread, Evidence: evidence}, nil
}

func (cf *ComplaintFlowImpl) ListComplaints(ctx context.Context, req *dto.ListComplaintsRequest) (*dto.ListComplaintsResponse, error) {
	if req == nil {
		req = &dto.ListComplaintsRequest{}
	}
	filter := models.ComplaintFilter{BusinessID: req.BusinessID, UserID: req.UserID}
	if req.Status != "" {
		status := models.ComplaintStatus(req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("COMPLAINT_LIST_FAILED", "Failed to list complaints", ErrInvalidStatus)
		}
		filter.Status = &status
	}
	if req.Priority != "" {
		priority := models.ComplaintPriority(req.Priority)
		if !priority.Valid() {
			return nil, NewBusinessError("COMPLAINT_LIST_FAILED", "Failed to list complaints", ErrInvalidPriority)
		}
		filter.Priority = &priority
	}

	page, perPage, offset := normalizePage(req.Page, req.PerPage)
	total, err := cf.complaintRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_LIST_FAILED", "Failed to list complaints", err)
	}
	complaints, err := cf.complaintRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", perPage, offset)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_LIST_FAILED", "Failed to list complaints", err)
	}
	if complaints == nil {
		complaints = []*models.Complaint{}
	}
	return &dto.ListComplaintsResponse{Complaints: complaints, Pagination: paginationInfo(page, perPage, total)}, nil
}

func (cf *ComplaintFlowImpl) UploadEvidence(ctx context.Context, complaintID, actorID uint, req *dto.UploadEvidenceRequest) (*models.ComplaintEvidence, error) {
	if req == nil {
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_VALIDATION_FAILED", "Evidence validation failed", validationErrorf("file is required"))
	}
	_, role, err := cf.loadWithRole(ctx, complaintID, actorID)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_UPLOAD_FAILED", "Failed to upload evidence", err)
	}
	if role == roleNone {
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_UPLOAD_FAILED", "Failed to upload evidence", ErrPermissionDenied)
	}

	stored, err := storeUpload(ctx, cf.fileStore, evidenceUploadPolicy, req.UploadRequest)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_UPLOAD_FAILED", "Failed to upload evidence", err)
	}

	evidence := &models.ComplaintEvidence{
		ComplaintID:      complaintID,
		UploadedBy:       actorID,
		OriginalFilename: req.OriginalFilename,
		StoredPath:       stored.path,
		MimeType:         stored.mimeType,
		SizeBytes:        stored.size,
		Description:      req.Description,
		CreatedAt:        utils.UTCNow(),
	}
	if err := cf.evidenceRepo.Save(ctx, evidence); err != nil {
		_ = cf.fileStore.Remove(ctx, stored.path)
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_UPLOAD_FAILED", "Failed to upload evidence", err)
	}
	return evidence, nil
}

func (cf *ComplaintFlowImpl) ListEvidence(ctx context.Context, complaintID, actorID uint) ([]*models.ComplaintEvidence, error) {
	_, role, err := cf.loadWithRole(ctx, complaintID, actorID)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_LIST_FAILED", "Failed to list evidence", err)
	}
	if role == roleNone {
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_LIST_FAILED", "Failed to list evidence", ErrPermissionDenied)
	}
	evidence, err := cf.evidenceRepo.ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_EVIDENCE_LIST_FAILED", "Failed to list evidence", err)
	}
	return evidence, nil
}

// GetStatistics aggregates all complaints, or one business's when businessID is set
func (cf *ComplaintFlowImpl) GetStatistics(ctx context.Context, businessID *uint) (*models.ComplaintStatistics, error) {
	stats, err := cf.complaintRepo.Statistics(ctx, businessID)
	if err != nil {
		return nil, NewBusinessError("COMPLAINT_STATISTICS_FAILED", "Failed to load complaint statistics", err)
	}
	return stats, nil
}

// Private helper methods

func (cf *ComplaintFlowImpl) mustComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	complaint, err := cf.complaintRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if complaint == nil {
		return nil, ErrComplaintNotFound
	}
	return complaint, nil
}

// loadWithRole resolves the actor's relation to the complaint. Handlers are the
// business's managers and holders of complaints.manage; the complainant comes next.
func (cf *ComplaintFlowImpl) loadWithRole(ctx context.Context, id, actorID uint) (*models.Complaint, complaintRole, error) {
	complaint, err := cf.mustComplaint(ctx, id)
	if err != nil {
		return nil, roleNone, err
	}

	ok, err := cf.access.has(ctx, actorID, models.PermissionManageComplaints)
	if err != nil {
		return nil, roleNone, err
	}
	if ok {
		return complaint, roleHandler, nil
	}

	business, err := cf.businessRepo.ByID(ctx, complaint.BusinessID)
	if err != nil {
		return nil, roleNone, err
	}
	if business != nil && business.OwnerID == actorID {
		return complaint, roleHandler, nil
	}
	if complaint.UserID == actorID {
		return complaint, roleComplainant, nil
	}
	return complaint, roleNone, nil
}

func (cf *ComplaintFlowImpl) appendThread(ctx context.Context, complaintID, userID uint, message string, messageType models.ThreadMessageType, internal bool) error {
	return cf.threadRepo.Save(ctx, &models.ComplaintThread{
		ComplaintID: complaintID,
		UserID:      userID,
		Message:     message,
		MessageType: messageType,
		IsInternal:  internal,
		CreatedAt:   utils.UTCNow(),
	})
}

func (cf *ComplaintFlowImpl) uniqueComplaintCode(ctx context.Context) (string, error) {
	for i := 0; i < cf.maxCodeTrials; i++ {
		code, err := generateComplaintCode(utils.UTCNow())
		if err != nil {
			return "", err
		}
		existing, err := cf.complaintRepo.ByComplaintID(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique complaint identifier after %d attempts", cf.maxCodeTrials)
}

func (cf *ComplaintFlowImpl) notifyComplainant(ctx context.Context, complaint *models.Complaint, body string) {
	notifyUser(ctx, cf.notificationRepo, cf.logger, complaint.UserID, models.NotificationTypeComplaintUpdated,
		"Complaint updated", body,
		models.NotificationData{"complaint_id": complaint.ID, "status": string(complaint.Status)})
}
