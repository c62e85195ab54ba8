package businessflow

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a flow error for callers that translate errors into responses
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindState      ErrorKind = "state"
	KindLimit      ErrorKind = "limit"
	KindAuth       ErrorKind = "auth"
	KindPermission ErrorKind = "permission"
	KindStorage    ErrorKind = "storage"
)

type kindError struct {
	kind ErrorKind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newKindError(kind ErrorKind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Business flow error constants
var (
	// Validation errors
	ErrValidationFailed     = newKindError(KindValidation, "validation failed")
	ErrInvalidStatus        = newKindError(KindValidation, "invalid status")
	ErrInvalidLevel         = newKindError(KindValidation, "invalid accreditation level")
	ErrInvalidTier          = newKindError(KindValidation, "invalid subscription tier")
	ErrInvalidEmail         = newKindError(KindValidation, "invalid email address")
	ErrWeakPassword         = newKindError(KindValidation, "password does not meet strength requirements")
	ErrImmutableField       = newKindError(KindValidation, "field cannot be changed")
	ErrUnknownField         = newKindError(KindValidation, "unknown field")
	ErrInvalidRating        = newKindError(KindValidation, "rating must be between 1 and 5")
	ErrInvalidComplaintType = newKindError(KindValidation, "invalid complaint type")
	ErrInvalidPriority      = newKindError(KindValidation, "invalid complaint priority")
	ErrInvalidMessageType   = newKindError(KindValidation, "invalid thread message type")
	ErrInvalidVoteType      = newKindError(KindValidation, "invalid vote type")
	ErrReviewNotForBusiness = newKindError(KindValidation, "review does not belong to this business")
	ErrUnsupportedFileType  = newKindError(KindValidation, "unsupported file type")
	ErrFileTooLarge         = newKindError(KindValidation, "file exceeds the maximum allowed size")
	ErrInvalidCaptcha       = newKindError(KindValidation, "captcha verification failed")

	// Conflict errors
	ErrEmailAlreadyExists       = newKindError(KindConflict, "email already exists")
	ErrDuplicateReview          = newKindError(KindConflict, "user has already reviewed this business")
	ErrPendingApplicationExists = newKindError(KindConflict, "business already has a pending accreditation application")
	ErrAlreadySubscribed        = newKindError(KindConflict, "email is already subscribed")
	ErrResponseAlreadyExists    = newKindError(KindConflict, "review already has a response")
	ErrConcurrentUpdate         = newKindError(KindConflict, "another update is in progress, retry later")

	// Not found errors
	ErrUserNotFound          = newKindError(KindNotFound, "user not found")
	ErrBusinessNotFound      = newKindError(KindNotFound, "business not found")
	ErrLocationNotFound      = newKindError(KindNotFound, "location not found")
	ErrDocumentNotFound      = newKindError(KindNotFound, "document not found")
	ErrCategoryNotFound      = newKindError(KindNotFound, "category not found")
	ErrAccreditationNotFound = newKindError(KindNotFound, "accreditation not found")
	ErrReviewNotFound        = newKindError(KindNotFound, "review not found")
	ErrMediaNotFound         = newKindError(KindNotFound, "media not found")
	ErrComplaintNotFound     = newKindError(KindNotFound, "complaint not found")
	ErrSubscriberNotFound    = newKindError(KindNotFound, "subscriber not found")
	ErrTemplateNotFound      = newKindError(KindNotFound, "template not found")
	ErrCampaignNotFound      = newKindError(KindNotFound, "campaign not found")
	ErrMessageNotFound       = newKindError(KindNotFound, "message not found")
	ErrNotificationNotFound  = newKindError(KindNotFound, "notification not found")
	ErrChatSessionNotFound   = newKindError(KindNotFound, "chat session not found")

	// State errors
	ErrIllegalTransition = newKindError(KindState, "transition not allowed from current status")
	ErrRenewalTooEarly   = newKindError(KindState, "accreditation is not yet within the renewal window")
	ErrOnlyLocation      = newKindError(KindState, "cannot delete the only location of a business")
	ErrAlreadyEscalated  = newKindError(KindState, "complaint is already escalated")
	ErrChatSessionClosed = newKindError(KindState, "chat session is closed")

	// Limit errors
	ErrSubscriberLimitReached = newKindError(KindLimit, "subscriber limit reached for current tier")
	ErrNewsletterLimitReached = newKindError(KindLimit, "monthly newsletter limit reached for current tier")
	ErrTemplateLimitReached   = newKindError(KindLimit, "template limit reached for current tier")
	ErrLiveChatUnavailable    = newKindError(KindLimit, "live chat is not included in the current tier")

	// Auth errors
	ErrInvalidCredentials    = newKindError(KindAuth, "invalid credentials")
	ErrAccountLocked         = newKindError(KindAuth, "account temporarily locked after too many failed attempts")
	ErrInvalidSession        = newKindError(KindAuth, "session is invalid or expired")
	ErrInvalidOrExpiredToken = newKindError(KindAuth, "token is invalid or expired")
	ErrIncorrectPassword     = newKindError(KindAuth, "incorrect password")

	// Permission errors
	ErrPermissionDenied = newKindError(KindPermission, "permission denied")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Kind resolves the classification of the wrapped error
func (e *BusinessError) Kind() ErrorKind {
	return ErrorKindOf(e.Err)
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ErrorKindOf walks the chain of err. Errors carrying no kind are storage failures.
func ErrorKindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindStorage
}

// validationErrorf annotates ErrValidationFailed with a field-level message
func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

// transitionError reports an illegal (from, to) status pair
func transitionError(from, to fmt.Stringer) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

func IsValidationError(err error) bool { return ErrorKindOf(err) == KindValidation }
func IsConflictError(err error) bool   { return ErrorKindOf(err) == KindConflict }
func IsNotFoundError(err error) bool   { return ErrorKindOf(err) == KindNotFound }
func IsStateError(err error) bool      { return ErrorKindOf(err) == KindState }
func IsLimitError(err error) bool      { return ErrorKindOf(err) == KindLimit }
func IsAuthError(err error) bool       { return ErrorKindOf(err) == KindAuth }
func IsPermissionError(err error) bool { return ErrorKindOf(err) == KindPermission }
func IsStorageError(err error) bool    { return err != nil && ErrorKindOf(err) == KindStorage }

func IsDuplicateReview(err error) bool {
	return errors.Is(err, ErrDuplicateReview)
}

func IsPendingApplicationExists(err error) bool {
	return errors.Is(err, ErrPendingApplicationExists)
}

func IsRenewalTooEarly(err error) bool {
	return errors.Is(err, ErrRenewalTooEarly)
}

func IsAccountLocked(err error) bool {
	return errors.Is(err, ErrAccountLocked)
}

func IsSubscriberLimitReached(err error) bool {
	return errors.Is(err, ErrSubscriberLimitReached)
}

func IsNewsletterLimitReached(err error) bool {
	return errors.Is(err, ErrNewsletterLimitReached)
}
