// Package businessflow contains the core business logic and use cases of the registry
package businessflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	"github.com/amirphl/business-registry/app/services"
	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
	"github.com/amirphl/business-registry/utils"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func (cm *ClientMetadata) ipPtr() *string {
	if cm == nil || cm.IPAddress == "" {
		return nil
	}
	return utils.ToPtr(cm.IPAddress)
}

func (cm *ClientMetadata) userAgentPtr() *string {
	if cm == nil || cm.UserAgent == "" {
		return nil
	}
	return utils.ToPtr(cm.UserAgent)
}

var validate = utils.NewValidator()

// validateRequest runs struct tag validation and folds field errors into one validation error
func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return validationErrorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return validationErrorf("%v", err)
	}
	return nil
}

func isValidEmail(email string) bool {
	return validate.Var(email, "required,email,max=255") == nil
}

func isValidURL(raw string) bool {
	return validate.Var(raw, "url") == nil
}

// runInTx executes fn in one transaction and returns its result
func runInTx[T any](ctx context.Context, tx repository.Transactor, fn func(context.Context) (T, error)) (T, error) {
	var result T
	var fnErr error

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, fnErr
}

// normalizePage clamps page and perPage and returns the row offset
func normalizePage(page, perPage int) (int, int, int) {
	if page < 1 {
		page = utils.DefaultPage
	}
	if perPage < 1 {
		perPage = utils.DefaultPerPage
	}
	if perPage > utils.MaxPerPage {
		perPage = utils.MaxPerPage
	}
	return page, perPage, (page - 1) * perPage
}

func paginationInfo(page, perPage int, total int64) dto.PaginationInfo {
	return dto.PaginationInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: utils.TotalPages(total, perPage),
	}
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// generateBusinessCode returns an identifier of the form BIZ-XXXXXXXX
func generateBusinessCode() (string, error) {
	code, err := randomCode(8)
	if err != nil {
		return "", err
	}
	return "BIZ-" + code, nil
}

// generateComplaintCode returns an identifier of the form CMP-YYYYMMDD-XXXXXX
func generateComplaintCode(now time.Time) (string, error) {
	code, err := randomCode(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CMP-%s-%s", now.UTC().Format("20060102"), code), nil
}

// generateSecureToken returns nBytes of crypto randomness hex encoded
func generateSecureToken(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func requestIDFromContext(ctx context.Context) *string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		return &v
	}
	return nil
}

// publishEvent is best effort. The caller's write has already committed.
func publishEvent(ctx context.Context, publisher services.EventPublisher, logger *logrus.Logger, subject string, data map[string]any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, subject, data); err != nil {
		logger.WithError(err).WithField("subject", subject).Warn("event publish failed")
	}
}

// notifyUser writes an in-app notification. Failures are logged, not returned.
func notifyUser(ctx context.Context, repo repository.NotificationRepository, logger *logrus.Logger, userID uint, kind, title, body string, data models.NotificationData) {
	if repo == nil || userID == 0 {
		return
	}
	n := &models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Data:   data,
	}
	if err := repo.Save(ctx, n); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"type":    kind,
		}).Warn("notification write failed")
	}
}

// ToUserDTO converts a user model to its public view
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:                user.ID,
		Email:             user.Email,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		Phone:             user.Phone,
		UserType:          string(user.UserType),
		Status:            string(user.Status),
		VerificationLevel: string(user.VerificationLevel),
		LastLoginAt:       user.LastLoginAt,
		CreatedAt:         user.CreatedAt,
	}
}

func ToSessionDTO(session models.UserSession) dto.SessionDTO {
	return dto.SessionDTO{
		Token:     session.Token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
		ExpiresIn: int64(time.Until(session.ExpiresAt).Seconds()),
	}
}
