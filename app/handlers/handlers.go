// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/amirphl/business-registry/app/dto"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

const defaultRequestTimeout = 30 * time.Second

// Locals keys set by the auth middleware
const (
	LocalUserID = "user_id"
	LocalUser   = "user"
)

// RequestID returns the id assigned by the requestid middleware
func RequestID(c fiber.Ctx) string {
	return requestid.FromContext(c)
}

// ErrorResponse writes the failure envelope
func ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse writes the success envelope
func SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// StatusForKind maps a flow error kind to an HTTP status
func StatusForKind(kind businessflow.ErrorKind) int {
	switch kind {
	case businessflow.KindValidation:
		return fiber.StatusBadRequest
	case businessflow.KindConflict:
		return fiber.StatusConflict
	case businessflow.KindNotFound:
		return fiber.StatusNotFound
	case businessflow.KindState:
		return fiber.StatusUnprocessableEntity
	case businessflow.KindLimit:
		return fiber.StatusPaymentRequired
	case businessflow.KindAuth:
		return fiber.StatusUnauthorized
	case businessflow.KindPermission:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// flowError renders err. Storage failures never leak their cause.
func flowError(c fiber.Ctx, err error, fallbackCode string) error {
	kind := businessflow.ErrorKindOf(err)
	status := StatusForKind(kind)

	code := fallbackCode
	message := "Request failed"
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code = be.Code
		message = be.Message
	}

	if kind == businessflow.KindStorage {
		return c.Status(status).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error:   dto.ErrorDetail{Code: code, Kind: string(kind)},
		})
	}

	details := err.Error()
	if be != nil && be.Err != nil {
		details = be.Err.Error()
	}
	return c.Status(status).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code, Kind: string(kind), Details: details},
	})
}

// requestContext bounds the flow call and carries the request id
func requestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	if id := RequestID(c); id != "" {
		ctx = context.WithValue(ctx, businessflow.RequestIDKey, id)
	}
	return ctx, cancel
}

func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if id := RequestID(c); id != "" {
		metadata.SetRequestID(id)
	}
	return metadata
}

// currentUserID returns the authenticated user, if any
func currentUserID(c fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

func optionalUserID(c fiber.Ctx) *uint {
	if id, ok := currentUserID(c); ok {
		return &id
	}
	return nil
}

func paramUint(c fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(v), nil
}

func queryUintPtr(c fiber.Ctx, name string) *uint {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	u := uint(n)
	return &u
}

func queryBool(c fiber.Ctx, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

func queryInt(c fiber.Ctx, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

func paginationFromQuery(c fiber.Ctx) dto.PaginationRequest {
	return dto.PaginationRequest{Page: queryInt(c, "page"), PerPage: queryInt(c, "per_page")}
}

type requestError struct {
	code    string
	message string
	details any
}

func (e *requestError) Error() string { return e.message }

// bindJSON decodes the body and runs tag validation
func bindJSON(c fiber.Ctx, v *validator.Validate, req any) error {
	if err := c.Bind().JSON(req); err != nil {
		return &requestError{code: "INVALID_REQUEST", message: "Invalid request body", details: err.Error()}
	}
	if err := v.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			details := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				details = append(details, getValidationErrorMessage(fe))
			}
			return &requestError{code: "VALIDATION_ERROR", message: "Validation failed", details: details}
		}
		return &requestError{code: "VALIDATION_ERROR", message: "Validation failed", details: err.Error()}
	}
	return nil
}

func badRequest(c fiber.Ctx, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return ErrorResponse(c, fiber.StatusBadRequest, re.message, re.code, re.details)
	}
	return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", "INVALID_REQUEST", err.Error())
}

// formUpload opens the multipart file under field. The caller closes it.
func formUpload(c fiber.Ctx, field string) (*dto.UploadRequest, io.Closer, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	return &dto.UploadRequest{
		OriginalFilename: fileHeader.Filename,
		FileSize:         fileHeader.Size,
		ContentType:      fileHeader.Header.Get("Content-Type"),
		File:             file,
	}, file, nil
}

// sendFile writes a download with its disposition
func sendFile(c fiber.Ctx, filename, contentType string, data []byte, inline bool) error {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	return c.Status(fiber.StatusOK).Send(data)
}

func unauthorized(c fiber.Ctx) error {
	return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "url":
		return err.Field() + " must be a valid URL"
	case "phone_format":
		return err.Field() + " must be a valid phone number"
	case "password_strength":
		return "Password must contain at least 1 uppercase letter and 1 number"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
