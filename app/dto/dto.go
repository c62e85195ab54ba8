// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "io"

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail represents error details in API responses
type ErrorDetail struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// PaginationRequest is embedded by list requests
type PaginationRequest struct {
	Page    int `json:"page" query:"page" validate:"omitempty,min=1" example:"1"`
	PerPage int `json:"per_page" query:"per_page" validate:"omitempty,min=1,max=100" example:"20"`
}

// PaginationInfo describes one page of a list result
type PaginationInfo struct {
	Page       int   `json:"page" example:"1"`
	PerPage    int   `json:"per_page" example:"20"`
	Total      int64 `json:"total" example:"57"`
	TotalPages int   `json:"total_pages" example:"3"`
}

// UploadRequest carries a multipart file from handler to flow
type UploadRequest struct {
	OriginalFilename string    `json:"-"`
	FileSize         int64     `json:"-"`
	ContentType      string    `json:"-"`
	File             io.Reader `json:"-"`
}
