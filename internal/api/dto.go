package api

import "github.com/starford/mockbox/internal/models"

// EntityResponse wraps a single entity.
type EntityResponse struct {
	Data    *models.Entity `json:"data"`
	Message string         `json:"message"`
}

// EntityListResponse wraps every entity of one type.
type EntityListResponse struct {
	Data    []*models.Entity `json:"data"`
	Message string           `json:"message"`
}

// MessageResponse carries only a message, as returned by delete.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error titles used in ErrorResponse.
const (
	ErrTitleNotFound   = "Not found"
	ErrTitleBadRequest = "Bad request"
	ErrTitleTooLarge   = "Payload too large"
	ErrTitleInternal   = "Internal server error"
)
