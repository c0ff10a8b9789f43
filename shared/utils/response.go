package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

// NotFoundResponse sends a 404 Not Found response
func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}

// ConflictResponse sends a 409 Conflict response
func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, message)
}

// InternalServerErrorResponse sends a 500 Internal Server Error response
func InternalServerErrorResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}

// ServiceUnavailableResponse sends a 503 Service Unavailable response
func ServiceUnavailableResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, message)
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	SuccessResponse(c, http.StatusCreated, message, data)
}

// OKResponse sends a 200 OK response
func OKResponse(c *gin.Context, message string, data interface{}) {
	SuccessResponse(c, http.StatusOK, message, data)
}

// StatusFor maps a domain error to its HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrDuplicateIdentity),
		errors.Is(err, apperr.ErrRoomFull),
		errors.Is(err, apperr.ErrRoomTypeMismatch),
		errors.Is(err, apperr.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrStorageFailure):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// DomainErrorResponse writes err with the status its kind maps to. Storage
// and unknown errors are logged in full and answered with a generic message.
func DomainErrorResponse(c *gin.Context, err error) {
	status := StatusFor(err)

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, APIResponse{Success: false, Error: "Validation failed", Fields: verr.Fields})
		return
	}

	switch status {
	case http.StatusServiceUnavailable:
		logrus.WithField("path", c.FullPath()).Error("Storage failure: ", apperr.Detail(err))
		ServiceUnavailableResponse(c, "Storage is temporarily unavailable, please retry")
	case http.StatusInternalServerError:
		logrus.WithField("path", c.FullPath()).WithError(err).Error("Unhandled error")
		InternalServerErrorResponse(c, "Internal server error")
	default:
		ErrorResponse(c, status, err.Error())
	}
}
