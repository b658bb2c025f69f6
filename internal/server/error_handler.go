// file: internal/server/error_handler.go
// version: 2.0.0
// guid: 5d6e7f8a-9b0c-1d2e-3f4a-5b6c7d8e9f0a

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jdfalk/media-acquirer/internal/acquisition"
	"github.com/jdfalk/media-acquirer/internal/blacklist"
	"github.com/jdfalk/media-acquirer/internal/database"
	"github.com/jdfalk/media-acquirer/internal/download"
)

// ErrorResponse provides a consistent error response format
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status int    `json:"status"`
}

// RespondWithError sends a standardized error response and logs the error
func RespondWithError(c *gin.Context, statusCode int, message string, code string) {
	logErrorWithContext(c, statusCode, message)

	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: statusCode,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error response
func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, message, "BAD_REQUEST")
}

// RespondWithValidationError sends a 400 error for validation failures
func RespondWithValidationError(c *gin.Context, field string, reason string) {
	message := "validation error: " + field
	if reason != "" {
		message = message + " (" + reason + ")"
	}
	RespondWithError(c, http.StatusBadRequest, message, "VALIDATION_ERROR")
}

// RespondWithNotFound sends a 404 Not Found error response
func RespondWithNotFound(c *gin.Context, resourceType string, id string) {
	message := resourceType + " not found"
	if id != "" {
		message = message + ": " + id
	}
	RespondWithError(c, http.StatusNotFound, message, "NOT_FOUND")
}

// RespondWithInternalError sends a 500 Internal Server Error response
func RespondWithInternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// RespondWithConflict sends a 409 Conflict error response
func RespondWithConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, message, "CONFLICT")
}

// RespondWithOK sends a 200 OK response
func RespondWithOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// RespondWithCreated sends a 201 Created response
func RespondWithCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// RespondWithNoContent sends a 204 No Content response
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondWithDomainError maps errors from the acquisition core onto HTTP
// statuses. Unknown errors become 500s.
func RespondWithDomainError(c *gin.Context, err error) {
	var rpcErr *download.RPCError
	switch {
	case errors.Is(err, database.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, blacklist.ErrInvalidMediaRef):
		RespondWithError(c, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, acquisition.ErrRetriesExceeded):
		RespondWithError(c, http.StatusConflict, err.Error(), "RETRIES_EXCEEDED")
	case errors.Is(err, acquisition.ErrNoCandidate):
		RespondWithError(c, http.StatusUnprocessableEntity, err.Error(), "NO_CANDIDATE")
	case errors.Is(err, acquisition.ErrNoBackend):
		RespondWithError(c, http.StatusUnprocessableEntity, err.Error(), "NO_BACKEND")
	case errors.Is(err, download.ErrAuthFailed),
		errors.Is(err, download.ErrSessionConflict),
		errors.As(err, &rpcErr):
		RespondWithError(c, http.StatusBadGateway, err.Error(), "BACKEND_ERROR")
	default:
		RespondWithInternalError(c, err.Error())
	}
}

// logErrorWithContext logs an error with request context for debugging
func logErrorWithContext(c *gin.Context, statusCode int, message string) {
	entry := log.WithFields(log.Fields{
		"component": "server",
		"method":    c.Request.Method,
		"path":      c.Request.URL.Path,
		"status":    statusCode,
		"client_ip": c.ClientIP(),
	})
	if id := c.GetString(requestIDKey); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if statusCode >= 500 {
		entry.Error(message)
		return
	}
	entry.Warn(message)
}

// HandleBindError handles JSON binding errors with a consistent response
func HandleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "required") || strings.Contains(errMsg, "binding") {
		RespondWithValidationError(c, "request body", errMsg)
	} else {
		RespondWithBadRequest(c, "invalid request: "+errMsg)
	}
	return true
}

// ParseQueryInt parses an integer query parameter with a default value
func ParseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.DefaultQuery(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseQueryBool parses a boolean query parameter with a default value
func ParseQueryBool(c *gin.Context, key string, defaultValue bool) bool {
	valueStr := c.DefaultQuery(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.ToLower(valueStr) == "true" || valueStr == "1"
}
