// file: internal/server/validators.go
// version: 2.0.0
// guid: 9b0c1d2e-3f4a-5b6c-7d8e-9f0a1b2c3d4e

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// ValidationError represents a validation error with code
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateTitle validates that a title is non-empty and has reasonable length
func ValidateTitle(title string, maxLength int) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ValidationError{
			Field:   "title",
			Message: "title is required",
			Code:    "TITLE_REQUIRED",
		}
	}
	if maxLength > 0 && len(title) > maxLength {
		return ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must not exceed %d characters", maxLength),
			Code:    "TITLE_TOO_LONG",
		}
	}
	return nil
}

// ValidateMediaType accepts an empty type only when allowEmpty is set.
func ValidateMediaType(t models.MediaType, allowEmpty bool) error {
	if t == "" && allowEmpty {
		return nil
	}
	if !t.Valid() {
		return ValidationError{
			Field:   "media_type",
			Message: fmt.Sprintf("unknown media type %q", t),
			Code:    "INVALID_MEDIA_TYPE",
		}
	}
	return nil
}

// ValidateMediaRef checks that exactly one media id is set.
func ValidateMediaRef(ref models.MediaRef) error {
	if !ref.Valid() {
		return ValidationError{
			Field:   "media",
			Message: fmt.Sprintf("exactly one media id must be set, got %d", ref.Count()),
			Code:    "INVALID_MEDIA_REF",
		}
	}
	return nil
}

// ValidateCandidates checks the identity and protocol of every candidate.
func ValidateCandidates(candidates []models.Candidate, maxCount int) error {
	if len(candidates) == 0 {
		return ValidationError{Field: "candidates", Message: "at least one candidate is required", Code: "CANDIDATES_REQUIRED"}
	}
	if maxCount > 0 && len(candidates) > maxCount {
		return ValidationError{
			Field:   "candidates",
			Message: fmt.Sprintf("at most %d candidates per request", maxCount),
			Code:    "TOO_MANY_CANDIDATES",
		}
	}
	for i, c := range candidates {
		field := fmt.Sprintf("candidates[%d]", i)
		switch {
		case strings.TrimSpace(c.GUID) == "" || strings.TrimSpace(c.Source) == "":
			return ValidationError{Field: field, Message: "guid and source are required", Code: "INVALID_CANDIDATE"}
		case c.Title == "":
			return ValidationError{Field: field, Message: "title is required", Code: "INVALID_CANDIDATE"}
		case c.Size < 0:
			return ValidationError{Field: field, Message: "size must not be negative", Code: "INVALID_CANDIDATE"}
		case c.Protocol != models.ProtocolTorrent && c.Protocol != models.ProtocolUsenet:
			return ValidationError{Field: field, Message: fmt.Sprintf("unknown protocol %q", c.Protocol), Code: "INVALID_CANDIDATE"}
		}
	}
	return nil
}

// respondIfInvalid writes a 400 for the first failing check and reports
// whether it did.
func respondIfInvalid(c *gin.Context, errs ...error) bool {
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve ValidationError
		if errors.As(err, &ve) {
			RespondWithError(c, http.StatusBadRequest, ve.Error(), ve.Code)
		} else {
			RespondWithBadRequest(c, err.Error())
		}
		return true
	}
	return false
}
