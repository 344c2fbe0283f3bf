package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR RESPONSES
// Every failure leaves the API as {"error": {"code", "message"}}. The status
// is chosen by taxonomy kind, in one place.
// ══════════════════════════════════════════════════════════════════════════════

// APIError is the body of an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

type kindMapping struct {
	status int
	code   string
}

var kindStatus = map[error]kindMapping{
	shared.ErrDuplicateActiveRequest: {http.StatusConflict, "duplicate_active_request"},
	shared.ErrInvalidTransition:      {http.StatusConflict, "invalid_transition"},
	shared.ErrAlreadyExists:          {http.StatusConflict, "already_exists"},
	shared.ErrInvalidRating:          {http.StatusUnprocessableEntity, "invalid_rating"},
	shared.ErrInvalidInput:           {http.StatusBadRequest, "invalid_input"},
	shared.ErrNotFound:               {http.StatusNotFound, "not_found"},
	shared.ErrUnauthorized:           {http.StatusUnauthorized, "unauthorized"},
	shared.ErrForbidden:              {http.StatusForbidden, "forbidden"},
	shared.ErrPendingApproval:        {http.StatusForbidden, "pending_approval"},
	shared.ErrStoreUnavailable:       {http.StatusServiceUnavailable, "store_unavailable"},
}

// StatusFor returns the HTTP status and error code for err.
func StatusFor(err error) (int, string) {
	if m, ok := kindStatus[shared.Kind(err)]; ok {
		return m.status, m.code
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps err to a status and writes the error body. Internal errors
// are logged and their text is not sent to the client.
func writeError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	_ = c.Error(err)

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			logger.String("code", code),
			logger.Err(err),
		)
		if status == http.StatusInternalServerError {
			message = "An unexpected error occurred"
		}
	}

	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: APIError{Code: code, Message: message}})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// bindJSON decodes the body into dst and reports binding failures as
// invalid input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid_input", bindingMessage(err))
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
		}
		return "invalid fields: " + strings.Join(fields, ", ")
	}
	return "malformed request body"
}

const dateLayout = "2006-01-02"

// parseDate reads a calendar date in the campus timezone. An empty value is
// the zero time.
func (s *Server) parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, s.config.Location)
	if err != nil {
		return time.Time{}, shared.NewDomainError("http", "parseDate", shared.ErrInvalidInput,
			field+" must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.NewDomainError("http", "queryInt", shared.ErrInvalidInput, key+" must be an integer")
	}
	return v, nil
}

func queryFloat(c *gin.Context, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, shared.NewDomainError("http", "queryFloat", shared.ErrInvalidInput, key+" must be a number")
	}
	return v, nil
}

// list writes items as {"data": [...], "count": n}, never null.
func list[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "count": len(items)})
}
