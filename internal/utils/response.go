package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ms-events/internal/models"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status    int               `json:"status"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Path      string            `json:"path"`
	Timestamp time.Time         `json:"timestamp"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates err into an ErrorResponse. Errors that do not carry a
// domain kind are reported as 500 without leaking their message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{
		Status:    status,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	}

	var appErr *models.AppError
	switch {
	case status == http.StatusInternalServerError:
		resp.Code = "INTERNAL_ERROR"
		resp.Message = "An unexpected error occurred"
	case errors.As(err, &appErr):
		resp.Code = appErr.Code
		resp.Message = appErr.Message
		resp.Details = appErr.Details
	default:
		resp.Code = defaultCode(status)
		resp.Message = err.Error()
	}

	WriteJSON(w, status, resp)
}

func defaultCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	default:
		return "BAD_REQUEST"
	}
}
