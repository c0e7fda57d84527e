package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/lostfound/backend/internal/domain"
)

// Request-level failures detected before the service layer runs.
var (
	errTooLarge         = errors.New("request body too large")
	errUnsupportedMedia = errors.New("unsupported content type")
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and error body. Unexpected errors
// are logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errTooLarge), errors.As(err, &maxBytes):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("too_large", "request body too large"))
	case errors.Is(err, errUnsupportedMedia):
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody("unsupported_media_type", err.Error()))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("validation_error", unwrapMessage(err, domain.ErrValidation)))
	case errors.Is(err, domain.ErrPermission):
		writeJSON(w, http.StatusForbidden, errorBody("forbidden", "administrator access required"))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "item not found"))
	case errors.Is(err, domain.ErrUpload):
		s.log.ErrorContext(r.Context(), "image upload failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody("upload_failed", "image could not be stored"))
	default:
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
	}
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// unwrapMessage extracts the human-readable part that follows a wrapped sentinel.
// e.g. "service.ItemService.Create: validation error: description is required" → "description is required"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}
