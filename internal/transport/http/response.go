package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"lms-quiz-service/internal/domain"
)

// envelope is the standard API response body.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: data})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrLessonNotFound),
		errors.Is(err, domain.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrAnswerRequired),
		errors.Is(err, domain.ErrInvalidContent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGenerationDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// handleError writes err with its mapped status. Server errors are logged
// and their details hidden from the client.
func handleError(w http.ResponseWriter, log *zap.Logger, err error, data interface{}) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		log.Warn("upstream service failed", zap.Error(err))
		msg = domain.ErrGenerationFailed.Error()
	case status >= 500 && status != http.StatusServiceUnavailable:
		log.Error("request failed", zap.Error(err))
		msg = "internal error"
	default:
		log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, envelope{Data: data, Error: msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
