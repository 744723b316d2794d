package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lms-quiz-service/internal/app"
)

type lessonHandlers struct {
	service *app.LessonService
	log     *zap.Logger
}

type saveStatusResponse struct {
	Status app.SaveStatus `json:"status"`
}

func (h *lessonHandlers) list(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.service.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	ok(w, lessons)
}

func (h *lessonHandlers) get(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.service.Lesson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	ok(w, lesson)
}

func (h *lessonHandlers) edit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		badRequest(w, "content must be a JSON document")
		return
	}
	status, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), json.RawMessage(body))
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	writeJSON(w, http.StatusAccepted, envelope{Success: true, Data: saveStatusResponse{Status: status}})
}

func (h *lessonHandlers) flush(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Flush(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, saveStatusResponse{Status: status})
		return
	}
	ok(w, saveStatusResponse{Status: status})
}

func (h *lessonHandlers) status(w http.ResponseWriter, r *http.Request) {
	ok(w, saveStatusResponse{Status: h.service.Status(chi.URLParam(r, "id"))})
}
