package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
)

type quizHandlers struct {
	service *app.AuthoringService
	log     *zap.Logger
}

type validationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type addQuestionRequest struct {
	Type domain.QuestionType `json:"type"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type generateRequest struct {
	Count int                 `json:"count"`
	Type  domain.QuestionType `json:"type"`
}

type questionResponse struct {
	Draft    app.Draft       `json:"draft"`
	Question domain.Question `json:"question"`
}

type optionResponse struct {
	Draft  app.Draft     `json:"draft"`
	Option domain.Option `json:"option"`
}

type pairResponse struct {
	Draft app.Draft   `json:"draft"`
	Pair  domain.Pair `json:"pair"`
}

type generateResponse struct {
	Draft app.Draft         `json:"draft"`
	Added []domain.Question `json:"added"`
}

func (h *quizHandlers) validate(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := decodeJSON(r, &quiz); err != nil {
		badRequest(w, "invalid quiz payload")
		return
	}
	problems := app.ValidateQuiz(quiz)
	if problems == nil {
		problems = []string{}
	}
	ok(w, validationResult{Valid: len(problems) == 0, Errors: problems})
}

func (h *quizHandlers) get(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	ok(w, draft)
}

func (h *quizHandlers) save(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := decodeJSON(r, &quiz); err != nil {
		badRequest(w, "invalid quiz payload")
		return
	}
	quiz.ID = chi.URLParam(r, "id")
	draft, err := h.service.Save(r.Context(), quiz)
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	ok(w, draft)
}

func (h *quizHandlers) publish(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, draft)
		return
	}
	ok(w, draft)
}

func (h *quizHandlers) reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid reorder payload")
		return
	}
	h.edit(w, r, func(b *app.Builder) error { return b.MoveQuestion(req.From, req.To) })
}

func (h *quizHandlers) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil || req.Count <= 0 {
		badRequest(w, "count must be a positive number")
		return
	}
	draft, added, err := h.service.Generate(r.Context(), chi.URLParam(r, "id"), req.Count, req.Type)
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	created(w, generateResponse{Draft: draft, Added: added})
}

func (h *quizHandlers) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid question payload")
		return
	}
	var q domain.Question
	draft, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), func(b *app.Builder) error {
		var err error
		q, err = b.AddQuestion(req.Type)
		return err
	})
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	created(w, questionResponse{Draft: draft, Question: q})
}

func (h *quizHandlers) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var patch app.QuestionPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, "invalid question patch")
		return
	}
	qid := chi.URLParam(r, "qid")
	h.edit(w, r, func(b *app.Builder) error { return b.UpdateQuestion(qid, patch) })
}

func (h *quizHandlers) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")
	h.edit(w, r, func(b *app.Builder) error { return b.DeleteQuestion(qid) })
}

func (h *quizHandlers) duplicateQuestion(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")
	var q domain.Question
	draft, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), func(b *app.Builder) error {
		var err error
		q, err = b.DuplicateQuestion(qid)
		return err
	})
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	created(w, questionResponse{Draft: draft, Question: q})
}

func (h *quizHandlers) addOption(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")
	var o domain.Option
	draft, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), func(b *app.Builder) error {
		var err error
		o, err = b.AddOption(qid)
		return err
	})
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	created(w, optionResponse{Draft: draft, Option: o})
}

func (h *quizHandlers) updateOption(w http.ResponseWriter, r *http.Request) {
	var patch app.OptionPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, "invalid option patch")
		return
	}
	qid, oid := chi.URLParam(r, "qid"), chi.URLParam(r, "oid")
	h.edit(w, r, func(b *app.Builder) error { return b.UpdateOption(qid, oid, patch) })
}

func (h *quizHandlers) deleteOption(w http.ResponseWriter, r *http.Request) {
	qid, oid := chi.URLParam(r, "qid"), chi.URLParam(r, "oid")
	h.edit(w, r, func(b *app.Builder) error { return b.DeleteOption(qid, oid) })
}

func (h *quizHandlers) addPair(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")
	var p domain.Pair
	draft, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), func(b *app.Builder) error {
		var err error
		p, err = b.AddPair(qid)
		return err
	})
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	created(w, pairResponse{Draft: draft, Pair: p})
}

func (h *quizHandlers) updatePair(w http.ResponseWriter, r *http.Request) {
	var patch app.PairPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, "invalid pair patch")
		return
	}
	qid, pid := chi.URLParam(r, "qid"), chi.URLParam(r, "pid")
	h.edit(w, r, func(b *app.Builder) error { return b.UpdatePair(qid, pid, patch) })
}

func (h *quizHandlers) deletePair(w http.ResponseWriter, r *http.Request) {
	qid, pid := chi.URLParam(r, "qid"), chi.URLParam(r, "pid")
	h.edit(w, r, func(b *app.Builder) error { return b.DeletePair(qid, pid) })
}

func (h *quizHandlers) edit(w http.ResponseWriter, r *http.Request, op func(*app.Builder) error) {
	draft, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), op)
	if err != nil {
		handleError(w, h.log, err, nil)
		return
	}
	ok(w, draft)
}
