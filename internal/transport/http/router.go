package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lms-quiz-service/internal/app"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Authoring *app.AuthoringService
	Players   *app.PlayerService
	Lessons   *app.LessonService
}

// NewRouter mounts the REST API, the player websocket and the health check.
func NewRouter(svc Services, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	quizzes := &quizHandlers{service: svc.Authoring, log: log}
	lessons := &lessonHandlers{service: svc.Lessons, log: log}
	ws := NewWSHandler(svc.Players, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws/play", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(requestLogger(log))

		r.Post("/quizzes/validate", quizzes.validate)
		r.Route("/quizzes/{id}", func(r chi.Router) {
			r.Get("/", quizzes.get)
			r.Put("/", quizzes.save)
			r.Post("/publish", quizzes.publish)
			r.Post("/reorder", quizzes.reorder)
			r.Post("/generate", quizzes.generate)
			r.Post("/questions", quizzes.addQuestion)
			r.Route("/questions/{qid}", func(r chi.Router) {
				r.Patch("/", quizzes.updateQuestion)
				r.Delete("/", quizzes.deleteQuestion)
				r.Post("/duplicate", quizzes.duplicateQuestion)
				r.Post("/options", quizzes.addOption)
				r.Patch("/options/{oid}", quizzes.updateOption)
				r.Delete("/options/{oid}", quizzes.deleteOption)
				r.Post("/pairs", quizzes.addPair)
				r.Patch("/pairs/{pid}", quizzes.updatePair)
				r.Delete("/pairs/{pid}", quizzes.deletePair)
			})
		})

		r.Get("/modules/{id}/lessons", lessons.list)
		r.Route("/lessons/{id}", func(r chi.Router) {
			r.Get("/content", lessons.get)
			r.Put("/content", lessons.edit)
			r.Post("/flush", lessons.flush)
			r.Get("/save-status", lessons.status)
		})
	})
	return r
}
