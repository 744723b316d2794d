package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/config"
	"lms-quiz-service/internal/domain"
	"lms-quiz-service/internal/infra/memory"
	pgstore "lms-quiz-service/internal/infra/postgres"
	redisstore "lms-quiz-service/internal/infra/redis"
	"lms-quiz-service/internal/infra/remote"
	"lms-quiz-service/internal/logging"
	transport "lms-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type quizBackend interface {
	app.QuizStore
	memory.QuizLoader
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		quizzes quizBackend     = memory.NewQuizStore(sampleQuizzes())
		lessons app.LessonStore = memory.NewLessonStore(sampleLessons()...)
	)
	if pool != nil {
		quizzes = pgstore.NewQuizStore(pool)
		lessons = pgstore.NewLessonStore(pool)
	} else {
		logger.Warn("postgres not configured, serving in-memory sample content")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		cache    app.QuizInvalidator
		kv       app.KeyValueStore
		players  app.PlayerRepository
	)
	if redisClient != nil {
		repo := redisstore.NewQuizRepository(redisClient, quizzes, quizTTL, logger)
		quizRepo, cache = repo, repo
		kv = redisstore.NewKVStore(redisClient)
		players = redisstore.NewPlayerStore(redisClient, redisTTL)
	} else {
		repo := memory.NewQuizRepository(quizzes, quizTTL)
		quizRepo, cache = repo, repo
		kv = memory.NewKVStore()
		players = memory.NewPlayerStore()
	}

	var signer *remote.TokenSigner
	if cfg.Auth.ServiceSecret != "" {
		issuer := cfg.Auth.Issuer
		if issuer == "" {
			issuer = "lms-quiz-service"
		}
		signer = remote.NewTokenSigner(cfg.Auth.ServiceSecret, issuer, time.Minute)
	}

	deps := app.PlayerDeps{
		Ledger: app.NewAttemptLedger(kv, logger),
		Log:    logger,
	}
	if cfg.Grader.URL != "" {
		deps.Grader = remote.NewGrader(cfg.Grader.URL, config.TTLDuration(cfg.Grader.Timeout, 10*time.Second), signer)
	}
	var generator app.QuestionGenerator
	if cfg.Generator.URL != "" {
		generator = remote.NewGenerator(cfg.Generator.URL, config.TTLDuration(cfg.Generator.Timeout, 30*time.Second), signer)
	}

	lessonService := app.NewLessonService(lessons, app.AutosaveOptions{
		Debounce:    config.TTLDuration(cfg.Autosave.Debounce, app.DefaultDebounce),
		StatusReset: config.TTLDuration(cfg.Autosave.StatusReset, app.DefaultStatusReset),
	}, logger)

	handler := transport.NewRouter(transport.Services{
		Authoring: app.NewAuthoringService(quizzes, generator, lessonService, logger, cache),
		Players:   app.NewPlayerService(players, quizRepo, deps),
		Lessons:   lessonService,
	}, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// pending lesson edits are flushed before exit
	lessonService.Close(shutdownCtx)
	return err
}

// sampleQuizzes seeds the in-memory store when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:           "quiz-1",
			Title:        "Arithmetic warm-up",
			PassingScore: domain.IntPtr(50),
			Questions: []domain.Question{
				{
					ID:       "q1",
					Type:     domain.MultipleChoice,
					Question: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3", IsCorrect: false},
						{ID: "o2", Text: "4", IsCorrect: true},
						{ID: "o3", Text: "5", IsCorrect: false},
					},
					Points: 1,
				},
				{
					ID:            "q2",
					Type:          domain.TrueFalse,
					Question:      "Zero is an even number",
					CorrectAnswer: "true",
					Points:        1,
				},
			},
		},
	}
}

func sampleLessons() []app.StoredLesson {
	// the quiz lesson holds the published sample quiz, as Publish would write it
	quiz, _ := json.Marshal(domain.QuizContent{Quiz: sampleQuizzes()["quiz-1"]})
	return []app.StoredLesson{
		{ID: "lesson-1", ModuleID: "module-1", Title: "Welcome", Type: domain.LessonText, Position: 1, Content: []byte(`"<p>Welcome to the course.</p>"`)},
		{ID: "quiz-1", ModuleID: "module-1", Title: "Arithmetic warm-up", Type: domain.LessonQuiz, Position: 2, Content: quiz},
	}
}
