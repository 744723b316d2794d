package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"lms-quiz-service/internal/app"
	"lms-quiz-service/internal/domain"
	pgstore "lms-quiz-service/internal/infra/postgres"
	pgmigrations "lms-quiz-service/internal/infra/postgres/migrations"
	infraredis "lms-quiz-service/internal/infra/redis"
)

func TestPublishAndPlayEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := pgstore.NewQuizStore(pool)
	quizRepo := infraredis.NewQuizRepository(redisClient, store, 5*time.Minute, nil)
	authoring := app.NewAuthoringService(store, nil, nil, nil, quizRepo)

	if _, err := authoring.Save(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	if _, err := authoring.Publish(ctx, "quiz-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	service := app.NewPlayerService(
		infraredis.NewPlayerStore(redisClient, 5*time.Minute),
		quizRepo,
		app.PlayerDeps{Ledger: app.NewAttemptLedger(infraredis.NewKVStore(redisClient), nil)},
	)

	for attempt, answer := range []string{"o1", "o2"} {
		if _, err := service.Start(ctx, "quiz-1", "u1"); err != nil {
			t.Fatalf("start attempt %d: %v", attempt+1, err)
		}
		if _, err := service.Answer(ctx, "quiz-1", "u1", "q1", domain.Answer{Value: answer}); err != nil {
			t.Fatalf("answer: %v", err)
		}
		view, err := service.Submit(ctx, "quiz-1", "u1")
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if view.Attempts != attempt+1 {
			t.Fatalf("expected %d attempts, got %d", attempt+1, view.Attempts)
		}
		service.Leave(ctx, "quiz-1", "u1")
	}

	view, err := service.Start(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start locked out: %v", err)
	}
	if view.State != app.StateLockedOut {
		t.Fatalf("expected locked out after two attempts, got %s", view.State)
	}
	if view.Result == nil || view.Result.Score != 100 {
		t.Fatalf("expected last result to be shown, got %+v", view.Result)
	}
}

func TestLessonAutosaveEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `INSERT INTO lessons (id, module_id, title, type, content, position) VALUES
		('l1', 'm1', 'Intro', 'text', '<p>raw html</p>', 1),
		('l2', 'm1', 'Clip', 'video', '"{\"url\":\"https://v/1\"}"', 2)`); err != nil {
		t.Fatalf("seed lessons: %v", err)
	}

	lessons := app.NewLessonService(pgstore.NewLessonStore(pool), app.AutosaveOptions{Debounce: time.Hour}, nil)
	defer lessons.Close(ctx)

	listed, err := lessons.List(ctx, "m1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(listed))
	}
	if got := listed[0].Content.(domain.TextContent).HTML; got != "<p>raw html</p>" {
		t.Fatalf("expected raw html preserved, got %q", got)
	}
	if got := listed[1].Content.(domain.VideoContent).URL; got != "https://v/1" {
		t.Fatalf("expected string-wrapped json decoded, got %q", got)
	}

	if _, err := lessons.Edit(ctx, "l1", json.RawMessage(`{"html":"<p>edited</p>"}`)); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := lessons.Flush(ctx, "l1"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	var content string
	if err := pool.QueryRow(ctx, `SELECT content FROM lessons WHERE id='l1'`).Scan(&content); err != nil {
		t.Fatalf("read content: %v", err)
	}
	if content != `{"html":"<p>edited</p>"}` {
		t.Fatalf("unexpected stored content %s", content)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		Title:           "Arithmetic",
		AttemptsAllowed: domain.IntPtr(2),
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
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
