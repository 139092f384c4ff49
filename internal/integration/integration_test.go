package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
	"factzap-service/internal/infra/memory"
	pgstore "factzap-service/internal/infra/postgres"
	pgmigrations "factzap-service/internal/infra/postgres/migrations"
	infraredis "factzap-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestDailyQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	profiles := pgstore.NewProfileStore(pool)
	provider := memory.NewStaticQuestionProvider([]domain.Question{{
		Type:             "boolean",
		Difficulty:       "easy",
		Category:         "Science",
		Text:             "Water boils at 100C at sea level.",
		CorrectAnswer:    "True",
		IncorrectAnswers: []string{"False"},
	}})
	daily := infraredis.NewDailyQuestionCache(redisClient, provider, 25*time.Hour)
	sessions := infraredis.NewSessionStore(redisClient, time.Hour)
	achievements := app.NewAchievementEvaluator(profiles, nil)
	service := app.NewQuizService(sessions, provider, daily, profiles, achievements)

	resets := app.NewResetService(profiles)
	if err := resets.InitializeState(ctx); err != nil {
		t.Fatalf("init reset state: %v", err)
	}

	if _, err := service.Register(ctx, "u1", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	session, err := service.StartDaily(ctx, "u1")
	if err != nil {
		t.Fatalf("start daily: %v", err)
	}
	if !session.Daily() {
		t.Fatal("expected daily session")
	}

	outcome, err := service.Answer(ctx, "u1", 0, "True", 10)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !outcome.Correct || outcome.Awarded != 3 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	summary, err := service.Advance(ctx, "u1")
	if err != nil || summary == nil {
		t.Fatalf("advance: summary=%+v err=%v", summary, err)
	}
	if summary.TotalScore != 3 {
		t.Fatalf("unexpected total score: %+v", summary)
	}

	// The profile round-trips through Postgres with the applied scores,
	// streak, and achievement documents.
	profile, err := profiles.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.AllTimeScore != 3 || profile.WeeklyScore != 3 || profile.MonthlyScore != 3 {
		t.Fatalf("scores not persisted: %+v", profile)
	}
	if profile.DailyStreak != 1 || profile.LastAttemptDate == "" {
		t.Fatalf("streak not persisted: %+v", profile)
	}
	found := false
	for _, a := range profile.Achievements {
		if a.ID == app.AchievementDailyChampion && a.Unlocked {
			found = true
		}
	}
	if !found {
		t.Fatalf("daily champion not persisted: %+v", profile.Achievements)
	}

	// Same-day retry is refused.
	if _, err := service.StartDaily(ctx, "u1"); !errors.Is(err, domain.ErrAlreadyAttempted) {
		t.Fatalf("expected already-attempted, got %v", err)
	}

	// Another instance sharing Redis serves the identical daily question.
	otherDaily := infraredis.NewDailyQuestionCache(redisClient, memory.NewStaticQuestionProvider(nil), 25*time.Hour)
	question, err := otherDaily.DailyQuestion(ctx, time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("shared daily question: %v", err)
	}
	if question.Text != "Water boils at 100C at sea level." {
		t.Fatalf("daily question not shared via redis: %+v", question)
	}

	// The leaderboard reads back through SQL ordering.
	leaderboards := app.NewLeaderboardService(profiles, resets)
	rank, err := leaderboards.Rank(ctx, "u1", domain.AllTimeScore)
	if err != nil || rank != 1 {
		t.Fatalf("expected rank 1, got %d err=%v", rank, err)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
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

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "factzap", "POSTGRES_PASSWORD": "factzappass", "POSTGRES_DB": "factzapdb"},
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
	dsn := fmt.Sprintf("postgres://factzap:factzappass@%s:%s/factzapdb?sslmode=disable", host, port.Port())
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
