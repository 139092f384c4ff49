package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"factzap-service/internal/app"
	"factzap-service/internal/config"
	"factzap-service/internal/infra/memory"
	pgstore "factzap-service/internal/infra/postgres"
	redisinfra "factzap-service/internal/infra/redis"
	transport "factzap-service/internal/transport/http"
	"factzap-service/internal/trivia"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	triviaTimeout := config.TTLDuration(cfg.Trivia.Timeout, 15*time.Second)
	provider := trivia.NewClient(cfg.Trivia.BaseURL, triviaTimeout)
	factProvider := trivia.NewFactClient(cfg.Facts.BaseURL, cfg.Facts.APIKey, triviaTimeout)

	var profiles app.ProfileStore = memory.NewProfileStore()
	if pool != nil {
		profiles = pgstore.NewProfileStore(pool)
	}

	// Daily questions are cached per date; 25h outlives the calendar day.
	dailyTTL := config.TTLDuration(cfg.Daily.TTL, 25*time.Hour)
	var daily app.DailyQuestionSource
	if redisClient != nil {
		daily = redisinfra.NewDailyQuestionCache(redisClient, provider, dailyTTL)
	} else {
		daily = memory.NewDailyQuestionCache(provider, dailyTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	achievements := app.NewAchievementEvaluator(profiles, nil)
	quizService := app.NewQuizService(sessions, provider, daily, profiles, achievements)
	resetService := app.NewResetService(profiles)
	leaderboards := app.NewLeaderboardService(profiles, resetService)
	factService := app.NewFactService(factProvider, profiles)

	wsHandler := transport.NewWSHandler(quizService)
	apiHandler := transport.NewAPIHandler(quizService, leaderboards, achievements, factService, provider)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("starting factzap service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
