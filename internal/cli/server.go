package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-player-service/internal/app"
	"quiz-player-service/internal/bank"
	"quiz-player-service/internal/config"
	"quiz-player-service/internal/domain"
	"quiz-player-service/internal/infra/memory"
	pgbank "quiz-player-service/internal/infra/postgres"
	redisinfra "quiz-player-service/internal/infra/redis"
	"quiz-player-service/internal/infra/sqlite"
	"quiz-player-service/internal/logger"
	"quiz-player-service/internal/quiz"
	transport "quiz-player-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz player server",
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

	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Bank source priority: Postgres, then HTTP, then a local directory,
	// then the built-in demo bank.
	var loader bank.Loader
	switch {
	case pool != nil:
		loader = pgbank.NewBankLoader(pool)
	case cfg.Bank.BaseURL != "":
		loader = bank.NewHTTPLoader(cfg.Bank.BaseURL, &http.Client{Timeout: 15 * time.Second})
	case cfg.Bank.Dir != "":
		loader = bank.NewFileLoader(cfg.Bank.Dir)
	default:
		loader = memory.NewStaticLoader(demoBanks())
	}

	// redis.ttl is the default lifetime for Redis-held values; the bank and
	// snapshot sections override it for their own keys.
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*24*time.Hour)

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	snapshotTTL := config.TTLDuration(cfg.Quiz.SnapshotTTL, redisTTL)
	var snapshots app.SnapshotStore
	var bookmarks app.BookmarkStore
	var events app.EventSink = memory.NopEventSink{}
	if redisClient != nil {
		snapshots = redisinfra.NewSnapshotStore(redisClient, snapshotTTL)
		bookmarks = redisinfra.NewBookmarkStore(redisClient)
		events = redisinfra.NewEventRelay(redisClient)
	} else {
		snapshots = memory.NewSnapshotStore()
		bookmarks = memory.NewBookmarkStore()
	}

	historyLimit := cfg.Quiz.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 50
	}
	var history app.HistoryStore
	if cfg.SQLite.Path != "" {
		store, err := sqlite.Open(ctx, cfg.SQLite.Path, historyLimit)
		if err != nil {
			return err
		}
		defer store.Close()
		history = store
	} else {
		history = memory.NewHistoryStore(historyLimit)
	}

	service := app.NewPlayerService(banks, snapshots, bookmarks, history, events, log, app.Options{
		Shuffle: quiz.Shuffle{
			Questions: cfg.Quiz.ShuffleQuestions,
			Options:   cfg.Quiz.ShuffleOptions,
		},
		Subjects:     cfg.Bank.Subjects,
		HistoryLimit: historyLimit,
	})
	router := transport.NewRouter(service, transport.NewWSHandler(service, log), log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz player service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// demoBanks provides a minimal subject so the service runs with zero
// configuration; real deployments point at a bank directory, URL, or
// Postgres.
func demoBanks() map[string]domain.Bank {
	return map[string]domain.Bank{
		"demo.json": {
			Subject: "demo.json",
			Questions: []domain.Question{
				{
					Text: "What is 2 + 2?",
					Hint: "count on your fingers",
					Options: []domain.Option{
						{Text: "3"},
						{Text: "4", IsCorrect: true, Rationale: "basic arithmetic"},
						{Text: "5"},
					},
				},
				{
					Text: "Which planet is closest to the sun?",
					Options: []domain.Option{
						{Text: "Venus"},
						{Text: "Mercury", IsCorrect: true},
						{Text: "Mars"},
					},
				},
			},
		},
	}
}
