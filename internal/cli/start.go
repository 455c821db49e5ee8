package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"quizboard/internal/app"
	"quizboard/internal/config"
	"quizboard/internal/infra/memory"
	"quizboard/internal/infra/postgres"
	redisinfra "quizboard/internal/infra/redis"
	"quizboard/internal/logger"
	"quizboard/internal/metrics"
	"quizboard/internal/qr"
	transport "quizboard/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath, optionalConfig(configPath))
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	defer log.Sync() //nolint:errcheck

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// cleanups run in reverse order on shutdown
	var cleanups []func() error
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			_ = cleanups[i]()
		}
	}()

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		cleanups = append(cleanups, func() error { pool.Close(); return nil })
		store = postgres.NewStore(pool)
		log.Info("using postgres store")
	} else {
		log.Warn("postgres url not configured, using in-memory store")
	}

	var locker app.SubmissionLocker = memory.NewSubmissionLocker()
	var notifier *redisinfra.Notifier
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		locker = redisinfra.NewSubmissionLocker(client, config.TTLDuration(cfg.Redis.LockTTL, 5*time.Second))
		notifier = redisinfra.NewNotifier(client, log)
		log.Info("using redis locks and leaderboard fan-out", zap.String("addr", cfg.Redis.Addr))
	}

	deps := app.Dependencies{
		Store:  store,
		Locker: locker,
		QR:     qr.NewRenderer(),
		Logger: log,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	service := app.NewQuizService(deps, app.Options{
		EnforceDeadline: cfg.Quiz.EnforceDeadline,
		DeadlineGrace:   config.TTLDuration(cfg.Quiz.DeadlineGrace, 30*time.Second),
	})

	if notifier != nil {
		stopListener, err := notifier.Listen(ctx, service.Hub())
		if err != nil {
			return err
		}
		cleanups = append(cleanups, stopListener)
	}

	handler := transport.NewHandler(service, log, metrics.New(), transport.Options{
		PublicOrigin:    cfg.Server.PublicOrigin,
		RefreshInterval: config.TTLDuration(cfg.Leaderboard.RefreshInterval, 5*time.Second),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var result *multierror.Error
	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-serveErr:
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("serve: %w", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("shutdown http: %w", err))
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	cleanups = nil
	return result.ErrorOrNil()
}
