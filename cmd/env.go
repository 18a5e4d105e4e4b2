package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Pjt727/homeroom/calsync"
	"github.com/Pjt727/homeroom/calsync/providers"
	"github.com/Pjt727/homeroom/calsync/providers/feed"
	"github.com/Pjt727/homeroom/calsync/providers/google"
	"github.com/Pjt727/homeroom/config"
	"github.com/Pjt727/homeroom/data"
	logginghelpers "github.com/Pjt727/homeroom/data/logging-helpers"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// everything a command needs to run syncs
type appEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	store  *calsync.PgStore
	orch   *calsync.Orchestrator
	// set when the feed provider is configured
	feeds *feed.Provider
	close func()
}

// loadConfig reads the config named by --config and sets up both loggers
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, func(), error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	logger, closeLogs, err := setupLogging(cfg, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closeLogs, nil
}

func setupLogging(cfg *config.Config, console io.Writer) (*slog.Logger, func(), error) {
	level, err := logginghelpers.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	closeLogs := func() {}
	var file io.Writer
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open log file: %w", err)
		}
		file = f
		closeLogs = func() { f.Close() }
	}
	logger := logginghelpers.NewLogger(level, console, file)
	slog.SetDefault(logger)

	log.SetOutput(console)
	log.SetLevel(logrusLevel(level))
	return logger, closeLogs, nil
}

// logrus has no io or broken levels, they map onto their neighbours
func logrusLevel(level slog.Level) log.Level {
	switch {
	case level <= slog.LevelDebug:
		return log.TraceLevel
	case level <= logginghelpers.LevelReportIO:
		return log.DebugLevel
	case level <= slog.LevelInfo:
		return log.InfoLevel
	case level <= slog.LevelWarn:
		return log.WarnLevel
	}
	return log.ErrorLevel
}

func loadEnv(ctx context.Context, cmd *cobra.Command) (*appEnv, error) {
	cfg, logger, closeLogs, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newEnv(ctx, cfg, logger, closeLogs, nil)
}

// newEnv connects to the database and the provider, closeLogs is called by
// the returned env's close or right away on failure
func newEnv(ctx context.Context, cfg *config.Config, logger *slog.Logger, closeLogs func(), observer calsync.Observer) (*appEnv, error) {
	if cfg.DBConn == "" {
		closeLogs()
		return nil, errors.New("DB_CONN is not set")
	}
	pool, err := data.NewPool(ctx, cfg.DBConn)
	if err != nil {
		closeLogs()
		return nil, err
	}

	provider, feeds, err := buildProvider(ctx, cfg, pool, logger)
	if err != nil {
		pool.Close()
		closeLogs()
		return nil, err
	}

	store := calsync.NewPgStore(pool)
	lifecycle := calsync.NewLifecycleManager(provider, store, calsync.LifecycleOptions{
		CallTimeout: cfg.ProviderTimeout,
	})
	orch := calsync.NewOrchestrator(calsync.OrchestratorConfig{
		Courses:     store,
		Lifecycle:   lifecycle,
		Location:    cfg.Location(),
		Observer:    observer,
		Concurrency: cfg.SyncConcurrency,
	})
	return &appEnv{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		store:  store,
		orch:   orch,
		feeds:  feeds,
		close: func() {
			pool.Close()
			closeLogs()
		},
	}, nil
}

func buildProvider(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (providers.Provider, *feed.Provider, error) {
	switch cfg.Provider {
	case config.ProviderFeed:
		p := feed.New(pool, cfg.Timezone)
		return p, p, nil
	case config.ProviderGoogle:
		client, err := google.NewHTTPClient(ctx, google.OAuthOptions{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			TokenFile:    cfg.Google.TokenFile,
		}, cfg.ProviderRate, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("could not authorize google calendar: %w", err)
		}
		p, err := google.New(ctx, google.Options{
			HTTPClient: client,
			Endpoint:   cfg.Google.Endpoint,
			TimeZone:   cfg.Timezone,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown calendar provider %q", cfg.Provider)
}

// link is what a user opens or subscribes to for the calendar
func (e *appEnv) link(calendarID string) string {
	if url := e.cfg.FeedURL(calendarID); url != "" {
		return url
	}
	return calendarID
}
