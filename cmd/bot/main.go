// Command bot is the entry point for the rating-exchange Discord bot: it
// wires configuration, logging, the Postgres pool and migrations, the
// repository layer, the exchange scheduler, and the (for now, log-backed)
// Discord session together, then blocks until a shutdown signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ratingxchange/internal/commands"
	"ratingxchange/internal/platform"
	"ratingxchange/internal/scheduler"
	"ratingxchange/internal/store"
	"ratingxchange/internal/store/changefeed"
	"ratingxchange/migrations"
	"ratingxchange/pkg/audit"
	"ratingxchange/pkg/config"
	"ratingxchange/pkg/database"
	"ratingxchange/pkg/logger"
	"ratingxchange/pkg/metrics"
	"ratingxchange/pkg/ratelimit"
	"ratingxchange/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, "")
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port); err != nil {
				logger.Log.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator := database.NewMigrator(db.Pool(), migrations.PostgresMigrations, cfg.Database.MigrationsPath)
		if err := migrator.Up(ctx); err != nil {
			logger.Log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	hub := changefeed.NewHub()
	exchanges := store.NewPostgresExchangeRepository(db, hub)
	submissions := store.NewPostgresSubmissionRepository(db)
	played := store.NewPostgresPlayedGameRepository(db)

	session := platform.NewNoopSession()

	limiter, err := ratelimit.New(&ratelimit.Config{
		Requests:  cfg.RateLimit.Requests,
		Window:    cfg.RateLimit.Window,
		Backend:   cfg.RateLimit.Backend,
		RedisAddr: cfg.RateLimit.RedisAddr,
	})
	if err != nil {
		logger.Log.Warn("failed to init rate limiter, commands will be unthrottled", "error", err)
		limiter = nil
	} else {
		defer limiter.Close()
	}

	auditLogger := audit.NewStdoutLogger(&audit.Config{Enabled: true, Backend: "stdout"})
	defer auditLogger.Close()

	// handlers has nothing to dispatch from yet: platform.Session is
	// outbound-only (no grounded gateway client receives interactions — see
	// DESIGN.md). A concrete Session implementation would route incoming
	// slash-command interactions to these handlers.
	handlers := &commands.Handlers{
		Exchanges:   exchanges,
		Submissions: submissions,
		Played:      played,
		RateLimiter: limiter,
		Audit:       auditLogger,
	}
	_ = handlers

	if err := session.RegisterCommands(ctx, commandDefs()); err != nil {
		logger.Log.Warn("failed to register slash commands", "error", err)
	}

	sched := scheduler.New(exchanges, submissions, played, session, scheduler.Config{
		StartThreshold: cfg.Scheduler.StartThreshold,
		EndThreshold:   cfg.Scheduler.EndThreshold,
		DefaultSleep:   cfg.Scheduler.DefaultSleep,
		WorkerPoolSize: cfg.Scheduler.WorkerPoolSize,
	})

	logger.Log.Info("starting rating-exchange bot",
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
	)

	sched.Run(ctx)

	logger.Log.Info("rating-exchange bot stopped")
}

// commandDefs describes the slash-command surface (spec.md §6's
// slash-command table) for registration with the platform.Session.
func commandDefs() []platform.CommandDef {
	return []platform.CommandDef{
		{
			Name:        "exchange",
			Description: "Manage rating exchanges in this server",
			Options: []platform.CommandOption{
				{Name: "create", Description: "Schedule a new exchange", Required: false},
				{Name: "list", Description: "List upcoming exchanges", Required: false},
				{Name: "delete", Description: "Delete an exchange that hasn't started yet", Required: false},
			},
		},
		{
			Name:        "submit",
			Description: "Submit your entry to the currently-running exchange in this channel",
			Options: []platform.CommandOption{
				{Name: "link", Description: "Your entry link", Required: true},
			},
		},
		{
			Name:        "revoke",
			Description: "Withdraw your submission from the currently-running exchange",
		},
		{
			Name:        "played",
			Description: "Declare a game you've already played so you won't be assigned it",
			Options: []platform.CommandOption{
				{Name: "link", Description: "The entry link you've already played", Required: true},
			},
		},
	}
}
