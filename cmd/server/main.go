package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/tvekamp/internal/config"
	"github.com/playperu/tvekamp/internal/database"
	"github.com/playperu/tvekamp/internal/handler/feed"
	"github.com/playperu/tvekamp/internal/handler/health"
	"github.com/playperu/tvekamp/internal/migrations"
	"github.com/playperu/tvekamp/internal/server"
	"github.com/playperu/tvekamp/internal/service"
	"github.com/playperu/tvekamp/internal/session"
	"github.com/playperu/tvekamp/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Local tier ---
	local, err := store.NewFileBackend(cfg.DataDir, store.Defaults())
	if err != nil {
		return fmt.Errorf("opening data dir: %w", err)
	}
	logger.Info("local store ready", "dir", local.Dir())

	checks := []health.Check{{Name: local.Name(), Checker: local}}

	// --- Primary tier ---
	var primary store.Backend
	switch cfg.StorePrimary {
	case config.PrimaryRedis:
		rdb, err := openRedis(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("configuring redis: %w", err)
		}
		defer rdb.Close()
		// An unreachable primary is not fatal; calls fall back to the local tier.
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "error", err)
		} else {
			logger.Info("connected to redis")
		}

		b := store.NewRedisBackend(rdb, cfg.RedisPrefix)
		primary = b
		checks = append(checks, health.Check{Name: b.Name(), Checker: b, Optional: true})

	case config.PrimarySQLite:
		db, version, err := openSQLite(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		defer db.Close()
		logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

		b := store.NewSQLiteBackend(db)
		primary = b
		checks = append(checks, health.Check{Name: b.Name(), Checker: b, Optional: true})
	}

	tiered := store.NewTiered(logger, primary, local)
	svc := service.New(tiered, logger, service.Options{DefaultVisible: cfg.DefaultGameVisible})

	// --- Sessions ---
	broker := session.NewBroker()
	sessions := session.NewRegistry(svc, logger,
		session.WithCelebration(cfg.Celebration),
		session.WithNotify(broker.Publish),
		session.WithOnClose(broker.Close),
	)
	defer sessions.Close()

	auth, err := server.NewAuth(cfg.AdminToken, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		logger.Warn("ADMIN_TOKEN not set, admin routes are open")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Service:  svc,
		Sessions: sessions,
		Broker:   broker,
		Storage:  tiered,
		Auth:     auth,
		SPADir:   cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks...).Routes())
		r.Mount("/ws", feed.NewHandler(logger, sessions, broker).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "primary", cfg.StorePrimary)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, int64, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	version, err := migrations.Run(ctx, db)
	if err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("running migrations: %w", err)
	}
	return db, version, nil
}
