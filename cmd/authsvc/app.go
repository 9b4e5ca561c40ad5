package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/httpapi"
	"github.com/MrEthical07/sessionauth/internal/appconfig"
	"github.com/MrEthical07/sessionauth/internal/stores/postgres"
	promexport "github.com/MrEthical07/sessionauth/metrics/export/prometheus"
	"github.com/MrEthical07/sessionauth/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 10 * time.Second

type app struct {
	cfg    *appconfig.Config
	logger *slog.Logger
	engine *sessionauth.Engine
	server *http.Server

	closers []func() error
}

func newApp(cfg *appconfig.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	b := sessionauth.New().WithConfig(cfg.Engine()).WithLogger(logger)

	if cfg.Redis.Addr != "" {
		rdb, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		b.WithRedis(rdb)
		logger.Info("using redis stores", "addr", cfg.Redis.Addr)
	}

	if cfg.Postgres.DSN != "" {
		db, err := connectPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		b.WithPostgres(db)
		logger.Info("using postgres user directory")
	}

	if cfg.SMTPEnabled() {
		sender, err := notify.NewSMTP(cfg.SMTP, logger)
		if err != nil {
			return nil, fmt.Errorf("smtp notifier: %w", err)
		}
		b.WithNotifier(sender)
	} else {
		logger.Warn("smtp host not configured; 2FA codes will not be delivered")
	}

	if cfg.Auth.Audit {
		b.WithAuditSink(sessionauth.NewLogSink(logger))
	}

	a.engine, err = b.Build()
	if err != nil {
		return nil, fmt.Errorf("engine init: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewCollector(a.engine),
	)

	a.server = &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(a.engine, httpapi.Options{
			CORSOrigins:   cfg.HTTP.CORSOrigins,
			SecureCookies: cfg.HTTP.SecureCookies,
			Logger:        logger,
			Registry:      reg,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return a, nil
}

func connectRedis(ctx context.Context, cfg appconfig.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func connectPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests.
func (a *app) run() error {
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
