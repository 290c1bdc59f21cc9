// Command server runs the holiday pay importer HTTP API.
//
// @title        Holiday Pay Importer API
// @version      1.0
// @description  Imports weekly text responses into weekly and historic holiday pay payout requests.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/holiday-pay-importer/internal/archive"
	"github.com/tbourn/holiday-pay-importer/internal/config"
	httpapi "github.com/tbourn/holiday-pay-importer/internal/http"
	"github.com/tbourn/holiday-pay-importer/internal/observability"
	"github.com/tbourn/holiday-pay-importer/internal/repo"
	"github.com/tbourn/holiday-pay-importer/internal/scheduler"
	"github.com/tbourn/holiday-pay-importer/internal/services"
	"github.com/tbourn/holiday-pay-importer/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

const shutdownGrace = 15 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	var arc services.Archiver
	if cfg.ArchiveURL != "" {
		store, err := archive.Open(ctx, cfg.ArchiveURL)
		if err != nil {
			return err
		}
		defer store.Close()
		arc = store
	}

	if cfg.KeyPruneSchedule != "" {
		pruner := scheduler.NewKeyPruner(db, cfg.IdempotencyTTL)
		if err := pruner.Start(cfg.KeyPruneSchedule); err != nil {
			return err
		}
		defer pruner.Stop()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, arc)

	srv := newServer(cfg, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("db_driver", cfg.DBDriver).
			Str("timezone", cfg.Payout.Timezone).
			Bool("archive", arc != nil).
			Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
