// Package httpapi wires the HTTP transport (Gin) to the importer's services,
// middleware, and route handlers. It owns the cross-cutting concerns:
// tracing, correlation IDs, access logs, panic recovery, upload size limits,
// metrics, idempotent upload replays, rate limiting, and CORS.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/holiday-pay-importer/docs" // registers the OpenAPI spec
	"github.com/tbourn/holiday-pay-importer/internal/config"
	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/http/handlers"
	"github.com/tbourn/holiday-pay-importer/internal/http/middleware"
	"github.com/tbourn/holiday-pay-importer/internal/payout"
	"github.com/tbourn/holiday-pay-importer/internal/repo"
	"github.com/tbourn/holiday-pay-importer/internal/services"
)

// storeShim adapts the repo package's free functions to the repository
// interfaces the services expect (WorkerRepo, AccrualRepo, ImportRepo).
type storeShim struct{}

func (storeShim) CreateWorker(ctx context.Context, db *gorm.DB, name string) (*domain.Worker, error) {
	return repo.CreateWorker(ctx, db, name)
}

func (storeShim) GetWorker(ctx context.Context, db *gorm.DB, id uint) (*domain.Worker, error) {
	return repo.GetWorker(ctx, db, id)
}

func (storeShim) FindWorkerIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error) {
	return repo.FindWorkerIDs(ctx, db, ids)
}

func (storeShim) CreateHistoricAccrual(ctx context.Context, db *gorm.DB, a *domain.HistoricAccrual) error {
	return repo.CreateHistoricAccrual(ctx, db, a)
}

func (storeShim) ListHistoricAccruals(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricAccrual, error) {
	return repo.ListHistoricAccruals(ctx, db, workerID)
}

func (storeShim) ListHistoricRequests(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricRequest, error) {
	return repo.ListHistoricRequests(ctx, db, workerID)
}

func (storeShim) ExistingWeeklyPeriods(ctx context.Context, db *gorm.DB, workerIDs []uint) (map[domain.PeriodKey]struct{}, error) {
	return repo.ExistingWeeklyPeriods(ctx, db, workerIDs)
}

func (storeShim) ExistingHistoricPeriods(ctx context.Context, db *gorm.DB, workerIDs []uint) (map[domain.PeriodKey]struct{}, error) {
	return repo.ExistingHistoricPeriods(ctx, db, workerIDs)
}

func (storeShim) InsertWeeklyRequests(ctx context.Context, db *gorm.DB, rows []domain.WeeklyRequest) (int64, error) {
	return repo.InsertWeeklyRequests(ctx, db, rows)
}

func (storeShim) InsertHistoricRequests(ctx context.Context, db *gorm.DB, rows []domain.HistoricRequest) (int64, error) {
	return repo.InsertHistoricRequests(ctx, db, rows)
}

func (storeShim) CreateImportLog(ctx context.Context, db *gorm.DB, rec *domain.ImportLog) error {
	return repo.CreateImportLog(ctx, db, rec)
}

func (storeShim) GetImportLog(ctx context.Context, db *gorm.DB, id string) (*domain.ImportLog, error) {
	return repo.GetImportLog(ctx, db, id)
}

func (storeShim) GetImportLogByKey(ctx context.Context, db *gorm.DB, actor, key string, since time.Time) (*domain.ImportLog, error) {
	return repo.GetImportLogByKey(ctx, db, actor, key, since)
}

func (storeShim) CountImportLogs(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountImportLogs(ctx, db)
}

func (storeShim) ListImportLogsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ImportLog, error) {
	return repo.ListImportLogsPage(ctx, db, offset, limit)
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger (request-scoped zerolog, also on the request context)
//  4. Recovery
//  5. Security headers (no-store; HSTS when enabled)
//  6. gzip responses (not /metrics)
//  7. Body size limit (MaxUploadBytes)
//  8. Metrics
//  9. Idempotency validator (marks upload replays)
//  10. CORS
//
// The rate limiter sits on the upload route only. arc may be nil, in which
// case uploads are not archived and GET /imports/:id/file answers 404.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, arc services.Archiver) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.HSTSEnabled,
		NoStore:    true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(limitBody(cfg.MaxUploadBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, actor, key string, now time.Time) (bool, error) {
			_, err := repo.GetImportLogByKey(ctx, db, actor, key, now.Add(-ttl))
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	policy := cfg.Payout.Policy
	if policy.Location == nil {
		policy = payout.DefaultPolicy()
	}
	store := storeShim{}
	accrualSvc := services.NewAccrualService(db, store)
	importSvc := services.NewImportService(db, store, accrualSvc, policy)
	importSvc.IdempotencyTTL = ttl
	importSvc.Archive = arc
	h := handlers.New(importSvc, services.NewWorkerService(db, store), accrualSvc)

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByActorOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/imports/weekly-text-responses", rl.Handler(), h.ImportWeeklyTextResponses)
		api.GET("/imports", h.ListImports)
		api.GET("/imports/:id", h.GetImport)
		api.GET("/imports/:id/file", h.GetImportFile)

		api.POST("/workers", h.CreateWorker)
		api.GET("/workers/:id", h.GetWorker)
		api.POST("/workers/:id/historic-accruals", h.RecordHistoricAccrual)
		api.GET("/workers/:id/historic-accrual-statement", h.GetHistoricAccrualStatement)
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// only the listed ones.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderActor, middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", middleware.HeaderIdempotentReplay},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO even without an Origin header, so health checks see it.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail with
// *http.MaxBytesError. maxBytes <= 0 disables the cap.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
