// Package services – AccrualService
//
// AccrualService records historic holiday-pay accruals and derives a
// worker's historic accrual statement:
//
//	available           = Σ accrual amounts − Σ historic request amounts
//	average_holiday_rate = Σ(amount × rate) / Σ amount   (0 when nothing accrued)
//
// The importer asks for a statement once per worker per import and gates
// historic requests on Available being strictly positive.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/repo"
)

// AccrualRepo defines the repository contract required by AccrualService.
type AccrualRepo interface {
	GetWorker(ctx context.Context, db *gorm.DB, id uint) (*domain.Worker, error)
	CreateHistoricAccrual(ctx context.Context, db *gorm.DB, a *domain.HistoricAccrual) error
	ListHistoricAccruals(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricAccrual, error)
	ListHistoricRequests(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricRequest, error)
}

// AccrualStatement summarises a worker's historic balance.
type AccrualStatement struct {
	WorkerID           uint            `json:"worker_id"`
	Accrued            decimal.Decimal `json:"accrued"`
	Requested          decimal.Decimal `json:"requested"`
	Available          decimal.Decimal `json:"available"`
	AverageHolidayRate decimal.Decimal `json:"average_holiday_rate"`
	Currency           string          `json:"currency"`
}

// HasBalance reports whether historic holiday pay can still be claimed.
func (s *AccrualStatement) HasBalance() bool {
	return s.Available.IsPositive()
}

// AccrualService records accruals and computes statements.
type AccrualService struct {
	DB   *gorm.DB
	Repo AccrualRepo
	Now  func() time.Time
}

// NewAccrualService constructs an AccrualService.
func NewAccrualService(db *gorm.DB, r AccrualRepo) *AccrualService {
	return &AccrualService{DB: db, Repo: r, Now: func() time.Time { return time.Now().UTC() }}
}

// Record stores a historic accrual for an existing worker. A zero importedAt
// means now.
func (s *AccrualService) Record(ctx context.Context, workerID uint, amount, rate decimal.Decimal, importedAt time.Time) (*domain.HistoricAccrual, error) {
	if !amount.IsPositive() || rate.IsNegative() {
		return nil, ErrInvalidAccrual
	}
	if err := s.ensureWorker(ctx, workerID); err != nil {
		return nil, err
	}
	if importedAt.IsZero() {
		importedAt = s.now()
	}
	a := &domain.HistoricAccrual{
		WorkerID:          workerID,
		Amount:            amount.Round(2),
		AverageHourlyRate: rate.Round(4),
		ImportedAt:        importedAt.UTC(),
	}
	if err := s.Repo.CreateHistoricAccrual(ctx, s.DB, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Statement returns the historic accrual statement for a worker, or
// ErrWorkerNotFound.
func (s *AccrualService) Statement(ctx context.Context, workerID uint) (*AccrualStatement, error) {
	ctx, span := otel.Tracer("services/AccrualService").Start(ctx, "Statement",
		trace.WithAttributes(attribute.Int64("worker.id", int64(workerID))),
	)
	defer span.End()

	if err := s.ensureWorker(ctx, workerID); err != nil {
		return nil, err
	}
	accruals, err := s.Repo.ListHistoricAccruals(ctx, s.DB, workerID)
	if err != nil {
		return nil, err
	}
	requests, err := s.Repo.ListHistoricRequests(ctx, s.DB, workerID)
	if err != nil {
		return nil, err
	}
	return buildStatement(workerID, accruals, requests), nil
}

func buildStatement(workerID uint, accruals []domain.HistoricAccrual, requests []domain.HistoricRequest) *AccrualStatement {
	accrued := decimal.Zero
	weighted := decimal.Zero
	for _, a := range accruals {
		accrued = accrued.Add(a.Amount)
		weighted = weighted.Add(a.Amount.Mul(a.AverageHourlyRate))
	}
	requested := decimal.Zero
	for _, r := range requests {
		requested = requested.Add(r.Amount)
	}

	rate := decimal.Zero
	if accrued.IsPositive() {
		rate = weighted.DivRound(accrued, 4)
	}
	return &AccrualStatement{
		WorkerID:           workerID,
		Accrued:            accrued,
		Requested:          requested,
		Available:          accrued.Sub(requested),
		AverageHolidayRate: rate,
		Currency:           domain.HolidayRateCurrency,
	}
}

func (s *AccrualService) ensureWorker(ctx context.Context, workerID uint) error {
	_, err := s.Repo.GetWorker(ctx, s.DB, workerID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrWorkerNotFound
	}
	return err
}

func (s *AccrualService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
