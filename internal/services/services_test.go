package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/payout"
	"github.com/tbourn/holiday-pay-importer/internal/repo"
)

// dbStore routes every repository contract to the real repo package.
type dbStore struct{}

func (dbStore) CreateWorker(ctx context.Context, db *gorm.DB, name string) (*domain.Worker, error) {
	return repo.CreateWorker(ctx, db, name)
}
func (dbStore) GetWorker(ctx context.Context, db *gorm.DB, id uint) (*domain.Worker, error) {
	return repo.GetWorker(ctx, db, id)
}
func (dbStore) FindWorkerIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error) {
	return repo.FindWorkerIDs(ctx, db, ids)
}
func (dbStore) CreateHistoricAccrual(ctx context.Context, db *gorm.DB, a *domain.HistoricAccrual) error {
	return repo.CreateHistoricAccrual(ctx, db, a)
}
func (dbStore) ListHistoricAccruals(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricAccrual, error) {
	return repo.ListHistoricAccruals(ctx, db, workerID)
}
func (dbStore) ListHistoricRequests(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricRequest, error) {
	return repo.ListHistoricRequests(ctx, db, workerID)
}
func (dbStore) ExistingWeeklyPeriods(ctx context.Context, db *gorm.DB, ids []uint) (map[domain.PeriodKey]struct{}, error) {
	return repo.ExistingWeeklyPeriods(ctx, db, ids)
}
func (dbStore) ExistingHistoricPeriods(ctx context.Context, db *gorm.DB, ids []uint) (map[domain.PeriodKey]struct{}, error) {
	return repo.ExistingHistoricPeriods(ctx, db, ids)
}
func (dbStore) InsertWeeklyRequests(ctx context.Context, db *gorm.DB, rows []domain.WeeklyRequest) (int64, error) {
	return repo.InsertWeeklyRequests(ctx, db, rows)
}
func (dbStore) InsertHistoricRequests(ctx context.Context, db *gorm.DB, rows []domain.HistoricRequest) (int64, error) {
	return repo.InsertHistoricRequests(ctx, db, rows)
}
func (dbStore) CreateImportLog(ctx context.Context, db *gorm.DB, rec *domain.ImportLog) error {
	return repo.CreateImportLog(ctx, db, rec)
}
func (dbStore) GetImportLog(ctx context.Context, db *gorm.DB, id string) (*domain.ImportLog, error) {
	return repo.GetImportLog(ctx, db, id)
}
func (dbStore) GetImportLogByKey(ctx context.Context, db *gorm.DB, actor, key string, since time.Time) (*domain.ImportLog, error) {
	return repo.GetImportLogByKey(ctx, db, actor, key, since)
}
func (dbStore) CountImportLogs(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountImportLogs(ctx, db)
}
func (dbStore) ListImportLogsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ImportLog, error) {
	return repo.ListImportLogsPage(ctx, db, offset, limit)
}

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

var fixedNow = time.Date(2022, 7, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	imports  *ImportService
	accruals *AccrualService
	workers  *WorkerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newServiceDB(t)
	acc := NewAccrualService(db, dbStore{})
	acc.Now = func() time.Time { return fixedNow }
	imp := NewImportService(db, dbStore{}, acc, payout.DefaultPolicy())
	imp.Now = func() time.Time { return fixedNow }
	return &fixture{db: db, imports: imp, accruals: acc, workers: NewWorkerService(db, dbStore{})}
}

// worker creates a worker, optionally with one accrual of amount at rate.
func (f *fixture) worker(t *testing.T, amount, rate string) *domain.Worker {
	t.Helper()
	w, err := f.workers.Create(context.Background(), "worker")
	if err != nil {
		t.Fatalf("create worker: %v", err)
	}
	if amount != "" {
		_, err := f.accruals.Record(context.Background(), w.ID,
			decimal.RequireFromString(amount), decimal.RequireFromString(rate), time.Time{})
		if err != nil {
			t.Fatalf("record accrual: %v", err)
		}
	}
	return w
}

func csvFile(lines ...string) []byte {
	body := "Worker ID,Request Timestamp\n"
	for _, l := range lines {
		body += l + "\n"
	}
	return []byte(body)
}
