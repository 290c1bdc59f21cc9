// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the payout request gateway used by the
// importer: batched lookups of already-stored (worker, period) pairs and
// bulk inserts that skip rows colliding on that pair.
//
// Conflict semantics:
//   - Inserts use INSERT ... ON CONFLICT (worker_id, payout_period_beginning_on)
//     DO NOTHING, so a pair stored by a concurrent import between the
//     lookup and the write is silently skipped rather than failing the batch.
//   - The returned count is the number of rows the database actually
//     inserted.
//   - Each call runs in one transaction: a batch is stored entirely or not
//     at all.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/payout"
)

// insertBatchSize bounds the number of rows per INSERT statement (SQLite
// caps bound parameters per statement).
const insertBatchSize = 200

var workerPeriodConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "worker_id"}, {Name: "payout_period_beginning_on"}},
	DoNothing: true,
}

// ExistingWeeklyPeriods returns the (worker, period) pairs already stored as
// weekly requests for the given workers, in a single query.
func ExistingWeeklyPeriods(ctx context.Context, db *gorm.DB, workerIDs []uint) (map[domain.PeriodKey]struct{}, error) {
	return existingPeriods(ctx, db, &domain.WeeklyRequest{}, workerIDs)
}

// ExistingHistoricPeriods returns the (worker, period) pairs already stored
// as historic requests for the given workers, in a single query.
func ExistingHistoricPeriods(ctx context.Context, db *gorm.DB, workerIDs []uint) (map[domain.PeriodKey]struct{}, error) {
	return existingPeriods(ctx, db, &domain.HistoricRequest{}, workerIDs)
}

func existingPeriods(ctx context.Context, db *gorm.DB, model any, workerIDs []uint) (map[domain.PeriodKey]struct{}, error) {
	out := make(map[domain.PeriodKey]struct{})
	if len(workerIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		WorkerID                uint
		PayoutPeriodBeginningOn time.Time
	}
	err := db.WithContext(ctx).
		Model(model).
		Select("worker_id", "payout_period_beginning_on").
		Where("worker_id IN ?", workerIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[domain.PeriodKey{WorkerID: r.WorkerID, BeginningOn: payout.FormatDate(r.PayoutPeriodBeginningOn)}] = struct{}{}
	}
	return out, nil
}

// InsertWeeklyRequests bulk-inserts weekly requests, skipping rows whose
// (worker, period) already exists. It returns the number inserted.
func InsertWeeklyRequests(ctx context.Context, db *gorm.DB, rows []domain.WeeklyRequest) (int64, error) {
	return insertIgnoringConflicts(ctx, db, rows)
}

// InsertHistoricRequests bulk-inserts historic requests, skipping rows whose
// (worker, period) already exists. It returns the number inserted.
func InsertHistoricRequests(ctx context.Context, db *gorm.DB, rows []domain.HistoricRequest) (int64, error) {
	return insertIgnoringConflicts(ctx, db, rows)
}

func insertIgnoringConflicts[T any](ctx context.Context, db *gorm.DB, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var inserted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += insertBatchSize {
			end := min(start+insertBatchSize, len(rows))
			batch := rows[start:end]
			res := tx.Clauses(workerPeriodConflict).Create(&batch)
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
