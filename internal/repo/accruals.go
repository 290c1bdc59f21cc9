// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for historic
// accruals and the historic requests drawn against them.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
)

// CreateHistoricAccrual inserts an accrual row. CreatedAt/UpdatedAt default
// to now when unset.
func CreateHistoricAccrual(ctx context.Context, db *gorm.DB, a *domain.HistoricAccrual) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if a.ImportedAt.IsZero() {
		a.ImportedAt = now
	}
	return db.WithContext(ctx).Create(a).Error
}

// ListHistoricAccruals returns a worker's accruals ordered by ImportedAt, ID.
func ListHistoricAccruals(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricAccrual, error) {
	var out []domain.HistoricAccrual
	err := db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("imported_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListHistoricRequests returns the historic requests already made by a
// worker, oldest period first.
func ListHistoricRequests(ctx context.Context, db *gorm.DB, workerID uint) ([]domain.HistoricRequest, error) {
	var out []domain.HistoricRequest
	err := db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("payout_period_beginning_on ASC, id ASC").
		Find(&out).Error
	return out, err
}
