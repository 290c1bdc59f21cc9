// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Worker
// model.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
)

// CreateWorker inserts a worker row and returns it with its assigned ID.
func CreateWorker(ctx context.Context, db *gorm.DB, name string) (*domain.Worker, error) {
	now := time.Now().UTC()
	w := &domain.Worker{
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// GetWorker fetches a worker by ID, or ErrNotFound.
func GetWorker(ctx context.Context, db *gorm.DB, id uint) (*domain.Worker, error) {
	var w domain.Worker
	err := db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// FindWorkerIDs returns the subset of ids that exist, in ascending order,
// using a single query. An empty input performs no query.
func FindWorkerIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []uint
	err := db.WithContext(ctx).
		Model(&domain.Worker{}).
		Where("id IN ?", ids).
		Order("id ASC").
		Pluck("id", &out).Error
	return out, err
}
