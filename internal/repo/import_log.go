// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the ImportLog
// model, which doubles as the store behind Idempotency-Key replays of
// uploads.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
)

// ErrDuplicate indicates that an import log already exists for the given
// (actor, idempotency_key) pair.
var ErrDuplicate = errors.New("duplicate")

// CreateImportLog inserts rec, assigning an ID and CreatedAt when unset. It
// returns ErrDuplicate on a unique violation.
func CreateImportLog(ctx context.Context, db *gorm.DB, rec *domain.ImportLog) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") ||
			strings.Contains(low, "duplicate key") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetImportLog fetches an import log by ID, or ErrNotFound.
func GetImportLog(ctx context.Context, db *gorm.DB, id string) (*domain.ImportLog, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ImportLog
	err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetImportLogByKey returns the log stored for (actor, key) if it was
// created after since, or ErrNotFound.
func GetImportLogByKey(ctx context.Context, db *gorm.DB, actor, key string, since time.Time) (*domain.ImportLog, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.ImportLog
	err := db.WithContext(ctx).
		Where("actor = ? AND idempotency_key = ? AND created_at > ?", actor, key, since).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReleaseIdempotencyKeys clears the idempotency key of every import log
// created at or before cutoff and returns how many were cleared.
func ReleaseIdempotencyKeys(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.ImportLog{}).
		Where("idempotency_key IS NOT NULL AND created_at <= ?", cutoff).
		Update("idempotency_key", nil)
	return res.RowsAffected, res.Error
}

// CountImportLogs returns the total number of import logs.
func CountImportLogs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.ImportLog{}).Count(&total).Error
	return total, err
}

// ListImportLogsPage returns a page of import logs, newest first
// (CreatedAt DESC, ID DESC).
func ListImportLogsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ImportLog, error) {
	var out []domain.ImportLog
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
