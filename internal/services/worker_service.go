// Package services – WorkerService
//
// WorkerService is the minimal worker admin surface used to seed the store
// that imports reconcile against.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/domain"
	"github.com/tbourn/holiday-pay-importer/internal/repo"
)

// WorkerRepo defines the repository contract required by WorkerService.
type WorkerRepo interface {
	CreateWorker(ctx context.Context, db *gorm.DB, name string) (*domain.Worker, error)
	GetWorker(ctx context.Context, db *gorm.DB, id uint) (*domain.Worker, error)
}

// WorkerService creates and fetches workers.
type WorkerService struct {
	DB   *gorm.DB
	Repo WorkerRepo
}

// NewWorkerService constructs a WorkerService.
func NewWorkerService(db *gorm.DB, r WorkerRepo) *WorkerService {
	return &WorkerService{DB: db, Repo: r}
}

// Create inserts a worker with the given (trimmed, non-blank) name.
func (s *WorkerService) Create(ctx context.Context, name string) (*domain.Worker, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidWorkerName
	}
	return s.Repo.CreateWorker(ctx, s.DB, name)
}

// Get returns the worker or ErrWorkerNotFound.
func (s *WorkerService) Get(ctx context.Context, id uint) (*domain.Worker, error) {
	w, err := s.Repo.GetWorker(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrWorkerNotFound
	}
	return w, err
}
