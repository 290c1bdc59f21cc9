// Package scheduler runs the importer's periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/holiday-pay-importer/internal/repo"
)

// KeyPruner releases Idempotency-Keys older than the replay window so
// clients may reuse them. Until released, a reused key would collide with
// the (actor, idempotency_key) unique index and the import would go
// unlogged.
type KeyPruner struct {
	cron *cron.Cron
	db   *gorm.DB
	ttl  time.Duration
	now  func() time.Time
}

// NewKeyPruner returns a pruner for keys older than ttl.
func NewKeyPruner(db *gorm.DB, ttl time.Duration) *KeyPruner {
	return &KeyPruner{
		cron: cron.New(),
		db:   db,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules Prune on spec (standard cron syntax or descriptors such
// as "@hourly" and "@every 30m") and starts the scheduler.
func (p *KeyPruner) Start(spec string) error {
	if _, err := p.cron.AddFunc(spec, func() {
		_, _ = p.Prune(context.Background())
	}); err != nil {
		return err
	}
	p.cron.Start()
	log.Info().Str("schedule", spec).Dur("ttl", p.ttl).Msg("idempotency key pruner started")
	return nil
}

// Stop stops scheduling and waits for a running Prune to finish.
func (p *KeyPruner) Stop() {
	<-p.cron.Stop().Done()
	log.Info().Msg("idempotency key pruner stopped")
}

// Prune releases every key created more than ttl ago.
func (p *KeyPruner) Prune(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.ttl)
	n, err := repo.ReleaseIdempotencyKeys(ctx, p.db, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("release idempotency keys")
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("released", n).Time("cutoff", cutoff).Msg("released idempotency keys")
	}
	return n, nil
}
