package notify

import (
	"context"
	"log/slog"
	"time"

	"caseflow/internal/notify/models"
	"caseflow/pkg/platform/tx"
)

// OutboxStore is the persistence surface the relay drains.
type OutboxStore interface {
	Append(ctx context.Context, m models.OutboxMessage) error
	ListUnpublished(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Relay polls the outbox and pushes pending messages to the publisher.
// Each batch is claimed and marked inside one transaction so two relays never
// double-publish a row.
type Relay struct {
	store     OutboxStore
	publisher Publisher
	runner    tx.Runner
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewRelay(store OutboxStore, publisher Publisher, runner tx.Runner, logger *slog.Logger) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		runner:    runner,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 100,
	}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	for {
		var published int
		err := r.runner.RunInTx(ctx, func(ctx context.Context) error {
			batch, err := r.store.ListUnpublished(ctx, r.batchSize)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				return nil
			}
			ids := make([]int64, 0, len(batch))
			for _, m := range batch {
				if err := r.publisher.Publish(ctx, m.Key, m.Payload); err != nil {
					// Publish what we can; the rest stays pending.
					r.logger.Warn("publish failed, message stays queued",
						"outbox_id", m.ID, "error", err)
					break
				}
				ids = append(ids, m.ID)
			}
			if len(ids) == 0 {
				return nil
			}
			published = len(ids)
			return r.store.MarkPublished(ctx, ids)
		})
		if err != nil {
			return err
		}
		if published < r.batchSize {
			return nil
		}
	}
}
