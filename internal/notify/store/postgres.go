package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"caseflow/internal/notify/models"
	txcontext "caseflow/pkg/platform/tx"
)

// PostgresStore persists the notification outbox.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append queues a message. Called inside the transaction that produced it.
func (s *PostgresStore) Append(ctx context.Context, m models.OutboxMessage) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO outbox (tenant, key, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, m.Tenant.String(), m.Key, []byte(m.Payload), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// ListUnpublished returns pending messages oldest first, locking them so
// concurrent relay workers do not pick up the same batch.
func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, tenant, key, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		var payload []byte
		if err := rows.Scan(&m.ID, &m.Tenant, &m.Key, &payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		m.Payload = json.RawMessage(payload)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}
	return messages, nil
}

// MarkPublished stamps the given messages as delivered to the broker.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
