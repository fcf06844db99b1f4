package pgjournal

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS order_events (
  id BIGSERIAL PRIMARY KEY,
  order_id BIGINT NOT NULL,
  order_number TEXT NOT NULL DEFAULT '',
  event_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT '',
  customer_id BIGINT NOT NULL DEFAULT 0,
  actor_role TEXT NOT NULL DEFAULT '',
  confirmed_at TIMESTAMPTZ NULL,
  occurred_at TIMESTAMPTZ NOT NULL,
  payload JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_order_events_order_id_occurred_at ON order_events(order_id, occurred_at DESC)`,
		// Повторная доставка из брокера не должна плодить дубли.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_order_events_dedup ON order_events(order_id, event_type, occurred_at)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
