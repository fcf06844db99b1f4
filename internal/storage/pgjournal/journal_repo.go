package pgjournal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/subul/order-gateway/internal/broker/messages"
)

type JournalEntry struct {
	ID          uint64
	OrderID     uint64
	OrderNumber string
	EventType   string
	Status      string
	CustomerID  uint64
	ActorRole   string
	ConfirmedAt *time.Time
	OccurredAt  time.Time
	PayloadJSON *string
	CreatedAt   time.Time
}

type TypeCount struct {
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
}

// InsertEvent записывает событие в журнал. raw — исходное тело сообщения,
// хранится как payload для разбора инцидентов. Повтор (тот же заказ, тип и
// момент) молча игнорируется.
func (s *Storage) InsertEvent(ctx context.Context, ev messages.OrderEvent, raw []byte) error {
	var payload any
	if len(raw) > 0 {
		var m any
		if json.Unmarshal(raw, &m) == nil {
			payload = m
		}
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO order_events (
  order_id, order_number, event_type, status, customer_id, actor_role,
  confirmed_at, occurred_at, payload, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())
ON CONFLICT (order_id, event_type, occurred_at) DO NOTHING
`, ev.OrderID, ev.OrderNumber, ev.Type, ev.Status, ev.CustomerID, ev.ActorRole,
		ev.ConfirmedAt, ev.OccurredAt.UTC(), payload)
	if err != nil {
		return errors.Wrap(err, "insert order event")
	}
	return nil
}

func (s *Storage) ListOrderEvents(ctx context.Context, orderID uint64, limit, offset int) ([]*JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id, order_id, order_number, event_type, status, customer_id, actor_role,
  confirmed_at, occurred_at, payload, created_at
FROM order_events
WHERE order_id = $1
ORDER BY occurred_at DESC
LIMIT $2 OFFSET $3
`, orderID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select order events")
	}
	defer rows.Close()

	var out []*JournalEntry
	for rows.Next() {
		var e JournalEntry
		var payload any
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.OrderNumber, &e.EventType, &e.Status, &e.CustomerID, &e.ActorRole,
			&e.ConfirmedAt, &e.OccurredAt, &payload, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan order event")
		}

		if payload != nil {
			b, _ := json.Marshal(payload)
			s := string(b)
			e.PayloadJSON = &s
		}

		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// CountByType — сводка журнала для stats-эндпоинта аудитора.
func (s *Storage) CountByType(ctx context.Context) ([]TypeCount, error) {
	rows, err := s.db.Query(ctx, `
SELECT event_type, count(*)
FROM order_events
GROUP BY event_type
ORDER BY event_type
`)
	if err != nil {
		return nil, errors.Wrap(err, "count by type")
	}
	defer rows.Close()

	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.EventType, &tc.Count); err != nil {
			return nil, errors.Wrap(err, "scan count")
		}
		out = append(out, tc)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
