package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/subul/order-gateway/internal/broker/messages"
	"github.com/subul/order-gateway/internal/storage/pgjournal"
)

type auditorOpts struct {
	httpAddr string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type journalStore interface {
	InsertEvent(ctx context.Context, ev messages.OrderEvent, raw []byte) error
	ListOrderEvents(ctx context.Context, orderID uint64, limit, offset int) ([]*pgjournal.JournalEntry, error)
	CountByType(ctx context.Context) ([]pgjournal.TypeCount, error)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

// runAuditor пишет события заказов из брокера в журнал и отдаёт его
// по HTTP (stats + события по заказу).
func runAuditor(ctx context.Context, opts auditorOpts, st journalStore, consumer kafkaConsumer) error {
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runAuditorHTTPServer(ctx, opts, st)
	}()

	consumeErr := make(chan error, 1)
	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		consumeErr <- consumer.Consume(ctx, func(_key, value []byte) error {
			var ev messages.OrderEvent
			if err := json.Unmarshal(value, &ev); err != nil {
				// Битое сообщение журналу не нужно; коммитим и едем дальше.
				slog.Error("skip malformed order event", "error", err.Error())
				return nil
			}
			return st.InsertEvent(ctx, ev, value)
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-consumeErr:
		return err
	}
}
