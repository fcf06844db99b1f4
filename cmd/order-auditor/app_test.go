package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/subul/order-gateway/internal/broker/messages"
	"github.com/subul/order-gateway/internal/storage/pgjournal"
)

type memJournal struct {
	mu      sync.Mutex
	entries []*pgjournal.JournalEntry
	nextID  uint64
}

func (j *memJournal) InsertEvent(ctx context.Context, ev messages.OrderEvent, raw []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.nextID++
	j.entries = append(j.entries, &pgjournal.JournalEntry{
		ID:          j.nextID,
		OrderID:     ev.OrderID,
		OrderNumber: ev.OrderNumber,
		EventType:   ev.Type,
		Status:      ev.Status,
		ActorRole:   ev.ActorRole,
		ConfirmedAt: ev.ConfirmedAt,
		OccurredAt:  ev.OccurredAt,
	})
	return nil
}

func (j *memJournal) ListOrderEvents(ctx context.Context, orderID uint64, limit, offset int) ([]*pgjournal.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*pgjournal.JournalEntry
	for _, e := range j.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *memJournal) CountByType(ctx context.Context) ([]pgjournal.TypeCount, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	byType := map[string]int{}
	for _, e := range j.entries {
		byType[e.EventType]++
	}
	out := make([]pgjournal.TypeCount, 0, len(byType))
	for typ, n := range byType {
		out = append(out, pgjournal.TypeCount{EventType: typ, Count: n})
	}
	return out, nil
}

type scriptedConsumer struct {
	values [][]byte
}

func (c scriptedConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for _, v := range c.values {
		if err := handler(nil, v); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunAuditor_JournalsEventsAndServesThem(t *testing.T) {
	j := &memJournal{}

	created, _ := json.Marshal(messages.OrderEvent{
		Type: messages.OrderEventCreated, OrderID: 50, OrderNumber: "ORD1", Status: "New",
		OccurredAt: time.Now().UTC(),
	})
	confirmed, _ := json.Marshal(messages.OrderEvent{
		Type: messages.OrderEventConfirmed, OrderID: 50, OrderNumber: "ORD1", Status: "Confirmed",
		OccurredAt: time.Now().UTC(),
	})
	cons := scriptedConsumer{values: [][]byte{created, []byte("not-json"), confirmed}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runAuditor(ctx, auditorOpts{
			httpAddr: "127.0.0.1:0",
			topic:    "orders.events",
			onListen: func(addr string) { addrCh <- addr },
		}, j, cons)
	}()

	addr := <-addrCh

	require.Eventually(t, func() bool {
		j.mu.Lock()
		defer j.mu.Unlock()
		return len(j.entries) == 2
	}, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/orders/50/events")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(body), `"eventType":"created"`)
	require.Contains(t, string(body), `"eventType":"confirmed"`)

	resp, err = http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	var stats struct {
		Events []pgjournal.TypeCount `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	_ = resp.Body.Close()
	require.Len(t, stats.Events, 2)

	cancel()
	require.Error(t, <-errCh)
}
