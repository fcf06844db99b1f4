package pgjournal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/subul/order-gateway/internal/broker/messages"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPGJournal_RepoFlow(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "subul_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/subul_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	occurred := time.Now().UTC().Truncate(time.Millisecond)
	created := messages.OrderEvent{
		Type:        messages.OrderEventCreated,
		OrderID:     50,
		OrderNumber: "ORD20250314150926",
		Status:      "New",
		CustomerID:  4,
		ActorRole:   "distributor",
		OccurredAt:  occurred,
	}
	raw := []byte(`{"type":"created","order_id":50}`)

	require.NoError(t, st.InsertEvent(ctx, created, raw))
	// повторная доставка того же события
	require.NoError(t, st.InsertEvent(ctx, created, raw))

	confirmedAt := occurred.Add(time.Minute)
	require.NoError(t, st.InsertEvent(ctx, messages.OrderEvent{
		Type:        messages.OrderEventConfirmed,
		OrderID:     50,
		OrderNumber: "ORD20250314150926",
		Status:      "Confirmed",
		ConfirmedAt: &confirmedAt,
		OccurredAt:  confirmedAt,
	}, nil))

	evs, err := st.ListOrderEvents(ctx, 50, 10, 0)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	require.Equal(t, messages.OrderEventConfirmed, evs[0].EventType)
	require.Equal(t, messages.OrderEventCreated, evs[1].EventType)
	require.NotNil(t, evs[1].PayloadJSON)
	require.WithinDuration(t, occurred, evs[1].OccurredAt, time.Second)

	counts, err := st.CountByType(ctx)
	require.NoError(t, err)
	require.Equal(t, []TypeCount{
		{EventType: messages.OrderEventConfirmed, Count: 1},
		{EventType: messages.OrderEventCreated, Count: 1},
	}, counts)
}
