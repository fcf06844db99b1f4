package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
backend:
  base_url: "http://localhost:5000"
  api_key: "secret"
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  order_events_topic_name: "orders.events"
redis:
  host: "localhost"
  port: 6379
subul:
  http_addr: ":8080"
  lookup_cache_ttl_seconds: 600
  lookup_rate_limit_per_minute: 120
  auditor_http_addr: ":8081"
  kafka_consumer_group: "order-auditor"
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000", cfg.Backend.BaseURL)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "orders.events", cfg.Kafka.OrderEventsTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.Subul.HTTPAddr)
	require.Equal(t, 120, cfg.Subul.LookupRateLimitPerMinute)
}
