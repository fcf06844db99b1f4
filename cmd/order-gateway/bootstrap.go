package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subul/order-gateway/config"
	"github.com/subul/order-gateway/internal/api/ordersapi"
	"github.com/subul/order-gateway/internal/broker/kafka"
	"github.com/subul/order-gateway/internal/cache/rediscache"
	"github.com/subul/order-gateway/internal/integrations/backend"
	"github.com/subul/order-gateway/internal/integrations/backend/fake"
	"github.com/subul/order-gateway/internal/integrations/backend/resthttp"
	"github.com/subul/order-gateway/internal/services/lookup"
	"github.com/subul/order-gateway/internal/services/orders"
)

type gatewayApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   gatewayOpts
	api    *ordersapi.API
}

func mustBootstrapGateway() *gatewayApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.Subul.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	topic := cfg.Kafka.OrderEventsTopicName
	if topic == "" {
		topic = "orders.events"
	}
	cacheTTL := time.Duration(cfg.Subul.LookupCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	rlPerMin := int64(cfg.Subul.LookupRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 120
	}

	// Без base_url работаем против in-memory бэкенда (локальный/демо режим).
	var bc backend.Client
	if cfg.Backend.BaseURL != "" {
		bc = resthttp.New(cfg.Backend.BaseURL, cfg.Backend.APIKey)
	} else {
		bc = fake.New()
	}

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	resolver := lookup.NewResolver(bc, rc, cacheTTL).WithRateLimit(rl, rlPerMin)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	svc := orders.New(bc).
		WithLookupInvalidator(resolver).
		WithEvents(producer, topic)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &gatewayApp{
		ctx:    ctx,
		cancel: cancel,
		opts: gatewayOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		api: ordersapi.New(svc, resolver),
	}
}

func (a *gatewayApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *gatewayApp) Run() error {
	return runGateway(a.ctx, a.opts, a.api)
}
