// Package api is the HTTP surface of the optimizer: optimize, history,
// health, sample and stop-set endpoints, a WebSocket result stream and
// Prometheus metrics.
package api

import (
	"context"
	"io"
	"log"
	"strings"

	"golang.org/x/time/rate"

	"fleetopt/internal/config"
	"fleetopt/internal/engine"
	"fleetopt/internal/store"
)

// Notifier receives every completed result, e.g. the webhook worker.
type Notifier interface {
	Notify(eventType string, payload []byte)
}

type Server struct {
	Engine   *engine.Engine
	Store    store.Store
	Broker   EventBroker
	Notifier Notifier
	Config   config.Config
	// AccessLog receives one combined-format line per request when set.
	AccessLog io.Writer

	limiter *rate.Limiter
}

func NewServer(cfg config.Config, eng *engine.Engine, st store.Store, broker EventBroker) *Server {
	if broker == nil {
		broker = NewBroker()
	}
	s := &Server{Engine: eng, Store: st, Broker: broker, Config: cfg}
	if cfg.Rate.RPS > 0 {
		burst := cfg.Rate.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Rate.RPS), burst)
	}
	return s
}

// NewStore uses Postgres when DATABASE_URL is set, memory otherwise.
func NewStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return store.NewMemory(), nil
	}
	return store.NewPostgres(ctx, cfg.DatabaseURL)
}

// NewEventBroker picks Kafka when brokers are configured, then Redis, then
// the in-process broker. A Redis connection failure falls back to memory.
// The Kafka reader runs until ctx ends.
func NewEventBroker(ctx context.Context, cfg config.Config) EventBroker {
	if len(cfg.Kafka.Brokers) > 0 {
		kb := NewKafkaBroker(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		go kb.Run(ctx)
		return kb
	}
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(ctx, cfg.RedisURL)
		if err == nil {
			return rb
		}
		log.Printf("broker_fallback broker=memory err=%v", err)
	}
	return NewBroker()
}
