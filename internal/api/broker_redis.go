package api

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// RedisChannel carries result events between service instances.
const RedisChannel = "fleetopt:results"

// RedisBroker implements EventBroker over Redis Pub/Sub, so a result
// computed on one instance reaches streams attached to any instance.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(ctx context.Context, url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis broker: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis broker: %w", err)
	}
	return &RedisBroker{rdb: rdb}, nil
}

func (b *RedisBroker) Name() string { return "redis" }

func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	ps := b.rdb.Subscribe(ctx, RedisChannel)
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	ch := make(chan Event, 16)
	msgs := ps.Channel()
	go func() {
		defer close(ch)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					continue
				}
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, RedisChannel, data).Err()
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }
