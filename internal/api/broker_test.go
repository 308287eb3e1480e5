package api

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/segmentio/kafka-go"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before an event arrived")
		}
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)

	evt := Event{Type: EventResult, Payload: json.RawMessage(`{"id":"r1"}`)}
	_ = b.Publish(context.Background(), evt)
	if got := receive(t, ch); got.Type != EventResult || string(got.Payload) != `{"id":"r1"}` {
		t.Fatalf("got %+v", got)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	if n := b.Subscribers(); n != 0 {
		t.Fatalf("%d subscribers left", n)
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch, _ := b.Subscribe(t.Context())
	for i := 0; i < 100; i++ {
		_ = b.Publish(context.Background(), Event{Type: EventResult})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer holds %d of %d", len(ch), cap(ch))
	}
}

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := t.Context()
	b, err := NewRedisBroker(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(ctx, Event{Type: EventResult, Payload: json.RawMessage(`{"id":"r2"}`)}); err != nil {
		t.Fatal(err)
	}
	if got := receive(t, ch); string(got.Payload) != `{"id":"r2"}` {
		t.Fatalf("got %+v", got)
	}
}

func TestRedisBrokerBadURL(t *testing.T) {
	if _, err := NewRedisBroker(t.Context(), "not-a-url"); err == nil {
		t.Fatal("expected error")
	}
}

type fakeKafka struct {
	mu      sync.Mutex
	in      chan kafka.Message
	written []kafka.Message
	closed  chan struct{}
	once    sync.Once
}

func newFakeKafka() *fakeKafka {
	return &fakeKafka{in: make(chan kafka.Message, 4), closed: make(chan struct{})}
}

func (f *fakeKafka) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-f.closed:
		return kafka.Message{}, io.EOF
	case m := <-f.in:
		return m, nil
	}
}

func (f *fakeKafka) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeKafka) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func TestKafkaBrokerPublishKeysByResultID(t *testing.T) {
	f := newFakeKafka()
	b := newKafkaBroker(f, f)
	if err := b.Publish(context.Background(), Event{Type: EventResult, Payload: json.RawMessage(`{"id":"abc","success":true}`)}); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.written) != 1 {
		t.Fatalf("wrote %d messages", len(f.written))
	}
	m := f.written[0]
	if string(m.Key) != "abc" || headerValue(m, "type") != EventResult {
		t.Fatalf("key=%q headers=%v", m.Key, m.Headers)
	}
}

func TestKafkaBrokerRunForwardsToSubscribers(t *testing.T) {
	f := newFakeKafka()
	b := newKafkaBroker(f, f)
	ctx := t.Context()
	ch, _ := b.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	f.in <- kafka.Message{Value: []byte(`{"id":"k1"}`)}
	if got := receive(t, ch); got.Type != EventResult || string(got.Payload) != `{"id":"k1"}` {
		t.Fatalf("got %+v", got)
	}

	_ = b.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after Close")
	}
}
