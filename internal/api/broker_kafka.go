package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBroker writes result events to a topic and feeds local stream
// subscribers from a reader on the same topic. Each instance reads with its
// own consumer group so every instance sees every result.
type KafkaBroker struct {
	r     messageReader
	w     messageWriter
	local *Broker
}

func NewKafkaBroker(brokers []string, topic string) *KafkaBroker {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "fleetopt-stream-" + uuid.NewString(),
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
	}
	return newKafkaBroker(r, w)
}

func newKafkaBroker(r messageReader, w messageWriter) *KafkaBroker {
	return &KafkaBroker{r: r, w: w, local: NewBroker()}
}

func (b *KafkaBroker) Name() string { return "kafka" }

// Run forwards topic messages to local subscribers until ctx ends or the
// reader is closed.
func (b *KafkaBroker) Run(ctx context.Context) {
	for {
		msg, err := b.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			log.Printf("kafka_read_failed err=%v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		evt := Event{Type: headerValue(msg, "type"), Payload: msg.Value}
		if evt.Type == "" {
			evt.Type = EventResult
		}
		_ = b.local.Publish(ctx, evt)
	}
}

func (b *KafkaBroker) Publish(ctx context.Context, evt Event) error {
	var key []byte
	var head struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(evt.Payload, &head) == nil && head.ID != "" {
		key = []byte(head.ID)
	}
	return b.w.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   evt.Payload,
		Headers: []kafka.Header{{Key: "type", Value: []byte(evt.Type)}},
	})
}

func (b *KafkaBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	return b.local.Subscribe(ctx)
}

func (b *KafkaBroker) Close() error {
	errW := b.w.Close()
	errR := b.r.Close()
	_ = b.local.Close()
	return errors.Join(errW, errR)
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
