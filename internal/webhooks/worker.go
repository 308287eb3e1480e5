// Package webhooks delivers optimization results to subscriber URLs as
// HMAC-signed POSTs, retrying failures with exponential backoff.
package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetopt/internal/metrics"
)

const DefaultMaxAttempts = 10

type delivery struct {
	ID          string
	URL         string
	EventType   string
	Payload     []byte
	Attempts    int
	NextAttempt time.Time
}

// Worker keeps an in-memory delivery queue. Notify enqueues; Run drains the
// queue once per second until the context ends.
type Worker struct {
	URLs        []string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int

	mu    sync.Mutex
	queue []*delivery
	now   func() time.Time
}

func NewWorker(urls []string, secret string, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Worker{
		URLs:        urls,
		Secret:      secret,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Notify queues one delivery of payload per subscriber URL.
func (w *Worker) Notify(eventType string, payload []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, u := range w.URLs {
		w.queue = append(w.queue, &delivery{ID: uuid.NewString(), URL: u, EventType: eventType, Payload: payload, NextAttempt: w.now()})
	}
}

// Pending is the number of queued deliveries.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOnce(ctx)
		}
	}
}

// due removes and returns deliveries whose next attempt has come.
func (w *Worker) due() []*delivery {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	var ready []*delivery
	keep := w.queue[:0]
	for _, d := range w.queue {
		if !d.NextAttempt.After(now) {
			ready = append(ready, d)
		} else {
			keep = append(keep, d)
		}
	}
	w.queue = keep
	return ready
}

func (w *Worker) requeue(d *delivery) {
	w.mu.Lock()
	w.queue = append(w.queue, d)
	w.mu.Unlock()
}

func (w *Worker) processOnce(ctx context.Context) {
	for _, d := range w.due() {
		code, err := w.send(ctx, d)
		if err == nil {
			metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
			continue
		}
		d.Attempts++
		if d.Attempts >= w.MaxAttempts {
			metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
			log.Printf("webhook_dropped id=%s url=%s attempts=%d code=%d err=%v", d.ID, d.URL, d.Attempts, code, err)
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues("retry").Inc()
		d.NextAttempt = w.now().Add(nextBackoff(d.Attempts))
		w.requeue(d)
	}
}

func (w *Worker) send(ctx context.Context, d *delivery) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Delivery-Id", d.ID)
	if w.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(w.Secret, d.Payload))
	}
	resp, err := w.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhooks: %s returned %d", d.URL, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
