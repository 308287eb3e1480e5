package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	status int
	calls  int
	sig    string
	typ    string
	body   []byte
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.sig = req.Header.Get("X-Signature")
	r.typ = req.Header.Get("X-Event-Type")
	r.body = b
	w.WriteHeader(r.status)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestWorkerDeliversSigned(t *testing.T) {
	rec := &recorder{status: http.StatusOK}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	w := NewWorker([]string{srv.URL}, "secret", 3)
	w.HTTP = srv.Client()
	body := []byte(`{"id":"r1"}`)
	w.Notify("optimization.completed", body)
	w.processOnce(context.Background())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.calls != 1 || rec.typ != "optimization.completed" {
		t.Fatalf("calls=%d type=%q", rec.calls, rec.typ)
	}
	if !VerifyHMAC("secret", rec.body, rec.sig) {
		t.Fatalf("signature %q does not verify", rec.sig)
	}
	if w.Pending() != 0 {
		t.Fatalf("delivered item still queued")
	}
}

func TestWorkerRetriesThenDrops(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	clock := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	w := NewWorker([]string{srv.URL}, "", 2)
	w.HTTP = srv.Client()
	w.now = func() time.Time { return clock }

	w.Notify("optimization.completed", []byte(`{}`))
	w.processOnce(context.Background())
	if w.Pending() != 1 {
		t.Fatalf("failed delivery should be requeued")
	}
	// backoff not yet elapsed
	w.processOnce(context.Background())
	if n := rec.count(); n != 1 {
		t.Fatalf("retried before backoff: %d calls", n)
	}
	clock = clock.Add(nextBackoff(1))
	w.processOnce(context.Background())
	if n := rec.count(); n != 2 || w.Pending() != 0 {
		t.Fatalf("calls=%d pending=%d, want drop after max attempts", n, w.Pending())
	}
}

func TestNextBackoffBounds(t *testing.T) {
	if nextBackoff(-3) != time.Second || nextBackoff(1) != 2*time.Second {
		t.Fatalf("unexpected backoff")
	}
	if nextBackoff(50) != 1024*time.Second {
		t.Fatalf("backoff not capped at 2^10 seconds: %v", nextBackoff(50))
	}
}

func TestSignatureHeader(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := SignHMAC("k", body)
	if !VerifyHMAC("k", body, sig) {
		t.Fatalf("own signature rejected")
	}
	if VerifyHMAC("other", body, sig) || VerifyHMAC("k", []byte(`{"a":2}`), sig) {
		t.Fatalf("signature accepted with wrong key or body")
	}
	if VerifyHMAC("k", body, sig[len("sha256="):]) {
		t.Fatalf("unprefixed signature accepted")
	}
}
