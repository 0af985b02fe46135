package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPumpEmitsImmediateHeartbeat(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	p := Start(context.Background(), w)
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	if !strings.Contains(rec.Body.String(), `"id":"keepalive"`) {
		t.Fatalf("expected an immediate heartbeat frame, got: %q", rec.Body.String())
	}
}

func TestPumpStopIsIdempotent(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	p := Start(context.Background(), w)
	p.Stop()
	p.Stop() // must not panic or block
}

func TestPumpCancelsOnContextDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	ctx, cancel := context.WithCancel(context.Background())
	p := Start(ctx, w)
	cancel()
	p.Stop()

	lenAfterStop := rec.Body.Len()
	time.Sleep(heartbeatInterval + 50*time.Millisecond)
	if rec.Body.Len() != lenAfterStop {
		t.Fatalf("expected no further writes after cancellation")
	}
}
