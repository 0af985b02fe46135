package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriterSingleDoneTerminator(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	if err := w.WriteJSON(map[string]string{"a": "b"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if err := w.WriteDone(); err != nil {
		t.Fatalf("WriteDone: %v", err)
	}
	if err := w.WriteDone(); err != nil {
		t.Fatalf("second WriteDone should be a no-op, got: %v", err)
	}
	body := rec.Body.String()
	if strings.Count(body, "data: [DONE]\n\n") != 1 {
		t.Fatalf("expected exactly one [DONE] frame, got body: %q", body)
	}
}

func TestWriterRejectsWritesAfterDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	_ = w.WriteDone()
	if err := w.WriteJSON(map[string]string{"a": "b"}); err == nil {
		t.Fatalf("expected error writing after completion")
	}
}

func TestWriterSetsSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	_ = w.WriteJSON(map[string]string{"a": "b"})
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream; charset=utf-8" {
		t.Fatalf("unexpected content-type: %q", ct)
	}
}
