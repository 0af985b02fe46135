package observability

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - oaigw_requests_total (counter): incremented per request with route and status-class labels
//   - oaigw_request_duration_seconds (histogram): request duration by route
//   - oaigw_streaming_connections_active (gauge): incremented while an SSE streaming response is in flight
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		route := r.Method + " " + r.URL.Path

		// SSE is decided by the handler (the request body's stream flag),
		// so streaming is detected from the response Content-Type rather
		// than the Accept header.
		if sw.streaming {
			StreamingConnections.Dec()
		}

		statusStr := strconv.Itoa(sw.status/100) + "xx"

		RequestsTotal.WithLabelValues(route, statusStr).Inc()
		RequestDuration.WithLabelValues(route).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code and
// whether the response turned into an SSE stream.
type statusWriter struct {
	http.ResponseWriter
	status    int
	written   bool
	streaming bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		if w.Header().Get("Content-Type") == "text/event-stream; charset=utf-8" {
			w.streaming = true
			StreamingConnections.Inc()
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
// This is essential for SSE streaming support.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
