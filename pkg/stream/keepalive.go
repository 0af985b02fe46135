package stream

import (
	"context"
	"time"

	"github.com/oaigw/gateway/pkg/api"
	"github.com/oaigw/gateway/pkg/observability"
)

const heartbeatInterval = 3 * time.Second

// heartbeatFrame is the fixed chunk shape emitted by the keep-alive pump.
func heartbeatFrame() *api.ChatCompletionChunk {
	return &api.ChatCompletionChunk{
		ID:      "keepalive",
		Object:  "chat.completion.chunk",
		Choices: []api.ChunkChoice{{Index: 0, Delta: api.Delta{}, FinishReason: nil}},
	}
}

// Pump emits heartbeat frames on Writer every heartbeatInterval while the
// upstream call is in flight. It is engaged by the caller only when the
// combined keep-alive/safety policy allows it, which is a transport-layer
// decision, not this package's.
type Pump struct {
	w      *Writer
	cancel context.CancelFunc
	done   chan struct{}
}

// Start begins emitting heartbeats immediately, then every
// heartbeatInterval, until Stop is called or ctx is canceled (client
// disconnect).
func Start(ctx context.Context, w *Writer) *Pump {
	pumpCtx, cancel := context.WithCancel(ctx)
	p := &Pump{w: w, cancel: cancel, done: make(chan struct{})}
	go p.run(pumpCtx)
	return p
}

func (p *Pump) run(ctx context.Context) {
	defer close(p.done)
	if err := p.w.WriteJSON(heartbeatFrame()); err == nil {
		observability.KeepAliveHeartbeatsTotal.Inc()
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.w.WriteJSON(heartbeatFrame()); err != nil {
				return
			}
			observability.KeepAliveHeartbeatsTotal.Inc()
		}
	}
}

// Stop cancels the pump and waits for its goroutine to exit, guaranteeing
// no further heartbeat writes race with the caller's own writes to w.
// Idempotent: calling Stop more than once is safe.
func (p *Pump) Stop() {
	p.cancel()
	<-p.done
}
