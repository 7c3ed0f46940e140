package netio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// Receiver fans raw frames in from every bound interface and delivers
// them to the Engine's event queue as lacp.RxPduEvent (spec.md §4.7:
// producers only ever construct and enqueue an Event, never touch
// port/LAG state directly). Adapted from the teacher's goroutine-
// per-listener Receiver in this same file; the demux step is now a
// direct Engine.Enqueue instead of a pluggable Demuxer, since spec.md
// routes every inbound frame through the single event queue rather
// than a synchronous per-packet callback.
type Receiver struct {
	logger *slog.Logger
	engine *lacp.Engine

	mu       sync.Mutex
	bindings map[lacp.PortHandle]FrameConn
}

// NewReceiver constructs a Receiver delivering decoded events to engine.
func NewReceiver(engine *lacp.Engine, logger *slog.Logger) *Receiver {
	return &Receiver{
		logger:   logger.With(slog.String("component", "netio.receiver")),
		engine:   engine,
		bindings: make(map[lacp.PortHandle]FrameConn),
	}
}

// Bind registers conn as the transport for port and starts reading
// from it in the background. Cancel ctx to stop the read goroutine.
func (r *Receiver) Bind(ctx context.Context, port lacp.PortHandle, conn FrameConn) {
	r.mu.Lock()
	r.bindings[port] = conn
	r.mu.Unlock()

	go r.recvLoop(ctx, port, conn)
}

// Unbind stops tracking port. The caller must independently stop the
// read goroutine (cancel ctx or close conn) before calling this.
func (r *Receiver) Unbind(port lacp.PortHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, port)
}

func (r *Receiver) recvLoop(ctx context.Context, port lacp.PortHandle, conn FrameConn) {
	buf := make([]byte, lacp.FrameSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := conn.ReadFrame(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("read frame failed", slog.String("if", conn.IfName()), slog.String("error", err.Error()))
			continue
		}
		if n < HeaderSizeEthernet {
			continue
		}

		wire := make([]byte, n-HeaderSizeEthernet)
		copy(wire, buf[HeaderSizeEthernet:n])

		r.engine.Enqueue(lacp.RxPduEvent{Port: port, Wire: wire})
	}
}
