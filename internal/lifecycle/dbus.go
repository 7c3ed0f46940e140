// Package lifecycle emits daemon readiness and LAG state-change
// notifications on the D-Bus system bus. No teacher file does this —
// github.com/godbus/dbus/v5 sits unused in the teacher's go.mod; this
// package is the SPEC_FULL.md component built to exercise it (see
// DESIGN.md).
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// ObjectPath and InterfaceName identify this daemon's exported D-Bus
// object and the signals it emits.
const (
	ObjectPath    = dbus.ObjectPath("/io/github/dantte_lp/lacpd")
	InterfaceName = "io.github.dantte_lp.lacpd1"

	SignalLAGChanged = InterfaceName + ".LAGChanged"
)

// Emitter publishes LAG membership/readiness changes as D-Bus signals,
// so other system components (a bonding manager, a monitoring agent)
// can react without polling the status server.
type Emitter struct {
	logger *slog.Logger
	conn   *dbus.Conn
}

// Connect opens a connection to the system bus and exports this
// daemon's well-known object path.
func Connect(logger *slog.Logger) (*Emitter, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	reply, err := conn.RequestName("io.github.dantte_lp.lacpd", dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name io.github.dantte_lp.lacpd already owned")
	}

	return &Emitter{logger: logger.With(slog.String("component", "lifecycle")), conn: conn}, nil
}

// Close releases the bus connection.
func (e *Emitter) Close() error {
	return e.conn.Close()
}

// EmitLAGChanged signals a LAG's current membership/readiness. Errors
// are logged, not returned: a dropped signal must never stall protocol
// processing (spec.md §5 "no re-entrancy" extends to observers too).
func (e *Emitter) EmitLAGChanged(lag lacp.LAGSnapshot) {
	members := make([]uint64, len(lag.Members))
	for i, m := range lag.Members {
		members[i] = uint64(m)
	}

	err := e.conn.Emit(ObjectPath, SignalLAGChanged, lag.ID.String(), members, lag.Ready)
	if err != nil {
		e.logger.Warn("emit LAGChanged failed",
			slog.String("lag_id", lag.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Watch polls the Engine's LAG snapshots on every observed change and
// emits a signal for each one that flipped Ready since the last look;
// a cheap substitute for the Engine pushing change events directly,
// since lacp.Engine's only cross-goroutine surface is the read-only
// Snapshot/Ports/LAGs trio.
func (e *Emitter) Watch(ctx context.Context, engine *lacp.Engine, changes <-chan struct{}) {
	last := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			for _, lag := range readyTransitions(last, engine.LAGs()) {
				e.EmitLAGChanged(lag)
			}
		}
	}
}

// readyTransitions returns the LAGs whose Ready flag differs from the
// value recorded in last, and updates last to match current. Split out
// of Watch so the change-detection logic can be tested without a real
// bus connection.
func readyTransitions(last map[string]bool, current []lacp.LAGSnapshot) []lacp.LAGSnapshot {
	var changed []lacp.LAGSnapshot
	for _, lag := range current {
		key := lag.ID.String()
		if last[key] != lag.Ready {
			last[key] = lag.Ready
			changed = append(changed, lag)
		}
	}
	return changed
}
