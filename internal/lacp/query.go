package lacp

import "sort"

// PortSnapshot is a read-only copy of a LogicalPort's protocol state,
// safe to hand to another goroutine (the status server, lacpctl)
// since it copies every field instead of aliasing the live port
// (spec.md §6 "read-only status surface").
type PortSnapshot struct {
	Handle PortHandle
	Type   PortType
	Mode   Mode

	RxState  ReceiveState
	PxState  PeriodicState
	MuxState MuxState
	Selected SelectedStatus

	ActorOper   Params
	PartnerOper Params

	LAGID      LAGID
	InLAG      bool
	Aggregator AggregatorHandle
}

func snapshotPort(p *LogicalPort) PortSnapshot {
	s := PortSnapshot{
		Handle:      p.Handle,
		Type:        p.Type,
		Mode:        p.Mode,
		RxState:     p.RxState,
		PxState:     p.PxState,
		MuxState:    p.MuxState,
		Selected:    p.Selected,
		ActorOper:   p.ActorOper,
		PartnerOper: p.PartnerOper,
		Aggregator:  p.Aggregator,
	}
	if p.LAG != nil {
		s.InLAG = true
		s.LAGID = p.LAG.ID
	}
	return s
}

// Snapshot returns a copy of one port's current state. It takes the
// Engine's read lock, so it is safe to call from any goroutine.
func (e *Engine) Snapshot(h PortHandle) (PortSnapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.ports[h]
	if !ok {
		return PortSnapshot{}, false
	}
	return snapshotPort(p), true
}

// Ports returns a snapshot of every managed port, ordered by handle.
func (e *Engine) Ports() []PortSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]PortSnapshot, 0, len(e.ports))
	for _, p := range e.ports {
		out = append(out, snapshotPort(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// LAGSnapshot is a read-only copy of a LAG's membership and readiness.
type LAGSnapshot struct {
	ID       LAGID
	PortType PortType
	Members  []PortHandle
	Ready    bool
	LoopBack bool

	Aggregator AggregatorHandle
}

// LAGs returns a snapshot of every active LAG.
func (e *Engine) LAGs() []LAGSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]LAGSnapshot, 0, len(e.lags))
	for _, l := range e.lags {
		members := make([]PortHandle, len(l.Members))
		copy(members, l.Members)
		out = append(out, LAGSnapshot{
			ID:         l.ID,
			PortType:   l.PortType,
			Members:    members,
			Ready:      l.Ready,
			LoopBack:   l.LoopBack,
			Aggregator: l.Aggregator,
		})
	}
	return out
}
