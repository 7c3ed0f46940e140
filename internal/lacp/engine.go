package lacp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// FrameSender transmits a wire frame on a port's interface. Calls made
// from an FSM action routine are synchronous with respect to state
// changes (spec.md §5 "PDU transmission requested from an action
// routine is synchronous").
type FrameSender interface {
	Send(port PortHandle, wire []byte) error
}

// MetricsSink receives observability counters the Engine produces.
// Optional; a nil sink is a no-op.
type MetricsSink interface {
	IncLACPDUSent(port PortHandle)
	IncLACPDURecv(port PortHandle)
	IncMarkerRecv(port PortHandle)
	IncMarkerRespSent(port PortHandle)
	RecordFSMTransition(fsm string, port PortHandle)
	SetLAGCount(n int)
}

// ConfigPublisher mirrors Engine state changes to the configuration
// store for observability (spec.md §2 "mutations are mirrored to the
// configuration store", §6 "written by the core"). Optional.
type ConfigPublisher interface {
	PublishPortStatus(port PortHandle, status PortStatus)
}

// PortStatus is the subset of per-port state the configuration store
// contract (spec.md §6) says the core writes back.
type PortStatus struct {
	HwBondRxEnabled bool
	HwBondTxEnabled bool
	LACPCurrent     bool
	ActorSystemID   SystemID
	ActorPortID     PortID
	ActorKey        uint16
	ActorState      PortState
	PartnerSystemID SystemID
	PartnerPortID   PortID
	PartnerKey      uint16
	PartnerState    PortState
	BondStatus      string // "up" | "blocked" | "down"
}

// eventQueueSize bounds the Engine's event channel. Producers that see
// a full queue block (spec.md never asks for event loss; it asks for
// FIFO-per-source ordering, which an unbounded-loss policy would
// violate).
const eventQueueSize = 1024

// Engine owns every LogicalPort and LAG and processes events from its
// queue strictly one at a time (spec.md §5). It must only ever be
// driven by one goroutine: its own Run loop, or a caller of Dispatch
// (tests) that does not also run Run. Other goroutines may only call
// Enqueue and the read-locked Snapshot/Ports/LAGs.
type Engine struct {
	logger      *slog.Logger
	programmer  DataPlaneProgrammer
	sender      FrameSender
	metrics     MetricsSink
	publisher   ConfigPublisher

	// mu guards ports/lags/lagSeq against the one cross-goroutine read
	// path this package allows: Snapshot/Ports/LAGs, called from the
	// status server while Dispatch runs on the Engine's own goroutine
	// (spec.md §6 "read-only status surface"; grounded on
	// internal/bfd/manager.go's mu sync.RWMutex around Sessions()).
	mu sync.RWMutex

	ports map[PortHandle]*LogicalPort
	lags  map[uint64]*LAG
	lagSeq uint64

	sysMAC     [6]byte
	sysPrio    uint16

	events chan Event
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

func WithMetrics(m MetricsSink) EngineOption         { return func(e *Engine) { e.metrics = m } }
func WithConfigPublisher(p ConfigPublisher) EngineOption { return func(e *Engine) { e.publisher = p } }

// NewEngine constructs an Engine. sysMAC/sysPrio seed the global
// configuration value described in spec.md §9 "Global mutable state";
// they are later only ever changed via SystemIDChangeEvent/
// SystemPriorityChangeEvent so all observers see them serialized with
// every other event.
func NewEngine(programmer DataPlaneProgrammer, sender FrameSender, sysMAC [6]byte, sysPrio uint16, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		logger:     logger.With(slog.String("component", "lacp.engine")),
		programmer: programmer,
		sender:     sender,
		ports:      make(map[PortHandle]*LogicalPort),
		lags:       make(map[uint64]*LAG),
		sysMAC:     sysMAC,
		sysPrio:    sysPrio,
		events:     make(chan Event, eventQueueSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enqueue delivers an event to the protocol task. Safe to call from
// any goroutine; this is the only method timer/receiver/config-store
// producers are permitted to call.
func (e *Engine) Enqueue(ev Event) {
	e.events <- ev
}

// Run drains the event queue until ctx is cancelled, processing one
// event at a time to completion (spec.md §5 "Suspension points": the
// protocol task blocks only on the event queue). Shutdown is
// cooperative: in-flight events finish before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-e.events:
			e.Dispatch(ev)
		}
	}
}

// Dispatch applies a single event synchronously. Run calls it for
// every event it drains from the queue; tests call it directly to
// drive the Engine deterministically without a background goroutine.
// Like every other state-mutating method, it must only ever be called
// from the single goroutine that owns this Engine (spec.md §5).
func (e *Engine) Dispatch(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch v := ev.(type) {
	case TickEvent:
		e.handleTick()
	case RxPduEvent:
		e.handleRxPdu(v)
	case LinkUpEvent:
		e.handleLinkUp(v)
	case LinkDownEvent:
		e.handleLinkDown(v)
	case PortCreateEvent:
		e.handlePortCreate(v)
	case PortRemoveEvent:
		e.handlePortRemove(v)
	case ConfigChangeEvent:
		e.handleConfigChange(v)
	case SystemIDChangeEvent:
		e.sysMAC = v.MAC
	case SystemPriorityChangeEvent:
		e.sysPrio = v.Priority
	default:
		e.logger.Warn("unknown event type", slog.Any("event", ev))
	}
}

func slogErr(err error) slog.Attr { return slog.String("error", err.Error()) }

func (e *Engine) port(h PortHandle) (*LogicalPort, bool) {
	p, ok := e.ports[h]
	return p, ok
}

func (e *Engine) mustPort(h PortHandle, source string) *LogicalPort {
	p, ok := e.ports[h]
	if !ok {
		e.logger.Warn("event referenced unknown port handle", slog.String("source", source), slog.Uint64("port", uint64(h)))
	}
	return p
}

// publishStatus mirrors a port's current state to the configuration
// store (spec.md §2, §6).
func (e *Engine) publishStatus(p *LogicalPort) {
	if e.publisher == nil {
		return
	}
	bondStatus := "down"
	switch {
	case p.MuxState == MuxCollectingDistributing:
		bondStatus = "up"
	case p.Selected == Selected:
		bondStatus = "blocked"
	}
	e.publisher.PublishPortStatus(p.Handle, PortStatus{
		HwBondRxEnabled: p.ActorOper.State.Collecting,
		HwBondTxEnabled: p.ActorOper.State.Distributing,
		LACPCurrent:     p.RxState == RxCurrent,
		ActorSystemID:   p.ActorOper.System,
		ActorPortID:     p.ActorOper.Port,
		ActorKey:        p.ActorOper.Key,
		ActorState:      p.ActorOper.State,
		PartnerSystemID: p.PartnerOper.System,
		PartnerPortID:   p.PartnerOper.Port,
		PartnerKey:      p.PartnerOper.Key,
		PartnerState:    p.PartnerOper.State,
		BondStatus:      bondStatus,
	})
}

func (e *Engine) transmit(p *LogicalPort, pdu LACPDU) {
	buf := *(PacketPool.Get().(*[]byte))
	defer PacketPool.Put(&buf)

	n, err := MarshalLACPDU(pdu, buf)
	if err != nil {
		e.logger.Error("marshal LACPDU", slog.String("error", err.Error()))
		return
	}
	if err := e.sender.Send(p.Handle, buf[:n]); err != nil {
		e.logger.Warn("transport send failure", slog.String("error", fmt.Errorf("%w: %w", ErrTransportFailure, err).Error()))
		return
	}
	p.Stats.LACPDUsSent.Add(1)
	if e.metrics != nil {
		e.metrics.IncLACPDUSent(p.Handle)
	}
}

func (e *Engine) asyncTransmit(p *LogicalPort) {
	if p.asyncTxCount >= asyncTxBudget {
		return
	}
	p.asyncTxCount++
	e.actorPDU(p)
}

func (e *Engine) actorPDU(p *LogicalPort) {
	e.transmit(p, LACPDU{Actor: p.ActorOper, Partner: p.PartnerOper})
	p.NTT = false
}

func (e *Engine) handleLinkUp(v LinkUpEvent) {
	p := e.mustPort(v.Port, "LinkUp")
	if p == nil {
		return
	}
	p.PortEnabled = true
	p.LinkSpeedMbps = v.SpeedMbps
	e.applyPortEnabledChanged(p)
}

func (e *Engine) handleLinkDown(v LinkDownEvent) {
	p := e.mustPort(v.Port, "LinkDown")
	if p == nil {
		return
	}
	p.PortEnabled = false
	e.applyPortEnabledChanged(p)
}

// applyPortEnabledChanged re-evaluates the Receive FSM's E4/E6/E7 guard
// conditions after PortEnabled or Mode changes.
func (e *Engine) applyPortEnabledChanged(p *LogicalPort) {
	switch {
	case !p.PortMoved && !p.PortEnabled && !p.Begin:
		e.postRx(p, RxE4PortDownIdle, nil)
	case p.PortEnabled && p.LACPEnabled():
		e.postRx(p, RxE6PortLACPEnabled, nil)
	case p.PortEnabled && !p.LACPEnabled():
		e.postRx(p, RxE7PortLACPDisabled, nil)
	}
}

func (e *Engine) handlePortRemove(v PortRemoveEvent) {
	p, ok := e.ports[v.Port]
	if !ok {
		return
	}
	if p.LAG != nil {
		e.removePortFromLAG(p)
	}
	delete(e.ports, v.Port)
}

func (e *Engine) handlePortCreate(v PortCreateEvent) {
	p, exists := e.ports[v.Port]
	if !exists {
		p = NewLogicalPort(v.Port, v.Type, SystemID{Priority: e.sysPrio, MAC: e.sysMAC}, v.Config.PortID, v.Config.AggregationKey)
		e.ports[v.Port] = p
		e.postRx(p, RxE8Begin, nil)
		e.postPx(p, PxE1Begin)
		e.postMux(p, MxE7Begin)
	}
	e.applyConfig(p, v.Config)
}

func (e *Engine) handleConfigChange(v ConfigChangeEvent) {
	p := e.mustPort(v.Port, "ConfigChange")
	if p == nil {
		return
	}
	e.applyConfig(p, v.Config)
}

func (e *Engine) applyConfig(p *LogicalPort, cfg PortConfig) {
	prevMode := p.Mode
	prevFallback := p.FallbackEnabled

	p.Mode = cfg.Mode
	p.ActorAdmin.State.Activity = cfg.Mode == ModeActive
	p.ActorAdmin.State.Timeout = cfg.Timeout
	if cfg.SystemID != nil {
		p.ActorAdmin.System = *cfg.SystemID
	}
	if cfg.SystemPriority != nil {
		p.ActorAdmin.System.Priority = *cfg.SystemPriority
	}
	if cfg.Fallback != nil {
		p.FallbackEnabled = *cfg.Fallback
	}
	if cfg.AggregationKey != 0 {
		p.ActorAdmin.Key = cfg.AggregationKey
	}
	if cfg.PortID.Number != 0 {
		p.ActorAdmin.Port = cfg.PortID
	}
	p.ActorOper.State.Activity = p.ActorAdmin.State.Activity
	p.ActorOper.State.Timeout = p.ActorAdmin.State.Timeout
	p.ActorOper.System = p.ActorAdmin.System
	p.ActorOper.Key = p.ActorAdmin.Key
	p.ActorOper.Port = p.ActorAdmin.Port

	if prevMode != p.Mode {
		e.applyPortEnabledChanged(p)
	}
	if prevFallback != p.FallbackEnabled && p.RxState == RxDefaulted {
		e.postRx(p, RxE9FallbackChanged, nil)
	}
}
