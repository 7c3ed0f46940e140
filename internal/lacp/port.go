package lacp

import (
	"fmt"
	"sync/atomic"
)

// PortHandle identifies a LogicalPort: a 64-bit value encoding the port
// index and port type, opaque to everything except the registry that
// allocates it (spec.md §3 "Identity: a 64-bit handle").
type PortHandle uint64

// AggregatorHandle identifies a data-plane SuperPort allocated by the
// external programmer (spec.md §3 "SuperPort (Aggregator)").
type AggregatorHandle uint64

// SystemID is a (priority, MAC) pair identifying a system for LAG_Id
// purposes (spec.md §6 "system_id is formatted \"<prio>,mac\"").
type SystemID struct {
	Priority uint16
	MAC      [6]byte
}

func (s SystemID) String() string {
	return fmt.Sprintf("%d,%02x:%02x:%02x:%02x:%02x:%02x",
		s.Priority, s.MAC[0], s.MAC[1], s.MAC[2], s.MAC[3], s.MAC[4], s.MAC[5])
}

func (s SystemID) Equal(o SystemID) bool { return s == o }

// PortID is a (priority, port number) pair, formatted "<prio>,<num>"
// for the configuration store (spec.md §6).
type PortID struct {
	Priority uint16
	Number   uint16
}

func (p PortID) String() string { return fmt.Sprintf("%d,%d", p.Priority, p.Number) }

// OverrideMask names the per-port admin fields that can be explicitly
// set by configuration (original_source/include/lacp_cmn.h
// LACP_LPORT_*_FIELD_PRESENT bitmask; SPEC_FULL.md §4). The Engine
// neither sets nor reads LogicalPort.OverrideMask: applyConfig keeps
// the previous SystemID, SystemPriority, Fallback, port ID and key only
// when the incoming PortConfig leaves them nil or zero, and always
// overwrites Mode and Timeout.
type OverrideMask uint16

const (
	OverrideActivity OverrideMask = 1 << iota
	OverrideTimeout
	OverrideAggregation
	OverrideSystemPriority
	OverrideSystemID
	OverridePortKey
	OverridePortPriority
	OverrideLACPEnable
	OverrideFallback
)

// Params is the admin or operational parameter set carried by a port
// (spec.md §3: "Actor admin/operational parameters... Partner admin/
// operational parameters: symmetric set").
type Params struct {
	System SystemID
	Port   PortID
	Key    uint16
	State  PortState
}

// equalForLAGID reports whether two Params describe the same LAG_Id-relevant
// identity: system, key, and (conditionally) port priority/number, per
// spec.md §4.4 "LAG_Id equality".
func (p Params) equalForLAGID(o Params, bothAggregatable bool) bool {
	if p.System != o.System || p.Key != o.Key {
		return false
	}
	if bothAggregatable {
		return true
	}
	return p.Port == o.Port
}

// LogicalPort is one managed interface's LACP protocol state (spec.md
// §3). All fields are owned exclusively by the Engine goroutine; no
// field may be read or written from any other goroutine.
type LogicalPort struct {
	Handle PortHandle
	Type   PortType

	ActorAdmin    Params
	ActorOper     Params
	PartnerAdmin  Params
	PartnerOper   Params
	OverrideMask  OverrideMask

	// Control variables (spec.md §3).
	Begin       bool
	Selected    SelectedStatus
	PortMoved   bool
	NTT         bool
	PortEnabled bool
	ReadyN      bool

	// FSM state.
	RxState  ReceiveState
	PxState  PeriodicState
	MuxState MuxState
	// PrevMuxState supports the Attached entry action's one-step
	// reverse-transition guard (spec.md §4.3).
	PrevMuxState MuxState

	// Timer counters, in ticks (spec.md §3, §4.6).
	CurrentWhile int
	Periodic     int
	WaitWhile    int
	asyncTxCount int

	// Statistics (spec.md §3).
	Stats Statistics

	// LAG membership.
	LAG        *LAG
	Aggregator AggregatorHandle

	FallbackEnabled bool

	// LoopBack is set by the owner when this port's far end is known to
	// be looped back to the local system (e.g. same-chassis test port).
	LoopBack bool

	// LinkSpeedMbps is the link speed reported by the last LinkUpEvent.
	LinkSpeedMbps uint64

	// Mode is the administrative LACP mode (off/active/passive). When
	// off, LACPEnabled reports false and the Receive FSM runs the
	// LacpDisabled path.
	Mode Mode
}

// Statistics are the per-port counters spec.md §3 names.
type Statistics struct {
	LACPDUsSent       atomic.Uint64
	LACPDUsReceived   atomic.Uint64
	MarkersReceived   atomic.Uint64
	MarkerRespSent    atomic.Uint64
	IllegalReceived   atomic.Uint64
}

// NewLogicalPort constructs a LogicalPort with spec.md §3/§4 defaults
// and Begin asserted, mirroring the original daemon's port-create path
// (original_source/src/mlacp_main.c lacp_initialize_port-equivalent).
func NewLogicalPort(handle PortHandle, portType PortType, actorSystem SystemID, port PortID, key uint16) *LogicalPort {
	p := &LogicalPort{
		Handle: handle,
		Type:   portType,
		ActorAdmin: Params{
			System: actorSystem,
			Port:   port,
			Key:    key,
			State: PortState{
				Activity:    true,
				Timeout:     TimeoutShort,
				Aggregation: AggregationAggregatable,
			},
		},
		Begin:    true,
		Selected: Unselected,
		RxState:  RxInitialize,
		PxState:  PeriodicNoPeriodic,
		MuxState: MuxDetached,
		Mode:     ModeActive,
	}
	p.ActorOper = p.ActorAdmin
	p.PartnerAdmin = defaultPartnerParams()
	p.PartnerOper = p.PartnerAdmin
	return p
}

func defaultPartnerParams() Params {
	return Params{
		Key:  DefaultPortKey,
		Port: PortID{Priority: DefaultPortPriority},
		State: PortState{
			Timeout:     TimeoutShort,
			Aggregation: AggregationAggregatable,
		},
	}
}

// LACPEnabled reports whether this port runs LACP at all (Mode != off).
func (p *LogicalPort) LACPEnabled() bool {
	return p.Mode != ModeOff
}
