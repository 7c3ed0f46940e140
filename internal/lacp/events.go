package lacp

// Event is the common type of every value the Engine's single queue
// accepts (spec.md §4.7). Producers (timer, per-interface receivers,
// the config-store observer) only ever construct and enqueue an Event;
// they never touch LogicalPort/LAG state directly.
type Event interface{ isEvent() }

// RxPduEvent carries a raw wire frame received on a port's interface.
type RxPduEvent struct {
	Port PortHandle
	Wire []byte
}

// TickEvent is the 1 Hz timer-wheel tick (spec.md §4.6).
type TickEvent struct{}

// LinkUpEvent/LinkDownEvent mirror the owning interface's operational
// state.
type LinkUpEvent struct {
	Port      PortHandle
	SpeedMbps uint64
}

type LinkDownEvent struct{ Port PortHandle }

// PortConfig is the subset of configuration-store fields spec.md §6
// lists as read by the core (Port/Interface sections), bundled for
// ConfigChangeEvent/PortCreateEvent. There is no separate port-override
// event: per-port SystemID/SystemPriority overrides arrive in the same
// PortConfig.
type PortConfig struct {
	Mode            Mode
	Timeout         Timeout
	SystemID        *SystemID
	SystemPriority  *uint16
	Fallback        *bool
	PortID          PortID
	AggregationKey  uint16
}

// PortCreateEvent configures (creating if necessary) the LogicalPort
// for an interface.
type PortCreateEvent struct {
	Port     PortHandle
	Type     PortType
	Config   PortConfig
}

// PortRemoveEvent deconfigures a port (spec.md §3 "destroyed when the
// interface leaves all ports or the daemon shuts down").
type PortRemoveEvent struct{ Port PortHandle }

// ConfigChangeEvent applies an admin-parameter change to an existing
// port (mode, timeout, fallback, per-port overrides).
type ConfigChangeEvent struct {
	Port   PortHandle
	Config PortConfig
}

// SystemIDChangeEvent/SystemPriorityChangeEvent carry a global
// configuration value change, serialized through the event queue so
// the protocol task observes it with FIFO ordering relative to
// everything else (spec.md §9 "Global mutable state").
type SystemIDChangeEvent struct{ MAC [6]byte }
type SystemPriorityChangeEvent struct{ Priority uint16 }

func (RxPduEvent) isEvent()               {}
func (TickEvent) isEvent()                {}
func (LinkUpEvent) isEvent()              {}
func (LinkDownEvent) isEvent()            {}
func (PortCreateEvent) isEvent()          {}
func (PortRemoveEvent) isEvent()          {}
func (ConfigChangeEvent) isEvent()        {}
func (SystemIDChangeEvent) isEvent()      {}
func (SystemPriorityChangeEvent) isEvent() {}
