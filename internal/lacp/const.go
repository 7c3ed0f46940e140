package lacp

import "time"

// Timer wheel constants, in 1-second ticks (spec.md §4.6).
const (
	ShortTimeoutTicks = 3  // current-while after a Short-timeout partner
	LongTimeoutTicks  = 90 // current-while after a Long-timeout partner
	FastPeriodicTicks = 1  // periodic interval, Short timeout preference
	SlowPeriodicTicks = 30 // periodic interval, Long timeout preference
	WaitWhileTicks    = 2  // Mux wait-while settle time

	// TickInterval is the wall-clock period of the timer wheel.
	TickInterval = time.Second

	// asyncTxBudget bounds unsolicited LACPDU transmissions per tick
	// (spec.md §4.2 "Async-tx budget").
	asyncTxBudget = 3
)

// Defaults carried over from the original lacpd (original_source/include/lacp_cmn.h).
const (
	DefaultSystemPriority = 1 // DEFAULT_SYSTEM_PRIORITY
	DefaultPortPriority   = 1 // DEFAULT_PORT_PRIORITY
	DefaultPortKey        = 1 // DEFAULT_PORT_KEY_GIGE

	MinKeyValue = 1     // LACP_MIN_KEY_VAL
	MaxKeyValue = 65535 // LACP_MAX_KEY_VAL
)

// PortType classifies the member-link speed class used in LAG_Id
// matching (spec.md §3 "Port type (speed class)").
type PortType uint8

const (
	PortTypeUnknown     PortType = 0
	PortTypeFastEther   PortType = 1 // LACP_LAG_PORTTYPE_FASTETHER
	PortTypeGigeEther   PortType = 2 // LACP_LAG_PORTTYPE_GIGAETHER
	PortTypeTenGigEther PortType = 3 // LACP_LAG_PORTTYPE_10GIGAETHER
)

func (t PortType) String() string {
	switch t {
	case PortTypeFastEther:
		return "fast-ethernet"
	case PortTypeGigeEther:
		return "gig-ethernet"
	case PortTypeTenGigEther:
		return "10gig-ethernet"
	default:
		return "unknown"
	}
}

// Mode is the administrative LACP mode of a port (configuration-store
// "lacp_mode" field, spec.md §6).
type Mode uint8

const (
	ModeOff Mode = iota
	ModeActive
	ModePassive
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModePassive:
		return "passive"
	default:
		return "off"
	}
}

// Timeout is the LACP_Timeout preference: Short (fast detection) or
// Long (slow detection).
type Timeout uint8

const (
	TimeoutLong  Timeout = 0
	TimeoutShort Timeout = 1
)

func (t Timeout) String() string {
	if t == TimeoutShort {
		return "fast"
	}
	return "slow"
}

// Aggregation indicates whether a port is capable of joining a LAG
// with other ports.
type Aggregation uint8

const (
	AggregationIndividual   Aggregation = 0
	AggregationAggregatable Aggregation = 1
	AggregationUnknown      Aggregation = 2
)

// SelectedStatus is the per-port Selection control variable.
type SelectedStatus uint8

const (
	Unselected SelectedStatus = iota
	Selected
	Standby
)

func (s SelectedStatus) String() string {
	switch s {
	case Selected:
		return "selected"
	case Standby:
		return "standby"
	default:
		return "unselected"
	}
}
