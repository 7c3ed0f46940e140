package lacp

// StateFlags is the 8-bit actor_state / partner_state bitmap carried
// in every LACPDU (spec.md §4.5). Bit order is LSB first: Activity,
// Timeout, Aggregation, Synchronization, Collecting, Distributing,
// Defaulted, Expired.
type StateFlags uint8

const (
	FlagActivity StateFlags = 1 << iota
	FlagTimeout
	FlagAggregation
	FlagSync
	FlagCollecting
	FlagDistributing
	FlagDefaulted
	FlagExpired
)

func (f StateFlags) has(bit StateFlags) bool { return f&bit != 0 }

func (f StateFlags) set(bit StateFlags, v bool) StateFlags {
	if v {
		return f | bit
	}
	return f &^ bit
}

// PortState is the decoded form of a StateFlags byte, used for the
// actor/partner operational and admin parameter sets (spec.md §3).
type PortState struct {
	Activity     bool // true = Active, false = Passive
	Timeout      Timeout
	Aggregation  Aggregation
	Sync         bool
	Collecting   bool
	Distributing bool
	Defaulted    bool
	Expired      bool
}

// Encode packs a PortState into the wire StateFlags byte.
func (s PortState) Encode() StateFlags {
	var f StateFlags
	f = f.set(FlagActivity, s.Activity)
	f = f.set(FlagTimeout, s.Timeout == TimeoutShort)
	f = f.set(FlagAggregation, s.Aggregation == AggregationAggregatable)
	f = f.set(FlagSync, s.Sync)
	f = f.set(FlagCollecting, s.Collecting)
	f = f.set(FlagDistributing, s.Distributing)
	f = f.set(FlagDefaulted, s.Defaulted)
	f = f.set(FlagExpired, s.Expired)
	return f
}

// DecodePortState unpacks a wire StateFlags byte into a PortState.
func DecodePortState(f StateFlags) PortState {
	agg := AggregationIndividual
	if f.has(FlagAggregation) {
		agg = AggregationAggregatable
	}
	to := TimeoutLong
	if f.has(FlagTimeout) {
		to = TimeoutShort
	}
	return PortState{
		Activity:     f.has(FlagActivity),
		Timeout:      to,
		Aggregation:  agg,
		Sync:         f.has(FlagSync),
		Collecting:   f.has(FlagCollecting),
		Distributing: f.has(FlagDistributing),
		Defaulted:    f.has(FlagDefaulted),
		Expired:      f.has(FlagExpired),
	}
}

// String renders the state as a comma-separated "key:0|1" list, the
// format the configuration store expects for lacp_status.actor_state /
// partner_state (spec.md §6).
func (s PortState) String() string {
	b := func(v bool) byte {
		if v {
			return '1'
		}
		return '0'
	}
	buf := make([]byte, 0, 96)
	appendKV := func(key string, v bool) {
		if len(buf) > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, key...)
		buf = append(buf, ':', b(v))
	}
	appendKV("Activity", s.Activity)
	appendKV("Timeout", s.Timeout == TimeoutShort)
	appendKV("Aggregation", s.Aggregation == AggregationAggregatable)
	appendKV("Sync", s.Sync)
	appendKV("Collecting", s.Collecting)
	appendKV("Distributing", s.Distributing)
	appendKV("Defaulted", s.Defaulted)
	appendKV("Expired", s.Expired)
	return string(buf)
}

// ---------------------------------------------------------------------
// Receive FSM
// ---------------------------------------------------------------------

// ReceiveState is a state of the Receive machine (spec.md §4.1).
type ReceiveState uint8

const (
	RxInitialize ReceiveState = iota
	RxPortDisabled
	RxLacpDisabled
	RxExpired
	RxDefaulted
	RxCurrent
)

func (s ReceiveState) String() string {
	switch s {
	case RxInitialize:
		return "Initialize"
	case RxPortDisabled:
		return "PortDisabled"
	case RxLacpDisabled:
		return "LacpDisabled"
	case RxExpired:
		return "Expired"
	case RxDefaulted:
		return "Defaulted"
	case RxCurrent:
		return "Current"
	default:
		return "Unknown"
	}
}

// ReceiveEvent is an input to the Receive machine (spec.md §4.1 table).
type ReceiveEvent uint8

const (
	RxE1PDUReceived ReceiveEvent = iota + 1
	RxE2CurrentWhileExpired
	RxE3PortMoved
	RxE4PortDownIdle
	RxE5UCT
	RxE6PortLACPEnabled
	RxE7PortLACPDisabled
	RxE8Begin
	RxE9FallbackChanged
)

func (e ReceiveEvent) String() string {
	names := [...]string{
		"", "E1PDUReceived", "E2CurrentWhileExpired", "E3PortMoved",
		"E4PortDownIdle", "E5UCT", "E6PortLACPEnabled",
		"E7PortLACPDisabled", "E8Begin", "E9FallbackChanged",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "Unknown"
}

// ---------------------------------------------------------------------
// Periodic Transmit FSM
// ---------------------------------------------------------------------

// PeriodicState is a state of the Periodic Transmit machine (spec.md §4.2).
type PeriodicState uint8

const (
	PeriodicNoPeriodic PeriodicState = iota
	PeriodicFast
	PeriodicSlow
	PeriodicTx
)

func (s PeriodicState) String() string {
	switch s {
	case PeriodicNoPeriodic:
		return "NoPeriodic"
	case PeriodicFast:
		return "FastPeriodic"
	case PeriodicSlow:
		return "SlowPeriodic"
	case PeriodicTx:
		return "PeriodicTx"
	default:
		return "Unknown"
	}
}

// PeriodicEvent is an input to the Periodic Transmit machine.
type PeriodicEvent uint8

const (
	PxE1Begin PeriodicEvent = iota + 1
	PxE2UCT
	PxE3TimerExpired
	PxE4PartnerLongTimeout
	PxE5LACPDisabled
	PxE6PartnerShortTimeout
	PxE7PortDisabled
	PxE8BothPassive
)

func (e PeriodicEvent) String() string {
	names := [...]string{
		"", "E1Begin", "E2UCT", "E3TimerExpired", "E4PartnerLongTimeout",
		"E5LACPDisabled", "E6PartnerShortTimeout", "E7PortDisabled",
		"E8BothPassive",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "Unknown"
}

// ---------------------------------------------------------------------
// Mux FSM
// ---------------------------------------------------------------------

// MuxState is a state of the Mux machine (spec.md §4.3).
type MuxState uint8

const (
	MuxDetached MuxState = iota
	MuxWaiting
	MuxAttached
	MuxCollecting
	MuxCollectingDistributing
)

func (s MuxState) String() string {
	switch s {
	case MuxDetached:
		return "Detached"
	case MuxWaiting:
		return "Waiting"
	case MuxAttached:
		return "Attached"
	case MuxCollecting:
		return "Collecting"
	case MuxCollectingDistributing:
		return "CollectingDistributing"
	default:
		return "Unknown"
	}
}

// MuxEvent is an input to the Mux machine.
type MuxEvent uint8

const (
	MxE1Selected MuxEvent = iota + 1
	MxE2Unselected
	MxE3SelectedAndReady
	MxE4Standby
	MxE5SelectedAndPartnerSync
	MxE6PartnerNotSync
	MxE7Begin
	MxE8PartnerSyncAndCollecting
	MxE9PartnerSyncNotCollecting
)

func (e MuxEvent) String() string {
	names := [...]string{
		"", "E1Selected", "E2Unselected", "E3SelectedAndReady", "E4Standby",
		"E5SelectedAndPartnerSync", "E6PartnerNotSync", "E7Begin",
		"E8PartnerSyncAndCollecting", "E9PartnerSyncNotCollecting",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "Unknown"
}
