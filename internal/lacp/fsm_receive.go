package lacp

// Receive machine transition table (spec.md §4.1), grounded byte-for-byte
// on original_source/src/receive_fsm.c's receive_machine_fsm_table. Each
// cell names the next state and whether that state's entry action runs;
// "retain" cells keep the current state and run no entry action. The
// dispatcher (Engine.postRx) looks up the cell, updates state
// if it changed, and invokes the entry action for the resulting state
// whenever the cell is not a pure retain.

type rxStateEvent struct {
	state ReceiveState
	event ReceiveEvent
}

type rxTransition struct {
	next  ReceiveState
	rerun bool // false is the "retain current state, no action" cell
}

//nolint:gochecknoglobals
var receiveFSMTable = map[rxStateEvent]rxTransition{
	// E1 - LACPDU received
	{RxCurrent, RxE1PDUReceived}:   {RxCurrent, true},
	{RxExpired, RxE1PDUReceived}:   {RxCurrent, true},
	{RxDefaulted, RxE1PDUReceived}: {RxCurrent, true},

	// E2 - current-while timer expired
	{RxCurrent, RxE2CurrentWhileExpired}: {RxExpired, true},
	{RxExpired, RxE2CurrentWhileExpired}: {RxDefaulted, true},

	// E3 - port_moved = true
	{RxPortDisabled, RxE3PortMoved}: {RxInitialize, true},

	// E4 - port_moved=false, port_enabled=false, Begin=false
	{RxCurrent, RxE4PortDownIdle}:        {RxPortDisabled, true},
	{RxExpired, RxE4PortDownIdle}:        {RxPortDisabled, true},
	{RxDefaulted, RxE4PortDownIdle}:      {RxPortDisabled, true},
	{RxLacpDisabled, RxE4PortDownIdle}:   {RxPortDisabled, true},
	{RxPortDisabled, RxE4PortDownIdle}:   {RxPortDisabled, true},
	{RxInitialize, RxE4PortDownIdle}:     {RxPortDisabled, true},

	// E5 - UCT (only meaningful from Initialize, per spec.md addition)
	{RxInitialize, RxE5UCT}: {RxPortDisabled, true},

	// E6 - port_enabled=true, LACP_enabled=true
	{RxPortDisabled, RxE6PortLACPEnabled}: {RxExpired, true},

	// E7 - port_enabled=true, LACP_enabled=false
	{RxPortDisabled, RxE7PortLACPDisabled}: {RxLacpDisabled, true},

	// E8 - Begin=true : unconditional, from every state, to Initialize.
	{RxInitialize, RxE8Begin}:    {RxInitialize, true},
	{RxPortDisabled, RxE8Begin}:  {RxInitialize, true},
	{RxLacpDisabled, RxE8Begin}:  {RxInitialize, true},
	{RxExpired, RxE8Begin}:       {RxInitialize, true},
	{RxDefaulted, RxE8Begin}:     {RxInitialize, true},
	{RxCurrent, RxE8Begin}:       {RxInitialize, true},

	// E9 - fallback flag changed: re-run Defaulted's entry action in place
	// (spec.md §4.1: "E9 from Defaulted re-runs the Defaulted entry action").
	{RxDefaulted, RxE9FallbackChanged}: {RxDefaulted, true},
}

// RxFSMResult is the outcome of applying an event to the Receive machine.
type RxFSMResult struct {
	Old     ReceiveState
	New     ReceiveState
	Changed bool // true if New != Old or the entry action reruns in place
}

// ApplyReceiveEvent is the pure table lookup for the Receive machine. It
// never touches LogicalPort state; the caller (Engine) is responsible for
// storing the new state and invoking the entry action when Changed.
func ApplyReceiveEvent(current ReceiveState, event ReceiveEvent) RxFSMResult {
	t, ok := receiveFSMTable[rxStateEvent{current, event}]
	if !ok {
		return RxFSMResult{Old: current, New: current, Changed: false}
	}
	return RxFSMResult{Old: current, New: t.next, Changed: t.rerun}
}
