package lacp

// Periodic Transmit machine transition table (spec.md §4.2), grounded on
// original_source/src/periodic_tx_fsm.c's periodic_tx_machine_fsm_table.

type pxStateEvent struct {
	state PeriodicState
	event PeriodicEvent
}

type pxTransition struct {
	next  PeriodicState
	rerun bool
}

//nolint:gochecknoglobals
var periodicFSMTable = map[pxStateEvent]pxTransition{
	// E1 - Begin: unconditional, to NoPeriodic.
	{PeriodicNoPeriodic, PxE1Begin}: {PeriodicNoPeriodic, true},
	{PeriodicFast, PxE1Begin}:       {PeriodicNoPeriodic, true},
	{PeriodicSlow, PxE1Begin}:       {PeriodicNoPeriodic, true},
	{PeriodicTx, PxE1Begin}:         {PeriodicNoPeriodic, true},

	// E2 - UCT, from NoPeriodic only.
	{PeriodicNoPeriodic, PxE2UCT}: {PeriodicFast, true},

	// E3 - periodic timer expired.
	{PeriodicFast, PxE3TimerExpired}: {PeriodicTx, true},
	{PeriodicSlow, PxE3TimerExpired}: {PeriodicTx, true},

	// E4 - partner Timeout = Long.
	{PeriodicFast, PxE4PartnerLongTimeout}: {PeriodicSlow, true},
	{PeriodicTx, PxE4PartnerLongTimeout}:   {PeriodicSlow, true},

	// E5 - LACP disabled: unconditional, to NoPeriodic.
	{PeriodicNoPeriodic, PxE5LACPDisabled}: {PeriodicNoPeriodic, true},
	{PeriodicFast, PxE5LACPDisabled}:       {PeriodicNoPeriodic, true},
	{PeriodicSlow, PxE5LACPDisabled}:       {PeriodicNoPeriodic, true},
	{PeriodicTx, PxE5LACPDisabled}:         {PeriodicNoPeriodic, true},

	// E6 - partner Timeout = Short.
	{PeriodicSlow, PxE6PartnerShortTimeout}: {PeriodicTx, true},
	{PeriodicTx, PxE6PartnerShortTimeout}:   {PeriodicFast, true},

	// E7 - port disabled: unconditional, to NoPeriodic.
	{PeriodicNoPeriodic, PxE7PortDisabled}: {PeriodicNoPeriodic, true},
	{PeriodicFast, PxE7PortDisabled}:       {PeriodicNoPeriodic, true},
	{PeriodicSlow, PxE7PortDisabled}:       {PeriodicNoPeriodic, true},
	{PeriodicTx, PxE7PortDisabled}:         {PeriodicNoPeriodic, true},

	// E8 - both sides Passive: unconditional, to NoPeriodic.
	{PeriodicNoPeriodic, PxE8BothPassive}: {PeriodicNoPeriodic, true},
	{PeriodicFast, PxE8BothPassive}:       {PeriodicNoPeriodic, true},
	{PeriodicSlow, PxE8BothPassive}:       {PeriodicNoPeriodic, true},
	{PeriodicTx, PxE8BothPassive}:         {PeriodicNoPeriodic, true},
}

// PxFSMResult is the outcome of applying an event to the Periodic
// Transmit machine.
type PxFSMResult struct {
	Old     PeriodicState
	New     PeriodicState
	Changed bool
}

// ApplyPeriodicEvent is the pure table lookup for the Periodic Transmit
// machine.
func ApplyPeriodicEvent(current PeriodicState, event PeriodicEvent) PxFSMResult {
	t, ok := periodicFSMTable[pxStateEvent{current, event}]
	if !ok {
		return PxFSMResult{Old: current, New: current, Changed: false}
	}
	return PxFSMResult{Old: current, New: t.next, Changed: t.rerun}
}
