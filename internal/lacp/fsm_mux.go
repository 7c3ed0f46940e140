package lacp

// Mux machine transition table (spec.md §4.3), grounded on
// original_source/src/mux_fsm.c's mux_machine_fsm_table.

type muxStateEvent struct {
	state MuxState
	event MuxEvent
}

type muxTransition struct {
	next  MuxState
	rerun bool
}

//nolint:gochecknoglobals
var muxFSMTable = map[muxStateEvent]muxTransition{
	// E1 - Selected
	{MuxDetached, MxE1Selected}: {MuxWaiting, true},

	// E2 - Unselected
	{MuxWaiting, MxE2Unselected}:  {MuxDetached, true},
	{MuxAttached, MxE2Unselected}: {MuxDetached, true},
	{MuxCollecting, MxE2Unselected}:               {MuxAttached, true},
	{MuxCollectingDistributing, MxE2Unselected}:   {MuxAttached, true},

	// E3 - Selected and LAG.ready
	{MuxWaiting, MxE3SelectedAndReady}: {MuxAttached, true},

	// E4 - Standby
	{MuxAttached, MxE4Standby}:               {MuxDetached, true},
	{MuxCollecting, MxE4Standby}:             {MuxAttached, true},
	{MuxCollectingDistributing, MxE4Standby}: {MuxAttached, true},

	// E5 - Selected and partner.sync
	{MuxAttached, MxE5SelectedAndPartnerSync}: {MuxCollecting, true},

	// E6 - partner.sync = false
	{MuxCollecting, MxE6PartnerNotSync}:             {MuxAttached, true},
	{MuxCollectingDistributing, MxE6PartnerNotSync}: {MuxAttached, true},

	// E7 - Begin: unconditional, to Detached.
	{MuxDetached, MxE7Begin}:               {MuxDetached, true},
	{MuxWaiting, MxE7Begin}:                {MuxDetached, true},
	{MuxAttached, MxE7Begin}:               {MuxDetached, true},
	{MuxCollecting, MxE7Begin}:             {MuxDetached, true},
	{MuxCollectingDistributing, MxE7Begin}: {MuxDetached, true},

	// E8 - Selected, partner.sync, partner.collecting
	{MuxCollecting, MxE8PartnerSyncAndCollecting}: {MuxCollectingDistributing, true},

	// E9 - Selected, partner.sync, !partner.collecting
	{MuxCollecting, MxE9PartnerSyncNotCollecting}:             {MuxAttached, true},
	{MuxCollectingDistributing, MxE9PartnerSyncNotCollecting}: {MuxAttached, true},
}

// MuxFSMResult is the outcome of applying an event to the Mux machine.
type MuxFSMResult struct {
	Old     MuxState
	New     MuxState
	Changed bool
}

// ApplyMuxEvent is the pure table lookup for the Mux machine.
func ApplyMuxEvent(current MuxState, event MuxEvent) MuxFSMResult {
	t, ok := muxFSMTable[muxStateEvent{current, event}]
	if !ok {
		return MuxFSMResult{Old: current, New: current, Changed: false}
	}
	return MuxFSMResult{Old: current, New: t.next, Changed: t.rerun}
}
