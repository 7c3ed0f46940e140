package lacp_test

import (
	"testing"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// TestReceiveFSMTable exercises the Receive machine table (spec.md
// §4.1) against every transition named there.
func TestReceiveFSMTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		state       lacp.ReceiveState
		event       lacp.ReceiveEvent
		wantState   lacp.ReceiveState
		wantChanged bool
	}{
		{"Current+E1->Current rerun", lacp.RxCurrent, lacp.RxE1PDUReceived, lacp.RxCurrent, true},
		{"Expired+E1->Current", lacp.RxExpired, lacp.RxE1PDUReceived, lacp.RxCurrent, true},
		{"Defaulted+E1->Current", lacp.RxDefaulted, lacp.RxE1PDUReceived, lacp.RxCurrent, true},
		{"Current+E2->Expired", lacp.RxCurrent, lacp.RxE2CurrentWhileExpired, lacp.RxExpired, true},
		{"Expired+E2->Defaulted", lacp.RxExpired, lacp.RxE2CurrentWhileExpired, lacp.RxDefaulted, true},
		{"PortDisabled+E3->Initialize", lacp.RxPortDisabled, lacp.RxE3PortMoved, lacp.RxInitialize, true},
		{"Current+E4->PortDisabled", lacp.RxCurrent, lacp.RxE4PortDownIdle, lacp.RxPortDisabled, true},
		{"Initialize+E5->PortDisabled", lacp.RxInitialize, lacp.RxE5UCT, lacp.RxPortDisabled, true},
		{"PortDisabled+E6->Expired", lacp.RxPortDisabled, lacp.RxE6PortLACPEnabled, lacp.RxExpired, true},
		{"PortDisabled+E7->LacpDisabled", lacp.RxPortDisabled, lacp.RxE7PortLACPDisabled, lacp.RxLacpDisabled, true},
		{"Current+E8->Initialize (unconditional)", lacp.RxCurrent, lacp.RxE8Begin, lacp.RxInitialize, true},
		{"LacpDisabled+E8->Initialize (unconditional)", lacp.RxLacpDisabled, lacp.RxE8Begin, lacp.RxInitialize, true},
		{"Defaulted+E9->Defaulted rerun", lacp.RxDefaulted, lacp.RxE9FallbackChanged, lacp.RxDefaulted, true},
		{"Current+E9 undefined -> no change", lacp.RxCurrent, lacp.RxE9FallbackChanged, lacp.RxCurrent, false},
		{"PortDisabled+E1 undefined -> no change", lacp.RxPortDisabled, lacp.RxE1PDUReceived, lacp.RxPortDisabled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := lacp.ApplyReceiveEvent(tt.state, tt.event)
			if res.New != tt.wantState {
				t.Errorf("New state = %v, want %v", res.New, tt.wantState)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.wantChanged)
			}
			if res.Old != tt.state {
				t.Errorf("Old state = %v, want %v", res.Old, tt.state)
			}
		})
	}
}

// TestPeriodicFSMTable exercises the Periodic Transmit machine table
// (spec.md §4.2).
func TestPeriodicFSMTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		state       lacp.PeriodicState
		event       lacp.PeriodicEvent
		wantState   lacp.PeriodicState
		wantChanged bool
	}{
		{"NoPeriodic+E2->Fast", lacp.PeriodicNoPeriodic, lacp.PxE2UCT, lacp.PeriodicFast, true},
		{"Fast+E3->Tx", lacp.PeriodicFast, lacp.PxE3TimerExpired, lacp.PeriodicTx, true},
		{"Slow+E3->Tx", lacp.PeriodicSlow, lacp.PxE3TimerExpired, lacp.PeriodicTx, true},
		{"Fast+E4->Slow", lacp.PeriodicFast, lacp.PxE4PartnerLongTimeout, lacp.PeriodicSlow, true},
		{"Tx+E4->Slow", lacp.PeriodicTx, lacp.PxE4PartnerLongTimeout, lacp.PeriodicSlow, true},
		{"Slow+E6->Tx", lacp.PeriodicSlow, lacp.PxE6PartnerShortTimeout, lacp.PeriodicTx, true},
		{"Tx+E6->Fast", lacp.PeriodicTx, lacp.PxE6PartnerShortTimeout, lacp.PeriodicFast, true},
		{"Fast+E1->NoPeriodic (unconditional)", lacp.PeriodicFast, lacp.PxE1Begin, lacp.PeriodicNoPeriodic, true},
		{"Slow+E5->NoPeriodic (unconditional)", lacp.PeriodicSlow, lacp.PxE5LACPDisabled, lacp.PeriodicNoPeriodic, true},
		{"Tx+E7->NoPeriodic (unconditional)", lacp.PeriodicTx, lacp.PxE7PortDisabled, lacp.PeriodicNoPeriodic, true},
		{"Fast+E8->NoPeriodic (unconditional)", lacp.PeriodicFast, lacp.PxE8BothPassive, lacp.PeriodicNoPeriodic, true},
		{"NoPeriodic+E3 undefined -> no change", lacp.PeriodicNoPeriodic, lacp.PxE3TimerExpired, lacp.PeriodicNoPeriodic, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := lacp.ApplyPeriodicEvent(tt.state, tt.event)
			if res.New != tt.wantState {
				t.Errorf("New state = %v, want %v", res.New, tt.wantState)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.wantChanged)
			}
		})
	}
}

// TestMuxFSMTable exercises the Mux machine table (spec.md §4.3).
func TestMuxFSMTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		state       lacp.MuxState
		event       lacp.MuxEvent
		wantState   lacp.MuxState
		wantChanged bool
	}{
		{"Detached+E1->Waiting", lacp.MuxDetached, lacp.MxE1Selected, lacp.MuxWaiting, true},
		{"Waiting+E3->Attached", lacp.MuxWaiting, lacp.MxE3SelectedAndReady, lacp.MuxAttached, true},
		{"Attached+E5->Collecting", lacp.MuxAttached, lacp.MxE5SelectedAndPartnerSync, lacp.MuxCollecting, true},
		{"Collecting+E8->CollectingDistributing", lacp.MuxCollecting, lacp.MxE8PartnerSyncAndCollecting, lacp.MuxCollectingDistributing, true},
		{"CollectingDistributing+E9->Attached", lacp.MuxCollectingDistributing, lacp.MxE9PartnerSyncNotCollecting, lacp.MuxAttached, true},
		{"Collecting+E6->Attached", lacp.MuxCollecting, lacp.MxE6PartnerNotSync, lacp.MuxAttached, true},
		{"CollectingDistributing+E2->Attached", lacp.MuxCollectingDistributing, lacp.MxE2Unselected, lacp.MuxAttached, true},
		{"Waiting+E2->Detached", lacp.MuxWaiting, lacp.MxE2Unselected, lacp.MuxDetached, true},
		{"Attached+E4->Detached", lacp.MuxAttached, lacp.MxE4Standby, lacp.MuxDetached, true},
		{"CollectingDistributing+E7->Detached (unconditional)", lacp.MuxCollectingDistributing, lacp.MxE7Begin, lacp.MuxDetached, true},
		{"Detached+E2 undefined -> no change", lacp.MuxDetached, lacp.MxE2Unselected, lacp.MuxDetached, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := lacp.ApplyMuxEvent(tt.state, tt.event)
			if res.New != tt.wantState {
				t.Errorf("New state = %v, want %v", res.New, tt.wantState)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.wantChanged)
			}
		})
	}
}

func TestStateStringers(t *testing.T) {
	t.Parallel()

	if got := lacp.RxCurrent.String(); got != "Current" {
		t.Errorf("RxCurrent.String() = %q, want %q", got, "Current")
	}
	if got := lacp.MuxCollectingDistributing.String(); got != "CollectingDistributing" {
		t.Errorf("MuxCollectingDistributing.String() = %q, want %q", got, "CollectingDistributing")
	}
	if got := lacp.PeriodicTx.String(); got != "PeriodicTx" {
		t.Errorf("PeriodicTx.String() = %q, want %q", got, "PeriodicTx")
	}
	if got := lacp.ReceiveState(255).String(); got != "Unknown" {
		t.Errorf("out-of-range ReceiveState.String() = %q, want %q", got, "Unknown")
	}
}
