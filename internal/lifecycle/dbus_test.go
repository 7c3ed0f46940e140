package lifecycle

import (
	"testing"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

func testLAGID(sysMAC byte) lacp.LAGID {
	return lacp.LAGID{
		Local:  lacp.Params{System: lacp.SystemID{Priority: 1, MAC: [6]byte{sysMAC}}, Key: 10},
		Remote: lacp.Params{System: lacp.SystemID{Priority: 1, MAC: [6]byte{0xff}}, Key: 20},
	}
}

func TestReadyTransitionsReportsFirstObservation(t *testing.T) {
	t.Parallel()

	last := make(map[string]bool)
	lags := []lacp.LAGSnapshot{{ID: testLAGID(1), Ready: true}}

	changed := readyTransitions(last, lags)
	if len(changed) != 1 {
		t.Fatalf("len(changed) = %d, want 1 on first observation", len(changed))
	}
	if !last[testLAGID(1).String()] {
		t.Error("last not updated to Ready=true")
	}
}

func TestReadyTransitionsSkipsUnchangedLAGs(t *testing.T) {
	t.Parallel()

	last := make(map[string]bool)
	lags := []lacp.LAGSnapshot{{ID: testLAGID(1), Ready: true}}

	readyTransitions(last, lags)
	changed := readyTransitions(last, lags)
	if len(changed) != 0 {
		t.Errorf("len(changed) = %d, want 0 when Ready has not flipped", len(changed))
	}
}

func TestReadyTransitionsReportsFlipBackToFalse(t *testing.T) {
	t.Parallel()

	last := make(map[string]bool)
	lags := []lacp.LAGSnapshot{{ID: testLAGID(1), Ready: true}}
	readyTransitions(last, lags)

	lags[0].Ready = false
	changed := readyTransitions(last, lags)
	if len(changed) != 1 || changed[0].Ready {
		t.Errorf("changed = %+v, want one entry with Ready=false", changed)
	}
}

func TestReadyTransitionsTracksMultipleLAGsIndependently(t *testing.T) {
	t.Parallel()

	last := make(map[string]bool)
	a := lacp.LAGSnapshot{ID: testLAGID(1), Ready: true}
	b := lacp.LAGSnapshot{ID: testLAGID(2), Ready: false}

	changed := readyTransitions(last, []lacp.LAGSnapshot{a, b})
	if len(changed) != 2 {
		t.Fatalf("len(changed) = %d, want 2 distinct LAGs on first observation", len(changed))
	}

	b.Ready = true
	changed = readyTransitions(last, []lacp.LAGSnapshot{a, b})
	if len(changed) != 1 || changed[0].ID != b.ID {
		t.Errorf("changed = %+v, want only b's flip reported", changed)
	}
}
