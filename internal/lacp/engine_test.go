package lacp_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProgrammer is an in-memory DataPlaneProgrammer used to drive the
// Engine in tests without a real aggregator back end.
type fakeProgrammer struct {
	mu        sync.Mutex
	nextAgg   lacp.AggregatorHandle
	attached  map[lacp.PortHandle]lacp.AggregatorHandle
	collect   map[lacp.PortHandle]bool
	distribute map[lacp.PortHandle]bool
}

func newFakeProgrammer() *fakeProgrammer {
	return &fakeProgrammer{
		attached:   make(map[lacp.PortHandle]lacp.AggregatorHandle),
		collect:    make(map[lacp.PortHandle]bool),
		distribute: make(map[lacp.PortHandle]bool),
	}
}

func (f *fakeProgrammer) SelectAggregator(lacp.AggregatorMatchParams) (lacp.AggregatorHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextAgg++
	return f.nextAgg, nil
}

func (f *fakeProgrammer) AttachPort(agg lacp.AggregatorHandle, port lacp.PortHandle, _ uint16, _ [6]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[port] = agg
	return nil
}

func (f *fakeProgrammer) DetachPort(_ lacp.AggregatorHandle, port lacp.PortHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attached, port)
	delete(f.collect, port)
	delete(f.distribute, port)
	return nil
}

func (f *fakeProgrammer) EnableCollecting(port lacp.PortHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collect[port] = true
	return nil
}

func (f *fakeProgrammer) EnableDistributing(port lacp.PortHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distribute[port] = true
	return nil
}

func (f *fakeProgrammer) DisableCollectDist(port lacp.PortHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collect[port] = false
	f.distribute[port] = false
	return nil
}

func (f *fakeProgrammer) ClearAggregator(lacp.AggregatorHandle) error {
	return nil
}

// fakeSender records every transmitted frame keyed by port, discarding
// the payload after decoding it back into an LACPDU for inspection.
type fakeSender struct {
	mu   sync.Mutex
	sent map[lacp.PortHandle][]lacp.LACPDU
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[lacp.PortHandle][]lacp.LACPDU)}
}

func (s *fakeSender) Send(port lacp.PortHandle, wire []byte) error {
	pdu, err := lacp.UnmarshalLACPDU(wire, [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	if err != nil && err != lacp.ErrLoopback {
		return err
	}
	s.mu.Lock()
	s.sent[port] = append(s.sent[port], pdu)
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) last(port lacp.PortHandle) (lacp.LACPDU, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pdus := s.sent[port]
	if len(pdus) == 0 {
		return lacp.LACPDU{}, false
	}
	return pdus[len(pdus)-1], true
}

const testPort lacp.PortHandle = 1

var testSystemMAC = [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

func newTestEngine() (*lacp.Engine, *fakeProgrammer, *fakeSender) {
	prog := newFakeProgrammer()
	sender := newFakeSender()
	e := lacp.NewEngine(prog, sender, testSystemMAC, 1, testLogger())
	return e, prog, sender
}

func createTestPort(e *lacp.Engine) {
	e.Dispatch(lacp.PortCreateEvent{
		Port: testPort,
		Type: lacp.PortTypeGigeEther,
		Config: lacp.PortConfig{
			Mode:           lacp.ModeActive,
			Timeout:        lacp.TimeoutShort,
			PortID:         lacp.PortID{Priority: 1, Number: 1},
			AggregationKey: 10,
		},
	})
}

func TestPortCreateStartsDetachedAndPortDisabled(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine()
	createTestPort(e)

	snap, ok := e.Snapshot(testPort)
	if !ok {
		t.Fatal("Snapshot: port not found")
	}
	if snap.RxState != lacp.RxPortDisabled {
		t.Errorf("RxState = %v, want %v", snap.RxState, lacp.RxPortDisabled)
	}
	if snap.MuxState != lacp.MuxDetached {
		t.Errorf("MuxState = %v, want %v", snap.MuxState, lacp.MuxDetached)
	}
	if snap.Selected != lacp.Unselected {
		t.Errorf("Selected = %v, want %v", snap.Selected, lacp.Unselected)
	}
}

func TestLinkUpMovesReceiveToExpiredAndReleasesPeriodic(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine()
	createTestPort(e)

	e.Dispatch(lacp.LinkUpEvent{Port: testPort, SpeedMbps: 1000})

	snap, ok := e.Snapshot(testPort)
	if !ok {
		t.Fatal("Snapshot: port not found")
	}
	if snap.RxState != lacp.RxExpired {
		t.Errorf("RxState = %v, want %v", snap.RxState, lacp.RxExpired)
	}
	if snap.PxState == lacp.PeriodicNoPeriodic {
		t.Errorf("PxState still NoPeriodic after link up with Active mode")
	}
}

func TestLinkDownReturnsToPortDisabled(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestEngine()
	createTestPort(e)
	e.Dispatch(lacp.LinkUpEvent{Port: testPort, SpeedMbps: 1000})
	e.Dispatch(lacp.LinkDownEvent{Port: testPort})

	snap, ok := e.Snapshot(testPort)
	if !ok {
		t.Fatal("Snapshot: port not found")
	}
	if snap.RxState != lacp.RxPortDisabled {
		t.Errorf("RxState = %v, want %v", snap.RxState, lacp.RxPortDisabled)
	}
}

// partnerPDUFor builds the LACPDU a cooperative partner would send in
// response to our own operational parameters, with Sync/Collecting
// asserted so the exchange converges in one round trip.
func partnerPDUFor(ours lacp.PortSnapshot, partnerSystem lacp.SystemID, partnerPort lacp.PortID, partnerKey uint16) lacp.LACPDU {
	return lacp.LACPDU{
		Actor: lacp.Params{
			System: partnerSystem,
			Port:   partnerPort,
			Key:    partnerKey,
			State: lacp.PortState{
				Activity:     true,
				Timeout:      lacp.TimeoutShort,
				Aggregation:  lacp.AggregationAggregatable,
				Sync:         true,
				Collecting:   true,
				Distributing: true,
			},
		},
		Partner: lacp.Params{
			System: ours.ActorOper.System,
			Port:   ours.ActorOper.Port,
			Key:    ours.ActorOper.Key,
			State:  ours.ActorOper.State,
		},
	}
}

func deliverPDU(t *testing.T, e *lacp.Engine, pdu lacp.LACPDU) {
	t.Helper()
	buf := make([]byte, lacp.PayloadSize)
	if _, err := lacp.MarshalLACPDU(pdu, buf); err != nil {
		t.Fatalf("MarshalLACPDU: %v", err)
	}
	wire := make([]byte, len(buf))
	copy(wire, buf)
	e.Dispatch(lacp.RxPduEvent{Port: testPort, Wire: wire})
}

// TestFullConvergence drives a single port from creation through a
// two-way LACPDU exchange to CollectingDistributing, exercising
// Selection, aggregator binding, and the Mux machine end to end
// (spec.md §8 "basic two-port convergence" scenario).
func TestFullConvergence(t *testing.T) {
	t.Parallel()

	e, prog, _ := newTestEngine()
	createTestPort(e)
	e.Dispatch(lacp.LinkUpEvent{Port: testPort, SpeedMbps: 1000})

	ours, ok := e.Snapshot(testPort)
	if !ok {
		t.Fatal("Snapshot: port not found")
	}

	partnerSystem := lacp.SystemID{Priority: 32768, MAC: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}}
	partnerPort := lacp.PortID{Priority: 1, Number: 5}
	pdu := partnerPDUFor(ours, partnerSystem, partnerPort, 10)

	deliverPDU(t, e, pdu)

	snap, _ := e.Snapshot(testPort)
	if snap.RxState != lacp.RxCurrent {
		t.Fatalf("RxState = %v, want %v after first PDU", snap.RxState, lacp.RxCurrent)
	}
	if snap.Selected != lacp.Selected {
		t.Fatalf("Selected = %v, want Selected after LAG_Id resolved", snap.Selected)
	}
	if !snap.InLAG {
		t.Fatal("port did not join a LAG after Selection")
	}
	if snap.Aggregator == 0 {
		t.Fatal("no aggregator allocated after Selection")
	}
	if snap.MuxState != lacp.MuxWaiting {
		t.Fatalf("MuxState = %v, want %v right after Selection", snap.MuxState, lacp.MuxWaiting)
	}

	// Mux needs LAG.Ready before Waiting->Attached; with a single
	// member, WaitWhileTicks settle ticks hands it straight through to
	// CollectingDistributing since the partner PDU already carried
	// Sync/Collecting/Distributing set (spec.md §8 "single round-trip
	// convergence").
	for i := 0; i < lacp.WaitWhileTicks; i++ {
		e.Dispatch(lacp.TickEvent{})
	}

	snap, _ = e.Snapshot(testPort)
	if snap.MuxState != lacp.MuxCollectingDistributing {
		t.Fatalf("MuxState = %v, want %v after Ready + partner sync/collecting", snap.MuxState, lacp.MuxCollectingDistributing)
	}

	if prog.attached[testPort] != snap.Aggregator {
		t.Errorf("programmer attached aggregator %v, want %v", prog.attached[testPort], snap.Aggregator)
	}
	if !prog.collect[testPort] || !prog.distribute[testPort] {
		t.Errorf("programmer collect/distribute = %v/%v, want true/true", prog.collect[testPort], prog.distribute[testPort])
	}
}

func TestPortRemoveLeavesLAGAndClearsAggregator(t *testing.T) {
	t.Parallel()

	e, prog, _ := newTestEngine()
	createTestPort(e)
	e.Dispatch(lacp.LinkUpEvent{Port: testPort, SpeedMbps: 1000})

	ours, _ := e.Snapshot(testPort)
	pdu := partnerPDUFor(ours, lacp.SystemID{Priority: 32768, MAC: [6]byte{1, 2, 3, 4, 5, 6}}, lacp.PortID{Priority: 1, Number: 9}, 10)
	deliverPDU(t, e, pdu)

	snap, _ := e.Snapshot(testPort)
	if !snap.InLAG {
		t.Fatal("expected port to join a LAG before removal")
	}

	e.Dispatch(lacp.PortRemoveEvent{Port: testPort})

	if _, ok := e.Snapshot(testPort); ok {
		t.Fatal("Snapshot found a removed port")
	}
	if len(e.LAGs()) != 0 {
		t.Errorf("LAGs() = %d entries, want 0 after last member left", len(e.LAGs()))
	}
	if _, attached := prog.attached[testPort]; attached {
		t.Error("programmer still reports the port attached after removal")
	}
}
