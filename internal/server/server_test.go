package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dantte-lp/lacpd/internal/lacp"
	"github.com/dantte-lp/lacpd/internal/server"
)

// noopProgrammer is a minimal lacp.DataPlaneProgrammer used only to
// stand up an Engine for the status server; none of its methods are
// expected to be called since these tests never deliver PDUs.
type noopProgrammer struct{}

func (noopProgrammer) SelectAggregator(lacp.AggregatorMatchParams) (lacp.AggregatorHandle, error) {
	return 1, nil
}
func (noopProgrammer) AttachPort(lacp.AggregatorHandle, lacp.PortHandle, uint16, [6]byte) error {
	return nil
}
func (noopProgrammer) DetachPort(lacp.AggregatorHandle, lacp.PortHandle) error { return nil }
func (noopProgrammer) EnableCollecting(lacp.PortHandle) error                 { return nil }
func (noopProgrammer) EnableDistributing(lacp.PortHandle) error               { return nil }
func (noopProgrammer) DisableCollectDist(lacp.PortHandle) error               { return nil }
func (noopProgrammer) ClearAggregator(lacp.AggregatorHandle) error            { return nil }

type noopSender struct{}

func (noopSender) Send(lacp.PortHandle, []byte) error { return nil }

const testPort lacp.PortHandle = 1

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	engine := lacp.NewEngine(noopProgrammer{}, noopSender{}, [6]byte{1, 2, 3, 4, 5, 6}, 1, logger)
	engine.Dispatch(lacp.PortCreateEvent{
		Port: testPort,
		Type: lacp.PortTypeGigeEther,
		Config: lacp.PortConfig{
			Mode:           lacp.ModeActive,
			Timeout:        lacp.TimeoutShort,
			PortID:         lacp.PortID{Priority: 1, Number: 1},
			AggregationKey: 10,
		},
	})

	srv := httptest.NewServer(server.New(engine, logger))
	t.Cleanup(srv.Close)
	return srv
}

func TestListPorts(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/ports")
	if err != nil {
		t.Fatalf("GET /v1/ports: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var ports []lacp.PortSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&ports); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ports) != 1 {
		t.Fatalf("len(ports) = %d, want 1", len(ports))
	}
	if ports[0].Handle != testPort {
		t.Errorf("ports[0].Handle = %v, want %v", ports[0].Handle, testPort)
	}
}

func TestGetPortFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/ports/1")
	if err != nil {
		t.Fatalf("GET /v1/ports/1: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var snap lacp.PortSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Handle != testPort {
		t.Errorf("Handle = %v, want %v", snap.Handle, testPort)
	}
}

func TestGetPortNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/ports/999")
	if err != nil {
		t.Fatalf("GET /v1/ports/999: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestGetPortBadHandle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/ports/not-a-number")
	if err != nil {
		t.Fatalf("GET /v1/ports/not-a-number: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestListLAGsEmpty(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/lags")
	if err != nil {
		t.Fatalf("GET /v1/lags: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var lags []lacp.LAGSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&lags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lags) != 0 {
		t.Errorf("len(lags) = %d, want 0 (no partner PDU exchanged yet)", len(lags))
	}
}

// TestHealthCheckMounted only asserts the grpchealth handler claimed its
// path (no 404 from the top-level mux); exercising the full Connect RPC
// wire protocol belongs in an end-to-end test with a real grpchealth
// client, not a bare net/http request.
func TestHealthCheckMounted(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/grpc.health.v1.Health/Check", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatalf("POST health check: %v", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		t.Errorf("status = %d, want the grpchealth handler to claim this path", resp.StatusCode)
	}
}
