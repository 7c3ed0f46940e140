package netio_test

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dantte-lp/lacpd/internal/lacp"
	"github.com/dantte-lp/lacpd/internal/netio"
)

// fakeConn is a test double for the unexported hardwareAddrConn Sender
// binds against; Go checks structural satisfaction at the Bind call
// site, so fakeConn never needs to name that interface.
type fakeConn struct {
	mu     sync.Mutex
	mac    [6]byte
	ifname string
	writes [][]byte

	writeErr error
}

func (c *fakeConn) ReadFrame([]byte) (int, error) { return 0, errors.New("fakeConn: ReadFrame unused") }

func (c *fakeConn) WriteFrame(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	frame := make([]byte, len(buf))
	copy(frame, buf)
	c.writes = append(c.writes, frame)
	return nil
}

func (c *fakeConn) IfIndex() int       { return 1 }
func (c *fakeConn) IfName() string     { return c.ifname }
func (c *fakeConn) Close() error       { return nil }
func (c *fakeConn) HardwareAddr() [6]byte { return c.mac }

func (c *fakeConn) lastWrite() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil, false
	}
	return c.writes[len(c.writes)-1], true
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSenderSendPrependsEthernetHeader(t *testing.T) {
	t.Parallel()

	s := netio.NewSender(discardLogger())
	conn := &fakeConn{mac: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, ifname: "eth0"}
	const port lacp.PortHandle = 1
	s.Bind(port, conn)

	payload := []byte{1, 2, 3, 4}
	if err := s.Send(port, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	frame, ok := conn.lastWrite()
	if !ok {
		t.Fatal("no frame written")
	}
	if len(frame) != netio.HeaderSizeEthernet+len(payload) {
		t.Fatalf("frame length = %d, want %d", len(frame), netio.HeaderSizeEthernet+len(payload))
	}
	if got := [6]byte(frame[0:6]); got != lacp.SlowProtocolsMulticast {
		t.Errorf("dest MAC = %x, want Slow-Protocols multicast %x", got, lacp.SlowProtocolsMulticast)
	}
	if got := [6]byte(frame[6:12]); got != conn.mac {
		t.Errorf("src MAC = %x, want %x", got, conn.mac)
	}
	if got := binary.BigEndian.Uint16(frame[12:14]); got != netio.EtherTypeSlowProtocols {
		t.Errorf("EtherType = %#x, want %#x", got, netio.EtherTypeSlowProtocols)
	}
	if string(frame[netio.HeaderSizeEthernet:]) != string(payload) {
		t.Errorf("payload = %v, want %v", frame[netio.HeaderSizeEthernet:], payload)
	}
}

func TestSenderSendUnboundPortFails(t *testing.T) {
	t.Parallel()

	s := netio.NewSender(discardLogger())
	if err := s.Send(lacp.PortHandle(99), []byte{1}); err == nil {
		t.Error("Send on unbound port: got nil error, want one")
	}
}

func TestSenderUnbindStopsDelivery(t *testing.T) {
	t.Parallel()

	s := netio.NewSender(discardLogger())
	conn := &fakeConn{ifname: "eth0"}
	const port lacp.PortHandle = 2
	s.Bind(port, conn)
	s.Unbind(port)

	if err := s.Send(port, []byte{1}); err == nil {
		t.Error("Send after Unbind: got nil error, want one")
	}
}

func TestSenderSendPropagatesWriteError(t *testing.T) {
	t.Parallel()

	s := netio.NewSender(discardLogger())
	conn := &fakeConn{ifname: "eth0", writeErr: errors.New("boom")}
	const port lacp.PortHandle = 3
	s.Bind(port, conn)

	if err := s.Send(port, []byte{1}); err == nil {
		t.Error("Send with failing WriteFrame: got nil error, want one")
	}
}
