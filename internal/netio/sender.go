package netio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// hardwareAddrConn is the subset of FrameConn a Sender needs to frame
// an outgoing payload; satisfied by LinuxFrameConn.
type hardwareAddrConn interface {
	FrameConn
	HardwareAddr() [6]byte
}

// Sender implements lacp.FrameSender by wrapping a payload with an
// Ethernet header (spec.md §4.5: dest = Slow-Protocols multicast
// 01:80:C2:00:00:02, src = the port's own interface MAC, EtherType
// 0x8809) and writing it to the bound FrameConn.
type Sender struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[lacp.PortHandle]hardwareAddrConn
}

// NewSender constructs an empty Sender; ports are registered via Bind.
func NewSender(logger *slog.Logger) *Sender {
	return &Sender{
		logger: logger.With(slog.String("component", "netio.sender")),
		conns:  make(map[lacp.PortHandle]hardwareAddrConn),
	}
}

// Bind registers conn as the outgoing transport for port.
func (s *Sender) Bind(port lacp.PortHandle, conn hardwareAddrConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[port] = conn
}

// Unbind removes a previously registered port.
func (s *Sender) Unbind(port lacp.PortHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, port)
}

// Send implements lacp.FrameSender.
func (s *Sender) Send(port lacp.PortHandle, wire []byte) error {
	s.mu.Lock()
	conn, ok := s.conns[port]
	s.mu.Unlock()
	if !ok {
		return errUnboundPort(port)
	}

	frame := make([]byte, HeaderSizeEthernet+len(wire))
	copy(frame[0:6], lacp.SlowProtocolsMulticast[:])
	mac := conn.HardwareAddr()
	copy(frame[6:12], mac[:])
	binary.BigEndian.PutUint16(frame[12:14], EtherTypeSlowProtocols)
	copy(frame[HeaderSizeEthernet:], wire)

	if err := conn.WriteFrame(frame); err != nil {
		return fmt.Errorf("netio: write frame on %s: %w", conn.IfName(), err)
	}
	return nil
}
