//go:build linux

package netio

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// LinuxFrameConn implements FrameConn using an AF_PACKET SOCK_RAW
// socket bound to one interface and EtherType 0x8809, with a
// kernel-side classic BPF filter (filter_linux.go) double-enforcing
// the EtherType so no non-Slow-Protocols traffic reaches userspace.
type LinuxFrameConn struct {
	fd      int
	ifIndex int
	ifName  string
	mac     [6]byte

	mu     sync.Mutex
	closed bool
}

// NewFrameConn opens and binds a raw Ethernet socket on ifName,
// restricted to EtherType 0x8809 (spec.md §4.5 "Ethernet framing").
func NewFrameConn(ifName string) (*LinuxFrameConn, error) {
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %s: %w", ifName, err)
	}

	proto := htons(EtherTypeSlowProtocols)

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(proto))
	if err != nil {
		return nil, fmt.Errorf("open AF_PACKET socket on %s: %w", ifName, err)
	}

	if err := attachSlowProtocolsFilter(fd); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("attach BPF filter on %s: %w", ifName, err)
	}

	sll := &unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind AF_PACKET socket to %s: %w", ifName, err)
	}

	var mac [6]byte
	copy(mac[:], iface.HardwareAddr)

	return &LinuxFrameConn{
		fd:      fd,
		ifIndex: iface.Index,
		ifName:  ifName,
		mac:     mac,
	}, nil
}

// ReadFrame blocks until a Slow-Protocols frame (including its 14-byte
// Ethernet header) is received.
func (c *LinuxFrameConn) ReadFrame(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(c.fd, buf, 0)
	if err != nil {
		return 0, fmt.Errorf("recvfrom %s: %w", c.ifName, err)
	}
	return n, nil
}

// WriteFrame transmits buf (a complete Ethernet frame, header
// included) on the bound interface.
func (c *LinuxFrameConn) WriteFrame(buf []byte) error {
	sll := unix.SockaddrLinklayer{
		Ifindex:  c.ifIndex,
		Halen:    6,
		Protocol: htons(EtherTypeSlowProtocols),
	}
	copy(sll.Addr[:6], buf[0:6])

	if err := unix.Sendto(c.fd, buf, 0, &sll); err != nil {
		return fmt.Errorf("sendto %s: %w", c.ifName, err)
	}
	return nil
}

func (c *LinuxFrameConn) IfIndex() int    { return c.ifIndex }
func (c *LinuxFrameConn) IfName() string  { return c.ifName }
func (c *LinuxFrameConn) HardwareAddr() [6]byte { return c.mac }

func (c *LinuxFrameConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := unix.Close(c.fd); err != nil {
		return fmt.Errorf("close %s: %w", c.ifName, err)
	}
	return nil
}

// htons converts a 16-bit value from host to network byte order, used
// for the sockaddr_ll protocol field (AF_PACKET expects it pre-swapped
// on little-endian hosts).
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}
