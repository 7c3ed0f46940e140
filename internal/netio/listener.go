package netio

import (
	"fmt"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// HeaderSizeEthernet is the 14-byte Ethernet header every captured
// frame carries ahead of the LACP/Marker payload.
const HeaderSizeEthernet = 14

// errUnboundPort is returned by Sender.Send when no FrameConn is bound
// for the requested port.
func errUnboundPort(port lacp.PortHandle) error {
	return fmt.Errorf("netio: no transport bound for port %d", uint64(port))
}
