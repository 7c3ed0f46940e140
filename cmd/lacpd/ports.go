package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dantte-lp/lacpd/internal/configstore"
	"github.com/dantte-lp/lacpd/internal/lacp"
	"github.com/dantte-lp/lacpd/internal/netio"
)

// portProvisioner implements configstore.PortProvisioner by opening a
// raw AF_PACKET socket per member interface and binding it into both
// the shared Sender and Receiver, allocating a fresh PortHandle for
// each (spec.md §3 "Identity: a 64-bit handle").
type portProvisioner struct {
	ctx    context.Context
	logger *slog.Logger

	sender *netio.Sender
	recv   *netio.Receiver

	next atomic.Uint64

	conns map[lacp.PortHandle]*netio.LinuxFrameConn
}

func newPortProvisioner(ctx context.Context, sender *netio.Sender, recv *netio.Receiver, logger *slog.Logger) *portProvisioner {
	return &portProvisioner{
		ctx:    ctx,
		logger: logger.With(slog.String("component", "lacpd.ports")),
		sender: sender,
		recv:   recv,
		conns:  make(map[lacp.PortHandle]*netio.LinuxFrameConn),
	}
}

func (p *portProvisioner) ProvisionPort(ifaceName string, portType lacp.PortType) (lacp.PortHandle, error) {
	conn, err := netio.NewFrameConn(ifaceName)
	if err != nil {
		return 0, fmt.Errorf("open raw socket on %s: %w", ifaceName, err)
	}

	h := lacp.PortHandle(p.next.Add(1))

	p.sender.Bind(h, conn)
	p.recv.Bind(p.ctx, h, conn)
	p.conns[h] = conn

	p.logger.Info("provisioned port",
		slog.Uint64("port", uint64(h)),
		slog.String("interface", ifaceName),
		slog.String("port_type", portType.String()),
	)
	return h, nil
}

func (p *portProvisioner) DeprovisionPort(h lacp.PortHandle) {
	p.sender.Unbind(h)
	p.recv.Unbind(h)

	conn, ok := p.conns[h]
	if !ok {
		return
	}
	delete(p.conns, h)
	if err := conn.Close(); err != nil {
		p.logger.Warn("close frame conn failed", slog.Uint64("port", uint64(h)), slog.String("error", err.Error()))
	}
}

var _ configstore.PortProvisioner = (*portProvisioner)(nil)
