package configstore

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// Programmer implements lacp.DataPlaneProgrammer against OVSDB's
// hw_bond_config column. Grounded on ovsdb_if.c: the real OVS lacpd
// never allocates or destroys a data-plane "bond" object itself — the
// Port (bond) row is created by whatever configured the bond, and the
// daemon's entire data-plane contribution is toggling
// interface:hw_bond_config's rx_enabled/tx_enabled per member (see
// update_interface_hw_bond_config_map_entry, called from
// lacp_support.c's collector/distributor state changes). SelectAggregator/
// AttachPort/DetachPort/ClearAggregator are therefore in-memory
// bookkeeping only; Enable/DisableCollectDist are the only methods that
// write to OVSDB.
type Programmer struct {
	logger *slog.Logger
	store  *Store

	mu   sync.Mutex
	next lacp.AggregatorHandle
	aggs map[lacp.AggregatorHandle]lacp.AggregatorMatchParams
}

// NewProgrammer constructs a Programmer that writes member enable/
// disable state through store's OVSDB connection.
func NewProgrammer(store *Store, logger *slog.Logger) *Programmer {
	return &Programmer{
		logger: logger.With(slog.String("component", "configstore.programmer")),
		store:  store,
		aggs:   make(map[lacp.AggregatorHandle]lacp.AggregatorMatchParams),
	}
}

// SelectAggregator hands back a stable handle for a given match-key
// tuple (spec.md §6 "select_aggregator"); no OVSDB write happens here
// because the bond Port row already exists independent of LACP state.
func (p *Programmer) SelectAggregator(params lacp.AggregatorMatchParams) (lacp.AggregatorHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for h, existing := range p.aggs {
		if existing == params {
			return h, nil
		}
	}

	p.next++
	h := p.next
	p.aggs[h] = params
	return h, nil
}

// AttachPort records port as a member of agg. No data-plane write: OVS
// membership (Port.interfaces) is administrator-owned, not written by
// this daemon (ovsdb_if.c never adds/removes interfaces from a bond's
// interfaces column on LACP state changes, only hw_bond_config).
func (p *Programmer) AttachPort(agg lacp.AggregatorHandle, port lacp.PortHandle, partnerPrio uint16, partnerMAC [6]byte) error {
	p.logger.Debug("attach port to aggregator",
		slog.Uint64("aggregator", uint64(agg)),
		slog.Uint64("port", uint64(port)),
		slog.Int("partner_priority", int(partnerPrio)),
	)
	return nil
}

// DetachPort is the AttachPort counterpart; also a no-op write-wise.
func (p *Programmer) DetachPort(agg lacp.AggregatorHandle, port lacp.PortHandle) error {
	p.logger.Debug("detach port from aggregator",
		slog.Uint64("aggregator", uint64(agg)),
		slog.Uint64("port", uint64(port)),
	)
	return nil
}

// EnableCollecting turns on rx_enabled for port's interface.
func (p *Programmer) EnableCollecting(port lacp.PortHandle) error {
	return p.setHwBondConfig(port, HwBondRxEnabled, true)
}

// EnableDistributing turns on tx_enabled for port's interface.
func (p *Programmer) EnableDistributing(port lacp.PortHandle) error {
	return p.setHwBondConfig(port, HwBondTxEnabled, true)
}

// DisableCollectDist turns off both rx_enabled and tx_enabled.
func (p *Programmer) DisableCollectDist(port lacp.PortHandle) error {
	if err := p.setHwBondConfig(port, HwBondRxEnabled, false); err != nil {
		return err
	}
	return p.setHwBondConfig(port, HwBondTxEnabled, false)
}

// ClearAggregator drops the bookkeeping entry for agg once its last
// member has detached.
func (p *Programmer) ClearAggregator(agg lacp.AggregatorHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.aggs, agg)
	return nil
}

func (p *Programmer) setHwBondConfig(port lacp.PortHandle, key string, enabled bool) error {
	name, ok := p.store.nameFor(port)
	if !ok {
		p.logger.Warn("set hw_bond_config for unregistered port", slog.Uint64("port", uint64(port)))
		return nil
	}

	ops, err := p.store.cl.Where(&Interface{Name: name}).Update(&Interface{
		HwBondConfig: map[string]string{key: strconv.FormatBool(enabled)},
	})
	if err != nil {
		return err
	}
	_, err = p.store.cl.Transact(context.Background(), ops...)
	return err
}
