package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ovn-org/libovsdb/cache"
	"github.com/ovn-org/libovsdb/client"
	"github.com/ovn-org/libovsdb/model"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

// DatabaseName is the OVSDB schema this daemon monitors, same as the
// original daemon's ovsdb_if.c (OVSDB_DATABASE "Open_vSwitch").
const DatabaseName = "Open_vSwitch"

// dbModel declares the tables/columns this package reads and writes.
func dbModel() (model.ClientDBModel, error) {
	return model.NewClientDBModel(DatabaseName, map[string]model.Model{
		"Port":      &Port{},
		"Interface": &Interface{},
	})
}

// Store is the OVSDB-backed ConfigPublisher (spec.md §6): it monitors
// Port/Interface rows, turns row changes into lacp.Engine events, and
// implements lacp.ConfigPublisher to mirror Engine state back into
// lacp_status/bond_status/hw_bond_config.
//
// Grounded on original_source/src/ovsdb_if.c's idl_run/idl_wait loop,
// restructured around libovsdb's async cache+Monitor model instead of
// ovsdb-idl's poll loop (spec.md §6 names the same read/write contract,
// not a specific client library).
// PortProvisioner opens the physical transport (raw socket, netio
// Sender/Receiver bindings) for a newly-discovered member interface
// and releases it when the interface leaves the bond. Implemented by
// cmd/lacpd, which owns platform-specific transport construction;
// configstore only knows OVSDB row shapes (spec.md §6 names the
// configuration-store contract, not the transport).
type PortProvisioner interface {
	ProvisionPort(ifaceName string, portType lacp.PortType) (lacp.PortHandle, error)
	DeprovisionPort(h lacp.PortHandle)
}

type Store struct {
	logger      *slog.Logger
	cl          client.Client
	engine      *lacp.Engine
	provisioner PortProvisioner

	mu    sync.Mutex
	names map[lacp.PortHandle]string // PortHandle -> OVSDB Interface name
	ports map[string]lacp.PortHandle // inverse of names
}

// New connects to the OVSDB server at endpoint (e.g.
// "unix:/var/run/openvswitch/db.sock") and returns a Store that has
// not yet started monitoring. Call SetEngine before Monitor: the
// Engine and Store are constructed in opposite directions (the Engine
// needs the Store as its ConfigPublisher/DataPlaneProgrammer, the
// Store needs the Engine to enqueue link events), so wiring them
// together happens in two steps rather than one constructor call.
func New(ctx context.Context, endpoint string, logger *slog.Logger) (*Store, error) {
	dbm, err := dbModel()
	if err != nil {
		return nil, fmt.Errorf("build OVSDB client model: %w", err)
	}

	cl, err := client.NewOVSDBClient(dbm, client.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create OVSDB client: %w", err)
	}
	if err := cl.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to OVSDB at %s: %w", endpoint, err)
	}

	return &Store{
		logger: logger.With(slog.String("component", "configstore")),
		cl:     cl,
		names:  make(map[lacp.PortHandle]string),
		ports:  make(map[string]lacp.PortHandle),
	}, nil
}

// SetEngine wires the Engine that applyInterface enqueues LinkUp/
// LinkDownEvent onto. Must be called before Monitor.
func (s *Store) SetEngine(engine *lacp.Engine) {
	s.engine = engine
}

// SetProvisioner wires the transport provisioner used to open a raw
// socket for newly-discovered member interfaces. Must be called before
// Monitor; a nil provisioner (the default) means Port/Interface rows
// are mirrored for status but no LogicalPort is ever created.
func (s *Store) SetProvisioner(p PortProvisioner) {
	s.provisioner = p
}

// RegisterPort records the OVSDB interface name backing a PortHandle,
// so later PublishPortStatus calls know which row to write (handles
// are opaque per spec.md §3; the name mapping is owned by whatever
// wiring code allocated the handle, mirroring netio.Receiver.Bind's
// per-handle registration).
func (s *Store) RegisterPort(h lacp.PortHandle, ifaceName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[h] = ifaceName
	s.ports[ifaceName] = h
}

// UnregisterPort drops a handle's name mapping (spec.md §3 "destroyed
// when the interface leaves all ports").
func (s *Store) UnregisterPort(h lacp.PortHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.names[h]; ok {
		delete(s.ports, name)
		delete(s.names, h)
	}
}

func (s *Store) nameFor(h lacp.PortHandle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[h]
	return name, ok
}

// Monitor starts the table-change subscription (Port + Interface) and
// blocks delivering ConfigChangeEvent/LinkUp/LinkDownEvent to the
// Engine until ctx is cancelled. Intended to run as one of
// cmd/lacpd's errgroup goroutines.
func (s *Store) Monitor(ctx context.Context) error {
	m := s.cl.NewMonitor(
		client.WithTable(&Port{}),
		client.WithTable(&Interface{}),
	)

	if _, err := s.cl.Monitor(ctx, m); err != nil {
		return fmt.Errorf("start OVSDB monitor: %w", err)
	}

	s.cl.Cache().AddEventHandler(&cache.EventHandlerFuncs{
		AddFunc:    s.onRowAdd,
		UpdateFunc: s.onRowUpdate,
		DeleteFunc: s.onRowDelete,
	})

	<-ctx.Done()
	s.cl.Disconnect()
	return nil
}

func (s *Store) onRowAdd(table string, row model.Model) {
	switch table {
	case "Interface":
		s.applyInterface(row.(*Interface))
	case "Port":
		s.applyPort(row.(*Port))
	}
}

func (s *Store) onRowUpdate(table string, _, new model.Model) {
	switch table {
	case "Interface":
		s.applyInterface(new.(*Interface))
	case "Port":
		s.applyPort(new.(*Port))
	}
}

// onRowDelete deprovisions a member interface removed from OVSDB
// (spec.md §3 "destroyed when the interface leaves all ports").
func (s *Store) onRowDelete(table string, row model.Model) {
	if table != "Interface" {
		return
	}
	ifRow := row.(*Interface)

	s.mu.Lock()
	h, ok := s.ports[ifRow.Name]
	s.mu.Unlock()
	if !ok {
		return
	}

	if s.engine != nil {
		s.engine.Enqueue(lacp.PortRemoveEvent{Port: h})
	}
	if s.provisioner != nil {
		s.provisioner.DeprovisionPort(h)
	}
	s.UnregisterPort(h)
}

// applyInterface provisions a transport for a not-yet-registered
// member interface (first sight of it) and turns its link_state into
// the LinkUp/LinkDownEvent spec.md §4.7 names for an already-
// registered one.
func (s *Store) applyInterface(row *Interface) {
	s.mu.Lock()
	h, ok := s.ports[row.Name]
	s.mu.Unlock()

	if !ok {
		s.provisionInterface(row)
		return
	}

	up := row.LinkState != nil && *row.LinkState == "up"
	if up {
		speed := uint64(0)
		if row.LinkSpeed != nil {
			// link_speed is in bits per second; LinkUpEvent carries Mbps.
			speed = uint64(*row.LinkSpeed) / 1_000_000
		}
		s.engine.Enqueue(lacp.LinkUpEvent{Port: h, SpeedMbps: speed})
	} else {
		s.engine.Enqueue(lacp.LinkDownEvent{Port: h})
	}
}

// provisionInterface opens a transport for a newly-seen interface,
// looks up its owning Port row for the admin LACP config, and enqueues
// a PortCreateEvent. A no-op until SetProvisioner has been called and
// the interface's owning Port row has arrived in the cache.
func (s *Store) provisionInterface(row *Interface) {
	if s.provisioner == nil || s.engine == nil {
		return
	}

	port, ok := s.findOwningPort(row.Name)
	if !ok {
		return
	}

	portType := portTypeFromSpeed(row.LinkSpeed)
	h, err := s.provisioner.ProvisionPort(row.Name, portType)
	if err != nil {
		s.logger.Error("provision port failed", slog.String("interface", row.Name), slog.String("error", err.Error()))
		return
	}

	s.RegisterPort(h, row.Name)
	s.engine.Enqueue(lacp.PortCreateEvent{
		Port:   h,
		Type:   portType,
		Config: PortConfigFromRow(port),
	})
}

// findOwningPort scans the cached Port rows for the one whose
// interfaces list references ifaceName, mirroring ovsdb_if.c's
// iteration over a bond's member set to find per-member config.
func (s *Store) findOwningPort(ifaceName string) (*Port, bool) {
	table := s.cl.Cache().Table("Port")
	if table == nil {
		return nil, false
	}
	for _, uuid := range table.Rows() {
		row, ok := table.Row(uuid).(*Port)
		if !ok {
			continue
		}
		for _, ifUUID := range row.Interfaces {
			ifRow, ok := s.cl.Cache().Table("Interface").Row(ifUUID).(*Interface)
			if ok && ifRow.Name == ifaceName {
				return row, true
			}
		}
	}
	return nil, false
}

// applyPort re-applies a changed Port row's admin config to every
// already-registered member interface (ConfigChangeEvent), and
// provisions any member interface that has not been seen yet.
func (s *Store) applyPort(row *Port) {
	cfg := PortConfigFromRow(row)

	for _, ifUUID := range row.Interfaces {
		ifRow, ok := s.cl.Cache().Table("Interface").Row(ifUUID).(*Interface)
		if !ok {
			continue
		}

		s.mu.Lock()
		h, registered := s.ports[ifRow.Name]
		s.mu.Unlock()

		if registered {
			if s.engine != nil {
				s.engine.Enqueue(lacp.ConfigChangeEvent{Port: h, Config: cfg})
			}
			continue
		}
		s.provisionInterface(ifRow)
	}
}

// portTypeFromSpeed classifies a member link's speed (interface:
// link_speed, bits per second) into spec.md §3's port-type enum, the
// same speed classes original_source's lacp_support.c maps to
// LACP_LAG_PORTTYPE_FASTETHER/GIGAETHER/10GIGAETHER.
func portTypeFromSpeed(linkSpeed *int) lacp.PortType {
	if linkSpeed == nil {
		return lacp.PortTypeUnknown
	}
	const mbps = 1_000_000
	switch {
	case *linkSpeed >= 10_000*mbps:
		return lacp.PortTypeTenGigEther
	case *linkSpeed >= 1_000*mbps:
		return lacp.PortTypeGigeEther
	case *linkSpeed > 0:
		return lacp.PortTypeFastEther
	default:
		return lacp.PortTypeUnknown
	}
}

// PortConfigFromRow parses other_config into a lacp.PortConfig,
// grounded on ovsdb_if.c's handle_port_config reads of
// other_config:lacp-system-id / lacp-system-priority / lacp-time /
// lacp-aggregation-key / lacp-fallback-ab.
func PortConfigFromRow(port *Port) lacp.PortConfig {
	cfg := lacp.PortConfig{Mode: lacp.ModeOff, Timeout: lacp.TimeoutLong}

	if port.LACP != nil {
		switch *port.LACP {
		case "active":
			cfg.Mode = lacp.ModeActive
		case "passive":
			cfg.Mode = lacp.ModePassive
		}
	}

	oc := port.OtherConfig
	if oc[OtherConfigTime] == "fast" {
		cfg.Timeout = lacp.TimeoutShort
	}

	if v, ok := oc[OtherConfigSystemID]; ok {
		if mac, err := parseMAC(v); err == nil {
			cfg.SystemID = &lacp.SystemID{MAC: mac}
		}
	}
	if v, ok := oc[OtherConfigSystemPriority]; ok {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			prio := uint16(n)
			cfg.SystemPriority = &prio
		}
	}
	if v, ok := oc[OtherConfigFallbackAB]; ok {
		fb := v == "true"
		cfg.Fallback = &fb
	}
	if v, ok := oc[OtherConfigAggregationKey]; ok {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.AggregationKey = uint16(n)
		}
	}
	if v, ok := oc[OtherConfigPortPriority]; ok {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.PortID.Priority = uint16(n)
		}
	}

	return cfg
}

func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("malformed MAC %q", s)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("malformed MAC octet %q: %w", p, err)
		}
		mac[i] = byte(n)
	}
	return mac, nil
}

// -------------------------------------------------------------------------
// lacp.ConfigPublisher
// -------------------------------------------------------------------------

// PublishPortStatus writes an Engine port's status back to its
// Interface row's lacp_status/bond_status/hw_bond_config columns,
// implementing lacp.ConfigPublisher (spec.md §6 "mutations are
// mirrored to the configuration store"). Grounded on ovsdb_if.c's
// update_interface_bond_status_map_entry /
// update_interface_hw_bond_config_map_entry. The owning Port row's
// lacp_status/bond_status columns are not written.
func (s *Store) PublishPortStatus(port lacp.PortHandle, status lacp.PortStatus) {
	name, ok := s.nameFor(port)
	if !ok {
		s.logger.Warn("publish port status for unregistered port", slog.Uint64("port", uint64(port)))
		return
	}

	row := &Interface{Name: name}
	hwBondConfig := map[string]string{
		HwBondRxEnabled: strconv.FormatBool(status.HwBondRxEnabled),
		HwBondTxEnabled: strconv.FormatBool(status.HwBondTxEnabled),
	}
	lacpStatus := map[string]string{
		"actor_system_id":    status.ActorSystemID.String(),
		"actor_port_id":      status.ActorPortID.String(),
		"actor_key":          strconv.FormatUint(uint64(status.ActorKey), 10),
		"partner_system_id":  status.PartnerSystemID.String(),
		"partner_port_id":    status.PartnerPortID.String(),
		"partner_key":        strconv.FormatUint(uint64(status.PartnerKey), 10),
		"lacp_current":       strconv.FormatBool(status.LACPCurrent),
	}
	bondStatus := map[string]string{BondStatusKey: status.BondStatus}

	ops, err := s.cl.Where(row).Update(&Interface{
		HwBondConfig: hwBondConfig,
		LACPStatus:   lacpStatus,
		BondStatus:   bondStatus,
	})
	if err != nil {
		s.logger.Error("build update ops failed", slog.String("interface", name), slog.String("error", err.Error()))
		return
	}

	if _, err := s.cl.Transact(context.Background(), ops...); err != nil {
		s.logger.Error("transact interface status failed", slog.String("interface", name), slog.String("error", err.Error()))
	}
}

// Close releases the OVSDB client connection.
func (s *Store) Close() {
	s.cl.Disconnect()
}
