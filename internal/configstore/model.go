// Package configstore mirrors Engine state into OVSDB's Open_vSwitch
// database, the configuration-store contract spec.md §6 describes
// ("declarative config in, protocol state mirrored back out").
// Grounded on original_source/src/ovsdb_if.c, the 3600-line OVSDB
// integration the spec.md core was distilled away from: table/column
// names below (lacp_status, hw_bond_config, bond_status, the
// other_config:lacp-* keys) are taken directly from it.
package configstore

// Port is the subset of the Open_vSwitch Port table's columns this
// daemon models (it reads Port rows and writes none), grounded on ovsdb_if.c's ovsrec_port usage
// (lacp, other_config, lacp_status, bond_status columns; see
// ovsdb_if.c lines ~885-900 and handle_port_config's reads of
// other_config:lacp-system-id / lacp-system-priority / lacp-time).
type Port struct {
	UUID string `ovsdb:"_uuid"`
	Name string `ovsdb:"name"`

	// Interfaces lists the member interface UUIDs, mirroring
	// ovsrec_port's interfaces column.
	Interfaces []string `ovsdb:"interfaces"`

	// LACP is "active" | "passive" | "off" (empty means off), the
	// admin mode spec.md §3's PortConfig.Mode is seeded from.
	LACP *string `ovsdb:"lacp"`

	// OtherConfig carries lacp-system-id, lacp-system-priority,
	// lacp-time ("fast"/"slow"), lacp-aggregation-key,
	// lacp-fallback-ab, per ovsdb_if.c's handle_port_config.
	OtherConfig map[string]string `ovsdb:"other_config"`

	// LACPStatus is the Port's lacp_status column (ovsdb_if.c's
	// update_port_bond_status_map_entry). This daemon does not write
	// it: PublishPortStatus updates Interface rows only.
	LACPStatus map[string]string `ovsdb:"lacp_status"`

	// BondStatus is the Port's aggregate forwarding status column; like
	// LACPStatus, this daemon does not write it.
	BondStatus map[string]string `ovsdb:"bond_status"`
}

// Interface is the subset of the Open_vSwitch Interface table's
// columns this daemon reads and writes, grounded on ovsdb_if.c's
// ovsrec_interface usage (link_state, link_speed, hw_bond_config,
// lacp_status, bond_status columns).
type Interface struct {
	UUID string `ovsdb:"_uuid"`
	Name string `ovsdb:"name"`

	// LinkState is "up" | "down", read at startup and on link monitor
	// events (ovsdb_if.c's link state handling feeding LinkUp/LinkDown).
	LinkState *string `ovsdb:"link_state"`
	LinkSpeed *int    `ovsdb:"link_speed"`

	// HwBondConfig is written by this daemon to tell the data plane
	// whether to enable rx/tx for this member (ovsdb_if.c's
	// update_interface_hw_bond_config_map_entry: "rx_enabled"/
	// "tx_enabled" keys).
	HwBondConfig map[string]string `ovsdb:"hw_bond_config"`

	// LACPStatus/BondStatus are this daemon's per-interface status
	// write-back, matching update_interface_bond_status_map_entry.
	LACPStatus map[string]string `ovsdb:"lacp_status"`
	BondStatus map[string]string `ovsdb:"bond_status"`
}

// OVSDB other_config / hw_bond_config / bond_status key names, taken
// verbatim from ovsdb_if.c so the wire vocabulary matches what a real
// switchd/OVSDB consumer expects.
const (
	OtherConfigSystemID       = "lacp-system-id"
	OtherConfigSystemPriority = "lacp-system-priority"
	OtherConfigTime           = "lacp-time"
	OtherConfigAggregationKey = "lacp-aggregation-key"
	OtherConfigPortID         = "lacp-port-id"
	OtherConfigPortPriority   = "lacp-port-priority"
	OtherConfigFallbackAB     = "lacp-fallback-ab"

	HwBondRxEnabled = "rx_enabled"
	HwBondTxEnabled = "tx_enabled"

	BondStatusKey = "bond_status"

	BondStatusOK      = "up"
	BondStatusBlocked = "blocked"
	BondStatusDown    = "down"
)
