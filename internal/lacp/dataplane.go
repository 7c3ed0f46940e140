package lacp

// DataPlaneProgrammer is the external collaborator that turns Selection
// and Mux decisions into hardware forwarding state (spec.md §6
// "Data-plane programmer"). All methods are synchronous blocking calls
// made from the Engine goroutine; implementations must not call back
// into the Engine (spec.md §5 "no re-entrancy").
type DataPlaneProgrammer interface {
	// SelectAggregator requests (or reuses) a data-plane SuperPort for
	// the given match parameters, returning its handle.
	SelectAggregator(params AggregatorMatchParams) (AggregatorHandle, error)

	// AttachPort binds a LogicalPort to an already-selected aggregator,
	// updating the super-port's partner parameters.
	AttachPort(agg AggregatorHandle, port PortHandle, partnerPrio uint16, partnerMAC [6]byte) error

	// DetachPort removes a LogicalPort from an aggregator.
	DetachPort(agg AggregatorHandle, port PortHandle) error

	// EnableCollecting/EnableDistributing turn on ingress/egress
	// forwarding for a port already attached to its aggregator.
	EnableCollecting(port PortHandle) error
	EnableDistributing(port PortHandle) error

	// DisableCollectDist turns off both ingress and egress forwarding.
	DisableCollectDist(port PortHandle) error

	// ClearAggregator releases a SuperPort with no remaining members.
	ClearAggregator(agg AggregatorHandle) error
}

// AggregatorMatchParams are the fields spec.md §6 lists for
// select_aggregator.
type AggregatorMatchParams struct {
	PortType        PortType
	ActorKey        uint16
	PartnerKey      uint16
	PartnerSysPrio  uint16
	PartnerSysMAC   [6]byte
	LocalPortNumber uint16
	ActorAggr       Aggregation
	PartnerAggr     Aggregation
	ActorPortPrio   uint16
	PartnerPortPrio uint16
}
