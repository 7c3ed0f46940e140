package lacp

import "errors"

// Sentinel errors, one per error kind named in spec.md §7.
var (
	// ErrMalformedPDU covers wrong length, wrong subtype, actor_port=0,
	// and any other wire-format violation. The caller drops the frame
	// silently; no FSM state changes.
	ErrMalformedPDU = errors.New("lacp: malformed PDU")

	// ErrLoopback indicates a received frame's actor_system MAC equals
	// the local system MAC. Dropped silently, same as ErrMalformedPDU.
	ErrLoopback = errors.New("lacp: loop-back frame")

	// ErrUnknownPort indicates an event referenced a port handle the
	// registry does not know about.
	ErrUnknownPort = errors.New("lacp: unknown port handle")

	// ErrLAGIDExhausted indicates the LAG-Id space for a port type is
	// full (practically unreachable given the 12-field identity, kept
	// for the resource-exhaustion error path spec.md §7 requires).
	ErrLAGIDExhausted = errors.New("lacp: LAG-Id pool exhausted")

	// ErrProgrammerFailure wraps any error returned by the data-plane
	// DataPlaneProgrammer collaborator.
	ErrProgrammerFailure = errors.New("lacp: data-plane programmer failure")

	// ErrTransportFailure wraps any error returned sending a frame.
	ErrTransportFailure = errors.New("lacp: transport send failure")

	// ErrInvariant marks a programming violation of a core invariant
	// (spec.md §7: "treated as fatal assertion failures").
	ErrInvariant = errors.New("lacp: invariant violation")
)
