// Package lacp implements the core Link Aggregation Control Protocol
// engine defined by IEEE 802.1AX (clause 6): the Receive, Periodic
// Transmit, and Mux state machines, LAG selection, and the LACPDU/Marker
// PDU codec. A single Engine goroutine owns all LogicalPort and LAG
// state and drains one event queue; timer, receive, and config-store
// sources only enqueue events.
package lacp
