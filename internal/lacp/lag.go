package lacp

import (
	"fmt"
	"sort"
)

// LAGID is the tuple that identifies a LAG (spec.md §3 "LAG_Id").
// When both sides advertise Aggregatable, Local.Port and Remote.Port
// are zeroed before comparison so links group regardless of port
// priority/number (spec.md §4.4 "LAG_Id equality").
type LAGID struct {
	Local    Params
	Remote   Params
	Fallback bool
}

// Equal compares two LAG_Ids byte-for-byte across all twelve fields
// (spec.md §4.4).
func (id LAGID) Equal(o LAGID) bool {
	return id.Local == o.Local && id.Remote == o.Remote && id.Fallback == o.Fallback
}

// String renders a LAG_Id as "<local system>-<local key>/<remote
// system>-<remote key>", a stable human-readable key for logging and
// D-Bus signal payloads.
func (id LAGID) String() string {
	return fmt.Sprintf("%s-%d/%s-%d", id.Local.System, id.Local.Key, id.Remote.System, id.Remote.Key)
}

// computeLAGID derives a port's current LAG_Id from its actor/partner
// operational parameters. Grounded on original_source/src/selection.c's
// form_lag_id, which builds a LAG_Id unconditionally, including for a
// still-defaulted (all-zero) partner; findOrCreateLAG, not this
// function, is where a defaulted/fallback partner is kept from merging
// into another port's LAG (selection.c:210-215).
func computeLAGID(p *LogicalPort) LAGID {
	bothAggregatable := p.ActorOper.State.Aggregation == AggregationAggregatable &&
		p.PartnerOper.State.Aggregation == AggregationAggregatable

	local := p.ActorOper
	remote := p.PartnerOper
	// The state flags are not part of the identity.
	local.State = PortState{}
	remote.State = PortState{}
	if bothAggregatable {
		local.Port = PortID{}
		remote.Port = PortID{}
	}

	return LAGID{Local: local, Remote: remote, Fallback: p.FallbackEnabled}
}

// LAG is a logical aggregation group (spec.md §3).
type LAG struct {
	ID       LAGID
	PortType PortType

	// Members, ordered by handle (spec.md §4.4 step 2 "member list
	// sorted by handle").
	Members []PortHandle

	Ready    bool
	LoopBack bool

	Aggregator      AggregatorHandle
	MaxPortPriority uint16
}

func (l *LAG) addMember(h PortHandle) {
	for _, m := range l.Members {
		if m == h {
			return
		}
	}
	l.Members = append(l.Members, h)
	sort.Slice(l.Members, func(i, j int) bool { return l.Members[i] < l.Members[j] })
}

func (l *LAG) removeMember(h PortHandle) {
	for i, m := range l.Members {
		if m == h {
			l.Members = append(l.Members[:i], l.Members[i+1:]...)
			return
		}
	}
}

func (l *LAG) hasMember(h PortHandle) bool {
	for _, m := range l.Members {
		if m == h {
			return true
		}
	}
	return false
}
