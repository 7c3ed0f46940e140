package lacp

// Selection algorithm (spec.md §4.4), grounded on original_source/src/
// selection.c's lacp_selection_logic and structurally on internal/bfd/
// manager.go's micro-BFD group CRUD (scan-existing / create-or-join /
// remove-and-recompute). Selection only ever runs on the Engine
// goroutine, synchronously with the event that triggered it.

// evaluateSelection re-derives a port's Selected status after a change
// that may have invalidated its current LAG membership (spec.md §4.4
// step 1: recompute LAG_Id, deselect if it moved). It then feeds the
// Mux machine the Selected/Unselected/Standby event the new status
// implies.
func (e *Engine) evaluateSelection(p *LogicalPort) {
	prevSelected := p.Selected
	e.runSelection(p)

	switch {
	case p.Selected == Selected && prevSelected != Selected:
		e.postMux(p, MxE1Selected)
	case p.Selected == Unselected && prevSelected != Unselected:
		e.postMux(p, MxE2Unselected)
	case p.Selected == Standby && prevSelected != Standby:
		e.postMux(p, MxE4Standby)
	}

	// Re-examine Waiting members of every LAG whose readiness may have
	// just changed (spec.md §4.4 step 2 "ready_N / Ready").
	if p.LAG != nil {
		e.recomputeReady(p.LAG)
	}

	// A fresh partner PDU can change PartnerOper.State.Sync/Collecting
	// without changing Selected at all; re-check the Mux sync events
	// independently of whether postMux already ran above (spec.md §4.3).
	e.evaluateMuxSync(p)
}

// runSelection implements spec.md §4.4 steps 1-5.
func (e *Engine) runSelection(p *LogicalPort) {
	if !p.PortEnabled {
		// original_source/src/selection.c's LAG_selection bails out
		// immediately while lacp_up is false; Selection has nothing to
		// do for a port whose link isn't up (fresh ports, and ports
		// sitting in PortDisabled because their link dropped).
		e.leaveCurrentLAG(p)
		p.Selected = Unselected
		return
	}

	if p.PartnerOper.State.Aggregation == AggregationIndividual {
		// spec.md §4.1 recordPDU: a partner advertising Individual is
		// never grouped into a LAG, regardless of LAG_Id. Re-checked
		// here (not just in recordPDU) so the guard also holds when
		// Selection reruns independently, e.g. from evaluateSelection's
		// own tail call.
		e.leaveCurrentLAG(p)
		p.Selected = Unselected
		return
	}

	newID := computeLAGID(p)

	if p.LAG != nil && !p.LAG.ID.Equal(newID) {
		// The port's LAG_Id changed (e.g. partner renegotiated keys):
		// leave the old LAG; the p.LAG == nil branch below then scans
		// the existing LAGs afresh for the new LAG_Id (spec.md §4.4
		// "removal/recursion when a port's LAG_Id changes").
		e.leaveCurrentLAG(p)
	}

	if p.LAG == nil {
		lag := e.findOrCreateLAG(p, newID)
		lag.addMember(p.Handle)
		p.LAG = lag
	}

	p.LAG.LoopBack = p.LoopBack
	if p.ActorOper.Port.Priority > p.LAG.MaxPortPriority {
		p.LAG.MaxPortPriority = p.ActorOper.Port.Priority
	}

	// Step 4/5: bind (or confirm binding) to a data-plane aggregator and
	// mark the port Selected, unless this is a loop-back port which must
	// never forward (spec.md §4.4 "loop-back ports are never Selected").
	if p.LAG.LoopBack {
		p.Selected = Unselected
		return
	}

	if p.Aggregator == 0 {
		agg, err := e.programmer.SelectAggregator(AggregatorMatchParams{
			PortType:        p.Type,
			ActorKey:        p.ActorOper.Key,
			PartnerKey:      p.PartnerOper.Key,
			PartnerSysPrio:  p.PartnerOper.System.Priority,
			PartnerSysMAC:   p.PartnerOper.System.MAC,
			LocalPortNumber: p.ActorOper.Port.Number,
			ActorAggr:       p.ActorOper.State.Aggregation,
			PartnerAggr:     p.PartnerOper.State.Aggregation,
			ActorPortPrio:   p.ActorOper.Port.Priority,
			PartnerPortPrio: p.PartnerOper.Port.Priority,
		})
		if err != nil {
			e.logger.Error("select_aggregator failed", slogErr(err))
			p.Selected = Unselected
			return
		}
		p.Aggregator = agg
		p.LAG.Aggregator = agg
	}

	p.Selected = Selected
}

// leaveCurrentLAG removes p from its LAG, releasing the aggregator and
// tearing down the LAG record once it has no members left (spec.md
// §4.4 "removal/recursion").
func (e *Engine) leaveCurrentLAG(p *LogicalPort) {
	e.removePortFromLAG(p)
}

func (e *Engine) removePortFromLAG(p *LogicalPort) {
	lag := p.LAG
	if lag == nil {
		return
	}
	if p.Aggregator != 0 {
		if err := e.programmer.DetachPort(p.Aggregator, p.Handle); err != nil {
			e.logger.Warn("detach_port failed", slogErr(err))
		}
	}
	lag.removeMember(p.Handle)
	p.LAG = nil
	agg := p.Aggregator
	p.Aggregator = 0

	if len(lag.Members) == 0 {
		for key, v := range e.lags {
			if v == lag {
				delete(e.lags, key)
				break
			}
		}
		if agg != 0 {
			if err := e.programmer.ClearAggregator(agg); err != nil {
				e.logger.Warn("clear_aggregator failed", slogErr(err))
			}
		}
		return
	}

	e.recomputeReady(lag)
}

// findOrCreateLAG scans existing LAGs of the same port type for a
// LAG_Id match (spec.md §4.4 step 2 "scan existing LAGs"); creates a
// new one when none matches.
func (e *Engine) findOrCreateLAG(p *LogicalPort, id LAGID) *LAG {
	for _, lag := range e.lags {
		if lag.PortType != p.Type || !lag.ID.Equal(id) {
			continue
		}
		if lag.ID.Remote.System.MAC == ([6]byte{}) {
			// A still-defaulted (no real PDU received) or fallback
			// partner never aggregates across ports: each such port
			// gets its own private LAG rather than being swept into
			// another unconfigured neighbor's (selection.c:210-215).
			continue
		}
		return lag
	}
	e.lagSeq++
	lag := &LAG{ID: id, PortType: p.Type}
	e.lags[e.lagSeq] = lag
	return lag
}

// recomputeReady recomputes LAG.Ready (spec.md §4.4 step 2: "ready_N
// true once every Waiting member's wait_while timer has expired") and,
// for any member now waiting on readiness, fires the Mux E3 event.
func (e *Engine) recomputeReady(lag *LAG) {
	ready := true
	for _, h := range lag.Members {
		m, ok := e.ports[h]
		if !ok {
			continue
		}
		if m.MuxState == MuxWaiting && m.WaitWhile > 0 {
			ready = false
		}
	}
	lag.Ready = ready
	if !ready {
		return
	}
	for _, h := range lag.Members {
		m, ok := e.ports[h]
		if ok && m.MuxState == MuxWaiting {
			e.postMux(m, MxE3SelectedAndReady)
		}
	}
}
