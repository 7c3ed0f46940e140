package lacp

import "log/slog"

// postRx/postPx/postMux apply a pure FSM table lookup, store the
// resulting state, and invoke the destination state's entry action
// exactly when the table says the cell reruns (spec.md §4.1-4.3 "FSM
// tables as data": the table decides transitions, a fixed dispatcher
// performs them so every path invokes actions identically).

func (e *Engine) postRx(p *LogicalPort, event ReceiveEvent, pdu *LACPDU) {
	res := ApplyReceiveEvent(p.RxState, event)
	if !res.Changed {
		return
	}
	p.RxState = res.New
	if e.metrics != nil {
		e.metrics.RecordFSMTransition("receive", p.Handle)
	}
	switch res.New {
	case RxInitialize:
		e.rxInitializeAction(p)
	case RxPortDisabled:
		e.rxPortDisabledAction(p)
	case RxLacpDisabled:
		e.rxLacpDisabledAction(p)
	case RxExpired:
		e.rxExpiredAction(p)
	case RxDefaulted:
		e.rxDefaultedAction(p)
	case RxCurrent:
		e.rxCurrentAction(p, pdu)
	}
	e.maintainPeriodic(p)
	e.publishStatus(p)
}

// maintainPeriodic re-evaluates the Periodic Transmit machine's
// NO_PERIODIC hold conditions (spec.md §4.2): the machine sits in
// NoPeriodic while the port is disabled, LACP is off, or both ends are
// Passive, and ucts to FastPeriodic the moment none of those hold.
// Called after every Receive-state change since port-enabled/LACP-
// enabled/partner-activity are exactly the inputs those events carry.
func (e *Engine) maintainPeriodic(p *LogicalPort) {
	switch {
	case !p.PortEnabled && p.PxState != PeriodicNoPeriodic:
		e.postPx(p, PxE7PortDisabled)
	case !p.LACPEnabled() && p.PxState != PeriodicNoPeriodic:
		e.postPx(p, PxE5LACPDisabled)
	case p.PortEnabled && p.LACPEnabled() && !p.ActorOper.State.Activity && !p.PartnerOper.State.Activity && p.PxState != PeriodicNoPeriodic:
		e.postPx(p, PxE8BothPassive)
	case p.PortEnabled && p.LACPEnabled() && (p.ActorOper.State.Activity || p.PartnerOper.State.Activity) && p.PxState == PeriodicNoPeriodic:
		e.postPx(p, PxE2UCT)
	}
}

func (e *Engine) postPx(p *LogicalPort, event PeriodicEvent) {
	res := ApplyPeriodicEvent(p.PxState, event)
	if !res.Changed {
		return
	}
	p.PxState = res.New
	if e.metrics != nil {
		e.metrics.RecordFSMTransition("periodic", p.Handle)
	}
	switch res.New {
	case PeriodicNoPeriodic:
		p.Periodic = 0
	case PeriodicFast:
		p.Periodic = FastPeriodicTicks
	case PeriodicSlow:
		p.Periodic = SlowPeriodicTicks
	case PeriodicTx:
		e.actorPDU(p)
	}
}

func (e *Engine) postMux(p *LogicalPort, event MuxEvent) {
	res := ApplyMuxEvent(p.MuxState, event)
	if !res.Changed {
		return
	}
	p.PrevMuxState = p.MuxState
	p.MuxState = res.New
	if e.metrics != nil {
		e.metrics.RecordFSMTransition("mux", p.Handle)
	}
	switch res.New {
	case MuxDetached:
		e.muxDetachedAction(p)
	case MuxWaiting:
		e.muxWaitingAction(p)
	case MuxAttached:
		e.muxAttachedAction(p)
	case MuxCollecting:
		e.muxCollectingAction(p)
	case MuxCollectingDistributing:
		e.muxCollectingDistributingAction(p)
	}
	e.evaluateMuxSync(p)
	e.publishStatus(p)
}

// evaluateMuxSync re-derives the partner.sync/partner.collecting-driven
// Mux events (E5/E6/E8/E9, spec.md §4.3) from the port's current
// Selected status and PartnerOper state. Called after every Mux
// transition (so a tick-driven Waiting->Attached move immediately
// checks whether partner.sync already holds) and after Selection
// re-evaluates a port (so a freshly received PDU's partner.sync/
// partner.collecting bits are acted on without waiting for the next
// Mux-triggering event).
func (e *Engine) evaluateMuxSync(p *LogicalPort) {
	sync := p.Selected == Selected && p.PartnerOper.State.Sync
	switch p.MuxState {
	case MuxAttached:
		if sync {
			e.postMux(p, MxE5SelectedAndPartnerSync)
		}
	case MuxCollecting:
		switch {
		case !sync:
			e.postMux(p, MxE6PartnerNotSync)
		case p.PartnerOper.State.Collecting:
			e.postMux(p, MxE8PartnerSyncAndCollecting)
		}
	case MuxCollectingDistributing:
		switch {
		case !sync:
			e.postMux(p, MxE6PartnerNotSync)
		case !p.PartnerOper.State.Collecting:
			e.postMux(p, MxE9PartnerSyncNotCollecting)
		}
	}
}

// ---------------------------------------------------------------------
// Receive machine entry actions (spec.md §4.1)
// ---------------------------------------------------------------------

func (e *Engine) rxInitializeAction(p *LogicalPort) {
	p.Begin = false
	p.Selected = Unselected
	e.postMux(p, MxE2Unselected)
	e.recordDefault(p)
	p.PartnerOper.State.Expired = false
	p.PortMoved = false
	e.postRx(p, RxE5UCT, nil)
}

func (e *Engine) rxPortDisabledAction(p *LogicalPort) {
	p.PartnerOper.State.Sync = false
	e.postMux(p, MxE6PartnerNotSync)
	e.evaluateSelection(p)
	if p.PortMoved {
		e.postRx(p, RxE3PortMoved, nil)
	}
	if p.PortEnabled {
		e.postRx(p, RxE6PortLACPEnabled, nil)
	}
}

func (e *Engine) rxLacpDisabledAction(p *LogicalPort) {
	p.Selected = Unselected
	e.recordDefault(p)
	p.PartnerOper.State.Aggregation = AggregationIndividual
}

func (e *Engine) rxExpiredAction(p *LogicalPort) {
	p.PartnerOper.State.Sync = false
	p.PartnerOper.State.Timeout = TimeoutShort
	p.CurrentWhile = ShortTimeoutTicks
	p.ActorOper.State.Expired = true
	e.postPx(p, PxE6PartnerShortTimeout)
}

func (e *Engine) rxDefaultedAction(p *LogicalPort) {
	e.updateDefaultSelected(p)
	e.recordDefault(p)

	if p.FallbackEnabled {
		// No partner PDU ever arrived; assume the far end doesn't speak
		// LACP and default it into sync/collecting/distributing so this
		// port still forms a (single-port) LAG and passes traffic
		// (spec.md §4.1 "Fallback").
		p.PartnerOper.State.Sync = true
		p.PartnerOper.State.Collecting = true
		p.PartnerOper.State.Distributing = true
		p.PartnerOper.State.Defaulted = false
		p.PartnerOper.State.Expired = false
		p.ActorOper.State.Expired = false
	} else {
		p.PartnerOper.State.Sync = false
		p.PartnerOper.State.Collecting = false
		p.PartnerOper.State.Distributing = false
		p.PartnerOper.State.Defaulted = true
		p.PartnerOper.State.Expired = true
	}

	e.evaluateSelection(p)

	if p.Selected == Selected && p.PartnerOper.State.Sync {
		e.postMux(p, MxE5SelectedAndPartnerSync)
	} else {
		p.Selected = Unselected
		p.ReadyN = false
	}
}

func (e *Engine) rxCurrentAction(p *LogicalPort, pdu *LACPDU) {
	if pdu == nil {
		return
	}
	e.recordPDU(p, *pdu)
	if p.ActorOper.State.Timeout == TimeoutShort {
		p.CurrentWhile = ShortTimeoutTicks
	} else {
		p.CurrentWhile = LongTimeoutTicks
	}
	p.ActorOper.State.Expired = false
	e.evaluateSelection(p)
}

// recordDefault loads the administratively configured Partner defaults
// (spec.md §4.1 "recordDefault") — used when no partner PDU has been
// seen (Initialize, LacpDisabled, Defaulted).
func (e *Engine) recordDefault(p *LogicalPort) {
	p.PartnerOper = p.PartnerAdmin
	p.ActorOper.State.Defaulted = true

	if !p.ActorOper.State.Activity && !p.PartnerOper.State.Activity {
		e.postPx(p, PxE1Begin)
	}
}

// recordPDU absorbs a freshly received LACPDU into PartnerOper, derives
// Matched, propagates NTT, and re-evaluates Selected (spec.md §4.1
// "recordPDU/choose_Matched/update_NTT/update_Selected").
func (e *Engine) recordPDU(p *LogicalPort, pdu LACPDU) {
	matched := e.chooseMatched(p, pdu)
	// Compared against the previous PartnerOper, so it runs before the
	// overwrite below.
	e.updateSelected(p, pdu)

	p.PartnerOper = pdu.Actor
	p.PartnerOper.State.Sync = pdu.Actor.State.Sync && matched
	p.ActorOper.State.Defaulted = false

	e.updateNTT(p, pdu)
}

// chooseMatched reports whether the partner's view of us (pdu.Partner)
// agrees with our own operational parameters (spec.md §4.1
// "choose_Matched").
func (e *Engine) chooseMatched(p *LogicalPort, pdu LACPDU) bool {
	if pdu.Partner.System != p.ActorOper.System || pdu.Partner.Key != p.ActorOper.Key {
		return false
	}
	if p.ActorOper.State.Aggregation == AggregationIndividual {
		return true
	}
	return pdu.Partner.Port == p.ActorOper.Port
}

// updateNTT requests re-transmission when the partner's picture of our
// own Actor parameters (pdu.Partner) is stale relative to ActorOper
// (spec.md §4.1 "update_NTT").
func (e *Engine) updateNTT(p *LogicalPort, pdu LACPDU) {
	stale := pdu.Partner.System != p.ActorOper.System ||
		pdu.Partner.Key != p.ActorOper.Key ||
		pdu.Partner.Port != p.ActorOper.Port ||
		pdu.Partner.State.Activity != p.ActorOper.State.Activity ||
		pdu.Partner.State.Timeout != p.ActorOper.State.Timeout ||
		pdu.Partner.State.Aggregation != p.ActorOper.State.Aggregation ||
		pdu.Partner.State.Sync != p.ActorOper.State.Sync
	if stale {
		p.NTT = true
	}
}

// updateSelected clears Selected when the freshly received Actor
// parameters no longer match the port's current LAG_Id (spec.md §4.1
// "update_Selected").
func (e *Engine) updateSelected(p *LogicalPort, pdu LACPDU) {
	if p.LAG == nil {
		return
	}
	bothAggregatable := pdu.Actor.State.Aggregation == AggregationAggregatable &&
		p.ActorOper.State.Aggregation == AggregationAggregatable
	if !p.PartnerOper.equalForLAGID(pdu.Actor, bothAggregatable) {
		p.Selected = Unselected
	}
}

// updateDefaultSelected clears Selected when the administrative
// Partner defaults changed since the port last used them (spec.md
// §4.1 "update_Default_Selected").
func (e *Engine) updateDefaultSelected(p *LogicalPort) {
	if p.PartnerOper != p.PartnerAdmin {
		p.Selected = Unselected
		e.postMux(p, MxE2Unselected)
	}
}

// ---------------------------------------------------------------------
// Periodic Transmit entry actions (spec.md §4.2)
// ---------------------------------------------------------------------
//
// NoPeriodic/Fast/Slow only (re)load the Periodic countdown; they are
// handled inline in postPx above since they carry no other side
// effect. PeriodicTx transmits immediately via actorPDU, also inline.

// ---------------------------------------------------------------------
// Mux entry actions (spec.md §4.3)
// ---------------------------------------------------------------------

func (e *Engine) muxDetachedAction(p *LogicalPort) {
	p.ActorOper.State.Sync = false
	e.disableCollectDist(p)
	if p.Aggregator != 0 {
		if err := e.programmer.DetachPort(p.Aggregator, p.Handle); err != nil {
			e.logger.Warn("detach_port failed", slog.String("error", err.Error()))
		}
	}
	p.WaitWhile = 0
	p.NTT = true
}

func (e *Engine) muxWaitingAction(p *LogicalPort) {
	p.WaitWhile = WaitWhileTicks
	if p.LAG != nil {
		e.recomputeReady(p.LAG)
	}
}

func (e *Engine) muxAttachedAction(p *LogicalPort) {
	// One-step reverse-transition guard (spec.md §4.3): re-entering
	// Attached directly from Collecting/CollectingDistributing must not
	// re-run AttachPort, since the port never actually left the
	// aggregator.
	if p.PrevMuxState != MuxCollecting && p.PrevMuxState != MuxCollectingDistributing {
		if p.Aggregator != 0 {
			if err := e.programmer.AttachPort(p.Aggregator, p.Handle, p.PartnerOper.Port.Priority, p.PartnerOper.System.MAC); err != nil {
				e.logger.Warn("attach_port failed", slog.String("error", err.Error()))
			}
		}
	}
	p.ActorOper.State.Sync = true
	e.disableCollectDist(p)
	p.NTT = true
}

func (e *Engine) muxCollectingAction(p *LogicalPort) {
	if err := e.programmer.EnableCollecting(p.Handle); err != nil {
		e.logger.Warn("enable_collecting failed", slog.String("error", err.Error()))
	}
	p.ActorOper.State.Collecting = true
	p.ActorOper.State.Distributing = false
	p.NTT = true
}

func (e *Engine) muxCollectingDistributingAction(p *LogicalPort) {
	if err := e.programmer.EnableDistributing(p.Handle); err != nil {
		e.logger.Warn("enable_distributing failed", slog.String("error", err.Error()))
	}
	p.ActorOper.State.Distributing = true
	p.NTT = true
}

func (e *Engine) disableCollectDist(p *LogicalPort) {
	if p.ActorOper.State.Collecting || p.ActorOper.State.Distributing {
		if err := e.programmer.DisableCollectDist(p.Handle); err != nil {
			e.logger.Warn("disable_collect_dist failed", slog.String("error", err.Error()))
		}
	}
	p.ActorOper.State.Collecting = false
	p.ActorOper.State.Distributing = false
}
