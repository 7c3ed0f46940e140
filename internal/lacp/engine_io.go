package lacp

import "log/slog"

// handleRxPdu decodes a wire frame received on a port and feeds it to
// the appropriate machinery (spec.md §4.5 ingress filter, §4.1 E1,
// §4.2 E4/E6 partner-timeout events). Malformed or looped-back frames
// are dropped without reaching any FSM (spec.md §7).
func (e *Engine) handleRxPdu(v RxPduEvent) {
	p := e.mustPort(v.Port, "RxPdu")
	if p == nil {
		return
	}

	subtype, err := Subtype(v.Wire)
	if err != nil {
		p.Stats.IllegalReceived.Add(1)
		return
	}

	switch {
	case IsLACPSubtype(subtype):
		e.handleRxLACPDU(p, v.Wire)
	case IsMarkerSubtype(subtype):
		e.handleRxMarker(p, v.Wire)
	default:
		p.Stats.IllegalReceived.Add(1)
	}
}

func (e *Engine) handleRxLACPDU(p *LogicalPort, wire []byte) {
	pdu, err := UnmarshalLACPDU(wire, p.ActorOper.System.MAC)
	switch {
	case err == nil:
	case err == ErrLoopback:
		e.logger.Debug("dropped loop-back LACPDU", slog.Uint64("port", uint64(p.Handle)))
		return
	default:
		p.Stats.IllegalReceived.Add(1)
		e.logger.Warn("malformed LACPDU", slog.String("error", err.Error()))
		return
	}

	p.Stats.LACPDUsReceived.Add(1)
	if e.metrics != nil {
		e.metrics.IncLACPDURecv(p.Handle)
	}

	if pdu.Actor.State.Timeout == TimeoutLong {
		e.postPx(p, PxE4PartnerLongTimeout)
	} else {
		e.postPx(p, PxE6PartnerShortTimeout)
	}

	e.postRx(p, RxE1PDUReceived, &pdu)
}

func (e *Engine) handleRxMarker(p *LogicalPort, wire []byte) {
	m, err := UnmarshalMarkerPDU(wire)
	if err != nil {
		p.Stats.IllegalReceived.Add(1)
		return
	}
	p.Stats.MarkersReceived.Add(1)
	if e.metrics != nil {
		e.metrics.IncMarkerRecv(p.Handle)
	}

	buf := *(PacketPool.Get().(*[]byte))
	defer PacketPool.Put(&buf)
	n, err := MarshalMarkerPDU(m, buf)
	if err != nil {
		e.logger.Error("marshal marker response", slog.String("error", err.Error()))
		return
	}
	if err := e.sender.Send(p.Handle, buf[:n]); err != nil {
		e.logger.Warn("marker response send failed", slog.String("error", err.Error()))
		return
	}
	p.Stats.MarkerRespSent.Add(1)
	if e.metrics != nil {
		e.metrics.IncMarkerRespSent(p.Handle)
	}
}

// handleTick advances every port's timer wheel by one second (spec.md
// §4.6): current-while, periodic, and wait-while countdowns, plus the
// per-tick async-tx budget reset (spec.md §4.2).
func (e *Engine) handleTick() {
	for _, p := range e.ports {
		p.asyncTxCount = 0

		if p.CurrentWhile > 0 {
			p.CurrentWhile--
			if p.CurrentWhile == 0 {
				e.postRx(p, RxE2CurrentWhileExpired, nil)
			}
		}

		if p.Periodic > 0 {
			p.Periodic--
			if p.Periodic == 0 {
				e.postPx(p, PxE3TimerExpired)
			}
		}

		if p.MuxState == MuxWaiting && p.WaitWhile > 0 {
			p.WaitWhile--
			if p.WaitWhile == 0 && p.LAG != nil {
				e.recomputeReady(p.LAG)
			}
		}

		if p.NTT {
			e.asyncTransmit(p)
		}
	}
	if e.metrics != nil {
		e.metrics.SetLAGCount(len(e.lags))
	}
}
