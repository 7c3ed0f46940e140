package lacp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// Wire-format constants (spec.md §4.5).
const (
	// HeaderSize is the Ethernet header preceding every Slow-Protocols
	// frame: 6 dest MAC + 6 src MAC + 2 EtherType
	// (original_source/include/lacp_cmn.h LACP_HEADROOM_SIZE).
	HeaderSize = 14

	// PayloadSize is the fixed LACPDU/Marker-PDU payload length,
	// excluding the Ethernet header and trailing CRC
	// (original_source/include/lacp_cmn.h LACP_PKT_SIZE).
	PayloadSize = 124

	// FrameSize is the full on-wire frame length this codec produces.
	FrameSize = HeaderSize + PayloadSize

	// EtherTypeSlowProtocols is the EtherType for LACP/Marker frames.
	EtherTypeSlowProtocols = 0x8809

	subtypeLACP   = 0x01
	subtypeMarker = 0x02
	lacpVersion   = 0x01

	tlvTerminator = 0x00
	tlvActor      = 0x01
	tlvPartner    = 0x02
	tlvCollector  = 0x03
	tlvMarkerInfo = 0x01

	tlvActorLen     = 0x14
	tlvPartnerLen   = 0x14
	tlvCollectorLen = 0x10
	tlvMarkerLen    = 0x16
)

// SlowProtocolsMulticast is the destination MAC for all LACP/Marker
// frames (spec.md §4.5).
var SlowProtocolsMulticast = [6]byte{0x01, 0x80, 0xC2, 0x00, 0x00, 0x02}

// Sentinel wire-format errors, all subsumed by ErrMalformedPDU.
var (
	ErrPacketTooShort   = errors.New("lacp: packet shorter than payload size")
	ErrBadSubtype       = errors.New("lacp: subtype is not LACP")
	ErrBadVersion       = errors.New("lacp: unsupported LACPDU version")
	ErrZeroActorPort    = errors.New("lacp: actor_port is zero")
	ErrBufTooSmall      = errors.New("lacp: destination buffer too small")
)

// PacketPool recycles PayloadSize-sized buffers to avoid per-frame
// allocation on the hot receive path, the same pattern as
// internal/bfd/packet.go's PacketPool.
//
//nolint:gochecknoglobals
var PacketPool = sync.Pool{
	New: func() any {
		b := make([]byte, PayloadSize)
		return &b
	},
}

// LACPDU is the decoded form of an LACP protocol data unit (spec.md §4.5).
type LACPDU struct {
	Actor   Params
	Partner Params

	CollectorMaxDelay uint16
}

// MarshalLACPDU packs pdu into buf[:PayloadSize] using the exact byte
// layout of spec.md §4.5 (all multi-byte fields big-endian, per the
// "PDU packing" design note).
func MarshalLACPDU(pdu LACPDU, buf []byte) (int, error) {
	if len(buf) < PayloadSize {
		return 0, fmt.Errorf("marshal LACPDU: %w", ErrBufTooSmall)
	}
	clear(buf[:PayloadSize])

	buf[0] = subtypeLACP
	buf[1] = lacpVersion

	buf[2] = tlvActor
	buf[3] = tlvActorLen
	marshalParams(buf[4:22], pdu.Actor)

	buf[22] = tlvPartner
	buf[23] = tlvPartnerLen
	marshalParams(buf[24:42], pdu.Partner)

	buf[42] = tlvCollector
	buf[43] = tlvCollectorLen
	binary.BigEndian.PutUint16(buf[44:46], pdu.CollectorMaxDelay)

	buf[60] = tlvTerminator
	buf[61] = 0x00

	return PayloadSize, nil
}

// marshalParams writes an 18-byte actor/partner field group: system
// priority(2), system MAC(6), key(2), port priority(2), port number(2),
// state(1), reserved(3).
func marshalParams(b []byte, p Params) {
	binary.BigEndian.PutUint16(b[0:2], p.System.Priority)
	copy(b[2:8], p.System.MAC[:])
	binary.BigEndian.PutUint16(b[8:10], p.Key)
	binary.BigEndian.PutUint16(b[10:12], p.Port.Priority)
	binary.BigEndian.PutUint16(b[12:14], p.Port.Number)
	b[14] = byte(p.State.Encode())
	// b[15:18] reserved, already zeroed by caller.
}

func unmarshalParams(b []byte) Params {
	var p Params
	p.System.Priority = binary.BigEndian.Uint16(b[0:2])
	copy(p.System.MAC[:], b[2:8])
	p.Key = binary.BigEndian.Uint16(b[8:10])
	p.Port.Priority = binary.BigEndian.Uint16(b[10:12])
	p.Port.Number = binary.BigEndian.Uint16(b[12:14])
	p.State = DecodePortState(StateFlags(b[14]))
	return p
}

// UnmarshalLACPDU validates and decodes an LACPDU payload. It applies
// the ingress filter from spec.md §4.5: wrong subtype or actor_port==0
// is rejected; loop-back (actor system MAC == localMAC) is reported via
// ErrLoopback so the caller can drop without counting it as malformed.
//
// actor_key==0 is intentionally accepted (spec.md §9 Open Question:
// "the source tolerates actor_key == 0 on ingress... implementers
// should preserve the lenient ingress policy").
func UnmarshalLACPDU(buf []byte, localMAC [6]byte) (LACPDU, error) {
	var pdu LACPDU

	if len(buf) < PayloadSize {
		return pdu, fmt.Errorf("%w: %w", ErrMalformedPDU, ErrPacketTooShort)
	}
	if buf[0] != subtypeLACP {
		return pdu, fmt.Errorf("%w: %w", ErrMalformedPDU, ErrBadSubtype)
	}

	pdu.Actor = unmarshalParams(buf[4:22])
	pdu.Partner = unmarshalParams(buf[24:42])
	pdu.CollectorMaxDelay = binary.BigEndian.Uint16(buf[44:46])

	if pdu.Actor.Port.Number == 0 {
		return pdu, fmt.Errorf("%w: %w", ErrMalformedPDU, ErrZeroActorPort)
	}
	if pdu.Actor.System.MAC == localMAC {
		return pdu, ErrLoopback
	}

	return pdu, nil
}

// MarkerPDU is the decoded form of a Marker/Marker-Response PDU
// (spec.md §4.5). The engine only ever echoes a received MarkerPDU
// back as a response; it never originates one (Non-goal, and spec.md
// §9 notes the original's initiation path is unused).
type MarkerPDU struct {
	RequesterPort  uint16
	RequesterMAC   [6]byte
	TransactionID  uint32
}

// MarshalMarkerPDU packs a Marker Response PDU. Requests and responses
// share subtype 0x02 per 802.1AX and are distinguished by TLV type
// (0x01 request, 0x02 response). This codec only ever emits responses,
// so the TLV type is fixed to response (0x02).
func MarshalMarkerPDU(m MarkerPDU, buf []byte) (int, error) {
	if len(buf) < PayloadSize {
		return 0, fmt.Errorf("marshal marker PDU: %w", ErrBufTooSmall)
	}
	clear(buf[:PayloadSize])

	buf[0] = subtypeMarker
	buf[1] = lacpVersion

	const tlvMarkerResponse = 0x02
	buf[2] = tlvMarkerResponse
	buf[3] = tlvMarkerLen
	binary.BigEndian.PutUint16(buf[4:6], m.RequesterPort)
	copy(buf[6:12], m.RequesterMAC[:])
	binary.BigEndian.PutUint32(buf[12:16], m.TransactionID)

	buf[38] = tlvTerminator
	buf[39] = 0x00

	return PayloadSize, nil
}

// UnmarshalMarkerPDU decodes a Marker request PDU.
func UnmarshalMarkerPDU(buf []byte) (MarkerPDU, error) {
	var m MarkerPDU
	if len(buf) < PayloadSize {
		return m, fmt.Errorf("%w: %w", ErrMalformedPDU, ErrPacketTooShort)
	}
	if buf[0] != subtypeMarker {
		return m, fmt.Errorf("%w: %w", ErrMalformedPDU, ErrBadSubtype)
	}
	m.RequesterPort = binary.BigEndian.Uint16(buf[4:6])
	copy(m.RequesterMAC[:], buf[6:12])
	m.TransactionID = binary.BigEndian.Uint32(buf[12:16])
	return m, nil
}

// Subtype inspects the first byte of a received payload to route it to
// the LACP or Marker decoder without a full parse.
func Subtype(buf []byte) (byte, error) {
	if len(buf) < 1 {
		return 0, fmt.Errorf("%w: %w", ErrMalformedPDU, ErrPacketTooShort)
	}
	return buf[0], nil
}

// IsLACPSubtype and IsMarkerSubtype are readability helpers over Subtype.
func IsLACPSubtype(b byte) bool   { return b == subtypeLACP }
func IsMarkerSubtype(b byte) bool { return b == subtypeMarker }
