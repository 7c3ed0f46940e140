//go:build linux

package netio

import (
	"fmt"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// attachSlowProtocolsFilter installs a classic BPF program on fd that
// accepts only frames whose EtherType (offset 12, 2 bytes) equals
// 0x8809, dropping everything else in-kernel before it reaches
// userspace (spec.md §4.5 "Ingress filter": reject anything but
// Slow-Protocols at the earliest possible point).
func attachSlowProtocolsFilter(fd int) error {
	raw, err := bpf.Assemble([]bpf.Instruction{
		// A <- EtherType (big-endian half-word at offset 12)
		bpf.LoadAbsolute{Off: 12, Size: 2},
		// if A == 0x8809 skip next instruction (accept)
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: EtherTypeSlowProtocols, SkipTrue: 1},
		// reject: return 0 (truncate to zero bytes captured)
		bpf.RetConstant{Val: 0},
		// accept: return the whole frame
		bpf.RetConstant{Val: 0xffff},
	})
	if err != nil {
		return fmt.Errorf("assemble BPF program: %w", err)
	}

	filters := make([]unix.SockFilter, len(raw))
	for i, instr := range raw {
		filters[i] = unix.SockFilter{
			Code: instr.Op,
			Jt:   instr.Jt,
			Jf:   instr.Jf,
			K:    instr.K,
		}
	}

	prog := unix.SockFprog{
		Len:    uint16(len(filters)),
		Filter: &filters[0],
	}

	if err := unix.SetsockoptSockFprog(fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog); err != nil {
		return fmt.Errorf("SO_ATTACH_FILTER: %w", err)
	}
	return nil
}
