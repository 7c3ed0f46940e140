// Package netio provides raw Ethernet frame I/O for LACP/Marker
// Slow-Protocols frames (EtherType 0x8809), using golang.org/x/sys/unix
// AF_PACKET sockets and a golang.org/x/net/bpf kernel-side filter so
// only Slow-Protocols traffic ever reaches the daemon.
package netio
