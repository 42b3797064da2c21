// Interrupt work-item types shared between the ring and the worker
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package el3

// WorkKind discriminates a WorkItem's payload (spec.md §3).
type WorkKind int

const (
	WorkRXFrame WorkKind = iota
	WorkTXComplete
	WorkError
	WorkStats
)

// WorkItem is produced by the Interrupt Core and consumed by the Worker
// (spec.md §3). It is a plain value (no pointers into hardware state) so
// it can be copied into the SPSC ring without allocation.
type WorkItem struct {
	Kind WorkKind

	// RX_FRAME
	RXLength int
	RXBuf    []byte

	// TX_COMPLETE
	TXTicket TxTicket

	// ERROR
	ErrKind ErrKind
	ErrData uint32

	// STATS
	StatsSnapshot Stats
}
