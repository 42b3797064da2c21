// Handle and ticket types shared across the core
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package el3

// HandleID identifies a client registration (spec.md §3). Zero is never a
// valid id; MaxHandles bounds the table as an implementation-defined
// maximum of 16, matching the "typically 16" note in spec.md §3.
type HandleID uint32

const MaxHandles = 16

// ReceiveMode is the Device-wide filtering mode set by SetReceiveMode
// (spec.md §4.7).
type ReceiveMode int

const (
	ModeOff ReceiveMode = iota
	ModeDirect
	ModeDirectBroadcast
	ModeDirectBroadcastMulticast
	ModePromiscuous
)

// PromiscuousEthertype is the ethertype mask value meaning "promiscuous for
// this handle" (spec.md §4.7 dispatch rule).
const PromiscuousEthertype = 0xFFFF

// ReceiveCallback is invoked by the Worker (never re-entrantly into the
// Multiplexer on the same Device, spec.md §4.7) for each frame dispatched
// to a Handle.
type ReceiveCallback func(frame *Frame)

// Handle is a client registration (spec.md §3).
type Handle struct {
	ID            HandleID
	EthertypeMask uint16
	Callback      ReceiveCallback
	OwnerTag      string

	ReceivedCount uint64
	DroppedCount  uint64

	released bool
}

// Matches reports whether this Handle should receive a frame of the given
// ethertype, per the dispatch rule of spec.md §4.7.
func (h *Handle) Matches(ethertype uint16) bool {
	if h.released {
		return false
	}
	return h.EthertypeMask == PromiscuousEthertype || h.EthertypeMask == ethertype
}
