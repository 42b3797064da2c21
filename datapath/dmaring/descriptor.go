// Transmit/receive descriptor layout, flags and marshaling for the DMA ring back-end
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dmaring implements the DMA back-end of the Data Path Engine
// (spec.md §4.5.2): used for G2_BusMaster, G3_Enhanced and G4_Advanced
// devices when DmaPolicy is DIRECT or TRANSLATE_VIA_SERVICE.
//
// Descriptor layout and the admin-queue-style "build descriptor, link via
// next_pointer, ring the doorbell" idiom are grounded on the teacher's
// kvm/gvnic package (tamago's gVNIC driver): descriptor structs marshaled
// with encoding/binary, a CPU-side ring cursor distinct from the
// hardware's, and pre-attached per-descriptor receive buffers.
package dmaring

import (
	"encoding/binary"

	"github.com/jfabienke/3com-packet-driver-sub005/internal/bits"
)

// descFlags bits (published EtherLink III bus-master descriptor format).
const (
	posLastFrag  = 31
	posDnComplete = 15 // TX: NIC sets on completion
	posUpComplete = 15 // RX: NIC sets on completion
	posUpError    = 14

	flagLastFrag  = 1 << posLastFrag
	flagDnComplete = 1 << posDnComplete
	flagUpComplete = 1 << posUpComplete
	flagUpError    = 1 << posUpError
)

// TxDescriptor is one entry of the 16-descriptor transmit ring (spec.md
// §4.5.2). NextPointer and FragAddr/FragLength are physical addresses;
// the CPU never dereferences them directly.
type TxDescriptor struct {
	NextPointer uint32
	FrameStatus uint32
	FragAddr    uint32
	FragLength  uint32
}

// RxDescriptor is one entry of the 32-descriptor receive ring, each with
// a pre-attached 1,536-byte dma_safe Buffer (spec.md §4.5.2).
type RxDescriptor struct {
	NextPointer uint32
	FrameStatus uint32
	FragAddr    uint32
	FragLength  uint32
}

const descriptorSize = 16 // 4 uint32 fields

// Complete reports whether the NIC has set the download-complete flag on a
// transmit descriptor's FrameStatus word.
func (d TxDescriptor) Complete() bool {
	return bits.IsSet(&d.FrameStatus, posDnComplete)
}

// Complete reports whether the NIC has set the upload-complete flag on a
// receive descriptor's FrameStatus word.
func (d RxDescriptor) Complete() bool {
	return bits.IsSet(&d.FrameStatus, posUpComplete)
}

// SetLastFrag marks FragLength's last-fragment bit: every descriptor in
// this single-fragment-per-frame ring is the last (and only) fragment of
// its frame.
func (d *TxDescriptor) SetLastFrag() {
	bits.Set(&d.FragLength, posLastFrag)
}

func marshalTx(d TxDescriptor, out []byte) {
	binary.LittleEndian.PutUint32(out[0:4], d.NextPointer)
	binary.LittleEndian.PutUint32(out[4:8], d.FrameStatus)
	binary.LittleEndian.PutUint32(out[8:12], d.FragAddr)
	binary.LittleEndian.PutUint32(out[12:16], d.FragLength)
}

func unmarshalTx(in []byte) TxDescriptor {
	return TxDescriptor{
		NextPointer: binary.LittleEndian.Uint32(in[0:4]),
		FrameStatus: binary.LittleEndian.Uint32(in[4:8]),
		FragAddr:    binary.LittleEndian.Uint32(in[8:12]),
		FragLength:  binary.LittleEndian.Uint32(in[12:16]),
	}
}

func marshalRx(d RxDescriptor, out []byte) {
	binary.LittleEndian.PutUint32(out[0:4], d.NextPointer)
	binary.LittleEndian.PutUint32(out[4:8], d.FrameStatus)
	binary.LittleEndian.PutUint32(out[8:12], d.FragAddr)
	binary.LittleEndian.PutUint32(out[12:16], d.FragLength)
}

func unmarshalRx(in []byte) RxDescriptor {
	return RxDescriptor{
		NextPointer: binary.LittleEndian.Uint32(in[0:4]),
		FrameStatus: binary.LittleEndian.Uint32(in[4:8]),
		FragAddr:    binary.LittleEndian.Uint32(in[8:12]),
		FragLength:  binary.LittleEndian.Uint32(in[12:16]),
	}
}
