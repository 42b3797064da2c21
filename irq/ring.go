// Fixed-capacity single-producer/single-consumer interrupt work ring
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package irq implements the Interrupt Core (spec.md §4.6): the minimal
// interrupt entry point, its single-producer/single-consumer work ring,
// and the cooperative Worker that drains it.
//
// Grounded on the teacher's amd64.CPU.ServiceInterrupts (tamago), which
// registers a single user ISR function invoked per interrupt number from
// a dedicated goroutine; this package keeps that "isr func(int)"
// registration idiom for OnInterrupt's entry point while replacing the
// teacher's IDT/LAPIC plumbing with the spec's device-status-register and
// 8259-style cascade handling.
package irq

import (
	"sync/atomic"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
)

// ringCapacity is the fixed capacity of the work ring (spec.md §4.6).
const ringCapacity = 32

// Ring is a fixed-capacity single-producer/single-consumer queue of
// el3.WorkItem. The producer is the interrupt entry point (Entry.Handle);
// the consumer is the Worker. No dynamic allocation occurs in Push: the
// backing array is allocated once at construction.
//
// On overflow the oldest item is preserved and the new item is dropped,
// per spec.md §4.6 ("On overflow, the oldest item is preserved and new
// items are counted as dropped").
type Ring struct {
	items [ringCapacity]el3.WorkItem

	// head is the next slot Push will write (producer-owned).
	// tail is the next slot Pop will read (consumer-owned).
	// Both only ever increase; occupancy is head-tail, never reduced by
	// count so atomic inc/load is all that is needed (spec.md §5: no
	// channels on the interrupt-entry hot path).
	head uint32
	tail uint32
}

// NewRing constructs an empty work ring.
func NewRing() *Ring { return &Ring{} }

// Push attempts to enqueue item. It returns false (dropped) if the ring
// is full, in which case the caller must increment the Device's
// WorkRingOverflow stat.
func (r *Ring) Push(item el3.WorkItem) bool {
	head := atomic.LoadUint32(&r.head)
	tail := atomic.LoadUint32(&r.tail)

	if head-tail >= ringCapacity {
		return false
	}

	r.items[head%ringCapacity] = item
	atomic.StoreUint32(&r.head, head+1)

	return true
}

// Pop dequeues the oldest item, reporting false if the ring is empty.
func (r *Ring) Pop() (el3.WorkItem, bool) {
	tail := atomic.LoadUint32(&r.tail)
	head := atomic.LoadUint32(&r.head)

	if tail == head {
		return el3.WorkItem{}, false
	}

	item := r.items[tail%ringCapacity]
	atomic.StoreUint32(&r.tail, tail+1)

	return item, true
}

// Len reports the number of items currently queued.
func (r *Ring) Len() int {
	return int(atomic.LoadUint32(&r.head) - atomic.LoadUint32(&r.tail))
}
