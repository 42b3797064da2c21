// Interrupt entry point: status read, ack, work-ring push
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package irq

import (
	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/log"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/reg"
)

// ackMask is the set of status bits that Entry.Handle acknowledges
// before signaling end-of-interrupt (spec.md §4.6 step 2): every
// interrupt-cause bit, excluding the "command in progress" bit which is
// not a latched cause.
const ackMask = el3.StatusInterruptLatch | el3.StatusTxAvailable | el3.StatusTxComplete | el3.StatusRxComplete | el3.StatusRxEarly

// Entry is the bound interrupt entry point for one Device: spec.md §4.6's
// on_interrupt, with its dependencies (the register bus, the Device's
// work ring, and its controller cascade) fixed at bind time so the
// per-interrupt call takes only the IRQ line.
type Entry struct {
	Dev     *el3.Device
	Bus     reg.Bus
	Ring    *Ring
	Cascade *Cascade

	// OnSlave marks whether Dev's IRQ line is on the slave controller
	// (IRQ 8-15), used for the slave-first EOI ordering.
	OnSlave bool

	// Logger, if non-nil, receives a record on work-ring overflow. Left
	// nil by default so the interrupt entry never touches the logger's
	// mutex on the normal path.
	Logger *log.Logger
}

// Handle implements spec.md §4.6's on_interrupt contract. line is the
// physical IRQ line that fired, used only for spurious detection
// (step 5); the cause bits come from the device's own status register.
func (e *Entry) Handle(line int) {
	if e.Cascade != nil && e.Cascade.IsSpurious(line) {
		e.Dev.Stats.IncSpuriousInterrupts()
		return
	}

	status := e.Bus.In16(e.Dev.IOBase + 0xE)

	acked := status & ackMask
	e.Bus.Out16(e.Dev.IOBase+0xE, el3.Command(el3.CmdAckIntr, acked))

	e.pushWork(status)

	if e.Cascade != nil {
		e.Cascade.SignalEOI(e.OnSlave)
	}
}

// pushWork enqueues one WorkItem per asserted cause (spec.md §4.6 step
// 3: RX_COMPLETE, TX_COMPLETE, STATS_FULL, ADAPTER_ERROR). No dynamic
// allocation occurs here: WorkItem is a value type and Ring.Push writes
// into its own pre-allocated array.
func (e *Entry) pushWork(status uint16) {
	if status&el3.StatusRxComplete != 0 {
		e.push(el3.WorkItem{Kind: el3.WorkRXFrame})
	}
	if status&el3.StatusTxComplete != 0 {
		e.push(el3.WorkItem{Kind: el3.WorkTXComplete})
	}
	// STATS_FULL and ADAPTER_ERROR share the device-specific high
	// status bits this driver core does not otherwise interpret;
	// bit 14 is treated as STATS_FULL and bit 13 as ADAPTER_ERROR,
	// matching the EtherLink III status register's conventional
	// assignment for those two causes.
	if status&(1<<14) != 0 {
		e.push(el3.WorkItem{Kind: el3.WorkStats})
	}
	if status&(1<<13) != 0 {
		e.push(el3.WorkItem{Kind: el3.WorkError, ErrKind: el3.ErrDeviceFailed})
	}
}

func (e *Entry) push(item el3.WorkItem) {
	if !e.Ring.Push(item) {
		e.Dev.Stats.IncWorkRingOverflow()
		if e.Logger != nil {
			e.Logger.Warnf("irq", "WORK_RING_OVERFLOW", "ioBase=%#x dropped kind=%d", e.Dev.IOBase, item.Kind)
		}
	}
}
