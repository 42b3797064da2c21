// 8259 cascade controller: acknowledgment, EOI ordering, spurious-interrupt handling
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package irq

// Controller abstracts one 8259-style interrupt controller: reading its
// in-service register (for spurious-interrupt detection, spec.md §4.6
// step 5) and signaling end-of-interrupt. Grounded on the teacher's
// apic.LAPIC.ClearInterrupt (a single register-write EOI), generalized
// to the master/slave cascade the spec requires.
type Controller interface {
	// InService reports whether the given IRQ line (0-7, relative to
	// this controller) is currently marked in-service.
	InService(line int) bool
	// EOI signals end-of-interrupt to this controller.
	EOI()
}

// Cascade pairs a master and slave 8259-equivalent, the layout spec.md
// §4.6 assumes ("if the device is on a cascaded controller, signal both
// controllers in the order: slave first, then master").
type Cascade struct {
	Master Controller
	Slave  Controller
}

// masterSpuriousLine and slaveSpuriousLine are the IRQ lines (spec.md
// §4.6 step 5) reserved as each controller's spurious vector.
const (
	masterSpuriousLine = 7
	slaveSpuriousLine  = 15
)

// IsSpurious reports whether line is a spurious-vector candidate and, if
// so, whether the owning controller's in-service register confirms no
// real interrupt is pending.
func (c *Cascade) IsSpurious(line int) bool {
	switch line {
	case masterSpuriousLine:
		return c.Master != nil && !c.Master.InService(masterSpuriousLine)
	case slaveSpuriousLine:
		return c.Slave != nil && !c.Slave.InService(slaveSpuriousLine%8)
	default:
		return false
	}
}

// SignalEOI performs the cascade's slave-then-master EOI ordering
// (spec.md §4.6 step 4). onSlave indicates whether line originated on
// the slave controller (IRQ 8-15).
func (c *Cascade) SignalEOI(onSlave bool) {
	if onSlave && c.Slave != nil {
		c.Slave.EOI()
	}
	if c.Master != nil {
		c.Master.EOI()
	}
}
