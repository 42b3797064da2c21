// Shared device data model and state machine
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package el3 holds the data model shared by every component of the
// EtherLink III packet driver core: the Device record and its state
// machine, Frame/Handle/Stats, and the DmaPolicy/CachePolicy enumerations
// the Platform Probe fixes once at startup.
//
// The name follows the card family's own shorthand ("3C5xx" / "EL3").
package el3

import (
	"fmt"
	"sync"
)

// Generation classifies a resolved device into one of four capability
// tiers, immutable once the Capability Resolver has run (spec.md §3, §4.3).
type Generation int

const (
	GenUnknown Generation = iota
	G1Basic
	G2BusMaster
	G3Enhanced
	G4Advanced
)

func (g Generation) String() string {
	switch g {
	case G1Basic:
		return "G1_Basic"
	case G2BusMaster:
		return "G2_BusMaster"
	case G3Enhanced:
		return "G3_Enhanced"
	case G4Advanced:
		return "G4_Advanced"
	default:
		return "unknown"
	}
}

// Capability is a single bit of Device.Capabilities.
type Capability uint16

const (
	CapBusMaster Capability = 1 << iota
	CapPermanentWindow1
	CapFullDuplex
	CapFlowControl
	CapHWChecksum
	CapWakeOnLAN
	CapMIIAutoneg
	CapLargeFIFO
)

// CapabilitiesFor returns the monotonic capability set for a generation,
// per the table in spec.md §4.3 step 4.
func CapabilitiesFor(g Generation) Capability {
	var c Capability

	switch {
	case g >= G4Advanced:
		c |= CapHWChecksum | CapWakeOnLAN | CapFullDuplex
		fallthrough
	case g >= G3Enhanced:
		c |= CapPermanentWindow1 | CapFlowControl | CapMIIAutoneg
		fallthrough
	case g >= G2BusMaster:
		c |= CapBusMaster | CapLargeFIFO
	}

	return c
}

// Has reports whether every bit in want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// State is a Device's lifecycle position (spec.md §3).
type State int

const (
	Uninit State = iota
	Probed
	Configured
	Active
	Suspended
	Failed
)

func (s State) String() string {
	switch s {
	case Uninit:
		return "Uninit"
	case Probed:
		return "Probed"
	case Configured:
		return "Configured"
	case Active:
		return "Active"
	case Suspended:
		return "Suspended"
	case Failed:
		return "Failed"
	default:
		return "?"
	}
}

// BusKind distinguishes the two bus protocols a Device may have been
// discovered on (spec.md §4.2); it does not affect runtime register
// access (both expose the same 16-byte window-relative layout) but does
// affect the DMA addressing ceiling (spec.md §4.4).
type BusKind int

const (
	BusLegacy BusKind = iota
	BusStructured
)

// DataPath is the back-end bound to a Device (spec.md §4.5).
type DataPath interface {
	Transmit(frame *Frame) (TxTicket, error)
	ReceivePoll() (*Frame, bool)
	InterruptWork(status uint16)
}

// TxTicket identifies a submitted transmit request so completion can later
// be correlated to it (used by TX_COMPLETE WorkItems).
type TxTicket uint32

// Device is the runtime representation of one NIC (spec.md §3). Field
// mutation outside of the documented transition points is a programming
// error; callers hold Lock (the cooperative lock of spec.md §5) around any
// multi-field transition.
type Device struct {
	mu sync.Mutex

	IOBase uint16
	IRQ    int
	Bus    BusKind

	Generation   Generation
	Capabilities Capability
	MAC          [6]byte

	// CurrentWindow mirrors the last "select window N" command issued;
	// devices with CapPermanentWindow1 never need it updated for window 1
	// accesses (spec.md §5).
	CurrentWindow int

	state State

	DmaPolicy   DmaPolicy
	CachePolicy CachePolicy

	Path DataPath

	// ReceiveMode is the Device-wide filtering mode set by
	// SetReceiveMode (spec.md §4.7).
	ReceiveMode ReceiveMode

	Stats Stats

	// cooperativeLock serializes Host API Multiplexer operations on this
	// Device; only the Worker acquires it (spec.md §5, §4.7).
	cooperativeLock sync.Mutex
}

// NewDevice constructs a Device in the Uninit state.
func NewDevice(ioBase uint16, irq int, bus BusKind) *Device {
	return &Device{IOBase: ioBase, IRQ: irq, Bus: bus, state: Uninit}
}

// State returns the Device's current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// transitions enumerates the lifecycle edges spec.md §3/§7 allow; anything
// else is rejected by SetState.
var transitions = map[State]map[State]bool{
	Uninit:     {Probed: true, Failed: true},
	Probed:     {Configured: true, Failed: true},
	Configured: {Active: true, Failed: true},
	Active:     {Suspended: true, Failed: true},
	Suspended:  {Active: true, Failed: true},
	Failed:     {},
}

// SetState performs a validated state transition, returning an error if
// the edge is not one of the lifecycle transitions spec.md §3/§7 define.
// Failed is always reachable (any component may fail a Device).
func (d *Device) SetState(next State) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if next == Failed {
		d.state = Failed
		return nil
	}

	if !transitions[d.state][next] {
		return fmt.Errorf("el3: invalid transition %s -> %s", d.state, next)
	}

	d.state = next
	return nil
}

// SelectWindow issues a "select window N" command unless it is already the
// current window, or the Device has CapPermanentWindow1 and N == 1
// (spec.md §5). windowSelect performs the actual register write.
func (d *Device) SelectWindow(n int, windowSelect func(int)) {
	if n == 1 && d.Capabilities.Has(CapPermanentWindow1) {
		return
	}

	d.mu.Lock()
	cur := d.CurrentWindow
	d.mu.Unlock()

	if cur == n {
		return
	}

	windowSelect(n)

	d.mu.Lock()
	d.CurrentWindow = n
	d.mu.Unlock()
}

// Lock acquires the Device's cooperative lock, held only by the Worker
// around Host API Multiplexer dispatch (spec.md §5).
func (d *Device) Lock() { d.cooperativeLock.Lock() }

// Unlock releases the cooperative lock.
func (d *Device) Unlock() { d.cooperativeLock.Unlock() }
