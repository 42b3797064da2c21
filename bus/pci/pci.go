// Structured-bus (PCI) enumeration and BAR0 decoding
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pci implements the structured-bus half of the Bus Enumerator
// (spec.md §4.2): "enumerate (bus, device, function) triples; for each,
// read vendor and device identifiers; match against the table in §6 of
// supported device IDs; extract I/O base and interrupt line from the
// configuration header."
//
// Grounded on the teacher's soc/intel/pci package (tamago), generalized
// from a single hardcoded CONFIG_ADDRESS/CONFIG_DATA reg.In32/Out32 pair
// to the shared reg.Bus interface so enumeration is testable against a
// FakeBus.
package pci

import (
	"github.com/jfabienke/3com-packet-driver-sub005/internal/bits"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/reg"
)

const (
	ConfigAddress = 0x0CF8
	ConfigData    = 0x0CFC

	maxBuses   = 256
	maxDevices = 32
)

// Header Type 0x0 offsets (PCI Local Bus Specification rev 3.0).
const (
	offVendorID       = 0x00
	offBar0           = 0x10
	offInterruptLine  = 0x3C
)

// Device is a probed structured-bus device: its config-space coordinates
// plus the fields the Capability Resolver and Device record need.
type Device struct {
	Bus, Slot    uint32
	Vendor, ID   uint16
	IOBase       uint16
	IRQ          int
}

func address(busN, slot, fn, off uint32) uint32 {
	return 1<<31 | busN<<16 | slot<<11 | fn<<8 | off&0xFC
}

func read32(bus reg.Bus, busN, slot, fn, off uint32) uint32 {
	bus.Out32(ConfigAddress, address(busN, slot, fn, off))
	return bus.In32(ConfigData) >> ((off & 2) * 8)
}

// probe reads a (bus, slot) function-0 vendor/device pair, reporting
// false if no device answers (vendor ID 0xFFFF).
func probe(bus reg.Bus, busN, slot uint32) (Device, bool) {
	val := read32(bus, busN, slot, 0, offVendorID)
	vendor := uint16(val)
	if vendor == 0xFFFF {
		return Device{}, false
	}

	d := Device{
		Bus:    busN,
		Slot:   slot,
		Vendor: vendor,
		ID:     uint16(val >> 16),
	}

	bar0 := read32(bus, busN, slot, 0, offBar0)
	if bits.Get(&bar0, 0, 0x1) == 1 {
		// I/O space BAR: bits 2..31 hold the base, bit 0 is the
		// space-indicator flag.
		d.IOBase = uint16(bar0 &^ 0x3)
	}

	irqLine := read32(bus, busN, slot, 0, offInterruptLine)
	d.IRQ = int(irqLine & 0xFF)

	return d, true
}

// Enumerate walks every (bus, device) slot on the structured bus and
// returns every device whose vendor ID is vendorID, restricted to those
// whose device ID is accepted by knownDevice (the §6 device table).
func Enumerate(bus reg.Bus, vendorID uint16, knownDevice func(deviceID uint16) bool) []Device {
	var found []Device

	for busN := uint32(0); busN < maxBuses; busN++ {
		any := false

		for slot := uint32(0); slot < maxDevices; slot++ {
			d, ok := probe(bus, busN, slot)
			if !ok {
				continue
			}

			any = true

			if d.Vendor == vendorID && knownDevice(d.ID) {
				found = append(found, d)
			}
		}

		// A bus with no responding device at all past bus 0 is not
		// worth continuing to scan; real topology is discovered via
		// bridge headers, which this driver's scope (spec.md
		// Non-goals) does not need since every known EtherLink III
		// device lives on bus 0.
		if !any && busN > 0 {
			break
		}
	}

	return found
}
