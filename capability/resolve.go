// Capability resolution orchestration: EEPROM read, checksum, classification
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package capability

import (
	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/log"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/reg"
)

// Logger receives Resolve's failure records; the embedder may replace it
// before probing any Device. Defaults to discarding everything.
var Logger = log.Discard

// Resolve implements the Capability Resolver's full procedure (spec.md
// §4.3) against an already-enumerated Device: it reads the EEPROM,
// verifies its checksum, classifies the generation from the product ID
// (using productIDGen, which differs between legacy and structured bus),
// derives the capability bit-set, and stores the station address.
//
// On success dev.Generation, dev.Capabilities and dev.MAC are populated
// and dev.State is left for the caller to advance to Configured. On
// failure dev.State is set to Failed and the returned error carries the
// ErrKind spec.md §7 assigns to Capability Resolver failures.
func Resolve(dev *el3.Device, bus reg.Bus, productIDGen func(productID uint16) el3.Generation) error {
	words, err := ReadEEPROM(bus, dev.IOBase)
	if err != nil {
		dev.SetState(el3.Failed)
		Logger.Errorf("capability", "EEPROM_TIMEOUT", "ioBase=%#x: %v", dev.IOBase, err)
		return err
	}

	if !VerifyChecksum(words) {
		dev.SetState(el3.Failed)
		Logger.Errorf("capability", "EEPROM_CHECKSUM", "ioBase=%#x words=%v", dev.IOBase, words)
		return el3.NewError(el3.ErrEEPROMChecksum, nil)
	}

	gen := productIDGen(ProductID(words))
	if gen == el3.GenUnknown {
		dev.SetState(el3.Failed)
		Logger.Errorf("capability", "NO_DEVICE", "ioBase=%#x productID=%#x not recognized", dev.IOBase, ProductID(words))
		return el3.NewError(el3.ErrNoDevice, nil)
	}

	dev.Generation = gen
	dev.Capabilities = el3.CapabilitiesFor(gen)
	dev.MAC = StationAddress(words)

	return nil
}
