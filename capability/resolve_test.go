// Tests for capability resolution orchestration
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package capability

import (
	"testing"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/reg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSuccess(t *testing.T) {
	mac := [6]byte{0x02, 0x60, 0x8C, 0x11, 0x22, 0x33}
	words := wordsFixture(0x6055, mac)

	bus := reg.NewFakeBus()
	installEEPROM(bus, testIOBase, words)

	dev := el3.NewDevice(testIOBase, 10, el3.BusLegacy)
	require.NoError(t, dev.SetState(el3.Probed))

	err := Resolve(dev, bus, LegacyGeneration)
	require.NoError(t, err)

	assert.Equal(t, el3.G1Basic, dev.Generation)
	assert.Equal(t, mac, dev.MAC)
	assert.False(t, dev.Capabilities.Has(el3.CapBusMaster))
}

func TestResolveChecksumFailureFailsDevice(t *testing.T) {
	words := wordsFixture(0x9050, [6]byte{1, 2, 3, 4, 5, 6})
	words[5] ^= 0x00FF // corrupt after checksum computed

	bus := reg.NewFakeBus()
	installEEPROM(bus, testIOBase, words)

	dev := el3.NewDevice(testIOBase, 10, el3.BusLegacy)
	require.NoError(t, dev.SetState(el3.Probed))

	err := Resolve(dev, bus, LegacyGeneration)
	require.Error(t, err)

	var elErr *el3.Error
	require.ErrorAs(t, err, &elErr)
	assert.Equal(t, el3.ErrEEPROMChecksum, elErr.Kind)
	assert.Equal(t, el3.Failed, dev.State())
}

func TestResolveUnknownProductIDFailsDevice(t *testing.T) {
	words := wordsFixture(0xBEEF, [6]byte{1, 2, 3, 4, 5, 6})

	bus := reg.NewFakeBus()
	installEEPROM(bus, testIOBase, words)

	dev := el3.NewDevice(testIOBase, 10, el3.BusLegacy)
	require.NoError(t, dev.SetState(el3.Probed))

	err := Resolve(dev, bus, LegacyGeneration)
	require.Error(t, err)
	assert.Equal(t, el3.Failed, dev.State())
}
