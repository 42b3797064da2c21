// Tests for the interrupt worker
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package irq

import (
	"testing"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/stretchr/testify/assert"
)

func TestWorkerDispatchesEachKind(t *testing.T) {
	dev := el3.NewDevice(0x300, 10, el3.BusLegacy)
	ring := NewRing()

	var rxCount int
	var gotTicket el3.TxTicket
	var gotErr el3.ErrKind
	var gotStats el3.Stats

	w := &Worker{
		Dev:  dev,
		Ring: ring,
		OnRXFrame:    func() { rxCount++ },
		OnTXComplete: func(t el3.TxTicket) { gotTicket = t },
		OnError:      func(k el3.ErrKind, _ uint32) { gotErr = k },
		OnStats:      func(s el3.Stats) { gotStats = s },
	}

	ring.Push(el3.WorkItem{Kind: el3.WorkRXFrame})
	ring.Push(el3.WorkItem{Kind: el3.WorkTXComplete, TXTicket: 7})
	ring.Push(el3.WorkItem{Kind: el3.WorkError, ErrKind: el3.ErrRingStall})
	ring.Push(el3.WorkItem{Kind: el3.WorkStats, StatsSnapshot: el3.Stats{RXOK: 42}})

	n := w.Run()

	assert.Equal(t, 4, n)
	assert.Equal(t, 1, rxCount)
	assert.Equal(t, el3.TxTicket(7), gotTicket)
	assert.Equal(t, el3.ErrRingStall, gotErr)
	assert.Equal(t, uint64(42), gotStats.RXOK)
}

func TestWorkerRunOnEmptyRingReturnsZero(t *testing.T) {
	dev := el3.NewDevice(0x300, 10, el3.BusLegacy)
	w := &Worker{Dev: dev, Ring: NewRing()}
	assert.Equal(t, 0, w.Run())
}

func TestWorkerNilHandlersAreSafe(t *testing.T) {
	dev := el3.NewDevice(0x300, 10, el3.BusLegacy)
	ring := NewRing()
	ring.Push(el3.WorkItem{Kind: el3.WorkRXFrame})

	w := &Worker{Dev: dev, Ring: ring}
	assert.Equal(t, 1, w.Run())
}
