// Programmed-I/O data path back-end: FIFO transmit/receive and self-tuning thresholds
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pio implements the PIO back-end of the Data Path Engine
// (spec.md §4.5.1): used for G1_Basic devices and as the mandatory
// fallback for every generation when DmaPolicy is FORBIDDEN.
//
// Grounded on the teacher's register-access idiom (internal/reg's
// Bus/poll primitives) generalized from MMIO register reads to the
// legacy NIC's FIFO port protocol; there is no teacher FIFO driver to
// adapt directly, so the FIFO read/write loop follows spec.md §4.5.1's
// word-at-a-time description directly.
package pio

import (
	"sync"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/reg"
)

// Window 1 register offsets (window-relative, spec.md §6).
const (
	offFIFO       = 0x00 // shared TX/RX FIFO data port
	offTxFree     = 0x0C // "free bytes" in the TX FIFO
	offRxStatus   = 0x08
)

const (
	copyBreakThreshold = 200
	softwareQueueDepth = 8

	initialStartThreshold = 512
)

// Backend implements el3.DataPath using programmed I/O.
type Backend struct {
	mu sync.Mutex

	dev *el3.Device
	bus reg.Bus

	startThreshold int
	txQueue        [][]byte // software queue of frames held for FIFO space

	nextTicket el3.TxTicket
	pending    map[el3.TxTicket][]byte
}

// NewBackend constructs a PIO back-end bound to dev, operating over bus.
func NewBackend(dev *el3.Device, bus reg.Bus) *Backend {
	return &Backend{
		dev:            dev,
		bus:            bus,
		startThreshold: initialStartThreshold,
		pending:        make(map[el3.TxTicket][]byte),
	}
}

func (b *Backend) selectWindow1() {
	b.dev.SelectWindow(1, func(n int) {
		b.bus.Out16(b.dev.IOBase+0xE, el3.Command(el3.CmdSelectWindow, uint16(n)))
	})
}

// Transmit writes frame.Data to the TX FIFO (spec.md §4.5.1): a 4-byte
// prefix (length, IRQ-request bits), the frame word-by-word, and a
// trailing odd byte if the length is odd. If the FIFO does not report
// enough free space the frame is queued in software (depth
// softwareQueueDepth) instead of written immediately.
func (b *Backend) Transmit(frame *el3.Frame) (el3.TxTicket, error) {
	if err := frame.Validate(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.selectWindow1()

	needed := len(frame.Data) + 4
	free := b.bus.In16(b.dev.IOBase + offTxFree)

	if int(free) < needed {
		if len(b.txQueue) >= softwareQueueDepth {
			return 0, el3.NewError(el3.ErrQueueFull, nil)
		}

		b.txQueue = append(b.txQueue, frame.Data)
		b.armThresholdInterrupt()

		ticket := b.nextTicket
		b.nextTicket++
		b.pending[ticket] = frame.Data
		return ticket, nil
	}

	b.writeFIFO(frame.Data)

	ticket := b.nextTicket
	b.nextTicket++
	b.pending[ticket] = frame.Data

	return ticket, nil
}

func (b *Backend) writeFIFO(data []byte) {
	irqReqBits := uint16(0)
	prefix := uint16(len(data)) | irqReqBits

	b.bus.Out16(b.dev.IOBase+offFIFO, prefix)
	b.bus.Out16(b.dev.IOBase+offFIFO, 0) // reserved word of the 4-byte prefix

	i := 0
	for ; i+1 < len(data); i += 2 {
		word := uint16(data[i]) | uint16(data[i+1])<<8
		b.bus.Out16(b.dev.IOBase+offFIFO, word)
	}
	if i < len(data) {
		b.bus.Out8(b.dev.IOBase+offFIFO, data[i])
	}

	b.bus.Out16(b.dev.IOBase+0xE, el3.Command(el3.CmdTxEnable, 0))
}

// armThresholdInterrupt requests a notification once enough FIFO space
// frees up to drain the software queue (spec.md §4.5.1).
func (b *Backend) armThresholdInterrupt() {
	b.bus.Out16(b.dev.IOBase+0xE, el3.Command(el3.CmdSetTxAvailThresh, uint16(b.startThreshold)))
}

// drainQueue is called from InterruptWork when TX_AVAILABLE fires,
// flushing any software-queued frames that now fit.
func (b *Backend) drainQueue() {
	for len(b.txQueue) > 0 {
		frame := b.txQueue[0]

		free := b.bus.In16(b.dev.IOBase + offTxFree)
		if int(free) < len(frame)+4 {
			return
		}

		b.writeFIFO(frame)
		b.txQueue = b.txQueue[1:]
	}
}

// ReceivePoll reads window 1's RX status and, if a complete frame is
// waiting, reads it from the FIFO and issues the discard-top-packet
// command (spec.md §4.5.1).
func (b *Backend) ReceivePoll() (*el3.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.selectWindow1()

	status := b.bus.In16(b.dev.IOBase + offRxStatus)
	if status&el3.StatusRxComplete == 0 {
		return nil, false
	}

	length := int(status & 0x07FF)

	data := make([]byte, length)
	i := 0
	for ; i+1 < length; i += 2 {
		word := b.bus.In16(b.dev.IOBase + offFIFO)
		data[i] = byte(word)
		data[i+1] = byte(word >> 8)
	}
	if i < length {
		data[i] = b.bus.In8(b.dev.IOBase + offFIFO)
	}

	b.bus.Out16(b.dev.IOBase+0xE, el3.Command(el3.CmdRxDiscardTop, 0))

	frame := &el3.Frame{Data: data, Direction: el3.DirectionRX}

	return frame, true
}

// InterruptWork drains any software-queued transmit frames once FIFO
// space becomes available (spec.md §4.5.1). Start-threshold tuning on
// underrun is done by NotifyUnderrun, not here.
func (b *Backend) InterruptWork(status uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if status&el3.StatusTxAvailable != 0 {
		b.drainQueue()
	}
}

// NotifyUnderrun doubles the start threshold on a FIFO_UNDERRUN, the
// self-tuning behavior spec.md §4.5.1 mandates.
func (b *Backend) NotifyUnderrun() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.startThreshold *= 2
	b.dev.Stats.IncFIFOUnderruns()
	b.selectWindow1()
	b.bus.Out16(b.dev.IOBase+0xE, el3.Command(el3.CmdSetTxStartThresh, uint16(b.startThreshold)))
}

// StartThreshold reports the current self-tuned value, for tests.
func (b *Backend) StartThreshold() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startThreshold
}

// CopyBreak reports whether a receive of the given length would use the
// short-term pool (true) or the long-term buffer (false), per the
// copy-break threshold of 200 bytes (spec.md §4.5.1).
func CopyBreak(length int) bool {
	return length < copyBreakThreshold
}
