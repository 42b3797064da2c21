// In-memory fake Bus for tests
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import "sync"

// FakeBus is an in-memory stand-in for a 64KB I/O port space, used by unit
// tests to drive the Bus Enumerator, Capability Resolver and Data Path
// Engine without real hardware. A write is stored and returned by later
// reads of the same port, and a port never written reads zero, unless a
// Trap's OnIn or OnOut handles that access instead.
type FakeBus struct {
	mu    sync.Mutex
	ports [65536]uint32

	// Traps allow a test to observe or react to accesses on a specific
	// port (e.g. simulating a FIFO or a command register side effect).
	traps map[uint16]Trap
}

// Trap intercepts reads and writes on a single port.
type Trap struct {
	OnIn  func(width int) uint32
	OnOut func(width int, val uint32)
}

// NewFakeBus returns an empty fake port space.
func NewFakeBus() *FakeBus {
	return &FakeBus{traps: make(map[uint16]Trap)}
}

// SetTrap installs a trap for the given port, overriding default
// read-back-what-was-written behavior.
func (b *FakeBus) SetTrap(port uint16, t Trap) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.traps[port] = t
}

// Poke sets a port's stored value directly, without going through a trap.
func (b *FakeBus) Poke(port uint16, val uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ports[port] = val
}

// Peek returns a port's stored value directly, without going through a trap.
func (b *FakeBus) Peek(port uint16) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ports[port]
}

func (b *FakeBus) in(port uint16, width int) uint32 {
	b.mu.Lock()
	t, ok := b.traps[port]
	b.mu.Unlock()

	if ok && t.OnIn != nil {
		return t.OnIn(width)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ports[port]
}

func (b *FakeBus) out(port uint16, width int, val uint32) {
	b.mu.Lock()
	t, ok := b.traps[port]
	b.mu.Unlock()

	if ok && t.OnOut != nil {
		t.OnOut(width, val)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.ports[port] = val
}

func (b *FakeBus) In8(port uint16) uint8   { return uint8(b.in(port, 1)) }
func (b *FakeBus) In16(port uint16) uint16 { return uint16(b.in(port, 2)) }
func (b *FakeBus) In32(port uint16) uint32 { return b.in(port, 4) }

func (b *FakeBus) Out8(port uint16, val uint8)   { b.out(port, 1, uint32(val)) }
func (b *FakeBus) Out16(port uint16, val uint16) { b.out(port, 2, uint32(val)) }
func (b *FakeBus) Out32(port uint16, val uint32) { b.out(port, 4, val) }
