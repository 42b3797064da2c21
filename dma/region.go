// DMA-safe memory Region: allocation, release and buffer bookkeeping
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dma implements the DMA Safety Layer (spec.md §4.4): the most
// safety-critical component of the core, and the exclusive owner of every
// buffer the NIC may touch.
//
// The first-fit allocator is adapted from the teacher's Region type
// (tamago's `dma` package), generalized with the spec's addressability,
// alignment, boundary non-crossing, pinning and cache-coherency
// constraints layered on top.
package dma

import (
	"container/list"
	"fmt"
	"sync"
	"unsafe"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/log"
)

// Purpose records why a Buffer was allocated, used only to pick the
// alignment floor (descriptor rings need 16-byte alignment; everything
// else needs the 4-byte word alignment spec.md §4.4 mandates as a
// minimum).
type Purpose int

const (
	PurposeGeneric Purpose = iota
	PurposeDescriptorRing
	PurposeTXBuffer
	PurposeRXBuffer
)

// boundary is the 64KB physical boundary no single dma_safe Buffer may
// cross (spec.md §4.4).
const boundary = 0x10000

// block is a node of the Region's free/used lists.
type block struct {
	addr uint64
	size int
}

// Region represents a pool of memory available for DMA allocation. Unlike
// the teacher's Region, which assumes a single flat bare-metal address
// space, this Region carries its own backing store (mem) so it can run
// hosted in a test binary; Start is the synthetic physical base address
// simulated devices see.
type Region struct {
	mu sync.Mutex

	Start       uint64
	Size        int
	AddressBits int // 24 (legacy bus) or 32 (structured bus)

	DmaPolicy    el3.DmaPolicy
	CachePolicy  el3.CachePolicy
	Pinner       Pinner
	CoherencyOps Coherency

	// Logger receives the degraded-mode record SelfTest emits on a
	// downgrade; defaults to log.Discard when left nil.
	Logger *log.Logger

	mem []byte

	freeBlocks *list.List
	usedBlocks map[uint64]*block
}

// NewRegion constructs a Region covering [start, start+size) with the
// given addressing ceiling and policies. The addressBits ceiling follows
// spec.md §4.4: 24 bits for devices on the legacy bus, 32 bits for
// structured-bus devices.
func NewRegion(start uint64, size int, addressBits int, dmaPolicy el3.DmaPolicy, cachePolicy el3.CachePolicy, pinner Pinner) *Region {
	if pinner == nil {
		pinner = NoopPinner{}
	}

	r := &Region{
		Start:       start,
		Size:        size,
		AddressBits: addressBits,
		DmaPolicy:   dmaPolicy,
		CachePolicy: cachePolicy,
		Pinner:      pinner,
		Logger:      log.Discard,
		mem:         make([]byte, size),
		freeBlocks:  list.New(),
		usedBlocks:  make(map[uint64]*block),
	}

	r.freeBlocks.PushFront(&block{addr: start, size: size})

	return r
}

// Buffer is a memory region with the attributes of spec.md §3: a Buffer
// with DMASafe true satisfies every constraint of spec.md §4.4.
type Buffer struct {
	region   *Region
	Virtual  []byte
	Physical uint64
	Length   int
	Align    int
	DMASafe  bool

	pinned bool
}

func alignFor(purpose Purpose) int {
	if purpose == PurposeDescriptorRing {
		return 16
	}
	return 4
}

// Allocate satisfies every constraint of spec.md §4.4: addressability,
// alignment, boundary non-crossing and (for TRANSLATE_VIA_SERVICE) page
// pinning. It returns ErrNoDMAMemory if no suitable block exists.
func (r *Region) Allocate(length int, purpose Purpose) (*Buffer, error) {
	if r.DmaPolicy == el3.DmaForbidden {
		return nil, el3.NewError(el3.ErrNoDMAMemory, fmt.Errorf("DMA forbidden by platform policy"))
	}

	align := alignFor(purpose)

	r.mu.Lock()
	b, err := r.allocBoundarySafe(length, align)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	ceiling := uint64(1) << uint(r.AddressBits)
	if b.addr+uint64(length) > ceiling {
		r.free(b)
		r.mu.Unlock()
		return nil, el3.NewError(el3.ErrNoDMAMemory, fmt.Errorf("block %#x+%d exceeds %d-bit addressing ceiling", b.addr, length, r.AddressBits))
	}

	r.usedBlocks[b.addr] = b
	offset := b.addr - r.Start
	r.mu.Unlock()

	buf := &Buffer{
		region:   r,
		Virtual:  r.mem[offset : offset+uint64(length) : offset+uint64(length)],
		Physical: b.addr,
		Length:   length,
		Align:    align,
		DMASafe:  true,
	}

	if r.DmaPolicy == el3.DmaTranslateViaService {
		if _, err := r.Pinner.Pin(addrOf(buf.Virtual), length); err != nil {
			r.mu.Lock()
			delete(r.usedBlocks, b.addr)
			r.free(b)
			r.mu.Unlock()
			return nil, el3.NewError(el3.ErrNoDMAMemory, fmt.Errorf("pin failed: %w", err))
		}
		buf.pinned = true
	}

	return buf, nil
}

// Release returns a Buffer to the pool, unpinning it first if it was
// pinned (spec.md §4.4).
func (r *Region) Release(buf *Buffer) {
	if buf == nil || buf.region != r {
		return
	}

	if buf.pinned {
		r.Pinner.Unpin(buf.Physical)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.usedBlocks[buf.Physical]; ok {
		delete(r.usedBlocks, buf.Physical)
		r.free(b)
	}

	buf.DMASafe = false
}

// Verify is a sanity check for imported buffers, used by the PIO path's
// copy-break to skip unnecessary allocation (spec.md §4.4): it reports
// whether [addr, addr+length) is currently allocated as a single block
// within this Region.
func (r *Region) Verify(addr uint64, length int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.usedBlocks[addr]
	return ok && b.size >= length
}

// InUse reports the number of Buffers currently allocated out of the
// Region, for tests that assert a Release actually returned memory to the
// pool (e.g. the DMA back-end's descriptor-reclaim path).
func (r *Region) InUse() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.usedBlocks)
}

// addrOf recovers a uintptr for a Go-owned byte slice, for handoff to a
// Pinner. This is the same unsafe-slice-address technique the teacher's
// dma package uses to convert between Go slices and hardware-visible
// addresses.
func addrOf(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}
