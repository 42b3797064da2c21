// First-fit boundary-safe block allocation for the DMA Region
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"container/list"
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
)

// allocBoundarySafe is the teacher's first-fit allocator (tamago's
// dma/alloc.go), extended to reject any candidate block whose allocation
// would cross a 64KB physical boundary (spec.md §4.4 boundary
// non-crossing): if the first fitting free block straddles the boundary,
// the search continues to the portion after the boundary rather than
// servicing the request from the straddling bytes. Caller holds r.mu.
func (r *Region) allocBoundarySafe(size int, align int) (*block, error) {
	reqSize := size
	if align > 0 {
		reqSize += align
	}

	for e := r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		start := alignedStart(b.addr, align)
		end := start + uint64(size)

		if start < b.addr || end > b.addr+uint64(b.size) {
			continue
		}

		if crossesBoundary(start, size) {
			// Split off the boundary-aligned remainder as a
			// candidate instead of servicing from the straddling
			// prefix.
			nextBoundary := (start/boundary + 1) * boundary
			if nextBoundary >= b.addr+uint64(b.size) {
				continue
			}
			alt := alignedStart(nextBoundary, align)
			if alt+uint64(size) > b.addr+uint64(b.size) || crossesBoundary(alt, size) {
				continue
			}
			start = alt
			end = start + uint64(size)
		}

		return r.carve(e, b, start, end, size)
	}

	_ = reqSize
	return nil, noDMAMemoryErr(size)
}

func alignedStart(addr uint64, align int) uint64 {
	if align <= 0 {
		return addr
	}
	a := uint64(align)
	if r := addr % a; r != 0 {
		return addr + (a - r)
	}
	return addr
}

func crossesBoundary(start uint64, size int) bool {
	return (start & (boundary - 1)) + uint64(size) > boundary
}

// carve splits the free block b (found at list element e) so that
// [start, end) is removed from the free list and returned as a used
// block, re-inserting any leading/trailing remainder.
func (r *Region) carve(e *list.Element, b *block, start, end uint64, size int) (*block, error) {
	r.freeBlocks.Remove(e)

	if lead := start - b.addr; lead > 0 {
		r.freeBlocks.PushBack(&block{addr: b.addr, size: int(lead)})
	}

	if trail := (b.addr + uint64(b.size)) - end; trail > 0 {
		r.freeBlocks.PushBack(&block{addr: end, size: int(trail)})
	}

	return &block{addr: start, size: size}, nil
}

// free returns a block to the free list and defragments adjacent blocks,
// mirroring the teacher's defrag() pass. Caller holds r.mu.
func (r *Region) free(b *block) {
	r.freeBlocks.PushBack(&block{addr: b.addr, size: b.size})
	r.defrag()
}

func (r *Region) defrag() {
	again := true

	for again {
		again = false

		for e := r.freeBlocks.Front(); e != nil; e = e.Next() {
			cur := e.Value.(*block)

			for f := r.freeBlocks.Front(); f != nil; f = f.Next() {
				if f == e {
					continue
				}

				other := f.Value.(*block)

				if cur.addr+uint64(cur.size) == other.addr {
					cur.size += other.size
					r.freeBlocks.Remove(f)
					again = true
					break
				}
			}

			if again {
				break
			}
		}
	}
}

func noDMAMemoryErr(size int) error {
	return el3.NewError(el3.ErrNoDMAMemory, fmt.Errorf("no fitting free block for %d bytes", size))
}
