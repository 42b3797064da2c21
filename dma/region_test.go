// Tests for DMA Region allocation and release
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"testing"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegion(addressBits int) *Region {
	return NewRegion(0x100000, 1<<20, addressBits, el3.DmaDirect, el3.CacheNone, nil)
}

// P2 / B4: no allocation crosses the 64KB physical boundary.
func TestAllocateNeverCrossesBoundary(t *testing.T) {
	r := newTestRegion(32)

	// Consume the region down to a few bytes before a boundary so the
	// next allocation is forced to either straddle it or skip ahead.
	_, err := r.Allocate(int(boundary)-32, PurposeGeneric)
	require.NoError(t, err)

	buf, err := r.Allocate(64, PurposeGeneric)
	require.NoError(t, err)

	startBoundary := buf.Physical / boundary
	endBoundary := (buf.Physical + uint64(buf.Length) - 1) / boundary
	assert.Equal(t, startBoundary, endBoundary, "buffer must not straddle a 64KB boundary")
}

// S5-style scenario: a buffer allocated right at the edge of a boundary
// is placed after it, not straddling it.
func TestAllocateBoundaryAdjacent(t *testing.T) {
	r := newTestRegion(32)

	_, err := r.Allocate(int(boundary)-16, PurposeGeneric)
	require.NoError(t, err)

	buf, err := r.Allocate(32, PurposeGeneric)
	require.NoError(t, err)

	assert.Zero(t, buf.Physical%boundary, "post-boundary allocation should start on the boundary")
}

func TestAllocateRespectsAddressingCeiling(t *testing.T) {
	r := NewRegion(1<<16, 1<<16, 16, el3.DmaDirect, el3.CacheNone, nil) // ceiling 64KB, region just above it

	_, err := r.Allocate(64, PurposeGeneric)
	require.Error(t, err)

	var elErr *el3.Error
	require.ErrorAs(t, err, &elErr)
	assert.Equal(t, el3.ErrNoDMAMemory, elErr.Kind)
}

func TestAllocateNoFittingBlockReturnsNoDMAMemory(t *testing.T) {
	r := NewRegion(0x100000, 1<<16, 32, el3.DmaDirect, el3.CacheNone, nil)

	first, err := r.Allocate(1<<16, PurposeGeneric)
	require.NoError(t, err)

	_, err = r.Allocate(64, PurposeGeneric)
	require.Error(t, err)

	var elErr *el3.Error
	require.ErrorAs(t, err, &elErr)
	assert.Equal(t, el3.ErrNoDMAMemory, elErr.Kind)

	r.Release(first)
}

func TestAllocateForbiddenPolicy(t *testing.T) {
	r := NewRegion(0, 1<<16, 32, el3.DmaForbidden, el3.CacheNone, nil)

	_, err := r.Allocate(64, PurposeGeneric)
	require.Error(t, err)

	var elErr *el3.Error
	require.ErrorAs(t, err, &elErr)
	assert.Equal(t, el3.ErrNoDMAMemory, elErr.Kind)
}

func TestAllocateAlignment(t *testing.T) {
	r := newTestRegion(32)

	buf, err := r.Allocate(100, PurposeDescriptorRing)
	require.NoError(t, err)
	assert.Zero(t, buf.Physical%16)

	buf2, err := r.Allocate(10, PurposeGeneric)
	require.NoError(t, err)
	assert.Zero(t, buf2.Physical%4)
}

func TestReleaseReturnsBlockToFreeList(t *testing.T) {
	r := newTestRegion(32)

	buf, err := r.Allocate(4096, PurposeGeneric)
	require.NoError(t, err)
	r.Release(buf)
	assert.False(t, buf.DMASafe)

	// The freed space must be reusable.
	_, err = r.Allocate(4096, PurposeGeneric)
	require.NoError(t, err)
}

func TestPinningOnTranslateViaService(t *testing.T) {
	pinner := NewMapPinner(0x80000000)
	r := NewRegion(0, 1<<20, 32, el3.DmaTranslateViaService, el3.CacheNone, pinner)

	buf, err := r.Allocate(64, PurposeGeneric)
	require.NoError(t, err)
	assert.True(t, buf.pinned)

	r.Release(buf)
}

func TestPinFailurePropagatesNoDMAMemory(t *testing.T) {
	r := NewRegion(0, 1<<20, 32, el3.DmaTranslateViaService, el3.CacheNone, FailingPinner{})

	_, err := r.Allocate(64, PurposeGeneric)
	require.Error(t, err)

	var elErr *el3.Error
	require.ErrorAs(t, err, &elErr)
	assert.Equal(t, el3.ErrNoDMAMemory, elErr.Kind)
}

func TestVerify(t *testing.T) {
	r := newTestRegion(32)

	buf, err := r.Allocate(128, PurposeGeneric)
	require.NoError(t, err)

	assert.True(t, r.Verify(buf.Physical, 128))
	assert.False(t, r.Verify(buf.Physical, 256))
	assert.False(t, r.Verify(buf.Physical+1, 1))
}
