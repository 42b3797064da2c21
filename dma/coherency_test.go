// Tests for cache-coherency dispatch
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

func TestBeforeAfterDispatchPerCachePolicy(t *testing.T) {
	cases := []struct {
		policy           el3.CachePolicy
		wantFlush        int
		wantInvalidate   int
		wantWBIA         int
		wantFence        int
	}{
		{el3.CacheNone, 0, 0, 0, 0},
		{el3.CacheSoftwareBarrier, 0, 0, 0, 2}, // one fence before, one after
		{el3.CacheLineFlush, 1, 1, 0, 0},
		{el3.CacheFullWritebackInvalidate, 0, 0, 2, 0},
	}

	for _, c := range cases {
		c := c
		t.Run(c.policy.String(), func(t *testing.T) {
			counting := &CountingCoherency{}
			r := NewRegion(0, 1<<16, 32, el3.DmaDirect, c.policy, nil)
			r.CoherencyOps = counting

			buf, err := r.Allocate(64, PurposeGeneric)
			require.NoError(t, err)

			r.BeforeNICRead(buf)
			r.AfterNICWrite(buf)

			assert.Equal(t, c.wantFlush, counting.Flushes)
			assert.Equal(t, c.wantInvalidate, counting.Invalidates)
			assert.Equal(t, c.wantWBIA, counting.WBIA)
			assert.Equal(t, c.wantFence, counting.Fences)
		})
	}
}

// R3: before_nic_read followed by after_nic_write on an idle buffer never
// mutates the buffer's contents.
func TestBeforeAfterIsContentPreserving(t *testing.T) {
	r := NewRegion(0, 1<<16, 32, el3.DmaDirect, el3.CacheLineFlush, nil)

	buf, err := r.Allocate(64, PurposeGeneric)
	require.NoError(t, err)

	for i := range buf.Virtual {
		buf.Virtual[i] = byte(i)
	}
	before := append([]byte(nil), buf.Virtual...)

	r.BeforeNICRead(buf)
	r.AfterNICWrite(buf)
	r.BeforeNICRead(buf)
	r.AfterNICWrite(buf)

	assert.Equal(t, before, buf.Virtual)
}
