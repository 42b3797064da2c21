// Mandatory DMA loopback self-test and forbidden-mode downgrade
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"bytes"
	"fmt"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
)

// Loopback writes a known pattern into a buffer, hands it to the supplied
// transfer function to be carried to the NIC and back (spec.md §4.4's
// "DMA the buffer back to itself via a loopback frame"), and verifies
// bit-for-bit identity. transfer receives the Buffer after BeforeNICRead
// has run on it and must, by the time it returns, have produced the
// round-tripped bytes visible in buf.Virtual (a real NIC loopback, or in
// tests a fake completing the DMA synchronously).
type Loopback func(buf *Buffer) error

// SelfTest runs the loopback self-test described in spec.md §4.4 once, on
// a single 256-byte buffer taken from Allocate wherever the allocator
// places it. No second pass is made at or near a 64KB boundary.
//
// On any failure, DmaPolicy is downgraded to FORBIDDEN on the Region:
// once downgraded, every subsequent Allocate call fails, and nothing in
// this package restores the policy.
func (r *Region) SelfTest(xfer Loopback) error {
	if r.DmaPolicy == el3.DmaForbidden {
		return el3.NewError(el3.ErrDMASelfTestFail, fmt.Errorf("DMA already forbidden"))
	}

	pattern := make([]byte, 256)
	for i := range pattern {
		pattern[i] = byte(i ^ 0x5A)
	}

	buf, err := r.Allocate(len(pattern), PurposeGeneric)
	if err != nil {
		return el3.NewError(el3.ErrDMASelfTestFail, fmt.Errorf("allocate: %w", err))
	}
	defer r.Release(buf)

	copy(buf.Virtual, pattern)

	r.BeforeNICRead(buf)
	if err := xfer(buf); err != nil {
		r.downgrade()
		return el3.NewError(el3.ErrDMASelfTestFail, fmt.Errorf("loopback transfer: %w", err))
	}
	r.AfterNICWrite(buf)

	if !bytes.Equal(buf.Virtual, pattern) {
		r.downgrade()
		return el3.NewError(el3.ErrDMASelfTestFail, fmt.Errorf("round-tripped buffer does not match pattern"))
	}

	return nil
}

// downgrade permanently disables DMA on this Region after a self-test
// failure.
func (r *Region) downgrade() {
	r.mu.Lock()
	r.DmaPolicy = el3.DmaForbidden
	r.mu.Unlock()

	if r.Logger != nil {
		r.Logger.Errorf("dma", "DMA_SELFTEST_FAIL", "region start=%#x downgraded to FORBIDDEN", r.Start)
	}
}
