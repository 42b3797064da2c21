// DMA and cache policy types
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package el3

// DmaPolicy is determined once by the Platform Probe and never mutated
// after (spec.md §3, §4.1).
type DmaPolicy int

const (
	// DmaDirect means no address translation is needed: virtual and
	// physical addresses coincide.
	DmaDirect DmaPolicy = iota
	// DmaTranslateViaService means a virtualization service maps
	// virtual to physical addresses and pins pages.
	DmaTranslateViaService
	// DmaForbidden means DMA must not be used; the Data Path Engine
	// selects the PIO back-end regardless of Device generation.
	DmaForbidden
)

func (p DmaPolicy) String() string {
	switch p {
	case DmaDirect:
		return "DIRECT"
	case DmaTranslateViaService:
		return "TRANSLATE_VIA_SERVICE"
	case DmaForbidden:
		return "FORBIDDEN"
	default:
		return "?"
	}
}

// CachePolicy is determined once from the Platform Probe's CPU
// classification and never mutated after (spec.md §3, §4.1).
type CachePolicy int

const (
	CacheNone CachePolicy = iota
	CacheSoftwareBarrier
	CacheLineFlush
	CacheFullWritebackInvalidate
)

func (p CachePolicy) String() string {
	switch p {
	case CacheNone:
		return "NONE"
	case CacheSoftwareBarrier:
		return "SOFTWARE_BARRIER"
	case CacheLineFlush:
		return "LINE_FLUSH"
	case CacheFullWritebackInvalidate:
		return "FULL_WRITEBACK_INVALIDATE"
	default:
		return "?"
	}
}
