// Platform probe: CPU tier, DMA/cache policy decision table
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package platform implements the Platform Probe (spec.md §4.1): detection
// of the execution environment that yields a DmaPolicy and CachePolicy.
// Probe keeps no state and sets no global; each call runs the detection
// again and returns a new Profile for the caller to hold.
package platform

import "github.com/jfabienke/3com-packet-driver-sub005/el3"

// CPUTier classifies the host CPU into the four cache-capability tiers
// spec.md §4.1 keys CachePolicy selection on.
type CPUTier int

const (
	// CPUNoCache: very old CPUs with no data cache at all.
	CPUNoCache CPUTier = iota
	// CPUCachedNoLineFlush: early cached CPUs without a line-level
	// flush instruction.
	CPUCachedNoLineFlush
	// CPUCachedCoarseFlush: cached CPUs with only a coarse
	// write-back+invalidate-everything operation.
	CPUCachedCoarseFlush
	// CPUCachedLineFlush: modern CPUs with a cache-line flush
	// instruction (e.g. CLFLUSH).
	CPUCachedLineFlush
)

// Environment is the seam the Platform Probe reads from. A production
// embedder supplies HostEnvironment; tests supply a fake.
type Environment interface {
	// VirtualizationFlagSet reports whether the CPU is executing with
	// the virtualization-mode flag set (e.g. under a hypervisor).
	VirtualizationFlagSet() bool
	// TranslationServiceAvailable reports whether a virtual-DMA
	// translation service answers a well-known discovery call.
	TranslationServiceAvailable() bool
	// CPUGeneration classifies the CPU into one of the four cache
	// tiers, using a feature-identification instruction where
	// available and a sequence of flag probes otherwise.
	CPUGeneration() CPUTier
}

// Profile is the Platform Probe's output: a fixed DmaPolicy, CachePolicy,
// and the CPU tier that produced it (spec.md §3, §4.1).
type Profile struct {
	DmaPolicy   el3.DmaPolicy
	CachePolicy el3.CachePolicy
	CPU         CPUTier
}

// Probe executes the Platform Probe's fixed detection sequence and
// reproduces the policy table of spec.md §4.1 exactly. It cannot fail: on
// any ambiguity the conservative fallback (FORBIDDEN, NONE) is chosen.
func Probe(env Environment) Profile {
	if env == nil {
		return Profile{DmaPolicy: el3.DmaForbidden, CachePolicy: el3.CacheNone}
	}

	virt := env.VirtualizationFlagSet()
	xlate := env.TranslationServiceAvailable()
	cpu := env.CPUGeneration()

	var dma el3.DmaPolicy

	switch {
	case !virt && !xlate:
		dma = el3.DmaDirect
	case !virt && xlate:
		dma = el3.DmaTranslateViaService
	case virt && xlate:
		dma = el3.DmaTranslateViaService
	case virt && !xlate:
		dma = el3.DmaForbidden
	}

	if dma == el3.DmaForbidden {
		return Profile{DmaPolicy: el3.DmaForbidden, CachePolicy: el3.CacheNone, CPU: cpu}
	}

	return Profile{DmaPolicy: dma, CachePolicy: cacheTierFor(cpu), CPU: cpu}
}

// cacheTierFor maps a CPU tier to a CachePolicy, per spec.md §4.1.
func cacheTierFor(cpu CPUTier) el3.CachePolicy {
	switch cpu {
	case CPUNoCache:
		return el3.CacheNone
	case CPUCachedNoLineFlush:
		return el3.CacheSoftwareBarrier
	case CPUCachedCoarseFlush:
		return el3.CacheFullWritebackInvalidate
	case CPUCachedLineFlush:
		return el3.CacheLineFlush
	default:
		return el3.CacheNone
	}
}
