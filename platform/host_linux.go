// Linux CPU-tier and virtualization-flag detection
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build linux

package platform

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/cpu"
)

// HostEnvironment detects the real execution environment on a Linux amd64
// host. Virtualization detection reads the "hypervisor" CPU flag exposed
// in /proc/cpuinfo (the portable equivalent of testing CPUID leaf 1, bit
// 31, without hand-rolled CPUID assembly); CPU tiering uses
// golang.org/x/sys/cpu's feature flags, populated from real CPUID at
// package init, as a stand-in for the spec's four historical CPU
// generations.
type HostEnvironment struct {
	// TranslationService reports availability of a virtual-DMA
	// translation service. No such service exists on a stock Linux
	// host, so the zero value (nil) always answers false; an embedder
	// running under a hypervisor-provided IOMMU/VDS shim supplies one.
	TranslationService func() bool
}

func (HostEnvironment) VirtualizationFlagSet() bool {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		// Conservative: treat unknown as virtualized, which steers
		// toward TRANSLATE_VIA_SERVICE/FORBIDDEN rather than DIRECT.
		return true
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "flags") && strings.Contains(line, "hypervisor") {
			return true
		}
	}

	return false
}

func (e HostEnvironment) TranslationServiceAvailable() bool {
	if e.TranslationService == nil {
		return false
	}
	return e.TranslationService()
}

func (HostEnvironment) CPUGeneration() CPUTier {
	switch {
	case cpu.X86.HasAVX2:
		return CPUCachedLineFlush
	case cpu.X86.HasSSE42:
		return CPUCachedCoarseFlush
	case cpu.X86.HasSSE2:
		return CPUCachedNoLineFlush
	default:
		return CPUNoCache
	}
}
