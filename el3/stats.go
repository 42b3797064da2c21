// Device-level counters
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package el3

import "sync/atomic"

// Stats holds the counters surfaced by GetStatistics (spec.md §6) and
// referenced throughout §7/§8. Every field is updated with sync/atomic so
// the Interrupt Core (producer side) and the Worker/Host API Multiplexer
// (consumer side) never need a lock merely to bump a counter.
type Stats struct {
	RXOK      uint64
	TXOK      uint64
	RXErrors  uint64
	TXErrors  uint64

	NoHandlerDrops      uint64
	WorkRingOverflow    uint64
	DMASelftestFailures uint64
	RingStalls          uint64
	FIFOUnderruns       uint64
	RXOverruns          uint64
	SpuriousInterrupts  uint64
	EEPROMTimeouts      uint64
	EEPROMChecksumErrors uint64
}

func incr(p *uint64) { atomic.AddUint64(p, 1) }

func (s *Stats) IncRXOK()                   { incr(&s.RXOK) }
func (s *Stats) IncTXOK()                   { incr(&s.TXOK) }
func (s *Stats) IncRXErrors()               { incr(&s.RXErrors) }
func (s *Stats) IncTXErrors()               { incr(&s.TXErrors) }
func (s *Stats) IncNoHandlerDrops()         { incr(&s.NoHandlerDrops) }
func (s *Stats) IncWorkRingOverflow()       { incr(&s.WorkRingOverflow) }
func (s *Stats) IncDMASelftestFailures()    { incr(&s.DMASelftestFailures) }
func (s *Stats) IncRingStalls()             { incr(&s.RingStalls) }
func (s *Stats) IncFIFOUnderruns()          { incr(&s.FIFOUnderruns) }
func (s *Stats) IncRXOverruns()             { incr(&s.RXOverruns) }
func (s *Stats) IncSpuriousInterrupts()     { incr(&s.SpuriousInterrupts) }
func (s *Stats) IncEEPROMTimeouts()         { incr(&s.EEPROMTimeouts) }
func (s *Stats) IncEEPROMChecksumErrors()   { incr(&s.EEPROMChecksumErrors) }

// Snapshot returns a copy of the counters at a point in time, safe to
// return across the Host API boundary (GetStatistics, spec.md §6).
func (s *Stats) Snapshot() Stats {
	return Stats{
		RXOK:                 atomic.LoadUint64(&s.RXOK),
		TXOK:                 atomic.LoadUint64(&s.TXOK),
		RXErrors:             atomic.LoadUint64(&s.RXErrors),
		TXErrors:             atomic.LoadUint64(&s.TXErrors),
		NoHandlerDrops:       atomic.LoadUint64(&s.NoHandlerDrops),
		WorkRingOverflow:     atomic.LoadUint64(&s.WorkRingOverflow),
		DMASelftestFailures:  atomic.LoadUint64(&s.DMASelftestFailures),
		RingStalls:           atomic.LoadUint64(&s.RingStalls),
		FIFOUnderruns:        atomic.LoadUint64(&s.FIFOUnderruns),
		RXOverruns:           atomic.LoadUint64(&s.RXOverruns),
		SpuriousInterrupts:   atomic.LoadUint64(&s.SpuriousInterrupts),
		EEPROMTimeouts:       atomic.LoadUint64(&s.EEPROMTimeouts),
		EEPROMChecksumErrors: atomic.LoadUint64(&s.EEPROMChecksumErrors),
	}
}
