// Prometheus counter/gauge registration and scrape endpoint
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package metrics exports a Device's counters (spec.md §6's
// get_statistics, §7/§8's degraded-mode counters) as Prometheus gauges,
// so an embedder running this driver core inside a Linux host process
// (see platform.HostEnvironment) can scrape it the same way the rest of
// the pack's tooling does.
//
// Grounded on the gauge-vec-per-metric, register-once pattern of
// intel-PerfSpect's cmd/metrics package; this driver core has only a
// fixed, known-in-advance set of counters, so each gets its own GaugeVec
// labeled by device rather than the dynamic metric map PerfSpect builds
// from its expression definitions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
)

const namespace = "el3"

var (
	rxOK      = newCounterVec("rx_ok_total", "Frames received successfully.")
	txOK      = newCounterVec("tx_ok_total", "Frames transmitted successfully.")
	rxErrors  = newCounterVec("rx_errors_total", "Receive errors.")
	txErrors  = newCounterVec("tx_errors_total", "Transmit errors.")

	noHandlerDrops       = newCounterVec("no_handler_drops_total", "Frames dropped for lack of a matching handle.")
	workRingOverflow     = newCounterVec("work_ring_overflow_total", "Work items dropped because the interrupt work ring was full.")
	dmaSelftestFailures  = newCounterVec("dma_selftest_failures_total", "DMA loopback self-test failures.")
	ringStalls           = newCounterVec("ring_stalls_total", "Descriptor ring stalls detected.")
	fifoUnderruns        = newCounterVec("fifo_underruns_total", "PIO transmit FIFO underruns.")
	rxOverruns           = newCounterVec("rx_overruns_total", "Receive FIFO overruns.")
	spuriousInterrupts   = newCounterVec("spurious_interrupts_total", "Spurious interrupts observed on the 8259 cascade.")
	eepromTimeouts       = newCounterVec("eeprom_timeouts_total", "EEPROM read timeouts during capability resolution.")
	eepromChecksumErrors = newCounterVec("eeprom_checksum_errors_total", "EEPROM checksum failures during capability resolution.")

	allVecs = []*prometheus.GaugeVec{
		rxOK, txOK, rxErrors, txErrors,
		noHandlerDrops, workRingOverflow, dmaSelftestFailures, ringStalls,
		fifoUnderruns, rxOverruns, spuriousInterrupts, eepromTimeouts, eepromChecksumErrors,
	}
)

func newCounterVec(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"device"})
}

// Register adds every gauge to reg, tolerating AlreadyRegisteredError so
// repeated calls (e.g. from tests constructing multiple Collectors) are
// safe.
func Register(reg prometheus.Registerer) error {
	for _, vec := range allVecs {
		if err := reg.Register(vec); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// Collector tracks one Device's label and pushes Snapshot values into
// the registered gauges. It holds no reference to the Device itself;
// Update is driven by the Worker's OnStats callback (spec.md §4.6 work
// item STATS_FULL) or any other periodic caller.
type Collector struct {
	device string
}

// NewCollector returns a Collector labeling its gauge updates with
// device (conventionally "ioBase=0xNNNN").
func NewCollector(device string) *Collector {
	return &Collector{device: device}
}

// Update sets every gauge from a Stats snapshot.
func (c *Collector) Update(s el3.Stats) {
	rxOK.WithLabelValues(c.device).Set(float64(s.RXOK))
	txOK.WithLabelValues(c.device).Set(float64(s.TXOK))
	rxErrors.WithLabelValues(c.device).Set(float64(s.RXErrors))
	txErrors.WithLabelValues(c.device).Set(float64(s.TXErrors))
	noHandlerDrops.WithLabelValues(c.device).Set(float64(s.NoHandlerDrops))
	workRingOverflow.WithLabelValues(c.device).Set(float64(s.WorkRingOverflow))
	dmaSelftestFailures.WithLabelValues(c.device).Set(float64(s.DMASelftestFailures))
	ringStalls.WithLabelValues(c.device).Set(float64(s.RingStalls))
	fifoUnderruns.WithLabelValues(c.device).Set(float64(s.FIFOUnderruns))
	rxOverruns.WithLabelValues(c.device).Set(float64(s.RXOverruns))
	spuriousInterrupts.WithLabelValues(c.device).Set(float64(s.SpuriousInterrupts))
	eepromTimeouts.WithLabelValues(c.device).Set(float64(s.EEPROMTimeouts))
	eepromChecksumErrors.WithLabelValues(c.device).Set(float64(s.EEPROMChecksumErrors))
}

// ServeHTTP starts a blocking Prometheus scrape endpoint on addr,
// mirroring intel-PerfSpect's startPrometheusServer. Intended for an
// embedder's own goroutine/process, never called from the cooperative
// driver core itself.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
