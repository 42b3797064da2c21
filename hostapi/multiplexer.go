// Host API multiplexer: handle registration, send/receive, status mapping
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hostapi

import (
	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/jfabienke/3com-packet-driver-sub005/metrics"
)

const (
	driverVersion = 1
	driverClass   = "ethernet"
)

// DriverInfo is the response to op 1 (spec.md §6).
type DriverInfo struct {
	Version      int
	Class        string
	NInterfaces  int
	Name         string
}

// Multiplexer is the Host API Multiplexer for a single Device (spec.md
// §4.7): the handle table, the bound DataPath back-end, and the
// patch-site hot-path constants captured at Bind time.
type Multiplexer struct {
	dev  *el3.Device
	path el3.DataPath
	hot  hotPath

	// Metrics, if set via WithMetrics, receives every GetStatistics
	// snapshot so an embedder can scrape this Device over Prometheus
	// without polling get_statistics itself.
	Metrics *metrics.Collector
}

// WithMetrics attaches a Collector labeled for this Device; subsequent
// GetStatistics calls push their snapshot into it.
func (m *Multiplexer) WithMetrics(c *metrics.Collector) *Multiplexer {
	m.Metrics = c
	return m
}

// Bind constructs a Multiplexer for dev, capturing the patch-site
// constants once (spec.md §4.7, §9). It must be called once per Device,
// before the Device reaches Active.
func Bind(dev *el3.Device, path el3.DataPath) *Multiplexer {
	table := NewTable()
	return &Multiplexer{dev: dev, path: path, hot: newHotPath(dev, table)}
}

// DriverInfo answers op 1: driver_info.
func (m *Multiplexer) DriverInfo() DriverInfo {
	return DriverInfo{
		Version:     driverVersion,
		Class:       driverClass,
		NInterfaces: 1,
		Name:        "el3",
	}
}

// AccessType answers op 2: access_type.
func (m *Multiplexer) AccessType(ethertype uint16, cb el3.ReceiveCallback, ownerTag string) (el3.HandleID, error) {
	h, err := m.hot.table.Add(ethertype, cb, ownerTag)
	if err != nil {
		return 0, err
	}
	return h.ID, nil
}

// ReleaseType answers op 3: release_type.
func (m *Multiplexer) ReleaseType(handle el3.HandleID) error {
	return m.hot.table.Release(handle)
}

// Send answers op 4: send_pkt. The handle lookup goes through the
// patch-site table pointer captured at Bind; the I/O base and copy-break
// threshold are not used here.
func (m *Multiplexer) Send(handle el3.HandleID, data []byte) error {
	if m.hot.table.Lookup(handle) == nil {
		return el3.NewError(el3.ErrBadHandle, nil)
	}

	if m.dev.State() == el3.Failed {
		return el3.NewError(el3.ErrDeviceFailed, nil)
	}

	frame := &el3.Frame{Data: data, Direction: el3.DirectionTX, Handle: handle}
	if err := frame.Validate(); err != nil {
		return err
	}

	_, err := m.path.Transmit(frame)
	if err != nil {
		return err
	}

	m.dev.Stats.IncTXOK()
	return nil
}

// GetAddress answers op 6: get_address.
func (m *Multiplexer) GetAddress() [6]byte {
	return m.dev.MAC
}

// SetReceiveMode answers op 20: set_rcv_mode.
func (m *Multiplexer) SetReceiveMode(mode el3.ReceiveMode) error {
	if mode < el3.ModeOff || mode > el3.ModePromiscuous {
		return el3.NewError(el3.ErrBadMode, nil)
	}
	m.dev.ReceiveMode = mode
	return nil
}

// GetStatistics answers op 24: get_statistics.
func (m *Multiplexer) GetStatistics() el3.Stats {
	snapshot := m.dev.Stats.Snapshot()
	if m.Metrics != nil {
		m.Metrics.Update(snapshot)
	}
	return snapshot
}

// DispatchReceive implements spec.md §4.7's receive dispatch rule: the
// first handle (insertion order) whose ethertype mask matches frame's
// ethertype is delivered to, and its received_count incremented; with no
// match the frame is dropped and the Device's no_handler_drops stat
// incremented. Called by the Worker with the Device's cooperative lock
// held (spec.md §4.7: "the Multiplexer serializes all operations on a
// Device through a single cooperative lock obtained by the Worker before
// dispatch").
func (m *Multiplexer) DispatchReceive(frame *el3.Frame) {
	h := m.hot.table.FirstMatch(frame.Ethertype)
	if h == nil {
		m.dev.Stats.IncNoHandlerDrops()
		return
	}

	h.ReceivedCount++
	if h.Callback != nil {
		h.Callback(frame)
	}
}

// CopyBreakThreshold reports the patch-site copy-break constant.
func (m *Multiplexer) CopyBreakThreshold() int { return m.hot.copyBreak }
