// Hot-path handle lookup strategy
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hostapi

import "github.com/jfabienke/3com-packet-driver-sub005/el3"

// hotPath holds the values spec.md §4.7's "patch-site optimization"
// names as hot-path constants: the I/O base address, the current
// handle-table pointer, and the copy-break threshold. Spec.md §9
// discusses three language-neutral strategies for this; this
// implementation takes strategy (a) — monomorphize the hot path over a
// fixed struct captured once at bind time — because Go has no sanctioned
// mechanism for runtime instruction-stream patching (strategy (c)) and
// strategy (b) has no portable meaning across Go's ABI. The fields below
// are written once by Bind and never mutated after the Device reaches
// Active, matching spec.md §4.7's "no modification after Active state"
// requirement. Multiplexer.Send and DispatchReceive reach the handle table
// through the table field rather than through the Device; neither reads
// ioBase or copyBreak, and copyBreak is reported by CopyBreakThreshold.
type hotPath struct {
	ioBase         uint16
	table          *Table
	copyBreak      int
}

const defaultCopyBreak = 200

func newHotPath(dev *el3.Device, table *Table) hotPath {
	return hotPath{
		ioBase:    dev.IOBase,
		table:     table,
		copyBreak: defaultCopyBreak,
	}
}
