// Cooperative worker draining the interrupt work ring
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package irq

import (
	"runtime"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
)

// Worker is the single cooperative consumer of a Device's work ring
// (spec.md §4.6, §5). It holds the Device's cooperative lock for the
// duration of each dispatch, and is the only place in this driver where
// the deferred cache-coherency actions of §4.4 may run (the interrupt
// entry never touches a Buffer's ownership).
type Worker struct {
	Dev  *el3.Device
	Ring *Ring

	// OnRXFrame, OnTXComplete, OnError and OnStats are invoked with the
	// Device lock held, once per dequeued WorkItem of the matching
	// Kind. A nil handler silently drops that Kind's items.
	OnRXFrame    func()
	OnTXComplete func(ticket el3.TxTicket)
	OnError      func(kind el3.ErrKind, data uint32)
	OnStats      func(snapshot el3.Stats)
}

// Run drains the Ring until it is empty, cooperatively yielding between
// items so a single Worker never starves other cooperative tasks (spec.md
// §5's single-threaded cooperative scheduling model). It returns the
// number of items processed.
func (w *Worker) Run() int {
	w.Dev.Lock()
	defer w.Dev.Unlock()

	n := 0
	for {
		item, ok := w.Ring.Pop()
		if !ok {
			return n
		}

		w.dispatch(item)
		n++

		runtime.Gosched()
	}
}

func (w *Worker) dispatch(item el3.WorkItem) {
	switch item.Kind {
	case el3.WorkRXFrame:
		if w.OnRXFrame != nil {
			w.OnRXFrame()
		}
	case el3.WorkTXComplete:
		if w.OnTXComplete != nil {
			w.OnTXComplete(item.TXTicket)
		}
	case el3.WorkError:
		if w.OnError != nil {
			w.OnError(item.ErrKind, item.ErrData)
		}
	case el3.WorkStats:
		if w.OnStats != nil {
			w.OnStats(item.StatsSnapshot)
		}
	}
}
