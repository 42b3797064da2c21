// Insertion-ordered handle registration table
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hostapi implements the Host API Multiplexer (spec.md §4.7): the
// single dispatch entry point external collaborators use, and the
// ethertype-keyed handle table it serializes through the Device's
// cooperative lock.
package hostapi

import "github.com/jfabienke/3com-packet-driver-sub005/el3"

// Table is an insertion-ordered handle registry, capped at
// el3.MaxHandles. Insertion order is significant: spec.md §4.7's
// dispatch rule delivers to "the first matching handle in insertion
// order".
type Table struct {
	handles []*el3.Handle
	nextID  el3.HandleID
}

// NewTable returns an empty handle table.
func NewTable() *Table { return &Table{nextID: 1} }

// Add registers a new handle, returning OUT_OF_HANDLES if the table is
// already at capacity (spec.md §4.7).
func (t *Table) Add(ethertypeMask uint16, cb el3.ReceiveCallback, ownerTag string) (*el3.Handle, error) {
	if len(t.handles) >= el3.MaxHandles {
		return nil, el3.NewError(el3.ErrOutOfHandles, nil)
	}

	h := &el3.Handle{
		ID:            t.nextID,
		EthertypeMask: ethertypeMask,
		Callback:      cb,
		OwnerTag:      ownerTag,
	}
	t.nextID++

	t.handles = append(t.handles, h)

	return h, nil
}

// Release removes a handle by id, returning BAD_HANDLE if it does not
// exist or was already released.
func (t *Table) Release(id el3.HandleID) error {
	for i, h := range t.handles {
		if h.ID == id {
			t.handles = append(t.handles[:i], t.handles[i+1:]...)
			return nil
		}
	}
	return el3.NewError(el3.ErrBadHandle, nil)
}

// Lookup returns the handle with the given id, or nil.
func (t *Table) Lookup(id el3.HandleID) *el3.Handle {
	for _, h := range t.handles {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// FirstMatch returns the first handle (in insertion order) whose
// EthertypeMask matches ethertype, per spec.md §4.7's dispatch rule.
func (t *Table) FirstMatch(ethertype uint16) *el3.Handle {
	for _, h := range t.handles {
		if h.Matches(ethertype) {
			return h
		}
	}
	return nil
}

// Len reports the number of live handles.
func (t *Table) Len() int { return len(t.handles) }
