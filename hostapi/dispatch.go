// Opcode dispatch table construction
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hostapi

import "github.com/jfabienke/3com-packet-driver-sub005/el3"

// Op numbers spec.md §6 assigns to each Host API operation.
const (
	OpDriverInfo    = 1
	OpAccessType    = 2
	OpReleaseType   = 3
	OpSendPkt       = 4
	OpGetAddress    = 6
	OpSetRcvMode    = 20
	OpGetStatistics = 24
)

// AccessTypeArgs are the inputs to OpAccessType.
type AccessTypeArgs struct {
	Ethertype uint16
	Callback  el3.ReceiveCallback
	OwnerTag  string
}

// SendArgs are the inputs to OpSendPkt.
type SendArgs struct {
	Handle el3.HandleID
	Data   []byte
}

// SetRcvModeArgs are the inputs to OpSetRcvMode.
type SetRcvModeArgs struct {
	Handle el3.HandleID
	Mode   el3.ReceiveMode
}

// Dispatch is the single external entry point spec.md §6 describes: "a
// single dispatch function takes an operation code and a parameter
// block." args must be AccessTypeArgs for OpAccessType, el3.HandleID for
// OpReleaseType, SendArgs for OpSendPkt and SetRcvModeArgs for
// OpSetRcvMode, or Dispatch returns BAD_COMMAND; OpDriverInfo,
// OpGetAddress and OpGetStatistics ignore args.
func (m *Multiplexer) Dispatch(op int, args any) (any, error) {
	switch op {
	case OpDriverInfo:
		return m.DriverInfo(), nil

	case OpAccessType:
		a, ok := args.(AccessTypeArgs)
		if !ok {
			return nil, el3.NewError(el3.ErrBadCommand, nil)
		}
		return m.AccessType(a.Ethertype, a.Callback, a.OwnerTag)

	case OpReleaseType:
		h, ok := args.(el3.HandleID)
		if !ok {
			return nil, el3.NewError(el3.ErrBadCommand, nil)
		}
		return nil, m.ReleaseType(h)

	case OpSendPkt:
		a, ok := args.(SendArgs)
		if !ok {
			return nil, el3.NewError(el3.ErrBadCommand, nil)
		}
		return nil, m.Send(a.Handle, a.Data)

	case OpGetAddress:
		return m.GetAddress(), nil

	case OpSetRcvMode:
		a, ok := args.(SetRcvModeArgs)
		if !ok {
			return nil, el3.NewError(el3.ErrBadCommand, nil)
		}
		return nil, m.SetReceiveMode(a.Mode)

	case OpGetStatistics:
		return m.GetStatistics(), nil

	default:
		return nil, el3.NewError(el3.ErrBadCommand, nil)
	}
}

// Status maps a Dispatch error to the single-byte status code spec.md §6
// specifies. A nil error maps to 0.
func Status(err error) byte {
	if err == nil {
		return 0
	}
	var elErr *el3.Error
	if e, ok := err.(*el3.Error); ok {
		elErr = e
	}
	if elErr == nil {
		return 0
	}
	return elErr.Kind.Status()
}
