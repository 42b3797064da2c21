// Tests for opcode dispatch
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hostapi

import (
	"testing"

	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchDriverInfo(t *testing.T) {
	m, _, _ := newTestMux()
	out, err := m.Dispatch(OpDriverInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, m.DriverInfo(), out)
}

func TestDispatchAccessTypeAndSend(t *testing.T) {
	m, dev, path := newTestMux()

	out, err := m.Dispatch(OpAccessType, AccessTypeArgs{Ethertype: 0x0800, OwnerTag: "ip"})
	require.NoError(t, err)
	handle := out.(el3.HandleID)

	_, err = m.Dispatch(OpSendPkt, SendArgs{Handle: handle, Data: make([]byte, 64)})
	require.NoError(t, err)
	assert.Len(t, path.sent, 1)
	assert.Equal(t, uint64(1), dev.Stats.Snapshot().TXOK)
}

func TestDispatchReleaseType(t *testing.T) {
	m, _, _ := newTestMux()
	out, err := m.Dispatch(OpAccessType, AccessTypeArgs{Ethertype: 0x0800})
	require.NoError(t, err)
	handle := out.(el3.HandleID)

	_, err = m.Dispatch(OpReleaseType, handle)
	require.NoError(t, err)
	assert.Nil(t, m.hot.table.Lookup(handle))
}

func TestDispatchGetAddress(t *testing.T) {
	m, dev, _ := newTestMux()
	out, err := m.Dispatch(OpGetAddress, nil)
	require.NoError(t, err)
	assert.Equal(t, dev.MAC, out)
}

func TestDispatchSetRcvMode(t *testing.T) {
	m, dev, _ := newTestMux()
	_, err := m.Dispatch(OpSetRcvMode, SetRcvModeArgs{Mode: el3.ModePromiscuous})
	require.NoError(t, err)
	assert.Equal(t, el3.ModePromiscuous, dev.ReceiveMode)
}

func TestDispatchGetStatistics(t *testing.T) {
	m, dev, _ := newTestMux()
	dev.Stats.IncRXOK()
	out, err := m.Dispatch(OpGetStatistics, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.(el3.Stats).RXOK)
}

func TestDispatchUnknownOp(t *testing.T) {
	m, _, _ := newTestMux()
	_, err := m.Dispatch(999, nil)
	require.Error(t, err)

	var elErr *el3.Error
	require.ErrorAs(t, err, &elErr)
	assert.Equal(t, el3.ErrBadCommand, elErr.Kind)
}

func TestDispatchArgTypeMismatch(t *testing.T) {
	m, _, _ := newTestMux()

	cases := []struct {
		op   int
		args any
	}{
		{OpAccessType, "wrong"},
		{OpReleaseType, "wrong"},
		{OpSendPkt, "wrong"},
		{OpSetRcvMode, "wrong"},
	}

	for _, c := range cases {
		_, err := m.Dispatch(c.op, c.args)
		require.Error(t, err)

		var elErr *el3.Error
		require.ErrorAs(t, err, &elErr)
		assert.Equal(t, el3.ErrBadCommand, elErr.Kind)
	}
}

func TestStatusMapsErrors(t *testing.T) {
	assert.Equal(t, byte(0), Status(nil))
	assert.Equal(t, el3.ErrBadHandle.Status(), Status(el3.NewError(el3.ErrBadHandle, nil)))
	assert.NotEqual(t, byte(0), Status(el3.NewError(el3.ErrOutOfHandles, nil)))
}
