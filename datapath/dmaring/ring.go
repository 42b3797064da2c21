// DMA descriptor-ring data path back-end: transmit, receive poll and stall recovery
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dmaring

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jfabienke/3com-packet-driver-sub005/dma"
	"github.com/jfabienke/3com-packet-driver-sub005/el3"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/log"
	"github.com/jfabienke/3com-packet-driver-sub005/internal/reg"
)

const (
	txRingSize = 16
	rxRingSize = 32
	rxBufSize  = 1536
)

// Window 7 (bus-master window) register offsets and bus-master-only
// command opcodes, not shared with the PIO back-end's window 1.
const (
	offDnListPtr = 0x24
	offUpListPtr = 0x38

	cmdDnUnstall = 28
	cmdDnStall   = 29
	cmdUpUnstall = 30
	cmdUpStall   = 31
)

const (
	stallTimeout      = 2 * time.Second
	stallResetBudget  = 3
	stallResetWindow  = 10 * time.Second
)

// Backend implements el3.DataPath using the descriptor-ring DMA path.
type Backend struct {
	mu sync.Mutex

	dev    *el3.Device
	bus    reg.Bus
	region *dma.Region

	tx *txRing
	rx *rxRing

	resetTimes []time.Time

	// Logger receives ring-stall reset attempts and the eventual
	// device-fail escalation; defaults to log.Discard.
	Logger *log.Logger
}

type txRing struct {
	ringBuf   *dma.Buffer
	frames    [txRingSize]*dma.Buffer
	head, tail int
	reclaimedTotal    uint32
	lastSeenCompleted uint32
	stalledSince      time.Time
}

type rxRing struct {
	ringBuf *dma.Buffer
	bufs    [rxRingSize]*dma.Buffer
	cursor  int
}

// NewBackend allocates both rings (descriptor storage plus, for RX, a
// pre-attached Buffer per descriptor) out of region, and hands the RX
// ring's list head to the NIC (spec.md §4.5.2).
func NewBackend(dev *el3.Device, bus reg.Bus, region *dma.Region) (*Backend, error) {
	b := &Backend{dev: dev, bus: bus, region: region, Logger: log.Discard}

	txBuf, err := region.Allocate(txRingSize*descriptorSize, dma.PurposeDescriptorRing)
	if err != nil {
		return nil, err
	}
	b.tx = &txRing{ringBuf: txBuf}

	rxBuf, err := region.Allocate(rxRingSize*descriptorSize, dma.PurposeDescriptorRing)
	if err != nil {
		return nil, err
	}
	b.rx = &rxRing{ringBuf: rxBuf}

	for i := 0; i < rxRingSize; i++ {
		data, err := region.Allocate(rxBufSize, dma.PurposeRXBuffer)
		if err != nil {
			return nil, err
		}
		b.rx.bufs[i] = data

		next := uint32(0)
		if i+1 < rxRingSize {
			next = uint32(rxBuf.Physical) + uint32((i+1)*descriptorSize)
		}

		desc := RxDescriptor{NextPointer: next, FragAddr: uint32(data.Physical), FragLength: rxBufSize}
		marshalRx(desc, rxBuf.Virtual[i*descriptorSize:(i+1)*descriptorSize])
	}

	b.dev.SelectWindow(7, func(n int) {
		bus.Out16(dev.IOBase+0xE, el3.Command(el3.CmdSelectWindow, uint16(n)))
	})
	bus.Out32(dev.IOBase+offUpListPtr, uint32(rxBuf.Physical))

	return b, nil
}

// Transmit builds a descriptor for frame, links it onto the ring via
// next_pointer (publishing order: fragment fields first, then the link),
// and unstalls the download engine if the ring was idle (spec.md
// §4.5.2).
func (b *Backend) Transmit(frame *el3.Frame) (el3.TxTicket, error) {
	if err := frame.Validate(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.tx.head % txRingSize
	if b.tx.frames[idx] != nil {
		return 0, el3.NewError(el3.ErrQueueFull, nil)
	}

	buf, err := b.region.Allocate(len(frame.Data), dma.PurposeTXBuffer)
	if err != nil {
		return 0, err
	}
	copy(buf.Virtual, frame.Data)
	b.region.BeforeNICRead(buf)

	desc := TxDescriptor{
		FragAddr:   uint32(buf.Physical),
		FragLength: uint32(len(frame.Data)),
	}
	desc.SetLastFrag()
	marshalTx(desc, b.tx.ringBuf.Virtual[idx*descriptorSize:(idx+1)*descriptorSize])

	wasEmpty := b.tx.head == b.tx.tail

	// The fragment fields above must be visible before the next_pointer
	// write below links this descriptor into the active ring (spec.md
	// §4.5.2 publication ordering); on CachePolicy != NONE that requires
	// an explicit fence between the two writes.
	b.region.PublishFence()

	if b.tx.head > 0 {
		prev := (idx + txRingSize - 1) % txRingSize
		next := uint32(b.tx.ringBuf.Physical) + uint32(idx*descriptorSize)
		setNextPointer(b.tx.ringBuf.Virtual[prev*descriptorSize:(prev+1)*descriptorSize], next)
	}

	b.tx.frames[idx] = buf
	b.tx.head++

	if wasEmpty {
		b.dev.SelectWindow(7, func(n int) {
			b.bus.Out16(b.dev.IOBase+0xE, el3.Command(el3.CmdSelectWindow, uint16(n)))
		})
		b.bus.Out32(b.dev.IOBase+offDnListPtr, uint32(b.tx.ringBuf.Physical)+uint32(idx*descriptorSize))
		b.bus.Out16(b.dev.IOBase+0xE, el3.Command(cmdDnUnstall, 0))
	}

	return el3.TxTicket(idx), nil
}

func setNextPointer(descBytes []byte, next uint32) {
	d := unmarshalTx(descBytes)
	d.NextPointer = next
	marshalTx(d, descBytes)
}

// ReceivePoll takes the RX descriptor at the cursor if it reports
// completion, applies after_nic_write, recycles the descriptor with a
// fresh Buffer and advances the cursor by one (spec.md §4.5.2). Each call
// returns at most one frame.
func (b *Backend) ReceivePoll() (*el3.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.rx.cursor % rxRingSize
	raw := b.rx.ringBuf.Virtual[idx*descriptorSize : (idx+1)*descriptorSize]
	desc := unmarshalRx(raw)

	if !desc.Complete() {
		return nil, false
	}

	buf := b.rx.bufs[idx]
	b.region.AfterNICWrite(buf)

	length := int(desc.FrameStatus & 0x1FFF)
	data := make([]byte, length)
	copy(data, buf.Virtual[:length])

	fresh, err := b.region.Allocate(rxBufSize, dma.PurposeRXBuffer)
	if err == nil {
		b.rx.bufs[idx] = fresh
		newDesc := desc
		newDesc.FragAddr = uint32(fresh.Physical)
		newDesc.FrameStatus = 0
		marshalRx(newDesc, raw)
		b.region.Release(buf)
	} else {
		// No replacement buffer available: the frame has already been
		// copied out, so the descriptor is handed back to the NIC with
		// its existing Buffer and the cursor still advances.
		desc.FrameStatus = 0
		marshalRx(desc, raw)
	}

	b.rx.cursor++

	var flags el3.ReceiveFlags
	if length < 200 {
		flags |= el3.FlagCopyBreak
	}

	return &el3.Frame{Data: data, Direction: el3.DirectionRX, Flags: flags}, true
}

// InterruptWork reclaims every transmit descriptor the NIC has finished
// with (advancing the ring's tail so Transmit can reuse their slots and
// the Region can reuse their buffers), then checks for a stalled download
// ring and triggers the reset/fail escalation of spec.md §4.5.2. Spec.md
// §4.5 requires interrupt_work to be "called by the Worker to advance
// completions"; the descriptor-ring invariant of spec.md §3(c) requires
// the CPU/NIC ownership cursor to remain single-valued per ring, which is
// why reclaim must advance the tail in order rather than scanning ahead.
func (b *Backend) InterruptWork(status uint16) {
	b.mu.Lock()
	completed := b.reclaimCompletedTx()
	b.mu.Unlock()

	b.checkStall(completed)
}

// reclaimCompletedTx walks the transmit ring from the CPU-owned tail
// cursor while each descriptor's FrameStatus reports NIC completion,
// releasing its Buffer back to the Region, clearing the ring slot, and
// advancing the tail past it. It returns the running total of descriptors
// reclaimed over the Backend's lifetime, a monotonically increasing count
// checkStall uses to detect whether the ring is making progress.
func (b *Backend) reclaimCompletedTx() uint32 {
	for b.tx.tail != b.tx.head {
		idx := b.tx.tail % txRingSize
		raw := b.tx.ringBuf.Virtual[idx*descriptorSize : (idx+1)*descriptorSize]
		desc := unmarshalTx(raw)

		if !desc.Complete() {
			break
		}

		if buf := b.tx.frames[idx]; buf != nil {
			b.region.Release(buf)
			b.tx.frames[idx] = nil
		}

		desc.FrameStatus = 0
		marshalTx(desc, raw)

		b.tx.tail++
		b.tx.reclaimedTotal++
	}

	return b.tx.reclaimedTotal
}

// checkStall implements the ring-stall detection of spec.md §4.5.2: if
// the NIC's completed-descriptor count has not advanced for
// stallTimeout, a ring-reset is issued once (through backoff/v5 with a
// single try; nothing polls for the reset to take effect); a stall seen
// after 3 resets within 10 seconds fails the Device.
func (b *Backend) checkStall(completed uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if completed != b.tx.lastSeenCompleted {
		b.tx.lastSeenCompleted = completed
		b.tx.stalledSince = time.Time{}
		return
	}

	if b.tx.stalledSince.IsZero() {
		b.tx.stalledSince = time.Now()
		return
	}

	if time.Since(b.tx.stalledSince) < stallTimeout {
		return
	}

	b.dev.Stats.IncRingStalls()
	b.pruneResetHistory()

	if len(b.resetTimes) >= stallResetBudget {
		b.dev.SetState(el3.Failed)
		b.Logger.Errorf("dmaring", "RING_STALL", "ioBase=%#x exhausted reset budget (%d in %s); device failed", b.dev.IOBase, stallResetBudget, stallResetWindow)
		return
	}

	b.resetTimes = append(b.resetTimes, time.Now())
	b.tx.stalledSince = time.Time{}

	b.Logger.Warnf("dmaring", "RING_STALL", "ioBase=%#x download ring stalled %s, attempting reset (%d/%d)", b.dev.IOBase, stallTimeout, len(b.resetTimes), stallResetBudget)

	_, _ = backoff.Retry(context.Background(), func() (struct{}, error) {
		b.bus.Out16(b.dev.IOBase+0xE, el3.Command(el3.CmdTxReset, 0))
		b.bus.Out16(b.dev.IOBase+0xE, el3.Command(cmdDnUnstall, 0))
		return struct{}{}, nil
	}, backoff.WithMaxTries(1))
}

func (b *Backend) pruneResetHistory() {
	cutoff := time.Now().Add(-stallResetWindow)
	kept := b.resetTimes[:0]
	for _, t := range b.resetTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.resetTimes = kept
}
