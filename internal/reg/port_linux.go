// Linux /dev/port-backed Bus implementation
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build linux

package reg

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// PortBus accesses real ISA/PCI I/O port space through /dev/port, the
// standard Linux userspace window onto the processor's IN/OUT instruction
// space. It requires CAP_SYS_RAWIO (or root) and is the only Bus
// implementation in this package backed by actual hardware; every other
// caller in the core talks to a Bus interface value so it can be swapped
// for FakeBus in tests.
type PortBus struct {
	f *os.File
}

// OpenPortBus opens /dev/port for raw port I/O.
func OpenPortBus() (*PortBus, error) {
	f, err := os.OpenFile("/dev/port", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/port: %w", err)
	}

	return &PortBus{f: f}, nil
}

// Close releases the underlying /dev/port file descriptor.
func (p *PortBus) Close() error {
	return p.f.Close()
}

func (p *PortBus) read(port uint16, buf []byte) {
	if _, err := unix.Pread(int(p.f.Fd()), buf, int64(port)); err != nil {
		panic(fmt.Sprintf("reg: port read %#x: %v", port, err))
	}
}

func (p *PortBus) write(port uint16, buf []byte) {
	if _, err := unix.Pwrite(int(p.f.Fd()), buf, int64(port)); err != nil {
		panic(fmt.Sprintf("reg: port write %#x: %v", port, err))
	}
}

func (p *PortBus) In8(port uint16) uint8 {
	var buf [1]byte
	p.read(port, buf[:])
	return buf[0]
}

func (p *PortBus) Out8(port uint16, val uint8) {
	p.write(port, []byte{val})
}

func (p *PortBus) In16(port uint16) uint16 {
	var buf [2]byte
	p.read(port, buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

func (p *PortBus) Out16(port uint16, val uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], val)
	p.write(port, buf[:])
}

func (p *PortBus) In32(port uint16) uint32 {
	var buf [4]byte
	p.read(port, buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (p *PortBus) Out32(port uint16, val uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], val)
	p.write(port, buf[:])
}
