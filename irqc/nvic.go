// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package irqc

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GermanBionicSystems/pinctl"
	"periph.io/x/host/v3/pmem"
)

const (
	// NVICBase is the physical address of the NVIC set-enable registers.
	NVICBase uint64 = 0xE000E100
	// MuxBase is the physical address of the IRQ16..31 source selectors.
	MuxBase uint64 = 0x40000300
)

// NVICRegs is the NVIC register layout of a Cortex-M0 starting at NVICBase.
type NVICRegs struct {
	ISER [8]uint32 // 0x000 write 1 to enable
	_    [24]uint32
	ICER [8]uint32 // 0x080 write 1 to disable
	_    [24]uint32
	ISPR [8]uint32 // 0x100 pending, write 1 to set
	_    [24]uint32
	ICPR [8]uint32 // 0x180 write 1 to clear pending
	_    [24]uint32
	IABR [8]uint32 // 0x200 active
	_    [56]uint32
	IPR  [8]uint32 // 0x300 priority, one byte per line, top 2 bits used
}

// MuxRegs selects the peripheral driving lines 16 to 31.
type MuxRegs struct {
	SEL [16]uint32
}

// NVIC is a Controller over the memory-mapped NVIC.
//
// The processor cannot vector into a Go program running on a host that
// accesses the chip through a memory bridge, so lines are serviced by
// polling their pending bits: call Poll, or run Serve on its own goroutine.
// Serve locks itself to an OS thread; that thread is the interrupt context.
type NVIC struct {
	r   *NVICRegs
	mux *MuxRegs

	mu      sync.Mutex
	enabled uint32
	isr     [NumLines]func()
}

// OpenNVIC maps the NVIC and the line multiplexer from physical memory.
//
// It requires access to /dev/mem; call host.Init() first. NVICBase and
// MuxBase are SWM181 addresses: only call it on a host bridged to the chip,
// elsewhere it writes to whatever the host has at those addresses.
func OpenNVIC() (*NVIC, error) {
	var r *NVICRegs
	if err := pmem.MapAsPOD(NVICBase, &r); err != nil {
		return nil, errors.New("irqc: failed to map NVIC: " + err.Error())
	}
	var m *MuxRegs
	if err := pmem.MapAsPOD(MuxBase, &m); err != nil {
		return nil, errors.New("irqc: failed to map IRQ multiplexer: " + err.Error())
	}
	return NewNVIC(r, m), nil
}

// NewNVIC returns a Controller over registers already mapped in memory.
func NewNVIC(r *NVICRegs, mux *MuxRegs) *NVIC {
	return &NVIC{r: r, mux: mux}
}

// Handle implements Controller.
func (n *NVIC) Handle(l Line, isr func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isr[l] = isr
}

// Connect implements Controller.
//
// It must be called with the controller locked or before Serve started.
func (n *NVIC) Connect(src Source, l Line, priority uint8) {
	if l >= FirstMuxLine {
		atomic.StoreUint32(&n.mux.SEL[l-FirstMuxLine], uint32(src))
	}
	w := &n.r.IPR[l/4]
	shift := 8 * (uint32(l) % 4)
	for {
		old := atomic.LoadUint32(w)
		v := old&^(0xFF<<shift) | uint32(priority&3)<<(shift+6)
		if atomic.CompareAndSwapUint32(w, old, v) {
			break
		}
	}
	n.enabled |= 1 << l
	atomic.StoreUint32(&n.r.ISER[0], 1<<l)
}

// Mask implements Controller.
func (n *NVIC) Mask(l Line) {
	atomic.StoreUint32(&n.r.ICER[0], 1<<l)
	n.enabled &^= 1 << l
}

// Lock implements Controller.
func (n *NVIC) Lock() {
	n.mu.Lock()
}

// Unlock implements Controller.
func (n *NVIC) Unlock() {
	n.mu.Unlock()
}

// Poll services every enabled line that is pending, lowest line first, and
// returns the number of routines run.
func (n *NVIC) Poll() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	pending := atomic.LoadUint32(&n.r.ISPR[0]) & n.enabled
	count := 0
	for l := Line(0); l < NumLines; l++ {
		m := uint32(1) << l
		if pending&m == 0 {
			continue
		}
		atomic.StoreUint32(&n.r.ICPR[0], m)
		if isr := n.isr[l]; isr != nil {
			isr()
			count++
		}
	}
	return count
}

// Serve polls until ctx is canceled.
func (n *NVIC) Serve(ctx context.Context, interval time.Duration) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			n.Poll()
		}
	}
}

// WaitPending waits for a line to become pending, e.g. during bring-up to
// check that a port raises its line at all.
//
// It returns pinctl.ErrTimeout if the line did not become pending within
// timeout.
func (n *NVIC) WaitPending(l Line, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if atomic.LoadUint32(&n.r.ISPR[0])&(1<<l) != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return pinctl.ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

var _ Controller = &NVIC{}
