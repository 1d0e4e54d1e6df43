// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package portreg

import "sync/atomic"

// mmio is a Bank over memory-mapped registers. Every access is a single
// 32 bit load or store.
type mmio struct {
	r *Regs
}

func (m *mmio) SetPad(bit uint8, p Pad) {
	atomic.StoreUint32(&m.r.PAD[bit], uint32(p))
}

func (m *mmio) Pad(bit uint8) Pad {
	return Pad(atomic.LoadUint32(&m.r.PAD[bit]))
}

func (m *mmio) Input() uint32 {
	return atomic.LoadUint32(&m.r.DATA) & 0xFFFF
}

func (m *mmio) Set(mask uint32) {
	atomic.StoreUint32(&m.r.DATASET, mask)
}

func (m *mmio) Clear(mask uint32) {
	atomic.StoreUint32(&m.r.DATACLR, mask)
}

// SetTrigger must only be called while the pin is masked; the detection
// registers are shared by the port and updated with read-modify-write.
func (m *mmio) SetTrigger(bit uint8, t Trigger) {
	mask := uint32(1) << bit
	setBit(&m.r.INTLVLTRG, mask, t.Level)
	setBit(&m.r.INTBE, mask, t.Both)
	setBit(&m.r.INTRISEEN, mask, t.Rise)
	atomic.StoreUint32(&m.r.INTCLR, mask)
}

func (m *mmio) ClearTrigger(bit uint8) {
	m.SetTrigger(bit, Trigger{})
}

func (m *mmio) EnableIRQ(bit uint8) {
	setBit(&m.r.INTEN, uint32(1)<<bit, true)
}

func (m *mmio) DisableIRQ(bit uint8) {
	setBit(&m.r.INTEN, uint32(1)<<bit, false)
}

func (m *mmio) Pending() uint32 {
	return atomic.LoadUint32(&m.r.INTSTAT) & 0xFFFF
}

func (m *mmio) Ack(bit uint8) {
	atomic.StoreUint32(&m.r.INTCLR, uint32(1)<<bit)
}

// setBit updates the bits of mask in a shared register without losing a
// concurrent update of other bits.
func setBit(reg *uint32, mask uint32, v bool) {
	for {
		old := atomic.LoadUint32(reg)
		n := old &^ mask
		if v {
			n |= mask
		}
		if old == n || atomic.CompareAndSwapUint32(reg, old, n) {
			return
		}
	}
}
