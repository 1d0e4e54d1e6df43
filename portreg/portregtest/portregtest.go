// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package portregtest is meant to be used to test drivers over a simulated
// GPIO port.
//
// Port behaves like the hardware block: writes to the set and clear
// registers change the output latch, the pad registers select what a pin
// reads, and level changes are run through the edge and level detectors to
// latch interrupt status.
package portregtest

import (
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/pinctl/portreg"
	"periph.io/x/conn/v3/gpio"
)

// Port is a simulated portreg.Bank.
//
// The zero value is a port at reset: all pins are floating inputs and all
// interrupts are masked.
type Port struct {
	// OnPending, when set, is called every time a pin's status becomes
	// pending while unmasked, i.e. when the hardware would raise the port's
	// interrupt line. It is called without the port lock held.
	OnPending func()
	// Trace, when set, receives a short description of every register
	// write.
	Trace func(op string)

	mu     sync.Mutex
	pad    [16]portreg.Pad
	trig   [16]portreg.Trigger
	out    uint32 // output latch
	ext    uint32 // externally driven levels
	driven uint32 // pins with an external driver
	en     uint32
	raw    uint32
}

// Drive applies an external level to a pin, as a wire connected to it would.
func (p *Port) Drive(bit uint8, l gpio.Level) {
	p.mu.Lock()
	old := p.levelsLocked()
	m := uint32(1) << bit
	p.driven |= m
	if l {
		p.ext |= m
	} else {
		p.ext &^= m
	}
	fire := p.detectLocked(old)
	p.mu.Unlock()
	if fire {
		p.notify()
	}
}

// Release removes the external driver from a pin. It then reads its pull
// or output level.
func (p *Port) Release(bit uint8) {
	p.mu.Lock()
	old := p.levelsLocked()
	p.driven &^= uint32(1) << bit
	fire := p.detectLocked(old)
	p.mu.Unlock()
	if fire {
		p.notify()
	}
}

// Raw returns the latched status, masked or not.
func (p *Port) Raw() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.raw
}

// Enabled returns the interrupt unmask register.
func (p *Port) Enabled() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.en
}

// Trigger returns the detection mode of a pin.
func (p *Port) Trigger(bit uint8) portreg.Trigger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trig[bit]
}

// Latch returns the output latch.
func (p *Port) Latch() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out
}

// Raise calls OnPending if any unmasked status is latched. It models a
// level triggered line that is still asserted after the handler returned.
func (p *Port) Raise() {
	p.mu.Lock()
	fire := p.raw&p.en != 0
	p.mu.Unlock()
	if fire {
		p.notify()
	}
}

// portreg.Bank implementation.

func (p *Port) SetPad(bit uint8, pd portreg.Pad) {
	p.trace("pad %d %#x", bit, uint32(pd))
	p.mu.Lock()
	old := p.levelsLocked()
	p.pad[bit] = pd
	fire := p.detectLocked(old)
	p.mu.Unlock()
	if fire {
		p.notify()
	}
}

func (p *Port) Pad(bit uint8) portreg.Pad {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pad[bit]
}

func (p *Port) Input() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levelsLocked()
}

func (p *Port) Set(mask uint32) {
	p.trace("set %#x", mask)
	p.writeLatch(mask, true)
}

func (p *Port) Clear(mask uint32) {
	p.trace("clr %#x", mask)
	p.writeLatch(mask, false)
}

func (p *Port) SetTrigger(bit uint8, t portreg.Trigger) {
	p.trace("trig %d %+v", bit, t)
	p.mu.Lock()
	m := uint32(1) << bit
	p.trig[bit] = t
	p.raw &^= m
	if t.Level && (p.levelsLocked()&m != 0) == t.Rise {
		p.raw |= m
	}
	p.mu.Unlock()
}

func (p *Port) ClearTrigger(bit uint8) {
	p.SetTrigger(bit, portreg.Trigger{})
}

func (p *Port) EnableIRQ(bit uint8) {
	p.trace("unmask %d", bit)
	p.mu.Lock()
	m := uint32(1) << bit
	p.en |= m
	fire := p.raw&m != 0
	p.mu.Unlock()
	if fire {
		p.notify()
	}
}

func (p *Port) DisableIRQ(bit uint8) {
	p.trace("mask %d", bit)
	p.mu.Lock()
	p.en &^= uint32(1) << bit
	p.mu.Unlock()
}

func (p *Port) Pending() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.raw & p.en
}

// Ack clears the latched status. A level triggered pin whose level is still
// active latches again immediately.
func (p *Port) Ack(bit uint8) {
	p.trace("ack %d", bit)
	p.mu.Lock()
	m := uint32(1) << bit
	p.raw &^= m
	if t := p.trig[bit]; t.Level && (p.levelsLocked()&m != 0) == t.Rise {
		p.raw |= m
	}
	p.mu.Unlock()
}

//

func (p *Port) writeLatch(mask uint32, high bool) {
	p.mu.Lock()
	old := p.levelsLocked()
	if high {
		p.out |= mask & 0xFFFF
	} else {
		p.out &^= mask
	}
	fire := p.detectLocked(old)
	p.mu.Unlock()
	if fire {
		p.notify()
	}
}

// levelsLocked computes what each pin reads.
func (p *Port) levelsLocked() uint32 {
	var v uint32
	for bit := uint8(0); bit < 16; bit++ {
		m := uint32(1) << bit
		pd := p.pad[bit]
		var high bool
		switch {
		case pd&portreg.PadOutput != 0 && (pd&portreg.PadOpenDrain == 0 || p.out&m == 0):
			// Actively driven by the port.
			high = p.out&m != 0
		case p.driven&m != 0:
			high = p.ext&m != 0
		default:
			high = pd&portreg.PadPullUp != 0
		}
		if high {
			v |= m
		}
	}
	return v
}

// detectLocked latches status for every pin whose new level satisfies its
// trigger. It returns true if an unmasked status became pending.
func (p *Port) detectLocked(old uint32) bool {
	now := p.levelsLocked()
	before := p.raw & p.en
	for bit := uint8(0); bit < 16; bit++ {
		m := uint32(1) << bit
		was, is := old&m != 0, now&m != 0
		t := p.trig[bit]
		var hit bool
		switch {
		case t.Level:
			hit = is == t.Rise
		case t.Both:
			hit = was != is
		case t.Rise:
			hit = !was && is
		default:
			hit = was && !is
		}
		if hit {
			p.raw |= m
		}
	}
	return p.raw&p.en&^before != 0
}

func (p *Port) notify() {
	if p.OnPending != nil {
		p.OnPending()
	}
}

func (p *Port) trace(format string, args ...interface{}) {
	if p.Trace != nil {
		p.Trace(fmt.Sprintf(format, args...))
	}
}

var _ portreg.Bank = &Port{}
