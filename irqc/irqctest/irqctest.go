// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package irqctest is meant to be used to test drivers that register
// interrupt service routines, without hardware.
package irqctest

import (
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/pinctl/irqc"
)

// Fake is an irqc.Controller whose lines are raised by calling Raise.
//
// Service routines run synchronously on the goroutine that raised the line,
// or that released the lock, with the delivery lock held; that is the
// interrupt context.
type Fake struct {
	// Trace, when set, receives a short description of every connect and
	// mask operation.
	Trace func(op string)

	deliver sync.Mutex // held while a routine runs or the controller is locked

	mu        sync.Mutex
	isr       [irqc.NumLines]func()
	src       [irqc.NumLines]irqc.Source
	prio      [irqc.NumLines]uint8
	enabled   uint32
	pending   uint32
	serviced  [irqc.NumLines]int
	connected [irqc.NumLines]int
}

// Raise latches a line as pending and services it if it is enabled and the
// controller is not locked.
func (f *Fake) Raise(l irqc.Line) {
	f.mu.Lock()
	f.pending |= 1 << l
	f.mu.Unlock()
	f.run()
}

// Enabled returns true if the line is unmasked.
func (f *Fake) Enabled(l irqc.Line) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled&(1<<l) != 0
}

// Pending returns true if the line is latched and not serviced yet.
func (f *Fake) Pending(l irqc.Line) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending&(1<<l) != 0
}

// Source returns the source last connected to the line and its priority.
func (f *Fake) Source(l irqc.Line) (irqc.Source, uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src[l], f.prio[l]
}

// Serviced returns how many times the line's routine ran.
func (f *Fake) Serviced(l irqc.Line) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.serviced[l]
}

// Connections returns how many times the line was connected.
func (f *Fake) Connections(l irqc.Line) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected[l]
}

// irqc.Controller implementation.

func (f *Fake) Handle(l irqc.Line, isr func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isr[l] = isr
}

func (f *Fake) Connect(src irqc.Source, l irqc.Line, priority uint8) {
	f.trace("connect %d src=%d prio=%d", l, src, priority)
	f.mu.Lock()
	f.src[l] = src
	f.prio[l] = priority
	f.enabled |= 1 << l
	f.connected[l]++
	f.mu.Unlock()
	f.run()
}

func (f *Fake) Mask(l irqc.Line) {
	f.trace("mask line %d", l)
	f.mu.Lock()
	f.enabled &^= 1 << l
	f.mu.Unlock()
}

func (f *Fake) Lock() {
	f.deliver.Lock()
}

func (f *Fake) Unlock() {
	f.deliver.Unlock()
	f.run()
}

//

// run services ready lines until none is left. When the delivery lock is
// busy, its holder services them when it lets go.
func (f *Fake) run() {
	for f.ready() {
		if !f.deliver.TryLock() {
			return
		}
		for {
			isr := f.next()
			if isr == nil {
				break
			}
			isr()
		}
		f.deliver.Unlock()
	}
}

func (f *Fake) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending&f.enabled != 0
}

// next pops the lowest ready line and returns its routine.
func (f *Fake) next() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	ready := f.pending & f.enabled
	for l := irqc.Line(0); l < irqc.NumLines; l++ {
		m := uint32(1) << l
		if ready&m == 0 {
			continue
		}
		f.pending &^= m
		if f.isr[l] == nil {
			continue
		}
		f.serviced[l]++
		return f.isr[l]
	}
	return nil
}

func (f *Fake) trace(format string, args ...interface{}) {
	if f.Trace != nil {
		f.Trace(fmt.Sprintf(format, args...))
	}
}

var _ irqc.Controller = &Fake{}
