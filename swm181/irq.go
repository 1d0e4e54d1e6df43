// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package swm181

import (
	"math/bits"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/GermanBionicSystems/pinctl/portreg"
)

// Attach implements pinctl.Ops.
//
// It records h and arg as the handler of the pin and programs the trigger
// detection. The pin stays masked until Enable. Attaching to a pin that is
// enabled replaces its handler; the slot is rewritten with the controller
// locked and the pin masked, so a dispatch pass sees either the old binding
// or the new one.
//
// It panics if h is nil or t is not a declared pinctl.TriggerMode.
func (d *Dev) Attach(id pinctl.PinID, t pinctl.TriggerMode, h pinctl.Handler, arg interface{}) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	if h == nil {
		panic("swm181: nil handler for pin " + c.String())
	}
	tr, ok := portreg.TriggerFor(t)
	if !ok {
		panic("swm181: invalid trigger mode " + t.String())
	}
	b := &d.bindings[c.Index()]
	bank := d.ports[c.Port]
	d.ic.Lock()
	defer d.ic.Unlock()
	if b.enables != 0 {
		bank.DisableIRQ(c.Bit)
	}
	b.trig = t
	b.h = h
	b.arg = arg
	bank.SetTrigger(c.Bit, tr)
	if b.enables != 0 {
		bank.EnableIRQ(c.Bit)
	}
	return nil
}

// Detach implements pinctl.Ops.
//
// A pin that is still enabled is disabled first, as many times as it was
// enabled. Detaching an unbound pin only resets its trigger detection.
func (d *Dev) Detach(id pinctl.PinID) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	b := &d.bindings[c.Index()]
	for b.enables != 0 {
		d.disable(c)
	}
	d.ic.Lock()
	*b = binding{}
	d.ports[c.Port].ClearTrigger(c.Bit)
	d.ic.Unlock()
	return nil
}

// Enable implements pinctl.Ops.
//
// The first enabled pin of a port connects the port line. Enabling a pin
// n times takes n Disable calls to mask it again.
func (d *Dev) Enable(id pinctl.PinID) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	d.enable(c)
	return nil
}

// Disable implements pinctl.Ops.
//
// The last disabled pin of a port masks the port line. Disabling a pin that
// is not enabled does nothing.
func (d *Dev) Disable(id pinctl.PinID) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	d.disable(c)
	return nil
}

// Dispatch services the interrupt line of a port.
//
// The pins pending when it starts are handled lowest bit first; each pin's
// handler is called before its pending bit is acknowledged. Pins becoming
// pending meanwhile raise the line again.
func (d *Dev) Dispatch(port int) {
	if d.dispatching[port] {
		panic("swm181: re-entrant dispatch on port " + string(rune('A'+port)))
	}
	d.dispatching[port] = true
	defer func() { d.dispatching[port] = false }()
	bank := d.ports[port]
	pending := bank.Pending()
	for pending != 0 {
		bit := bits.TrailingZeros32(pending)
		pending &= pending - 1
		if b := &d.bindings[port*pinmap.PinsPerPort+bit]; b.h != nil {
			b.h(b.arg)
		}
		bank.Ack(uint8(bit))
	}
}

// Refs returns the number of enables held on a port.
func (d *Dev) Refs(port int) int {
	d.ic.Lock()
	defer d.ic.Unlock()
	return d.refs[port]
}

// Bound reports whether a handler is attached to the pin and with which
// trigger.
func (d *Dev) Bound(id pinctl.PinID) (pinctl.TriggerMode, bool) {
	c, err := pinmap.Translate(id)
	if err != nil {
		return 0, false
	}
	b := &d.bindings[c.Index()]
	return b.trig, b.h != nil
}

// Enabled returns how many times the pin is enabled.
func (d *Dev) Enabled(id pinctl.PinID) int {
	c, err := pinmap.Translate(id)
	if err != nil {
		return 0
	}
	d.ic.Lock()
	defer d.ic.Unlock()
	return d.bindings[c.Index()].enables
}

//

func (d *Dev) enable(c pinmap.Coord) {
	port := int(c.Port)
	d.ic.Lock()
	if d.refs[port] == 0 {
		d.ic.Connect(PortSource(port), PortLine(port), d.prio)
	}
	d.refs[port]++
	b := &d.bindings[c.Index()]
	b.enables++
	if b.enables == 1 {
		d.ports[port].EnableIRQ(c.Bit)
	}
	d.ic.Unlock()
}

func (d *Dev) disable(c pinmap.Coord) {
	port := int(c.Port)
	d.ic.Lock()
	b := &d.bindings[c.Index()]
	if b.enables == 0 {
		d.ic.Unlock()
		return
	}
	b.enables--
	if b.enables == 0 {
		d.ports[port].DisableIRQ(c.Bit)
	}
	d.refs[port]--
	if d.refs[port] == 0 {
		d.ic.Mask(PortLine(port))
	}
	d.ic.Unlock()
}
