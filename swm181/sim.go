// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package swm181

import (
	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/irqc/irqctest"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/GermanBionicSystems/pinctl/portreg"
	"github.com/GermanBionicSystems/pinctl/portreg/portregtest"
	"periph.io/x/conn/v3/gpio"
)

// Sim is the simulated hardware behind a Dev returned by Simulate.
type Sim struct {
	Ports [NumPorts]*portregtest.Port
	IRQ   *irqctest.Fake
}

// Simulate returns a Dev whose ports raise their lines on a fake interrupt
// controller, for tests and for running without the chip.
func Simulate(opts *Opts) (*Dev, *Sim, error) {
	s := &Sim{IRQ: &irqctest.Fake{}}
	var banks [NumPorts]portreg.Bank
	for i := range s.Ports {
		l := PortLine(i)
		p := &portregtest.Port{OnPending: func() { s.IRQ.Raise(l) }}
		s.Ports[i] = p
		banks[i] = p
	}
	d, err := New(banks, s.IRQ, opts)
	if err != nil {
		return nil, nil, err
	}
	return d, s, nil
}

// Drive applies an external level to the pin at a header position.
func (s *Sim) Drive(id pinctl.PinID, l gpio.Level) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	s.Ports[c.Port].Drive(c.Bit, l)
	return nil
}

// Release removes the external driver of the pin at a header position.
func (s *Sim) Release(id pinctl.PinID) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	s.Ports[c.Port].Release(c.Bit)
	return nil
}
