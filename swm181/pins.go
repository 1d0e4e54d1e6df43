// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package swm181

import (
	"errors"
	"sync"
	"time"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/pinctlreg"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/GermanBionicSystems/pinctl/portreg"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/pin/pinreg"
)

// Pin is a bonded pin as a gpio.PinIO.
//
// Edge detection goes through the same handler table as Attach: In with an
// edge attaches and enables the pin, In with gpio.NoEdge or Out detaches it.
type Pin struct {
	dev   *Dev
	c     pinmap.Coord
	id    pinctl.PinID
	edges chan struct{}
	halt  chan struct{}

	mu   sync.Mutex
	edge gpio.Edge
}

func (p *Pin) String() string {
	return p.Name()
}

// Halt stops any edge detection and turns the pin into a floating input.
func (p *Pin) Halt() error {
	select {
	case p.halt <- struct{}{}:
	default:
	}
	return p.In(gpio.Float, gpio.NoEdge)
}

// Name returns the port and bit, e.g. "PA4".
func (p *Pin) Name() string {
	return p.c.String()
}

// Number returns the header position.
func (p *Pin) Number() int {
	return int(p.id)
}

func (p *Pin) Function() string {
	return string(p.Func())
}

// Coord returns the port and bit of the pin.
func (p *Pin) Coord() pinmap.Coord {
	return p.c
}

func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	var mode pinctl.PinMode
	switch pull {
	case gpio.Float:
		mode = pinctl.Input
	case gpio.PullUp:
		mode = pinctl.InputPullUp
	case gpio.PullDown:
		mode = pinctl.InputPullDown
	case gpio.PullNoChange:
		mode = pinctl.Input
		if m := modeOf(p.pad()); m == pinctl.InputPullUp || m == pinctl.InputPullDown {
			mode = m
		}
	default:
		return errors.New("swm181: invalid pull " + pull.String())
	}
	var t pinctl.TriggerMode
	switch edge {
	case gpio.NoEdge:
	case gpio.RisingEdge:
		t = pinctl.RisingEdge
	case gpio.FallingEdge:
		t = pinctl.FallingEdge
	case gpio.BothEdges:
		t = pinctl.BothEdges
	default:
		return errors.New("swm181: invalid edge " + edge.String())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.edge != gpio.NoEdge {
		if err := p.dev.Detach(p.id); err != nil {
			return err
		}
		p.edge = gpio.NoEdge
	}
	p.dev.configure(p.c, mode)
	if edge == gpio.NoEdge {
		return nil
	}
	// Drop an edge or a Halt left over from a previous configuration.
	select {
	case <-p.edges:
	default:
	}
	select {
	case <-p.halt:
	default:
	}
	if err := p.dev.Attach(p.id, t, pinEdge, p); err != nil {
		return err
	}
	if err := p.dev.Enable(p.id); err != nil {
		return err
	}
	p.edge = edge
	return nil
}

func (p *Pin) Read() gpio.Level {
	return p.dev.read(p.c)
}

// WaitForEdge waits for the edge selected with In.
//
// A negative timeout waits forever. It returns false on timeout, when the
// pin has no edge detection or when Halt is called.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	if !p.detecting() {
		return false
	}
	var after <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		after = t.C
	}
	select {
	case <-p.edges:
		return true
	case <-p.halt:
		return false
	case <-after:
		return false
	}
}

func (p *Pin) Pull() gpio.Pull {
	switch modeOf(p.pad()) {
	case pinctl.InputPullUp:
		return gpio.PullUp
	case pinctl.InputPullDown:
		return gpio.PullDown
	}
	return gpio.Float
}

func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out drives the pin push-pull.
//
// The level is latched before the pad turns into an output so the pin
// does not glitch.
func (p *Pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.edge != gpio.NoEdge {
		if err := p.dev.Detach(p.id); err != nil {
			return err
		}
		p.edge = gpio.NoEdge
	}
	p.dev.write(p.c, l)
	p.dev.configure(p.c, pinctl.Output)
	return nil
}

func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("swm181: PWM is not supported on " + p.Name())
}

func (p *Pin) Func() pin.Func {
	if p.pad()&portreg.PadOutput != 0 {
		return gpio.OUT
	}
	return gpio.IN
}

func (p *Pin) SupportedFuncs() []pin.Func {
	return supportedFuncs[:]
}

func (p *Pin) SetFunc(f pin.Func) error {
	switch f {
	case gpio.IN:
		return p.In(gpio.PullNoChange, gpio.NoEdge)
	case gpio.OUT:
		return p.Out(p.Read())
	default:
		return errors.New("swm181: function not supported: " + string(f))
	}
}

//

var supportedFuncs = [...]pin.Func{gpio.IN, gpio.OUT}

func (p *Pin) detecting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edge != gpio.NoEdge
}

func (p *Pin) pad() portreg.Pad {
	return p.dev.ports[p.c.Port].Pad(p.c.Bit)
}

// pinEdge is the handler of pins waiting with WaitForEdge. Edges coalesce
// until the waiter runs.
func pinEdge(arg interface{}) {
	p := arg.(*Pin)
	select {
	case p.edges <- struct{}{}:
	default:
	}
}

// register publishes the controller, the pins and the header.
func (d *Dev) register() error {
	if err := pinctlreg.Register(d.name, nil, func() (pinctl.Ops, error) { return d, nil }); err != nil {
		return err
	}
	d.registered = true
	for _, p := range d.Pins() {
		if err := gpioreg.Register(p); err != nil {
			return multierr.Append(err, d.unregister())
		}
		d.gpios = append(d.gpios, p.Name())
	}
	gaps := map[pinctl.PinID]string{}
	for _, g := range pinmap.Gaps() {
		gaps[g.ID] = g.Name
	}
	rows := make([][]pin.Pin, 0, pinmap.Last)
	for id := pinmap.First; id <= pinmap.Last; id++ {
		if p, err := d.Pin(id); err == nil {
			rows = append(rows, []pin.Pin{p})
		} else {
			rows = append(rows, []pin.Pin{&pin.BasicPin{N: gaps[id]}})
		}
	}
	if err := pinreg.Register(d.header, rows); err != nil {
		return multierr.Append(err, d.unregister())
	}
	d.headered = true
	return nil
}

// unregister undoes what register managed to do.
func (d *Dev) unregister() error {
	var err error
	if d.headered {
		err = multierr.Append(err, pinreg.Unregister(d.header))
		d.headered = false
	}
	for _, n := range d.gpios {
		err = multierr.Append(err, gpioreg.Unregister(n))
	}
	d.gpios = nil
	if d.registered {
		err = multierr.Append(err, pinctlreg.Unregister(d.name))
		d.registered = false
	}
	return err
}

var _ gpio.PinIO = &Pin{}
var _ pin.PinFunc = &Pin{}
