// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package swm181

import (
	"errors"
	"strconv"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/irqc"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/GermanBionicSystems/pinctl/portreg"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
)

// NumPorts is the number of GPIO ports.
const NumPorts = pinmap.NumPorts

// DefaultPriority is the interrupt priority of port lines, as used by the
// vendor board support.
const DefaultPriority = 2

// Opts is the configuration of a Dev.
type Opts struct {
	// Name is the name registered with pinctlreg. Defaults to "pin".
	Name string
	// Priority of the port lines at the interrupt controller, 1 to 3 with 1
	// the most urgent. 0 selects DefaultPriority.
	Priority uint8
	// Header is the name registered with pinreg. Defaults to "J1".
	Header string
	// Register publishes the controller to pinctlreg, its pins to gpioreg
	// and its header to pinreg.
	Register bool

	_ struct{}
}

// Dev is the GPIO block.
type Dev struct {
	name   string
	header string
	prio   uint8
	ports  [NumPorts]portreg.Bank
	ic     irqc.Controller

	bindings    [pinmap.NumCoords]binding
	refs        [NumPorts]int
	dispatching [NumPorts]bool

	pins       [pinmap.NumCoords]*Pin
	registered bool
	headered   bool
	gpios      []string
}

// binding is an interrupt handler slot. h is nil when unbound.
type binding struct {
	trig    pinctl.TriggerMode
	h       pinctl.Handler
	arg     interface{}
	enables int
}

// New returns a Dev over the register banks of the five ports.
//
// It installs Dispatch as the service routine of each port line of ic.
func New(ports [NumPorts]portreg.Bank, ic irqc.Controller, opts *Opts) (*Dev, error) {
	if err := pinmap.Check(); err != nil {
		return nil, errors.New("swm181: " + err.Error())
	}
	for i, p := range ports {
		if p == nil {
			return nil, errors.New("swm181: port " + strconv.Itoa(i) + " has no register bank")
		}
	}
	if ic == nil {
		return nil, errors.New("swm181: no interrupt controller")
	}
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.Name == "" {
		o.Name = "pin"
	}
	if o.Header == "" {
		o.Header = "J1"
	}
	if o.Priority == 0 {
		o.Priority = DefaultPriority
	}
	if o.Priority > 3 {
		return nil, errors.New("swm181: priority must be 1 to 3, got " + strconv.Itoa(int(o.Priority)))
	}
	d := &Dev{name: o.Name, header: o.Header, prio: o.Priority, ports: ports, ic: ic}
	for port := 0; port < NumPorts; port++ {
		port := port
		ic.Handle(PortLine(port), func() { d.Dispatch(port) })
	}
	for i := 0; i < pinmap.NumCoords; i++ {
		c := pinmap.FromIndex(i)
		if id, ok := pinmap.Lookup(c); ok {
			d.pins[i] = &Pin{dev: d, c: c, id: id, edges: make(chan struct{}, 1), halt: make(chan struct{}, 1)}
		}
	}
	if o.Register {
		if err := d.register(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Open maps the GPIO ports and the NVIC from physical memory.
//
// Nothing services the port lines until the returned NVIC's Serve is
// running.
func Open(opts *Opts) (*Dev, *irqc.NVIC, error) {
	var banks [NumPorts]portreg.Bank
	for i := range banks {
		b, err := portreg.Map(i)
		if err != nil {
			return nil, nil, errors.New("swm181: " + err.Error())
		}
		banks[i] = b
	}
	n, err := irqc.OpenNVIC()
	if err != nil {
		return nil, nil, errors.New("swm181: " + err.Error())
	}
	d, err := New(banks, n, opts)
	if err != nil {
		return nil, nil, err
	}
	return d, n, nil
}

func (d *Dev) String() string {
	return "SWM181"
}

// Name returns the name the controller registers under.
func (d *Dev) Name() string {
	return d.name
}

// Close detaches every handler and removes any registration.
//
// Pins waiting for edges are halted.
func (d *Dev) Close() error {
	var err error
	for _, p := range d.pins {
		if p != nil && p.detecting() {
			err = multierr.Append(err, p.Halt())
		}
	}
	for i := range d.bindings {
		if d.bindings[i].h == nil {
			continue
		}
		if id, ok := pinmap.Lookup(pinmap.FromIndex(i)); ok {
			err = multierr.Append(err, d.Detach(id))
		}
	}
	return multierr.Append(err, d.unregister())
}

// PortLine returns the processor interrupt line of a port.
func PortLine(port int) irqc.Line {
	return irqc.FirstMuxLine + irqc.Line(port)
}

// PortSource returns the multiplexer source of a port.
func PortSource(port int) irqc.Source {
	return sourceGPIOA + irqc.Source(port)
}

// sourceGPIOA is the IRQ16..31 multiplexer code of port A; the other ports
// follow.
const sourceGPIOA irqc.Source = 0x08

// Pin returns the gpio.PinIO of a header position.
func (d *Dev) Pin(id pinctl.PinID) (*Pin, error) {
	c, err := pinmap.Translate(id)
	if err != nil {
		return nil, err
	}
	return d.pins[c.Index()], nil
}

// Pins returns the bonded pins in header order.
func (d *Dev) Pins() []*Pin {
	out := make([]*Pin, 0, pinmap.NumCoords)
	for id := pinmap.First; id <= pinmap.Last; id++ {
		if p, err := d.Pin(id); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Configure implements pinctl.Ops.
//
// Direction, pull network and drive type are written in one store, so the
// pin never goes through a state mixing the old and new mode. It panics if
// mode is not a declared pinctl.PinMode.
func (d *Dev) Configure(id pinctl.PinID, mode pinctl.PinMode) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	d.configure(c, mode)
	return nil
}

// Write implements pinctl.Ops.
func (d *Dev) Write(id pinctl.PinID, l gpio.Level) error {
	c, err := pinmap.Translate(id)
	if err != nil {
		return err
	}
	d.write(c, l)
	return nil
}

// Read implements pinctl.Ops.
func (d *Dev) Read(id pinctl.PinID) (gpio.Level, error) {
	c, err := pinmap.Translate(id)
	if err != nil {
		return gpio.Low, err
	}
	return d.read(c), nil
}

// Levels returns the input register of a port.
func (d *Dev) Levels(port int) uint32 {
	return d.ports[port].Input()
}

// Mode returns the mode a pin is configured in.
func (d *Dev) Mode(id pinctl.PinID) (pinctl.PinMode, error) {
	c, err := pinmap.Translate(id)
	if err != nil {
		return 0, err
	}
	return modeOf(d.ports[c.Port].Pad(c.Bit)), nil
}

//

func (d *Dev) configure(c pinmap.Coord, mode pinctl.PinMode) {
	pad, ok := portreg.PadFor(mode)
	if !ok {
		panic("swm181: invalid pin mode " + mode.String())
	}
	d.ports[c.Port].SetPad(c.Bit, pad)
}

// write uses the set and clear registers; other bits of the port may be
// written concurrently by handlers or other goroutines.
func (d *Dev) write(c pinmap.Coord, l gpio.Level) {
	if l == gpio.High {
		d.ports[c.Port].Set(c.Mask())
	} else {
		d.ports[c.Port].Clear(c.Mask())
	}
}

func (d *Dev) read(c pinmap.Coord) gpio.Level {
	return gpio.Level(d.ports[c.Port].Input()&c.Mask() != 0)
}

func modeOf(p portreg.Pad) pinctl.PinMode {
	switch {
	case p&portreg.PadOutput != 0 && p&portreg.PadOpenDrain != 0:
		return pinctl.OutputOpenDrain
	case p&portreg.PadOutput != 0:
		return pinctl.Output
	case p&portreg.PadPullUp != 0:
		return pinctl.InputPullUp
	case p&portreg.PadPullDown != 0:
		return pinctl.InputPullDown
	}
	return pinctl.Input
}

var _ pinctl.Ops = &Dev{}
