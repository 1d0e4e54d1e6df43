// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package swm181

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/pinctl/pinmap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"
)

// The internal structure for a group of pins of one port.
type pinGroup struct {
	dev         *Dev
	port        int
	pins        []*Pin
	defaultMask gpio.GPIOValue
}

// Group returns a gpio.Group made of bits of one port.
//
// Out changes all the selected pins in one store to the set and clear
// registers.
func (d *Dev) Group(port int, bits []int) (gpio.Group, error) {
	if port < 0 || port >= NumPorts {
		return nil, errors.New("swm181: invalid port " + strconv.Itoa(port))
	}
	if len(bits) == 0 || len(bits) > pinmap.PinsPerPort {
		return nil, errors.New("swm181: a group has 1 to 16 pins")
	}
	pins := make([]*Pin, len(bits))
	for i, b := range bits {
		if b < 0 || b >= pinmap.PinsPerPort {
			return nil, errors.New("swm181: invalid bit " + strconv.Itoa(b))
		}
		p := d.pins[port*pinmap.PinsPerPort+b]
		if p == nil {
			return nil, fmt.Errorf("swm181: %s is not bonded", pinmap.Coord{Port: uint8(port), Bit: uint8(b)})
		}
		pins[i] = p
	}
	return &pinGroup{dev: d, port: port, pins: pins, defaultMask: gpio.GPIOValue(1)<<len(bits) - 1}, nil
}

func (pg *pinGroup) Pins() []pin.Pin {
	pins := make([]pin.Pin, len(pg.pins))
	for i, p := range pg.pins {
		pins[i] = p
	}
	return pins
}

func (pg *pinGroup) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(pg.pins) {
		return nil
	}
	return pg.pins[offset]
}

func (pg *pinGroup) ByName(name string) pin.Pin {
	for _, p := range pg.pins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// ByNumber returns the pin at a header position.
func (pg *pinGroup) ByNumber(number int) pin.Pin {
	for _, p := range pg.pins {
		if p.Number() == number {
			return p
		}
	}
	return nil
}

// Out writes value to the pins selected by mask, turning them into
// push-pull outputs if needed. A zero mask selects the whole group.
func (pg *pinGroup) Out(value, mask gpio.GPIOValue) error {
	mask = pg.mask(mask)
	var set, clr uint32
	for i, p := range pg.pins {
		if mask&(1<<i) == 0 {
			continue
		}
		if value&(1<<i) != 0 {
			set |= p.c.Mask()
		} else {
			clr |= p.c.Mask()
		}
	}
	bank := pg.dev.ports[pg.port]
	bank.Set(set)
	bank.Clear(clr)
	for i, p := range pg.pins {
		if mask&(1<<i) != 0 && p.Func() != gpio.OUT {
			if err := p.Out(gpio.Level(value&(1<<i) != 0)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read returns the levels of the pins selected by mask in one read of the
// input register.
func (pg *pinGroup) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	mask = pg.mask(mask)
	in := pg.dev.ports[pg.port].Input()
	var v gpio.GPIOValue
	for i, p := range pg.pins {
		if in&p.c.Mask() != 0 {
			v |= 1 << i
		}
	}
	return v & mask, nil
}

// WaitForEdge is not supported; use the pins' WaitForEdge.
func (pg *pinGroup) WaitForEdge(timeout time.Duration) (int, gpio.Edge, error) {
	return -1, gpio.NoEdge, gpio.ErrGroupFeatureNotImplemented
}

// Halt turns the pins of the group into floating inputs.
func (pg *pinGroup) Halt() error {
	for _, p := range pg.pins {
		if err := p.Halt(); err != nil {
			return err
		}
	}
	return nil
}

func (pg *pinGroup) String() string {
	s := pg.dev.String() + " P" + string(rune('A'+pg.port)) + " ["
	for i, p := range pg.pins {
		if i != 0 {
			s += " "
		}
		s += strconv.Itoa(int(p.c.Bit))
	}
	return s + "]"
}

func (pg *pinGroup) mask(m gpio.GPIOValue) gpio.GPIOValue {
	if m == 0 {
		return pg.defaultMask
	}
	return m & pg.defaultMask
}

var _ gpio.Group = &pinGroup{}
