// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package portview prints the state of the GPIO ports to a terminal using
// ANSI color codes.
//
// Each port is a line of sixteen cells, bit 0 first. Outputs are red,
// inputs green, bright when the pin reads high; unbonded bits are grey.
package portview

import (
	"bytes"
	"image/color"
	"io"
	"os"
	"strconv"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Controller is what a View needs from a pin controller.
type Controller interface {
	Levels(port int) uint32
	Mode(id pinctl.PinID) (pinctl.PinMode, error)
	Refs(port int) int
}

// Opts represents the options available for a View.
type Opts struct {
	// W defaults to the console.
	W       io.Writer
	Palette *ansi256.Palette
	// Plain prints letters instead of colors. It is forced when W is nil and
	// stdout is not a terminal.
	Plain bool

	_ struct{}
}

// View renders the ports of a Controller.
type View struct {
	c       Controller
	w       io.Writer
	palette ansi256.Palette
	plain   bool

	buf bytes.Buffer
}

// New returns a View of c.
func New(c Controller, opts *Opts) *View {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	p := o.Palette
	if p == nil {
		p = ansi256.Default
	}
	v := &View{c: c, w: o.W, palette: *p, plain: o.Plain}
	if v.w == nil {
		fd := os.Stdout.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			v.plain = true
		}
		v.w = colorable.NewColorableStdout()
	}
	return v
}

func (v *View) String() string {
	return "PortView"
}

// Halt resets the terminal attributes.
func (v *View) Halt() error {
	if v.plain {
		return nil
	}
	_, err := io.WriteString(v.w, "\033[0m")
	return err
}

// Refresh prints all the ports.
func (v *View) Refresh() error {
	// Reuse the buffer so a refresh loop does not allocate per frame.
	v.buf.Reset()
	for port := 0; port < pinmap.NumPorts; port++ {
		v.port(port)
	}
	_, err := v.buf.WriteTo(v.w)
	return err
}

//

// Cell colors.
var (
	colorNC      = color.NRGBA{0x40, 0x40, 0x40, 0xFF}
	colorOutHigh = color.NRGBA{0xFF, 0x20, 0x20, 0xFF}
	colorOutLow  = color.NRGBA{0x60, 0x00, 0x00, 0xFF}
	colorInHigh  = color.NRGBA{0x20, 0xFF, 0x20, 0xFF}
	colorInLow   = color.NRGBA{0x00, 0x60, 0x00, 0xFF}
)

func (v *View) port(port int) {
	levels := v.c.Levels(port)
	v.buf.WriteString("P")
	v.buf.WriteByte(byte('A' + port))
	v.buf.WriteByte(' ')
	for bit := 0; bit < pinmap.PinsPerPort; bit++ {
		c := pinmap.Coord{Port: uint8(port), Bit: uint8(bit)}
		id, ok := pinmap.Lookup(c)
		if !ok {
			v.cell('.', colorNC)
			continue
		}
		m, err := v.c.Mode(id)
		if err != nil {
			v.cell('?', colorNC)
			continue
		}
		high := levels&c.Mask() != 0
		out := m == pinctl.Output || m == pinctl.OutputOpenDrain
		switch {
		case out && high:
			v.cell('H', colorOutHigh)
		case out:
			v.cell('L', colorOutLow)
		case high:
			v.cell('h', colorInHigh)
		default:
			v.cell('l', colorInLow)
		}
	}
	if !v.plain {
		v.buf.WriteString("\033[0m")
	}
	v.buf.WriteString(" refs=")
	v.buf.WriteString(strconv.Itoa(v.c.Refs(port)))
	v.buf.WriteString("\n")
}

func (v *View) cell(r byte, c color.NRGBA) {
	if v.plain {
		v.buf.WriteByte(r)
		return
	}
	v.buf.WriteString(v.palette.Block(c))
}
