// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pinout draws the package pinout of the SWM181 as an image.
//
// Positions 1 to 27 run down the left column and 28 to 53 down the right
// one. Each pin is a dot colored after its port, or grey for supply pins,
// followed by its position and name.
package pinout

import (
	"errors"
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Moder returns the mode of a pin; swm181.Dev implements it.
type Moder interface {
	Mode(id pinctl.PinID) (pinctl.PinMode, error)
}

// Opts represents the options of a drawing.
type Opts struct {
	// Title defaults to "SWM181".
	Title string
	// Size is the font size in points. Everything scales with it. Defaults
	// to 14.
	Size float64
	// Modes, when set, adds the current mode of each pin to its label.
	Modes Moder

	_ struct{}
}

// Port colors, PA first.
var portColors = [pinmap.NumPorts]color.NRGBA{
	{0x1F, 0x77, 0xB4, 0xFF},
	{0xFF, 0x7F, 0x0E, 0xFF},
	{0x2C, 0xA0, 0x2C, 0xFF},
	{0xD6, 0x27, 0x28, 0xFF},
	{0x94, 0x67, 0xBD, 0xFF},
}

var supplyColor = color.NRGBA{0x90, 0x90, 0x90, 0xFF}

// perColumn is the number of positions in the left column.
const perColumn = 27

// Draw returns the pinout.
func Draw(opts *Opts) (image.Image, error) {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.Title == "" {
		o.Title = "SWM181"
	}
	if o.Size == 0 {
		o.Size = 14
	}
	if o.Size < 0 {
		return nil, errors.New("pinout: invalid font size")
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.New("pinout: " + err.Error())
	}
	l := newLayout(o.Size)
	dc := gg.NewContext(l.width, l.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: o.Size}))
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(o.Title, float64(l.width)/2, l.margin+l.row/2, 0.5, 0.5)

	gaps := map[pinctl.PinID]string{}
	for _, g := range pinmap.Gaps() {
		gaps[g.ID] = g.Name
	}
	for id := pinmap.First; id <= pinmap.Last; id++ {
		x, y := l.center(id)
		label := strconv.Itoa(int(id)) + " "
		c, err := pinmap.Translate(id)
		if err != nil {
			dc.SetColor(supplyColor)
			label += gaps[id]
		} else {
			dc.SetColor(portColors[c.Port])
			label += c.String()
			if o.Modes != nil {
				if m, err := o.Modes.Mode(id); err == nil {
					label += " " + m.String()
				}
			}
		}
		dc.DrawCircle(x, y, l.radius)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(label, x+2*l.radius, y, 0, 0.35)
	}
	return dc.Image(), nil
}

// Write encodes the pinout as PNG.
func Write(w io.Writer, opts *Opts) error {
	img, err := Draw(opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

//

type layout struct {
	margin, row, column, radius float64
	width, height               int
}

func newLayout(size float64) layout {
	l := layout{margin: size, row: 2 * size, column: 16 * size, radius: 0.6 * size}
	l.width = int(2*l.margin + 2*l.column)
	l.height = int(2*l.margin + l.row*(perColumn+1))
	return l
}

// center returns the center of the dot of a position.
func (l *layout) center(id pinctl.PinID) (float64, float64) {
	i := int(id - pinmap.First)
	x := l.margin + l.radius
	if i >= perColumn {
		i -= perColumn
		x += l.column
	}
	return x, l.margin + l.row*float64(i+1) + l.row/2
}
