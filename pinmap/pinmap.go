// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pinmap translates board header numbers into the dense (port, bit)
// coordinates of the SWM181 GPIO block.
//
// The header is numbered 1 to 53. Positions wired to supplies or to the
// reset line are not GPIO and translate to None; so do numbers outside the
// header.
//
// The GPIO block has five ports of sixteen bits but the package only bonds
// out part of each port, so the mapping is sparse in both directions.
package pinmap

import (
	"errors"
	"strconv"

	"github.com/GermanBionicSystems/pinctl"
)

const (
	// NumPorts is the number of GPIO ports, PA to PE.
	NumPorts = 5
	// PinsPerPort is the width of a port.
	PinsPerPort = 16
	// NumCoords is the size of the dense coordinate space.
	NumCoords = NumPorts * PinsPerPort

	// First is the lowest header number.
	First pinctl.PinID = 1
	// Last is the highest header number.
	Last pinctl.PinID = 53
)

// Coord is the internal address of a pin.
type Coord struct {
	Port uint8
	Bit  uint8
}

// None is the coordinate of unbonded header positions. It is not a valid
// coordinate.
var None = Coord{Port: 0xFF, Bit: 0xFF}

// Valid returns true if c addresses a real GPIO bit.
func (c Coord) Valid() bool {
	return c.Port < NumPorts && c.Bit < PinsPerPort
}

// Index returns the dense index of c in [0, NumCoords).
//
// It is only meaningful for a valid coordinate.
func (c Coord) Index() int {
	return int(c.Port)*PinsPerPort + int(c.Bit)
}

// Mask returns the bit mask of c within its port.
func (c Coord) Mask() uint32 {
	return 1 << c.Bit
}

func (c Coord) String() string {
	if !c.Valid() {
		return "NC"
	}
	return "P" + string(rune('A'+c.Port)) + strconv.Itoa(int(c.Bit))
}

// FromIndex is the inverse of Coord.Index.
func FromIndex(i int) Coord {
	if i < 0 || i >= NumCoords {
		return None
	}
	return Coord{Port: uint8(i / PinsPerPort), Bit: uint8(i % PinsPerPort)}
}

// ParseCoord parses the "PA4" form returned by Coord.String.
func ParseCoord(s string) (Coord, error) {
	if len(s) < 3 || len(s) > 4 || s[0] != 'P' || s[1] < 'A' || s[1] >= 'A'+NumPorts {
		return None, errors.New("pinmap: invalid coordinate " + strconv.Quote(s))
	}
	b := 0
	for _, r := range s[2:] {
		if r < '0' || r > '9' {
			return None, errors.New("pinmap: invalid coordinate " + strconv.Quote(s))
		}
		b = 10*b + int(r-'0')
	}
	if b >= PinsPerPort {
		return None, errors.New("pinmap: invalid coordinate " + strconv.Quote(s))
	}
	return Coord{Port: s[1] - 'A', Bit: uint8(b)}, nil
}

// Translate returns the coordinate of a header pin.
//
// It returns pinctl.ErrInvalidPin for numbers outside [First, Last] and for
// positions that are not bonded to a GPIO.
func Translate(id pinctl.PinID) (Coord, error) {
	if id < First || id > Last {
		return None, pinctl.ErrInvalidPin
	}
	c := header[id]
	if !c.Valid() {
		return None, pinctl.ErrInvalidPin
	}
	return c, nil
}

// Lookup returns the header number of a coordinate, if it is bonded out.
func Lookup(c Coord) (pinctl.PinID, bool) {
	if !c.Valid() {
		return 0, false
	}
	id := reverse[c.Index()]
	return id, id != 0
}

// Pack returns the packed port*16+bit number of c, which is how the vendor
// headers number GPIOs.
func Pack(c Coord) int {
	return c.Index()
}

// Gap describes a header position that is not a GPIO.
type Gap struct {
	ID   pinctl.PinID
	Name string
}

// Gaps returns the header positions that are not GPIO, in header order.
func Gaps() []Gap {
	out := make([]Gap, 0, len(gaps))
	for id := First; id <= Last; id++ {
		if n, ok := gaps[id]; ok {
			out = append(out, Gap{ID: id, Name: n})
		}
	}
	return out
}

// Check verifies the header table: every position is either None or a
// valid coordinate, none is used twice and every gap has a name.
//
// It is meant to be called once at startup.
func Check() error {
	var seen [NumCoords]pinctl.PinID
	if header[0] != None {
		return errors.New("pinmap: header position 0 must be None")
	}
	for id := First; id <= Last; id++ {
		c := header[id]
		if c == None {
			if _, ok := gaps[id]; !ok {
				return errors.New("pinmap: header position " + strconv.Itoa(int(id)) + " is unbonded but has no supply name")
			}
			continue
		}
		if !c.Valid() {
			return errors.New("pinmap: header position " + strconv.Itoa(int(id)) + " holds invalid coordinate")
		}
		if prev := seen[c.Index()]; prev != 0 {
			return errors.New("pinmap: " + c.String() + " is mapped by header positions " + strconv.Itoa(int(prev)) + " and " + strconv.Itoa(int(id)))
		}
		seen[c.Index()] = id
	}
	if seen != reverse {
		return errors.New("pinmap: reverse table is out of date")
	}
	return nil
}

//

var gaps = map[pinctl.PinID]string{
	11: "VDD",
	12: "GND",
	26: "NRST",
	38: "VDDA",
	39: "GND",
}

// header is indexed by PinID. Entry 0 is never used.
var header = [Last + 1]Coord{
	None,
	// 1-10: PA0-PA9
	{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5}, {0, 6}, {0, 7}, {0, 8}, {0, 9},
	// 11-12: VDD, GND
	None, None,
	// 13-18: PA10-PA15
	{0, 10}, {0, 11}, {0, 12}, {0, 13}, {0, 14}, {0, 15},
	// 19-25: PB0-PB6
	{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}, {1, 5}, {1, 6},
	// 26: NRST
	None,
	// 27-31: PB7-PB11
	{1, 7}, {1, 8}, {1, 9}, {1, 10}, {1, 11},
	// 32-37: PC0-PC5
	{2, 0}, {2, 1}, {2, 2}, {2, 3}, {2, 4}, {2, 5},
	// 38-39: VDDA, GND
	None, None,
	// 40-41: PC6-PC7
	{2, 6}, {2, 7},
	// 42-49: PD0-PD7
	{3, 0}, {3, 1}, {3, 2}, {3, 3}, {3, 4}, {3, 5}, {3, 6}, {3, 7},
	// 50-53: PE0-PE3
	{4, 0}, {4, 1}, {4, 2}, {4, 3},
}

var reverse = func() [NumCoords]pinctl.PinID {
	var r [NumCoords]pinctl.PinID
	for id := First; id <= Last; id++ {
		if c := header[id]; c.Valid() {
			r[c.Index()] = id
		}
	}
	return r
}()
