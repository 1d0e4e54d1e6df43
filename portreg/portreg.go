// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package portreg describes the control block of one SWM181 GPIO port and
// provides access to it.
//
// Each port has its own block, GPIOBase + port*Stride. Output levels are
// changed through write-1 set and clear registers so that concurrent writers
// of different bits never race on a read-modify-write of the data register.
// Each pin has its own pad register holding direction, pull network and
// drive type, so a mode change is one store.
package portreg

import (
	"errors"
	"strconv"

	"github.com/GermanBionicSystems/pinctl"
	"periph.io/x/host/v3/pmem"
)

const (
	// GPIOBase is the physical address of port A.
	GPIOBase uint64 = 0x40040000
	// Stride is the distance between two port blocks.
	Stride uint64 = 0x1000
	// NumPorts is the number of port blocks.
	NumPorts = 5
)

// Base returns the physical address of a port's control block.
func Base(port int) uint64 {
	return GPIOBase + uint64(port)*Stride
}

// Regs is the register layout of a port control block.
//
// Only the low 16 bits of each port-wide register are implemented.
type Regs struct {
	DATA      uint32     // 0x00 pin levels; writes are ignored
	DATASET   uint32     // 0x04 write 1 to drive high
	DATACLR   uint32     // 0x08 write 1 to drive low
	_         uint32     // 0x0C
	PAD       [16]uint32 // 0x10 one Pad per pin
	INTLVLTRG uint32     // 0x50 1 level, 0 edge
	INTBE     uint32     // 0x54 1 both edges (edge mode only)
	INTRISEEN uint32     // 0x58 1 rising edge or high level
	INTEN     uint32     // 0x5C pin interrupt unmask
	INTRAW    uint32     // 0x60 raw latched status
	INTSTAT   uint32     // 0x64 INTRAW & INTEN
	INTCLR    uint32     // 0x68 write 1 to clear INTRAW
}

// Pad is the content of a pin's pad register.
type Pad uint32

// Pad bits.
const (
	PadOutput    Pad = 1 << 0 // direction, 1 is output
	PadPullUp    Pad = 1 << 1
	PadPullDown  Pad = 1 << 2
	PadOpenDrain Pad = 1 << 3 // only meaningful with PadOutput
)

// PadFor decomposes a pin mode into its pad attributes.
//
// ok is false for a value that is not a declared pinctl.PinMode.
func PadFor(m pinctl.PinMode) (p Pad, ok bool) {
	switch m {
	case pinctl.Output:
		return PadOutput, true
	case pinctl.Input:
		return 0, true
	case pinctl.InputPullUp:
		return PadPullUp, true
	case pinctl.InputPullDown:
		return PadPullDown, true
	case pinctl.OutputOpenDrain:
		return PadOutput | PadOpenDrain, true
	}
	return 0, false
}

// Trigger is the encoding of a trigger mode in the three detection
// registers.
type Trigger struct {
	Level bool // INTLVLTRG
	Both  bool // INTBE
	Rise  bool // INTRISEEN
}

// TriggerFor encodes a trigger mode. There is no default encoding: ok is
// false for a value that is not a declared pinctl.TriggerMode.
func TriggerFor(t pinctl.TriggerMode) (tr Trigger, ok bool) {
	switch t {
	case pinctl.RisingEdge:
		return Trigger{Rise: true}, true
	case pinctl.FallingEdge:
		return Trigger{}, true
	case pinctl.BothEdges:
		return Trigger{Both: true}, true
	case pinctl.HighLevel:
		return Trigger{Level: true, Rise: true}, true
	case pinctl.LowLevel:
		return Trigger{Level: true}, true
	}
	return Trigger{}, false
}

// Bank is access to one port's registers.
//
// Bit arguments are in [0, 16).
type Bank interface {
	// SetPad replaces the pad configuration of a pin in one store.
	SetPad(bit uint8, p Pad)
	// Pad returns the pad configuration of a pin.
	Pad(bit uint8) Pad
	// Input returns the level of all pins.
	Input() uint32
	// Set drives the pins in mask high.
	Set(mask uint32)
	// Clear drives the pins in mask low.
	Clear(mask uint32)
	// SetTrigger programs the detection mode of a pin and discards any
	// status latched under the previous mode.
	SetTrigger(bit uint8, t Trigger)
	// ClearTrigger resets the detection mode of a pin to its reset value.
	ClearTrigger(bit uint8)
	// EnableIRQ unmasks a pin's interrupt.
	EnableIRQ(bit uint8)
	// DisableIRQ masks a pin's interrupt.
	DisableIRQ(bit uint8)
	// Pending returns the latched status of unmasked pins.
	Pending() uint32
	// Ack clears a pin's latched status.
	Ack(bit uint8)
}

// Map maps a port's control block from physical memory.
//
// It requires access to /dev/mem; call host.Init() first.
func Map(port int) (Bank, error) {
	if port < 0 || port >= NumPorts {
		return nil, errors.New("portreg: invalid port " + strconv.Itoa(port))
	}
	var r *Regs
	if err := pmem.MapAsPOD(Base(port), &r); err != nil {
		return nil, errors.New("portreg: failed to map port " + strconv.Itoa(port) + ": " + err.Error())
	}
	return NewBank(r), nil
}

// NewBank returns a Bank over registers already mapped in memory.
func NewBank(r *Regs) Bank {
	return &mmio{r: r}
}
