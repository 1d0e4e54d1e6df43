// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pinctl

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

var (
	// ErrInvalidPin is returned when a PinID is outside the declared range or
	// names a header position that is not bonded to a GPIO.
	//
	// It is always returned as is, never wrapped, so that the lookup path
	// does not allocate.
	ErrInvalidPin = errors.New("pinctl: invalid pin")
	// ErrTimeout is returned when a bounded wait for a hardware state
	// transition did not complete. It is never retried internally.
	ErrTimeout = errors.New("pinctl: timeout")
)

// PinID is the external pin identifier, the number printed on the board
// header.
type PinID int

// PinMode is the electrical mode of a pin.
type PinMode uint8

// Acceptable PinMode values.
const (
	Output PinMode = iota
	Input
	InputPullUp
	InputPullDown
	OutputOpenDrain
)

const pinModeName = "OutputInputInputPullUpInputPullDownOutputOpenDrain"

var pinModeIndex = [...]uint8{0, 6, 11, 22, 35, 50}

func (m PinMode) String() string {
	if m >= PinMode(len(pinModeIndex)-1) {
		return fmt.Sprintf("PinMode(%d)", m)
	}
	return pinModeName[pinModeIndex[m]:pinModeIndex[m+1]]
}

// Valid returns true if m is one of the declared modes.
func (m PinMode) Valid() bool {
	return m <= OutputOpenDrain
}

// TriggerMode is the electrical condition that sets a pin's interrupt
// pending bit.
type TriggerMode uint8

// Acceptable TriggerMode values.
const (
	RisingEdge TriggerMode = iota
	FallingEdge
	BothEdges
	HighLevel
	LowLevel
)

const triggerModeName = "RisingEdgeFallingEdgeBothEdgesHighLevelLowLevel"

var triggerModeIndex = [...]uint8{0, 10, 21, 30, 39, 47}

func (t TriggerMode) String() string {
	if t >= TriggerMode(len(triggerModeIndex)-1) {
		return fmt.Sprintf("TriggerMode(%d)", t)
	}
	return triggerModeName[triggerModeIndex[t]:triggerModeIndex[t+1]]
}

// Valid returns true if t is one of the declared trigger modes.
func (t TriggerMode) Valid() bool {
	return t <= LowLevel
}

// ParseTriggerMode converts a user supplied name to a TriggerMode. Both the
// String() form and the short forms "rising", "falling", "both", "high" and
// "low" are accepted.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch s {
	case "RisingEdge", "rising":
		return RisingEdge, nil
	case "FallingEdge", "falling":
		return FallingEdge, nil
	case "BothEdges", "both":
		return BothEdges, nil
	case "HighLevel", "high":
		return HighLevel, nil
	case "LowLevel", "low":
		return LowLevel, nil
	}
	return 0, fmt.Errorf("pinctl: unknown trigger mode %q", s)
}

// Handler is an interrupt callback. It is invoked from interrupt context
// with the argument given at attach time.
//
// A Handler must not block or allocate. It must not attach, detach, enable
// or disable pins either; controllers may hold the lock those need while
// dispatching.
type Handler func(arg interface{})

// Ops is the operation table a pin controller registers with the device
// framework. Callers only ever use PinID; the controller translates.
type Ops interface {
	// Configure sets the electrical mode of a pin.
	Configure(id PinID, mode PinMode) error
	// Write drives an output pin.
	Write(id PinID, l gpio.Level) error
	// Read samples the level of a pin.
	Read(id PinID) (gpio.Level, error)
	// Attach binds h to the pin and programs its trigger mode. It does not
	// enable delivery.
	Attach(id PinID, t TriggerMode, h Handler, arg interface{}) error
	// Detach disables the pin if needed and removes its binding.
	Detach(id PinID) error
	// Enable starts interrupt delivery for the pin.
	Enable(id PinID) error
	// Disable stops interrupt delivery for the pin. Disabling a pin that is
	// not enabled is a no-op.
	Disable(id PinID) error
}
