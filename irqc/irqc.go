// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package irqc abstracts the processor interrupt controller that GPIO ports
// raise their shared lines on.
//
// On the SWM181 lines 0 to 15 are wired to fixed peripherals and lines 16 to
// 31 go through a multiplexer that selects which peripheral drives them.
// GPIO ports are always connected through the multiplexer.
//
// NVIC is the memory-mapped backend. It maps the Cortex-M system control
// space and the SWM181 peripheral window at their physical addresses, so it
// only makes sense on a host whose physical address space is bridged to the
// chip. On any other machine those addresses belong to the host itself and
// OpenNVIC must not be called.
package irqc

// Line is a processor interrupt line number.
type Line uint8

// NumLines is the number of lines of the controller.
const NumLines = 32

// FirstMuxLine is the first line routed through the multiplexer.
const FirstMuxLine Line = 16

// Source selects the peripheral that drives a multiplexed line.
type Source uint8

// Controller is a processor interrupt controller.
//
// Service routines of all lines run on one delivery path: two routines
// never run concurrently and none runs while the controller is locked.
type Controller interface {
	// Handle installs the service routine of a line. It must be called
	// before the line is connected.
	Handle(l Line, isr func())
	// Connect routes src to l when l is multiplexed, sets its priority and
	// unmasks it. A status already pending on l is delivered.
	Connect(src Source, l Line, priority uint8)
	// Mask masks l. Status pending on l stays latched.
	Mask(l Line)
	// Lock excludes delivery on every line until Unlock. It is how control
	// paths make updates atomic with respect to service routines.
	Lock()
	// Unlock resumes delivery. Lines that became pending meanwhile are
	// serviced.
	Unlock()
}
