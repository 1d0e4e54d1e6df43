// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package swm181 drives the GPIO block of the Synwit SWM181 Cortex-M0
// microcontroller.
//
// The block has five ports, PA to PE, of sixteen pins. All interrupt capable
// pins of a port share one processor interrupt line; Dev multiplexes that
// line between the handlers attached to the port's pins and only keeps the
// line connected while at least one pin of the port is enabled.
//
// Dev implements pinctl.Ops, so it can be published to the device framework
// with pinctlreg. Each bonded pin is also exposed as a gpio.PinIO named
// after its port and bit ("PA4") and, when Opts.Register is set, registered
// with gpioreg; the board header is registered with pinreg so that "J1_5"
// resolves to the pin at header position 5.
//
// # Interrupt context
//
// Dispatch is the service routine of a port line. It runs on the interrupt
// controller's delivery path, which never runs two routines at once.
// Handlers are called from there and must not block, allocate, or call
// Attach, Detach, Enable or Disable.
//
// # Concurrency
//
// Dev does not serialize control calls for the same pin; the device
// framework does. Reference counts and line masks are only changed with the
// interrupt controller locked, which excludes Dispatch.
package swm181
