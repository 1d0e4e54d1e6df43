// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/GermanBionicSystems/pinctl/swm181"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"periph.io/x/host/v3"
)

const (
	flagDebug    = "debug"
	flagSim      = "sim"
	flagPriority = "priority"
	flagTrigger  = "trigger"
	flagTimeout  = "timeout"
	flagPull     = "pull"
	flagPulses   = "sim-pulses"
	flagCount    = "count"
	flagInterval = "interval"
	flagOutput   = "output"
	flagSize     = "size"
)

// tool is the state shared by the subcommands.
type tool struct {
	logger *zap.SugaredLogger
	out    io.Writer
}

func newApp(out io.Writer) *cli.App {
	t := &tool{logger: zap.NewNop().Sugar(), out: out}
	return &cli.App{
		Name:      "pinctl",
		Usage:     "inspect and drive the SWM181 GPIO pins",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
				EnvVars: []string{"PINCTL_DEBUG"},
			},
			&cli.BoolFlag{
				Name:    flagSim,
				Usage:   "use simulated ports; --sim=false maps the chip registers through /dev/mem and only works on a host bridged to an SWM181",
				Value:   true,
				EnvVars: []string{"PINCTL_SIM"},
			},
			&cli.UintFlag{
				Name:    flagPriority,
				Usage:   "interrupt priority of the port lines, 1 to 3",
				Value:   swm181.DefaultPriority,
				EnvVars: []string{"PINCTL_PRIORITY"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				t.logger = l.Sugar()
			}
			return nil
		},
		After: func(c *cli.Context) error {
			_ = t.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "map",
				Usage:  "print the header positions and the port bits behind them",
				Action: t.mapAction,
			},
			{
				Name:      "read",
				Usage:     "read a pin",
				ArgsUsage: "<pin>",
				Action:    t.readAction,
			},
			{
				Name:      "write",
				Usage:     "drive a pin as a push-pull output",
				ArgsUsage: "<pin> <level>",
				Action:    t.writeAction,
			},
			{
				Name:      "watch",
				Usage:     "print the interrupts of a pin until none comes in time",
				ArgsUsage: "<pin>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagTrigger,
						Usage: "rising, falling, both, high or low",
						Value: "rising",
					},
					&cli.DurationFlag{
						Name:  flagTimeout,
						Usage: "how long to wait for each interrupt",
						Value: 10 * time.Second,
					},
					&cli.StringFlag{
						Name:  flagPull,
						Usage: "none, up or down",
						Value: "none",
					},
					&cli.IntFlag{
						Name:   flagPulses,
						Usage:  "with --sim, pulse the pin this many times",
						Hidden: true,
					},
				},
				Action: t.watchAction,
			},
			{
				Name:  "view",
				Usage: "show the state of all ports",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagCount,
						Usage: "number of refreshes",
						Value: 1,
					},
					&cli.DurationFlag{
						Name:  flagInterval,
						Usage: "delay between refreshes",
						Value: time.Second,
					},
				},
				Action: t.viewAction,
			},
			{
				Name:  "pinout",
				Usage: "draw the pinout as PNG",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Usage:    "write the image to `FILE`",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  flagSize,
						Usage: "font size in points",
						Value: 14,
					},
				},
				Action: t.pinoutAction,
			},
		},
	}
}

// open returns the controller selected by the global flags. sim is nil on
// hardware. The returned function releases everything.
func (t *tool) open(c *cli.Context) (*swm181.Dev, *swm181.Sim, func(), error) {
	prio := c.Uint(flagPriority)
	if prio > 3 {
		return nil, nil, nil, fmt.Errorf("pinctl: invalid priority %d", prio)
	}
	opts := &swm181.Opts{Priority: uint8(prio)}
	if c.Bool(flagSim) {
		d, s, err := swm181.Simulate(opts)
		if err != nil {
			return nil, nil, nil, err
		}
		t.logger.Debugw("opened controller", "backend", "sim")
		return d, s, t.closer(d, nil), nil
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("pinctl: %w", err)
	}
	d, nvic, err := swm181.Open(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithCancel(c.Context)
	go func() {
		if err := nvic.Serve(ctx, time.Millisecond); err != nil && ctx.Err() == nil {
			t.logger.Errorw("interrupt service stopped", "error", err)
		}
	}()
	t.logger.Debugw("opened controller", "backend", "mmio", "priority", prio)
	return d, nil, t.closer(d, cancel), nil
}

func (t *tool) closer(d *swm181.Dev, cancel context.CancelFunc) func() {
	return func() {
		if err := d.Close(); err != nil {
			t.logger.Warnw("close failed", "error", err)
		}
		if cancel != nil {
			cancel()
		}
	}
}

// parsePin accepts a header position ("5") or a port bit ("PA4").
func parsePin(s string) (pinctl.PinID, error) {
	if n, err := strconv.Atoi(s); err == nil {
		id := pinctl.PinID(n)
		if _, err := pinmap.Translate(id); err != nil {
			return 0, fmt.Errorf("pinctl: %q: %w", s, err)
		}
		return id, nil
	}
	c, err := pinmap.ParseCoord(s)
	if err != nil {
		return 0, fmt.Errorf("pinctl: %q: %w", s, err)
	}
	id, ok := pinmap.Lookup(c)
	if !ok {
		return 0, fmt.Errorf("pinctl: %s is not bonded: %w", c, pinctl.ErrInvalidPin)
	}
	return id, nil
}
