// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/pinmap"
	"github.com/GermanBionicSystems/pinctl/pinout"
	"github.com/GermanBionicSystems/pinctl/portview"
	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/gpio"
)

func (t *tool) mapAction(c *cli.Context) error {
	gaps := map[pinctl.PinID]string{}
	for _, g := range pinmap.Gaps() {
		gaps[g.ID] = g.Name
	}
	for id := pinmap.First; id <= pinmap.Last; id++ {
		co, err := pinmap.Translate(id)
		if err != nil {
			fmt.Fprintf(t.out, "%2d  %s\n", id, gaps[id])
			continue
		}
		fmt.Fprintf(t.out, "%2d  %-4s %2d\n", id, co, pinmap.Pack(co))
	}
	return nil
}

func (t *tool) readAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("pinctl: read takes one pin")
	}
	id, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	d, _, done, err := t.open(c)
	if err != nil {
		return err
	}
	defer done()
	l, err := d.Read(id)
	if err != nil {
		return err
	}
	m, err := d.Mode(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "%s\t%s\n", l, m)
	return nil
}

func (t *tool) writeAction(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return errors.New("pinctl: write takes a pin and a level")
	}
	id, err := parsePin(c.Args().Get(0))
	if err != nil {
		return err
	}
	l, err := parseLevel(c.Args().Get(1))
	if err != nil {
		return err
	}
	d, _, done, err := t.open(c)
	if err != nil {
		return err
	}
	defer done()
	p, err := d.Pin(id)
	if err != nil {
		return err
	}
	t.logger.Debugw("write", "pin", p.Name(), "level", l)
	return p.Out(l)
}

func (t *tool) watchAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("pinctl: watch takes one pin")
	}
	id, err := parsePin(c.Args().First())
	if err != nil {
		return err
	}
	trig, err := pinctl.ParseTriggerMode(c.String(flagTrigger))
	if err != nil {
		return err
	}
	mode, err := parsePull(c.String(flagPull))
	if err != nil {
		return err
	}
	timeout := c.Duration(flagTimeout)
	d, sim, done, err := t.open(c)
	if err != nil {
		return err
	}
	defer done()

	// The handler runs in interrupt context: it only stamps the event.
	events := make(chan time.Time, 64)
	h := func(interface{}) {
		select {
		case events <- time.Now():
		default:
		}
	}
	if err := d.Configure(id, mode); err != nil {
		return err
	}
	if err := d.Attach(id, trig, h, nil); err != nil {
		return err
	}
	defer d.Detach(id)
	if err := d.Enable(id); err != nil {
		return err
	}
	t.logger.Debugw("watching", "pin", id, "trigger", trig, "timeout", timeout)

	if n := c.Int(flagPulses); n > 0 && sim != nil {
		go func() {
			for i := 0; i < n; i++ {
				_ = sim.Drive(id, gpio.High)
				_ = sim.Drive(id, gpio.Low)
			}
		}()
	}

	start := time.Now()
	for count := 1; ; count++ {
		select {
		case ts := <-events:
			l, _ := d.Read(id)
			fmt.Fprintf(t.out, "%d\t%s\t%s\n", count, ts.Sub(start).Round(time.Microsecond), l)
		case <-time.After(timeout):
			return fmt.Errorf("pinctl: no %s interrupt on pin %d within %s: %w", trig, id, timeout, pinctl.ErrTimeout)
		case <-c.Done():
			return c.Err()
		}
	}
}

func (t *tool) viewAction(c *cli.Context) error {
	d, _, done, err := t.open(c)
	if err != nil {
		return err
	}
	defer done()
	opts := &portview.Opts{}
	if t.out != os.Stdout {
		opts.W = t.out
		opts.Plain = true
	}
	v := portview.New(d, opts)
	defer v.Halt()
	for i := 0; i < c.Int(flagCount); i++ {
		if i != 0 {
			time.Sleep(c.Duration(flagInterval))
		}
		if err := v.Refresh(); err != nil {
			return err
		}
	}
	return nil
}

func (t *tool) pinoutAction(c *cli.Context) error {
	d, _, done, err := t.open(c)
	if err != nil {
		return err
	}
	defer done()
	name := c.String(flagOutput)
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := pinout.Write(f, &pinout.Opts{Size: c.Float64(flagSize), Modes: d}); err != nil {
		_ = f.Close()
		return err
	}
	t.logger.Infow("wrote pinout", "file", name)
	return f.Close()
}

func parseLevel(s string) (gpio.Level, error) {
	switch strings.ToLower(s) {
	case "1", "h", "high", "true":
		return gpio.High, nil
	case "0", "l", "low", "false":
		return gpio.Low, nil
	}
	return gpio.Low, fmt.Errorf("pinctl: invalid level %q", s)
}

func parsePull(s string) (pinctl.PinMode, error) {
	switch s {
	case "none", "float":
		return pinctl.Input, nil
	case "up":
		return pinctl.InputPullUp, nil
	case "down":
		return pinctl.InputPullDown, nil
	}
	return 0, fmt.Errorf("pinctl: invalid pull %q", s)
}
