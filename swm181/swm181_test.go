// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package swm181

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/GermanBionicSystems/pinctl"
	"github.com/GermanBionicSystems/pinctl/irqc/irqctest"
	"github.com/GermanBionicSystems/pinctl/pinctlreg"
	"github.com/GermanBionicSystems/pinctl/portreg"
	"github.com/GermanBionicSystems/pinctl/portreg/portregtest"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Header positions used by the tests.
const (
	pinPA0 pinctl.PinID = 1
	pinPA4 pinctl.PinID = 5
	pinPA7 pinctl.PinID = 8
	pinPB0 pinctl.PinID = 19
	pinGap pinctl.PinID = 11
)

func newDev(t *testing.T, opts *Opts) (*Dev, *Sim) {
	d, s, err := Simulate(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Error(err)
		}
	})
	return d, s
}

// recorder collects handler calls.
type recorder struct {
	args []interface{}
}

func (r *recorder) handle(arg interface{}) {
	r.args = append(r.args, arg)
}

func mustPanic(t *testing.T, want string, f func()) {
	t.Helper()
	defer func() {
		v := recover()
		if v == nil {
			t.Fatal("expected panic")
		}
		if s, ok := v.(string); !ok || !strings.Contains(s, want) {
			t.Fatalf("unexpected panic %v", v)
		}
	}()
	f()
}

func TestNew_invalid(t *testing.T) {
	var banks [NumPorts]portreg.Bank
	for i := range banks {
		banks[i] = &portregtest.Port{}
	}
	missing := banks
	missing[3] = nil
	data := []struct {
		name  string
		banks [NumPorts]portreg.Bank
		ic    *irqctest.Fake
		opts  *Opts
	}{
		{"bank", missing, &irqctest.Fake{}, nil},
		{"controller", banks, nil, nil},
		{"priority", banks, &irqctest.Fake{}, &Opts{Priority: 4}},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			var err error
			if line.ic == nil {
				_, err = New(line.banks, nil, line.opts)
			} else {
				_, err = New(line.banks, line.ic, line.opts)
			}
			if err == nil || !strings.HasPrefix(err.Error(), "swm181: ") {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestDev_String(t *testing.T) {
	d, _ := newDev(t, nil)
	if s := d.String(); s != "SWM181" {
		t.Fatal(s)
	}
	if n := d.Name(); n != "pin" {
		t.Fatal(n)
	}
}

func TestInvalidPin(t *testing.T) {
	d, _ := newDev(t, nil)
	r := &recorder{}
	for _, id := range []pinctl.PinID{0, 54, -1, pinGap, 26, 38, 39} {
		errs := []error{
			d.Configure(id, pinctl.Output),
			d.Write(id, gpio.High),
			d.Attach(id, pinctl.RisingEdge, r.handle, nil),
			d.Detach(id),
			d.Enable(id),
			d.Disable(id),
		}
		_, err := d.Read(id)
		errs = append(errs, err)
		_, err = d.Pin(id)
		errs = append(errs, err)
		for i, err := range errs {
			if err != pinctl.ErrInvalidPin {
				t.Fatalf("pin %d op #%d: got %v", id, i, err)
			}
		}
	}
	for i := range NumPorts {
		if d.Refs(i) != 0 {
			t.Fatal("refcount changed")
		}
	}
}

func TestConfigure(t *testing.T) {
	d, s := newDev(t, nil)
	data := []struct {
		mode pinctl.PinMode
		pad  portreg.Pad
	}{
		{pinctl.Output, portreg.PadOutput},
		{pinctl.Input, 0},
		{pinctl.InputPullUp, portreg.PadPullUp},
		{pinctl.InputPullDown, portreg.PadPullDown},
		{pinctl.OutputOpenDrain, portreg.PadOutput | portreg.PadOpenDrain},
	}
	for _, line := range data {
		t.Run(line.mode.String(), func(t *testing.T) {
			var ops []string
			s.Ports[0].Trace = func(op string) { ops = append(ops, op) }
			defer func() { s.Ports[0].Trace = nil }()
			if err := d.Configure(pinPA4, line.mode); err != nil {
				t.Fatal(err)
			}
			if p := s.Ports[0].Pad(4); p != line.pad {
				t.Fatalf("pad %#x, want %#x", p, line.pad)
			}
			// One store, whatever the mode.
			if len(ops) != 1 {
				t.Fatalf("%q", ops)
			}
			m, err := d.Mode(pinPA4)
			if err != nil {
				t.Fatal(err)
			}
			if m != line.mode {
				t.Fatalf("mode %s, want %s", m, line.mode)
			}
		})
	}
	mustPanic(t, "swm181: invalid pin mode", func() { _ = d.Configure(pinPA4, pinctl.PinMode(42)) })
}

func TestWriteRead(t *testing.T) {
	d, s := newDev(t, nil)
	var ops []string
	s.Ports[0].Trace = func(op string) { ops = append(ops, op) }
	if err := d.Configure(pinPA4, pinctl.Output); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if l, err := d.Read(pinPA4); err != nil || l != gpio.High {
		t.Fatal(l, err)
	}
	if err := d.Write(pinPA4, gpio.Low); err != nil {
		t.Fatal(err)
	}
	if l, err := d.Read(pinPA4); err != nil || l != gpio.Low {
		t.Fatal(l, err)
	}
	want := []string{"pad 4 0x1", "set 0x10", "clr 0x10"}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("register writes (-want +got):\n%s", diff)
	}

	// Inputs.
	if err := d.Configure(pinPA0, pinctl.InputPullUp); err != nil {
		t.Fatal(err)
	}
	if l, _ := d.Read(pinPA0); l != gpio.High {
		t.Fatal("pull up must read high")
	}
	if err := s.Drive(pinPA0, gpio.Low); err != nil {
		t.Fatal(err)
	}
	if l, _ := d.Read(pinPA0); l != gpio.Low {
		t.Fatal("driven low must read low")
	}
	if v := d.Levels(0); v != 0 {
		t.Fatalf("%#x", v)
	}
}

func TestWrite_otherBits(t *testing.T) {
	d, s := newDev(t, nil)
	for _, id := range []pinctl.PinID{pinPA0, pinPA4, pinPA7} {
		if err := d.Configure(id, pinctl.Output); err != nil {
			t.Fatal(err)
		}
		if err := d.Write(id, gpio.High); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Write(pinPA4, gpio.Low); err != nil {
		t.Fatal(err)
	}
	if l := s.Ports[0].Latch(); l != 0x81 {
		t.Fatalf("%#x", l)
	}
}

func TestAttachDetach_restores(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	before := s.Ports[0].Trigger(4)
	if err := d.Attach(pinPA4, pinctl.BothEdges, r.handle, nil); err != nil {
		t.Fatal(err)
	}
	if m, ok := d.Bound(pinPA4); !ok || m != pinctl.BothEdges {
		t.Fatal(m, ok)
	}
	if tr := s.Ports[0].Trigger(4); tr != (portreg.Trigger{Both: true}) {
		t.Fatalf("%+v", tr)
	}
	if err := d.Detach(pinPA4); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Bound(pinPA4); ok {
		t.Fatal("still bound")
	}
	if d.Refs(0) != 0 || d.Enabled(pinPA4) != 0 {
		t.Fatal("refcount changed")
	}
	if tr := s.Ports[0].Trigger(4); tr != before {
		t.Fatalf("%+v", tr)
	}
	if s.IRQ.Connections(PortLine(0)) != 0 {
		t.Fatal("line was connected")
	}
}

func TestAttach_panics(t *testing.T) {
	d, _ := newDev(t, nil)
	r := &recorder{}
	mustPanic(t, "swm181: nil handler for pin PA4", func() { _ = d.Attach(pinPA4, pinctl.RisingEdge, nil, nil) })
	mustPanic(t, "swm181: invalid trigger mode", func() { _ = d.Attach(pinPA4, pinctl.TriggerMode(9), r.handle, nil) })
	if _, ok := d.Bound(pinPA4); ok {
		t.Fatal("a rejected attach must not bind")
	}
}

func TestAttach_staysMasked(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	if err := d.Attach(pinPA4, pinctl.RisingEdge, r.handle, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if len(r.args) != 0 {
		t.Fatal("handler called before Enable")
	}
	if s.Ports[0].Enabled() != 0 || s.IRQ.Enabled(PortLine(0)) {
		t.Fatal("interrupt unmasked by Attach")
	}
}

func TestEnable_refcount(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	l := PortLine(0)
	if err := d.Attach(pinPA4, pinctl.RisingEdge, r.handle, nil); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := d.Enable(pinPA4); err != nil {
			t.Fatal(err)
		}
	}
	if d.Refs(0) != 2 || d.Enabled(pinPA4) != 2 {
		t.Fatal(d.Refs(0), d.Enabled(pinPA4))
	}
	if s.IRQ.Connections(l) != 1 {
		t.Fatal("the line is connected once")
	}
	if err := d.Disable(pinPA4); err != nil {
		t.Fatal(err)
	}
	if !s.IRQ.Enabled(l) || s.Ports[0].Enabled() != 1<<4 {
		t.Fatal("two enables and one disable leave the pin enabled")
	}
	if err := d.Disable(pinPA4); err != nil {
		t.Fatal(err)
	}
	if s.IRQ.Enabled(l) || s.Ports[0].Enabled() != 0 || d.Refs(0) != 0 {
		t.Fatal("two enables and two disables leave the pin disabled")
	}
	// Disabling again is a no-op.
	for range 2 {
		if err := d.Disable(pinPA4); err != nil {
			t.Fatal(err)
		}
	}
	if d.Refs(0) != 0 {
		t.Fatal(d.Refs(0))
	}
}

func TestEnable_sharedLine(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	l := PortLine(0)
	for _, id := range []pinctl.PinID{pinPA4, pinPA7} {
		if err := d.Attach(id, pinctl.FallingEdge, r.handle, nil); err != nil {
			t.Fatal(err)
		}
		if err := d.Enable(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Disable(pinPA4); err != nil {
		t.Fatal(err)
	}
	if !s.IRQ.Enabled(l) || d.Refs(0) != 1 {
		t.Fatal("the line must stay enabled while PA7 is")
	}
	if err := d.Disable(pinPA7); err != nil {
		t.Fatal(err)
	}
	if s.IRQ.Enabled(l) || d.Refs(0) != 0 {
		t.Fatal("the line must be masked")
	}
}

func TestEnable_order(t *testing.T) {
	d, s := newDev(t, &Opts{Priority: 3})
	r := &recorder{}
	for _, id := range []pinctl.PinID{pinPA4, pinPA7} {
		if err := d.Attach(id, pinctl.RisingEdge, r.handle, nil); err != nil {
			t.Fatal(err)
		}
	}
	var ops []string
	s.Ports[0].Trace = func(op string) { ops = append(ops, op) }
	s.IRQ.Trace = func(op string) { ops = append(ops, op) }
	for _, id := range []pinctl.PinID{pinPA4, pinPA7} {
		if err := d.Enable(id); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []pinctl.PinID{pinPA7, pinPA4} {
		if err := d.Disable(id); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{
		"connect 16 src=8 prio=3",
		"unmask 4",
		"unmask 7",
		"mask 7",
		"mask 4",
		"mask line 16",
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestEnable_otherPort(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	if err := d.Attach(pinPB0, pinctl.RisingEdge, r.handle, "PB0"); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(pinPB0); err != nil {
		t.Fatal(err)
	}
	if d.Refs(0) != 0 || d.Refs(1) != 1 {
		t.Fatal(d.Refs(0), d.Refs(1))
	}
	if src, prio := s.IRQ.Source(PortLine(1)); src != PortSource(1) || prio != DefaultPriority {
		t.Fatal(src, prio)
	}
	if err := s.Drive(pinPB0, gpio.High); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]interface{}{"PB0"}, r.args); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if s.IRQ.Serviced(PortLine(0)) != 0 || s.IRQ.Serviced(PortLine(1)) != 1 {
		t.Fatal("wrong line serviced")
	}
}

func TestScenario_risingEdge(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	if err := d.Attach(pinPA4, pinctl.RisingEdge, r.handle, 42); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(pinPA4); err != nil {
		t.Fatal(err)
	}
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]interface{}{42}, r.args); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if s.Ports[0].Raw() != 0 {
		t.Fatal("pending bit not acknowledged")
	}
	// A falling edge is ignored.
	if err := s.Drive(pinPA4, gpio.Low); err != nil {
		t.Fatal(err)
	}
	if len(r.args) != 1 {
		t.Fatal(r.args)
	}
}

func TestScenario_twoPending(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	for _, id := range []pinctl.PinID{pinPA7, pinPA4} {
		if err := d.Attach(id, pinctl.RisingEdge, r.handle, id); err != nil {
			t.Fatal(err)
		}
		if err := d.Enable(id); err != nil {
			t.Fatal(err)
		}
	}
	// Both edges arrive before the line is serviced.
	s.IRQ.Lock()
	for _, id := range []pinctl.PinID{pinPA7, pinPA4} {
		if err := s.Drive(id, gpio.High); err != nil {
			t.Fatal(err)
		}
	}
	if len(r.args) != 0 {
		t.Fatal("serviced while locked")
	}
	s.IRQ.Unlock()
	if diff := cmp.Diff([]interface{}{pinPA4, pinPA7}, r.args); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if n := s.IRQ.Serviced(PortLine(0)); n != 1 {
		t.Fatalf("serviced %d times, want one pass", n)
	}
	if s.Ports[0].Raw() != 0 {
		t.Fatal("pending bits not acknowledged")
	}
}

func TestScenario_translate(t *testing.T) {
	d, _ := newDev(t, nil)
	for _, id := range []pinctl.PinID{0, 54, pinGap} {
		if _, err := d.Pin(id); !errors.Is(err, pinctl.ErrInvalidPin) {
			t.Fatal(id, err)
		}
	}
	p, err := d.Pin(pinPA0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "PA0" || p.Number() != 1 {
		t.Fatal(p.Name(), p.Number())
	}
}

func TestDispatch_level(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	if err := d.Attach(pinPA4, pinctl.HighLevel, r.handle, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(pinPA4); err != nil {
		t.Fatal(err)
	}
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if len(r.args) != 1 {
		t.Fatal(len(r.args))
	}
	// Still high: the line is raised again.
	s.Ports[0].Raise()
	if len(r.args) != 2 {
		t.Fatal(len(r.args))
	}
	if err := s.Drive(pinPA4, gpio.Low); err != nil {
		t.Fatal(err)
	}
	s.Ports[0].Raise()
	if len(r.args) != 3 {
		t.Fatal(len(r.args))
	}
	if s.Ports[0].Raw() != 0 {
		t.Fatal("a low pin must not latch again")
	}
	s.Ports[0].Raise()
	if len(r.args) != 3 {
		t.Fatal(len(r.args))
	}
}

func TestDispatch_unbound(t *testing.T) {
	d, s := newDev(t, nil)
	if err := d.Enable(pinPA4); err != nil {
		t.Fatal(err)
	}
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if err := s.Drive(pinPA4, gpio.Low); err != nil {
		t.Fatal(err)
	}
	if s.IRQ.Serviced(PortLine(0)) != 1 {
		t.Fatal("the falling edge must be serviced")
	}
	if s.Ports[0].Raw() != 0 {
		t.Fatal("pending bit not acknowledged")
	}
	if err := d.Disable(pinPA4); err != nil {
		t.Fatal(err)
	}
}

func TestAttach_replace(t *testing.T) {
	d, s := newDev(t, nil)
	first, second := &recorder{}, &recorder{}
	if err := d.Attach(pinPA4, pinctl.FallingEdge, first.handle, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(pinPA4); err != nil {
		t.Fatal(err)
	}
	var ops []string
	s.Ports[0].Trace = func(op string) { ops = append(ops, op) }
	if err := d.Attach(pinPA4, pinctl.RisingEdge, second.handle, nil); err != nil {
		t.Fatal(err)
	}
	want := []string{"mask 4", "trig 4 {Level:false Both:false Rise:true}", "unmask 4"}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if len(first.args) != 0 || len(second.args) != 1 {
		t.Fatal(first.args, second.args)
	}
	if d.Enabled(pinPA4) != 1 || d.Refs(0) != 1 {
		t.Fatal("replacing the handler must keep the pin enabled")
	}
}

func TestDetach_drains(t *testing.T) {
	d, s := newDev(t, nil)
	r := &recorder{}
	if err := d.Attach(pinPA4, pinctl.RisingEdge, r.handle, nil); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := d.Enable(pinPA4); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Detach(pinPA4); err != nil {
		t.Fatal(err)
	}
	if d.Refs(0) != 0 || s.IRQ.Enabled(PortLine(0)) || s.Ports[0].Enabled() != 0 {
		t.Fatal("detach must disable first")
	}
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if len(r.args) != 0 {
		t.Fatal("detached handler called")
	}
}

func TestDispatch_reentrant(t *testing.T) {
	d, _ := newDev(t, nil)
	d.dispatching[2] = true
	defer func() { d.dispatching[2] = false }()
	mustPanic(t, "re-entrant dispatch on port C", func() { d.Dispatch(2) })
}

func TestDispatch_handlerPanics(t *testing.T) {
	d, s := newDev(t, nil)
	calls := 0
	h := func(arg interface{}) {
		calls++
		if calls == 1 {
			panic("handler failed")
		}
	}
	if err := d.Attach(pinPA4, pinctl.RisingEdge, h, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(pinPA4); err != nil {
		t.Fatal(err)
	}
	// Hold delivery so the edge stays pending until Dispatch is called here.
	s.IRQ.Lock()
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		s.IRQ.Unlock()
		t.Fatal(err)
	}
	mustPanic(t, "handler failed", func() { d.Dispatch(0) })
	if d.dispatching[0] {
		s.IRQ.Unlock()
		t.Fatal("port A still marked as dispatching")
	}
	// The edge was not acknowledged; the latched line delivers it again.
	s.IRQ.Unlock()
	if calls != 2 {
		t.Fatalf("handler ran %d times", calls)
	}
	if raw := s.Ports[0].Raw(); raw != 0 {
		t.Fatalf("raw %#x", raw)
	}
}

func TestAttach_replaceWhileFiring(t *testing.T) {
	d, s := newDev(t, nil)
	var calls, wrong atomic.Int32
	hA := func(arg interface{}) {
		calls.Add(1)
		if arg != "A" {
			wrong.Add(1)
		}
	}
	hB := func(arg interface{}) {
		calls.Add(1)
		if arg != "B" {
			wrong.Add(1)
		}
	}
	if err := d.Attach(pinPA4, pinctl.BothEdges, hA, "A"); err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(pinPA4); err != nil {
		t.Fatal(err)
	}

	const n = 1000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range n {
			if err := s.Drive(pinPA4, gpio.Level(i%2 == 0)); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	for i := range n {
		h, arg := hB, "B"
		if i%2 != 0 {
			h, arg = hA, "A"
		}
		if err := d.Attach(pinPA4, pinctl.BothEdges, h, arg); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	if w := wrong.Load(); w != 0 {
		t.Fatalf("%d of %d handler calls got another handler's argument", w, calls.Load())
	}
	if calls.Load() == 0 {
		t.Fatal("no edge was dispatched")
	}
	if d.Enabled(pinPA4) != 1 || d.Refs(0) != 1 {
		t.Fatal("replacing the handler must keep the pin enabled")
	}
}

func TestRegister(t *testing.T) {
	d, s, err := Simulate(&Opts{Name: "swm181test", Header: "T1", Register: true})
	if err != nil {
		t.Fatal(err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = d.Close()
		}
	}()
	o, err := pinctlreg.Open("swm181test")
	if err != nil {
		t.Fatal(err)
	}
	if o != pinctl.Ops(d) {
		t.Fatal("registered a different controller")
	}
	pa4, err := d.Pin(pinPA4)
	if err != nil {
		t.Fatal(err)
	}
	if p := gpioreg.ByName("PA4"); p != gpio.PinIO(pa4) {
		t.Fatalf("PA4 resolved to %v", p)
	}
	alias := gpioreg.ByName("T1_5")
	if alias == nil {
		t.Fatal("header alias missing")
	}
	if r, ok := alias.(gpio.RealPin); !ok || r.Real() != gpio.PinIO(pa4) {
		t.Fatal("T1_5 must be PA4")
	}
	if gpioreg.ByName("T1_11") != nil {
		t.Fatal("a supply pin is not a GPIO")
	}

	// The device framework drives the pin through the registry.
	r := &recorder{}
	if err := o.Attach(pinPA4, pinctl.RisingEdge, r.handle, nil); err != nil {
		t.Fatal(err)
	}
	if err := o.Enable(pinPA4); err != nil {
		t.Fatal(err)
	}
	if err := s.Drive(pinPA4, gpio.High); err != nil {
		t.Fatal(err)
	}
	if len(r.args) != 1 {
		t.Fatal(r.args)
	}

	closed = true
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if gpioreg.ByName("PA4") != nil || gpioreg.ByName("T1_5") != nil {
		t.Fatal("pins still registered")
	}
	if _, err := pinctlreg.Open("swm181test"); err == nil {
		t.Fatal("controller still registered")
	}
	if d.Refs(0) != 0 {
		t.Fatal("Close must detach")
	}
}

func TestRegister_twice(t *testing.T) {
	d, _, err := Simulate(&Opts{Name: "swm181twice", Header: "T2", Register: true})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if _, _, err := Simulate(&Opts{Name: "swm181twice", Header: "T3", Register: true}); err == nil {
		t.Fatal("expected failure")
	}
	// The failed attempt must not have removed the first registration.
	if gpioreg.ByName("PA4") == nil {
		t.Fatal("PA4 unregistered")
	}
	if _, _, err := Simulate(&Opts{Name: "swm181other", Header: "T4", Register: true}); err == nil {
		t.Fatal("pins registered twice")
	}
	if _, err := pinctlreg.Open("swm181other"); err == nil {
		t.Fatal("a failed registration must be rolled back")
	}
}
