// Copyright 2022 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pinctlreg is the registry of pin controllers.
//
// A controller driver registers itself once its hardware is mapped; device
// drivers then reach the pins through the pinctl.Ops returned by Open
// without knowing which controller backs them.
package pinctlreg

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/GermanBionicSystems/pinctl"
)

// Opener returns the operation table of a pin controller.
//
// It is provided by the controller driver.
type Opener func() (pinctl.Ops, error)

// Ref references a pin controller.
//
// It is returned by All() to enumerate all registered controllers.
type Ref struct {
	// Name of the controller.
	//
	// It must be unique across the host.
	Name string
	// Aliases are the alternative names that can be used to reference this
	// controller.
	Aliases []string
	// Open is the factory to get the controller's operation table.
	Open Opener
}

// Open returns the operation table of a controller by its name or an alias.
//
// Specify the empty string "" to get the controller with the lowest name.
func Open(name string) (pinctl.Ops, error) {
	var r *Ref
	var err error
	func() {
		mu.Lock()
		defer mu.Unlock()
		if len(byName) == 0 {
			err = errors.New("pinctlreg: no pin controller found; did you forget to open one?")
			return
		}
		if len(name) == 0 {
			r = getDefault()
			return
		}
		if r = byName[name]; r == nil {
			r = byAlias[name]
		}
	}()
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.New("pinctlreg: can't open unknown pin controller: " + strconv.Quote(name))
	}
	return r.Open()
}

// All returns a copy of all the registered references, sorted by name.
func All() []*Ref {
	mu.Lock()
	defer mu.Unlock()
	out := make([]*Ref, 0, len(byName))
	for _, v := range byName {
		r := &Ref{Name: v.Name, Aliases: make([]string, len(v.Aliases)), Open: v.Open}
		copy(r.Aliases, v.Aliases)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Register registers a pin controller.
//
// Registering the same name twice is an error.
func Register(name string, aliases []string, o Opener) error {
	if err := checkName("", name); err != nil {
		return err
	}
	if o == nil {
		return errors.New("pinctlreg: can't register pin controller " + strconv.Quote(name) + " with nil Opener")
	}
	for _, alias := range aliases {
		if alias == name {
			return errors.New("pinctlreg: can't register pin controller " + strconv.Quote(name) + " with an alias the same as its name")
		}
		if err := checkName(name, alias); err != nil {
			return err
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		if _, ok := byName[n]; ok {
			return errors.New("pinctlreg: can't register pin controller " + strconv.Quote(name) + "; " + strconv.Quote(n) + " is already a controller")
		}
		if _, ok := byAlias[n]; ok {
			return errors.New("pinctlreg: can't register pin controller " + strconv.Quote(name) + "; " + strconv.Quote(n) + " is already an alias")
		}
	}

	r := &Ref{Name: name, Aliases: make([]string, len(aliases)), Open: o}
	copy(r.Aliases, aliases)
	byName[name] = r
	for _, alias := range aliases {
		byAlias[alias] = r
	}
	return nil
}

// Unregister removes a previously registered pin controller.
func Unregister(name string) error {
	mu.Lock()
	defer mu.Unlock()
	r := byName[name]
	if r == nil {
		return errors.New("pinctlreg: can't unregister unknown pin controller " + strconv.Quote(name))
	}
	delete(byName, name)
	for _, alias := range r.Aliases {
		delete(byAlias, alias)
	}
	return nil
}

//

var (
	mu      sync.Mutex
	byName  = map[string]*Ref{}
	byAlias = map[string]*Ref{}
)

// checkName validates a name or, when owner is set, an alias of owner.
func checkName(owner, n string) error {
	what := "pin controller " + strconv.Quote(n)
	if owner != "" {
		what = "pin controller " + strconv.Quote(owner) + " with alias " + strconv.Quote(n)
	}
	switch {
	case len(n) == 0 && owner == "":
		return errors.New("pinctlreg: can't register a pin controller with no name")
	case len(n) == 0:
		return errors.New("pinctlreg: can't register pin controller " + strconv.Quote(owner) + " with an empty alias")
	case isNumber(n):
		return errors.New("pinctlreg: can't register " + what + " being only a number")
	case strings.Contains(n, ":"):
		return errors.New("pinctlreg: can't register " + what + " containing ':'")
	}
	return nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// getDefault returns the Ref with the lowest name.
func getDefault() *Ref {
	var o *Ref
	for n, r := range byName {
		if o == nil || n < o.Name {
			o = r
		}
	}
	return o
}
