// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pinctl defines the vocabulary shared by pin controllers: external
// pin identifiers, electrical modes, interrupt trigger modes and the Ops
// table a controller exposes to the device framework above it.
//
// Controllers live in sub-packages, e.g. swm181. They are published to the
// device framework through pinctlreg.
package pinctl
