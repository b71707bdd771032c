// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of the machine's registers.
type Registers struct {
	ACC int    // accumulator
	PC  uint16 // program counter
}

// Init resets the registers to their power-on state.
func (r *Registers) Init() {
	r.ACC = 0
	r.PC = 0
}
