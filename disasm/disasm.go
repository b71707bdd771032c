// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements an SB instruction set
// disassembler.
package disasm

import (
	"strconv"
	"strings"

	"github.com/swbasico/sbtool/cpu"
)

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. A word that is
// not a valid opcode is shown as a CONST.
func Disassemble(m cpu.Memory, addr uint16) (line string, next uint16) {
	word := m.LoadWord(addr)
	inst := cpu.GetInstructionSet().Lookup(word)
	if inst == nil {
		return "CONST " + strconv.Itoa(word), addr + 1
	}

	operand := make([]int, inst.Operands)
	m.LoadWords(addr+1, operand)

	var b strings.Builder
	b.WriteString(inst.Name)
	for i, v := range operand {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String(), addr + uint16(inst.Length)
}
