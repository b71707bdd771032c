// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "strings"

// Opcodes of the SB accumulator machine.
const (
	OpADD    = 1
	OpSUB    = 2
	OpMULT   = 3
	OpDIV    = 4
	OpJMP    = 5
	OpJMPN   = 6
	OpJMPP   = 7
	OpJMPZ   = 8
	OpCOPY   = 9
	OpLOAD   = 10
	OpSTORE  = 11
	OpINPUT  = 12
	OpOUTPUT = 13
	OpSTOP   = 14
)

type instfunc func(c *CPU, inst *Instruction, operand []int) error

// An Instruction describes a CPU instruction: its mnemonic, its opcode
// value, its length in words and the number of operands it takes.
type Instruction struct {
	Name     string   // all-caps mnemonic
	Opcode   int      // opcode word value
	Length   int      // combined size of opcode and operands, in words
	Operands int      // number of operand words
	fn       instfunc // emulator implementation of the instruction
}

// IsJump reports whether the instruction's operand is a branch target.
func (i *Instruction) IsJump() bool {
	switch i.Opcode {
	case OpJMP, OpJMPN, OpJMPP, OpJMPZ:
		return true
	}
	return false
}

// WriteOperand returns the 1-based index of the operand the instruction
// stores into, or 0 if the instruction does not write memory.
func (i *Instruction) WriteOperand() int {
	switch i.Opcode {
	case OpSTORE, OpINPUT:
		return 1
	case OpCOPY:
		return 2
	}
	return 0
}

var data = []Instruction{
	{Name: "ADD", Opcode: OpADD, Length: 2, Operands: 1, fn: (*CPU).add},
	{Name: "SUB", Opcode: OpSUB, Length: 2, Operands: 1, fn: (*CPU).sub},
	{Name: "MULT", Opcode: OpMULT, Length: 2, Operands: 1, fn: (*CPU).mult},
	{Name: "DIV", Opcode: OpDIV, Length: 2, Operands: 1, fn: (*CPU).div},
	{Name: "JMP", Opcode: OpJMP, Length: 2, Operands: 1, fn: (*CPU).jmp},
	{Name: "JMPN", Opcode: OpJMPN, Length: 2, Operands: 1, fn: (*CPU).jmpn},
	{Name: "JMPP", Opcode: OpJMPP, Length: 2, Operands: 1, fn: (*CPU).jmpp},
	{Name: "JMPZ", Opcode: OpJMPZ, Length: 2, Operands: 1, fn: (*CPU).jmpz},
	{Name: "COPY", Opcode: OpCOPY, Length: 3, Operands: 2, fn: (*CPU).copy},
	{Name: "LOAD", Opcode: OpLOAD, Length: 2, Operands: 1, fn: (*CPU).load},
	{Name: "STORE", Opcode: OpSTORE, Length: 2, Operands: 1, fn: (*CPU).store},
	{Name: "INPUT", Opcode: OpINPUT, Length: 2, Operands: 1, fn: (*CPU).input},
	{Name: "OUTPUT", Opcode: OpOUTPUT, Length: 2, Operands: 1, fn: (*CPU).output},
	{Name: "STOP", Opcode: OpSTOP, Length: 1, Operands: 0, fn: (*CPU).stop},
}

// An InstructionSet is the immutable catalog of all instructions the
// machine understands, indexed both by opcode and by mnemonic.
type InstructionSet struct {
	instructions []Instruction
	byOpcode     map[int]*Instruction
	byName       map[string]*Instruction
}

// Lookup retrieves the instruction corresponding to the requested opcode,
// or nil if the opcode is not defined.
func (s *InstructionSet) Lookup(opcode int) *Instruction {
	return s.byOpcode[opcode]
}

// GetInstruction returns the instruction whose mnemonic matches the
// provided string, or nil.
func (s *InstructionSet) GetInstruction(name string) *Instruction {
	return s.byName[strings.ToUpper(name)]
}

// Instructions returns the catalog in opcode order.
func (s *InstructionSet) Instructions() []Instruction {
	return append([]Instruction(nil), s.instructions...)
}

func newInstructionSet() *InstructionSet {
	set := &InstructionSet{
		instructions: append([]Instruction(nil), data...),
		byOpcode:     make(map[int]*Instruction, len(data)),
		byName:       make(map[string]*Instruction, len(data)),
	}
	for i := range set.instructions {
		inst := &set.instructions[i]
		if _, dup := set.byOpcode[inst.Opcode]; dup {
			panic("duplicate opcode")
		}
		set.byOpcode[inst.Opcode] = inst
		set.byName[inst.Name] = inst
	}
	return set
}

var instructionSet *InstructionSet

// GetInstructionSet returns the machine's instruction set.
func GetInstructionSet() *InstructionSet {
	if instructionSet == nil {
		// Lazy-create the instruction set.
		instructionSet = newInstructionSet()
	}
	return instructionSet
}
