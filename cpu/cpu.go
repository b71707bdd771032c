// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements the SB accumulator machine: its instruction
// catalog, its word-addressed memory and an instruction-level emulator
// for linked executable images.
package cpu

import (
	"bufio"
	"fmt"
	"io"

	"tlog.app/go/errors"
)

// Errors returned while executing code.
var (
	ErrHalted        = errors.New("cpu halted")
	ErrIllegalOpcode = errors.New("illegal opcode")
	ErrDivideByZero  = errors.New("divide by zero")
	ErrBadInput      = errors.New("bad input")
	ErrStepLimit     = errors.New("step limit reached")
	ErrBreakpoint    = errors.New("breakpoint")
)

// CPU represents a single SB machine. It contains a pointer to the memory
// associated with the CPU and the streams used by INPUT and OUTPUT.
type CPU struct {
	Reg      Registers       // CPU registers
	Mem      Memory          // assigned memory
	Steps    uint64          // total executed instructions
	LastPC   uint16          // previous program counter
	InstSet  *InstructionSet // instruction set used by the CPU
	in       *bufio.Reader
	out      io.Writer
	halted   bool
	debugger *Debugger
}

// NewCPU creates an emulated CPU bound to the specified memory. INPUT
// reads integers from r and OUTPUT writes one integer per line to w.
func NewCPU(m Memory, r io.Reader, w io.Writer) *CPU {
	cpu := &CPU{
		Mem:     m,
		InstSet: GetInstructionSet(),
		in:      bufio.NewReader(r),
		out:     w,
	}

	cpu.Reg.Init()
	return cpu
}

// SetPC updates the CPU program counter to 'addr' and clears the halted
// state.
func (cpu *CPU) SetPC(addr uint16) {
	cpu.Reg.PC = addr
	cpu.halted = false
}

// Halted reports whether the CPU has executed STOP.
func (cpu *CPU) Halted() bool {
	return cpu.halted
}

// Reset clears the registers and the halted state.
func (cpu *CPU) Reset() {
	cpu.Reg.Init()
	cpu.Steps = 0
	cpu.LastPC = 0
	cpu.halted = false
}

// SetIO replaces the CPU's input and output streams.
func (cpu *CPU) SetIO(r io.Reader, w io.Writer) {
	cpu.in = bufio.NewReader(r)
	cpu.out = w
}

// GetInstruction returns the instruction at the requested address, or nil
// if the word there is not a valid opcode.
func (cpu *CPU) GetInstruction(addr uint16) *Instruction {
	return cpu.InstSet.Lookup(cpu.Mem.LoadWord(addr))
}

// NextAddr returns the address of the next instruction following the
// instruction at addr.
func (cpu *CPU) NextAddr(addr uint16) uint16 {
	inst := cpu.GetInstruction(addr)
	if inst == nil {
		return addr + 1
	}
	return addr + uint16(inst.Length)
}

// Step the cpu by one instruction.
func (cpu *CPU) Step() error {
	if cpu.halted {
		return ErrHalted
	}

	// Grab the next opcode at the current PC and look up its data.
	opcode := cpu.Mem.LoadWord(cpu.Reg.PC)
	inst := cpu.InstSet.Lookup(opcode)
	if inst == nil {
		return errors.Wrap(ErrIllegalOpcode, "opcode %d at %d", opcode, cpu.Reg.PC)
	}

	// Fetch the operands and advance the PC.
	var buf [2]int
	operand := buf[:inst.Operands]
	cpu.Mem.LoadWords(cpu.Reg.PC+1, operand)
	cpu.LastPC = cpu.Reg.PC
	cpu.Reg.PC += uint16(inst.Length)

	err := inst.fn(cpu, inst, operand)
	if err != nil {
		return errors.Wrap(err, "%s at %d", inst.Name, cpu.LastPC)
	}

	cpu.Steps++
	return nil
}

// Run steps the CPU until it halts, fails, reaches an enabled breakpoint or
// executes 'limit' instructions. A limit of zero or less means no limit.
// Run returns the number of instructions executed.
func (cpu *CPU) Run(limit int) (int, error) {
	for n := 0; ; n++ {
		if cpu.halted {
			return n, nil
		}
		if limit > 0 && n >= limit {
			return n, ErrStepLimit
		}
		if n > 0 && cpu.debugger != nil && cpu.debugger.hit(cpu.Reg.PC) {
			return n, ErrBreakpoint
		}
		if err := cpu.Step(); err != nil {
			return n, err
		}
	}
}

// AttachDebugger attaches a debugger to the CPU. Run stops whenever the
// program counter reaches one of the debugger's enabled breakpoints.
func (cpu *CPU) AttachDebugger(debugger *Debugger) {
	cpu.debugger = debugger
}

// DetachDebugger detaches the current debugger from the CPU.
func (cpu *CPU) DetachDebugger() {
	cpu.debugger = nil
}

func (cpu *CPU) add(inst *Instruction, operand []int) error {
	cpu.Reg.ACC += cpu.Mem.LoadWord(uint16(operand[0]))
	return nil
}

func (cpu *CPU) sub(inst *Instruction, operand []int) error {
	cpu.Reg.ACC -= cpu.Mem.LoadWord(uint16(operand[0]))
	return nil
}

func (cpu *CPU) mult(inst *Instruction, operand []int) error {
	cpu.Reg.ACC *= cpu.Mem.LoadWord(uint16(operand[0]))
	return nil
}

func (cpu *CPU) div(inst *Instruction, operand []int) error {
	v := cpu.Mem.LoadWord(uint16(operand[0]))
	if v == 0 {
		return ErrDivideByZero
	}
	cpu.Reg.ACC /= v
	return nil
}

func (cpu *CPU) jmp(inst *Instruction, operand []int) error {
	cpu.Reg.PC = uint16(operand[0])
	return nil
}

func (cpu *CPU) jmpn(inst *Instruction, operand []int) error {
	if cpu.Reg.ACC < 0 {
		cpu.Reg.PC = uint16(operand[0])
	}
	return nil
}

func (cpu *CPU) jmpp(inst *Instruction, operand []int) error {
	if cpu.Reg.ACC > 0 {
		cpu.Reg.PC = uint16(operand[0])
	}
	return nil
}

func (cpu *CPU) jmpz(inst *Instruction, operand []int) error {
	if cpu.Reg.ACC == 0 {
		cpu.Reg.PC = uint16(operand[0])
	}
	return nil
}

func (cpu *CPU) copy(inst *Instruction, operand []int) error {
	v := cpu.Mem.LoadWord(uint16(operand[0]))
	cpu.Mem.StoreWord(uint16(operand[1]), v)
	return nil
}

func (cpu *CPU) load(inst *Instruction, operand []int) error {
	cpu.Reg.ACC = cpu.Mem.LoadWord(uint16(operand[0]))
	return nil
}

func (cpu *CPU) store(inst *Instruction, operand []int) error {
	cpu.Mem.StoreWord(uint16(operand[0]), cpu.Reg.ACC)
	return nil
}

func (cpu *CPU) input(inst *Instruction, operand []int) error {
	var v int
	if _, err := fmt.Fscan(cpu.in, &v); err != nil {
		return errors.Wrap(ErrBadInput, "%v", err)
	}
	cpu.Mem.StoreWord(uint16(operand[0]), v)
	return nil
}

func (cpu *CPU) output(inst *Instruction, operand []int) error {
	_, err := fmt.Fprintln(cpu.out, cpu.Mem.LoadWord(uint16(operand[0])))
	return err
}

func (cpu *CPU) stop(inst *Instruction, operand []int) error {
	cpu.halted = true
	return nil
}
