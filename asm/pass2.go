// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "github.com/swbasico/sbtool/cpu"

// CONST accepts any value representable as a signed or unsigned 16-bit word.
const (
	minConst = -32768
	maxConst = 65535
)

// generateCode is the second pass. It re-walks the pre-processed source
// with the tables built by the first pass, emits machine words and
// records the offsets of every address-valued word.
func (a *assembler) generateCode() error {
	a.logSection("Generating code")

	a.addr = 0
	a.section = sectionNone
	a.code = make([]int, 0, a.tables.Size)
	a.relative = nil

	var begin, end bool
	for i, sl := range a.source {
		l := parseLine(sl)

		if end && l.mnemonic != "END" && l.mnemonic != "" {
			a.addError(l.row, ErrAfterEnd, l.mnemonic)
		}

		switch l.mnemonic {
		case "SECTION":
			if len(l.operands) == 1 {
				a.section = l.operands[0]
			}

		case "PUBLIC", "EXTERN", "":

		case "BEGIN":
			switch {
			case begin:
				a.addError(l.row, ErrDuplicateBegin, "")
			case i != 0:
				a.addError(l.row, ErrBeginMisplaced, "")
			}
			if l.label() == "" {
				a.addError(l.row, ErrBeginLabel, "")
			}
			begin = true

		case "END":
			if end {
				a.addError(l.row, ErrDuplicateEnd, "")
			}
			end = true

		case "SPACE":
			a.emitSpace(l)

		case "CONST":
			a.emitConst(l)

		default:
			if inst := a.instSet.GetInstruction(l.mnemonic); inst != nil {
				a.emitInstruction(l, inst)
			}
		}
	}

	if begin != end {
		a.addError(0, ErrBeginEnd, "")
	}

	a.log("code generated", "words", len(a.code), "relative", len(a.relative))
	return nil
}

func (a *assembler) emitSpace(l line) {
	if a.section != sectionBSS {
		a.addError(l.row, ErrWrongSection, "SPACE")
	}

	n := 1
	if len(l.operands) == 1 {
		if v, ok := parseLiteral(l.operands[0]); ok && v > 0 {
			n = v
		}
	}
	start := a.addr
	for i := 0; i < n; i++ {
		a.emit(0)
	}
	a.logLine(l, start, "SPACE %d", n)
}

func (a *assembler) emitConst(l line) {
	if a.section != sectionData {
		a.addError(l.row, ErrWrongSection, "CONST")
	}

	v := 0
	switch {
	case len(l.operands) != 1:
		a.addError(l.row, ErrOperandCount, "CONST")
	default:
		n, ok := parseLiteral(l.operands[0])
		switch {
		case !ok:
			a.addError(l.row, ErrInvalidLiteral, l.operands[0])
		case n < minConst || n > maxConst:
			a.addError(l.row, ErrConstRange, l.operands[0])
		default:
			v = n
		}
	}

	a.logLine(l, a.addr, "%d", v)
	a.emit(v)
}

func (a *assembler) emitInstruction(l line, inst *cpu.Instruction) {
	if a.section != sectionText {
		a.addError(l.row, ErrWrongSection, inst.Name)
	}
	if len(l.operands) != inst.Operands {
		a.addError(l.row, ErrOperandCount, inst.Name)
	}

	start := a.addr
	a.emit(inst.Opcode)
	for i := 0; i < inst.Operands; i++ {
		if i < len(l.operands) {
			a.emitOperand(l, inst, i+1, l.operands[i])
		} else {
			a.emit(0)
		}
	}
	a.logLine(l, start, "%v", a.code[start:])
}

// emitOperand emits the word for the n-th operand (1-based) of inst.
func (a *assembler) emitOperand(l line, inst *cpu.Instruction, n int, s string) {
	o, err := parseOperand(s)
	if err != nil {
		a.addError(l.row, err, s)
		a.emit(0)
		return
	}
	if o.literal {
		a.emit(o.value)
		return
	}

	t := a.tables
	sym := t.Lookup(o.symbol)
	if sym == nil {
		a.addError(l.row, ErrUndefinedSymbol, o.symbol)
		a.emit(0)
		return
	}

	switch {
	case inst.IsJump() && (sym.Kind == SymbolConst || sym.Kind == SymbolSpace):
		a.addError(l.row, ErrJumpTarget, s)
	case inst.WriteOperand() == n && (sym.Kind == SymbolConst || sym.Kind == SymbolJump):
		a.addError(l.row, ErrWriteTarget, s)
	case inst.Opcode == cpu.OpDIV && sym.Kind == SymbolConst:
		if v, ok := t.Constants[sym.Address+o.offset]; ok && v == 0 {
			a.addError(l.row, ErrDivideByZero, s)
		}
	}

	a.relative = append(a.relative, a.addr)
	if sym.Kind == SymbolExtern {
		if !t.used(sym.Name, a.addr) {
			a.addError(l.row, ErrExternBeforeDeclaration, sym.Name)
		}
		a.emit(o.offset)
		return
	}
	a.emit(sym.Address + o.offset)
}

func (a *assembler) emit(w int) {
	a.code = append(a.code, w)
	a.addr++
}
