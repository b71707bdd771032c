// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// Section names accepted by the SECTION directive.
const (
	sectionNone = ""
	sectionText = "TEXT"
	sectionData = "DATA"
	sectionBSS  = "BSS"
)

// collectSymbols is the first pass. It walks the pre-processed source,
// assigns addresses and builds the symbol, definitions and use tables.
func (a *assembler) collectSymbols() error {
	a.logSection("Collecting symbols")

	t := newTables()
	a.tables = t
	a.addr = 0
	a.section = sectionNone
	seen := make(map[string]bool)
	publics := make(map[string]int) // public name -> declaring line
	var publicOrder []string

	for _, sl := range a.source {
		l := parseLine(sl)

		switch {
		case l.mnemonic == "SECTION":
			a.declareSection(l, seen)

		case len(l.labels) > 1:
			a.addError(l.row, ErrDoubleLabel, sl.Text)

		case l.malformed():
			a.addError(l.row, ErrSyntax, sl.Text)

		case l.mnemonic == "PUBLIC":
			switch {
			case len(l.labels) > 0:
				a.addError(l.row, ErrLabelNotAllowed, "PUBLIC")
			case len(l.operands) != 1:
				a.addError(l.row, ErrOperandCount, "PUBLIC")
			case !validSymbol(l.operands[0]):
				a.addError(l.row, ErrInvalidSymbol, l.operands[0])
			case publics[l.operands[0]] != 0:
				a.addError(l.row, ErrDuplicatePublic, l.operands[0])
			default:
				publics[l.operands[0]] = l.row
				publicOrder = append(publicOrder, l.operands[0])
			}

		case l.mnemonic == "EXTERN":
			name := l.label()
			switch {
			case name == "":
				a.addError(l.row, ErrMissingLabel, "EXTERN")
			case len(l.operands) != 0:
				a.addError(l.row, ErrOperandCount, "EXTERN")
			case !validSymbol(name):
				a.addError(l.row, ErrInvalidSymbol, name)
			case t.Symbols[name] != nil:
				a.addError(l.row, ErrDuplicateSymbol, name)
			default:
				a.defineSymbol(name, SymbolExtern, l.row)
			}

		default:
			a.collectLine(l)
		}
	}

	t.Size = a.addr
	a.log("module size", "words", t.Size)

	for _, name := range publicOrder {
		sym := t.Symbols[name]
		switch {
		case sym == nil:
			a.addError(publics[name], ErrUndefinedPublic, name)
		case sym.Kind == SymbolExtern:
			a.addError(publics[name], ErrPublicExtern, name)
		default:
			t.Definitions[name] = sym.Address
			a.log("public", "name", name, "addr", sym.Address)
		}
	}

	if !seen[sectionText] {
		a.addError(0, ErrMissingText, "")
	}
	return nil
}

// Handle "SECTION NAME".
func (a *assembler) declareSection(l line, seen map[string]bool) {
	if len(l.labels) > 0 {
		a.addError(l.row, ErrLabelNotAllowed, "SECTION")
	}
	if len(l.operands) != 1 {
		a.addError(l.row, ErrOperandCount, "SECTION")
		return
	}

	name := l.operands[0]
	switch name {
	case sectionText, sectionData, sectionBSS:
	default:
		a.addError(l.row, ErrInvalidSection, name)
		return
	}

	switch {
	case seen[name]:
		a.addError(l.row, ErrDuplicateSection, name)
	case name != sectionText && !seen[sectionText]:
		a.addError(l.row, ErrSectionOrder, name)
	}

	seen[name] = true
	a.section = name
	a.log("section", "name", name, "line", l.row, "addr", a.addr)
}

// collectLine handles the general "[LABEL:] [MNEMONIC [OP[, OP]]]" form.
func (a *assembler) collectLine(l line) {
	t := a.tables

	if name := l.label(); name != "" && l.mnemonic != "BEGIN" {
		switch {
		case !validSymbol(name):
			a.addError(l.row, ErrInvalidSymbol, name)
		case t.Symbols[name] != nil:
			a.addError(l.row, ErrDuplicateSymbol, name)
		default:
			a.defineSymbol(name, sectionKind(a.section), l.row)
		}
	}

	if len(l.operands) > 2 {
		a.addError(l.row, ErrOperandCount, l.mnemonic)
	}

	if inst := a.instSet.GetInstruction(l.mnemonic); inst != nil {
		for i, op := range l.operands {
			name := operandSymbol(op)
			if sym := t.Symbols[name]; sym != nil && sym.Kind == SymbolExtern {
				t.Uses[name] = append(t.Uses[name], a.addr+i+1)
				a.log("use", "name", name, "offset", a.addr+i+1)
			}
		}
		a.addr += inst.Length
		return
	}

	switch l.mnemonic {
	case "SPACE":
		if len(l.operands) == 0 {
			a.addr++
			return
		}
		n, ok := parseLiteral(l.operands[0])
		if !ok || n <= 0 || len(l.operands) > 1 {
			a.addError(l.row, ErrInvalidSpace, l.operands[0])
			a.addr++
			return
		}
		a.addr += n

	case "CONST":
		if len(l.operands) == 1 {
			if v, ok := parseLiteral(l.operands[0]); ok {
				t.Constants[a.addr] = v
			}
		}
		a.addr++

	case "BEGIN":
		if t.Module == "" {
			t.Module = l.label()
		}

	case "END", "":

	default:
		a.addError(l.row, ErrUnknownInstruction, l.mnemonic)
	}
}

func (a *assembler) defineSymbol(name string, kind SymbolKind, row int) {
	a.tables.Symbols[name] = &Symbol{
		Name:    name,
		Address: a.addr,
		Kind:    kind,
		Line:    row,
	}
	a.log("symbol", "name", name, "addr", a.addr, "kind", kind, "line", row)
}

func sectionKind(section string) SymbolKind {
	switch section {
	case sectionData:
		return SymbolConst
	case sectionBSS:
		return SymbolSpace
	default:
		return SymbolJump
	}
}
