// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"sort"
)

// A SymbolKind determines how a symbol may be used by instructions.
type SymbolKind byte

// Symbol kinds. A label takes its kind from the section it is defined in.
const (
	SymbolJump   SymbolKind = iota // label in TEXT, or outside any section
	SymbolSpace                    // label in BSS
	SymbolConst                    // label in DATA
	SymbolExtern                   // EXTERN declaration
)

var symbolKindName = []string{
	"Jump",
	"Space",
	"Const",
	"Extern",
}

func (k SymbolKind) String() string {
	if int(k) < len(symbolKindName) {
		return symbolKindName[k]
	}
	return fmt.Sprintf("SymbolKind(%d)", k)
}

// A Symbol is an entry of a module's symbol table.
type Symbol struct {
	Name    string
	Address int
	Kind    SymbolKind
	Line    int // source line of the definition
}

// Tables holds everything the symbol collector learns about a module. It is
// built by the first pass and only read afterward.
type Tables struct {
	Module      string             // label of the BEGIN directive, if any
	Symbols     map[string]*Symbol // every label and extern
	Definitions map[string]int     // public name -> address
	Uses        map[string][]int   // extern name -> word offsets
	Constants   map[int]int        // address of each CONST -> its value
	Size        int                // module size in words
}

func newTables() *Tables {
	return &Tables{
		Symbols:     make(map[string]*Symbol),
		Definitions: make(map[string]int),
		Uses:        make(map[string][]int),
		Constants:   make(map[int]int),
	}
}

// Lookup returns the named symbol, or nil.
func (t *Tables) Lookup(name string) *Symbol {
	return t.Symbols[name]
}

// SortedSymbols returns the symbol table ordered by address, then name.
func (t *Tables) SortedSymbols() []*Symbol {
	syms := make([]*Symbol, 0, len(t.Symbols))
	for _, s := range t.Symbols {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Address != syms[j].Address {
			return syms[i].Address < syms[j].Address
		}
		return syms[i].Name < syms[j].Name
	})
	return syms
}

// used reports whether the use table records offset for the named extern.
func (t *Tables) used(name string, offset int) bool {
	for _, o := range t.Uses[name] {
		if o == offset {
			return true
		}
	}
	return false
}
