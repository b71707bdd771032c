// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// A line is a normalized source line split into its fields.
type line struct {
	row      int      // original source line number
	labels   []string // leading "NAME:" tokens, colon removed
	mnemonic string   // operation or directive, may be empty
	operands []string // comma-separated operands with blanks removed
}

// parseLine splits a normalized line into labels, mnemonic and operands.
// Every colon in the line counts as a label terminator, so a line with two
// colons always reports two labels.
func parseLine(sl SourceLine) line {
	l := line{row: sl.Line}
	text := sl.Text

	for {
		i := strings.IndexByte(text, ':')
		if i < 0 {
			break
		}
		l.labels = append(l.labels, strings.TrimSpace(text[:i]))
		text = strings.TrimSpace(text[i+1:])
	}

	l.mnemonic, text, _ = strings.Cut(text, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return l
	}

	for _, op := range strings.Split(text, ",") {
		l.operands = append(l.operands, strings.ReplaceAll(strings.TrimSpace(op), " ", ""))
	}
	return l
}

// label returns the line's label, or "" if it has none.
func (l *line) label() string {
	if len(l.labels) == 0 {
		return ""
	}
	return l.labels[0]
}

// malformed reports whether the line has an empty label or operand.
func (l *line) malformed() bool {
	for _, s := range l.labels {
		if s == "" {
			return true
		}
	}
	for _, s := range l.operands {
		if s == "" {
			return true
		}
	}
	return false
}

// An operand is a parsed instruction or directive argument: either an
// integer literal or a symbol reference with an optional offset.
type operand struct {
	literal bool
	value   int    // literal value
	symbol  string // referenced symbol
	offset  int    // offset added to the symbol's address
}

// parseOperand parses "NAME[+INTEGER]" or an integer literal.
func parseOperand(s string) (operand, error) {
	if s == "" {
		return operand{}, ErrInvalidOperand
	}
	if v, ok := parseLiteral(s); ok {
		return operand{literal: true, value: v}, nil
	}

	name, off, hasOffset := strings.Cut(s, "+")
	if !validSymbol(name) {
		return operand{}, ErrInvalidSymbol
	}

	o := operand{symbol: name}
	if hasOffset {
		v, ok := parseLiteral(off)
		if !ok || v < 0 || strings.HasPrefix(off, "-") || strings.HasPrefix(off, "+") {
			return operand{}, ErrInvalidOperand
		}
		o.offset = v
	}
	return o, nil
}

// operandSymbol returns the leading symbol name of an operand, ignoring
// any trailing offset.
func operandSymbol(s string) string {
	name, _, _ := strings.Cut(s, "+")
	return name
}
