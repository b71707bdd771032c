// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"io"
	"strings"
)

// A SourceLine is one line of pre-processed source together with the line
// number it had in the original file.
type SourceLine struct {
	Line int    // 1-based line number in the original source
	Text string // normalized, alias-expanded text
}

// Aliases maps EQU names to their replacement text.
type Aliases map[string]string

// Normalize strips the comment from a raw source line, collapses runs of
// blanks into a single space, places exactly one space after every label
// colon and operand comma, trims the line and upper-cases it. A blank or
// comment-only line normalizes to "".
func Normalize(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}

	var b strings.Builder
	space := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case whitespace(c):
			space = true
		case c == ':' || c == ',':
			b.WriteByte(c)
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteByte(c)
		}
	}
	return strings.ToUpper(b.String())
}

// ExpandAliases replaces every operand word of a normalized line that
// exactly matches an alias name with the alias's text. The label, the
// mnemonic and SECTION or BEGIN lines are left untouched.
func ExpandAliases(line string, aliases Aliases) string {
	if line == "" || len(aliases) == 0 {
		return line
	}

	words := strings.Split(line, " ")
	i := 0
	if strings.HasSuffix(words[0], ":") {
		i++
	}
	if i >= len(words) || words[i] == "SECTION" || words[i] == "BEGIN" {
		return line
	}

	// Skip the mnemonic.
	i++
	if i >= len(words) {
		return line
	}

	for ; i < len(words); i++ {
		name, comma := strings.CutSuffix(words[i], ",")
		if v, ok := aliases[name]; ok {
			if comma {
				v += ","
			}
			words[i] = v
		}
	}
	return strings.Join(words, " ")
}

// The preprocessor resolves EQU and IF directives and produces the line
// buffer shared by both assembler passes.
type preprocessor struct {
	scanner *bufio.Scanner
	row     int
	aliases Aliases
	lines   []SourceLine
	errors  ErrorList
}

// Preprocess reads raw assembly source and returns the pre-processed line
// buffer and the alias table built along the way. If any line is in error,
// the returned error is an ErrorList holding every diagnostic.
func Preprocess(r io.Reader) ([]SourceLine, Aliases, error) {
	p := &preprocessor{
		scanner: bufio.NewScanner(r),
		aliases: make(Aliases),
	}

	for p.next() {
		text := ExpandAliases(Normalize(p.scanner.Text()), p.aliases)
		l := parseLine(SourceLine{Line: p.row, Text: text})

		switch l.mnemonic {
		case "EQU":
			p.equate(l)
		case "IF":
			p.conditional(l)
		default:
			if text != "" {
				p.lines = append(p.lines, SourceLine{Line: p.row, Text: text})
			}
		}
	}

	if err := p.scanner.Err(); err != nil {
		p.addError(0, ErrRead, err.Error())
		return nil, nil, p.errors
	}
	if len(p.errors) > 0 {
		return nil, nil, p.errors
	}
	return p.lines, p.aliases, nil
}

func (p *preprocessor) next() bool {
	if !p.scanner.Scan() {
		return false
	}
	p.row++
	return true
}

// Handle "LABEL: EQU VALUE".
func (p *preprocessor) equate(l line) {
	if len(l.labels) != 1 || len(l.operands) != 1 {
		p.addError(l.row, ErrInvalidEqu, "")
		return
	}

	name, value := l.labels[0], l.operands[0]
	switch {
	case !validSymbol(name):
		p.addError(l.row, ErrInvalidAliasName, name)
	case p.aliases[name] != "":
		p.addError(l.row, ErrDuplicateAlias, name)
	default:
		if _, ok := parseLiteral(value); !ok {
			p.addError(l.row, ErrInvalidAliasValue, value)
			return
		}
		p.aliases[name] = value
	}
}

// Handle "IF CONDITION". A false condition discards the next raw line.
func (p *preprocessor) conditional(l line) {
	if len(l.labels) > 0 {
		p.addError(l.row, ErrLabelBeforeIf, l.labels[0])
	}

	if len(l.operands) != 1 || (l.operands[0] != "0" && l.operands[0] != "1") {
		p.addError(l.row, ErrInvalidCondition, strings.Join(l.operands, ", "))
		return
	}

	if l.operands[0] == "0" {
		p.next()
	}
}

func (p *preprocessor) addError(row int, err error, detail string) {
	p.errors = append(p.errors, newError(row, err, detail))
}
