// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"", ""},
		{"   \t ", ""},
		{"; just a comment", ""},
		{"  label:   add   x ; comment", "LABEL: ADD X"},
		{"L:ADD X", "L: ADD X"},
		{"L :\tADD X", "L: ADD X"},
		{"copy a,b", "COPY A, B"},
		{"COPY A ,   B", "COPY A, B"},
		{"\tSection\tText", "SECTION TEXT"},
		{"x: const -0x1f", "X: CONST -0X1F"},
		{"end:", "END:"},
	}

	for _, test := range tests {
		got := Normalize(test.in)
		assert.Equal(t, test.out, got, "input %q", test.in)
		assert.Equal(t, got, Normalize(got), "normalizing %q twice", test.in)
	}
}

func TestExpandAliases(t *testing.T) {
	aliases := Aliases{"TWO": "2", "X": "0X10"}

	tests := []struct {
		in, out string
	}{
		{"", ""},
		{"L: CONST TWO", "L: CONST 2"},
		{"TWO: CONST TWO", "TWO: CONST 2"},
		{"COPY TWO, X", "COPY 2, 0X10"},
		{"LOAD X+1", "LOAD X+1"},
		{"SECTION TWO", "SECTION TWO"},
		{"X: BEGIN", "X: BEGIN"},
		{"TWO", "TWO"},
		{"TWO:", "TWO:"},
		{"STOP", "STOP"},
	}

	for _, test := range tests {
		assert.Equal(t, test.out, ExpandAliases(test.in, aliases), "input %q", test.in)
	}
	assert.Equal(t, Aliases{"TWO": "2", "X": "0X10"}, aliases)
}

func TestPreprocess(t *testing.T) {
	src := `; header
two: equ 2
ten: equ 0xA
IF 0
SECTION DATA
SECTION TEXT
if 1
  load two   ; comment

l: const ten
IF 0`

	lines, aliases, err := Preprocess(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, Aliases{"TWO": "2", "TEN": "0XA"}, aliases)
	assert.Equal(t, []SourceLine{
		{Line: 6, Text: "SECTION TEXT"},
		{Line: 8, Text: "LOAD 2"},
		{Line: 10, Text: "L: CONST 0XA"},
	}, lines)

	for i := 1; i < len(lines); i++ {
		assert.Less(t, lines[i-1].Line, lines[i].Line)
	}
}

func TestPreprocessChainedAlias(t *testing.T) {
	lines, aliases, err := Preprocess(strings.NewReader("A: EQU 1\nB: EQU A\nIF B\nSTOP"))
	require.NoError(t, err)
	assert.Equal(t, "1", aliases["B"])
	assert.Equal(t, []SourceLine{{Line: 4, Text: "STOP"}}, lines)
}

func TestPreprocessErrors(t *testing.T) {
	src := `1X: EQU 3
A: EQU 1
A: EQU 2
B: EQU Z
L: IF 1
IF 2
EQU 5
STOP`

	_, _, err := Preprocess(strings.NewReader(src))
	require.Error(t, err)

	var errs ErrorList
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 6)

	expected := []struct {
		line int
		err  error
		kind Kind
	}{
		{1, ErrInvalidAliasName, Lexical},
		{3, ErrDuplicateAlias, Semantic},
		{4, ErrInvalidAliasValue, Syntactic},
		{5, ErrLabelBeforeIf, Syntactic},
		{6, ErrInvalidCondition, Syntactic},
		{7, ErrInvalidEqu, Syntactic},
	}
	for i, e := range expected {
		assert.Equal(t, e.line, errs[i].Line)
		assert.ErrorIs(t, errs[i], e.err)
		assert.Equal(t, e.kind, errs[i].Kind)
	}
}

func TestParseLine(t *testing.T) {
	l := parseLine(SourceLine{Line: 7, Text: "L: COPY A, B+1"})
	assert.Equal(t, line{row: 7, labels: []string{"L"}, mnemonic: "COPY", operands: []string{"A", "B+1"}}, l)

	l = parseLine(SourceLine{Line: 1, Text: "A: B: STOP"})
	assert.Equal(t, []string{"A", "B"}, l.labels)

	l = parseLine(SourceLine{Line: 1, Text: "L:"})
	assert.Equal(t, "L", l.label())
	assert.Empty(t, l.mnemonic)
	assert.Nil(t, l.operands)
}

func TestParseOperand(t *testing.T) {
	o, err := parseOperand("X+3")
	require.NoError(t, err)
	assert.Equal(t, operand{symbol: "X", offset: 3}, o)

	o, err = parseOperand("-0X10")
	require.NoError(t, err)
	assert.Equal(t, operand{literal: true, value: -16}, o)

	_, err = parseOperand("X+-1")
	assert.ErrorIs(t, err, ErrInvalidOperand)
	_, err = parseOperand("X+Y")
	assert.ErrorIs(t, err, ErrInvalidOperand)
	_, err = parseOperand("_X")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
	_, err = parseOperand(strings.Repeat("A", 51))
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}
