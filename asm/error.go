// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"sort"

	"tlog.app/go/errors"
)

// A Kind classifies an assembly error.
type Kind byte

const (
	Fatal Kind = iota
	Lexical
	Syntactic
	Semantic
)

var kindName = []string{
	"Fatal",
	"Lexical",
	"Syntactic",
	"Semantic",
}

func (k Kind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Pre-processing errors.
var (
	ErrRead              = errors.New("cannot read source")
	ErrInvalidAliasName  = errors.New("invalid alias name")
	ErrDuplicateAlias    = errors.New("alias defined more than once")
	ErrInvalidAliasValue = errors.New("alias value is not an integer literal")
	ErrInvalidEqu        = errors.New("malformed EQU directive")
	ErrLabelBeforeIf     = errors.New("IF directive cannot be labeled")
	ErrInvalidCondition  = errors.New("IF condition must be 0 or 1")
)

// Symbol collection errors.
var (
	ErrSyntax             = errors.New("syntax error")
	ErrDoubleLabel        = errors.New("two labels on the same line")
	ErrLabelNotAllowed    = errors.New("directive cannot be labeled")
	ErrMissingLabel       = errors.New("directive requires a label")
	ErrInvalidSection     = errors.New("unknown section")
	ErrSectionOrder       = errors.New("section TEXT must come first")
	ErrDuplicateSection   = errors.New("section declared more than once")
	ErrInvalidSymbol      = errors.New("invalid symbol name")
	ErrDuplicateSymbol    = errors.New("symbol defined more than once")
	ErrDuplicatePublic    = errors.New("symbol declared public more than once")
	ErrUndefinedPublic    = errors.New("public symbol is never defined")
	ErrPublicExtern       = errors.New("extern symbol cannot be public")
	ErrOperandCount       = errors.New("wrong number of operands")
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrInvalidSpace       = errors.New("SPACE size must be a positive integer")
	ErrMissingText        = errors.New("missing section TEXT")
)

// Code generation errors.
var (
	ErrInvalidOperand          = errors.New("invalid operand")
	ErrInvalidLiteral          = errors.New("invalid integer literal")
	ErrConstRange              = errors.New("constant does not fit in 16 bits")
	ErrUndefinedSymbol         = errors.New("undefined symbol")
	ErrExternBeforeDeclaration = errors.New("extern symbol used before its declaration")
	ErrWrongSection            = errors.New("not allowed in this section")
	ErrJumpTarget              = errors.New("jump target is not code")
	ErrWriteTarget             = errors.New("write target is not a variable")
	ErrDivideByZero            = errors.New("division by constant zero")
	ErrBeginLabel              = errors.New("BEGIN requires a label")
	ErrBeginMisplaced          = errors.New("BEGIN must be the first command")
	ErrDuplicateBegin          = errors.New("BEGIN used more than once")
	ErrDuplicateEnd            = errors.New("END used more than once")
	ErrAfterEnd                = errors.New("command after END")
	ErrBeginEnd                = errors.New("BEGIN and END must appear together")
)

var kinds = map[error]Kind{
	ErrRead:              Fatal,
	ErrInvalidAliasName:  Lexical,
	ErrDuplicateAlias:    Semantic,
	ErrInvalidAliasValue: Syntactic,
	ErrInvalidEqu:        Syntactic,
	ErrLabelBeforeIf:     Syntactic,
	ErrInvalidCondition:  Syntactic,

	ErrSyntax:             Syntactic,
	ErrDoubleLabel:        Syntactic,
	ErrLabelNotAllowed:    Syntactic,
	ErrMissingLabel:       Syntactic,
	ErrInvalidSection:     Syntactic,
	ErrSectionOrder:       Semantic,
	ErrDuplicateSection:   Semantic,
	ErrInvalidSymbol:      Lexical,
	ErrDuplicateSymbol:    Semantic,
	ErrDuplicatePublic:    Semantic,
	ErrUndefinedPublic:    Semantic,
	ErrPublicExtern:       Semantic,
	ErrOperandCount:       Syntactic,
	ErrUnknownInstruction: Syntactic,
	ErrInvalidSpace:       Syntactic,
	ErrMissingText:        Fatal,

	ErrInvalidOperand:          Syntactic,
	ErrInvalidLiteral:          Syntactic,
	ErrConstRange:              Syntactic,
	ErrUndefinedSymbol:         Semantic,
	ErrExternBeforeDeclaration: Semantic,
	ErrWrongSection:            Semantic,
	ErrJumpTarget:              Semantic,
	ErrWriteTarget:             Semantic,
	ErrDivideByZero:            Semantic,
	ErrBeginLabel:              Syntactic,
	ErrBeginMisplaced:          Semantic,
	ErrDuplicateBegin:          Semantic,
	ErrDuplicateEnd:            Semantic,
	ErrAfterEnd:                Semantic,
	ErrBeginEnd:                Fatal,
}

// An Error is a single diagnostic produced while assembling. It wraps one
// of the package's sentinel errors.
type Error struct {
	Kind   Kind   // error class
	Line   int    // 1-based source line, 0 if not tied to a line
	Err    error  // sentinel error
	Detail string // offending text, if any
}

func newError(line int, err error, detail string) *Error {
	k, ok := kinds[err]
	if !ok {
		k = Fatal
	}
	return &Error{Kind: k, Line: line, Err: err, Detail: detail}
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Line > 0 {
		return fmt.Sprintf("%v error on line %d: %s", e.Kind, e.Line, msg)
	}
	return fmt.Sprintf("%v error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostic formats the error the way the command-line tools report it:
// "[<Kind> error] line <n>: <message>".
func (e *Error) Diagnostic() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("[%v error] line %d: %s", e.Kind, e.Line, msg)
}

// An ErrorList holds every diagnostic accumulated by a single stage.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", l[0], len(l)-1)
}

// Is reports whether any error in the list matches target.
func (l ErrorList) Is(target error) bool {
	for _, e := range l {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

// Unwrap returns the list members.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// sort orders the list by source line, keeping line-less errors first.
func (l ErrorList) sort() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Line < l[j].Line
	})
}

// A Stage identifies the part of the assembler that failed.
type Stage byte

const (
	StagePreprocess Stage = iota + 1
	StageSymbols
	StageCode
)

var stageName = map[Stage]string{
	StagePreprocess: "pre-processing",
	StageSymbols:    "first pass",
	StageCode:       "second pass",
}

func (s Stage) String() string {
	return stageName[s]
}

// A StageError is returned by Assemble when a stage fails.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Errors returns the diagnostics of the failed stage.
func (e *StageError) Errors() ErrorList {
	var l ErrorList
	if errors.As(e.Err, &l) {
		return l
	}
	return nil
}
