// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements the two-pass assembler for the SB accumulator
// machine. Source is pre-processed (EQU and IF), then a first pass builds
// the symbol, definitions and use tables and a second pass emits code and
// the list of relocatable words. The result is a relocatable object module.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/swbasico/sbtool/cpu"
	"github.com/swbasico/sbtool/obj"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// The assembler is a state object used during the assembly of
// machine code from assembly code.
type assembler struct {
	r        io.Reader           // the reader passed to Assemble
	instSet  *cpu.InstructionSet // instruction catalog
	logger   *tlog.Logger        // verbose output, nil when silent
	source   []SourceLine        // pre-processed line buffer
	aliases  Aliases             // EQU aliases
	tables   *Tables             // first pass results
	code     []int               // generated machine code
	relative []int               // offsets of address-valued words
	addr     int                 // address counter of the current pass
	section  string              // section of the current pass
	errors   ErrorList           // errors encountered by the current stage
}

// Assembly contains everything produced while assembling a module. On
// failure it holds whatever the completed stages produced.
type Assembly struct {
	Source  []SourceLine // pre-processed source
	Aliases Aliases      // EQU aliases
	Tables  *Tables      // symbol, definitions and use tables
	Module  *obj.Module  // object module, nil unless assembly succeeded
}

// WriteSource writes the pre-processed source, one line per buffer entry.
func (a *Assembly) WriteSource(w io.Writer) (n int64, err error) {
	bw := bufio.NewWriter(w)
	for _, sl := range a.Source {
		nn, err := fmt.Fprintln(bw, sl.Text)
		n += int64(nn)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Assemble reads SB assembly source from r and assembles it into an object
// module named name. If log is non-nil, the progress of every pass is
// logged to it. A failed stage is reported as a *StageError wrapping the
// stage's ErrorList.
func Assemble(r io.Reader, name string, log *tlog.Logger) (*Assembly, error) {
	a := &assembler{
		r:       r,
		instSet: cpu.GetInstructionSet(),
		logger:  log,
	}

	// Assembly consists of the following steps
	steps := []struct {
		stage Stage
		fn    func(a *assembler) error
	}{
		{StagePreprocess, (*assembler).preprocess},  // Resolve EQU and IF
		{StageSymbols, (*assembler).collectSymbols}, // Build the symbol tables
		{StageCode, (*assembler).generateCode},      // Generate the machine code
	}

	// Execute assembler steps, breaking if an error is encountered
	// in any one of them.
	var err error
	for _, step := range steps {
		a.errors = nil
		err = step.fn(a)
		if err == nil && len(a.errors) > 0 {
			a.errors.sort()
			err = a.errors
		}
		if err != nil {
			err = &StageError{Stage: step.stage, Err: err}
			break
		}
	}

	assembly := &Assembly{
		Source:  a.source,
		Aliases: a.aliases,
		Tables:  a.tables,
	}
	if err != nil {
		return assembly, err
	}

	m := obj.New(name)
	for n, addr := range a.tables.Definitions {
		m.Definitions[n] = addr
	}
	for n, offsets := range a.tables.Uses {
		m.Uses[n] = append([]int(nil), offsets...)
	}
	m.Relative = a.relative
	m.Code = a.code
	assembly.Module = m
	return assembly, nil
}

// AssembleFile assembles <base>.asm. After pre-processing succeeds it
// writes <base>.pre, and after both passes succeed it writes <base>.obj.
// A stale <base>.obj is removed when assembly fails.
func AssembleFile(base string, log *tlog.Logger) (*Assembly, error) {
	base = strings.TrimSuffix(base, ".asm")

	in, err := os.Open(base + ".asm")
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}
	defer in.Close()

	assembly, err := Assemble(in, filepath.Base(base), log)
	if assembly.Source != nil {
		if werr := writeFile(base+".pre", assembly.WriteSource); werr != nil {
			return assembly, werr
		}
	}
	if err != nil {
		os.Remove(base + ".obj")
		return assembly, err
	}

	if err := writeFile(base+".obj", assembly.Module.WriteTo); err != nil {
		return assembly, err
	}

	if log != nil {
		log.Printw("assembled", "source", base+".asm", "object", base+".obj",
			"words", len(assembly.Module.Code))
	}
	return assembly, nil
}

func writeFile(path string, write func(w io.Writer) (int64, error)) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "create %v", path)
	}
	defer f.Close()

	if _, err := write(f); err != nil {
		return errors.Wrap(err, "write %v", path)
	}
	return f.Close()
}

// Run the pre-processor over the assembler's reader.
func (a *assembler) preprocess() error {
	a.logSection("Pre-processing")

	source, aliases, err := Preprocess(a.r)
	if err != nil {
		var l ErrorList
		if !errors.As(err, &l) {
			return err
		}
		a.errors = append(a.errors, l...)
		return nil
	}

	a.source, a.aliases = source, aliases
	for _, sl := range source {
		a.log("line", "row", sl.Line, "text", sl.Text)
	}
	return nil
}

// Append an error to the assembler's error state.
func (a *assembler) addError(row int, err error, detail string) {
	e := newError(row, err, detail)
	a.errors = append(a.errors, e)
	a.log("error", "kind", e.Kind, "line", row, "err", err, "detail", detail)
}

// In verbose mode, log a message with key-value pairs.
func (a *assembler) log(msg string, kvs ...any) {
	if a.logger != nil {
		a.logger.Printw(msg, kvs...)
	}
}

// In verbose mode, log the words generated for a source line.
func (a *assembler) logLine(l line, addr int, format string, args ...any) {
	if a.logger != nil {
		a.logger.Printw(fmt.Sprintf(format, args...), "line", l.row, "addr", addr, "op", l.mnemonic)
	}
}

// In verbose mode, log a section header.
func (a *assembler) logSection(name string) {
	if a.logger != nil {
		a.logger.Printw("-- " + name + " --")
	}
}
