// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link combines relocatable object modules into a single
// executable image. Every module is loaded at the end of the previous one;
// external references are patched with the exporting module's global
// address and relative words are shifted by their module's load offset.
package link

import (
	"fmt"
	"sort"
	"strings"

	"github.com/swbasico/sbtool/obj"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Link errors.
var (
	ErrNoModules           = errors.New("no modules to link")
	ErrUndefinedExternal   = errors.New("undefined external symbol")
	ErrDuplicateDefinition = errors.New("public symbol defined by more than one module")
)

// An Error is a link diagnostic tied to a module and a symbol.
type Error struct {
	Module string // module reporting the error
	Symbol string // offending symbol
	Err    error  // sentinel error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Module, e.Err, e.Symbol)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// An ErrorList holds every diagnostic of a failed link.
type ErrorList []*Error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
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

// The linker is a state object used while composing modules into an image.
type linker struct {
	modules     []*obj.Module     // private copies, patched in place
	corrections []int             // load offset of each module
	globals     map[string]int    // public name -> global address
	owner       map[string]string // public name -> defining module
	fixed       []map[int]bool    // per module, offsets patched externally
	code        []int             // final image
	log         *tlog.Logger      // verbose output, nil when silent
	errors      ErrorList         // errors encountered during linking
}

// Link composes modules, in the order given, into an executable image. The
// caller's modules are never modified. If log is non-nil, the correction
// table, global definitions and every fixup are logged to it. Undefined
// externals and duplicate definitions are all collected and returned as an
// ErrorList, in which case no image is returned.
func Link(modules []*obj.Module, log *tlog.Logger) (*Image, error) {
	if len(modules) == 0 {
		return nil, ErrNoModules
	}

	l := &linker{
		globals: make(map[string]int),
		owner:   make(map[string]string),
		log:     log,
	}
	for _, m := range modules {
		if err := m.Validate(); err != nil {
			return nil, errors.Wrap(err, "module %v", m.Name)
		}
		l.modules = append(l.modules, m.Clone())
	}

	// Linking consists of the following steps
	steps := []func(l *linker) error{
		(*linker).computeCorrections, // Assign each module its load offset
		(*linker).buildGlobals,       // Merge the definitions tables
		(*linker).resolveExternals,   // Patch external references
		(*linker).relocate,           // Shift the remaining relative words
		(*linker).concatenate,        // Build the final image
	}

	for _, step := range steps {
		if err := step(l); err != nil {
			return nil, err
		}
	}
	if len(l.errors) > 0 {
		return nil, l.errors
	}

	img := &Image{
		Code:        l.code,
		Corrections: l.corrections,
		Globals:     l.globals,
	}
	for _, m := range l.modules {
		img.Modules = append(img.Modules, m.Name)
	}
	return img, nil
}

// LinkFiles loads every named object file and links them in order.
func LinkFiles(paths []string, log *tlog.Logger) (*Image, error) {
	modules := make([]*obj.Module, 0, len(paths))
	for _, p := range paths {
		m, err := obj.Load(p)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return Link(modules, log)
}

// Module i is loaded right after module i-1.
func (l *linker) computeCorrections() error {
	l.corrections = make([]int, len(l.modules))
	base := 0
	for i, m := range l.modules {
		l.corrections[i] = base
		l.logw("correction", "module", m.Name, "offset", base, "size", m.Size())
		base += m.Size()
	}
	return nil
}

func (l *linker) buildGlobals() error {
	for i, m := range l.modules {
		for _, name := range sortedNames(m.Definitions) {
			if prev, dup := l.owner[name]; dup {
				l.addError(m.Name, name, ErrDuplicateDefinition)
				l.logw("duplicate definition", "name", name, "module", m.Name, "previous", prev)
				continue
			}
			addr := m.Definitions[name] + l.corrections[i]
			l.globals[name] = addr
			l.owner[name] = m.Name
			l.logw("global", "name", name, "addr", addr, "module", m.Name)
		}
	}
	return nil
}

// Every use of an external symbol receives the symbol's global address.
// The patched offsets are excluded from relocation.
func (l *linker) resolveExternals() error {
	l.fixed = make([]map[int]bool, len(l.modules))
	for i, m := range l.modules {
		l.fixed[i] = make(map[int]bool)
		for _, name := range sortedNames(m.Uses) {
			addr, ok := l.globals[name]
			if !ok {
				l.addError(m.Name, name, ErrUndefinedExternal)
				continue
			}
			for _, off := range m.Uses[name] {
				m.Code[off] += addr
				l.fixed[i][off] = true
				l.logw("external", "module", m.Name, "name", name, "offset", off, "word", m.Code[off])
			}
		}
	}
	return nil
}

func (l *linker) relocate() error {
	for i, m := range l.modules {
		for _, off := range m.Relative {
			if l.fixed[i][off] {
				continue
			}
			m.Code[off] += l.corrections[i]
		}
		l.logw("relocated", "module", m.Name, "offset", l.corrections[i], "words", len(m.Relative))
	}
	return nil
}

func (l *linker) concatenate() error {
	size := 0
	for _, m := range l.modules {
		size += m.Size()
	}
	l.code = make([]int, 0, size)
	for _, m := range l.modules {
		l.code = append(l.code, m.Code...)
	}
	l.logw("image", "words", len(l.code))
	return nil
}

func (l *linker) addError(module, symbol string, err error) {
	l.errors = append(l.errors, &Error{Module: module, Symbol: symbol, Err: err})
}

func (l *linker) logw(msg string, kvs ...any) {
	if l.log != nil {
		l.log.Printw(msg, kvs...)
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
