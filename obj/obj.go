// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package obj implements the relocatable object module produced by the
// assembler and consumed by the linker, together with its text format.
//
// An object file holds four sections, each introduced by a header line and
// terminated by a blank line:
//
//	TABLE USE
//	<LABEL> <OFFSET>
//
//	TABLE DEFINITION
//	<LABEL> <ADDRESS>
//
//	RELATIVE
//	<OFFSET> <OFFSET> ...
//
//	CODE
//	<WORD> <WORD> ...
package obj

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// Errors returned while loading an object module.
var (
	ErrCorrupt = errors.New("corrupt object module")
)

const maxLabelLength = 50

// Section headers.
const (
	headerUse        = "TABLE USE"
	headerDefinition = "TABLE DEFINITION"
	headerRelative   = "RELATIVE"
	headerCode       = "CODE"
)

var tableLine = regexp.MustCompile(`^([A-Za-z_][A-Za-z_0-9]*) ([0-9]+)$`)

// A Module is one assembled unit: its import list, export list, the
// offsets of its relocatable words and its machine code.
type Module struct {
	Name        string           // module name, usually the file's base name
	Uses        map[string][]int // extern name -> offsets referencing it
	Definitions map[string]int   // public name -> local address
	Relative    []int            // offsets of address-valued words
	Code        []int            // machine words
}

// New creates an empty module.
func New(name string) *Module {
	return &Module{
		Name:        name,
		Uses:        make(map[string][]int),
		Definitions: make(map[string]int),
	}
}

// Size returns the module's code size in words.
func (m *Module) Size() int {
	return len(m.Code)
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	c := New(m.Name)
	for n, offsets := range m.Uses {
		c.Uses[n] = append([]int(nil), offsets...)
	}
	for n, addr := range m.Definitions {
		c.Definitions[n] = addr
	}
	c.Relative = append([]int(nil), m.Relative...)
	c.Code = append([]int(nil), m.Code...)
	return c
}

// Validate checks that every offset and address the module's tables hold
// lies inside its code.
func (m *Module) Validate() error {
	size := len(m.Code)
	for n, offsets := range m.Uses {
		for _, o := range offsets {
			if o < 0 || o >= size {
				return errors.Wrap(ErrCorrupt, "use of %v at offset %d outside code", n, o)
			}
		}
	}
	for n, addr := range m.Definitions {
		if addr < 0 || addr > size {
			return errors.Wrap(ErrCorrupt, "definition of %v at %d outside code", n, addr)
		}
	}
	for _, o := range m.Relative {
		if o < 0 || o >= size {
			return errors.Wrap(ErrCorrupt, "relative offset %d outside code", o)
		}
	}
	return nil
}

// WriteTo writes the module in object text format.
func (m *Module) WriteTo(w io.Writer) (n int64, err error) {
	bw := bufio.NewWriter(w)
	cw := &countWriter{w: bw}

	fmt.Fprintln(cw, headerUse)
	for _, name := range sortedKeys(m.Uses) {
		for _, o := range m.Uses[name] {
			fmt.Fprintf(cw, "%s %d\n", name, o)
		}
	}

	fmt.Fprintln(cw)
	fmt.Fprintln(cw, headerDefinition)
	for _, name := range sortedKeys(m.Definitions) {
		fmt.Fprintf(cw, "%s %d\n", name, m.Definitions[name])
	}

	fmt.Fprintln(cw)
	fmt.Fprintln(cw, headerRelative)
	fmt.Fprintln(cw, joinInts(m.Relative))

	fmt.Fprintln(cw)
	fmt.Fprintln(cw, headerCode)
	fmt.Fprintln(cw, joinInts(m.Code))

	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, bw.Flush()
}

// ReadFrom parses a module in object text format, replacing the module's
// tables. Any line that does not fit the format yields ErrCorrupt.
func (m *Module) ReadFrom(r io.Reader) (n int64, err error) {
	m.Uses = make(map[string][]int)
	m.Definitions = make(map[string]int)
	m.Relative, m.Code = nil, nil

	seen := make(map[string]bool)
	section := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<24)
	row := 0
	for scanner.Scan() {
		row++
		text := strings.TrimRight(scanner.Text(), " \t\r")
		n += int64(len(scanner.Bytes()) + 1)

		switch {
		case text == "":
			section = ""
			continue
		case text == headerUse || text == headerDefinition || text == headerRelative || text == headerCode:
			if seen[text] {
				return n, errors.Wrap(ErrCorrupt, "line %d: repeated section %v", row, text)
			}
			seen[text] = true
			section = text
			continue
		}

		switch section {
		case headerUse, headerDefinition:
			name, v, ok := parseTableLine(text)
			if !ok {
				return n, errors.Wrap(ErrCorrupt, "line %d: %q", row, text)
			}
			if section == headerUse {
				m.Uses[name] = append(m.Uses[name], v)
			} else {
				if _, dup := m.Definitions[name]; dup {
					return n, errors.Wrap(ErrCorrupt, "line %d: %v defined twice", row, name)
				}
				m.Definitions[name] = v
			}

		case headerRelative, headerCode:
			words, ok := parseInts(text, section == headerCode)
			if !ok {
				return n, errors.Wrap(ErrCorrupt, "line %d: %q", row, text)
			}
			if section == headerCode {
				m.Code = append(m.Code, words...)
			} else {
				m.Relative = append(m.Relative, words...)
			}

		default:
			return n, errors.Wrap(ErrCorrupt, "line %d: %q outside any section", row, text)
		}
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrap(err, "read object")
	}

	for _, h := range []string{headerUse, headerDefinition, headerRelative, headerCode} {
		if !seen[h] {
			return n, errors.Wrap(ErrCorrupt, "missing section %v", h)
		}
	}
	return n, m.Validate()
}

// Load reads the object module stored at path. The module is named after
// the file's base name without its extension.
func Load(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open object")
	}
	defer f.Close()

	base := filepath.Base(path)
	m := New(strings.TrimSuffix(base, filepath.Ext(base)))
	if _, err := m.ReadFrom(f); err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}
	return m, nil
}

// Save writes the module to path in object text format.
func (m *Module) Save(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "create object")
	}
	defer f.Close()

	if _, err := m.WriteTo(f); err != nil {
		return errors.Wrap(err, "write %v", path)
	}
	return f.Close()
}

func parseTableLine(s string) (name string, v int, ok bool) {
	sub := tableLine.FindStringSubmatch(s)
	if sub == nil || len(sub[1]) > maxLabelLength {
		return "", 0, false
	}
	v, err := strconv.Atoi(sub[2])
	if err != nil {
		return "", 0, false
	}
	return sub[1], v, true
}

func parseInts(s string, signed bool) ([]int, bool) {
	fields := strings.Fields(s)
	words := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || (!signed && v < 0) || strings.HasPrefix(f, "+") {
			return nil, false
		}
		words = append(words, v)
	}
	return words, true
}

func joinInts(v []int) string {
	var b strings.Builder
	for i, w := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(w))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// countWriter tracks the bytes written and the first error.
type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
