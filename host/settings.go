// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/prefixtree/v2"
	"tlog.app/go/errors"
)

var errSettingValue = errors.New("invalid setting value")

type settings struct {
	DisasmLines     int    `doc:"default number of lines to disassemble"`
	MemDumpWords    int    `doc:"default number of memory words to dump"`
	StepLimit       int    `doc:"max instructions executed by run"`
	MaxStepLines    int    `doc:"max lines to disassemble when stepping"`
	Verbose         bool   `doc:"log assembler and linker progress"`
	NextDisasmAddr  uint16 `doc:"address of next disassembly"`
	NextMemDumpAddr uint16 `doc:"address of next memory dump"`
}

func newSettings() *settings {
	return &settings{
		DisasmLines:  10,
		MemDumpWords: 32,
		StepLimit:    100000,
		MaxStepLines: 20,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := range settingsFields {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// Display writes every setting with its current value and description.
func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := fmt.Sprintf("    %-16s %v", f.name, value.Field(i))
		fmt.Fprintf(w, "%-28s (%s)\n", v, f.doc)
	}
}

// Set parses value according to the type of the setting whose name starts
// with key, and stores it. It returns the full setting name.
func (s *settings) Set(key, value string) (string, error) {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return "", errors.Wrap(err, "setting '%s'", key)
	}

	out := reflect.ValueOf(s).Elem().Field(f.index)
	switch f.kind {
	case reflect.Bool:
		b, err := stringToBool(value)
		if err != nil {
			return "", err
		}
		out.SetBool(b)

	case reflect.Int:
		v, err := strconv.ParseInt(value, 0, 32)
		if err != nil || v < 0 {
			return "", errors.Wrap(errSettingValue, "%s", value)
		}
		out.SetInt(v)

	case reflect.Uint16:
		v, err := parseAddr(value)
		if err != nil {
			return "", err
		}
		out.SetUint(uint64(v))

	default:
		return "", errors.Wrap(errSettingValue, "unsupported setting type %v", f.kind)
	}
	return f.name, nil
}
