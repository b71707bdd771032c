// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"path/filepath"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

var (
	errBadBool    = errors.New("invalid bool value")
	errBadAddress = errors.New("invalid address")
	errBadNumber  = errors.New("invalid number")
)

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false", "off":
		return false, nil
	case "1", "true", "on":
		return true, nil
	default:
		return false, errors.Wrap(errBadBool, "'%s'", s)
	}
}

// parseAddr parses a decimal or 0x-prefixed hexadecimal word address.
func parseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, errors.Wrap(errBadAddress, "'%s'", s)
	}
	return uint16(v), nil
}

// parseWord parses a signed memory word.
func parseWord(s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, errors.Wrap(errBadNumber, "'%s'", s)
	}
	return int(v), nil
}

func parseCount(s string) (int, error) {
	v, err := strconv.ParseUint(s, 0, 31)
	if err != nil || v == 0 {
		return 0, errors.Wrap(errBadNumber, "'%s'", s)
	}
	return int(v), nil
}

// withExt appends ext to filename unless it already has an extension.
func withExt(filename, ext string) string {
	if filepath.Ext(filename) == "" {
		return filename + ext
	}
	return filename
}

func indentWrap(indent int, s string) string {
	const width = 72

	pad := strings.Repeat(" ", indent)
	var b strings.Builder
	col := 0
	for _, w := range strings.Fields(s) {
		switch {
		case col == 0:
			b.WriteString(pad)
			col = indent
		case col+1+len(w) > width:
			b.WriteString("\n" + pad)
			col = indent
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(w)
		col += len(w)
	}
	return b.String()
}
