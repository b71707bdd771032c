// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"
	"strings"
)

const maxSymbolLength = 50

//
// character helper functions
//

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func labelStartChar(c byte) bool {
	return alpha(c)
}

func labelChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_'
}

func all(s string, fn func(c byte) bool) bool {
	for i := 0; i < len(s); i++ {
		if !fn(s[i]) {
			return false
		}
	}
	return true
}

// validSymbol reports whether s can name a label or an alias: a letter
// followed by letters, digits or underscores, at most 50 characters.
func validSymbol(s string) bool {
	return len(s) > 0 && len(s) <= maxSymbolLength &&
		labelStartChar(s[0]) && all(s, labelChar)
}

// parseLiteral parses a signed decimal or 0X-prefixed hexadecimal integer
// literal.
func parseLiteral(s string) (int, bool) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	base := 10
	digit := decimal
	if len(s) > 2 && (s[:2] == "0X" || s[:2] == "0x") {
		base, digit, s = 16, hexadecimal, s[2:]
	}
	if s == "" || !all(s, digit) {
		return 0, false
	}

	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return int(v), true
}
