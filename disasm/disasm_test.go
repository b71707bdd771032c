// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swbasico/sbtool/cpu"
)

func TestDisassemble(t *testing.T) {
	mem := cpu.NewFlatMemory()
	require.NoError(t, mem.StoreWords(0, []int{12, 20, 9, 20, 21, 13, 21, 14, 99, -3}))

	expected := []struct {
		line string
		next uint16
	}{
		{"INPUT 20", 2},
		{"COPY 20, 21", 5},
		{"OUTPUT 21", 7},
		{"STOP", 8},
		{"CONST 99", 9},
		{"CONST -3", 10},
	}

	addr := uint16(0)
	for _, e := range expected {
		line, next := Disassemble(mem, addr)
		assert.Equal(t, e.line, line)
		assert.Equal(t, e.next, next)
		addr = next
	}
}

func TestDisassembleWrapsAround(t *testing.T) {
	mem := cpu.NewFlatMemory()
	mem.StoreWord(0xffff, 10)
	mem.StoreWord(0, 7)

	line, next := Disassemble(mem, 0xffff)
	assert.Equal(t, "LOAD 7", line)
	assert.Equal(t, uint16(1), next)
}
