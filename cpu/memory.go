// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "tlog.app/go/errors"

// Errors
var (
	ErrMemoryOutOfBounds = errors.New("memory access out of bounds")
)

// The Memory interface presents an interface to the CPU through which all
// memory accesses occur. Memory is addressed in words.
type Memory interface {
	// LoadWord loads a single word from the address and returns it.
	LoadWord(addr uint16) int

	// LoadWords loads multiple words from the address and stores them into
	// the buffer 'w'.
	LoadWords(addr uint16, w []int)

	// StoreWord stores a word to the requested address.
	StoreWord(addr uint16, v int)

	// StoreWords stores multiple words to the requested address.
	StoreWords(addr uint16, w []int) error
}

// FlatMemory represents an entire 16-bit address space as a singular
// 64K-word buffer.
type FlatMemory struct {
	w [64 * 1024]int
}

// NewFlatMemory creates a new 16-bit memory space.
func NewFlatMemory() *FlatMemory {
	return &FlatMemory{}
}

// LoadWord loads a single word from the address and returns it.
func (m *FlatMemory) LoadWord(addr uint16) int {
	return m.w[addr]
}

// LoadWords loads multiple words from the address. Words past the end of
// the address space read as zero.
func (m *FlatMemory) LoadWords(addr uint16, w []int) {
	n := copy(w, m.w[addr:])
	clear(w[n:])
}

// StoreWord stores a word at the requested address.
func (m *FlatMemory) StoreWord(addr uint16, v int) {
	m.w[addr] = v
}

// StoreWords stores multiple words to the requested address.
func (m *FlatMemory) StoreWords(addr uint16, w []int) error {
	if int(addr)+len(w) > len(m.w) {
		return ErrMemoryOutOfBounds
	}
	copy(m.w[addr:], w)
	return nil
}

// Reset zeroes the whole address space.
func (m *FlatMemory) Reset() {
	clear(m.w[:])
}
