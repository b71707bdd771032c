// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// ErrBadImage is returned when an executable image cannot be parsed.
var ErrBadImage = errors.New("malformed executable image")

// An Image is the result of linking: the concatenated, relocated code and
// the tables used to build it.
type Image struct {
	Code        []int          // executable words, loaded at address 0
	Corrections []int          // load offset of each module
	Globals     map[string]int // public name -> global address
	Modules     []string       // module names in load order
}

// WriteTo writes the image code as one line of space-separated words.
func (img *Image) WriteTo(w io.Writer) (n int64, err error) {
	var b strings.Builder
	for i, word := range img.Code {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(word))
	}
	b.WriteByte('\n')

	nn, err := io.WriteString(w, b.String())
	return int64(nn), err
}

// ReadFrom reads image code written by WriteTo. Only the code is restored.
func (img *Image) ReadFrom(r io.Reader) (n int64, err error) {
	img.Code = nil

	br := bufio.NewReader(r)
	for {
		var word string
		word, err = readWord(br, &n)
		if word != "" {
			v, perr := strconv.Atoi(word)
			if perr != nil {
				return n, errors.Wrap(ErrBadImage, "word %d: %q", len(img.Code), word)
			}
			img.Code = append(img.Code, v)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, errors.Wrap(err, "read image")
		}
	}
	if len(img.Code) > 0x10000 {
		return n, errors.Wrap(ErrBadImage, "image exceeds 64K words")
	}
	return n, nil
}

// Save writes the image to path.
func (img *Image) Save(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "create image")
	}
	defer f.Close()

	if _, err := img.WriteTo(f); err != nil {
		return errors.Wrap(err, "write %v", path)
	}
	return f.Close()
}

// LoadImage reads the executable image stored at path.
func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()

	img := &Image{}
	if _, err := img.ReadFrom(f); err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}
	return img, nil
}

// readWord returns the next blank-separated word, skipping leading blanks.
func readWord(br *bufio.Reader, n *int64) (string, error) {
	var b strings.Builder
	for {
		c, err := br.ReadByte()
		if err != nil {
			return b.String(), err
		}
		*n++
		switch c {
		case ' ', '\t', '\r', '\n':
			if b.Len() > 0 {
				return b.String(), nil
			}
		default:
			b.WriteByte(c)
		}
	}
}
