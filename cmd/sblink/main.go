// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sblink links object modules into an executable image.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/swbasico/sbtool/link"
	"github.com/swbasico/sbtool/obj"
)

// Exit codes.
const (
	exitOK = iota
	exitUsage
	exitMissing
	exitCorrupt
	exitUndefined
	exitDuplicate
	exitWrite
)

func main() {
	app := &cli.Command{
		Name:        "sblink",
		Description: "sblink links SB object modules into an executable image",
		Usage:       "[-v] [-o <out>] <name>...",
		Action:      linkAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("verbose,v", false, "log linker progress"),
			cli.NewFlag("output,o", "", "image file (default <first name>.e)"),
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func linkAct(c *cli.Command) error {
	var log *tlog.Logger
	if c.Bool("verbose") {
		log = tlog.DefaultLogger
	}

	if code := run(c.Args, c.String("output"), log, os.Stderr); code != exitOK {
		os.Exit(code)
	}
	return nil
}

func run(names []string, out string, log *tlog.Logger, stderr io.Writer) int {
	if len(names) == 0 {
		fmt.Fprintln(stderr, "usage: sblink [-v] [-o <out>] <name>...")
		return exitUsage
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = strings.TrimSuffix(name, ".obj") + ".obj"
	}
	if out == "" {
		out = strings.TrimSuffix(paths[0], filepath.Ext(paths[0])) + ".e"
	}

	img, err := link.LinkFiles(paths, log)
	if err != nil {
		return report(err, stderr)
	}

	if err := img.Save(out); err != nil {
		fmt.Fprintf(stderr, "sblink: %v\n", err)
		return exitWrite
	}

	if log != nil {
		log.Printw("image written", "path", out, "words", len(img.Code))
	}
	return exitOK
}

// report prints a link failure and picks its exit code. Duplicate
// definitions are found before external references are resolved, so they
// take precedence.
func report(err error, stderr io.Writer) int {
	var errs link.ErrorList
	if !errors.As(err, &errs) {
		fmt.Fprintf(stderr, "sblink: %v\n", err)
		if errors.Is(err, obj.ErrCorrupt) {
			return exitCorrupt
		}
		return exitMissing
	}

	for _, e := range errs {
		fmt.Fprintf(stderr, "sblink: %v\n", e)
	}
	if errs.Is(link.ErrDuplicateDefinition) {
		return exitDuplicate
	}
	return exitUndefined
}
