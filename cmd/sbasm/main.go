// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sbasm assembles <name>.asm into the object module <name>.obj.
package main

import (
	"fmt"
	"io"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/swbasico/sbtool/asm"
)

// Exit codes.
const (
	exitOK = iota
	exitUsage
	exitFile
	exitPreprocess
	exitSymbols
	exitCode
)

func main() {
	app := &cli.Command{
		Name:        "sbasm",
		Description: "sbasm assembles an SB source file into an object module",
		Usage:       "[-v] <name>",
		Action:      assembleAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("verbose,v", false, "log assembler progress"),
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func assembleAct(c *cli.Command) error {
	var log *tlog.Logger
	if c.Bool("verbose") {
		log = tlog.DefaultLogger
	}

	if code := run(c.Args, log, os.Stderr); code != exitOK {
		os.Exit(code)
	}
	return nil
}

func run(args []string, log *tlog.Logger, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: sbasm [-v] <name>")
		return exitUsage
	}

	_, err := asm.AssembleFile(args[0], log)
	if err == nil {
		return exitOK
	}

	var se *asm.StageError
	if !errors.As(err, &se) {
		fmt.Fprintf(stderr, "sbasm: %v\n", err)
		return exitFile
	}

	for _, e := range se.Errors() {
		fmt.Fprintln(stderr, e.Diagnostic())
	}

	switch se.Stage {
	case asm.StagePreprocess:
		return exitPreprocess
	case asm.StageSymbols:
		return exitSymbols
	default:
		return exitCode
	}
}
