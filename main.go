// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sbtool is an interactive shell for assembling, linking and
// running SB programs.
package main

import (
	"os"

	"github.com/beevik/term"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"

	"github.com/swbasico/sbtool/host"
)

func main() {
	app := &cli.Command{
		Name:        "sbtool",
		Description: "sbtool runs host command scripts, then reads commands from stdin",
		Usage:       "[script...]",
		Action:      shellAct,
		Args:        cli.Args{},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func shellAct(c *cli.Command) error {
	h := host.New()

	// Run commands contained in command-line files.
	for _, filename := range c.Args {
		file, err := os.Open(filename)
		if err != nil {
			return errors.Wrap(err, "open script")
		}
		more := h.RunCommands(file, os.Stdout, false)
		file.Close()
		if !more {
			return nil
		}
	}

	// Run commands interactively.
	h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
	return nil
}
