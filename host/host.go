// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements an interactive shell that assembles, links,
// loads and runs SB programs on the simulated CPU.
//
// Commands are read line by line. While a program runs, INPUT consumes
// the lines that follow the command that started it, and OUTPUT is
// written to the host's output.
package host

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/cmd"
	"github.com/k0kubun/pp/v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/swbasico/sbtool/asm"
	"github.com/swbasico/sbtool/cpu"
	"github.com/swbasico/sbtool/disasm"
	"github.com/swbasico/sbtool/link"
	"github.com/swbasico/sbtool/obj"
)

var errQuit = errors.New("quit")

// The Host represents the SB shell. It holds the simulated machine, the
// last linked image and the shell settings.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	mem         *cpu.FlatMemory
	cpu         *cpu.CPU
	debugger    *cpu.Debugger
	image       *link.Image
	lastCmd     *cmd.Selection
	settings    *settings
	printer     *pp.PrettyPrinter

	// Logger receives assembler and linker progress while the Verbose
	// setting is on.
	Logger *tlog.Logger
}

// New creates a new host with an empty memory.
func New() *Host {
	h := &Host{
		mem:      cpu.NewFlatMemory(),
		debugger: cpu.NewDebugger(),
		settings: newSettings(),
		printer:  pp.New(),
		Logger:   tlog.DefaultLogger,
	}

	h.cpu = cpu.NewCPU(h.mem, &programInput{h: h}, writerFunc(h.write))
	h.cpu.AttachDebugger(h.debugger)
	h.printer.SetColoringEnabled(false)
	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the next command to be entered. RunCommands returns
// false once the quit command has been executed.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) bool {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive
	h.printer.SetOutput(h.output)
	defer h.flush()

	for {
		h.prompt("* ")

		line, err := h.getLine()
		if err != nil {
			return true
		}

		var c cmd.Selection
		if strings.TrimSpace(line) != "" {
			c, err = cmds.Lookup(line)
			switch {
			case errors.Is(err, cmd.ErrNotFound):
				h.println("Command not found.")
				continue
			case errors.Is(err, cmd.ErrAmbiguous):
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil && strings.TrimSpace(line) == "" {
			continue
		}
		command, ok := commandOf(c)
		if !ok || command.run == nil {
			h.println("Incomplete command.")
			continue
		}

		h.lastCmd = &c
		if err := command.run(h, c); errors.Is(err, errQuit) {
			return false
		}
	}
}

func (h *Host) write(p []byte) (n int, err error) {
	return h.output.Write(p)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt(p string) {
	if h.interactive {
		h.printf("%s", p)
	}
}

func (h *Host) logger() *tlog.Logger {
	if h.settings.Verbose {
		return h.Logger
	}
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands(rootHelp)
		return nil
	}

	// Command groups are matched by full name; anything else goes through
	// the tree so that prefixes and shortcuts work.
	g := rootHelp
	for _, name := range c.Args {
		if g = g.sub[strings.ToLower(name)]; g == nil {
			break
		}
	}
	if g != nil {
		h.displayCommands(g)
		return nil
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	found, ok := commandOf(s)
	if !ok {
		h.println("<no help text>")
		return nil
	}
	if found.usage != "" {
		h.printf("Syntax: %s\n\n", found.usage)
	}
	h.printf("Description:\n%s\n\n", indentWrap(3, found.description))
	return nil
}

func (h *Host) cmdAssemble(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	base := strings.TrimSuffix(c.Args[0], ".asm")
	a, err := asm.AssembleFile(base, h.logger())
	if err != nil {
		var se *asm.StageError
		if !errors.As(err, &se) {
			h.printf("Failed to assemble '%s': %v\n", filepath.Base(base)+".asm", err)
			return nil
		}
		h.printf("Failed to assemble '%s': %v failed.\n", filepath.Base(base)+".asm", se.Stage)
		for _, e := range se.Errors() {
			h.println(e.Diagnostic())
		}
		return nil
	}

	h.printf("Assembled '%s' to '%s' (%d words).\n",
		filepath.Base(base)+".asm", filepath.Base(base)+".obj", a.Module.Size())
	return nil
}

func (h *Host) cmdLink(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	paths := make([]string, len(c.Args))
	for i, name := range c.Args {
		paths[i] = withExt(name, ".obj")
	}

	img, err := link.LinkFiles(paths, h.logger())
	if err != nil {
		var errs link.ErrorList
		if errors.As(err, &errs) {
			h.println("Failed to link:")
			for _, e := range errs {
				h.printf("    %v\n", e)
			}
		} else {
			h.printf("Failed to link: %v\n", err)
		}
		return nil
	}

	out := strings.TrimSuffix(paths[0], filepath.Ext(paths[0])) + ".e"
	if err := img.Save(out); err != nil {
		h.printf("Failed to save '%s': %v\n", filepath.Base(out), err)
		return nil
	}

	h.printf("Linked %d modules to '%s'.\n", len(paths), filepath.Base(out))
	h.loadImage(img)
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := withExt(c.Args[0], ".e")

	var img *link.Image
	if filepath.Ext(filename) == ".obj" {
		m, err := obj.Load(filename)
		if err != nil {
			h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
			return nil
		}
		if len(m.Uses) > 0 {
			h.printf("Module '%s' has unresolved external references; link it first.\n", m.Name)
			return nil
		}
		img = &link.Image{Code: m.Code, Corrections: []int{0}, Globals: m.Definitions, Modules: []string{m.Name}}
	} else {
		var err error
		img, err = link.LoadImage(filename)
		if err != nil {
			h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
			return nil
		}
	}

	h.loadImage(img)
	return nil
}

func (h *Host) loadImage(img *link.Image) {
	h.mem.Reset()
	if err := h.mem.StoreWords(0, img.Code); err != nil {
		h.printf("Failed to load image: %v\n", err)
		return
	}

	h.image = img
	h.cpu.Reset()
	h.cpu.SetPC(0)
	h.cpu.SetIO(&programInput{h: h}, writerFunc(h.write))
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0

	h.printf("Loaded %d words at address 0.\n", len(img.Code))
}

func (h *Host) cmdDump(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := withExt(c.Args[0], ".obj")
	m, err := obj.Load(filename)
	if err != nil {
		h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	h.printer.Println(m)
	h.flush()
	return nil
}

func (h *Host) cmdSymbols(c cmd.Selection) error {
	if h.image == nil || len(h.image.Globals) == 0 {
		h.println("No symbols loaded.")
		return nil
	}

	h.println("Addr  Symbol")
	h.println("----- ------")
	for _, name := range sortedSymbols(h.image.Globals) {
		h.printf("%5d %s\n", h.image.Globals[name], name)
	}
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	addr := h.settings.NextDisasmAddr
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := parseCount(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = l
	}

	for i := 0; i < lines; i++ {
		h.println(h.disassemble(addr))
		addr = h.cpu.NextAddr(addr)
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", strconv.Itoa(lines)}
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	addr := h.settings.NextMemDumpAddr
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	words := h.settings.MemDumpWords
	if len(c.Args) > 1 {
		n, err := parseCount(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		words = n
	}

	h.dumpMemory(addr, words)

	h.settings.NextMemDumpAddr = addr + uint16(words)
	h.lastCmd.Args = []string{"$", strconv.Itoa(words)}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	words := make([]int, len(c.Args)-1)
	for i, s := range c.Args[1:] {
		if words[i], err = parseWord(s); err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	if err := h.mem.StoreWords(addr, words); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("Stored %d words at %d.\n", len(words), addr)
	return nil
}

func (h *Host) cmdRegisters(c cmd.Selection) error {
	h.printf("PC=%d ACC=%d Steps=%d", h.cpu.Reg.PC, h.cpu.Reg.ACC, h.cpu.Steps)
	if h.cpu.Halted() {
		h.printf(" (halted)")
	}
	h.println()
	h.println(h.disassemble(h.cpu.Reg.PC))
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(pc)
	}

	if h.cpu.Halted() {
		h.println("CPU is halted. Use reset or run <address>.")
		return nil
	}

	n, err := h.cpu.Run(h.settings.StepLimit)
	h.report(n, err)
	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdStep(c cmd.Selection) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := parseCount(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		count = n
	}

	for i := count - 1; i >= 0; i-- {
		if err := h.cpu.Step(); err != nil {
			h.report(count-1-i, err)
			break
		}
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.println(h.disassemble(h.cpu.Reg.PC))
		}
		if h.cpu.Halted() {
			h.report(count-i, nil)
			break
		}
	}

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	h.lastCmd.Args = nil
	return nil
}

func (h *Host) cmdReset(c cmd.Selection) error {
	h.cpu.Reset()
	h.cpu.SetPC(0)
	h.println("CPU reset.")
	return nil
}

func (h *Host) report(n int, err error) {
	switch {
	case err == nil && h.cpu.Halted():
		h.printf("Program stopped at %d after %d instructions.\n", h.cpu.LastPC, n)
	case err == nil:
	case errors.Is(err, cpu.ErrBreakpoint):
		h.printf("Breakpoint hit at %d.\n", h.cpu.Reg.PC)
	case errors.Is(err, cpu.ErrStepLimit):
		h.printf("Step limit reached after %d instructions.\n", n)
	case errors.Is(err, cpu.ErrHalted):
		h.println("CPU is halted.")
	default:
		h.printf("Execution error: %v\n", err)
	}
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled")
	h.println("----- -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("%5d %v\n", b.Address, !b.Disabled)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	addr, ok := h.breakpointAddr(c)
	if !ok {
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at %d.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	addr, ok := h.breakpointAddr(c)
	if !ok {
		return nil
	}

	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on %d.\n", addr)
		return nil
	}

	h.debugger.RemoveBreakpoint(addr)
	h.printf("Breakpoint at %d removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	return h.enableBreakpoint(c, true)
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	return h.enableBreakpoint(c, false)
}

func (h *Host) enableBreakpoint(c cmd.Selection, enable bool) error {
	addr, ok := h.breakpointAddr(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on %d.\n", addr)
		return nil
	}

	b.Disabled = !enable
	if enable {
		h.printf("Breakpoint at %d enabled.\n", addr)
	} else {
		h.printf("Breakpoint at %d disabled.\n", addr)
	}
	return nil
}

func (h *Host) breakpointAddr(c cmd.Selection) (uint16, bool) {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return 0, false
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	return addr, true
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c)

	default:
		name, err := h.settings.Set(c.Args[0], strings.Join(c.Args[1:], " "))
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.printf("Setting %s updated.\n", name)
	}
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

// parseAddr accepts a numeric address, '.' for the program counter, or a
// global symbol of the loaded image with an optional +offset.
func (h *Host) parseAddr(s string) (uint16, error) {
	if s == "." {
		return h.cpu.Reg.PC, nil
	}
	if h.image != nil {
		name, off, hasOff := strings.Cut(strings.ToUpper(s), "+")
		if a, ok := h.image.Globals[name]; ok {
			if !hasOff {
				return uint16(a), nil
			}
			n, err := parseAddr(off)
			if err != nil {
				return 0, err
			}
			return uint16(a) + n, nil
		}
	}
	return parseAddr(s)
}

func (h *Host) disassemble(addr uint16) string {
	line, _ := disasm.Disassemble(h.mem, addr)

	marker := ' '
	if b := h.debugger.GetBreakpoint(addr); b != nil && !b.Disabled {
		marker = '*'
	}
	if addr == h.cpu.Reg.PC {
		marker = '>'
	}
	return fmt.Sprintf("%c%5d  %s", marker, addr, line)
}

func (h *Host) dumpMemory(addr uint16, words int) {
	const perRow = 8

	for row := 0; row < words; row += perRow {
		var b strings.Builder
		fmt.Fprintf(&b, "%5d:", addr)
		for i := row; i < words && i < row+perRow; i++ {
			fmt.Fprintf(&b, " %6d", h.mem.LoadWord(addr))
			addr++
		}
		h.println(b.String())
	}
}

func (h *Host) displayUsage(c cmd.Selection) {
	if command, ok := commandOf(c); ok && command.usage != "" {
		h.printf("Syntax: %s\n", command.usage)
		return
	}
	h.println("<no help text>")
}

func (h *Host) displayCommands(g *group) {
	h.printf("%s commands:\n", g.title)
	for _, name := range g.names {
		h.printf("    %-15s  %s\n", name, g.cmds[name].brief)
	}
}

func commandOf(s cmd.Selection) (*command, bool) {
	if s.Command == nil {
		return nil, false
	}
	c, ok := s.Command.Data.(*command)
	return c, ok
}

func sortedSymbols(globals map[string]int) []string {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := globals[names[i]], globals[names[j]]
		if ai != aj {
			return ai < aj
		}
		return names[i] < names[j]
	})
	return names
}

// programInput feeds INPUT instructions from the host's command stream,
// one line per read.
type programInput struct {
	h   *Host
	buf []byte
}

func (r *programInput) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		r.h.prompt("? ")
		line, err := r.h.getLine()
		if err != nil {
			return 0, err
		}
		r.buf = append(append(r.buf[:0], line...), '\n')
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}
