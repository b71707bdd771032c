package host

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainSource = `MAIN: BEGIN
SUM: EXTERN
	PUBLIC N
	PUBLIC RESULT
	PUBLIC BACK
	SECTION TEXT
	INPUT N
	JMP SUM
BACK: OUTPUT RESULT
	STOP
	SECTION BSS
N: SPACE
RESULT: SPACE
	END
`

const sumSource = `LIB: BEGIN
N: EXTERN
RESULT: EXTERN
BACK: EXTERN
	PUBLIC SUM
	SECTION TEXT
SUM: LOAD N
	ADD TWO
	STORE RESULT
	JMP BACK
	SECTION DATA
TWO: CONST 2
	END
`

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	base := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(base+".asm", []byte(src), 0644))
	return base
}

func runScript(t *testing.T, h *Host, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, false)
	return out.String()
}

func TestAssembleLinkRun(t *testing.T) {
	dir := t.TempDir()
	prog := writeSource(t, dir, "main", mainSource)
	sum := writeSource(t, dir, "sum", sumSource)

	h := New()
	out := runScript(t, h,
		"assemble "+prog,
		"assemble "+sum,
		"link "+prog+" "+sum,
		"run",
		"5",
		"symbols",
	)

	assert.Contains(t, out, "Assembled 'main.asm' to 'main.obj' (9 words).\n")
	assert.Contains(t, out, "Assembled 'sum.asm' to 'sum.obj' (9 words).\n")
	assert.Contains(t, out, "Linked 2 modules to 'main.e'.\n")
	assert.Contains(t, out, "Loaded 18 words at address 0.\n")
	assert.Contains(t, out, "\n7\nProgram stopped at 6 after 8 instructions.\n")
	assert.Contains(t, out, "    4 BACK\n")
	assert.Contains(t, out, "    9 SUM\n")

	_, err := os.Stat(prog + ".e")
	require.NoError(t, err)

	// The image can be loaded again and run with new input.
	out = runScript(t, h, "load "+prog, "run", "40")
	assert.Contains(t, out, "\n42\n")
}

func TestAssembleErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeSource(t, dir, "bad", "SECTION TEXT\nA: STOP\nA: STOP\n")

	out := runScript(t, New(), "assemble "+bad, "assemble "+filepath.Join(dir, "missing"))
	assert.Contains(t, out, "Failed to assemble 'bad.asm': first pass failed.\n")
	assert.Contains(t, out, "[Semantic error] line 3: symbol defined more than once: A\n")
	assert.Contains(t, out, "Failed to assemble 'missing.asm'")

	_, err := os.Stat(bad + ".obj")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLinkErrors(t *testing.T) {
	dir := t.TempDir()
	prog := writeSource(t, dir, "main", mainSource)

	out := runScript(t, New(), "assemble "+prog, "link "+prog)
	assert.Contains(t, out, "Failed to link:\n")
	assert.Contains(t, out, "SUM")
}

func TestLoadObject(t *testing.T) {
	dir := t.TempDir()
	echo := writeSource(t, dir, "echo", "SECTION TEXT\nINPUT X\nOUTPUT X\nSTOP\nSECTION BSS\nX: SPACE\n")
	prog := writeSource(t, dir, "main", mainSource)

	h := New()
	out := runScript(t, h,
		"assemble "+echo,
		"load "+echo+".obj",
		"run",
		"-17",
		"assemble "+prog,
		"load "+prog+".obj",
	)
	assert.Contains(t, out, "Loaded 6 words at address 0.\n")
	assert.Contains(t, out, "\n-17\n")
	assert.Contains(t, out, "Module 'main' has unresolved external references")
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	prog := writeSource(t, dir, "main", mainSource)

	out := runScript(t, New(), "assemble "+prog, "dump "+prog)
	assert.Contains(t, out, "obj.Module")
	assert.Contains(t, out, "Definitions")
	assert.Contains(t, out, `"RESULT"`)
}

func TestMemoryAndDisassemble(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"memory set 0 12 10 13 10 14",
		"disassemble 0 3",
		"",
		"memory dump 0 5",
	)

	assert.Contains(t, out, "Stored 5 words at 0.\n")
	assert.Contains(t, out, ">    0  INPUT 10\n     2  OUTPUT 10\n     4  STOP\n")
	assert.Contains(t, out, "     5  CONST 0\n     6  CONST 0\n     7  CONST 0\n")
	assert.Contains(t, out, "    0:     12     10     13     10     14\n")
	assert.Equal(t, uint16(5), h.settings.NextMemDumpAddr)

	out = runScript(t, h, "memory set 0 x", "disassemble zz")
	assert.Contains(t, out, "invalid number")
	assert.Contains(t, out, "invalid address")
}

func TestBreakpoints(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"memory set 0 10 20 1 20 11 21 14",
		"memory set 20 3",
		"breakpoint add 4",
		"breakpoint list",
		"run",
		"registers",
		"run",
		"memory dump 21 1",
	)

	assert.Contains(t, out, "Breakpoint added at 4.\n")
	assert.Contains(t, out, "    4 true\n")
	assert.Contains(t, out, "Breakpoint hit at 4.\n")
	assert.Contains(t, out, "PC=4 ACC=6 Steps=2\n>    4  STORE 21\n")
	assert.Contains(t, out, "Program stopped at 6 after 2 instructions.\n")
	assert.Contains(t, out, "   21:      6\n")

	out = runScript(t, h,
		"breakpoint disable 4",
		"breakpoint remove 9",
		"breakpoint remove 4",
		"run",
	)
	assert.Contains(t, out, "Breakpoint at 4 disabled.\n")
	assert.Contains(t, out, "No breakpoint was set on 9.\n")
	assert.Contains(t, out, "Breakpoint at 4 removed.\n")
	assert.Contains(t, out, "CPU is halted.")
	assert.Empty(t, h.debugger.GetBreakpoints())
}

func TestStep(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"memory set 0 10 20 1 20 14",
		"memory set 20 3",
		"step",
		"step 5",
	)

	assert.Contains(t, out, ">    2  ADD 20\n")
	assert.Contains(t, out, ">    4  STOP\n")
	assert.Contains(t, out, "Program stopped at 4 after 2 instructions.\n")
	assert.True(t, h.cpu.Halted())
	assert.Equal(t, 6, h.cpu.Reg.ACC)

	out = runScript(t, h, "step", "reset", "registers")
	assert.Contains(t, out, "CPU is halted.\n")
	assert.Contains(t, out, "CPU reset.\nPC=0 ACC=0 Steps=0\n")
}

func TestRunErrors(t *testing.T) {
	h := New()
	out := runScript(t, h, "memory set 0 5 0", "set steplimit 50", "run")
	assert.Contains(t, out, "Step limit reached after 50 instructions.\n")

	out = runScript(t, h, "memory set 0 4 10 14", "run 0")
	assert.Contains(t, out, "Execution error:")
	assert.Contains(t, out, "divide by zero")
}

func TestSettings(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"set disasm 3",
		"set verb on",
		"set next 5",
		"set bogus 1",
		"set memdump -1",
		"set",
	)

	assert.Contains(t, out, "Setting DisasmLines updated.\n")
	assert.Contains(t, out, "Setting Verbose updated.\n")
	assert.Contains(t, out, "setting 'next'")
	assert.Contains(t, out, "setting 'bogus'")
	assert.Contains(t, out, "invalid setting value")
	assert.Contains(t, out, "Variables:\n")
	assert.Contains(t, out, "DisasmLines")

	assert.Equal(t, 3, h.settings.DisasmLines)
	assert.True(t, h.settings.Verbose)
	assert.Equal(t, 32, h.settings.MemDumpWords)
}

func TestHelpAndUnknownCommands(t *testing.T) {
	h := New()
	out := runScript(t, h, "help", "help breakpoint", "help run", "frobnicate")
	assert.Contains(t, out, "sbtool commands:\n")
	assert.Contains(t, out, "Breakpoint commands:\n")
	assert.Contains(t, out, "Syntax: run [<address>]\n")
	assert.Contains(t, out, "Command not found.\n")
}

func TestQuit(t *testing.T) {
	var out bytes.Buffer
	more := New().RunCommands(strings.NewReader("quit\nmemory set 0 1\n"), &out, false)
	assert.False(t, more)
	assert.NotContains(t, out.String(), "Stored")

	more = New().RunCommands(strings.NewReader("registers\n"), &out, false)
	assert.True(t, more)
}
