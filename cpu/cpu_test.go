package cpu_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swbasico/sbtool/asm"
	"github.com/swbasico/sbtool/cpu"
	"github.com/swbasico/sbtool/link"
	"github.com/swbasico/sbtool/obj"
)

func loadCPU(t *testing.T, input string, code []int, data map[uint16]int) (*cpu.CPU, *bytes.Buffer) {
	t.Helper()

	mem := cpu.NewFlatMemory()
	require.NoError(t, mem.StoreWords(0, code))
	for addr, v := range data {
		mem.StoreWord(addr, v)
	}

	var out bytes.Buffer
	c := cpu.NewCPU(mem, strings.NewReader(input), &out)
	c.SetPC(0)
	return c, &out
}

func expectPC(t *testing.T, c *cpu.CPU, pc uint16) {
	t.Helper()
	assert.Equal(t, pc, c.Reg.PC, "PC incorrect")
}

func expectACC(t *testing.T, c *cpu.CPU, acc int) {
	t.Helper()
	assert.Equal(t, acc, c.Reg.ACC, "accumulator incorrect")
}

func expectMem(t *testing.T, c *cpu.CPU, addr uint16, v int) {
	t.Helper()
	assert.Equal(t, v, c.Mem.LoadWord(addr), "memory at %d incorrect", addr)
}

func TestArithmetic(t *testing.T) {
	code := []int{
		10, 20, // LOAD 20
		1, 21, // ADD 21
		2, 22, // SUB 22
		3, 23, // MULT 23
		4, 24, // DIV 24
		11, 25, // STORE 25
		14, // STOP
	}
	c, _ := loadCPU(t, "", code, map[uint16]int{20: 7, 21: 5, 22: 2, 23: 3, 24: 4})

	n, err := c.Run(0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.True(t, c.Halted())
	assert.Equal(t, uint64(7), c.Steps)
	expectACC(t, c, 7)
	expectMem(t, c, 25, 7)
	expectPC(t, c, 13)
}

func TestJumps(t *testing.T) {
	code := []int{
		10, 30, // 0: LOAD 30 (-1)
		6, 6, // 2: JMPN 6
		14,    // 4: STOP
		14,    // 5: STOP
		7, 4, // 6: JMPP 4
		8, 4, // 8: JMPZ 4
		10, 31, // 10: LOAD 31 (0)
		8, 16, // 12: JMPZ 16
		14,     // 14: STOP
		14,     // 15: STOP
		10, 32, // 16: LOAD 32 (5)
		7, 21, // 18: JMPP 21
		14,    // 20: STOP
		5, 24, // 21: JMP 24
		14, // 23: STOP
		14, // 24: STOP
	}
	c, _ := loadCPU(t, "", code, map[uint16]int{30: -1, 31: 0, 32: 5})

	n, err := c.Run(0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	expectPC(t, c, 25)
	assert.Equal(t, uint16(24), c.LastPC)
	expectACC(t, c, 5)
}

func TestCopyInputOutput(t *testing.T) {
	code := []int{
		12, 20, // INPUT 20
		9, 20, 21, // COPY 20, 21
		13, 21, // OUTPUT 21
		14, // STOP
	}
	c, out := loadCPU(t, "42\n", code, nil)

	_, err := c.Run(0)
	require.NoError(t, err)
	expectMem(t, c, 20, 42)
	expectMem(t, c, 21, 42)
	assert.Equal(t, "42\n", out.String())
}

func TestExecutionErrors(t *testing.T) {
	c, _ := loadCPU(t, "", []int{0}, nil)
	assert.ErrorIs(t, c.Step(), cpu.ErrIllegalOpcode)

	c, _ = loadCPU(t, "", []int{4, 10, 14}, nil)
	assert.ErrorIs(t, c.Step(), cpu.ErrDivideByZero)

	c, _ = loadCPU(t, "abc", []int{12, 10, 14}, nil)
	assert.ErrorIs(t, c.Step(), cpu.ErrBadInput)

	c, _ = loadCPU(t, "", []int{14}, nil)
	require.NoError(t, c.Step())
	assert.ErrorIs(t, c.Step(), cpu.ErrHalted)

	c.SetPC(0)
	assert.False(t, c.Halted())
}

func TestRunLimit(t *testing.T) {
	c, _ := loadCPU(t, "", []int{5, 0}, nil)

	n, err := c.Run(10)
	assert.ErrorIs(t, err, cpu.ErrStepLimit)
	assert.Equal(t, 10, n)
	expectPC(t, c, 0)
}

func TestBreakpoint(t *testing.T) {
	c, _ := loadCPU(t, "", []int{10, 20, 1, 20, 14}, map[uint16]int{20: 3})

	d := cpu.NewDebugger()
	d.AddBreakpoint(4)
	c.AttachDebugger(d)

	n, err := c.Run(0)
	assert.ErrorIs(t, err, cpu.ErrBreakpoint)
	assert.Equal(t, 2, n)
	expectPC(t, c, 4)
	expectACC(t, c, 6)

	// Resuming from a breakpoint executes the instruction under it.
	n, err = c.Run(0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, c.Halted())

	d.GetBreakpoint(4).Disabled = true
	c.SetPC(2)
	c.DetachDebugger()
	_, err = c.Run(0)
	require.NoError(t, err)
	assert.Len(t, d.GetBreakpoints(), 1)
}

func TestInstructionSet(t *testing.T) {
	set := cpu.GetInstructionSet()
	assert.Len(t, set.Instructions(), 14)

	copyInst := set.GetInstruction("copy")
	require.NotNil(t, copyInst)
	assert.Equal(t, 9, copyInst.Opcode)
	assert.Equal(t, 3, copyInst.Length)
	assert.Equal(t, 2, copyInst.Operands)
	assert.Equal(t, 2, copyInst.WriteOperand())

	stop := set.Lookup(14)
	require.NotNil(t, stop)
	assert.Equal(t, "STOP", stop.Name)
	assert.Equal(t, 1, stop.Length)

	for _, inst := range set.Instructions() {
		assert.Equal(t, inst.Operands+1, inst.Length, inst.Name)
	}
	assert.True(t, set.GetInstruction("JMPZ").IsJump())
	assert.False(t, set.GetInstruction("LOAD").IsJump())
	assert.Nil(t, set.Lookup(0))
	assert.Nil(t, set.GetInstruction("NOP"))
}

const doubleSource = `
DOUBLE:	BEGIN
	PUBLIC TWICE
X:	EXTERN
RET:	EXTERN
	SECTION TEXT
TWICE:	LOAD X
	ADD X
	STORE X
	JMP RET
	END
`

const mainSource = `
MAIN:	BEGIN
	PUBLIC X
	PUBLIC RET
TWICE:	EXTERN
	SECTION TEXT
	INPUT X
	JMP TWICE
RET:	OUTPUT X
	STOP
	SECTION BSS
X:	SPACE
	END
`

func TestLinkedProgram(t *testing.T) {
	var modules []*obj.Module
	for _, src := range []string{mainSource, doubleSource} {
		a, err := asm.Assemble(strings.NewReader(src), "m", nil)
		require.NoError(t, err)
		modules = append(modules, a.Module)
	}

	img, err := link.Link(modules, nil)
	require.NoError(t, err)

	c, out := loadCPU(t, "21\n", img.Code, nil)
	_, err = c.Run(1000)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out.String())
}
