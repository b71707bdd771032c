package host

import "github.com/beevik/cmd"

// A command couples a tree entry with its handler and help text.
type command struct {
	usage       string
	brief       string
	description string
	run         func(*Host, cmd.Selection) error
}

// A group lists the commands of one level of the tree for help output.
type group struct {
	title string
	names []string
	cmds  map[string]*command
	sub   map[string]*group
}

var (
	cmds     *cmd.Tree
	rootHelp *group
)

func newGroup(title string) *group {
	return &group{title: title, cmds: make(map[string]*command), sub: make(map[string]*group)}
}

// add registers c under name in both the command tree and the help group.
func (g *group) add(t *cmd.Tree, name string, c *command) {
	t.AddCommand(cmd.CommandDescriptor{
		Name:        name,
		Brief:       c.brief,
		Description: c.description,
		Usage:       c.usage,
		Data:        c,
	})
	g.names = append(g.names, name)
	g.cmds[name] = c
}

func (g *group) subtree(t *cmd.Tree, name, title, brief string) (*cmd.Tree, *group) {
	st := t.AddSubtree(cmd.TreeDescriptor{Name: name, Brief: brief})
	sg := newGroup(title)
	g.names = append(g.names, name)
	g.cmds[name] = &command{brief: brief}
	g.sub[name] = sg
	return st, sg
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "sbtool"})
	help := newGroup("sbtool")

	help.add(root, "help", &command{
		usage:       "help [<command>]",
		brief:       "Display help for a command",
		description: "Display help for a command.",
		run:         (*Host).cmdHelp,
	})
	help.add(root, "assemble", &command{
		usage: "assemble <name>",
		brief: "Assemble a source file to an object module",
		description: "Run the assembler on <name>.asm, writing the" +
			" pre-processed source to <name>.pre and the object module to" +
			" <name>.obj. Diagnostics are listed if assembly fails.",
		run: (*Host).cmdAssemble,
	})
	help.add(root, "link", &command{
		usage: "link <name> [<name>...]",
		brief: "Link object modules into an executable image",
		description: "Link the object modules <name>.obj in the order given," +
			" write the image to <first name>.e and load it into memory at" +
			" address 0.",
		run: (*Host).cmdLink,
	})
	help.add(root, "load", &command{
		usage: "load <file>",
		brief: "Load an image or object module into memory",
		description: "Load an executable image (default extension .e) or" +
			" an object module (.obj) into memory at address 0 and reset" +
			" the CPU.",
		run: (*Host).cmdLoad,
	})
	help.add(root, "dump", &command{
		usage:       "dump <name>",
		brief:       "Pretty-print an object module",
		description: "Read <name>.obj and print its tables, relative list and code.",
		run:         (*Host).cmdDump,
	})
	help.add(root, "symbols", &command{
		usage:       "symbols",
		brief:       "List the global symbols of the loaded image",
		description: "List the public symbols resolved by the last link, with their image addresses.",
		run:         (*Host).cmdSymbols,
	})
	help.add(root, "disassemble", &command{
		usage: "disassemble [<address>] [<lines>]",
		brief: "Disassemble code",
		description: "Disassemble machine code starting at the requested" +
			" address. The number of lines defaults to the DisasmLines" +
			" setting. If no address is given, disassembly continues where" +
			" the last one stopped. Use '.' for the program counter.",
		run: (*Host).cmdDisassemble,
	})

	mem, memHelp := help.subtree(root, "memory", "Memory", "Memory commands")
	memHelp.add(mem, "dump", &command{
		usage: "memory dump [<address>] [<words>]",
		brief: "Dump memory at address",
		description: "Dump the contents of memory starting at the" +
			" specified address. The number of words defaults to the" +
			" MemDumpWords setting. Use '.' for the program counter.",
		run: (*Host).cmdMemoryDump,
	})
	memHelp.add(mem, "set", &command{
		usage:       "memory set <address> <word> [<word>...]",
		brief:       "Store words in memory",
		description: "Store one or more words in memory starting at the specified address.",
		run:         (*Host).cmdMemorySet,
	})

	help.add(root, "registers", &command{
		usage:       "registers",
		brief:       "Display register contents",
		description: "Display the program counter, the accumulator and the instruction at the program counter.",
		run:         (*Host).cmdRegisters,
	})
	help.add(root, "run", &command{
		usage: "run [<address>]",
		brief: "Run the CPU",
		description: "Run the CPU until it executes STOP, hits a breakpoint," +
			" fails, or executes StepLimit instructions. INPUT reads the" +
			" lines that follow the command.",
		run: (*Host).cmdRun,
	})
	help.add(root, "step", &command{
		usage:       "step [<count>]",
		brief:       "Step the CPU",
		description: "Execute one instruction, or <count> instructions if given.",
		run:         (*Host).cmdStep,
	})
	help.add(root, "reset", &command{
		usage:       "reset",
		brief:       "Reset the CPU",
		description: "Clear the registers and the halted state without touching memory.",
		run:         (*Host).cmdReset,
	})

	bp, bpHelp := help.subtree(root, "breakpoint", "Breakpoint", "Breakpoint commands")
	bpHelp.add(bp, "list", &command{
		usage:       "breakpoint list",
		brief:       "List breakpoints",
		description: "List all current breakpoints.",
		run:         (*Host).cmdBreakpointList,
	})
	bpHelp.add(bp, "add", &command{
		usage:       "breakpoint add <address>",
		brief:       "Add a breakpoint",
		description: "Add a breakpoint at the specified address. The breakpoint starts enabled.",
		run:         (*Host).cmdBreakpointAdd,
	})
	bpHelp.add(bp, "remove", &command{
		usage:       "breakpoint remove <address>",
		brief:       "Remove a breakpoint",
		description: "Remove a breakpoint at the specified address.",
		run:         (*Host).cmdBreakpointRemove,
	})
	bpHelp.add(bp, "enable", &command{
		usage:       "breakpoint enable <address>",
		brief:       "Enable a breakpoint",
		description: "Enable a previously disabled breakpoint.",
		run:         (*Host).cmdBreakpointEnable,
	})
	bpHelp.add(bp, "disable", &command{
		usage:       "breakpoint disable <address>",
		brief:       "Disable a breakpoint",
		description: "Disable a breakpoint without removing it.",
		run:         (*Host).cmdBreakpointDisable,
	})

	help.add(root, "set", &command{
		usage: "set [<setting> <value>]",
		brief: "Set a configuration variable",
		description: "Set the value of a configuration variable. Setting" +
			" names may be abbreviated to any unambiguous prefix. To see the" +
			" current values of all variables, type set without arguments.",
		run: (*Host).cmdSet,
	})
	help.add(root, "quit", &command{
		usage:       "quit",
		brief:       "Quit the program",
		description: "Quit the program.",
		run:         (*Host).cmdQuit,
	})

	root.AddShortcut("a", "assemble")
	root.AddShortcut("b", "breakpoint")
	root.AddShortcut("bp", "breakpoint")
	root.AddShortcut("ba", "breakpoint add")
	root.AddShortcut("br", "breakpoint remove")
	root.AddShortcut("bl", "breakpoint list")
	root.AddShortcut("be", "breakpoint enable")
	root.AddShortcut("bd", "breakpoint disable")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("ms", "memory set")
	root.AddShortcut("r", "registers")
	root.AddShortcut("s", "step")
	root.AddShortcut("?", "help")
	root.AddShortcut(".", "registers")

	cmds = root
	rootHelp = help
}
