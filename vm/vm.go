package vm

import (
	"bufio"
	"io"

	"github.com/sirupsen/logrus"
)

/*
	VM wires compilation and execution together: Compile source once, then
	Run it against the given stdio. This is the single entry point main.go
	drives, generalized to this language's compile-then-interpret pipeline
	instead of assembling bytecode directly from a pre-built instruction
	slice.
*/

type VM struct {
	Log   *logrus.Logger
	Trace bool
}

func New(log *logrus.Logger) *VM {
	return &VM{Log: log}
}

// Run compiles source and executes it to completion (or first error)
// against stdin/stdout.
func (m *VM) Run(source string, stdin io.Reader, stdout io.Writer) error {
	list, funcs, err := Compile(source)
	if err != nil {
		return err
	}

	mainFD, ok := funcs.Lookup(MainFunctionName)
	if !ok {
		return errf(KindInternal, "compiler produced no $main entry point")
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	it := NewInterp(list, funcs, bufio.NewReader(stdin), out, m.Log)
	it.Trace = m.Trace
	it.List.Goto(mainFD.FirstInstruction)
	it.Stack.SetBP(0)
	if err := it.Stack.MoveSP(mainFD.LocalCount); err != nil {
		return err
	}

	return it.Run()
}

// RunDebug compiles source and executes it one instruction at a time
// under the interactive REPL in debug.go.
func (m *VM) RunDebug(source string, stdin io.Reader, stdout io.Writer) error {
	list, funcs, err := Compile(source)
	if err != nil {
		return err
	}

	mainFD, ok := funcs.Lookup(MainFunctionName)
	if !ok {
		return errf(KindInternal, "compiler produced no $main entry point")
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	it := NewInterp(list, funcs, bufio.NewReader(stdin), out, m.Log)
	it.Trace = m.Trace
	it.List.Goto(mainFD.FirstInstruction)
	it.Stack.SetBP(0)
	if err := it.Stack.MoveSP(mainFD.LocalCount); err != nil {
		return err
	}

	repl := newDebugREPL(it)
	return repl.run()
}
