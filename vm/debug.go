package vm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
)

/*
	debugREPL is the --debug single-step console: "n"/"next" to execute one
	instruction, "r"/"run" to free-run to completion or the next
	breakpoint, "b <line>"/"break <line>" to toggle a breakpoint on a
	source line, "q"/"quit" to stop. chzyer/readline drives the prompt so
	history/line-editing work, and go-isatty gates the interactive prompt
	so piped input (tests, CI) doesn't hang waiting on a terminal that
	isn't there.
*/

type debugREPL struct {
	it          *Interp
	breakpoints map[int]struct{}
	running     bool
}

func newDebugREPL(it *Interp) *debugREPL {
	return &debugREPL{it: it, breakpoints: make(map[int]struct{})}
}

func (r *debugREPL) run() error {
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	var rl *readline.Instance
	if interactive {
		var err error
		rl, err = readline.New("-> ")
		if err != nil {
			return errf(KindInternal, "failed to start debug console: %v", err)
		}
		defer rl.Close()
	}

	fmt.Println("commands: n(ext), r(un), b(reak) <line>, q(uit)")

	for {
		if !r.running {
			node := r.it.List.GetActive()
			if node != nil {
				fmt.Printf("line %d: %s\n", node.Line, node.Instruction.Op)
			}
		}

		line := ""
		if r.running {
			if _, atBreak := r.currentBreakpoint(); atBreak {
				r.running = false
				fmt.Println("breakpoint hit")
				continue
			}
		} else if interactive {
			var err error
			line, err = rl.Readline()
			if err != nil {
				return nil
			}
			line = strings.TrimSpace(strings.ToLower(line))
		} else {
			// Non-interactive: behave as a plain run to completion so
			// piped/test invocations of --debug don't block on a prompt.
			line = "r"
		}

		halted, err := r.dispatchCommand(line)
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
}

func (r *debugREPL) currentBreakpoint() (int, bool) {
	node := r.it.List.GetActive()
	if node == nil {
		return 0, false
	}
	_, ok := r.breakpoints[node.Line]
	return node.Line, ok
}

func (r *debugREPL) dispatchCommand(line string) (halted bool, err error) {
	fields := strings.Fields(line)
	cmd := ""
	if len(fields) > 0 {
		cmd = fields[0]
	}

	switch {
	case r.running, cmd == "n", cmd == "next", cmd == "":
		h, err := r.it.Step()
		if err != nil {
			return false, err
		}
		return h, nil
	case cmd == "r" || cmd == "run":
		r.running = true
		h, err := r.it.Step()
		if err != nil {
			return false, err
		}
		return h, nil
	case cmd == "b" || cmd == "break":
		if len(fields) < 2 {
			fmt.Println("usage: break <line>")
			return false, nil
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("not a line number:", fields[1])
			return false, nil
		}
		if _, ok := r.breakpoints[n]; ok {
			delete(r.breakpoints, n)
			fmt.Println("removed breakpoint at line", n)
		} else {
			r.breakpoints[n] = struct{}{}
			fmt.Println("set breakpoint at line", n)
		}
		return false, nil
	case cmd == "q" || cmd == "quit":
		return true, nil
	default:
		fmt.Println("unrecognized command:", cmd)
		return false, nil
	}
}
