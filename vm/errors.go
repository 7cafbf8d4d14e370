package vm

import "fmt"

// ErrKind identifies one of the disjoint error categories the compiler and
// interpreter can surface. The CLI maps each ErrKind to a process exit code.
type ErrKind int

const (
	KindNone ErrKind = iota
	KindLexical
	KindSyntax
	KindSemanticsOther
	KindSemanticsUndefinedVariable
	KindSemanticsUndefinedFunction
	KindMemory
	KindInternal
	KindInstructionWrongOperands
	KindRuntimeIncompatibleTypes
	KindRuntimeZeroDivision
	KindRuntimeNumericConversion
	KindRuntimeOther
	KindStackUnderflow
	KindStackOverflow
)

var kindNames = map[ErrKind]string{
	KindNone:                       "none",
	KindLexical:                    "lexical error",
	KindSyntax:                     "syntax error",
	KindSemanticsOther:             "semantic error",
	KindSemanticsUndefinedVariable: "undefined variable",
	KindSemanticsUndefinedFunction: "undefined function",
	KindMemory:                     "memory error",
	KindInternal:                   "internal error",
	KindInstructionWrongOperands:   "bad instruction operands",
	KindRuntimeIncompatibleTypes:   "incompatible types",
	KindRuntimeZeroDivision:        "division by zero",
	KindRuntimeNumericConversion:   "numeric conversion error",
	KindRuntimeOther:               "runtime error",
	KindStackUnderflow:             "stack underflow",
	KindStackOverflow:              "stack overflow",
}

func (k ErrKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// ExitCode is the small integer the CLI returns for this ErrKind. 0 is
// reserved for KindNone (success never flows through this type).
func (k ErrKind) ExitCode() int {
	if k == KindNone {
		return 0
	}
	return int(k)
}

// Error is the single error type produced by every stage of the pipeline. It
// carries enough structure (kind, source line when known) for the CLI to
// print one line and exit with the right code, without needing to type-switch
// on a family of sentinel values.
type Error struct {
	Kind ErrKind
	Msg  string
	// Line is the 1-based source line responsible, or 0 if not applicable
	// (always 0 for runtime errors, since the VM tracks no position info
	// beyond what was baked into instructions at compile time).
	Line int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Msg, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func errf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func errAtLine(kind ErrKind, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Line: line}
}

// KindOf extracts the ErrKind from any error produced by this package,
// defaulting to KindInternal for any other error (such as the file-read or
// argument errors main.go passes in).
func KindOf(err error) ErrKind {
	if err == nil {
		return KindNone
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}
