package vm

/*
	SymbolTable is per-function. Each entry names either a stack variable
	(its offset relative to bp) or a label (its Label cell). itemCount
	tracks how many user variables have been declared so the next plain
	assignment gets offset itemCount+1. Temporaries ($T<n>) advance
	itemCount exactly like user-visible names (their own counter only
	numbers their names); parameters are inserted at negative offsets
	fixed by the calling convention and don't advance itemCount.
*/

const (
	// RetvalName is the well-known identifier naming the return slot,
	// offset -2 inside a callee's own frame.
	RetvalName = "$retval"
	RetvalOffset = -2
	// SavedIPOffset and SavedBPOffset are the other two caller-reserved
	// slots beneath a callee's locals (see Interp.execCall).
	SavedIPOffset = -1
	SavedBPOffset = 0
)

type symbolKind int

const (
	symVar symbolKind = iota
	symLabel
)

type symbolEntry struct {
	kind   symbolKind
	offset int
	label  *Label
}

type SymbolTable struct {
	entries   map[string]symbolEntry
	itemCount int
	tempCount int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[string]symbolEntry)}
}

// Lookup reports whether name is known in this table and, if so, its entry.
func (s *SymbolTable) Lookup(name string) (symbolEntry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// DeclareVar allocates a new local variable at the next free offset
// (itemCount+1) unless name is already declared, in which case the existing
// offset is returned. Returns the variable's offset.
func (s *SymbolTable) DeclareVar(name string) int {
	if e, ok := s.entries[name]; ok && e.kind == symVar {
		return e.offset
	}
	s.itemCount++
	off := s.itemCount
	s.entries[name] = symbolEntry{kind: symVar, offset: off}
	return off
}

// DeclareVarAt inserts name at a fixed offset, used for parameters
// (negative offsets) and $retval (offset -2).
func (s *SymbolTable) DeclareVarAt(name string, offset int) {
	s.entries[name] = symbolEntry{kind: symVar, offset: offset}
}

// NewTemp allocates a fresh compiler-generated temporary ($T<n>) and
// declares it as a variable, returning its name and offset.
func (s *SymbolTable) NewTemp() (string, int) {
	s.tempCount++
	name := tempName(s.tempCount)
	off := s.DeclareVar(name)
	return name, off
}

// DeclareLabel creates (or returns the existing) Label cell for name,
// without requiring the target instruction to exist yet.
func (s *SymbolTable) DeclareLabel(name string) *Label {
	if e, ok := s.entries[name]; ok && e.kind == symLabel {
		return e.label
	}
	lb := NewLabel(name)
	s.entries[name] = symbolEntry{kind: symLabel, label: lb}
	return lb
}

func tempName(n int) string {
	return "$T" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// FunctionDescriptor is the process-wide record for one function: its
// parameter count, its own symbol table, and the bounds of its compiled
// body within the shared instruction list.
type FunctionDescriptor struct {
	Name        string
	ParamsCount int
	Symbols     *SymbolTable

	FirstInstruction *InstructionListItem
	LastInstruction  *InstructionListItem

	// LocalCount is the number of local-variable slots CALL reserves above
	// bp before jumping to FirstInstruction. Filled in once the body has
	// been compiled (the symbol table's itemCount no longer grows after
	// that point). Zero for native built-ins, which keep no locals.
	LocalCount int

	// Native, when set, makes this descriptor a built-in: CALL invokes it
	// directly instead of jumping into the instruction list, and there is
	// no matching RET instruction in the list for it.
	Native func(it *Interp) error

	// Variadic marks descriptors (print) whose actual argument count is
	// decided per call site rather than fixed by ParamsCount.
	Variadic bool

	// endLabel is bound to LastInstruction once the body is fully
	// compiled; `return` statements inside the body reference it before
	// that point exists, the same forward-reference pattern L_skip uses.
	endLabel *Label
}

// MainFunctionName is the synthetic name given to the top-level body so it
// can be compiled through the same machinery as a user-defined function,
// except that `return` at top level skips writing $retval (see
// Compiler.compileReturn). It is not entered by CALL: VM.Run jumps to its
// first instruction with bp 0, and its body ends in HALT rather than RET.
const MainFunctionName = "$main"

type FunctionTable struct {
	functions map[string]*FunctionDescriptor
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{functions: make(map[string]*FunctionDescriptor)}
}

func (t *FunctionTable) Declare(name string, paramsCount int) (*FunctionDescriptor, error) {
	if _, exists := t.functions[name]; exists {
		return nil, errf(KindSemanticsOther, "function %q already defined", name)
	}
	fd := &FunctionDescriptor{Name: name, ParamsCount: paramsCount}
	t.functions[name] = fd
	return fd, nil
}

func (t *FunctionTable) Lookup(name string) (*FunctionDescriptor, bool) {
	fd, ok := t.functions[name]
	return fd, ok
}
