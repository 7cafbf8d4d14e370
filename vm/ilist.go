package vm

/*
	InstructionList is a singly-linked, ordered list of instructions. Node
	addresses (*InstructionListItem) are stable for the life of the list, so
	jump targets are just node references rather than indices that would
	shift under insertion -- the same trick the original C implementation
	used with its tIListItem, re-expressed as ordinary Go pointers instead of
	a hand-rolled linked list plus manual free().

	Label is the one level of indirection that lets GOTO/IFGOTO be emitted
	before their target exists: a Label is created when its name is first
	mentioned, carries a nil target until the compiler emits the instruction
	it should jump to, and is bound exactly once. Every reader dereferences
	the Label at jump time, so forward references resolve transparently.
*/

type Opcode int

// Instruction is three opcode-dependent operand slots. Offset operands are
// plain ints (the Go port has no need for "pointer to offset" indirection --
// operands are resolved once at interpretation, not patched in place the way
// label targets are). Lit carries an owned value literal for PUSH/MOV.
type Instruction struct {
	Op Opcode

	// Offset operands (stack offsets relative to bp), meaning depends on Op.
	Off1, Off2, Off3 int

	// Label operand, used by GOTO/IFGOTO.
	Label *Label

	// Function operand, used by CALL.
	Fn *FunctionDescriptor

	// Owned literal operand, used by PUSH/MOV.
	Lit Value

	// RetCount operand, used by RET and by CALL of a native built-in
	// (number of parameter slots to release).
	RetCount int

	// Substring bound operands, used by SUBSTRING. A nil bound means "from
	// the start" (FromOff) or "to the end" (ToOff); a non-nil bound points
	// at the stack offset holding the already-evaluated numeric index.
	FromOff *int
	ToOff   *int
}

type InstructionListItem struct {
	Instruction Instruction
	Line        int
	next        *InstructionListItem
}

// NextItem returns the node following this one, or nil at the end of the
// list. CALL uses it to compute the return address pushed for RET.
func (n *InstructionListItem) NextItem() *InstructionListItem {
	if n == nil {
		return nil
	}
	return n.next
}

type InstructionList struct {
	first, last, active *InstructionListItem
}

func NewInstructionList() *InstructionList {
	return &InstructionList{}
}

// InsertLast appends instr (with the given source line) to the end of the
// list and returns the new node, which is the jump target callers bind
// labels to.
func (l *InstructionList) InsertLast(instr Instruction, line int) *InstructionListItem {
	node := &InstructionListItem{Instruction: instr, Line: line}
	if l.first == nil {
		l.first = node
		l.active = node
	} else {
		l.last.next = node
	}
	l.last = node
	return node
}

// Next advances the active pointer to the following node, or nil past the
// end of the list.
func (l *InstructionList) Next() {
	if l.active != nil {
		l.active = l.active.next
	}
}

// Goto sets the active pointer directly, used by GOTO/IFGOTO/CALL/RET.
func (l *InstructionList) Goto(node *InstructionListItem) {
	l.active = node
}

func (l *InstructionList) GetLast() *InstructionListItem { return l.last }
func (l *InstructionList) GetActive() *InstructionListItem { return l.active }

// Label is a single-indirection holder for a forward-referenceable jump
// target. Created unbound by the compiler the first time a name is
// mentioned; Bind fixes the target once the corresponding LABEL instruction
// has been emitted.
type Label struct {
	name   string
	target *InstructionListItem
}

func NewLabel(name string) *Label {
	return &Label{name: name}
}

func (lb *Label) Bind(node *InstructionListItem) {
	lb.target = node
}

func (lb *Label) Bound() bool {
	return lb.target != nil
}

func (lb *Label) Target() *InstructionListItem {
	return lb.target
}
