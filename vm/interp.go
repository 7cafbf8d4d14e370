package vm

import (
	"bufio"
	"math"

	"github.com/sirupsen/logrus"
)

/*
	Interp executes an InstructionList until HALT. It owns the runtime
	stack, the instruction list's active pointer, the function table and
	the program's stdio: a single struct owning the whole running machine,
	with a tagged-value stack discipline instead of a fixed-width register
	file.
*/

type Interp struct {
	Stack *RuntimeStack
	List  *InstructionList
	Funcs *FunctionTable

	Stdin  *bufio.Reader
	Stdout *bufio.Writer

	Log   *logrus.Logger
	Trace bool

	// StepHook, when non-nil, is called before dispatching each
	// instruction; returning a non-nil error aborts execution. Nothing in
	// this package sets it: the debug REPL calls Step directly and checks
	// its breakpoints itself.
	StepHook func(it *Interp, node *InstructionListItem) error

	halted bool
}

func NewInterp(list *InstructionList, funcs *FunctionTable, stdin *bufio.Reader, stdout *bufio.Writer, log *logrus.Logger) *Interp {
	return &Interp{
		Stack:  NewRuntimeStack(),
		List:   list,
		Funcs:  funcs,
		Stdin:  stdin,
		Stdout: stdout,
		Log:    log,
	}
}

// Run dispatches instructions starting at the list's current active node
// until HALT or an error. On error the runtime stack is discarded; the
// caller owns reporting.
func (it *Interp) Run() error {
	for !it.halted {
		if _, err := it.Step(); err != nil {
			it.Stack = NewRuntimeStack()
			return err
		}
	}
	return nil
}

// Step dispatches exactly one instruction, reporting whether that
// instruction was HALT (execution finished). Used directly by the debug
// REPL for single-stepping and by Run as its driving loop.
func (it *Interp) Step() (halted bool, err error) {
	node := it.List.GetActive()
	if node == nil {
		return false, errf(KindInternal, "active instruction pointer ran off the end of the program")
	}
	if it.StepHook != nil {
		if err := it.StepHook(it, node); err != nil {
			return false, err
		}
	}
	if it.Trace {
		it.Log.WithField("op", node.Instruction.Op).Debugf("line %d", node.Line)
	}
	if err := it.dispatch(node); err != nil {
		return false, err
	}
	return it.halted, nil
}

func (it *Interp) dispatch(node *InstructionListItem) error {
	instr := node.Instruction
	switch instr.Op {
	case HALT:
		it.halted = true
		return nil
	case LABEL:
		it.List.Next()
		return nil
	case GOTO:
		it.List.Goto(instr.Label.Target())
		return nil
	case IFGOTO:
		cond, err := it.Stack.Read(instr.Off2)
		if err != nil {
			return err
		}
		taken, err := truthy(*cond)
		if err != nil {
			return err
		}
		if !taken {
			it.List.Goto(instr.Label.Target())
		} else {
			it.List.Next()
		}
		return nil
	case CALL:
		return it.execCall(node, instr)
	case RET:
		return it.doReturn(instr.RetCount)
	case PUSH:
		if err := it.Stack.Push(instr.Lit.Copy()); err != nil {
			return err
		}
		it.List.Next()
		return nil
	case PUSH_STACK:
		src, err := it.Stack.Read(instr.Off1)
		if err != nil {
			return err
		}
		if err := it.Stack.Push(src.Copy()); err != nil {
			return err
		}
		it.List.Next()
		return nil
	case POP:
		v, err := it.Stack.Pop()
		if err != nil {
			return err
		}
		if err := it.Stack.Insert(instr.Off1, v); err != nil {
			return err
		}
		it.List.Next()
		return nil
	case MOV:
		if err := it.Stack.Insert(instr.Off1, instr.Lit.Copy()); err != nil {
			return err
		}
		it.List.Next()
		return nil
	case MOV_STACK:
		src, err := it.Stack.Read(instr.Off2)
		if err != nil {
			return err
		}
		if err := it.Stack.Insert(instr.Off1, src.Copy()); err != nil {
			return err
		}
		it.List.Next()
		return nil
	case REMOVE_STACK:
		if err := it.Stack.Insert(instr.Off1, UndefinedValue()); err != nil {
			return err
		}
		it.List.Next()
		return nil
	default:
		if instr.Op.IsArithmetic() {
			if err := it.execArithmetic(instr); err != nil {
				return err
			}
			it.List.Next()
			return nil
		}
		if instr.Op.IsRelational() {
			if err := it.execRelational(instr); err != nil {
				return err
			}
			it.List.Next()
			return nil
		}
		if instr.Op == SUBSTRING {
			if err := it.execSubstring(instr); err != nil {
				return err
			}
			it.List.Next()
			return nil
		}
		return errf(KindInternal, "unhandled opcode %s", instr.Op)
	}
}

func truthy(v Value) (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindNumber:
		return v.Num != 0, nil
	case KindNil:
		return false, nil
	case KindUndefined:
		return false, errf(KindRuntimeOther, "condition is undefined")
	default:
		return true, nil
	}
}

// readParam reads a parameter relative to the current frame's bp, erroring
// if it holds Undefined (for instance a variable whose only assignment never
// ran); call-site padding fills omitted arguments with nil, not Undefined.
func (it *Interp) readParam(offset int) (Value, error) {
	v, err := it.Stack.Read(offset)
	if err != nil {
		return Value{}, err
	}
	if v.Kind == KindUndefined {
		return Value{}, errf(KindRuntimeOther, "parameter at offset %d is undefined", offset)
	}
	return *v, nil
}

func (it *Interp) writeRetval(v Value) error {
	return it.Stack.Insert(RetvalOffset, v)
}

func (it *Interp) execCall(node *InstructionListItem, instr Instruction) error {
	fd := instr.Fn
	if fd == nil {
		return errf(KindInstructionWrongOperands, "CALL with no function descriptor")
	}
	returnAddr := node.NextItem()
	if err := it.Stack.Push(IPValue(returnAddr)); err != nil {
		return err
	}
	if err := it.Stack.Push(BPValue(it.Stack.BP())); err != nil {
		return err
	}
	it.Stack.SetBP(it.Stack.SP())

	if fd.Native != nil {
		if err := it.Stack.MoveSP(0); err != nil {
			return err
		}
		if err := fd.Native(it); err != nil {
			return err
		}
		return it.doReturn(instr.RetCount)
	}

	if err := it.Stack.MoveSP(fd.LocalCount); err != nil {
		return err
	}
	it.List.Goto(fd.FirstInstruction)
	return nil
}

// doReturn implements RET: pop locals down to bp, restore bp and the
// active pointer from the saved-BP/saved-IP slots, peek the return value
// (it is still resident in one of the paramsCount+1 caller-owned slots)
// and copy it aside, release those paramsCount+1 slots (parameters plus
// the reserved return slot), and push the copied return value back.
func (it *Interp) doReturn(paramsCount int) error {
	bp := it.Stack.BP()
	for it.Stack.SP() > bp {
		if _, err := it.Stack.Pop(); err != nil {
			return err
		}
	}
	savedBP, err := it.Stack.Pop()
	if err != nil {
		return err
	}
	savedIP, err := it.Stack.Pop()
	if err != nil {
		return err
	}
	retval, err := it.Stack.Top()
	if err != nil {
		return err
	}
	retCopy := retval.Copy()
	for i := 0; i < paramsCount+1; i++ {
		if _, err := it.Stack.Pop(); err != nil {
			return err
		}
	}
	if err := it.Stack.Push(retCopy); err != nil {
		return err
	}
	it.Stack.SetBP(savedBP.BP)
	it.List.Goto(savedIP.IP)
	return nil
}

func (it *Interp) execArithmetic(instr Instruction) error {
	lhs, err := it.Stack.Read(instr.Off2)
	if err != nil {
		return err
	}
	rhs, err := it.Stack.Read(instr.Off3)
	if err != nil {
		return err
	}
	if lhs.Kind == KindUndefined || rhs.Kind == KindUndefined {
		return errf(KindRuntimeOther, "%s: operand is undefined", instr.Op)
	}

	result, err := evalArithmetic(instr.Op, *lhs, *rhs)
	if err != nil {
		return err
	}
	return it.Stack.Insert(instr.Off1, result)
}

func evalArithmetic(op Opcode, lhs, rhs Value) (Value, error) {
	switch op {
	case ADD:
		if lhs.Kind == KindNumber && rhs.Kind == KindNumber {
			return NumberValue(lhs.Num + rhs.Num), nil
		}
		if lhs.Kind == KindString {
			return StringValue(lhs.Str + rhs.String()), nil
		}
		return Value{}, errf(KindRuntimeIncompatibleTypes, "ADD: incompatible operand types")
	case SUB:
		if lhs.Kind != KindNumber || rhs.Kind != KindNumber {
			return Value{}, errf(KindRuntimeIncompatibleTypes, "SUB: operands must be numbers")
		}
		return NumberValue(lhs.Num - rhs.Num), nil
	case MUL:
		if lhs.Kind == KindNumber && rhs.Kind == KindNumber {
			return NumberValue(lhs.Num * rhs.Num), nil
		}
		if lhs.Kind == KindString && rhs.Kind == KindNumber {
			n := math.Floor(rhs.Num)
			if n < 1 {
				return StringValue(""), nil
			}
			return StringValue(repeatString(lhs.Str, int(n))), nil
		}
		return Value{}, errf(KindRuntimeIncompatibleTypes, "MUL: incompatible operand types")
	case DIV:
		if lhs.Kind != KindNumber || rhs.Kind != KindNumber {
			return Value{}, errf(KindRuntimeIncompatibleTypes, "DIV: operands must be numbers")
		}
		if rhs.Num == 0 {
			return Value{}, errf(KindRuntimeZeroDivision, "division by zero")
		}
		return NumberValue(lhs.Num / rhs.Num), nil
	case POW:
		if lhs.Kind != KindNumber || rhs.Kind != KindNumber {
			return Value{}, errf(KindRuntimeIncompatibleTypes, "POW: operands must be numbers")
		}
		return NumberValue(math.Pow(lhs.Num, rhs.Num)), nil
	default:
		return Value{}, errf(KindInternal, "unreachable arithmetic opcode %s", op)
	}
}

func repeatString(s string, n int) string {
	var b []byte
	for i := 0; i < n; i++ {
		b = append(b, s...)
	}
	return string(b)
}

func (it *Interp) execRelational(instr Instruction) error {
	lhs, err := it.Stack.Read(instr.Off2)
	if err != nil {
		return err
	}
	rhs, err := it.Stack.Read(instr.Off3)
	if err != nil {
		return err
	}
	if lhs.Kind == KindUndefined || rhs.Kind == KindUndefined {
		return errf(KindRuntimeOther, "%s: operand is undefined", instr.Op)
	}
	result, err := evalRelational(instr.Op, *lhs, *rhs)
	if err != nil {
		return err
	}
	return it.Stack.Insert(instr.Off1, BoolValue(result))
}

func evalRelational(op Opcode, lhs, rhs Value) (bool, error) {
	if lhs.Kind == KindNumber && rhs.Kind == KindNumber {
		switch op {
		case LESSER:
			return lhs.Num < rhs.Num, nil
		case GREATER:
			return lhs.Num > rhs.Num, nil
		case EQ:
			return lhs.Num == rhs.Num, nil
		case LEQ:
			return lhs.Num <= rhs.Num, nil
		case GEQ:
			return lhs.Num >= rhs.Num, nil
		case NEQ:
			return lhs.Num != rhs.Num, nil
		}
	}
	if lhs.Kind == KindString && rhs.Kind == KindString {
		c := compareStrings(lhs.Str, rhs.Str)
		switch op {
		case LESSER:
			return c < 0, nil
		case GREATER:
			return c > 0, nil
		case EQ:
			return c == 0, nil
		case LEQ:
			return c <= 0, nil
		case GEQ:
			return c >= 0, nil
		case NEQ:
			return c != 0, nil
		}
	}
	if lhs.Kind == KindBool && rhs.Kind == KindBool {
		switch op {
		case EQ:
			return lhs.Bool == rhs.Bool, nil
		case NEQ:
			return lhs.Bool != rhs.Bool, nil
		default:
			return false, errf(KindRuntimeIncompatibleTypes, "%s: not defined on booleans", op)
		}
	}
	if lhs.Kind == KindNil && rhs.Kind == KindNil {
		switch op {
		case EQ:
			return true, nil
		case NEQ:
			return false, nil
		default:
			return false, errf(KindRuntimeIncompatibleTypes, "%s: not defined on nil", op)
		}
	}
	// Cross-type.
	switch op {
	case EQ:
		return false, nil
	case NEQ:
		return true, nil
	default:
		return false, errf(KindRuntimeIncompatibleTypes, "%s: incompatible operand types", op)
	}
}

func (it *Interp) execSubstring(instr Instruction) error {
	strVal, err := it.Stack.Read(instr.Off2)
	if err != nil {
		return err
	}
	if strVal.Kind == KindUndefined {
		return errf(KindRuntimeOther, "SUBSTRING: operand is undefined")
	}
	if strVal.Kind != KindString {
		return errf(KindRuntimeIncompatibleTypes, "SUBSTRING: operand must be a string")
	}

	from := 0
	to := len(strVal.Str)

	if instr.FromOff != nil {
		v, err := it.Stack.Read(*instr.FromOff)
		if err != nil {
			return err
		}
		if v.Kind != KindNumber {
			return errf(KindRuntimeIncompatibleTypes, "SUBSTRING: bound must be a number")
		}
		from = int(v.Num)
	}
	if instr.ToOff != nil {
		v, err := it.Stack.Read(*instr.ToOff)
		if err != nil {
			return err
		}
		if v.Kind != KindNumber {
			return errf(KindRuntimeIncompatibleTypes, "SUBSTRING: bound must be a number")
		}
		to = int(v.Num)
	}

	n := len(strVal.Str)
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from > to {
		return it.Stack.Insert(instr.Off1, StringValue(""))
	}
	return it.Stack.Insert(instr.Off1, StringValue(strVal.Str[from:to]))
}
