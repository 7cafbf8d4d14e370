package vm

import (
	"strconv"
)

/*
	Value is a tagged union over the handful of kinds this language's values
	can take. There is no garbage collector: every Value lives in exactly one
	stack slot at a time, and ownership moves with explicit copy/free calls
	the same way the runtime stack, instruction list and symbol table move
	ownership of their own entries.

	Kind codes double as the return value of the typeOf() builtin, so they
	are pinned to the numbers this language assigns them rather than left
	to iota.
*/

type Kind int

const (
	KindUndefined Kind = -1
	KindNil       Kind = 0
	KindBool      Kind = 1
	KindNumber    Kind = 3
	KindFunction  Kind = 6
	KindString    Kind = 8
	KindIP        Kind = 100 // instruction pointer (return address), internal only
	KindBP        Kind = 101 // saved base pointer, internal only
	KindRange     Kind = 102 // substring range, internal only
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindFunction:
		return "function"
	case KindString:
		return "string"
	case KindIP:
		return "instruction-pointer"
	case KindBP:
		return "base-pointer"
	case KindRange:
		return "range"
	default:
		return "?unknown-kind?"
	}
}

// Range is the value form of optional substring bounds. A nil *float64
// member means "not given". The SUBSTRING instruction does not read Range
// values; it carries its bounds as Instruction.FromOff/ToOff.
type Range struct {
	From *float64
	To   *float64
}

// Value is copied by value everywhere. Of its pointer payloads, Ran (the
// substring range) is deep-copied by Copy so that no two stack slots ever
// alias the same underlying Range; Fn and IP stay shared references to the
// function descriptor and the instruction node.
type Value struct {
	Kind Kind

	Bool   bool
	Num    float64
	Str    string
	Fn     *FunctionDescriptor
	IP     *InstructionListItem
	BP     int
	Ran    *Range
}

func UndefinedValue() Value { return Value{Kind: KindUndefined} }
func NilValue() Value       { return Value{Kind: KindNil} }
func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}
func NumberValue(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}
func FunctionValue(fn *FunctionDescriptor) Value {
	return Value{Kind: KindFunction, Fn: fn}
}
func IPValue(ip *InstructionListItem) Value {
	return Value{Kind: KindIP, IP: ip}
}
func BPValue(bp int) Value {
	return Value{Kind: KindBP, BP: bp}
}
func RangeValue(from, to *float64) Value {
	return Value{Kind: KindRange, Ran: &Range{From: from, To: to}}
}

// Copy deep-copies the value's Range payload; everything else copies by
// assignment (Fn and IP keep pointing at the same descriptor and node).
func (v Value) Copy() Value {
	if v.Kind == KindRange && v.Ran != nil {
		r := *v.Ran
		return Value{Kind: KindRange, Ran: &r}
	}
	return v
}

// SetUndefined resets a slot back to Undefined, releasing any payload it
// held. There is no real allocation to free in this Go port (no manual
// memory management), but the operation is kept explicit because the
// compiler and interpreter reason about "was this slot ever written" via
// the Undefined marker.
func (v *Value) SetUndefined() {
	*v = UndefinedValue()
}

// String renders a value the way print() and string-coercion in ADD do:
// numbers with the shortest round-tripping representation, booleans as
// true/false, nil as "Nil", strings verbatim.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "Nil"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.Num)
	case KindString:
		return v.Str
	case KindFunction:
		if v.Fn != nil {
			return v.Fn.Name
		}
		return "<function>"
	case KindUndefined:
		return "Undefined"
	default:
		return ""
	}
}

// TypeCode implements the fixed numbering typeOf() hands back to scripts.
func (v Value) TypeCode() float64 {
	switch v.Kind {
	case KindNil:
		return 0
	case KindBool:
		return 1
	case KindNumber:
		return 3
	case KindFunction:
		return 6
	case KindString:
		return 8
	default:
		return 0
	}
}

// formatNumber mirrors the shortest round-trip ("%g"-equivalent) formatting
// number -> string conversion uses: integral values below 1e6 print as plain
// integers (3 -> "3"), while exponents of 6 or more or below -4 switch to
// exponent form (1000000 -> "1e+06").
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
