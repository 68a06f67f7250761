package fault

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ValueKind tags the arm of a Value.
type ValueKind uint8

// Value kinds.
const (
	ValueInvalid ValueKind = iota
	ValueBool              // Branch condition
	ValueWord              // Operand or result word, up to 64 bits
	ValueWide              // Vector register value, up to 256 bits
	ValueInst              // Decoded instruction handle
)

func (k ValueKind) String() string {
	switch k {
	case ValueBool:
		return "bool"
	case ValueWord:
		return "word"
	case ValueWide:
		return "wide"
	case ValueInst:
		return "instruction"
	default:
		return "invalid"
	}
}

// Value is the value a stage driver hands to Fault.Process.
type Value struct {
	kind  ValueKind
	b     bool
	word  uint64
	width uint
	wide  uint256.Int
	inst  Instruction
}

// BoolValue wraps a branch condition.
func BoolValue(b bool) Value {
	return Value{kind: ValueBool, b: b}
}

// WordValue wraps an operand or result word, keeping the width of T.
func WordValue[T Word](v T) Value {
	return Value{kind: ValueWord, word: uint64(v), width: WidthOf[T]()}
}

// WideValue wraps a vector register value of the given width in bits.
func WideValue(v *uint256.Int, width uint) Value {
	out := Value{kind: ValueWide, width: width}
	out.wide.Set(v)
	return out
}

// InstValue wraps a decoded instruction.
func InstValue(inst Instruction) Value {
	return Value{kind: ValueInst, inst: inst}
}

// Kind returns the arm the value holds.
func (v Value) Kind() ValueKind { return v.kind }

// Bool returns the branch condition.
func (v Value) Bool() bool { return v.b }

// Word returns the word bits.
func (v Value) Word() uint64 { return v.word }

// Width returns the width in bits of a word or wide value.
func (v Value) Width() uint { return v.width }

// Wide returns a copy of the vector value.
func (v Value) Wide() *uint256.Int { return v.wide.Clone() }

// Inst returns the instruction handle.
func (v Value) Inst() Instruction { return v.inst }

func (v Value) String() string {
	switch v.kind {
	case ValueBool:
		return fmt.Sprint(v.b)
	case ValueWord:
		return fmt.Sprintf("%#x", v.word)
	case ValueWide:
		return v.wide.Hex()
	case ValueInst:
		if v.inst == nil {
			return "<nil>"
		}
		return describeInst(v.inst)
	default:
		return "<invalid>"
	}
}

func describeInst(inst Instruction) string {
	src := make([]int, inst.NumSrcRegs())
	for i := range src {
		src[i] = inst.SrcRegIdx(i)
	}
	dst := make([]int, inst.NumDestRegs())
	for i := range dst {
		dst[i] = inst.DestRegIdx(i)
	}
	return fmt.Sprintf("%s src=%v dst=%v", inst.Name(), src, dst)
}

// ProcessBool runs f on a branch condition.
func ProcessBool(f Fault, cond bool) bool {
	return f.Process(BoolValue(cond)).Bool()
}

// ProcessWord runs f on an operand or result word.
func ProcessWord[T Word](f Fault, v T) T {
	return T(f.Process(WordValue(v)).Word())
}

// ProcessWide runs f on a vector register value width bits wide.
func ProcessWide(f Fault, v *uint256.Int, width uint) *uint256.Int {
	return f.Process(WideValue(v, width)).Wide()
}

// ProcessInst runs f on a decoded instruction and returns the same handle.
func ProcessInst(f Fault, inst Instruction) Instruction {
	return f.Process(InstValue(inst)).Inst()
}
