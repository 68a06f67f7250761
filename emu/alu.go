package emu

import "github.com/sarchlab/m2fi/insts"

// Result is the outcome of one ALU operation.
type Result struct {
	Value    uint64
	Flags    PSTATE
	SetFlags bool
}

// Operands returns the two ALU inputs of a data-processing instruction: the
// Rn value and the second operand (shifted immediate or shifted Rm value).
func Operands(inst *insts.Instruction, rf *RegFile) (uint64, uint64) {
	switch inst.Format {
	case insts.FormatDPImm:
		return rf.ReadRegOrSP(inst.Rn()), inst.Imm << inst.Shift
	case insts.FormatDPReg:
		op2 := rf.ReadReg(inst.Rm())
		if inst.Is64Bit {
			op2 = applyShift64(op2, inst.ShiftType, inst.ShiftAmount)
		} else {
			op2 = uint64(applyShift32(uint32(op2), inst.ShiftType, inst.ShiftAmount))
		}
		return rf.ReadReg(inst.Rn()), op2
	}
	return 0, 0
}

// Compute evaluates a data-processing instruction over its operand values.
// W forms use the low 32 bits of each operand and zero-extend the result.
func Compute(inst *insts.Instruction, op1, op2 uint64) Result {
	res := Result{SetFlags: inst.SetFlags}

	if inst.Is64Bit {
		res.Value, res.Flags = compute64(inst.Op, op1, op2)
		return res
	}

	v, flags := compute32(inst.Op, uint32(op1), uint32(op2))
	res.Value, res.Flags = uint64(v), flags
	return res
}

// WriteBack commits an ALU result to the destination register and flags.
func WriteBack(inst *insts.Instruction, rf *RegFile, res Result) {
	if inst.Format == insts.FormatDPImm && !inst.SetFlags {
		rf.WriteRegOrSP(inst.Rd(), res.Value)
	} else {
		rf.WriteReg(inst.Rd(), res.Value)
	}

	if res.SetFlags {
		rf.PSTATE = res.Flags
	}
}

func compute64(op insts.Op, a, b uint64) (uint64, PSTATE) {
	switch op {
	case insts.OpADD:
		r := a + b
		return r, addFlags64(a, b, r)
	case insts.OpSUB:
		r := a - b
		return r, subFlags64(a, b, r)
	case insts.OpAND:
		r := a & b
		return r, PSTATE{N: r>>63 == 1, Z: r == 0}
	case insts.OpORR:
		return a | b, PSTATE{}
	case insts.OpEOR:
		return a ^ b, PSTATE{}
	}
	return 0, PSTATE{}
}

func compute32(op insts.Op, a, b uint32) (uint32, PSTATE) {
	switch op {
	case insts.OpADD:
		r := a + b
		return r, addFlags32(a, b, r)
	case insts.OpSUB:
		r := a - b
		return r, subFlags32(a, b, r)
	case insts.OpAND:
		r := a & b
		return r, PSTATE{N: r>>31 == 1, Z: r == 0}
	case insts.OpORR:
		return a | b, PSTATE{}
	case insts.OpEOR:
		return a ^ b, PSTATE{}
	}
	return 0, PSTATE{}
}

// addFlags64 computes NZCV for 64-bit addition.
func addFlags64(op1, op2, result uint64) PSTATE {
	return PSTATE{
		N: result>>63 == 1,
		Z: result == 0,
		C: result < op1,
		V: (op1>>63 == op2>>63) && (result>>63 != op1>>63),
	}
}

// addFlags32 computes NZCV for 32-bit addition.
func addFlags32(op1, op2, result uint32) PSTATE {
	return PSTATE{
		N: result>>31 == 1,
		Z: result == 0,
		C: result < op1,
		V: (op1>>31 == op2>>31) && (result>>31 != op1>>31),
	}
}

// subFlags64 computes NZCV for 64-bit subtraction. C is NOT borrow.
func subFlags64(op1, op2, result uint64) PSTATE {
	return PSTATE{
		N: result>>63 == 1,
		Z: result == 0,
		C: op1 >= op2,
		V: (op1>>63 != op2>>63) && (result>>63 != op1>>63),
	}
}

// subFlags32 computes NZCV for 32-bit subtraction.
func subFlags32(op1, op2, result uint32) PSTATE {
	return PSTATE{
		N: result>>31 == 1,
		Z: result == 0,
		C: op1 >= op2,
		V: (op1>>31 != op2>>31) && (result>>31 != op1>>31),
	}
}

// applyShift64 applies a shift operation to a 64-bit value.
func applyShift64(value uint64, shiftType insts.ShiftType, amount uint8) uint64 {
	if amount == 0 {
		return value
	}
	switch shiftType {
	case insts.ShiftLSL:
		return value << amount
	case insts.ShiftLSR:
		return value >> amount
	case insts.ShiftASR:
		return uint64(int64(value) >> amount)
	case insts.ShiftROR:
		return (value >> amount) | (value << (64 - amount))
	default:
		return value
	}
}

// applyShift32 applies a shift operation to a 32-bit value.
func applyShift32(value uint32, shiftType insts.ShiftType, amount uint8) uint32 {
	amount &= 31
	if amount == 0 {
		return value
	}
	switch shiftType {
	case insts.ShiftLSL:
		return value << amount
	case insts.ShiftLSR:
		return value >> amount
	case insts.ShiftASR:
		return uint32(int32(value) >> amount)
	case insts.ShiftROR:
		return (value >> amount) | (value << (32 - amount))
	default:
		return value
	}
}
