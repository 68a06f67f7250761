package emu

import (
	"github.com/holiman/uint256"

	"github.com/sarchlab/m2fi/insts"
)

// VectorOperands returns the inputs of a SIMD instruction. DUP takes its
// element from a general-purpose register, held in the low limb of op1.
// UMOV reads only op1.
func VectorOperands(inst *insts.Instruction, rf *RegFile) (op1, op2 uint256.Int) {
	switch inst.Op {
	case insts.OpDUP:
		op1.SetUint64(rf.ReadReg(inst.Rn()))
	case insts.OpUMOV:
		op1 = rf.ReadVec(inst.Rn())
	default:
		op1 = rf.ReadVec(inst.Rn())
		op2 = rf.ReadVec(inst.Rm())
	}
	return op1, op2
}

// ComputeVector evaluates a SIMD instruction lane by lane. Results of 64-bit
// arrangements clear the upper half of the register. UMOV yields the
// zero-extended element in the low limb.
func ComputeVector(inst *insts.Instruction, op1, op2 *uint256.Int) uint256.Int {
	var res uint256.Int

	arr := inst.Arrangement
	esize := arr.ElementBits()

	switch inst.Op {
	case insts.OpVADD:
		for i := 0; i < arr.Lanes(); i++ {
			setLane(&res, i, esize, lane(op1, i, esize)+lane(op2, i, esize))
		}
	case insts.OpVSUB:
		for i := 0; i < arr.Lanes(); i++ {
			setLane(&res, i, esize, lane(op1, i, esize)-lane(op2, i, esize))
		}
	case insts.OpVAND:
		res.And(op1, op2)
	case insts.OpVORR:
		res.Or(op1, op2)
	case insts.OpVEOR:
		res.Xor(op1, op2)
	case insts.OpDUP:
		for i := 0; i < arr.Lanes(); i++ {
			setLane(&res, i, esize, op1[0])
		}
	case insts.OpUMOV:
		res.SetUint64(lane(op1, int(inst.Index), esize))
		return res
	}

	// Clear upper bits if using 64-bit arrangement
	if arr.VectorBits() == 64 {
		res[1] = 0
	}
	res[2], res[3] = 0, 0

	return res
}

// WriteBackVector commits a SIMD result. UMOV writes its general-purpose
// destination; every other SIMD instruction writes a vector register.
func WriteBackVector(inst *insts.Instruction, rf *RegFile, res *uint256.Int) {
	if inst.Op == insts.OpUMOV {
		rf.WriteReg(inst.Rd(), res.Uint64())
		return
	}
	rf.WriteVec(inst.Rd(), res)
}

func laneMask(esize uint) uint64 {
	if esize >= 64 {
		return ^uint64(0)
	}
	return 1<<esize - 1
}

func lane(v *uint256.Int, i int, esize uint) uint64 {
	bit := uint(i) * esize
	return (v[bit/64] >> (bit % 64)) & laneMask(esize)
}

func setLane(v *uint256.Int, i int, esize uint, x uint64) {
	bit := uint(i) * esize
	m := laneMask(esize) << (bit % 64)
	v[bit/64] = v[bit/64]&^m | (x<<(bit%64))&m
}
