package emu

import "github.com/sarchlab/m2fi/insts"

// CheckCondition evaluates an ARM64 condition code against PSTATE flags.
func CheckCondition(p PSTATE, cond insts.Cond) bool {
	switch cond {
	case insts.CondEQ:
		return p.Z
	case insts.CondNE:
		return !p.Z
	case insts.CondCS:
		return p.C
	case insts.CondCC:
		return !p.C
	case insts.CondMI:
		return p.N
	case insts.CondPL:
		return !p.N
	case insts.CondVS:
		return p.V
	case insts.CondVC:
		return !p.V
	case insts.CondHI:
		return p.C && !p.Z
	case insts.CondLS:
		return !p.C || p.Z
	case insts.CondGE:
		return p.N == p.V
	case insts.CondLT:
		return p.N != p.V
	case insts.CondGT:
		return !p.Z && p.N == p.V
	case insts.CondLE:
		return p.Z || p.N != p.V
	default:
		// AL and NV
		return true
	}
}

// NextPC returns the address following a branch at pc. taken selects the
// target of a conditional branch; it is ignored for unconditional forms.
// BL and BLR also write the return address to the link register.
func NextPC(inst *insts.Instruction, rf *RegFile, pc uint64, taken bool) uint64 {
	switch inst.Op {
	case insts.OpB:
		return uint64(int64(pc) + inst.BranchOffset)
	case insts.OpBL:
		rf.WriteReg(inst.Rd(), pc+4)
		return uint64(int64(pc) + inst.BranchOffset)
	case insts.OpBCond:
		if taken {
			return uint64(int64(pc) + inst.BranchOffset)
		}
	case insts.OpBR, insts.OpRET:
		return rf.ReadReg(inst.Rn())
	case insts.OpBLR:
		// Read the target before the link write in case Rn is X30.
		target := rf.ReadReg(inst.Rn())
		rf.WriteReg(inst.Rd(), pc+4)
		return target
	}
	return pc + 4
}
