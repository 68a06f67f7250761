package pipeline

import (
	"github.com/holiman/uint256"

	"github.com/sarchlab/m2fi/emu"
	"github.com/sarchlab/m2fi/fault"
	"github.com/sarchlab/m2fi/insts"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch reads the instruction at pc. It fails once pc leaves mapped memory.
func (s *FetchStage) Fetch(pc uint64) (IFIDRegister, bool) {
	if !s.memory.Mapped(pc) {
		return IFIDRegister{}, false
	}
	return IFIDRegister{Valid: true, PC: pc, InstructionWord: s.memory.Read32(pc)}, true
}

// DecodeStage decodes instructions and reads source registers. A register
// decoding fault, when one is due, redirects a register index of the
// decoded instruction before the register file is read.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
	faults  *fault.Registry
}

// NewDecodeStage creates a new decode stage. faults may be nil.
func NewDecodeStage(regFile *emu.RegFile, faults *fault.Registry) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
		faults:  faults,
	}
}

// Decode decodes the fetched word at the position ctx.
func (s *DecodeStage) Decode(ifid IFIDRegister, ctx fault.Context) IDEXRegister {
	inst := s.decoder.Decode(ifid.InstructionWord)

	if s.faults != nil {
		s.faults.Advance(ctx)
		if due := s.faults.Eligible(fault.StageDecode, ctx); len(due) > 0 {
			fault.ProcessInst(due[0], inst)
		}
	}

	idex := IDEXRegister{Valid: true, PC: ifid.PC, Inst: inst}
	if inst.IsSIMD() {
		idex.VOp1, idex.VOp2 = emu.VectorOperands(inst, s.regFile)
	} else {
		idex.Op1, idex.Op2 = emu.Operands(inst, s.regFile)
	}

	return idex
}

// ExecuteStage runs the ALU and resolves branches. IEW faults act on the
// ALU operands before the operation, on its result after it, and on the
// evaluated condition of B.cond. Vector operands and results are corrupted
// as wide values when the configured vector width covers them; otherwise
// the fault waits for a later instruction.
type ExecuteStage struct {
	regFile *emu.RegFile
	faults  *fault.Registry
}

// NewExecuteStage creates a new execute stage. faults may be nil.
func NewExecuteStage(regFile *emu.RegFile, faults *fault.Registry) *ExecuteStage {
	return &ExecuteStage{regFile: regFile, faults: faults}
}

// Execute executes the decoded instruction at the position ctx.
func (s *ExecuteStage) Execute(idex IDEXRegister, ctx fault.Context) EXWBRegister {
	inst := idex.Inst
	exwb := EXWBRegister{Valid: true, PC: idex.PC, Inst: inst, NextPC: idex.PC + 4}

	if s.faults != nil {
		s.faults.Advance(ctx)
	}

	switch inst.Format {
	case insts.FormatDPImm, insts.FormatDPReg:
		op1, op2 := idex.Op1, idex.Op2
		if f := s.match(ctx, fault.SiteOperand, inst); f != nil {
			if f.Operand() == 0 {
				op1 = corrupt(f, inst, op1)
			} else {
				op2 = corrupt(f, inst, op2)
			}
		}

		exwb.Result = emu.Compute(inst, op1, op2)

		if f := s.match(ctx, fault.SiteResult, inst); f != nil {
			exwb.Result.Value = corrupt(f, inst, exwb.Result.Value)
		}

	case insts.FormatSIMDReg, insts.FormatSIMDCopy:
		op1, op2 := idex.VOp1, idex.VOp2
		if f := s.match(ctx, fault.SiteOperand, inst); f != nil {
			switch {
			case inst.Op == insts.OpDUP:
				op1.SetUint64(corrupt(f, inst, op1.Uint64()))
			case f.Operand() == 0:
				op1 = corruptVector(f, inst, &op1)
			default:
				op2 = corruptVector(f, inst, &op2)
			}
		}

		exwb.VResult = emu.ComputeVector(inst, &op1, &op2)

		if f := s.match(ctx, fault.SiteResult, inst); f != nil {
			if inst.Op == insts.OpUMOV {
				exwb.VResult.SetUint64(corrupt(f, inst, exwb.VResult.Uint64()))
			} else {
				exwb.VResult = corruptVector(f, inst, &exwb.VResult)
			}
		}

	case insts.FormatBranchCond:
		taken := emu.CheckCondition(s.regFile.PSTATE, inst.Cond)
		if f := s.match(ctx, fault.SiteBranch, inst); f != nil {
			taken = fault.ProcessBool(f, taken)
		}
		exwb.NextPC = emu.NextPC(inst, s.regFile, idex.PC, taken)

	case insts.FormatBranch, insts.FormatBranchReg:
		exwb.NextPC = emu.NextPC(inst, s.regFile, idex.PC, true)
	}

	exwb.Redirect = exwb.NextPC != idex.PC+4

	return exwb
}

// match returns the first due IEW fault acting on site of inst, honoring
// the capabilities of the fault configuration.
func (s *ExecuteStage) match(
	ctx fault.Context,
	site fault.Site,
	inst *insts.Instruction,
) *fault.IEWStageInjectedFault {
	if s.faults == nil {
		return nil
	}

	cfg := s.faults.Config()
	if site == fault.SiteBranch && !cfg.BranchConditionFaults {
		return nil
	}
	if site != fault.SiteBranch && !cfg.ValueFaults {
		return nil
	}
	if isVector(inst, site) && inst.VectorBits() > cfg.VectorWidth {
		return nil
	}

	for _, f := range s.faults.Eligible(fault.StageIEW, ctx) {
		iew, ok := f.(*fault.IEWStageInjectedFault)
		if !ok || iew.Site() != site {
			continue
		}
		if site == fault.SiteOperand && iew.Operand() >= numOperands(inst) {
			continue
		}
		return iew
	}

	return nil
}

// numOperands returns the number of ALU inputs of inst.
func numOperands(inst *insts.Instruction) int {
	if inst.Format == insts.FormatSIMDCopy {
		return 1
	}
	return 2
}

// isVector reports whether the value at site of inst is a vector register.
// DUP reads and UMOV writes a general-purpose register.
func isVector(inst *insts.Instruction, site fault.Site) bool {
	switch {
	case !inst.IsSIMD():
		return false
	case site == fault.SiteOperand:
		return inst.Op != insts.OpDUP
	case site == fault.SiteResult:
		return inst.Op != insts.OpUMOV
	}
	return false
}

// corrupt applies f at the operand width of inst.
func corrupt(f fault.Fault, inst *insts.Instruction, v uint64) uint64 {
	if inst.Is64Bit {
		return fault.ProcessWord(f, v)
	}
	return uint64(fault.ProcessWord(f, uint32(v)))
}

// corruptVector applies f to the vector register value of inst.
func corruptVector(f fault.Fault, inst *insts.Instruction, v *uint256.Int) uint256.Int {
	return *fault.ProcessWide(f, v, inst.VectorBits())
}

// WritebackStage commits results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback commits exwb and moves the PC to its successor.
func (s *WritebackStage) Writeback(exwb EXWBRegister) {
	switch exwb.Inst.Format {
	case insts.FormatDPImm, insts.FormatDPReg:
		emu.WriteBack(exwb.Inst, s.regFile, exwb.Result)
	case insts.FormatSIMDReg, insts.FormatSIMDCopy:
		emu.WriteBackVector(exwb.Inst, s.regFile, &exwb.VResult)
	}
	s.regFile.PC = exwb.NextPC
}
