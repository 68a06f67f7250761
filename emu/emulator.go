package emu

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/m2fi/insts"
)

// ErrMaxInstructions is returned once the instruction limit is reached.
var ErrMaxInstructions = errors.New("max instructions reached")

// ErrUnknownInstruction is returned when a fetched word does not decode.
var ErrUnknownInstruction = errors.New("unknown instruction")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true once the PC leaves mapped memory.
	Exited bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes ARM64 instructions functionally. It produces the
// fault-free reference state that injected runs are compared against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint64) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.SP = sp
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new ARM64 emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram uses mem as the program image and starts execution at entry.
func (e *Emulator) LoadProgram(entry uint64, mem *Memory) {
	e.memory = mem
	e.regFile.PC = entry
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if !e.memory.Mapped(e.regFile.PC) {
		return StepResult{Exited: true}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	pc := e.regFile.PC
	inst := e.decoder.Decode(e.memory.Read32(pc))

	switch inst.Format {
	case insts.FormatDPImm, insts.FormatDPReg:
		op1, op2 := Operands(inst, e.regFile)
		WriteBack(inst, e.regFile, Compute(inst, op1, op2))
		e.regFile.PC = pc + 4
	case insts.FormatBranch, insts.FormatBranchReg:
		e.regFile.PC = NextPC(inst, e.regFile, pc, true)
	case insts.FormatBranchCond:
		taken := CheckCondition(e.regFile.PSTATE, inst.Cond)
		e.regFile.PC = NextPC(inst, e.regFile, pc, taken)
	case insts.FormatSIMDReg, insts.FormatSIMDCopy:
		op1, op2 := VectorOperands(inst, e.regFile)
		res := ComputeVector(inst, &op1, &op2)
		WriteBackVector(inst, e.regFile, &res)
		e.regFile.PC = pc + 4
	case insts.FormatSystem:
		e.regFile.PC = pc + 4
	default:
		return StepResult{Err: errors.Wrapf(ErrUnknownInstruction, "0x%08x at 0x%x", inst.Word, pc)}
	}

	e.instructionCount++

	return StepResult{}
}

// Run executes instructions until the program exits or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Exited {
			return nil
		}
		if result.Err != nil {
			return result.Err
		}
	}
}
