// Package pipeline provides an in-order pipeline model that carries fault
// injection points at decode and execute.
package pipeline

import (
	"github.com/holiman/uint256"

	"github.com/sarchlab/m2fi/emu"
	"github.com/sarchlab/m2fi/insts"
)

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint64

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	Valid bool
	PC    uint64

	// Inst is the decoded instruction, after any decode-stage fault.
	Inst *insts.Instruction

	// Op1 and Op2 are the ALU inputs read through the (possibly redirected)
	// source registers.
	Op1 uint64
	Op2 uint64

	// VOp1 and VOp2 are the inputs of SIMD instructions.
	VOp1 uint256.Int
	VOp2 uint256.Int
}

// Clear resets the ID/EX register to empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXWBRegister holds state between Execute and Writeback stages.
type EXWBRegister struct {
	Valid bool
	PC    uint64
	Inst  *insts.Instruction

	// Result is the ALU outcome of data-processing instructions.
	Result emu.Result

	// VResult is the outcome of SIMD instructions.
	VResult uint256.Int

	// NextPC is where fetch continues. Redirect is set when it is not the
	// fall-through address.
	NextPC   uint64
	Redirect bool
}

// Clear resets the EX/WB register to empty state.
func (r *EXWBRegister) Clear() {
	*r = EXWBRegister{}
}
