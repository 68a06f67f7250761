// Package insts provides ARM64 instruction definitions and decoding.
package insts

import "math"

// Op represents an ARM64 opcode.
type Op uint16

// ARM64 opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpAND
	OpORR
	OpEOR
	OpB
	OpBL
	OpBCond
	OpBR
	OpBLR
	OpRET
	OpNOP

	// SIMD
	OpVADD
	OpVSUB
	OpVAND
	OpVORR
	OpVEOR
	OpDUP
	OpUMOV
)

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpAND:     "AND",
	OpORR:     "ORR",
	OpEOR:     "EOR",
	OpB:       "B",
	OpBL:      "BL",
	OpBCond:   "B.cond",
	OpBR:      "BR",
	OpBLR:     "BLR",
	OpRET:     "RET",
	OpNOP:     "NOP",
	OpVADD:    "VADD",
	OpVSUB:    "VSUB",
	OpVAND:    "VAND",
	OpVORR:    "VORR",
	OpVEOR:    "VEOR",
	OpDUP:     "DUP",
	OpUMOV:    "UMOV",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "UNKNOWN"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown    Format = iota
	FormatDPImm             // Data Processing (Immediate)
	FormatDPReg             // Data Processing (Register)
	FormatBranch            // Unconditional Branch (Immediate)
	FormatBranchCond        // Conditional Branch
	FormatBranchReg         // Branch to Register
	FormatSystem            // Hints (NOP)
	FormatSIMDReg           // SIMD Three Same
	FormatSIMDCopy          // SIMD Copy (DUP general, UMOV)
)

// Arrangement is the SIMD vector arrangement specifier.
type Arrangement uint8

// SIMD arrangements.
const (
	Arr8B  Arrangement = iota // 8 bytes (64-bit)
	Arr16B                    // 16 bytes (128-bit)
	Arr4H                     // 4 halfwords (64-bit)
	Arr8H                     // 8 halfwords (128-bit)
	Arr2S                     // 2 words (64-bit)
	Arr4S                     // 4 words (128-bit)
	Arr2D                     // 2 doublewords (128-bit)
)

// arrangement returns the arrangement of 8<<size bit elements filling a
// 128-bit (q) or 64-bit register.
func arrangement(size uint32, q bool) Arrangement {
	if size >= 3 {
		return Arr2D
	}
	a := Arrangement(size * 2)
	if q {
		a++
	}
	return a
}

// ElementBits returns the lane width.
func (a Arrangement) ElementBits() uint {
	return 8 << (a / 2)
}

// VectorBits returns the register width the arrangement covers.
func (a Arrangement) VectorBits() uint {
	if a == Arr2D || a%2 == 1 {
		return 128
	}
	return 64
}

// Lanes returns the number of elements.
func (a Arrangement) Lanes() int {
	return int(a.VectorBits() / a.ElementBits())
}

// Cond represents an ARM64 condition code.
type Cond uint8

// ARM64 condition codes.
const (
	CondEQ Cond = 0b0000 // Z == 1
	CondNE Cond = 0b0001 // Z == 0
	CondCS Cond = 0b0010 // C == 1
	CondCC Cond = 0b0011 // C == 0
	CondMI Cond = 0b0100 // N == 1
	CondPL Cond = 0b0101 // N == 0
	CondVS Cond = 0b0110 // V == 1
	CondVC Cond = 0b0111 // V == 0
	CondHI Cond = 0b1000 // C == 1 && Z == 0
	CondLS Cond = 0b1001 // C == 0 || Z == 1
	CondGE Cond = 0b1010 // N == V
	CondLT Cond = 0b1011 // N != V
	CondGT Cond = 0b1100 // Z == 0 && N == V
	CondLE Cond = 0b1101 // Z == 1 || N != V
	CondAL Cond = 0b1110 // Always
	CondNV Cond = 0b1111 // Always (reserved)
)

// ShiftType represents a shift type for register operands.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00
	ShiftLSR ShiftType = 0b01
	ShiftASR ShiftType = 0b10
	ShiftROR ShiftType = 0b11
)

// RegZero is register 31 read as XZR.
const RegZero uint8 = 31

// RegLink is the link register written by BL and BLR.
const RegLink uint8 = 30

// Instruction represents a decoded ARM64 instruction.
//
// Register operands are kept as explicit lists so that the decode stage can
// redirect them: SrcRegs holds Rn then Rm, DestRegs holds Rd (or X30 for
// branch-and-link).
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format
	Word   uint32 // Raw instruction word

	Is64Bit  bool // true for X registers, false for W registers
	SetFlags bool // true if instruction sets condition flags (S suffix)

	SrcRegs  []uint8
	DestRegs []uint8

	// Immediate operand
	Imm   uint64
	Shift uint8 // Shift amount for immediate

	// Branch fields
	BranchOffset int64 // Signed branch offset in bytes
	Cond         Cond  // Condition code for conditional branches

	// Shift for register operand
	ShiftType   ShiftType
	ShiftAmount uint8

	// SIMD fields. Index is the element UMOV extracts.
	Arrangement Arrangement
	Index       uint8
}

// Name returns the mnemonic, with the S suffix for flag-setting forms.
func (i *Instruction) Name() string {
	name := i.Op.String()
	if i.SetFlags {
		name += "S"
	}
	return name
}

// NumSrcRegs returns the number of source registers.
func (i *Instruction) NumSrcRegs() int { return len(i.SrcRegs) }

// NumDestRegs returns the number of destination registers.
func (i *Instruction) NumDestRegs() int { return len(i.DestRegs) }

// SrcRegIdx returns the n-th source register.
func (i *Instruction) SrcRegIdx(n int) int { return int(i.SrcRegs[n]) }

// DestRegIdx returns the n-th destination register.
func (i *Instruction) DestRegIdx(n int) int { return int(i.DestRegs[n]) }

// SetSrcRegIdx replaces the n-th source register. Registers outside 0-255
// leave the list unchanged.
func (i *Instruction) SetSrcRegIdx(n int, reg int) {
	if reg >= 0 && reg <= math.MaxUint8 {
		i.SrcRegs[n] = uint8(reg)
	}
}

// SetDestRegIdx replaces the n-th destination register. Registers outside
// 0-255 leave the list unchanged.
func (i *Instruction) SetDestRegIdx(n int, reg int) {
	if reg >= 0 && reg <= math.MaxUint8 {
		i.DestRegs[n] = uint8(reg)
	}
}

// Rd returns the destination register, or XZR when there is none.
func (i *Instruction) Rd() uint8 {
	if len(i.DestRegs) == 0 {
		return RegZero
	}
	return i.DestRegs[0]
}

// Rn returns the first source register, or XZR when there is none.
func (i *Instruction) Rn() uint8 {
	if len(i.SrcRegs) == 0 {
		return RegZero
	}
	return i.SrcRegs[0]
}

// Rm returns the second source register, or XZR when there is none.
func (i *Instruction) Rm() uint8 {
	if len(i.SrcRegs) < 2 {
		return RegZero
	}
	return i.SrcRegs[1]
}

// IsSIMD reports whether the instruction operates on vector registers.
func (i *Instruction) IsSIMD() bool {
	return i.Format == FormatSIMDReg || i.Format == FormatSIMDCopy
}

// VectorBits returns the width of the vector register value the instruction
// reads or writes, or 0 for scalar instructions.
func (i *Instruction) VectorBits() uint {
	if !i.IsSIMD() {
		return 0
	}
	return i.Arrangement.VectorBits()
}

// IsBranch reports whether the instruction may redirect the PC.
func (i *Instruction) IsBranch() bool {
	switch i.Format {
	case FormatBranch, FormatBranchCond, FormatBranchReg:
		return true
	}
	return false
}
