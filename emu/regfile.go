// Package emu provides functional ARM64 emulation.
package emu

import "github.com/holiman/uint256"

// VecRegBase is added to a vector register number when Diff reports it.
const VecRegBase = 64

// RegFile represents the ARM64 register file.
// It contains 31 general-purpose registers (X0-X30), the 32 SIMD registers
// (V0-V31), the stack pointer (SP), and the program counter (PC).
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	// X[31] is the zero register (XZR) which always reads as 0.
	X [32]uint64

	// V holds the 128-bit SIMD registers in the low two limbs.
	V [32]uint256.Int

	// SP is the stack pointer.
	SP uint64

	// PC is the program counter.
	PC uint64

	// PSTATE holds the processor state flags.
	PSTATE PSTATE
}

// PSTATE represents the processor state flags.
type PSTATE struct {
	N bool
	Z bool
	C bool
	V bool
}

// ReadReg reads a register value. Register 31 and above read as 0 (XZR).
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg >= 31 {
		return 0
	}
	return r.X[reg]
}

// ReadRegOrSP reads a register value, treating register 31 as SP (not XZR).
func (r *RegFile) ReadRegOrSP(reg uint8) uint64 {
	if reg == 31 {
		return r.SP
	}
	return r.ReadReg(reg)
}

// WriteReg writes a value to a register. Writes to register 31+ are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg >= 31 {
		return
	}
	r.X[reg] = value
}

// WriteRegOrSP writes a register value, treating register 31 as SP (not XZR).
func (r *RegFile) WriteRegOrSP(reg uint8, value uint64) {
	if reg == 31 {
		r.SP = value
		return
	}
	r.WriteReg(reg, value)
}

// ReadVec reads a SIMD register. Registers 32 and above read as 0.
func (r *RegFile) ReadVec(reg uint8) uint256.Int {
	if reg >= 32 {
		return uint256.Int{}
	}
	return r.V[reg]
}

// WriteVec writes the low 128 bits of v to a SIMD register. Writes to
// register 32+ are ignored.
func (r *RegFile) WriteVec(reg uint8, v *uint256.Int) {
	if reg >= 32 {
		return
	}
	r.V[reg] = uint256.Int{v[0], v[1]}
}

// Diff lists the registers whose values differ from other. SP and PSTATE
// differences are reported as register 31 and 32, SIMD register n as
// VecRegBase+n.
func (r *RegFile) Diff(other *RegFile) []uint8 {
	var regs []uint8
	for i := uint8(0); i < 31; i++ {
		if r.X[i] != other.X[i] {
			regs = append(regs, i)
		}
	}
	if r.SP != other.SP {
		regs = append(regs, 31)
	}
	if r.PSTATE != other.PSTATE {
		regs = append(regs, 32)
	}
	for i := range r.V {
		if r.V[i] != other.V[i] {
			regs = append(regs, VecRegBase+uint8(i))
		}
	}
	return regs
}
