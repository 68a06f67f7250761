package insts

import "math/bits"

// nopWord is the ARM64 NOP hint encoding.
const nopWord = 0xD503201F

// Decoder decodes ARM64 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new ARM64 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit ARM64 instruction word. Every call returns a
// fresh Instruction, so callers may modify its register lists.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown, Word: word}

	switch {
	case word == nopWord:
		inst.Op = OpNOP
		inst.Format = FormatSystem
	case d.isDataProcessingImm(word):
		d.decodeDataProcessingImm(word, inst)
	case d.isDataProcessingReg(word):
		d.decodeDataProcessingReg(word, inst)
	case d.isBranchImm(word):
		d.decodeBranchImm(word, inst)
	case d.isBranchCond(word):
		d.decodeBranchCond(word, inst)
	case d.isBranchReg(word):
		d.decodeBranchReg(word, inst)
	case d.isSIMDThreeSame(word):
		d.decodeSIMDThreeSame(word, inst)
	case d.isSIMDCopy(word):
		d.decodeSIMDCopy(word, inst)
	}

	return inst
}

// isDataProcessingImm checks for Add/Sub immediate: bits [28:23] == 0b100010.
func (d *Decoder) isDataProcessingImm(word uint32) bool {
	return (word>>23)&0x3F == 0b100010
}

// decodeDataProcessingImm decodes Add/Sub immediate instructions.
// Format: sf | op | S | 100010 | sh | imm12 | Rn | Rd
func (d *Decoder) decodeDataProcessingImm(word uint32, inst *Instruction) {
	inst.Format = FormatDPImm

	sf := (word >> 31) & 0x1
	op := (word >> 30) & 0x1
	s := (word >> 29) & 0x1
	sh := (word >> 22) & 0x1
	imm12 := (word >> 10) & 0xFFF
	rn := uint8((word >> 5) & 0x1F)
	rd := uint8(word & 0x1F)

	inst.Is64Bit = sf == 1
	inst.SetFlags = s == 1
	inst.SrcRegs = []uint8{rn}
	inst.DestRegs = []uint8{rd}
	inst.Imm = uint64(imm12)

	if sh == 1 {
		inst.Shift = 12
	}

	if op == 0 {
		inst.Op = OpADD
	} else {
		inst.Op = OpSUB
	}
}

// isDataProcessingReg checks for Add/Sub register (bits [28:24] == 0b01011)
// and Logical register (bits [28:24] == 0b01010).
func (d *Decoder) isDataProcessingReg(word uint32) bool {
	op := (word >> 24) & 0x1F
	return op == 0b01011 || op == 0b01010
}

// decodeDataProcessingReg decodes Add/Sub/Logical register instructions.
// Add/Sub format: sf | op | S | 01011 | shift | 0 | Rm | imm6 | Rn | Rd
// Logical format: sf | opc | 01010 | shift | N | Rm | imm6 | Rn | Rd
func (d *Decoder) decodeDataProcessingReg(word uint32, inst *Instruction) {
	inst.Format = FormatDPReg

	sf := (word >> 31) & 0x1
	op := (word >> 24) & 0x1F
	rd := uint8(word & 0x1F)
	rn := uint8((word >> 5) & 0x1F)
	imm6 := (word >> 10) & 0x3F
	rm := uint8((word >> 16) & 0x1F)
	shift := (word >> 22) & 0x3

	inst.Is64Bit = sf == 1
	inst.SrcRegs = []uint8{rn, rm}
	inst.DestRegs = []uint8{rd}
	inst.ShiftType = ShiftType(shift)
	inst.ShiftAmount = uint8(imm6)

	if op == 0b01011 {
		inst.SetFlags = (word>>29)&0x1 == 1
		if (word>>30)&0x1 == 0 {
			inst.Op = OpADD
		} else {
			inst.Op = OpSUB
		}
		return
	}

	switch (word >> 29) & 0x3 {
	case 0b00:
		inst.Op = OpAND
	case 0b01:
		inst.Op = OpORR
	case 0b10:
		inst.Op = OpEOR
	case 0b11:
		inst.Op = OpAND
		inst.SetFlags = true // ANDS
	}
}

// isBranchImm checks for B (bits [31:26] == 0b000101) and BL (0b100101).
func (d *Decoder) isBranchImm(word uint32) bool {
	op := (word >> 26) & 0x3F
	return op == 0b000101 || op == 0b100101
}

// decodeBranchImm decodes B and BL instructions.
// Format: op | 00101 | imm26
func (d *Decoder) decodeBranchImm(word uint32, inst *Instruction) {
	inst.Format = FormatBranch
	inst.BranchOffset = signExtend(word&0x3FFFFFF, 26) * 4

	if (word>>31)&0x1 == 0 {
		inst.Op = OpB
	} else {
		inst.Op = OpBL
		inst.DestRegs = []uint8{RegLink}
	}
}

// isBranchCond checks for B.cond: bits [31:25] == 0b0101010, bit 4 == 0.
func (d *Decoder) isBranchCond(word uint32) bool {
	return (word>>25)&0x7F == 0b0101010 && (word>>4)&0x1 == 0
}

// decodeBranchCond decodes conditional branch instructions.
// Format: 0101010 0 | imm19 | 0 | cond
func (d *Decoder) decodeBranchCond(word uint32, inst *Instruction) {
	inst.Format = FormatBranchCond
	inst.Op = OpBCond
	inst.BranchOffset = signExtend((word>>5)&0x7FFFF, 19) * 4
	inst.Cond = Cond(word & 0xF)
}

// isBranchReg checks for BR, BLR and RET.
// Format: 1101011 0 0 op[1:0] 11111 0000 0 0 Rn 00000
func (d *Decoder) isBranchReg(word uint32) bool {
	hi := (word >> 25) & 0x7F
	mid := (word >> 10) & 0x3F
	lo := word & 0x1F

	return hi == 0b1101011 && mid == 0 && lo == 0
}

// decodeBranchReg decodes BR, BLR, and RET instructions.
func (d *Decoder) decodeBranchReg(word uint32, inst *Instruction) {
	inst.Format = FormatBranchReg
	inst.SrcRegs = []uint8{uint8((word >> 5) & 0x1F)}

	switch (word >> 21) & 0x3 {
	case 0b00:
		inst.Op = OpBR
	case 0b01:
		inst.Op = OpBLR
		inst.DestRegs = []uint8{RegLink}
	case 0b10:
		inst.Op = OpRET
	default:
		inst.Op = OpUnknown
		inst.Format = FormatUnknown
		inst.SrcRegs = nil
	}
}

// isSIMDThreeSame checks for the Advanced SIMD three-same class.
// Format: 0 | Q | U | 01110 | size | 1 | Rm | opcode | 1 | Rn | Rd
func (d *Decoder) isSIMDThreeSame(word uint32) bool {
	return word&0x9F200400 == 0x0E200400
}

// decodeSIMDThreeSame decodes vector ADD, SUB, AND, ORR and EOR. Other
// opcodes of the class stay unknown.
func (d *Decoder) decodeSIMDThreeSame(word uint32, inst *Instruction) {
	q := (word>>30)&0x1 == 1
	u := (word >> 29) & 0x1
	size := (word >> 22) & 0x3
	opcode := (word >> 11) & 0x1F

	switch {
	case opcode == 0b10000 && (size != 3 || q):
		inst.Op = OpVADD
		if u == 1 {
			inst.Op = OpVSUB
		}
		inst.Arrangement = arrangement(size, q)
	case opcode == 0b00011 && u == 0 && size == 0b00:
		inst.Op = OpVAND
		inst.Arrangement = arrangement(0, q)
	case opcode == 0b00011 && u == 0 && size == 0b10:
		inst.Op = OpVORR
		inst.Arrangement = arrangement(0, q)
	case opcode == 0b00011 && u == 1 && size == 0b00:
		inst.Op = OpVEOR
		inst.Arrangement = arrangement(0, q)
	default:
		return
	}

	inst.Format = FormatSIMDReg
	inst.SrcRegs = []uint8{uint8((word >> 5) & 0x1F), uint8((word >> 16) & 0x1F)}
	inst.DestRegs = []uint8{uint8(word & 0x1F)}
}

// isSIMDCopy checks for the Advanced SIMD copy class with op == 0.
// Format: 0 | Q | 0 | 01110000 | imm5 | 0 | imm4 | 1 | Rn | Rd
func (d *Decoder) isSIMDCopy(word uint32) bool {
	return word&0xBFE08400 == 0x0E000400
}

// decodeSIMDCopy decodes DUP (general) and UMOV. The element size is the
// lowest set bit of imm5; the bits above it hold the UMOV lane index.
func (d *Decoder) decodeSIMDCopy(word uint32, inst *Instruction) {
	q := (word>>30)&0x1 == 1
	imm5 := (word >> 16) & 0x1F
	imm4 := (word >> 11) & 0xF
	rn := uint8((word >> 5) & 0x1F)
	rd := uint8(word & 0x1F)

	size := uint32(bits.TrailingZeros32(imm5))
	if size > 3 {
		return
	}

	switch imm4 {
	case 0b0001: // DUP Vd.<T>, <R>n
		if size == 3 && !q {
			return
		}
		inst.Op = OpDUP
		inst.Arrangement = arrangement(size, q)
	case 0b0111: // UMOV <R>d, Vn.<Ts>[index]
		if (size == 3) != q {
			return
		}
		inst.Op = OpUMOV
		inst.Arrangement = arrangement(size, true)
		inst.Index = uint8(imm5 >> (size + 1))
	default:
		return
	}

	inst.Format = FormatSIMDCopy
	inst.Is64Bit = size == 3
	inst.SrcRegs = []uint8{rn}
	inst.DestRegs = []uint8{rd}
}

// signExtend sign-extends the low n bits of v.
func signExtend(v uint32, n uint) int64 {
	shift := 64 - n
	return int64(uint64(v)<<shift) >> shift
}
