package benchmarks

import "encoding/binary"

// BuildProgram assembles instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// Instruction encoding helpers (64-bit only)

// EncodeADDImm encodes ADD/ADDS immediate: Rd = Rn + imm12
func EncodeADDImm(rd, rn uint8, imm uint16, setFlags bool) uint32 {
	var inst uint32 = 1 << 31 // sf = 1 (64-bit)
	if setFlags {
		inst |= 1 << 29
	}
	inst |= 0b100010 << 23
	inst |= uint32(imm&0xFFF) << 10
	inst |= uint32(rn&0x1F) << 5
	inst |= uint32(rd & 0x1F)
	return inst
}

// EncodeSUBImm encodes SUB/SUBS immediate: Rd = Rn - imm12
func EncodeSUBImm(rd, rn uint8, imm uint16, setFlags bool) uint32 {
	return EncodeADDImm(rd, rn, imm, setFlags) | 1<<30
}

// EncodeCMPImm encodes CMP Xn, #imm, an alias of SUBS XZR, Xn, #imm.
func EncodeCMPImm(rn uint8, imm uint16) uint32 {
	return EncodeSUBImm(31, rn, imm, true)
}

// EncodeADDReg encodes ADD/ADDS register: Rd = Rn + Rm
func EncodeADDReg(rd, rn, rm uint8, setFlags bool) uint32 {
	var inst uint32 = 1 << 31
	if setFlags {
		inst |= 1 << 29
	}
	inst |= 0b01011 << 24
	inst |= uint32(rm&0x1F) << 16
	inst |= uint32(rn&0x1F) << 5
	inst |= uint32(rd & 0x1F)
	return inst
}

// EncodeSUBReg encodes SUB/SUBS register: Rd = Rn - Rm
func EncodeSUBReg(rd, rn, rm uint8, setFlags bool) uint32 {
	return EncodeADDReg(rd, rn, rm, setFlags) | 1<<30
}

// EncodeB encodes an unconditional branch: B offset
func EncodeB(offset int32) uint32 {
	return 0b000101<<26 | uint32(offset/4)&0x3FFFFFF
}

// EncodeBL encodes branch with link: BL offset
func EncodeBL(offset int32) uint32 {
	return 0b100101<<26 | uint32(offset/4)&0x3FFFFFF
}

// EncodeBCond encodes conditional branch: B.cond offset
func EncodeBCond(offset int32, cond uint8) uint32 {
	imm19 := uint32(offset/4) & 0x7FFFF
	return 0b0101010<<25 | imm19<<5 | uint32(cond&0xF)
}

// EncodeBR encodes branch to register: BR Xn
func EncodeBR(rn uint8) uint32 {
	return 0xD61F0000 | uint32(rn&0x1F)<<5
}

// EncodeDUP2D encodes DUP Vd.2D, Xn.
func EncodeDUP2D(vd, rn uint8) uint32 {
	return 0x4E080C00 | uint32(rn&0x1F)<<5 | uint32(vd&0x1F)
}

// EncodeVADD2D encodes ADD Vd.2D, Vn.2D, Vm.2D.
func EncodeVADD2D(vd, vn, vm uint8) uint32 {
	return 0x4EE08400 | uint32(vm&0x1F)<<16 | uint32(vn&0x1F)<<5 | uint32(vd&0x1F)
}

// EncodeUMOVD encodes UMOV Xd, Vn.D[index].
func EncodeUMOVD(rd, vn, index uint8) uint32 {
	return 0x4E083C00 | uint32(index&0x1)<<20 | uint32(vn&0x1F)<<5 | uint32(rd&0x1F)
}

// EncodeRET encodes return: RET (X30)
func EncodeRET() uint32 {
	return 0xD65F0000 | uint32(30)<<5
}
