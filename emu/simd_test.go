package emu_test

import (
	"github.com/holiman/uint256"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2fi/emu"
	"github.com/sarchlab/m2fi/insts"
)

var _ = Describe("SIMD", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	compute := func(word uint32, op1, op2 uint256.Int) uint256.Int {
		inst := decoder.Decode(word)
		Expect(inst.IsSIMD()).To(BeTrue())
		return emu.ComputeVector(inst, &op1, &op2)
	}

	It("should add bytes without carrying between lanes", func() {
		// ADD V0.16B, V1.16B, V2.16B
		res := compute(0x4E228420, uint256.Int{0x01FF, 0x80}, uint256.Int{0x0101, 0x80})
		Expect(res).To(Equal(uint256.Int{0x0200, 0}))
	})

	It("should clear the upper half for 64-bit arrangements", func() {
		// ADD V0.8B, V1.8B, V2.8B
		res := compute(0x0E228420, uint256.Int{1, 5}, uint256.Int{1, 5})
		Expect(res).To(Equal(uint256.Int{2, 0}))
	})

	It("should subtract words lane by lane", func() {
		// SUB V0.4S, V1.4S, V2.4S
		res := compute(0x6EA28420, uint256.Int{0x0000_0005_0000_0000, 9}, uint256.Int{1, 4})
		Expect(res).To(Equal(uint256.Int{0x0000_0005_FFFF_FFFF, 5}))
	})

	It("should add doublewords", func() {
		// ADD V0.2D, V1.2D, V2.2D
		res := compute(0x4EE28420, uint256.Int{^uint64(0), 1}, uint256.Int{1, 2})
		Expect(res).To(Equal(uint256.Int{0, 3}))
	})

	It("should apply bitwise operations to the whole register", func() {
		// EOR V0.16B, V1.16B, V2.16B
		res := compute(0x6E221C20, uint256.Int{0xF0, 0x0F}, uint256.Int{0xFF, 0x0F})
		Expect(res).To(Equal(uint256.Int{0x0F, 0}))
	})

	It("should broadcast a general-purpose register", func() {
		rf := &emu.RegFile{}
		rf.X[1] = 0x1AB

		// DUP V0.8B, W1
		inst := decoder.Decode(0x0E010C20)
		op1, op2 := emu.VectorOperands(inst, rf)
		res := emu.ComputeVector(inst, &op1, &op2)

		Expect(res).To(Equal(uint256.Int{0xABAB_ABAB_ABAB_ABAB, 0}))
	})

	It("should move a lane to a general-purpose register", func() {
		rf := &emu.RegFile{}
		rf.X[0] = ^uint64(0)
		rf.V[1] = uint256.Int{0x1111_1111_2222_2222, 0x3333_3333_4444_4444}

		// UMOV W0, V1.S[1]
		inst := decoder.Decode(0x0E0C3C20)
		op1, op2 := emu.VectorOperands(inst, rf)
		res := emu.ComputeVector(inst, &op1, &op2)
		emu.WriteBackVector(inst, rf, &res)

		Expect(rf.X[0]).To(Equal(uint64(0x1111_1111)))
		Expect(rf.V[0]).To(BeZero())
	})

	It("should run a vector program", func() {
		mem := emu.NewMemory()
		for i, w := range []uint32{0x91000C21, 0x4E080C21, 0x4EE18422, 0x4E183C40, 0xD65F03C0} {
			mem.Write32(0x1000+uint64(4*i), w)
		}

		e := emu.NewEmulator()
		e.LoadProgram(0x1000, mem)

		Expect(e.Run()).To(Succeed())
		Expect(e.RegFile().X[0]).To(Equal(uint64(6)))
		Expect(e.RegFile().V[1]).To(Equal(uint256.Int{3, 3}))
		Expect(e.RegFile().V[2]).To(Equal(uint256.Int{6, 6}))
		Expect(e.InstructionCount()).To(Equal(uint64(5)))
	})
})

var _ = Describe("Vector registers", func() {
	It("should keep only the low 128 bits", func() {
		rf := &emu.RegFile{}
		rf.WriteVec(4, &uint256.Int{1, 2, 3, 4})

		Expect(rf.ReadVec(4)).To(Equal(uint256.Int{1, 2}))
	})

	It("should ignore registers past V31", func() {
		rf := &emu.RegFile{}
		rf.WriteVec(40, uint256.NewInt(9))

		Expect(rf.ReadVec(40)).To(BeZero())
	})

	It("should report differing vector registers after the scalar state", func() {
		a, b := &emu.RegFile{}, &emu.RegFile{}
		a.X[0] = 1
		a.V[2] = uint256.Int{0, 1}

		Expect(a.Diff(b)).To(Equal([]uint8{0, emu.VecRegBase + 2}))
	})
})
