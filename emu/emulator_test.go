package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2fi/emu"
)

// countdown loads:
//
//	0x1000 ADD  X1, X1, #5
//	0x1004 ADD  X0, X0, #1
//	0x1008 SUBS X1, X1, #1
//	0x100c B.NE 0x1004
//	0x1010 RET
func countdown() *emu.Memory {
	mem := emu.NewMemory()
	for i, w := range []uint32{0x91001421, 0x91000400, 0xF1000421, 0x54FFFFC1, 0xD65F03C0} {
		mem.Write32(0x1000+uint64(4*i), w)
	}
	return mem
}

var _ = Describe("Emulator", func() {
	It("should run until the PC leaves the program", func() {
		e := emu.NewEmulator()
		e.LoadProgram(0x1000, countdown())

		Expect(e.Run()).To(Succeed())

		Expect(e.RegFile().X[0]).To(Equal(uint64(5)))
		Expect(e.RegFile().X[1]).To(BeZero())
		Expect(e.RegFile().PSTATE.Z).To(BeTrue())
		Expect(e.InstructionCount()).To(Equal(uint64(17)))
	})

	It("should stop at the instruction limit", func() {
		e := emu.NewEmulator(emu.WithMaxInstructions(4))
		e.LoadProgram(0x1000, countdown())

		Expect(e.Run()).To(MatchError(emu.ErrMaxInstructions))
		Expect(e.InstructionCount()).To(Equal(uint64(4)))
	})

	It("should reject undecodable words", func() {
		mem := emu.NewMemory()
		mem.Write32(0x1000, 0)

		e := emu.NewEmulator()
		e.LoadProgram(0x1000, mem)

		Expect(e.Run()).To(MatchError(emu.ErrUnknownInstruction))
	})

	It("should seed the stack pointer", func() {
		e := emu.NewEmulator(emu.WithStackPointer(0x8000))
		Expect(e.RegFile().SP).To(Equal(uint64(0x8000)))
	})
})

var _ = Describe("Memory", func() {
	It("should read back little-endian words", func() {
		mem := emu.NewMemory()
		mem.Write32(0x1ffe, 0x11223344)

		Expect(mem.Read8(0x1ffe)).To(Equal(byte(0x44)))
		Expect(mem.Read32(0x1ffe)).To(Equal(uint32(0x11223344)))
		Expect(mem.Mapped(0x2000)).To(BeTrue())
		Expect(mem.Mapped(0x3000)).To(BeFalse())
		Expect(mem.Read32(0x3000)).To(BeZero())
	})
})

var _ = Describe("RegFile", func() {
	It("should list differing registers", func() {
		a, b := &emu.RegFile{}, &emu.RegFile{}
		a.X[3] = 1
		b.SP = 8
		b.PSTATE.Z = true

		Expect(a.Diff(b)).To(Equal([]uint8{3, 31, 32}))
		Expect(a.Diff(a)).To(BeEmpty())
	})
})
