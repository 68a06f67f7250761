package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2fi/fault"
	"github.com/sarchlab/m2fi/insts"
)

var _ = Describe("Instruction", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	It("should satisfy the fault instruction handle", func() {
		var handle fault.Instruction = decoder.Decode(0x8B020020)
		Expect(handle.Name()).To(Equal("ADD"))
		Expect(handle.NumSrcRegs()).To(Equal(2))
		Expect(handle.NumDestRegs()).To(Equal(1))
	})

	It("should name flag-setting forms", func() {
		Expect(decoder.Decode(0xEB02003F).Name()).To(Equal("SUBS"))
		Expect(decoder.Decode(0xEA020020).Name()).To(Equal("ANDS"))
		Expect(decoder.Decode(0x00000000).Name()).To(Equal("UNKNOWN"))
	})

	It("should redirect register slots in place", func() {
		inst := decoder.Decode(0x8B020020) // ADD X0, X1, X2

		inst.SetSrcRegIdx(1, 7)
		inst.SetDestRegIdx(0, 9)

		Expect(inst.Rn()).To(Equal(uint8(1)))
		Expect(inst.Rm()).To(Equal(uint8(7)))
		Expect(inst.Rd()).To(Equal(uint8(9)))
		Expect(inst.SrcRegIdx(1)).To(Equal(7))
		Expect(inst.DestRegIdx(0)).To(Equal(9))
	})

	It("should ignore registers a slot cannot hold", func() {
		inst := decoder.Decode(0x8B020020) // ADD X0, X1, X2

		inst.SetDestRegIdx(0, 300)
		inst.SetSrcRegIdx(0, -1)

		Expect(inst.DestRegIdx(0)).To(Equal(0))
		Expect(inst.SrcRegIdx(0)).To(Equal(1))
	})

	It("should not share register lists between decodes", func() {
		a := decoder.Decode(0x8B020020)
		b := decoder.Decode(0x8B020020)

		a.SetSrcRegIdx(0, 5)

		Expect(b.Rn()).To(Equal(uint8(1)))
	})

	It("should read XZR for missing operands", func() {
		inst := decoder.Decode(0x14000002) // B +8

		Expect(inst.Rd()).To(Equal(insts.RegZero))
		Expect(inst.Rn()).To(Equal(insts.RegZero))
		Expect(inst.Rm()).To(Equal(insts.RegZero))
		Expect(inst.IsBranch()).To(BeTrue())
	})
})
