package fault_test

import (
	"github.com/holiman/uint256"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2fi/fault"
)

var _ = Describe("IEWStageInjectedFault", func() {
	var (
		cfg *fault.Config
		reg *fault.Registry
	)

	BeforeEach(func() {
		cfg = fault.DefaultConfig()
	})

	JustBeforeEach(func() {
		reg = fault.NewRegistry(cfg, fault.WithLogger(GinkgoLogr))
	})

	newIEW := func(line string) *fault.IEWStageInjectedFault {
		f, err := fault.NewIEWStageFault(reg, line)
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	Describe("Parse", func() {
		It("should parse a result bit flip", func() {
			f := newIEW("IEWStageInjectedFault Inst:40 Result Flip:3")

			Expect(f.Site()).To(Equal(fault.SiteResult))
			Expect(f.Payload()).To(Equal(fault.Payload{Type: fault.FlipBit, Bit: 3}))
			Expect(f.Stage()).To(Equal(fault.StageIEW))
			Expect(f.Describe()).To(Equal("IEWStageInjectedFault"))
		})

		It("should parse an operand mask replace", func() {
			f := newIEW("IEWStageInjectedFault Cycle:12 Operand:1 Mask:0xf0:0x50 occ:3")

			Expect(f.Site()).To(Equal(fault.SiteOperand))
			Expect(f.Operand()).To(Equal(1))
			Expect(f.Payload().Type).To(Equal(fault.MaskReplace))
			Expect(f.Remaining()).To(Equal(3))
		})

		It("should parse a branch fault without a value type", func() {
			f := newIEW("IEWStageInjectedFault Inst:5 Branch")
			Expect(f.Site()).To(Equal(fault.SiteBranch))
		})

		DescribeTable("malformed descriptors",
			func(line string, want error) {
				_, err := fault.NewIEWStageFault(reg, line)
				Expect(err).To(MatchError(want))
				Expect(reg.Len()).To(BeZero())
			},
			Entry("missing site", "IEWStageInjectedFault Inst:5", fault.ErrMalformed),
			Entry("unknown site", "IEWStageInjectedFault Inst:5 Memory Flip:1", fault.ErrUnknownSite),
			Entry("result without value", "IEWStageInjectedFault Inst:5 Result", fault.ErrMalformed),
			Entry("operand without index", "IEWStageInjectedFault Inst:5 Operand Flip:1", fault.ErrMalformed),
			Entry("unknown value type", "IEWStageInjectedFault Inst:5 Result Stuck:1", fault.ErrUnknownValueType),
			Entry("trailing tokens", "IEWStageInjectedFault Inst:5 Result Flip:1 Flip:2", fault.ErrMalformed),
		)
	})

	Describe("Process", func() {
		It("should invert branch conditions exactly", func() {
			t := newIEW("IEWStageInjectedFault Inst:0 Branch")
			f := newIEW("IEWStageInjectedFault Inst:0 Branch")

			Expect(fault.ProcessBool(t, true)).To(BeFalse())
			Expect(fault.ProcessBool(f, false)).To(BeTrue())
		})

		It("should flip bit 3 of a word", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Result Flip:3")
			Expect(fault.ProcessWord(f, uint64(0b0000))).To(Equal(uint64(0b1000)))
		})

		It("should flip bit 3 back when the fault fires twice", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Result Flip:3 occ:2")

			once := fault.ProcessWord(f, uint64(0))
			Expect(once).To(Equal(uint64(0b1000)))
			Expect(reg.Queue(fault.StageIEW).Contains(f)).To(BeTrue())

			twice := fault.ProcessWord(f, once)
			Expect(twice).To(Equal(uint64(0)))
			Expect(reg.Queue(fault.StageIEW).Contains(f)).To(BeFalse())
		})

		It("should keep the width of 32-bit values", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Result All1")
			Expect(fault.ProcessWord(f, uint32(0))).To(Equal(uint32(0xFFFF_FFFF)))
		})

		It("should skip a payload wider than the value", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Result Flip:40")

			Expect(fault.ProcessWord(f, uint32(6))).To(Equal(uint32(6)))
			Expect(f.Triggered()).To(BeTrue())

			records := reg.Records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].Skipped).To(BeTrue())
			Expect(records[0].Before).To(Equal(records[0].After))
		})

		It("should corrupt wide vector values", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Operand:0 Flip:100")

			out := f.Process(fault.WideValue(uint256.NewInt(0), 128))

			Expect(out.Kind()).To(Equal(fault.ValueWide))
			Expect(out.Wide().Eq(new(uint256.Int).Lsh(uint256.NewInt(1), 100))).To(BeTrue())
		})

		It("should record the value before and after", func() {
			reg.Advance(fault.Context{Cycle: 9, Insts: 4, PC: 0x1000})
			f := newIEW("IEWStageInjectedFault Inst:0 Operand:1 Imm:0x2a")

			fault.ProcessWord(f, uint64(1))

			rec := reg.Records()[0]
			Expect(rec.Target).To(Equal("Operand:1"))
			Expect(rec.Before).To(Equal("0x1"))
			Expect(rec.After).To(Equal("0x2a"))
			Expect(rec.Cycle).To(Equal(uint64(9)))
			Expect(rec.Insts).To(Equal(uint64(4)))
			Expect(rec.PC).To(Equal(uint64(0x1000)))
		})

		It("should panic when a branch fault is given a word", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Branch")

			Expect(func() { fault.ProcessWord(f, uint64(1)) }).
				To(PanicWith(Satisfy(isContractViolation)))
			Expect(reg.Records()).To(BeEmpty())
		})

		It("should panic when a result or operand fault is given a condition", func() {
			result := newIEW("IEWStageInjectedFault Inst:0 Result Flip:0")
			operand := newIEW("IEWStageInjectedFault Inst:0 Operand:0 Imm:1")

			Expect(func() { fault.ProcessBool(result, true) }).
				To(PanicWith(Satisfy(isContractViolation)))
			Expect(func() { fault.ProcessBool(operand, false) }).
				To(PanicWith(Satisfy(isContractViolation)))
			Expect(result.Triggered()).To(BeFalse())
		})

		It("should re-arm from the point a late firing happened", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Result Flip:0 occ:3 every:100")

			reg.Advance(fault.Context{Insts: 500})
			fault.ProcessWord(f, uint64(0))

			Expect(f.Trigger()).To(Equal(fault.Trigger{Kind: fault.TriggerInst, At: 600}))
			Expect(f.Eligible(fault.Context{Insts: 501})).To(BeFalse())
			Expect(f.Eligible(fault.Context{Insts: 600})).To(BeTrue())
		})

		It("should re-arm cycle triggers from the firing cycle", func() {
			f := newIEW("IEWStageInjectedFault Cycle:10 Result Flip:0 occ:2 every:4")

			reg.Advance(fault.Context{Cycle: 30, Insts: 7})
			fault.ProcessWord(f, uint64(0))

			Expect(f.Trigger()).To(Equal(fault.Trigger{Kind: fault.TriggerCycle, At: 34}))
		})

		It("should panic on an instruction handle", func() {
			f := newIEW("IEWStageInjectedFault Inst:0 Result Flip:1")
			inst := newFakeInst("add", []int{1}, []int{2})

			Expect(func() { fault.ProcessInst(f, inst) }).
				To(PanicWith(Satisfy(isContractViolation)))
		})

		Context("without branch condition support", func() {
			BeforeEach(func() {
				cfg.ISA = "riscv"
				cfg.BranchConditionFaults = false
			})

			It("should panic on branch conditions", func() {
				f := newIEW("IEWStageInjectedFault Inst:0 Branch")

				Expect(func() { fault.ProcessBool(f, true) }).
					To(PanicWith(Satisfy(isContractViolation)))
			})

			It("should still manifest on words", func() {
				f := newIEW("IEWStageInjectedFault Inst:0 Result Imm:1")
				Expect(fault.ProcessWord(f, uint8(0))).To(Equal(uint8(1)))
			})
		})

		Context("without value fault support", func() {
			BeforeEach(func() {
				cfg.ValueFaults = false
			})

			It("should panic on words and wide values", func() {
				f := newIEW("IEWStageInjectedFault Inst:0 Result Flip:1")

				Expect(func() { fault.ProcessWord(f, uint64(0)) }).
					To(PanicWith(Satisfy(isContractViolation)))
				Expect(func() { f.Process(fault.WideValue(uint256.NewInt(0), 128)) }).
					To(PanicWith(Satisfy(isContractViolation)))
			})
		})
	})
})
