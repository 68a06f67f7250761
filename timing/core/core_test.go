package core_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2fi/fault"
	"github.com/sarchlab/m2fi/loader"
	"github.com/sarchlab/m2fi/timing/core"
	"github.com/sarchlab/m2fi/timing/pipeline"
)

// countdown adds one to X0 five times, then returns through X30. The word
// after RET does not decode.
const countdown = `
91001421 // ADD  X1, X1, #5
91000400 // ADD  X0, X0, #1
f1000421 // SUBS X1, X1, #1
54ffffc1 // B.NE 0x1004
d65f03c0 // RET
00000000
`

var _ = Describe("Core", func() {
	var prog *loader.Program

	BeforeEach(func() {
		var err error
		prog, err = loader.LoadHex(strings.NewReader(countdown), loader.DefaultBase)
		Expect(err).NotTo(HaveOccurred())
	})

	session := func(opts ...core.CoreOption) *core.Core {
		opts = append([]core.CoreOption{core.WithLogger(GinkgoLogr)}, opts...)
		return core.NewCore(prog, nil, opts...)
	}

	It("should mask a run without faults", func() {
		c := session()

		res, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Outcome).To(Equal(core.OutcomeMasked))
		Expect(res.Reference).To(Equal(uint64(17)))
		Expect(res.Stats.Instructions).To(Equal(uint64(17)))
		Expect(res.Corrupted).To(BeEmpty())
		Expect(c.Faults.Closed()).To(BeTrue())
	})

	It("should detect silent data corruption", func() {
		c := session()
		Expect(c.LoadFaults(strings.NewReader("IEWStageInjectedFault Inst:0 Result Imm:2\n"))).To(Succeed())

		res, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Outcome).To(Equal(core.OutcomeSDC))
		Expect(res.Corrupted).To(Equal([]uint8{0}))
		Expect(res.Stats.FaultsInjected).To(Equal(uint64(1)))
		Expect(res.Records).To(HaveLen(1))
	})

	It("should mask a fault that leaves the value intact", func() {
		c := session()
		// The immediate is replaced by itself; the second fault waits for
		// an ALU instruction after RET and never fires.
		Expect(c.LoadFaults(strings.NewReader(
			"IEWStageInjectedFault Inst:0 Operand:1 Imm:5\n" +
				"IEWStageInjectedFault Inst:16 Operand:0 Flip:3\n"))).To(Succeed())

		res, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Outcome).To(Equal(core.OutcomeMasked))
		Expect(res.Stats.FaultsInjected).To(Equal(uint64(1)))
		Expect(res.Unfired).To(Equal(1))
	})

	It("should detect a hang", func() {
		c := session(core.WithMaxInstructions(100))
		Expect(c.LoadFaults(strings.NewReader(
			"IEWStageInjectedFault Inst:0 Result Imm:0xffffffffffffffff\n"))).To(Succeed())

		res, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Outcome).To(Equal(core.OutcomeHang))
		Expect(res.Err).To(MatchError(pipeline.ErrMaxInstructions))
		Expect(res.Stats.Instructions).To(Equal(uint64(100)))
	})

	It("should detect a crash", func() {
		c := session()
		// The last ADD X0 writes 0x1014 to X30, so RET lands on a bad word.
		Expect(c.LoadFaults(strings.NewReader(
			"RegisterDecodingInjectedFault Inst:13 Dst:0:30\n" +
				"IEWStageInjectedFault Inst:13 Result Imm:0x1014\n"))).To(Succeed())

		res, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Outcome).To(Equal(core.OutcomeCrash))
		Expect(res.Err).To(MatchError(pipeline.ErrUnknownInstruction))
		Expect(res.Outcome.String()).To(Equal("crash"))
	})

	It("should run faults of its thread only", func() {
		c := session(core.WithThread(1))
		Expect(c.LoadFaults(strings.NewReader(
			"IEWStageInjectedFault Inst:0 Result Imm:2 thread:1\n" +
				"IEWStageInjectedFault Inst:0 Result Imm:3\n"))).To(Succeed())

		res, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Records).To(HaveLen(1))
		Expect(res.Records[0].ID).To(Equal(fault.ID(0)))
		Expect(res.Unfired).To(Equal(1))
	})

	It("should run only once", func() {
		c := session()
		_, err := c.Run()
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Run()
		Expect(err).To(HaveOccurred())
	})

	It("should reject malformed descriptors", func() {
		c := session()
		err := c.LoadFaults(strings.NewReader("IEWStageInjectedFault Inst:0 Nowhere\n"))
		Expect(err).To(MatchError(fault.ErrUnknownSite))
	})
})
