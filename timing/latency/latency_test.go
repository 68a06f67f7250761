package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2fi/insts"
	"github.com/sarchlab/m2fi/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	Describe("Default Timing Values", func() {
		It("should use M2 estimates", func() {
			config := table.Config()

			Expect(config.ALULatency).To(Equal(uint64(1)))
			Expect(config.BranchLatency).To(Equal(uint64(1)))
			Expect(config.BranchMispredictPenalty).To(Equal(uint64(12)))
			Expect(table.RedirectPenalty()).To(Equal(uint64(12)))
		})
	})

	DescribeTable("GetLatency",
		func(word uint32, want uint64) {
			custom := latency.NewTableWithConfig(&latency.TimingConfig{
				ALULatency: 2, BranchLatency: 3, NOPLatency: 5,
			})
			Expect(custom.GetLatency(decoder.Decode(word))).To(Equal(want))
		},
		Entry("ADD X0, X1, #42", uint32(0x9100A820), uint64(2)),
		Entry("EOR X0, X1, X2", uint32(0xCA020020), uint64(2)),
		Entry("B.EQ", uint32(0x54000040), uint64(3)),
		Entry("RET", uint32(0xD65F03C0), uint64(3)),
		Entry("NOP", uint32(0xD503201F), uint64(5)),
		Entry("ADD V0.2D, V1.2D, V2.2D", uint32(0x4EE28420), uint64(2)),
		Entry("UMOV X0, V1.D[1]", uint32(0x4E183C20), uint64(2)),
		Entry("unknown", uint32(0), uint64(1)),
	)

	It("should default nil instructions to one cycle", func() {
		Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
		Expect(table.IsBranchOp(nil)).To(BeFalse())
	})

	It("should classify branches", func() {
		Expect(table.IsBranchOp(decoder.Decode(0x14000002))).To(BeTrue())
		Expect(table.IsBranchOp(decoder.Decode(0x9100A820))).To(BeFalse())
	})

	Describe("TimingConfig", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should round-trip through JSON and YAML", func() {
			config := latency.DefaultTimingConfig()
			config.BranchMispredictPenalty = 7

			for _, name := range []string{"timing.json", "timing.yaml"} {
				path := filepath.Join(dir, name)
				Expect(config.SaveConfig(path)).To(Succeed())

				loaded, err := latency.LoadConfig(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(Equal(config))
			}
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(dir, "timing.json")
			Expect(os.WriteFile(path, []byte(`{"alu_latency": 4}`), 0644)).To(Succeed())

			config, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(config.ALULatency).To(Equal(uint64(4)))
			Expect(config.BranchLatency).To(Equal(uint64(1)))
		})

		It("should report a missing file", func() {
			_, err := latency.LoadConfig(filepath.Join(dir, "none.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read timing config file")))
		})

		DescribeTable("Validate",
			func(mutate func(*latency.TimingConfig), msg string) {
				config := latency.DefaultTimingConfig()
				mutate(config)
				Expect(config.Validate()).To(MatchError(ContainSubstring(msg)))
			},
			Entry("alu", func(c *latency.TimingConfig) { c.ALULatency = 0 }, "alu_latency"),
			Entry("branch", func(c *latency.TimingConfig) { c.BranchLatency = 0 }, "branch_latency"),
			Entry("nop", func(c *latency.TimingConfig) { c.NOPLatency = 0 }, "nop_latency"),
		)

		It("should clone independently", func() {
			config := latency.DefaultTimingConfig()
			clone := config.Clone()
			clone.ALULatency = 9

			Expect(config.ALULatency).To(Equal(uint64(1)))
		})
	})
})
