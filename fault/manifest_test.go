package fault_test

import (
	"github.com/holiman/uint256"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m2fi/fault"
)

var _ = Describe("Manifest", func() {
	Describe("ParsePayload", func() {
		DescribeTable("valid value types",
			func(tok string, want fault.Payload) {
				p, err := fault.ParsePayload(tok)
				Expect(err).NotTo(HaveOccurred())
				Expect(p).To(Equal(want))
			},
			Entry("flip", "Flip:3", fault.Payload{Type: fault.FlipBit, Bit: 3}),
			Entry("mask hex", "Mask:0xff00:0x1200",
				fault.Payload{Type: fault.MaskReplace, Mask: 0xff00, Value: 0x1200}),
			Entry("imm binary", "Imm:0b1010", fault.Payload{Type: fault.Replace, Value: 10}),
			Entry("xor", "Xor:15", fault.Payload{Type: fault.XorMask, Value: 15}),
			Entry("all zero", "All0", fault.Payload{Type: fault.AllZero}),
			Entry("all one", "All1", fault.Payload{Type: fault.AllOne}),
		)

		DescribeTable("malformed value types",
			func(tok string, want error) {
				_, err := fault.ParsePayload(tok)
				Expect(err).To(MatchError(want))
			},
			Entry("unknown", "Stuck:1", fault.ErrUnknownValueType),
			Entry("flip without bit", "Flip", fault.ErrMalformed),
			Entry("flip with text", "Flip:x", fault.ErrMalformed),
			Entry("mask without replacement", "Mask:0xff", fault.ErrMalformed),
			Entry("all one with argument", "All1:3", fault.ErrMalformed),
		)
	})

	Describe("bit flip", func() {
		It("should set bit 3 of zero and clear it again", func() {
			p := fault.Payload{Type: fault.FlipBit, Bit: 3}

			once, err := fault.Manifest(uint8(0b0000), p)
			Expect(err).NotTo(HaveOccurred())
			Expect(once).To(Equal(uint8(0b1000)))

			twice, err := fault.Manifest(once, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(twice).To(Equal(uint8(0b0000)))
		})

		DescribeTable("is self-inverse",
			func(v uint64, bit uint) {
				p := fault.Payload{Type: fault.FlipBit, Bit: bit}
				once, err := fault.Manifest(v, p)
				Expect(err).NotTo(HaveOccurred())
				Expect(once).NotTo(Equal(v))

				twice, err := fault.Manifest(once, p)
				Expect(err).NotTo(HaveOccurred())
				Expect(twice).To(Equal(v))
			},
			Entry("low bit", uint64(0), uint(0)),
			Entry("sign bit", uint64(0x8000_0000_0000_0000), uint(63)),
			Entry("middle bit", uint64(0xDEAD_BEEF), uint(17)),
			Entry("all ones", ^uint64(0), uint(40)),
		)

		It("should flip the top bit of a 32-bit value without sign extension", func() {
			out, err := fault.Manifest(uint32(0x7FFF_FFFF), fault.Payload{Type: fault.FlipBit, Bit: 31})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(uint32(0xFFFF_FFFF)))
			Expect(uint64(out)).To(Equal(uint64(0xFFFF_FFFF)))
		})

		It("should reject a bit beyond the value width", func() {
			out, err := fault.Manifest(uint16(7), fault.Payload{Type: fault.FlipBit, Bit: 16})
			Expect(err).To(MatchError(fault.ErrPayloadWidth))
			Expect(out).To(Equal(uint16(7)))
		})
	})

	Describe("mask replace", func() {
		DescribeTable("takes masked bits from the replacement and the rest from the original",
			func(orig, mask, repl uint64) {
				out, err := fault.Manifest(orig, fault.Payload{
					Type: fault.MaskReplace, Mask: mask, Value: repl,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(out & mask).To(Equal(repl & mask))
				Expect(out &^ mask).To(Equal(orig &^ mask))
			},
			Entry("byte field", uint64(0x1234_5678), uint64(0xFF00), uint64(0xAB00)),
			Entry("scattered bits", uint64(0xFFFF_0000_FFFF_0000), uint64(0x0F0F_0F0F_0F0F_0F0F), uint64(0x1234_5678_9ABC_DEF0)),
			Entry("empty mask", uint64(42), uint64(0), ^uint64(0)),
			Entry("full mask", uint64(42), ^uint64(0), uint64(7)),
		)

		It("should reject a mask wider than the value", func() {
			_, err := fault.Manifest(uint8(1), fault.Payload{
				Type: fault.MaskReplace, Mask: 0x1FF, Value: 0,
			})
			Expect(err).To(MatchError(fault.ErrPayloadWidth))
		})
	})

	Describe("replacement", func() {
		It("should replace the whole value", func() {
			out, err := fault.Manifest(uint32(0xFFFF_FFFF), fault.Payload{Type: fault.Replace, Value: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(uint32(5)))
		})

		It("should not truncate a replacement wider than the value", func() {
			out, err := fault.Manifest(uint8(9), fault.Payload{Type: fault.Replace, Value: 0x100})
			Expect(err).To(MatchError(fault.ErrPayloadWidth))
			Expect(out).To(Equal(uint8(9)))
		})

		It("should set every bit of the target width for All1", func() {
			out16, err := fault.Manifest(uint16(0), fault.Payload{Type: fault.AllOne})
			Expect(err).NotTo(HaveOccurred())
			Expect(out16).To(Equal(uint16(0xFFFF)))

			out64, err := fault.Manifest(uint64(0), fault.Payload{Type: fault.AllOne})
			Expect(err).NotTo(HaveOccurred())
			Expect(out64).To(Equal(^uint64(0)))
		})

		It("should clear the value for All0 and xor for Xor", func() {
			zero, _ := fault.Manifest(uint64(0xABCD), fault.Payload{Type: fault.AllZero})
			Expect(zero).To(BeZero())

			x, _ := fault.Manifest(uint64(0xF0), fault.Payload{Type: fault.XorMask, Value: 0xFF})
			Expect(x).To(Equal(uint64(0x0F)))
		})
	})

	Describe("wide values", func() {
		It("should flip a bit above 64 and restore it", func() {
			v := uint256.NewInt(1)
			p := fault.Payload{Type: fault.FlipBit, Bit: 200}

			once, err := fault.ManifestWide(v, 256, p)
			Expect(err).NotTo(HaveOccurred())
			want := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
			want.Or(want, uint256.NewInt(1))
			Expect(once.Eq(want)).To(BeTrue())
			Expect(v.Eq(uint256.NewInt(1))).To(BeTrue())

			twice, err := fault.ManifestWide(once, 256, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(twice.Eq(v)).To(BeTrue())
		})

		It("should reject a bit beyond a 128-bit vector", func() {
			_, err := fault.ManifestWide(uint256.NewInt(0), 128, fault.Payload{Type: fault.FlipBit, Bit: 128})
			Expect(err).To(MatchError(fault.ErrPayloadWidth))
		})

		It("should keep the high bits on mask replace", func() {
			v := new(uint256.Int).SetAllOne()
			out, err := fault.ManifestWide(v, 256, fault.Payload{
				Type: fault.MaskReplace, Mask: 0xFF, Value: 0x12,
			})
			Expect(err).NotTo(HaveOccurred())

			low := new(uint256.Int).And(out, uint256.NewInt(0xFF))
			Expect(low.Uint64()).To(Equal(uint64(0x12)))
			high := new(uint256.Int).Rsh(out, 8)
			Expect(high.Eq(new(uint256.Int).Rsh(v, 8))).To(BeTrue())
		})

		It("should fill only the vector width for All1", func() {
			out, err := fault.ManifestWide(uint256.NewInt(0), 128, fault.Payload{Type: fault.AllOne})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.BitLen()).To(Equal(128))
		})
	})
})
