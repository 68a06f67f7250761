package fault

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ValueType selects how a payload transforms the original value.
type ValueType uint8

// Value types.
const (
	FlipBit     ValueType = iota + 1 // v ^ (1 << Bit)
	MaskReplace                      // (v &^ Mask) | (Value & Mask)
	Replace                          // Value
	XorMask                          // v ^ Value
	AllZero                          // 0
	AllOne                           // every bit of the target width set
)

func (t ValueType) String() string {
	switch t {
	case FlipBit:
		return "Flip"
	case MaskReplace:
		return "Mask"
	case Replace:
		return "Imm"
	case XorMask:
		return "Xor"
	case AllZero:
		return "All0"
	case AllOne:
		return "All1"
	default:
		return "Unknown"
	}
}

// Payload is the corruption an IEW-stage fault applies to a value.
type Payload struct {
	Type ValueType
	// Bit is the bit position for FlipBit.
	Bit uint
	// Mask selects the replaced bits for MaskReplace.
	Mask uint64
	// Value is the replacement for MaskReplace and Replace, and the mask for
	// XorMask.
	Value uint64
}

// ParsePayload parses one value-type token: "Flip:<bit>",
// "Mask:<mask>:<replacement>", "Imm:<value>", "Xor:<mask>", "All0" or "All1".
func ParsePayload(tok string) (Payload, error) {
	name, rest, hasArgs := strings.Cut(tok, ":")

	var p Payload
	var err error

	switch name {
	case "Flip":
		p.Type = FlipBit
		var bit uint64
		bit, err = strconv.ParseUint(rest, 10, 16)
		p.Bit = uint(bit)
	case "Mask":
		p.Type = MaskReplace
		mask, repl, ok := strings.Cut(rest, ":")
		if !ok {
			return Payload{}, errors.Wrapf(ErrMalformed, "value %q wants Mask:<mask>:<replacement>", tok)
		}
		if p.Mask, err = parseNumber(mask); err == nil {
			p.Value, err = parseNumber(repl)
		}
	case "Imm":
		p.Type = Replace
		p.Value, err = parseNumber(rest)
	case "Xor":
		p.Type = XorMask
		p.Value, err = parseNumber(rest)
	case "All0", "All1":
		if hasArgs {
			return Payload{}, errors.Wrapf(ErrMalformed, "value %q takes no argument", tok)
		}
		p.Type = AllZero
		if name == "All1" {
			p.Type = AllOne
		}
		return p, nil
	default:
		return Payload{}, errors.Wrapf(ErrUnknownValueType, "%q", tok)
	}

	if !hasArgs || err != nil {
		return Payload{}, errors.Wrapf(ErrMalformed, "value %q", tok)
	}

	return p, nil
}

// parseNumber accepts decimal and 0x/0b/0o prefixed numbers.
func parseNumber(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func (p Payload) String() string {
	switch p.Type {
	case FlipBit:
		return fmt.Sprintf("Flip:%d", p.Bit)
	case MaskReplace:
		return fmt.Sprintf("Mask:%#x:%#x", p.Mask, p.Value)
	case Replace, XorMask:
		return fmt.Sprintf("%s:%#x", p.Type, p.Value)
	default:
		return p.Type.String()
	}
}

// Fits reports whether the payload can be applied to a target of the given
// width in bits without losing any of its bits.
func (p Payload) Fits(width uint) bool {
	switch p.Type {
	case FlipBit:
		return p.Bit < width
	case MaskReplace:
		return fitsWidth(p.Mask, width) && fitsWidth(p.Value&p.Mask, width)
	case Replace, XorMask:
		return fitsWidth(p.Value, width)
	case AllZero, AllOne:
		return true
	default:
		return false
	}
}

func fitsWidth(v uint64, width uint) bool {
	return width >= 64 || v>>width == 0
}

// Word is an unsigned machine word of the simulated architecture.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// WidthOf returns the width in bits of T.
func WidthOf[T Word]() uint {
	var zero T
	return uint(bits.Len64(uint64(^zero)))
}

// Manifest corrupts v according to p. The result keeps the width of T; a
// payload that does not fit T is rejected with ErrPayloadWidth and v is
// returned unchanged.
func Manifest[T Word](v T, p Payload) (T, error) {
	out, err := manifestWord(uint64(v), WidthOf[T](), p)
	return T(out), err
}

func manifestWord(v uint64, width uint, p Payload) (uint64, error) {
	if !p.Fits(width) {
		return v, errors.Wrapf(ErrPayloadWidth, "%s on %d-bit value", p, width)
	}

	switch p.Type {
	case FlipBit:
		return v ^ (1 << p.Bit), nil
	case MaskReplace:
		return (v &^ p.Mask) | (p.Value & p.Mask), nil
	case Replace:
		return p.Value, nil
	case XorMask:
		return v ^ p.Value, nil
	case AllZero:
		return 0, nil
	case AllOne:
		return ^uint64(0) >> (64 - width), nil
	}

	return v, nil
}

// ManifestWide corrupts a vector-register value of up to 256 bits. The
// result is a new Int; v is not modified.
func ManifestWide(v *uint256.Int, width uint, p Payload) (*uint256.Int, error) {
	if width == 0 || width > 256 {
		width = 256
	}
	if !p.Fits(width) {
		return v.Clone(), errors.Wrapf(ErrPayloadWidth, "%s on %d-bit value", p, width)
	}

	out := new(uint256.Int)
	switch p.Type {
	case FlipBit:
		out.Lsh(uint256.NewInt(1), p.Bit)
		out.Xor(out, v)
	case MaskReplace:
		mask := uint256.NewInt(p.Mask)
		keep := new(uint256.Int).Not(mask)
		keep.And(keep, v)
		out.And(uint256.NewInt(p.Value), mask)
		out.Or(out, keep)
	case Replace:
		out.SetUint64(p.Value)
	case XorMask:
		out.Xor(v, uint256.NewInt(p.Value))
	case AllZero:
		out.Clear()
	case AllOne:
		out.SetAllOne()
		out.Rsh(out, 256-width)
	default:
		out.Set(v)
	}

	return out, nil
}
