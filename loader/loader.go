package loader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/m2fi/emu"
)

// DefaultBase is where hex listings are placed unless they say otherwise.
const DefaultBase = 0x1000

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Load reads an ELF executable or, failing the ELF magic, a hex listing.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open program")
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, len(elfMagic))
	n, _ := io.ReadFull(f, magic)
	if n == len(elfMagic) && bytes.Equal(magic, elfMagic) {
		return LoadELF(path)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "failed to rewind program")
	}

	return LoadHex(f, DefaultBase)
}

// LoadHex reads a listing of 32-bit instruction words in hex, one or more
// per line. "@addr" moves the load address; text after "#" or "//" is
// ignored. The entry point is the first word's address.
func LoadHex(r io.Reader, base uint64) (*Program, error) {
	prog := &Program{EntryPoint: base, InitialSP: DefaultStackTop}
	seg := Segment{VirtAddr: base, Flags: SegmentFlagExecute | SegmentFlagRead}
	entrySet := false

	flush := func(next uint64) {
		if len(seg.Data) > 0 {
			seg.MemSize = uint64(len(seg.Data))
			prog.Segments = append(prog.Segments, seg)
		}
		seg = Segment{VirtAddr: next, Flags: SegmentFlagExecute | SegmentFlagRead}
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.Index(text, "#"); i >= 0 {
			text = text[:i]
		}
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}

		for _, tok := range strings.Fields(text) {
			if addr, ok := strings.CutPrefix(tok, "@"); ok {
				v, err := parseHex(addr, 64)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d: bad address %q", line, tok)
				}
				flush(v)
				continue
			}

			w, err := parseHex(tok, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: bad instruction word %q", line, tok)
			}
			if !entrySet {
				prog.EntryPoint = seg.VirtAddr + uint64(len(seg.Data))
				entrySet = true
			}
			seg.Data = binary.LittleEndian.AppendUint32(seg.Data, uint32(w))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read hex listing")
	}
	flush(0)

	if len(prog.Segments) == 0 {
		return nil, errors.New("hex listing holds no instructions")
	}

	return prog, nil
}

func parseHex(tok string, bitSize int) (uint64, error) {
	tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
	return strconv.ParseUint(strings.ReplaceAll(tok, "_", ""), 16, bitSize)
}

// Memory places every segment into a fresh emulator memory. Zero-filled
// tails are mapped too.
func (p *Program) Memory() *emu.Memory {
	mem := emu.NewMemory()
	for _, seg := range p.Segments {
		mem.LoadProgram(seg.VirtAddr, seg.Data)
		for a := uint64(len(seg.Data)); a < seg.MemSize; a++ {
			mem.Write8(seg.VirtAddr+a, 0)
		}
	}
	return mem
}
