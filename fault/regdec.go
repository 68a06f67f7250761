package fault

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RegSide selects the register list a register decoding fault rewrites.
type RegSide uint8

// Register sides.
const (
	SrcRegister RegSide = iota
	DstRegister
)

func (s RegSide) String() string {
	if s == DstRegister {
		return "Dst"
	}
	return "Src"
}

// RegisterDecodingInjectedFault models decode logic that misroutes an
// operand or destination: one entry of the instruction's source or
// destination register list is replaced by another register.
type RegisterDecodingInjectedFault struct {
	base

	srcOrDst    RegSide
	regToChange int
	changeToReg int
}

// NewRegisterDecodingFault parses line and queues the fault in reg.
func NewRegisterDecodingFault(reg *Registry, line string) (*RegisterDecodingInjectedFault, error) {
	f := &RegisterDecodingInjectedFault{base: newBase(reg, KindRegisterDecoding)}
	if err := f.Parse(line); err != nil {
		return nil, &ParseError{Text: line, Err: err}
	}

	reg.adopt(f, &f.base)

	return f, nil
}

// SrcOrDst returns the register list the fault rewrites.
func (f *RegisterDecodingInjectedFault) SrcOrDst() RegSide { return f.srcOrDst }

// RegToChange returns the position in the register list that is rewritten.
func (f *RegisterDecodingInjectedFault) RegToChange() int { return f.regToChange }

// ChangeToReg returns the replacement register index.
func (f *RegisterDecodingInjectedFault) ChangeToReg() int { return f.changeToReg }

// Parse reads "<kind> <trigger> (Src|Dst):<index>:<replacement> [options]".
func (f *RegisterDecodingInjectedFault) Parse(line string) error {
	payload, err := f.parseCommon(line)
	if err != nil {
		return err
	}
	if len(payload) != 1 {
		return errors.Wrapf(ErrMalformed, "want one Src|Dst payload, got %q", payload)
	}

	return f.parseRegDec(payload[0])
}

func (f *RegisterDecodingInjectedFault) parseRegDec(s string) error {
	side, rest, ok := strings.Cut(s, ":")
	if !ok {
		return errors.Wrapf(ErrMalformed, "register payload %q", s)
	}

	switch side {
	case "Src":
		f.srcOrDst = SrcRegister
	case "Dst":
		f.srcOrDst = DstRegister
	default:
		return errors.Wrapf(ErrMalformed, "register payload %q must start with Src or Dst", s)
	}

	idx, repl, ok := strings.Cut(rest, ":")
	if !ok {
		return errors.Wrapf(ErrMalformed, "register payload %q wants <index>:<replacement>", s)
	}

	var err error
	if f.regToChange, err = strconv.Atoi(idx); err != nil || f.regToChange < 0 {
		return errors.Wrapf(ErrMalformed, "register position %q", idx)
	}
	if f.changeToReg, err = strconv.Atoi(repl); err != nil || f.changeToReg < 0 {
		return errors.Wrapf(ErrMalformed, "replacement register %q", repl)
	}

	if f.reg != nil && f.changeToReg >= f.reg.cfg.NumRegs {
		return errors.Wrapf(ErrMalformed, "replacement register %d outside the %d architectural registers",
			f.changeToReg, f.reg.cfg.NumRegs)
	}

	return nil
}

// Dump logs the fault fields when tracing is enabled.
func (f *RegisterDecodingInjectedFault) Dump() {
	if !f.tracing() {
		return
	}

	kv := append(f.dumpFields(),
		"srcOrDst", f.srcOrDst.String(),
		"regToChange", f.regToChange,
		"changeToReg", f.changeToReg,
	)
	f.reg.log.V(1).Info("dump", kv...)
}

// Process rewrites the selected register index of the instruction in
// place. A position beyond the instruction's register count, or a
// replacement the instruction cannot encode, is a soft failure: the
// instruction is left unmodified and a warning is logged. The fault is
// consumed either way.
func (f *RegisterDecodingInjectedFault) Process(v Value) Value {
	f.mustBeQueued("RegisterDecodingInjectedFault.Process")
	if v.Kind() != ValueInst || v.Inst() == nil {
		violate("RegisterDecodingInjectedFault.Process",
			"cannot manifest on a %s value", v.Kind())
	}

	inst := v.Inst()
	before := describeInst(inst)
	f.Dump()

	var (
		count = inst.NumSrcRegs()
		get   = inst.SrcRegIdx
		set   = inst.SetSrcRegIdx
	)
	if f.srcOrDst == DstRegister {
		count = inst.NumDestRegs()
		get = inst.DestRegIdx
		set = inst.SetDestRegIdx
	}

	rec := f.newRecord(inst.Name(), before)
	if f.regToChange < count {
		orig := get(f.regToChange)
		set(f.regToChange, f.changeToReg)
		if get(f.regToChange) != f.changeToReg {
			set(f.regToChange, orig)
			rec.Skipped = true
			rec.Reason = errors.Wrapf(ErrRegisterOutOfRange, "%s cannot hold register %d",
				inst.Name(), f.changeToReg).Error()
		}
		rec.After = describeInst(inst)
	} else {
		rec.Skipped = true
		rec.Reason = errors.Wrapf(ErrRegisterOutOfRange, "%s position %d, %s has %d",
			f.srcOrDst, f.regToChange, inst.Name(), count).Error()
		rec.After = before
	}

	f.reg.record(f, rec)
	f.CheckAndReschedule()

	return v
}

func (f *RegisterDecodingInjectedFault) newRecord(inst, before string) Record {
	ctx := f.contextNow()
	return Record{
		ID:     f.id,
		Kind:   f.kind,
		Stage:  f.Stage(),
		Target: f.srcOrDst.String() + ":" + strconv.Itoa(f.regToChange),
		Inst:   inst,
		PC:     ctx.PC,
		Cycle:  ctx.Cycle,
		Insts:  ctx.Insts,
		Before: before,
	}
}
