package fault

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Site is the in-flight value an IEW-stage fault is meant for. The stage
// driver uses it to decide which value to hand to Process.
type Site uint8

// Sites.
const (
	SiteResult  Site = iota // Execute result before writeback
	SiteOperand             // Source operand value after register read
	SiteBranch              // Resolved branch condition
)

func (s Site) String() string {
	switch s {
	case SiteOperand:
		return "Operand"
	case SiteBranch:
		return "Branch"
	default:
		return "Result"
	}
}

// IEWStageInjectedFault corrupts a value during issue, execute and
// writeback: an operand, a result, or the condition of a branch.
type IEWStageInjectedFault struct {
	base

	site    Site
	operand int
	payload Payload
}

// NewIEWStageFault parses line and queues the fault in reg.
func NewIEWStageFault(reg *Registry, line string) (*IEWStageInjectedFault, error) {
	f := &IEWStageInjectedFault{base: newBase(reg, KindIEWStage)}
	if err := f.Parse(line); err != nil {
		return nil, &ParseError{Text: line, Err: err}
	}

	reg.adopt(f, &f.base)

	return f, nil
}

// Site returns the value the fault targets.
func (f *IEWStageInjectedFault) Site() Site { return f.site }

// Operand returns the operand position for SiteOperand faults.
func (f *IEWStageInjectedFault) Operand() int { return f.operand }

// Payload returns the corruption applied to word values.
func (f *IEWStageInjectedFault) Payload() Payload { return f.payload }

// Parse reads "<kind> <trigger> <site> [<value>] [options]", where site is
// Result, Operand:<n> or Branch and value is a payload token. Branch faults
// invert the condition and ignore any value given.
func (f *IEWStageInjectedFault) Parse(line string) error {
	payload, err := f.parseCommon(line)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return errors.Wrap(ErrMalformed, "missing IEW site")
	}

	if err := f.parseSite(payload[0]); err != nil {
		return err
	}
	payload = payload[1:]

	switch {
	case len(payload) > 1:
		return errors.Wrapf(ErrMalformed, "unexpected tokens %q", payload[1:])
	case len(payload) == 1:
		f.payload, err = ParsePayload(payload[0])
		return err
	case f.site != SiteBranch:
		return errors.Wrapf(ErrMalformed, "%s site needs a value type", f.site)
	}

	return nil
}

func (f *IEWStageInjectedFault) parseSite(tok string) error {
	name, idx, hasIdx := strings.Cut(tok, ":")

	switch name {
	case "Result":
		f.site = SiteResult
	case "Branch":
		f.site = SiteBranch
	case "Operand":
		f.site = SiteOperand
		n, err := strconv.Atoi(idx)
		if !hasIdx || err != nil || n < 0 {
			return errors.Wrapf(ErrMalformed, "operand site %q wants Operand:<n>", tok)
		}
		f.operand = n
		return nil
	default:
		return errors.Wrapf(ErrUnknownSite, "%q", tok)
	}

	if hasIdx {
		return errors.Wrapf(ErrMalformed, "site %q takes no index", tok)
	}
	return nil
}

// Dump logs the fault fields when tracing is enabled.
func (f *IEWStageInjectedFault) Dump() {
	if !f.tracing() {
		return
	}

	kv := append(f.dumpFields(),
		"site", f.site.String(),
		"operand", f.operand,
		"payload", f.payload.String(),
	)
	f.reg.log.V(1).Info("dump", kv...)
}

// Process corrupts a branch condition by inversion, or a word or wide value
// by its payload. A payload wider than the value is a soft failure and
// leaves the value unchanged. Branch faults accept only conditions, Result
// and Operand faults only words and wide values; any other pairing panics.
func (f *IEWStageInjectedFault) Process(v Value) Value {
	f.mustBeQueued("IEWStageInjectedFault.Process")
	caps := f.reg.cfg

	if (f.site == SiteBranch) != (v.Kind() == ValueBool) {
		violate("IEWStageInjectedFault.Process",
			"%s fault %d cannot manifest on a %s value", f.site, f.id, v.Kind())
	}

	switch v.Kind() {
	case ValueBool:
		if !caps.BranchConditionFaults {
			violate("IEWStageInjectedFault.Process",
				"branch condition faults are not supported on %s", caps.ISA)
		}
		out := BoolValue(!v.Bool())
		f.finish(v, out, nil)
		return out

	case ValueWord:
		if !caps.ValueFaults {
			violate("IEWStageInjectedFault.Process",
				"value faults are not supported on %s", caps.ISA)
		}
		word, err := manifestWord(v.Word(), v.Width(), f.payload)
		out := v
		out.word = word
		f.finish(v, out, err)
		return out

	case ValueWide:
		if !caps.ValueFaults {
			violate("IEWStageInjectedFault.Process",
				"value faults are not supported on %s", caps.ISA)
		}
		wide, err := ManifestWide(&v.wide, v.Width(), f.payload)
		out := WideValue(wide, v.Width())
		f.finish(v, out, err)
		return out
	}

	violate("IEWStageInjectedFault.Process", "cannot manifest on a %s value", v.Kind())
	return v
}

func (f *IEWStageInjectedFault) finish(in, out Value, err error) {
	f.Dump()

	ctx := f.contextNow()
	target := f.site.String()
	if f.site == SiteOperand {
		target += ":" + strconv.Itoa(f.operand)
	}

	rec := Record{
		ID:     f.id,
		Kind:   f.kind,
		Stage:  f.Stage(),
		Target: target,
		PC:     ctx.PC,
		Cycle:  ctx.Cycle,
		Insts:  ctx.Insts,
		Before: in.String(),
		After:  out.String(),
	}
	if err != nil {
		rec.Skipped = true
		rec.Reason = err.Error()
	}

	f.reg.record(f, rec)
	f.CheckAndReschedule()
}
