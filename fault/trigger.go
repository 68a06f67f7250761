package fault

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TriggerKind selects the counter a trigger is compared against.
type TriggerKind uint8

// Trigger kinds.
const (
	TriggerInst  TriggerKind = iota // Committed instruction count
	TriggerCycle                    // Simulated cycle count
)

// Trigger is the point in simulated time from which a fault may fire.
type Trigger struct {
	Kind TriggerKind
	At   uint64
}

// ParseTrigger parses "Inst:<n>" or "Cycle:<n>".
func ParseTrigger(tok string) (Trigger, error) {
	name, at, ok := strings.Cut(tok, ":")
	if !ok {
		return Trigger{}, errors.Wrapf(ErrUnknownTrigger, "%q", tok)
	}

	var t Trigger
	switch name {
	case "Inst":
		t.Kind = TriggerInst
	case "Cycle":
		t.Kind = TriggerCycle
	default:
		return Trigger{}, errors.Wrapf(ErrUnknownTrigger, "%q", tok)
	}

	n, err := strconv.ParseUint(at, 10, 64)
	if err != nil {
		return Trigger{}, errors.Wrapf(ErrMalformed, "trigger %q", tok)
	}
	t.At = n

	return t, nil
}

// Reached reports whether ctx is at or past the trigger point.
func (t Trigger) Reached(ctx Context) bool {
	if t.Kind == TriggerCycle {
		return ctx.Cycle >= t.At
	}
	return ctx.Insts >= t.At
}

// Next returns the trigger n units after the later of the trigger point
// and ctx. A fault that fired late re-arms relative to where it fired.
func (t Trigger) Next(ctx Context, n uint64) Trigger {
	now := ctx.Insts
	if t.Kind == TriggerCycle {
		now = ctx.Cycle
	}
	t.At = max(t.At, now) + n
	return t
}

func (t Trigger) String() string {
	if t.Kind == TriggerCycle {
		return "Cycle:" + strconv.FormatUint(t.At, 10)
	}
	return "Inst:" + strconv.FormatUint(t.At, 10)
}
