package fault

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// base holds the attributes and scheduling state shared by every fault kind.
type base struct {
	reg *Registry

	id      ID
	kind    Kind
	trigger Trigger
	thread  int

	// remaining counts the firings left, every is the re-arm distance.
	remaining int
	every     uint64

	triggered bool
	fired     int
}

func newBase(reg *Registry, kind Kind) base {
	return base{
		reg:       reg,
		id:        -1,
		kind:      kind,
		remaining: 1,
		every:     1,
	}
}

// ID returns the registry index of the fault, or -1 before registration.
func (b *base) ID() ID { return b.id }

// Kind returns the fault kind.
func (b *base) Kind() Kind { return b.kind }

// Stage returns the stage category the fault is queued for.
func (b *base) Stage() Stage { return b.kind.Stage() }

// Trigger returns the point from which the fault may fire next.
func (b *base) Trigger() Trigger { return b.trigger }

// Thread returns the hardware thread the fault applies to.
func (b *base) Thread() int { return b.thread }

// Triggered reports whether the fault has fired at least once.
func (b *base) Triggered() bool { return b.triggered }

// Fired returns the number of firings so far.
func (b *base) Fired() int { return b.fired }

// Describe returns the kind name.
func (b *base) Describe() string { return b.kind.String() }

// Remaining returns the number of firings left.
func (b *base) Remaining() int { return b.remaining }

func (b *base) queued() bool { return b.reg != nil && b.reg.queueOf(b.id) != nil }
func (b *base) tracing() bool { return b.reg != nil && b.reg.cfg.Trace }
func (b *base) contextNow() Context {
	if b.reg == nil {
		return Context{}
	}
	return b.reg.now
}

// Eligible reports whether the fault is still queued, applies to the
// thread and has reached its trigger.
func (b *base) Eligible(ctx Context) bool {
	return b.queued() && ctx.Thread == b.thread && b.trigger.Reached(ctx)
}

// mustBeQueued guards Process against firing a retired or detached fault.
func (b *base) mustBeQueued(op string) {
	if !b.queued() {
		violate(op, "%s %d is not queued", b.kind, b.id)
	}
}

// CheckAndReschedule marks the fault as fired. A fault with firings left
// re-arms its trigger the re-arm distance after the firing point; the last
// firing detaches it from its queue.
func (b *base) CheckAndReschedule() {
	b.triggered = true
	b.fired++

	if b.remaining > 1 {
		b.remaining--
		b.trigger = b.trigger.Next(b.contextNow(), b.every)
		return
	}

	b.remaining = 0
	if b.reg != nil {
		b.reg.retire(b.id)
	}
}

// parseCommon checks the kind token, reads the trigger and the trailing
// options, and returns the kind-specific payload tokens in between.
func (b *base) parseCommon(line string) ([]string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, errors.Wrap(ErrMalformed, "want <kind> <trigger> <payload>")
	}

	kind, ok := ParseKind(fields[0])
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%q", fields[0])
	}
	if kind != b.kind {
		return nil, errors.Wrapf(ErrMalformed, "%s line parsed as %s", kind, b.kind)
	}

	trigger, err := ParseTrigger(fields[1])
	if err != nil {
		return nil, err
	}
	b.trigger = trigger

	payload := fields[2:]
	for len(payload) > 0 {
		last := payload[len(payload)-1]
		name, val, ok := strings.Cut(last, ":")
		if !ok {
			break
		}

		var n int
		switch name {
		case "thread":
			n, err = strconv.Atoi(val)
			b.thread = n
		case "occ":
			n, err = strconv.Atoi(val)
			if err == nil && n < 1 {
				err = errors.New("occurrence must be >= 1")
			}
			b.remaining = n
		case "every":
			n, err = strconv.Atoi(val)
			if err == nil && n < 1 {
				err = errors.New("re-arm distance must be >= 1")
			}
			b.every = uint64(n)
		default:
			return payload, nil
		}

		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "option %q: %v", last, err)
		}
		payload = payload[:len(payload)-1]
	}

	return payload, nil
}

// dumpFields returns the shared fields as logr key/value pairs.
func (b *base) dumpFields() []any {
	return []any{
		"id", b.id,
		"kind", b.kind.String(),
		"stage", b.Stage().String(),
		"trigger", b.trigger.String(),
		"thread", b.thread,
		"remaining", b.remaining,
		"triggered", b.triggered,
		"fired", b.fired,
	}
}
