package fault

import (
	"github.com/go-logr/logr"
	"github.com/sarchlab/akita/v4/sim"
)

// Hook positions invoked by the registry.
var (
	// HookPosFaultFired marks a fault that manifested on a value.
	HookPosFaultFired = &sim.HookPos{Name: "FaultFired"}
	// HookPosFaultSkipped marks a fault that was consumed without effect.
	HookPosFaultSkipped = &sim.HookPos{Name: "FaultSkipped"}
)

// Record is one firing of a fault.
type Record struct {
	ID    ID
	Kind  Kind
	Stage Stage
	// Target names the value the fault acted on, e.g. "Src:1" or "Result".
	Target string
	// Inst is the instruction name, when the stage driver exposes it.
	Inst  string
	PC    uint64
	Cycle uint64
	Insts uint64

	Before string
	After  string

	// Skipped is set when the fault did not apply to the value.
	Skipped bool
	Reason  string
}

// Registry owns every fault of a simulation run and the per-stage queues
// they wait in. It is created before the run, handed to the stage drivers,
// and closed when the run ends.
//
// Every firing invokes the registry hooks with HookPosFaultFired or
// HookPosFaultSkipped; the hook context carries the Fault as Item and the
// Record as Detail.
type Registry struct {
	*sim.HookableBase

	cfg Config
	log logr.Logger

	faults []Fault
	member []*Queue
	queues [numStages]*Queue

	now     Context
	records []Record
	closed  bool
}

// RegistryOption is a functional option for configuring the Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger for warnings and trace output.
func WithLogger(log logr.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry creates an empty registry. A nil config selects
// DefaultConfig.
func NewRegistry(cfg *Config, opts ...RegistryOption) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		violate("NewRegistry", "%v", err)
	}

	r := &Registry{
		HookableBase: sim.NewHookableBase(),
		cfg:          *cfg,
		log:          logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, s := range Stages() {
		r.queues[s] = newQueue(r, s)
	}

	return r
}

// Name identifies the registry as a hook domain.
func (r *Registry) Name() string {
	return "FaultRegistry"
}

// Config returns the configuration the registry was built with.
func (r *Registry) Config() Config {
	return r.cfg
}

// Logger returns the registry logger.
func (r *Registry) Logger() logr.Logger {
	return r.log
}

// Queue returns the queue of a stage category.
func (r *Registry) Queue(s Stage) *Queue {
	return r.queues[s]
}

// Len returns the number of faults ever registered.
func (r *Registry) Len() int {
	return len(r.faults)
}

// Fault returns the fault with the given ID, or nil.
func (r *Registry) Fault(id ID) Fault {
	if id < 0 || int(id) >= len(r.faults) {
		return nil
	}
	return r.faults[id]
}

// Faults returns every registered fault, queued or retired.
func (r *Registry) Faults() []Fault {
	return append([]Fault(nil), r.faults...)
}

// Pending returns the number of faults still queued across all stages.
func (r *Registry) Pending() int {
	n := 0
	for _, q := range r.queues {
		n += q.Len()
	}
	return n
}

// HasPending reports whether a fault of the stage may fire at ctx.
func (r *Registry) HasPending(s Stage, ctx Context) bool {
	return r.queues[s].HasPending(ctx)
}

// Eligible returns the faults of the stage that may fire at ctx.
func (r *Registry) Eligible(s Stage, ctx Context) []Fault {
	return r.queues[s].Eligible(ctx)
}

// Advance records the position stage drivers are at. Fire records are
// stamped with it.
func (r *Registry) Advance(ctx Context) {
	r.now = ctx
}

// Now returns the last position passed to Advance.
func (r *Registry) Now() Context {
	return r.now
}

// Records returns the fire history.
func (r *Registry) Records() []Record {
	return append([]Record(nil), r.records...)
}

// Tracing reports whether trace output is enabled.
func (r *Registry) Tracing() bool {
	return r.cfg.Trace
}

// Close ends the run: every fault still queued is detached and no more
// faults can be registered. Faults and records remain readable.
func (r *Registry) Close() {
	if r.closed {
		return
	}

	for _, q := range r.queues {
		for _, f := range q.Faults() {
			q.Remove(f)
		}
	}
	r.closed = true
}

// Closed reports whether Close was called.
func (r *Registry) Closed() bool {
	return r.closed
}

func (r *Registry) adopt(f Fault, b *base) {
	if r.closed {
		violate("Registry.adopt", "registering %s after the run ended", f.Kind())
	}

	b.id = ID(len(r.faults))
	r.faults = append(r.faults, f)
	r.member = append(r.member, nil)
	r.queues[f.Stage()].Insert(f)

	if r.cfg.Trace {
		r.log.V(1).Info("fault registered",
			"id", b.id, "kind", f.Kind().String(), "trigger", b.trigger.String())
	}
}

func (r *Registry) queueOf(id ID) *Queue {
	if id < 0 || int(id) >= len(r.member) {
		return nil
	}
	return r.member[id]
}

func (r *Registry) retire(id ID) {
	if q := r.queueOf(id); q != nil {
		q.Remove(r.faults[id])
	}
}

// discard unqueues and forgets every fault registered from ID n on.
func (r *Registry) discard(n int) {
	for id := len(r.faults) - 1; id >= n; id-- {
		r.retire(ID(id))
	}
	r.faults = r.faults[:n]
	r.member = r.member[:n]
}

func (r *Registry) record(f Fault, rec Record) {
	r.records = append(r.records, rec)

	pos := HookPosFaultFired
	if rec.Skipped {
		pos = HookPosFaultSkipped
		r.log.Info("fault skipped",
			"id", rec.ID, "kind", rec.Kind.String(), "target", rec.Target,
			"inst", rec.Inst, "reason", rec.Reason)
	} else if r.cfg.Trace {
		r.log.V(1).Info("fault fired",
			"id", rec.ID, "kind", rec.Kind.String(), "target", rec.Target,
			"before", rec.Before, "after", rec.After)
	}

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    pos,
		Item:   f,
		Detail: rec,
	})
}
