// Package core provides the simulation session of one fault injection run.
// It runs the program once on the functional emulator for reference state
// and once on the pipeline with the faults armed, then classifies the run.
package core

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/sarchlab/m2fi/emu"
	"github.com/sarchlab/m2fi/fault"
	"github.com/sarchlab/m2fi/loader"
	"github.com/sarchlab/m2fi/timing/latency"
	"github.com/sarchlab/m2fi/timing/pipeline"
)

// A faulty run may retire this many times the reference instruction count,
// plus hangSlack, before it is declared hung.
const (
	hangFactor = 10
	hangSlack  = 1000
)

// referenceLimit bounds the fault-free run of programs that never exit.
const referenceLimit = 1 << 26

// Outcome classifies a run against the fault-free reference.
type Outcome int

// Run outcomes.
const (
	// OutcomeMasked means the final architectural state matches.
	OutcomeMasked Outcome = iota
	// OutcomeSDC means the run finished with corrupted state.
	OutcomeSDC
	// OutcomeCrash means the run stopped on an execution error.
	OutcomeCrash
	// OutcomeHang means the run exceeded the instruction limit.
	OutcomeHang
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMasked:
		return "masked"
	case OutcomeSDC:
		return "sdc"
	case OutcomeCrash:
		return "crash"
	case OutcomeHang:
		return "hang"
	}
	return "unknown"
}

// Stats holds performance statistics for the core.
type Stats struct {
	Cycles         uint64
	Instructions   uint64
	Flushes        uint64
	FaultsInjected uint64
	FaultsSkipped  uint64
}

// Result summarizes one run.
type Result struct {
	Outcome Outcome
	Stats   Stats

	// Reference is the instruction count of the fault-free run.
	Reference uint64

	// Corrupted lists registers that differ from the reference; 31 is SP,
	// 32 the condition flags and emu.VecRegBase+n the SIMD register Vn.
	Corrupted []uint8

	// Err is the execution error behind a crash or hang.
	Err error

	Records []fault.Record

	// Unfired counts faults still queued when the run ended.
	Unfired int
}

// CoreOption is a functional option for configuring the Core.
type CoreOption func(*Core)

// WithLogger sets the logger shared by the session, pipeline and registry.
func WithLogger(log logr.Logger) CoreOption {
	return func(c *Core) {
		c.log = log
	}
}

// WithLatencyTable sets the pipeline latency table.
func WithLatencyTable(table *latency.Table) CoreOption {
	return func(c *Core) {
		c.latencyTable = table
	}
}

// WithMaxInstructions bounds the faulty run. By default the bound derives
// from the reference run.
func WithMaxInstructions(max uint64) CoreOption {
	return func(c *Core) {
		c.maxInstructions = max
	}
}

// WithThread sets the hardware thread the program runs as.
func WithThread(thread int) CoreOption {
	return func(c *Core) {
		c.thread = thread
	}
}

// Core owns the fault registry of one run.
type Core struct {
	// Faults is the registry the pipeline consults. It is closed by Run.
	Faults *fault.Registry

	prog *loader.Program
	log  logr.Logger

	latencyTable    *latency.Table
	maxInstructions uint64
	thread          int

	done bool
}

// NewCore creates a session for prog. A nil cfg selects the default fault
// configuration.
func NewCore(prog *loader.Program, cfg *fault.Config, opts ...CoreOption) *Core {
	c := &Core{
		prog:         prog,
		log:          logr.Discard(),
		latencyTable: latency.NewTable(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Faults = fault.NewRegistry(cfg, fault.WithLogger(c.log.WithName("fault")))

	return c
}

// LoadFaults registers the descriptors read from r.
func (c *Core) LoadFaults(r io.Reader) error {
	return c.Faults.Load(r)
}

// LoadFaultFile registers the descriptors of a file.
func (c *Core) LoadFaultFile(path string) error {
	return c.Faults.LoadFile(path)
}

// Run executes the reference and the faulty run. A session runs once.
func (c *Core) Run() (*Result, error) {
	if c.done {
		return nil, errors.New("session already ran")
	}
	c.done = true
	defer c.Faults.Close()

	golden := emu.NewEmulator(
		emu.WithStackPointer(c.prog.InitialSP),
		emu.WithMaxInstructions(referenceLimit))
	golden.LoadProgram(c.prog.EntryPoint, c.prog.Memory())
	if err := golden.Run(); err != nil {
		return nil, errors.Wrap(err, "reference run failed")
	}

	limit := c.maxInstructions
	if limit == 0 {
		limit = golden.InstructionCount()*hangFactor + hangSlack
	}

	regFile := &emu.RegFile{PC: c.prog.EntryPoint, SP: c.prog.InitialSP}
	pipe := pipeline.NewPipeline(regFile, c.prog.Memory(),
		pipeline.WithFaultRegistry(c.Faults),
		pipeline.WithLatencyTable(c.latencyTable),
		pipeline.WithLogger(c.log.WithName("pipeline")),
		pipeline.WithThread(c.thread),
		pipeline.WithMaxInstructions(limit),
	)
	runErr := pipe.Run()

	ps := pipe.Stats()
	res := &Result{
		Stats: Stats{
			Cycles:         ps.Cycles,
			Instructions:   ps.Instructions,
			Flushes:        ps.Flushes,
			FaultsInjected: ps.FaultsInjected,
			FaultsSkipped:  ps.FaultsSkipped,
		},
		Reference: golden.InstructionCount(),
		Err:       runErr,
		Records:   c.Faults.Records(),
		Unfired:   c.Faults.Pending(),
	}

	switch {
	case errors.Is(runErr, pipeline.ErrMaxInstructions):
		res.Outcome = OutcomeHang
	case runErr != nil:
		res.Outcome = OutcomeCrash
	default:
		res.Corrupted = regFile.Diff(golden.RegFile())
		if len(res.Corrupted) > 0 {
			res.Outcome = OutcomeSDC
		}
	}

	if res.Unfired > 0 {
		c.log.Info("faults never fired", "count", res.Unfired)
	}
	c.log.V(1).Info("run finished",
		"outcome", res.Outcome.String(), "insts", ps.Instructions, "cycles", ps.Cycles,
		"injected", ps.FaultsInjected, "skipped", ps.FaultsSkipped)

	return res, nil
}
