package pipeline

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/m2fi/emu"
	"github.com/sarchlab/m2fi/fault"
	"github.com/sarchlab/m2fi/insts"
	"github.com/sarchlab/m2fi/timing/latency"
)

// drainCycles is the number of cycles the last instruction spends behind
// fetch (decode, execute, writeback).
const drainCycles = 3

// ErrMaxInstructions is returned once the instruction limit is reached.
var ErrMaxInstructions = errors.New("max instructions reached")

// ErrUnknownInstruction is returned when a fetched word does not decode.
var ErrUnknownInstruction = errors.New("unknown instruction")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Flushes is the number of front-end redirects by taken branches.
	Flushes uint64
	// FaultsInjected counts faults that manifested on a value.
	FaultsInjected uint64
	// FaultsSkipped counts faults consumed without effect.
	FaultsSkipped uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable sets a custom latency table for instruction timing.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithFaultRegistry connects the decode and execute stages to a fault
// registry. Without one, the pipeline runs fault-free.
func WithFaultRegistry(reg *fault.Registry) PipelineOption {
	return func(p *Pipeline) {
		p.faults = reg
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithThread sets the hardware thread the pipeline runs as. Faults bound to
// other threads never fire on it.
func WithThread(thread int) PipelineOption {
	return func(p *Pipeline) {
		p.thread = thread
	}
}

// WithMaxInstructions limits the run length. A value of 0 means no limit.
func WithMaxInstructions(max uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxInstructions = max
	}
}

// Pipeline is an in-order, single-issue pipeline: Fetch -> Decode ->
// Execute -> Writeback. Each instruction occupies execute for its latency,
// and a taken branch costs the redirect penalty.
type Pipeline struct {
	regFile *emu.RegFile
	memory  *emu.Memory

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	writebackStage *WritebackStage

	ifid IFIDRegister
	idex IDEXRegister
	exwb EXWBRegister

	latencyTable *latency.Table
	faults       *fault.Registry
	log          logr.Logger

	thread          int
	maxInstructions uint64

	cycle  uint64
	stats  Statistics
	halted bool
	err    error
}

// NewPipeline creates a pipeline over the given register file and memory.
// Execution starts at regFile.PC.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		regFile:      regFile,
		memory:       memory,
		latencyTable: latency.NewTable(),
		log:          logr.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.fetchStage = NewFetchStage(memory)
	p.decodeStage = NewDecodeStage(regFile, p.faults)
	p.executeStage = NewExecuteStage(regFile, p.faults)
	p.writebackStage = NewWritebackStage(regFile)

	if p.faults != nil {
		p.faults.AcceptHook(&faultCounter{stats: &p.stats})
	}

	return p
}

// PC returns the address of the next instruction to fetch.
func (p *Pipeline) PC() uint64 {
	return p.regFile.PC
}

// SetPC redirects fetch.
func (p *Pipeline) SetPC(pc uint64) {
	p.regFile.PC = pc
}

// RegFile returns the architectural register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted reports whether the pipeline stopped.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns why the pipeline stopped, or nil for a normal exit.
func (p *Pipeline) Err() error {
	return p.err
}

// Context returns the position of the next instruction to decode.
func (p *Pipeline) Context() fault.Context {
	return fault.Context{
		Cycle:  p.cycle + 1,
		Insts:  p.stats.Instructions,
		Thread: p.thread,
		PC:     p.regFile.PC,
	}
}

// Run steps until the program leaves mapped memory or fails.
func (p *Pipeline) Run() error {
	for p.Step() {
	}
	return p.err
}

// Step moves one instruction through every stage. It returns false once the
// pipeline halted.
func (p *Pipeline) Step() bool {
	if p.halted {
		return false
	}

	if p.maxInstructions > 0 && p.stats.Instructions >= p.maxInstructions {
		p.halt(ErrMaxInstructions)
		return false
	}

	ifid, ok := p.fetchStage.Fetch(p.regFile.PC)
	if !ok {
		p.halt(nil)
		return false
	}
	p.ifid = ifid

	ctx := p.Context()
	p.idex = p.decodeStage.Decode(p.ifid, ctx)

	inst := p.idex.Inst
	if inst.Op == insts.OpUnknown {
		p.halt(errors.Wrapf(ErrUnknownInstruction, "0x%08x at 0x%x", inst.Word, p.idex.PC))
		return false
	}

	ctx.Cycle++
	p.exwb = p.executeStage.Execute(p.idex, ctx)
	p.writebackStage.Writeback(p.exwb)

	p.cycle += p.latencyTable.GetLatency(inst)
	if p.exwb.Redirect {
		p.cycle += p.latencyTable.RedirectPenalty()
		p.stats.Flushes++
	}

	p.stats.Instructions++
	p.stats.Cycles = p.cycle + drainCycles

	p.ifid.Clear()
	p.idex.Clear()
	p.exwb.Clear()

	return true
}

func (p *Pipeline) halt(err error) {
	p.halted = true
	p.err = err

	if err != nil {
		p.log.Error(err, "pipeline halted", "pc", p.regFile.PC, "insts", p.stats.Instructions)
		return
	}
	p.log.V(1).Info("pipeline halted",
		"pc", p.regFile.PC, "insts", p.stats.Instructions, "cycles", p.stats.Cycles)
}

// faultCounter tallies registry firings into the statistics.
type faultCounter struct {
	stats *Statistics
}

func (c *faultCounter) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case fault.HookPosFaultFired:
		c.stats.FaultsInjected++
	case fault.HookPosFaultSkipped:
		c.stats.FaultsSkipped++
	}
}
