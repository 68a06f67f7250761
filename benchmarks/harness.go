// Package benchmarks provides a fault injection campaign over small ARM64
// programs.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/m2fi/fault"
	"github.com/sarchlab/m2fi/loader"
	"github.com/sarchlab/m2fi/timing/core"
	"github.com/sarchlab/m2fi/timing/latency"
)

// BenchmarkResult holds the outcome of a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark exercises
	Description string `json:"description"`

	// Outcome classifies the run against its fault-free reference
	Outcome string `json:"outcome"`

	SimulatedCycles     uint64  `json:"simulated_cycles"`
	InstructionsRetired uint64  `json:"instructions_retired"`
	CPI                 float64 `json:"cpi"`
	PipelineFlushes     uint64  `json:"pipeline_flushes"`

	FaultsInjected uint64 `json:"faults_injected"`
	FaultsSkipped  uint64 `json:"faults_skipped"`
	FaultsUnfired  int    `json:"faults_unfired"`

	// Corrupted lists the registers that differ from the reference
	Corrupted []uint8 `json:"corrupted,omitempty"`

	// Error is set when the session could not run or the run crashed
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the session
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark exercises
	Description string

	// Program is the ARM64 machine code, loaded at loader.DefaultBase
	Program []byte

	// ExpectedX0 is X0 after a fault-free run
	ExpectedX0 uint64
}

// Load returns the benchmark as a loadable program.
func (b Benchmark) Load() *loader.Program {
	return &loader.Program{
		EntryPoint: loader.DefaultBase,
		Segments: []loader.Segment{{
			VirtAddr: loader.DefaultBase,
			Data:     b.Program,
			MemSize:  uint64(len(b.Program)),
			Flags:    loader.SegmentFlagRead | loader.SegmentFlagExecute,
		}},
		InitialSP: loader.DefaultStackTop,
	}
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// FaultConfig is the simulator fault configuration (nil for defaults)
	FaultConfig *fault.Config

	// Timing is the pipeline latency configuration (nil for defaults)
	Timing *latency.TimingConfig

	// Faults holds the descriptors armed in every benchmark run
	Faults string

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives session, pipeline and registry logs
	Logger logr.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Output: os.Stdout,
		Logger: logr.Discard(),
	}
}

// Harness runs benchmarks with faults armed and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

// runBenchmark executes a single benchmark in a fresh session.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	opts := []core.CoreOption{
		core.WithLogger(h.config.Logger.WithValues("benchmark", bench.Name)),
	}
	if h.config.Timing != nil {
		opts = append(opts, core.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)))
	}

	session := core.NewCore(bench.Load(), h.config.FaultConfig, opts...)
	if h.config.Faults != "" {
		if err := session.LoadFaults(strings.NewReader(h.config.Faults)); err != nil {
			session.Faults.Close()
			result.Error = err.Error()
			return result
		}
	}

	start := time.Now()
	res, err := session.Run()
	result.WallTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Outcome = res.Outcome.String()
	result.SimulatedCycles = res.Stats.Cycles
	result.InstructionsRetired = res.Stats.Instructions
	result.PipelineFlushes = res.Stats.Flushes
	result.FaultsInjected = res.Stats.FaultsInjected
	result.FaultsSkipped = res.Stats.FaultsSkipped
	result.FaultsUnfired = res.Unfired
	result.Corrupted = res.Corrupted
	if res.Stats.Instructions > 0 {
		result.CPI = float64(res.Stats.Cycles) / float64(res.Stats.Instructions)
	}
	if res.Err != nil {
		result.Error = res.Err.Error()
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Fault Injection Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Outcome: %s\n", r.Outcome)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		if len(r.Corrupted) > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Corrupted: %v\n", r.Corrupted)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Faults ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Injected: %d\n", r.FaultsInjected)
		_, _ = fmt.Fprintf(h.config.Output, "  Skipped:  %d\n", r.FaultsSkipped)
		_, _ = fmt.Fprintf(h.config.Output, "  Unfired:  %d\n", r.FaultsUnfired)
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,outcome,cycles,instructions,cpi,flushes,injected,skipped,unfired")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%.3f,%d,%d,%d,%d\n",
			r.Name,
			r.Outcome,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.PipelineFlushes,
			r.FaultsInjected,
			r.FaultsSkipped,
			r.FaultsUnfired,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Timestamp string            `json:"timestamp"`
	Faults    string            `json:"faults,omitempty"`
	Results   []BenchmarkResult `json:"results"`
	Summary   ReportSummary     `json:"summary"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks int `json:"total_benchmarks"`

	// Outcomes counts benchmarks per outcome
	Outcomes map[string]int `json:"outcomes"`

	TotalCycles       uint64 `json:"total_cycles"`
	TotalInstructions uint64 `json:"total_instructions"`
	TotalInjected     uint64 `json:"total_injected"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{
		TotalBenchmarks: len(results),
		Outcomes:        make(map[string]int),
	}

	for _, r := range results {
		s.TotalCycles += r.SimulatedCycles
		s.TotalInstructions += r.InstructionsRetired
		s.TotalInjected += r.FaultsInjected
		if r.Outcome != "" {
			s.Outcomes[r.Outcome]++
		}
	}

	return s
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Faults:    h.config.Faults,
		Results:   results,
		Summary:   Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
