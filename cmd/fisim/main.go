// Package main provides the fisim command. fisim runs a program on the
// timing pipeline with a list of faults armed and reports the outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/m2fi/fault"
	"github.com/sarchlab/m2fi/loader"
	"github.com/sarchlab/m2fi/report"
	"github.com/sarchlab/m2fi/timing/core"
	"github.com/sarchlab/m2fi/timing/latency"
)

var (
	configPath  = flag.String("config", "", "Path to fault configuration (JSON or YAML)")
	faultsPath  = flag.String("faults", "", "Path to fault descriptor file")
	reportPath  = flag.String("report", "", "Write fire records to a .csv or .parquet file")
	latencyPath = flag.String("latency", "", "Path to timing configuration (JSON or YAML)")
	thread      = flag.Int("thread", 0, "Hardware thread the program runs as")
	maxInsts    = flag.Uint64("max-insts", 0, "Instruction limit of the faulty run (0 derives it)")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: fisim [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := newLogger(*verbose)

	if err := run(log, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) logr.Logger {
	opts := funcr.Options{}
	if verbose {
		opts.Verbosity = 1
	}

	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
		} else {
			fmt.Fprintln(os.Stderr, args)
		}
	}, opts)
}

func run(log logr.Logger, programPath string) error {
	cfg := fault.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = fault.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid fault config: %w", err)
	}

	timingConfig := latency.DefaultTimingConfig()
	if *latencyPath != "" {
		var err error
		timingConfig, err = latency.LoadConfig(*latencyPath)
		if err != nil {
			return err
		}
	}

	prog, err := loader.Load(programPath)
	if err != nil {
		return err
	}

	log.V(1).Info("loaded program",
		"path", programPath, "entry", fmt.Sprintf("%#x", prog.EntryPoint),
		"segments", len(prog.Segments))

	opts := []core.CoreOption{
		core.WithLogger(log),
		core.WithLatencyTable(latency.NewTableWithConfig(timingConfig)),
		core.WithThread(*thread),
	}
	if *maxInsts > 0 {
		opts = append(opts, core.WithMaxInstructions(*maxInsts))
	}

	session := core.NewCore(prog, cfg, opts...)
	if *faultsPath != "" {
		if err := session.LoadFaultFile(*faultsPath); err != nil {
			return err
		}
	}

	res, err := session.Run()
	if err != nil {
		return err
	}

	printResult(programPath, res)

	out := *reportPath
	if out == "" {
		out = cfg.ReportPath
	}
	if out != "" {
		if err := report.Save(context.Background(), out, res.Records); err != nil {
			return err
		}
		log.V(1).Info("wrote report", "path", out, "records", len(res.Records))
	}

	return nil
}

func printResult(programPath string, res *core.Result) {
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Outcome: %s\n", res.Outcome)
	if res.Err != nil {
		fmt.Printf("Error: %v\n", res.Err)
	}
	if len(res.Corrupted) > 0 {
		fmt.Printf("Corrupted registers: %v\n", res.Corrupted)
	}
	fmt.Printf("\n")
	fmt.Printf("Reference Instructions: %d\n", res.Reference)
	fmt.Printf("Total Instructions: %d\n", res.Stats.Instructions)
	fmt.Printf("Total Cycles: %d\n", res.Stats.Cycles)
	fmt.Printf("Flushes: %d\n", res.Stats.Flushes)
	fmt.Printf("\n")
	fmt.Printf("Faults:\n")
	fmt.Printf("  Injected: %d\n", res.Stats.FaultsInjected)
	fmt.Printf("  Skipped:  %d\n", res.Stats.FaultsSkipped)
	fmt.Printf("  Unfired:  %d\n", res.Unfired)
}
