// Command benchmark runs the fault injection benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv      Output results in CSV format (default: human-readable)
//	-json     Output results in JSON format
//	-faults   Descriptor file armed in every benchmark
//	-latency  Timing configuration file
//
// Example:
//
//	# Flip bit 3 of the first ALU result of every benchmark
//	echo "IEWStageInjectedFault Inst:0 Result Flip:3" > flip.fi
//	go run ./cmd/benchmark -faults flip.fi
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/m2fi/benchmarks"
	"github.com/sarchlab/m2fi/timing/latency"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	faultsPath := flag.String("faults", "", "Descriptor file armed in every benchmark")
	latencyPath := flag.String("latency", "", "Path to timing configuration")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout

	if *faultsPath != "" {
		data, err := os.ReadFile(*faultsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading faults: %v\n", err)
			os.Exit(1)
		}
		config.Faults = string(data)
	}

	if *latencyPath != "" {
		timing, err := latency.LoadConfig(*latencyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		config.Timing = timing
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		summary := benchmarks.Summarize(results)
		fmt.Println("=== Summary ===")
		fmt.Printf("Benchmarks: %d\n", summary.TotalBenchmarks)
		fmt.Printf("Faults injected: %d\n", summary.TotalInjected)
		for _, o := range []string{"masked", "sdc", "crash", "hang"} {
			fmt.Printf("  %-6s %d\n", o+":", summary.Outcomes[o])
		}
	}
}
