// Package main provides the entry point for m2fi, a fault injection
// simulator for an in-order ARM64 pipeline.
//
// For the full CLI, use: go run ./cmd/fisim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("m2fi - Fault Injection on an ARM64 Pipeline")
	fmt.Println("")
	fmt.Println("Usage: fisim [options] <program>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config     Path to fault configuration (JSON or YAML)")
	fmt.Println("  -faults     Path to fault descriptor file")
	fmt.Println("  -report     Write fire records to a .csv or .parquet file")
	fmt.Println("  -latency    Path to timing configuration")
	fmt.Println("  -thread     Hardware thread the program runs as")
	fmt.Println("  -max-insts  Instruction limit of the faulty run")
	fmt.Println("  -v          Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/fisim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/fisim' instead.")
	}
}
