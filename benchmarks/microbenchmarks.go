package benchmarks

// GetMicrobenchmarks returns the standard set of fault injection targets.
// Each program exits by returning through X30, which starts at zero.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		functionCalls(),
		branchTaken(),
		countedLoop(),
		vectorLanes(),
	}
}

// 1. Arithmetic Sequential - faults in one register stay in that register
func arithmeticSequential() Benchmark {
	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "8 independent ADDs over X0-X3",
		Program: BuildProgram(
			EncodeADDImm(0, 0, 1, false),
			EncodeADDImm(1, 1, 1, false),
			EncodeADDImm(2, 2, 1, false),
			EncodeADDImm(3, 3, 1, false),
			EncodeADDImm(0, 0, 1, false),
			EncodeADDImm(1, 1, 1, false),
			EncodeADDImm(2, 2, 1, false),
			EncodeADDImm(3, 3, 1, false),
			EncodeRET(),
		),
		ExpectedX0: 2,
	}
}

// 2. Dependency Chain - every fault propagates to the result
func dependencyChain() Benchmark {
	instrs := make([]uint32, 0, 11)
	for i := 0; i < 10; i++ {
		instrs = append(instrs, EncodeADDImm(0, 0, 1, false))
	}
	instrs = append(instrs, EncodeRET())

	return Benchmark{
		Name:        "dependency_chain",
		Description: "10 dependent ADDs (X0 = X0 + 1)",
		Program:     BuildProgram(instrs...),
		ExpectedX0:  10,
	}
}

// 3. Function Calls - the link register is live across the program
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls of add_one (BL + RET pairs)",
		Program: BuildProgram(
			EncodeADDImm(19, 30, 0, false), // save the exit address
			EncodeBL(16),
			EncodeBL(12),
			EncodeBL(8),
			EncodeBR(19),

			// add_one
			EncodeADDImm(0, 0, 1, false),
			EncodeRET(),
		),
		ExpectedX0: 3,
	}
}

// 4. Branch Taken - skipped instructions hide faults on their registers
func branchTaken() Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "3 unconditional branches over dead ADDs",
		Program: BuildProgram(
			EncodeB(8),
			EncodeADDImm(1, 1, 99, false), // skipped
			EncodeADDImm(0, 0, 1, false),

			EncodeB(8),
			EncodeADDImm(1, 1, 99, false), // skipped
			EncodeADDImm(0, 0, 1, false),

			EncodeB(8),
			EncodeADDImm(1, 1, 99, false), // skipped
			EncodeADDImm(0, 0, 1, false),

			EncodeRET(),
		),
		ExpectedX0: 3,
	}
}

// 5. Counted Loop - branch condition faults change the trip count
func countedLoop() Benchmark {
	// for i := 10; i != 0; i-- { sum += i }
	return Benchmark{
		Name:        "counted_loop",
		Description: "10-iteration loop closed by SUBS and B.NE",
		Program: BuildProgram(
			EncodeADDImm(1, 1, 10, false),
			EncodeADDReg(0, 0, 1, false),
			EncodeSUBImm(1, 1, 1, true),
			EncodeBCond(-8, 0b0001), // B.NE
			EncodeRET(),
		),
		ExpectedX0: 55,
	}
}

// 6. Vector Lanes - faults on 128-bit values only surface through the lane read back
func vectorLanes() Benchmark {
	return Benchmark{
		Name:        "vector_lanes",
		Description: "DUP, 2D vector ADD and UMOV of the upper lane",
		Program: BuildProgram(
			EncodeADDImm(1, 1, 3, false),
			EncodeDUP2D(1, 1),
			EncodeVADD2D(2, 1, 1),
			EncodeUMOVD(0, 2, 1),
			EncodeRET(),
		),
		ExpectedX0: 6,
	}
}
