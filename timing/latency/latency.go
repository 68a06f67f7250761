// Package latency provides instruction timing models for cycle-accurate simulation.
//
// The latency values are based on Apple M2 microarchitecture estimates and
// can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/m2fi/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default M2 timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpADD, insts.OpSUB, insts.OpAND, insts.OpORR, insts.OpEOR,
		insts.OpVADD, insts.OpVSUB, insts.OpVAND, insts.OpVORR, insts.OpVEOR,
		insts.OpDUP, insts.OpUMOV:
		return t.config.ALULatency

	case insts.OpB, insts.OpBL, insts.OpBCond, insts.OpBR, insts.OpBLR, insts.OpRET:
		return t.config.BranchLatency

	case insts.OpNOP:
		return t.config.NOPLatency

	default:
		return 1
	}
}

// RedirectPenalty returns the cycles lost when control flow leaves the
// fall-through path.
func (t *Table) RedirectPenalty() uint64 {
	return t.config.BranchMispredictPenalty
}

// IsBranchOp returns true if the instruction is a branch operation.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	return inst != nil && inst.IsBranch()
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
