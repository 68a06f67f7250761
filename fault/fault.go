// Package fault provides run-time fault injection for the timing pipeline.
//
// Faults are described one per line in a descriptor stream, parsed into
// concrete fault kinds and registered in a Registry that keeps one Queue per
// pipeline stage category. Stage drivers ask the registry whether a fault is
// pending for the current cycle, pick the one they want to fire and hand it
// the value under manipulation:
//
//	reg := fault.NewRegistry(fault.DefaultConfig())
//	if err := reg.LoadFile("faults.txt"); err != nil {
//		log.Fatal(err)
//	}
//	for _, f := range reg.Eligible(fault.StageIEW, ctx) {
//		result = fault.ProcessWord(f, result)
//		break
//	}
//
// Firing is single-shot unless a descriptor asks for more occurrences; a
// retired fault leaves its queue but stays in the registry for reporting.
package fault

// Stage is a coarse pipeline phase that a fault targets.
type Stage uint8

// Stage categories.
const (
	StageDecode Stage = iota // Register decoding
	StageIEW                 // Issue, execute and writeback

	numStages
)

// Stages lists every stage category in queue order.
func Stages() []Stage {
	return []Stage{StageDecode, StageIEW}
}

func (s Stage) String() string {
	switch s {
	case StageDecode:
		return "Decode"
	case StageIEW:
		return "IEW"
	default:
		return "Unknown"
	}
}

// Kind tags the concrete fault type of a descriptor.
type Kind uint8

// Fault kinds.
const (
	KindUnknown Kind = iota
	KindRegisterDecoding
	KindIEWStage
)

func (k Kind) String() string {
	switch k {
	case KindRegisterDecoding:
		return "RegisterDecodingInjectedFault"
	case KindIEWStage:
		return "IEWStageInjectedFault"
	default:
		return "UnknownInjectedFault"
	}
}

// Stage returns the stage category faults of this kind are queued in.
func (k Kind) Stage() Stage {
	if k == KindRegisterDecoding {
		return StageDecode
	}
	return StageIEW
}

// ParseKind maps the leading token of a descriptor line to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "RegisterDecodingInjectedFault":
		return KindRegisterDecoding, true
	case "IEWStageInjectedFault":
		return KindIEWStage, true
	default:
		return KindUnknown, false
	}
}

// ID indexes a fault inside the registry that owns it.
type ID int

// Context is the simulated position a stage driver is at when it queries
// the fault queues.
type Context struct {
	// Cycle is the current simulated cycle.
	Cycle uint64
	// Insts is the number of instructions committed so far.
	Insts uint64
	// Thread is the hardware thread the driver is working on.
	Thread int
	// PC is the address of the instruction being processed. It is only
	// recorded, never matched.
	PC uint64
}

// Instruction is the view of a decoded instruction that register decoding
// faults need. Register indices are positions into the instruction's own
// source and destination register lists. A setter given a register the
// instruction cannot encode leaves the list unchanged.
type Instruction interface {
	Name() string
	NumSrcRegs() int
	NumDestRegs() int
	SrcRegIdx(i int) int
	DestRegIdx(i int) int
	SetSrcRegIdx(i int, reg int)
	SetDestRegIdx(i int, reg int)
}

// Fault is the contract every fault kind implements.
type Fault interface {
	// ID returns the registry index of the fault.
	ID() ID
	// Kind returns the concrete fault kind.
	Kind() Kind
	// Stage returns the stage category the fault is queued in.
	Stage() Stage
	// Trigger returns the next trigger point of the fault.
	Trigger() Trigger
	// Thread returns the hardware thread the fault applies to.
	Thread() int
	// Triggered reports whether the fault has fired at least once.
	Triggered() bool
	// Fired returns how many times the fault has fired.
	Fired() int
	// Eligible reports whether the fault is queued and its trigger is
	// reached at ctx.
	Eligible(ctx Context) bool

	// Parse fills the fault from one descriptor line.
	Parse(line string) error
	// Describe returns the kind name.
	Describe() string
	// Dump logs the current field values when tracing is enabled.
	Dump()
	// Process manifests the fault on v and returns the resulting value.
	Process(v Value) Value
	// CheckAndReschedule re-arms the fault or retires it from its queue.
	CheckAndReschedule()
}
