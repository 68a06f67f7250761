package fault

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
	"github.com/pkg/errors"
)

// Configuration errors returned while parsing descriptors.
var (
	ErrUnknownKind      = errors.New("unknown fault kind")
	ErrUnknownTrigger   = errors.New("unknown fault trigger")
	ErrUnknownValueType = errors.New("unknown fault value type")
	ErrUnknownSite      = errors.New("unknown fault site")
	ErrMalformed        = errors.New("malformed fault descriptor")
)

// Soft failures. They are recorded against the fault and logged, the
// simulation continues with the original value.
var (
	ErrRegisterOutOfRange = errors.New("register index out of range")
	ErrPayloadWidth       = errors.New("payload does not fit the target width")
)

// ParseError reports a descriptor line that does not match its grammar.
type ParseError struct {
	// Line is the 1-based line number in the stream, 0 for a single line.
	Line int
	// Text is the offending descriptor.
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("fault descriptor line %d %q: %v", e.Line, e.Text, e.Err)
	}
	return fmt.Sprintf("fault descriptor %q: %v", e.Text, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Cause returns the underlying error for errors.Cause.
func (e *ParseError) Cause() error { return e.Err }

// ContractViolation describes a wiring bug between a stage driver and the
// fault subsystem: an unsupported value routed to a fault, a double queue
// registration, or a capability the configured ISA does not have.
type ContractViolation struct {
	Op     string
	Reason string
}

func (c *ContractViolation) Error() string {
	return "fault: contract violation in " + c.Op + ": " + c.Reason
}

// violate panics with a stack-carrying ContractViolation.
func violate(op, format string, args ...any) {
	panic(goerrors.Wrap(&ContractViolation{
		Op:     op,
		Reason: fmt.Sprintf(format, args...),
	}, 1))
}

// AsContractViolation extracts the ContractViolation from a recovered panic
// value.
func AsContractViolation(recovered any) (*ContractViolation, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}

	var cv *ContractViolation
	if errors.As(err, &cv) {
		return cv, true
	}

	if ge, ok := err.(*goerrors.Error); ok {
		cv, ok = ge.Err.(*ContractViolation)
		return cv, ok
	}

	return nil, false
}
