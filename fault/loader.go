package fault

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// New parses one descriptor line, dispatching on its kind token, and
// queues the resulting fault.
func (r *Registry) New(line string) (Fault, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &ParseError{Text: line, Err: errors.Wrap(ErrMalformed, "empty descriptor")}
	}

	kind, _ := ParseKind(fields[0])
	switch kind {
	case KindRegisterDecoding:
		f, err := NewRegisterDecodingFault(r, line)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindIEWStage:
		f, err := NewIEWStageFault(r, line)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	return nil, &ParseError{Text: line, Err: errors.Wrapf(ErrUnknownKind, "%q", fields[0])}
}

// Load reads one descriptor per line from src and queues every fault.
// Blank lines and text after '#' are ignored. The first malformed line
// stops loading with a *ParseError naming it, and none of the faults read
// from src stay queued.
func (r *Registry) Load(src io.Reader) (err error) {
	start := len(r.faults)
	defer func() {
		if err != nil {
			r.discard(start)
		}
	}()

	scanner := bufio.NewScanner(src)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if _, err := r.New(text); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = lineNo
			}
			return err
		}
	}

	return errors.Wrap(scanner.Err(), "failed to read fault descriptors")
}

// LoadFile loads descriptors from a file.
func (r *Registry) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open fault descriptors")
	}
	defer file.Close()

	return r.Load(file)
}
