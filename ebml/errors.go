// Package ebml implements the generic Extensible Binary Meta-Language
// element framework that Matroska/WebM is built on: variable-length
// integers, windowed byte sources, and a forward-only element cursor.
package ebml

import "fmt"

// IOError reports a failed read or seek against a ByteSource. Only the
// failed operation is kept (Op); the underlying cause, if any, is
// dropped and Error returns a fixed message, since callers only ever
// need to know the source is no longer trustworthy.
type IOError struct {
	Op string
}

func (e *IOError) Error() string {
	return "Read failed. File might be broken."
}

func newIOError(op string) error {
	return &IOError{Op: op}
}

// NewIOError builds an IOError for a failed read or seek at op. Callers
// outside this package (matroska's block/lacing readers) use this to
// report short reads and buffer overruns as IOError rather than
// fabricating a FormatError with matching text but the wrong type.
func NewIOError(op string) error {
	return newIOError(op)
}

// FormatError reports a structural violation of the EBML or Matroska
// framing: a missing required element, an out-of-range version, a
// reserved encoding, and so on.
type FormatError struct {
	Description string
}

func (e *FormatError) Error() string {
	if e.Description == "" {
		return "File format is unknown or unsupported"
	}
	return e.Description
}

// NewFormatError builds a FormatError with a formatted description.
func NewFormatError(format string, args ...interface{}) error {
	return &FormatError{Description: fmt.Sprintf(format, args...)}
}
