package printfdf

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedDirective means the buffer ended before the NUL that
	// closes a directive.
	ErrUnterminatedDirective = errors.New("unterminated directive")

	// ErrUnknownConversion means the directive is empty, does not end in a
	// recognized conversion character, or does not follow printf syntax.
	ErrUnknownConversion = errors.New("unknown conversion")

	// ErrTruncatedArgument means fewer argument bytes remain than the
	// conversion requires, or a string argument has no NUL terminator.
	ErrTruncatedArgument = errors.New("truncated argument")

	// ErrNonASCII means a text byte (literal or string argument) is outside
	// 7-bit ASCII, or, when encoding, a rune cannot be represented in ASCII.
	ErrNonASCII = errors.New("non-ascii text")
)

// Op names the direction in which an Error happened.
type Op string

const (
	OpDecode Op = "decode"
	OpEncode Op = "encode"
)

// Error describes one malformed region of the input.
//
// Start is the offset of the first byte of the region (the marker for
// directive faults) and End is the offset at which processing resumes when
// an ErrorHandler chooses to continue. Offsets are relative to the buffer
// handed to the decode or encode call.
type Error struct {
	Op        Op
	Err       error
	Start     int
	End       int
	Directive string
}

func (e *Error) Error() string {
	if e.Directive != "" {
		return fmt.Sprintf("printf_df %s: %v at offset %d (directive %q)", e.Op, e.Err, e.Start, e.Directive)
	}
	return fmt.Sprintf("printf_df %s: %v at offset %d", e.Op, e.Err, e.Start)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// incomplete reports whether the fault may disappear once more input arrives.
func (e *Error) incomplete() bool {
	return errors.Is(e.Err, ErrUnterminatedDirective) || errors.Is(e.Err, ErrTruncatedArgument)
}

// ErrorHandler decides what happens to a malformed region. It returns the
// text to emit in place of the region, or a non-nil error to abort the call.
type ErrorHandler func(*Error) (string, error)

// Strict aborts on the first malformed region.
func Strict(e *Error) (string, error) {
	return "", e
}

// Replace substitutes U+FFFD for a malformed decode region and '?' for an
// unencodable rune.
func Replace(e *Error) (string, error) {
	if e.Op == OpEncode {
		return "?", nil
	}
	return "\uFFFD", nil
}

// Ignore drops malformed regions silently.
func Ignore(*Error) (string, error) {
	return "", nil
}
