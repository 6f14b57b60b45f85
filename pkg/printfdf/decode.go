package printfdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Name is the codec identifier the decoder is registered under.
	Name = "printf_df"

	// DefaultMarker is the escape byte emitted by the device logger.
	DefaultMarker byte = 0xA5

	// DefaultMaxPending bounds how many bytes an IncrementalDecoder holds
	// back while waiting for the rest of a directive.
	DefaultMaxPending = 4096
)

// Decoder turns printf_df byte streams into text. A Decoder is immutable
// and safe for concurrent use.
type Decoder struct {
	marker     byte
	onError    ErrorHandler
	maxPending int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMarker sets the escape marker byte. It must be outside 7-bit ASCII.
func WithMarker(marker byte) Option {
	return func(d *Decoder) {
		d.marker = marker
	}
}

// WithErrorHandler sets the strategy applied to malformed regions.
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Decoder) {
		d.onError = h
	}
}

// WithMaxPending sets the incremental hold-back limit.
func WithMaxPending(n int) Option {
	return func(d *Decoder) {
		d.maxPending = n
	}
}

var defaultDecoder = &Decoder{
	marker:     DefaultMarker,
	onError:    Strict,
	maxPending: DefaultMaxPending,
}

// NewDecoder returns a Decoder using DefaultMarker and Strict unless
// overridden by opts.
func NewDecoder(opts ...Option) (*Decoder, error) {
	d := *defaultDecoder
	for _, opt := range opts {
		opt(&d)
	}
	if d.marker < utf8.RuneSelf {
		return nil, fmt.Errorf("marker 0x%02X is 7-bit ASCII and would collide with literal text", d.marker)
	}
	if d.onError == nil {
		d.onError = Strict
	}
	if d.maxPending <= 0 {
		return nil, fmt.Errorf("max pending must be positive, got %d", d.maxPending)
	}
	return &d, nil
}

// Marker returns the escape byte.
func (d *Decoder) Marker() byte {
	return d.marker
}

// WithHandler returns a copy of d that applies h to malformed regions.
func (d *Decoder) WithHandler(h ErrorHandler) *Decoder {
	c := *d
	if h == nil {
		h = Strict
	}
	c.onError = h
	return &c
}

// Decode decodes data with DefaultMarker in strict mode.
func Decode(data []byte) (string, int, error) {
	return defaultDecoder.Decode(data)
}

// Encode encodes text in strict mode.
func Encode(text string) ([]byte, int, error) {
	return defaultDecoder.Encode(text)
}

// Decode decodes the whole buffer. On success it returns the text and
// len(data). When the error handler aborts it returns an empty string, the
// offset of the offending region and the handler's error.
func (d *Decoder) Decode(data []byte) (string, int, error) {
	text, n, err := d.decode(data, true)
	if err != nil {
		return "", n, err
	}
	return text, n, nil
}

// run is one marker/directive/argument sequence located in the buffer.
type run struct {
	dir Directive
	arg []byte
	// at is the marker offset, argAt the offset of the first argument byte
	// and end the offset just past the argument (and its NUL for strings).
	at    int
	argAt int
	end   int
}

// decode scans data. When final is false an incomplete trailing directive
// is not an error: decoding stops at its marker and the returned count
// excludes it. The text decoded before an aborting error is still returned.
func (d *Decoder) decode(data []byte, final bool) (string, int, error) {
	var out strings.Builder
	out.Grow(len(data))

	pos := 0
	for pos < len(data) {
		next := bytes.IndexByte(data[pos:], d.marker)
		if next < 0 {
			next = len(data)
		} else {
			next += pos
		}
		if err := d.text(&out, data[pos:next], pos); err != nil {
			return out.String(), errorStart(err, pos), err
		}
		if next == len(data) {
			return out.String(), len(data), nil
		}

		r, fault := d.locate(data, next)
		if fault != nil {
			if !final && fault.incomplete() {
				return out.String(), next, nil
			}
			if err := d.handle(&out, fault); err != nil {
				return out.String(), next, err
			}
			pos = fault.End
			continue
		}

		if err := d.render(&out, r); err != nil {
			return out.String(), errorStart(err, next), err
		}
		pos = r.end
	}
	return out.String(), pos, nil
}

// locate parses the directive starting at the marker data[start] and slices
// out its argument.
func (d *Decoder) locate(data []byte, start int) (run, *Error) {
	i := start + 1
	for i < len(data) && data[i] != 0 {
		if data[i] == '*' {
			// The count byte after '*' may be anything, NUL included.
			i++
		}
		i++
	}
	if i >= len(data) {
		return run{}, &Error{
			Op:        OpDecode,
			Err:       ErrUnterminatedDirective,
			Start:     start,
			End:       len(data),
			Directive: string(data[start+1:]),
		}
	}

	body := data[start+1 : i]
	dir, err := ParseDirective(body)
	if err != nil {
		return run{}, &Error{Op: OpDecode, Err: err, Start: start, End: i + 1, Directive: string(body)}
	}

	argAt := i + 1
	truncated := &Error{Op: OpDecode, Err: ErrTruncatedArgument, Start: start, End: len(data), Directive: dir.Raw}
	if dir.Kind == KindCString {
		n := bytes.IndexByte(data[argAt:], 0)
		if n < 0 {
			return run{}, truncated
		}
		return run{dir: dir, arg: data[argAt : argAt+n], at: start, argAt: argAt, end: argAt + n + 1}, nil
	}
	if len(data)-argAt < dir.Size {
		return run{}, truncated
	}
	return run{dir: dir, arg: data[argAt : argAt+dir.Size], at: start, argAt: argAt, end: argAt + dir.Size}, nil
}

func (d *Decoder) render(out *strings.Builder, r run) error {
	arg := r.arg
	if r.dir.Kind == KindCString {
		var s strings.Builder
		if err := d.text(&s, arg, r.argAt); err != nil {
			return err
		}
		arg = []byte(s.String())
	}
	text, err := r.dir.Render(arg)
	if err != nil {
		return &Error{Op: OpDecode, Err: err, Start: r.at, End: r.end, Directive: r.dir.Raw}
	}
	out.WriteString(text)
	return nil
}

// text copies ASCII bytes to out, handing each non-ASCII byte to the error
// handler. at is the buffer offset of b[0].
func (d *Decoder) text(out *strings.Builder, b []byte, at int) error {
	start := 0
	for i, c := range b {
		if c < utf8.RuneSelf {
			continue
		}
		out.Write(b[start:i])
		if err := d.handle(out, &Error{Op: OpDecode, Err: ErrNonASCII, Start: at + i, End: at + i + 1}); err != nil {
			return err
		}
		start = i + 1
	}
	out.Write(b[start:])
	return nil
}

func (d *Decoder) handle(out *strings.Builder, e *Error) error {
	s, err := d.onError(e)
	if err != nil {
		return err
	}
	out.WriteString(s)
	return nil
}

// errorStart reports where an aborting error begins, falling back to def
// for errors raised by custom handlers.
func errorStart(err error, def int) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Start
	}
	return def
}

// Encode converts text to bytes. Text is passed through unchanged; no binary
// re-encoding takes place. Runes outside ASCII go to the error handler.
func (d *Decoder) Encode(text string) ([]byte, int, error) {
	out := make([]byte, 0, len(text))
	for i, r := range text {
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		s, err := d.onError(&Error{Op: OpEncode, Err: ErrNonASCII, Start: i, End: i + size})
		if err != nil {
			return nil, i, err
		}
		out = append(out, s...)
	}
	return out, len(text), nil
}
