package printfdf

import (
	"errors"
	"io"
)

// IncrementalDecoder decodes a stream delivered in arbitrary chunks. A
// directive split across chunks is held back until the rest arrives.
// An IncrementalDecoder must not be used from multiple goroutines.
type IncrementalDecoder struct {
	dec     *Decoder
	pending []byte
}

// NewIncrementalDecoder returns an IncrementalDecoder using d, or the
// default strict decoder when d is nil.
func NewIncrementalDecoder(d *Decoder) *IncrementalDecoder {
	if d == nil {
		d = defaultDecoder
	}
	return &IncrementalDecoder{dec: d}
}

// Decode decodes the next chunk. With final set, held-back bytes are decoded
// as the end of the stream and their faults reported.
//
// Text decoded before an aborting error is returned together with it. After
// an error the held-back state is dropped.
func (i *IncrementalDecoder) Decode(p []byte, final bool) (string, error) {
	buf := p
	if len(i.pending) > 0 {
		buf = append(i.pending, p...)
		i.pending = nil
	}

	text, n, err := i.dec.decode(buf, final)
	if err != nil {
		return text, err
	}
	if n == len(buf) {
		return text, nil
	}

	rest := buf[n:]
	if len(rest) > i.dec.maxPending {
		// The directive terminator was probably lost; stop waiting for it.
		more, _, err := i.dec.decode(rest, true)
		return text + more, err
	}
	i.pending = append([]byte(nil), rest...)
	return text, nil
}

// Pending returns the number of bytes held back.
func (i *IncrementalDecoder) Pending() int {
	return len(i.pending)
}

// Reset drops held-back bytes.
func (i *IncrementalDecoder) Reset() {
	i.pending = nil
}

// Reader decodes a printf_df byte stream read from an underlying reader.
type Reader struct {
	r   io.Reader
	dec *IncrementalDecoder
	buf []byte
	out []byte
	err error
}

// NewReader returns a Reader producing the decoded text of r.
func NewReader(r io.Reader, d *Decoder) *Reader {
	return &Reader{
		r:   r,
		dec: NewIncrementalDecoder(d),
		buf: make([]byte, 4096),
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		n, err := r.r.Read(r.buf)
		eof := errors.Is(err, io.EOF)
		text, derr := r.dec.Decode(r.buf[:n], eof)
		r.out = append(r.out, text...)
		switch {
		case derr != nil:
			r.err = derr
		case err != nil:
			r.err = err
		}
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// Writer decodes bytes written to it and writes the text to an underlying
// writer. Close flushes a trailing incomplete directive.
type Writer struct {
	w   io.Writer
	dec *IncrementalDecoder
}

// NewWriter returns a Writer emitting decoded text to w.
func NewWriter(w io.Writer, d *Decoder) *Writer {
	return &Writer{w: w, dec: NewIncrementalDecoder(d)}
}

func (w *Writer) Write(p []byte) (int, error) {
	text, err := w.dec.Decode(p, false)
	if text != "" {
		if _, werr := io.WriteString(w.w, text); werr != nil {
			return 0, werr
		}
	}
	if err != nil {
		return len(p), err
	}
	return len(p), nil
}

// Close decodes held-back bytes as the end of the stream. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	text, err := w.dec.Decode(nil, true)
	if text != "" {
		if _, werr := io.WriteString(w.w, text); werr != nil {
			return werr
		}
	}
	return err
}
