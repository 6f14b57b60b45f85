package outputlog

import (
	"fmt"
	"io"
	"sync"
	"time"

	"printfdf/pkg/printfdf"
)

// Writer serializes records from any number of sources onto one io.Writer.
// A single goroutine owns the underlying writer until Close is called.
type Writer struct {
	records chan Record
	done    chan struct{}
	decoder *printfdf.Decoder
	now     func() time.Time

	mu  sync.Mutex
	err error
}

// NewWriter returns a Writer writing to w. Stream writers decode with d; a
// nil d uses the default strict decoder.
func NewWriter(w io.Writer, d *printfdf.Decoder) *Writer {
	ow := &Writer{
		records: make(chan Record, 100),
		done:    make(chan struct{}),
		decoder: d,
		now:     func() time.Time { return time.Now().UTC() },
	}

	go func() {
		defer close(ow.done)
		for r := range ow.records {
			if _, err := w.Write(FormatRecord(r)); err != nil {
				ow.setErr(err)
			}
		}
	}()

	return ow
}

func (w *Writer) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

// StreamWriter returns a writer that decodes raw printf_df bytes written to it
// and emits the text as records for source. Directives split across writes are
// held back until complete; Close flushes whatever is left. Close must be
// called before closing w.
func (w *Writer) StreamWriter(source string) (io.WriteCloser, error) {
	if !ValidSource(source) {
		return nil, fmt.Errorf("invalid source name %q", source)
	}
	return &streamWriter{
		source:  source,
		parent:  w,
		decoder: printfdf.NewIncrementalDecoder(w.decoder),
	}, nil
}

// Channel returns a channel for writing already decoded records.
// Do not close the returned channel. Call Close on the writer instead.
func (w *Writer) Channel() chan<- Record {
	return w.records
}

// Close waits for all pending records to be written and returns the first
// error of the underlying writer.
func (w *Writer) Close() error {
	close(w.records)
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

type streamWriter struct {
	source  string
	parent  *Writer
	decoder *printfdf.IncrementalDecoder
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	text, err := sw.decoder.Decode(p, false)
	sw.emit(text)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", sw.source, err)
	}
	return len(p), nil
}

func (sw *streamWriter) Close() error {
	text, err := sw.decoder.Decode(nil, true)
	sw.emit(text)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", sw.source, err)
	}
	return nil
}

func (sw *streamWriter) emit(text string) {
	if text == "" {
		return
	}
	sw.parent.records <- Record{
		Source:    sw.source,
		Timestamp: sw.parent.now(),
		Text:      text,
	}
}
