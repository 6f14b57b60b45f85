package outputlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reader parses records written by Writer.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record. It returns io.EOF when the input ends on a
// record boundary and io.ErrUnexpectedEOF when a record is cut short.
func (rd *Reader) Next() (Record, error) {
	var rec Record

	source, err := rd.r.ReadString(' ')
	if err != nil {
		if errors.Is(err, io.EOF) && source == "" {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("reading source: %w", unexpected(err))
	}
	rec.Source = source[:len(source)-1]
	if !ValidSource(rec.Source) {
		return rec, fmt.Errorf("invalid source %q", rec.Source)
	}

	timestamp, err := rd.r.ReadString(' ')
	if err != nil {
		return rec, fmt.Errorf("reading timestamp: %w", unexpected(err))
	}
	rec.Timestamp, err = time.Parse(TimeLayout, timestamp[:len(timestamp)-1])
	if err != nil {
		return rec, fmt.Errorf("parsing timestamp: %w", err)
	}

	length, err := rd.r.ReadString(':')
	if err != nil {
		return rec, fmt.Errorf("reading length: %w", unexpected(err))
	}
	n, err := strconv.Atoi(length[:len(length)-1])
	if err != nil || n < 0 {
		return rec, fmt.Errorf("parsing length %q", length[:len(length)-1])
	}

	b, err := rd.r.ReadByte()
	if err != nil {
		return rec, fmt.Errorf("reading space after colon: %w", unexpected(err))
	}
	if b != ' ' {
		return rec, fmt.Errorf("expected space after colon, got %q", b)
	}

	text := make([]byte, n)
	if _, err := io.ReadFull(rd.r, text); err != nil {
		return rec, fmt.Errorf("reading text (%d bytes): %w", n, unexpected(err))
	}
	rec.Text = string(text)

	b, err = rd.r.ReadByte()
	if err != nil {
		return rec, fmt.Errorf("reading final newline: %w", unexpected(err))
	}
	if b != '\n' {
		return rec, fmt.Errorf("expected newline separator, got %q", b)
	}
	return rec, nil
}

// All reads the remaining records and concatenates their text per source.
func (rd *Reader) All() (map[string]string, error) {
	result := make(map[string]string)
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result[rec.Source] += rec.Text
	}
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
