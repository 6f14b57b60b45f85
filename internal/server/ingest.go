package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"printfdf/internal/hub"
	"printfdf/pkg/outputlog"
	"printfdf/pkg/printfdf"
)

// Ingest decodes the live stream r and broadcasts the text as coming from
// source until r ends or ctx is cancelled. A strict decode fault drops the
// rest of the chunk it occurred in and decoding continues with the next one.
func (s *Server) Ingest(ctx context.Context, r io.Reader, source string) error {
	dec := printfdf.NewIncrementalDecoder(s.decoder)
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, rerr := r.Read(buf)
		final := errors.Is(rerr, io.EOF)
		if n > 0 || final {
			text, err := dec.Decode(buf[:n], final)
			s.publish(source, text)
			if err != nil {
				slog.Warn("Dropping undecodable input", "source", source, "error", err)
			}
		}
		if final {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("reading %s: %w", source, rerr)
		}
	}
}

func (s *Server) publish(source, text string) {
	if text == "" {
		return
	}
	now := time.Now().UTC()
	s.hub.Broadcast(hub.Message{Source: source, Time: now, Text: text})

	s.recMu.Lock()
	defer s.recMu.Unlock()
	if s.recorder != nil {
		s.recorder.Channel() <- outputlog.Record{Source: source, Timestamp: now, Text: text}
	}
}
