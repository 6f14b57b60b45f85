package ptyexec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"printfdf/pkg/printfdf"
)

// Run runs name under a pseudo terminal and writes its decoded output to out.
// When stdin is a terminal it is switched to raw mode and forwarded to the
// command. Decode errors from a strict decoder stop the copy but not the
// command.
func Run(ctx context.Context, name string, args []string, out io.Writer, d *printfdf.Decoder) (int, error) {
	var opts Options
	stdin := int(os.Stdin.Fd())
	interactive := term.IsTerminal(stdin)
	if interactive {
		if cols, rows, err := term.GetSize(stdin); err == nil {
			opts.Rows, opts.Cols = uint16(rows), uint16(cols)
		}
	}

	s, err := Start(ctx, name, args, opts)
	if err != nil {
		return -1, err
	}
	defer s.Close()

	if interactive {
		oldState, err := term.MakeRaw(stdin)
		if err != nil {
			return -1, fmt.Errorf("setting terminal raw mode: %w", err)
		}
		defer func() { _ = term.Restore(stdin, oldState) }()
		go func() {
			_, _ = io.Copy(s.Input(), os.Stdin)
		}()
	}

	w := printfdf.NewWriter(out, d)
	_, copyErr := io.Copy(w, s.Output())
	if copyErr == nil {
		copyErr = w.Close()
	}
	if copyErr != nil {
		slog.Error("Decoding command output failed", "command", name, "error", copyErr)
		_ = s.Close()
	}

	code, err := s.Wait()
	if err == nil {
		err = copyErr
	}
	return code, err
}
