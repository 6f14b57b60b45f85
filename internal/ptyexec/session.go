// Package ptyexec runs a command under a pseudo terminal and decodes its
// printf_df output.
package ptyexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// Options configures a Session.
type Options struct {
	Dir  string
	Env  []string
	Rows uint16
	Cols uint16
}

// Session is a command running on a pseudo terminal.
type Session struct {
	ptmx *os.File
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Start runs name with args on a new pseudo terminal. Cancelling ctx kills
// the command.
func Start(ctx context.Context, name string, args []string, opts Options) (*Session, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = opts.Env
	}

	if opts.Rows == 0 || opts.Cols == 0 {
		opts.Rows, opts.Cols = 24, 80
	}
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: opts.Rows, Cols: opts.Cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start command with pty: %w", err)
	}
	slog.Debug("Started command on pty", "command", name, "pid", cmd.Process.Pid)

	s := &Session{
		ptmx: ptmx,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		s.err = cmd.Wait()
		close(s.done)
	}()
	return s, nil
}

// Output returns the terminal side carrying the command's raw output. Reads
// return io.EOF once the command has exited and its output is drained.
func (s *Session) Output() io.Reader {
	return ptyReader{s.ptmx}
}

// Input returns the writer feeding the command's terminal input.
func (s *Session) Input() io.Writer {
	return s.ptmx
}

// Resize sets the terminal size.
func (s *Session) Resize(rows, cols uint16) error {
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// Wait waits for the command to exit and returns its exit code. A command
// killed by a signal reports -1.
func (s *Session) Wait() (int, error) {
	<-s.done
	var exitErr *exec.ExitError
	if errors.As(s.err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if s.err != nil {
		return -1, s.err
	}
	return 0, nil
}

// Close terminates the command, first with SIGTERM and after two seconds
// with SIGKILL, and releases the terminal.
func (s *Session) Close() error {
	select {
	case <-s.done:
	default:
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			_ = s.cmd.Process.Kill()
			<-s.done
		}
	}
	return s.ptmx.Close()
}

// ptyReader maps the EIO Linux returns after the other side closed to EOF.
type ptyReader struct {
	f *os.File
}

func (r ptyReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}
