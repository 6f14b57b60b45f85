package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"printfdf/internal/hub"
	"printfdf/internal/ptyexec"
	"printfdf/internal/server"
	"printfdf/pkg/codec"
	"printfdf/pkg/outputlog"
	"printfdf/pkg/printfdf"

	"github.com/spf13/cobra"
)

// ingestDrainTimeout bounds how long serve waits at shutdown for a stream
// that cannot be interrupted, such as a terminal on stdin.
const ingestDrainTimeout = 2 * time.Second

func newDecodeCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "decode [file...]",
		Short: "Decode printf_df files or stdin to text",
		Long: `Decode each file, or stdin when no file is given, as an independent
printf_df stream. With --format outputlog every decoded chunk is written as a
timestamped record tagged with its file name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := openInputs(cmd, args)
			if err != nil {
				return err
			}
			defer func() {
				for _, in := range inputs {
					_ = in.Close()
				}
			}()

			switch format {
			case "text":
				return decodeText(cmd.OutOrStdout(), opts.decoder, inputs)
			case "outputlog":
				return decodeOutputLog(cmd.OutOrStdout(), opts.decoder, inputs)
			default:
				return fmt.Errorf("unknown --format %q: want text or outputlog", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or outputlog")
	return cmd
}

func decodeText(out io.Writer, d *printfdf.Decoder, inputs []input) error {
	for _, in := range inputs {
		w := printfdf.NewWriter(out, d)
		if _, err := io.Copy(w, in); err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
	}
	return nil
}

func decodeOutputLog(out io.Writer, d *printfdf.Decoder, inputs []input) error {
	ow := outputlog.NewWriter(out, d)
	for _, in := range inputs {
		sw, err := ow.StreamWriter(sourceName(in.name))
		if err != nil {
			_ = ow.Close()
			return err
		}
		_, err = io.Copy(sw, in)
		if cerr := sw.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = ow.Close()
			return fmt.Errorf("%s: %w", in.name, err)
		}
	}
	return ow.Close()
}

func newEncodeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "encode [text...]",
		Short: "Encode text as a printf_df stream",
		Long: `Encode the arguments joined by spaces, or stdin when none are given.
ASCII passes through unchanged; other characters go to the error handler.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(data)
			}

			out, _, err := codec.Encode(printfdf.Name, text, opts.cfg.Decoder.Errors)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newExecCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exec -- cmd [args...]",
		Short: "Run a command under a pseudo terminal and decode its output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := ptyexec.Run(ctx, args[0], args[1:], cmd.OutOrStdout(), opts.decoder)
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitCodeError{code: code}
			}
			return nil
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	var (
		listen string
		record string
	)

	cmd := &cobra.Command{
		Use:   "serve [-- cmd [args...]]",
		Short: "Decode stdin or a command's output and serve it over HTTP",
		Long: `Decode a live printf_df stream and serve it: the index page shows the
recent output and /ws streams new output to browsers. The stream is stdin, or
the output of cmd run under a pseudo terminal. The server keeps running after
the stream ends until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := opts.cfg.Serve
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}

			h := hub.New(cfg.History)
			srv, err := server.New(cfg, opts.decoder, h)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			if record != "" {
				f, err := os.OpenFile(record, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				rw := outputlog.NewWriter(f, opts.decoder)
				defer func() {
					if err := rw.Close(); err != nil {
						slog.Error("Writing record file failed", "path", record, "error", err)
					}
				}()
				srv.SetRecorder(rw)
			}

			source, stream, closeStream, err := openStream(ctx, cmd, args)
			if err != nil {
				return err
			}
			closeStream = sync.OnceFunc(closeStream)
			defer closeStream()

			ingested := make(chan struct{})
			go func() {
				defer close(ingested)
				if err := srv.Ingest(ctx, stream, source); err != nil && ctx.Err() == nil {
					slog.Error("Ingest failed", "source", source, "error", err)
					return
				}
				slog.Info("Input ended", "source", source)
			}()

			err = srv.Run(ctx, cfg.Listen)

			// The record file is closed by a deferred call; Ingest must be
			// done with it first.
			stop()
			closeStream()
			select {
			case <-ingested:
			case <-time.After(ingestDrainTimeout):
				slog.Warn("Input still open at shutdown, recording stopped", "source", source)
			}
			srv.SetRecorder(nil)
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config: localhost:8765)")
	cmd.Flags().StringVar(&record, "record", "", "append decoded output to this file in outputlog format")
	return cmd
}

// openStream returns the live input for serve: stdin, or the output of the
// command in args.
func openStream(ctx context.Context, cmd *cobra.Command, args []string) (string, io.Reader, func(), error) {
	if len(args) == 0 {
		return "stdin", cmd.InOrStdin(), func() {}, nil
	}
	s, err := ptyexec.Start(ctx, args[0], args[1:], ptyexec.Options{})
	if err != nil {
		return "", nil, nil, err
	}
	return sourceName(args[0]), s.Output(), func() { _ = s.Close() }, nil
}

func newCodecsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codecs",
		Short: "List registered codecs and error handlers",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "codecs: %s\n", strings.Join(codec.Default.Names(), ", "))
			fmt.Fprintf(out, "error handlers: %s\n", strings.Join(codec.Default.ErrorHandlerNames(), ", "))
			return nil
		},
	}
}
