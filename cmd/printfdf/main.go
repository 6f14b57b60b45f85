package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"printfdf/internal/config"
	"printfdf/pkg/printfdf"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options holds the persistent flags and the settings derived from them.
type options struct {
	configPath string
	marker     string
	errors     string
	logLevel   string

	cfg     *config.Config
	decoder *printfdf.Decoder
}

// exitCodeError makes main exit with the code of a child command.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.code)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "printfdf",
		Short: "printfdf - decode printf_df device logs",
		Long: `printfdf decodes the compact printf_df byte stream emitted by embedded
loggers: the escape byte 0xA5, a printf directive, a NUL and the binary
argument. It decodes files and pipes, runs commands under a pseudo terminal
and serves the decoded output over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Flags(), cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (default: $"+config.EnvVar+")")
	flags.StringVar(&opts.marker, "marker", "", "escape marker byte, e.g. 0xA5")
	flags.StringVar(&opts.errors, "errors", "", "error handling: strict, replace or ignore")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newDecodeCmd(opts),
		newEncodeCmd(opts),
		newExecCmd(opts),
		newServeCmd(opts),
		newCodecsCmd(),
	)
	return rootCmd
}

// load applies defaults, the config file and the flags, in that order.
func (o *options) load(flags *pflag.FlagSet, stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if flags.Changed("marker") {
		marker, err := strconv.ParseUint(o.marker, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid --marker %q: %w", o.marker, err)
		}
		cfg.Decoder.Marker = int(marker)
	}
	if flags.Changed("errors") {
		cfg.Decoder.Errors = o.errors
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	o.decoder, err = cfg.NewDecoder()
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
