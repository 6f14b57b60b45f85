package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/spf13/cobra"
)

// input is one raw printf_df stream given to decode.
type input struct {
	name string
	io.ReadCloser
}

func openInputs(cmd *cobra.Command, args []string) ([]input, error) {
	if len(args) == 0 {
		return []input{{name: "stdin", ReadCloser: io.NopCloser(cmd.InOrStdin())}}, nil
	}
	inputs := make([]input, 0, len(args))
	for _, path := range args {
		rc, err := openCapture(path)
		if err != nil {
			for _, in := range inputs {
				_ = in.Close()
			}
			return nil, err
		}
		inputs = append(inputs, input{name: path, ReadCloser: rc})
	}
	return inputs, nil
}

// openCapture opens a capture file, decompressing .gz, .zst and .lz4 files.
func openCapture(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		zrc := zr.IOReadCloser()
		return &stackedCloser{Reader: zrc, closers: []io.Closer{zrc, f}}, nil
	case ".lz4":
		return &stackedCloser{Reader: lz4.NewReader(f), closers: []io.Closer{f}}, nil
	}
	return f, nil
}

// stackedCloser closes a decompressor before the file beneath it.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	invalidSourceChars = regexp.MustCompile(`[^a-zA-Z0-9_./-]`)
	compressedExt      = regexp.MustCompile(`(?i)\.(gz|zst|lz4)$`)
)

// sourceName derives a record source from a file path.
func sourceName(path string) string {
	name := compressedExt.ReplaceAllString(filepath.Base(path), "")
	name = invalidSourceChars.ReplaceAllString(name, "_")
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
