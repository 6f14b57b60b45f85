package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"printfdf/internal/config"
	"printfdf/pkg/outputlog"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecode_Stdin(t *testing.T) {
	code, stdout, stderr := runCLI(t, "Value: \xA5d\x00\x2A\x00\x00\x00\n", "decode")

	require.Zero(t, code, stderr)
	require.Equal(t, "Value: 42\n", stdout)
}

func TestDecode_Files(t *testing.T) {
	a := writeFile(t, "a.bin", "a=\xA5hhu\x00\x01 ")
	b := writeFile(t, "b.bin", "b=\xA5c\x00Z")

	code, stdout, stderr := runCLI(t, "", "decode", a, b)

	require.Zero(t, code, stderr)
	require.Equal(t, "a=1 b=Z", stdout)
}

func TestDecode_OutputLog(t *testing.T) {
	path := writeFile(t, "capture 1.bin", "t=\xA5.1f\x00\x00\x00\x20\x41\n")

	code, stdout, stderr := runCLI(t, "", "decode", "--format", "outputlog", path)

	require.Zero(t, code, stderr)
	all, err := outputlog.NewReader(strings.NewReader(stdout)).All()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"capture_1.bin": "t=10.0\n"}, all)
}

func TestDecode_StrictFailure(t *testing.T) {
	code, stdout, stderr := runCLI(t, "ok \xA5q\x00", "decode")

	require.Equal(t, 1, code)
	require.Equal(t, "ok ", stdout)
	require.Contains(t, stderr, "unknown conversion")
}

func TestDecode_ErrorHandlerFlag(t *testing.T) {
	code, stdout, _ := runCLI(t, "ok \xA5q\x00!", "decode", "--errors", "replace")

	require.Zero(t, code)
	require.Equal(t, "ok \uFFFD!", stdout)
}

func TestDecode_MarkerFlag(t *testing.T) {
	code, stdout, _ := runCLI(t, "\xFEhhd\x00\xFF", "decode", "--marker", "0xFE")

	require.Zero(t, code)
	require.Equal(t, "-1", stdout)
}

func TestDecode_InvalidSettings(t *testing.T) {
	tests := [][]string{
		{"decode", "--marker", "0x41"},
		{"decode", "--marker", "banana"},
		{"decode", "--errors", "shout"},
		{"decode", "--log-level", "loud"},
		{"decode", "--format", "json"},
		{"decode", filepath.Join(t.TempDir(), "missing.bin")},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, _, stderr := runCLI(t, "", args...)
			require.Equal(t, 1, code)
			require.NotEmpty(t, stderr)
		})
	}
}

func TestDecode_ConfigFile(t *testing.T) {
	path := writeFile(t, "printfdf.yaml", "decoder:\n  errors: ignore\n")

	code, stdout, _ := runCLI(t, "a\xA5q\x00b", "--config", path, "decode")
	require.Zero(t, code)
	require.Equal(t, "ab", stdout)

	code, stdout, _ = runCLI(t, "a\xA5q\x00b", "--config", path, "--errors", "replace", "decode")
	require.Zero(t, code)
	require.Equal(t, "a\uFFFDb", stdout)
}

func TestEncode(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "encode", "hello", "world")
	require.Zero(t, code)
	require.Equal(t, "hello world", stdout)

	code, stdout, _ = runCLI(t, "from stdin\n", "encode")
	require.Zero(t, code)
	require.Equal(t, "from stdin\n", stdout)

	code, _, stderr := runCLI(t, "", "encode", "café")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "non-ascii")

	code, stdout, _ = runCLI(t, "", "--errors", "replace", "encode", "café")
	require.Zero(t, code)
	require.Equal(t, "caf?", stdout)
}

func TestCodecs(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "codecs")

	require.Zero(t, code)
	require.Equal(t, "codecs: printf_df\nerror handlers: ignore, replace, strict\n", stdout)
}

func TestExec(t *testing.T) {
	if _, err := exec.LookPath("printf"); err != nil {
		t.Skip("printf not available")
	}

	code, stdout, stderr := runCLI(t, "", "exec", "--", "printf", `n=\245hhu\000\007`)

	require.Zero(t, code, stderr)
	require.Equal(t, "n=7", stdout)
}

func TestExec_ExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	code, _, stderr := runCLI(t, "", "exec", "--", "sh", "-c", "exit 3")

	require.Equal(t, 3, code)
	require.Empty(t, stderr)
}

func TestSourceName(t *testing.T) {
	require.Equal(t, "capture.bin", sourceName("/tmp/logs/capture.bin"))
	require.Equal(t, "capture.bin", sourceName("capture.bin.ZST"))
	require.Equal(t, "a_b_c", sourceName("a b:c"))
	require.Len(t, sourceName(strings.Repeat("x", 100)), 64)
}

func TestDecode_CompressedCaptures(t *testing.T) {
	raw := "v=\xA5hhd\x00\x05\n"
	dir := t.TempDir()

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zst := enc.EncodeAll([]byte(raw), nil)
	require.NoError(t, enc.Close())

	var lz bytes.Buffer
	lw := lz4.NewWriter(&lz)
	_, err = lw.Write([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, lw.Close())

	files := map[string][]byte{
		"uart.bin.gz":  gz.Bytes(),
		"uart.bin.zst": zst,
		"uart.bin.lz4": lz.Bytes(),
	}
	for name, data := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, data, 0o644))

			code, stdout, stderr := runCLI(t, "", "decode", "--format", "outputlog", path)

			require.Zero(t, code, stderr)
			all, err := outputlog.NewReader(strings.NewReader(stdout)).All()
			require.NoError(t, err)
			require.Equal(t, map[string]string{"uart.bin": "v=5\n"}, all)
		})
	}
}

func TestDecode_CorruptCompressedCapture(t *testing.T) {
	path := writeFile(t, "broken.gz", "not gzip at all")

	code, _, stderr := runCLI(t, "", "decode", path)

	require.Equal(t, 1, code)
	require.Contains(t, stderr, "broken.gz")
}
