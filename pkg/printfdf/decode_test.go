package printfdf

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func le64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func directive(spec string, arg ...byte) []byte {
	b := append([]byte{DefaultMarker}, spec...)
	b = append(b, 0)
	return append(b, arg...)
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func requireDecodeError(t *testing.T, err error, want error, start, end int) {
	t.Helper()
	require.ErrorIs(t, err, want)
	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, OpDecode, e.Op)
	require.Equal(t, start, e.Start)
	require.Equal(t, end, e.End)
}

func TestDecode_Integer(t *testing.T) {
	input := []byte("Value: \xA5d\x00\x2A\x00\x00\x00")

	text, n, err := Decode(input)

	require.NoError(t, err)
	require.Equal(t, "Value: 42", text)
	require.Equal(t, len(input), n)
}

func TestDecode_ZeroPaddedFloat(t *testing.T) {
	input := []byte("\xA5010.4f\x00\x00\x00\x90\xBF")

	text, n, err := Decode(input)

	require.NoError(t, err)
	require.Equal(t, "-0001.1250", text)
	require.Equal(t, len(input), n)
}

func TestDecode_UnterminatedDirective(t *testing.T) {
	input := []byte("abc\xA5010.4f")

	text, n, err := Decode(input)

	requireDecodeError(t, err, ErrUnterminatedDirective, 3, len(input))
	require.Empty(t, text)
	require.Equal(t, 3, n)
}

func TestDecode_UnknownConversion(t *testing.T) {
	input := []byte("x\xA5q\x00\x01")

	_, n, err := Decode(input)

	requireDecodeError(t, err, ErrUnknownConversion, 1, 4)
	require.Equal(t, 1, n)
	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, "q", e.Directive)
}

func TestDecode_EmptyDirective(t *testing.T) {
	_, _, err := Decode([]byte("\xA5\x00"))

	requireDecodeError(t, err, ErrUnknownConversion, 0, 2)
}

func TestDecode_TruncatedArgument(t *testing.T) {
	input := []byte("\xA5d\x00\x01\x02")

	_, _, err := Decode(input)

	requireDecodeError(t, err, ErrTruncatedArgument, 0, len(input))
}

func TestDecode_UnterminatedStringArgument(t *testing.T) {
	input := []byte("\xA5s\x00hello")

	_, _, err := Decode(input)

	requireDecodeError(t, err, ErrTruncatedArgument, 0, len(input))
}

func TestDecode_LiteralOnly(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"line one\nline two\r\n",
		"tabs\tand % signs %d stay literal",
		"\x00\x01\x7f control bytes",
	}
	for _, input := range inputs {
		text, n, err := Decode([]byte(input))
		require.NoError(t, err)
		require.Equal(t, input, text)
		require.Equal(t, len(input), n)
	}
}

func TestDecode_BareConversionHasNoPadding(t *testing.T) {
	text, _, err := Decode(directive("d", le32(123456)...))

	require.NoError(t, err)
	require.Equal(t, "123456", text)
}

func TestDecode_Conversions(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "negative int",
			input:    directive("d", 0xFF, 0xFF, 0xFF, 0xFF),
			expected: "-1",
		},
		{
			name:     "unsigned max",
			input:    directive("u", 0xFF, 0xFF, 0xFF, 0xFF),
			expected: "4294967295",
		},
		{
			name:     "hex with ignored plus",
			input:    directive("+20X", 0xEF, 0xBE, 0xAD, 0xDE),
			expected: "            DEADBEEF",
		},
		{
			name:     "all flags on unsigned",
			input:    directive("#+- 010u", 0x63, 0x00, 0x00, 0x00),
			expected: "99        ",
		},
		{
			name:     "char byte",
			input:    directive("hhx", 0x12),
			expected: "12",
		},
		{
			name:     "signed char",
			input:    directive("hhd", 0xFF),
			expected: "-1",
		},
		{
			name:     "short",
			input:    directive("hd", 0x00, 0x80),
			expected: "-32768",
		},
		{
			name:     "long keeps four bytes",
			input:    directive("lu", 0x63, 0x00, 0x00, 0x00),
			expected: "99",
		},
		{
			name:     "compact hex",
			input:    directive("\xF8", 0x12),
			expected: "12",
		},
		{
			name:     "compact signed",
			input:    directive("\xE4", 0xFF),
			expected: "-1",
		},
		{
			name:     "star width and precision",
			input:    directive("0*\x0A.*\x04f", 0x00, 0x00, 0x90, 0xBF),
			expected: "-0001.1250",
		},
		{
			name:     "star width of zero",
			input:    directive("*\x00d", 0x07, 0x00, 0x00, 0x00),
			expected: "7",
		},
		{
			name:     "double",
			input:    directive(".3lf", le64(math.Float64bits(3.14159))...),
			expected: "3.142",
		},
		{
			name:     "char",
			input:    directive("3c", 'A'),
			expected: "  A",
		},
		{
			name:     "left justified string",
			input:    directive("-11s", []byte("hello\x00")...),
			expected: "hello      ",
		},
		{
			name:     "truncated string",
			input:    directive("-11.5s", []byte("hello there\x00")...),
			expected: "hello      ",
		},
		{
			name:     "percent",
			input:    join([]byte("100"), directive("%")),
			expected: "100%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, n, err := Decode(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, text)
			require.Equal(t, len(tt.input), n)
		})
	}
}

func TestDecode_MultipleDirectives(t *testing.T) {
	input := join(
		[]byte("T="), directive("d", le32(21)...),
		[]byte("C H="), directive("u", le32(55)...),
		[]byte("% name="), directive("s", []byte("probe\x00")...),
		[]byte("\n"),
	)

	text, n, err := Decode(input)

	require.NoError(t, err)
	require.Equal(t, "T=21C H=55% name=probe\n", text)
	require.Equal(t, len(input), n)
}

func TestDecode_Deterministic(t *testing.T) {
	input := join(directive("+08.3e", le32(math.Float32bits(-12.75))...), directive("#x", le32(48879)...))

	first, _, err := Decode(input)
	require.NoError(t, err)
	for range 10 {
		again, _, err := Decode(input)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Equal(t, "-1.275e+010xbeef", first)
}

func TestDecode_NonASCIILiteral(t *testing.T) {
	input := []byte("a\x80b")

	_, n, err := Decode(input)

	requireDecodeError(t, err, ErrNonASCII, 1, 2)
	require.Equal(t, 1, n)
}

func TestDecode_NonASCIIInStringArgument(t *testing.T) {
	input := directive("s", []byte("h\xE9\x00")...)

	_, n, err := Decode(input)
	requireDecodeError(t, err, ErrNonASCII, 4, 5)
	require.Equal(t, 4, n)

	d, err := NewDecoder(WithErrorHandler(Replace))
	require.NoError(t, err)
	text, _, err := d.Decode(input)
	require.NoError(t, err)
	require.Equal(t, "h\uFFFD", text)
}

func TestDecode_ReplaceHandler(t *testing.T) {
	d, err := NewDecoder(WithErrorHandler(Replace))
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "unknown conversion resumes after terminator",
			input:    []byte("a\xA5q\x00b"),
			expected: "a\uFFFDb",
		},
		{
			name:     "truncated argument ends the buffer",
			input:    []byte("x\xA5d\x00\x01"),
			expected: "x\uFFFD",
		},
		{
			name:     "unterminated directive ends the buffer",
			input:    []byte("x\xA5-10"),
			expected: "x\uFFFD",
		},
		{
			name:     "non-ascii byte",
			input:    []byte("a\x80b"),
			expected: "a\uFFFDb",
		},
		{
			name:     "valid directive after bad one",
			input:    join([]byte("\xA5zz\x00"), directive("d", le32(5)...)),
			expected: "\uFFFD5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, n, err := d.Decode(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, text)
			require.Equal(t, len(tt.input), n)
		})
	}
}

func TestDecode_IgnoreHandler(t *testing.T) {
	d, err := NewDecoder(WithErrorHandler(Ignore))
	require.NoError(t, err)

	text, _, err := d.Decode([]byte("a\xA5q\x00b\x80c\xA5d\x00\x01"))

	require.NoError(t, err)
	require.Equal(t, "abc", text)
}

func TestDecode_CustomHandlerSeesRegions(t *testing.T) {
	var seen []*Error
	d, err := NewDecoder(WithErrorHandler(func(e *Error) (string, error) {
		seen = append(seen, e)
		return "<" + e.Err.Error() + ">", nil
	}))
	require.NoError(t, err)

	text, _, err := d.Decode([]byte("1\xA5y\x002"))

	require.NoError(t, err)
	require.Equal(t, "1<unknown conversion>2", text)
	require.Len(t, seen, 1)
	require.Equal(t, 1, seen[0].Start)
	require.Equal(t, 4, seen[0].End)
	require.Equal(t, "y", seen[0].Directive)
}

func TestDecode_CustomMarker(t *testing.T) {
	d, err := NewDecoder(WithMarker(0xFF))
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), d.Marker())

	text, _, err := d.Decode([]byte("n=\xFFd\x00\x01\x00\x00\x00"))
	require.NoError(t, err)
	require.Equal(t, "n=1", text)

	_, _, err = d.Decode([]byte("\xA5d\x00\x01\x00\x00\x00"))
	require.ErrorIs(t, err, ErrNonASCII)
}

func TestNewDecoder_RejectsASCIIMarker(t *testing.T) {
	_, err := NewDecoder(WithMarker('%'))
	require.Error(t, err)

	_, err = NewDecoder(WithMaxPending(0))
	require.Error(t, err)
}

func TestDecoder_WithHandler(t *testing.T) {
	strict, err := NewDecoder()
	require.NoError(t, err)
	lenient := strict.WithHandler(Ignore)

	_, _, err = strict.Decode([]byte("\xA5q\x00"))
	require.Error(t, err)

	text, _, err := lenient.Decode([]byte("\xA5q\x00ok"))
	require.NoError(t, err)
	require.Equal(t, "ok", text)
}

func TestEncode(t *testing.T) {
	out, n, err := Encode("hello\n")
	require.NoError(t, err)
	require.Equal(t, []byte("hello\n"), out)
	require.Equal(t, 6, n)

	_, n, err = Encode("héllo")
	require.ErrorIs(t, err, ErrNonASCII)
	require.Equal(t, 1, n)

	d, err := NewDecoder(WithErrorHandler(Replace))
	require.NoError(t, err)
	out, _, err = d.Encode("héllo")
	require.NoError(t, err)
	require.Equal(t, []byte("h?llo"), out)

	out, _, err = d.WithHandler(Ignore).Encode("héllo")
	require.NoError(t, err)
	require.Equal(t, []byte("hllo"), out)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, s := range []string{"", "boot ok", "temp=%d\n", "multi\nline\ttext"} {
		encoded, _, err := Encode(s)
		require.NoError(t, err)
		decoded, _, err := Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, s, decoded)
	}
}
