package outputlog

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestReader_Next(t *testing.T) {
	input := "uart0 2025-01-07T12:34:56.789Z 12: Hello world\n\n"
	rd := NewReader(strings.NewReader(input))

	rec, err := rd.Next()

	require.NoError(t, err)
	require.Equal(t, "uart0", rec.Source)
	require.True(t, rec.Timestamp.Equal(time.Date(2025, 1, 7, 12, 34, 56, 789000000, time.UTC)))
	require.Equal(t, "Hello world\n", rec.Text)

	_, err = rd.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_TextLooksLikeRecord(t *testing.T) {
	timestamp := time.Date(2025, 1, 7, 12, 34, 56, 0, time.UTC)
	text := "uart1 2025-01-07T12:34:56Z 42: fake data\n"
	formatted := FormatRecord(Record{Source: "uart0", Timestamp: timestamp, Text: text})

	rec, err := NewReader(strings.NewReader(string(formatted))).Next()

	require.NoError(t, err)
	require.Equal(t, "uart0", rec.Source)
	require.Equal(t, text, rec.Text)
}

func TestReader_All(t *testing.T) {
	input := "uart0 2025-01-07T12:00:00Z 4: foo\n\n" +
		"stdin 2025-01-07T12:00:01Z 2: ls\n" +
		"uart0 2025-01-07T12:00:02Z 3: bar\n"

	all, err := NewReader(strings.NewReader(input)).All()

	require.NoError(t, err)
	require.Equal(t, map[string]string{"uart0": "foo\nbar", "stdin": "ls"}, all)
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated source", "uart0"},
		{"bad source", "bad:src 2025-01-07T12:00:00Z 1: x\n"},
		{"bad timestamp", "uart0 yesterday 1: x\n"},
		{"bad length", "uart0 2025-01-07T12:00:00Z abc: x\n"},
		{"negative length", "uart0 2025-01-07T12:00:00Z -1: x\n"},
		{"missing space", "uart0 2025-01-07T12:00:00Z 1:x\n"},
		{"short text", "uart0 2025-01-07T12:00:00Z 10: x\n"},
		{"missing separator", "uart0 2025-01-07T12:00:00Z 1: x"},
		{"wrong separator", "uart0 2025-01-07T12:00:00Z 1: xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input)).Next()
			require.Error(t, err)
			require.NotErrorIs(t, err, io.EOF)
		})
	}
}

func TestReader_TruncatedIsUnexpectedEOF(t *testing.T) {
	_, err := NewReader(strings.NewReader("uart0 2025-01-07T12:00:00Z 5: ab")).Next()

	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReader_Sequence(t *testing.T) {
	base := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	expected := []Record{
		{Source: "uart0", Timestamp: base, Text: "boot v1.2\n"},
		{Source: "uart1", Timestamp: base.Add(time.Millisecond), Text: ""},
		{Source: "uart0", Timestamp: base.Add(time.Second), Text: "temp=+21.50\n"},
	}
	var input strings.Builder
	for _, rec := range expected {
		input.Write(FormatRecord(rec))
	}

	rd := NewReader(strings.NewReader(input.String()))
	var got []Record
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}

	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}
