package outputlog

import (
	"fmt"
	"regexp"
	"time"
)

// TimeLayout is the timestamp layout of a record.
const TimeLayout = time.RFC3339Nano

var sourcePattern = regexp.MustCompile(`^[a-zA-Z0-9_./-]{1,64}$`)

// Record is one chunk of decoded text from a single source.
type Record struct {
	Source    string
	Timestamp time.Time // UTC
	Text      string
}

// ValidSource reports whether name can be used as a record source.
func ValidSource(name string) bool {
	return sourcePattern.MatchString(name)
}

// FormatRecord formats r as "source timestamp length: text\n".
func FormatRecord(r Record) []byte {
	timestamp := r.Timestamp.UTC().Format(TimeLayout)
	out := fmt.Appendf(nil, "%s %s %d: ", r.Source, timestamp, len(r.Text))
	out = append(out, r.Text...)
	return append(out, '\n')
}
