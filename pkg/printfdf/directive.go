package printfdf

import (
	"encoding/binary"
	"math"
)

// Kind classifies a directive by the binary argument it expects.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSignedInt32
	KindUnsignedInt32
	KindHexInt32
	KindFloat32
	KindFloat64
	KindChar
	KindCString
	// KindPercent is a literal '%' and takes no argument.
	KindPercent
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	KindSignedInt32:   "int32",
	KindUnsignedInt32: "uint32",
	KindHexInt32:      "hex32",
	KindFloat32:       "float32",
	KindFloat64:       "float64",
	KindChar:          "char",
	KindCString:       "cstring",
	KindPercent:       "percent",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// compactVerbs are single-byte conversions whose argument is always one byte.
// Device firmware emits them to save the length modifier on the wire.
var compactVerbs = map[byte]byte{
	0xD8: 'X',
	0xE4: 'd',
	0xE9: 'i',
	0xEF: 'o',
	0xF5: 'u',
	0xF8: 'x',
}

// Flags holds the printf flag characters of a directive.
type Flags struct {
	Minus bool // '-' left-justify
	Plus  bool // '+' always print a sign
	Space bool // ' ' space in place of a plus sign
	Hash  bool // '#' alternate form
	Zero  bool // '0' pad with zeros
}

// Directive is a parsed printf conversion specification without the leading '%'.
type Directive struct {
	// Raw holds the directive bytes as they appeared on the wire.
	Raw   string
	Flags Flags
	// Width and Precision are -1 when absent.
	Width     int
	Precision int
	// Length is the C length modifier ("hh", "h", "l", "ll", "L", "j", "z", "t") or empty.
	Length string
	// Verb is the conversion character, with compact bytes mapped to their ASCII verb.
	Verb byte
	Kind Kind
	// Size is the argument width in bytes; zero for CString and Percent.
	Size int
}

// ParseDirective parses the bytes between the escape marker and the
// directive's NUL terminator. A '*' width or precision takes the following
// raw byte as its value.
func ParseDirective(b []byte) (Directive, error) {
	d := Directive{Raw: string(b), Width: -1, Precision: -1}
	if len(b) == 0 {
		return d, ErrUnknownConversion
	}

	i := 0
flags:
	for ; i < len(b); i++ {
		switch b[i] {
		case '-':
			d.Flags.Minus = true
		case '+':
			d.Flags.Plus = true
		case ' ':
			d.Flags.Space = true
		case '#':
			d.Flags.Hash = true
		case '0':
			d.Flags.Zero = true
		default:
			break flags
		}
	}

	var ok bool
	if d.Width, i, ok = parseCount(b, i); !ok {
		return d, ErrUnknownConversion
	}
	if i < len(b) && b[i] == '.' {
		if d.Precision, i, ok = parseCount(b, i+1); !ok {
			return d, ErrUnknownConversion
		}
		if d.Precision < 0 {
			// A lone '.' means precision zero.
			d.Precision = 0
		}
	}

	i, d.Length = parseLength(b, i)
	if i != len(b)-1 {
		return d, ErrUnknownConversion
	}

	verb := b[i]
	if v, ok := compactVerbs[verb]; ok {
		d.Verb = v
		d.Kind = integerKind(v)
		d.Size = 1
		return d, nil
	}
	d.Verb = verb

	switch verb {
	case 'd', 'i', 'u', 'o', 'x', 'X':
		d.Kind = integerKind(verb)
		switch d.Length {
		case "hh":
			d.Size = 1
		case "h":
			d.Size = 2
		default:
			d.Size = 4
		}
	case 'f', 'F', 'e', 'E', 'g', 'G':
		if d.Length == "l" || d.Length == "L" {
			d.Kind, d.Size = KindFloat64, 8
		} else {
			d.Kind, d.Size = KindFloat32, 4
		}
	case 'c':
		d.Kind, d.Size = KindChar, 1
	case 's':
		d.Kind = KindCString
	case '%':
		d.Kind = KindPercent
	default:
		return d, ErrUnknownConversion
	}
	return d, nil
}

func integerKind(verb byte) Kind {
	switch verb {
	case 'd', 'i':
		return KindSignedInt32
	case 'x', 'X':
		return KindHexInt32
	default:
		return KindUnsignedInt32
	}
}

// parseCount reads a decimal count or a '*' followed by a raw count byte.
// It returns -1 when no count is present.
func parseCount(b []byte, i int) (int, int, bool) {
	if i < len(b) && b[i] == '*' {
		if i+1 >= len(b) {
			return 0, i, false
		}
		return int(b[i+1]), i + 2, true
	}
	n := -1
	for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
		if n < 0 {
			n = 0
		}
		n = n*10 + int(b[i]-'0')
		if n > maxCount {
			return 0, i, false
		}
	}
	return n, i, true
}

// maxCount bounds decimal widths so a corrupt directive cannot request a
// huge allocation when padded.
const maxCount = 4096

func parseLength(b []byte, i int) (int, string) {
	if i+1 < len(b) {
		switch string(b[i : i+2]) {
		case "hh", "ll":
			return i + 2, string(b[i : i+2])
		}
	}
	if i < len(b) {
		switch b[i] {
		case 'h', 'l', 'L', 'j', 'z', 't':
			return i + 1, string(b[i])
		}
	}
	return i, ""
}

// Render reinterprets arg as the directive's value and formats it. For
// CString directives arg is the string without its NUL terminator.
func (d Directive) Render(arg []byte) (string, error) {
	if d.Kind != KindCString && len(arg) < d.Size {
		return "", ErrTruncatedArgument
	}
	switch d.Kind {
	case KindSignedInt32:
		v := signed(arg[:d.Size])
		if v < 0 {
			return d.formatInteger(true, uint64(-v)), nil
		}
		return d.formatInteger(false, uint64(v)), nil
	case KindUnsignedInt32, KindHexInt32:
		return d.formatInteger(false, unsigned(arg[:d.Size])), nil
	case KindFloat32:
		return d.formatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(arg)))), nil
	case KindFloat64:
		return d.formatFloat(math.Float64frombits(binary.LittleEndian.Uint64(arg))), nil
	case KindChar:
		return d.formatText(string(rune(arg[0]))), nil
	case KindCString:
		return d.formatText(string(arg)), nil
	case KindPercent:
		return "%", nil
	}
	return "", ErrUnknownConversion
}

func signed(b []byte) int64 {
	switch len(b) {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	default:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	}
}

func unsigned(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	default:
		return uint64(binary.LittleEndian.Uint32(b))
	}
}
