package printfdf

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatInteger renders an integer magnitude following C printf rules for
// d, i, u, o, x and X.
func (d Directive) formatInteger(neg bool, mag uint64) string {
	base := 10
	switch d.Verb {
	case 'o':
		base = 8
	case 'x', 'X':
		base = 16
	}
	digits := strconv.FormatUint(mag, base)
	if d.Verb == 'X' {
		digits = strings.ToUpper(digits)
	}

	if d.Precision >= 0 {
		if d.Precision == 0 && mag == 0 {
			digits = ""
		}
		if n := d.Precision - len(digits); n > 0 {
			digits = strings.Repeat("0", n) + digits
		}
	}

	var prefix string
	if d.Verb == 'd' || d.Verb == 'i' {
		prefix = d.sign(neg)
	}
	if d.Flags.Hash {
		switch d.Verb {
		case 'o':
			if digits == "" || digits[0] != '0' {
				digits = "0" + digits
			}
		case 'x':
			if mag != 0 {
				prefix += "0x"
			}
		case 'X':
			if mag != 0 {
				prefix += "0X"
			}
		}
	}

	// A precision turns off zero padding for integers.
	zero := d.Flags.Zero && d.Precision < 0
	return d.pad(prefix, digits, zero)
}

// formatFloat renders v following C printf rules for f, F, e, E, g and G.
// Single precision values arrive already widened, as C varargs do.
func (d Directive) formatFloat(v float64) string {
	neg := math.Signbit(v)
	v = math.Abs(v)

	prec := d.Precision
	if prec < 0 {
		prec = 6
	}

	var body string
	finite := true
	switch {
	case math.IsNaN(v):
		body, finite = "nan", false
	case math.IsInf(v, 0):
		body, finite = "inf", false
	default:
		switch d.Verb {
		case 'f', 'F':
			body = strconv.FormatFloat(v, 'f', prec, 64)
			if d.Flags.Hash && prec == 0 {
				body += "."
			}
		case 'e', 'E':
			body = formatExponent(v, prec, d.Flags.Hash)
		case 'g', 'G':
			body = formatShortest(v, prec, d.Flags.Hash)
		}
	}
	switch d.Verb {
	case 'F', 'E', 'G':
		body = strings.ToUpper(body)
	}

	return d.pad(d.sign(neg), body, d.Flags.Zero && finite)
}

func formatExponent(v float64, prec int, hash bool) string {
	s := strconv.FormatFloat(v, 'e', prec, 64)
	if hash && prec == 0 {
		i := strings.IndexByte(s, 'e')
		s = s[:i] + "." + s[i:]
	}
	return s
}

// formatShortest implements %g: P significant digits, exponent style when
// the exponent is below -4 or at least P, trailing zeros removed unless '#'.
func formatShortest(v float64, prec int, hash bool) string {
	if prec == 0 {
		prec = 1
	}
	exp := 0
	if v != 0 {
		e := strconv.FormatFloat(v, 'e', prec-1, 64)
		exp, _ = strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	}

	var s string
	if exp < -4 || exp >= prec {
		s = strconv.FormatFloat(v, 'e', prec-1, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', prec-1-exp, 64)
	}

	if hash {
		if !strings.ContainsRune(s, '.') {
			if i := strings.IndexByte(s, 'e'); i >= 0 {
				s = s[:i] + "." + s[i:]
			} else {
				s += "."
			}
		}
		return s
	}

	mantissa, exponent := s, ""
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		mantissa, exponent = s[:i], s[i:]
	}
	if strings.ContainsRune(mantissa, '.') {
		mantissa = strings.TrimRight(mantissa, "0")
		mantissa = strings.TrimSuffix(mantissa, ".")
	}
	return mantissa + exponent
}

// formatText renders c and s conversions. Precision limits the number of
// characters taken from the value.
func (d Directive) formatText(s string) string {
	if d.Verb == 's' && d.Precision >= 0 && utf8.RuneCountInString(s) > d.Precision {
		n := 0
		for i := range s {
			if n == d.Precision {
				s = s[:i]
				break
			}
			n++
		}
	}
	return d.pad("", s, false)
}

func (d Directive) sign(neg bool) string {
	switch {
	case neg:
		return "-"
	case d.Flags.Plus:
		return "+"
	case d.Flags.Space:
		return " "
	}
	return ""
}

// pad applies the field width. Zero padding goes between the sign or
// radix prefix and the digits; '-' wins over '0'.
func (d Directive) pad(prefix, body string, zero bool) string {
	n := d.Width - len(prefix) - utf8.RuneCountInString(body)
	if n <= 0 {
		return prefix + body
	}
	switch {
	case d.Flags.Minus:
		return prefix + body + strings.Repeat(" ", n)
	case zero:
		return prefix + strings.Repeat("0", n) + body
	}
	return strings.Repeat(" ", n) + prefix + body
}
