// Package printfdf decodes the output of a "data format" printf logger.
//
// Small devices cannot afford to format numbers, so their logger sends the
// format directive and the raw binary argument in place of the rendered
// text. This package turns such a byte stream back into the text the device
// meant to print.
//
// # Wire Format
//
//	<literal>* ( MARKER <directive> NUL <argument> )* <literal>*
//
//   - literal: 7-bit ASCII text, copied to the output as-is.
//   - MARKER: a single reserved byte outside ASCII, 0xA5 by default.
//   - directive: a printf conversion specification without the leading '%'.
//   - NUL: 0x00, terminates the directive.
//   - argument: the value, little endian. Its length follows from the
//     conversion, except for strings which are NUL terminated.
//
// # Directives
//
//	flags* width? ('.' precision?)? length? conversion
//
// Flags are '-', '+', ' ', '#' and '0'. Width and precision are decimal, or
// '*' followed by one raw byte holding the value. Conversions and the number
// of argument bytes they consume:
//
//	d i        signed integer, 4 bytes (h: 2, hh: 1)
//	u o x X    unsigned integer, 4 bytes (h: 2, hh: 1)
//	f F e E g G  float, 4 bytes (l or L: 8 byte double)
//	c          character, 1 byte
//	s          NUL terminated string
//	%          literal '%', no argument
//
// The compact conversion bytes 0xD8 (X), 0xE4 (d), 0xE9 (i), 0xEF (o),
// 0xF5 (u) and 0xF8 (x) always take a 1 byte argument.
//
// # Examples
//
// Example 1: integer
//
//	"Value: " A5 "d" 00 2A 00 00 00   ->  "Value: 42"
//
// Example 2: zero padded float
//
//	A5 "010.4f" 00 00 00 90 BF        ->  "-0001.1250"
//
// Example 3: string
//
//	A5 "-8s" 00 "hello" 00            ->  "hello   "
//
// # Errors
//
// Malformed input is reported as *Error carrying the fault (one of
// ErrUnterminatedDirective, ErrUnknownConversion, ErrTruncatedArgument,
// ErrNonASCII) and the byte range it covers. An ErrorHandler decides whether
// decoding aborts (Strict), substitutes a placeholder (Replace) or skips the
// region (Ignore).
package printfdf
