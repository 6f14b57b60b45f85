// Package outputlog stores decoded printf_df output from several sources in
// one stream.
//
// # Overview
//
// Goals:
//
//  1. Keep the exact decoded text, including newlines and non-ASCII runes
//  2. Differentiate between sources (for example: uart0, stdin, a command name)
//  3. Include a timestamp for each decoded chunk
//  4. Detect unfinished writes
//
// # Format
//
// Each record follows this format:
//
//	source timestamp length: text
//
// A separator \n always follows text, so a record whose text ends with a
// newline ends with two.
//
// # Fields
//
//   - source: matches [a-zA-Z0-9_./-]{1,64}. For example: uart0 or stdin.
//   - timestamp: UTC, RFC 3339 with up to nanosecond precision:
//     2006-01-02T15:04:05.999999999Z
//   - length: byte length of the UTF-8 encoded text
//   - `: ` literal separator between length and text
//   - text: exactly length bytes of decoded text
//
// # Examples
//
//	uart0 2025-01-07T12:34:56.789Z 17: temp=+21.50 ok=1\n\n
//	uart0 2025-01-07T12:34:57Z 7: prompt>\n
//
// The first record's text is "temp=+21.50 ok=1\n" followed by the separator.
// The second record's text has no trailing newline.
package outputlog
