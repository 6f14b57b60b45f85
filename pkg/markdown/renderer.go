// Package markdown renders the viewer's usage page and escapes decoded
// device text for HTML.
package markdown

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var (
	pagePolicy = newPagePolicy()
	textPolicy = bluemonday.StrictPolicy()
)

func newPagePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
	policy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	return policy
}

// RenderToHTML converts markdown text to sanitized HTML.
func RenderToHTML(markdown string) string {
	unsafeHTML := blackfriday.Run(
		[]byte(markdown),
		blackfriday.WithExtensions(
			blackfriday.CommonExtensions|
				blackfriday.AutoHeadingIDs|
				blackfriday.Footnotes,
		),
	)
	return string(pagePolicy.SanitizeBytes(unsafeHTML))
}

// SanitizeText strips every HTML element from s and escapes the rest, so
// decoded device output can be placed inside an HTML page.
func SanitizeText(s string) string {
	return textPolicy.Sanitize(s)
}

// RenderTranscript renders decoded lines as a preformatted block.
func RenderTranscript(lines []string) string {
	var b strings.Builder
	b.WriteString(`<pre class="transcript">`)
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(SanitizeText(strings.TrimRight(line, "\n")))
	}
	b.WriteString("</pre>")
	return b.String()
}
