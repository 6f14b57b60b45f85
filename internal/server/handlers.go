package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"printfdf/pkg/codec"
	"printfdf/pkg/markdown"
	"printfdf/pkg/printfdf"
)

// maxDecodeBody limits POST /decode request bodies.
const maxDecodeBody = 1 << 20

var usage = mustReadTemplate("templates/usage.md")

func mustReadTemplate(name string) string {
	data, err := templatesFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func (s *Server) handleIndex(ctx context.Context, r *http.Request) ([]byte, error) {
	var lines []string
	for _, m := range s.hub.History() {
		lines = append(lines, m.Text)
	}

	var buf bytes.Buffer
	err := s.tmpl.ExecuteTemplate(&buf, "index.html", map[string]any{
		"Usage":      template.HTML(markdown.RenderToHTML(usage)),
		"Transcript": template.HTML(markdown.RenderTranscript(lines)),
		"Clients":    s.hub.Len(),
		"Marker":     s.decoder.Marker(),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeFault is the JSON body of a 422 answer.
type decodeFault struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Directive string `json:"directive,omitempty"`
}

func faultKind(err error) string {
	switch {
	case errors.Is(err, printfdf.ErrUnterminatedDirective):
		return "unterminated_directive"
	case errors.Is(err, printfdf.ErrUnknownConversion):
		return "unknown_conversion"
	case errors.Is(err, printfdf.ErrTruncatedArgument):
		return "truncated_argument"
	case errors.Is(err, printfdf.ErrNonASCII):
		return "non_ascii"
	}
	return "unknown"
}

func (s *Server) handleDecode(ctx context.Context, r *http.Request) ([]byte, error) {
	h, err := codec.Default.LookupErrorHandler(r.URL.Query().Get("errors"))
	if err != nil {
		return nil, badRequest("%v", err)
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxDecodeBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &httpError{
				status:      http.StatusRequestEntityTooLarge,
				contentType: "text/plain; charset=utf-8",
				body:        []byte(err.Error() + "\n"),
			}
		}
		return nil, fmt.Errorf("reading body: %w", err)
	}

	text, _, err := s.decoder.WithHandler(h).Decode(body)
	if err != nil {
		var de *printfdf.Error
		if !errors.As(err, &de) {
			return nil, err
		}
		data, merr := json.Marshal(decodeFault{
			Error:     de.Error(),
			Kind:      faultKind(de),
			Start:     de.Start,
			End:       de.End,
			Directive: de.Directive,
		})
		if merr != nil {
			return nil, merr
		}
		return nil, &httpError{
			status:      http.StatusUnprocessableEntity,
			contentType: "application/json",
			body:        data,
		}
	}
	return []byte(text), nil
}

func (s *Server) handleHistory(ctx context.Context, r *http.Request) ([]byte, error) {
	data, err := json.Marshal(s.hub.History())
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	return data, nil
}
