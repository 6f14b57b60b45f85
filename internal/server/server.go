// Package server serves decoded printf_df output over HTTP and websockets.
package server

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"printfdf/internal/config"
	"printfdf/internal/hub"
	"printfdf/pkg/outputlog"
	"printfdf/pkg/printfdf"
)

//go:embed templates/*
var templatesFS embed.FS

type Server struct {
	cfg      config.ServeConfig
	decoder  *printfdf.Decoder
	hub      *hub.Hub
	tmpl     *template.Template
	upgrader websocket.Upgrader

	recMu    sync.Mutex
	recorder *outputlog.Writer
}

// New returns a Server decoding with d and publishing through h. A nil d
// uses the default strict decoder.
func New(cfg config.ServeConfig, d *printfdf.Decoder, h *hub.Hub) (*Server, error) {
	if d == nil {
		var err error
		if d, err = printfdf.NewDecoder(); err != nil {
			return nil, err
		}
	}
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		decoder: d,
		hub:     h,
		tmpl:    tmpl,
	}
	s.upgrader = newUpgrader(cfg.AllowedOrigins)
	return s, nil
}

// SetRecorder makes Ingest also append every decoded chunk to w. A nil w
// stops recording; once it returns, Ingest no longer sends to the previous
// writer and that writer may be closed.
func (s *Server) SetRecorder(w *outputlog.Writer) {
	s.recMu.Lock()
	defer s.recMu.Unlock()
	s.recorder = w
}

// handlerFunc is the signature of all non-streaming handlers.
type handlerFunc func(context.Context, *http.Request) ([]byte, error)

// httpError is an error answered with a specific status and content type.
type httpError struct {
	status      int
	contentType string
	body        []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%d %s", e.status, http.StatusText(e.status))
}

func badRequest(format string, args ...any) error {
	return &httpError{
		status:      http.StatusBadRequest,
		contentType: "text/plain; charset=utf-8",
		body:        []byte(fmt.Sprintf(format, args...) + "\n"),
	}
}

// wrapHandler adapts a handlerFunc to http.HandlerFunc.
func (s *Server) wrapHandler(contentType string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h(r.Context(), r)
		if err != nil {
			var he *httpError
			if errors.As(err, &he) {
				slog.Warn("HTTP handler error",
					"method", r.Method,
					"path", r.URL.Path,
					"status", he.status)
				w.Header().Set("Content-Type", he.contentType)
				w.WriteHeader(he.status)
				_, _ = w.Write(he.body)
				return
			}
			slog.Error("HTTP handler error",
				"method", r.Method,
				"path", r.URL.Path,
				"status", http.StatusInternalServerError,
				"error", err.Error())
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		if len(data) > 0 {
			_, _ = w.Write(data)
		}
	}
}

// loggingMiddleware logs each HTTP request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.wrapHandler("text/html; charset=utf-8", s.handleIndex))
	mux.HandleFunc("POST /decode", s.wrapHandler("text/plain; charset=utf-8", s.handleDecode))
	mux.HandleFunc("GET /history", s.wrapHandler("application/json", s.handleHistory))
	mux.HandleFunc("GET /ws", s.handleWS)

	return s.loggingMiddleware(mux)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// disconnects all websocket clients.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "url", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
