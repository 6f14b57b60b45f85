// Package codec maps codec identifiers to decode/encode function pairs and
// error-handling strategy names to handlers.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"printfdf/pkg/printfdf"
)

var (
	ErrUnknownCodec        = errors.New("unknown codec")
	ErrUnknownErrorHandler = errors.New("unknown error handler")
)

// DecodeFunc decodes data, applying h to malformed regions. It returns the
// text and the number of bytes consumed.
type DecodeFunc func(data []byte, h printfdf.ErrorHandler) (string, int, error)

// EncodeFunc encodes text, applying h to unencodable runes.
type EncodeFunc func(text string, h printfdf.ErrorHandler) ([]byte, int, error)

// Codec is a named pair of pure conversion functions.
type Codec struct {
	Name   string
	Decode DecodeFunc
	Encode EncodeFunc
	// NewIncremental returns a chunk-wise decoder; nil when the codec only
	// supports whole buffers.
	NewIncremental func(h printfdf.ErrorHandler) *printfdf.IncrementalDecoder
}

// Registry holds codecs and error handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	codecs   map[string]Codec
	handlers map[string]printfdf.ErrorHandler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		codecs:   make(map[string]Codec),
		handlers: make(map[string]printfdf.ErrorHandler),
	}
}

// Default is the process-wide registry with printf_df and the strict,
// replace and ignore handlers registered.
var Default = newDefault()

func newDefault() *Registry {
	r := NewRegistry()
	for name, h := range map[string]printfdf.ErrorHandler{
		"strict":  printfdf.Strict,
		"replace": printfdf.Replace,
		"ignore":  printfdf.Ignore,
	} {
		if err := r.RegisterErrorHandler(name, h); err != nil {
			panic(err)
		}
	}
	if err := r.Register(PrintfDF(nil)); err != nil {
		panic(err)
	}
	return r
}

// PrintfDF returns the printf_df codec backed by d, or by a decoder with the
// default marker when d is nil.
func PrintfDF(d *printfdf.Decoder) Codec {
	if d == nil {
		d, _ = printfdf.NewDecoder()
	}
	return Codec{
		Name: printfdf.Name,
		Decode: func(data []byte, h printfdf.ErrorHandler) (string, int, error) {
			return d.WithHandler(h).Decode(data)
		},
		Encode: func(text string, h printfdf.ErrorHandler) ([]byte, int, error) {
			return d.WithHandler(h).Encode(text)
		},
		NewIncremental: func(h printfdf.ErrorHandler) *printfdf.IncrementalDecoder {
			return printfdf.NewIncrementalDecoder(d.WithHandler(h))
		},
	}
}

// Normalize folds a codec or handler name: lower case, with '-' and spaces
// replaced by '_'.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "_", " ", "_").Replace(name)
}

// Register adds c. Registering a name twice is an error.
func (r *Registry) Register(c Codec) error {
	if c.Decode == nil || c.Encode == nil {
		return fmt.Errorf("codec %q: decode and encode functions are required", c.Name)
	}
	name := Normalize(c.Name)
	if name == "" {
		return fmt.Errorf("codec name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codecs[name]; ok {
		return fmt.Errorf("codec %q already registered", name)
	}
	c.Name = name
	r.codecs[name] = c
	return nil
}

// Lookup returns the codec registered under name.
func (r *Registry) Lookup(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[Normalize(name)]
	if !ok {
		return Codec{}, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// Names returns the registered codec names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.codecs)
}

// RegisterErrorHandler adds h under name. Registering a name twice is an error.
func (r *Registry) RegisterErrorHandler(name string, h printfdf.ErrorHandler) error {
	if h == nil {
		return fmt.Errorf("error handler %q is nil", name)
	}
	name = Normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("error handler %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// LookupErrorHandler returns the handler registered under name. An empty
// name means "strict".
func (r *Registry) LookupErrorHandler(name string) (printfdf.ErrorHandler, error) {
	if name == "" {
		name = "strict"
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownErrorHandler, name)
	}
	return h, nil
}

// ErrorHandlerNames returns the registered handler names in sorted order.
func (r *Registry) ErrorHandlerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.handlers)
}

// Decode decodes data with the named codec and error handler.
func (r *Registry) Decode(codecName string, data []byte, handling string) (string, int, error) {
	c, h, err := r.resolve(codecName, handling)
	if err != nil {
		return "", 0, err
	}
	return c.Decode(data, h)
}

// Encode encodes text with the named codec and error handler.
func (r *Registry) Encode(codecName, text, handling string) ([]byte, int, error) {
	c, h, err := r.resolve(codecName, handling)
	if err != nil {
		return nil, 0, err
	}
	return c.Encode(text, h)
}

func (r *Registry) resolve(codecName, handling string) (Codec, printfdf.ErrorHandler, error) {
	c, err := r.Lookup(codecName)
	if err != nil {
		return Codec{}, nil, err
	}
	h, err := r.LookupErrorHandler(handling)
	if err != nil {
		return Codec{}, nil, err
	}
	return c, h, nil
}

// Decode decodes data using the Default registry.
func Decode(codecName string, data []byte, handling string) (string, int, error) {
	return Default.Decode(codecName, data, handling)
}

// Encode encodes text using the Default registry.
func Encode(codecName, text, handling string) ([]byte, int, error) {
	return Default.Encode(codecName, text, handling)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
