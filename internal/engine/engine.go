// Package engine wraps the optical character recognition capability behind a
// narrow interface and manages a fixed-size pool of engine handles. Handles
// are expensive to initialize and stateful, so callers get exclusive access
// to one through Pool.Acquire and must return it with Pool.Release.
package engine

import "context"

// Image is one encoded raster input submitted for recognition.
type Image struct {
	// Data is the encoded image payload (PNG unless noted otherwise).
	Data []byte
	// Language lists tesseract language hints joined by "+", e.g. "eng+deu".
	Language string
	// DPI carries the effective dots-per-inch; zero means unknown.
	DPI int
}

// Engine is the recognition provider contract: one image in, text out.
// Implementations are stateful and not safe for concurrent use; Close must
// be called to free the underlying handle.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img Image) (string, error)
	Close() error
}

// Factory creates a fresh engine handle. The pool calls it at construction
// time (pooled variant), per acquisition (per-use variant), and whenever a
// discarded handle needs replacing.
type Factory func() (Engine, error)
