// Package render rasterizes single pages of a paginated document into
// images. Rasterization is an external capability: it shells out to
// pdftoppm rather than rendering PDF content itself.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Config holds rasterization settings.
type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI, default 300
}

// Renderer converts one PDF page at a time into a PNG buffer.
type Renderer struct {
	cfg    Config
	runner Runner
}

// NewRenderer builds a renderer. A nil runner gets the real exec runner.
func NewRenderer(cfg Config, runner Runner) *Renderer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Renderer{cfg: cfg, runner: runner}
}

// PageCount returns the number of pages in the PDF at path.
func (r *Renderer) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// RenderPage rasterizes the 1-based page of the PDF at path into a PNG.
func (r *Renderer) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "doctract-pp-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f <p> -l <p> -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-f", fmt.Sprintf("%d", page),
		"-l", fmt.Sprintf("%d", page),
		"-r", fmt.Sprintf("%d", r.cfg.DPI),
		"-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, truncate(string(errb), 512))
	}

	// pdftoppm zero-pads the page suffix depending on the document's total
	// page count, so glob instead of reconstructing the name.
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("read rendered page %d: %w", page, err)
	}
	return data, nil
}
