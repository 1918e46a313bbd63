// Package extract selects and runs an extraction strategy per document
// type: structured formats are read directly, images go through one
// recognition slot, and scanned PDFs fall back to page-parallel
// recognition bounded by the worker pool.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/doctract/doctract/constants"
	"github.com/doctract/doctract/internal/common"
	"github.com/doctract/doctract/internal/engine"
	"github.com/doctract/doctract/internal/render"
)

// Renderer is the page rasterization capability the fallback path consumes.
// *render.Renderer satisfies it.
type Renderer interface {
	PageCount(path string) (int, error)
	RenderPage(ctx context.Context, path string, page int) ([]byte, error)
}

// Config holds extraction pipeline settings.
type Config struct {
	PageLimit        int    // page ceiling for the scanned-PDF fallback
	Language         string // tesseract language hints, "+"-joined
	DPI              int
	MinTextLength    int // below this, PDF embedded text counts as absent
	AcquireTimeout   time.Duration
	RecognizeTimeout time.Duration
	Catdoc           string // legacy .doc converter binary
	HeicConverter    string // "heif-convert" | "magick" | "sips"
}

// Service is the extraction strategy selector. It owns no shared state
// besides the injected pool; one Extract call is one job.
type Service struct {
	cfg      Config
	pool     *engine.Pool
	renderer Renderer
	runner   render.Runner
	logger   *slog.Logger
}

// NewService wires the selector. A nil runner gets the real exec runner.
func NewService(cfg Config, pool *engine.Pool, renderer Renderer, runner render.Runner, logger *slog.Logger) *Service {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 10
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 50
	}
	if cfg.Catdoc == "" {
		cfg.Catdoc = "catdoc"
	}
	if runner == nil {
		runner = render.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, pool: pool, renderer: renderer, runner: runner, logger: logger}
}

// Extract picks a strategy based on the document's resolved format. The
// returned Result carries the format label even on failure so callers can
// attribute the error in metrics.
func (s *Service) Extract(ctx context.Context, doc Document) (Result, error) {
	start := time.Now()
	format := doc.Format()
	s.logger.Debug("starting extraction", "name", doc.Name, "format", format, "bytes", len(doc.Data))

	var res Result
	var err error
	switch format {
	case constants.TEXT:
		res = Result{Text: Normalize(string(doc.Data)), FileType: constants.TEXT, Method: MethodDirect}
	case constants.XLSX:
		res, err = s.extractXLSX(doc)
	case constants.DOCX:
		res, err = s.extractDOCX(doc)
	case constants.PPTX:
		res, err = s.extractPPTX(doc)
	case constants.DOC:
		res, err = s.extractLegacyDoc(ctx, doc)
	case constants.IMAGE:
		res, err = s.extractImage(ctx, doc)
	case constants.PDF:
		res, err = s.extractPDF(ctx, doc)
	default:
		s.logger.Error("unsupported document", "name", doc.Name, "declared", doc.DeclaredType, "detected", doc.DetectedType)
		return Result{}, fmt.Errorf("%w: %q", common.ErrUnsupportedType, doc.Name)
	}

	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	s.logger.Info("extraction done",
		"name", doc.Name,
		"format", res.FileType,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
