package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/doctract/doctract/constants"
	"github.com/doctract/doctract/internal/common"
	"github.com/doctract/doctract/internal/engine"
)

// PageBreak is the literal separator joining per-page recognized text.
const PageBreak = "\n\f\n"

// recognizePDF drives the page-parallel fallback: render each page, push it
// through one recognition slot, and reassemble results in page order no
// matter what order the tasks finish in. Concurrency is bounded by the pool
// size, not the page count; rendering itself is not pool-gated.
func (s *Service) recognizePDF(ctx context.Context, doc Document) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "doctract-ocr-*")
	if err != nil {
		return Result{FileType: constants.PDF}, err
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
		return Result{FileType: constants.PDF}, err
	}

	total, err := s.renderer.PageCount(path)
	if err != nil {
		return Result{FileType: constants.PDF}, fmt.Errorf("%w: %v", common.ErrStructuredParse, err)
	}
	if total < 1 {
		return Result{FileType: constants.PDF}, fmt.Errorf("%w: document has no pages", common.ErrStructuredParse)
	}
	n := min(total, s.cfg.PageLimit)
	s.logger.Info("recognizing scanned pdf", "name", doc.Name, "pages", n, "total", total)

	// Results land at their page index; completion order never affects
	// output order.
	texts := make([]string, n)
	eg, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			texts[i] = s.recognizePage(gctx, path, i)
			return nil
		})
	}
	_ = eg.Wait() // page tasks absorb their own failures

	var b strings.Builder
	for i, t := range texts {
		if i > 0 {
			b.WriteString(PageBreak)
		}
		b.WriteString(t)
	}
	truncated := n < total
	if truncated {
		b.WriteString(PageBreak)
		fmt.Fprintf(&b, "[truncated: processed %d of %d pages]", n, total)
	}

	return Result{
		Text:      b.String(),
		FileType:  constants.PDF,
		Pages:     n,
		Method:    MethodPDFOCR,
		Truncated: truncated,
	}, nil
}

// recognizePage renders and recognizes one 0-based page. Render and
// recognition failures are absorbed into a placeholder so a bad page never
// fails the whole document.
func (s *Service) recognizePage(ctx context.Context, path string, idx int) string {
	img, err := s.renderer.RenderPage(ctx, path, idx+1)
	if err != nil {
		s.logger.Warn("page render failed", "page", idx, "error", err)
		return pagePlaceholder(idx)
	}

	slot, err := s.acquireSlot(ctx)
	if err != nil {
		s.logger.Warn("worker acquire failed", "page", idx, "error", err)
		return pagePlaceholder(idx)
	}
	defer s.pool.Release(slot)

	text, err := s.pool.Recognize(ctx, slot, engine.Image{Data: img, Language: s.cfg.Language, DPI: s.cfg.DPI}, s.cfg.RecognizeTimeout)
	if err != nil {
		s.logger.Warn("page recognition failed", "page", idx, "error", err)
		return pagePlaceholder(idx)
	}
	return Normalize(text)
}

// acquireSlot blocks for a worker slot, bounded by the configured acquire
// timeout when one is set.
func (s *Service) acquireSlot(ctx context.Context) (*engine.Slot, error) {
	if s.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AcquireTimeout)
		defer cancel()
	}
	return s.pool.Acquire(ctx)
}

func pagePlaceholder(idx int) string {
	return fmt.Sprintf("[page %d: text could not be extracted]", idx+1)
}
