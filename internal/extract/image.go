package extract

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/doctract/doctract/constants"
	"github.com/doctract/doctract/internal/common"
	"github.com/doctract/doctract/internal/engine"
)

// extractImage performs whole-document recognition on a single image
// through one pooled slot. Recognition failure fails the job; there is no
// page-level isolation for a one-image document.
func (s *Service) extractImage(ctx context.Context, doc Document) (Result, error) {
	data := doc.Data
	if constants.IsHEICExt(filepath.Ext(doc.Name)) {
		converted, cleanup, err := s.convertHEIC(ctx, doc)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			s.logger.Error("heic conversion failed", "name", doc.Name, "error", err)
			return Result{FileType: constants.IMAGE}, fmt.Errorf("%w: %v", common.ErrStructuredParse, err)
		}
		data = converted
	}

	slot, err := s.acquireSlot(ctx)
	if err != nil {
		return Result{FileType: constants.IMAGE}, err
	}
	defer s.pool.Release(slot)

	text, err := s.pool.Recognize(ctx, slot, engine.Image{Data: data, Language: s.cfg.Language, DPI: s.cfg.DPI}, s.cfg.RecognizeTimeout)
	if err != nil {
		return Result{FileType: constants.IMAGE}, fmt.Errorf("%w: %v", common.ErrRecognitionFailure, err)
	}

	return Result{
		Text:     Normalize(text),
		FileType: constants.IMAGE,
		Pages:    1,
		Method:   MethodImageOCR,
	}, nil
}
