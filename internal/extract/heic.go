package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// convertHEIC converts a HEIC/HEIF buffer to PNG using the configured
// converter binary ("heif-convert" | "magick" | "sips").
//
// Returns (png, cleanup, err). Call cleanup() to remove temp files.
func (s *Service) convertHEIC(ctx context.Context, doc Document) ([]byte, func(), error) {
	tmpDir, err := os.MkdirTemp("", "doctract-heic-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	in := filepath.Join(tmpDir, "in"+strings.ToLower(filepath.Ext(doc.Name)))
	if err := os.WriteFile(in, doc.Data, 0o600); err != nil {
		return nil, cleanup, err
	}
	out := filepath.Join(tmpDir, "out.png")

	switch s.cfg.HeicConverter {
	case "heif-convert":
		if _, errb, err2 := s.runner.Run(ctx, "heif-convert", in, out); err2 != nil {
			return nil, cleanup, fmt.Errorf("heif-convert failed: %w (%s)", err2, errb)
		}
	case "magick":
		if _, errb, err2 := s.runner.Run(ctx, "magick", in, out); err2 != nil {
			return nil, cleanup, fmt.Errorf("magick convert failed: %w (%s)", err2, errb)
		}
	case "sips":
		if _, errb, err2 := s.runner.Run(ctx, "sips", "-s", "format", "png", in, "--out", out); err2 != nil {
			return nil, cleanup, fmt.Errorf("sips convert failed: %w (%s)", err2, errb)
		}
	default:
		return nil, cleanup, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %v", err)
	}
	return data, cleanup, nil
}
