// Package ingest watches hot folders and extracts text from documents
// dropped into them, writing the result next to the source file.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/doctract/doctract/internal/extract"
	"github.com/doctract/doctract/internal/monitoring"
)

// Extractor runs one extraction job. Satisfied by *extract.Service.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (extract.Result, error)
}

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	OutputPath   string
	FileType     string
	HashHex      string
	Deduplicated bool
	ProcessedAt  time.Time
	Err          string
}

// Stats summarizes a directory scan.
type Stats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Config controls watching and processing.
type Config struct {
	Roots       []string
	AllowedExts map[string]struct{} // lowercased sans '.'; nil uses the default set
	InitialScan bool
	Debounce    time.Duration
}

// Service consumes watcher events and runs extraction on each file.
type Service struct {
	cfg       Config
	extractor Extractor
	monitor   *monitoring.Monitor
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]string // content hash -> output path
}

// NewService builds an ingest Service. monitor may be nil when outcomes
// need no recording, as in one-shot CLI use.
func NewService(cfg Config, extractor Extractor, monitor *monitoring.Monitor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = defaultExts
	}
	return &Service{
		cfg:       cfg,
		extractor: extractor,
		monitor:   monitor,
		logger:    logger,
		seen:      make(map[string]string),
	}
}

// Run starts the watcher and processes events until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	events, errs, err := startWatcher(ctx, s.cfg, s.logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := s.Process(ctx, path); err != nil {
				s.logger.Warn("hot folder file failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
