package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/doctract/doctract/constants"
	"github.com/doctract/doctract/internal/extract"
	"github.com/doctract/doctract/internal/monitoring"
)

// outputSuffix is appended to the source file name, extension included,
// so siblings from different formats never collide.
const outputSuffix = ".txt"

// Process extracts text from one file and writes it beside the source.
// Files whose content hash was already processed are skipped.
func (s *Service) Process(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	out := Result{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		out.Err = err.Error()
		return out, err
	}
	out.SourcePath = abs

	if strings.HasSuffix(abs, outputSuffix) {
		return out, nil
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !allowedExt(ext, s.cfg.AllowedExts) {
		err := fmt.Errorf("unsupported or missing extension %q", ext)
		out.Err = err.Error()
		return out, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		out.Err = err.Error()
		return out, err
	}

	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])
	s.mu.Lock()
	if prev, ok := s.seen[out.HashHex]; ok {
		s.mu.Unlock()
		out.OutputPath = prev
		out.Deduplicated = true
		s.logger.Debug("duplicate content skipped", "path", abs, "output", prev)
		return out, nil
	}
	s.mu.Unlock()

	doc := extract.NewDocument(filepath.Base(abs), data, "")
	result, err := s.extractor.Extract(ctx, doc)
	elapsed := time.Since(start)
	out.FileType = result.FileType
	if err != nil {
		out.Err = err.Error()
		s.record(monitoring.Request{
			FileType:       result.FileType,
			ProcessingTime: elapsed,
			Error:          err.Error(),
		})
		return out, err
	}

	target := abs + outputSuffix
	if err := os.WriteFile(target, []byte(result.Text), 0o644); err != nil {
		out.Err = err.Error()
		s.record(monitoring.Request{
			FileType:       result.FileType,
			ProcessingTime: elapsed,
			Error:          err.Error(),
		})
		return out, err
	}

	s.mu.Lock()
	s.seen[out.HashHex] = target
	s.mu.Unlock()

	out.OutputPath = target
	out.ProcessedAt = time.Now().UTC()
	s.record(monitoring.Request{
		FileType:       result.FileType,
		ProcessingTime: elapsed,
		Pages:          result.Pages,
		Success:        true,
	})
	s.logger.Info("hot folder file processed",
		"path", abs,
		"output", target,
		"fileType", result.FileType,
		"pages", result.Pages)
	return out, nil
}

// ScanDirectory walks root, skips hidden entries if requested, and
// processes every matching file. Returns per-file results plus
// aggregate stats.
func (s *Service) ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, Stats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, Stats{}, errors.New("root path is required")
	}

	var results []Result
	var stats Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !allowedExt(ext, s.cfg.AllowedExts) || strings.HasSuffix(path, outputSuffix) {
			return nil
		}
		stats.Matched++

		r, err := s.Process(ctx, path)
		if err != nil {
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (s *Service) record(req monitoring.Request) {
	if s.monitor != nil {
		s.monitor.Record(req)
	}
}

func allowedExt(ext string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(ext)]
	return ok
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
