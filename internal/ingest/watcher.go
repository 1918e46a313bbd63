package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Extensions watched by default (lowercase, without '.'). Plain text is
// excluded so the watcher never chews on its own output files.
var defaultExts = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"heic": {},
	"docx": {},
	"doc":  {},
	"xlsx": {},
	"pptx": {},
}

// startWatcher watches cfg.Roots recursively and emits candidate file
// paths. Rapid write bursts for the same path are coalesced by the
// debounce window.
func startWatcher(ctx context.Context, cfg Config, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no watch roots provided")
	}

	events := make(chan string, 256)
	errs := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	addRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if isHidden(path) && path != root {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && watchable(path, cfg.AllowedExts) {
				select {
				case events <- path:
				default:
				}
			}
			return nil
		})
	}
	for _, root := range cfg.Roots {
		if err := addRoot(root); err != nil {
			logger.Error("watch root registration failed", "root", root, "error", err)
			w.Close()
			return nil, nil, err
		}
		logger.Info("watching hot folder", "root", root)
	}

	go func() {
		defer close(events)
		defer close(errs)
		defer w.Close()

		// pending and the timer are owned by this goroutine alone; the
		// debounce fires through the select below, never on a timer
		// callback goroutine.
		pending := map[string]struct{}{}
		var timer *time.Timer
		var timerC <-chan time.Time

		flush := func() {
			for p := range pending {
				select {
				case events <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					// New subdirectories join the watch; Add on a
					// plain file fails harmlessly.
					if err := w.Add(e.Name); err == nil {
						logger.Debug("watching new directory", "path", e.Name)
					}
				}
				if watchable(e.Name, cfg.AllowedExts) && e.Op.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer == nil {
							timer = time.NewTimer(cfg.Debounce)
						} else {
							if !timer.Stop() {
								select {
								case <-timer.C:
								default:
								}
							}
							timer.Reset(cfg.Debounce)
						}
						timerC = timer.C
					} else {
						flush()
					}
				}
			case <-timerC:
				timerC = nil
				flush()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return events, errs, nil
}

func watchable(path string, exts map[string]struct{}) bool {
	if isHidden(path) || strings.HasSuffix(path, outputSuffix) {
		return false
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}
