// doctract extracts text from a single document and prints it, or
// writes it beside the source with -o.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/doctract/doctract/internal/common"
	"github.com/doctract/doctract/internal/engine"
	"github.com/doctract/doctract/internal/extract"
	"github.com/doctract/doctract/internal/render"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	writeOut := flag.Bool("o", false, "write the text next to the source file instead of stdout")
	lang := flag.String("lang", "", "tesseract language hints, overrides OCR_LANG")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: doctract [-o] [-lang LANG] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	if *lang != "" {
		cfg.OCR.Language = *lang
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	factory := func() (engine.Engine, error) { return engine.NewTesseract() }
	pool, err := engine.NewPool(cfg.OCR.Workers, false, factory, logger)
	if err != nil {
		logger.Error("creating recognition pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	renderer := render.NewRenderer(render.Config{
		Pdftoppm: cfg.Tools.Pdftoppm,
		DPI:      cfg.OCR.DPI,
	}, nil)

	svc := extract.NewService(extract.Config{
		PageLimit:        cfg.OCR.PageLimit,
		Language:         cfg.OCR.Language,
		DPI:              cfg.OCR.DPI,
		MinTextLength:    cfg.OCR.MinTextLength,
		AcquireTimeout:   cfg.OCR.AcquireTimeout,
		RecognizeTimeout: cfg.OCR.RecognizeTimeout,
		Catdoc:           cfg.Tools.Catdoc,
		HeicConverter:    cfg.Tools.HeicConverter,
	}, pool, renderer, nil, logger)

	jobID := uuid.NewString()
	start := time.Now()
	result, err := svc.Extract(ctx, extract.NewDocument(filepath.Base(path), data, ""))
	dur := time.Since(start)

	if err != nil {
		logger.Error("text extraction failed",
			"job_id", jobID, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"job_id", jobID,
		"method", result.Method,
		"fileType", result.FileType,
		"pages", result.Pages,
		"bytes", len(result.Text),
		"duration_ms", dur.Milliseconds(),
	)

	if *writeOut {
		target := path + ".txt"
		if err := os.WriteFile(target, []byte(result.Text), 0o644); err != nil {
			logger.Error("write output", "path", target, "error", err)
			os.Exit(1)
		}
		fmt.Println(target)
		return
	}
	fmt.Print(result.Text)
}
