package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/doctract/doctract/internal/common"
	"github.com/doctract/doctract/internal/engine"
	"github.com/doctract/doctract/internal/extract"
	"github.com/doctract/doctract/internal/ingest"
	"github.com/doctract/doctract/internal/monitoring"
	"github.com/doctract/doctract/internal/render"
	"github.com/doctract/doctract/internal/server"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)

	// Env
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Recognition pool
	factory := func() (engine.Engine, error) { return engine.NewTesseract() }
	pool, err := engine.NewPool(cfg.OCR.Workers, cfg.OCR.ReuseEngines, factory, slogger)
	if err != nil {
		log.Fatalf("creating recognition pool: %v", err)
	}
	defer pool.Close()

	renderer := render.NewRenderer(render.Config{
		Pdftoppm: cfg.Tools.Pdftoppm,
		DPI:      cfg.OCR.DPI,
	}, nil)

	extractor := extract.NewService(extract.Config{
		PageLimit:        cfg.OCR.PageLimit,
		Language:         cfg.OCR.Language,
		DPI:              cfg.OCR.DPI,
		MinTextLength:    cfg.OCR.MinTextLength,
		AcquireTimeout:   cfg.OCR.AcquireTimeout,
		RecognizeTimeout: cfg.OCR.RecognizeTimeout,
		Catdoc:           cfg.Tools.Catdoc,
		HeicConverter:    cfg.Tools.HeicConverter,
	}, pool, renderer, nil, slogger)

	// Monitoring
	opts := []monitoring.Option{monitoring.WithPrometheus(nil)}
	if cfg.Metrics.RulesPath != "" {
		rules, err := monitoring.LoadRules(cfg.Metrics.RulesPath)
		if err != nil {
			log.Fatalf("loading error rules: %v", err)
		}
		opts = append(opts, monitoring.WithRules(rules))
	}
	if cfg.Metrics.DBPath != "" {
		store, err := monitoring.OpenStore(cfg.Metrics.DBPath)
		if err != nil {
			log.Fatalf("opening metrics db: %v", err)
		}
		defer store.Close()
		opts = append(opts, monitoring.WithStore(store))
	}
	monitor := monitoring.New(logger, opts...)

	// Hot folders
	if len(cfg.Ingest.WatchDirs) > 0 {
		watcher := ingest.NewService(ingest.Config{
			Roots:    cfg.Ingest.WatchDirs,
			Debounce: cfg.Ingest.Debounce,
		}, extractor, monitor, slogger)
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("hot folder watcher stopped: %v", err)
			}
		}()
	}

	// HTTP server
	srv := server.New(cfg, extractor, monitor, logger)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	fmt.Println("stopped.")
}
