package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	OCR     OCRConfig
	Tools   ToolsConfig
	Metrics MetricsConfig
	Ingest  IngestConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	Name            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// OCRConfig holds recognition pipeline configuration
type OCRConfig struct {
	PageLimit        int  // max pages processed by the scanned-PDF fallback
	Workers          int  // recognition worker pool size
	ReuseEngines     bool // pooled engine handles vs create-per-use
	Language         string
	DPI              int
	MinTextLength    int // embedded-text threshold below which a PDF is treated as scanned
	AcquireTimeout   time.Duration
	RecognizeTimeout time.Duration
}

// ToolsConfig holds paths of the external binaries the pipeline shells out to
type ToolsConfig struct {
	Pdftoppm      string
	Catdoc        string
	HeicConverter string
}

// MetricsConfig holds monitoring configuration
type MetricsConfig struct {
	DBPath    string // optional sqlite file for daily-rollup persistence
	RulesPath string // optional YAML file of error-classification rules
}

// IngestConfig holds hot-folder ingestion configuration
type IngestConfig struct {
	WatchDirs []string
	Debounce  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("ADDR", ":"+getEnv("PORT", "8080")),
			Name:            getEnv("SERVER_NAME", "doctract"),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 50)) << 20,
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OCR: OCRConfig{
			PageLimit:        getEnvAsInt("OCR_PAGE_LIMIT", 10),
			Workers:          getEnvAsInt("OCR_WORKERS", 4),
			ReuseEngines:     getEnvAsBool("OCR_REUSE_ENGINES", true),
			Language:         getEnv("OCR_LANG", "eng"),
			DPI:              getEnvAsInt("OCR_DPI", 300),
			MinTextLength:    getEnvAsInt("PDF_MIN_TEXT_LENGTH", 50),
			AcquireTimeout:   getEnvAsDuration("OCR_ACQUIRE_TIMEOUT", 2*time.Minute),
			RecognizeTimeout: getEnvAsDuration("OCR_RECOGNIZE_TIMEOUT", 90*time.Second),
		},
		Tools: ToolsConfig{
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Catdoc:        getEnv("CATDOC_BIN", "catdoc"),
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
		},
		Metrics: MetricsConfig{
			DBPath:    getEnv("METRICS_DB_PATH", ""),
			RulesPath: getEnv("ERROR_RULES_PATH", ""),
		},
		Ingest: IngestConfig{
			WatchDirs: getEnvAsList("WATCH_DIRS"),
			Debounce:  getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "ADDR is required", ErrInvalidInput)
	}
	if c.OCR.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_WORKERS must be >= 1", ErrInvalidInput)
	}
	if c.OCR.PageLimit < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_PAGE_LIMIT must be >= 1", ErrInvalidInput)
	}
	return nil
}
