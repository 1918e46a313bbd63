package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "doctract", cfg.Server.Name)
	assert.Equal(t, int64(50)<<20, cfg.Server.MaxUploadBytes)
	assert.Equal(t, 10, cfg.OCR.PageLimit)
	assert.Equal(t, 4, cfg.OCR.Workers)
	assert.True(t, cfg.OCR.ReuseEngines)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 90*time.Second, cfg.OCR.RecognizeTimeout)
	assert.Empty(t, cfg.Ingest.WatchDirs)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OCR_WORKERS", "8")
	t.Setenv("OCR_REUSE_ENGINES", "false")
	t.Setenv("OCR_PAGE_LIMIT", "25")
	t.Setenv("OCR_LANG", "eng+deu")
	t.Setenv("WATCH_DIRS", "/srv/inbox, /srv/scans ,")
	t.Setenv("WATCH_DEBOUNCE", "2s")

	cfg := LoadConfig()
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.OCR.Workers)
	assert.False(t, cfg.OCR.ReuseEngines)
	assert.Equal(t, 25, cfg.OCR.PageLimit)
	assert.Equal(t, "eng+deu", cfg.OCR.Language)
	assert.Equal(t, []string{"/srv/inbox", "/srv/scans"}, cfg.Ingest.WatchDirs)
	assert.Equal(t, 2*time.Second, cfg.Ingest.Debounce)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("OCR_WORKERS", "many")
	t.Setenv("OCR_REUSE_ENGINES", "sure")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := LoadConfig()
	assert.Equal(t, 4, cfg.OCR.Workers)
	assert.True(t, cfg.OCR.ReuseEngines)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadConfig()
	cfg.OCR.Workers = 0
	err := cfg.Validate()
	require.Error(t, err)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}
