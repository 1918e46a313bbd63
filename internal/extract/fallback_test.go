package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctract/doctract/constants"
	"github.com/doctract/doctract/internal/engine"
)

// fakeRenderer serves a fixed page count and emits the page number as
// the "image" bytes so the echo engine round-trips it as text.
type fakeRenderer struct {
	total     int
	failPages map[int]bool // 1-based
	jitter    bool
}

func (f *fakeRenderer) PageCount(string) (int, error) { return f.total, nil }

func (f *fakeRenderer) RenderPage(_ context.Context, _ string, page int) ([]byte, error) {
	if f.failPages[page] {
		return nil, fmt.Errorf("rasterization crashed on page %d", page)
	}
	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(25)) * time.Millisecond)
	}
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

// echoEngine recognizes an image as the literal bytes it contains.
type echoEngine struct{}

func (echoEngine) Name() string { return "echo" }
func (echoEngine) Recognize(_ context.Context, img engine.Image) (string, error) {
	return string(img.Data), nil
}
func (echoEngine) Close() error { return nil }

func newTestService(t *testing.T, cfg Config, r Renderer) *Service {
	t.Helper()
	pool, err := engine.NewPool(3, true, func() (engine.Engine, error) { return echoEngine{}, nil }, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(cfg, pool, r, nil, logger)
}

func TestRecognizePDFKeepsPageOrder(t *testing.T) {
	svc := newTestService(t, Config{PageLimit: 10}, &fakeRenderer{total: 6, jitter: true})

	res, err := svc.recognizePDF(context.Background(), Document{Name: "scan.pdf", Data: []byte("%PDF-fake")})
	require.NoError(t, err)

	want := strings.Join([]string{"page-1", "page-2", "page-3", "page-4", "page-5", "page-6"}, PageBreak)
	assert.Equal(t, want, res.Text)
	assert.Equal(t, 6, res.Pages)
	assert.False(t, res.Truncated)
	assert.Equal(t, MethodPDFOCR, res.Method)
	assert.Equal(t, constants.PDF, res.FileType)
}

func TestRecognizePDFTruncatesAtPageLimit(t *testing.T) {
	svc := newTestService(t, Config{PageLimit: 10}, &fakeRenderer{total: 30})

	res, err := svc.recognizePDF(context.Background(), Document{Name: "scan.pdf", Data: []byte("%PDF-fake")})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Pages)
	assert.True(t, res.Truncated)
	assert.True(t, strings.HasSuffix(res.Text, "[truncated: processed 10 of 30 pages]"))
	// 9 separators between pages plus one before the notice.
	assert.Equal(t, 10, strings.Count(res.Text, "\f"))
	assert.Contains(t, res.Text, "page-10")
	assert.NotContains(t, res.Text, "page-11")
}

func TestRecognizePDFPlaceholderForFailedPage(t *testing.T) {
	svc := newTestService(t, Config{PageLimit: 10}, &fakeRenderer{
		total:     3,
		failPages: map[int]bool{2: true},
	})

	res, err := svc.recognizePDF(context.Background(), Document{Name: "scan.pdf", Data: []byte("%PDF-fake")})
	require.NoError(t, err)

	pages := strings.Split(res.Text, PageBreak)
	require.Len(t, pages, 3)
	assert.Equal(t, "page-1", pages[0])
	assert.Equal(t, "[page 2: text could not be extracted]", pages[1])
	assert.Equal(t, "page-3", pages[2])
}

func TestRecognizePDFRejectsEmptyDocument(t *testing.T) {
	svc := newTestService(t, Config{PageLimit: 10}, &fakeRenderer{total: 0})

	_, err := svc.recognizePDF(context.Background(), Document{Name: "scan.pdf", Data: []byte("%PDF-fake")})
	assert.Error(t, err)
}
