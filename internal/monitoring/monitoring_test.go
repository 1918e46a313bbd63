package monitoring

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctract/doctract/constants"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStatusDefaults(t *testing.T) {
	m := New(nil, WithClock(newFakeClock(testEpoch).Now))
	st := m.Status()

	assert.Equal(t, int64(0), st.Requests.Total)
	assert.Equal(t, "100.00", st.Requests.SuccessRate)
	assert.Equal(t, int64(0), st.Performance.FastestRequest)
	assert.Equal(t, int64(0), st.Performance.SlowestRequest)
	assert.Equal(t, "0.00", st.Today.ErrorRate)
	assert.Equal(t, "2025-06-01", st.Today.Date)
	assert.Empty(t, st.RecentErrors)
	assert.Equal(t, float64(0), st.OCR.AvgPagesPerPDF)

	h := m.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "0.00", h.ErrorRate)
}

func TestSingleSuccessfulRequest(t *testing.T) {
	m := New(nil, WithClock(newFakeClock(testEpoch).Now))
	m.Record(Request{
		FileType:       constants.PDF,
		ProcessingTime: 1200 * time.Millisecond,
		Pages:          5,
		Success:        true,
	})

	st := m.Status()
	assert.Equal(t, int64(1), st.Requests.Total)
	assert.Equal(t, int64(1), st.Requests.Successful)
	assert.Equal(t, "100.00", st.Requests.SuccessRate)
	assert.Equal(t, int64(1200), st.Performance.AvgProcessingTime)
	assert.Equal(t, int64(1200), st.Performance.FastestRequest)
	assert.Equal(t, int64(1200), st.Performance.SlowestRequest)
	assert.Equal(t, int64(1), st.FileTypes[constants.PDF])
	assert.Equal(t, int64(5), st.OCR.TotalPagesProcessed)
	assert.Equal(t, float64(5), st.OCR.AvgPagesPerPDF)
	assert.Equal(t, int64(1), st.Today.Requests)
	assert.Equal(t, int64(1), st.Today.Successful)
	assert.Equal(t, int64(1200), st.Today.AvgProcessingTime)
}

func TestErrorClassificationAndRecentCap(t *testing.T) {
	m := New(nil, WithClock(newFakeClock(testEpoch).Now))
	for i := 0; i < 60; i++ {
		m.Record(Request{
			FileType:       constants.PDF,
			ProcessingTime: 100 * time.Millisecond,
			Error:          fmt.Sprintf("recognition timeout: attempt %d", i),
		})
	}

	st := m.Status()
	assert.Equal(t, int64(60), st.Requests.Failed)
	assert.Equal(t, "0.00", st.Requests.SuccessRate)
	assert.Equal(t, int64(60), st.ErrorsByType["timeout"])
	require.Len(t, st.RecentErrors, 10)
	// Newest first, and the internal log stays capped at 50.
	assert.Equal(t, "recognition timeout: attempt 59", st.RecentErrors[0].Error)
	assert.Equal(t, "recognition timeout: attempt 50", st.RecentErrors[9].Error)
	assert.Len(t, m.recentErrors, 50)

	assert.Equal(t, "critical", m.Health().Status)
}

func TestHealthThresholds(t *testing.T) {
	cases := []struct {
		failed int
		want   string
	}{
		{0, "healthy"},
		{5, "healthy"},
		{6, "warning"},
		{20, "warning"},
		{21, "degraded"},
		{50, "degraded"},
		{51, "critical"},
		{55, "critical"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d failed of 100", tc.failed), func(t *testing.T) {
			m := New(nil, WithClock(newFakeClock(testEpoch).Now))
			for i := 0; i < tc.failed; i++ {
				m.Record(Request{Error: "boom"})
			}
			for i := tc.failed; i < 100; i++ {
				m.Record(Request{Success: true})
			}
			assert.Equal(t, tc.want, m.Health().Status)
		})
	}
}

func TestStatusAndHealthIdempotent(t *testing.T) {
	m := New(nil, WithClock(newFakeClock(testEpoch).Now))
	m.Record(Request{FileType: constants.PDF, ProcessingTime: 300 * time.Millisecond, Pages: 2, Success: true})
	m.Record(Request{FileType: constants.IMAGE, ProcessingTime: 80 * time.Millisecond, Error: "unsupported file type"})

	assert.Equal(t, m.Status(), m.Status())
	assert.Equal(t, m.Health(), m.Health())
}

func TestAvgPagesPerPDFRounding(t *testing.T) {
	m := New(nil, WithClock(newFakeClock(testEpoch).Now))
	m.Record(Request{FileType: constants.PDF, Pages: 3, Success: true, ProcessingTime: time.Second})
	m.Record(Request{FileType: constants.PDF, Pages: 4, Success: true, ProcessingTime: time.Second})
	m.Record(Request{FileType: constants.IMAGE, Success: true, ProcessingTime: time.Second})

	assert.Equal(t, 3.5, m.Status().OCR.AvgPagesPerPDF)
}

func TestUptimeFormatting(t *testing.T) {
	clock := newFakeClock(testEpoch)
	m := New(nil, WithClock(clock.Now))
	clock.Advance(25*time.Hour + 61*time.Second)

	st := m.Status()
	assert.Equal(t, "1d 1h 1m 1s", st.Uptime.Formatted)
	assert.Equal(t, int64((25*3600+61)*1000), st.Uptime.MS)
}

func TestDailyStatsPruneAfterRetention(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "metrics.db"))
	require.NoError(t, err)
	defer store.Close()

	clock := newFakeClock(testEpoch)
	m := New(nil, WithClock(clock.Now), WithStore(store))
	m.Record(Request{FileType: constants.PDF, Success: true, ProcessingTime: time.Second})

	clock.Advance(31 * 24 * time.Hour)
	m.Record(Request{FileType: constants.PDF, Success: true, ProcessingTime: time.Second})

	// Only the fresh day survives, in memory and on disk.
	st := m.Status()
	assert.Equal(t, int64(1), st.Today.Requests)
	persisted, err := store.Load("0000-00-00")
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Contains(t, persisted, dayKey(clock.Now()))
}

func TestStoreReloadOnStartup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	clock := newFakeClock(testEpoch)
	m := New(nil, WithClock(clock.Now), WithStore(store))
	m.Record(Request{FileType: constants.PDF, Success: true, ProcessingTime: 500 * time.Millisecond})
	m.Record(Request{FileType: constants.PDF, ProcessingTime: 100 * time.Millisecond, Error: "boom"})
	require.NoError(t, store.Close())

	store2, err := OpenStore(path)
	require.NoError(t, err)
	defer store2.Close()
	m2 := New(nil, WithClock(clock.Now), WithStore(store2))

	st := m2.Status()
	assert.Equal(t, int64(2), st.Today.Requests)
	assert.Equal(t, int64(1), st.Today.Errors)
	// Lifetime counters start fresh; only daily rollups persist.
	assert.Equal(t, int64(0), st.Requests.Total)
}
