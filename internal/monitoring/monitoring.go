// Package monitoring aggregates outcome metrics across extraction requests:
// process-wide counters, rolling daily statistics, a bounded recent-error
// log, and a derived health status. One Monitor instance is constructed at
// startup and injected into every surface that records or reads metrics.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/doctract/doctract/constants"
)

// recentErrorCap bounds the recent-error log; oldest entries are evicted.
const recentErrorCap = 50

// retentionDays is the rolling window for daily stats.
const retentionDays = 30

// Request is the outcome of one completed extraction job. It must be
// recorded exactly once per job, whatever path the job took.
type Request struct {
	FileType       string
	ProcessingTime time.Duration
	Pages          int
	Success        bool
	Error          string
}

// ErrorRecord is one failure kept in the recent-error log, newest first.
type ErrorRecord struct {
	Timestamp int64  `json:"timestamp"`
	Error     string `json:"error"`
	FileType  string `json:"fileType,omitempty"`
}

// DailyStat is the per-calendar-day rollup.
type DailyStat struct {
	Requests  int64
	Errors    int64
	TotalTime int64 // ms
}

// Monitor holds all aggregate state behind one mutex. Contention is low
// relative to per-job latency, so a single lock is sufficient.
type Monitor struct {
	mu     sync.Mutex
	logger *zap.Logger
	clock  func() time.Time
	start  time.Time

	rules []Rule
	store *Store
	prom  *promMetrics

	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	totalProcessingMs  int64
	slowestMs          int64
	fastestMs          int64 // -1 until the first timed request

	fileTypes    map[string]int64
	errorsByType map[string]int64
	daily        map[string]*DailyStat
	recentErrors []ErrorRecord

	totalPages     int64
	avgPagesPerPDF float64
}

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithClock overrides the time source; tests use it to drive the daily
// window.
func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithRules replaces the default error-classification rules.
func WithRules(rules []Rule) Option {
	return func(m *Monitor) {
		if len(rules) > 0 {
			m.rules = rules
		}
	}
}

// WithStore attaches a persistence store; daily rollups within the
// retention window are reloaded from it at construction time.
func WithStore(store *Store) Option {
	return func(m *Monitor) { m.store = store }
}

// WithPrometheus mirrors request outcomes into prometheus collectors
// registered on reg. A nil reg uses the default registry.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(m *Monitor) {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m.prom = newPromMetrics(reg)
	}
}

// New builds a Monitor. The zero state reports a 100.00 success rate and
// healthy status.
func New(logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		logger:       logger,
		clock:        time.Now,
		rules:        DefaultRules(),
		fastestMs:    -1,
		fileTypes:    make(map[string]int64),
		errorsByType: make(map[string]int64),
		daily:        make(map[string]*DailyStat),
	}
	for _, o := range opts {
		o(m)
	}
	m.start = m.clock()
	if m.store != nil {
		loaded, err := m.store.Load(dayKey(m.start.AddDate(0, 0, -retentionDays)))
		if err != nil {
			m.logger.Warn("daily rollup reload failed", zap.Error(err))
		} else {
			m.daily = loaded
			m.logger.Info("daily rollups reloaded", zap.Int("days", len(loaded)))
		}
	}
	return m
}

// Record folds one job outcome into the aggregate state.
func (m *Monitor) Record(req Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	m.totalRequests++
	if req.Success {
		m.successfulRequests++
	} else {
		m.failedRequests++
	}

	ms := req.ProcessingTime.Milliseconds()
	if ms > 0 {
		m.totalProcessingMs += ms
		if ms > m.slowestMs {
			m.slowestMs = ms
		}
		if m.fastestMs < 0 || ms < m.fastestMs {
			m.fastestMs = ms
		}
	}

	if req.FileType != "" {
		m.fileTypes[req.FileType]++
	}

	if req.Pages > 0 {
		m.totalPages += int64(req.Pages)
		pdfCount := m.fileTypes[constants.PDF]
		if pdfCount < 1 {
			pdfCount = 1
		}
		m.avgPagesPerPDF = float64(m.totalPages) / float64(pdfCount)
	}

	if !req.Success && req.Error != "" {
		category := Classify(req.Error, m.rules)
		m.errorsByType[category]++
		m.recentErrors = append([]ErrorRecord{{
			Timestamp: now.UnixMilli(),
			Error:     req.Error,
			FileType:  req.FileType,
		}}, m.recentErrors...)
		if len(m.recentErrors) > recentErrorCap {
			m.recentErrors = m.recentErrors[:recentErrorCap]
		}
	}

	key := dayKey(now)
	day := m.daily[key]
	if day == nil {
		day = &DailyStat{}
		m.daily[key] = day
	}
	day.Requests++
	if !req.Success {
		day.Errors++
	}
	if ms > 0 {
		day.TotalTime += ms
	}

	m.pruneOldStats(now)

	if m.store != nil {
		if err := m.store.Upsert(key, *day); err != nil {
			m.logger.Warn("daily rollup persist failed", zap.String("day", key), zap.Error(err))
		}
	}
	if m.prom != nil {
		m.prom.observe(req, ms)
	}
}

// pruneOldStats drops daily entries older than the retention window.
// Caller holds the lock.
func (m *Monitor) pruneOldStats(now time.Time) {
	cutoff := dayKey(now.AddDate(0, 0, -retentionDays))
	for key := range m.daily {
		if key < cutoff {
			delete(m.daily, key)
		}
	}
	if m.store != nil {
		if err := m.store.Prune(cutoff); err != nil {
			m.logger.Warn("daily rollup prune failed", zap.Error(err))
		}
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
