package monitoring

import (
	"fmt"
	"math"
	"time"
)

// Uptime is process uptime in several renderings.
type Uptime struct {
	MS        int64  `json:"ms"`
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

// RequestStats are the lifetime request counters.
type RequestStats struct {
	Total       int64  `json:"total"`
	Successful  int64  `json:"successful"`
	Failed      int64  `json:"failed"`
	SuccessRate string `json:"successRate"`
}

// Performance holds latency aggregates in milliseconds.
type Performance struct {
	AvgProcessingTime int64 `json:"avgProcessingTime"`
	FastestRequest    int64 `json:"fastestRequest"`
	SlowestRequest    int64 `json:"slowestRequest"`
}

// TodayStats is the rollup for the current calendar day.
type TodayStats struct {
	Date              string `json:"date"`
	Requests          int64  `json:"requests"`
	Errors            int64  `json:"errors"`
	Successful        int64  `json:"successful"`
	ErrorRate         string `json:"errorRate"`
	AvgProcessingTime int64  `json:"avgProcessingTime"`
}

// OCRStats summarizes page-level recognition volume.
type OCRStats struct {
	TotalPagesProcessed int64   `json:"totalPagesProcessed"`
	AvgPagesPerPDF      float64 `json:"avgPagesPerPDF"`
}

// Status is the full metrics snapshot served on the status endpoint.
type Status struct {
	Uptime       Uptime           `json:"uptime"`
	Requests     RequestStats     `json:"requests"`
	Performance  Performance      `json:"performance"`
	Today        TodayStats       `json:"today"`
	FileTypes    map[string]int64 `json:"fileTypes"`
	ErrorsByType map[string]int64 `json:"errorsByType"`
	RecentErrors []ErrorRecord    `json:"recentErrors"`
	OCR          OCRStats         `json:"ocr"`
}

// Health is the compact health summary. Status is one of healthy,
// warning, degraded, critical.
type Health struct {
	Status    string `json:"status"`
	Uptime    int64  `json:"uptime"`
	ErrorRate string `json:"errorRate"`
	Timestamp int64  `json:"timestamp"`
}

// Status returns a snapshot of all aggregates. The snapshot is detached
// from internal state; callers may retain it.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	uptime := now.Sub(m.start)

	successRate := "100.00"
	if m.totalRequests > 0 {
		successRate = fmt.Sprintf("%.2f", float64(m.successfulRequests)/float64(m.totalRequests)*100)
	}

	var avg int64
	if m.totalRequests > 0 {
		avg = int64(math.Round(float64(m.totalProcessingMs) / float64(m.totalRequests)))
	}
	fastest := m.fastestMs
	if fastest < 0 {
		fastest = 0
	}

	todayKey := dayKey(now)
	today := TodayStats{Date: todayKey, ErrorRate: "0.00"}
	if day := m.daily[todayKey]; day != nil {
		today.Requests = day.Requests
		today.Errors = day.Errors
		today.Successful = day.Requests - day.Errors
		if day.Requests > 0 {
			today.ErrorRate = fmt.Sprintf("%.2f", float64(day.Errors)/float64(day.Requests)*100)
			today.AvgProcessingTime = int64(math.Round(float64(day.TotalTime) / float64(day.Requests)))
		}
	}

	fileTypes := make(map[string]int64, len(m.fileTypes))
	for k, v := range m.fileTypes {
		fileTypes[k] = v
	}
	errorsByType := make(map[string]int64, len(m.errorsByType))
	for k, v := range m.errorsByType {
		errorsByType[k] = v
	}
	recent := make([]ErrorRecord, 0, 10)
	for i, rec := range m.recentErrors {
		if i >= 10 {
			break
		}
		recent = append(recent, rec)
	}

	return Status{
		Uptime: Uptime{
			MS:        uptime.Milliseconds(),
			Seconds:   int64(uptime.Seconds()),
			Formatted: formatUptime(uptime),
		},
		Requests: RequestStats{
			Total:       m.totalRequests,
			Successful:  m.successfulRequests,
			Failed:      m.failedRequests,
			SuccessRate: successRate,
		},
		Performance: Performance{
			AvgProcessingTime: avg,
			FastestRequest:    fastest,
			SlowestRequest:    m.slowestMs,
		},
		Today:        today,
		FileTypes:    fileTypes,
		ErrorsByType: errorsByType,
		RecentErrors: recent,
		OCR: OCRStats{
			TotalPagesProcessed: m.totalPages,
			AvgPagesPerPDF:      math.Round(m.avgPagesPerPDF*10) / 10,
		},
	}
}

// Health derives the service health from the lifetime error rate.
func (m *Monitor) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	rate := 0.0
	if m.totalRequests > 0 {
		rate = float64(m.failedRequests) / float64(m.totalRequests) * 100
	}
	status := "healthy"
	switch {
	case rate > 50:
		status = "critical"
	case rate > 20:
		status = "degraded"
	case rate > 5:
		status = "warning"
	}
	return Health{
		Status:    status,
		Uptime:    now.Sub(m.start).Milliseconds(),
		ErrorRate: fmt.Sprintf("%.2f", rate),
		Timestamp: now.UnixMilli(),
	}
}

func formatUptime(d time.Duration) string {
	seconds := int64(d.Seconds())
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, secs)
}
