package monitoring

import "github.com/prometheus/client_golang/prometheus"

// promMetrics mirrors request outcomes into prometheus collectors. The
// authoritative aggregates live on the Monitor; these exist so standard
// scrape tooling can consume the same signal.
type promMetrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	pages    prometheus.Counter
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doctract_requests_total",
			Help: "Extraction requests by file type and outcome.",
		}, []string{"file_type", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "doctract_processing_seconds",
			Help:    "End to end extraction latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doctract_pages_processed_total",
			Help: "Total pages sent through recognition.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.pages)
	return m
}

func (p *promMetrics) observe(req Request, ms int64) {
	outcome := "success"
	if !req.Success {
		outcome = "error"
	}
	fileType := req.FileType
	if fileType == "" {
		fileType = "unknown"
	}
	p.requests.WithLabelValues(fileType, outcome).Inc()
	if ms > 0 {
		p.duration.Observe(float64(ms) / 1000)
	}
	if req.Pages > 0 {
		p.pages.Add(float64(req.Pages))
	}
}
