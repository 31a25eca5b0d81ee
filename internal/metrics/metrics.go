package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the captcha engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ChallengesCreated prometheus.Counter
	Verifications     *prometheus.CounterVec
	Solves            *prometheus.CounterVec
	TextSource        *prometheus.CounterVec
	UpstreamDuration  *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChallengesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "captcha_challenges_created_total",
			Help: "Total number of challenges issued",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "captcha_verifications_total",
			Help: "Verification attempts by result",
		}, []string{"result"}),
		Solves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "captcha_solves_total",
			Help: "Automated solve attempts by the strategy that produced the guess",
		}, []string{"source"}),
		TextSource: f.NewCounterVec(prometheus.CounterOpts{
			Name: "captcha_text_source_total",
			Help: "Generated challenge texts by origin (ai or local)",
		}, []string{"source"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "captcha_upstream_duration_seconds",
			Help:    "Latency of calls to the text/vision service and OCR",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (m *Metrics) IncChallengesCreated() {
	if m == nil {
		return
	}
	m.ChallengesCreated.Inc()
}

func (m *Metrics) IncVerification(result string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSolve(source string) {
	if m == nil {
		return
	}
	m.Solves.WithLabelValues(source).Inc()
}

func (m *Metrics) IncTextSource(source string) {
	if m == nil {
		return
	}
	m.TextSource.WithLabelValues(source).Inc()
}

// ObserveUpstream records how long an external call took.
func (m *Metrics) ObserveUpstream(op string, took time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(op).Observe(took.Seconds())
}
