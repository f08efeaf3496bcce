// Package metrics exposes Prometheus collectors for the scraping pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kondo"

// Scrape outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Media outcomes.
const (
	MediaStored   = "stored"
	MediaRejected = "rejected"
	MediaGated    = "gated"
	MediaFailed   = "failed"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	scrapes        *prometheus.CounterVec
	methods        *prometheus.CounterVec
	escalations    prometheus.Counter
	fetchUnits     *prometheus.CounterVec
	fetchCostUSD   *prometheus.CounterVec
	mergeDecisions *prometheus.CounterVec
	media          *prometheus.CounterVec
	scrapeDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Use prometheus.NewRegistry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scrapes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "scrapes_total",
			Help:      "Listing scrapes by engine and outcome.",
		}, []string{"engine", "status"}),
		methods: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "extraction_method_total",
			Help:      "Successful scrapes by extraction method.",
		}, []string{"method"}),
		escalations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "render_escalations_total",
			Help:      "Scrapes escalated from static fetch to JavaScript rendering.",
		}),
		fetchUnits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "cost_units_total",
			Help:      "Provider-reported cost units (credits or tokens).",
		}, []string{"provider"}),
		fetchCostUSD: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "platform",
			Name:      "cost_usd_total",
			Help:      "Estimated fetch spend in USD.",
		}, []string{"provider"}),
		mergeDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "decisions_total",
			Help:      "Merge field decisions.",
		}, []string{"decision"}),
		media: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "candidates_total",
			Help:      "Media candidates by outcome.",
		}, []string{"outcome"}),
		scrapeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "scrape_duration_seconds",
			Help:      "End-to-end listing scrape duration.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"engine"}),
	}
}

// ObserveScrape records one listing scrape.
func (m *Metrics) ObserveScrape(engine, status string, d time.Duration) {
	if m == nil {
		return
	}
	if engine == "" {
		engine = "none"
	}
	m.scrapes.WithLabelValues(engine, status).Inc()
	m.scrapeDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// ObserveExtraction records the method of a successful extraction and
// whether it escalated to rendering.
func (m *Metrics) ObserveExtraction(method string, escalated bool) {
	if m == nil {
		return
	}
	m.methods.WithLabelValues(method).Inc()
	if escalated {
		m.escalations.Inc()
	}
}

// ObserveFetchCost records provider usage and its USD estimate.
func (m *Metrics) ObserveFetchCost(provider string, units, usd float64) {
	if m == nil || provider == "" {
		return
	}
	m.fetchUnits.WithLabelValues(provider).Add(units)
	m.fetchCostUSD.WithLabelValues(provider).Add(usd)
}

// ObserveMerge records merge decision counts.
func (m *Metrics) ObserveMerge(accepted, rejected int) {
	if m == nil {
		return
	}
	m.mergeDecisions.WithLabelValues("accepted").Add(float64(accepted))
	m.mergeDecisions.WithLabelValues("rejected").Add(float64(rejected))
}

// ObserveMedia records n media candidates with the given outcome.
func (m *Metrics) ObserveMedia(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.media.WithLabelValues(outcome).Add(float64(n))
}
