package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Answer metrics
	AnswersRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_answers_rendered_total",
			Help: "Total number of answers rendered",
		},
		[]string{"surface", "retryable"},
	)

	AnswerRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citeloc_answer_render_duration_seconds",
			Help:    "Time to tokenize and resolve every citation of an answer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"surface"},
	)

	// Citation metrics
	CitationsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_citations_total",
			Help: "Citations by resolution status",
		},
		[]string{"status"},
	)

	SourceMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_source_matches_total",
			Help: "Source matcher outcomes by tier",
		},
		[]string{"tier"},
	)

	MalformedDirectives = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "citeloc_malformed_directives_total",
			Help: "Citation openers that fell back to plain text",
		},
	)

	// Locator metrics
	Locations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_locations_total",
			Help: "Quote lookups by result kind and whether the quote was found",
		},
		[]string{"kind", "found"},
	)

	// PDF engine metrics
	PageRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_page_renders_total",
			Help: "Page geometry requests by outcome",
		},
		[]string{"outcome"},
	)

	PageRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "citeloc_page_render_duration_seconds",
			Help:    "Time to decode a page and extract its text runs",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// Document store metrics
	DocumentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_document_lookups_total",
			Help: "Document store lookups by status",
		},
		[]string{"status"},
	)

	DocumentLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "citeloc_document_lookup_duration_seconds",
			Help:    "Document store query latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// Config metrics
	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_config_reloads_total",
			Help: "Configuration hot reloads by result",
		},
		[]string{"result"},
	)
)

// RecordAnswerMetrics records one rendered answer
func RecordAnswerMetrics(surface string, retryable bool, durationSeconds float64) {
	r := "false"
	if retryable {
		r = "true"
	}
	AnswersRendered.WithLabelValues(surface, r).Inc()
	AnswerRenderDuration.WithLabelValues(surface).Observe(durationSeconds)
}

// RecordLocation records the outcome of one quote lookup
func RecordLocation(kind string, found bool) {
	f := "false"
	if found {
		f = "true"
	}
	Locations.WithLabelValues(kind, f).Inc()
}

// RecordDocumentLookup records a document store query
func RecordDocumentLookup(status string, durationSeconds float64) {
	DocumentLookups.WithLabelValues(status).Inc()
	DocumentLookupDuration.Observe(durationSeconds)
}
