package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocaptions_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autocaptions_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Caption request outcomes as seen by the API
	CaptionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocaptions_caption_requests_total",
			Help: "Total number of caption requests by outcome",
		},
		[]string{"outcome"},
	)

	// Extraction Metrics
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocaptions_extractions_total",
			Help: "Total number of extractor invocations by result",
		},
		[]string{"result"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autocaptions_extraction_duration_seconds",
			Help:    "Wall time of a full caption extraction",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		},
	)

	ExtractionsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "autocaptions_extractions_in_progress",
			Help: "Number of extractor processes currently running",
		},
	)

	CuesPerTrack = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autocaptions_cues_per_track",
			Help:    "Number of cues in returned caption tracks",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)

	LanguageSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocaptions_language_selections_total",
			Help: "Selected caption languages and whether the preferred one was available",
		},
		[]string{"language", "preferred"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocaptions_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocaptions_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autocaptions_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordCaptionRequest records the outcome of a getCaptions call
func RecordCaptionRequest(outcome string) {
	CaptionRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordExtraction records a finished extraction
func RecordExtraction(result string, duration float64, cues int) {
	ExtractionsTotal.WithLabelValues(result).Inc()
	ExtractionDuration.Observe(duration)
	if cues > 0 {
		CuesPerTrack.Observe(float64(cues))
	}
}

// RecordLanguageSelection records which caption language was chosen
func RecordLanguageSelection(language string, preferred bool) {
	p := "false"
	if preferred {
		p = "true"
	}
	LanguageSelections.WithLabelValues(language, p).Inc()
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
