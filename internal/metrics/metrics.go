package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the ingestion pipeline.
type Metrics struct {
	registry             *prometheus.Registry
	refreshesTotal       prometheus.Counter
	segmentsFetchedTotal prometheus.Counter
	segmentErrorsTotal   prometheus.Counter
	framesDisplayedTotal prometheus.Counter
	framesDroppedTotal   prometheus.Counter
	captionsTotal        prometheus.Counter
}

// New creates and registers Prometheus metrics for the player.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	refreshesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anhelo_playlist_refreshes_total",
		Help: "Total number of media playlist refresh cycles",
	})
	segmentsFetchedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anhelo_segments_fetched_total",
		Help: "Total number of media segments fetched and consumed",
	})
	segmentErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anhelo_segment_errors_total",
		Help: "Total number of segment fetches that failed and were skipped",
	})
	framesDisplayedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anhelo_frames_displayed_total",
		Help: "Total number of frames rendered on schedule",
	})
	framesDroppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anhelo_frames_dropped_total",
		Help: "Total number of decoded frames dropped by the pacing policy",
	})
	captionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "anhelo_captions_total",
		Help: "Total number of CEA-608 caption strings decoded",
	})

	registry.MustRegister(
		refreshesTotal,
		segmentsFetchedTotal,
		segmentErrorsTotal,
		framesDisplayedTotal,
		framesDroppedTotal,
		captionsTotal,
	)

	return &Metrics{
		registry:             registry,
		refreshesTotal:       refreshesTotal,
		segmentsFetchedTotal: segmentsFetchedTotal,
		segmentErrorsTotal:   segmentErrorsTotal,
		framesDisplayedTotal: framesDisplayedTotal,
		framesDroppedTotal:   framesDroppedTotal,
		captionsTotal:        captionsTotal,
	}
}

// IncRefreshes increments the playlist refresh counter.
func (m *Metrics) IncRefreshes() {
	m.refreshesTotal.Inc()
}

// IncSegmentsFetched increments the segments fetched counter.
func (m *Metrics) IncSegmentsFetched() {
	m.segmentsFetchedTotal.Inc()
}

// IncSegmentErrors increments the skipped segment fetch counter.
func (m *Metrics) IncSegmentErrors() {
	m.segmentErrorsTotal.Inc()
}

// IncFramesDisplayed increments the displayed frame counter.
func (m *Metrics) IncFramesDisplayed() {
	m.framesDisplayedTotal.Inc()
}

// IncFramesDropped increments the dropped frame counter.
func (m *Metrics) IncFramesDropped() {
	m.framesDroppedTotal.Inc()
}

// IncCaptions increments the decoded caption counter.
func (m *Metrics) IncCaptions() {
	m.captionsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
