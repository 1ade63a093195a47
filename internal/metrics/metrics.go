// Package metrics holds the Prometheus collectors the API exports on /metrics.
//
// Collectors live on a Metrics value registered against an explicit
// registerer so tests can use a private registry. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// ReadmeFetches counts upstream README attempts by source and outcome.
	ReadmeFetches *prometheus.CounterVec
	// ReadmeCacheHits counts README lookups served from memory.
	ReadmeCacheHits prometheus.Counter
	// TokenRefreshes counts access-token refreshes by outcome.
	TokenRefreshes *prometheus.CounterVec
	// PlaybackCacheHits counts playback snapshots served from the 5s cache.
	PlaybackCacheHits prometheus.Counter
	// SpotifyRequests counts player API calls by endpoint and status code.
	SpotifyRequests *prometheus.CounterVec
	// HTTPRequests counts inbound requests by method, route and status.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration observes inbound request latency by route.
	HTTPDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReadmeFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_readme_fetch_total",
				Help: "README upstream fetch attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		ReadmeCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_readme_cache_hits_total",
			Help: "README lookups served from the in-memory cache",
		}),
		TokenRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_spotify_token_refresh_total",
				Help: "Spotify access token refreshes by outcome",
			},
			[]string{"outcome"},
		),
		PlaybackCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_spotify_playback_cache_hits_total",
			Help: "Playback snapshots served from the response cache",
		}),
		SpotifyRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_spotify_requests_total",
				Help: "Spotify player API calls by endpoint and status code",
			},
			[]string{"endpoint", "code"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_http_requests_total",
				Help: "Inbound HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_http_request_duration_seconds",
				Help:    "Inbound HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) ReadmeFetch(source, outcome string) {
	if m == nil {
		return
	}
	m.ReadmeFetches.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ReadmeCacheHit() {
	if m == nil {
		return
	}
	m.ReadmeCacheHits.Inc()
}

func (m *Metrics) TokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PlaybackCacheHit() {
	if m == nil {
		return
	}
	m.PlaybackCacheHits.Inc()
}

func (m *Metrics) SpotifyRequest(endpoint, code string) {
	if m == nil {
		return
	}
	m.SpotifyRequests.WithLabelValues(endpoint, code).Inc()
}

// HTTPRequest records one served request. route is the chi route pattern,
// never the raw path, to keep label cardinality bounded.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
