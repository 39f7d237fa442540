package render

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the render service collectors.
type Metrics struct {
	RenderAttempts prometheus.Counter
	RenderFailures prometheus.Counter
	RenderDuration prometheus.Histogram
	AssetDownloads *prometheus.CounterVec
	AssetBytes     prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RenderAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skullboard_render_attempts_total",
			Help: "Screenshot attempts, including retries.",
		}),
		RenderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skullboard_render_failures_total",
			Help: "Renders that failed after exhausting every attempt.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skullboard_render_duration_seconds",
			Help:    "Wall time of POST /api/render.",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		AssetDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skullboard_asset_downloads_total",
			Help: "Discord CDN downloads by result.",
		}, []string{"result"}),
		AssetBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skullboard_asset_bytes_total",
			Help: "Bytes downloaded from the Discord CDN.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RenderAttempts, m.RenderFailures, m.RenderDuration, m.AssetDownloads, m.AssetBytes)
	}
	return m
}

// RegisterCacheGauges exposes live entry counts of the in-memory caches.
func RegisterCacheGauges(reg prometheus.Registerer, assets func() int, payloads func() int) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "skullboard_asset_cache_entries",
			Help: "Entries held by the asset proxy cache.",
		}, func() float64 { return float64(assets()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "skullboard_payload_cache_entries",
			Help: "Entries held by the render payload store.",
		}, func() float64 { return float64(payloads()) }),
	)
}
