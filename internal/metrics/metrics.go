package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 短链接跳转, result: redirect / json / not_found / error
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_redirects_total",
			Help: "Total number of short link resolutions by result",
		},
		[]string{"result"},
	)

	ScansRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_scans_recorded_total",
			Help: "Total number of scan rows persisted",
		},
	)

	// 地理位置查询, result: hit / miss / skipped / error / cached
	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_geo_lookups_total",
			Help: "Total number of IP geolocation lookups by result",
		},
		[]string{"result"},
	)

	GeoLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qr_geo_lookup_duration_seconds",
			Help:    "Duration of outbound geolocation requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// 实时推送任务, result: delivered / no_subscriber / dropped / failed
	NotifyTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_notify_tasks_total",
			Help: "Total number of live scan notifications by result",
		},
		[]string{"result"},
	)

	NotifyQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qr_notify_queue_depth",
			Help: "Pending live notification tasks",
		},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qr_live_connections",
			Help: "Open live-update websocket connections",
		},
	)

	AnalyticsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qr_analytics_duration_seconds",
			Help:    "Duration of analytics report computation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_rate_limit_rejections_total",
			Help: "Requests rejected by rate limiting",
		},
		[]string{"scope"},
	)
)
