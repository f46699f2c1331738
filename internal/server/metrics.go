package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctcd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Decode metrics
	decodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcd_decode_requests_total",
			Help: "Total number of decode requests",
		},
		[]string{"input", "status"}, // input: scores, labels
	)

	decodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctcd_decode_duration_seconds",
			Help:    "Decode duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"input"},
	)

	decodeBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ctcd_decode_batch_size",
			Help:    "Number of sequences per decode request",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctcd_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctcd_websocket_frames_total",
			Help: "Total number of WebSocket frames processed",
		},
		[]string{"direction"}, // direction: received, sent
	)
)
