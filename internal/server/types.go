// Package server exposes greedy CTC decoding over HTTP and WebSocket.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soniq-ml/ctcd/internal/decoder"
)

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string
	MaxBodyMB  int64
	TimeoutSec int

	// Decoder defaults; requests may override the flags per call.
	BlankIndex int
	MaxWorkers int
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	corsOrigin string
	maxBodyMB  int64
	timeoutSec int
	blankIndex int
	maxWorkers int
	logger     *slog.Logger
}

// DecodeRequest is the body of POST /decode. Exactly one of Scores or
// Labels must be set; the server decides the input kind once per request.
type DecodeRequest struct {
	// Scores is a [batch][time][vocab] matrix of per-class values.
	Scores [][][]float32 `json:"scores,omitempty"`
	// Labels is a [batch][time] matrix of pre-computed label IDs.
	Labels [][]int64 `json:"labels,omitempty"`
	// Lengths gives the valid extent per sequence; optional.
	Lengths []int `json:"lengths,omitempty"`

	BlankIndex         *int `json:"blank_index,omitempty"`
	PreserveAlignments bool `json:"preserve_alignments,omitempty"`
	ComputeTimestamps  bool `json:"compute_timestamps,omitempty"`
}

// HypothesisResult is the wire form of a decoded hypothesis.
type HypothesisResult struct {
	Symbols   []int       `json:"symbols"`
	Score     float64     `json:"score"`
	Timesteps []int       `json:"timesteps,omitempty"`
	Alignment [][]float32 `json:"alignment,omitempty"`
	Length    int         `json:"length"`
}

// DecodeResponse is the body returned by POST /decode.
type DecodeResponse struct {
	Success    bool               `json:"success"`
	Hypotheses []HypothesisResult `json:"hypotheses,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorType  string             `json:"error_type,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// NewServer creates a new decode server instance.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BlankIndex < 0 {
		config.BlankIndex = 0
	}
	return &Server{
		corsOrigin: config.CORSOrigin,
		maxBodyMB:  config.MaxBodyMB,
		timeoutSec: config.TimeoutSec,
		blankIndex: config.BlankIndex,
		maxWorkers: config.MaxWorkers,
		logger:     logger,
	}, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/decode", s.corsMiddleware(s.decodeHandler))
	mux.HandleFunc("/decode/stream", s.streamHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// greedyFor builds a decoder for a single request, applying per-request
// overrides on top of the server defaults.
func (s *Server) greedyFor(req *DecodeRequest) *decoder.Greedy {
	cfg := decoder.Config{
		BlankIndex:         s.blankIndex,
		PreserveAlignments: req.PreserveAlignments,
		ComputeTimestamps:  req.ComputeTimestamps,
	}
	if req.BlankIndex != nil {
		cfg.BlankIndex = *req.BlankIndex
	}
	return decoder.NewGreedy(cfg)
}
