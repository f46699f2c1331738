package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/soniq-ml/ctcd/internal/decoder"
	"github.com/soniq-ml/ctcd/internal/tensor"
	"github.com/soniq-ml/ctcd/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

// decodeHandler processes batch decode requests.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyMB*1024*1024)

	var req DecodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, "invalid JSON body: "+err.Error(), "bad_request", http.StatusBadRequest)
		return
	}

	input, kind, err := BuildInput(&req)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	start := time.Now()
	g := s.greedyFor(&req)
	pcfg := decoder.DefaultParallelConfig()
	if s.maxWorkers > 0 {
		pcfg.MaxWorkers = s.maxWorkers
	}

	hypotheses, err := g.DecodeParallel(r.Context(), input, req.Lengths, pcfg)
	if err != nil {
		decodeRequestsTotal.WithLabelValues(kind, "error").Inc()
		s.writeDecodeError(w, err)
		return
	}

	decodeRequestsTotal.WithLabelValues(kind, "success").Inc()
	decodeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	decodeBatchSize.Observe(float64(input.Batch()))

	response := DecodeResponse{
		Success:    true,
		Hypotheses: make([]HypothesisResult, len(hypotheses)),
	}
	for i := range hypotheses {
		response.Hypotheses[i] = ToWire(hypotheses[i])
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode decode response", "error", err)
	}
}

// BuildInput converts the request body into a decoder input. It returns the
// input kind ("scores" or "labels") for metric labels.
func BuildInput(req *DecodeRequest) (decoder.Input, string, error) {
	switch {
	case len(req.Scores) > 0 && len(req.Labels) > 0:
		return nil, "", errors.New("request must carry either scores or labels, not both")
	case len(req.Scores) > 0:
		in, err := scoresInput(req.Scores)
		return in, "scores", err
	case len(req.Labels) > 0:
		in, err := labelsInput(req.Labels)
		return in, "labels", err
	default:
		return nil, "", errors.New("request carries neither scores nor labels")
	}
}

func scoresInput(scores [][][]float32) (decoder.Input, error) {
	batch := len(scores)
	timeExtent := len(scores[0])
	vocab := 0
	if timeExtent > 0 {
		vocab = len(scores[0][0])
	}

	data := make([]float32, 0, batch*timeExtent*vocab)
	for b, seq := range scores {
		if len(seq) != timeExtent {
			return nil, fmt.Errorf("ragged scores: sequence %d has %d frames, expected %d", b, len(seq), timeExtent)
		}
		for t, frame := range seq {
			if len(frame) != vocab {
				return nil, fmt.Errorf("ragged scores: frame [%d][%d] has %d classes, expected %d", b, t, len(frame), vocab)
			}
			data = append(data, frame...)
		}
	}

	tens, err := tensor.New(data, int64(batch), int64(timeExtent), int64(vocab))
	if err != nil {
		return nil, err
	}
	return decoder.NewScores(tens)
}

func labelsInput(labels [][]int64) (decoder.Input, error) {
	batch := len(labels)
	timeExtent := len(labels[0])

	data := make([]int64, 0, batch*timeExtent)
	for b, seq := range labels {
		if len(seq) != timeExtent {
			return nil, fmt.Errorf("ragged labels: sequence %d has %d steps, expected %d", b, len(seq), timeExtent)
		}
		data = append(data, seq...)
	}

	tens, err := tensor.NewInt(data, int64(batch), int64(timeExtent))
	if err != nil {
		return nil, err
	}
	return decoder.NewLabels(tens)
}

// ToWire converts a hypothesis into its JSON form, expanding the alignment
// matrix row by row.
func ToWire(h decoder.Hypothesis) HypothesisResult {
	out := HypothesisResult{
		Symbols:   h.Symbols,
		Score:     h.Score,
		Timesteps: h.Timesteps,
		Length:    h.Length,
	}
	if h.Alignment != nil && h.Alignment.Rank() == 2 {
		rows := h.Alignment.Dim(0)
		out.Alignment = make([][]float32, rows)
		for i := 0; i < rows; i++ {
			out.Alignment[i] = h.Alignment.Row(i)
		}
	}
	return out
}

// writeDecodeError maps decoder errors to HTTP responses. Shape and
// capability violations are client errors; everything else is a 500.
func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	var shapeErr *decoder.InvalidShapeError
	var opErr *decoder.UnsupportedOperationError
	switch {
	case errors.As(err, &shapeErr):
		s.writeErrorResponse(w, err.Error(), "invalid_shape", http.StatusBadRequest)
	case errors.As(err, &opErr):
		s.writeErrorResponse(w, err.Error(), "unsupported_operation", http.StatusBadRequest)
	default:
		s.writeErrorResponse(w, err.Error(), "bad_request", http.StatusBadRequest)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message, errorType string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := DecodeResponse{
		Success:   false,
		Error:     message,
		ErrorType: errorType,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode error response", "error", err)
	}
}
