package decoder

import "github.com/soniq-ml/ctcd/internal/tensor"

// Input is a batch of decoder input. The variant is decided once per decode
// call: Scores carries [B, T, V] float32 distributions, Labels carries
// [B, T] int64 pre-chosen class ids.
type Input interface {
	// Batch returns the number of sequences.
	Batch() int
	// TimeExtent returns the full (untruncated) time dimension.
	TimeExtent() int

	isInput()
}

// Scores wraps a rank-3 [batch, time, vocab] score tensor.
type Scores struct {
	t tensor.Tensor
}

// NewScores validates the tensor rank and wraps it as decoder input.
func NewScores(t tensor.Tensor) (Scores, error) {
	if t.Rank() != 3 {
		return Scores{}, &InvalidShapeError{Shape: t.Shape}
	}
	return Scores{t: t}, nil
}

func (s Scores) Batch() int      { return s.t.Dim(0) }
func (s Scores) TimeExtent() int { return s.t.Dim(1) }

// Vocab returns the vocabulary size (last dimension).
func (s Scores) Vocab() int { return s.t.Dim(2) }

// sequence returns the [time*vocab] slice for batch index i.
func (s Scores) sequence(i int) []float32 { return s.t.Row(i) }

func (Scores) isInput() {}

// Labels wraps a rank-2 [batch, time] label tensor.
type Labels struct {
	t tensor.IntTensor
}

// NewLabels validates the tensor rank and wraps it as decoder input.
func NewLabels(t tensor.IntTensor) (Labels, error) {
	if t.Rank() != 2 {
		return Labels{}, &InvalidShapeError{Shape: t.Shape}
	}
	return Labels{t: t}, nil
}

func (l Labels) Batch() int      { return l.t.Dim(0) }
func (l Labels) TimeExtent() int { return l.t.Dim(1) }

// sequence returns the [time] slice for batch index i.
func (l Labels) sequence(i int) []int64 { return l.t.Row(i) }

func (Labels) isInput() {}
