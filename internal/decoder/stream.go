package decoder

import (
	"fmt"

	"github.com/soniq-ml/ctcd/internal/tensor"
)

// Stream decodes score frames incrementally, one [vocab] frame at a time.
// After any number of pushes, Hypothesis returns the same result the batch
// routine would produce for the frames seen so far. A Stream is not safe for
// concurrent use.
type Stream struct {
	cfg   Config
	vocab int

	symbols   []int
	score     float64
	timesteps []int
	frames    []float32 // retained only when alignments are preserved
}

// NewStream creates an incremental decoder sharing this decoder's
// configuration. The vocabulary size is fixed by the first frame pushed.
func (g *Greedy) NewStream() *Stream {
	return &Stream{cfg: g.cfg}
}

// Push consumes the score distribution for the next timestep.
func (s *Stream) Push(frame []float32) error {
	if len(frame) == 0 {
		return fmt.Errorf("empty frame")
	}
	if s.vocab == 0 {
		s.vocab = len(frame)
	} else if len(frame) != s.vocab {
		return fmt.Errorf("frame size %d != vocab size %d", len(frame), s.vocab)
	}

	t := len(s.symbols)
	idx, val := argmax(frame)
	s.symbols = append(s.symbols, idx)
	if idx != s.cfg.BlankIndex {
		s.score += float64(val)
		if s.cfg.ComputeTimestamps {
			s.timesteps = append(s.timesteps, t)
		}
	}
	if s.cfg.PreserveAlignments {
		s.frames = append(s.frames, frame...)
	}
	return nil
}

// Len returns the number of frames consumed so far.
func (s *Stream) Len() int { return len(s.symbols) }

// Hypothesis snapshots the decode state for the frames seen so far. The
// returned value is independent of later pushes.
func (s *Stream) Hypothesis() Hypothesis {
	hyp := Hypothesis{
		Symbols: make([]int, len(s.symbols)),
		Score:   s.score,
		Length:  -1,
	}
	copy(hyp.Symbols, s.symbols)
	if s.cfg.ComputeTimestamps {
		hyp.Timesteps = make([]int, len(s.timesteps))
		copy(hyp.Timesteps, s.timesteps)
	}
	if s.cfg.PreserveAlignments && s.vocab > 0 && len(s.frames) > 0 {
		data := make([]float32, len(s.frames))
		copy(data, s.frames)
		alignment := tensor.Tensor{
			Data:  data,
			Shape: []int64{int64(len(s.symbols)), int64(s.vocab)},
		}
		hyp.Alignment = &alignment
	}
	return hyp
}

// Reset discards all consumed frames, keeping the configuration and
// vocabulary size.
func (s *Stream) Reset() {
	s.symbols = s.symbols[:0]
	s.score = 0
	s.timesteps = s.timesteps[:0]
	s.frames = s.frames[:0]
}
