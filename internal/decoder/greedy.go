// Package decoder implements greedy (arg-max) CTC decoding of batched model
// output into per-sequence hypotheses.
package decoder

import (
	"errors"
	"fmt"

	"github.com/soniq-ml/ctcd/internal/state"
	"github.com/soniq-ml/ctcd/internal/tensor"
)

// Config holds decode configuration, fixed for the decoder's lifetime.
type Config struct {
	// BlankIndex is the reserved "no output" class. Conventionally 0 or
	// vocab size; validity is the caller's responsibility.
	BlankIndex int
	// PreserveAlignments keeps a copy of the truncated score matrix on
	// each hypothesis. Valid for score input only.
	PreserveAlignments bool
	// ComputeTimestamps records the frame indices of non-blank symbols.
	ComputeTimestamps bool
}

// Greedy decodes batches of score distributions or pre-chosen labels into
// Hypotheses, one per sequence, selecting the single highest-scoring class
// per timestep with no search.
type Greedy struct {
	cfg Config
}

// NewGreedy creates a greedy decoder with the given configuration.
func NewGreedy(cfg Config) *Greedy {
	return &Greedy{cfg: cfg}
}

// argmax returns the index of the maximum value and the value itself.
// Ties break toward the lowest index.
func argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}

// Decode decodes a batch of independent sequences into Hypotheses, in input
// order. lengths, when non-nil, supplies the valid length per sequence;
// otherwise the full time extent is used. The input arrays are not mutated.
func (g *Greedy) Decode(in Input, lengths []int) ([]Hypothesis, error) {
	return g.DecodeWithState(in, lengths, nil)
}

// DecodeWithState decodes like Decode and additionally carries opaque
// per-sequence decoder state through to the packed hypotheses. states, when
// non-nil, must hold one tree per sequence (nil entries allowed); trees are
// relocated to host memory during packing.
func (g *Greedy) DecodeWithState(in Input, lengths []int, states []state.Tree) ([]Hypothesis, error) {
	if in == nil {
		return nil, errors.New("nil input")
	}
	batch := in.Batch()
	if err := validateLengths(lengths, batch, in.TimeExtent()); err != nil {
		return nil, err
	}
	if states != nil && len(states) != batch {
		return nil, fmt.Errorf("states batch size %d != input batch size %d", len(states), batch)
	}
	if _, isLabels := in.(Labels); isLabels && g.cfg.PreserveAlignments {
		return nil, &UnsupportedOperationError{
			Op:     "preserve_alignments",
			Reason: "alignments require score distributions, but the input carries labels",
		}
	}

	hypotheses := make([]Hypothesis, batch)
	for i := 0; i < batch; i++ {
		hypotheses[i] = g.decodeOne(in, i, validLength(lengths, i, in.TimeExtent()))
	}

	return g.pack(hypotheses, lengths, states)
}

// decodeOne runs the per-sequence routine for batch index i truncated to
// outLen timesteps.
func (g *Greedy) decodeOne(in Input, i, outLen int) Hypothesis {
	switch v := in.(type) {
	case Scores:
		return g.decodeScores(v.sequence(i), outLen, v.Vocab())
	case Labels:
		return g.decodeLabels(v.sequence(i), outLen)
	default:
		// Input is a closed sum; unreachable.
		return Hypothesis{Length: -1}
	}
}

// decodeScores decodes a single [time*vocab] score sequence truncated to
// outLen timesteps.
func (g *Greedy) decodeScores(seq []float32, outLen, vocab int) Hypothesis {
	seq = seq[:outLen*vocab]

	hyp := Hypothesis{
		Symbols: make([]int, outLen),
		Length:  -1,
	}

	var score float64
	var steps []int
	if g.cfg.ComputeTimestamps {
		steps = make([]int, 0, outLen)
	}

	for t := 0; t < outLen; t++ {
		idx, val := argmax(seq[t*vocab : (t+1)*vocab])
		hyp.Symbols[t] = idx
		if idx != g.cfg.BlankIndex {
			score += float64(val)
			if g.cfg.ComputeTimestamps {
				steps = append(steps, t)
			}
		}
	}
	hyp.Score = score

	if g.cfg.PreserveAlignments {
		data := make([]float32, len(seq))
		copy(data, seq)
		alignment := tensor.Tensor{Data: data, Shape: []int64{int64(outLen), int64(vocab)}}
		hyp.Alignment = &alignment
	}
	if g.cfg.ComputeTimestamps {
		hyp.Timesteps = steps
	}

	return hyp
}

// decodeLabels decodes a single [time] label sequence truncated to outLen
// timesteps. Labels are already discrete, so symbols are taken verbatim.
func (g *Greedy) decodeLabels(seq []int64, outLen int) Hypothesis {
	seq = seq[:outLen]

	hyp := Hypothesis{
		Symbols: make([]int, outLen),
		Score:   LabelScore,
		Length:  -1,
	}

	var steps []int
	if g.cfg.ComputeTimestamps {
		steps = make([]int, 0, outLen)
	}

	for t, label := range seq {
		hyp.Symbols[t] = int(label)
		if int(label) != g.cfg.BlankIndex && g.cfg.ComputeTimestamps {
			steps = append(steps, t)
		}
	}
	if g.cfg.ComputeTimestamps {
		hyp.Timesteps = steps
	}

	return hyp
}

// pack finalizes hypotheses in input order: attaches the caller-supplied
// valid length and relocates any carried state to host memory.
func (g *Greedy) pack(hypotheses []Hypothesis, lengths []int, states []state.Tree) ([]Hypothesis, error) {
	for i := range hypotheses {
		if lengths != nil {
			hypotheses[i].Length = lengths[i]
		}
		if states != nil && states[i] != nil {
			moved, err := state.ToHost(states[i])
			if err != nil {
				return nil, fmt.Errorf("pack hypothesis %d: %w", i, err)
			}
			hypotheses[i].State = moved
		}
	}
	return hypotheses, nil
}

// validateLengths checks the per-sequence length array against the batch
// size and time extent before any per-sequence work runs.
func validateLengths(lengths []int, batch, timeExtent int) error {
	if lengths == nil {
		return nil
	}
	if len(lengths) != batch {
		return fmt.Errorf("lengths batch size %d != input batch size %d", len(lengths), batch)
	}
	for i, l := range lengths {
		if l < 0 || l > timeExtent {
			return fmt.Errorf("lengths[%d] = %d out of range [0, %d]", i, l, timeExtent)
		}
	}
	return nil
}

// validLength returns the truncated length for sequence i.
func validLength(lengths []int, i, timeExtent int) int {
	if lengths == nil {
		return timeExtent
	}
	return lengths[i]
}
