package decoder

import (
	"github.com/soniq-ml/ctcd/internal/state"
	"github.com/soniq-ml/ctcd/internal/tensor"
)

// LabelScore is the fixed score assigned to hypotheses decoded from label
// input; labels carry no distribution to score from.
const LabelScore = -1.0

// Hypothesis is the decoding result for one input sequence.
type Hypothesis struct {
	// Symbols holds the chosen class id per timestep. Blanks are kept
	// verbatim; downstream consumers perform their own CTC collapse.
	Symbols []int

	// Score is the sum of chosen scores at non-blank timesteps for score
	// input, or LabelScore for label input.
	Score float64

	// Alignment is a copy of the truncated [time, vocab] score matrix.
	// Set only when alignment preservation was requested on score input.
	Alignment *tensor.Tensor

	// Timesteps lists the 0-based frame indices (relative to the truncated
	// sequence) where a non-blank symbol was chosen. Set only when
	// timestamp computation was requested.
	Timesteps []int

	// Length is the valid length used for this sequence, attached during
	// packing. -1 when the caller supplied no lengths.
	Length int

	// State is opaque carried decoder state, relocated to host memory
	// during packing. Nil when no sequence model state was supplied.
	State state.Tree
}
