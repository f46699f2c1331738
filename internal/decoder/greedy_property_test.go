package decoder

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/soniq-ml/ctcd/internal/tensor"
)

// genScores generates deterministic pseudo-random scores for testing.
func genScores(batch, timeSteps, vocab int) []float32 {
	size := batch * timeSteps * vocab
	scores := make([]float32, size)
	for i := range scores {
		scores[i] = float32((i*7)%13) / 13.0
	}
	return scores
}

func mustScores(data []float32, b, t, v int) Scores {
	ten, err := tensor.New(data, int64(b), int64(t), int64(v))
	if err != nil {
		panic(err)
	}
	in, err := NewScores(ten)
	if err != nil {
		panic(err)
	}
	return in
}

// TestDecode_SymbolsLengthEqualsTimeExtent verifies symbols are never
// filtered: their length always equals the truncated time extent.
func TestDecode_SymbolsLengthEqualsTimeExtent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("len(symbols) == truncated time extent", prop.ForAll(
		func(timeSteps, vocab, keep int) bool {
			if timeSteps < 1 || timeSteps > 50 {
				return true
			}
			if vocab < 2 || vocab > 20 {
				return true
			}
			if keep < 0 || keep > timeSteps {
				keep = timeSteps
			}

			in := mustScores(genScores(1, timeSteps, vocab), 1, timeSteps, vocab)
			g := NewGreedy(Config{BlankIndex: vocab - 1})

			hyps, err := g.Decode(in, []int{keep})
			if err != nil || len(hyps) != 1 {
				return false
			}
			return len(hyps[0].Symbols) == keep
		},
		gen.IntRange(1, 50),
		gen.IntRange(2, 20),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

// TestDecode_TimestepsStrictlyIncreasing verifies timesteps are strictly
// increasing and count exactly the non-blank symbols.
func TestDecode_TimestepsStrictlyIncreasing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("timesteps strictly increasing, one per non-blank symbol", prop.ForAll(
		func(timeSteps, vocab, blank int) bool {
			if timeSteps < 1 || timeSteps > 50 {
				return true
			}
			if vocab < 2 || vocab > 20 {
				return true
			}
			if blank < 0 || blank >= vocab {
				blank = vocab - 1
			}

			in := mustScores(genScores(1, timeSteps, vocab), 1, timeSteps, vocab)
			g := NewGreedy(Config{BlankIndex: blank, ComputeTimestamps: true})

			hyps, err := g.Decode(in, nil)
			if err != nil || len(hyps) != 1 {
				return false
			}
			h := hyps[0]

			nonBlank := 0
			for _, sym := range h.Symbols {
				if sym != blank {
					nonBlank++
				}
			}
			if len(h.Timesteps) != nonBlank {
				return false
			}
			for i := 1; i < len(h.Timesteps); i++ {
				if h.Timesteps[i] <= h.Timesteps[i-1] {
					return false
				}
			}
			for _, ts := range h.Timesteps {
				if ts < 0 || ts >= timeSteps || h.Symbols[ts] == blank {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(2, 20),
		gen.IntRange(0, 19),
	))

	properties.TestingRun(t)
}

// TestDecode_LabelsScoreIsSentinel verifies label input always scores the
// fixed sentinel, regardless of content.
func TestDecode_LabelsScoreIsSentinel(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("labels always score the sentinel", prop.ForAll(
		func(timeSteps, vocab int) bool {
			if timeSteps < 1 || timeSteps > 50 {
				return true
			}
			if vocab < 2 || vocab > 20 {
				return true
			}

			labels := make([]int64, timeSteps)
			for i := range labels {
				labels[i] = int64((i * 3) % vocab)
			}
			ten, err := tensor.NewInt(labels, 1, int64(timeSteps))
			if err != nil {
				return false
			}
			in, err := NewLabels(ten)
			if err != nil {
				return false
			}

			g := NewGreedy(Config{BlankIndex: vocab - 1, ComputeTimestamps: true})
			hyps, err := g.Decode(in, nil)
			if err != nil || len(hyps) != 1 {
				return false
			}
			return hyps[0].Score == LabelScore
		},
		gen.IntRange(1, 50),
		gen.IntRange(2, 20),
	))

	properties.TestingRun(t)
}

// TestDecode_TruncationLawProperty verifies decode-with-length equals
// truncate-then-decode for arbitrary sizes.
func TestDecode_TruncationLawProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode with length L == decode of first L frames", prop.ForAll(
		func(timeSteps, vocab, keep int) bool {
			if timeSteps < 1 || timeSteps > 30 {
				return true
			}
			if vocab < 2 || vocab > 15 {
				return true
			}
			if keep < 1 || keep > timeSteps {
				keep = timeSteps
			}

			data := genScores(1, timeSteps, vocab)
			g := NewGreedy(Config{BlankIndex: vocab - 1, ComputeTimestamps: true})

			full := mustScores(data, 1, timeSteps, vocab)
			short := mustScores(data[:keep*vocab], 1, keep, vocab)

			withLen, err := g.Decode(full, []int{keep})
			if err != nil {
				return false
			}
			noLen, err := g.Decode(short, nil)
			if err != nil {
				return false
			}

			a, b := withLen[0], noLen[0]
			if len(a.Symbols) != len(b.Symbols) || a.Score != b.Score {
				return false
			}
			for i := range a.Symbols {
				if a.Symbols[i] != b.Symbols[i] {
					return false
				}
			}
			if len(a.Timesteps) != len(b.Timesteps) {
				return false
			}
			for i := range a.Timesteps {
				if a.Timesteps[i] != b.Timesteps[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(2, 15),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

// TestDecode_Deterministic verifies repeated decoding yields identical
// hypotheses.
func TestDecode_Deterministic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("greedy decoding is deterministic", prop.ForAll(
		func(timeSteps, vocab int) bool {
			if timeSteps < 1 || timeSteps > 30 {
				return true
			}
			if vocab < 2 || vocab > 15 {
				return true
			}

			in := mustScores(genScores(1, timeSteps, vocab), 1, timeSteps, vocab)
			g := NewGreedy(Config{BlankIndex: vocab - 1})

			h1, err1 := g.Decode(in, nil)
			h2, err2 := g.Decode(in, nil)
			if err1 != nil || err2 != nil {
				return false
			}
			if h1[0].Score != h2[0].Score || len(h1[0].Symbols) != len(h2[0].Symbols) {
				return false
			}
			for i := range h1[0].Symbols {
				if h1[0].Symbols[i] != h2[0].Symbols[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(2, 15),
	))

	properties.TestingRun(t)
}

// TestDecode_AllBlankScoresZero verifies sequences whose argmax is blank at
// every timestep accumulate no score.
func TestDecode_AllBlankScoresZero(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("blank-only sequences score zero with empty timesteps", prop.ForAll(
		func(timeSteps, blank int) bool {
			if timeSteps < 1 || timeSteps > 40 {
				return true
			}
			vocab := 10
			if blank < 0 || blank >= vocab {
				blank = vocab - 1
			}

			data := make([]float32, timeSteps*vocab)
			for ts := 0; ts < timeSteps; ts++ {
				for c := 0; c < vocab; c++ {
					if c == blank {
						data[ts*vocab+c] = 10.0
					}
				}
			}

			in := mustScores(data, 1, timeSteps, vocab)
			g := NewGreedy(Config{BlankIndex: blank, ComputeTimestamps: true})
			hyps, err := g.Decode(in, nil)
			if err != nil {
				return false
			}
			h := hyps[0]
			if h.Score != 0 || len(h.Timesteps) != 0 || len(h.Symbols) != timeSteps {
				return false
			}
			for _, sym := range h.Symbols {
				if sym != blank {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.IntRange(0, 9),
	))

	properties.TestingRun(t)
}
