package benchmark

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/soniq-ml/ctcd/internal/decoder"
	"github.com/soniq-ml/ctcd/internal/tensor"
)

// Workload describes a synthetic decode workload.
type Workload struct {
	Batch      int
	TimeExtent int
	Vocab      int
	BlankIndex int
	Workers    int
	Seed       int64
}

// DefaultWorkloads covers the shapes that matter in practice: short
// utterances, long-form audio, and large vocabularies.
func DefaultWorkloads() []Workload {
	return []Workload{
		{Batch: 1, TimeExtent: 100, Vocab: 32, Seed: 1},
		{Batch: 8, TimeExtent: 500, Vocab: 128, Seed: 2},
		{Batch: 32, TimeExtent: 1000, Vocab: 1024, Seed: 3},
	}
}

// Name returns a stable identifier for the workload.
func (w Workload) Name() string {
	return fmt.Sprintf("decode_b%d_t%d_v%d", w.Batch, w.TimeExtent, w.Vocab)
}

// Validate checks the workload dimensions.
func (w Workload) Validate() error {
	if w.Batch < 1 || w.TimeExtent < 1 || w.Vocab < 1 {
		return fmt.Errorf("workload dimensions must be positive, got [%d, %d, %d]",
			w.Batch, w.TimeExtent, w.Vocab)
	}
	if w.BlankIndex < 0 || w.BlankIndex >= w.Vocab {
		return fmt.Errorf("blank index %d out of range for vocab %d", w.BlankIndex, w.Vocab)
	}
	return nil
}

// Scores generates a deterministic pseudo-random score tensor for the
// workload.
func (w Workload) Scores() (decoder.Input, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(w.Seed))
	data := make([]float32, w.Batch*w.TimeExtent*w.Vocab)
	for i := range data {
		data[i] = rng.Float32()
	}

	t, err := tensor.New(data, int64(w.Batch), int64(w.TimeExtent), int64(w.Vocab))
	if err != nil {
		return nil, err
	}
	return decoder.NewScores(t)
}

// AddDecodeCases registers one benchmark per workload on the suite.
func AddDecodeCases(suite *Suite, workloads []Workload) error {
	for _, w := range workloads {
		input, err := w.Scores()
		if err != nil {
			return fmt.Errorf("workload %s: %w", w.Name(), err)
		}

		g := decoder.NewGreedy(decoder.Config{
			BlankIndex:        w.BlankIndex,
			ComputeTimestamps: true,
		})
		pcfg := decoder.DefaultParallelConfig()
		if w.Workers > 0 {
			pcfg.MaxWorkers = w.Workers
		}

		suite.Add(w.Name(), func() error {
			_, err := g.DecodeParallel(context.Background(), input, nil, pcfg)
			return err
		})
	}
	return nil
}
