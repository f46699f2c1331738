package decoder

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ParallelConfig holds configuration for decoding sequences concurrently.
type ParallelConfig struct {
	MaxWorkers int // Number of parallel workers (0 = runtime.NumCPU())
}

// DefaultParallelConfig returns sensible defaults for parallel decoding.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// seqJob is a single per-sequence decode job.
type seqJob struct {
	index  int
	outLen int
}

// seqResult is the result of decoding one sequence.
type seqResult struct {
	index int
	hyp   Hypothesis
}

// DecodeParallel decodes a batch like Decode, processing sequences on a
// worker pool. Sequences share no mutable state, so ordering within the pool
// is free; results are still returned in input order. Semantics are
// identical to Decode.
func (g *Greedy) DecodeParallel(ctx context.Context, in Input, lengths []int, config ParallelConfig) ([]Hypothesis, error) {
	if in == nil {
		return nil, errors.New("nil input")
	}
	batch := in.Batch()

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}

	// Small batches gain nothing from the pool.
	if batch <= 1 || config.MaxWorkers == 1 {
		return g.Decode(in, lengths)
	}

	if err := validateLengths(lengths, batch, in.TimeExtent()); err != nil {
		return nil, err
	}
	if _, isLabels := in.(Labels); isLabels && g.cfg.PreserveAlignments {
		return nil, &UnsupportedOperationError{
			Op:     "preserve_alignments",
			Reason: "alignments require score distributions, but the input carries labels",
		}
	}

	jobs := make(chan seqJob, batch)
	results := make(chan seqResult, batch)

	var wg sync.WaitGroup
	for w := 0; w < config.MaxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job, ok := <-jobs:
					if !ok {
						return
					}
					results <- seqResult{index: job.index, hyp: g.decodeOne(in, job.index, job.outLen)}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < batch; i++ {
			select {
			case jobs <- seqJob{index: i, outLen: validLength(lengths, i, in.TimeExtent())}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	hypotheses := make([]Hypothesis, batch)
	for r := range results {
		hypotheses[r.index] = r.hyp
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return g.pack(hypotheses, lengths, nil)
}
