// Package prior computes beta-binomial alignment prior matrices. The priors
// are a training-time utility for attention alignment and sit outside the
// decode path; they are computed for rounded popular sizes, memoized, and
// interpolated down to the requested size.
package prior

import (
	"fmt"
	"math"
	"sync"
)

// Config holds settings for the prior cache.
type Config struct {
	RoundMelLenTo  int // Mel lengths are rounded up to multiples of this before caching
	RoundTextLenTo int // Text lengths are rounded up to multiples of this before caching
	CacheSize      int // Maximum number of memoized prior matrices
	ScalingFactor  float64
}

// DefaultConfig returns the default prior cache configuration.
func DefaultConfig() Config {
	return Config{
		RoundMelLenTo:  50,
		RoundTextLenTo: 10,
		CacheSize:      500,
		ScalingFactor:  1.0,
	}
}

// BetaBinomialCache memoizes alignment prior matrices for rounded sizes and
// bilinearly interpolates them to requested sizes.
type BetaBinomialCache struct {
	cfg Config

	mu    sync.Mutex
	cache map[[2]int][][]float64
}

// NewBetaBinomialCache creates a prior cache with the given configuration.
func NewBetaBinomialCache(cfg Config) (*BetaBinomialCache, error) {
	if cfg.RoundMelLenTo <= 0 || cfg.RoundTextLenTo <= 0 {
		return nil, fmt.Errorf("rounding steps must be > 0, got mel=%d text=%d", cfg.RoundMelLenTo, cfg.RoundTextLenTo)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("cache size must be > 0, got %d", cfg.CacheSize)
	}
	if cfg.ScalingFactor <= 0 {
		return nil, fmt.Errorf("scaling factor must be > 0, got %v", cfg.ScalingFactor)
	}
	return &BetaBinomialCache{cfg: cfg, cache: make(map[[2]int][][]float64)}, nil
}

// roundUp rounds val to a positive multiple of to.
func roundUp(val, to int) int {
	r := int(math.Round(float64(val+1) / float64(to)))
	if r < 1 {
		r = 1
	}
	return r * to
}

// Prior returns the [melLen][textLen] alignment prior for the given sizes.
func (c *BetaBinomialCache) Prior(melLen, textLen int) ([][]float64, error) {
	if melLen <= 0 || textLen <= 0 {
		return nil, fmt.Errorf("sizes must be > 0, got mel=%d text=%d", melLen, textLen)
	}

	bw := roundUp(melLen, c.cfg.RoundMelLenTo)
	bh := roundUp(textLen, c.cfg.RoundTextLenTo)
	base := c.lookup(bw, bh)

	out := zoomBilinear(base, melLen, textLen)
	return out, nil
}

// lookup fetches or computes the memoized prior for rounded sizes.
func (c *BetaBinomialCache) lookup(bw, bh int) [][]float64 {
	key := [2]int{bw, bh}

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.cache[key]; ok {
		return m
	}
	if len(c.cache) >= c.cfg.CacheSize {
		// Evict an arbitrary entry; rounded sizes repeat heavily so churn
		// is rare in practice.
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}
	m := PriorDistribution(bh, bw, c.cfg.ScalingFactor)
	c.cache[key] = m
	return m
}

// PriorDistribution computes the raw [melCount][textCount] beta-binomial
// prior: row i holds BetaBinom(textCount, scale*(i+1), scale*(melCount-i))
// evaluated at k = 0..textCount-1.
func PriorDistribution(textCount, melCount int, scale float64) [][]float64 {
	out := make([][]float64, melCount)
	for i := 1; i <= melCount; i++ {
		a := scale * float64(i)
		b := scale * float64(melCount+1-i)
		row := make([]float64, textCount)
		for k := 0; k < textCount; k++ {
			row[k] = betaBinomialPMF(k, textCount, a, b)
		}
		out[i-1] = row
	}
	return out
}

// betaBinomialPMF evaluates the beta-binomial probability mass function at k
// for n trials with shape parameters a, b.
func betaBinomialPMF(k, n int, a, b float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	kf := float64(k)
	nf := float64(n)
	lg, _ := math.Lgamma(nf + 1)
	lk, _ := math.Lgamma(kf + 1)
	lnk, _ := math.Lgamma(nf - kf + 1)
	lka, _ := math.Lgamma(kf + a)
	lnkb, _ := math.Lgamma(nf - kf + b)
	lnab, _ := math.Lgamma(nf + a + b)
	lab, _ := math.Lgamma(a + b)
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)

	logPMF := (lg - lk - lnk) + (lka + lnkb - lnab) + (lab - la - lb)
	return math.Exp(logPMF)
}

// zoomBilinear resizes a [rows][cols] matrix to [outRows][outCols] using
// bilinear interpolation.
func zoomBilinear(m [][]float64, outRows, outCols int) [][]float64 {
	rows := len(m)
	cols := len(m[0])

	out := make([][]float64, outRows)
	for i := 0; i < outRows; i++ {
		srcY := sampleCoord(i, outRows, rows)
		y0 := int(math.Floor(srcY))
		y1 := y0 + 1
		if y1 >= rows {
			y1 = rows - 1
		}
		fy := srcY - float64(y0)

		row := make([]float64, outCols)
		for j := 0; j < outCols; j++ {
			srcX := sampleCoord(j, outCols, cols)
			x0 := int(math.Floor(srcX))
			x1 := x0 + 1
			if x1 >= cols {
				x1 = cols - 1
			}
			fx := srcX - float64(x0)

			top := m[y0][x0]*(1-fx) + m[y0][x1]*fx
			bottom := m[y1][x0]*(1-fx) + m[y1][x1]*fx
			row[j] = top*(1-fy) + bottom*fy
		}
		out[i] = row
	}
	return out
}

// sampleCoord maps output index i of outN samples onto [0, srcN-1].
func sampleCoord(i, outN, srcN int) float64 {
	if outN <= 1 {
		return 0
	}
	return float64(i) * float64(srcN-1) / float64(outN-1)
}
