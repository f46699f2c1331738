package prior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetaBinomialPMF_SumsToOne(t *testing.T) {
	// PMF over the full support 0..n must sum to 1.
	cases := []struct {
		n    int
		a, b float64
	}{
		{10, 1, 10},
		{10, 5, 6},
		{25, 2.5, 0.5},
	}
	for _, tc := range cases {
		var sum float64
		for k := 0; k <= tc.n; k++ {
			p := betaBinomialPMF(k, tc.n, tc.a, tc.b)
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "n=%d a=%v b=%v", tc.n, tc.a, tc.b)
	}
}

func TestBetaBinomialPMF_OutOfSupport(t *testing.T) {
	assert.Zero(t, betaBinomialPMF(-1, 10, 1, 1))
	assert.Zero(t, betaBinomialPMF(11, 10, 1, 1))
}

func TestPriorDistribution_Shape(t *testing.T) {
	m := PriorDistribution(7, 12, 1.0)
	require.Len(t, m, 12)
	for _, row := range m {
		assert.Len(t, row, 7)
	}
}

func TestPriorDistribution_MassMovesForward(t *testing.T) {
	// Early mel rows concentrate on early text positions, late rows on
	// late positions.
	m := PriorDistribution(20, 20, 1.0)
	first := m[0]
	last := m[len(m)-1]
	assert.Greater(t, first[0], first[len(first)-1])
	assert.Greater(t, last[len(last)-1], last[0])
}

func TestNewBetaBinomialCache_Validation(t *testing.T) {
	_, err := NewBetaBinomialCache(Config{RoundMelLenTo: 0, RoundTextLenTo: 10, CacheSize: 1, ScalingFactor: 1})
	assert.Error(t, err)
	_, err = NewBetaBinomialCache(Config{RoundMelLenTo: 50, RoundTextLenTo: 10, CacheSize: 0, ScalingFactor: 1})
	assert.Error(t, err)
	_, err = NewBetaBinomialCache(Config{RoundMelLenTo: 50, RoundTextLenTo: 10, CacheSize: 1, ScalingFactor: 0})
	assert.Error(t, err)
}

func TestPrior_ShapeMatchesRequest(t *testing.T) {
	c, err := NewBetaBinomialCache(DefaultConfig())
	require.NoError(t, err)

	for _, tc := range []struct{ mel, text int }{
		{80, 13},
		{173, 41},
		{1, 1},
		{50, 10},
	} {
		m, perr := c.Prior(tc.mel, tc.text)
		require.NoError(t, perr)
		require.Len(t, m, tc.mel, "mel=%d text=%d", tc.mel, tc.text)
		for _, row := range m {
			assert.Len(t, row, tc.text)
			for _, v := range row {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		}
	}
}

func TestPrior_InvalidSizes(t *testing.T) {
	c, err := NewBetaBinomialCache(DefaultConfig())
	require.NoError(t, err)
	_, err = c.Prior(0, 5)
	assert.Error(t, err)
	_, err = c.Prior(5, -1)
	assert.Error(t, err)
}

func TestPrior_CacheReuse(t *testing.T) {
	c, err := NewBetaBinomialCache(DefaultConfig())
	require.NoError(t, err)

	// Sizes rounding to the same bucket reuse the memoized base matrix.
	a, err := c.Prior(60, 12)
	require.NoError(t, err)
	b, err := c.Prior(60, 12)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c.mu.Lock()
	entries := len(c.cache)
	c.mu.Unlock()
	assert.Equal(t, 1, entries)
}

func TestPrior_CacheEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheSize = 2
	c, err := NewBetaBinomialCache(cfg)
	require.NoError(t, err)

	_, err = c.Prior(40, 8)
	require.NoError(t, err)
	_, err = c.Prior(90, 8)
	require.NoError(t, err)
	_, err = c.Prior(140, 8)
	require.NoError(t, err)

	c.mu.Lock()
	entries := len(c.cache)
	c.mu.Unlock()
	assert.LessOrEqual(t, entries, 2)
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, 50, roundUp(10, 50))
	assert.Equal(t, 100, roundUp(80, 50))
	assert.Equal(t, 10, roundUp(3, 10))
}
