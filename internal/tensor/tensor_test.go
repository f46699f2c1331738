package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidShape(t *testing.T) {
	ten, err := New(make([]float32, 24), 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, ten.Rank())
	assert.Equal(t, 2, ten.Dim(0))
	assert.Equal(t, 3, ten.Dim(1))
	assert.Equal(t, 4, ten.Dim(2))
}

func TestNew_LengthMismatch(t *testing.T) {
	_, err := New(make([]float32, 10), 2, 3, 4)
	assert.Error(t, err)
}

func TestNew_NilData(t *testing.T) {
	_, err := New(nil, 2, 2)
	assert.Error(t, err)
}

func TestNew_NonPositiveDim(t *testing.T) {
	_, err := New(make([]float32, 4), 2, 0)
	assert.Error(t, err)
}

func TestNewInt_Valid(t *testing.T) {
	ten, err := NewInt([]int64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, ten.Rank())
	assert.Equal(t, []int64{4, 5, 6}, ten.Row(1))
}

func TestTensor_Row(t *testing.T) {
	data := []float32{0, 1, 2, 3, 4, 5}
	ten, err := New(data, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2}, ten.Row(0))
	assert.Equal(t, []float32{3, 4, 5}, ten.Row(1))
}

func TestTensor_Clone(t *testing.T) {
	ten, err := New([]float32{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	cl := ten.Clone()
	cl.Data[0] = 99
	assert.InDelta(t, 1.0, ten.Data[0], 1e-9)
}

func TestStats(t *testing.T) {
	minV, maxV, mean := Stats([]float32{1, 2, 3})
	assert.InDelta(t, 1.0, minV, 1e-6)
	assert.InDelta(t, 3.0, maxV, 1e-6)
	assert.InDelta(t, 2.0, mean, 1e-6)
}

func TestStats_Empty(t *testing.T) {
	minV, maxV, mean := Stats(nil)
	assert.Zero(t, minV)
	assert.Zero(t, maxV)
	assert.Zero(t, mean)
}
