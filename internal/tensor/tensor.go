package tensor

import (
	"errors"
	"fmt"
)

// Tensor represents a dense float32 tensor in row-major order.
// Decoder inputs use [B, T, V] (batch, time, vocab).
type Tensor struct {
	Data  []float32
	Shape []int64
}

// IntTensor represents a dense int64 tensor in row-major order.
// Label inputs use [B, T] (batch, time).
type IntTensor struct {
	Data  []int64
	Shape []int64
}

// New builds a float32 tensor after verifying data length matches the shape.
func New(data []float32, shape ...int64) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if err := checkLen(len(data), shape); err != nil {
		return Tensor{}, err
	}
	return Tensor{Data: data, Shape: shape}, nil
}

// NewInt builds an int64 tensor after verifying data length matches the shape.
func NewInt(data []int64, shape ...int64) (IntTensor, error) {
	if data == nil {
		return IntTensor{}, errors.New("nil data")
	}
	if err := checkLen(len(data), shape); err != nil {
		return IntTensor{}, err
	}
	return IntTensor{Data: data, Shape: shape}, nil
}

func checkLen(n int, shape []int64) error {
	expected := int64(1)
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
		expected *= v
	}
	if int64(n) != expected {
		return fmt.Errorf("unexpected data length: got %d, want %d for shape %v", n, expected, shape)
	}
	return nil
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.Shape) }

// Rank returns the number of dimensions.
func (t IntTensor) Rank() int { return len(t.Shape) }

// Dim returns the size of dimension i, or 0 when out of range.
func (t Tensor) Dim(i int) int {
	if i < 0 || i >= len(t.Shape) {
		return 0
	}
	return int(t.Shape[i])
}

// Dim returns the size of dimension i, or 0 when out of range.
func (t IntTensor) Dim(i int) int {
	if i < 0 || i >= len(t.Shape) {
		return 0
	}
	return int(t.Shape[i])
}

// Clone returns a deep copy of the tensor.
func (t Tensor) Clone() Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	shape := make([]int64, len(t.Shape))
	copy(shape, t.Shape)
	return Tensor{Data: data, Shape: shape}
}

// Row returns the contiguous slice for index i along the first dimension.
// The returned slice aliases the tensor's backing array.
func (t Tensor) Row(i int) []float32 {
	stride := 1
	for _, v := range t.Shape[1:] {
		stride *= int(v)
	}
	return t.Data[i*stride : (i+1)*stride]
}

// Row returns the contiguous slice for index i along the first dimension.
// The returned slice aliases the tensor's backing array.
func (t IntTensor) Row(i int) []int64 {
	stride := 1
	for _, v := range t.Shape[1:] {
		stride *= int(v)
	}
	return t.Data[i*stride : (i+1)*stride]
}

// Stats computes min, max and mean for debug output.
func Stats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}
