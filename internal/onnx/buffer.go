package onnx

import (
	"errors"
	"fmt"

	"github.com/soniq-ml/ctcd/internal/state"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// DeviceBuffer wraps an onnxruntime output tensor so it can travel through
// a carried-state tree. Moving it to the host copies the data out and
// releases the runtime-owned memory.
type DeviceBuffer struct {
	tensor *onnxrt.Tensor[float32]
}

var _ state.Buffer = (*DeviceBuffer)(nil)

// WrapOutput takes ownership of an onnxruntime tensor. The caller must not
// destroy it; ToHost releases it.
func WrapOutput(t *onnxrt.Tensor[float32]) *DeviceBuffer {
	return &DeviceBuffer{tensor: t}
}

// ToHost copies the tensor contents into host memory and destroys the
// underlying onnxruntime tensor. Calling it twice is an error.
func (b *DeviceBuffer) ToHost() (state.Buffer, error) {
	if b.tensor == nil {
		return nil, errors.New("device buffer already released")
	}

	src := b.tensor.GetData()
	data := make([]float32, len(src))
	copy(data, src)

	err := b.tensor.Destroy()
	b.tensor = nil
	if err != nil {
		return nil, fmt.Errorf("failed to release device tensor: %w", err)
	}

	return &state.HostFloat32{Data: data}, nil
}
