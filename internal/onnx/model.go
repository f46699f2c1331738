// Package onnx runs an upstream acoustic model through ONNX Runtime and
// exposes its emissions as score tensors ready for greedy decoding.
package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/soniq-ml/ctcd/internal/mempool"
	"github.com/soniq-ml/ctcd/internal/tensor"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// Config holds settings for loading an upstream model.
type Config struct {
	ModelPath  string
	NumThreads int // 0 = onnxruntime default
	GPU        GPUConfig
}

// DefaultConfig returns a CPU-only model configuration.
func DefaultConfig() Config {
	return Config{
		ModelPath:  "",
		NumThreads: 0,
		GPU:        DefaultGPUConfig(),
	}
}

// Validate checks the configuration, including that the model file exists.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if _, err := os.Stat(c.ModelPath); err != nil {
		return fmt.Errorf("model file not accessible: %w", err)
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("num_threads must be >= 0, got %d", c.NumThreads)
	}
	if err := c.GPU.Validate(); err != nil {
		return fmt.Errorf("invalid GPU config: %w", err)
	}
	return nil
}

// Model wraps an onnxruntime session over a single-input, single-output
// network producing [B, T, V] float32 emissions.
type Model struct {
	mu      sync.Mutex
	session *onnxrt.DynamicAdvancedSession
	config  Config
	logger  *slog.Logger
}

// NewModel loads the model at cfg.ModelPath and prepares an inference
// session.
func NewModel(cfg Config, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}
	if err := initEnvironment(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected single-input single-output model, got %d inputs and %d outputs",
			len(inputs), len(outputs))
	}

	session, err := createSession(cfg, inputs[0], outputs[0])
	if err != nil {
		return nil, err
	}

	logger.Info("model loaded",
		slog.String("path", cfg.ModelPath),
		slog.String("input", inputs[0].Name),
		slog.String("output", outputs[0].Name),
		slog.Bool("gpu", cfg.GPU.UseGPU))

	return &Model{
		session: session,
		config:  cfg,
		logger:  logger,
	}, nil
}

func createSession(cfg Config, input, output onnxrt.InputOutputInfo) (*onnxrt.DynamicAdvancedSession, error) {
	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	if err := configureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{input.Name}, []string{output.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

// Run feeds the input through the model and returns the emission tensor.
// The returned tensor owns its data; onnxruntime buffers are released
// before returning.
func (m *Model) Run(in tensor.Tensor) (tensor.Tensor, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()
	if session == nil {
		return tensor.Tensor{}, fmt.Errorf("model is closed")
	}

	start := time.Now()

	// Stage the input through the pool so onnxruntime never holds a
	// reference to caller-owned memory.
	staged := mempool.GetFloat32(len(in.Data))
	defer mempool.PutFloat32(staged)
	copy(staged, in.Data)

	inputTensor, err := onnxrt.NewTensor(onnxrt.NewShape(in.Shape...), staged)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := session.Run([]onnxrt.Value{inputTensor}, outputs); err != nil {
		return tensor.Tensor{}, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	floatTensor, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return tensor.Tensor{}, fmt.Errorf("expected float32 output tensor, got %T", outputs[0])
	}

	src := floatTensor.GetData()
	data := make([]float32, len(src))
	copy(data, src)

	out, err := tensor.New(data, floatTensor.GetShape()...)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("invalid model output shape: %w", err)
	}

	m.logger.Debug("inference complete",
		slog.Any("input_shape", in.Shape),
		slog.Any("output_shape", out.Shape),
		slog.Duration("elapsed", time.Since(start)))

	return out, nil
}

// Close releases the underlying session. Safe to call more than once.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
