// Package onnx は born の純 Go ONNX ランタイムで execution.Engine を実装します。
//
// コンパイル済みモデルはモデルバイトの SHA-256 をキーにキャッシュされるため、
// 同じコンテナへの繰り返しの推論でグラフを再構築しません。
package onnx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/born-ml/born/backend/cpu"
	bornonnx "github.com/born-ml/born/onnx"
	"github.com/born-ml/born/tensor"

	"github.com/surrealdb/surrealml/execution"
	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
)

var _ execution.Engine = (*Engine)(nil)

type cachedModel struct {
	mu    sync.Mutex
	model bornonnx.Model
}

// Engine は ONNX モデルバイトを読み込み、CPU バックエンドで実行します。
type Engine struct {
	backend tensor.Backend
	opts    bornonnx.LoadOptions
	logger  log.Logger

	mu     sync.Mutex
	models map[[sha256.Size]byte]*cachedModel
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoadOptions は born のモデル読み込みオプションを設定します。
func WithLoadOptions(opts bornonnx.LoadOptions) Option {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithBackend replaces the default CPU backend.
func WithBackend(b tensor.Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithLogger sets the logger used for model loading records.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine は CPU バックエンドを使う Engine を作成します。
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		opts:   bornonnx.DefaultLoadOptions(),
		models: make(map[[sha256.Size]byte]*cachedModel),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.backend == nil {
		e.backend = cpu.New()
	}
	if e.logger == nil {
		e.logger = log.GetLogger()
	}
	e.logger = e.logger.With(log.ComponentKey, "execution/onnx")
	return e
}

// Run はモデルの先頭入力に input を与えて推論し、宣言順に出力を返します。
func (e *Engine) Run(ctx context.Context, model []byte, input execution.Tensor) ([]execution.Tensor, error) {
	const op = "onnx.Engine.Run"
	if err := ctx.Err(); err != nil {
		return nil, errors.NewUnknown(op, "context done before inference", err)
	}

	entry, err := e.load(model)
	if err != nil {
		return nil, err
	}

	raw, err := toRaw(op, input)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	names := entry.model.InputNames()
	if len(names) == 0 {
		return nil, errors.NewUnknown(op, "model declares no inputs", nil)
	}
	outputs, err := entry.model.ForwardNamed(map[string]*tensor.RawTensor{names[0]: raw})
	if err != nil {
		return nil, errors.NewUnknown(op, "forward pass failed", err)
	}

	result := make([]execution.Tensor, 0, len(outputs))
	for _, name := range entry.model.OutputNames() {
		out, ok := outputs[name]
		if !ok {
			continue
		}
		t, err := fromRaw(op, out)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// Cached returns the number of compiled models held by the engine.
func (e *Engine) Cached() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.models)
}

// Evict drops the compiled form of model, if cached.
func (e *Engine) Evict(model []byte) {
	key := sha256.Sum256(model)
	e.mu.Lock()
	delete(e.models, key)
	e.mu.Unlock()
}

func (e *Engine) load(model []byte) (*cachedModel, error) {
	const op = "onnx.Engine.load"
	key := sha256.Sum256(model)

	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.models[key]; ok {
		return entry, nil
	}

	start := time.Now()
	m, err := bornonnx.LoadFromBytes(model, e.backend, e.opts)
	if err != nil {
		return nil, errors.NewUnknown(op, "loading onnx model", err)
	}
	entry := &cachedModel{model: m}
	e.models[key] = entry

	e.logger.Debug("onnx model compiled",
		"model.sha256", hex.EncodeToString(key[:8]),
		"onnx.opset", m.OpsetVersion(),
		log.ModelBytesKey, len(model),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return entry, nil
}

func toRaw(op string, input execution.Tensor) (*tensor.RawTensor, error) {
	data, err := input.Float32s()
	if err != nil {
		return nil, err
	}
	shape := input.Shape
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	raw, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, errors.NewBadRequest(op, "allocating input tensor %v: %v", shape, err)
	}
	if raw.NumElements() != len(data) {
		return nil, errors.NewBadRequest(op, "input has %d values for shape %v", len(data), shape)
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

func fromRaw(op string, raw *tensor.RawTensor) (execution.Tensor, error) {
	shape := append([]int(nil), raw.Shape()...)
	switch raw.DType() {
	case tensor.Float32:
		return execution.Tensor{Shape: shape, Data: append([]float32(nil), raw.AsFloat32()...)}, nil
	case tensor.Float64:
		return execution.Tensor{Shape: shape, Data: append([]float64(nil), raw.AsFloat64()...)}, nil
	case tensor.Int64:
		return execution.Tensor{Shape: shape, Data: append([]int64(nil), raw.AsInt64()...)}, nil
	case tensor.Int32:
		src := raw.AsInt32()
		widened := make([]int64, len(src))
		for i, v := range src {
			widened[i] = int64(v)
		}
		return execution.Tensor{Shape: shape, Data: widened}, nil
	default:
		return execution.Tensor{}, errors.NewUnknown(op, "unsupported output type "+raw.DType().String(), nil)
	}
}
