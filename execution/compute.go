// Package execution はロード済みコンテナに対する推論を組み立てます。
//
// ModelComputation は KeyBindings の順序で入力ベクトルを構築し、
// ヘッダーの正規化ルールを適用してから Engine にモデルバイトを渡します。
//
// 使用例:
//
//	file, _ := storage.FromFile("house.surml")
//	comp, _ := execution.New(file, onnx.NewEngine())
//	out, err := comp.BufferedCompute(ctx, map[string]float32{
//	    "squarefoot": 1000,
//	    "num_floors": 2,
//	})
package execution

import (
	"context"
	"time"

	"github.com/surrealdb/surrealml/core/model"
	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
	"github.com/surrealdb/surrealml/storage"
)

var (
	_ model.Predictor = (*ModelComputation)(nil)
	_ model.Scorer    = (*ModelComputation)(nil)
)

// ModelComputation は 1 つのコンテナと 1 つの Engine の組です。
// 並行利用する場合は呼び出し側で排他制御してください。
type ModelComputation struct {
	file      *storage.SurMlFile
	engine    Engine
	logger    log.Logger
	inputDims []int
}

// Option は ModelComputation を設定する関数です。
type Option func(*ModelComputation)

// WithLogger sets the logger used for compute records.
func WithLogger(l log.Logger) Option {
	return func(c *ModelComputation) {
		c.logger = l
	}
}

// WithInputDims は RawCompute に次元が渡されなかった場合の入力形状を設定します。
// エンジンやヘッダーが宣言する形状より優先されます。
func WithInputDims(dims ...int) Option {
	return func(c *ModelComputation) {
		c.inputDims = append([]int(nil), dims...)
	}
}

// New は file と engine を束ねた ModelComputation を作成します。
func New(file *storage.SurMlFile, engine Engine, opts ...Option) (*ModelComputation, error) {
	const op = "execution.New"
	if file == nil || file.Header == nil {
		return nil, errors.NewBadRequest(op, "container is required")
	}
	if engine == nil {
		return nil, errors.NewBadRequest(op, "engine is required")
	}

	c := &ModelComputation{file: file, engine: engine}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	c.logger = c.logger.With(
		log.ComponentKey, "execution",
		log.ModelNameKey, file.Header.Name.String(),
		log.ModelVersionKey, file.Header.Version.String(),
	)
	return c, nil
}

// File returns the bound container.
func (c *ModelComputation) File() *storage.SurMlFile {
	return c.file
}

// InputVectorFromKeyBindings は KeyBindings の順序で値を並べたベクトルを返します。
//
// パラメータ:
//   - values: 列名から値へのマップ。余分なキーは無視されます
//
// 戻り値:
//   - []float32: 列の宣言順に並んだ入力ベクトル
//   - error: バインドされた列がマップに無い場合は NotFound
func (c *ModelComputation) InputVectorFromKeyBindings(values map[string]float32) ([]float32, error) {
	const op = "ModelComputation.InputVectorFromKeyBindings"

	columns := c.file.Header.Keys.Store
	buffer := make([]float32, 0, len(columns))
	for _, key := range columns {
		v, ok := values[key]
		if !ok {
			return nil, errors.NewNotFound(op, "key %s not found in input values", key)
		}
		buffer = append(buffer, v)
	}
	return buffer, nil
}

// InputTensorFromKeyBindings wraps the input vector as a rank-1 float32 tensor.
func (c *ModelComputation) InputTensorFromKeyBindings(values map[string]float32) (Tensor, error) {
	vector, err := c.InputVectorFromKeyBindings(values)
	if err != nil {
		return Tensor{}, err
	}
	return NewTensor(vector), nil
}

// RawCompute は正規化を行わずに input をエンジンで実行し、先頭の出力を返します。
//
// 入力形状は次の優先順位で決まります:
//  1. dims 引数
//  2. WithInputDims
//  3. エンジンが宣言する入力形状 (未知の次元は 1)
//  4. ヘッダーの InputDims
//  5. [1, len(input)]
//
// 出力は float32 に変換されます。float64, int64, float16 以外の要素型は Unknown です。
func (c *ModelComputation) RawCompute(ctx context.Context, input []float32, dims []int) ([]float32, error) {
	const op = "ModelComputation.RawCompute"
	start := time.Now()

	shape, err := c.resolveShape(op, len(input), dims)
	if err != nil {
		return nil, err
	}

	var outputs []Tensor
	err = errors.SafeExecute(op, func() error {
		var runErr error
		outputs, runErr = c.engine.Run(ctx, c.file.Model, NewTensor(input, shape...))
		return runErr
	})
	if err != nil {
		c.logger.Error("engine run failed", err, log.OperationKey, log.OperationRawCompute, log.ShapeKey, shape)
		return nil, errors.NewUnknown(op, "engine run failed", err)
	}
	if len(outputs) == 0 {
		return nil, errors.NewUnknown(op, "engine returned no outputs", nil)
	}

	result, err := outputs[0].Float32s()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("raw compute",
		log.OperationKey, log.OperationRawCompute,
		log.ShapeKey, shape,
		log.DataTypeKey, outputs[0].DType(),
		log.OutputsKey, len(result),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// BufferedCompute はマップの各値をヘッダーの正規化ルールで正規化し、RawCompute を実行します。
//
// values は呼び出し側のマップがその場で書き換えられます。
// バインドされていないキーや足りないキーは NotFound で、その場合 values は変更されません。
// 出力の逆正規化ルールが設定されている場合のみ、出力に逆変換を適用します。
func (c *ModelComputation) BufferedCompute(ctx context.Context, values map[string]float32) ([]float32, error) {
	const op = "ModelComputation.BufferedCompute"
	h := c.file.Header

	// 書き換える前にすべてのキーを検証する
	for key := range values {
		if _, ok := h.Keys.Index(key); !ok {
			return nil, errors.NewNotFound(op, "key %s is not bound in the header", key)
		}
	}
	vector, err := c.InputVectorFromKeyBindings(values)
	if err != nil {
		return nil, err
	}
	for i, key := range h.Keys.Store {
		n, err := h.GetNormaliser(key)
		if err != nil {
			return nil, err
		}
		if n != nil {
			vector[i] = n.Normalise(vector[i])
			values[key] = vector[i]
		}
	}

	output, err := c.RawCompute(ctx, vector, nil)
	if err != nil {
		return nil, err
	}

	if h.Output.Normaliser == nil {
		return output, nil
	}
	buffer := make([]float32, len(output))
	for i, v := range output {
		buffer[i] = h.Output.Normaliser.InverseNormalise(v)
	}

	c.logger.Debug("buffered compute",
		log.OperationKey, log.OperationBufferedCompute,
		log.FeaturesKey, len(vector),
		log.OutputsKey, len(buffer),
	)
	return buffer, nil
}

func (c *ModelComputation) resolveShape(op string, n int, dims []int) ([]int, error) {
	shape := dims
	if len(shape) == 0 {
		shape = c.inputDims
	}
	if len(shape) == 0 {
		if shaper, ok := c.engine.(InputShaper); ok {
			declared, err := shaper.InputShape(c.file.Model)
			if err != nil {
				return nil, errors.NewUnknown(op, "reading engine input shape", err)
			}
			shape = make([]int, len(declared))
			for i, d := range declared {
				if d <= 0 {
					d = 1
				}
				shape[i] = d
			}
		}
	}
	if len(shape) == 0 {
		shape = c.file.Header.InputDims.Shape()
	}
	if len(shape) == 0 {
		shape = []int{1, n}
	}

	for _, d := range shape {
		if d < 0 {
			return nil, errors.NewBadRequest(op, "negative dimension in shape %v", shape)
		}
	}
	if numElements(shape) != n {
		return nil, errors.NewBadRequest(op, "cannot reshape %d values into shape %v", n, shape)
	}
	return shape, nil
}
