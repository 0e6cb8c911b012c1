package execution

import (
	"context"
	"sync"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
	"github.com/surrealdb/surrealml/storage"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

// linearEngine は y = Σ w_i x_i + bias を返すテスト用エンジンです。
type linearEngine struct {
	weights []float32
	bias    float32

	mu     sync.Mutex
	shapes [][]int
	inputs [][]float32
}

func (e *linearEngine) Run(_ context.Context, _ []byte, input Tensor) ([]Tensor, error) {
	x, err := input.Float32s()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.shapes = append(e.shapes, input.Shape)
	e.inputs = append(e.inputs, append([]float32(nil), x...))
	e.mu.Unlock()

	y := e.bias
	for i, v := range x {
		y += e.weights[i] * v
	}
	return []Tensor{NewTensor([]float32{y}, 1, 1)}, nil
}

func (e *linearEngine) lastShape() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shapes[len(e.shapes)-1]
}

func (e *linearEngine) lastInput() []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inputs[len(e.inputs)-1]
}

// shapedEngine は宣言済みの入力形状を返します。
type shapedEngine struct {
	linearEngine
	shape []int
}

func (e *shapedEngine) InputShape([]byte) ([]int, error) {
	return e.shape, nil
}

func houseFile(t *testing.T) *storage.SurMlFile {
	t.Helper()
	file := storage.Fresh([]byte("model"))
	require.NoError(t, file.Header.AddColumn("squarefoot"))
	require.NoError(t, file.Header.AddColumn("num_floors"))
	return file
}

func newComputation(t *testing.T, file *storage.SurMlFile, engine Engine, opts ...Option) *ModelComputation {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts = append([]Option{WithLogger(logger)}, opts...)
	return must.M1(New(file, engine, opts...))
}

func TestNewRequiresFileAndEngine(t *testing.T) {
	_, err := New(nil, &linearEngine{})
	assert.True(t, errors.IsBadRequest(err))
	_, err = New(storage.Fresh(nil), nil)
	assert.True(t, errors.IsBadRequest(err))
}

func TestInputVectorFromKeyBindings(t *testing.T) {
	comp := newComputation(t, houseFile(t), &linearEngine{})

	vector, err := comp.InputVectorFromKeyBindings(map[string]float32{
		"num_floors": 2,
		"squarefoot": 1000,
		"ignored":    7,
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{1000, 2}, vector)

	tensor, err := comp.InputTensorFromKeyBindings(map[string]float32{"squarefoot": 1, "num_floors": 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, tensor.Shape)
	assert.Equal(t, "float32", tensor.DType())

	_, err = comp.InputVectorFromKeyBindings(map[string]float32{"squarefoot": 1000})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "num_floors")
}

func TestRawComputeShapeResolution(t *testing.T) {
	input := []float32{1000, 2}

	t.Run("default row vector", func(t *testing.T) {
		engine := &linearEngine{weights: []float32{1, 1}}
		comp := newComputation(t, houseFile(t), engine)
		out, err := comp.RawCompute(context.Background(), input, nil)
		require.NoError(t, err)
		assert.Equal(t, []float32{1002}, out)
		assert.Equal(t, []int{1, 2}, engine.lastShape())
	})

	t.Run("explicit dims win", func(t *testing.T) {
		engine := &shapedEngine{linearEngine: linearEngine{weights: []float32{1, 1}}, shape: []int{1, 2}}
		comp := newComputation(t, houseFile(t), engine, WithInputDims(1, 2))
		_, err := comp.RawCompute(context.Background(), input, []int{2, 1})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1}, engine.lastShape())
	})

	t.Run("option before engine", func(t *testing.T) {
		engine := &shapedEngine{linearEngine: linearEngine{weights: []float32{1, 1}}, shape: []int{1, 2}}
		comp := newComputation(t, houseFile(t), engine, WithInputDims(2))
		_, err := comp.RawCompute(context.Background(), input, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{2}, engine.lastShape())
	})

	t.Run("engine unknown dims become one", func(t *testing.T) {
		engine := &shapedEngine{linearEngine: linearEngine{weights: []float32{1, 1}}, shape: []int{-1, 2}}
		file := houseFile(t)
		require.NoError(t, file.Header.AddInputDims(2, 1))
		comp := newComputation(t, file, engine)
		_, err := comp.RawCompute(context.Background(), input, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, engine.lastShape())
	})

	t.Run("header input dims", func(t *testing.T) {
		engine := &linearEngine{weights: []float32{1, 1}}
		file := houseFile(t)
		require.NoError(t, file.Header.AddInputDims(2, 1))
		comp := newComputation(t, file, engine)
		_, err := comp.RawCompute(context.Background(), input, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1}, engine.lastShape())
	})

	t.Run("mismatched dims", func(t *testing.T) {
		comp := newComputation(t, houseFile(t), &linearEngine{weights: []float32{1, 1}})
		_, err := comp.RawCompute(context.Background(), input, []int{3, 1})
		assert.True(t, errors.IsBadRequest(err))
		_, err = comp.RawCompute(context.Background(), input, []int{-2, -1})
		assert.True(t, errors.IsBadRequest(err))
	})
}

func TestRawComputeOutputCoercion(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	tests := []struct {
		name    string
		data    any
		want    []float32
		warning bool
	}{
		{"float32", []float32{1.5}, []float32{1.5}, false},
		{"float64", []float64{2.25}, []float32{2.25}, true},
		{"int64", []int64{985}, []float32{985}, true},
		{"float16", []float16.Float16{float16.Fromfloat32(0.5)}, []float32{0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings = nil
			engine := EngineFunc(func(context.Context, []byte, Tensor) ([]Tensor, error) {
				return []Tensor{{Shape: []int{1}, Data: tt.data}}, nil
			})
			comp := newComputation(t, houseFile(t), engine)
			out, err := comp.RawCompute(context.Background(), []float32{1, 2}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			if tt.warning {
				require.Len(t, warnings, 1)
				var conv *errors.DataConversionWarning
				assert.True(t, errors.As(warnings[0], &conv))
				assert.Equal(t, tt.name, conv.FromType)
			} else {
				assert.Empty(t, warnings)
			}
		})
	}

	engine := EngineFunc(func(context.Context, []byte, Tensor) ([]Tensor, error) {
		return []Tensor{{Shape: []int{1}, Data: []int32{1}}}, nil
	})
	comp := newComputation(t, houseFile(t), engine)
	_, err := comp.RawCompute(context.Background(), []float32{1, 2}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.Unknown, errors.StatusOf(err))
}

func TestRawComputeEngineFailures(t *testing.T) {
	failing := EngineFunc(func(context.Context, []byte, Tensor) ([]Tensor, error) {
		return nil, errors.NewBadRequest("fake.Run", "shape rejected")
	})
	_, err := newComputation(t, houseFile(t), failing).RawCompute(context.Background(), []float32{1, 2}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.Unknown, errors.StatusOf(err))

	panicking := EngineFunc(func(context.Context, []byte, Tensor) ([]Tensor, error) {
		panic("kernel exploded")
	})
	_, err = newComputation(t, houseFile(t), panicking).RawCompute(context.Background(), []float32{1, 2}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.Unknown, errors.StatusOf(err))
	var panicErr *errors.PanicError
	assert.True(t, errors.As(err, &panicErr))

	empty := EngineFunc(func(context.Context, []byte, Tensor) ([]Tensor, error) {
		return nil, nil
	})
	_, err = newComputation(t, houseFile(t), empty).RawCompute(context.Background(), []float32{1, 2}, nil)
	assert.Equal(t, errors.Unknown, errors.StatusOf(err))
}

func TestBufferedCompute(t *testing.T) {
	t.Run("no output normaliser returns raw output", func(t *testing.T) {
		engine := &linearEngine{weights: []float32{1, 10}, bias: 0.5}
		file := houseFile(t)
		require.NoError(t, file.Header.AddNormaliser("squarefoot", normalisers.LinearScaling{Min: 0, Max: 2000}))
		comp := newComputation(t, file, engine)

		values := map[string]float32{"squarefoot": 1000, "num_floors": 2}
		out, err := comp.BufferedCompute(context.Background(), values)
		require.NoError(t, err)
		assert.Equal(t, []float32{21}, out)
		assert.Equal(t, []float32{0.5, 2}, engine.lastInput())
		// 呼び出し側のマップは正規化済みの値に書き換えられる
		assert.Equal(t, float32(0.5), values["squarefoot"])
	})

	t.Run("output normaliser is inverted", func(t *testing.T) {
		engine := &linearEngine{weights: []float32{1, 0}}
		file := houseFile(t)
		require.NoError(t, file.Header.AddNormaliser("squarefoot", normalisers.ZScore{Mean: 1000, StdDev: 500}))
		require.NoError(t, file.Header.AddOutput("house_price", normalisers.ZScore{Mean: 200000, StdDev: 50000}))
		comp := newComputation(t, file, engine)

		out, err := comp.BufferedCompute(context.Background(), map[string]float32{"squarefoot": 1500, "num_floors": 3})
		require.NoError(t, err)
		assert.Equal(t, []float32{250000}, out)
	})

	scaled := func(t *testing.T) *ModelComputation {
		file := houseFile(t)
		require.NoError(t, file.Header.AddNormaliser("squarefoot", normalisers.LinearScaling{Min: 0, Max: 2000}))
		require.NoError(t, file.Header.AddNormaliser("num_floors", normalisers.ZScore{Mean: 1, StdDev: 2}))
		return newComputation(t, file, &linearEngine{weights: []float32{1, 1}})
	}

	t.Run("unbound key", func(t *testing.T) {
		values := map[string]float32{"squarefoot": 1000, "num_floors": 3, "garden": 1}
		_, err := scaled(t).BufferedCompute(context.Background(), values)
		assert.True(t, errors.IsNotFound(err))
		// エラー時は呼び出し側のマップを書き換えない
		assert.Equal(t, map[string]float32{"squarefoot": 1000, "num_floors": 3, "garden": 1}, values)
	})

	t.Run("missing key", func(t *testing.T) {
		values := map[string]float32{"squarefoot": 1000}
		_, err := scaled(t).BufferedCompute(context.Background(), values)
		assert.True(t, errors.IsNotFound(err))
		assert.Equal(t, map[string]float32{"squarefoot": 1000}, values)
	})
}
