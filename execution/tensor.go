package execution

import (
	"fmt"

	"github.com/x448/float16"

	"github.com/surrealdb/surrealml/pkg/errors"
)

// Tensor は推論エンジンとの受け渡しに使う密なテンソルです。
//
// Data は []float32, []float64, []int64, []float16.Float16 のいずれかです。
// 要素は行優先 (row-major) で並びます。
type Tensor struct {
	Shape []int
	Data  any
}

// NewTensor は float32 スライスからテンソルを作成します。
// shape を省略すると rank 1 になります。
func NewTensor(data []float32, shape ...int) Tensor {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	return Tensor{Shape: append([]int(nil), shape...), Data: data}
}

// Len は要素数を返します。未知の型では -1 です。
func (t Tensor) Len() int {
	switch d := t.Data.(type) {
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []int64:
		return len(d)
	case []float16.Float16:
		return len(d)
	default:
		return -1
	}
}

// DType は要素型の名前を返します。
func (t Tensor) DType() string {
	switch t.Data.(type) {
	case []float32:
		return "float32"
	case []float64:
		return "float64"
	case []int64:
		return "int64"
	case []float16.Float16:
		return "float16"
	default:
		return fmt.Sprintf("%T", t.Data)
	}
}

// Float32s は要素を float32 に変換して返します。
//
// float32 以外からの変換では DataConversionWarning を発行します。
// 対応していない要素型は Unknown エラーです。
func (t Tensor) Float32s() ([]float32, error) {
	const op = "Tensor.Float32s"

	switch d := t.Data.(type) {
	case []float32:
		return d, nil
	case []float64:
		out := make([]float32, len(d))
		for i, v := range d {
			out[i] = float32(v)
		}
		errors.Warn(errors.NewDataConversionWarning("float64", "float32", "engine output narrowed"))
		return out, nil
	case []int64:
		out := make([]float32, len(d))
		for i, v := range d {
			out[i] = float32(v)
		}
		errors.Warn(errors.NewDataConversionWarning("int64", "float32", "engine output is integral"))
		return out, nil
	case []float16.Float16:
		out := make([]float32, len(d))
		for i, v := range d {
			out[i] = v.Float32()
		}
		errors.Warn(errors.NewDataConversionWarning("float16", "float32", "engine output widened"))
		return out, nil
	default:
		return nil, errors.NewUnknown(op, fmt.Sprintf("unsupported output element type %s", t.DType()), nil)
	}
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
