package linear

import (
	"encoding/binary"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage"
)

// エンコードに使う ONNX の定数
const (
	onnxFloat     = 1
	onnxIRVersion = 7
	onnxOpset     = 13

	// 入力名と出力名。ForwardNamed は先頭の入力名で値を渡す
	InputName  = "X"
	OutputName = "Y"
)

// EncodeONNX は Y = Gemm(X, W, B) の ONNX モデルを組み立てます。
// X は [1, len(weights)]、W は [len(weights), 1]、B は [1] です。
func EncodeONNX(weights []float32, bias float32) []byte {
	n := int64(len(weights))
	node := join(
		bytesField(1, []byte(InputName)),
		bytesField(1, []byte("W")),
		bytesField(1, []byte("B")),
		bytesField(2, []byte(OutputName)),
		bytesField(3, []byte("linear")),
		bytesField(4, []byte("Gemm")),
	)
	graph := join(
		bytesField(1, node),
		bytesField(2, []byte("linear_regression")),
		bytesField(5, initializer("W", []int64{n, 1}, weights)),
		bytesField(5, initializer("B", []int64{1}, []float32{bias})),
		bytesField(11, valueInfo(InputName, 1, n)),
		bytesField(12, valueInfo(OutputName, 1, 1)),
	)
	opset := join(bytesField(1, nil), varintField(2, onnxOpset))
	return join(
		varintField(1, onnxIRVersion),
		bytesField(2, []byte("surrealml")),
		bytesField(8, opset),
		bytesField(7, graph),
	)
}

// ONNX はモデルを ONNX バイト列に変換します。係数が未設定なら BadRequest です。
func (lr *LinearRegression) ONNX() ([]byte, error) {
	if err := lr.RequireFitted("LinearRegression.ONNX"); err != nil {
		return nil, err
	}
	return EncodeONNX(lr.Coefficients(), float32(lr.Intercept)), nil
}

// Pack はモデルを .surml コンテナに包みます。
//
// columns は係数と同じ順の入力列名で、エンジンは native、入力形状は [1, NFeatures] になります。
// output が空でなければ出力名として登録します。
//
// 使用例:
//
//	lr := linear.NewLinearRegression()
//	err := lr.LoadFromSKLearn("sklearn_model.json")
//	file, err := lr.Pack([]string{"squarefoot", "num_floors"}, "house_price")
//	err = file.Write("house.surml")
func (lr *LinearRegression) Pack(columns []string, output string) (*storage.SurMlFile, error) {
	const op = "LinearRegression.Pack"
	model, err := lr.ONNX()
	if err != nil {
		return nil, err
	}
	if len(columns) != lr.NFeatures {
		return nil, errors.NewBadRequest(op, "model has %d features but %d columns were given", lr.NFeatures, len(columns))
	}

	file := storage.Fresh(model)
	h := file.Header
	for _, column := range columns {
		if err := h.AddColumn(column); err != nil {
			return nil, err
		}
	}
	if output != "" {
		if err := h.AddOutput(output, nil); err != nil {
			return nil, err
		}
	}
	if err := h.AddEngine("native"); err != nil {
		return nil, err
	}
	if err := h.AddInputDims(1, int32(lr.NFeatures)); err != nil {
		return nil, err
	}
	return file, nil
}

func bytesField(num protowire.Number, v []byte) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func varintField(num protowire.Number, v uint64) []byte {
	b := protowire.AppendTag(nil, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// valueInfo は float テンソルの ValueInfoProto です。
func valueInfo(name string, dims ...int64) []byte {
	var shape []byte
	for _, d := range dims {
		shape = append(shape, bytesField(1, varintField(1, uint64(d)))...)
	}
	tensorType := join(varintField(1, onnxFloat), bytesField(2, shape))
	return join(bytesField(1, []byte(name)), bytesField(2, bytesField(1, tensorType)))
}

// initializer は raw_data に little endian の float32 を詰めた TensorProto です。
func initializer(name string, dims []int64, values []float32) []byte {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	var out []byte
	for _, d := range dims {
		out = append(out, varintField(1, uint64(d))...)
	}
	return join(out, varintField(2, onnxFloat), bytesField(8, []byte(name)), bytesField(9, raw))
}
