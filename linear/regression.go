// Package linear は学習済みの線形回帰モデルを ONNX グラフとして .surml に書き出します。
//
// 係数は scikit-learn からエクスポートした JSON で受け取ります。このパッケージは学習を行いません。
// 変換したモデルは Gemm ノード 1 つの ONNX になるため、
// execution/onnx のエンジンでそのまま推論できます。
package linear

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/surrealdb/surrealml/core/model"
	"github.com/surrealdb/surrealml/core/parallel"
	"github.com/surrealdb/surrealml/metrics"
	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
)

var _ model.Regressor = (*LinearRegression)(nil)

// SKLearnFormatVersion は読み書きする JSON 形式のバージョン
const SKLearnFormatVersion = "1.0"

// SKLearnModelSpec は JSON に含まれるモデルの種別
type SKLearnModelSpec struct {
	Name          string `json:"name"`
	FormatVersion string `json:"format_version"`
}

// SKLearnLinearParams は LinearRegression の coef_ と intercept_
type SKLearnLinearParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	NFeatures    int       `json:"n_features"`
}

// SKLearnModel は scikit-learn からエクスポートされた線形モデルの JSON
type SKLearnModel struct {
	ModelSpec SKLearnModelSpec    `json:"model_spec"`
	Params    SKLearnLinearParams `json:"params"`
}

// LinearRegression は学習済みの線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator

	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
	NFeatures int           // 特徴量の数

	parallelThreshold int
}

// NewLinearRegression は係数を持たない線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{parallelThreshold: 1000}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// FromCoefficients は係数と切片から学習済みモデルを作成する
func FromCoefficients(weights []float64, intercept float64, opts ...Option) (*LinearRegression, error) {
	lr := NewLinearRegression(opts...)
	if err := lr.setParams("LinearRegression.FromCoefficients", SKLearnLinearParams{
		Coefficients: weights,
		Intercept:    intercept,
		NFeatures:    len(weights),
	}); err != nil {
		return nil, err
	}
	return lr, nil
}

func (lr *LinearRegression) setParams(op string, params SKLearnLinearParams) error {
	if len(params.Coefficients) == 0 {
		return errors.NewBadRequest(op, "model has no coefficients")
	}
	if params.NFeatures != len(params.Coefficients) {
		return errors.NewBadRequest(op, "n_features is %d but %d coefficients were given", params.NFeatures, len(params.Coefficients))
	}
	values := append([]float64{params.Intercept}, params.Coefficients...)
	if err := errors.CheckNumericalStability(op, values); err != nil {
		return err
	}

	lr.NFeatures = params.NFeatures
	lr.Intercept = params.Intercept
	lr.Weights = mat.NewVecDense(params.NFeatures, append([]float64(nil), params.Coefficients...))
	lr.SetFitted()
	return nil
}

// LoadFromSKLearn は scikit-learn からエクスポートされた JSON ファイルからモデルを読み込む
//
// パラメータ:
//   - filename: JSONファイルのパス
//
// 戻り値:
//   - error: ファイルがない場合は NotFound、形式が不正な場合は BadRequest
//
// 使用例:
//
//	lr := linear.NewLinearRegression()
//	err := lr.LoadFromSKLearn("sklearn_model.json")
func (lr *LinearRegression) LoadFromSKLearn(filename string) error {
	const op = "LinearRegression.LoadFromSKLearn"
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Classify(errors.NotFound, op, "opening "+filename, err)
		}
		return errors.NewUnknown(op, "opening "+filename, err)
	}
	defer file.Close()

	return lr.LoadFromSKLearnReader(file)
}

// LoadFromSKLearnReader は Reader から scikit-learn モデルを読み込む
func (lr *LinearRegression) LoadFromSKLearnReader(r io.Reader) error {
	const op = "LinearRegression.LoadFromSKLearnReader"
	var sk SKLearnModel
	if err := json.NewDecoder(r).Decode(&sk); err != nil {
		return errors.Classify(errors.BadRequest, op, "decoding sklearn json", err)
	}
	if sk.ModelSpec.Name != "LinearRegression" {
		return errors.NewBadRequest(op, "unsupported model %q, want LinearRegression", sk.ModelSpec.Name)
	}
	if sk.ModelSpec.FormatVersion != SKLearnFormatVersion {
		return errors.NewBadRequest(op, "unsupported format version %q", sk.ModelSpec.FormatVersion)
	}
	if err := lr.setParams(op, sk.Params); err != nil {
		return err
	}

	log.GetLogger().Debug("sklearn linear model loaded",
		log.OperationKey, log.OperationLoad,
		log.FeaturesKey, lr.NFeatures,
	)
	return nil
}

// ExportToSKLearnWriter はモデルを LoadFromSKLearnReader が読める JSON で書き出す
func (lr *LinearRegression) ExportToSKLearnWriter(w io.Writer) error {
	const op = "LinearRegression.ExportToSKLearnWriter"
	if err := lr.RequireFitted(op); err != nil {
		return err
	}
	sk := SKLearnModel{
		ModelSpec: SKLearnModelSpec{Name: "LinearRegression", FormatVersion: SKLearnFormatVersion},
		Params: SKLearnLinearParams{
			Coefficients: mat.Col(nil, 0, lr.Weights),
			Intercept:    lr.Intercept,
			NFeatures:    lr.NFeatures,
		},
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&sk); err != nil {
		return errors.NewUnknown(op, "encoding sklearn json", err)
	}
	return nil
}

// Predict は入力データに対する予測を行う。行数が多い場合は行ごとに並列化する
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	const op = "LinearRegression.Predict"
	if err := lr.RequireFitted(op); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewBadRequest(op, "expected %d features, got %d", lr.NFeatures, c)
	}

	// y = X * weights + intercept
	out := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, lr.parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			pred := lr.Intercept
			for j := 0; j < c; j++ {
				pred += X.At(i, j) * lr.Weights.AtVec(j)
			}
			out.Set(i, 0, pred)
		}
	})
	return out, nil
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// Coefficients は重みを float32 で返します。ONNX の初期値と同じ精度です。
func (lr *LinearRegression) Coefficients() []float32 {
	if lr.Weights == nil {
		return nil
	}
	out := make([]float32, lr.Weights.Len())
	for i := range out {
		out[i] = float32(lr.Weights.AtVec(i))
	}
	return out
}

func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return "LinearRegression()"
	}
	return fmt.Sprintf("LinearRegression(n_features=%d, intercept=%g)", lr.NFeatures, lr.Intercept)
}
