// Package preprocessing は学習データから正規化ルールを推定し、ヘッダーに登録します。
//
// StandardScaler は z_score、MinMaxScaler は linear_scaling に対応します。
// 推定したルールは AttachTo でコンテナのヘッダーに書き込めるため、
// 推論時の BufferedCompute が学習時と同じ変換を再現します。
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/surrealdb/surrealml/core/model"
	"github.com/surrealdb/surrealml/core/parallel"
	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/pkg/log"
	"github.com/surrealdb/surrealml/storage/header"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

var (
	_ model.Transformer = (*StandardScaler)(nil)
	_ model.Transformer = (*MinMaxScaler)(nil)
)

// 定数特徴量とみなす幅
const constantEpsilon = 1e-8

// rowParallelThreshold 以下の行数では逐次変換する
const rowParallelThreshold = 1024

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差 (母標準偏差)
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewStandardScaler は未学習の StandardScaler を作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler()
//	err := scaler.Fit(X)
//	err = scaler.AttachTo(file.Header, []string{"squarefoot", "num_floors"})
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit は訓練データから平均と標準偏差を計算する
//
// パラメータ:
//   - X: 訓練データ (n_samples × n_features の行列)
//
// 戻り値:
//   - error: 空の入力は BadRequest、NaN/Inf を含む場合は NumericalInstabilityError
func (s *StandardScaler) Fit(X mat.Matrix) error {
	const op = "StandardScaler.Fit"
	r, c, err := checkInput(op, X)
	if err != nil {
		return err
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		s.Mean[j], s.Scale[j] = stat.PopMeanStdDev(col, nil)
		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if s.Scale[j] < constantEpsilon {
			s.Scale[j] = 1.0
		}
	}
	if err := checkStats(op, s.Mean, s.Scale); err != nil {
		return err
	}

	s.SetFitted()
	log.GetLogger().Debug("scaler fitted",
		log.OperationKey, log.OperationFit,
		log.ComponentKey, "preprocessing",
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	const op = "StandardScaler.Transform"
	if err := s.ready(op, X); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 {
		return errors.SafeDivide(v-s.Mean[j], s.Scale[j])
	}), nil
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	const op = "StandardScaler.InverseTransform"
	if err := s.ready(op, X); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}), nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Normalisers は各特徴量の z_score ルールを返す
func (s *StandardScaler) Normalisers() ([]normalisers.Normaliser, error) {
	if err := s.RequireFitted("StandardScaler.Normalisers"); err != nil {
		return nil, err
	}
	out := make([]normalisers.Normaliser, s.NFeatures)
	for j := range out {
		out[j] = normalisers.ZScore{Mean: float32(s.Mean[j]), StdDev: float32(s.Scale[j])}
	}
	return out, nil
}

// AttachTo は columns の順に z_score ルールをヘッダーへ登録する
func (s *StandardScaler) AttachTo(h *header.Header, columns []string) error {
	return attach("StandardScaler.AttachTo", s, h, columns)
}

// AttachOutput は 1 特徴量で学習したスケーラーを出力の逆正規化ルールとして登録する
func (s *StandardScaler) AttachOutput(h *header.Header, name string) error {
	return attachOutput("StandardScaler.AttachOutput", s, h, name)
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return "StandardScaler()"
	}
	return fmt.Sprintf("StandardScaler(n_features=%d)", s.NFeatures)
}

func (s *StandardScaler) ready(op string, X mat.Matrix) error {
	if err := s.RequireFitted(op); err != nil {
		return err
	}
	return checkWidth(op, X, s.NFeatures)
}

// MinMaxScaler はデータを [0, 1] にスケーリングする。
// ヘッダーの linear_scaling(min,max) と同じ変換です。
type MinMaxScaler struct {
	model.BaseEstimator

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewMinMaxScaler は未学習の MinMaxScaler を作成する
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit は訓練データから最小値・最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	const op = "MinMaxScaler.Fit"
	r, c, err := checkInput(op, X)
	if err != nil {
		return err
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m.DataMin[j] = floats.Min(col)
		m.DataMax[j] = floats.Max(col)
		// 定数特徴量は幅 1 として扱う
		if m.DataMax[j]-m.DataMin[j] < constantEpsilon {
			m.DataMax[j] = m.DataMin[j] + 1
		}
	}
	if err := checkStats(op, m.DataMin, m.DataMax); err != nil {
		return err
	}

	m.SetFitted()
	return nil
}

// Transform は (x - min) / (max - min) を適用する
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	const op = "MinMaxScaler.Transform"
	if err := m.ready(op, X); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 {
		// 幅 0 の列 (統計値を直接設定した場合) は 0 に写す
		return errors.SafeDivide(v-m.DataMin[j], m.DataMax[j]-m.DataMin[j])
	}), nil
}

// InverseTransform はスケーリングされたデータを元のスケールに戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	const op = "MinMaxScaler.InverseTransform"
	if err := m.ready(op, X); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 {
		return v*(m.DataMax[j]-m.DataMin[j]) + m.DataMin[j]
	}), nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// Normalisers は各特徴量の linear_scaling ルールを返す
func (m *MinMaxScaler) Normalisers() ([]normalisers.Normaliser, error) {
	if err := m.RequireFitted("MinMaxScaler.Normalisers"); err != nil {
		return nil, err
	}
	out := make([]normalisers.Normaliser, m.NFeatures)
	for j := range out {
		out[j] = normalisers.LinearScaling{Min: float32(m.DataMin[j]), Max: float32(m.DataMax[j])}
	}
	return out, nil
}

// AttachTo は columns の順に linear_scaling ルールをヘッダーへ登録する
func (m *MinMaxScaler) AttachTo(h *header.Header, columns []string) error {
	return attach("MinMaxScaler.AttachTo", m, h, columns)
}

// AttachOutput は 1 特徴量で学習したスケーラーを出力の逆正規化ルールとして登録する
func (m *MinMaxScaler) AttachOutput(h *header.Header, name string) error {
	return attachOutput("MinMaxScaler.AttachOutput", m, h, name)
}

func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return "MinMaxScaler()"
	}
	return fmt.Sprintf("MinMaxScaler(n_features=%d)", m.NFeatures)
}

func (m *MinMaxScaler) ready(op string, X mat.Matrix) error {
	if err := m.RequireFitted(op); err != nil {
		return err
	}
	return checkWidth(op, X, m.NFeatures)
}

type normaliserSource interface {
	Normalisers() ([]normalisers.Normaliser, error)
}

// attach は未登録の列を追加してから正規化ルールを登録する
func attach(op string, src normaliserSource, h *header.Header, columns []string) error {
	ns, err := src.Normalisers()
	if err != nil {
		return err
	}
	if len(columns) != len(ns) {
		return errors.NewBadRequest(op, "expected %d column names, got %d", len(ns), len(columns))
	}
	for j, column := range columns {
		if _, ok := h.Keys.Index(column); !ok {
			if err := h.AddColumn(column); err != nil {
				return err
			}
		}
		if err := h.AddNormaliser(column, ns[j]); err != nil {
			return err
		}
	}
	return nil
}

func attachOutput(op string, src normaliserSource, h *header.Header, name string) error {
	ns, err := src.Normalisers()
	if err != nil {
		return err
	}
	if len(ns) != 1 {
		return errors.NewBadRequest(op, "output scaler must be fitted on one feature, got %d", len(ns))
	}
	return h.AddOutput(name, ns[0])
}

func checkInput(op string, X mat.Matrix) (int, int, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewBadRequest(op, "%v", errors.ErrEmptyData)
	}
	return r, c, nil
}

func checkWidth(op string, X mat.Matrix, want int) error {
	if _, c := X.Dims(); c != want {
		return errors.NewBadRequest(op, "expected %d features, got %d", want, c)
	}
	return nil
}

func checkStats(op string, stats ...[]float64) error {
	for _, s := range stats {
		if err := errors.CheckNumericalStability(op, s); err != nil {
			return err
		}
	}
	return nil
}

// apply は要素ごとに fn を適用した新しい行列を返す。行は並列に処理される。
func apply(X mat.Matrix, fn func(j int, v float64) float64) *mat.Dense {
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	parallel.ParallelizeWithThreshold(r, rowParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := result.RawRowView(i)
			for j := range row {
				row[j] = fn(j, X.At(i, j))
			}
		}
	})
	return result
}
