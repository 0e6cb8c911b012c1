package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

func trainingData() *mat.Dense {
	return mat.NewDense(4, 2, []float64{
		1000, 1,
		2000, 2,
		3000, 3,
		4000, 2,
	})
}

func TestStandardScaler(t *testing.T) {
	s := NewStandardScaler()
	assert.Equal(t, "StandardScaler()", s.String())

	scaled, err := s.FitTransform(trainingData())
	require.NoError(t, err)
	assert.Equal(t, "StandardScaler(n_features=2)", s.String())

	assert.InDelta(t, 2500, s.Mean[0], 1e-9)
	assert.InDelta(t, math.Sqrt(1250000), s.Scale[0], 1e-9)
	assert.InDelta(t, 2, s.Mean[1], 1e-9)

	// 各列の平均は 0
	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, scaled)
		var sum float64
		for _, v := range col {
			sum += v
		}
		assert.InDelta(t, 0, sum, 1e-9)
	}

	restored, err := s.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(trainingData(), restored, 1e-9))

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	assert.True(t, errors.IsBadRequest(err))
}

func TestStandardScalerConstantFeature(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit(mat.NewDense(3, 1, []float64{5, 5, 5})))
	assert.Equal(t, 1.0, s.Scale[0])
}

func TestScalerErrors(t *testing.T) {
	s := NewStandardScaler()
	_, err := s.Transform(trainingData())
	assert.True(t, errors.IsBadRequest(err))
	_, err = s.Normalisers()
	assert.True(t, errors.IsBadRequest(err))

	assert.True(t, errors.IsBadRequest(s.Fit(&mat.Dense{})))
	err = s.Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}))
	var instability *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &instability))

	m := NewMinMaxScaler()
	_, err = m.InverseTransform(trainingData())
	assert.True(t, errors.IsBadRequest(err))
}

func TestMinMaxScaler(t *testing.T) {
	m := NewMinMaxScaler()
	scaled, err := m.FitTransform(trainingData())
	require.NoError(t, err)

	assert.Equal(t, []float64{1000, 1}, m.DataMin)
	assert.Equal(t, []float64{4000, 3}, m.DataMax)
	assert.InDelta(t, 0, scaled.At(0, 0), 1e-12)
	assert.InDelta(t, 1, scaled.At(3, 0), 1e-12)
	assert.InDelta(t, 0.5, scaled.At(1, 1), 1e-12)

	restored, err := m.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(trainingData(), restored, 1e-9))
}

func TestMinMaxScalerZeroWidth(t *testing.T) {
	m := &MinMaxScaler{DataMin: []float64{3}, DataMax: []float64{3}, NFeatures: 1}
	m.SetFitted()
	scaled, err := m.Transform(mat.NewDense(2, 1, []float64{3, 7}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, scaled.At(0, 0))
	assert.Equal(t, 0.0, scaled.At(1, 0))
}

func TestMinMaxScalerLargeBatch(t *testing.T) {
	n := rowParallelThreshold * 3
	X := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
	}
	m := NewMinMaxScaler()
	scaled, err := m.FitTransform(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, float64(i)/float64(n-1), scaled.At(i, 0), 1e-12)
	}
}

func TestAttachTo(t *testing.T) {
	h := header.Fresh()
	require.NoError(t, h.AddColumn("squarefoot"))

	m := NewMinMaxScaler()
	require.NoError(t, m.Fit(trainingData()))
	require.NoError(t, m.AttachTo(h, []string{"squarefoot", "num_floors"}))

	assert.Equal(t, []string{"squarefoot", "num_floors"}, h.Keys.Store)
	n, err := h.GetNormaliser("num_floors")
	require.NoError(t, err)
	assert.Equal(t, normalisers.LinearScaling{Min: 1, Max: 3}, n)
	assert.Equal(t, "squarefoot=>linear_scaling(1000,4000)//num_floors=>linear_scaling(1,3)", h.Normalisers.String())

	// 同じ列への二重登録は BadRequest
	assert.True(t, errors.IsBadRequest(m.AttachTo(h, []string{"squarefoot", "num_floors"})))
	assert.True(t, errors.IsBadRequest(m.AttachTo(header.Fresh(), []string{"only_one"})))
}

func TestAttachOutput(t *testing.T) {
	y := mat.NewDense(4, 1, []float64{100, 200, 300, 400})
	s := NewStandardScaler()
	require.NoError(t, s.Fit(y))

	h := header.Fresh()
	require.NoError(t, s.AttachOutput(h, "price"))
	z, ok := h.Output.Normaliser.(normalisers.ZScore)
	require.True(t, ok)
	assert.Equal(t, float32(250), z.Mean)
	assert.Equal(t, "price", *h.Output.Name)

	wide := NewStandardScaler()
	require.NoError(t, wide.Fit(trainingData()))
	assert.True(t, errors.IsBadRequest(wide.AttachOutput(h, "price")))
}
