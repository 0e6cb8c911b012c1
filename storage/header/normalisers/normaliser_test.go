package normalisers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/keys"
)

const mapFixture = "a=>linear_scaling(0.0,1.0)//b=>clipping(0.0,1.5)//c=>log_scaling(10.0,0.0)//e=>z_score(0.0,1.0)"

func fixtureKeys(t *testing.T) *keys.KeyBindings {
	t.Helper()
	kb, err := keys.FromString("a=>b=>c=>d=>e=>f")
	require.NoError(t, err)
	return kb
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		n    Normaliser
		want string
	}{
		{"linear", LinearScaling{Min: 0, Max: 1}, "linear_scaling(0,1)"},
		{"clipping", NewClipping(0, 1.5), "clipping(0,1.5)"},
		{"log", LogScaling{Base: 10, Min: 0}, "log_scaling(10,0)"},
		{"zscore", ZScore{Mean: 0, StdDev: 1}, "z_score(0,1)"},
		{"negative", LinearScaling{Min: -2.5, Max: 0.1}, "linear_scaling(-2.5,0.1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.n.String())
		})
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		in     string
		want   Normaliser
		column string
	}{
		{"column_name=>linear_scaling(0,1)", LinearScaling{Min: 0, Max: 1}, "column_name"},
		{"a=>linear_scaling(0.0,1.0)", LinearScaling{Min: 0, Max: 1}, "a"},
		{"b=>clipping(0.0,1.5)", NewClipping(0, 1.5), "b"},
		{"c=>log_scaling(10.0,0.0)", LogScaling{Base: 10, Min: 0}, "c"},
		{"e=>z_score(-1,+2.5)", ZScore{Mean: -1, StdDev: 2.5}, "e"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, column, err := FromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.column, column)
			assert.True(t, Equal(tt.want, n), "got %s", n)
		})
	}
}

func TestFromStringErrors(t *testing.T) {
	for _, in := range []string{
		"a=>unknown(0,1)",
		"a=>linear_scaling(0)",
		"a=>linear_scaling",
		"linear_scaling(0,1)",
	} {
		t.Run(in, func(t *testing.T) {
			_, _, err := FromString(in)
			assert.True(t, errors.IsBadRequest(err), "got %v", err)
		})
	}
}

func TestNew(t *testing.T) {
	n, err := New(LabelZScore, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, ZScore{Mean: 2, StdDev: 4}, n)

	_, err = New("min_max", 0, 1)
	assert.True(t, errors.IsBadRequest(err))
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name    string
		n       Normaliser
		in      float32
		want    float32
		inverse bool
	}{
		{"linear", LinearScaling{Min: 0, Max: 10}, 5, 0.5, true},
		{"linear offset", LinearScaling{Min: 2, Max: 4}, 3, 0.5, true},
		{"zscore", ZScore{Mean: 10, StdDev: 2}, 14, 2, true},
		{"log", LogScaling{Base: 10, Min: 0}, 100, 2, true},
		{"log shifted", LogScaling{Base: 2, Min: 1}, 7, 3, true},
		{"clip high", NewClipping(0, 1.5), 3, 1.5, false},
		{"clip low", NewClipping(0, 1.5), -1, 0, false},
		{"clip inside", NewClipping(0, 1.5), 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.n.Normalise(tt.in)
			assert.InDelta(t, tt.want, got, 1e-5)
			if tt.inverse {
				assert.InDelta(t, tt.in, tt.n.InverseNormalise(got), 1e-4)
			}
		})
	}
}

func TestClippingPartialBounds(t *testing.T) {
	max := float32(2)
	c := Clipping{Max: &max}
	assert.Equal(t, float32(2), c.Normalise(5))
	assert.Equal(t, float32(-5), c.Normalise(-5))
	assert.Equal(t, float32(7), c.InverseNormalise(7))

	assert.True(t, errors.IsBadRequest(Validate(c)))
	assert.NoError(t, Validate(NewClipping(0, 1)))
	assert.Equal(t, "clipping(none,2)", c.String())
}

func TestValidateNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []Normaliser{
		ZScore{Mean: nan, StdDev: 1},
		LinearScaling{Min: 0, Max: inf},
		LogScaling{Base: 10, Min: -inf},
		NewClipping(nan, 1),
	}
	for _, n := range tests {
		err := Validate(n)
		assert.True(t, errors.IsBadRequest(err), n.String())
	}

	// 不正なルールはマップに登録されない
	kb := fixtureKeys(t)
	m, err := MapFromString("", kb)
	require.NoError(t, err)
	assert.True(t, errors.IsBadRequest(m.AddNormaliser(ZScore{Mean: nan, StdDev: 1}, "a", kb)))
	assert.Equal(t, 0, m.Len())
}

func TestLogScalingDomain(t *testing.T) {
	n := LogScaling{Base: 10, Min: 0}
	assert.True(t, math.IsNaN(float64(n.Normalise(-1))))
}

func TestMapFromString(t *testing.T) {
	kb := fixtureKeys(t)

	m, err := MapFromString(mapFixture, kb)
	require.NoError(t, err)

	assert.Equal(t, 4, m.Len())
	assert.Len(t, m.Reference, 4)
	assert.Equal(t, 0, m.Reference[0])
	assert.Equal(t, 1, m.Reference[1])
	assert.Equal(t, 2, m.Reference[2])
	assert.Equal(t, 3, m.Reference[4])
	assert.Equal(t, []string{"a", "b", "c", "e"}, m.StoreRef)

	n, err := m.GetNormaliser("e", kb)
	require.NoError(t, err)
	assert.Equal(t, ZScore{Mean: 0, StdDev: 1}, n)

	assert.Equal(t, "a=>linear_scaling(0,1)//b=>clipping(0,1.5)//c=>log_scaling(10,0)//e=>z_score(0,1)", m.String())
}

func TestMapFromStringEmpty(t *testing.T) {
	m, err := MapFromString("", fixtureKeys(t))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, "", m.String())
}

func TestMapFromStringUnboundColumn(t *testing.T) {
	_, err := MapFromString("z=>linear_scaling(0,1)", fixtureKeys(t))
	assert.True(t, errors.IsNotFound(err))
}

func TestAddNormaliser(t *testing.T) {
	kb := fixtureKeys(t)
	m, err := MapFromString(mapFixture, kb)
	require.NoError(t, err)

	require.NoError(t, m.AddNormaliser(LinearScaling{Min: 0, Max: 1}, "d", kb))
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, 4, m.Reference[3])

	// 未登録の列
	err = m.AddNormaliser(LinearScaling{Min: 0, Max: 1}, "z", kb)
	assert.True(t, errors.IsNotFound(err))

	// 同じ列への二重登録
	err = m.AddNormaliser(ZScore{Mean: 0, StdDev: 1}, "a", kb)
	assert.True(t, errors.IsBadRequest(err))

	// 境界の欠けた Clipping は書き込めない
	err = m.AddNormaliser(Clipping{}, "f", kb)
	assert.True(t, errors.IsBadRequest(err))

	assert.Equal(t, 5, m.Len())
	assert.Len(t, m.StoreRef, 5)
	assert.Len(t, m.Reference, 5)
}

func TestGetNormaliser(t *testing.T) {
	kb := fixtureKeys(t)
	m, err := MapFromString(mapFixture, kb)
	require.NoError(t, err)

	n, err := m.GetNormaliser("f", kb)
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = m.GetNormaliser("missing", kb)
	assert.True(t, errors.IsNotFound(err))
}
