package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

func TestStringValue(t *testing.T) {
	assert.True(t, StringValueFromString("").IsEmpty())
	assert.Equal(t, "", StringValue{}.String())
	assert.Equal(t, "model", StringValueFromString("model").String())
}

func TestVersion(t *testing.T) {
	v, err := VersionFromString("0.0.1")
	require.NoError(t, err)
	assert.Equal(t, Version{One: 0, Two: 0, Three: 1}, v)
	assert.Equal(t, "0.0.1", v.String())

	v, err = VersionFromString("")
	require.NoError(t, err)
	assert.True(t, v.IsEmpty())
	assert.Equal(t, "", v.String())

	for _, bad := range []string{"1", "1.2", "1.2.3.4", "a.b.c", "256.0.0", "-1.0.0"} {
		_, err := VersionFromString(bad)
		assert.True(t, errors.IsBadRequest(err), bad)
	}
}

func TestVersionIncrement(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{"0.0.1", "0.0.2"},
		{"0.0.9", "0.1.0"},
		{"0.9.9", "1.0.0"},
		{"9.9.9", "10.0.0"},
		{"1.2.3", "1.2.4"},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			v, err := VersionFromString(tt.from)
			require.NoError(t, err)
			require.NoError(t, v.Increment())
			assert.Equal(t, tt.want, v.String())
		})
	}

	// 空のバージョンからは 0.0.1 になる
	var v Version
	require.NoError(t, v.Increment())
	assert.Equal(t, "0.0.1", v.String())

	v = Version{One: 255, Two: 9, Three: 9}
	assert.True(t, errors.IsBadRequest(v.Increment()))
	assert.Equal(t, "255.9.9", v.String())

	// 下位の桁が 9 を超えるバージョンは読めるが、繰り上げできない
	for _, from := range []string{"0.0.255", "0.15.9", "1.10.0"} {
		v, err := VersionFromString(from)
		require.NoError(t, err)
		assert.True(t, errors.IsBadRequest(v.Increment()), from)
		assert.Equal(t, from, v.String())
		assert.False(t, v.IsEmpty())
	}
}

func TestEngine(t *testing.T) {
	e, err := ParseEngine("pytorch")
	require.NoError(t, err)
	assert.Equal(t, EnginePyTorch, e)
	assert.Equal(t, "pytorch", e.String())

	e, err = ParseEngine("native")
	require.NoError(t, err)
	assert.Equal(t, EngineNative, e)

	_, err = ParseEngine("tensorflow")
	assert.True(t, errors.IsBadRequest(err))

	assert.Equal(t, EngineUndefined, EngineFromString("tensorflow"))
	assert.Equal(t, EngineUndefined, EngineFromString(""))
	assert.Equal(t, "", EngineUndefined.String())
}

func TestOrigin(t *testing.T) {
	o, err := OriginFromString("author=>local")
	require.NoError(t, err)
	assert.Equal(t, OriginLocal, o.Origin.Kind)
	assert.Equal(t, "author", o.Author.String())
	assert.Equal(t, "author=>local", o.String())

	o, err = OriginFromString("=>surreal_db")
	require.NoError(t, err)
	assert.True(t, o.Author.IsEmpty())
	assert.Equal(t, OriginSurrealDb, o.Origin.Kind)
	assert.Equal(t, "=>surreal_db", o.String())

	o, err = OriginFromString("")
	require.NoError(t, err)
	assert.True(t, o.IsEmpty())
	assert.Equal(t, "", o.String())

	// 未知の出自は None として読み、テキストはそのまま保持する
	o, err = OriginFromString("me=>somewhere")
	require.NoError(t, err)
	assert.Equal(t, OriginNone, o.Origin.Kind)
	assert.Equal(t, "me=>somewhere", o.String())

	_, err = OriginFromString("no-separator")
	assert.True(t, errors.IsBadRequest(err))

	v, err := NewOriginValue("LOCAL")
	require.NoError(t, err)
	assert.Equal(t, OriginLocal, v.Kind)
	assert.Equal(t, "LOCAL", v.String())

	_, err = NewOriginValue("remote")
	assert.True(t, errors.IsBadRequest(err))
}

func TestInputDims(t *testing.T) {
	d, err := InputDimsFromString("1,2")
	require.NoError(t, err)
	assert.Equal(t, [2]int32{1, 2}, d.Dims)
	assert.Equal(t, "1,2", d.String())
	assert.Equal(t, []int{1, 2}, d.Shape())

	d, err = InputDimsFromString("")
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
	assert.Nil(t, d.Shape())
	assert.Equal(t, "", InputDims{}.String())

	for _, bad := range []string{"1", "1,2,3", "a,b", "-1,2"} {
		_, err := InputDimsFromString(bad)
		assert.True(t, errors.IsBadRequest(err), bad)
	}
}

func TestOutput(t *testing.T) {
	tests := []struct {
		in         string
		name       *string
		normaliser normalisers.Normaliser
		encoded    string
	}{
		{"", nil, nil, ""},
		{"plain", nil, nil, ""},
		{"test=>none", strPtr("test"), nil, "test=>none"},
		{"test=>linear_scaling(0,1)", strPtr("test"), normalisers.LinearScaling{Min: 0, Max: 1}, "test=>linear_scaling(0,1)"},
		{"none=>z_score(1,2)", nil, normalisers.ZScore{Mean: 1, StdDev: 2}, "none=>z_score(1,2)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			o, err := OutputFromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.name, o.Name)
			assert.True(t, normalisers.Equal(tt.normaliser, o.Normaliser))
			assert.Equal(t, tt.encoded, o.String())
		})
	}

	_, err := OutputFromString("test=>bogus(1,2)")
	assert.True(t, errors.IsBadRequest(err))

	assert.Equal(t, "price=>none", NewOutput("price").String())
}

func strPtr(s string) *string {
	return &s
}
