package header

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

const (
	headerFixture = "//=>a=>b=>c=>d=>e=>f//=>a=>linear_scaling(0.0,1.0)//b=>clipping(0.0,1.5)//c=>log_scaling(10.0,0.0)//e=>z_score(0.0,1.0)//=>g=>linear_scaling(0.0,1.0)//=>"
	headerEncoded = "//=>a=>b=>c=>d=>e=>f//=>a=>linear_scaling(0,1)//b=>clipping(0,1.5)//c=>log_scaling(10,0)//e=>z_score(0,1)//=>g=>linear_scaling(0,1)//=>"
	emptyHeader   = "//=>//=>//=>//=>"
)

func TestFromBytes(t *testing.T) {
	h, err := FromBytes([]byte(headerFixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, h.Keys.Store)
	assert.Len(t, h.Keys.Reference, 6)
	assert.Equal(t, 4, h.Normalisers.Len())
	require.NotNil(t, h.Output.Name)
	assert.Equal(t, "g", *h.Output.Name)
	assert.Equal(t, normalisers.LinearScaling{Min: 0, Max: 1}, h.Output.Normaliser)
	assert.True(t, h.metadataEmpty())
}

func TestToBytes(t *testing.T) {
	h, err := FromBytes([]byte(headerFixture))
	require.NoError(t, err)

	n, b := h.ToBytes()
	assert.Equal(t, headerEncoded, string(b))
	assert.Equal(t, int32(len(headerEncoded)), n)
}

func TestEmptyHeader(t *testing.T) {
	n, b := Fresh().ToBytes()
	assert.Equal(t, emptyHeader, string(b))
	assert.Equal(t, int32(16), n)

	h, err := FromBytes([]byte(emptyHeader))
	require.NoError(t, err)
	assert.Equal(t, Fresh(), h)
}

func TestFullHeaderRoundTrip(t *testing.T) {
	h := Fresh()
	require.NoError(t, h.AddColumn("squarefoot"))
	require.NoError(t, h.AddColumn("num_floors"))
	require.NoError(t, h.AddNormaliser("squarefoot", normalisers.ZScore{Mean: 1500, StdDev: 200}))
	require.NoError(t, h.AddNormaliser("num_floors", normalisers.LinearScaling{Min: 1, Max: 3}))
	require.NoError(t, h.AddOutput("house_price", normalisers.ZScore{Mean: 250000, StdDev: 30000}))
	require.NoError(t, h.AddName("house-price-prediction"))
	require.NoError(t, h.AddVersion("0.0.9"))
	require.NoError(t, h.AddDescription("predicts house prices"))
	require.NoError(t, h.AddEngine("pytorch"))
	require.NoError(t, h.AddAuthor("oliver"))
	require.NoError(t, h.AddOrigin("local"))
	require.NoError(t, h.AddInputDims(1, 2))

	_, b := h.ToBytes()
	assert.Equal(t,
		"//=>squarefoot=>num_floors//=>squarefoot=>z_score(1500,200)//num_floors=>linear_scaling(1,3)"+
			"//=>house_price=>z_score(250000,30000)//=>house-price-prediction//=>0.0.9//=>predicts house prices"+
			"//=>pytorch//=>oliver=>local//=>1,2//=>",
		string(b))

	decoded, err := FromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)

	require.NoError(t, decoded.IncrementVersion())
	assert.Equal(t, "0.1.0", decoded.Version.String())
}

func TestPartialMetadataLayout(t *testing.T) {
	// 4 フィールド目以降が一部しかなくても読める
	h, err := FromString("//=>a//=>//=>//=>my-model//=>")
	require.NoError(t, err)
	assert.Equal(t, "my-model", h.Name.String())
	assert.True(t, h.Version.IsEmpty())

	// 書き出しは常に 9 フィールド
	assert.Equal(t, "//=>a//=>//=>//=>my-model//=>//=>//=>//=>//=>//=>", h.String())
}

func TestFromBytesErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"invalid utf8", []byte{0xff, 0xfe, 0xfd}},
		{"no anchors", []byte("a=>b")},
		{"too few fields", []byte("//=>a//=>")},
		{"missing trailing anchor", []byte("//=>a//=>//=>x")},
		{"too many fields", []byte("//=>a//=>//=>//=>//=>//=>//=>//=>//=>//=>extra//=>")},
		{"bad version", []byte("//=>a//=>//=>//=>//=>1.2//=>")},
		{"unknown normaliser", []byte("//=>a//=>a=>minmax(0,1)//=>//=>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes(tt.data)
			assert.True(t, errors.IsBadRequest(err), "got %v", err)
		})
	}

	// 未登録の列への正規化ルールも BadRequest
	_, err := FromBytes([]byte("//=>a//=>z=>linear_scaling(0,1)//=>//=>"))
	assert.True(t, errors.IsBadRequest(err), "got %v", err)
}

func TestAddRejectsDelimiters(t *testing.T) {
	h := Fresh()
	require.NoError(t, h.AddColumn("a"))

	assert.True(t, errors.IsBadRequest(h.AddName("a//=>b")))
	assert.True(t, errors.IsBadRequest(h.AddDescription("x=>y")))
	assert.True(t, errors.IsBadRequest(h.AddAuthor("a//b")))
	assert.True(t, errors.IsBadRequest(h.AddOutput("out=>put", nil)))
	assert.True(t, errors.IsBadRequest(h.AddOutput("none", nil)))
	assert.True(t, errors.IsBadRequest(h.AddColumn("b=>c")))
	assert.True(t, errors.IsBadRequest(h.AddEngine("tensorflow")))
	assert.True(t, errors.IsBadRequest(h.AddOrigin("remote")))
	assert.True(t, errors.IsBadRequest(h.AddInputDims(-1, 2)))
	assert.True(t, errors.IsNotFound(h.AddNormaliser("z", normalisers.ZScore{Mean: 0, StdDev: 1})))

	// 失敗した変更はヘッダーに残らない
	assert.Equal(t, "//=>a//=>//=>//=>", h.String())
}

func TestAddOutput(t *testing.T) {
	h := Fresh()
	require.NoError(t, h.AddOutput("price", nil))
	assert.Equal(t, "price=>none", h.Output.String())

	require.NoError(t, h.AddOutput("price", normalisers.LinearScaling{Min: 0, Max: 1}))
	assert.Equal(t, "price=>linear_scaling(0,1)", h.Output.String())

	require.NoError(t, h.AddOutput("", normalisers.LinearScaling{Min: 0, Max: 1}))
	assert.Equal(t, "none=>linear_scaling(0,1)", h.Output.String())

	// 読み戻せない出力ルールは書き込まず、既存の出力も変えない
	inf := float32(math.Inf(1))
	assert.True(t, errors.IsBadRequest(h.AddOutput("y", normalisers.LinearScaling{Min: 0, Max: inf})))
	assert.Equal(t, "none=>linear_scaling(0,1)", h.Output.String())
	_, data := h.ToBytes()
	_, err := FromBytes(data)
	require.NoError(t, err)
}

func TestGetNormaliser(t *testing.T) {
	h, err := FromString(headerFixture)
	require.NoError(t, err)

	n, err := h.GetNormaliser("c")
	require.NoError(t, err)
	assert.Equal(t, normalisers.LogScaling{Base: 10, Min: 0}, n)

	n, err = h.GetNormaliser("d")
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = h.GetNormaliser("zz")
	assert.True(t, errors.IsNotFound(err))
}
