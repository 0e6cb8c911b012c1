// Package header はコンテナヘッダーのテキスト形式を実装します。
//
// ヘッダーは "//=>" で区切られたフィールドの列で、先頭と末尾に空のアンカーを持ちます:
//
//	//=><keys>//=><normalisers>//=><output>//=><name>//=><version>//=><description>//=><engine>//=><origin>//=><input_dims>//=>
//
// メタデータ (name 以降) がすべて空の場合は最初の 3 フィールドだけが書き出されます。
package header

import (
	"strings"
	"unicode/utf8"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/keys"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

// Delimiter separates header fields.
const Delimiter = "//=>"

const (
	compactFields = 3
	fullFields    = 9
)

// Header はモデル入力・出力の説明と来歴メタデータをまとめたものです。
type Header struct {
	Keys        *keys.KeyBindings
	Normalisers *normalisers.NormaliserMap
	Output      Output
	Name        StringValue
	Version     Version
	Description StringValue
	Engine      Engine
	Origin      Origin
	InputDims   InputDims
}

// Fresh は空のヘッダーを返します。
func Fresh() *Header {
	return &Header{
		Keys:        keys.Fresh(),
		Normalisers: normalisers.FreshMap(),
	}
}

// metadataEmpty reports whether the compact layout loses nothing.
func (h *Header) metadataEmpty() bool {
	return h.Name.IsEmpty() &&
		h.Version.IsEmpty() &&
		h.Description.IsEmpty() &&
		h.Engine == EngineUndefined &&
		h.Origin.IsEmpty() &&
		h.InputDims.IsEmpty()
}

// String はヘッダーをテキスト形式にエンコードします。
func (h *Header) String() string {
	fields := []string{
		"",
		h.Keys.String(),
		h.Normalisers.String(),
		h.Output.String(),
	}
	if !h.metadataEmpty() {
		fields = append(fields,
			h.Name.String(),
			h.Version.String(),
			h.Description.String(),
			h.Engine.String(),
			h.Origin.String(),
			h.InputDims.String(),
		)
	}
	fields = append(fields, "")
	return strings.Join(fields, Delimiter)
}

// ToBytes はエンコード済みヘッダーとそのバイト長を返します。
func (h *Header) ToBytes() (int32, []byte) {
	b := []byte(h.String())
	return int32(len(b)), b
}

// FromBytes は ToBytes の出力をデコードします。UTF-8 でない入力は BadRequest です。
func FromBytes(data []byte) (*Header, error) {
	if !utf8.Valid(data) {
		return nil, errors.NewBadRequest("Header.FromBytes", "header is not valid utf-8")
	}
	return FromString(string(data))
}

// FromString decodes the header text. It accepts between three and nine
// fields; missing trailing fields keep their fresh values.
func FromString(data string) (*Header, error) {
	const op = "Header.FromString"
	parts := strings.Split(data, Delimiter)
	if len(parts) < compactFields+2 || parts[0] != "" || parts[len(parts)-1] != "" {
		return nil, errors.NewBadRequest(op, "header is not framed by %q anchors", Delimiter)
	}
	fields := parts[1 : len(parts)-1]
	if len(fields) > fullFields {
		return nil, errors.NewBadRequest(op, "header has %d fields, at most %d are supported", len(fields), fullFields)
	}
	// 欠けているフィールドは空文字列として扱う
	for len(fields) < fullFields {
		fields = append(fields, "")
	}

	h := &Header{}
	var err error
	if h.Keys, err = keys.FromString(fields[0]); err != nil {
		return nil, err
	}
	if h.Normalisers, err = normalisers.MapFromString(fields[1], h.Keys); err != nil {
		// 未登録の列を参照するヘッダーは壊れたテキストとして扱う
		return nil, errors.Classify(errors.BadRequest, op, "decoding normalisers", err)
	}
	if h.Output, err = OutputFromString(fields[2]); err != nil {
		return nil, err
	}
	h.Name = StringValueFromString(fields[3])
	if h.Version, err = VersionFromString(fields[4]); err != nil {
		return nil, err
	}
	h.Description = StringValueFromString(fields[5])
	h.Engine = EngineFromString(fields[6])
	if h.Origin, err = OriginFromString(fields[7]); err != nil {
		return nil, err
	}
	if h.InputDims, err = InputDimsFromString(fields[8]); err != nil {
		return nil, err
	}
	return h, nil
}

// AddColumn は入力列を末尾に追加します。
func (h *Header) AddColumn(name string) error {
	return h.Keys.AddColumn(name)
}

// AddNormaliser は既存の列に正規化ルールを登録します。
func (h *Header) AddNormaliser(column string, n normalisers.Normaliser) error {
	return h.Normalisers.AddNormaliser(n, column, h.Keys)
}

// GetNormaliser returns the normaliser bound to column, nil if it has none,
// or NotFound if the column is not bound.
func (h *Header) GetNormaliser(column string) (normalisers.Normaliser, error) {
	return h.Normalisers.GetNormaliser(column, h.Keys)
}

// AddOutput は出力名と任意の逆正規化ルールを設定します。以前の設定は置き換えられます。
// 空の名前は「名前なし」として扱われます。
func (h *Header) AddOutput(name string, n normalisers.Normaliser) error {
	const op = "Header.AddOutput"
	if name == noneLiteral {
		return errors.NewBadRequest(op, "output name %q is reserved", name)
	}
	if err := keys.ValidateToken(op, "output name", name); err != nil {
		return err
	}
	if n != nil {
		if err := normalisers.Validate(n); err != nil {
			return err
		}
	}
	out := Output{Normaliser: n}
	if name != "" {
		out.Name = &name
	}
	h.Output = out
	return nil
}

// AddName sets the model name.
func (h *Header) AddName(name string) error {
	if err := keys.ValidateToken("Header.AddName", "name", name); err != nil {
		return err
	}
	h.Name = StringValueFromString(name)
	return nil
}

// AddDescription sets the model description.
func (h *Header) AddDescription(description string) error {
	if err := keys.ValidateToken("Header.AddDescription", "description", description); err != nil {
		return err
	}
	h.Description = StringValueFromString(description)
	return nil
}

// AddVersion parses and sets the version, e.g. "0.0.1".
func (h *Header) AddVersion(version string) error {
	v, err := VersionFromString(version)
	if err != nil {
		return err
	}
	h.Version = v
	return nil
}

// IncrementVersion bumps the patch component with decimal carry.
func (h *Header) IncrementVersion() error {
	return h.Version.Increment()
}

// AddEngine sets the engine label; unknown labels are BadRequest.
func (h *Header) AddEngine(engine string) error {
	e, err := ParseEngine(engine)
	if err != nil {
		return err
	}
	h.Engine = e
	return nil
}

// AddAuthor sets the author half of the origin field.
func (h *Header) AddAuthor(author string) error {
	if err := keys.ValidateToken("Header.AddAuthor", "author", author); err != nil {
		return err
	}
	h.Origin.Author = StringValueFromString(author)
	return nil
}

// AddOrigin sets the origin half of the origin field ("local" or "surreal_db").
func (h *Header) AddOrigin(origin string) error {
	v, err := NewOriginValue(origin)
	if err != nil {
		return err
	}
	h.Origin.Origin = v
	return nil
}

// AddInputDims sets the input tensor shape used when a caller gives none.
func (h *Header) AddInputDims(rows, cols int32) error {
	if rows < 0 || cols < 0 {
		return errors.NewBadRequest("Header.AddInputDims", "dimensions must not be negative, got %d,%d", rows, cols)
	}
	h.InputDims = InputDims{Dims: [2]int32{rows, cols}}
	return nil
}
