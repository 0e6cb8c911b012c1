package header

import (
	"strings"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/keys"
	"github.com/surrealdb/surrealml/storage/header/normalisers"
)

// noneLiteral marks an absent half of the output field.
const noneLiteral = "none"

// Output はモデル出力の名前と、出力に適用する逆正規化ルールです。
// 両方とも未設定の場合は「出力が未設定」を意味します。
type Output struct {
	Name       *string
	Normaliser normalisers.Normaliser
}

// NewOutput returns an Output with a name and no normaliser.
func NewOutput(name string) Output {
	return Output{Name: &name}
}

// IsEmpty reports whether neither name nor normaliser is set.
func (o Output) IsEmpty() bool {
	return o.Name == nil && o.Normaliser == nil
}

func (o Output) String() string {
	if o.IsEmpty() {
		return ""
	}
	name := noneLiteral
	if o.Name != nil {
		name = *o.Name
	}
	normaliser := noneLiteral
	if o.Normaliser != nil {
		normaliser = o.Normaliser.String()
	}
	return name + keys.Separator + normaliser
}

// OutputFromString は "<name|none>=><normaliser|none>" をデコードします。
// "=>" を含まない文字列は未設定の Output になります。
func OutputFromString(data string) (Output, error) {
	if !strings.Contains(data, keys.Separator) {
		return Output{}, nil
	}
	name, rest, _ := strings.Cut(data, keys.Separator)
	rest, _, _ = strings.Cut(rest, keys.Separator)

	var out Output
	if name != noneLiteral {
		out.Name = &name
	}
	if rest != noneLiteral {
		// 正規化ルールは列名付きの断片として読み、列名部分は捨てる
		n, _, err := normalisers.FromString(data)
		if err != nil {
			return Output{}, errors.Classify(errors.BadRequest, "Output.FromString", "decoding output normaliser", err)
		}
		out.Normaliser = n
	}
	return out, nil
}
