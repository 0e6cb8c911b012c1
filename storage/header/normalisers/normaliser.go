// Package normalisers は列ごとの数値正規化ルールとそのテキスト表現を提供します。
//
// ヘッダー内では 1 つの正規化ルールは "<列名>=><ラベル>(<p1>,<p2>)" と表現され、
// 複数のルールは "//" で連結されます。
package normalisers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/keys"
)

// Labels used in the header text.
const (
	LabelLinearScaling = "linear_scaling"
	LabelClipping      = "clipping"
	LabelLogScaling    = "log_scaling"
	LabelZScore        = "z_score"
)

// Normaliser は 1 つの列に適用される正規化ルールです。
// 実装は LinearScaling, Clipping, LogScaling, ZScore の 4 種類に限られます。
type Normaliser interface {
	// Normalise は生の値を正規化します。
	Normalise(x float32) float32
	// InverseNormalise は正規化された値を元のスケールに戻します。
	InverseNormalise(x float32) float32
	// Label はヘッダー内で使われるラベルを返します。
	Label() string
	// String は "<label>(<p1>,<p2>)" を返します。
	String() string

	sealed()
}

var numberPattern = regexp.MustCompile(`[-+]?\d+(\.\d+)?`)

// New はラベルと 2 つのパラメータから正規化ルールを作成します。
// 未知のラベルは BadRequest です。
func New(label string, one, two float32) (Normaliser, error) {
	switch label {
	case LabelLinearScaling:
		return LinearScaling{Min: one, Max: two}, nil
	case LabelClipping:
		return Clipping{Min: &one, Max: &two}, nil
	case LabelLogScaling:
		return LogScaling{Base: one, Min: two}, nil
	case LabelZScore:
		return ZScore{Mean: one, StdDev: two}, nil
	default:
		return nil, errors.NewBadRequest("normalisers.New", "unknown normaliser type %q", label)
	}
}

// FromString は "<列名>=><ラベル>(<p1>,<p2>)" をデコードし、正規化ルールと列名を返します。
func FromString(data string) (Normaliser, string, error) {
	const op = "normalisers.FromString"
	column, body, found := strings.Cut(data, keys.Separator)
	if !found {
		return nil, "", errors.NewBadRequest(op, "normaliser %q has no column separator", data)
	}
	// 2 つ目の "=>" 以降は無視される
	body, _, _ = strings.Cut(body, keys.Separator)

	label, _, found := strings.Cut(body, "(")
	if !found {
		return nil, "", errors.NewBadRequest(op, "normaliser %q has no parameter list", body)
	}
	params, err := extractTwoNumbers(body)
	if err != nil {
		return nil, "", err
	}
	n, err := New(label, params[0], params[1])
	if err != nil {
		return nil, "", err
	}
	return n, column, nil
}

// extractTwoNumbers returns the first two signed decimals found in data.
func extractTwoNumbers(data string) ([2]float32, error) {
	const op = "normalisers.FromString"
	var out [2]float32
	matches := numberPattern.FindAllString(data, 2)
	if len(matches) < 2 {
		return out, errors.NewBadRequest(op, "expected two numbers in %q", data)
	}
	for i, m := range matches {
		v, err := strconv.ParseFloat(m, 32)
		if err != nil {
			return out, errors.Classify(errors.BadRequest, op, "parsing "+m, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// formatFloat renders v the shortest way that round-trips as float32,
// without exponent: 0 -> "0", 1.5 -> "1.5".
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func render(label string, one, two float32) string {
	return label + "(" + formatFloat(one) + "," + formatFloat(two) + ")"
}

// Equal reports whether a and b are the same rule with the same parameters.
func Equal(a, b Normaliser) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Validate は正規化ルールがヘッダーに書き込める状態かどうかを検証します。
// NaN と ±Inf はテキストから読み戻せないので拒否します。
func Validate(n Normaliser) error {
	const op = "normalisers.Validate"
	if c, ok := n.(Clipping); ok && (c.Min == nil || c.Max == nil) {
		return errors.NewBadRequest(op, "clipping needs both min and max to be stored")
	}
	for _, p := range params(n) {
		if err := errors.CheckScalar(op, float64(p)); err != nil {
			return errors.Classify(errors.BadRequest, op, n.Label()+" parameters must be finite", err)
		}
	}
	return nil
}

func params(n Normaliser) []float32 {
	switch v := n.(type) {
	case LinearScaling:
		return []float32{v.Min, v.Max}
	case Clipping:
		return []float32{*v.Min, *v.Max}
	case LogScaling:
		return []float32{v.Base, v.Min}
	case ZScore:
		return []float32{v.Mean, v.StdDev}
	}
	return nil
}
