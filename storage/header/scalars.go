package header

import (
	"strconv"
	"strings"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage/header/keys"
)

// StringValue is an optional free-text header field. The empty string and
// the absent value are the same thing on the wire.
type StringValue struct {
	Value *string
}

// StringValueFromString returns an absent value for "".
func StringValueFromString(s string) StringValue {
	if s == "" {
		return StringValue{}
	}
	return StringValue{Value: &s}
}

// IsEmpty reports whether the value is absent.
func (s StringValue) IsEmpty() bool {
	return s.Value == nil
}

func (s StringValue) String() string {
	if s.Value == nil {
		return ""
	}
	return *s.Value
}

// Version はモデルのバージョン (3 つの uint8) です。0.0.0 は未設定を表します。
type Version struct {
	One   uint8
	Two   uint8
	Three uint8
}

// VersionFromString は "1.2.3" をデコードします。空文字列は未設定です。
func VersionFromString(s string) (Version, error) {
	const op = "Version.FromString"
	if s == "" {
		return Version{}, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, errors.NewBadRequest(op, "version %q must have three components", s)
	}
	var out [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Version{}, errors.Classify(errors.BadRequest, op, "invalid version component "+strconv.Quote(p), err)
		}
		out[i] = uint8(v)
	}
	return Version{One: out[0], Two: out[1], Three: out[2]}, nil
}

// IsEmpty reports whether the version is unset (0.0.0).
func (v Version) IsEmpty() bool {
	return v == Version{}
}

func (v Version) String() string {
	if v.IsEmpty() {
		return ""
	}
	return strconv.Itoa(int(v.One)) + "." + strconv.Itoa(int(v.Two)) + "." + strconv.Itoa(int(v.Three))
}

// Increment は最下位の桁を 1 増やし、10 で繰り上げます。
// 先頭の桁は繰り上げの対象外なので 9.9.9 は 10.0.0 になります。
// 下位 2 桁が 9 を超えている場合と、先頭の桁が uint8 の範囲を超える場合は
// BadRequest で、v は変更されません。
func (v *Version) Increment() error {
	const op = "Version.Increment"
	if v.Two > 9 || v.Three > 9 {
		return errors.NewBadRequest(op, "version %s has a minor or patch component above 9", v)
	}
	next := *v
	next.Three++
	if next.Three == 10 {
		next.Three = 0
		next.Two++
		if next.Two == 10 {
			next.Two = 0
			if next.One == 255 {
				return errors.NewBadRequest(op, "version %s cannot be incremented", v)
			}
			next.One++
		}
	}
	*v = next
	return nil
}

// Engine identifies the framework the model bytes came from.
type Engine int

const (
	EngineUndefined Engine = iota
	EngineNative
	EnginePyTorch
)

const (
	engineNative  = "native"
	enginePyTorch = "pytorch"
)

// ParseEngine は厳密なデコードです。未知のラベルは BadRequest です。
func ParseEngine(s string) (Engine, error) {
	switch s {
	case engineNative:
		return EngineNative, nil
	case enginePyTorch:
		return EnginePyTorch, nil
	case "":
		return EngineUndefined, nil
	default:
		return EngineUndefined, errors.NewBadRequest("ParseEngine", "unknown engine %q", s)
	}
}

// EngineFromString decodes leniently: unknown labels become EngineUndefined.
func EngineFromString(s string) Engine {
	e, err := ParseEngine(s)
	if err != nil {
		return EngineUndefined
	}
	return e
}

func (e Engine) String() string {
	switch e {
	case EngineNative:
		return engineNative
	case EnginePyTorch:
		return enginePyTorch
	default:
		return ""
	}
}

// OriginKind classifies where a model was produced.
type OriginKind int

const (
	OriginNone OriginKind = iota
	OriginLocal
	OriginSurrealDb
)

const (
	originLocal     = "local"
	originSurrealDb = "surreal_db"
)

// OriginValue keeps the kind and the exact text it was decoded from.
type OriginValue struct {
	Kind  OriginKind
	Value StringValue
}

// NewOriginValue は "local" / "surreal_db" / "" を受け付け、それ以外は BadRequest です。
// 大文字小文字は区別しません。
func NewOriginValue(s string) (OriginValue, error) {
	switch strings.ToLower(s) {
	case originLocal:
		return OriginValue{Kind: OriginLocal, Value: StringValueFromString(s)}, nil
	case originSurrealDb:
		return OriginValue{Kind: OriginSurrealDb, Value: StringValueFromString(s)}, nil
	case "":
		return OriginValue{}, nil
	default:
		return OriginValue{}, errors.NewBadRequest("NewOriginValue", "unknown origin %q", s)
	}
}

// OriginValueFromString decodes leniently: unknown text becomes OriginNone
// but is kept so the header re-encodes unchanged.
func OriginValueFromString(s string) OriginValue {
	v, err := NewOriginValue(s)
	if err != nil {
		return OriginValue{Kind: OriginNone, Value: StringValueFromString(s)}
	}
	return v
}

func (o OriginValue) String() string {
	return o.Value.String()
}

// Origin は作者と出自をまとめたものです。"author=>origin" 形式でエンコードされます。
type Origin struct {
	Origin OriginValue
	Author StringValue
}

// IsEmpty reports whether neither author nor origin is set.
func (o Origin) IsEmpty() bool {
	return o.Author.IsEmpty() && o.Origin.Value.IsEmpty()
}

func (o Origin) String() string {
	if o.IsEmpty() {
		return ""
	}
	return o.Author.String() + keys.Separator + o.Origin.String()
}

// OriginFromString は "author=>origin" をデコードします。
func OriginFromString(s string) (Origin, error) {
	if s == "" {
		return Origin{}, nil
	}
	author, origin, found := strings.Cut(s, keys.Separator)
	if !found {
		return Origin{}, errors.NewBadRequest("Origin.FromString", "origin %q has no author separator", s)
	}
	return Origin{
		Origin: OriginValueFromString(origin),
		Author: StringValueFromString(author),
	}, nil
}

// InputDims は入力テンソルの 2 次元形状です。0,0 は未設定を表します。
type InputDims struct {
	Dims [2]int32
}

// IsEmpty reports whether the dims are unset.
func (d InputDims) IsEmpty() bool {
	return d.Dims[0] == 0 && d.Dims[1] == 0
}

// Shape returns the dims as a tensor shape, or nil when unset.
func (d InputDims) Shape() []int {
	if d.IsEmpty() {
		return nil
	}
	return []int{int(d.Dims[0]), int(d.Dims[1])}
}

func (d InputDims) String() string {
	if d.IsEmpty() {
		return ""
	}
	return strconv.Itoa(int(d.Dims[0])) + "," + strconv.Itoa(int(d.Dims[1]))
}

// InputDimsFromString は "a,b" をデコードします。
func InputDimsFromString(s string) (InputDims, error) {
	const op = "InputDims.FromString"
	if s == "" {
		return InputDims{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return InputDims{}, errors.NewBadRequest(op, "input dims %q must have two components", s)
	}
	var d InputDims
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return InputDims{}, errors.Classify(errors.BadRequest, op, "invalid dimension "+strconv.Quote(p), err)
		}
		if v < 0 {
			return InputDims{}, errors.NewBadRequest(op, "dimension %d is negative", v)
		}
		d.Dims[i] = int32(v)
	}
	return d, nil
}
