package normalisers

import (
	"math"

	"github.com/surrealdb/surrealml/pkg/errors"
)

// LinearScaling は [Min, Max] を [0, 1] に線形変換します。
type LinearScaling struct {
	Min float32
	Max float32
}

func (l LinearScaling) Normalise(x float32) float32 {
	return (x - l.Min) / (l.Max - l.Min)
}

func (l LinearScaling) InverseNormalise(x float32) float32 {
	return x*(l.Max-l.Min) + l.Min
}

func (l LinearScaling) Label() string  { return LabelLinearScaling }
func (l LinearScaling) String() string { return render(LabelLinearScaling, l.Min, l.Max) }
func (LinearScaling) sealed()          {}

// Clipping は値を [Min, Max] に丸めます。nil の境界は適用されません。
// 逆変換は恒等写像です。
type Clipping struct {
	Min *float32
	Max *float32
}

// NewClipping は両方の境界を持つ Clipping を返します。
func NewClipping(min, max float32) Clipping {
	return Clipping{Min: &min, Max: &max}
}

func (c Clipping) Normalise(x float32) float32 {
	if c.Min != nil && c.Max != nil {
		return errors.ClipValue(x, *c.Min, *c.Max)
	}
	if c.Min != nil && x < *c.Min {
		return *c.Min
	}
	if c.Max != nil && x > *c.Max {
		return *c.Max
	}
	return x
}

func (c Clipping) InverseNormalise(x float32) float32 {
	return x
}

func (c Clipping) Label() string { return LabelClipping }

func (c Clipping) String() string {
	if c.Min == nil || c.Max == nil {
		// Validate rejects this before it reaches a header.
		return LabelClipping + "(" + optional(c.Min) + "," + optional(c.Max) + ")"
	}
	return render(LabelClipping, *c.Min, *c.Max)
}

func (Clipping) sealed() {}

func optional(v *float32) string {
	if v == nil {
		return "none"
	}
	return formatFloat(*v)
}

// LogScaling は log_Base(x + Min) を計算します。
type LogScaling struct {
	Base float32
	Min  float32
}

func (l LogScaling) Normalise(x float32) float32 {
	return float32(math.Log(float64(x+l.Min)) / math.Log(float64(l.Base)))
}

func (l LogScaling) InverseNormalise(x float32) float32 {
	return float32(math.Pow(float64(l.Base), float64(x))) - l.Min
}

func (l LogScaling) Label() string  { return LabelLogScaling }
func (l LogScaling) String() string { return render(LabelLogScaling, l.Base, l.Min) }
func (LogScaling) sealed()          {}

// ZScore は (x - Mean) / StdDev を計算します。
type ZScore struct {
	Mean   float32
	StdDev float32
}

func (z ZScore) Normalise(x float32) float32 {
	return (x - z.Mean) / z.StdDev
}

func (z ZScore) InverseNormalise(x float32) float32 {
	return x*z.StdDev + z.Mean
}

func (z ZScore) Label() string  { return LabelZScore }
func (z ZScore) String() string { return render(LabelZScore, z.Mean, z.StdDev) }
func (ZScore) sealed()          {}
