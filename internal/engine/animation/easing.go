package animation

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/scenegraph/pkg/math"
)

// EasingMode selects which part of the curve the easing core shapes.
type EasingMode int

const (
	EaseIn EasingMode = iota
	EaseOut
	EaseInOut
)

// EasingFunction remaps a gradient in [0,1].
type EasingFunction interface {
	Ease(gradient float32) float32
}

// Easing adapts an ease-in core curve to a mode.
type Easing struct {
	Mode EasingMode
	core func(gradient float32) float32
}

// Ease implements EasingFunction.
func (e *Easing) Ease(gradient float32) float32 {
	switch e.Mode {
	case EaseIn:
		return e.core(gradient)
	case EaseOut:
		return 1 - e.core(1-gradient)
	}
	if gradient >= 0.5 {
		return (1-e.core((1-gradient)*2))*0.5 + 0.5
	}
	return e.core(gradient*2) * 0.5
}

// NewCircleEase eases along a quarter circle.
func NewCircleEase(mode EasingMode) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 {
		g = math.Clamp(g, 0, 1)
		return 1 - math32.Sqrt(1-g*g)
	}}
}

// NewBackEase overshoots by amplitude before settling.
func NewBackEase(mode EasingMode, amplitude float32) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 {
		num := math32.Max(0, amplitude)
		return g*g*g - g*num*math32.Sin(math32.Pi*g)
	}}
}

// NewCubicEase is g³.
func NewCubicEase(mode EasingMode) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 { return g * g * g }}
}

// NewQuadraticEase is g².
func NewQuadraticEase(mode EasingMode) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 { return g * g }}
}

// NewPowerEase is g raised to power.
func NewPowerEase(mode EasingMode, power float32) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 {
		return math32.Pow(g, math32.Max(0, power))
	}}
}

// NewExponentialEase grows as e^(exponent*g).
func NewExponentialEase(mode EasingMode, exponent float32) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 {
		if exponent <= 0 {
			return g
		}
		return (math32.Exp(exponent*g) - 1) / (math32.Exp(exponent) - 1)
	}}
}

// NewSineEase follows a quarter sine wave.
func NewSineEase(mode EasingMode) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 {
		return 1 - math32.Sin(0.5*math32.Pi*(1-g))
	}}
}

// NewBezierEase follows the cubic bezier through (0,0), (x1,y1), (x2,y2), (1,1).
func NewBezierEase(mode EasingMode, x1, y1, x2, y2 float32) *Easing {
	return &Easing{Mode: mode, core: func(g float32) float32 {
		return bezierInterpolate(g, x1, y1, x2, y2)
	}}
}

// bezierInterpolate solves x(t) = g with a few Newton steps and returns y(t).
func bezierInterpolate(g, x1, y1, x2, y2 float32) float32 {
	f0 := 1 - 3*x2 + 3*x1
	f1 := 3*x2 - 6*x1
	f2 := 3 * x1

	t := g
	for range 5 {
		t2 := t * t
		x := f0*t2*t + f1*t2 + f2*t
		slope := 1 / (3*f0*t2 + 2*f1*t + f2)
		t -= (x - g) * slope
		t = math.Clamp(t, 0, 1)
	}

	u := 1 - t
	return 3*u*u*t*y1 + 3*u*t*t*y2 + t*t*t
}
