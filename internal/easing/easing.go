// Package easing provides the pure timing curves used by animated steps.
//
// Every function maps normalized time t in [0,1] to progress in [0,1],
// is monotonically non-decreasing, and satisfies f(0)=0, f(1)=1. The
// engine clamps t before calling, so implementations may assume the range.
package easing

import (
	"math"
	"sort"
)

// Fn maps normalized time to progress.
type Fn func(t float64) float64

// Linear is the identity curve and the default when a step names no easing.
func Linear(t float64) float64 { return t }

// EaseIn accelerates from rest (quadratic).
func EaseIn(t float64) float64 { return t * t }

// EaseOut decelerates to rest (quadratic).
func EaseOut(t float64) float64 { return t * (2 - t) }

// EaseInOut accelerates then decelerates (piecewise quadratic).
func EaseInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// Arc is a sinusoidal ease-in-out used for curved travel such as fly steps.
// The spatial arc itself is the render layer's concern; this curve only
// shapes the speed along it.
func Arc(t float64) float64 {
	return 0.5 - 0.5*math.Cos(math.Pi*t)
}

// Bezier is the classic smoothstep cubic, a fixed-control-point variant of
// a bezier timing curve.
func Bezier(t float64) float64 {
	return t * t * (3 - 2*t)
}

var byName = map[string]Fn{
	"linear":    Linear,
	"easeIn":    EaseIn,
	"easeOut":   EaseOut,
	"easeInOut": EaseInOut,
	"arc":       Arc,
	"bezier":    Bezier,
}

// Lookup resolves an easing name. The empty name resolves to Linear.
func Lookup(name string) (Fn, bool) {
	if name == "" {
		return Linear, true
	}
	fn, ok := byName[name]
	return fn, ok
}

// Names returns the known easing names, for validation error messages.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clamp bounds t to [0,1]. Shared by the executor so a finished animation
// never reports progress past 1.
func Clamp(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
