// Package activation provides the node activation functions used by decoded networks,
// and a Factory that resolves them by name.
package activation

import "errors"

// ErrUnknownActivation is returned by Factory.Get for names with no registered function.
var ErrUnknownActivation = errors.New("unknown activation function")

// Func is a node activation function.
type Func interface {
	// Name returns the registered name of the function.
	Name() string
	// Fn returns the activation of a single pre-activation value.
	Fn(x float64) float64
	// FnInPlace replaces each element of v with its activation.
	FnInPlace(v []float64)
	// FnRange writes the activation of src[i] to dst[i]. dst must be at least as long as src.
	FnRange(src, dst []float64)
}

// scalar adapts a plain function to Func with simple loops.
type scalar struct {
	name string
	fn   func(float64) float64
}

func (s *scalar) Name() string { return s.name }

func (s *scalar) Fn(x float64) float64 { return s.fn(x) }

func (s *scalar) FnInPlace(v []float64) {
	for i, x := range v {
		v[i] = s.fn(x)
	}
}

func (s *scalar) FnRange(src, dst []float64) {
	dst = dst[:len(src)]
	for i, x := range src {
		dst[i] = s.fn(x)
	}
}
