package activation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var scalarFuncs = map[string]func(float64) float64{
	"ReLU":                       ReLU,
	"LeakyReLU":                  LeakyReLU,
	"LeakyReLUShifted":           LeakyReLUShifted,
	"SReLU":                      SReLU,
	"SReLUShifted":               SReLUShifted,
	"ScaledELU":                  ScaledELU,
	"Logistic":                   Logistic,
	"LogisticSteep":              LogisticSteep,
	"LogisticApproximantSteep":   LogisticApproximantSteep,
	"PolynomialApproximantSteep": PolynomialApproximantSteep,
	"QuadraticSigmoid":           QuadraticSigmoid,
	"TanH":                       TanH,
	"ArcTan":                     ArcTan,
	"SoftSignSteep":              SoftSignSteep,
	"MaxMinusOne":                MaxMinusOne,
	"NullFn":                     NullFn,
	// CPPN
	"Gaussian": Gaussian,
	"Sine":     Sine,
	"Linear":   Linear,
	"Absolute": Absolute,
}

var vectorizedFuncs = map[string]func() Func{
	"ReLU":                       func() Func { return &reluVec{} },
	"LeakyReLU":                  func() Func { return &leakyReLUVec{name: "LeakyReLU"} },
	"LeakyReLUShifted":           func() Func { return &leakyReLUVec{name: "LeakyReLUShifted", offset: shiftOffset} },
	"SReLU":                      func() Func { return &sreluVec{name: "SReLU"} },
	"SReLUShifted":               func() Func { return &sreluVec{name: "SReLUShifted", offset: shiftOffset} },
	"LogisticSteep":              func() Func { return &logisticSteepVec{} },
	"PolynomialApproximantSteep": func() Func { return &polynomialApproximantSteepVec{} },
}

// canonical maps lower-cased names to registered names.
var canonical = func() map[string]string {
	m := make(map[string]string, len(scalarFuncs))
	for name := range scalarFuncs {
		m[strings.ToLower(name)] = name
	}
	return m
}()

// Names returns every registered function name, sorted.
func Names() []string {
	names := make([]string, 0, len(scalarFuncs))
	for name := range scalarFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Factory resolves activation functions by name. Each name resolves to a single instance
// for the lifetime of the factory. It is safe for concurrent use.
type Factory struct {
	EnableVectorized bool // Prefer the vectorized variant when one exists

	mu    sync.Mutex
	cache map[string]Func
}

// NewFactory creates a factory.
func NewFactory(enableVectorized bool) *Factory {
	return &Factory{
		EnableVectorized: enableVectorized,
		cache:            make(map[string]Func),
	}
}

// Get returns the function registered under name. Names are matched case-insensitively.
// Unknown names return an error wrapping ErrUnknownActivation.
func (f *Factory) Get(name string) (Func, error) {
	registered, ok := canonical[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivation, name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		f.cache = make(map[string]Func)
	}
	if fn, ok := f.cache[registered]; ok {
		return fn, nil
	}

	var fn Func
	if ctor, ok := vectorizedFuncs[registered]; ok && f.EnableVectorized {
		fn = ctor()
	} else {
		fn = &scalar{name: registered, fn: scalarFuncs[registered]}
	}
	f.cache[registered] = fn
	return fn, nil
}
