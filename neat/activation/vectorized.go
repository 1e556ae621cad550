package activation

import "math"

// Vectorized variants process slices four elements per iteration with the element math
// written out inline. Results match their scalar counterparts to within rounding; the
// branch-free forms may differ in the last bits or in the sign of a zero result.

type reluVec struct{}

func (reluVec) Name() string         { return "ReLU" }
func (reluVec) Fn(x float64) float64 { return ReLU(x) }
func (f reluVec) FnInPlace(v []float64) {
	f.FnRange(v, v)
}

func (reluVec) FnRange(src, dst []float64) {
	dst = dst[:len(src)]
	i := 0
	for ; i+4 <= len(src); i += 4 {
		s := src[i : i+4 : i+4]
		d := dst[i : i+4 : i+4]
		d[0] = ReLU(s[0])
		d[1] = ReLU(s[1])
		d[2] = ReLU(s[2])
		d[3] = ReLU(s[3])
	}
	for ; i < len(src); i++ {
		dst[i] = ReLU(src[i])
	}
}

type leakyReLUVec struct {
	name   string
	offset float64
}

func (f leakyReLUVec) Name() string         { return f.name }
func (f leakyReLUVec) Fn(x float64) float64 { return LeakyReLU(x + f.offset) }
func (f leakyReLUVec) FnInPlace(v []float64) {
	f.FnRange(v, v)
}

func (f leakyReLUVec) FnRange(src, dst []float64) {
	dst = dst[:len(src)]
	off := f.offset
	i := 0
	for ; i+4 <= len(src); i += 4 {
		s := src[i : i+4 : i+4]
		d := dst[i : i+4 : i+4]
		x0, x1, x2, x3 := s[0]+off, s[1]+off, s[2]+off, s[3]+off
		d[0] = math.Max(x0, leakyReLUA*x0)
		d[1] = math.Max(x1, leakyReLUA*x1)
		d[2] = math.Max(x2, leakyReLUA*x2)
		d[3] = math.Max(x3, leakyReLUA*x3)
	}
	for ; i < len(src); i++ {
		dst[i] = LeakyReLU(src[i] + off)
	}
}

type sreluVec struct {
	name   string
	offset float64
}

func (f sreluVec) Name() string         { return f.name }
func (f sreluVec) Fn(x float64) float64 { return SReLU(x + f.offset) }
func (f sreluVec) FnInPlace(v []float64) {
	f.FnRange(v, v)
}

// sreluLane is SReLU as a clamp plus two tail slopes, which has no data-dependent branch.
func sreluLane(x float64) float64 {
	inner := math.Min(math.Max(x, sreluTL), sreluTR)
	return inner + (math.Min(x, sreluTL)-sreluTL)*sreluA + (math.Max(x, sreluTR)-sreluTR)*sreluA
}

func (f sreluVec) FnRange(src, dst []float64) {
	dst = dst[:len(src)]
	off := f.offset
	i := 0
	for ; i+4 <= len(src); i += 4 {
		s := src[i : i+4 : i+4]
		d := dst[i : i+4 : i+4]
		d[0] = sreluLane(s[0] + off)
		d[1] = sreluLane(s[1] + off)
		d[2] = sreluLane(s[2] + off)
		d[3] = sreluLane(s[3] + off)
	}
	for ; i < len(src); i++ {
		dst[i] = sreluLane(src[i] + off)
	}
}

type logisticSteepVec struct{}

func (logisticSteepVec) Name() string         { return "LogisticSteep" }
func (logisticSteepVec) Fn(x float64) float64 { return LogisticSteep(x) }
func (f logisticSteepVec) FnInPlace(v []float64) {
	f.FnRange(v, v)
}

func (logisticSteepVec) FnRange(src, dst []float64) {
	dst = dst[:len(src)]
	i := 0
	for ; i+4 <= len(src); i += 4 {
		s := src[i : i+4 : i+4]
		d := dst[i : i+4 : i+4]
		e0 := math.Exp(-steepness * s[0])
		e1 := math.Exp(-steepness * s[1])
		e2 := math.Exp(-steepness * s[2])
		e3 := math.Exp(-steepness * s[3])
		d[0] = 1.0 / (1.0 + e0)
		d[1] = 1.0 / (1.0 + e1)
		d[2] = 1.0 / (1.0 + e2)
		d[3] = 1.0 / (1.0 + e3)
	}
	for ; i < len(src); i++ {
		dst[i] = LogisticSteep(src[i])
	}
}

type polynomialApproximantSteepVec struct{}

func (polynomialApproximantSteepVec) Name() string { return "PolynomialApproximantSteep" }
func (polynomialApproximantSteepVec) Fn(x float64) float64 {
	return PolynomialApproximantSteep(x)
}
func (f polynomialApproximantSteepVec) FnInPlace(v []float64) {
	f.FnRange(v, v)
}

func (polynomialApproximantSteepVec) FnRange(src, dst []float64) {
	dst = dst[:len(src)]
	i := 0
	for ; i+4 <= len(src); i += 4 {
		s := src[i : i+4 : i+4]
		d := dst[i : i+4 : i+4]
		d[0] = PolynomialApproximantSteep(s[0])
		d[1] = PolynomialApproximantSteep(s[1])
		d[2] = PolynomialApproximantSteep(s[2])
		d[3] = PolynomialApproximantSteep(s[3])
	}
	for ; i < len(src); i++ {
		dst[i] = PolynomialApproximantSteep(src[i])
	}
}
