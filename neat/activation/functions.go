package activation

import "math"

const (
	leakyReLUA      = 0.001
	shiftOffset     = 0.5
	sreluTL         = 0.001
	sreluTR         = 0.999
	sreluA          = 0.00001
	seluAlpha       = 1.6732632423543772848170429916717
	seluScale       = 1.0507009873554804934193349852946
	steepness       = 4.9
	polyA           = 4.9
	polyB           = 0.555
	polyC           = 0.143
	quadSigmoidT    = 0.999
	quadSigmoidA    = 0.00001
	softSignOffset  = 0.2
	cppnGaussianMul = 2.5
)

// ReLU returns max(0, x).
func ReLU(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// LeakyReLU returns x for positive x and 0.001*x otherwise.
func LeakyReLU(x float64) float64 {
	if x > 0 {
		return x
	}
	return leakyReLUA * x
}

// LeakyReLUShifted is LeakyReLU with its input shifted by +0.5.
func LeakyReLUShifted(x float64) float64 {
	return LeakyReLU(x + shiftOffset)
}

// SReLU is the S-shaped rectified linear unit: linear between 0.001 and 0.999, with a
// slope of 0.00001 beyond either threshold.
func SReLU(x float64) float64 {
	switch {
	case x > sreluTL && x < sreluTR:
		return x
	case x <= sreluTL:
		return sreluTL + (x-sreluTL)*sreluA
	default:
		return sreluTR + (x-sreluTR)*sreluA
	}
}

// SReLUShifted is SReLU with its input shifted by +0.5.
func SReLUShifted(x float64) float64 {
	return SReLU(x + shiftOffset)
}

// ScaledELU is the scaled exponential linear unit.
func ScaledELU(x float64) float64 {
	if x >= 0 {
		return seluScale * x
	}
	return seluScale * (seluAlpha*math.Exp(x) - seluAlpha)
}

// Logistic returns 1/(1+exp(-x)).
func Logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// LogisticSteep returns 1/(1+exp(-4.9x)).
func LogisticSteep(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-steepness*x))
}

// LogisticApproximantSteep approximates LogisticSteep with a fast exponential
// approximation, exp(x) ~ (1 + x/256)^256.
func LogisticApproximantSteep(x float64) float64 {
	return 1.0 / (1.0 + expApprox(-steepness*x))
}

func expApprox(x float64) float64 {
	x = 1.0 + x/256.0
	if x <= 0 {
		return 0
	}
	for i := 0; i < 8; i++ {
		x *= x
	}
	return x
}

// PolynomialApproximantSteep approximates LogisticSteep with a rational polynomial.
func PolynomialApproximantSteep(x float64) float64 {
	x *= polyA
	x2 := x * x
	e := 1.0 + math.Abs(x) + x2*polyB + x2*x2*polyC
	f := e
	if x > 0 {
		f = 1.0 / e
	}
	return 1.0 / (1.0 + f)
}

// QuadraticSigmoid is a sigmoid built from two quadratic segments, with near-flat
// linear tails beyond |x| = 0.999.
func QuadraticSigmoid(x float64) float64 {
	sign := 1.0
	y := x
	if y < 0 {
		y = -y
		sign = -1.0
	}
	if y < quadSigmoidT {
		y = quadSigmoidT - (y-quadSigmoidT)*(y-quadSigmoidT)
	} else {
		y = quadSigmoidT + (y-quadSigmoidT)*quadSigmoidA
	}
	return y*sign*0.5 + 0.5
}

// TanH returns tanh(x).
func TanH(x float64) float64 {
	return math.Tanh(x)
}

// ArcTan maps atan(x) onto (0, 1).
func ArcTan(x float64) float64 {
	return (math.Atan(x) + math.Pi/2) / math.Pi
}

// SoftSignSteep is a steepened softsign mapped onto (0, 1).
func SoftSignSteep(x float64) float64 {
	return 0.5 + x/(2.0*(softSignOffset+math.Abs(x)))
}

// MaxMinusOne returns max(-1, x).
func MaxMinusOne(x float64) float64 {
	if x > -1 {
		return x
	}
	return -1
}

// NullFn always returns 0.
func NullFn(float64) float64 {
	return 0
}

// --- CPPN functions ---

// Gaussian returns exp(-(2.5x)^2).
func Gaussian(x float64) float64 {
	return math.Exp(-math.Pow(x*cppnGaussianMul, 2))
}

// Sine returns sin(2x).
func Sine(x float64) float64 {
	return math.Sin(2.0 * x)
}

// Linear returns x.
func Linear(x float64) float64 {
	return x
}

// Absolute returns |x|.
func Absolute(x float64) float64 {
	return math.Abs(x)
}
