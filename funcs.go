package signals

import (
	"math"
	"math/big"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function of sampled signals. Built-in functions apply a scalar
// function to each sample.
type Func interface {
	// Call evaluates the function. The arguments are passed in invoc, each
	// with one value per time sample, and the function must write one result
	// per sample to r. invoc has a length for which CanCall returned true.
	// Call may modify the elements of invoc.
	Call(ctx *Context, invoc [][]float64, r []float64) error

	// CanCall returns whether the function can be called with n arguments.
	// This controls how the expression parser handles instances of this
	// function:
	//
	// 	1.	If a bracketed list of n > 0 expressions follows a function, the
	//		parser treats it as an argument list if CanCall(n). (If n is 1 and
	//		!CanCall(1) and CanCall(0), then the list is a multiplication;
	//		otherwise, it is rejected.)
	//
	// 	2.	If a bare term follows a function and CanCall(1), then the parser
	//		treats the term as an argument to the function. E.g., "exp t" is
	//		parsed as "exp(t)". (If !CanCall(1), then it is a multiplication.)
	CanCall(n int) bool
}

var globalfuncs = map[string]Func{
	"rect": Monadic(rect),
	"u":    Monadic(step),
	"sin":  Monadic(math.Sin),
	"cos":  Monadic(math.Cos),
	"tan":  Monadic(math.Tan),
	"exp":  precise{math.Exp, bigfloat.Exp, expDomain},
	"log":  precise{math.Log, bigfloat.Log, logDomain},
	"ln":   precise{math.Log, bigfloat.Log, logDomain},
	"sqrt": Monadic(math.Sqrt),
	"abs":  Monadic(math.Abs),

	// constants
	"pi": Constant(math.Pi),
	"e":  Constant(math.E),
}

// Builtins returns the names of the built-in functions and constants.
func Builtins() []string {
	return setnames(boolset(globalfuncs))
}

func boolset(m map[string]Func) map[string]bool {
	r := make(map[string]bool, len(m))
	for k, v := range m {
		if v != nil {
			r[k] = true
		}
	}
	return r
}

func rect(x float64) float64 {
	if math.Abs(x) <= 0.5 {
		return 1
	}
	return 0
}

func step(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return 0
}

func mapf(f func(float64) float64, x []float64) []float64 {
	r := make([]float64, len(x))
	for i, v := range x {
		r[i] = f(v)
	}
	return r
}

// Rect is the rectangular pulse, 1 where |x| ≤ 0.5 and 0 elsewhere.
func Rect(x []float64) []float64 { return mapf(rect, x) }

// Step is the unit step u, 1 where x ≥ 0 and 0 elsewhere.
func Step(x []float64) []float64 { return mapf(step, x) }

// Sin, Cos, and Tan are the trigonometric functions of samples in radians.
func Sin(x []float64) []float64 { return mapf(math.Sin, x) }

// Cos is the cosine of each sample.
func Cos(x []float64) []float64 { return mapf(math.Cos, x) }

// Tan is the tangent of each sample. Odd multiples of π/2 give large values,
// not errors.
func Tan(x []float64) []float64 { return mapf(math.Tan, x) }

// Exp is e raised to each sample.
func Exp(x []float64) []float64 { return mapf(math.Exp, x) }

// Sqrt is the square root of each sample. Negative samples give NaN.
func Sqrt(x []float64) []float64 { return mapf(math.Sqrt, x) }

// Abs is the absolute value of each sample.
func Abs(x []float64) []float64 { return mapf(math.Abs, x) }

// Log is the natural logarithm. Non-positive samples give NaN or -Inf.
func Log(x []float64) []float64 { return mapf(math.Log, x) }

// Ln is an alias of Log.
func Ln(x []float64) []float64 { return Log(x) }

type monadic struct {
	f func(float64) float64
}

func (m monadic) Call(ctx *Context, invoc [][]float64, r []float64) error {
	for i, x := range invoc[0] {
		r[i] = m.f(x)
	}
	return nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a function of one variable into a Func that applies it to
// each sample. Values outside f's domain should produce NaN rather than
// panicking.
func Monadic(f func(float64) float64) Func {
	return monadic{f}
}

type constant float64

func (c constant) Call(ctx *Context, invoc [][]float64, r []float64) error {
	for i := range r {
		r[i] = float64(c)
	}
	return nil
}

func (constant) CanCall(n int) bool {
	return n == 0
}

// Constant creates a niladic Func with the same value at every sample.
func Constant(v float64) Func {
	return constant(v)
}

// precise is a monadic function that is computed with bigfloat when the
// context asks for more precision than float64 carries. Samples outside
// domain always use f.
type precise struct {
	f      func(float64) float64
	big    func(z, x *big.Float) *big.Float
	domain func(float64) bool
}

func (m precise) Call(ctx *Context, invoc [][]float64, r []float64) error {
	prec := ctx.Prec()
	if prec <= DefaultPrec {
		for i, x := range invoc[0] {
			r[i] = m.f(x)
		}
		return nil
	}
	var in, out big.Float
	for i, x := range invoc[0] {
		if !m.domain(x) {
			r[i] = m.f(x)
			continue
		}
		in.SetPrec(prec).SetFloat64(x)
		out.SetPrec(prec)
		m.big(&out, &in)
		r[i], _ = out.Float64()
	}
	return nil
}

func (precise) CanCall(n int) bool {
	return n == 1
}

// expLimit bounds the exponents handed to bigfloat. Anything larger
// overflows or underflows float64 anyway.
const expLimit = 700

func expDomain(x float64) bool {
	return math.Abs(x) <= expLimit
}

func logDomain(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// pow computes x^y for each pair of samples into r.
func pow(ctx *Context, x, y, r []float64) {
	prec := ctx.Prec()
	var bx, by, out big.Float
	for i := range r {
		a, b := x[i], y[i]
		if prec <= DefaultPrec || !powDomain(a, b) {
			r[i] = math.Pow(a, b)
			continue
		}
		bx.SetPrec(prec).SetFloat64(a)
		by.SetPrec(prec).SetFloat64(b)
		out.SetPrec(prec)
		bigfloat.Pow(&out, &bx, &by)
		r[i], _ = out.Float64()
	}
}

func powDomain(x, y float64) bool {
	if !logDomain(x) || math.IsInf(y, 0) || math.IsNaN(y) {
		return false
	}
	return math.Abs(y*math.Log(x)) <= expLimit
}
