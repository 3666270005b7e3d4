// Package signals evaluates piecewise time-domain signal expressions over
// sampled time axes.
//
// The syntax is ordinary infix math over the bound variable t, with the
// rectangular pulse rect, the unit step u, and the usual elementary
// functions: "(t+2)*rect(t+3/2) - t*rect(t+1/2) + u(t-1)". Juxtaposition
// multiplies, so "2 t" is "2*t". Derivatives are written d(expr)/d(t) and
// computed numerically from the samples.
//
// Named functions are stored in a Registry and called with an arbitrary
// linear transformation of the time axis, e.g. "x(2*t+1)" or "x(-t)". An
// Evaluator resolves those calls, derivatives, and the canonical forms of
// rect arguments, then evaluates the result element-wise.
package signals
