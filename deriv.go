package signals

import "math"

// Gradient computes the numerical derivative of the samples v with respect to
// the time axis t. Interior samples use central differences and the two end
// samples use one-sided differences. The step is taken from the first
// interval of t, so the axis is assumed to be uniform.
func Gradient(v, t []float64) ([]float64, error) {
	n := len(t)
	if n < 2 || len(v) != n {
		return nil, &MalformedAxisError{Len: n, Values: len(v)}
	}
	dt := t[1] - t[0]
	if dt == 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, &MalformedAxisError{Len: n, Values: n, Step: dt}
	}
	r := make([]float64, n)
	r[0] = (v[1] - v[0]) / dt
	for i := 1; i < n-1; i++ {
		r[i] = (v[i+1] - v[i-1]) / (2 * dt)
	}
	r[n-1] = (v[n-1] - v[n-2]) / dt
	return r, nil
}
