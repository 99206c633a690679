package pricing

import (
	"errors"
	"math"
)

var (
	ErrNotBracketed  = errors.New("root not bracketed")
	ErrNoConvergence = errors.New("root finder did not converge")
)

const machEps = 2.220446049250313e-16

// Brent finds a root of f inside [a, b] using Brent's method (inverse
// quadratic interpolation with bisection safeguards).
//
// f(a) and f(b) must have opposite signs, otherwise ErrNotBracketed is
// returned. The search stops once the bracket is narrower than tol or after
// maxIter evaluations (ErrNoConvergence).
func Brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	fa, fb := f(a), f(b)
	if !finite(fa) || !finite(fb) {
		return 0, ErrNonFinite
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		return 0, ErrNotBracketed
	}

	c, fc := b, fb
	var d, e float64

	for i := 0; i < maxIter; i++ {
		if (fb > 0) == (fc > 0) {
			// c must sit on the opposite side of the root from b
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol1 := 2*machEps*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				// secant
				p = 2 * xm * s
				q = 1 - s
			} else {
				// inverse quadratic interpolation
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)

			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
		if !finite(fb) {
			return 0, ErrNonFinite
		}
	}

	return 0, ErrNoConvergence
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
