// Package smooth fits a dense display curve through sparse daily series
// points. The fit degrades through an ordered chain of strategies (cubic
// spline, then a polynomial of matching degree, then piecewise linear), so
// smoothing never fails: the worst case is the unsmoothed linear
// interpolation of the input.
package smooth

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// evaluator produces curve values over the fitted x range.
type evaluator func(x float64) float64

// fitter attempts one smoothing strategy over prepared points.
type fitter func(xs, ys []float64) (evaluator, error)

// Smooth resamples the series (xs, ys) to n output points. Points are
// sorted by x and exact-duplicate x values are merged by averaging their y
// values first. Point counts choose the base strategy: one point
// is returned verbatim, two interpolate linearly, three fit a quadratic,
// four or more fit a natural cubic spline.
func Smooth(xs, ys []float64, n int) (outXs, outYs []float64) {
	xs, ys = prepare(xs, ys)
	if len(xs) == 0 {
		return nil, nil
	}
	if len(xs) == 1 {
		return []float64{xs[0]}, []float64{ys[0]}
	}
	if n < 2 {
		n = 2
	}

	eval := fitFirst(xs, ys, strategiesFor(len(xs)))
	return resample(eval, xs[0], xs[len(xs)-1], n)
}

// strategiesFor returns the fallback chain for a point count ≥ 2.
func strategiesFor(count int) []fitter {
	switch {
	case count >= 4:
		return []fitter{fitSpline, polyFitter(3), fitLinear}
	case count == 3:
		return []fitter{polyFitter(2), fitLinear}
	default:
		return []fitter{fitLinear}
	}
}

// fitFirst tries each strategy in order and keeps the first that fits.
// fitLinear ends every chain and cannot fail on ≥2 distinct points, so the
// final fallback is always available.
func fitFirst(xs, ys []float64, chain []fitter) evaluator {
	for _, fit := range chain {
		if eval, err := fit(xs, ys); err == nil {
			return eval
		}
	}
	// Unreachable with a well-formed chain; hold the series flat if not.
	return func(float64) float64 { return ys[0] }
}

func fitSpline(xs, ys []float64) (evaluator, error) {
	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, err
	}
	return spline.Predict, nil
}

func fitLinear(xs, ys []float64) (evaluator, error) {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	return pl.Predict, nil
}

// polyFitter builds a least-squares polynomial fit of the given degree
// (capped below the point count). The x domain is normalized to [0,1]
// before building the Vandermonde matrix to keep it well conditioned for
// date-scale abscissae.
func polyFitter(degree int) fitter {
	return func(xs, ys []float64) (evaluator, error) {
		if degree >= len(xs) {
			degree = len(xs) - 1
		}
		if degree < 1 {
			return nil, errors.New("smooth: not enough points for polynomial fit")
		}
		x0, span := xs[0], xs[len(xs)-1]-xs[0]
		if span == 0 {
			return nil, errors.New("smooth: zero x span")
		}

		a := mat.NewDense(len(xs), degree+1, nil)
		b := mat.NewVecDense(len(xs), nil)
		for i, x := range xs {
			t := (x - x0) / span
			p := 1.0
			for j := 0; j <= degree; j++ {
				a.Set(i, j, p)
				p *= t
			}
			b.SetVec(i, ys[i])
		}

		var qr mat.QR
		qr.Factorize(a)
		coef := mat.NewDense(degree+1, 1, nil)
		if err := qr.SolveTo(coef, false, b); err != nil {
			return nil, err
		}

		return func(x float64) float64 {
			t := (x - x0) / span
			v, p := 0.0, 1.0
			for j := 0; j <= degree; j++ {
				v += coef.At(j, 0) * p
				p *= t
			}
			return v
		}, nil
	}
}

// prepare sorts by x and merges exact-duplicate x values by averaging y.
func prepare(xs, ys []float64) ([]float64, []float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n == 0 {
		return nil, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	outX := make([]float64, 0, n)
	outY := make([]float64, 0, n)
	for i := 0; i < n; {
		x := xs[idx[i]]
		sum, count := 0.0, 0
		for i < n && xs[idx[i]] == x {
			sum += ys[idx[i]]
			count++
			i++
		}
		outX = append(outX, x)
		outY = append(outY, sum/float64(count))
	}
	return outX, outY
}

// resample evaluates the curve at n evenly spaced points over [x0, x1],
// pinning the last point to x1 exactly.
func resample(eval evaluator, x0, x1 float64, n int) ([]float64, []float64) {
	outXs := make([]float64, n)
	outYs := make([]float64, n)
	step := (x1 - x0) / float64(n-1)
	for i := 0; i < n; i++ {
		x := x0 + float64(i)*step
		if i == n-1 {
			x = x1
		}
		outXs[i] = x
		outYs[i] = eval(x)
	}
	return outXs, outYs
}
