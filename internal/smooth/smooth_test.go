package smooth

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmooth_Empty(t *testing.T) {
	xs, ys := Smooth(nil, nil, 100)
	assert.Nil(t, xs)
	assert.Nil(t, ys)
}

func TestSmooth_SinglePointVerbatim(t *testing.T) {
	xs, ys := Smooth([]float64{3}, []float64{7}, 100)
	assert.Equal(t, []float64{3}, xs)
	assert.Equal(t, []float64{7}, ys)
}

func TestSmooth_TwoPointsLinear(t *testing.T) {
	xs, ys := Smooth([]float64{0, 10}, []float64{0, 20}, 101)
	require.Len(t, xs, 101)

	assert.Equal(t, 0.0, xs[0])
	assert.Equal(t, 10.0, xs[100])
	assert.InDelta(t, 0.0, ys[0], 1e-9)
	assert.InDelta(t, 20.0, ys[100], 1e-9)
	assert.InDelta(t, 10.0, ys[50], 1e-9)
}

func TestSmooth_SplinePassesThroughKnots(t *testing.T) {
	knotXs := []float64{0, 1, 2, 3, 4}
	knotYs := []float64{1, 3, 2, 5, 4}

	xs, ys := Smooth(knotXs, knotYs, 401)
	require.Len(t, xs, 401)

	// A natural cubic spline interpolates: every knot value is exact at
	// its abscissa, which lands on the dense grid here.
	for i, kx := range knotXs {
		idx := sort.SearchFloat64s(xs, kx)
		require.Less(t, idx, len(xs))
		assert.InDelta(t, knotYs[i], ys[idx], 1e-6, "knot x=%v", kx)
	}
}

func TestSmooth_UnsortedInputIsSorted(t *testing.T) {
	xs, _ := Smooth([]float64{4, 0, 2}, []float64{8, 0, 4}, 50)
	require.Len(t, xs, 50)
	assert.True(t, sort.Float64sAreSorted(xs))
	assert.Equal(t, 0.0, xs[0])
	assert.Equal(t, 4.0, xs[len(xs)-1])
}

func TestSmooth_DuplicateXMergedByAveraging(t *testing.T) {
	// Two samples at x=1 average to 3 before fitting.
	xs, ys := Smooth([]float64{0, 1, 1, 2}, []float64{0, 2, 4, 6}, 201)
	require.Len(t, xs, 201)

	idx := sort.SearchFloat64s(xs, 1.0)
	require.Less(t, idx, len(xs))
	assert.InDelta(t, 3.0, ys[idx], 1e-6)
}

func TestSmooth_SmallNCoercedToTwo(t *testing.T) {
	xs, ys := Smooth([]float64{0, 10}, []float64{5, 15}, 1)
	require.Len(t, xs, 2)
	assert.Equal(t, []float64{0, 10}, xs)
	assert.InDelta(t, 5.0, ys[0], 1e-9)
	assert.InDelta(t, 15.0, ys[1], 1e-9)
}

func TestSmooth_ThreePointsQuadratic(t *testing.T) {
	// y = x^2 through three points should reproduce the parabola closely.
	xs, ys := Smooth([]float64{0, 1, 2}, []float64{0, 1, 4}, 201)
	require.Len(t, xs, 201)

	idx := sort.SearchFloat64s(xs, 1.5)
	require.Less(t, idx, len(xs))
	assert.InDelta(t, 2.25, ys[idx], 1e-6)
}

func TestSmooth_EndpointsPinned(t *testing.T) {
	xs, _ := Smooth([]float64{100, 250, 400, 900}, []float64{1, 2, 3, 4}, 77)
	assert.Equal(t, 100.0, xs[0])
	assert.Equal(t, 900.0, xs[len(xs)-1])
}
