package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeotransform_Apply(t *testing.T) {
	gt := Geotransform{65, 0.1, 0, 41, 0, -0.05}

	x, y := gt.Apply(0, 0)
	assert.Equal(t, 65.0, x)
	assert.Equal(t, 41.0, y)

	x, y = gt.Apply(10, 20)
	assert.InDelta(t, 66.0, x, 1e-12)
	assert.InDelta(t, 40.0, y, 1e-12)
}

func TestGeotransform_InvertRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		gt   Geotransform
	}{
		{"axis aligned", Geotransform{65, 0.1, 0, 41, 0, -0.05}},
		{"rotated", Geotransform{100, 2, 0.5, 200, -0.25, -3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := tt.gt.Invert()
			require.NoError(t, err)

			for _, p := range [][2]float64{{0, 0}, {3.5, 7.25}, {119, 79}} {
				x, y := tt.gt.Apply(p[0], p[1])
				col, row := inv.Apply(x, y)
				assert.InDelta(t, p[0], col, 1e-9)
				assert.InDelta(t, p[1], row, 1e-9)
			}
		})
	}
}

func TestGeotransform_InvertSingular(t *testing.T) {
	gt := Geotransform{0, 0, 0, 0, 0, 0}
	_, err := gt.Invert()
	assert.ErrorIs(t, err, ErrSingularTransform)
}

func TestGrid_CellCenter(t *testing.T) {
	g := &Grid{
		Width: 10, Height: 10,
		Transform: Geotransform{65, 0.1, 0, 41, 0, -0.05},
	}
	x, y := g.CellCenter(0, 0)
	assert.InDelta(t, 65.05, x, 1e-12)
	assert.InDelta(t, 40.975, y, 1e-12)
}

func TestGrid_IsNoData(t *testing.T) {
	g := &Grid{NoData: -9999, HasNoData: true}
	assert.True(t, g.IsNoData(-9999))
	assert.False(t, g.IsNoData(0))

	none := &Grid{}
	assert.False(t, none.IsNoData(-9999))
}
