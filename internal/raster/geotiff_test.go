package raster

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid() *Grid {
	g := &Grid{
		Width:     4,
		Height:    3,
		EPSG:      4326,
		NoData:    -9999,
		HasNoData: true,
		Transform: Geotransform{65, 0.25, 0, 41, 0, -0.5},
	}
	g.Data = []float64{
		-9999, 1.5, 2.5, 3.5,
		4.5, 5.5, 6.5, 7.5,
		0, 8.5, 9.5, 10.5,
	}
	return g
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	src := testGrid()

	data, err := Encode(src)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, src.Width, got.Width)
	assert.Equal(t, src.Height, got.Height)
	assert.Equal(t, src.EPSG, got.EPSG)
	assert.True(t, got.HasNoData)
	assert.Equal(t, src.NoData, got.NoData)
	for i := range src.Data {
		assert.InDelta(t, src.Data[i], got.Data[i], 1e-6, "cell %d", i)
	}
	for i := range src.Transform {
		assert.InDelta(t, src.Transform[i], got.Transform[i], 1e-9, "transform %d", i)
	}
}

func TestEncodeDecode_ProjectedCRS(t *testing.T) {
	src := testGrid()
	src.EPSG = 3857
	src.Transform = Geotransform{7e6, 1000, 0, 5e6, 0, -1000}

	data, err := Encode(src)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 3857, got.EPSG)
}

func TestEncode_RejectsRotatedTransform(t *testing.T) {
	src := testGrid()
	src.Transform[2] = 0.01

	_, err := Encode(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rotated")
}

func TestOpen_RoundTripThroughFile(t *testing.T) {
	src := testGrid()
	path := filepath.Join(t.TempDir(), "NO2_2026-08-25.tif")
	require.NoError(t, Write(path, src))

	got, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, src.Width, got.Width)
	assert.InDelta(t, 5.5, got.At(1, 1), 1e-6)
}

func TestDecode_BadInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong magic", []byte("MZ\x00\x00\x00\x00\x00\x00")},
		{"truncated header", []byte("II\x2a\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestDecode_TruncatedStrip(t *testing.T) {
	src := testGrid()
	data, err := Encode(src)
	require.NoError(t, err)

	// Cutting into the pixel area invalidates strip and IFD offsets alike.
	_, err = Decode(data[:16])
	assert.Error(t, err)
}

func TestEncode_NaNSurvives(t *testing.T) {
	src := testGrid()
	src.HasNoData = false
	src.NoData = 0
	src.Data[0] = math.NaN()

	data, err := Encode(src)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Data[0]))
}
