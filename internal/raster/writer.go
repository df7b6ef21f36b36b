package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
)

// GeoTIFF encoding for fixture generation and round-trip tests. The output
// is the simplest form the decoder accepts: little-endian, single strip,
// uncompressed 32-bit float samples with GDAL-style georeferencing tags.

const (
	tagPhotometric     = 262
	tagSamplesPerPixel = 277
)

// Write encodes the grid and writes it to path.
func Write(path string, g *Grid) error {
	data, err := Encode(g)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Encode serializes a grid as a GeoTIFF. Only axis-aligned geotransforms
// (no rotation terms) can be represented by the ModelPixelScale tag.
func Encode(g *Grid) ([]byte, error) {
	if g.Width <= 0 || g.Height <= 0 {
		return nil, fmt.Errorf("tiff: bad dimensions %dx%d", g.Width, g.Height)
	}
	if len(g.Data) != g.Width*g.Height {
		return nil, fmt.Errorf("tiff: data length %d does not match %dx%d", len(g.Data), g.Width, g.Height)
	}
	if g.Transform[2] != 0 || g.Transform[4] != 0 {
		return nil, fmt.Errorf("tiff: rotated geotransform cannot be encoded")
	}

	order := binary.LittleEndian
	pixOff := uint32(8)
	pixLen := uint32(g.Width * g.Height * 4)

	// External payloads follow the pixel data; each stays even-aligned.
	scaleOff := pixOff + pixLen
	tieOff := scaleOff + 3*8
	keysOff := tieOff + 6*8

	var geoKeys []uint16
	next := keysOff
	if g.EPSG != 0 {
		geoKeys = geoKeyEntries(g.EPSG)
		next += uint32(len(geoKeys) * 2)
	}

	var noData []byte
	ndOff := next
	if g.HasNoData {
		noData = append([]byte(strconv.FormatFloat(g.NoData, 'g', -1, 64)), 0)
		if len(noData)%2 == 1 {
			noData = append(noData, 0)
		}
		next += uint32(len(noData))
	}
	ifdOff := next

	entries := []ifdOut{
		{tagImageWidth, typeLong, 1, uint32(g.Width), nil},
		{tagImageLength, typeLong, 1, uint32(g.Height), nil},
		{tagBitsPerSample, typeShort, 1, 32, nil},
		{tagCompression, typeShort, 1, compressionNone, nil},
		{tagPhotometric, typeShort, 1, 1, nil},
		{tagStripOffsets, typeLong, 1, pixOff, nil},
		{tagSamplesPerPixel, typeShort, 1, 1, nil},
		{tagRowsPerStrip, typeLong, 1, uint32(g.Height), nil},
		{tagStripByteCounts, typeLong, 1, pixLen, nil},
		{tagSampleFormat, typeShort, 1, 3, nil},
		{tagModelPixelScale, typeDouble, 3, scaleOff, nil},
		{tagModelTiepoint, typeDouble, 6, tieOff, nil},
	}
	if len(geoKeys) > 0 {
		entries = append(entries, ifdOut{tagGeoKeyDirectory, typeShort, uint32(len(geoKeys)), keysOff, nil})
	}
	if len(noData) > 0 {
		entries = append(entries, ifdOut{tagGDALNoData, typeASCII, uint32(len(noData)), ndOff, noData})
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	writeU16(&buf, order, 42)
	writeU32(&buf, order, ifdOff)

	for _, v := range g.Data {
		writeU32(&buf, order, math.Float32bits(float32(v)))
	}

	// ModelPixelScale is (sx, sy, sz) with sy positive; rows grow downward
	// in the raster so the transform's dy is its negation.
	for _, v := range []float64{g.Transform[1], -g.Transform[5], 0} {
		writeU64(&buf, order, math.Float64bits(v))
	}
	// ModelTiepoint anchors raster (0, 0, 0) at the transform origin.
	for _, v := range []float64{0, 0, 0, g.Transform[0], g.Transform[3], 0} {
		writeU64(&buf, order, math.Float64bits(v))
	}
	for _, k := range geoKeys {
		writeU16(&buf, order, k)
	}
	buf.Write(noData)

	writeU16(&buf, order, uint16(len(entries)))
	for _, e := range entries {
		writeU16(&buf, order, e.tag)
		writeU16(&buf, order, e.dtype)
		writeU32(&buf, order, e.count)
		if e.dtype == typeASCII && e.count <= 4 {
			var inline [4]byte
			copy(inline[:], e.raw)
			buf.Write(inline[:])
			continue
		}
		writeU32(&buf, order, e.value)
	}
	writeU32(&buf, order, 0)

	return buf.Bytes(), nil
}

type ifdOut struct {
	tag, dtype uint16
	count      uint32
	value      uint32
	raw        []byte
}

// geoKeyEntries builds a minimal GeoKeyDirectory carrying the CRS code.
// EPSG 4326 is the one geographic system this pipeline emits; everything
// else is written as a projected CS.
func geoKeyEntries(epsg int) []uint16 {
	if epsg == 4326 {
		return []uint16{
			1, 1, 0, 2,
			1024, 0, 1, 2,
			geoKeyGeographicType, 0, 1, uint16(epsg),
		}
	}
	return []uint16{
		1, 1, 0, 2,
		1024, 0, 1, 1,
		geoKeyProjectedCS, 0, 1, uint16(epsg),
	}
}

func writeU16(buf *bytes.Buffer, order binary.ByteOrder, v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, order binary.ByteOrder, v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, order binary.ByteOrder, v uint64) {
	var b [8]byte
	order.PutUint64(b[:], v)
	buf.Write(b[:])
}
