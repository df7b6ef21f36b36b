package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// GeoTIFF decoding for the gridded pollutant files this pipeline consumes:
// single-band 32-bit float samples, strip or tile layout, uncompressed or
// DEFLATE, with GDAL-style georeferencing tags (ModelPixelScale +
// ModelTiepoint, GeoKeyDirectory, GDAL_NODATA).

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113
)

const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeFloat  = 11
	typeDouble = 12
)

const (
	compressionNone       = 1
	compressionDeflate    = 8
	compressionOldDeflate = 32946
)

// GeoTIFF geokeys carrying the CRS code.
const (
	geoKeyGeographicType = 2048
	geoKeyProjectedCS    = 3072
)

// Open reads and decodes the GeoTIFF at path.
func Open(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("raster: open %s: %w", path, err)
	}
	g, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("raster: decode %s: %w", path, err)
	}
	return g, nil
}

// Decode parses a GeoTIFF from raw bytes.
func Decode(data []byte) (*Grid, error) {
	f, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if err := f.readIFD(); err != nil {
		return nil, err
	}
	return f.decodeGrid()
}

type tiffFile struct {
	data    []byte
	order   binary.ByteOrder
	ifdOff  uint32
	entries map[uint16]ifdEntry
}

type ifdEntry struct {
	dtype  uint16
	count  uint32
	valOff uint32
}

func parseHeader(data []byte) (*tiffFile, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("tiff: truncated header")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("tiff: bad byte-order marker %q", data[:2])
	}
	if magic := order.Uint16(data[2:4]); magic != 42 {
		return nil, fmt.Errorf("tiff: bad magic %d", magic)
	}
	return &tiffFile{data: data, order: order, ifdOff: order.Uint32(data[4:8])}, nil
}

func (f *tiffFile) readIFD() error {
	off := int(f.ifdOff)
	if off+2 > len(f.data) {
		return fmt.Errorf("tiff: IFD offset out of range")
	}
	n := int(f.order.Uint16(f.data[off:]))
	f.entries = make(map[uint16]ifdEntry, n)
	pos := off + 2
	for i := 0; i < n; i++ {
		if pos+12 > len(f.data) {
			return fmt.Errorf("tiff: truncated IFD entry %d", i)
		}
		tag := f.order.Uint16(f.data[pos:])
		f.entries[tag] = ifdEntry{
			dtype:  f.order.Uint16(f.data[pos+2:]),
			count:  f.order.Uint32(f.data[pos+4:]),
			valOff: f.order.Uint32(f.data[pos+8:]),
		}
		pos += 12
	}
	return nil
}

func typeSize(dtype uint16) int {
	switch dtype {
	case typeByte, typeASCII:
		return 1
	case typeShort:
		return 2
	case typeLong, typeFloat:
		return 4
	case typeDouble:
		return 8
	}
	return 1
}

// scalar returns a tag's single integer value, following the TIFF rule that
// payloads of four bytes or fewer live inline in the value/offset field.
func (f *tiffFile) scalar(tag uint16) (uint32, bool) {
	e, ok := f.entries[tag]
	if !ok {
		return 0, false
	}
	raw := f.entryBytes(e)
	if raw == nil {
		return 0, false
	}
	if e.dtype == typeShort {
		return uint32(f.order.Uint16(raw)), true
	}
	return f.order.Uint32(raw), true
}

func (f *tiffFile) scalarOr(tag uint16, def uint32) uint32 {
	if v, ok := f.scalar(tag); ok {
		return v
	}
	return def
}

// entryBytes returns the raw payload of an entry, whether inline or offset.
func (f *tiffFile) entryBytes(e ifdEntry) []byte {
	size := typeSize(e.dtype) * int(e.count)
	if size <= 4 {
		buf := make([]byte, 4)
		f.order.PutUint32(buf, e.valOff)
		return buf[:size]
	}
	off := int(e.valOff)
	if off+size > len(f.data) {
		return nil
	}
	return f.data[off : off+size]
}

func (f *tiffFile) uint32Slice(tag uint16) []uint32 {
	e, ok := f.entries[tag]
	if !ok {
		return nil
	}
	raw := f.entryBytes(e)
	if raw == nil {
		return nil
	}
	out := make([]uint32, e.count)
	for i := range out {
		if e.dtype == typeShort {
			out[i] = uint32(f.order.Uint16(raw[i*2:]))
		} else {
			out[i] = f.order.Uint32(raw[i*4:])
		}
	}
	return out
}

func (f *tiffFile) float64Slice(tag uint16) []float64 {
	e, ok := f.entries[tag]
	if !ok || e.dtype != typeDouble {
		return nil
	}
	raw := f.entryBytes(e)
	if raw == nil {
		return nil
	}
	out := make([]float64, e.count)
	for i := range out {
		out[i] = math.Float64frombits(f.order.Uint64(raw[i*8:]))
	}
	return out
}

func (f *tiffFile) asciiValue(tag uint16) string {
	e, ok := f.entries[tag]
	if !ok || e.dtype != typeASCII {
		return ""
	}
	raw := f.entryBytes(e)
	if raw == nil {
		return ""
	}
	return strings.TrimRight(string(raw), "\x00")
}

func (f *tiffFile) decodeGrid() (*Grid, error) {
	width := int(f.scalarOr(tagImageWidth, 0))
	height := int(f.scalarOr(tagImageLength, 0))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tiff: bad dimensions %dx%d", width, height)
	}
	if bits := f.scalarOr(tagBitsPerSample, 1); bits != 32 {
		return nil, fmt.Errorf("tiff: want 32 bits per sample, got %d", bits)
	}
	// Sample format 3 = IEEE float; absent defaults to unsigned int.
	if sf := f.scalarOr(tagSampleFormat, 1); sf != 3 {
		return nil, fmt.Errorf("tiff: want float sample format, got %d", sf)
	}
	compression := f.scalarOr(tagCompression, compressionNone)

	g := &Grid{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
	if nd := f.asciiValue(tagGDALNoData); nd != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(nd), 64); err == nil {
			g.NoData = v
			g.HasNoData = true
			for i := range g.Data {
				g.Data[i] = v
			}
		}
	}

	var err error
	if _, tiled := f.entries[tagTileWidth]; tiled {
		err = f.readTiles(g, compression)
	} else {
		err = f.readStrips(g, compression)
	}
	if err != nil {
		return nil, err
	}

	f.readGeoreference(g)
	return g, nil
}

func (f *tiffFile) readStrips(g *Grid, compression uint32) error {
	offsets := f.uint32Slice(tagStripOffsets)
	counts := f.uint32Slice(tagStripByteCounts)
	if len(offsets) == 0 {
		return fmt.Errorf("tiff: no strip offsets")
	}
	rowsPerStrip := int(f.scalarOr(tagRowsPerStrip, uint32(g.Height)))
	if rowsPerStrip <= 0 {
		rowsPerStrip = g.Height
	}

	row := 0
	for i, off := range offsets {
		var count uint32
		if i < len(counts) {
			count = counts[i]
		}
		raw, err := f.chunk(off, count, compression)
		if err != nil {
			return fmt.Errorf("tiff: strip %d: %w", i, err)
		}
		rows := rowsPerStrip
		if row+rows > g.Height {
			rows = g.Height - row
		}
		n := rows * g.Width
		if len(raw) < n*4 {
			n = len(raw) / 4
		}
		base := row * g.Width
		for j := 0; j < n; j++ {
			g.Data[base+j] = float64(math.Float32frombits(f.order.Uint32(raw[j*4:])))
		}
		row += rows
	}
	return nil
}

func (f *tiffFile) readTiles(g *Grid, compression uint32) error {
	tw := int(f.scalarOr(tagTileWidth, 0))
	th := int(f.scalarOr(tagTileLength, 0))
	if tw <= 0 || th <= 0 {
		return fmt.Errorf("tiff: bad tile size %dx%d", tw, th)
	}
	offsets := f.uint32Slice(tagTileOffsets)
	counts := f.uint32Slice(tagTileByteCounts)
	if len(offsets) == 0 {
		return fmt.Errorf("tiff: no tile offsets")
	}

	tilesAcross := (g.Width + tw - 1) / tw
	tilesDown := (g.Height + th - 1) / th
	for ty := 0; ty < tilesDown; ty++ {
		for tx := 0; tx < tilesAcross; tx++ {
			idx := ty*tilesAcross + tx
			if idx >= len(offsets) {
				return fmt.Errorf("tiff: missing tile %d", idx)
			}
			var count uint32
			if idx < len(counts) {
				count = counts[idx]
			}
			raw, err := f.chunk(offsets[idx], count, compression)
			if err != nil {
				return fmt.Errorf("tiff: tile (%d,%d): %w", tx, ty, err)
			}
			f.copyTile(g, raw, tx*tw, ty*th, tw, th)
		}
	}
	return nil
}

func (f *tiffFile) copyTile(g *Grid, raw []byte, startCol, startRow, tw, th int) {
	for r := 0; r < th; r++ {
		row := startRow + r
		if row >= g.Height {
			return
		}
		for c := 0; c < tw; c++ {
			col := startCol + c
			if col >= g.Width {
				continue
			}
			i := r*tw + c
			if (i+1)*4 > len(raw) {
				continue
			}
			g.Data[row*g.Width+col] = float64(math.Float32frombits(f.order.Uint32(raw[i*4:])))
		}
	}
}

func (f *tiffFile) chunk(offset, count, compression uint32) ([]byte, error) {
	off, n := int(offset), int(count)
	if off+n > len(f.data) {
		return nil, fmt.Errorf("chunk [%d:%d] outside file of %d bytes", off, off+n, len(f.data))
	}
	raw := f.data[off : off+n]
	switch compression {
	case compressionNone:
		return raw, nil
	case compressionDeflate, compressionOldDeflate:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return nil, fmt.Errorf("unsupported compression %d", compression)
}

// readGeoreference fills in the geotransform from ModelPixelScale and
// ModelTiepoint, and the CRS code from the GeoKeyDirectory. Both are
// optional; a grid without them keeps a zero transform and EPSG 0.
func (f *tiffFile) readGeoreference(g *Grid) {
	scales := f.float64Slice(tagModelPixelScale)
	ties := f.float64Slice(tagModelTiepoint)
	if len(scales) >= 2 && len(ties) >= 6 {
		// Tiepoint (i, j, k) -> (x, y, z); pixel scale is positive in the
		// file while raster rows grow downward, hence the negated dy.
		originX := ties[3] - ties[0]*scales[0]
		originY := ties[4] + ties[1]*scales[1]
		g.Transform = Geotransform{originX, scales[0], 0, originY, 0, -scales[1]}
	}

	keys := f.uint32Slice(tagGeoKeyDirectory)
	// Directory header is four shorts; entries are (keyID, location, count,
	// value) with location 0 meaning the value is stored inline.
	if len(keys) < 4 {
		return
	}
	numKeys := int(keys[3])
	for k := 0; k < numKeys && 4+k*4+3 < len(keys); k++ {
		id, loc, val := keys[4+k*4], keys[4+k*4+1], keys[4+k*4+3]
		if loc != 0 {
			continue
		}
		switch id {
		case geoKeyProjectedCS:
			g.EPSG = int(val)
		case geoKeyGeographicType:
			if g.EPSG == 0 {
				g.EPSG = int(val)
			}
		}
	}
}
