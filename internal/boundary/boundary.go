// Package boundary loads administrative region polygons from shapefiles and
// looks them up by their integer parent_cod key.
package boundary

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	shapefile "github.com/jonas-p/go-shp"

	"github.com/NeverSmile666/AIR-Monitoring/internal/crs"
)

var (
	// ErrLoad is returned when a boundary dataset cannot be opened or is not
	// a polygon layer.
	ErrLoad = errors.New("boundary: cannot load layer")
	// ErrNotFound is returned when no feature matches a lookup key.
	ErrNotFound = errors.New("boundary: key not found")
)

// keyField is the integer key uniquely identifying each region. The source
// data model assumes no duplicate keys, so lookups take the first match.
const keyField = "parent_cod"

// nameFields are the display-name candidates, tried in order. The final
// fallback is the string form of the key itself.
var nameFields = []string{"region_nam", "region_name", "name"}

// Feature is one administrative region.
type Feature struct {
	Key  int
	Name string
	Geom geom.Polygonal
}

// Catalog reads features from one shapefile layer. Every operation opens its
// own reader, so no scan position or filter state leaks between calls and a
// Catalog is safe for concurrent use.
type Catalog struct {
	path string
	srs  *crs.SRS
}

// Open validates the shapefile at path and returns a catalog over it. The
// srs is the layer's spatial reference, resolved by the caller (shapefiles
// frequently lack a .prj sidecar; see crs.ForBoundary).
func Open(path string, srs *crs.SRS) (*Catalog, error) {
	r, err := shapefile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	defer r.Close()
	switch r.GeometryType {
	case shapefile.POLYGON, shapefile.POLYGONZ, shapefile.POLYGONM:
	default:
		return nil, fmt.Errorf("%w: %s: shape type %d is not polygonal", ErrLoad, path, r.GeometryType)
	}
	return &Catalog{path: path, srs: srs}, nil
}

// SRS returns the layer's spatial reference.
func (c *Catalog) SRS() *crs.SRS { return c.srs }

// PrjPath returns the conventional location of a shapefile's .prj sidecar.
func PrjPath(shpPath string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
}

// FindByKey returns the feature whose parent_cod equals key. The display
// name falls back through the candidate name fields and finally to the
// string form of the key.
func (c *Catalog) FindByKey(key int) (Feature, error) {
	r, err := shapefile.Open(c.path)
	if err != nil {
		return Feature{}, fmt.Errorf("%w: %s: %v", ErrLoad, c.path, err)
	}
	defer r.Close()

	keyIdx, nameIdx := fieldIndexes(r.Fields())
	if keyIdx < 0 {
		return Feature{}, fmt.Errorf("%w: %s: missing %s field", ErrLoad, c.path, keyField)
	}

	for r.Next() {
		row, shape := r.Shape()
		if parseKey(r.ReadAttribute(row, keyIdx)) != key {
			continue
		}
		poly, err := toPolygon(shape)
		if err != nil {
			return Feature{}, fmt.Errorf("boundary: feature %s=%d: %w", keyField, key, err)
		}
		name := strconv.Itoa(key)
		for _, idx := range nameIdx {
			if v := strings.TrimSpace(r.ReadAttribute(row, idx)); v != "" {
				name = v
				break
			}
		}
		return Feature{Key: key, Name: name, Geom: poly}, nil
	}
	if err := r.Err(); err != nil && err != io.EOF {
		return Feature{}, fmt.Errorf("%w: %s: %v", ErrLoad, c.path, err)
	}
	return Feature{}, fmt.Errorf("%w: %s=%d in %s", ErrNotFound, keyField, key, c.path)
}

// Features returns a lazy iterator over every feature's geometry reprojected
// into target. Each call to next yields one geometry; io.EOF marks the end.
// The reader is closed when the sequence is exhausted or aborted by an error.
func (c *Catalog) Features(target *crs.SRS) (next func() (geom.Polygonal, error), err error) {
	r, err := shapefile.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, c.path, err)
	}

	done := false
	return func() (geom.Polygonal, error) {
		if done {
			return nil, io.EOF
		}
		for r.Next() {
			_, shape := r.Shape()
			poly, err := toPolygon(shape)
			if err != nil {
				// Skip degenerate shapes rather than aborting an outline pass.
				continue
			}
			g, err := crs.Reproject(poly, c.srs, target)
			if err != nil {
				done = true
				r.Close()
				return nil, err
			}
			return g.(geom.Polygonal), nil
		}
		done = true
		r.Close()
		return nil, io.EOF
	}, nil
}

func fieldIndexes(fields []shapefile.Field) (keyIdx int, nameIdx []int) {
	keyIdx = -1
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[strings.ToLower(f.String())] = i
	}
	if i, ok := byName[keyField]; ok {
		keyIdx = i
	}
	for _, n := range nameFields {
		if i, ok := byName[n]; ok {
			nameIdx = append(nameIdx, i)
		}
	}
	return keyIdx, nameIdx
}

// parseKey reads an integer attribute that DBF may render as "100" or
// "100.00". Unparseable values never match a lookup key.
func parseKey(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return -1 << 62
}

// toPolygon converts a shapefile shape into a geom polygon. Shapefile
// polygons store all rings (outer and holes) flat, delimited by part
// offsets, which maps directly onto geom.Polygon's ring slices.
func toPolygon(s shapefile.Shape) (geom.Polygonal, error) {
	var parts []int32
	var points []shapefile.Point

	switch p := s.(type) {
	case *shapefile.Polygon:
		parts, points = p.Parts, p.Points
	case *shapefile.PolygonZ:
		parts, points = p.Parts, p.Points
	case *shapefile.PolygonM:
		parts, points = p.Parts, p.Points
	default:
		return nil, fmt.Errorf("unsupported shape %T", s)
	}

	if len(points) == 0 || len(parts) == 0 {
		return nil, errors.New("empty polygon")
	}

	poly := make(geom.Polygon, 0, len(parts))
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) >= end {
			continue
		}
		ring := make([]geom.Point, 0, end-int(start))
		for _, pt := range points[start:end] {
			ring = append(ring, geom.Point{X: pt.X, Y: pt.Y})
		}
		poly = append(poly, ring)
	}
	if len(poly) == 0 {
		return nil, errors.New("empty polygon")
	}
	return poly, nil
}
