// Package crs resolves coordinate reference systems and reprojects vector
// geometry between them. Definitions are proj4 strings, which put x before y
// (easting/longitude first) regardless of the authority's native axis
// convention, so axis order is normalized by construction.
package crs

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// ErrResolution is returned when a coordinate reference system cannot be
// identified and no fallback applies.
var ErrResolution = errors.New("crs: cannot resolve coordinate reference system")

// EPSG codes with known proj4 definitions. 4326 is plain geographic
// coordinates; 3857 is the spherical web-mercator used by boundary
// shapefiles that ship without an embedded CRS.
const (
	EPSGGeographic  = 4326
	EPSGWebMercator = 3857
)

var proj4Defs = map[int]string{
	EPSGGeographic:  "+proj=longlat +datum=WGS84 +no_defs",
	EPSGWebMercator: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
}

// SRS is a resolved spatial reference: the parsed projection plus the
// canonical definition it was built from. Equality is judged on the
// definition, not on any authority name.
type SRS struct {
	def string
	sr  *proj.SR
}

// Def returns the canonical proj4 definition.
func (s *SRS) Def() string { return s.def }

// Equal reports whether two references share the same definition.
func (s *SRS) Equal(o *SRS) bool {
	return s != nil && o != nil && s.def == o.def
}

// FromEPSG resolves an EPSG code to a spatial reference.
func FromEPSG(code int) (*SRS, error) {
	def, ok := proj4Defs[code]
	if !ok {
		return nil, fmt.Errorf("%w: EPSG:%d has no known definition", ErrResolution, code)
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("crs: parse EPSG:%d: %w", code, err)
	}
	return &SRS{def: def, sr: sr}, nil
}

// ForRaster resolves a raster's spatial reference from the EPSG code embedded
// in the file. Grids without one default to geographic coordinates, the
// documented convention for the source archives.
func ForRaster(epsg int) (*SRS, error) {
	if epsg == 0 {
		epsg = EPSGGeographic
	}
	return FromEPSG(epsg)
}

// authorityRe pulls the trailing EPSG authority code from ESRI/OGC WKT,
// e.g. AUTHORITY["EPSG","3857"]. The last occurrence belongs to the whole
// CRS rather than a nested datum or unit.
var authorityRe = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)

// ForBoundary resolves a boundary layer's spatial reference from its sidecar
// .prj file. Shapefiles often omit the .prj but are known out-of-band to use
// a specific system, so an unreadable or unrecognized sidecar falls back to
// fallbackEPSG rather than failing. A fallback of 0 means none was supplied.
func ForBoundary(prjPath string, fallbackEPSG int) (*SRS, error) {
	if wkt, err := os.ReadFile(prjPath); err == nil {
		matches := authorityRe.FindAllSubmatch(wkt, -1)
		if len(matches) > 0 {
			code, err := strconv.Atoi(string(matches[len(matches)-1][1]))
			if err == nil {
				if srs, err := FromEPSG(code); err == nil {
					return srs, nil
				}
			}
		}
	}
	if fallbackEPSG == 0 {
		return nil, fmt.Errorf("%w: no .prj at %s and no fallback EPSG", ErrResolution, prjPath)
	}
	return FromEPSG(fallbackEPSG)
}

// Reproject transforms g from src into dst. When the two definitions are
// equal the geometry is returned as-is; otherwise every vertex passes
// through the forward transform. The input is never mutated: ctessum
// transforms allocate a new geometry.
func Reproject(g geom.Geom, src, dst *SRS) (geom.Geom, error) {
	if src.Equal(dst) {
		return g, nil
	}
	t, err := src.sr.NewTransform(dst.sr)
	if err != nil {
		return nil, fmt.Errorf("crs: build transform: %w", err)
	}
	out, err := g.Transform(t)
	if err != nil {
		return nil, fmt.Errorf("crs: transform geometry: %w", err)
	}
	return out, nil
}
