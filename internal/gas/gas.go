// Package gas holds the pollutant reference table: display units and
// unit-conversion factors. Downstream chart axis labels and legend ticks
// assume the converted unit, so the table is published contract, not an
// implementation detail. All values are immutable; the package is safe to
// share across concurrent workers.
package gas

import "strings"

// Spec describes one pollutant's display conventions.
type Spec struct {
	// Unit is the display unit used for chart axis labels after conversion.
	Unit string
	// Scale multiplies the raw zonal mean to produce the display value.
	// CH4 column totals arrive in ppb and are reported in ppm; the column
	// gases arrive in mol/m² and are reported in mol/km².
	Scale float64
	// LegendScale reconverts raw raster values for map legend tick labels.
	LegendScale float64
}

// table is keyed by upper-case pollutant code.
var table = map[string]Spec{
	"CH4":   {Unit: "ppm", Scale: 1.0 / 1000.0, LegendScale: 1.0 / 1000.0},
	"CO":    {Unit: "mol/km²", Scale: 1, LegendScale: 1},
	"NO2":   {Unit: "mol/km²", Scale: 1e6, LegendScale: 1},
	"SO2":   {Unit: "mol/km²", Scale: 1e6, LegendScale: 1},
	"HCHO":  {Unit: "mol/km²", Scale: 1e6, LegendScale: 1},
	"O3":    {Unit: "mol/m²", Scale: 1, LegendScale: 1},
	"AERAI": {Unit: "unitless", Scale: 1, LegendScale: 1},
}

// Lookup returns the Spec for code. Unknown codes get a generic unit and
// identity scales so an unrecognized pollutant still renders.
func Lookup(code string) Spec {
	if s, ok := table[strings.ToUpper(code)]; ok {
		return s
	}
	return Spec{Unit: "unit", Scale: 1, LegendScale: 1}
}

// Known reports whether code is in the reference table.
func Known(code string) bool {
	_, ok := table[strings.ToUpper(code)]
	return ok
}
