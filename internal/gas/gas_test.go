package gas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup_KnownGases(t *testing.T) {
	tests := []struct {
		code  string
		unit  string
		scale float64
	}{
		{"CH4", "ppm", 1.0 / 1000.0},
		{"CO", "mol/km²", 1},
		{"NO2", "mol/km²", 1e6},
		{"SO2", "mol/km²", 1e6},
		{"HCHO", "mol/km²", 1e6},
		{"O3", "mol/m²", 1},
		{"AERAI", "unitless", 1},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			s := Lookup(tt.code)
			assert.Equal(t, tt.unit, s.Unit)
			assert.Equal(t, tt.scale, s.Scale)
		})
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Lookup("CH4"), Lookup("ch4"))
	assert.Equal(t, Lookup("NO2"), Lookup("no2"))
}

func TestLookup_UnknownFallback(t *testing.T) {
	s := Lookup("XYZ")
	assert.Equal(t, "unit", s.Unit)
	assert.Equal(t, 1.0, s.Scale)
	assert.Equal(t, 1.0, s.LegendScale)
}

func TestLookup_LegendScale(t *testing.T) {
	// CH4 legend ticks reconvert raw raster values; the column gases keep
	// raw values on the legend even though the series statistic is scaled.
	assert.Equal(t, 1.0/1000.0, Lookup("CH4").LegendScale)
	assert.Equal(t, 1.0, Lookup("NO2").LegendScale)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("CO"))
	assert.True(t, Known("aerai"))
	assert.False(t, Known("PM25"))
}
