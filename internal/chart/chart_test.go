package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeverSmile666/AIR-Monitoring/internal/series"
	"github.com/NeverSmile666/AIR-Monitoring/internal/smooth"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func sampleSeries(days int) series.Series {
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	s := series.Series{
		Gas:        "NO2",
		RegionKey:  100,
		RegionName: "Western Region",
		Window:     days,
		End:        end,
	}
	for i := 0; i < days; i++ {
		s.Points = append(s.Points, series.Point{
			Date:  end.AddDate(0, 0, -(days - 1 - i)),
			Value: float64(10 + i%4),
		})
	}
	return s
}

func TestRender_ProducesPNG(t *testing.T) {
	s := sampleSeries(7)
	xs, ys := SmoothInput(s.Points)
	sx, sy := smooth.Smooth(xs, ys, 200)

	png, err := NewRenderer().Render(s, sx, sy)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestRender_SinglePoint(t *testing.T) {
	s := sampleSeries(1)
	xs, ys := SmoothInput(s.Points)
	sx, sy := smooth.Smooth(xs, ys, 200)

	png, err := NewRenderer().Render(s, sx, sy)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestSmoothInput(t *testing.T) {
	s := sampleSeries(3)
	xs, ys := SmoothInput(s.Points)
	require.Len(t, xs, 3)
	require.Len(t, ys, 3)
	assert.Equal(t, float64(s.Points[0].Date.Unix()), xs[0])
	assert.Equal(t, s.Points[0].Value, ys[0])
	assert.Less(t, xs[0], xs[2])
}

func TestTickInterval_Policy(t *testing.T) {
	tests := []struct {
		window, want int
	}{
		{7, 1},
		{15, 2},
		{30, 2},
		{90, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tickInterval(tt.window), "window %d", tt.window)
	}
}

func TestDayTicker_LabelsEveryDayInWeekWindow(t *testing.T) {
	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	ticks := dayTicker{interval: 1}.Ticks(float64(start.Unix()), float64(end.Unix()))
	require.Len(t, ticks, 7)
	assert.Equal(t, "08.24", ticks[0].Label)
	assert.Equal(t, "08.30", ticks[6].Label)
}

func TestDayTicker_EveryOtherDay(t *testing.T) {
	start := time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	ticks := dayTicker{interval: 2}.Ticks(float64(start.Unix()), float64(end.Unix()))
	require.Len(t, ticks, 8)
	assert.Equal(t, "08.16", ticks[0].Label)
	assert.Equal(t, "08.18", ticks[1].Label)
}

func TestDayTicker_InvertedRange(t *testing.T) {
	assert.Nil(t, dayTicker{interval: 1}.Ticks(100, 0))
}
