package render

import "image/color"

// Ramp is a continuous color gradient defined by ordered control points at
// positions in [0,1], linearly interpolated between adjacent stops.
type Ramp []Stop

// Stop is one ramp control point.
type Stop struct {
	Pos     float64
	R, G, B uint8
}

// Spectrum is the blue-to-red gradient used for concentration maps, with
// eight evenly spaced stops.
func Spectrum() Ramp {
	hexes := []uint32{
		0x0b1a8f, 0x0033ff, 0x0080ff, 0x00ffff,
		0x66ff00, 0xffff00, 0xff9900, 0xff0000,
	}
	ramp := make(Ramp, len(hexes))
	for i, h := range hexes {
		ramp[i] = Stop{
			Pos: float64(i) / float64(len(hexes)-1),
			R:   uint8(h >> 16),
			G:   uint8(h >> 8),
			B:   uint8(h),
		}
	}
	return ramp
}

// At returns the ramp color at position t, clamped to [0,1].
func (r Ramp) At(t float64) color.RGBA {
	if len(r) == 0 {
		return color.RGBA{A: 0xff}
	}
	if t <= r[0].Pos {
		s := r[0]
		return color.RGBA{R: s.R, G: s.G, B: s.B, A: 0xff}
	}
	if t >= r[len(r)-1].Pos {
		s := r[len(r)-1]
		return color.RGBA{R: s.R, G: s.G, B: s.B, A: 0xff}
	}
	for i := 1; i < len(r); i++ {
		if t > r[i].Pos {
			continue
		}
		lo, hi := r[i-1], r[i]
		f := (t - lo.Pos) / (hi.Pos - lo.Pos)
		return color.RGBA{
			R: lerp(lo.R, hi.R, f),
			G: lerp(lo.G, hi.G, f),
			B: lerp(lo.B, hi.B, f),
			A: 0xff,
		}
	}
	s := r[len(r)-1]
	return color.RGBA{R: s.R, G: s.G, B: s.B, A: 0xff}
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
}
