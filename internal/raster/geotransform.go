package raster

import "errors"

// Geotransform holds the six affine coefficients mapping pixel space to
// georeferenced space, in the conventional order:
//
//	x = GT[0] + col*GT[1] + row*GT[2]
//	y = GT[3] + col*GT[4] + row*GT[5]
//
// Rotation terms GT[2] and GT[4] are zero for every grid this pipeline
// consumes, but inversion handles the general case.
type Geotransform [6]float64

// ErrSingularTransform is returned when a geotransform cannot be inverted.
var ErrSingularTransform = errors.New("raster: geotransform is not invertible")

// Apply maps pixel (col, row) to georeferenced (x, y). Fractional pixel
// coordinates are allowed; (0.5, 0.5) is the center of the top-left cell.
func (gt Geotransform) Apply(col, row float64) (x, y float64) {
	x = gt[0] + col*gt[1] + row*gt[2]
	y = gt[3] + col*gt[4] + row*gt[5]
	return x, y
}

// Invert returns the inverse affine mapping, from georeferenced (x, y) back
// to pixel (col, row).
func (gt Geotransform) Invert() (Geotransform, error) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return Geotransform{}, ErrSingularTransform
	}
	inv := Geotransform{
		0, gt[5] / det, -gt[2] / det,
		0, -gt[4] / det, gt[1] / det,
	}
	inv[0] = -(gt[0]*inv[1] + gt[3]*inv[2])
	inv[3] = -(gt[0]*inv[4] + gt[3]*inv[5])
	return inv, nil
}
