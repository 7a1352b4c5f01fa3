package figure

import "math"

// Transform places a figure: rotation (degrees) and scale about the shape's
// own center, followed by a translation.
type Transform struct {
	TX float64 `json:"tx"`
	TY float64 `json:"ty"`
	R  float64 `json:"r"`
	SX float64 `json:"sx"`
	SY float64 `json:"sy"`
}

// Finite reports whether every component is a finite number.
func (t Transform) Finite() bool {
	for _, v := range []float64{t.TX, t.TY, t.R, t.SX, t.SY} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// IdentityTransform leaves a figure where its shape puts it.
func IdentityTransform() Transform {
	return Transform{SX: 1, SY: 1}
}

// Matrix returns the affine matrix of t for a shape centered on c.
func (t Transform) Matrix(c Point) Matrix2D {
	return anchoredMatrix(t.TX, t.TY, t.SX, t.SY, t.R, c.X, c.Y)
}

func (t Transform) Equal(o Transform) bool {
	return nearlyEqual(t.TX, o.TX) &&
		nearlyEqual(t.TY, o.TY) &&
		nearlyEqual(t.R, o.R) &&
		nearlyEqual(t.SX, o.SX) &&
		nearlyEqual(t.SY, o.SY)
}

func (t Transform) hash(h *hasher) {
	h.float(t.TX)
	h.float(t.TY)
	h.float(t.R)
	h.float(t.SX)
	h.float(t.SY)
}
