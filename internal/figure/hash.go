package figure

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
)

// Epsilon is the grid on which coordinates and widths are compared.
// Equal and Hash both round to it, so equal figures always hash alike.
const Epsilon = 1e-6

// gridLimit bounds the grid steps that fit an int64 with room to spare.
const gridLimit = 1 << 62

// quantize maps v onto the Epsilon grid. Values too large for the grid,
// and infinities, map to their bit pattern, which lies outside the grid
// range so it never collides with a grid value.
func quantize(v float64) int64 {
	if q := v / Epsilon; math.Abs(q) < gridLimit {
		return int64(math.Round(q))
	}
	bits := int64(math.Float64bits(math.Abs(v)))
	if math.Signbit(v) {
		return -bits
	}
	return bits
}

func nearlyEqual(a, b float64) bool {
	return quantize(a) == quantize(b)
}

func pointsEqual(a, b Point) bool {
	return nearlyEqual(a.X, b.X) && nearlyEqual(a.Y, b.Y)
}

type hasher struct {
	h   hash.Hash64
	buf [8]byte
}

func newHasher() *hasher {
	return &hasher{h: fnv.New64a()}
}

func (h *hasher) int(v int64) {
	binary.LittleEndian.PutUint64(h.buf[:], uint64(v))
	h.h.Write(h.buf[:])
}

func (h *hasher) float(v float64) {
	h.int(quantize(v))
}

func (h *hasher) point(p Point) {
	h.float(p.X)
	h.float(p.Y)
}

func (h *hasher) bool(v bool) {
	if v {
		h.int(1)
	} else {
		h.int(0)
	}
}

func (h *hasher) string(s string) {
	h.int(int64(len(s)))
	h.h.Write([]byte(s))
}

func (h *hasher) sum() uint64 {
	return h.h.Sum64()
}
