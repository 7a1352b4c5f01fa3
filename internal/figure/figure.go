// Package figure models the shapes of a drawing: geometry, paint style and
// placement. Figures are deep-copyable and compare by value so they can be
// stored in history snapshots.
package figure

import (
	"encoding/json"
	"fmt"
	"math"
)

// Figure is one shape of a drawing.
//
// Value identity covers the ID, the geometry, every style attribute and the
// transform. Selected and Instance are presentation details and are ignored
// by Equal and Hash.
type Figure struct {
	ID        string
	Instance  int
	Shape     Shape
	Style     Style
	Transform Transform
	Selected  bool
}

// Clone returns a deep copy of f.
func (f *Figure) Clone() *Figure {
	if f == nil {
		return nil
	}
	c := *f
	if f.Shape != nil {
		c.Shape = f.Shape.clone()
	}
	c.Style = f.Style.Clone()
	return &c
}

// Equal reports whether f and o describe the same figure.
func (f *Figure) Equal(o *Figure) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.ID != o.ID || f.Kind() != o.Kind() {
		return false
	}
	if (f.Shape == nil) != (o.Shape == nil) {
		return false
	}
	if f.Shape != nil && !f.Shape.equal(o.Shape) {
		return false
	}
	return f.Style.Equal(o.Style) && f.Transform.Equal(o.Transform)
}

// Hash is consistent with Equal.
func (f *Figure) Hash() uint64 {
	if f == nil {
		return 0
	}
	h := newHasher()
	h.string(f.ID)
	h.int(int64(f.Kind()))
	if f.Shape != nil {
		f.Shape.hash(h)
	}
	f.Style.hash(h)
	f.Transform.hash(h)
	return h.sum()
}

// Kind returns the kind of the figure's shape, or -1 without a shape.
func (f *Figure) Kind() Kind {
	if f.Shape == nil {
		return -1
	}
	return f.Shape.Kind()
}

// Matrix maps shape coordinates to drawing coordinates.
func (f *Figure) Matrix() Matrix2D {
	if f.Shape == nil {
		return Identity()
	}
	return f.Transform.Matrix(f.Shape.Center())
}

// Center is the transformed center of the shape.
func (f *Figure) Center() Point {
	if f.Shape == nil {
		return Point{}
	}
	return f.Matrix().Apply(f.Shape.Center())
}

// WorldBounds is the axis-aligned box of the transformed shape, the frame
// drawn around a selected figure.
func (f *Figure) WorldBounds() Rect {
	if f.Shape == nil {
		return Rect{}
	}
	return f.Matrix().ApplyRect(f.Shape.Bounds())
}

// Translate moves the figure by (dx, dy).
func (f *Figure) Translate(dx, dy float64) {
	f.Transform.TX += dx
	f.Transform.TY += dy
}

// Rotate adds deg degrees of rotation about the shape's center.
func (f *Figure) Rotate(deg float64) {
	f.Transform.R += deg
}

// Scale multiplies both scale factors by factor.
func (f *Figure) Scale(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidScale, factor)
	}
	sx, sy := f.Transform.SX*factor, f.Transform.SY*factor
	if math.IsInf(sx, 0) || math.IsInf(sy, 0) || sx == 0 || sy == 0 {
		return fmt.Errorf("%w: %g leaves the representable range", ErrInvalidScale, factor)
	}
	f.Transform.SX, f.Transform.SY = sx, sy
	return nil
}

// SetStyle replaces the style after normalizing it.
func (f *Figure) SetStyle(s Style) error {
	s = s.Clone()
	if err := s.normalize(); err != nil {
		return err
	}
	f.Style = s
	return nil
}

// SetLastPoint forwards a creation drag to the shape.
func (f *Figure) SetLastPoint(p Point) {
	if f.Shape != nil {
		f.Shape.SetLastPoint(p)
	}
}

func (f *Figure) String() string {
	return fmt.Sprintf("%s %d", f.Kind(), f.Instance)
}

type figureJSON struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Instance  int             `json:"instance"`
	Shape     json.RawMessage `json:"shape"`
	Style     Style           `json:"style"`
	Transform Transform       `json:"transform"`
	Selected  bool            `json:"selected"`
}

func (f *Figure) MarshalJSON() ([]byte, error) {
	if f.Shape == nil {
		return nil, fmt.Errorf("%w: figure %s has no shape", ErrInvalidShape, f.ID)
	}
	shape, err := json.Marshal(f.Shape)
	if err != nil {
		return nil, fmt.Errorf("encode shape: %w", err)
	}
	return json.Marshal(figureJSON{
		ID:        f.ID,
		Kind:      f.Shape.Kind(),
		Instance:  f.Instance,
		Shape:     shape,
		Style:     f.Style,
		Transform: f.Transform,
		Selected:  f.Selected,
	})
}

func (f *Figure) UnmarshalJSON(data []byte) error {
	var raw figureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	shape, err := decodeShape(raw.Kind, raw.Shape)
	if err != nil {
		return err
	}
	if err := raw.Style.normalize(); err != nil {
		return fmt.Errorf("figure %s: %w", raw.ID, err)
	}
	*f = Figure{
		ID:        raw.ID,
		Instance:  raw.Instance,
		Shape:     shape,
		Style:     raw.Style,
		Transform: raw.Transform,
		Selected:  raw.Selected,
	}
	return nil
}
