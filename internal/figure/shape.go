package figure

import (
	"encoding/json"
	"fmt"
	"math"
)

// Shape is the untransformed geometry of a figure. The concrete types are
// Circle, Ellipse, Rectangle, RoundedRectangle, Polygon, NGon and Star.
type Shape interface {
	Kind() Kind
	// Center is the rotation and scale anchor.
	Center() Point
	// Bounds is the local axis-aligned bounding box.
	Bounds() Rect
	// SetLastPoint moves the point being dragged while the shape is created.
	SetLastPoint(p Point)

	clone() Shape
	equal(other Shape) bool
	hash(h *hasher)
}

// Circle is defined by its center and radius.
type Circle struct {
	C      Point   `json:"center"`
	Radius float64 `json:"radius"`
}

func (s *Circle) Kind() Kind    { return KindCircle }
func (s *Circle) Center() Point { return s.C }

func (s *Circle) Bounds() Rect {
	return Rect{X: s.C.X - s.Radius, Y: s.C.Y - s.Radius, Width: 2 * s.Radius, Height: 2 * s.Radius}
}

func (s *Circle) SetLastPoint(p Point) {
	s.Radius = s.C.Distance(p)
}

func (s *Circle) clone() Shape {
	c := *s
	return &c
}

func (s *Circle) equal(other Shape) bool {
	o, ok := other.(*Circle)
	return ok && pointsEqual(s.C, o.C) && nearlyEqual(s.Radius, o.Radius)
}

func (s *Circle) hash(h *hasher) {
	h.point(s.C)
	h.float(s.Radius)
}

// Ellipse is defined by its center and both radii.
type Ellipse struct {
	C  Point   `json:"center"`
	RX float64 `json:"rx"`
	RY float64 `json:"ry"`
}

func (s *Ellipse) Kind() Kind    { return KindEllipse }
func (s *Ellipse) Center() Point { return s.C }

func (s *Ellipse) Bounds() Rect {
	return Rect{X: s.C.X - s.RX, Y: s.C.Y - s.RY, Width: 2 * s.RX, Height: 2 * s.RY}
}

func (s *Ellipse) SetLastPoint(p Point) {
	s.RX = math.Abs(p.X - s.C.X)
	s.RY = math.Abs(p.Y - s.C.Y)
}

func (s *Ellipse) clone() Shape {
	c := *s
	return &c
}

func (s *Ellipse) equal(other Shape) bool {
	o, ok := other.(*Ellipse)
	return ok && pointsEqual(s.C, o.C) && nearlyEqual(s.RX, o.RX) && nearlyEqual(s.RY, o.RY)
}

func (s *Ellipse) hash(h *hasher) {
	h.point(s.C)
	h.float(s.RX)
	h.float(s.RY)
}

// Rectangle spans two opposite corners. From is the corner where creation
// started; the corners are normalized for comparison.
type Rectangle struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

func (s *Rectangle) Kind() Kind    { return KindRectangle }
func (s *Rectangle) Center() Point { return s.Bounds().Center() }
func (s *Rectangle) Bounds() Rect  { return boundsOf([]Point{s.From, s.To}) }

func (s *Rectangle) SetLastPoint(p Point) {
	s.To = p
}

func (s *Rectangle) clone() Shape {
	c := *s
	return &c
}

func (s *Rectangle) equal(other Shape) bool {
	o, ok := other.(*Rectangle)
	return ok && rectsEqual(s.Bounds(), o.Bounds())
}

func (s *Rectangle) hash(h *hasher) {
	hashRect(h, s.Bounds())
}

// RoundedRectangle is a rectangle with elliptic corners.
type RoundedRectangle struct {
	Rectangle
	ArcWidth  float64 `json:"arcWidth"`
	ArcHeight float64 `json:"arcHeight"`
}

func (s *RoundedRectangle) Kind() Kind { return KindRoundedRectangle }

func (s *RoundedRectangle) clone() Shape {
	c := *s
	return &c
}

func (s *RoundedRectangle) equal(other Shape) bool {
	o, ok := other.(*RoundedRectangle)
	return ok && rectsEqual(s.Bounds(), o.Bounds()) &&
		nearlyEqual(s.ArcWidth, o.ArcWidth) && nearlyEqual(s.ArcHeight, o.ArcHeight)
}

func (s *RoundedRectangle) hash(h *hasher) {
	hashRect(h, s.Bounds())
	h.float(s.ArcWidth)
	h.float(s.ArcHeight)
}

// Polygon is a closed path through its points.
type Polygon struct {
	Points []Point `json:"points"`
}

func (s *Polygon) Kind() Kind    { return KindPolygon }
func (s *Polygon) Center() Point { return s.Bounds().Center() }
func (s *Polygon) Bounds() Rect  { return boundsOf(s.Points) }

// SetLastPoint moves the last vertex, or adds one when the polygon has a
// single point.
func (s *Polygon) SetLastPoint(p Point) {
	switch len(s.Points) {
	case 0, 1:
		s.Points = append(s.Points, p)
	default:
		s.Points[len(s.Points)-1] = p
	}
}

// AddPoint appends a vertex.
func (s *Polygon) AddPoint(p Point) {
	s.Points = append(s.Points, p)
}

func (s *Polygon) clone() Shape {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	return &Polygon{Points: pts}
}

func (s *Polygon) equal(other Shape) bool {
	o, ok := other.(*Polygon)
	if !ok || len(s.Points) != len(o.Points) {
		return false
	}
	for i := range s.Points {
		if !pointsEqual(s.Points[i], o.Points[i]) {
			return false
		}
	}
	return true
}

func (s *Polygon) hash(h *hasher) {
	h.int(int64(len(s.Points)))
	for _, p := range s.Points {
		h.point(p)
	}
}

// NGon is a regular polygon. Phase is the angle, in radians, of the first
// vertex.
type NGon struct {
	C      Point   `json:"center"`
	Radius float64 `json:"radius"`
	Sides  int     `json:"sides"`
	Phase  float64 `json:"phase"`
}

func (s *NGon) Kind() Kind    { return KindNGon }
func (s *NGon) Center() Point { return s.C }
func (s *NGon) Bounds() Rect  { return boundsOf(s.Vertices()) }

func (s *NGon) SetLastPoint(p Point) {
	s.Radius = s.C.Distance(p)
	s.Phase = math.Atan2(p.Y-s.C.Y, p.X-s.C.X)
}

// Vertices lists the corners counter-clockwise from Phase.
func (s *NGon) Vertices() []Point {
	return regularVertices(s.C, s.Radius, s.Radius, s.Sides, s.Phase)
}

func (s *NGon) clone() Shape {
	c := *s
	return &c
}

func (s *NGon) equal(other Shape) bool {
	o, ok := other.(*NGon)
	return ok && pointsEqual(s.C, o.C) && nearlyEqual(s.Radius, o.Radius) &&
		s.Sides == o.Sides && nearlyEqual(s.Phase, o.Phase)
}

func (s *NGon) hash(h *hasher) {
	h.point(s.C)
	h.float(s.Radius)
	h.int(int64(s.Sides))
	h.float(s.Phase)
}

// Star alternates Branches outer vertices with inner vertices at
// Radius*InnerRatio.
type Star struct {
	C          Point   `json:"center"`
	Radius     float64 `json:"radius"`
	InnerRatio float64 `json:"innerRatio"`
	Branches   int     `json:"branches"`
	Phase      float64 `json:"phase"`
}

func (s *Star) Kind() Kind    { return KindStar }
func (s *Star) Center() Point { return s.C }
func (s *Star) Bounds() Rect  { return boundsOf(s.Vertices()) }

func (s *Star) SetLastPoint(p Point) {
	s.Radius = s.C.Distance(p)
	s.Phase = math.Atan2(p.Y-s.C.Y, p.X-s.C.X)
}

// Vertices lists outer and inner vertices alternately.
func (s *Star) Vertices() []Point {
	return regularVertices(s.C, s.Radius, s.Radius*s.InnerRatio, 2*s.Branches, s.Phase)
}

func (s *Star) clone() Shape {
	c := *s
	return &c
}

func (s *Star) equal(other Shape) bool {
	o, ok := other.(*Star)
	return ok && pointsEqual(s.C, o.C) && nearlyEqual(s.Radius, o.Radius) &&
		nearlyEqual(s.InnerRatio, o.InnerRatio) && s.Branches == o.Branches &&
		nearlyEqual(s.Phase, o.Phase)
}

func (s *Star) hash(h *hasher) {
	h.point(s.C)
	h.float(s.Radius)
	h.float(s.InnerRatio)
	h.int(int64(s.Branches))
	h.float(s.Phase)
}

// regularVertices returns n points alternating between the even and odd
// radius around c.
func regularVertices(c Point, even, odd float64, n int, phase float64) []Point {
	if n <= 0 {
		return nil
	}
	pts := make([]Point, n)
	step := 2 * math.Pi / float64(n)
	for i := range pts {
		r := even
		if i%2 == 1 {
			r = odd
		}
		a := phase + float64(i)*step
		pts[i] = Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}

func rectsEqual(a, b Rect) bool {
	return nearlyEqual(a.X, b.X) && nearlyEqual(a.Y, b.Y) &&
		nearlyEqual(a.Width, b.Width) && nearlyEqual(a.Height, b.Height)
}

func hashRect(h *hasher, r Rect) {
	h.float(r.X)
	h.float(r.Y)
	h.float(r.Width)
	h.float(r.Height)
}

// newShape returns a degenerate shape of kind k anchored at p.
func newShape(k Kind, p Point) (Shape, error) {
	switch k {
	case KindCircle:
		return &Circle{C: p}, nil
	case KindEllipse:
		return &Ellipse{C: p}, nil
	case KindRectangle:
		return &Rectangle{From: p, To: p}, nil
	case KindRoundedRectangle:
		return &RoundedRectangle{Rectangle: Rectangle{From: p, To: p}, ArcWidth: 10, ArcHeight: 10}, nil
	case KindPolygon:
		return &Polygon{Points: []Point{p}}, nil
	case KindNGon:
		return &NGon{C: p, Sides: 6}, nil
	case KindStar:
		return &Star{C: p, Branches: 5, InnerRatio: 0.5}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
}

// decodeShape unmarshals the geometry of a figure of kind k.
func decodeShape(k Kind, data json.RawMessage) (Shape, error) {
	var s Shape
	switch k {
	case KindCircle:
		s = &Circle{}
	case KindEllipse:
		s = &Ellipse{}
	case KindRectangle:
		s = &Rectangle{}
	case KindRoundedRectangle:
		s = &RoundedRectangle{}
	case KindPolygon:
		s = &Polygon{}
	case KindNGon:
		s = &NGon{}
	case KindStar:
		s = &Star{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", k.Name(), err)
	}
	return s, nil
}
