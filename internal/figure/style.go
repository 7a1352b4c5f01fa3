package figure

import "math"

// Style holds the paint attributes of a figure. At least one of Fill and
// Edge is set; without an edge the line type is none and the width zero.
type Style struct {
	Fill      *Color   `json:"fill,omitempty"`
	Edge      *Color   `json:"edge,omitempty"`
	LineType  LineType `json:"lineType"`
	LineWidth float64  `json:"lineWidth"`
}

// NewStyle builds a normalized style.
func NewStyle(fill, edge *Color, lineType LineType, lineWidth float64) (Style, error) {
	s := Style{
		Fill:      copyColor(fill),
		Edge:      copyColor(edge),
		LineType:  lineType,
		LineWidth: lineWidth,
	}
	if err := s.normalize(); err != nil {
		return Style{}, err
	}
	return s, nil
}

func (s *Style) normalize() error {
	if s.Fill == nil && s.Edge == nil {
		return ErrNoPaint
	}
	if s.Edge == nil {
		s.LineType = LineNone
		s.LineWidth = 0
		return nil
	}
	if s.LineType < LineNone || s.LineType > LineDashed {
		return ErrUnknownLineType
	}
	s.LineWidth = math.Abs(s.LineWidth)
	return nil
}

// SetFill replaces the fill color. Removing the fill of a figure without an
// edge fails with ErrNoPaint.
func (s *Style) SetFill(c *Color) error {
	if c == nil && s.Edge == nil {
		return ErrNoPaint
	}
	s.Fill = copyColor(c)
	return nil
}

// SetEdge replaces the edge color. Removing the edge of a figure without a
// fill fails with ErrNoPaint.
func (s *Style) SetEdge(c *Color) error {
	if c == nil && s.Fill == nil {
		return ErrNoPaint
	}
	s.Edge = copyColor(c)
	if c == nil {
		s.LineType = LineNone
		s.LineWidth = 0
	}
	return nil
}

func (s Style) HasFill() bool { return s.Fill != nil }
func (s Style) HasEdge() bool { return s.Edge != nil }

// Clone returns a copy that shares no color pointers with s.
func (s Style) Clone() Style {
	s.Fill = copyColor(s.Fill)
	s.Edge = copyColor(s.Edge)
	return s
}

// Equal compares every attribute with its own counterpart.
func (s Style) Equal(o Style) bool {
	return colorsEqual(s.Fill, o.Fill) &&
		colorsEqual(s.Edge, o.Edge) &&
		s.LineType == o.LineType &&
		nearlyEqual(s.LineWidth, o.LineWidth)
}

func (s Style) hash(h *hasher) {
	hashColor(h, s.Fill)
	hashColor(h, s.Edge)
	h.int(int64(s.LineType))
	h.float(s.LineWidth)
}

func copyColor(c *Color) *Color {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}

func colorsEqual(a, b *Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func hashColor(h *hasher, c *Color) {
	if c == nil {
		h.int(-1)
		return
	}
	h.int(int64(c.R)<<24 | int64(c.G)<<16 | int64(c.B)<<8 | int64(c.A))
}
