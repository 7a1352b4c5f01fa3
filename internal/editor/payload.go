package editor

import (
	"fmt"
	"math"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/figure"
	"github.com/tidwall/gjson"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidPayload}, args...)...)
}

// number reads an optional numeric field.
func number(p gjson.Result, path string) (float64, bool, error) {
	r := p.Get(path)
	if !r.Exists() {
		return 0, false, nil
	}
	if r.Type != gjson.Number {
		return 0, false, invalid("%s must be a number", path)
	}
	if !finite(r.Num) {
		return 0, false, invalid("%s must be finite", path)
	}
	return r.Num, true, nil
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// point reads an optional {"x": .., "y": ..} field. An empty path reads x
// and y from p itself.
func point(p gjson.Result, path string) (figure.Point, bool, error) {
	r := p
	if path != "" {
		r = p.Get(path)
		if !r.Exists() {
			return figure.Point{}, false, nil
		}
	}
	x, y := r.Get("x"), r.Get("y")
	if !x.Exists() && !y.Exists() {
		return figure.Point{}, false, nil
	}
	if x.Type != gjson.Number || y.Type != gjson.Number {
		return figure.Point{}, false, invalid("%s needs numeric x and y", orPayload(path))
	}
	if !finite(x.Num) || !finite(y.Num) {
		return figure.Point{}, false, invalid("%s needs finite x and y", orPayload(path))
	}
	return figure.Point{X: x.Num, Y: y.Num}, true, nil
}

func requirePoint(p gjson.Result, path string) (figure.Point, error) {
	pt, ok, err := point(p, path)
	if err != nil {
		return pt, err
	}
	if !ok {
		return pt, invalid("%s needs x and y", orPayload(path))
	}
	return pt, nil
}

func orPayload(path string) string {
	if path == "" {
		return "payload"
	}
	return path
}

// ids reads an optional array of figure IDs.
func ids(p gjson.Result) ([]string, bool, error) {
	r := p.Get("ids")
	if !r.Exists() {
		return nil, false, nil
	}
	if !r.IsArray() {
		return nil, false, invalid("ids must be an array")
	}
	var out []string
	for _, v := range r.Array() {
		if v.Type != gjson.String {
			return nil, false, invalid("ids must hold strings")
		}
		out = append(out, v.Str)
	}
	return out, true, nil
}

// kind reads an optional figure kind.
func kind(p gjson.Result) (figure.Kind, bool, error) {
	r := p.Get("kind")
	if !r.Exists() {
		return 0, false, nil
	}
	k, err := figure.ParseKind(r.String())
	if err != nil {
		return 0, false, err
	}
	return k, true, nil
}

// color decodes a paint field: null removes the paint.
func color(r gjson.Result, name string) (*figure.Color, error) {
	switch r.Type {
	case gjson.Null:
		return nil, nil
	case gjson.String:
		c, err := figure.ParseColor(r.Str)
		if err != nil {
			return nil, err
		}
		return &c, nil
	}
	return nil, invalid("%s must be a color string or null", name)
}

// patchStyle applies the style fields present in p to base. It reports
// whether any field was present.
func patchStyle(base figure.Style, p gjson.Result) (figure.Style, bool, error) {
	s := base.Clone()
	present := false

	if r := p.Get("fill"); r.Exists() {
		c, err := color(r, "fill")
		if err != nil {
			return base, false, err
		}
		s.Fill, present = c, true
	}
	if r := p.Get("edge"); r.Exists() {
		c, err := color(r, "edge")
		if err != nil {
			return base, false, err
		}
		s.Edge, present = c, true
	}
	if r := p.Get("lineType"); r.Exists() {
		lt, err := figure.ParseLineType(r.String())
		if err != nil {
			return base, false, err
		}
		s.LineType, present = lt, true
	}
	if w, ok, err := number(p, "lineWidth"); err != nil {
		return base, false, err
	} else if ok {
		s.LineWidth, present = w, true
	}

	s, err := figure.NewStyle(s.Fill, s.Edge, s.LineType, s.LineWidth)
	if err != nil {
		return base, false, err
	}
	return s, present, nil
}

// targets resolves the figures an operation acts on: the listed IDs, or
// the selection when no IDs are given.
func (s *Session) targets(p gjson.Result) ([]*figure.Figure, error) {
	list, ok, err := ids(p)
	if err != nil {
		return nil, err
	}
	if !ok {
		sel := s.drawing.Selected()
		if len(sel) == 0 {
			return nil, drawing.ErrNoSelection
		}
		return sel, nil
	}

	out := make([]*figure.Figure, 0, len(list))
	for _, id := range list {
		f := s.drawing.Find(id)
		if f == nil {
			return nil, fmt.Errorf("%w: %s", drawing.ErrFigureNotFound, id)
		}
		out = append(out, f)
	}
	return out, nil
}

func figureIDs(figs []*figure.Figure) []string {
	out := make([]string, len(figs))
	for i, f := range figs {
		out[i] = f.ID
	}
	return out
}
