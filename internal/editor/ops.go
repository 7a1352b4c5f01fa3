package editor

import (
	"fmt"
	"slices"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/figure"
	"github.com/tidwall/gjson"
)

// figureCreate adds a finished figure:
// {"kind", "at": {x, y}, "to": {x, y}, "points": [{x, y}...], "style": {...}}.
// Kind and style default to the drawing defaults.
func (s *Session) figureCreate(p gjson.Result) (Result, error) {
	var created *figure.Figure
	changed, err := s.record(func() (bool, error) {
		f, err := s.buildFigure(p)
		if err != nil {
			return false, err
		}
		if err := s.drawing.Add(f); err != nil {
			return false, err
		}
		created = f
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Changed: changed, Figures: []string{created.ID}}, nil
}

func (s *Session) buildFigure(p gjson.Result) (*figure.Figure, error) {
	def := s.drawing.Defaults()
	k, ok, err := kind(p)
	if err != nil {
		return nil, err
	}
	if !ok {
		k = def.Kind
	}
	style := def.Style
	if st := p.Get("style"); st.Exists() {
		if style, _, err = patchStyle(def.Style, st); err != nil {
			return nil, err
		}
	}
	at, err := requirePoint(p, "at")
	if err != nil {
		return nil, err
	}

	f, err := s.drawing.Factory().New(k, style, at.X, at.Y)
	if err != nil {
		return nil, err
	}
	if to, ok, err := point(p, "to"); err != nil {
		return nil, err
	} else if ok {
		f.SetLastPoint(to)
	}

	if pts := p.Get("points"); pts.Exists() {
		poly, ok := f.Shape.(*figure.Polygon)
		if !ok {
			return nil, invalid("points only apply to polygons")
		}
		for _, r := range pts.Array() {
			pt, err := requirePoint(r, "")
			if err != nil {
				return nil, err
			}
			poly.AddPoint(pt)
		}
	}

	if f.WorldBounds().IsEmpty() {
		return nil, ErrEmptyFigure
	}
	return f, nil
}

// figureDelete removes {"ids"} or the selected figures.
func (s *Session) figureDelete(p gjson.Result) (Result, error) {
	var removed []*figure.Figure
	changed, err := s.record(func() (bool, error) {
		list, ok, err := ids(p)
		if err != nil {
			return false, err
		}
		if !ok {
			removed = s.drawing.RemoveSelected()
			return len(removed) > 0, nil
		}
		for _, id := range list {
			if s.drawing.IndexOf(id) < 0 {
				return false, fmt.Errorf("%w: %s", drawing.ErrFigureNotFound, id)
			}
		}
		for _, id := range list {
			if f, err := s.drawing.Remove(id); err == nil {
				removed = append(removed, f)
			}
		}
		return len(removed) > 0, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Changed: changed, Figures: figureIDs(removed)}, nil
}

// figureTransform moves, rotates and scales {"ids"} or the selection:
// {"dx", "dy", "rotate" (degrees), "scale" (factor)}.
func (s *Session) figureTransform(p gjson.Result) (Result, error) {
	var figs []*figure.Figure
	changed, err := s.record(func() (bool, error) {
		dx, _, err := number(p, "dx")
		if err != nil {
			return false, err
		}
		dy, _, err := number(p, "dy")
		if err != nil {
			return false, err
		}
		deg, _, err := number(p, "rotate")
		if err != nil {
			return false, err
		}
		factor, ok, err := number(p, "scale")
		if err != nil {
			return false, err
		}
		if !ok {
			factor = 1
		}
		if factor <= 0 {
			return false, fmt.Errorf("%w: %g", figure.ErrInvalidScale, factor)
		}

		if figs, err = s.targets(p); err != nil {
			return false, err
		}
		if dx == 0 && dy == 0 && deg == 0 && factor == 1 {
			return false, nil
		}
		// Check every figure before touching any, so a failure leaves the
		// drawing as it was.
		for _, f := range figs {
			if err := transformFigure(f.Clone(), dx, dy, deg, factor); err != nil {
				return false, err
			}
		}
		for _, f := range figs {
			if err := transformFigure(f, dx, dy, deg, factor); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Changed: changed, Figures: figureIDs(figs)}, nil
}

// figureStyle changes style fields of {"ids"} or the selection:
// {"fill", "edge", "lineType", "lineWidth"}. A null color removes it.
func (s *Session) figureStyle(p gjson.Result) (Result, error) {
	var touched []*figure.Figure
	changed, err := s.record(func() (bool, error) {
		figs, err := s.targets(p)
		if err != nil {
			return false, err
		}

		styles := make([]figure.Style, len(figs))
		for i, f := range figs {
			st, present, err := patchStyle(f.Style, p)
			if err != nil {
				return false, fmt.Errorf("figure %s: %w", f.ID, err)
			}
			if !present {
				return false, invalid("no style field given")
			}
			styles[i] = st
		}

		for i, f := range figs {
			if f.Style.Equal(styles[i]) {
				continue
			}
			f.Style = styles[i]
			touched = append(touched, f)
		}
		return len(touched) > 0, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Changed: changed, Figures: figureIDs(touched)}, nil
}

func transformFigure(f *figure.Figure, dx, dy, deg, factor float64) error {
	f.Translate(dx, dy)
	f.Rotate(deg)
	if err := f.Scale(factor); err != nil {
		return err
	}
	if !f.Transform.Finite() {
		return fmt.Errorf("%w: transform of %s leaves the representable range", ErrInvalidPayload, f.ID)
	}
	return nil
}

// figureReorder moves the last selected figure {"direction": up|down|top|bottom},
// or a given figure to an index {"id", "index"}.
func (s *Session) figureReorder(p gjson.Result) (Result, error) {
	var moved string
	changed, err := s.record(func() (bool, error) {
		if id := p.Get("id"); id.Exists() {
			idx, ok, err := number(p, "index")
			if err != nil {
				return false, err
			}
			if !ok {
				return false, invalid("index is required with id")
			}
			if idx != float64(int(idx)) {
				return false, invalid("index must be an integer")
			}
			from := s.drawing.IndexOf(id.String())
			if from < 0 {
				return false, fmt.Errorf("%w: %s", drawing.ErrFigureNotFound, id.String())
			}
			if err := s.drawing.Move(id.String(), int(idx)); err != nil {
				return false, err
			}
			moved = id.String()
			return from != int(idx), nil
		}

		var move func() (bool, error)
		switch dir := p.Get("direction").String(); dir {
		case "up":
			move = s.drawing.MoveUp
		case "down":
			move = s.drawing.MoveDown
		case "top":
			move = s.drawing.MoveToTop
		case "bottom":
			move = s.drawing.MoveToBottom
		default:
			return false, invalid("unknown direction %q", dir)
		}
		if sel := s.drawing.Selected(); len(sel) > 0 {
			moved = sel[len(sel)-1].ID
		}
		return move()
	})
	if err != nil {
		return Result{}, err
	}
	res := Result{Changed: changed}
	if changed {
		res.Figures = []string{moved}
	}
	return res, nil
}

// selectionSet selects exactly {"ids"}. Selection is not an undo step.
func (s *Session) selectionSet(p gjson.Result) (Result, error) {
	list, ok, err := ids(p)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, invalid("ids is required")
	}

	before := figureIDs(s.drawing.Selected())
	if err := s.drawing.Select(list); err != nil {
		return Result{}, err
	}
	after := figureIDs(s.drawing.Selected())
	return Result{Changed: !slices.Equal(before, after), Figures: after}, nil
}

func (s *Session) selectionClear(gjson.Result) (Result, error) {
	n := len(s.drawing.Selected())
	s.drawing.ClearSelection()
	return Result{Changed: n > 0}, nil
}

func (s *Session) drawingClear(gjson.Result) (Result, error) {
	changed, err := s.record(func() (bool, error) {
		return s.drawing.Clear() > 0, nil
	})
	return Result{Changed: changed}, err
}

// styleApply gives the selected figures the default style.
func (s *Session) styleApply(gjson.Result) (Result, error) {
	var touched []string
	changed, err := s.record(func() (bool, error) {
		before := make(map[string]figure.Style)
		for _, f := range s.drawing.Selected() {
			before[f.ID] = f.Style.Clone()
		}
		n, err := s.drawing.ApplyStyle(s.drawing.Defaults().Style)
		if err != nil {
			return false, err
		}
		for _, f := range s.drawing.Selected() {
			if !f.Style.Equal(before[f.ID]) {
				touched = append(touched, f.ID)
			}
		}
		return n > 0, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Changed: changed, Figures: touched}, nil
}

// defaultsSet changes the defaults: {"kind", "fill", "edge", "lineType", "lineWidth"}.
func (s *Session) defaultsSet(p gjson.Result) (Result, error) {
	def := s.drawing.Defaults()
	k, kindSet, err := kind(p)
	if err != nil {
		return Result{}, err
	}
	if kindSet {
		def.Kind = k
	}
	style, styleSet, err := patchStyle(def.Style, p)
	if err != nil {
		return Result{}, err
	}
	if !kindSet && !styleSet {
		return Result{}, invalid("no default given")
	}
	def.Style = style

	old := s.drawing.Defaults()
	if err := s.drawing.SetDefaults(def); err != nil {
		return Result{}, err
	}
	return Result{Changed: old.Kind != def.Kind || !old.Style.Equal(def.Style)}, nil
}

func (s *Session) historyUndo(gjson.Result) (Result, error) {
	ok := s.history.Undo()
	if ok {
		historyActionsTotal.WithLabelValues("undo").Inc()
	}
	return Result{Changed: ok}, nil
}

func (s *Session) historyRedo(gjson.Result) (Result, error) {
	ok := s.history.Redo()
	if ok {
		historyActionsTotal.WithLabelValues("redo").Inc()
	}
	return Result{Changed: ok}, nil
}

// historyCapacity sets the number of undo steps: {"capacity"}.
func (s *Session) historyCapacity(p gjson.Result) (Result, error) {
	n, ok, err := number(p, "capacity")
	if err != nil {
		return Result{}, err
	}
	if !ok || n != float64(int(n)) {
		return Result{}, invalid("capacity must be an integer")
	}
	old := s.history.Capacity()
	if err := s.history.SetCapacity(int(n)); err != nil {
		return Result{}, err
	}
	return Result{Changed: old != int(n)}, nil
}
