package editor

import (
	"fmt"
	"math"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/figure"
	"github.com/tidwall/gjson"
)

// MinDragDistance is the shortest drag that creates a figure.
const MinDragDistance = 4.0

type gestureMode int

const (
	gestureCreate gestureMode = iota
	gestureTranslate
	gestureRotate
	gestureScale
)

var gestureModes = map[string]gestureMode{
	"create":    gestureCreate,
	"translate": gestureTranslate,
	"rotate":    gestureRotate,
	"scale":     gestureScale,
}

// gesture is a drag in progress. A creation gesture works on a figure that
// is not in the drawing yet and records history only when the figure is
// added. A transform gesture records history when it begins and cancels
// that snapshot if it ends without effect.
type gesture struct {
	mode    gestureMode
	fig     *figure.Figure
	start   figure.Point
	last    figure.Point
	center  figure.Point
	initial figure.Transform
}

// gestureBegin starts a drag: {"mode", "x", "y", "id", "kind"}. Transform
// modes act on "id" or the last selected figure.
func (s *Session) gestureBegin(p gjson.Result) (Result, error) {
	if s.gesture != nil {
		return Result{}, ErrGestureActive
	}
	modeName := p.Get("mode").String()
	mode, ok := gestureModes[modeName]
	if !ok {
		return Result{}, invalid("unknown gesture mode %q", modeName)
	}
	at, err := requirePoint(p, "")
	if err != nil {
		return Result{}, err
	}

	if mode == gestureCreate {
		return s.beginCreate(p, at)
	}

	var f *figure.Figure
	if id := p.Get("id"); id.Exists() {
		if f = s.drawing.Find(id.String()); f == nil {
			return Result{}, fmt.Errorf("%w: %s", drawing.ErrFigureNotFound, id.String())
		}
	} else {
		sel := s.drawing.Selected()
		if len(sel) == 0 {
			return Result{}, drawing.ErrNoSelection
		}
		f = sel[len(sel)-1]
	}

	s.history.Record()
	s.gesture = &gesture{
		mode:    mode,
		fig:     f,
		start:   at,
		center:  f.Center(),
		initial: f.Transform,
	}
	return Result{Figures: []string{f.ID}}, nil
}

func (s *Session) beginCreate(p gjson.Result, at figure.Point) (Result, error) {
	def := s.drawing.Defaults()
	k, ok, err := kind(p)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		k = def.Kind
	}
	f, err := s.drawing.Factory().New(k, def.Style, at.X, at.Y)
	if err != nil {
		return Result{}, err
	}
	s.gesture = &gesture{mode: gestureCreate, fig: f, start: at, last: at}
	return Result{}, nil
}

// gestureUpdate drags to {"x", "y"}. With "addPoint" a polygon being
// created keeps the point as a vertex. Updates are not recorded.
func (s *Session) gestureUpdate(p gjson.Result) (Result, error) {
	g := s.gesture
	if g == nil {
		return Result{}, ErrNoGesture
	}
	at, err := requirePoint(p, "")
	if err != nil {
		return Result{}, err
	}

	if g.mode == gestureCreate {
		g.fig.SetLastPoint(at)
		g.last = at
		if p.Get("addPoint").Bool() {
			if poly, ok := g.fig.Shape.(*figure.Polygon); ok {
				poly.AddPoint(at)
			}
		}
		return Result{}, nil
	}

	before := g.fig.Transform
	g.drag(at)
	return Result{Changed: !before.Equal(g.fig.Transform), Figures: []string{g.fig.ID}}, nil
}

// gestureEnd finishes the drag, optionally at {"x", "y"}.
func (s *Session) gestureEnd(p gjson.Result) (Result, error) {
	g := s.gesture
	if g == nil {
		return Result{}, ErrNoGesture
	}
	at, hasPoint, err := point(p, "")
	if err != nil {
		return Result{}, err
	}
	s.gesture = nil

	if g.mode == gestureCreate {
		if hasPoint {
			g.fig.SetLastPoint(at)
		} else {
			at = g.last
		}
		if g.start.Distance(at) < MinDragDistance || g.fig.WorldBounds().IsEmpty() {
			s.logger.Debug("figure too small, dropped", "kind", g.fig.Kind())
			return Result{}, nil
		}
		changed, err := s.record(func() (bool, error) {
			return true, s.drawing.Add(g.fig)
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Changed: changed, Figures: []string{g.fig.ID}}, nil
	}

	if hasPoint {
		g.drag(at)
	}
	if g.fig.Transform.Equal(g.initial) {
		s.history.Cancel()
		historyActionsTotal.WithLabelValues("cancel").Inc()
		return Result{}, nil
	}
	return Result{Changed: true, Figures: []string{g.fig.ID}}, nil
}

// gestureCancel abandons the drag and puts the figure back.
func (s *Session) gestureCancel(gjson.Result) (Result, error) {
	g := s.gesture
	if g == nil {
		return Result{}, ErrNoGesture
	}
	s.gesture = nil
	if g.mode == gestureCreate {
		return Result{}, nil
	}

	moved := !g.fig.Transform.Equal(g.initial)
	g.fig.Transform = g.initial
	s.history.Cancel()
	historyActionsTotal.WithLabelValues("cancel").Inc()
	return Result{Changed: moved, Figures: []string{g.fig.ID}}, nil
}

// drag sets the figure transform for the pointer at p, relative to the
// state when the gesture began.
func (g *gesture) drag(p figure.Point) {
	t := g.initial
	v0 := figure.Point{X: g.start.X - g.center.X, Y: g.start.Y - g.center.Y}
	v := figure.Point{X: p.X - g.center.X, Y: p.Y - g.center.Y}

	switch g.mode {
	case gestureTranslate:
		t.TX += p.X - g.start.X
		t.TY += p.Y - g.start.Y
	case gestureRotate:
		if v0 != (figure.Point{}) && v != (figure.Point{}) {
			delta := math.Atan2(v.Y, v.X) - math.Atan2(v0.Y, v0.X)
			t.R += delta * 180 / math.Pi
		}
	case gestureScale:
		m0 := math.Hypot(v0.X, v0.Y)
		m := math.Hypot(v.X, v.Y)
		if m0 > 0 && m > 0 {
			t.SX *= m / m0
			t.SY *= m / m0
		}
	}
	g.fig.Transform = t
}
