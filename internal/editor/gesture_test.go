package editor

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/figure"
)

func TestCreateGesture(t *testing.T) {
	s := newSession(t, DefaultCapacity)

	apply(t, s, `{"type":"gesture.begin","payload":{"mode":"create","kind":"rectangle","x":10,"y":10}}`)
	if !s.State().GestureActive {
		t.Fatal("gesture not active")
	}
	if h := s.History(); h.UndoCount != 0 {
		t.Errorf("creation gesture recorded at begin: %+v", h)
	}

	apply(t, s, `{"type":"gesture.update","payload":{"x":30,"y":20}}`)
	if got := len(s.State().Figures); got != 0 {
		t.Errorf("figure added before the gesture ended: %d", got)
	}

	res := apply(t, s, `{"type":"gesture.end","payload":{"x":50,"y":40}}`)
	if !res.Changed || res.History.UndoCount != 1 {
		t.Fatalf("end = %+v", res)
	}
	f := s.State().Figures[0]
	want := figure.Rect{X: 10, Y: 10, Width: 40, Height: 30}
	if got := f.WorldBounds(); got != want {
		t.Errorf("bounds = %+v, want %+v", got, want)
	}

	s.Undo()
	if len(s.State().Figures) != 0 {
		t.Error("undo kept the created figure")
	}
}

func TestCreateGestureTooSmall(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	apply(t, s, `{"type":"gesture.begin","payload":{"mode":"create","x":10,"y":10}}`)
	res := apply(t, s, `{"type":"gesture.end","payload":{"x":12,"y":11}}`)
	if res.Changed || res.History.UndoCount != 0 || len(s.State().Figures) != 0 {
		t.Errorf("short drag created a figure: %+v", res)
	}
}

func TestCreateGesturePolygon(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	apply(t, s, `{"type":"gesture.begin","payload":{"mode":"create","kind":"polygon","x":0,"y":0}}`)
	apply(t, s, `{"type":"gesture.update","payload":{"x":20,"y":0,"addPoint":true}}`)
	apply(t, s, `{"type":"gesture.update","payload":{"x":20,"y":20}}`)
	apply(t, s, `{"type":"gesture.end"}`)

	st := s.State()
	if len(st.Figures) != 1 {
		t.Fatalf("figures = %d", len(st.Figures))
	}
	if n := len(st.Figures[0].Shape.(*figure.Polygon).Points); n != 3 {
		t.Errorf("polygon points = %d, want 3", n)
	}
}

func TestTransformGestures(t *testing.T) {
	tests := []struct {
		name  string
		mode  string
		to    figure.Point
		check func(figure.Transform) bool
	}{
		{"translate", "translate", figure.Point{X: 25, Y: 5}, func(tr figure.Transform) bool {
			return tr.Equal(figure.Transform{TX: 15, TY: 5, SX: 1, SY: 1})
		}},
		{"rotate", "rotate", figure.Point{X: 0, Y: 10}, func(tr figure.Transform) bool {
			return math.Abs(tr.R-90) < 1e-9
		}},
		{"scale", "scale", figure.Point{X: 30, Y: 0}, func(tr figure.Transform) bool {
			return math.Abs(tr.SX-3) < 1e-9 && math.Abs(tr.SY-3) < 1e-9
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, DefaultCapacity)
			id := createCircle(t, s, 0)
			apply(t, s, fmt.Sprintf(`{"type":"selection.set","payload":{"ids":[%q]}}`, id))

			// The circle is centered on the origin; drag from (10, 0).
			res := apply(t, s, fmt.Sprintf(`{"type":"gesture.begin","payload":{"mode":%q,"x":10,"y":0}}`, tt.mode))
			if res.History.UndoCount != 2 {
				t.Errorf("transform gesture did not record at begin: %+v", res.History)
			}
			apply(t, s, fmt.Sprintf(`{"type":"gesture.update","payload":{"x":%g,"y":%g}}`, tt.to.X, tt.to.Y))
			res = apply(t, s, `{"type":"gesture.end"}`)
			if !res.Changed {
				t.Fatal("gesture had no effect")
			}

			if tr := s.State().Figures[0].Transform; !tt.check(tr) {
				t.Errorf("transform = %+v", tr)
			}
			s.Undo()
			if tr := s.State().Figures[0].Transform; !tr.Equal(figure.IdentityTransform()) {
				t.Errorf("undo left transform %+v", tr)
			}
		})
	}
}

func TestTransformGestureWithoutEffectIsCancelled(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	id := createCircle(t, s, 0)

	apply(t, s, fmt.Sprintf(`{"type":"gesture.begin","payload":{"mode":"translate","id":%q,"x":10,"y":0}}`, id))
	apply(t, s, `{"type":"gesture.update","payload":{"x":40,"y":0}}`)
	res := apply(t, s, `{"type":"gesture.end","payload":{"x":10,"y":0}}`)
	if res.Changed || res.History.UndoCount != 1 {
		t.Errorf("round trip drag = %+v", res)
	}
}

func TestSetCapacityDuringGesture(t *testing.T) {
	s := newSession(t, 1)
	id := createCircle(t, s, 0)

	apply(t, s, fmt.Sprintf(`{"type":"gesture.begin","payload":{"mode":"translate","id":%q,"x":10,"y":0}}`, id))
	if err := s.SetCapacity(1); !errors.Is(err, ErrGestureActive) {
		t.Errorf("SetCapacity during gesture = %v", err)
	}
	if err := applyErr(t, s, `{"type":"history.capacity","payload":{"capacity":4}}`); !errors.Is(err, ErrGestureActive) {
		t.Errorf("history.capacity during gesture = %v", err)
	}

	res := apply(t, s, `{"type":"gesture.end","payload":{"x":10,"y":0}}`)
	if res.Changed || res.History.UndoCount != 1 || res.History.Capacity != 1 {
		t.Errorf("end = %+v", res)
	}
	if !s.Undo() || len(s.State().Figures) != 0 {
		t.Error("undo did not remove the created circle")
	}
}

func TestGestureCancel(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	id := createCircle(t, s, 0)
	s.Undo()
	s.Redo()
	before := s.History()

	apply(t, s, fmt.Sprintf(`{"type":"gesture.begin","payload":{"mode":"translate","id":%q,"x":0,"y":0}}`, id))
	apply(t, s, `{"type":"gesture.update","payload":{"x":40,"y":40}}`)
	res := apply(t, s, `{"type":"gesture.cancel"}`)
	if !res.Changed {
		t.Error("cancel did not report moving the figure back")
	}
	if tr := s.State().Figures[0].Transform; !tr.Equal(figure.IdentityTransform()) {
		t.Errorf("transform after cancel = %+v", tr)
	}
	if h := s.History(); h != before {
		t.Errorf("history %+v, want %+v", h, before)
	}
}

func TestGestureBlocksOtherOperations(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	createCircle(t, s, 0)
	apply(t, s, `{"type":"gesture.begin","payload":{"mode":"create","x":0,"y":0}}`)

	if err := applyErr(t, s, `{"type":"history.undo"}`); !errors.Is(err, ErrGestureActive) {
		t.Errorf("undo during gesture = %v", err)
	}
	if err := applyErr(t, s, `{"type":"gesture.begin","payload":{"mode":"create","x":0,"y":0}}`); !errors.Is(err, ErrGestureActive) {
		t.Errorf("nested gesture = %v", err)
	}
	if s.Undo() {
		t.Error("Undo succeeded during a gesture")
	}

	apply(t, s, `{"type":"gesture.cancel"}`)
	if err := applyErr(t, s, `{"type":"gesture.update","payload":{"x":1,"y":1}}`); !errors.Is(err, ErrNoGesture) {
		t.Errorf("update without gesture = %v", err)
	}
}

func TestGestureBeginErrors(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	createCircle(t, s, 0)

	tests := []struct {
		op  string
		err error
	}{
		{`{"type":"gesture.begin","payload":{"mode":"spin","x":0,"y":0}}`, ErrInvalidPayload},
		{`{"type":"gesture.begin","payload":{"mode":"translate","x":0,"y":0}}`, drawing.ErrNoSelection},
		{`{"type":"gesture.begin","payload":{"mode":"rotate","id":"nope","x":0,"y":0}}`, drawing.ErrFigureNotFound},
		{`{"type":"gesture.begin","payload":{"mode":"create"}}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		if err := applyErr(t, s, tt.op); !errors.Is(err, tt.err) {
			t.Errorf("%s: %v, want %v", tt.op, err, tt.err)
		}
	}
	if h := s.History(); h.UndoCount != 1 {
		t.Errorf("failed gestures changed history: %+v", h)
	}
}
