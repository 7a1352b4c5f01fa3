package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/figure"
)

func newSession(t *testing.T, capacity int) *Session {
	t.Helper()
	n := 0
	factory := figure.NewFactoryWithIDs(figure.NewSequencer(), func() string {
		n++
		return fmt.Sprintf("fig_%d", n)
	})
	s, err := NewSession(drawing.New(factory, drawing.DefaultDefaults()), capacity)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func apply(t *testing.T, s *Session, op string) Result {
	t.Helper()
	res, err := s.ApplyJSON([]byte(op))
	if err != nil {
		t.Fatalf("apply %s: %v", op, err)
	}
	return res
}

func applyErr(t *testing.T, s *Session, op string) error {
	t.Helper()
	_, err := s.ApplyJSON([]byte(op))
	if err == nil {
		t.Fatalf("apply %s: expected error", op)
	}
	return err
}

// createCircle adds a circle of radius 10 at (x, 0).
func createCircle(t *testing.T, s *Session, x float64) string {
	t.Helper()
	res := apply(t, s, fmt.Sprintf(
		`{"type":"figure.create","payload":{"kind":"circle","at":{"x":%g,"y":0},"to":{"x":%g,"y":10}}}`, x, x))
	if !res.Changed || len(res.Figures) != 1 {
		t.Fatalf("create result = %+v", res)
	}
	return res.Figures[0]
}

func TestCreateUndoRedo(t *testing.T) {
	s := newSession(t, DefaultCapacity)

	id := createCircle(t, s, 0)
	createCircle(t, s, 50)

	st := s.State()
	if len(st.Figures) != 2 || st.History.UndoCount != 2 {
		t.Fatalf("state = %d figures, history %+v", len(st.Figures), st.History)
	}
	if st.Figures[0].ID != id {
		t.Errorf("first figure = %s", st.Figures[0].ID)
	}

	if !s.Undo() || !s.Undo() {
		t.Fatal("undo failed")
	}
	if got := len(s.State().Figures); got != 0 {
		t.Errorf("after undo: %d figures", got)
	}
	if s.Undo() {
		t.Error("undo with empty history reported a change")
	}

	if !s.Redo() {
		t.Fatal("redo failed")
	}
	h := s.History()
	if h.UndoCount != 1 || h.RedoCount != 1 || !h.CanUndo || !h.CanRedo {
		t.Errorf("history = %+v", h)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	createCircle(t, s, 0)
	s.Undo()
	createCircle(t, s, 20)

	if h := s.History(); h.RedoCount != 0 {
		t.Errorf("redo count = %d after a new change", h.RedoCount)
	}
}

func TestFailedOperationsLeaveNoUndoStep(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	createCircle(t, s, 0)
	s.Undo()
	before := s.History()

	tests := []struct {
		name string
		op   string
		err  error
	}{
		{"empty figure", `{"type":"figure.create","payload":{"at":{"x":1,"y":1}}}`, ErrEmptyFigure},
		{"bad kind", `{"type":"figure.create","payload":{"kind":"blob","at":{"x":1,"y":1}}}`, figure.ErrUnknownKind},
		{"no point", `{"type":"figure.create","payload":{"kind":"circle"}}`, ErrInvalidPayload},
		{"no selection", `{"type":"figure.transform","payload":{"dx":5}}`, drawing.ErrNoSelection},
		{"bad scale", `{"type":"figure.transform","payload":{"ids":["fig_1"],"scale":0}}`, figure.ErrInvalidScale},
		{"unknown figure", `{"type":"figure.delete","payload":{"ids":["nope"]}}`, drawing.ErrFigureNotFound},
		{"bad direction", `{"type":"figure.reorder","payload":{"direction":"sideways"}}`, ErrInvalidPayload},
		{"infinite offset", `{"type":"figure.transform","payload":{"ids":["fig_1"],"dx":1e999}}`, ErrInvalidPayload},
		{"infinite point", `{"type":"figure.create","payload":{"kind":"circle","at":{"x":1e999,"y":1}}}`, ErrInvalidPayload},
		{"fractional index", `{"type":"figure.reorder","payload":{"id":"fig_1","index":1.7}}`, ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := applyErr(t, s, tt.op)
			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if h := s.History(); h != before {
				t.Errorf("history changed: %+v -> %+v", before, h)
			}
		})
	}
}

func TestNoEffectOperationsLeaveNoUndoStep(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	id := createCircle(t, s, 0)
	apply(t, s, fmt.Sprintf(`{"type":"selection.set","payload":{"ids":[%q]}}`, id))

	ops := []string{
		`{"type":"figure.transform","payload":{"dx":0}}`,
		`{"type":"figure.reorder","payload":{"direction":"up"}}`,
		`{"type":"style.apply"}`,
		`{"type":"figure.style","payload":{"fill":"#ffffff"}}`,
	}
	for _, op := range ops {
		res := apply(t, s, op)
		if res.Changed {
			t.Errorf("%s reported a change", op)
		}
		if res.History.UndoCount != 1 {
			t.Errorf("%s: undo count = %d", op, res.History.UndoCount)
		}
	}

	s2 := newSession(t, DefaultCapacity)
	if res := apply(t, s2, `{"type":"drawing.clear"}`); res.Changed || res.History.UndoCount != 0 {
		t.Errorf("clearing an empty drawing = %+v", res)
	}
}

func TestTransformAndStyle(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	a := createCircle(t, s, 0)
	b := createCircle(t, s, 50)

	res := apply(t, s, fmt.Sprintf(`{"type":"figure.transform","payload":{"ids":[%q],"dx":10,"dy":-5,"rotate":90,"scale":2}}`, a))
	if !res.Changed || res.Figures[0] != a {
		t.Fatalf("transform result = %+v", res)
	}
	f := s.State().Figures[0]
	want := figure.Transform{TX: 10, TY: -5, R: 90, SX: 2, SY: 2}
	if !f.Transform.Equal(want) {
		t.Errorf("transform = %+v", f.Transform)
	}

	apply(t, s, fmt.Sprintf(`{"type":"selection.set","payload":{"ids":[%q]}}`, b))
	res = apply(t, s, `{"type":"figure.style","payload":{"fill":null,"edge":"#ff0000","lineType":"dashed","lineWidth":3}}`)
	if !res.Changed {
		t.Fatal("style did not change")
	}
	g := s.State().Figures[1]
	if g.Style.Fill != nil || *g.Style.Edge != figure.RGB(255, 0, 0) || g.Style.LineType != figure.LineDashed {
		t.Errorf("style = %+v", g.Style)
	}

	err := applyErr(t, s, `{"type":"figure.style","payload":{"edge":null}}`)
	if !errors.Is(err, figure.ErrNoPaint) {
		t.Errorf("removing the last paint = %v", err)
	}

	s.Undo()
	if g := s.State().Figures[1]; g.Style.Fill == nil {
		t.Error("undo did not restore the fill")
	}
}

func TestTransformBeyondGridUndoes(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	id := createCircle(t, s, 0)
	move := fmt.Sprintf(`{"type":"figure.transform","payload":{"ids":[%q],"dx":1e13}}`, id)

	apply(t, s, move)
	if res := apply(t, s, move); !res.Changed {
		t.Fatal("second move reported no change")
	}
	if h := s.History(); h.UndoCount != 3 {
		t.Fatalf("undo count = %d, want 3", h.UndoCount)
	}
	if tx := s.State().Figures[0].Transform.TX; tx != 2e13 {
		t.Fatalf("tx = %g, want 2e13", tx)
	}

	s.Undo()
	s.Undo()
	if tx := s.State().Figures[0].Transform.TX; tx != 0 {
		t.Errorf("tx after two undos = %g, want 0", tx)
	}
	if !s.Redo() {
		t.Fatal("redo failed")
	}
	if tx := s.State().Figures[0].Transform.TX; tx != 1e13 {
		t.Errorf("tx after redo = %g, want 1e13", tx)
	}
}

func TestTransformOverflowLeavesDrawing(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	a := createCircle(t, s, 0)
	b := createCircle(t, s, 50)
	apply(t, s, fmt.Sprintf(`{"type":"figure.transform","payload":{"ids":[%q],"dx":1.7e308,"scale":1e300}}`, b))
	before := s.State()

	tests := []struct {
		name string
		op   string
		err  error
	}{
		{"scale", fmt.Sprintf(`{"type":"figure.transform","payload":{"ids":[%q,%q],"scale":1e300}}`, a, b), figure.ErrInvalidScale},
		{"offset", fmt.Sprintf(`{"type":"figure.transform","payload":{"ids":[%q,%q],"dx":1.7e308}}`, a, b), ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := applyErr(t, s, tt.op); !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			after := s.State()
			if after.History != before.History {
				t.Errorf("history changed: %+v -> %+v", before.History, after.History)
			}
			for i, f := range after.Figures {
				if !f.Transform.Equal(before.Figures[i].Transform) {
					t.Errorf("%s transform changed: %+v -> %+v", f.ID, before.Figures[i].Transform, f.Transform)
				}
			}
		})
	}
}

func TestReorderAndDelete(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	a := createCircle(t, s, 0)
	b := createCircle(t, s, 30)
	c := createCircle(t, s, 60)

	apply(t, s, fmt.Sprintf(`{"type":"selection.set","payload":{"ids":[%q]}}`, c))
	apply(t, s, `{"type":"figure.reorder","payload":{"direction":"top"}}`)
	assertIDs(t, s, c, a, b)

	apply(t, s, fmt.Sprintf(`{"type":"figure.reorder","payload":{"id":%q,"index":2}}`, a))
	assertIDs(t, s, c, b, a)

	res := apply(t, s, `{"type":"figure.delete"}`)
	if !res.Changed || res.Figures[0] != c {
		t.Errorf("delete = %+v", res)
	}
	assertIDs(t, s, b, a)

	s.Undo()
	assertIDs(t, s, c, b, a)
	if !s.State().Figures[0].Selected {
		t.Error("undo lost the selection of the restored figure")
	}
}

func assertIDs(t *testing.T, s *Session, want ...string) {
	t.Helper()
	var got []string
	for _, f := range s.State().Figures {
		got = append(got, f.ID)
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("figures = %v, want %v", got, want)
	}
}

func TestSelectionDoesNotTouchHistory(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	id := createCircle(t, s, 0)
	s.Undo()
	s.Redo()
	createCircle(t, s, 40)
	s.Undo()

	apply(t, s, fmt.Sprintf(`{"type":"selection.set","payload":{"ids":[%q]}}`, id))
	apply(t, s, `{"type":"selection.clear"}`)

	if h := s.History(); h.RedoCount != 1 {
		t.Errorf("selection cleared the redo stack: %+v", h)
	}
}

func TestDefaultsAndApplyStyle(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	a := createCircle(t, s, 0)

	res := apply(t, s, `{"type":"defaults.set","payload":{"kind":"star","fill":"#00ff00","edge":null}}`)
	if !res.Changed || res.History.UndoCount != 1 {
		t.Errorf("defaults.set = %+v", res)
	}
	def := s.State().Defaults
	if def.Kind != figure.KindStar || def.Style.Edge != nil {
		t.Errorf("defaults = %+v", def)
	}

	apply(t, s, fmt.Sprintf(`{"type":"selection.set","payload":{"ids":[%q]}}`, a))
	res = apply(t, s, `{"type":"style.apply"}`)
	if !res.Changed || len(res.Figures) != 1 {
		t.Fatalf("style.apply = %+v", res)
	}
	if f := s.State().Figures[0]; *f.Style.Fill != figure.RGB(0, 255, 0) || f.Style.Edge != nil {
		t.Errorf("applied style = %+v", f.Style)
	}

	err := applyErr(t, s, `{"type":"defaults.set","payload":{"fill":null}}`)
	if !errors.Is(err, figure.ErrNoPaint) {
		t.Errorf("defaults without paint = %v", err)
	}
}

func TestPolygonCreate(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	res := apply(t, s, `{"type":"figure.create","payload":{"kind":"polygon","at":{"x":0,"y":0},
		"to":{"x":10,"y":0},"points":[{"x":10,"y":10},{"x":0,"y":10}]}}`)
	if !res.Changed {
		t.Fatal("polygon not created")
	}
	poly := s.State().Figures[0].Shape.(*figure.Polygon)
	if len(poly.Points) != 4 {
		t.Errorf("polygon has %d points", len(poly.Points))
	}

	err := applyErr(t, s, `{"type":"figure.create","payload":{"kind":"circle","at":{"x":0,"y":0},"points":[{"x":1,"y":1}]}}`)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("points on circle = %v", err)
	}
}

func TestCapacity(t *testing.T) {
	s := newSession(t, 2)
	for i := 0; i < 4; i++ {
		createCircle(t, s, float64(i*30))
	}
	if h := s.History(); h.UndoCount != 2 {
		t.Errorf("undo count = %d, want 2", h.UndoCount)
	}

	res := apply(t, s, `{"type":"history.capacity","payload":{"capacity":1}}`)
	if !res.Changed || res.History.UndoCount != 1 || res.History.Capacity != 1 {
		t.Errorf("capacity result = %+v", res)
	}
	applyErr(t, s, `{"type":"history.capacity","payload":{"capacity":-1}}`)
	applyErr(t, s, `{"type":"history.capacity","payload":{"capacity":1.5}}`)

	if err := s.SetCapacity(0); err != nil {
		t.Fatal(err)
	}
	createCircle(t, s, 200)
	if s.Undo() {
		t.Error("undo with capacity 0")
	}
}

func TestUnknownAndMalformed(t *testing.T) {
	s := newSession(t, DefaultCapacity)

	if err := applyErr(t, s, `{"type":"figure.explode"}`); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("unknown op = %v", err)
	}
	if err := applyErr(t, s, `{"payload":{}}`); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("missing type = %v", err)
	}
	if err := applyErr(t, s, `{"type":`); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("malformed = %v", err)
	}
	if err := applyErr(t, s, `{"type":"figure.create","payload":[1]}`); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("array payload = %v", err)
	}
}

func TestExportLoad(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	createCircle(t, s, 0)
	createCircle(t, s, 30)
	apply(t, s, `{"type":"defaults.set","payload":{"kind":"rectangle"}}`)
	if !s.Dirty() {
		t.Error("session not dirty after changes")
	}

	data, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}

	other := newSession(t, DefaultCapacity)
	createCircle(t, other, 100)
	if err := other.Load(data); err != nil {
		t.Fatal(err)
	}

	got, want := other.State(), s.State()
	if len(got.Figures) != 2 || !got.Figures[1].Equal(want.Figures[1]) {
		t.Errorf("loaded figures differ")
	}
	if got.Defaults.Kind != figure.KindRectangle {
		t.Errorf("loaded defaults = %+v", got.Defaults)
	}
	if got.History.UndoCount != 0 || other.Dirty() {
		t.Errorf("load kept history %+v or dirty flag", got.History)
	}

	if err := other.Load([]byte(`{"figures":[{"id":"x","kind":"blob"}]}`)); err == nil {
		t.Error("loading a bad document succeeded")
	}
	if len(other.State().Figures) != 2 {
		t.Error("failed load changed the drawing")
	}
}

func TestStateIsACopy(t *testing.T) {
	s := newSession(t, DefaultCapacity)
	createCircle(t, s, 0)

	st := s.State()
	st.Figures[0].Translate(100, 100)
	if !s.State().Figures[0].Transform.Equal(figure.IdentityTransform()) {
		t.Error("State exposed a live figure")
	}

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"undoCount":1`) {
		t.Errorf("state JSON = %s", data)
	}
}
