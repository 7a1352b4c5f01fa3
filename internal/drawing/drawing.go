// Package drawing holds the ordered list of figures being edited and the
// defaults used to create new ones. A Drawing is the originator tracked by
// the undo history.
package drawing

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/figdraw/figdraw/internal/figure"
	"github.com/figdraw/figdraw/internal/history"
)

var (
	ErrNilFigure       = errors.New("drawing: nil figure")
	ErrDuplicateFigure = errors.New("drawing: figure already in drawing")
	ErrFigureNotFound  = errors.New("drawing: figure not found")
	ErrIndexOutOfRange = errors.New("drawing: index out of range")
	ErrNoSelection     = errors.New("drawing: no figure selected")
)

// Drawing is an ordered list of figures. Index 0 is the top of the list.
// It is not safe for concurrent use; editor.Session serializes access.
type Drawing struct {
	figures  []*figure.Figure
	factory  *figure.Factory
	defaults Defaults
	logger   *slog.Logger
}

var _ history.Originator[*figure.Figure] = (*Drawing)(nil)

// New returns an empty drawing creating figures with factory.
func New(factory *figure.Factory, defaults Defaults) *Drawing {
	if factory == nil {
		factory = figure.NewFactory()
	}
	return &Drawing{
		factory:  factory,
		defaults: defaults.clone(),
		logger:   slog.Default().With("component", "drawing"),
	}
}

func (d *Drawing) Len() int {
	return len(d.figures)
}

// At returns the figure at index i, or nil when i is out of range.
func (d *Drawing) At(i int) *figure.Figure {
	if i < 0 || i >= len(d.figures) {
		return nil
	}
	return d.figures[i]
}

// Figures returns the figures in order. The slice is a copy; the figures
// are the live ones.
func (d *Drawing) Figures() []*figure.Figure {
	return slices.Clone(d.figures)
}

// Find returns the figure with the given ID, or nil.
func (d *Drawing) Find(id string) *figure.Figure {
	return d.At(d.IndexOf(id))
}

// IndexOf returns the position of the figure with the given ID, or -1.
func (d *Drawing) IndexOf(id string) int {
	return slices.IndexFunc(d.figures, func(f *figure.Figure) bool {
		return f.ID == id
	})
}

// Add appends f at the end of the list.
func (d *Drawing) Add(f *figure.Figure) error {
	return d.Insert(len(d.figures), f)
}

// Insert puts f at index i, shifting later figures.
func (d *Drawing) Insert(i int, f *figure.Figure) error {
	if f == nil {
		return ErrNilFigure
	}
	if i < 0 || i > len(d.figures) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, i, len(d.figures))
	}
	if d.IndexOf(f.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateFigure, f.ID)
	}

	d.figures = slices.Insert(d.figures, i, f)
	d.factory.Sequencer().Observe(f.Kind(), f.Instance)
	d.logger.Debug("added figure", "figure", f.ID, "index", i)
	return nil
}

// Set replaces the figure at index i and returns the previous one.
func (d *Drawing) Set(i int, f *figure.Figure) (*figure.Figure, error) {
	if f == nil {
		return nil, ErrNilFigure
	}
	if i < 0 || i >= len(d.figures) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if j := d.IndexOf(f.ID); j >= 0 && j != i {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFigure, f.ID)
	}

	old := d.figures[i]
	d.figures[i] = f
	return old, nil
}

// Remove deletes the figure with the given ID and returns it.
func (d *Drawing) Remove(id string) (*figure.Figure, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrFigureNotFound, id)
	}
	f := d.figures[i]
	d.figures = slices.Delete(d.figures, i, i+1)
	d.logger.Debug("removed figure", "figure", id, "index", i)
	return f, nil
}

// RemoveSelected deletes every selected figure and returns them in order.
func (d *Drawing) RemoveSelected() []*figure.Figure {
	var removed []*figure.Figure
	d.figures = slices.DeleteFunc(d.figures, func(f *figure.Figure) bool {
		if f.Selected {
			removed = append(removed, f)
			return true
		}
		return false
	})
	return removed
}

// Clear removes all figures and returns how many there were.
func (d *Drawing) Clear() int {
	n := len(d.figures)
	d.figures = nil
	return n
}

// Replace swaps the whole content for figs. Nothing changes when figs
// contains a nil figure or duplicate IDs.
func (d *Drawing) Replace(figs []*figure.Figure) error {
	seen := make(map[string]struct{}, len(figs))
	for _, f := range figs {
		if f == nil {
			return ErrNilFigure
		}
		if _, ok := seen[f.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateFigure, f.ID)
		}
		seen[f.ID] = struct{}{}
	}

	d.figures = slices.Clone(figs)
	for _, f := range d.figures {
		d.factory.Sequencer().Observe(f.Kind(), f.Instance)
	}
	return nil
}

// Move places the figure with the given ID at index to.
func (d *Drawing) Move(id string, to int) error {
	from := d.IndexOf(id)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrFigureNotFound, id)
	}
	if to < 0 || to >= len(d.figures) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, to)
	}
	if from == to {
		return nil
	}

	f := d.figures[from]
	d.figures = slices.Delete(d.figures, from, from+1)
	d.figures = slices.Insert(d.figures, to, f)
	return nil
}

// MoveUp swaps the last selected figure with the one before it. It reports
// whether the figure moved.
func (d *Drawing) MoveUp() (bool, error) {
	return d.moveSelected(func(i int) int { return i - 1 })
}

// MoveDown swaps the last selected figure with the one after it.
func (d *Drawing) MoveDown() (bool, error) {
	return d.moveSelected(func(i int) int { return i + 1 })
}

// MoveToTop moves the last selected figure to index 0.
func (d *Drawing) MoveToTop() (bool, error) {
	return d.moveSelected(func(int) int { return 0 })
}

// MoveToBottom moves the last selected figure to the end of the list.
func (d *Drawing) MoveToBottom() (bool, error) {
	return d.moveSelected(func(int) int { return len(d.figures) - 1 })
}

// moveSelected moves the selected figure with the highest index to
// target(index). Targets outside the list leave the figure in place.
func (d *Drawing) moveSelected(target func(int) int) (bool, error) {
	from := d.lastSelected()
	if from < 0 {
		return false, ErrNoSelection
	}
	to := target(from)
	if to < 0 || to >= len(d.figures) || to == from {
		return false, nil
	}
	if err := d.Move(d.figures[from].ID, to); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Drawing) lastSelected() int {
	for i := len(d.figures) - 1; i >= 0; i-- {
		if d.figures[i].Selected {
			return i
		}
	}
	return -1
}

// Select makes exactly the figures with the given IDs selected. Unknown IDs
// are an error and leave the selection unchanged.
func (d *Drawing) Select(ids []string) error {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if d.IndexOf(id) < 0 {
			return fmt.Errorf("%w: %s", ErrFigureNotFound, id)
		}
		want[id] = struct{}{}
	}
	for _, f := range d.figures {
		_, f.Selected = want[f.ID]
	}
	return nil
}

// ClearSelection deselects every figure.
func (d *Drawing) ClearSelection() {
	for _, f := range d.figures {
		f.Selected = false
	}
}

// Selected returns the selected figures in drawing order.
func (d *Drawing) Selected() []*figure.Figure {
	var out []*figure.Figure
	for _, f := range d.figures {
		if f.Selected {
			out = append(out, f)
		}
	}
	return out
}

// ApplyStyle gives every selected figure the style s and returns how many
// figures changed.
func (d *Drawing) ApplyStyle(s figure.Style) (int, error) {
	s, err := figure.NewStyle(s.Fill, s.Edge, s.LineType, s.LineWidth)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, f := range d.Selected() {
		if f.Style.Equal(s) {
			continue
		}
		if err := f.SetStyle(s); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// CreateMemento snapshots every figure.
func (d *Drawing) CreateMemento() *history.Memento[*figure.Figure] {
	return history.NewMemento(d.figures)
}

// SetMemento replaces the figures with copies of the memento's state.
// A nil memento leaves the drawing unchanged.
func (d *Drawing) SetMemento(m *history.Memento[*figure.Figure]) {
	if m == nil {
		return
	}
	state := m.State()
	figs := make([]*figure.Figure, len(state))
	for i, f := range state {
		figs[i] = f.Clone()
	}
	d.figures = figs
	d.logger.Debug("restored snapshot", "figures", len(figs))
}

func (d *Drawing) Defaults() Defaults {
	return d.defaults.clone()
}

// SetDefaults changes the kind and style used by InitiateFigure.
func (d *Drawing) SetDefaults(def Defaults) error {
	def, err := def.normalized()
	if err != nil {
		return err
	}
	d.defaults = def
	return nil
}

// InitiateFigure creates a figure at (x, y) from the current defaults. The
// figure is not added; creation tools add it once it has a size.
func (d *Drawing) InitiateFigure(x, y float64) (*figure.Figure, error) {
	return d.factory.New(d.defaults.Kind, d.defaults.Style, x, y)
}

// Factory returns the factory used for new figures.
func (d *Drawing) Factory() *figure.Factory {
	return d.factory
}

func (d *Drawing) String() string {
	names := make([]string, len(d.figures))
	for i, f := range d.figures {
		names[i] = f.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
