package figure

import (
	"sync"

	"github.com/figdraw/figdraw/internal/typeid"
)

// Sequencer hands out instance numbers per kind, starting at 0.
type Sequencer struct {
	mu   sync.Mutex
	next map[Kind]int
}

func NewSequencer() *Sequencer {
	return &Sequencer{next: make(map[Kind]int)}
}

// Next returns the next instance number for k.
func (s *Sequencer) Next(k Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next[k]
	s.next[k] = n + 1
	return n
}

// Observe makes sure later numbers for k are above n, so figures loaded
// from storage keep unique instance numbers.
func (s *Sequencer) Observe(k Kind, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= s.next[k] {
		s.next[k] = n + 1
	}
}

// Factory creates figures with fresh IDs and instance numbers.
type Factory struct {
	seq   *Sequencer
	newID func() string
}

// NewFactory returns a factory using typeid figure IDs.
func NewFactory() *Factory {
	return NewFactoryWithIDs(NewSequencer(), typeid.NewFigureID)
}

// NewFactoryWithIDs returns a factory using the given sequencer and ID source.
func NewFactoryWithIDs(seq *Sequencer, newID func() string) *Factory {
	return &Factory{seq: seq, newID: newID}
}

// Sequencer returns the factory's instance numbering.
func (f *Factory) Sequencer() *Sequencer {
	return f.seq
}

// New creates a degenerate figure of kind k at (x, y). Dragging it out
// with SetLastPoint gives it a size.
func (f *Factory) New(k Kind, style Style, x, y float64) (*Figure, error) {
	shape, err := newShape(k, Point{X: x, Y: y})
	if err != nil {
		return nil, err
	}
	style = style.Clone()
	if err := style.normalize(); err != nil {
		return nil, err
	}
	return &Figure{
		ID:        f.newID(),
		Instance:  f.seq.Next(k),
		Shape:     shape,
		Style:     style,
		Transform: IdentityTransform(),
	}, nil
}

// FromShape wraps an existing shape in a new figure.
func (f *Factory) FromShape(shape Shape, style Style) (*Figure, error) {
	if shape == nil {
		return nil, ErrInvalidShape
	}
	style = style.Clone()
	if err := style.normalize(); err != nil {
		return nil, err
	}
	return &Figure{
		ID:        f.newID(),
		Instance:  f.seq.Next(shape.Kind()),
		Shape:     shape,
		Style:     style,
		Transform: IdentityTransform(),
	}, nil
}
