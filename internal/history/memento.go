package history

import (
	"fmt"
	"strings"
)

const hashPrime = 31

// Memento is an immutable snapshot of an ordered sequence of elements.
// It owns deep copies of the elements it was built from.
type Memento[E Element[E]] struct {
	state []E
	hash  uint64
}

// NewMemento clones every element of elems. The slice itself is not
// retained. A panicking Clone propagates to the caller.
func NewMemento[E Element[E]](elems []E) *Memento[E] {
	state := make([]E, len(elems))
	for i, e := range elems {
		state[i] = e.Clone()
	}
	return &Memento[E]{state: state, hash: hashElements(state)}
}

// State returns the stored elements in a fresh slice. The elements are the
// memento's own copies; callers that intend to mutate them should Clone.
func (m *Memento[E]) State() []E {
	if m == nil {
		return nil
	}
	out := make([]E, len(m.state))
	copy(out, m.state)
	return out
}

// Len returns the number of elements in the snapshot.
func (m *Memento[E]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.state)
}

// Equal reports whether both mementos hold the same number of elements and
// the elements are pairwise equal in order. Two nil mementos are equal.
func (m *Memento[E]) Equal(other *Memento[E]) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m == other {
		return true
	}
	if len(m.state) != len(other.state) || m.hash != other.hash {
		return false
	}
	for i := range m.state {
		if !m.state[i].Equal(other.state[i]) {
			return false
		}
	}
	return true
}

// Hash combines the element hashes in order, so a reordering produces a
// different value.
func (m *Memento[E]) Hash() uint64 {
	if m == nil {
		return 0
	}
	return m.hash
}

func (m *Memento[E]) String() string {
	if m == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range m.state {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, e)
	}
	sb.WriteByte(']')
	return sb.String()
}

func hashElements[E Element[E]](elems []E) uint64 {
	h := uint64(1)
	for _, e := range elems {
		h = hashPrime*h + e.Hash()
	}
	return h
}
