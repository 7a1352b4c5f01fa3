package history

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	ErrNilOriginator    = errors.New("history: nil originator")
	ErrNegativeCapacity = errors.New("history: negative capacity")
)

// Manager coordinates the undo and redo stacks of a single Originator.
// It does not own the originator. All methods are safe for concurrent use;
// each runs under one lock guarding both stacks.
type Manager[E Element[E]] struct {
	mu         sync.Mutex
	originator Originator[E]
	capacity   int
	undo       stack[E]
	redo       stack[E]
	logger     *slog.Logger

	// pending describes the effect of the last Record until any other
	// operation runs, so Cancel can revert exactly that effect.
	pending *recordEffect[E]
}

type recordEffect[E Element[E]] struct {
	pushed  bool
	evicted []*Memento[E]
	redo    []*Memento[E]
}

// fit shrinks the effect after the stacks were trimmed to capacity n, so
// that reverting it keeps both stacks within n. undoTrimmed is the number
// of undo entries the trim dropped.
func (p *recordEffect[E]) fit(n, undoLen, undoTrimmed int) {
	if len(p.redo) > n {
		p.redo = p.redo[len(p.redo)-n:]
	}
	if undoTrimmed > 0 {
		// Evicted entries are older than anything the trim dropped.
		p.evicted = nil
	}
	if undoLen == 0 {
		// The recorded snapshot itself was trimmed away.
		p.pushed = false
	}
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for debug messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// NewManager creates a manager for originator keeping at most capacity
// mementos on each stack.
func NewManager[E Element[E]](originator Originator[E], capacity int, opts ...Option) (*Manager[E], error) {
	if originator == nil {
		return nil, ErrNilOriginator
	}
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeCapacity, capacity)
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager[E]{
		originator: originator,
		capacity:   capacity,
		logger:     o.logger.With("component", "history"),
	}, nil
}

// Record snapshots the originator's current state onto the undo stack and
// clears the redo stack. Call it before a change starts; call Cancel if the
// change does not happen.
func (m *Manager[E]) Record() {
	m.mu.Lock()
	defer m.mu.Unlock()

	pushed, evicted := m.pushUndo(m.originator.CreateMemento())
	m.pending = &recordEffect[E]{pushed: pushed, evicted: evicted, redo: m.redo.take()}
}

// Cancel discards the most recent undo snapshot without restoring it.
// Right after Record it reverts exactly what Record did to the stacks: a
// snapshot skipped as a duplicate is not popped, a snapshot evicted to make
// room is put back and the cleared redo entries return. It reports
// whether it changed either stack.
func (m *Manager[E]) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p := m.pending; p != nil {
		m.pending = nil
		if p.pushed {
			m.undo.pop()
			m.undo.restoreOldest(p.evicted)
		}
		m.redo.items = p.redo
		return p.pushed || len(p.redo) > 0
	}
	return m.undo.pop() != nil
}

// Undo moves the originator one step back. The state being replaced is
// pushed onto the redo stack. With nothing to undo it does nothing and
// returns false.
func (m *Manager[E]) Undo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil
	if m.undo.len() == 0 {
		return false
	}

	m.pushRedo(m.originator.CreateMemento())
	m.originator.SetMemento(m.undo.pop())
	m.logger.Debug("undo", "undo", m.undo.len(), "redo", m.redo.len())
	return true
}

// Redo moves the originator one step forward. The state being replaced is
// pushed onto the undo stack. With nothing to redo it does nothing and
// returns false.
func (m *Manager[E]) Redo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil
	if m.redo.len() == 0 {
		return false
	}

	m.pushUndo(m.originator.CreateMemento())
	m.originator.SetMemento(m.redo.pop())
	m.logger.Debug("redo", "undo", m.undo.len(), "redo", m.redo.len())
	return true
}

// SetCapacity changes the maximum number of mementos per stack. When
// shrinking, both stacks lose their oldest entries first.
func (m *Manager[E]) SetCapacity(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCapacity, n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > n {
		undoEvicted := m.undo.trim(n)
		redoEvicted := m.redo.trim(n)
		if undoEvicted+redoEvicted > 0 {
			m.logger.Debug("trimmed history", "capacity", n, "undoEvicted", undoEvicted, "redoEvicted", redoEvicted)
		}
		if m.pending != nil {
			m.pending.fit(n, m.undo.len(), undoEvicted)
		}
	}
	m.capacity = n
	return nil
}

// Clear empties both stacks.
func (m *Manager[E]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = nil
	m.undo.clear()
	m.redo.clear()
}

func (m *Manager[E]) UndoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.undo.len()
}

func (m *Manager[E]) RedoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redo.len()
}

func (m *Manager[E]) Capacity() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capacity
}

// CanUndo reports whether Undo would change the originator.
func (m *Manager[E]) CanUndo() bool {
	return m.UndoCount() > 0
}

// CanRedo reports whether Redo would change the originator.
func (m *Manager[E]) CanRedo() bool {
	return m.RedoCount() > 0
}

// String lists both stacks, newest first.
func (m *Manager[E]) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "history[%d]:\nundo = {", m.capacity)
	writeMementos(&sb, m.undo.newestFirst())
	sb.WriteString("},\nredo = {")
	writeMementos(&sb, m.redo.newestFirst())
	sb.WriteString("}")
	return sb.String()
}

func (m *Manager[E]) pushUndo(state *Memento[E]) (bool, []*Memento[E]) {
	pushed, evicted := m.undo.push(state, m.capacity)
	if len(evicted) > 0 {
		m.logger.Debug("evicted oldest undo snapshot", "capacity", m.capacity)
	}
	if !pushed && state != nil {
		m.logger.Debug("skipped undo snapshot", "reason", "duplicate or disabled")
	}
	return pushed, evicted
}

func (m *Manager[E]) pushRedo(state *Memento[E]) bool {
	pushed, evicted := m.redo.push(state, m.capacity)
	if len(evicted) > 0 {
		m.logger.Debug("evicted oldest redo snapshot", "capacity", m.capacity)
	}
	return pushed
}

func writeMementos[E Element[E]](sb *strings.Builder, ms []*Memento[E]) {
	for i, mem := range ms {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(mem.String())
	}
}
