// Package editor is the controller layer between a client and a drawing.
// Every change that should be undoable goes through a Session, which takes
// a history snapshot before mutating the drawing and drops it again when
// the change fails or has no effect.
package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/figure"
	"github.com/figdraw/figdraw/internal/history"
)

// DefaultCapacity is the number of undo and redo steps kept by default.
const DefaultCapacity = 32

// HistoryState summarizes the undo and redo stacks.
type HistoryState struct {
	UndoCount int  `json:"undoCount"`
	RedoCount int  `json:"redoCount"`
	Capacity  int  `json:"capacity"`
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
}

// State is a copy of everything a client needs to render the session.
type State struct {
	Figures       []*figure.Figure `json:"figures"`
	Defaults      drawing.Defaults `json:"defaults"`
	History       HistoryState     `json:"history"`
	GestureActive bool             `json:"gestureActive"`
}

// Document is the persisted form of a drawing. History is never saved.
type Document struct {
	Figures  []*figure.Figure `json:"figures"`
	Defaults *drawing.Defaults `json:"defaults,omitempty"`
}

// Session owns a drawing and its undo history. It is safe for concurrent
// use.
type Session struct {
	mu      sync.Mutex
	drawing *drawing.Drawing
	history *history.Manager[*figure.Figure]
	gesture *gesture
	dirty   bool
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The history manager logs through it
// too.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession wraps d with an undo history of the given capacity.
func NewSession(d *drawing.Drawing, capacity int, opts ...Option) (*Session, error) {
	if d == nil {
		return nil, fmt.Errorf("new session: %w", history.ErrNilOriginator)
	}

	s := &Session{drawing: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	h, err := history.NewManager[*figure.Figure](d, capacity, history.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	s.history = h
	s.logger = s.logger.With("component", "editor")
	activeSessions.Inc()
	return s, nil
}

// Close releases the session's metrics. The session must not be used
// afterwards.
func (s *Session) Close() {
	activeSessions.Dec()
}

// Apply runs one operation.
func (s *Session) Apply(op Operation) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := handlers[op.Type]
	if !ok {
		observeOperation("unknown", false, ErrUnknownOperation)
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	if s.gesture != nil && !isGestureOp(op.Type) {
		observeOperation(op.Type, false, ErrGestureActive)
		return Result{}, fmt.Errorf("%s: %w", op.Type, ErrGestureActive)
	}

	payload, err := op.payload()
	if err != nil {
		observeOperation(op.Type, false, err)
		return Result{}, err
	}

	res, err := h(s, payload)
	observeOperation(op.Type, res.Changed, err)
	if err != nil {
		s.logger.Debug("operation failed", "op", op.Type, "error", err)
		return Result{}, fmt.Errorf("%s: %w", op.Type, err)
	}
	if res.Changed && op.Type != OpHistoryCapacity {
		s.dirty = true
	}
	res.Op = op.Type
	res.History = s.historyState()
	return res, nil
}

// ApplyJSON decodes an operation encoded as {"type": ..., "payload": ...}
// and applies it.
func (s *Session) ApplyJSON(data []byte) (Result, error) {
	op, err := ParseOperation(data)
	if err != nil {
		return Result{}, err
	}
	return s.Apply(op)
}

// Undo restores the state before the last recorded change.
func (s *Session) Undo() bool {
	res, _ := s.Apply(Operation{Type: OpHistoryUndo})
	return res.Changed
}

// Redo re-applies the last undone change.
func (s *Session) Redo() bool {
	res, _ := s.Apply(Operation{Type: OpHistoryRedo})
	return res.Changed
}

// SetCapacity changes how many undo and redo steps are kept. It fails with
// ErrGestureActive while a gesture is open.
func (s *Session) SetCapacity(n int) error {
	_, err := s.Apply(Operation{
		Type:    OpHistoryCapacity,
		Payload: json.RawMessage(fmt.Sprintf(`{"capacity":%d}`, n)),
	})
	return err
}

// History returns the current stack sizes.
func (s *Session) History() HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyState()
}

func (s *Session) historyState() HistoryState {
	return HistoryState{
		UndoCount: s.history.UndoCount(),
		RedoCount: s.history.RedoCount(),
		Capacity:  s.history.Capacity(),
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
	}
}

// State returns deep copies of the figures along with the history summary.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	figs := s.drawing.Figures()
	out := make([]*figure.Figure, len(figs))
	for i, f := range figs {
		out[i] = f.Clone()
	}
	return State{
		Figures:       out,
		Defaults:      s.drawing.Defaults(),
		History:       s.historyState(),
		GestureActive: s.gesture != nil,
	}
}

// Export encodes the drawing as a Document.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.drawing.Defaults()
	doc := Document{Figures: s.drawing.Figures(), Defaults: &def}
	if doc.Figures == nil {
		doc.Figures = []*figure.Figure{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("export drawing: %w", err)
	}
	return data, nil
}

// Load replaces the drawing with a Document. The history is cleared and
// the session is marked clean.
func (s *Session) Load(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("load drawing: %w: %v", ErrInvalidPayload, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Defaults != nil {
		if err := doc.Defaults.Validate(); err != nil {
			return fmt.Errorf("load drawing: %w", err)
		}
	}
	if err := s.drawing.Replace(doc.Figures); err != nil {
		return fmt.Errorf("load drawing: %w", err)
	}
	if doc.Defaults != nil {
		// Validated above.
		_ = s.drawing.SetDefaults(*doc.Defaults)
	}

	s.history.Clear()
	s.gesture = nil
	s.dirty = false
	s.logger.Info("loaded drawing", "figures", len(doc.Figures))
	return nil
}

// GestureActive reports whether a gesture has begun and not yet ended.
func (s *Session) GestureActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gesture != nil
}

// Dirty reports whether the drawing changed since it was loaded or last
// marked clean.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// MarkClean records that the current drawing has been saved.
func (s *Session) MarkClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// record brackets fn with a history snapshot. The snapshot is cancelled
// when fn fails or reports no change.
func (s *Session) record(fn func() (bool, error)) (bool, error) {
	s.history.Record()
	changed, err := fn()
	if err != nil || !changed {
		s.history.Cancel()
		historyActionsTotal.WithLabelValues("cancel").Inc()
		return false, err
	}
	return true, nil
}
