package editor

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Operation types understood by Session.Apply.
const (
	OpFigureCreate    = "figure.create"
	OpFigureDelete    = "figure.delete"
	OpFigureTransform = "figure.transform"
	OpFigureStyle     = "figure.style"
	OpFigureReorder   = "figure.reorder"
	OpSelectionSet    = "selection.set"
	OpSelectionClear  = "selection.clear"
	OpDrawingClear    = "drawing.clear"
	OpStyleApply      = "style.apply"
	OpDefaultsSet     = "defaults.set"
	OpGestureBegin    = "gesture.begin"
	OpGestureUpdate   = "gesture.update"
	OpGestureEnd      = "gesture.end"
	OpGestureCancel   = "gesture.cancel"
	OpHistoryUndo     = "history.undo"
	OpHistoryRedo     = "history.redo"
	OpHistoryCapacity = "history.capacity"
)

// Operation is a request to change the session.
type Operation struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result describes the effect of an operation.
type Result struct {
	Op      string       `json:"op"`
	Changed bool         `json:"changed"`
	Figures []string     `json:"figures,omitempty"`
	History HistoryState `json:"history"`
}

// ParseOperation decodes {"type": ..., "payload": ...}.
func ParseOperation(data []byte) (Operation, error) {
	if !gjson.ValidBytes(data) {
		return Operation{}, fmt.Errorf("%w: malformed JSON", ErrInvalidPayload)
	}
	r := gjson.ParseBytes(data)

	t := r.Get("type")
	if t.Type != gjson.String || t.Str == "" {
		return Operation{}, fmt.Errorf("%w: missing operation type", ErrInvalidPayload)
	}
	op := Operation{Type: t.Str}
	if p := r.Get("payload"); p.Exists() {
		op.Payload = json.RawMessage(p.Raw)
	}
	return op, nil
}

func (op Operation) payload() (gjson.Result, error) {
	if len(op.Payload) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(op.Payload) {
		return gjson.Result{}, fmt.Errorf("%s: %w: malformed JSON", op.Type, ErrInvalidPayload)
	}
	p := gjson.ParseBytes(op.Payload)
	if p.Type != gjson.Null && !p.IsObject() {
		return gjson.Result{}, fmt.Errorf("%s: %w: payload must be an object", op.Type, ErrInvalidPayload)
	}
	return p, nil
}

type handler func(s *Session, p gjson.Result) (Result, error)

var handlers = map[string]handler{
	OpFigureCreate:    (*Session).figureCreate,
	OpFigureDelete:    (*Session).figureDelete,
	OpFigureTransform: (*Session).figureTransform,
	OpFigureStyle:     (*Session).figureStyle,
	OpFigureReorder:   (*Session).figureReorder,
	OpSelectionSet:    (*Session).selectionSet,
	OpSelectionClear:  (*Session).selectionClear,
	OpDrawingClear:    (*Session).drawingClear,
	OpStyleApply:      (*Session).styleApply,
	OpDefaultsSet:     (*Session).defaultsSet,
	OpGestureBegin:    (*Session).gestureBegin,
	OpGestureUpdate:   (*Session).gestureUpdate,
	OpGestureEnd:      (*Session).gestureEnd,
	OpGestureCancel:   (*Session).gestureCancel,
	OpHistoryUndo:     (*Session).historyUndo,
	OpHistoryRedo:     (*Session).historyRedo,
	OpHistoryCapacity: (*Session).historyCapacity,
}

func isGestureOp(t string) bool {
	return t == OpGestureUpdate || t == OpGestureEnd || t == OpGestureCancel
}
