package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tidwall/sjson"

	"github.com/figdraw/figdraw/internal/editor"
)

var ErrGestureOwner = errors.New("gesture belongs to another client")

// Room is one project's shared drawing and the clients editing it. All
// clients share a single undo history.
type Room struct {
	projectID string
	clients   map[string]*Client // guarded by Hub.mu
	presence  *PresenceManager

	mu           sync.Mutex
	session      *editor.Session
	seq          int64
	gestureOwner string
}

func newRoom(projectID string, session *editor.Session) *Room {
	return &Room{
		projectID: projectID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		session:   session,
	}
}

// apply runs an encoded editor operation for clientID. It returns the
// resulting state message and whether the drawing changed.
func (r *Room) apply(clientID string, payload []byte) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, err := editor.ParseOperation(payload)
	if err != nil {
		return nil, false, err
	}

	switch op.Type {
	case editor.OpGestureUpdate, editor.OpGestureEnd, editor.OpGestureCancel:
		if r.gestureOwner != "" && r.gestureOwner != clientID {
			return nil, false, fmt.Errorf("%s: %w", op.Type, ErrGestureOwner)
		}
	}

	res, err := r.session.Apply(op)
	if err != nil {
		return nil, false, err
	}

	switch op.Type {
	case editor.OpGestureBegin:
		r.gestureOwner = clientID
	case editor.OpGestureEnd, editor.OpGestureCancel:
		r.gestureOwner = ""
	}
	if res.Changed {
		r.seq++
	}

	data, err := r.stateLocked()
	return data, res.Changed, err
}

// releaseGesture cancels a gesture left open by a departing client.
func (r *Room) releaseGesture(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gestureOwner == "" || r.gestureOwner != clientID {
		return false
	}
	r.gestureOwner = ""
	res, err := r.session.Apply(editor.Operation{Type: editor.OpGestureCancel})
	if err != nil {
		return false
	}
	if res.Changed {
		r.seq++
	}
	return true
}

func (r *Room) stateMessage() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Room) stateLocked() ([]byte, error) {
	payload, err := json.Marshal(r.session.State())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	data, err := json.Marshal(Message{Type: TypeState, ProjectID: r.projectID, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return sjson.SetBytes(data, "seq", r.seq)
}

// save writes the drawing if it changed since the last save.
func (r *Room) save(ctx context.Context, p Persistence) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.session.Dirty() {
		return false, nil
	}
	doc, err := r.session.Export()
	if err != nil {
		return false, err
	}
	if err := p.SaveDocument(ctx, r.projectID, doc); err != nil {
		return false, err
	}
	r.session.MarkClean()
	return true, nil
}
