package collab

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/editor"
	"github.com/figdraw/figdraw/internal/store"
)

const testProject = "proj_test"

type fixture struct {
	hub   *Hub
	store *store.Memory
	stop  func()
}

func newFixture(t *testing.T, interval time.Duration) *fixture {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	if _, err := st.CreateUser(ctx, store.User{ID: "user_a", Email: "a@example.com", DisplayName: "A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateProject(ctx, store.Project{ID: testProject, Name: "Test", OwnerID: "user_a"}); err != nil {
		t.Fatal(err)
	}

	hub := NewHub(NewStorePersistence(st), Config{
		HistoryCapacity: 8,
		SaveInterval:    interval,
		Defaults:        drawing.DefaultDefaults(),
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		hub.Run(runCtx)
		close(done)
	}()

	f := &fixture{hub: hub, store: st}
	f.stop = func() {
		cancel()
		<-done
	}
	t.Cleanup(func() {
		select {
		case <-done:
		default:
			f.stop()
		}
	})
	return f
}

func (f *fixture) join(t *testing.T, projectID, clientID string) *Client {
	t.Helper()
	c := NewClient(f.hub, nil, "user_"+clientID, clientID, projectID, clientID)
	if err := f.hub.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	expect(t, c, TypeWelcome)
	expect(t, c, TypeState)
	expect(t, c, TypePresenceState)
	return c
}

func next(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s: no message", c.ClientID)
		return Message{}
	}
}

// expect skips presence chatter until a message of type typ arrives.
func expect(t *testing.T, c *Client, typ string) Message {
	t.Helper()
	for {
		msg := next(t, c)
		if msg.Type == typ {
			return msg
		}
		if !strings.HasPrefix(msg.Type, "presence.") {
			t.Fatalf("client %s: got %s (%s), want %s", c.ClientID, msg.Type, msg.Payload, typ)
		}
	}
}

func quiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		if !strings.Contains(string(data), `"presence.`) {
			t.Fatalf("client %s: unexpected %s", c.ClientID, data)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func send(f *fixture, c *Client, op string) {
	f.hub.handleMessage(c, &Message{Type: TypeOp, Payload: json.RawMessage(op)})
}

func decodeState(t *testing.T, msg Message) editor.State {
	t.Helper()
	var st editor.State
	if err := json.Unmarshal(msg.Payload, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

const createRect = `{"type":"figure.create","payload":{"kind":"rectangle","at":{"x":0,"y":0},"to":{"x":10,"y":10}}}`

func TestPlaygroundStartsFromSample(t *testing.T) {
	f := newFixture(t, 0)
	c := NewClient(f.hub, nil, "anon", "Anonymous", PlaygroundProjectID, "c1")
	if err := f.hub.Register(c); err != nil {
		t.Fatal(err)
	}
	expect(t, c, TypeWelcome)
	st := decodeState(t, expect(t, c, TypeState))
	if want := drawing.NewSample(nil).Len(); len(st.Figures) != want {
		t.Errorf("figures = %d, want %d", len(st.Figures), want)
	}
}

func TestOpBroadcastsState(t *testing.T) {
	f := newFixture(t, 0)
	a := f.join(t, testProject, "a")
	b := f.join(t, testProject, "b")

	send(f, a, createRect)

	for _, c := range []*Client{a, b} {
		msg := expect(t, c, TypeState)
		if msg.Seq != 1 {
			t.Errorf("client %s: seq = %d, want 1", c.ClientID, msg.Seq)
		}
		st := decodeState(t, msg)
		if len(st.Figures) != 1 || st.History.UndoCount != 1 {
			t.Errorf("client %s: figures %d undo %d", c.ClientID, len(st.Figures), st.History.UndoCount)
		}
	}

	send(f, b, `{"type":"history.undo"}`)
	for _, c := range []*Client{a, b} {
		msg := expect(t, c, TypeState)
		if msg.Seq != 2 || len(decodeState(t, msg).Figures) != 0 {
			t.Errorf("client %s after undo: seq %d", c.ClientID, msg.Seq)
		}
	}
}

func TestUnchangedOpAnswersSenderOnly(t *testing.T) {
	f := newFixture(t, 0)
	a := f.join(t, testProject, "a")
	b := f.join(t, testProject, "b")

	send(f, a, `{"type":"history.undo"}`)
	msg := expect(t, a, TypeState)
	if msg.Seq != 0 {
		t.Errorf("seq = %d, want 0", msg.Seq)
	}
	quiet(t, b)
}

func TestOpErrorGoesToSenderOnly(t *testing.T) {
	f := newFixture(t, 0)
	a := f.join(t, testProject, "a")
	b := f.join(t, testProject, "b")

	send(f, a, `{"type":"figure.explode","payload":{}}`)
	msg := expect(t, a, TypeError)
	var p ErrorPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Op != "figure.explode" || p.Error == "" {
		t.Errorf("error payload = %+v", p)
	}
	quiet(t, b)
}

func TestPresenceRelayed(t *testing.T) {
	f := newFixture(t, 0)
	a := f.join(t, testProject, "a")
	b := f.join(t, testProject, "b")
	expect(t, a, TypePresenceJoin)

	f.hub.handleMessage(a, &Message{Type: TypePresenceUpdate, Payload: json.RawMessage(`{"cursor":{"x":1,"y":2}}`)})
	msg := expect(t, b, TypePresenceUpdate)
	var p PresencePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Cursor == nil || p.Cursor.X != 1 || p.DisplayName != "a" || msg.ClientID != "a" {
		t.Errorf("presence = %+v from %s", p, msg.ClientID)
	}
}

func TestGestureOwnedBySender(t *testing.T) {
	f := newFixture(t, 0)
	a := f.join(t, testProject, "a")
	b := f.join(t, testProject, "b")

	send(f, a, `{"type":"gesture.begin","payload":{"mode":"create","kind":"rectangle","x":0,"y":0}}`)
	expect(t, a, TypeState)

	send(f, b, `{"type":"gesture.update","payload":{"x":5,"y":5}}`)
	msg := expect(t, b, TypeError)
	if !strings.Contains(string(msg.Payload), ErrGestureOwner.Error()) {
		t.Errorf("error = %s", msg.Payload)
	}

	send(f, b, createRect)
	msg = expect(t, b, TypeError)
	if !strings.Contains(string(msg.Payload), editor.ErrGestureActive.Error()) {
		t.Errorf("error = %s", msg.Payload)
	}

	f.hub.Unregister(a)
	expect(t, b, TypePresenceLeave)
	st := decodeState(t, expect(t, b, TypeState))
	if st.GestureActive {
		t.Fatal("gesture still active after owner left")
	}

	send(f, b, createRect)
	if st := decodeState(t, expect(t, b, TypeState)); len(st.Figures) != 1 {
		t.Errorf("figures = %d, want 1", len(st.Figures))
	}
}

func latestFigures(t *testing.T, st *store.Memory) int {
	t.Helper()
	snap, err := st.GetLatestSnapshot(context.Background(), testProject)
	if errors.Is(err, store.ErrNotFound) {
		return -1
	}
	if err != nil {
		t.Fatal(err)
	}
	var doc editor.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		t.Fatal(err)
	}
	return len(doc.Figures)
}

func TestEmptyRoomSavedAndEvicted(t *testing.T) {
	f := newFixture(t, 0)
	a := f.join(t, testProject, "a")
	send(f, a, createRect)
	expect(t, a, TypeState)

	f.hub.Unregister(a)
	waitFor(t, func() bool { return f.hub.RoomCount() == 0 })
	if n := latestFigures(t, f.store); n != 1 {
		t.Fatalf("saved figures = %d, want 1", n)
	}

	// Reopening loads the saved drawing with a fresh history.
	c := NewClient(f.hub, nil, "user_a", "A", testProject, "c")
	if err := f.hub.Register(c); err != nil {
		t.Fatal(err)
	}
	expect(t, c, TypeWelcome)
	st := decodeState(t, expect(t, c, TypeState))
	if len(st.Figures) != 1 || st.History.CanUndo {
		t.Errorf("reopened: figures %d canUndo %v", len(st.Figures), st.History.CanUndo)
	}
}

func TestCleanRoomNotSaved(t *testing.T) {
	f := newFixture(t, 0)
	a := f.join(t, testProject, "a")
	f.hub.Unregister(a)
	waitFor(t, func() bool { return f.hub.RoomCount() == 0 })
	if n := latestFigures(t, f.store); n != -1 {
		t.Errorf("clean room saved a snapshot with %d figures", n)
	}
}

func TestPeriodicAndShutdownSave(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	a := f.join(t, testProject, "a")
	send(f, a, createRect)
	expect(t, a, TypeState)

	waitFor(t, func() bool { return latestFigures(t, f.store) == 1 })

	send(f, a, createRect)
	expect(t, a, TypeState)
	f.stop()
	if n := latestFigures(t, f.store); n != 2 {
		t.Errorf("after shutdown saved figures = %d, want 2", n)
	}
	if err := f.hub.Register(NewClient(f.hub, nil, "u", "U", testProject, "late")); !errors.Is(err, ErrHubStopped) {
		t.Errorf("Register after stop: got %v, want ErrHubStopped", err)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	f := newFixture(t, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(f.hub, conn, "user_ws", "WS", testProject, "ws")
		if err := f.hub.Register(c); err != nil {
			return
		}
		go c.WritePump(r.Context())
		c.ReadPump(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	read := func(typ string) Message {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatal(err)
			}
			if msg.Type == typ {
				return msg
			}
		}
	}
	read(TypeState)

	msg, _ := json.Marshal(Message{Type: TypeOp, Payload: json.RawMessage(createRect)})
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st := read(TypeState)
	if st.Seq != 1 || len(decodeState(t, st).Figures) != 1 {
		t.Errorf("state after op: seq %d", st.Seq)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, func() bool { return f.hub.RoomCount() == 0 })
	if n := latestFigures(t, f.store); n != 1 {
		t.Errorf("saved figures = %d, want 1", n)
	}
}
