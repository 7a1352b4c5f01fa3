// Package collab hosts collaborative editing sessions over WebSocket. Each
// project gets a room that owns the authoritative editor session; clients
// send editor operations and receive the resulting state.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/editor"
	"github.com/figdraw/figdraw/internal/store"
)

// PlaygroundProjectID is the anonymous demo room. It starts from the
// sample drawing and is never saved.
const PlaygroundProjectID = "proj_playground"

const shutdownSaveTimeout = 10 * time.Second

var ErrHubStopped = errors.New("hub stopped")

type Config struct {
	HistoryCapacity int
	// SaveInterval is how often dirty rooms are saved. Zero saves only
	// when a room empties and on shutdown.
	SaveInterval time.Duration
	Defaults     drawing.Defaults
	Logger       *slog.Logger
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // projectID -> room
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	persist    Persistence
	cfg        Config
	logger     *slog.Logger
}

func NewHub(persist Persistence, cfg Config) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		persist:    persist,
		cfg:        cfg,
		logger:     logger.With("component", "collab"),
	}
}

// Run serves registrations until ctx is done, then saves every dirty room.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)

	var tick <-chan time.Time
	if h.cfg.SaveInterval > 0 {
		ticker := time.NewTicker(h.cfg.SaveInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(ctx, client)
		case <-tick:
			h.saveRooms(ctx)
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownSaveTimeout)
			defer cancel()
			h.logger.Info("saving all drawings")
			h.saveRooms(saveCtx)
			return nil
		}
	}
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// RoomCount returns the number of loaded rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.RLock()
	room, ok := h.rooms[client.ProjectID]
	h.mu.RUnlock()

	if !ok {
		var err error
		room, err = h.openRoom(ctx, client.ProjectID)
		if err != nil {
			h.logger.Error("open room", "error", err, "project", client.ProjectID)
			client.sendError("", "could not load drawing")
			client.close()
			return
		}
		h.mu.Lock()
		h.rooms[client.ProjectID] = room
		h.mu.Unlock()
		openRooms.Inc()
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	connectedClients.Inc()

	if welcome, err := newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}); err == nil {
		client.Send(welcome)
	}
	if state, err := room.stateMessage(); err == nil {
		client.SendRaw(state)
	} else {
		h.logger.Error("encode state", "error", err, "project", room.projectID)
	}
	if presence, err := room.presence.StateMessage(); err == nil {
		client.Send(presence)
	}

	if join, err := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}); err == nil {
		join.UserID = client.UserID
		join.ClientID = client.ClientID
		h.broadcastToRoom(room, join, client.ClientID)
	}

	h.logger.Info("client joined", "user", client.UserID, "project", client.ProjectID)
}

// openRoom loads the project's drawing into a new session.
func (h *Hub) openRoom(ctx context.Context, projectID string) (*Room, error) {
	d := drawing.New(nil, h.cfg.Defaults)
	if projectID == PlaygroundProjectID {
		d = drawing.NewSample(nil)
	}

	session, err := editor.NewSession(d, h.cfg.HistoryCapacity,
		editor.WithLogger(h.logger.With("project", projectID)))
	if err != nil {
		return nil, err
	}
	if projectID == PlaygroundProjectID {
		return newRoom(projectID, session), nil
	}

	doc, err := h.persist.LoadDocument(ctx, projectID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Never saved; start empty.
	case err != nil:
		session.Close()
		return nil, err
	default:
		if err := session.Load(doc); err != nil {
			session.Close()
			return nil, fmt.Errorf("load %s: %w", projectID, err)
		}
	}
	return newRoom(projectID, session), nil
}

func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ProjectID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		client.close()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	h.mu.Unlock()
	connectedClients.Dec()

	released := room.releaseGesture(client.ClientID)

	if empty {
		// Joins are handled on this goroutine, so the room is still empty.
		h.saveRoom(ctx, room)
		h.mu.Lock()
		delete(h.rooms, room.projectID)
		h.mu.Unlock()
		room.session.Close()
		openRooms.Dec()
		h.logger.Info("room closed", "project", room.projectID)
		return
	}

	if leave, err := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID}); err == nil {
		leave.UserID = client.UserID
		leave.ClientID = client.ClientID
		h.broadcastToRoom(room, leave, "")
	}
	if released {
		if state, err := room.stateMessage(); err == nil {
			h.broadcastRaw(room, state, "")
		}
	}

	h.logger.Info("client left", "user", client.UserID, "project", client.ProjectID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeOp:
		h.handleOp(sender, msg)
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.sendError("", "unknown message type "+msg.Type)
	}
}

func (h *Hub) handleOp(sender *Client, msg *Message) {
	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}

	state, changed, err := room.apply(sender.ClientID, msg.Payload)
	if err != nil {
		op := gjson.GetBytes(msg.Payload, "type").String()
		h.logger.Debug("operation rejected", "op", op, "error", err, "project", room.projectID)
		sender.sendError(op, err.Error())
		return
	}

	if changed {
		h.broadcastRaw(room, state, "")
		return
	}
	sender.SendRaw(state)
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		h.logger.Warn("invalid presence payload", "error", err)
		sender.sendError("", "invalid presence payload")
		return
	}
	presence.DisplayName = sender.DisplayName

	room := h.room(sender.ProjectID)
	if room == nil {
		return
	}
	room.presence.Update(sender.ClientID, &presence)

	out, err := newMessage(TypePresenceUpdate, presence)
	if err != nil {
		return
	}
	out.UserID = sender.UserID
	out.ClientID = sender.ClientID
	h.broadcastToRoom(room, out, sender.ClientID)
}

func (h *Hub) room(projectID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[projectID]
}

func (h *Hub) recipients(room *Room, excludeClientID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	return clients
}

func (h *Hub) broadcastToRoom(room *Room, msg *Message, excludeClientID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return
	}
	h.broadcastRaw(room, data, excludeClientID)
}

func (h *Hub) broadcastRaw(room *Room, data []byte, excludeClientID string) {
	for _, c := range h.recipients(room, excludeClientID) {
		c.SendRaw(data)
	}
}

func (h *Hub) saveRooms(ctx context.Context) {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(ctx, r)
	}
}

func (h *Hub) saveRoom(ctx context.Context, room *Room) {
	if room.projectID == PlaygroundProjectID {
		return
	}
	saved, err := room.save(ctx, h.persist)
	switch {
	case err != nil:
		documentSaves.WithLabelValues("error").Inc()
		h.logger.Error("save drawing", "error", err, "project", room.projectID)
	case saved:
		documentSaves.WithLabelValues("saved").Inc()
		h.logger.Debug("saved drawing", "project", room.projectID)
	}
}
