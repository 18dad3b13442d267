// Package realtime fans document edits and presence out to the websocket
// clients viewing the same document.
package realtime

import (
	"encoding/json"
	"sync"
)

// Event names carried in Frame.Event.
const (
	EventJoinDoc   = "join_doc"
	EventLeaveDoc  = "leave_doc"
	EventDocChange = "doc_change"
	EventPresence  = "presence"
	EventDocUpdate = "doc_update"
)

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// inbound is the union of fields clients send in Frame.Data.
type inbound struct {
	DocID    string          `json:"doc_id"`
	User     json.RawMessage `json:"user"`
	Content  json.RawMessage `json:"content"`
	ClientID json.RawMessage `json:"client_id"`
}

// Presence announces a member joining or leaving a document room.
type Presence struct {
	Event string          `json:"event"`
	User  json.RawMessage `json:"user"`
}

// DocUpdate relays an edit to the other clients in the room.
type DocUpdate struct {
	Content  json.RawMessage `json:"content"`
	ClientID json.RawMessage `json:"client_id"`
}

var (
	jsonNull        = json.RawMessage("null")
	jsonEmptyString = json.RawMessage(`""`)
)

func orDefault(v, def json.RawMessage) json.RawMessage {
	if len(v) == 0 {
		return def
	}
	return v
}

// client is one websocket connection. send is drained by the connection's
// writer; closeSlow drops the connection when send is full.
type client struct {
	send      chan []byte
	closeSlow func()

	// rooms is only touched under Hub.mu.
	rooms map[string]struct{}
}

// Hub tracks which clients are in which document room.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

func (h *Hub) join(docID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[docID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[docID] = room
	}
	room[c] = struct{}{}
	c.rooms[docID] = struct{}{}
}

func (h *Hub) leave(docID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(docID, c)
}

func (h *Hub) leaveLocked(docID string, c *client) {
	if room, ok := h.rooms[docID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, docID)
		}
	}
	delete(c.rooms, docID)
}

// leaveAll removes c from every room and returns the rooms it was in.
func (h *Hub) leaveAll(c *client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	docIDs := make([]string, 0, len(c.rooms))
	for docID := range c.rooms {
		docIDs = append(docIDs, docID)
	}
	for _, docID := range docIDs {
		h.leaveLocked(docID, c)
	}
	return docIDs
}

// broadcast queues msg for every client in the room except from. Clients
// whose queue is full are dropped.
func (h *Hub) broadcast(docID string, from *client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[docID] {
		if c == from {
			continue
		}
		select {
		case c.send <- msg:
		default:
			go c.closeSlow()
		}
	}
}

// Members returns how many clients are in a document room.
func (h *Hub) Members(docID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[docID])
}

// Rooms returns how many document rooms have at least one client.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// handle applies one inbound frame from c. Frames without a doc_id and
// unknown events are ignored.
func (h *Hub) handle(c *client, frame Frame) error {
	var in inbound
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &in); err != nil {
			return err
		}
	}
	if in.DocID == "" {
		return nil
	}

	switch frame.Event {
	case EventJoinDoc:
		h.join(in.DocID, c)
		msg, err := encodeFrame(EventPresence, Presence{Event: "join", User: orDefault(in.User, jsonNull)})
		if err != nil {
			return err
		}
		h.broadcast(in.DocID, c, msg)
	case EventLeaveDoc:
		h.leave(in.DocID, c)
		msg, err := encodeFrame(EventPresence, Presence{Event: "leave", User: orDefault(in.User, jsonNull)})
		if err != nil {
			return err
		}
		h.broadcast(in.DocID, c, msg)
	case EventDocChange:
		msg, err := encodeFrame(EventDocUpdate, DocUpdate{
			Content:  orDefault(in.Content, jsonEmptyString),
			ClientID: orDefault(in.ClientID, jsonNull),
		})
		if err != nil {
			return err
		}
		h.broadcast(in.DocID, c, msg)
	}
	return nil
}
