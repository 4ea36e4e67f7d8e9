package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"cryptid-vote-backend/models"

	"github.com/gorilla/websocket"
)

const MessageTypeTallyUpdate = "TALLY_UPDATE"

// TallyMessage is pushed to every subscriber of a voting event
type TallyMessage struct {
	Type          string       `json:"type"`
	VotingEventID string       `json:"voting_event_id"`
	Tally         models.Tally `json:"tally"`
	Total         int64        `json:"total"`
	Timestamp     int64        `json:"timestamp"`
}

func NewTallyMessage(eventID string, tally models.Tally) TallyMessage {
	if tally == nil {
		tally = models.Tally{}
	}
	return TallyMessage{
		Type:          MessageTypeTallyUpdate,
		VotingEventID: eventID,
		Tally:         tally,
		Total:         tally.Total(),
		Timestamp:     time.Now().Unix(),
	}
}

// Client is one websocket subscriber of a voting event
type Client struct {
	EventID string
	conn    *websocket.Conn
	send    chan []byte
}

func NewClient(eventID string, conn *websocket.Conn, buffer int) *Client {
	return &Client{EventID: eventID, conn: conn, send: make(chan []byte, buffer)}
}

// Hub tracks subscribers per voting event and fans out tally updates
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// OnCountChanged, when set, receives the total subscriber count after every change
	OnCountChanged func(total int)
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is done, then drops every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[c.EventID]; !ok {
				h.clients[c.EventID] = make(map[*Client]struct{})
			}
			h.clients[c.EventID][c] = struct{}{}
			n := len(h.clients[c.EventID])
			h.mu.Unlock()
			h.log.Debug("websocket client registered", "event", c.EventID, "clients", n)
			h.countChanged()

		case c := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(c)
			h.mu.Unlock()
			h.log.Debug("websocket client unregistered", "event", c.EventID)
			h.countChanged()

		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					h.removeLocked(c)
				}
			}
			h.mu.Unlock()
			h.countChanged()
			return
		}
	}
}

// removeLocked closes the client's send channel once; h.mu must be held
func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.EventID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.EventID)
	}
}

func (h *Hub) countChanged() {
	if h.OnCountChanged != nil {
		h.OnCountChanged(h.ClientCount())
	}
}

// Register returns false when the hub has stopped
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastTally sends the tally to every subscriber of the event.
// Subscribers with a full buffer are dropped.
func (h *Hub) BroadcastTally(eventID string, tally models.Tally) int {
	payload, err := json.Marshal(NewTallyMessage(eventID, tally))
	if err != nil {
		h.log.Error("marshal tally message failed", "error", err)
		return 0
	}
	return h.broadcast(eventID, payload)
}

func (h *Hub) broadcast(eventID string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients[eventID] {
		select {
		case c.send <- payload:
			sent++
		default:
			h.removeLocked(c)
		}
	}
	h.log.Debug("tally broadcast", "event", eventID, "clients", sent)
	return sent
}

// ClientCount is the number of subscribers across all events
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// EventClientCount is the number of subscribers of one event
func (h *Hub) EventClientCount(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[eventID])
}
