package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cryptid-vote-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	// must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origins are enforced by the cors middleware
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TallySource provides the initial snapshot sent on connect
type TallySource interface {
	CountVotesForEvent(ctx context.Context, eventID string) (models.Tally, error)
}

// EventLookup reports whether a voting event exists
type EventLookup interface {
	FindVotingEvent(ctx context.Context, id string) (*models.VotingEvent, error)
}

// Handler upgrades subscribers of /ws/voting-events/:id
type Handler struct {
	hub      *Hub
	tallies  TallySource
	events   EventLookup
	log      *slog.Logger
	notFound error
}

// NewHandler builds the websocket handler. notFound is the error events
// returns for an unknown id.
func NewHandler(hub *Hub, tallies TallySource, events EventLookup, notFound error, log *slog.Logger) *Handler {
	return &Handler{hub: hub, tallies: tallies, events: events, notFound: notFound, log: log}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws/voting-events/:id", h.HandleConnection)
}

func (h *Handler) HandleConnection(c *gin.Context) {
	eventID := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.events.FindVotingEvent(ctx, eventID); err != nil {
		if errors.Is(err, h.notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voting event not found"})
			return
		}
		h.log.Error("voting event lookup failed", "event", eventID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(eventID, conn, sendBuffer)

	// queue the snapshot before the hub can see the client, the buffer is empty
	if tally, err := h.tallies.CountVotesForEvent(ctx, eventID); err == nil {
		if payload, err := json.Marshal(NewTallyMessage(eventID, tally)); err == nil {
			client.send <- payload
		}
	} else {
		h.log.Warn("initial tally failed", "event", eventID, "error", err)
	}

	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// readPump only watches for close and pong frames; subscribers never send data
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one frame per message, clients parse each as a JSON document
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
