// Package live pushes risk-report updates to review UIs over websockets.
// Clients subscribe per session; every completed analysis is broadcast to
// that session's room.
package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"roamio/models"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

type Client struct {
	Conn      *websocket.Conn
	Send      chan []byte
	SessionID string
}

type broadcastMsg struct {
	SessionID string
	Data      []byte
}

type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	quit       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.SessionID] == nil {
				h.rooms[c.SessionID] = make(map[*Client]bool)
			}
			h.rooms[c.SessionID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			// a slow client may already have been evicted by broadcast;
			// its Send channel is closed then, so close only on first removal
			if conns := h.rooms[c.SessionID]; conns != nil && conns[c] {
				delete(conns, c)
				close(c.Send)
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.SessionID] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.rooms[m.SessionID], c)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for _, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
					if c.Conn != nil {
						c.Conn.Close()
					}
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.quit)
}

// riskUpdate is what subscribers receive.
type riskUpdate struct {
	Action string            `json:"action"` // always "risk"
	Date   string            `json:"date"`
	Report models.RiskReport `json:"report"`
}

// PublishRisk broadcasts a freshly computed report to the session's room.
func (h *Hub) PublishRisk(sessionID, date string, report models.RiskReport) {
	data, err := json.Marshal(riskUpdate{Action: "risk", Date: date, Report: report})
	if err != nil {
		log.Printf("live: encode risk update: %v", err)
		return
	}
	// after Stop there is no receiver; drop the update instead of blocking
	select {
	case h.broadcast <- broadcastMsg{SessionID: sessionID, Data: data}:
	case <-h.quit:
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func WebSocketHandler(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionID := ps.ByName("id")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade:", err)
			return
		}
		client := &Client{
			Conn:      conn,
			Send:      make(chan []byte, 256),
			SessionID: sessionID,
		}

		hub.register <- client
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// readPump only watches for the client going away; subscribers never send.
func readPump(c *Client, hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- c:
		case <-hub.quit:
		}
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
