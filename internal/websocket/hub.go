package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"rectifier-monitor/internal/metrics"
)

// Hub maintains the set of active clients and broadcasts snapshot updates.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.SetWSClients(len(h.clients))
			log.Printf("WebSocket client registered: %s", client.Conn.RemoteAddr())
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				metrics.SetWSClients(len(h.clients))
				log.Printf("WebSocket client unregistered: %s", client.Conn.RemoteAddr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Client blocked or gone, drop it.
					log.Printf("WebSocket client %s send buffer full, removing", client.Conn.RemoteAddr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			metrics.SetWSClients(len(h.clients))
			h.mu.Unlock()
		}
	}
}

// RegisterClient registers a new client with the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// BroadcastJSON sends a typed payload to all connected clients.
func (h *Hub) BroadcastJSON(msgType string, payload interface{}) {
	messageBytes, err := json.Marshal(map[string]interface{}{"type": msgType, "payload": payload})
	if err != nil {
		log.Printf("Error marshalling %s broadcast: %v", msgType, err)
		return
	}
	h.broadcast <- messageBytes
}
