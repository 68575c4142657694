package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client
type Client struct {
	ID   uint
	Role string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
}

// Hub maintains the set of active clients and broadcasts messages.
// Delivery here is advisory only; clients still poll the REST API for the
// authoritative state.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %d connected (%s)", client.ID, client.Role)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %d disconnected", client.ID)
		}
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.ID == userID {
			select {
			case client.Send <- message:
			default:
				log.Printf("Warning: Could not send to client %d (channel full)", client.ID)
			}
		}
	}
}

// BroadcastToRole sends a message to all users with a given role
func (h *Hub) BroadcastToRole(role string, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.Role == role {
			select {
			case client.Send <- message:
			default:
				log.Printf("Warning: Could not send to client %d (channel full)", client.ID)
			}
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message types
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// RequestPosted notifies mechanics that a new request entered the feed
type RequestPosted struct {
	RequestID    uint    `json:"requestId"`
	Urgency      string  `json:"urgency"`
	VehicleLabel string  `json:"vehicleLabel"`
	Description  string  `json:"description"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// OfferPosted notifies the request owner about a new offer
type OfferPosted struct {
	RequestID    uint    `json:"requestId"`
	OfferID      uint    `json:"offerId"`
	Price        float64 `json:"price"`
	MechanicName string  `json:"mechanicName"`
}

// OfferAccepted notifies the winning mechanic
type OfferAccepted struct {
	RequestID    uint   `json:"requestId"`
	OfferID      uint   `json:"offerId"`
	VehicleLabel string `json:"vehicleLabel"`
	DriverPhone  string `json:"driverPhone"`
}

// RequestStatusUpdate notifies the owner about a lifecycle change
type RequestStatusUpdate struct {
	RequestID uint   `json:"requestId"`
	Status    string `json:"status"`
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, role string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:   userID,
		Role: role,
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
	}

	client.Hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump drains the connection; inbound frames are ignored, clients talk
// to the REST API and only listen here.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// SendRequestPosted fans a new request out to connected mechanics
func (hub *Hub) SendRequestPosted(notice RequestPosted) {
	data, err := json.Marshal(WebSocketMessage{Type: "new_request", Data: notice})
	if err != nil {
		log.Printf("Error marshaling new request notice: %v", err)
		return
	}
	hub.BroadcastToRole("mechanic", data)
}

// SendOfferPosted notifies the request owner about a new offer
func (hub *Hub) SendOfferPosted(ownerID uint, notice OfferPosted) {
	data, err := json.Marshal(WebSocketMessage{Type: "new_offer", Data: notice})
	if err != nil {
		log.Printf("Error marshaling new offer notice: %v", err)
		return
	}
	hub.BroadcastToUser(ownerID, data)
}

// SendOfferAccepted notifies the mechanic whose offer won
func (hub *Hub) SendOfferAccepted(mechanicID uint, notice OfferAccepted) {
	data, err := json.Marshal(WebSocketMessage{Type: "offer_accepted", Data: notice})
	if err != nil {
		log.Printf("Error marshaling offer accepted notice: %v", err)
		return
	}
	hub.BroadcastToUser(mechanicID, data)
}

// SendStatusUpdate notifies the request owner about a status change
func (hub *Hub) SendStatusUpdate(ownerID uint, notice RequestStatusUpdate) {
	data, err := json.Marshal(WebSocketMessage{Type: "request_status_update", Data: notice})
	if err != nil {
		log.Printf("Error marshaling status update: %v", err)
		return
	}
	hub.BroadcastToUser(ownerID, data)
}
