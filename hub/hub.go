package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restobooker/utils"
)

// Event types
const (
	EventBookingCreated = "booking_created"
	EventBookingStatus  = "booking_status"
	EventTableUpdate    = "table_update"
	EventTableDelete    = "table_delete"
	EventAreaUpdate     = "area_update"
	EventAreaDelete     = "area_delete"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

const defaultWriteTimeout = 5 * time.Second

// Hub menampung semua client staff yang terhubung dan mengirim broadcast ke mereka
type Hub struct {
	// WriteTimeout bounds each write; a client that cannot take a message in time
	// is dropped.
	WriteTimeout time.Duration

	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{WriteTimeout: defaultWriteTimeout, clients: make(map[*websocket.Conn]string)}
}

var defaultHub = NewHub()

// Default returns the process-wide hub.
func Default() *Hub { return defaultHub }

func (h *Hub) Register(conn *websocket.Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

// Unregister removes conn and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Clients that fail or time out a write are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, role := range h.clients {
		err := conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
		if err == nil {
			err = conn.WriteMessage(websocket.TextMessage, data)
		}
		if err != nil {
			utils.ErrorLogger.Printf("Error sending %s to client with role %s: %v", msg.Event, role, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func RegisterClient(conn *websocket.Conn, role string) { defaultHub.Register(conn, role) }

func UnregisterClient(conn *websocket.Conn) { defaultHub.Unregister(conn) }

// BroadcastBookingCreated -> notifikasi booking baru
func BroadcastBookingCreated(booking interface{}) {
	defaultHub.Broadcast(Message{Event: EventBookingCreated, Data: booking})
}

// BroadcastBookingStatus -> perubahan status booking
func BroadcastBookingStatus(booking interface{}) {
	defaultHub.Broadcast(Message{Event: EventBookingStatus, Data: booking})
}

// BroadcastTableUpdate -> update layout meja
func BroadcastTableUpdate(table interface{}) {
	defaultHub.Broadcast(Message{Event: EventTableUpdate, Data: table})
}

func BroadcastTableDelete(tableID uint) {
	defaultHub.Broadcast(Message{Event: EventTableDelete, Data: map[string]uint{"id": tableID}})
}

func BroadcastAreaUpdate(area interface{}) {
	defaultHub.Broadcast(Message{Event: EventAreaUpdate, Data: area})
}

func BroadcastAreaDelete(areaID uint) {
	defaultHub.Broadcast(Message{Event: EventAreaDelete, Data: map[string]uint{"id": areaID}})
}
