package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// Event types
const (
	EventCartUpdate       = "cart_update"
	EventOrdersUpdate     = "orders_update"
	EventConnectionUpdate = "connection_update"
)

// Screen roles. The kitchen display never receives cart traffic.
const (
	RolePOS     = "pos"
	RoleKitchen = "kitchen"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// KDSHub holds the local screens (POS, kitchen) attached to this terminal
type KDSHub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var kdsHub = KDSHub{
	clients: make(map[*websocket.Conn]string),
}

// ValidRole reports whether role may attach to the hub.
func ValidRole(role string) bool {
	return role == RolePOS || role == RoleKitchen
}

// RegisterClient adds a screen connection with its role
func RegisterClient(conn *websocket.Conn, role string) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	kdsHub.clients[conn] = role
	utils.InfoLogger.Infof("kds: %s screen attached (%d total)", role, len(kdsHub.clients))
}

// UnregisterClient drops and closes a connection
func UnregisterClient(conn *websocket.Conn) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	if _, ok := kdsHub.clients[conn]; !ok {
		return
	}
	delete(kdsHub.clients, conn)
	conn.Close()
}

// ClientCount returns the number of attached screens.
func ClientCount() int {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	return len(kdsHub.clients)
}

// SendTo writes one message to a single connection, used for the initial
// state right after a screen attaches.
func SendTo(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// BroadcastCartUpdate -> cart state for POS screens
func BroadcastCartUpdate(state interface{}) {
	broadcast(Message{
		Event: EventCartUpdate,
		Data:  state,
	}, RolePOS)
}

// BroadcastOrdersUpdate -> order views for every screen
func BroadcastOrdersUpdate(data interface{}) {
	broadcast(Message{
		Event: EventOrdersUpdate,
		Data:  data,
	})
}

// BroadcastConnectionUpdate -> realtime link state
func BroadcastConnectionUpdate(connected bool) {
	broadcast(Message{
		Event: EventConnectionUpdate,
		Data:  map[string]bool{"connected": connected},
	})
}

// broadcast sends msg to every client, or only to clients holding one of
// roles when given. Clients that fail a write are dropped.
func broadcast(msg Message, roles ...string) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("kds: marshal %s: %v", msg.Event, err)
		return
	}

	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()

	for conn, role := range kdsHub.clients {
		if len(roles) > 0 && !contains(roles, role) {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Warnf("kds: dropping %s screen: %v", role, err)
			delete(kdsHub.clients, conn)
			conn.Close()
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
