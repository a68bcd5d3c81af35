// Package ws fans authoritative mutations out to clients subscribed per
// project room. Delivery is at-most-once per connection; clients that miss
// events during a disconnect refetch full state instead of replaying.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// subscriber wraps a connection with a write mutex. The websocket protocol
// allows one writer at a time per connection; broadcasts and the ping
// ticker both go through these methods so their frames never interleave.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *subscriber) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub keeps one room per project id and is safe for concurrent use. It is
// injected into the services instead of living as package state.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*subscriber]bool
	upgrader websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		rooms: make(map[string]map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

// Broadcast sends the event to every connection in the project's room.
// Connections that fail to take the write, including a failed write
// deadline, are evicted and closed.
func (h *Hub) Broadcast(projectID string, event Event) {
	h.mu.RLock()
	room, exists := h.rooms[projectID]
	if !exists || len(room) == 0 {
		h.mu.RUnlock()
		return
	}
	subs := make([]*subscriber, 0, len(room))
	for sub := range room {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.writeJSON(event); err != nil {
			logging.Logger.Warnf("Event ID: WS_BROADCAST_FAILED, Description: Dropping client in project %s: %v", projectID, err)
			h.remove(projectID, sub)
			sub.conn.Close()
		}
	}
}

// RoomSize reports the number of live connections in a project room.
func (h *Hub) RoomSize(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

func (h *Hub) add(projectID string, sub *subscriber) {
	h.mu.Lock()
	if h.rooms[projectID] == nil {
		h.rooms[projectID] = make(map[*subscriber]bool)
	}
	h.rooms[projectID][sub] = true
	h.mu.Unlock()
}

func (h *Hub) remove(projectID string, sub *subscriber) {
	h.mu.Lock()
	if room, exists := h.rooms[projectID]; exists {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, projectID)
		}
	}
	h.mu.Unlock()
}

// Handler upgrades the request and parks the connection in the project's
// room until it closes. The read loop only services pings and close frames;
// clients never push state through the socket.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	if projectID == "" {
		http.Error(w, "project ID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warnf("Event ID: WS_UPGRADE_FAILED, Description: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sub := &subscriber{conn: conn}
	h.add(projectID, sub)
	defer func() {
		h.remove(projectID, sub)
		conn.Close()
	}()

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sub.ping(); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Logger.Warnf("Event ID: WS_READ_ERROR, Description: Project %s: %v", projectID, err)
			}
			return
		}
	}
}
