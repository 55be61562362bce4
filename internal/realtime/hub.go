package realtime

import (
	"fmt"
	"sync"
)

func TenantRoom(tenantID string) string { return "tenant:" + tenantID }

func ConversationRoom(id uint) string { return fmt.Sprintf("conversation:%d", id) }

// Hub is the node-local room registry. Sessions join and leave rooms;
// Deliver fans a frame out to every session currently in a room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Session]struct{})}
}

func (h *Hub) Join(room string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
}

func (h *Hub) Leave(room string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[room], s)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// LeaveAll removes a session from every room it joined.
func (h *Hub) LeaveAll(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Members reports how many sessions are in a room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Deliver writes a frame to every member of a room. Send errors are left
// to each session's writer; delivery is fire-and-forget.
func (h *Hub) Deliver(room string, data []byte) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.Send(data)
	}
}
