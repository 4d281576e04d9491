package realtime

import (
	"sync"

	"github.com/google/uuid"

	"kanban-api/domain"
)

// sendBuffer bounds the per-connection event queue. A subscriber that cannot
// drain this many events misses them and must reconcile via a full refetch.
const sendBuffer = 64

// Conn is one live subscriber. Its ID is handed to the client on connect so
// mutation requests can name their origin connection for fan-out exclusion.
type Conn struct {
	ID string
	ch chan domain.Event
}

// Events returns the channel delivering this connection's board events. It is
// closed when the connection is dropped from the hub.
func (c *Conn) Events() <-chan domain.Event {
	return c.ch
}

// Hub is the board-scoped channel registry: it tracks which connections watch
// which boards and fans published events out to them. Subscription state is
// in-memory only; clients re-subscribe after a reconnect or restart.
type Hub struct {
	mu     sync.RWMutex
	byID   map[string]*Conn
	boards map[string]map[*Conn]struct{}
	subs   map[*Conn]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		byID:   make(map[string]*Conn),
		boards: make(map[string]map[*Conn]struct{}),
		subs:   make(map[*Conn]map[string]struct{}),
	}
}

// Register adds a new connection with no subscriptions.
func (h *Hub) Register() *Conn {
	c := &Conn{ID: uuid.NewString(), ch: make(chan domain.Event, sendBuffer)}
	h.mu.Lock()
	h.byID[c.ID] = c
	h.subs[c] = make(map[string]struct{})
	h.mu.Unlock()
	return c
}

// Join subscribes c to a board's events. Callers must have passed the access
// guard first; the hub performs no authorization.
func (h *Hub) Join(c *Conn, boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[c]; !ok {
		return // already dropped
	}
	if h.boards[boardID] == nil {
		h.boards[boardID] = make(map[*Conn]struct{})
	}
	h.boards[boardID][c] = struct{}{}
	h.subs[c][boardID] = struct{}{}
}

// Leave unsubscribes c from a board.
func (h *Hub) Leave(c *Conn, boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, boardID)
}

func (h *Hub) leaveLocked(c *Conn, boardID string) {
	if conns, ok := h.boards[boardID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.boards, boardID)
		}
	}
	if boards, ok := h.subs[c]; ok {
		delete(boards, boardID)
	}
}

// Drop releases every subscription held by c and closes its event channel.
// Safe to call more than once.
func (h *Hub) Drop(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	boards, ok := h.subs[c]
	if !ok {
		return
	}
	for boardID := range boards {
		h.leaveLocked(c, boardID)
	}
	delete(h.subs, c)
	delete(h.byID, c.ID)
	close(c.ch)
}

// Publish delivers ev to every connection subscribed to its board, except the
// origin connection named by excludeConnID (empty string excludes no one).
// Delivery is non-blocking: a full subscriber buffer drops the event for that
// subscriber only, so publishing never stalls the mutation path.
func (h *Hub) Publish(ev domain.Event, excludeConnID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.boards[ev.Board] {
		if excludeConnID != "" && c.ID == excludeConnID {
			continue
		}
		select {
		case c.ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many connections currently watch the board.
func (h *Hub) SubscriberCount(boardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.boards[boardID])
}
