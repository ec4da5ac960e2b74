package tracking

import (
	"log/slog"
	"sync"
)

// session is one connected relay client. The hub only needs to push messages
// and tear the peer down when it stops responding.
type session interface {
	send(v any) error
	close()
}

type room struct {
	mu       sync.Mutex
	sessions map[session]bool
	// gone marks a room already removed from the registry. A caller holding
	// a stale pointer sees it after locking and retries the lookup.
	gone bool
}

// Hub manages per-match broadcast rooms. Each room serializes its replay and
// publish operations behind one mutex, which is what gives subscribers
// gapless snapshot-then-stream semantics and in-order delivery. Rooms with no
// subscribers are removed from the registry, so neither finished matches nor
// publishes against bogus match IDs accumulate entries.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	logger *slog.Logger
}

// NewHub creates a tracking hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{rooms: make(map[string]*room), logger: logger}
}

func (h *Hub) room(matchID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[matchID]
	if !ok {
		r = &room{sessions: make(map[session]bool)}
		h.rooms[matchID] = r
	}
	return r
}

// reap drops an empty room from the registry. Callers hold r.mu; h.mu is
// never held while acquiring a room lock, so taking it here cannot deadlock.
func (h *Hub) reap(matchID string, r *room) {
	if len(r.sessions) > 0 || r.gone {
		return
	}
	r.gone = true
	h.mu.Lock()
	if h.rooms[matchID] == r {
		delete(h.rooms, matchID)
	}
	h.mu.Unlock()
}

// Join subscribes a session to a match's room. replay runs under the room
// lock before the session becomes eligible for broadcasts, so no live sample
// can interleave with (or be missed after) the history snapshot.
func (h *Hub) Join(matchID string, sess session, replay func() error) error {
	for {
		r := h.room(matchID)
		r.mu.Lock()
		if r.gone {
			r.mu.Unlock()
			continue
		}
		err := replay()
		if err == nil {
			r.sessions[sess] = true
		}
		h.reap(matchID, r)
		r.mu.Unlock()
		return err
	}
}

// Publish runs prepare under the room lock and broadcasts its message to
// every subscriber. prepare persists the sample, so a sample is durable
// before anyone observes it and the lock imposes a single total order per
// room. Sessions whose write fails are dropped.
func (h *Hub) Publish(matchID string, prepare func() (any, error)) error {
	for {
		r := h.room(matchID)
		r.mu.Lock()
		if r.gone {
			r.mu.Unlock()
			continue
		}
		msg, err := prepare()
		if err == nil {
			for sess := range r.sessions {
				if sendErr := sess.send(msg); sendErr != nil {
					h.logger.Warn("relay write failed, dropping subscriber", "match_id", matchID, "error", sendErr)
					delete(r.sessions, sess)
					sess.close()
				}
			}
		}
		h.reap(matchID, r)
		r.mu.Unlock()
		return err
	}
}

// Leave unsubscribes a session from one room. No history side effects.
func (h *Hub) Leave(matchID string, sess session) {
	h.mu.RLock()
	r := h.rooms[matchID]
	h.mu.RUnlock()
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.sessions, sess)
	h.reap(matchID, r)
	r.mu.Unlock()
}

// LeaveAll removes a session from every room, used when its connection drops.
// A dropped connection is an implicit unsubscribe with no persisted effect.
func (h *Hub) LeaveAll(sess session) {
	h.mu.RLock()
	rooms := make(map[string]*room, len(h.rooms))
	for id, r := range h.rooms {
		rooms[id] = r
	}
	h.mu.RUnlock()

	for id, r := range rooms {
		r.mu.Lock()
		delete(r.sessions, sess)
		h.reap(id, r)
		r.mu.Unlock()
	}
}

// Subscribers reports the current size of a room.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	r := h.rooms[matchID]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
