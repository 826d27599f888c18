package http

import (
	"sync"

	"quizroom-service/internal/domain"
)

// hub tracks live connections and their room membership so engine broadcast
// instructions can be fanned out. It is transport-local state; the engine
// never sees it.
type hub struct {
	mu    sync.RWMutex
	conns map[string]chan outboundMessage[any]
	rooms map[string]map[string]struct{}
	room  map[string]string // connID -> room code
}

func newHub() *hub {
	return &hub{
		conns: make(map[string]chan outboundMessage[any]),
		rooms: make(map[string]map[string]struct{}),
		room:  make(map[string]string),
	}
}

// attach registers a connection's send channel and places it in a room.
func (h *hub) attach(connID, code string, send chan outboundMessage[any]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = send
	members, ok := h.rooms[code]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[code] = members
	}
	members[connID] = struct{}{}
	h.room[connID] = code
}

// detach removes a connection from its room and forgets its channel.
func (h *hub) detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if code, ok := h.room[connID]; ok {
		if members, ok := h.rooms[code]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, code)
			}
		}
		delete(h.room, connID)
	}
	delete(h.conns, connID)
}

// dispatch delivers engine events to their targets: every member of a room,
// or one connection.
func (h *hub) dispatch(events []domain.Event) {
	for _, event := range events {
		msg := outboundMessage[any]{Type: event.Type, Payload: event.Payload}
		switch event.Scope {
		case domain.ScopeRoom:
			h.broadcast(event.Target, msg)
		case domain.ScopeConn:
			h.unicast(event.Target, msg)
		}
	}
}

func (h *hub) broadcast(code string, msg outboundMessage[any]) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[code] {
		if send, ok := h.conns[connID]; ok {
			deliver(send, msg)
		}
	}
}

func (h *hub) unicast(connID string, msg outboundMessage[any]) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if send, ok := h.conns[connID]; ok {
		deliver(send, msg)
	}
}

// deliver drops the oldest queued message rather than block the hub on a
// slow client.
func deliver(send chan outboundMessage[any], msg outboundMessage[any]) {
	select {
	case send <- msg:
	default:
		select {
		case <-send:
		default:
		}
		select {
		case send <- msg:
		default:
		}
	}
}
