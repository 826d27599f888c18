package domain

// EventScope says whether an event targets a whole room or one connection.
type EventScope int

const (
	ScopeRoom EventScope = iota
	ScopeConn
)

// Event is a broadcast instruction handed back to the transport layer.
// The engine itself never delivers anything.
type Event struct {
	Scope   EventScope
	Target  string // room code or connection identity
	Type    string
	Payload any
}

// RoomEvent addresses every member of a room.
func RoomEvent(code, eventType string, payload any) Event {
	return Event{Scope: ScopeRoom, Target: code, Type: eventType, Payload: payload}
}

// ConnEvent addresses a single connection (e.g. answer counts for the host).
func ConnEvent(connID, eventType string, payload any) Event {
	return Event{Scope: ScopeConn, Target: connID, Type: eventType, Payload: payload}
}
