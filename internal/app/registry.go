package app

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// RoomStore abstracts how rooms are stored (in-memory, Redis-marked, etc).
type RoomStore interface {
	// PutIfAbsent registers a room under its code and reports whether the
	// code was free.
	PutIfAbsent(code string, room *Room) bool
	Get(code string) (*Room, bool)
	Delete(code string)
}

// Room codes avoid easily-confused characters (0/O, 1/I) so they stay
// human-typeable.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomCodeLength gives ~33 bits of code space, plenty for realistic
// concurrent room counts.
const RoomCodeLength = 6

const maxCodeAttempts = 10

// Registry owns the room-code namespace: it mints collision-free codes and
// resolves codes to rooms. The store is injected; there is no package-level
// state.
type Registry struct {
	store RoomStore
	now   func() time.Time
}

func NewRegistry(store RoomStore) *Registry {
	return NewRegistryWithClock(store, time.Now)
}

// NewRegistryWithClock allows deterministic timestamps in tests.
func NewRegistryWithClock(store RoomStore, now func() time.Time) *Registry {
	return &Registry{store: store, now: now}
}

// Create registers a new lobby room owned by hostID and returns it.
func (g *Registry) Create(hostID string) (*Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newRoomCode()
		if err != nil {
			return nil, err
		}
		room := NewRoomWithClock(code, hostID, g.now)
		if g.store.PutIfAbsent(code, room) {
			return room, nil
		}
	}
	return nil, fmt.Errorf("could not allocate a unique room code after %d attempts", maxCodeAttempts)
}

// Get resolves a room by code. Codes are case-normalized on every external
// reference, so lookups accept any casing.
func (g *Registry) Get(code string) (*Room, bool) {
	return g.store.Get(NormalizeCode(code))
}

// DeleteIfIdle evicts a room once it is ended or fully abandoned.
func (g *Registry) DeleteIfIdle(code string) {
	code = NormalizeCode(code)
	room, ok := g.store.Get(code)
	if !ok {
		return
	}
	if room.IsIdle() {
		g.store.Delete(code)
	}
}

// NormalizeCode uppercases and trims an externally supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newRoomCode() (string, error) {
	buf := make([]byte, RoomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
