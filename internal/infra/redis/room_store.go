package redis

import (
	"context"
	"sync"
	"time"

	"quizroom-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// RoomStore is a Redis-aware implementation of app.RoomStore.
// Notes:
//   - Rooms themselves stay in a local in-memory map; a room's mutex-guarded
//     state cannot usefully cross process boundaries.
//   - Redis marks code liveness, which also reserves codes across instances
//     and could be extended to route cross-instance pub/sub.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) PutIfAbsent(code string, room *app.Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		return false
	}
	// SetNX reserves the code cluster-wide; a false reply means another
	// instance holds it.
	reserved, err := s.client.SetNX(context.Background(), s.key(code), "1", s.ttl).Result()
	if err == nil && !reserved {
		return false
	}
	s.rooms[code] = room
	return true
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

func (s *RoomStore) key(code string) string {
	return "room:code:" + code
}
