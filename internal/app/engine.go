package app

import (
	"context"

	"quizroom-service/internal/domain"
)

// SetRepository loads question-set content (from cache/backing store).
type SetRepository interface {
	GetSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// Engine contains the session use cases. It performs no I/O itself: every
// operation validates actor and state, mutates one room, and returns a
// direct result plus broadcast instructions for the transport to deliver.
type Engine struct {
	registry *Registry
	catalog  SetRepository
}

func NewEngine(registry *Registry, catalog SetRepository) *Engine {
	return &Engine{registry: registry, catalog: catalog}
}

// CreateRoom mints a room owned by hostID and returns its code.
func (e *Engine) CreateRoom(hostID string) (string, error) {
	room, err := e.registry.Create(hostID)
	if err != nil {
		return "", err
	}
	return room.Code(), nil
}

// LoadQuestions replaces the room's question list with a sanitized copy.
func (e *Engine) LoadQuestions(code, actorID string, questions []domain.Question) (int, error) {
	room, ok := e.registry.Get(code)
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	return room.loadQuestions(actorID, questions)
}

// LoadQuestionSet fetches a curated set from the catalog and loads it.
func (e *Engine) LoadQuestionSet(ctx context.Context, code, actorID, setID string) (int, error) {
	room, ok := e.registry.Get(code)
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	set, err := e.catalog.GetSet(ctx, setID)
	if err != nil {
		return 0, err
	}
	return room.loadQuestions(actorID, set.Questions)
}

// Join attaches a player to a lobby room and announces the new roster.
func (e *Engine) Join(code, playerID, name string) (domain.RoomSnapshot, []domain.Event, error) {
	room, ok := e.registry.Get(code)
	if !ok {
		return domain.RoomSnapshot{}, nil, domain.ErrRoomNotFound
	}
	snapshot, err := room.join(playerID, name)
	if err != nil {
		return domain.RoomSnapshot{}, nil, err
	}
	events := []domain.Event{domain.RoomEvent(room.Code(), "roster", snapshot)}
	return snapshot, events, nil
}

// Start moves the room to its first question.
func (e *Engine) Start(code, actorID string) (domain.QuestionView, []domain.Event, error) {
	room, ok := e.registry.Get(code)
	if !ok {
		return domain.QuestionView{}, nil, domain.ErrRoomNotFound
	}
	view, err := room.start(actorID)
	if err != nil {
		return domain.QuestionView{}, nil, err
	}
	events := []domain.Event{domain.RoomEvent(room.Code(), "question", view)}
	return view, events, nil
}

// SubmitAnswer records a player's answer with server-measured elapsed time.
// The running answer count goes to the host only.
func (e *Engine) SubmitAnswer(code, playerID string, choice int) (domain.AnswerAck, []domain.Event, error) {
	room, ok := e.registry.Get(code)
	if !ok {
		return domain.AnswerAck{}, nil, domain.ErrRoomNotFound
	}
	ack, err := room.submitAnswer(playerID, choice)
	if err != nil {
		return domain.AnswerAck{}, nil, err
	}
	var events []domain.Event
	if hostID := room.HostID(); hostID != "" {
		events = append(events, domain.ConnEvent(hostID, "answer_count", ack))
	}
	return ack, events, nil
}

// Reveal closes the current question, applies scoring and publishes the
// recomputed leaderboard.
func (e *Engine) Reveal(code, actorID string) (domain.RevealView, []domain.Event, error) {
	room, ok := e.registry.Get(code)
	if !ok {
		return domain.RevealView{}, nil, domain.ErrRoomNotFound
	}
	view, err := room.reveal(actorID)
	if err != nil {
		return domain.RevealView{}, nil, err
	}
	events := []domain.Event{domain.RoomEvent(room.Code(), "reveal", view)}
	return view, events, nil
}

// Next advances to the following question, or finalizes the room after the
// last one. The returned view is nil when the game ended.
func (e *Engine) Next(code, actorID string) (*domain.QuestionView, []domain.Event, error) {
	room, ok := e.registry.Get(code)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	view, final, err := room.next(actorID)
	if err != nil {
		return nil, nil, err
	}
	if view == nil {
		over := domain.GameOverView{Code: room.Code(), Leaderboard: final}
		return nil, []domain.Event{domain.RoomEvent(room.Code(), "game_over", over)}, nil
	}
	return view, []domain.Event{domain.RoomEvent(room.Code(), "question", *view)}, nil
}

// Disconnect handles a dropped connection: a departing host ends the game,
// a departing player just leaves the roster. Idle rooms are evicted.
func (e *Engine) Disconnect(code, connID string) []domain.Event {
	room, ok := e.registry.Get(code)
	if !ok {
		return nil
	}

	var events []domain.Event
	if room.HostID() == connID {
		final := room.endNow()
		over := domain.GameOverView{Code: room.Code(), Leaderboard: final}
		events = append(events, domain.RoomEvent(room.Code(), "game_over", over))
	} else if snapshot, removed := room.removePlayer(connID); removed {
		events = append(events, domain.RoomEvent(room.Code(), "roster", snapshot))
	}

	e.registry.DeleteIfIdle(room.Code())
	return events
}
