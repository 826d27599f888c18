package app

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"quizroom-service/internal/domain"
)

// Sanitization caps applied when a host loads questions.
const (
	MaxQuestionsPerRoom = 50
	MaxQuestionTextLen  = 500
	MaxOptionTextLen    = 200
	MaxPlayerNameLen    = 32
	MinOptionsPerItem   = 2
	MaxOptionsPerItem   = 6
	DefaultTimeLimitSec = 30
)

// Room is one isolated quiz session. All operations on a room serialize on
// its mutex; rooms share no mutable state with each other.
type Room struct {
	code string
	now  func() time.Time

	mu          sync.Mutex
	state       domain.RoomState
	hostID      string
	players     map[string]*domain.Player
	questions   []liveQuestion
	current     int // -1 before start, monotonically increasing after
	startedAt   time.Time
	leaderboard []domain.LeaderboardEntry
}

// liveQuestion pairs an immutable question with its own answer set. The
// answer map is created fresh when the question activates and is retained
// afterwards for history; it is never shared across questions.
type liveQuestion struct {
	q       domain.Question
	answers map[string]domain.Answer
}

// NewRoom builds a room in the lobby state owned by hostID.
func NewRoom(code, hostID string) *Room {
	return NewRoomWithClock(code, hostID, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(code, hostID string, now func() time.Time) *Room {
	return &Room{
		code:    code,
		now:     now,
		state:   domain.StateLobby,
		hostID:  hostID,
		players: make(map[string]*domain.Player),
		current: -1,
	}
}

// Code returns the immutable room code.
func (r *Room) Code() string {
	return r.code
}

// State returns the current phase of the room.
func (r *Room) State() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HostID returns the connection identity of the room host, or "" after
// the host departed.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// IsEmpty reports whether the room has no players.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// IsIdle reports whether the room can be evicted: ended, or empty with no host.
func (r *Room) IsIdle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == domain.StateEnded || (len(r.players) == 0 && r.hostID == "")
}

func (r *Room) loadQuestions(actorID string, raw []domain.Question) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actorID != r.hostID || r.hostID == "" {
		return 0, domain.ErrNotHost
	}
	if r.state != domain.StateLobby {
		return 0, domain.ErrInvalidState
	}

	sanitized := sanitizeQuestions(raw)
	r.questions = make([]liveQuestion, len(sanitized))
	for i, q := range sanitized {
		r.questions[i] = liveQuestion{q: q}
	}
	return len(r.questions), nil
}

func (r *Room) join(playerID, name string) (domain.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.StateLobby {
		return domain.RoomSnapshot{}, domain.ErrGameAlreadyStarted
	}

	name = truncate(strings.TrimSpace(name), MaxPlayerNameLen)
	if player, ok := r.players[playerID]; ok {
		player.Name = name
	} else {
		r.players[playerID] = &domain.Player{
			ID:       playerID,
			Name:     name,
			JoinedAt: r.now(),
		}
	}
	return r.snapshotLocked(), nil
}

func (r *Room) start(actorID string) (domain.QuestionView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actorID != r.hostID || r.hostID == "" {
		return domain.QuestionView{}, domain.ErrNotHost
	}
	if r.state != domain.StateLobby {
		return domain.QuestionView{}, domain.ErrInvalidState
	}
	if len(r.questions) == 0 {
		return domain.QuestionView{}, domain.ErrNoQuestionsLoaded
	}

	r.state = domain.StateQuestion
	r.current = 0
	r.activateLocked()
	return r.questionViewLocked(), nil
}

func (r *Room) submitAnswer(playerID string, choice int) (domain.AnswerAck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.StateQuestion {
		return domain.AnswerAck{}, domain.ErrInvalidState
	}
	if _, ok := r.players[playerID]; !ok {
		return domain.AnswerAck{}, domain.ErrPlayerNotFound
	}

	answers := r.questions[r.current].answers
	if _, ok := answers[playerID]; ok {
		// A retried submission must never overwrite the original answer.
		return domain.AnswerAck{}, domain.ErrDuplicateAnswer
	}

	elapsed := r.now().Sub(r.startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	answers[playerID] = domain.Answer{ChosenIndex: choice, ElapsedSeconds: elapsed}
	return domain.AnswerAck{
		Index:          r.current,
		Answered:       len(answers),
		Players:        len(r.players),
		ElapsedSeconds: elapsed,
	}, nil
}

func (r *Room) reveal(actorID string) (domain.RevealView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actorID != r.hostID || r.hostID == "" {
		return domain.RevealView{}, domain.ErrNotHost
	}
	if r.state != domain.StateQuestion {
		return domain.RevealView{}, domain.ErrInvalidState
	}

	awards := r.scoreCurrentLocked()
	r.state = domain.StateReveal
	r.leaderboard = r.leaderboardLocked()
	return domain.RevealView{
		Index:        r.current,
		CorrectIndex: r.questions[r.current].q.CorrectIndex,
		Awards:       awards,
		Leaderboard:  r.leaderboard,
	}, nil
}

// next advances to the following question, or ends the room after the last
// one. The returned view is nil when the room ended.
func (r *Room) next(actorID string) (*domain.QuestionView, []domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if actorID != r.hostID || r.hostID == "" {
		return nil, nil, domain.ErrNotHost
	}
	if r.state != domain.StateReveal {
		return nil, nil, domain.ErrInvalidState
	}

	if r.current+1 >= len(r.questions) {
		r.state = domain.StateEnded
		r.leaderboard = r.leaderboardLocked()
		return nil, r.leaderboard, nil
	}

	r.current++
	r.state = domain.StateQuestion
	r.activateLocked()
	view := r.questionViewLocked()
	return &view, nil, nil
}

// endNow terminates the room regardless of phase; used when the host
// disconnects. Scores stay as already revealed.
func (r *Room) endNow() []domain.LeaderboardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hostID = ""
	if r.state != domain.StateEnded {
		r.state = domain.StateEnded
		r.leaderboard = r.leaderboardLocked()
	}
	return r.leaderboard
}

// removePlayer drops a player from the roster. Scores already applied to
// remaining players are untouched.
func (r *Room) removePlayer(playerID string) (domain.RoomSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[playerID]; !ok {
		return domain.RoomSnapshot{}, false
	}
	delete(r.players, playerID)
	return r.snapshotLocked(), true
}

// activateLocked attaches a fresh answer set and resets the question clock.
func (r *Room) activateLocked() {
	r.questions[r.current].answers = make(map[string]domain.Answer)
	r.startedAt = r.now()
}

func (r *Room) questionViewLocked() domain.QuestionView {
	q := r.questions[r.current].q
	return domain.QuestionView{
		Index:        r.current,
		Total:        len(r.questions),
		Text:         q.Text,
		Options:      q.Options,
		Points:       q.Points,
		TimeLimitSec: q.TimeLimitSec,
		Media:        q.Media,
	}
}

// scoreCurrentLocked applies speed-rank scoring for the current question:
// the n correct respondents are ranked ascending by elapsed time, and rank i
// earns round(points * (n-i) / n). Wrong or missing answers earn nothing.
func (r *Room) scoreCurrentLocked() []domain.Award {
	q := r.questions[r.current]

	type respondent struct {
		player *domain.Player
		answer domain.Answer
	}
	correct := make([]respondent, 0, len(q.answers))
	for playerID, answer := range q.answers {
		player, ok := r.players[playerID]
		if !ok {
			continue // answered, then left before reveal
		}
		if answer.ChosenIndex == q.q.CorrectIndex {
			correct = append(correct, respondent{player: player, answer: answer})
		}
	}

	sort.Slice(correct, func(i, j int) bool {
		if correct[i].answer.ElapsedSeconds != correct[j].answer.ElapsedSeconds {
			return correct[i].answer.ElapsedSeconds < correct[j].answer.ElapsedSeconds
		}
		// Stable order for equal times: earlier join, then name.
		if !correct[i].player.JoinedAt.Equal(correct[j].player.JoinedAt) {
			return correct[i].player.JoinedAt.Before(correct[j].player.JoinedAt)
		}
		return correct[i].player.Name < correct[j].player.Name
	})

	n := len(correct)
	awards := make([]domain.Award, 0, n)
	for i, resp := range correct {
		earned := int(math.Round(float64(q.q.Points) * float64(n-i) / float64(n)))
		resp.player.Score += earned
		awards = append(awards, domain.Award{
			Name:           resp.player.Name,
			Points:         earned,
			ElapsedSeconds: resp.answer.ElapsedSeconds,
		})
	}
	return awards
}

// leaderboardLocked fully resorts all players by score descending. Ties
// break by earliest join, then name, to keep the order deterministic.
func (r *Room) leaderboardLocked() []domain.LeaderboardEntry {
	players := make([]*domain.Player, 0, len(r.players))
	for _, player := range r.players {
		players = append(players, player)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].Name < players[j].Name
	})

	entries := make([]domain.LeaderboardEntry, len(players))
	for i, player := range players {
		entries[i] = domain.LeaderboardEntry{Name: player.Name, Score: player.Score}
	}
	return entries
}

func (r *Room) snapshotLocked() domain.RoomSnapshot {
	players := make([]*domain.Player, 0, len(r.players))
	for _, player := range r.players {
		players = append(players, player)
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].Name < players[j].Name
	})

	roster := make([]domain.RosterEntry, len(players))
	for i, player := range players {
		roster[i] = domain.RosterEntry{Name: player.Name}
	}
	return domain.RoomSnapshot{
		Code:          r.code,
		State:         r.state,
		Players:       roster,
		QuestionCount: len(r.questions),
	}
}

// sanitizeQuestions caps list length and field sizes and drops items that
// cannot be played (fewer than two options). Correct indexes are copied
// as-is; an out-of-range index simply never matches a submission.
func sanitizeQuestions(raw []domain.Question) []domain.Question {
	if len(raw) > MaxQuestionsPerRoom {
		raw = raw[:MaxQuestionsPerRoom]
	}

	out := make([]domain.Question, 0, len(raw))
	for _, q := range raw {
		if len(q.Options) < MinOptionsPerItem {
			continue
		}
		if len(q.Options) > MaxOptionsPerItem {
			q.Options = q.Options[:MaxOptionsPerItem]
		}
		options := make([]string, len(q.Options))
		for i, opt := range q.Options {
			options[i] = truncate(opt, MaxOptionTextLen)
		}
		q.Options = options
		q.Text = truncate(q.Text, MaxQuestionTextLen)
		if q.Points <= 0 {
			q.Points = 1
		}
		if q.TimeLimitSec <= 0 {
			q.TimeLimitSec = DefaultTimeLimitSec
		}
		out = append(out, q)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
