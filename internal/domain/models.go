package domain

import "time"

// RoomState is the phase a room is in. Transitions only move
// lobby -> question -> reveal -> (question | ended).
type RoomState string

const (
	StateLobby    RoomState = "lobby"
	StateQuestion RoomState = "question"
	StateReveal   RoomState = "reveal"
	StateEnded    RoomState = "ended"
)

// Media is an optional attachment shown alongside a question.
type Media struct {
	Kind    string `json:"kind"` // image, audio or video
	Locator string `json:"locator"`
}

// Question models an MCQ question with a single correct option index.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Points       int      `json:"points"`       // defaults to 1 if zero
	TimeLimitSec int      `json:"timeLimitSec"` // advisory, not enforced server-side
	Media        *Media   `json:"media,omitempty"`
}

// QuestionSet is a curated collection of questions a host can load by ID.
type QuestionSet struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Player represents a scored participant in a room.
type Player struct {
	ID       string
	Name     string
	Score    int
	JoinedAt time.Time
}

// Answer records one player's response to the live question. Elapsed time
// is measured server-side from the question start, never taken from clients.
type Answer struct {
	ChosenIndex    int
	ElapsedSeconds float64
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RosterEntry is a player as shown to the room before any scoring.
type RosterEntry struct {
	Name string `json:"name"`
}

// RoomSnapshot is the state summary returned to a freshly joined player.
type RoomSnapshot struct {
	Code          string        `json:"code"`
	State         RoomState     `json:"state"`
	Players       []RosterEntry `json:"players"`
	QuestionCount int           `json:"questionCount"`
}

// QuestionView is the client-facing form of the current question.
// It never carries the correct index.
type QuestionView struct {
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
	TimeLimitSec int      `json:"timeLimitSec"`
	Media        *Media   `json:"media,omitempty"`
}

// AnswerAck confirms a recorded answer and reports submission progress.
type AnswerAck struct {
	Index          int     `json:"index"`
	Answered       int     `json:"answered"`
	Players        int     `json:"players"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// Award is one player's earnings for a single question, in speed-rank order.
type Award struct {
	Name           string  `json:"name"`
	Points         int     `json:"points"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

// RevealView closes a question: the correct option, per-player awards and
// the recomputed leaderboard.
type RevealView struct {
	Index        int                `json:"index"`
	CorrectIndex int                `json:"correctIndex"`
	Awards       []Award            `json:"awards"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
}

// GameOverView is broadcast once a room reaches the ended state.
type GameOverView struct {
	Code        string             `json:"code"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}
