package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketSessionFlow(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	host := dial(t, server, "/ws?role=host")
	defer host.Close()

	created := waitFor(t, host, "room_created")
	code, _ := created["code"].(string)
	if len(code) != app.RoomCodeLength {
		t.Fatalf("expected room code, got %+v", created)
	}

	player := dial(t, server, "/ws?code="+code+"&name=Alice")
	defer player.Close()
	waitFor(t, player, "joined")
	waitFor(t, host, "roster")

	writeJSON(t, host, map[string]any{
		"type": "load_questions",
		"payload": map[string]any{
			"questions": []map[string]any{
				{
					"text":         "What is 2 + 2?",
					"options":      []string{"3", "4", "5"},
					"correctIndex": 1,
					"points":       1000,
					"timeLimitSec": 20,
				},
			},
		},
	})
	loaded := waitFor(t, host, "questions_loaded")
	if count, _ := loaded["count"].(float64); count != 1 {
		t.Fatalf("expected 1 loaded question, got %+v", loaded)
	}

	writeJSON(t, host, map[string]any{"type": "start"})
	question := waitFor(t, player, "question")
	if question["text"] != "What is 2 + 2?" {
		t.Fatalf("expected question broadcast, got %+v", question)
	}
	if _, ok := question["correctIndex"]; ok {
		t.Fatalf("question broadcast must not leak the correct index: %+v", question)
	}

	writeJSON(t, player, map[string]any{
		"type":    "answer",
		"payload": map[string]any{"choice": 1},
	})
	ack := waitFor(t, player, "answer_ack")
	if answered, _ := ack["answered"].(float64); answered != 1 {
		t.Fatalf("expected answer recorded, got %+v", ack)
	}
	count := waitFor(t, host, "answer_count")
	if answered, _ := count["answered"].(float64); answered != 1 {
		t.Fatalf("expected host answer count, got %+v", count)
	}

	writeJSON(t, host, map[string]any{"type": "reveal"})
	reveal := waitFor(t, player, "reveal")
	if correct, _ := reveal["correctIndex"].(float64); correct != 1 {
		t.Fatalf("expected correct index in reveal, got %+v", reveal)
	}

	writeJSON(t, host, map[string]any{"type": "next"})
	over := waitFor(t, player, "game_over")
	if over["leaderboard"] == nil {
		t.Fatalf("expected final leaderboard, got %+v", over)
	}
}

func TestWebSocketRejectsBadJoin(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	// Missing code and name fails before the upgrade.
	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	// Unknown room code fails after the upgrade with an error message.
	conn := dial(t, server, "/ws?code=NOSUCH&name=Alice")
	defer conn.Close()
	msg := waitFor(t, conn, "error")
	if msg["message"] == "" {
		t.Fatalf("expected error message, got %+v", msg)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.Engine) {
	t.Helper()
	store := memory.NewRoomStore()
	catalog := memory.NewSetCache(memory.NewStaticSetLoader(map[string]domain.QuestionSet{}), time.Minute)
	engine := app.NewEngine(app.NewRegistry(store), catalog)
	wsHandler := NewWSHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	return httptest.NewServer(mux), engine
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

func writeJSON(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

// waitFor reads messages until one of the wanted type arrives, skipping
// unrelated broadcasts (roster updates, etc).
func waitFor(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read while waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
	t.Fatalf("did not receive %s", want)
	return nil
}
