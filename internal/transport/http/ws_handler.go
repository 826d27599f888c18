package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	engine   *app.Engine
	hub      *hub
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type loadQuestionsPayload struct {
	Questions []domain.Question `json:"questions"`
}

type loadSetPayload struct {
	SetID string `json:"setId"`
}

type answerPayload struct {
	Choice int `json:"choice"`
}

type roomCreatedPayload struct {
	Code string `json:"code"`
}

type questionsLoadedPayload struct {
	Count int `json:"count"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// session engine. Hosts connect with role=host and get a fresh room code;
// players connect with a code and a display name.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	code := app.NormalizeCode(r.URL.Query().Get("code"))
	name := r.URL.Query().Get("name")

	if role != "host" && (code == "" || name == "") {
		http.Error(w, "missing code or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID, err := newConnID()
	if err != nil {
		log.Printf("ws identity: %v", err)
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	if role == "host" {
		code, err = h.engine.CreateRoom(connID)
		if err != nil {
			send <- errorMessage(err.Error())
			close(send)
			<-writerDone
			return
		}
		h.hub.attach(connID, code, send)
		send <- outboundMessage[any]{Type: "room_created", Payload: roomCreatedPayload{Code: code}}
	} else {
		snapshot, events, err := h.engine.Join(code, connID, name)
		if err != nil {
			send <- errorMessage(err.Error())
			close(send)
			<-writerDone
			return
		}
		h.hub.attach(connID, code, send)
		send <- outboundMessage[any]{Type: "joined", Payload: snapshot}
		h.hub.dispatch(events)
	}

	h.readLoop(r, conn, send, connID, code, role == "host")

	events := h.engine.Disconnect(code, connID)
	h.hub.detach(connID)
	h.hub.dispatch(events)
	close(send)
	<-writerDone
}

func (h *WSHandler) readLoop(r *http.Request, conn *websocket.Conn, send chan outboundMessage[any], connID, code string, isHost bool) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		if isHost {
			h.handleHostMessage(r, send, connID, code, inbound)
		} else {
			h.handlePlayerMessage(send, connID, code, inbound)
		}
	}
}

func (h *WSHandler) handleHostMessage(r *http.Request, send chan outboundMessage[any], connID, code string, inbound inboundMessage) {
	switch inbound.Type {
	case "load_questions":
		var payload loadQuestionsPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errorMessage("invalid load_questions payload")
			return
		}
		count, err := h.engine.LoadQuestions(code, connID, payload.Questions)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "questions_loaded", Payload: questionsLoadedPayload{Count: count}}

	case "load_set":
		var payload loadSetPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errorMessage("invalid load_set payload")
			return
		}
		count, err := h.engine.LoadQuestionSet(r.Context(), code, connID, payload.SetID)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "questions_loaded", Payload: questionsLoadedPayload{Count: count}}

	case "start":
		_, events, err := h.engine.Start(code, connID)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		h.hub.dispatch(events)

	case "reveal":
		_, events, err := h.engine.Reveal(code, connID)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		h.hub.dispatch(events)

	case "next":
		_, events, err := h.engine.Next(code, connID)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		h.hub.dispatch(events)

	default:
		send <- errorMessage("unsupported message type")
	}
}

func (h *WSHandler) handlePlayerMessage(send chan outboundMessage[any], connID, code string, inbound inboundMessage) {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errorMessage("invalid answer payload")
			return
		}
		ack, events, err := h.engine.SubmitAnswer(code, connID, payload.Choice)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "answer_ack", Payload: ack}
		h.hub.dispatch(events)

	default:
		send <- errorMessage("unsupported message type")
	}
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

// newConnID mints the stable opaque identity tagged to a connection for its
// lifetime.
func newConnID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
