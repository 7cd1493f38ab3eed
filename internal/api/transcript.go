package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/terra-clan/interview-engine/internal/interview"
)

const maxTranscriptMessage = 64 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TranscriptMessage is one frame of the voice transcript stream.
// Clients send interim, final, restart, mode and text frames; the server
// answers with connected, transcript, error and closed frames.
type TranscriptMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// transcriptStream serializes writes to one connection
type transcriptStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *transcriptStream) send(msg TranscriptMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal transcript message", "error", err)
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send transcript message", "error", err)
		return err
	}
	return nil
}

func (t *transcriptStream) sendError(message string) {
	t.send(TranscriptMessage{Type: "error", Data: message})
}

func (s *Server) handleTranscriptWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := UserFromContext(r.Context())

	session, err := s.deps.Sessions.Get(r.Context(), id, user.ID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if session.Phase().Terminal() {
		http.Error(w, "session is finished", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxTranscriptMessage)

	stream := &transcriptStream{conn: conn}

	// Submitting, quitting, deleting or reaping the session ends the stream
	var once sync.Once
	stop := func() {
		once.Do(func() {
			stream.send(TranscriptMessage{Type: "closed", Data: string(session.Phase())})
			conn.Close()
		})
	}
	removeHook := session.OnStop(stop)
	defer removeHook()

	slog.Info("transcript websocket connected", "session_id", id, "user", user.ID)

	stream.send(TranscriptMessage{
		Type: "connected",
		Data: session.Draft(),
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg TranscriptMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			stream.sendError("invalid message format")
			continue
		}

		if err := applyTranscriptMessage(session, msg); err != nil {
			stream.sendError(err.Error())
			continue
		}

		if err := stream.send(TranscriptMessage{Type: "transcript", Data: session.Draft()}); err != nil {
			break
		}
	}

	slog.Info("transcript websocket disconnected", "session_id", id)
}

// applyTranscriptMessage routes one client frame to the session
func applyTranscriptMessage(session *interview.Session, msg TranscriptMessage) error {
	switch msg.Type {
	case "interim":
		return session.VoiceInterim(msg.Data)
	case "final":
		return session.VoiceFinal(msg.Data)
	case "restart":
		return session.VoiceRestart()
	case "mode":
		return session.SetInputMode(interview.InputMode(msg.Data))
	case "text":
		return session.EditText(msg.Data)
	default:
		return errors.New("unknown message type: " + msg.Type)
	}
}
