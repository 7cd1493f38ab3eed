package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFrame(t *testing.T, conn *websocket.Conn) TranscriptMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg TranscriptMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestTranscriptWS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", `{"skill":"Go","difficulty":"easy"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	id := decodeView(t, rec).ID
	require.Eventually(t, func() bool {
		return strings.Contains(env.do(t, http.MethodGet, "/api/v1/sessions/"+id, "").Body.String(), `"phase":"active"`)
	}, 2*time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/transcript/ws?token=" + env.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "connected", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(TranscriptMessage{Type: "final", Data: "a closure"}))
	msg := readFrame(t, conn)
	assert.Equal(t, "transcript", msg.Type)
	assert.Equal(t, "a closure", msg.Data)

	require.NoError(t, conn.WriteJSON(TranscriptMessage{Type: "interim", Data: "captures"}))
	assert.Equal(t, "a closure captures", readFrame(t, conn).Data)

	require.NoError(t, conn.WriteJSON(TranscriptMessage{Type: "text", Data: "typed"}))
	assert.Equal(t, "error", readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(TranscriptMessage{Type: "bogus"}))
	assert.Equal(t, "error", readFrame(t, conn).Type)

	// advancing keeps the stream open with a cleared transcript
	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/next", `{"answer":"a closure captures"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, conn.WriteJSON(TranscriptMessage{Type: "final", Data: "goroutines"}))
	msg = readFrame(t, conn)
	assert.Equal(t, "transcript", msg.Type)
	assert.Equal(t, "goroutines", msg.Data)

	rec = env.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/quit", `{"reason":"other"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	msg = readFrame(t, conn)
	assert.Equal(t, "closed", msg.Type)
	assert.Equal(t, "quit", msg.Data)
}

func TestTranscriptWS_Rejects(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/missing/transcript/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+env.token, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
