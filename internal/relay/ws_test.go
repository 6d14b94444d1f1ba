package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querybee/querybee/internal/server"
	"github.com/querybee/querybee/internal/token"
)

func dialChat(t *testing.T, h http.Handler) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	return conn
}

func TestWebSocketChat(t *testing.T) {
	up, srv := newUpstream(t, func(string) (int, string) { return http.StatusOK, admissionReply })
	_, r := newTestRelay(t, srv.URL, token.Options{ManualToken: "manual"})
	conn := dialChat(t, r)

	require.NoError(t, conn.WriteJSON(chatRequest{Type: "message", Content: "admission"}))
	var first chatResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "response", first.Type)
	assert.Equal(t, "Visit the admissions office.", first.Content)
	assert.Equal(t, SourceIntent, first.Source)
	require.NotNil(t, first.Intent)
	assert.Equal(t, "admission.info", *first.Intent)
	assert.NotEmpty(t, first.SessionID)

	// The generated session carries over to the next message.
	require.NoError(t, conn.WriteJSON(chatRequest{Type: "message", Content: "followup"}))
	var second chatResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Len(t, up.calls(), 2)
}

func TestWebSocketChatThroughServerMiddleware(t *testing.T) {
	_, srv := newUpstream(t, func(string) (int, string) { return http.StatusOK, admissionReply })
	rl, _ := newTestRelay(t, srv.URL, token.Options{ManualToken: "manual"})

	s := server.New(server.Config{})
	RegisterRoutes(s.Router(), rl)
	conn := dialChat(t, s.Router())

	require.NoError(t, conn.WriteJSON(chatRequest{Type: "message", Content: "admission"}))
	var resp chatResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "response", resp.Type)
	assert.Equal(t, "Visit the admissions office.", resp.Content)
}

func TestWebSocketErrors(t *testing.T) {
	up, srv := newUpstream(t, func(string) (int, string) { return http.StatusOK, admissionReply })
	_, r := newTestRelay(t, srv.URL, token.Options{ManualToken: "manual"})
	conn := dialChat(t, r)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var resp chatResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "invalid message format", resp.Content)

	require.NoError(t, conn.WriteJSON(chatRequest{Type: "message", SessionID: "s1"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, "content is required", resp.Content)

	require.NoError(t, conn.WriteJSON(chatRequest{Type: "ask", Content: "admission"}))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Content, "unknown message type")

	assert.Empty(t, up.calls())
}
