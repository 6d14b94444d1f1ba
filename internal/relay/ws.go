package relay

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"` // "message"
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string  `json:"type"` // "response" or "error"
	SessionID string  `json:"session_id"`
	Content   string  `json:"content"`
	Intent    *string `json:"intent,omitempty"`
	Source    Source  `json:"source,omitempty"`
}

// handleWebSocket serves a chat session over one connection. A session id
// generated for the first message is reused for the rest of the connection
// unless the client sends its own.
func (rl *Relay) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rl.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Time{})

	var lastSession string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				rl.log.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			rl.sendWS(conn, chatResponse{Type: "error", Content: "invalid message format"})
			continue
		}
		if req.Type != "" && req.Type != "message" {
			rl.sendWS(conn, chatResponse{Type: "error", SessionID: req.SessionID, Content: "unknown message type: " + req.Type})
			continue
		}
		if req.SessionID == "" {
			req.SessionID = lastSession
		}

		resp, err := rl.Detect(r.Context(), Request{Query: req.Content, SessionID: req.SessionID})
		if err != nil {
			content := Describe(err, rl.cfg.ProjectID)
			if IsValidation(err) {
				content = "content is required"
			}
			rl.sendWS(conn, chatResponse{Type: "error", SessionID: req.SessionID, Content: content})
			continue
		}

		lastSession = resp.SessionID
		rl.sendWS(conn, chatResponse{
			Type:      "response",
			SessionID: resp.SessionID,
			Content:   resp.Response,
			Intent:    resp.Intent,
			Source:    resp.Source,
		})
	}
}

func (rl *Relay) sendWS(conn *websocket.Conn, resp chatResponse) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(resp); err != nil {
		rl.log.Warn().Err(err).Msg("websocket write")
	}
}
