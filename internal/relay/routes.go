package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	msgMissingQueryBody  = "Missing 'query' in request body"
	msgMissingQueryParam = "Missing 'query' in query string"
)

// RegisterRoutes mounts the relay endpoints on the given router.
func RegisterRoutes(r chi.Router, rl *Relay) {
	// Two upstream attempts plus a token exchange must fit in the deadline.
	api := r.With(middleware.Timeout(2*rl.cfg.Timeout + 5*time.Second))
	api.Post("/api/dialogflow", handleDetectBody(rl))
	api.Get("/api/dialogflow", handleDetectQuery(rl))
	api.Get("/api/token-status", handleTokenStatus(rl))
	api.Get("/api/diagnose", handleDiagnose(rl))

	r.Get("/ws/chat", rl.handleWebSocket)
}

type detectBody struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

func handleDetectBody(rl *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body detectBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "Invalid JSON in request body"})
			return
		}

		resp, err := rl.Detect(r.Context(), Request{Query: body.Query, SessionID: body.SessionID})
		if err != nil {
			rl.writeError(w, err, msgMissingQueryBody)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// kbDebug is attached to GET replies.
type kbDebug struct {
	HasAnswers  bool `json:"hasAnswers"`
	AnswerCount int  `json:"answerCount"`
}

type debugResponse struct {
	*Response
	KBDebug kbDebug `json:"kbDebug"`
}

func handleDetectQuery(rl *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		resp, err := rl.Detect(r.Context(), Request{Query: q.Get("query"), SessionID: q.Get("sessionId")})
		if err != nil {
			rl.writeError(w, err, msgMissingQueryParam)
			return
		}
		writeJSON(w, http.StatusOK, debugResponse{
			Response: resp,
			KBDebug:  kbDebug{HasAnswers: resp.AnswerCount > 0, AnswerCount: resp.AnswerCount},
		})
	}
}

func handleTokenStatus(rl *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rl.TokenStatus())
	}
}

func handleDiagnose(rl *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rl.Diagnose())
	}
}

func (rl *Relay) writeError(w http.ResponseWriter, err error, missingQuery string) {
	if IsValidation(err) {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: missingQuery})
		return
	}
	writeJSON(w, http.StatusInternalServerError, NewErrorBody(err, rl.cfg.ProjectID, rl.cfg.Development))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
