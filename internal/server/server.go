package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"kingassassins/internal/game"
	"kingassassins/internal/session"
)

// DefaultReadLimit bounds one inbound websocket message.
const DefaultReadLimit = 64 << 10

// Server is the HTTP server.
type Server struct {
	mux       *http.ServeMux
	registry  *game.Registry
	manager   *session.Manager
	readLimit int64
}

// New creates a server with all routes. A readLimit of zero uses
// DefaultReadLimit.
func New(registry *game.Registry, manager *session.Manager, readLimit int64) *Server {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	s := &Server{
		mux:       http.NewServeMux(),
		registry:  registry,
		manager:   manager,
		readLimit: readLimit,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{code}", s.handleGetSession)
	s.mux.HandleFunc("GET /api/sessions/{code}/ws", s.handleWebSocket)
	s.mux.HandleFunc("POST /api/sessions/{code}/start", s.handleStartSession)
	s.mux.HandleFunc("POST /api/sessions/{code}/bots", s.handleAddBot)
	s.mux.HandleFunc("GET /api/sessions/{code}/render", s.handleRender)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

type createSessionRequest struct {
	GameType string `json:"gameType"`
	PlayerID string `json:"playerId"`
}

type createSessionResponse struct {
	Code string `json:"code"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.GameType = strings.TrimSpace(req.GameType)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.GameType == "" || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "gameType and playerId required")
		return
	}
	if strings.HasPrefix(req.PlayerID, session.BotPrefix) {
		writeError(w, http.StatusBadRequest, "player ids starting with "+session.BotPrefix+" are reserved")
		return
	}

	sess, err := s.manager.Create(req.GameType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.manager.Join(sess, req.PlayerID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{Code: sess.Code})
}

// lookup resolves the {code} path value, writing a 404 when unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.manager.Get(r.PathValue("code"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return sess, ok
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Info())
	}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.manager.Start(sess); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.broadcastState(sess)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

type addBotResponse struct {
	PlayerID string `json:"playerId"`
}

func (s *Server) handleAddBot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id, err := s.manager.AddBot(sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.broadcastState(sess)
	writeJSON(w, http.StatusCreated, addBotResponse{PlayerID: id})
}

// handleRender serves the public text board. Requests carry no seat
// identity, so secrets appear only once the game is over. Seated players get
// their own board through the "render" WebSocket message.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.RLock()
	match := sess.Match
	var text string
	renderer, canRender := match.(game.Renderer)
	if canRender {
		text = renderer.Render("")
	}
	sess.RUnlock()

	switch {
	case match == nil:
		writeError(w, http.StatusConflict, "game not started")
	case !canRender:
		writeError(w, http.StatusNotImplemented, sess.GameType+" has no text board")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
