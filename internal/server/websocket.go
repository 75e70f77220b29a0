package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"kingassassins/internal/game"
	"kingassassins/internal/session"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	PlayerID string `json:"playerId"`
}

type actionPayload struct {
	Action game.Action `json:"action"`
}

type statePayload struct {
	State        any                 `json:"state"`
	ValidActions []game.Action       `json:"validActions"`
	SessionInfo  session.Info        `json:"sessionInfo"`
	Results      []game.PlayerResult `json:"results,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type boardPayload struct {
	Board string `json:"board"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	sess, ok := s.manager.Get(code)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		log.Warn().Err(err).Str("session", code).Msg("websocket accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(s.readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// First message must be a join
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "join" {
		sendWSError(ctx, conn, "first message must be a join")
		return
	}
	var join joinPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil || join.PlayerID == "" {
		sendWSError(ctx, conn, "invalid join payload")
		return
	}

	playerID := join.PlayerID
	send := make(chan []byte, 64)

	// Reconnect to an existing seat, or seat a new player
	err = sess.ConnectPlayer(playerID, send)
	if errors.Is(err, session.ErrUnknownPlayer) {
		if err := s.manager.Join(sess, playerID); err != nil {
			sendWSError(ctx, conn, err.Error())
			return
		}
		err = sess.ConnectPlayer(playerID, send)
	}
	if err != nil {
		sendWSError(ctx, conn, err.Error())
		return
	}
	log.Info().Str("session", code).Str("player", playerID).Msg("player connected")
	defer func() {
		s.manager.Disconnect(sess, playerID, send)
		s.broadcastState(sess)
	}()

	// Notify all players about the roster change
	s.broadcastState(sess)

	go func() {
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusMessageTooBig {
				log.Warn().Str("session", code).Str("player", playerID).Int64("limit", s.readLimit).Msg("message too big")
			}
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: "invalid message"})
			continue
		}
		s.handleMessage(sess, playerID, send, msg)
	}

	// A running game keeps the seat for a reconnect
	log.Info().Str("session", code).Str("player", playerID).Msg("player disconnected")
}

func (s *Server) handleMessage(sess *session.Session, playerID string, send chan []byte, msg WSMessage) {
	switch msg.Type {
	case "action":
		var ap actionPayload
		if err := json.Unmarshal(msg.Payload, &ap); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: "invalid action payload"})
			return
		}
		if err := s.manager.Apply(sess, playerID, ap.Action); err != nil {
			log.Debug().Err(err).Str("session", sess.Code).Str("player", playerID).Msg("action rejected")
			sendWSMsg(send, "error", errorPayload{Message: err.Error()})
			return
		}
		s.broadcastState(sess)

	case "render":
		sess.RLock()
		renderer, ok := sess.Match.(game.Renderer)
		var board string
		if ok {
			board = renderer.Render(playerID)
		}
		sess.RUnlock()
		if !ok {
			sendWSMsg(send, "error", errorPayload{Message: "no board to render"})
			return
		}
		sendWSMsg(send, "board", boardPayload{Board: board})

	case "start":
		if sess.Info().HostID != playerID {
			sendWSMsg(send, "error", errorPayload{Message: "only the host can start"})
			return
		}
		if err := s.manager.Start(sess); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: err.Error()})
			return
		}
		s.broadcastState(sess)

	case "addBot":
		if sess.Info().HostID != playerID {
			sendWSMsg(send, "error", errorPayload{Message: "only the host can add bots"})
			return
		}
		if _, err := s.manager.AddBot(sess); err != nil {
			sendWSMsg(send, "error", errorPayload{Message: err.Error()})
			return
		}
		s.broadcastState(sess)

	default:
		sendWSMsg(send, "error", errorPayload{Message: "unknown message type: " + msg.Type})
	}
}

// broadcastState sends every connected player its own view of the match.
func (s *Server) broadcastState(sess *session.Session) {
	sess.RLock()
	defer sess.RUnlock()
	info := sess.InfoLocked()
	match := sess.Match

	for _, pid := range info.Players {
		p := sess.Players[pid]
		if p == nil || p.Send == nil {
			continue
		}
		sp := statePayload{SessionInfo: info}
		if match != nil && info.Status != session.StatusWaiting {
			sp.State = match.State(pid)
			sp.ValidActions = match.ValidActions(pid)
			if match.IsOver() {
				sp.Results = match.Results()
			}
		}
		sendWSMsg(p.Send, "state", sp)
	}
}

func sendWSMsg(send chan []byte, msgType string, payload any) {
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	select {
	case send <- msg:
	default:
	}
}

func sendWSError(ctx context.Context, conn *websocket.Conn, message string) {
	p, _ := json.Marshal(errorPayload{Message: message})
	msg, _ := json.Marshal(WSMessage{Type: "error", Payload: p})
	conn.Write(ctx, websocket.MessageText, msg)
}
