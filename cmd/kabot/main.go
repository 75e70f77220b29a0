// Command kabot joins a King & Assassins session over WebSocket and plays its
// seat with the heuristic planner until the game ends.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"kingassassins/internal/engine"
	"kingassassins/internal/game"
	"kingassassins/internal/game/kingassassins"
	"kingassassins/internal/logging"
	"kingassassins/internal/planner"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type statePayload struct {
	State   json.RawMessage     `json:"state"`
	Results []game.PlayerResult `json:"results"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// view is the part of the host's state message the bot reads.
type view struct {
	engine.AssassinView
	Seat    string `json:"seat"`
	Turn    string `json:"turn"`
	Initial bool   `json:"initial"`
}

type bot struct {
	name    string
	conn    *websocket.Conn
	plan    *planner.Planner
	last    []byte // state we last answered
	pending bool   // a planned batch is awaiting the host
}

func main() {
	var (
		serverURL string
		code      string
		name      string
		seed      uint64
		level     string
	)
	flag.StringVar(&serverURL, "server", "ws://localhost:8080", "server base URL")
	flag.StringVar(&code, "session", "", "session code to join")
	flag.StringVar(&name, "name", "", "player id (default kabot-<random>)")
	flag.Uint64Var(&seed, "seed", 0, "planner seed (0 = time)")
	flag.StringVar(&level, "log-level", "info", "log level")
	flag.Parse()

	if err := logging.Setup(os.Stderr, level, true); err != nil {
		log.Fatal().Err(err).Msg("configure logging")
	}
	if code == "" {
		log.Fatal().Msg("-session is required")
	}
	if name == "" {
		name = "kabot-" + uuid.NewString()[:8]
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	u, err := wsURL(serverURL, code)
	if err != nil {
		log.Fatal().Err(err).Msg("server url")
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", u).Msg("dial")
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	b := &bot{
		name: name,
		conn: conn,
		plan: planner.New(rand.New(rand.NewSource(seed))),
	}
	if err := b.run(); err != nil {
		log.Fatal().Err(err).Msg("kabot")
	}
}

func wsURL(base, code string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/sessions/" + url.PathEscape(code) + "/ws"
	return u.String(), nil
}

func (b *bot) send(msgType string, payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.conn.WriteJSON(envelope{Type: msgType, Payload: p})
}

func (b *bot) run() error {
	if err := b.send("join", map[string]string{"playerId": b.name}); err != nil {
		return errors.Wrap(err, "join")
	}
	log.Info().Str("player", b.name).Msg("joined")

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			return errors.Wrap(err, "decode message")
		}
		switch msg.Type {
		case "state":
			done, err := b.onState(msg.Payload)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		case "error":
			if err := b.onError(msg.Payload); err != nil {
				return err
			}
		}
	}
}

// onState reports true once the game has a result.
func (b *bot) onState(raw json.RawMessage) (bool, error) {
	var sp statePayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return false, errors.Wrap(err, "decode state")
	}
	if len(sp.Results) > 0 {
		for _, r := range sp.Results {
			log.Info().Str("player", r.PlayerID).Int("rank", r.Rank).Msg("result")
		}
		return true, nil
	}
	if len(sp.State) == 0 || string(sp.State) == "null" {
		return false, nil
	}
	var v view
	if err := json.Unmarshal(sp.State, &v); err != nil {
		return false, errors.Wrap(err, "decode view")
	}
	if v.Turn != b.name {
		b.pending = false
		return false, nil
	}
	if bytes.Equal(sp.State, b.last) {
		return false, nil
	}
	b.last = append(b.last[:0], sp.State...)
	b.pending = !v.Initial
	return false, b.act(v)
}

func (b *bot) act(v view) error {
	if v.Initial {
		names := b.plan.Designate()
		log.Info().Strs("assassins", names).Msg("designating")
		return b.submit(kingassassins.TypeAssassins, engine.SetupSubmission{Assassins: names})
	}
	var actions []engine.Action
	if v.Seat == engine.SideCrown.String() {
		actions = b.plan.Crown(v.Public)
	} else {
		actions = b.plan.Assassins(v.AssassinView)
	}
	if actions == nil {
		actions = []engine.Action{}
	}
	log.Debug().Int("actions", len(actions)).Int("cardsLeft", v.CardsLeft).Msg("playing turn")
	return b.submit(kingassassins.TypeTurn, engine.TurnSubmission{Actions: actions})
}

// onError falls back to passing when the host refuses a planned batch.
func (b *bot) onError(raw json.RawMessage) error {
	var ep errorPayload
	_ = json.Unmarshal(raw, &ep)
	log.Warn().Str("reason", ep.Message).Msg("host error")
	if !b.pending {
		return nil
	}
	b.pending = false
	return b.submit(kingassassins.TypeTurn, engine.TurnSubmission{Actions: []engine.Action{}})
}

func (b *bot) submit(actionType string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	action := game.Action{Type: actionType, Payload: payload}
	return errors.Wrap(b.send("action", map[string]game.Action{"action": action}), "send action")
}
