// Package kingassassins adapts the rules engine to the host's game.Match
// interface. Seat 0 holds the assassins and seat 1 the crown; seat 0 opens
// with the designation and the seats then strictly alternate.
package kingassassins

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"kingassassins/internal/engine"
	"kingassassins/internal/game"
	"kingassassins/internal/planner"
)

// Name is the registry key of the game.
const Name = "kingassassins"

// Action types accepted by ApplyAction.
const (
	TypeAssassins = "assassins"
	TypeTurn      = "turn"
)

var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrGameOver    = errors.New("game is over")
)

// Game implements game.Game.
type Game struct{}

func (Game) Info() game.GameInfo {
	return game.GameInfo{
		Name:       Name,
		MinPlayers: 2,
		MaxPlayers: 2,
		Seats:      []string{engine.SideAssassins.String(), engine.SideCrown.String()},
	}
}

func (Game) NewMatch(config game.MatchConfig) (game.Match, error) {
	if len(config.PlayerIDs) != 2 {
		return nil, fmt.Errorf("%s needs exactly 2 players, got %d", Name, len(config.PlayerIDs))
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	st, err := engine.NewState(engine.Options{Rand: rand.New(rand.NewSource(seed))})
	if err != nil {
		return nil, errors.Wrap(err, "new game")
	}
	return &Match{
		Players: [2]string{config.PlayerIDs[0], config.PlayerIDs[1]},
		Seed:    seed,
		Game:    st,
	}, nil
}

// Match implements game.Match, game.AutoPlayer and game.Renderer.
type Match struct {
	Players [2]string     `json:"players"`
	Seed    uint64        `json:"seed"`
	Turn    int           `json:"turn"`  // seat expected to submit next
	Moves   int           `json:"moves"` // accepted submissions so far
	Game    *engine.State `json:"game"`
}

// seat returns the side playerID sits on.
func (m *Match) seat(playerID string) (engine.Side, bool) {
	for i, p := range m.Players {
		if p == playerID {
			return engine.Side(i), true
		}
	}
	return 0, false
}

type stateView struct {
	engine.Public
	Assassins engine.VillagerSet `json:"assassins,omitempty"`
	Players   [2]string          `json:"players"`
	Seat      string             `json:"seat,omitempty"`
	Turn      string             `json:"turn,omitempty"`
	Initial   bool               `json:"initial"`
	Verdict   *engine.Verdict    `json:"verdict,omitempty"`
	Outcome   string             `json:"outcome,omitempty"`
}

// State returns the view of playerID. Only the assassin seat ever sees the
// designated names.
func (m *Match) State(playerID string) any {
	view := stateView{
		Public:  m.Game.Public(),
		Players: m.Players,
		Turn:    m.CurrentPlayer(),
		Initial: m.Game.IsInitialTurn(),
	}
	if side, ok := m.seat(playerID); ok {
		view.Seat = side.String()
		if side == engine.SideAssassins {
			view.Assassins = m.Game.AssassinView().Assassins
		}
	}
	if v := m.Game.Verdict(); v.Decided() {
		view.Verdict = &v
		view.Outcome = v.String()
	}
	return view
}

// ValidActions lists, for the player to move, every possible designation
// during setup and afterwards the empty batch plus each legal single action.
func (m *Match) ValidActions(playerID string) []game.Action {
	if m.IsOver() || playerID != m.CurrentPlayer() {
		return nil
	}
	if m.Game.IsInitialTurn() {
		var out []game.Action
		pop := engine.Population()
		for i := range pop {
			for j := i + 1; j < len(pop); j++ {
				for k := j + 1; k < len(pop); k++ {
					out = append(out, setupAction(pop[i].String(), pop[j].String(), pop[k].String()))
				}
			}
		}
		return out
	}
	side := engine.Side(m.Turn)
	var known engine.VillagerSet
	if side == engine.SideAssassins {
		known = m.Game.AssassinView().Assassins
	}
	pub := m.Game.Public()
	out := []game.Action{turnAction(nil)}
	for _, a := range pub.LegalActions(side, known) {
		out = append(out, turnAction([]engine.Action{a}))
	}
	return out
}

// ApplyAction validates and applies one submission. A rejected submission
// leaves the match untouched and the turn with the same player.
func (m *Match) ApplyAction(playerID string, action game.Action) error {
	if m.IsOver() {
		return ErrGameOver
	}
	if playerID != m.CurrentPlayer() {
		return ErrNotYourTurn
	}
	if m.Game.IsInitialTurn() {
		if action.Type != TypeAssassins {
			return fmt.Errorf("expected an %q action, got %q", TypeAssassins, action.Type)
		}
		var setup engine.SetupSubmission
		if err := json.Unmarshal(action.Payload, &setup); err != nil {
			return &engine.MalformedSetup{Reason: err.Error()}
		}
		if err := m.Game.DesignateAssassins(setup.Assassins); err != nil {
			return err
		}
	} else {
		if action.Type != TypeTurn {
			return fmt.Errorf("expected a %q action, got %q", TypeTurn, action.Type)
		}
		var turn engine.TurnSubmission
		if err := json.Unmarshal(action.Payload, &turn); err != nil {
			return &engine.InvalidMove{Index: -1, Reason: err.Error()}
		}
		if err := m.Game.ApplyTurn(engine.Side(m.Turn), turn.Actions); err != nil {
			return err
		}
	}
	m.Moves++
	m.Turn = 1 - m.Turn
	return nil
}

func (m *Match) CurrentPlayer() string {
	if m.IsOver() {
		return ""
	}
	return m.Players[m.Turn]
}

func (m *Match) IsOver() bool { return m.Game.Verdict().Decided() }

func (m *Match) Results() []game.PlayerResult {
	v := m.Game.Verdict()
	if !v.Decided() {
		return nil
	}
	winner := int(v.Winner)
	return []game.PlayerResult{
		{PlayerID: m.Players[winner], Rank: 1, Score: 1},
		{PlayerID: m.Players[1-winner], Rank: 2, Score: 0},
	}
}

// Plan computes the move of the player to act with the heuristic planner. The
// planner is reseeded from the match seed and move count, so a reloaded
// match plans exactly as it would have before the reload.
func (m *Match) Plan(playerID string) (game.Action, error) {
	if m.IsOver() {
		return game.Action{}, ErrGameOver
	}
	if playerID != m.CurrentPlayer() {
		return game.Action{}, ErrNotYourTurn
	}
	p := planner.New(rand.New(rand.NewSource(m.Seed + uint64(m.Moves)*0x9e3779b97f4a7c15)))
	if m.Game.IsInitialTurn() {
		return setupAction(p.Designate()...), nil
	}
	if engine.Side(m.Turn) == engine.SideCrown {
		return turnAction(p.Crown(m.Game.Public())), nil
	}
	return turnAction(p.Assassins(m.Game.AssassinView())), nil
}

// Render prints the board as playerID sees it. Once the game is over every
// viewer gets the full dump, secrets included.
func (m *Match) Render(playerID string) string {
	if m.IsOver() {
		return m.Game.Render()
	}
	if side, ok := m.seat(playerID); ok && side == engine.SideAssassins {
		view := m.Game.AssassinView()
		return fmt.Sprintf("   - Your assassins: %v\n%s", view.Assassins.Names(), view.Public.Render())
	}
	pub := m.Game.Public()
	return pub.Render()
}

func (m *Match) MarshalJSON() ([]byte, error) {
	type alias Match
	return json.Marshal((*alias)(m))
}

func (m *Match) UnmarshalJSON(data []byte) error {
	type alias Match
	if err := json.Unmarshal(data, (*alias)(m)); err != nil {
		return err
	}
	if m.Game == nil {
		return errors.New("kingassassins: snapshot has no game state")
	}
	return nil
}

func setupAction(names ...string) game.Action {
	payload, _ := json.Marshal(engine.SetupSubmission{Assassins: names})
	return game.Action{Type: TypeAssassins, Payload: payload}
}

func turnAction(actions []engine.Action) game.Action {
	if actions == nil {
		actions = []engine.Action{}
	}
	payload, _ := json.Marshal(engine.TurnSubmission{Actions: actions})
	return game.Action{Type: TypeTurn, Payload: payload}
}
