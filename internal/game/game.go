package game

import "encoding/json"

// GameInfo describes a game type for the lobby.
type GameInfo struct {
	Name       string   `json:"name"`
	MinPlayers int      `json:"minPlayers"`
	MaxPlayers int      `json:"maxPlayers"`
	Seats      []string `json:"seats,omitempty"`
}

// MatchConfig holds settings for creating a new match. PlayerIDs are in seat
// order. Seed makes the initial layout reproducible; zero means random.
type MatchConfig struct {
	PlayerIDs []string
	Seed      uint64
}

// Action is one submission from a player. Payload is game specific.
type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PlayerResult holds the outcome for one player.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Rank     int    `json:"rank"` // 1 = winner
	Score    int    `json:"score"`
}

// Game describes a game type.
type Game interface {
	Info() GameInfo
	NewMatch(config MatchConfig) (Match, error)
}

// Match is one in-progress game.
type Match interface {
	// State returns what playerID is allowed to see. Unknown ids get the
	// public view.
	State(playerID string) any
	ValidActions(playerID string) []Action
	ApplyAction(playerID string, action Action) error
	// CurrentPlayer is the id expected to submit next, or "" once the match
	// is over.
	CurrentPlayer() string
	IsOver() bool
	Results() []PlayerResult
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}

// AutoPlayer is implemented by matches that can compute a move on behalf of a
// seat. The session manager uses it to drive bot seats.
type AutoPlayer interface {
	Plan(playerID string) (Action, error)
}

// Renderer is implemented by matches with a plain text board.
type Renderer interface {
	Render(playerID string) string
}
