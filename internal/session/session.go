package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"kingassassins/internal/game"
)

// Status represents the session lifecycle.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// BotPrefix starts the id of every server-driven player.
const BotPrefix = "bot-"

var (
	ErrUnknownPlayer = errors.New("player not in session")
	ErrBotSeat       = errors.New("held by a bot")
	ErrSeatTaken     = errors.New("already connected")
	ErrSeatLocked    = errors.New("players cannot leave a running game")
)

// Player is a seat holder. Send is nil while nobody is connected to the
// seat; bots never connect.
type Player struct {
	ID   string
	Bot  bool
	Send chan []byte // outbound messages
}

// Session is one game session with its seated players. Seats are handed to
// the match in join order, so for King & Assassins the first player to join
// holds the assassins.
type Session struct {
	mu       sync.RWMutex
	Code     string
	GameType string
	Status   Status
	HostID   string
	Players  map[string]*Player
	Seats    []string
	Match    game.Match
	Seed     uint64
	game     game.Game
}

// NewSession creates a session in the waiting state.
func NewSession(code, gameType string, g game.Game) *Session {
	return &Session{
		Code:     code,
		GameType: gameType,
		Status:   StatusWaiting,
		Players:  make(map[string]*Player),
		game:     g,
	}
}

// AddPlayer seats a human player without a connection. Returns error if
// full or already playing.
func (s *Session) AddPlayer(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatLocked(&Player{ID: playerID})
}

// AddBot seats a server-driven player and returns its id.
func (s *Session) AddBot() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := BotPrefix + uuid.NewString()
	if err := s.seatLocked(&Player{ID: id, Bot: true}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Session) seatLocked(p *Player) error {
	if s.Status != StatusWaiting {
		return fmt.Errorf("session is not accepting players")
	}
	if len(s.Seats) >= s.game.Info().MaxPlayers {
		return fmt.Errorf("session is full")
	}
	if _, exists := s.Players[p.ID]; exists {
		return fmt.Errorf("player %s already in session", p.ID)
	}
	s.Players[p.ID] = p
	s.Seats = append(s.Seats, p.ID)
	if s.HostID == "" && !p.Bot {
		s.HostID = p.ID
	}
	return nil
}

// RemovePlayer frees a lobby seat. The host role passes to the next human
// seat.
func (s *Session) RemovePlayer(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if s.Status != StatusWaiting {
		return ErrSeatLocked
	}
	if p.Send != nil {
		close(p.Send)
	}
	delete(s.Players, playerID)
	for i, id := range s.Seats {
		if id == playerID {
			s.Seats = append(s.Seats[:i], s.Seats[i+1:]...)
			break
		}
	}
	if s.HostID == playerID {
		s.HostID = ""
		for _, id := range s.Seats {
			if !s.Players[id].Bot {
				s.HostID = id
				break
			}
		}
	}
	return nil
}

// ConnectPlayer attaches send to a seat nobody is connected to. Bot seats
// and seats with a live connection are refused.
func (s *Session) ConnectPlayer(playerID string, send chan []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Players[playerID]
	switch {
	case !ok:
		return ErrUnknownPlayer
	case p.Bot:
		return errors.Wrapf(ErrBotSeat, "seat %s", playerID)
	case p.Send != nil:
		return errors.Wrapf(ErrSeatTaken, "seat %s", playerID)
	}
	p.Send = send
	return nil
}

// DisconnectPlayer closes send and detaches it from the seat, unless the
// seat has moved on to another connection. Reports whether it did.
func (s *Session) DisconnectPlayer(playerID string, send chan []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Players[playerID]
	if !ok || p.Send == nil || p.Send != send {
		return false
	}
	close(p.Send)
	p.Send = nil
	return true
}

// Connected reports whether playerID has a live connection.
func (s *Session) Connected(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.Players[playerID]
	return ok && p.Send != nil
}

// PlayerIDs returns the player ids in seat order.
func (s *Session) PlayerIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.Seats...)
}

// Start transitions the session from waiting to playing.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status != StatusWaiting {
		return fmt.Errorf("session is not in waiting state")
	}
	info := s.game.Info()
	if len(s.Seats) < info.MinPlayers {
		return fmt.Errorf("need at least %d players, have %d", info.MinPlayers, len(s.Seats))
	}
	match, err := s.game.NewMatch(game.MatchConfig{
		PlayerIDs: append([]string(nil), s.Seats...),
		Seed:      s.Seed,
	})
	if err != nil {
		return err
	}
	s.Match = match
	s.Status = StatusPlaying
	return nil
}

// finishLocked marks a decided match's session as finished. Reports whether
// the status changed. The caller must hold s.mu.
func (s *Session) finishLocked() bool {
	if s.Match == nil || !s.Match.IsOver() || s.Status == StatusFinished {
		return false
	}
	s.Status = StatusFinished
	return true
}

// Info returns session info for the API.
type Info struct {
	Code     string   `json:"code"`
	GameType string   `json:"gameType"`
	Status   Status   `json:"status"`
	Players  []string `json:"players"`
	Bots     []string `json:"bots,omitempty"`
	Online   []string `json:"online,omitempty"`
	HostID   string   `json:"hostId"`
	Turn     string   `json:"turn,omitempty"`
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoLocked()
}

// InfoLocked returns info without acquiring the lock (caller must hold it).
func (s *Session) InfoLocked() Info {
	return s.infoLocked()
}

func (s *Session) infoLocked() Info {
	info := Info{
		Code:     s.Code,
		GameType: s.GameType,
		Status:   s.Status,
		Players:  append([]string(nil), s.Seats...),
		HostID:   s.HostID,
	}
	for _, id := range s.Seats {
		p := s.Players[id]
		if p.Bot {
			info.Bots = append(info.Bots, id)
		}
		if p.Send != nil {
			info.Online = append(info.Online, id)
		}
	}
	if s.Match != nil {
		info.Turn = s.Match.CurrentPlayer()
	}
	return info
}

// RLock/RUnlock expose the read lock for the server's handlers.
func (s *Session) RLock()   { s.mu.RLock() }
func (s *Session) RUnlock() { s.mu.RUnlock() }
