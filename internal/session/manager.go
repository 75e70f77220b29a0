package session

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"kingassassins/internal/game"
	"kingassassins/internal/storage"
)

// ErrNotStarted is returned for actions sent before the session started.
var ErrNotStarted = errors.New("game not started")

const defaultBotMoveLimit = 64

// Options tunes a Manager.
type Options struct {
	// Seed is handed to every new match. Zero deals each match at random.
	Seed uint64
	// BotMoveLimit bounds how many bot submissions one trigger may play.
	BotMoveLimit int
}

// Manager manages all active sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	registry *game.Registry
	store    *storage.Store
	opts     Options
}

// NewManager creates a session manager.
func NewManager(registry *game.Registry, store *storage.Store, opts Options) *Manager {
	if opts.BotMoveLimit <= 0 {
		opts.BotMoveLimit = defaultBotMoveLimit
	}
	return &Manager{
		sessions: make(map[string]*Session),
		registry: registry,
		store:    store,
		opts:     opts,
	}
}

// Create makes a new session and persists it.
func (m *Manager) Create(gameType string) (*Session, error) {
	g, ok := m.registry.Get(gameType)
	if !ok {
		return nil, errors.Errorf("unknown game type: %s", gameType)
	}
	code := generateCode()
	if err := m.store.CreateSession(code, gameType); err != nil {
		return nil, errors.Wrap(err, "persist session")
	}
	s := NewSession(code, gameType, g)
	s.Seed = m.opts.Seed
	m.mu.Lock()
	m.sessions[code] = s
	m.mu.Unlock()
	log.Info().Str("session", code).Str("game", gameType).Msg("session created")
	return s, nil
}

// Get returns a session by code.
func (m *Manager) Get(code string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[code]
	return s, ok
}

// List returns info for all active sessions, sorted by code.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}

// Join seats a human player and persists the roster.
func (m *Manager) Join(s *Session, playerID string) error {
	if err := s.AddPlayer(playerID); err != nil {
		return err
	}
	return m.Save(s)
}

// AddBot seats a bot and persists the roster.
func (m *Manager) AddBot(s *Session) (string, error) {
	id, err := s.AddBot()
	if err != nil {
		return "", err
	}
	log.Info().Str("session", s.Code).Str("bot", id).Msg("bot seated")
	return id, m.Save(s)
}

// Start begins the match, lets bots play if they move first, and persists
// the result. A failing bot does not undo the start.
func (m *Manager) Start(s *Session) error {
	if err := s.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	m.driveBotsLocked(s)
	s.mu.Unlock()
	log.Info().Str("session", s.Code).Strs("seats", s.PlayerIDs()).Msg("match started")
	return m.Save(s)
}

// Apply submits action for playerID, then lets bot seats answer until a
// human is on turn or the match ends. A rejected action leaves the match
// untouched. Once the action is accepted Apply succeeds; a stuck bot is
// logged and leaves the turn where it is.
func (m *Manager) Apply(s *Session, playerID string, action game.Action) error {
	s.mu.Lock()
	if s.Match == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	if err := s.Match.ApplyAction(playerID, action); err != nil {
		s.mu.Unlock()
		return err
	}
	m.driveBotsLocked(s)
	s.mu.Unlock()

	if err := m.Save(s); err != nil {
		log.Error().Err(err).Str("session", s.Code).Msg("save match state")
	}
	return nil
}

// driveBotsLocked plays bot turns and settles the session. The caller must
// hold s.mu.
func (m *Manager) driveBotsLocked(s *Session) {
	defer m.settleLocked(s)
	if err := m.playBotsLocked(s); err != nil {
		log.Error().Err(err).Str("session", s.Code).Msg("bot turn failed")
	}
}

func (m *Manager) playBotsLocked(s *Session) error {
	for n := 0; n < m.opts.BotMoveLimit; n++ {
		if s.Match == nil || s.Match.IsOver() {
			return nil
		}
		cur := s.Match.CurrentPlayer()
		p := s.Players[cur]
		if p == nil || !p.Bot {
			return nil
		}
		auto, ok := s.Match.(game.AutoPlayer)
		if !ok {
			return errors.Errorf("%s matches cannot drive bot seats", s.GameType)
		}
		action, err := auto.Plan(cur)
		if err != nil {
			return errors.Wrapf(err, "plan for %s", cur)
		}
		if err := s.Match.ApplyAction(cur, action); err != nil {
			return errors.Wrapf(err, "bot %s move rejected", cur)
		}
		log.Debug().Str("session", s.Code).Str("bot", cur).RawJSON("action", action.Payload).Msg("bot moved")
	}
	log.Warn().Str("session", s.Code).Int("limit", m.opts.BotMoveLimit).Msg("bot move limit reached")
	return nil
}

func (m *Manager) settleLocked(s *Session) {
	if s.finishLocked() {
		log.Info().Str("session", s.Code).Interface("results", s.Match.Results()).Msg("match finished")
	}
}

// Disconnect releases the connection send holds on playerID's seat. A lobby
// seat is freed as well, so somebody else can take it.
func (m *Manager) Disconnect(s *Session, playerID string, send chan []byte) {
	if !s.DisconnectPlayer(playerID, send) {
		return
	}
	err := s.RemovePlayer(playerID)
	switch {
	case errors.Is(err, ErrSeatLocked):
		return
	case err != nil:
		log.Warn().Err(err).Str("session", s.Code).Str("player", playerID).Msg("free seat")
		return
	}
	log.Info().Str("session", s.Code).Str("player", playerID).Msg("left the lobby")
	if err := m.Save(s); err != nil {
		log.Error().Err(err).Str("session", s.Code).Msg("save roster")
	}
}

// Save persists the session status, its seats and the match snapshot.
func (m *Manager) Save(s *Session) error {
	s.mu.RLock()
	status := s.Status
	seats := make([]storage.SeatRow, len(s.Seats))
	for i, id := range s.Seats {
		seats[i] = storage.SeatRow{PlayerID: id, Seat: i, Bot: s.Players[id].Bot}
	}
	var data []byte
	var err error
	if s.Match != nil {
		data, err = s.Match.MarshalJSON()
	}
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "marshal match state")
	}

	if err := m.store.UpdateSessionStatus(s.Code, string(status)); err != nil {
		return err
	}
	if err := m.store.SaveSeats(s.Code, seats); err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return m.store.SaveMatchState(s.Code, string(data))
}

// Restore loads unfinished sessions from the database on startup.
func (m *Manager) Restore() error {
	rows, err := m.store.ListSessions("")
	if err != nil {
		return errors.Wrap(err, "list sessions")
	}
	restored := 0
	for _, row := range rows {
		if row.Status == string(StatusFinished) {
			continue
		}
		s, err := m.restoreOne(row)
		if err != nil {
			log.Warn().Err(err).Str("session", row.Code).Msg("skipping session")
			continue
		}
		m.mu.Lock()
		m.sessions[row.Code] = s
		m.mu.Unlock()
		restored++
	}
	log.Info().Int("sessions", restored).Msg("sessions restored")
	return nil
}

func (m *Manager) restoreOne(row storage.SessionRow) (*Session, error) {
	g, ok := m.registry.Get(row.GameType)
	if !ok {
		return nil, errors.Errorf("unknown game type %s", row.GameType)
	}
	seats, err := m.store.ListSeats(row.Code)
	if err != nil {
		return nil, err
	}
	s := NewSession(row.Code, row.GameType, g)
	s.Status = Status(row.Status)
	s.Seed = m.opts.Seed
	for _, seat := range seats {
		s.Players[seat.PlayerID] = &Player{ID: seat.PlayerID, Bot: seat.Bot}
		s.Seats = append(s.Seats, seat.PlayerID)
		if s.HostID == "" && !seat.Bot {
			s.HostID = seat.PlayerID
		}
	}
	if s.Status != StatusPlaying {
		return s, nil
	}

	stateJSON, err := m.store.GetMatchState(row.Code)
	if err != nil {
		return nil, err
	}
	match, err := g.NewMatch(game.MatchConfig{PlayerIDs: s.Seats, Seed: 1})
	if err != nil {
		return nil, errors.Wrap(err, "new match")
	}
	if err := match.UnmarshalJSON([]byte(stateJSON)); err != nil {
		return nil, errors.Wrap(err, "unmarshal match state")
	}
	s.Match = match
	return s, nil
}

// Remove deletes a session from memory and storage.
func (m *Manager) Remove(code string) {
	m.mu.Lock()
	delete(m.sessions, code)
	m.mu.Unlock()
	if err := m.store.DeleteSession(code); err != nil {
		log.Error().Err(err).Str("session", code).Msg("delete session")
	}
}

// CleanupLoop removes stale sessions periodically.
func (m *Manager) CleanupLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		m.cleanup(maxAge)
	}
}

// cleanup drops finished sessions older than maxAge and sessions nobody
// holds a seat in.
func (m *Manager) cleanup(maxAge time.Duration) {
	m.mu.RLock()
	var stale []*Session
	for _, s := range m.sessions {
		s.mu.RLock()
		if len(s.Players) == 0 || s.Status == StatusFinished {
			stale = append(stale, s)
		}
		s.mu.RUnlock()
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, s := range stale {
		row, err := m.store.GetSession(s.Code)
		if err != nil {
			log.Warn().Err(err).Str("session", s.Code).Msg("dropping session without a row")
			m.Remove(s.Code)
			continue
		}
		if now.Sub(row.CreatedAt) > maxAge || len(s.PlayerIDs()) == 0 {
			log.Info().Str("session", s.Code).Msgf("cleaning up session created %s", humanize.Time(row.CreatedAt))
			m.Remove(s.Code)
		}
	}
}

func generateCode() string {
	b := make([]byte, 3) // 6 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}
