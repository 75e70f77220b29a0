package storage

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session or its match state does not exist.
var ErrNotFound = errors.New("not found")

// SessionRow represents a session in the database.
type SessionRow struct {
	Code      string
	GameType  string
	Status    string // "waiting", "playing", "finished"
	CreatedAt time.Time
}

// SeatRow is one player of a session. Seat is the join order, which is also
// the seat order handed to the match.
type SeatRow struct {
	PlayerID string
	Seat     int
	Bot      bool
}

// Store handles SQLite persistence of sessions, their seats and the latest
// match snapshot. Only the current snapshot is kept, never the history.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	// one writer; :memory: databases are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			code       TEXT PRIMARY KEY,
			game_type  TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'waiting',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS seats (
			session_code TEXT NOT NULL REFERENCES sessions(code),
			player_id    TEXT NOT NULL,
			seat         INTEGER NOT NULL,
			bot          INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (session_code, player_id)
		);
		CREATE TABLE IF NOT EXISTS match_state (
			session_code TEXT PRIMARY KEY REFERENCES sessions(code),
			state_json   TEXT NOT NULL,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(code, gameType string) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (code, game_type, status) VALUES (?, ?, 'waiting')",
		code, gameType,
	)
	return errors.Wrapf(err, "create session %s", code)
}

// GetSession retrieves a session by code.
func (s *Store) GetSession(code string) (*SessionRow, error) {
	row := s.db.QueryRow("SELECT code, game_type, status, created_at FROM sessions WHERE code = ?", code)
	var sr SessionRow
	if err := row.Scan(&sr.Code, &sr.GameType, &sr.Status, &sr.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "session %s", code)
		}
		return nil, errors.Wrapf(err, "get session %s", code)
	}
	return &sr, nil
}

// UpdateSessionStatus changes a session's status.
func (s *Store) UpdateSessionStatus(code, status string) error {
	_, err := s.db.Exec("UPDATE sessions SET status = ? WHERE code = ?", status, code)
	return errors.Wrapf(err, "update session %s", code)
}

// ListSessions returns all sessions with the given status (or all if status is empty).
func (s *Store) ListSessions(status string) ([]SessionRow, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query("SELECT code, game_type, status, created_at FROM sessions ORDER BY created_at DESC")
	} else {
		rows, err = s.db.Query("SELECT code, game_type, status, created_at FROM sessions WHERE status = ? ORDER BY created_at DESC", status)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	defer rows.Close()
	var result []SessionRow
	for rows.Next() {
		var sr SessionRow
		if err := rows.Scan(&sr.Code, &sr.GameType, &sr.Status, &sr.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan session")
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}

// SaveSeats replaces the seat list of a session.
func (s *Store) SaveSeats(code string, seats []SeatRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM seats WHERE session_code = ?", code); err != nil {
		return errors.Wrapf(err, "clear seats of %s", code)
	}
	for _, seat := range seats {
		if _, err := tx.Exec(
			"INSERT INTO seats (session_code, player_id, seat, bot) VALUES (?, ?, ?, ?)",
			code, seat.PlayerID, seat.Seat, seat.Bot,
		); err != nil {
			return errors.Wrapf(err, "save seat %s of %s", seat.PlayerID, code)
		}
	}
	return errors.Wrap(tx.Commit(), "commit seats")
}

// ListSeats returns the seats of a session in seat order.
func (s *Store) ListSeats(code string) ([]SeatRow, error) {
	rows, err := s.db.Query("SELECT player_id, seat, bot FROM seats WHERE session_code = ? ORDER BY seat", code)
	if err != nil {
		return nil, errors.Wrapf(err, "list seats of %s", code)
	}
	defer rows.Close()
	var result []SeatRow
	for rows.Next() {
		var sr SeatRow
		if err := rows.Scan(&sr.PlayerID, &sr.Seat, &sr.Bot); err != nil {
			return nil, errors.Wrap(err, "scan seat")
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}

// SaveMatchState upserts match state JSON.
func (s *Store) SaveMatchState(sessionCode, stateJSON string) error {
	_, err := s.db.Exec(`
		INSERT INTO match_state (session_code, state_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_code) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at
	`, sessionCode, stateJSON)
	return errors.Wrapf(err, "save match state of %s", sessionCode)
}

// GetMatchState retrieves match state JSON.
func (s *Store) GetMatchState(sessionCode string) (string, error) {
	var stateJSON string
	err := s.db.QueryRow("SELECT state_json FROM match_state WHERE session_code = ?", sessionCode).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(ErrNotFound, "match state of %s", sessionCode)
	}
	return stateJSON, errors.Wrapf(err, "get match state of %s", sessionCode)
}

// DeleteSession removes a session with its seats and match state.
func (s *Store) DeleteSession(code string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()
	for _, q := range []string{
		"DELETE FROM match_state WHERE session_code = ?",
		"DELETE FROM seats WHERE session_code = ?",
		"DELETE FROM sessions WHERE code = ?",
	} {
		if _, err := tx.Exec(q, code); err != nil {
			return errors.Wrapf(err, "delete session %s", code)
		}
	}
	return errors.Wrap(tx.Commit(), "commit delete")
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
