package session

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"kingassassins/internal/game"
	"kingassassins/internal/game/kingassassins"
	"kingassassins/internal/storage"
)

const gameType = kingassassins.Name

var designation = game.Action{
	Type:    kingassassins.TypeAssassins,
	Payload: json.RawMessage(`{"assassins":["monk","squire","farmer"]}`),
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newManager(store *storage.Store) *Manager {
	return NewManager(game.NewRegistry(kingassassins.Game{}), store, Options{Seed: 7})
}

func setupTest(t *testing.T) *Manager {
	t.Helper()
	return newManager(newStore(t))
}

// newSession creates a session and seats players in order; "bot" seats a bot.
func newSession(t *testing.T, mgr *Manager, players ...string) *Session {
	t.Helper()
	sess, err := mgr.Create(gameType)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, p := range players {
		if p == "bot" {
			if _, err := mgr.AddBot(sess); err != nil {
				t.Fatalf("add bot: %v", err)
			}
			continue
		}
		if err := mgr.Join(sess, p); err != nil {
			t.Fatalf("join %s: %v", p, err)
		}
	}
	return sess
}

func TestCreateAndJoin(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bob")
	if sess.Code == "" {
		t.Fatal("expected non-empty code")
	}
	info := sess.Info()
	if len(info.Players) != 2 || info.Players[0] != "alice" || info.Players[1] != "bob" {
		t.Fatalf("expected seats [alice bob], got %v", info.Players)
	}
	if info.Status != StatusWaiting || info.HostID != "alice" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestUnknownGameType(t *testing.T) {
	if _, err := setupTest(t).Create("chess"); err == nil {
		t.Fatal("expected error for unknown game type")
	}
}

func TestSessionFull(t *testing.T) {
	sess := newSession(t, setupTest(t), "alice", "bob")
	if err := sess.AddPlayer("charlie"); err == nil {
		t.Fatal("expected error for full session")
	}
	if _, err := sess.AddBot(); err == nil {
		t.Fatal("expected error for a bot in a full session")
	}
}

func TestAddPlayerDuplicate(t *testing.T) {
	sess := newSession(t, setupTest(t), "alice")
	if err := sess.AddPlayer("alice"); err == nil {
		t.Fatal("expected error on duplicate player")
	}
}

func TestAddBot(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr)
	id, err := mgr.AddBot(sess)
	if err != nil {
		t.Fatalf("add bot: %v", err)
	}
	if !strings.HasPrefix(id, BotPrefix) {
		t.Fatalf("bot id %q lacks prefix", id)
	}
	if err := sess.AddPlayer("alice"); err != nil {
		t.Fatal(err)
	}
	info := sess.Info()
	if info.HostID != "alice" {
		t.Fatalf("a bot must never host, got %q", info.HostID)
	}
	if len(info.Bots) != 1 || info.Bots[0] != id || info.Players[0] != id {
		t.Fatalf("unexpected info %+v", info)
	}
	if err := sess.ConnectPlayer(id, make(chan []byte, 1)); !errors.Is(err, ErrBotSeat) {
		t.Fatalf("a bot seat must not be taken over, got %v", err)
	}
}

func TestRemovePlayer(t *testing.T) {
	sess := newSession(t, setupTest(t), "alice", "bob")
	send := make(chan []byte, 1)
	if err := sess.ConnectPlayer("alice", send); err != nil {
		t.Fatal(err)
	}

	if err := sess.RemovePlayer("alice"); err != nil {
		t.Fatal(err)
	}
	if ids := sess.PlayerIDs(); len(ids) != 1 || ids[0] != "bob" {
		t.Fatalf("expected [bob], got %v", ids)
	}
	if _, ok := <-send; ok {
		t.Fatal("expected send channel to be closed")
	}
	if host := sess.Info().HostID; host != "bob" {
		t.Fatalf("expected bob to take over as host, got %q", host)
	}
	// freed seat can be taken again
	if err := sess.AddPlayer("carol"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if err := sess.RemovePlayer("nobody"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestRemoveBot(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bot")
	bot := sess.PlayerIDs()[1]
	if err := sess.RemovePlayer(bot); err != nil {
		t.Fatal(err)
	}
	if len(sess.PlayerIDs()) != 1 {
		t.Fatal("expected the bot seat to be freed")
	}
}

func TestRemovePlayerAfterStart(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bob")
	mgr.Start(sess)
	if err := sess.RemovePlayer("bob"); !errors.Is(err, ErrSeatLocked) {
		t.Fatalf("expected ErrSeatLocked, got %v", err)
	}
}

func TestConnectPlayer(t *testing.T) {
	sess := newSession(t, setupTest(t), "alice")
	if sess.Connected("alice") {
		t.Fatal("a joined seat starts without a connection")
	}
	first := make(chan []byte, 64)
	if err := sess.ConnectPlayer("alice", first); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !sess.Connected("alice") || sess.Info().Online[0] != "alice" {
		t.Fatal("expected alice to be online")
	}

	// a live seat cannot be taken over
	if err := sess.ConnectPlayer("alice", make(chan []byte, 1)); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
	if err := sess.ConnectPlayer("nobody", make(chan []byte, 1)); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}

	// a foreign channel does not disconnect the seat, so first is still live
	if sess.DisconnectPlayer("alice", make(chan []byte, 1)) {
		t.Fatal("disconnect with a foreign channel must be ignored")
	}
	if !sess.DisconnectPlayer("alice", first) {
		t.Fatal("expected disconnect")
	}
	if _, ok := <-first; ok {
		t.Fatal("expected the old channel to be closed")
	}
	if err := sess.ConnectPlayer("alice", make(chan []byte, 1)); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
}

func TestDisconnectFreesLobbySeat(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bob")
	send := make(chan []byte, 1)
	sess.ConnectPlayer("alice", send)

	mgr.Disconnect(sess, "alice", send)
	info := sess.Info()
	if len(info.Players) != 1 || info.Players[0] != "bob" || info.HostID != "bob" {
		t.Fatalf("expected bob alone as host, got %+v", info)
	}
	seats, err := mgr.store.ListSeats(sess.Code)
	if err != nil || len(seats) != 1 || seats[0].PlayerID != "bob" {
		t.Fatalf("expected the freed seat to be persisted, got %v %v", seats, err)
	}
}

func TestDisconnectKeepsSeatInGame(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bob")
	mgr.Start(sess)
	send := make(chan []byte, 1)
	sess.ConnectPlayer("bob", send)

	mgr.Disconnect(sess, "bob", send)
	if ids := sess.PlayerIDs(); len(ids) != 2 {
		t.Fatalf("a running game keeps its seats, got %v", ids)
	}
	if sess.Connected("bob") {
		t.Fatal("expected bob to be offline")
	}
	if err := sess.ConnectPlayer("bob", make(chan []byte, 1)); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
}

func TestStartNotEnoughPlayers(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice")
	if err := mgr.Start(sess); err == nil {
		t.Fatal("expected error for not enough players")
	}
}

func TestStartTwiceAndLateJoin(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bob")
	if err := mgr.Start(sess); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Info().Status != StatusPlaying || sess.Match == nil {
		t.Fatal("expected a playing session with a match")
	}
	if err := mgr.Start(sess); err == nil {
		t.Fatal("expected error on second start")
	}
	if err := sess.AddPlayer("charlie"); err == nil {
		t.Fatal("expected error adding player to started session")
	}
}

func TestApplyBeforeStart(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bob")
	if err := mgr.Apply(sess, "alice", designation); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestApplyRejectedKeepsTurn(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bob")
	mgr.Start(sess)

	if err := mgr.Apply(sess, "bob", designation); !errors.Is(err, kingassassins.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if got := sess.Info().Turn; got != "alice" {
		t.Fatalf("expected alice on turn, got %q", got)
	}
}

func TestBotAnswersHuman(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice", "bot")
	if err := mgr.Start(sess); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := sess.Info().Turn; got != "alice" {
		t.Fatalf("the assassin seat designates first, got %q", got)
	}
	if err := mgr.Apply(sess, "alice", designation); err != nil {
		t.Fatalf("designate: %v", err)
	}
	if got := sess.Info().Turn; got != "alice" {
		t.Fatalf("expected the bot to have answered, turn is %q", got)
	}
}

func TestBotOpensTheGame(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "bot", "alice")
	if err := mgr.Start(sess); err != nil {
		t.Fatalf("start: %v", err)
	}
	data, _ := json.Marshal(sess.Match.State("alice"))
	if !strings.Contains(string(data), `"initial":false`) {
		t.Fatalf("expected the bot to have designated: %s", data)
	}
	if got := sess.Info().Turn; got != "alice" {
		t.Fatalf("expected alice on turn, got %q", got)
	}
}

// stuckGame deals King & Assassins matches whose bots cannot plan.
type stuckGame struct{ kingassassins.Game }

func (g stuckGame) Info() game.GameInfo {
	info := g.Game.Info()
	info.Name = "stuck"
	return info
}

func (g stuckGame) NewMatch(config game.MatchConfig) (game.Match, error) {
	m, err := g.Game.NewMatch(config)
	if err != nil {
		return nil, err
	}
	return stuckMatch{m}, nil
}

type stuckMatch struct{ game.Match }

func (stuckMatch) Plan(string) (game.Action, error) {
	return game.Action{}, errors.New("planner unavailable")
}

func TestStuckBotKeepsCommittedMoves(t *testing.T) {
	mgr := NewManager(game.NewRegistry(stuckGame{}), newStore(t), Options{Seed: 7})

	opener, err := mgr.Create("stuck")
	if err != nil {
		t.Fatal(err)
	}
	mgr.AddBot(opener)
	mgr.Join(opener, "alice")
	if err := mgr.Start(opener); err != nil {
		t.Fatalf("a start must succeed even if the bot cannot move: %v", err)
	}
	if info := opener.Info(); info.Status != StatusPlaying || info.Turn != info.Bots[0] {
		t.Fatalf("expected the stuck bot on turn, got %+v", info)
	}

	answered, _ := mgr.Create("stuck")
	mgr.Join(answered, "alice")
	mgr.AddBot(answered)
	mgr.Start(answered)
	if err := mgr.Apply(answered, "alice", designation); err != nil {
		t.Fatalf("an accepted move must not report the bot's failure: %v", err)
	}
	if info := answered.Info(); info.Turn != info.Bots[0] {
		t.Fatalf("expected the designation kept and the bot on turn, got %+v", info)
	}
	state, err := mgr.store.GetMatchState(answered.Code)
	if err != nil || !strings.Contains(state, `"moves":1`) {
		t.Fatalf("expected the committed move to be saved, got %s %v", state, err)
	}
}

func TestBotsPlayWholeGame(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "bot", "bot")
	if err := mgr.Start(sess); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Info().Status != StatusFinished {
		t.Fatalf("expected the bots to finish the game, status %s", sess.Info().Status)
	}
	if res := sess.Match.Results(); len(res) != 2 || res[0].Rank != 1 {
		t.Fatalf("unexpected results %+v", res)
	}
	row, err := mgr.store.GetSession(sess.Code)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != string(StatusFinished) {
		t.Fatalf("expected finished to be persisted, got %s", row.Status)
	}
}

func TestPersistence(t *testing.T) {
	store := newStore(t)
	mgr := newManager(store)
	sess := newSession(t, mgr, "alice", "bot")
	mgr.Start(sess)
	if err := mgr.Apply(sess, "alice", designation); err != nil {
		t.Fatalf("designate: %v", err)
	}
	waiting := newSession(t, mgr, "carol")

	mgr2 := newManager(store)
	if err := mgr2.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}

	sess2, ok := mgr2.Get(sess.Code)
	if !ok {
		t.Fatal("session not restored")
	}
	if sess2.Status != StatusPlaying || sess2.Match == nil {
		t.Fatalf("expected a playing session with a match, got %s", sess2.Status)
	}
	if got, want := sess2.PlayerIDs(), sess.PlayerIDs(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("seats %v, want %v", got, want)
	}
	if bots := sess2.Info().Bots; len(bots) != 1 || bots[0] != sess.PlayerIDs()[1] {
		t.Fatalf("bot flag lost on restore, bots %v", bots)
	}
	before, _ := json.Marshal(sess.Match.State("alice"))
	after, _ := json.Marshal(sess2.Match.State("alice"))
	if string(before) != string(after) {
		t.Fatalf("match differs after restore:\n%s\n%s", before, after)
	}

	w2, ok := mgr2.Get(waiting.Code)
	if !ok || w2.Info().HostID != "carol" {
		t.Fatal("waiting session not restored with its host")
	}
}

func TestManagerRemove(t *testing.T) {
	mgr := setupTest(t)
	sess := newSession(t, mgr, "alice")
	mgr.Remove(sess.Code)
	if _, ok := mgr.Get(sess.Code); ok {
		t.Fatal("expected session to be removed")
	}
}

func TestManagerListSorted(t *testing.T) {
	mgr := setupTest(t)
	for i := 0; i < 4; i++ {
		newSession(t, mgr)
	}
	infos := mgr.List()
	if len(infos) != 4 {
		t.Fatalf("expected 4 sessions, got %d", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Code > infos[i].Code {
			t.Fatalf("list not sorted: %v", infos)
		}
	}
}

func TestManagerCleanup(t *testing.T) {
	mgr := setupTest(t)
	finished := newSession(t, mgr, "bot", "bot")
	mgr.Start(finished)
	if finished.Info().Status != StatusFinished {
		t.Fatal("expected the bots to finish")
	}
	empty := newSession(t, mgr)
	active := newSession(t, mgr, "carol")

	mgr.cleanup(0)
	if _, ok := mgr.Get(finished.Code); ok {
		t.Fatal("expected finished session to be cleaned up")
	}
	if _, ok := mgr.Get(empty.Code); ok {
		t.Fatal("expected empty session to be cleaned up")
	}

	mgr.cleanup(time.Hour)
	if _, ok := mgr.Get(active.Code); !ok {
		t.Fatal("expected active waiting session to be kept")
	}
}

func TestGenerateCodeFormat(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{6}$`)
	for i := 0; i < 20; i++ {
		if code := generateCode(); !re.MatchString(code) {
			t.Fatalf("expected 6 hex chars, got %q", code)
		}
	}
}
