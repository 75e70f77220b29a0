package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
)

// Side identifies a player. The assassin side always plays first.
type Side int

const (
	SideAssassins Side = 0
	SideCrown     Side = 1
)

func (s Side) String() string {
	switch s {
	case SideAssassins:
		return "assassins"
	case SideCrown:
		return "crown"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

func (s Side) Valid() bool { return s == SideAssassins || s == SideCrown }

// Health of the king. It only ever gets worse.
type Health uint8

const (
	Healthy Health = iota
	Injured
	Dead
)

var healthNames = [...]string{"healthy", "injured", "dead"}

func (h Health) String() string {
	if int(h) < len(healthNames) {
		return healthNames[h]
	}
	return fmt.Sprintf("Health(%d)", h)
}

func (h Health) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Health) UnmarshalText(b []byte) error {
	for i, n := range healthNames {
		if n == string(b) {
			*h = Health(i)
			return nil
		}
	}
	return fmt.Errorf("unknown king health %q", b)
}

// Tally counts the pawns removed by kills.
type Tally struct {
	Knights   int `json:"knights"`
	Assassins int `json:"assassins"`
}

// Public is the slice of the state every player may see.
type Public struct {
	Board     *Board     `json:"board"`
	Grid      Grid       `json:"people"`
	Round     Round      `json:"round"`
	King      Health     `json:"king"`
	Arrested  []Villager `json:"arrested"`
	Killed    Tally      `json:"killed"`
	CardsLeft int        `json:"cardsLeft"`
}

// Clone returns a deep copy. The board is shared as it is never mutated.
func (p Public) Clone() Public {
	p.Arrested = append([]Villager(nil), p.Arrested...)
	return p
}

// AssassinView is what the assassin side sees: the public slice plus its own
// secret designation.
type AssassinView struct {
	Public
	Assassins VillagerSet `json:"assassins"`
}

// Hidden is owned by the host. The assassin set is shown to the assassin side
// only; the deck order is shown to nobody.
type Hidden struct {
	Assassins  VillagerSet `json:"assassins"`
	Designated bool        `json:"designated"`
	Deck       []Card      `json:"deck"`
}

// State is one game. It is not safe for concurrent use; the host serialises
// calls per game.
type State struct {
	pub    Public
	hidden Hidden
}

// Options configures NewState. Rand is required unless both Grid and Deck are
// supplied.
type Options struct {
	Rand  *rand.Rand
	Board *Board
	Grid  *Grid
	Deck  []Card
}

// NewState builds a game ready for the assassin designation.
func NewState(opts Options) (*State, error) {
	if opts.Rand == nil && (opts.Grid == nil || opts.Deck == nil) {
		return nil, errors.New("engine: a random source is required for the default layout and deck")
	}
	board := opts.Board
	if board == nil {
		board = DefaultBoard()
	}
	var grid Grid
	if opts.Grid != nil {
		grid = *opts.Grid
	} else {
		grid = DefaultLayout(opts.Rand)
	}
	deck := append([]Card(nil), opts.Deck...)
	if opts.Deck == nil {
		deck = ShuffledDeck(opts.Rand)
	}
	return &State{
		pub: Public{
			Board:     board,
			Grid:      grid,
			CardsLeft: len(deck),
		},
		hidden: Hidden{Deck: deck},
	}, nil
}

// Public returns a copy of the visible slice.
func (s *State) Public() Public { return s.pub.Clone() }

// AssassinView returns the assassin side's view. Never hand it to the crown.
func (s *State) AssassinView() AssassinView {
	return AssassinView{Public: s.pub.Clone(), Assassins: s.hidden.Assassins}
}

// IsInitialTurn is true until the assassins have been designated.
func (s *State) IsInitialTurn() bool { return !s.hidden.Designated }

// DesignateAssassins records the secret assassins and draws the first card.
func (s *State) DesignateAssassins(names []string) error {
	if s.hidden.Designated {
		return &MalformedSetup{Reason: "assassins are already designated"}
	}
	if len(names) != AssassinCount {
		return &MalformedSetup{Reason: fmt.Sprintf("exactly %d assassins are required, got %d", AssassinCount, len(names))}
	}
	var set VillagerSet
	for _, n := range names {
		v, err := ParseVillager(n)
		if err != nil {
			return &MalformedSetup{Reason: err.Error()}
		}
		if set.Has(v) {
			return &MalformedSetup{Reason: fmt.Sprintf("villager %q named twice", n)}
		}
		set = set.Add(v)
	}
	if len(s.hidden.Deck) == 0 {
		return &MalformedSetup{Reason: "the deck is empty"}
	}
	s.hidden.Assassins = set
	s.hidden.Designated = true
	s.draw()
	return nil
}

// ApplyTurn validates and applies a whole batch for side. Either every action
// takes effect or none does.
func (s *State) ApplyTurn(side Side, actions []Action) error {
	if !side.Valid() {
		return refuse(fmt.Sprintf("unknown player %d", int(side)))
	}
	if !s.hidden.Designated {
		return refuse("assassins have not been designated")
	}
	if s.Verdict().Decided() {
		return refuse("the game is over")
	}
	if side == SideCrown && s.pub.Round.CrownActed {
		return refuse("the crown has already played this round")
	}

	next := s.clone()
	for i, a := range actions {
		if err := next.pub.Play(a, side, next.hidden.Assassins); err != nil {
			return &InvalidMove{Index: i, Action: a, Reason: err.Error()}
		}
	}
	if side == SideCrown {
		next.pub.Round.CrownActed = true
	} else {
		next.draw()
	}
	if err := next.checkInvariants(s); err != nil {
		return err
	}
	*s = *next
	return nil
}

// draw closes the current round and opens the next one with the top card.
func (s *State) draw() {
	n := len(s.hidden.Deck)
	if n == 0 {
		return
	}
	card := s.hidden.Deck[n-1]
	s.hidden.Deck = s.hidden.Deck[:n-1]
	s.pub.Round.open(card)
	s.pub.CardsLeft = len(s.hidden.Deck)
}

func (s *State) clone() *State {
	return &State{
		pub: s.pub.Clone(),
		hidden: Hidden{
			Assassins:  s.hidden.Assassins,
			Designated: s.hidden.Designated,
			Deck:       append([]Card(nil), s.hidden.Deck...),
		},
	}
}

func (s *State) checkInvariants(prev *State) error {
	if s.hidden.Assassins.Len() != AssassinCount {
		return inconsistent("%d assassins designated", s.hidden.Assassins.Len())
	}
	if n := len(s.pub.Grid.Find(King)); n > 1 {
		return inconsistent("%d kings on the board", n)
	}
	for _, c := range s.pub.Grid.Find(Assassin) {
		if who := s.pub.Grid.At(c).Who; !s.hidden.Assassins.Has(who) {
			return inconsistent("revealed assassin %s at %s is not designated", who, c)
		}
	}
	var seen VillagerSet
	for _, v := range s.pub.Arrested {
		if seen.Has(v) {
			return inconsistent("%s arrested twice", v)
		}
		seen = seen.Add(v)
	}
	removed := len(s.pub.Arrested) - len(prev.pub.Arrested) +
		s.pub.Killed.Knights - prev.pub.Killed.Knights +
		s.pub.Killed.Assassins - prev.pub.Killed.Assassins
	if got, want := s.pub.Grid.Count(), prev.pub.Grid.Count()-removed; got != want {
		return inconsistent("%d pawns on the board, expected %d", got, want)
	}
	if s.pub.CardsLeft != len(s.hidden.Deck) {
		return inconsistent("%d cards shown, %d in the deck", s.pub.CardsLeft, len(s.hidden.Deck))
	}
	return nil
}

type snapshot struct {
	Public Public `json:"public"`
	Hidden Hidden `json:"hidden"`
}

func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{Public: s.pub, Hidden: s.hidden})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Public.Board == nil {
		snap.Public.Board = DefaultBoard()
	}
	s.pub = snap.Public
	s.hidden = snap.Hidden
	return nil
}
