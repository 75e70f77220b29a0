package engine

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Card is one round's action points: king, knights, the fetter flag and the
// population (villagers and assassins).
type Card struct {
	King       int  `json:"king"`
	Knight     int  `json:"knight"`
	Fetter     bool `json:"fetter"`
	Population int  `json:"population"`
}

func (c Card) String() string {
	return fmt.Sprintf("(king %d, knights %d, fetter %t, population %d)", c.King, c.Knight, c.Fetter, c.Population)
}

var standardDeck = []Card{
	{1, 6, true, 5},
	{1, 5, false, 4},
	{1, 6, true, 5},
	{1, 6, true, 5},
	{1, 5, true, 4},
	{1, 5, false, 4},
	{2, 7, false, 5},
	{2, 7, false, 4},
	{1, 6, true, 5},
	{1, 6, true, 5},
	{2, 7, false, 5},
	{2, 5, false, 4},
	{1, 5, true, 5},
	{1, 5, false, 4},
	{1, 5, false, 4},
}

// StandardDeck returns a fresh copy of the 15 cards in printed order.
func StandardDeck() []Card {
	return append([]Card(nil), standardDeck...)
}

// ShuffledDeck returns the standard deck in an order drawn from rng.
func ShuffledDeck(rng *rand.Rand) []Card {
	deck := StandardDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// Class is the budget an action is charged to.
type Class uint8

const (
	ClassKing Class = iota
	ClassKnight
	ClassPopulation
)

func (c Class) String() string {
	switch c {
	case ClassKing:
		return "king"
	case ClassKnight:
		return "knight"
	case ClassPopulation:
		return "population"
	}
	return fmt.Sprintf("Class(%d)", c)
}

// Budget counts action points per class.
type Budget struct {
	King       int `json:"king"`
	Knight     int `json:"knight"`
	Population int `json:"population"`
}

func (b Budget) Get(c Class) int {
	switch c {
	case ClassKing:
		return b.King
	case ClassKnight:
		return b.Knight
	default:
		return b.Population
	}
}

func (b *Budget) add(c Class, n int) {
	switch c {
	case ClassKing:
		b.King += n
	case ClassKnight:
		b.Knight += n
	default:
		b.Population += n
	}
}

// Round is the per-round state machine. A round opens when a card is drawn,
// the crown side may act once, and the round closes when the assassin side
// finishes its batch.
type Round struct {
	Number     int    `json:"number"`
	Card       *Card  `json:"card"`
	Spent      Budget `json:"spent"`
	CrownActed bool   `json:"crownActed"`
}

// Allowance is the active card's budget; zero before the first draw.
func (r Round) Allowance() Budget {
	if r.Card == nil {
		return Budget{}
	}
	return Budget{King: r.Card.King, Knight: r.Card.Knight, Population: r.Card.Population}
}

// Remaining is what is left of the active card's budget this round.
func (r Round) Remaining() Budget {
	a := r.Allowance()
	return Budget{
		King:       a.King - r.Spent.King,
		Knight:     a.Knight - r.Spent.Knight,
		Population: a.Population - r.Spent.Population,
	}
}

// Spend charges one action point to class c.
func (r *Round) Spend(c Class) error {
	if r.Remaining().Get(c) <= 0 {
		return fmt.Errorf("no %s action points left this round", c)
	}
	r.Spent.add(c, 1)
	return nil
}

// open starts a new round with card.
func (r *Round) open(card Card) {
	r.Number++
	r.Card = &card
	r.Spent = Budget{}
	r.CrownActed = false
}
