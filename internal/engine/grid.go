package engine

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
)

// Kind is what stands on a cell.
type Kind uint8

const (
	Empty Kind = iota
	King
	Knight
	Disguised // a villager as everyone sees it, assassin or not
	Assassin  // a revealed assassin
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case King:
		return "king"
	case Knight:
		return "knight"
	case Disguised:
		return "villager"
	case Assassin:
		return "assassin"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Occupant is the content of one cell. Who is only meaningful for Disguised
// and Assassin cells.
type Occupant struct {
	Kind Kind
	Who  Villager
}

// Villagers and revealed assassins belong to the assassin side.
func (o Occupant) Population() bool { return o.Kind == Disguised || o.Kind == Assassin }

func (o Occupant) String() string {
	switch o.Kind {
	case Disguised:
		return o.Who.String()
	case Assassin:
		return "assassin:" + o.Who.String()
	}
	return o.Kind.String()
}

func (o Occupant) MarshalText() ([]byte, error) {
	if o.Kind == Empty {
		return []byte{}, nil
	}
	return []byte(o.String()), nil
}

func (o *Occupant) UnmarshalText(b []byte) error {
	s := string(b)
	switch {
	case s == "":
		*o = Occupant{}
	case s == "king":
		*o = Occupant{Kind: King}
	case s == "knight":
		*o = Occupant{Kind: Knight}
	case strings.HasPrefix(s, "assassin:"):
		v, err := ParseVillager(strings.TrimPrefix(s, "assassin:"))
		if err != nil {
			return err
		}
		*o = Occupant{Kind: Assassin, Who: v}
	default:
		v, err := ParseVillager(s)
		if err != nil {
			return err
		}
		*o = Occupant{Kind: Disguised, Who: v}
	}
	return nil
}

// Grid holds the pawns. It is a value type; assigning it copies every cell.
type Grid [Size][Size]Occupant

func (g *Grid) At(c Coord) Occupant {
	if !c.InBounds() {
		return Occupant{}
	}
	return g[c.X][c.Y]
}

func (g *Grid) Set(c Coord, o Occupant) { g[c.X][c.Y] = o }

// Free reports whether c is on the board and unoccupied.
func (g *Grid) Free(c Coord) bool { return c.InBounds() && g[c.X][c.Y].Kind == Empty }

// Find returns the coordinates of every cell holding kind, in row-major order.
func (g *Grid) Find(kind Kind) []Coord {
	var out []Coord
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			if g[x][y].Kind == kind {
				out = append(out, Coord{x, y})
			}
		}
	}
	return out
}

// KingAt returns the king's cell, if the king is on the board.
func (g *Grid) KingAt() (Coord, bool) {
	kings := g.Find(King)
	if len(kings) == 0 {
		return Coord{}, false
	}
	return kings[0], true
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int {
	n := 0
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			if g[x][y].Kind != Empty {
				n++
			}
		}
	}
	return n
}

var (
	kingStart    = Coord{9, 9}
	knightStarts = []Coord{{1, 3}, {3, 0}, {7, 8}, {8, 7}, {8, 8}, {8, 9}, {9, 8}}
	villagerHome = []Coord{
		{1, 7}, {2, 1}, {3, 4}, {3, 6}, {5, 2}, {5, 5},
		{5, 7}, {5, 9}, {7, 1}, {7, 5}, {8, 3}, {9, 5},
	}
)

// DefaultLayout places the king and knights on their fixed cells and deals
// the villagers onto their starting cells in an order drawn from rng.
func DefaultLayout(rng *rand.Rand) Grid {
	var g Grid
	g.Set(kingStart, Occupant{Kind: King})
	for _, c := range knightStarts {
		g.Set(c, Occupant{Kind: Knight})
	}
	for i, p := range rng.Perm(PopulationSize) {
		g.Set(villagerHome[i], Occupant{Kind: Disguised, Who: Villager(p)})
	}
	return g
}
