package engine

import "fmt"

// Size is the width and height of the board.
const Size = 10

// Terrain is the static cell type of the board.
type Terrain uint8

const (
	Ground Terrain = iota
	Roof
)

// Direction is one of the four orthogonal steps.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists the steps in N, E, S, W order.
var Directions = [4]Direction{North, East, South, West}

var directionTokens = [4]string{"N", "E", "S", "W"}

var directionDeltas = [4]Coord{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}

func (d Direction) String() string {
	if int(d) < len(directionTokens) {
		return directionTokens[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// ParseDirection converts a wire token (N, E, S, W) into a Direction.
func ParseDirection(s string) (Direction, error) {
	for i, tok := range directionTokens {
		if tok == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if int(d) >= len(directionTokens) {
		return nil, fmt.Errorf("invalid direction %d", d)
	}
	return []byte(directionTokens[d]), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Coord addresses a cell; X is the row and Y the column.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Step returns the neighbouring coordinate in direction d. It may be off-board.
func (c Coord) Step(d Direction) Coord {
	delta := directionDeltas[d]
	return Coord{X: c.X + delta.X, Y: c.Y + delta.Y}
}

// InBounds reports whether c lies on the board.
func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < Size && c.Y >= 0 && c.Y < Size
}

// Door is a castle door and the direction the king steps to leave through it.
type Door struct {
	At     Coord     `json:"at"`
	Facing Direction `json:"facing"`
}

// Exit is the cell immediately beyond the door.
func (d Door) Exit() Coord { return d.At.Step(d.Facing) }

// Board is the static terrain and the castle doors. It is never mutated once
// built, so one value may be shared by every game.
type Board struct {
	Terrain [Size][Size]Terrain `json:"terrain"`
	Doors   []Door              `json:"doors"`
}

var defaultRows = [Size]string{
	"RRRRRGGRRR",
	"RRRRRGGRRR",
	"RGGGGGGGGR",
	"RGGGGGGGGG",
	"RGGGGRRGGG",
	"GGGGGRRGGG",
	"RRGGGRRGGG",
	"RRGGGRRGGG",
	"RRGGGGGGGG",
	"RRGGGGGGGG",
}

// DefaultBoard returns the standard village with its two castle doors.
func DefaultBoard() *Board {
	b := &Board{
		Doors: []Door{
			{At: Coord{2, 2}, Facing: North},
			{At: Coord{4, 1}, Facing: West},
		},
	}
	for x, row := range defaultRows {
		for y, cell := range row {
			if cell == 'R' {
				b.Terrain[x][y] = Roof
			}
		}
	}
	return b
}

// TerrainAt returns the terrain of c. Off-board cells report Roof.
func (b *Board) TerrainAt(c Coord) Terrain {
	if !c.InBounds() {
		return Roof
	}
	return b.Terrain[c.X][c.Y]
}

// IsExit reports whether stepping from c in direction d passes out through a
// castle door.
func (b *Board) IsExit(c Coord, d Direction) bool {
	for _, door := range b.Doors {
		if door.At == c && door.Facing == d {
			return true
		}
	}
	return false
}

// AtExit reports whether c is the cell beyond one of the doors.
func (b *Board) AtExit(c Coord) bool {
	for _, door := range b.Doors {
		if door.Exit() == c {
			return true
		}
	}
	return false
}
