package engine

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Render is the host's diagnostic dump, hidden slice included.
func (s *State) Render() string {
	var b strings.Builder
	if s.hidden.Designated {
		fmt.Fprintf(&b, "   - Assassins: %s\n", strings.Join(s.hidden.Assassins.Names(), ", "))
	} else {
		b.WriteString("   - Assassins: not designated yet\n")
	}
	fmt.Fprintf(&b, "   - Remaining cards: %d\n", len(s.hidden.Deck))
	fmt.Fprintf(&b, "   - Verdict: %s\n", s.Verdict())
	b.WriteString(s.pub.Render())
	return b.String()
}

// Render prints what every player can see.
func (p *Public) Render() string {
	var b strings.Builder
	if p.Round.Card == nil {
		b.WriteString("   - Current card: none\n")
	} else {
		fmt.Fprintf(&b, "   - Current card: %s, %s round\n", p.Round.Card, humanize.Ordinal(p.Round.Number))
	}
	fmt.Fprintf(&b, "   - King: %s\n", p.King)
	fmt.Fprintf(&b, "   - Killed: %d knights, %d assassins\n", p.Killed.Knights, p.Killed.Assassins)
	names := make([]string, len(p.Arrested))
	for i, v := range p.Arrested {
		names[i] = v.String()
	}
	fmt.Fprintf(&b, "   - Arrested: [%s]\n", strings.Join(names, ", "))
	b.WriteString("   - People:\n")
	b.WriteString("   +" + strings.Repeat("----+", Size) + "\n")
	for x := 0; x < Size; x++ {
		cells := make([]string, Size)
		for y := 0; y < Size; y++ {
			cells[y] = tag(p.Grid[x][y])
		}
		fmt.Fprintf(&b, "   | %s |\n", strings.Join(cells, " | "))
		b.WriteString("   +")
		for y := 0; y < Size; y++ {
			if p.Board.Terrain[x][y] == Roof {
				b.WriteString("^^^^+")
			} else {
				b.WriteString("----+")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// tag is the two-letter cell label; revealed assassins are upper-cased.
func tag(o Occupant) string {
	switch o.Kind {
	case Empty:
		return "  "
	case Disguised:
		return o.Who.String()[:2]
	case Assassin:
		return strings.ToUpper(o.Who.String()[:2])
	}
	return o.Kind.String()[:2]
}
