package planner

import (
	"math"

	"kingassassins/internal/engine"
)

// Crown plans the crown's batch: knights first strike what threatens the
// king, then the king walks towards the nearest castle door, then the
// remaining knight points are spent on random patrols. The result may be
// empty.
func (p *Planner) Crown(view engine.Public) []engine.Action {
	b := newBatch(view, engine.SideCrown, 0)
	p.guard(b)
	p.walkKing(b)
	p.wander(b, engine.ClassKnight, engine.Knight)
	return b.actions
}

// guard kills revealed assassins next to a knight and arrests villagers that
// stand next to both a knight and the king.
func (p *Planner) guard(b *batch) {
	for b.remaining().Knight > 0 {
		if !p.strikeOnce(b) {
			return
		}
	}
}

func (p *Planner) strikeOnce(b *batch) bool {
	for _, k := range b.sim.Grid.Find(engine.Knight) {
		if d, ok := neighbour(&b.sim, k, engine.Assassin); ok {
			if b.play(engine.Action{Kind: engine.Kill, At: k, Dir: d}) {
				return true
			}
		}
	}
	for _, k := range b.sim.Grid.Find(engine.Knight) {
		for _, d := range engine.Directions {
			t := k.Step(d)
			if b.sim.Grid.At(t).Kind != engine.Disguised {
				continue
			}
			if _, nearKing := neighbour(&b.sim, t, engine.King); !nearKing {
				continue
			}
			if b.play(engine.Action{Kind: engine.Arrest, At: k, Dir: d}) {
				return true
			}
		}
	}
	return false
}

// walkKing spends the king's points stepping to the neighbouring cell closest
// to a door exit, or a random legal step when no step gets closer.
func (p *Planner) walkKing(b *batch) {
	for b.remaining().King > 0 {
		king, ok := b.sim.Grid.KingAt()
		if !ok || b.sim.Board.AtExit(king) {
			return
		}
		dirs := groundSteps(&b.sim, king)
		if len(dirs) == 0 {
			return
		}
		best, bestDist := dirs[0], math.Inf(1)
		here := exitDistance(b.sim.Board, king)
		for _, d := range dirs {
			if dd := exitDistance(b.sim.Board, king.Step(d)); dd < here && dd < bestDist {
				best, bestDist = d, dd
			}
		}
		if math.IsInf(bestDist, 1) {
			best = dirs[p.rng.Intn(len(dirs))]
		}
		if !b.play(engine.Action{Kind: engine.Move, At: king, Dir: best}) {
			return
		}
	}
}

func exitDistance(board *engine.Board, c engine.Coord) float64 {
	best := math.Inf(1)
	for _, door := range board.Doors {
		best = math.Min(best, distance(c, door.Exit()))
	}
	return best
}
