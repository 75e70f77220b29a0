// Package planner synthesises action batches for automated players. It is a
// bounded best-effort generator, not a solver: every action it returns has
// already been played through the engine rules on a private copy of the view,
// so a batch is always legal and never overdraws the active card.
package planner

import (
	"math"

	"golang.org/x/exp/rand"

	"kingassassins/internal/engine"
)

// Planner holds the random source used to break ties and pick wanderers.
// It is not safe for concurrent use.
type Planner struct {
	rng *rand.Rand
}

// New returns a planner drawing from rng.
func New(rng *rand.Rand) *Planner {
	return &Planner{rng: rng}
}

// Designate picks three distinct villagers as the secret assassins.
func (p *Planner) Designate() []string {
	perm := p.rng.Perm(engine.PopulationSize)
	names := make([]string, engine.AssassinCount)
	for i := range names {
		names[i] = engine.Villager(perm[i]).String()
	}
	return names
}

// batch accumulates actions that passed the rules on sim.
type batch struct {
	sim     engine.Public
	side    engine.Side
	known   engine.VillagerSet
	actions []engine.Action
}

func newBatch(view engine.Public, side engine.Side, known engine.VillagerSet) *batch {
	return &batch{sim: view.Clone(), side: side, known: known}
}

func (b *batch) play(a engine.Action) bool {
	if err := b.sim.Play(a, b.side, b.known); err != nil {
		return false
	}
	b.actions = append(b.actions, a)
	return true
}

func (b *batch) remaining() engine.Budget { return b.sim.Round.Remaining() }

// groundSteps lists the directions the pawn at c may legally walk onto
// ground. A king may also leave through a castle door.
func groundSteps(sim *engine.Public, c engine.Coord) []engine.Direction {
	var out []engine.Direction
	king := sim.Grid.At(c).Kind == engine.King
	for _, d := range engine.Directions {
		if sim.CanStep(c, d) != nil {
			continue
		}
		if sim.Board.TerrainAt(c.Step(d)) == engine.Ground || (king && sim.Board.IsExit(c, d)) {
			out = append(out, d)
		}
	}
	return out
}

// wander moves randomly chosen pawns of kind one random legal step each until
// class runs out of points or nobody of that kind can move.
func (p *Planner) wander(b *batch, class engine.Class, kinds ...engine.Kind) {
	for b.remaining().Get(class) > 0 {
		var movers []engine.Coord
		for _, k := range kinds {
			for _, c := range b.sim.Grid.Find(k) {
				if len(groundSteps(&b.sim, c)) > 0 {
					movers = append(movers, c)
				}
			}
		}
		if len(movers) == 0 {
			return
		}
		c := movers[p.rng.Intn(len(movers))]
		dirs := groundSteps(&b.sim, c)
		d := dirs[p.rng.Intn(len(dirs))]
		if !b.play(engine.Action{Kind: engine.Move, At: c, Dir: d}) {
			return
		}
	}
}

// neighbour returns the direction from c towards an adjacent cell holding
// kind.
func neighbour(sim *engine.Public, c engine.Coord, kind engine.Kind) (engine.Direction, bool) {
	for _, d := range engine.Directions {
		if sim.Grid.At(c.Step(d)).Kind == kind {
			return d, true
		}
	}
	return 0, false
}

func distance(a, b engine.Coord) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
