package planner

import "kingassassins/internal/engine"

// Assassins plans the assassin side's batch. Designated assassins next to
// the king or a knight throw off their disguise, revealed assassins strike
// while points remain, and what is left moves random villagers.
func (p *Planner) Assassins(view engine.AssassinView) []engine.Action {
	b := newBatch(view.Public, engine.SideAssassins, view.Assassins)
	p.unmask(b)
	for b.remaining().Population > 0 && b.sim.King != engine.Dead {
		if !p.stab(b) {
			break
		}
	}
	if b.sim.King != engine.Dead {
		p.wander(b, engine.ClassPopulation, engine.Disguised, engine.Assassin)
	}
	return b.actions
}

func (p *Planner) unmask(b *batch) {
	for _, c := range b.sim.Grid.Find(engine.Disguised) {
		if !b.known.Has(b.sim.Grid.At(c).Who) {
			continue
		}
		_, nearKing := neighbour(&b.sim, c, engine.King)
		_, nearKnight := neighbour(&b.sim, c, engine.Knight)
		if nearKing || nearKnight {
			b.play(engine.Action{Kind: engine.Reveal, At: c})
		}
	}
}

// stab plays one attack on the king, or failing that one kill on a knight.
func (p *Planner) stab(b *batch) bool {
	assassins := b.sim.Grid.Find(engine.Assassin)
	for _, c := range assassins {
		if d, ok := neighbour(&b.sim, c, engine.King); ok {
			if b.play(engine.Action{Kind: engine.Attack, At: c, Dir: d}) {
				return true
			}
		}
	}
	for _, c := range assassins {
		if d, ok := neighbour(&b.sim, c, engine.Knight); ok {
			if b.play(engine.Action{Kind: engine.Kill, At: c, Dir: d}) {
				return true
			}
		}
	}
	return false
}
