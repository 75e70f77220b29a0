package engine

// LegalActions lists every single action side could play right now, in
// row-major cell order. It reflects the remaining budget of the round.
func (p *Public) LegalActions(side Side, known VillagerSet) []Action {
	var out []Action
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			c := Coord{x, y}
			o := p.Grid.At(c)
			if o.Kind == Empty {
				continue
			}
			for _, kind := range kindsFor(o, side) {
				if kind == Reveal {
					a := Action{Kind: Reveal, At: c}
					if p.Check(a, side, known) == nil {
						out = append(out, a)
					}
					continue
				}
				for _, d := range Directions {
					a := Action{Kind: kind, At: c, Dir: d}
					if p.Check(a, side, known) == nil {
						out = append(out, a)
					}
				}
			}
		}
	}
	return out
}

func kindsFor(o Occupant, side Side) []ActionKind {
	switch {
	case side == SideCrown && o.Kind == King:
		return []ActionKind{Move}
	case side == SideCrown && o.Kind == Knight:
		return []ActionKind{Move, Arrest, Kill}
	case side == SideAssassins && o.Kind == Disguised:
		return []ActionKind{Move, Reveal}
	case side == SideAssassins && o.Kind == Assassin:
		return []ActionKind{Move, Kill, Attack}
	}
	return nil
}
