package engine

import (
	"errors"
	"fmt"
)

// Play validates a single action for side and applies it to p. known is the
// set of villagers side knows to be assassins; it only matters for reveal.
// On error p is left untouched.
//
// The host applies batches through State.ApplyTurn; planners use Play on a
// private copy so that everything they emit has already passed the rules.
func (p *Public) Play(a Action, side Side, known VillagerSet) error {
	if !a.At.InBounds() {
		return fmt.Errorf("%s is off the board", a.At)
	}
	switch a.Kind {
	case Move:
		return p.move(a, side)
	case Arrest:
		return p.arrest(a, side)
	case Kill:
		return p.kill(a, side)
	case Attack:
		return p.attack(a, side)
	case Reveal:
		return p.reveal(a, side, known)
	}
	return fmt.Errorf("unknown action %s", a.Kind)
}

// Check reports whether a would be accepted, without applying it.
func (p *Public) Check(a Action, side Side, known VillagerSet) error {
	probe := p.Clone()
	return probe.Play(a, side, known)
}

func classOf(o Occupant) Class {
	switch o.Kind {
	case King:
		return ClassKing
	case Knight:
		return ClassKnight
	}
	return ClassPopulation
}

func (p *Public) target(a Action) (Coord, Occupant, error) {
	t := a.Target()
	if !t.InBounds() {
		return t, Occupant{}, fmt.Errorf("%s is off the board", t)
	}
	return t, p.Grid.At(t), nil
}

// CanStep reports whether the pawn at c may step in direction d: the
// destination must be on the board and free, and the king only walks on
// roofs when leaving through a castle door. Knights never push.
func (p *Public) CanStep(c Coord, d Direction) error {
	who := p.Grid.At(c)
	if who.Kind == Empty {
		return errors.New("there is no one to move")
	}
	dst := c.Step(d)
	if !dst.InBounds() {
		return errors.New("cannot move off the board")
	}
	if !p.Grid.Free(dst) {
		return errors.New("cannot move on a cell that is not free")
	}
	if who.Kind == King && p.Board.TerrainAt(dst) == Roof && !p.Board.IsExit(c, d) {
		return errors.New("the king cannot move on a roof")
	}
	return nil
}

func (p *Public) move(a Action, side Side) error {
	who := p.Grid.At(a.At)
	if who.Kind == Empty {
		return errors.New("there is no one to move")
	}
	if who.Population() && side != SideAssassins {
		return errors.New("villagers and assassins can only be moved by the assassin side")
	}
	if (who.Kind == King || who.Kind == Knight) && side != SideCrown {
		return errors.New("the king and knights can only be moved by the crown")
	}
	if err := p.CanStep(a.At, a.Dir); err != nil {
		return err
	}
	if err := p.Round.Spend(classOf(who)); err != nil {
		return err
	}
	p.Grid.Set(a.Target(), who)
	p.Grid.Set(a.At, Occupant{})
	return nil
}

func (p *Public) arrest(a Action, side Side) error {
	if side != SideCrown {
		return errors.New("only the crown can arrest")
	}
	if p.Grid.At(a.At).Kind != Knight {
		return errors.New("the arrester is not a knight")
	}
	t, target, err := p.target(a)
	if err != nil {
		return err
	}
	if target.Kind != Disguised {
		return errors.New("only villagers can be arrested")
	}
	if err := p.Round.Spend(ClassKnight); err != nil {
		return err
	}
	p.Arrested = append(p.Arrested, target.Who)
	p.Grid.Set(t, Occupant{})
	return nil
}

func (p *Public) kill(a Action, side Side) error {
	killer := p.Grid.At(a.At)
	t, target, err := p.target(a)
	if err != nil {
		return err
	}
	if target.Kind == Empty {
		return errors.New("there is no one to kill")
	}
	switch {
	case killer.Kind == Assassin && target.Kind == Knight:
		if side != SideAssassins {
			return errors.New("assassins only kill for the assassin side")
		}
		if err := p.Round.Spend(ClassPopulation); err != nil {
			return err
		}
		p.Killed.Knights++
	case killer.Kind == Knight && target.Kind == Assassin:
		if side != SideCrown {
			return errors.New("knights only kill for the crown")
		}
		if err := p.Round.Spend(ClassKnight); err != nil {
			return err
		}
		p.Killed.Assassins++
	default:
		return fmt.Errorf("a %s cannot kill a %s", killer.Kind, target.Kind)
	}
	// the victim's cell is cleared, never the killer's
	p.Grid.Set(t, Occupant{})
	return nil
}

func (p *Public) attack(a Action, side Side) error {
	if side != SideAssassins {
		return errors.New("only the assassin side can attack")
	}
	if p.Grid.At(a.At).Kind != Assassin {
		return errors.New("the attacker is not an assassin")
	}
	_, target, err := p.target(a)
	if err != nil {
		return err
	}
	if target.Kind != King {
		return errors.New("only the king can be attacked")
	}
	if p.King == Dead {
		return nil
	}
	if err := p.Round.Spend(ClassPopulation); err != nil {
		return err
	}
	p.King++
	return nil
}

func (p *Public) reveal(a Action, side Side, known VillagerSet) error {
	if side != SideAssassins {
		return errors.New("only the assassin side can reveal")
	}
	who := p.Grid.At(a.At)
	if who.Kind != Disguised {
		return errors.New("there is no disguised villager to reveal")
	}
	if !known.Has(who.Who) {
		return fmt.Errorf("%s is not an assassin", who.Who)
	}
	p.Grid.Set(a.At, Occupant{Kind: Assassin, Who: who.Who})
	return nil
}
