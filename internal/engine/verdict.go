package engine

// Reason explains a verdict.
type Reason uint8

const (
	NoVerdict Reason = iota
	CastleReached
	DeckExhausted
	KingKilled
	AssassinsNeutralized
)

func (r Reason) String() string {
	switch r {
	case CastleReached:
		return "the king reached the castle"
	case DeckExhausted:
		return "there are no more cards"
	case KingKilled:
		return "the king has been killed"
	case AssassinsNeutralized:
		return "all the assassins have been arrested or killed"
	}
	return "no winner yet"
}

// Verdict is the outcome of a state. Winner is meaningless unless Decided.
type Verdict struct {
	Winner Side   `json:"winner"`
	Reason Reason `json:"reason"`
}

func (v Verdict) Decided() bool { return v.Reason != NoVerdict }

func (v Verdict) String() string {
	if !v.Decided() {
		return v.Reason.String()
	}
	return v.Winner.String() + " win: " + v.Reason.String()
}

// Verdict evaluates the win conditions in their fixed priority order.
func (s *State) Verdict() Verdict { return Evaluate(&s.pub, &s.hidden) }

// Evaluate is the win evaluator. The first matching rule wins:
// castle, exhausted deck, dead king, neutralised assassins.
func Evaluate(pub *Public, hidden *Hidden) Verdict {
	if king, ok := pub.Grid.KingAt(); ok && pub.Board.AtExit(king) {
		return Verdict{Winner: SideCrown, Reason: CastleReached}
	}
	if hidden.Designated && len(hidden.Deck) == 0 {
		return Verdict{Winner: SideCrown, Reason: DeckExhausted}
	}
	if pub.King == Dead {
		return Verdict{Winner: SideAssassins, Reason: KingKilled}
	}
	caught := NewVillagerSet(pub.Arrested...).Intersect(hidden.Assassins)
	if hidden.Designated && pub.Killed.Assassins+caught.Len() >= AssassinCount {
		return Verdict{Winner: SideCrown, Reason: AssassinsNeutralized}
	}
	return Verdict{}
}
