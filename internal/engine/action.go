package engine

import (
	"encoding/json"
	"fmt"
)

// ActionKind tags an action.
type ActionKind uint8

const (
	Move ActionKind = iota
	Arrest
	Kill
	Attack
	Reveal
)

var actionTags = [...]string{"move", "arrest", "kill", "attack", "reveal"}

func (k ActionKind) String() string {
	if int(k) < len(actionTags) {
		return actionTags[k]
	}
	return fmt.Sprintf("ActionKind(%d)", k)
}

// ParseActionKind converts a wire tag into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for i, tag := range actionTags {
		if tag == s {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Action is one step of a turn. Dir is ignored for Reveal.
type Action struct {
	Kind ActionKind
	At   Coord
	Dir  Direction
}

func (a Action) Target() Coord { return a.At.Step(a.Dir) }

func (a Action) String() string {
	if a.Kind == Reveal {
		return fmt.Sprintf("(%s, %d, %d)", a.Kind, a.At.X, a.At.Y)
	}
	return fmt.Sprintf("(%s, %d, %d, %s)", a.Kind, a.At.X, a.At.Y, a.Dir)
}

// MarshalJSON encodes the action as a tagged tuple, e.g. ["move",3,4,"N"] or
// ["reveal",3,4].
func (a Action) MarshalJSON() ([]byte, error) {
	if int(a.Kind) >= len(actionTags) {
		return nil, fmt.Errorf("invalid action kind %d", a.Kind)
	}
	if a.Kind == Reveal {
		return json.Marshal([]any{a.Kind.String(), a.At.X, a.At.Y})
	}
	return json.Marshal([]any{a.Kind.String(), a.At.X, a.At.Y, a.Dir.String()})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("action must be an array: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("empty action")
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return fmt.Errorf("action tag must be a string: %w", err)
	}
	kind, err := ParseActionKind(tag)
	if err != nil {
		return err
	}
	want := 4
	if kind == Reveal {
		want = 3
	}
	if len(parts) != want {
		return fmt.Errorf("%s takes %d fields, got %d", kind, want, len(parts))
	}
	var out Action
	out.Kind = kind
	if err := json.Unmarshal(parts[1], &out.At.X); err != nil {
		return fmt.Errorf("%s: x must be an integer: %w", kind, err)
	}
	if err := json.Unmarshal(parts[2], &out.At.Y); err != nil {
		return fmt.Errorf("%s: y must be an integer: %w", kind, err)
	}
	if !out.At.InBounds() {
		return fmt.Errorf("%s: coordinate %s is off the board", kind, out.At)
	}
	if kind != Reveal {
		var tok string
		if err := json.Unmarshal(parts[3], &tok); err != nil {
			return fmt.Errorf("%s: direction must be a string: %w", kind, err)
		}
		if out.Dir, err = ParseDirection(tok); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	*a = out
	return nil
}

// TurnSubmission is the body of an ordinary turn.
type TurnSubmission struct {
	Actions []Action `json:"actions"`
}

// SetupSubmission is the body of the initial assassin designation.
type SetupSubmission struct {
	Assassins []string `json:"assassins"`
}
