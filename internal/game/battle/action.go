package battle

import (
	"fmt"
	"strings"
)

// ActionKind identifies what a player does on a turn.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMove
	ActionSwitch
	ActionForfeit
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionSwitch:
		return "switch"
	case ActionForfeit:
		return "forfeit"
	default:
		return "unknown"
	}
}

// ParseActionKind maps "move", "switch" or "forfeit" to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "move":
		return ActionMove, nil
	case "switch":
		return ActionSwitch, nil
	case "forfeit":
		return ActionForfeit, nil
	default:
		return ActionUnknown, fmt.Errorf("%w: unknown action %q", ErrValidation, s)
	}
}

func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ActionKind) UnmarshalText(b []byte) error {
	v, err := ParseActionKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Action is a player's choice for one turn. It is one of MoveAction,
// SwitchAction or ForfeitAction.
type Action interface {
	Kind() ActionKind
	record() ActionRecord
}

// MoveAction uses the move in slot Index of the active Pokemon.
type MoveAction struct{ Index int }

// SwitchAction brings in the team member at Slot.
type SwitchAction struct{ Slot int }

// ForfeitAction concedes the battle.
type ForfeitAction struct{}

func (MoveAction) Kind() ActionKind    { return ActionMove }
func (SwitchAction) Kind() ActionKind  { return ActionSwitch }
func (ForfeitAction) Kind() ActionKind { return ActionForfeit }

func (a MoveAction) record() ActionRecord   { return ActionRecord{Kind: ActionMove, Index: a.Index} }
func (a SwitchAction) record() ActionRecord { return ActionRecord{Kind: ActionSwitch, Index: a.Slot} }
func (ForfeitAction) record() ActionRecord  { return ActionRecord{Kind: ActionForfeit} }

// ActionRecord is the stored form of an Action.
type ActionRecord struct {
	Kind  ActionKind `json:"kind"`
	Index int        `json:"index,omitempty"`
}

// Record converts an Action to its stored form.
func Record(a Action) ActionRecord { return a.record() }

// Action converts the record back into an Action.
func (r ActionRecord) Action() (Action, error) {
	switch r.Kind {
	case ActionMove:
		return MoveAction{Index: r.Index}, nil
	case ActionSwitch:
		return SwitchAction{Slot: r.Index}, nil
	case ActionForfeit:
		return ForfeitAction{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action kind %d", ErrValidation, int(r.Kind))
	}
}
