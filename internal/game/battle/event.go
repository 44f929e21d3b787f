package battle

import (
	"fmt"

	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// EventKind classifies a TurnEvent.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventForfeit
	EventSwitch
	EventMove
	EventDamage
	EventMiss
	EventImmune
	EventProtected
	EventNoTarget
	EventCantMove
	EventFaint
	EventStatusApplied
	EventStatusCured
	EventStatusDamage
	EventDrain
	EventRecoil
	EventHeal
	EventProtect
	EventNoEffect
	EventWin
	EventDraw
	EventCancelled
	EventFailure
)

var eventKindNames = [...]string{
	EventUnknown:       "unknown",
	EventForfeit:       "forfeit",
	EventSwitch:        "switch",
	EventMove:          "move",
	EventDamage:        "damage",
	EventMiss:          "miss",
	EventImmune:        "immune",
	EventProtected:     "protected",
	EventNoTarget:      "no_target",
	EventCantMove:      "cant_move",
	EventFaint:         "faint",
	EventStatusApplied: "status_applied",
	EventStatusCured:   "status_cured",
	EventStatusDamage:  "status_damage",
	EventDrain:         "drain",
	EventRecoil:        "recoil",
	EventHeal:          "heal",
	EventProtect:       "protect",
	EventNoEffect:      "no_effect",
	EventWin:           "win",
	EventDraw:          "draw",
	EventCancelled:     "cancelled",
	EventFailure:       "failure",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	for i, n := range eventKindNames {
		if n == string(b) {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", string(b))
}

// TurnEvent is one observable outcome in a battle's history.
type TurnEvent struct {
	Turn          int            `json:"turn"`
	Seq           int            `json:"seq"`
	Kind          EventKind      `json:"kind"`
	Actor         string         `json:"actor,omitempty"`
	Pokemon       string         `json:"pokemon,omitempty"`
	Target        string         `json:"target,omitempty"`
	Move          string         `json:"move,omitempty"`
	Amount        int            `json:"amount,omitempty"`
	Effectiveness float64        `json:"effectiveness,omitempty"`
	Critical      bool           `json:"critical,omitempty"`
	Status        pokemon.Status `json:"status,omitempty"`
	Detail        string         `json:"detail,omitempty"`
}

// eventLog accumulates the events of one turn and numbers them.
type eventLog struct {
	turn   int
	events []TurnEvent
}

func (l *eventLog) add(e TurnEvent) {
	e.Turn = l.turn
	e.Seq = len(l.events) + 1
	l.events = append(l.events, e)
}
