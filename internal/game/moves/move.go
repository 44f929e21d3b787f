// Package moves defines battle moves, the default move pool and the default
// moveset generator.
package moves

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
)

// Category selects the stat pair a move uses. Status moves deal no damage.
type Category int

const (
	Physical Category = iota
	Special
	StatusMove
)

func (c Category) String() string {
	switch c {
	case Physical:
		return "physical"
	case Special:
		return "special"
	case StatusMove:
		return "status"
	default:
		return "unknown"
	}
}

// ParseCategory maps a name to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "physical":
		return Physical, nil
	case "special":
		return Special, nil
	case "status":
		return StatusMove, nil
	default:
		return Physical, fmt.Errorf("unknown move category %q", s)
	}
}

// MarshalText encodes the category as its name.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Move is an immutable move definition.
//
// For status moves, a Status combined with SelfHeal applies to the user (rest);
// a Status without SelfHeal targets the opponent. For damaging moves Status is a
// secondary effect rolled against EffectChance.
type Move struct {
	Name          string         `json:"name"`
	Type          pokemon.Type   `json:"type"`
	Category      Category       `json:"category"`
	Power         int            `json:"power"`
	Accuracy      int            `json:"accuracy"`
	SureHit       bool           `json:"sure_hit,omitempty"`
	PP            int            `json:"pp"`
	Priority      int            `json:"priority,omitempty"`
	DrainPercent  int            `json:"drain_percent,omitempty"`
	RecoilPercent int            `json:"recoil_percent,omitempty"`
	Status        pokemon.Status `json:"status,omitempty"`
	EffectChance  int            `json:"effect_chance,omitempty"`
	SelfHeal      bool           `json:"self_heal,omitempty"`
	HealPercent   int            `json:"heal_percent,omitempty"`
	Protect       bool           `json:"protect,omitempty"`
}

// Damaging reports whether the move deals damage.
func (m Move) Damaging() bool { return m.Category != StatusMove && m.Power > 0 }

// DisplayName renders "quick-attack" as "Quick Attack".
func (m Move) DisplayName() string {
	parts := strings.Split(m.Name, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks the move's invariants.
//
// Postcondition: returns nil iff name is non-empty, power >= 0, accuracy in
// [1,100], pp >= 0, the percentages are in [0,100], status moves carry no power
// and damaging moves carry a real type (Struggle excepted).
func (m Move) Validate() error {
	var errs []string
	if m.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if m.Power < 0 {
		errs = append(errs, fmt.Sprintf("power %d must be >= 0", m.Power))
	}
	if m.Accuracy < 1 || m.Accuracy > 100 {
		errs = append(errs, fmt.Sprintf("accuracy %d must be in [1,100]", m.Accuracy))
	}
	if m.PP < 0 {
		errs = append(errs, fmt.Sprintf("pp %d must be >= 0", m.PP))
	}
	percents := []struct {
		name string
		v    int
	}{
		{"drain", m.DrainPercent},
		{"recoil", m.RecoilPercent},
		{"effect chance", m.EffectChance},
		{"heal", m.HealPercent},
	}
	for _, p := range percents {
		if p.v < 0 || p.v > 100 {
			errs = append(errs, fmt.Sprintf("%s %d must be in [0,100]", p.name, p.v))
		}
	}
	if m.Category == StatusMove && m.Power != 0 {
		errs = append(errs, "status moves must have power 0")
	}
	if m.Category != StatusMove && m.Power == 0 {
		errs = append(errs, "damaging moves must have power > 0")
	}
	if !m.Type.Valid() && m.Name != StruggleName {
		errs = append(errs, fmt.Sprintf("type %s is not a real type", m.Type))
	}
	if m.SelfHeal != (m.HealPercent > 0) {
		errs = append(errs, "self heal requires a heal percent and vice versa")
	}
	if len(errs) > 0 {
		return fmt.Errorf("move %q invalid: %s", m.Name, strings.Join(errs, "; "))
	}
	return nil
}

// StruggleName is the name of the fallback move used when every move is out of PP.
const StruggleName = "struggle"

// Struggle returns the typeless fallback move. It never runs out and always
// costs the user a quarter of the damage dealt.
func Struggle() Move {
	return Move{
		Name:          StruggleName,
		Type:          pokemon.TypeNone,
		Category:      Physical,
		Power:         50,
		Accuracy:      100,
		PP:            1,
		RecoilPercent: 25,
	}
}
