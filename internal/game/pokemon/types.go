// Package pokemon holds the static battle tables: the elemental type chart,
// natures, the stat formula and non-volatile status conditions.
package pokemon

import (
	"fmt"
	"strings"
)

// Type is an elemental type. The zero value (TypeNone) is typeless: it is never
// a Pokemon's type and it hits every type for neutral damage.
type Type int

const (
	TypeNone Type = iota
	Normal
	Fire
	Water
	Electric
	Grass
	Ice
	Fighting
	Poison
	Ground
	Flying
	Psychic
	Bug
	Rock
	Ghost
	Dragon
	Dark
	Steel
	Fairy

	numTypes
)

var typeNames = [numTypes]string{
	"none", "normal", "fire", "water", "electric", "grass", "ice", "fighting",
	"poison", "ground", "flying", "psychic", "bug", "rock", "ghost", "dragon",
	"dark", "steel", "fairy",
}

// AllTypes returns the 18 real types in chart order.
func AllTypes() []Type {
	out := make([]Type, 0, numTypes-1)
	for t := Normal; t < numTypes; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is one of the 18 real types.
func (t Type) Valid() bool { return t > TypeNone && t < numTypes }

// String returns the lowercase type name.
func (t Type) String() string {
	if t < 0 || t >= numTypes {
		return "unknown"
	}
	return typeNames[t]
}

// ParseType maps a case-insensitive type name to a Type.
//
// Postcondition: returns an error for unknown names and for "none".
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t := Normal; t < numTypes; t++ {
		if typeNames[t] == name {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown type %q", s)
}

// MarshalText encodes the type as its name.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes a type name. The empty string and "none" decode to TypeNone.
func (t *Type) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	if s == "" || s == "none" {
		*t = TypeNone
		return nil
	}
	v, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Multipliers a single attacking type can have against a single defending type.
const (
	Immune           = 0.0
	NotVeryEffective = 0.5
	Neutral          = 1.0
	SuperEffective   = 2.0
)

// chart[attacker][defender]; unset cells are Neutral.
var chart [numTypes][numTypes]float64

func init() {
	for a := range chart {
		for d := range chart[a] {
			chart[a][d] = Neutral
		}
	}
	set := func(v float64, atk Type, defs ...Type) {
		for _, d := range defs {
			chart[atk][d] = v
		}
	}

	set(NotVeryEffective, Normal, Rock, Steel)
	set(Immune, Normal, Ghost)

	set(SuperEffective, Fire, Grass, Ice, Bug, Steel)
	set(NotVeryEffective, Fire, Fire, Water, Rock, Dragon)

	set(SuperEffective, Water, Fire, Ground, Rock)
	set(NotVeryEffective, Water, Water, Grass, Dragon)

	set(SuperEffective, Electric, Water, Flying)
	set(NotVeryEffective, Electric, Electric, Grass, Dragon)
	set(Immune, Electric, Ground)

	set(SuperEffective, Grass, Water, Ground, Rock)
	set(NotVeryEffective, Grass, Fire, Grass, Poison, Flying, Bug, Dragon, Steel)

	set(SuperEffective, Ice, Grass, Ground, Flying, Dragon)
	set(NotVeryEffective, Ice, Fire, Water, Ice, Steel)

	set(SuperEffective, Fighting, Normal, Ice, Rock, Dark, Steel)
	set(NotVeryEffective, Fighting, Poison, Flying, Psychic, Bug, Fairy)
	set(Immune, Fighting, Ghost)

	set(SuperEffective, Poison, Grass, Fairy)
	set(NotVeryEffective, Poison, Poison, Ground, Rock, Ghost)
	set(Immune, Poison, Steel)

	set(SuperEffective, Ground, Fire, Electric, Poison, Rock, Steel)
	set(NotVeryEffective, Ground, Grass, Bug)
	set(Immune, Ground, Flying)

	set(SuperEffective, Flying, Grass, Fighting, Bug)
	set(NotVeryEffective, Flying, Electric, Rock, Steel)

	set(SuperEffective, Psychic, Fighting, Poison)
	set(NotVeryEffective, Psychic, Psychic, Steel)
	set(Immune, Psychic, Dark)

	set(SuperEffective, Bug, Grass, Psychic, Dark)
	set(NotVeryEffective, Bug, Fire, Fighting, Poison, Flying, Ghost, Steel, Fairy)

	set(SuperEffective, Rock, Fire, Ice, Flying, Bug)
	set(NotVeryEffective, Rock, Fighting, Ground, Steel)

	set(SuperEffective, Ghost, Psychic, Ghost)
	set(NotVeryEffective, Ghost, Dark)
	set(Immune, Ghost, Normal)

	set(SuperEffective, Dragon, Dragon)
	set(NotVeryEffective, Dragon, Steel)
	set(Immune, Dragon, Fairy)

	set(SuperEffective, Dark, Psychic, Ghost)
	set(NotVeryEffective, Dark, Fighting, Dark, Fairy)

	set(SuperEffective, Steel, Ice, Rock, Fairy)
	set(NotVeryEffective, Steel, Fire, Water, Electric, Steel)

	set(SuperEffective, Fairy, Fighting, Dragon, Dark)
	set(NotVeryEffective, Fairy, Fire, Poison, Steel)
}

// Effectiveness returns the damage multiplier of an attacking type against a
// defender with the given types: the product of the single-type lookups.
// Typeless attacks and TypeNone defender entries contribute Neutral.
//
// Postcondition: result is in {0, 0.25, 0.5, 1, 2, 4} for one or two defender types.
func Effectiveness(attack Type, defender ...Type) float64 {
	mult := Neutral
	if !attack.Valid() {
		return mult
	}
	for _, d := range defender {
		if !d.Valid() {
			continue
		}
		mult *= chart[attack][d]
	}
	return mult
}
