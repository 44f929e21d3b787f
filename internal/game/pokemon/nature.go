package pokemon

import (
	"fmt"
	"strings"
)

// Nature raises one non-HP stat by 10% and lowers another by 10%. Neutral
// natures raise and lower the same stat, which cancels out.
type Nature int

const (
	Hardy Nature = iota
	Lonely
	Brave
	Adamant
	Naughty
	Bold
	Docile
	Relaxed
	Impish
	Lax
	Timid
	Hasty
	Serious
	Jolly
	Naive
	Modest
	Mild
	Quiet
	Bashful
	Rash
	Calm
	Gentle
	Sassy
	Careful
	Quirky

	numNatures
)

type natureEntry struct {
	name     string
	up, down Stat
}

var natures = [numNatures]natureEntry{
	Hardy:   {"hardy", Attack, Attack},
	Lonely:  {"lonely", Attack, Defense},
	Brave:   {"brave", Attack, Speed},
	Adamant: {"adamant", Attack, SpAttack},
	Naughty: {"naughty", Attack, SpDefense},
	Bold:    {"bold", Defense, Attack},
	Docile:  {"docile", Defense, Defense},
	Relaxed: {"relaxed", Defense, Speed},
	Impish:  {"impish", Defense, SpAttack},
	Lax:     {"lax", Defense, SpDefense},
	Timid:   {"timid", Speed, Attack},
	Hasty:   {"hasty", Speed, Defense},
	Serious: {"serious", Speed, Speed},
	Jolly:   {"jolly", Speed, SpAttack},
	Naive:   {"naive", Speed, SpDefense},
	Modest:  {"modest", SpAttack, Attack},
	Mild:    {"mild", SpAttack, Defense},
	Quiet:   {"quiet", SpAttack, Speed},
	Bashful: {"bashful", SpAttack, SpAttack},
	Rash:    {"rash", SpAttack, SpDefense},
	Calm:    {"calm", SpDefense, Attack},
	Gentle:  {"gentle", SpDefense, Defense},
	Sassy:   {"sassy", SpDefense, Speed},
	Careful: {"careful", SpDefense, SpAttack},
	Quirky:  {"quirky", SpDefense, SpDefense},
}

// AllNatures returns the 25 natures.
func AllNatures() []Nature {
	out := make([]Nature, numNatures)
	for i := range out {
		out[i] = Nature(i)
	}
	return out
}

// String returns the lowercase nature name.
func (n Nature) String() string {
	if n < 0 || n >= numNatures {
		return "unknown"
	}
	return natures[n].name
}

// Neutral reports whether the nature leaves every stat unchanged.
func (n Nature) Neutral() bool {
	e := natures[n]
	return e.up == e.down
}

// Raised and Lowered return the affected stats. For neutral natures both are
// the same stat.
func (n Nature) Raised() Stat  { return natures[n].up }
func (n Nature) Lowered() Stat { return natures[n].down }

// Multiplier returns 1.1, 0.9 or 1.0 for stat s. HP is never affected.
func (n Nature) Multiplier(s Stat) float64 {
	if n < 0 || n >= numNatures || n.Neutral() {
		return 1.0
	}
	switch s {
	case natures[n].up:
		return 1.1
	case natures[n].down:
		return 0.9
	default:
		return 1.0
	}
}

// ParseNature maps a case-insensitive name to a Nature.
func ParseNature(s string) (Nature, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, e := range natures {
		if e.name == name {
			return Nature(i), nil
		}
	}
	return Hardy, fmt.Errorf("unknown nature %q", s)
}

// MarshalText encodes the nature as its name.
func (n Nature) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText decodes a nature name; empty decodes to Hardy.
func (n *Nature) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*n = Hardy
		return nil
	}
	v, err := ParseNature(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}
