package pokemon

import "fmt"

// Stat identifies one entry of a stat block.
type Stat int

const (
	HP Stat = iota
	Attack
	Defense
	SpAttack
	SpDefense
	Speed
)

func (s Stat) String() string {
	switch s {
	case HP:
		return "hp"
	case Attack:
		return "attack"
	case Defense:
		return "defense"
	case SpAttack:
		return "sp_attack"
	case SpDefense:
		return "sp_defense"
	case Speed:
		return "speed"
	default:
		return "unknown"
	}
}

// Stats is a full six-value stat block. It is used for base stats, IVs, EVs
// and computed battle stats alike.
type Stats struct {
	HP        int `json:"hp" yaml:"hp"`
	Attack    int `json:"attack" yaml:"attack"`
	Defense   int `json:"defense" yaml:"defense"`
	SpAttack  int `json:"sp_attack" yaml:"sp_attack"`
	SpDefense int `json:"sp_defense" yaml:"sp_defense"`
	Speed     int `json:"speed" yaml:"speed"`
}

// Get returns the value for s.
func (b Stats) Get(s Stat) int {
	switch s {
	case HP:
		return b.HP
	case Attack:
		return b.Attack
	case Defense:
		return b.Defense
	case SpAttack:
		return b.SpAttack
	case SpDefense:
		return b.SpDefense
	case Speed:
		return b.Speed
	default:
		return 0
	}
}

// Total returns the sum of all six values.
func (b Stats) Total() int {
	return b.HP + b.Attack + b.Defense + b.SpAttack + b.SpDefense + b.Speed
}

// Limits on individual and effort values.
const (
	MaxIV      = 31
	MaxEV      = 252
	MaxEVTotal = 510
	MinLevel   = 1
	MaxLevel   = 100
)

// ValidateSpread checks IVs and EVs against their limits.
func ValidateSpread(ivs, evs Stats) error {
	for s := HP; s <= Speed; s++ {
		if iv := ivs.Get(s); iv < 0 || iv > MaxIV {
			return fmt.Errorf("iv %s=%d out of range [0,%d]", s, iv, MaxIV)
		}
		if ev := evs.Get(s); ev < 0 || ev > MaxEV {
			return fmt.Errorf("ev %s=%d out of range [0,%d]", s, ev, MaxEV)
		}
	}
	if evs.Total() > MaxEVTotal {
		return fmt.Errorf("ev total %d exceeds %d", evs.Total(), MaxEVTotal)
	}
	return nil
}

// CalcHP returns the maximum HP for the given base, IV, EV and level.
//
// Precondition: level in [1,100]; iv in [0,31]; ev in [0,252].
// Postcondition: result >= level + 10.
func CalcHP(base, iv, ev, level int) int {
	return (2*base+iv+ev/4)*level/100 + level + 10
}

// CalcStat returns a non-HP stat after the nature multiplier.
//
// Precondition: level in [1,100]; iv in [0,31]; ev in [0,252].
func CalcStat(base, iv, ev, level int, natureMult float64) int {
	raw := float64((2*base+iv+ev/4)*level)/100 + 5
	return int(raw * natureMult)
}

// CalcStats computes a full battle stat block.
func CalcStats(base, ivs, evs Stats, level int, nature Nature) Stats {
	stat := func(s Stat) int {
		return CalcStat(base.Get(s), ivs.Get(s), evs.Get(s), level, nature.Multiplier(s))
	}
	return Stats{
		HP:        CalcHP(base.HP, ivs.HP, evs.HP, level),
		Attack:    stat(Attack),
		Defense:   stat(Defense),
		SpAttack:  stat(SpAttack),
		SpDefense: stat(SpDefense),
		Speed:     stat(Speed),
	}
}
