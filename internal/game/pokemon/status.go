package pokemon

import (
	"fmt"
	"strings"
)

// Status is a non-volatile status condition. A Pokemon carries at most one.
type Status int

const (
	StatusNone Status = iota
	Burn
	Poisoned
	Paralysis
	Sleep
	Freeze
	BadlyPoisoned
)

var statusNames = []string{"none", "burn", "poison", "paralysis", "sleep", "freeze", "badly_poisoned"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus maps a name to a Status; "" maps to StatusNone.
func ParseStatus(s string) (Status, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return StatusNone, nil
	}
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusNone, fmt.Errorf("unknown status %q", s)
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ImmuneTo reports whether a Pokemon with the given types cannot receive status s.
func ImmuneTo(s Status, types ...Type) bool {
	for _, t := range types {
		switch {
		case s == Burn && t == Fire,
			s == Freeze && t == Ice,
			s == Paralysis && t == Electric,
			(s == Poisoned || s == BadlyPoisoned) && (t == Poison || t == Steel):
			return true
		}
	}
	return false
}
