package battle

import (
	"fmt"
	"strings"
)

// Format is a singles battle format. It fixes the team size.
type Format int

const (
	FormatUnknown Format = iota // zero value; intentionally invalid
	Singles1v1
	Singles3v3
	Singles6v6
)

// TeamSize returns the number of Pokemon each side brings.
//
// Postcondition: returns 1, 3 or 6 for valid formats and 0 otherwise.
func (f Format) TeamSize() int {
	switch f {
	case Singles1v1:
		return 1
	case Singles3v3:
		return 3
	case Singles6v6:
		return 6
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case Singles1v1:
		return "singles_1v1"
	case Singles3v3:
		return "singles_3v3"
	case Singles6v6:
		return "singles_6v6"
	default:
		return "unknown"
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singles_1v1":
		return Singles1v1, nil
	case "singles_3v3":
		return Singles3v3, nil
	case "singles_6v6":
		return Singles6v6, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: unknown battle format %q", ErrValidation, s)
	}
}

func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Status is the lifecycle stage of a battle. Stages only move forward.
type Status int

const (
	StatusPending Status = iota
	StatusTeamSubmission
	StatusActive
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusTeamSubmission:
		return "team_submission"
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ParseStatus maps a status name to a Status.
func ParseStatus(s string) (Status, error) {
	for st := StatusPending; st <= StatusFinished; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return StatusPending, fmt.Errorf("unknown battle status %q", s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// canAdvance reports whether a battle may move from s to next.
func (s Status) canAdvance(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusTeamSubmission || next == StatusFinished
	case StatusTeamSubmission:
		return next == StatusActive || next == StatusFinished
	case StatusActive:
		return next == StatusFinished
	default:
		return false
	}
}
