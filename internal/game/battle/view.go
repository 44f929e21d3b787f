package battle

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/pokedo/internal/game/moves"
	"github.com/cory-johannsen/pokedo/internal/game/pokemon"
	"github.com/cory-johannsen/pokedo/internal/game/rating"
)

// MoveView is a move slot as its owner sees it.
type MoveView struct {
	Name     string         `json:"name"`
	Type     pokemon.Type   `json:"type"`
	Category moves.Category `json:"category"`
	Power    int            `json:"power"`
	Accuracy int            `json:"accuracy"`
	PP       int            `json:"pp"`
	MaxPP    int            `json:"max_pp"`
	Priority int            `json:"priority,omitempty"`
	Disabled bool           `json:"disabled,omitempty"`
}

// OwnPokemonView is a full view of one of the requester's Pokemon.
type OwnPokemonView struct {
	Slot      int            `json:"slot"`
	Species   string         `json:"species"`
	Nickname  string         `json:"nickname,omitempty"`
	Types     []pokemon.Type `json:"types"`
	Level     int            `json:"level"`
	Nature    pokemon.Nature `json:"nature"`
	MaxHP     int            `json:"max_hp"`
	CurrentHP int            `json:"current_hp"`
	Stats     pokemon.Stats  `json:"stats"`
	Status    pokemon.Status `json:"status"`
	Fainted   bool           `json:"fainted"`
	Active    bool           `json:"active"`
	Moves     []MoveView     `json:"moves"`
}

// OpponentPokemonView is what the requester may know about an opposing
// Pokemon. Benched members show only species and fainted state; the active
// member adds its public battle details. Stats and moves are never shown.
type OpponentPokemonView struct {
	Slot      int            `json:"slot"`
	Species   string         `json:"species"`
	Fainted   bool           `json:"fainted"`
	Active    bool           `json:"active"`
	Nickname  string         `json:"nickname,omitempty"`
	Types     []pokemon.Type `json:"types,omitempty"`
	Level     int            `json:"level,omitempty"`
	MaxHP     int            `json:"max_hp,omitempty"`
	CurrentHP int            `json:"current_hp,omitempty"`
	Status    pokemon.Status `json:"status,omitempty"`
}

// View is a battle as seen by one participant.
type View struct {
	BattleID          string                `json:"battle_id"`
	Format            Format                `json:"format"`
	Status            Status                `json:"status"`
	Turn              int                   `json:"turn"`
	You               string                `json:"you"`
	Opponent          string                `json:"opponent"`
	Team              []OwnPokemonView      `json:"team,omitempty"`
	MustSwitch        bool                  `json:"must_switch,omitempty"`
	OpponentTeam      []OpponentPokemonView `json:"opponent_team,omitempty"`
	ActionSubmitted   bool                  `json:"action_submitted"`
	OpponentSubmitted bool                  `json:"opponent_submitted"`
	TeamSubmitted     bool                  `json:"team_submitted"`
	Winner            string                `json:"winner,omitempty"`
	Draw              bool                  `json:"draw,omitempty"`
	Reason            FinishReason          `json:"reason,omitempty"`
	RatingChanges     []rating.Change       `json:"rating_changes,omitempty"`
}

// ViewFor builds the censored view of s for playerID.
//
// Postcondition: returns ErrNotFound when playerID is not a participant.
func (s *State) ViewFor(playerID string) (View, error) {
	side, ok := s.Side(playerID)
	if !ok {
		return View{}, fmt.Errorf("%w: %s is not part of battle %s", ErrNotFound, playerID, s.ID)
	}
	v := View{
		BattleID:          s.ID,
		Format:            s.Format,
		Status:            s.Status,
		Turn:              s.Turn,
		You:               playerID,
		Opponent:          s.Players[1-side],
		ActionSubmitted:   s.Pending[side] != nil,
		OpponentSubmitted: s.Pending[1-side] != nil,
		TeamSubmitted:     s.Teams[side] != nil,
		Winner:            s.Winner,
		Draw:              s.Draw,
		Reason:            s.Reason,
		RatingChanges:     slices.Clone(s.RatingChanges),
	}
	if own := s.Teams[side]; own != nil {
		v.MustSwitch = own.MustSwitch
		for i, p := range own.Members {
			v.Team = append(v.Team, ownView(i, i == own.Active, p))
		}
	}
	// The opposing team stays hidden until both sides have committed.
	if opp := s.Teams[1-side]; opp != nil && s.Status >= StatusActive {
		for i, p := range opp.Members {
			v.OpponentTeam = append(v.OpponentTeam, opponentView(i, i == opp.Active, p))
		}
	}
	return v, nil
}

func ownView(slot int, active bool, p *Pokemon) OwnPokemonView {
	mv := make([]MoveView, len(p.Moves))
	for i, m := range p.Moves {
		mv[i] = MoveView{
			Name:     m.Move.Name,
			Type:     m.Move.Type,
			Category: m.Move.Category,
			Power:    m.Move.Power,
			Accuracy: m.Move.Accuracy,
			PP:       m.PP,
			MaxPP:    m.Move.PP,
			Priority: m.Move.Priority,
			Disabled: m.Disabled,
		}
	}
	return OwnPokemonView{
		Slot:      slot,
		Species:   p.Species,
		Nickname:  p.Nickname,
		Types:     slices.Clone(p.Types),
		Level:     p.Level,
		Nature:    p.Nature,
		MaxHP:     p.MaxHP,
		CurrentHP: p.CurrentHP,
		Stats:     p.Stats,
		Status:    p.Status,
		Fainted:   p.IsFainted(),
		Active:    active,
		Moves:     mv,
	}
}

func opponentView(slot int, active bool, p *Pokemon) OpponentPokemonView {
	v := OpponentPokemonView{
		Slot:    slot,
		Species: p.Species,
		Fainted: p.IsFainted(),
		Active:  active,
	}
	if active {
		v.Nickname = p.Nickname
		v.Types = slices.Clone(p.Types)
		v.Level = p.Level
		v.MaxHP = p.MaxHP
		v.CurrentHP = p.CurrentHP
		v.Status = p.Status
	}
	return v
}
