package httpapi

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cory-johannsen/pokedo/internal/game/battle"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ChallengeRequest is the body of POST /battles.
type ChallengeRequest struct {
	OpponentID string `json:"opponent_id" validate:"required,max=64"`
	Format     string `json:"format" validate:"required,oneof=singles_1v1 singles_3v3 singles_6v6"`
}

// ActionRequest is the body of POST /battles/:id/actions. Index is the move
// slot for a move and the team slot for a switch; forfeits ignore it.
// Turn 0 targets the open turn.
type ActionRequest struct {
	Turn  int    `json:"turn" validate:"min=0"`
	Kind  string `json:"kind" validate:"required,oneof=move switch forfeit"`
	Index int    `json:"index" validate:"min=0,max=5"`
}

// Action converts the request into a battle action.
func (r ActionRequest) Action() (battle.Action, error) {
	kind, err := battle.ParseActionKind(r.Kind)
	if err != nil {
		return nil, err
	}
	return battle.ActionRecord{Kind: kind, Index: r.Index}.Action()
}

// PageQuery holds the paging parameters of list endpoints.
type PageQuery struct {
	Sort   string `query:"sort"`
	Limit  int    `query:"limit" validate:"min=0"`
	Offset int    `query:"offset" validate:"min=0"`
}

// check validates v and folds every violation into one ErrValidation.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", battle.ErrValidation, err)
	}
	var details []string
	for _, fe := range verrs {
		details = append(details, describe(fe))
	}
	return fmt.Errorf("%w: %s", battle.ErrValidation, strings.Join(details, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", fe.Field(), bound, fe.Param())
		}
		return fmt.Sprintf("%s must be %s %s", fe.Field(), bound, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
