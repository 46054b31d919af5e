package game

import (
	"encoding/json"
	"fmt"
)

// ActionKind selects the mutation an action requests.
type ActionKind string

const (
	ActionPlace ActionKind = "place"
	ActionMove  ActionKind = "move"
	ActionSkip  ActionKind = "skip_turn"
)

// PlaceParams carries the payload of a "place" event.
type PlaceParams struct {
	PType string `json:"ptype"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
}

// MoveParams carries the payload of a "move" event.
type MoveParams struct {
	FromRow int `json:"from_row"`
	FromCol int `json:"from_col"`
	ToRow   int `json:"to_row"`
	ToCol   int `json:"to_col"`
}

// Action is a validated player intent. Actions are ephemeral: applied once
// and discarded, never stored beyond the audit log.
type Action struct {
	Issuer string
	Kind   ActionKind
	Place  *PlaceParams
	Move   *MoveParams

	// Raw keeps the original payload for variants with their own event
	// vocabulary.
	Name string
	Raw  json.RawMessage
}

// DecodeAction translates a game_event envelope into an Action. Unknown event
// names map to ErrUnknownEvent; malformed payloads to a ValidationError. Both
// are rejected before any engine state is touched.
func DecodeAction(issuer, name string, data json.RawMessage) (Action, error) {
	action := Action{Issuer: issuer, Name: name, Raw: data}
	switch ActionKind(name) {
	case ActionSkip:
		action.Kind = ActionSkip
	case ActionPlace:
		var params PlaceParams
		if err := unmarshalParams(data, &params); err != nil {
			return Action{}, err
		}
		if params.PType == "" {
			return Action{}, validationErrorf("place requires ptype")
		}
		action.Kind = ActionPlace
		action.Place = &params
	case ActionMove:
		var params MoveParams
		if err := unmarshalParams(data, &params); err != nil {
			return Action{}, err
		}
		action.Kind = ActionMove
		action.Move = &params
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return action, nil
}

func unmarshalParams(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return validationErrorf("missing event_data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return validationErrorf("%v", err)
	}
	return nil
}
