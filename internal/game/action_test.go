package game

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		name    string
		event   string
		data    string
		want    ActionKind
		wantErr error
		wantVal bool
	}{
		{name: "skip", event: "skip_turn", want: ActionSkip},
		{name: "place", event: "place", data: `{"ptype": "tank", "row": 2, "col": 3}`, want: ActionPlace},
		{name: "move", event: "move", data: `{"from_row": 1, "from_col": 1, "to_row": 1, "to_col": 2}`, want: ActionMove},
		{name: "unknown event", event: "launch_missile", wantErr: ErrUnknownEvent},
		{name: "place without payload", event: "place", wantVal: true},
		{name: "place without ptype", event: "place", data: `{"row": 1, "col": 1}`, wantVal: true},
		{name: "move with bad payload", event: "move", data: `"not an object"`, wantVal: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var raw json.RawMessage
			if tc.data != "" {
				raw = json.RawMessage(tc.data)
			}
			action, err := DecodeAction("alice", tc.event, raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("DecodeAction = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if tc.wantVal {
				if !IsValidation(err) {
					t.Fatalf("DecodeAction = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAction failed: %v", err)
			}
			if action.Kind != tc.want {
				t.Fatalf("kind = %v, want %v", action.Kind, tc.want)
			}
			if action.Issuer != "alice" {
				t.Fatalf("issuer = %q, want alice", action.Issuer)
			}
		})
	}
}

func TestDecodeActionPlaceParams(t *testing.T) {
	action, err := DecodeAction("alice", "place", json.RawMessage(`{"ptype": "infantry", "row": 4, "col": 0}`))
	if err != nil {
		t.Fatalf("DecodeAction failed: %v", err)
	}
	if action.Place == nil || action.Place.PType != "infantry" || action.Place.Row != 4 || action.Place.Col != 0 {
		t.Fatalf("place params = %+v", action.Place)
	}
}
