package invitation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is written by Encode. Sessions stored before the field
// existed decode as version 0.
const CurrentSchemaVersion = 1

// ErrInvalidState is returned for stored state that cannot be read back.
var ErrInvalidState = errors.New("invalid session state")

var knownKeys = map[string]bool{
	"schema_version":  true,
	"user_context":    true,
	"invitation_info": true,
	"email":           true,
	"message":         true,
	"workflow":        true,
}

// legacyEmail accepts the old `recipients` field next to the current one.
type legacyEmail struct {
	EmailModel
	Recipients []string `json:"recipients"`
}

// Encode serializes the state for storage.
func (s State) Encode() ([]byte, error) {
	s.SchemaVersion = CurrentSchemaVersion
	s.normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// Decode parses stored state, migrating older layouts.
func Decode(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if raw == nil {
		return State{}, fmt.Errorf("%w: state is not an object", ErrInvalidState)
	}

	for key := range raw {
		if !knownKeys[key] {
			return State{}, fmt.Errorf("%w: unknown key %q", ErrInvalidState, key)
		}
	}

	var s State
	if v, ok := raw["schema_version"]; ok {
		if err := json.Unmarshal(v, &s.SchemaVersion); err != nil {
			return State{}, fmt.Errorf("%w: schema_version: %v", ErrInvalidState, err)
		}
	}
	if s.SchemaVersion < 0 || s.SchemaVersion > CurrentSchemaVersion {
		return State{}, fmt.Errorf("%w: unsupported schema_version %d", ErrInvalidState, s.SchemaVersion)
	}

	uc, ok := raw["user_context"]
	if !ok || string(uc) == "null" {
		return State{}, fmt.Errorf("%w: missing user_context", ErrInvalidState)
	}
	if err := json.Unmarshal(uc, &s.UserContext); err != nil {
		return State{}, fmt.Errorf("%w: user_context: %v", ErrInvalidState, err)
	}

	if v, ok := raw["invitation_info"]; ok {
		if err := json.Unmarshal(v, &s.InvitationInfo); err != nil {
			return State{}, fmt.Errorf("%w: invitation_info: %v", ErrInvalidState, err)
		}
	}

	if v, ok := raw["email"]; ok {
		var e legacyEmail
		if err := json.Unmarshal(v, &e); err != nil {
			return State{}, fmt.Errorf("%w: email: %v", ErrInvalidState, err)
		}
		s.Email = e.EmailModel
		if len(s.Email.EmailRecipients) == 0 && len(e.Recipients) > 0 {
			s.Email.EmailRecipients = e.Recipients
		}
	}

	if v, ok := raw["message"]; ok {
		if err := json.Unmarshal(v, &s.Message); err != nil {
			return State{}, fmt.Errorf("%w: message: %v", ErrInvalidState, err)
		}
	}

	s.Workflow = NewWorkflow()
	if v, ok := raw["workflow"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &s.Workflow); err != nil {
			return State{}, fmt.Errorf("%w: workflow: %v", ErrInvalidState, err)
		}
		if s.Workflow.Stage != "" && !s.Workflow.Stage.valid() {
			return State{}, fmt.Errorf("%w: unknown workflow stage %q", ErrInvalidState, s.Workflow.Stage)
		}
	}

	s.SchemaVersion = CurrentSchemaVersion
	s.normalize()
	return s, nil
}

// normalize replaces nil lists and empty statuses so the stored JSON always
// has the same shape.
func (s *State) normalize() {
	if s.InvitationInfo.Recipients == nil {
		s.InvitationInfo.Recipients = []string{}
	}
	if s.Email.EmailRecipients == nil {
		s.Email.EmailRecipients = []string{}
	}
	if s.Message.Recipients == nil {
		s.Message.Recipients = []string{}
	}
	if s.Workflow.Stage == "" {
		s.Workflow.Stage = StageCollecting
	}
	if s.Workflow.ActiveAgent == "" {
		s.Workflow.ActiveAgent = RootAgent
	}
	if s.Workflow.EmailDispatch == "" {
		s.Workflow.EmailDispatch = DispatchPending
	}
	if s.Workflow.MessagingDispatch == "" {
		s.Workflow.MessagingDispatch = DispatchPending
	}
}
