// Package invitation holds the per-session working state of the invitation
// assistant and the workflow that gates dispatch.
package invitation

import "strings"

// UserContext identifies the account a session belongs to. It is written once
// when the session is created.
type UserContext struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	UserID   string `json:"user_id"`
}

// InvitationInfo is what the root agent collects from the user. Empty means
// unset.
type InvitationInfo struct {
	AgendaName  string   `json:"agenda_name"`
	Location    string   `json:"location"`
	ScheduledAt string   `json:"scheduled_at"`
	Notes       string   `json:"notes"`
	Recipients  []string `json:"recipients"`
	Tone        string   `json:"tone"`
}

// InvitationPatch carries a partial update. Nil fields are left untouched.
type InvitationPatch struct {
	AgendaName  *string  `json:"agenda_name,omitempty"`
	Location    *string  `json:"location,omitempty"`
	ScheduledAt *string  `json:"scheduled_at,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	Recipients  []string `json:"recipients,omitempty"`
	Tone        *string  `json:"tone,omitempty"`
}

// Apply merges the patch, last write wins per field, and reports whether any
// value changed.
func (i *InvitationInfo) Apply(p InvitationPatch) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}

	set(&i.AgendaName, p.AgendaName)
	set(&i.Location, p.Location)
	set(&i.ScheduledAt, p.ScheduledAt)
	set(&i.Notes, p.Notes)
	set(&i.Tone, p.Tone)

	if p.Recipients != nil && !equalStrings(i.Recipients, p.Recipients) {
		i.Recipients = append([]string{}, p.Recipients...)
		changed = true
	}

	return changed
}

// Reset clears every field.
func (i *InvitationInfo) Reset() {
	*i = InvitationInfo{Recipients: []string{}}
}

// MissingRequired lists the required fields that are still empty. Notes are
// optional.
func (i InvitationInfo) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(i.AgendaName) == "" {
		missing = append(missing, "agenda_name")
	}
	if strings.TrimSpace(i.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(i.ScheduledAt) == "" {
		missing = append(missing, "scheduled_at")
	}
	if len(nonBlank(i.Recipients)) == 0 {
		missing = append(missing, "recipients")
	}
	if strings.TrimSpace(i.Tone) == "" {
		missing = append(missing, "tone")
	}
	return missing
}

// EmailModel is the email draft. EmailRecipients are addresses, unlike
// InvitationInfo.Recipients which are display names.
type EmailModel struct {
	Subject         string   `json:"subject"`
	Body            string   `json:"body"`
	EmailRecipients []string `json:"email_recipients"`
	Attachments     []string `json:"attachments,omitempty"`
}

// EmailPatch carries a partial draft update.
type EmailPatch struct {
	Subject         *string  `json:"subject,omitempty"`
	Body            *string  `json:"body,omitempty"`
	EmailRecipients []string `json:"email_recipients,omitempty"`
}

// Apply merges the patch and reports whether any value changed.
func (e *EmailModel) Apply(p EmailPatch) bool {
	changed := false
	if p.Subject != nil && e.Subject != *p.Subject {
		e.Subject = *p.Subject
		changed = true
	}
	if p.Body != nil && e.Body != *p.Body {
		e.Body = *p.Body
		changed = true
	}
	if p.EmailRecipients != nil && !equalStrings(e.EmailRecipients, p.EmailRecipients) {
		e.EmailRecipients = append([]string{}, p.EmailRecipients...)
		changed = true
	}
	return changed
}

// Attach records a file to send with the draft, once.
func (e *EmailModel) Attach(path string) bool {
	for _, a := range e.Attachments {
		if a == path {
			return false
		}
	}
	e.Attachments = append(e.Attachments, path)
	return true
}

func (e *EmailModel) Reset() {
	*e = EmailModel{EmailRecipients: []string{}}
}

// MessageModel is the messaging channel draft.
type MessageModel struct {
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// MessagePatch carries a partial messaging draft update.
type MessagePatch struct {
	Body       *string  `json:"body,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

func (m *MessageModel) Apply(p MessagePatch) bool {
	changed := false
	if p.Body != nil && m.Body != *p.Body {
		m.Body = *p.Body
		changed = true
	}
	if p.Recipients != nil && !equalStrings(m.Recipients, p.Recipients) {
		m.Recipients = append([]string{}, p.Recipients...)
		changed = true
	}
	return changed
}

func (m *MessageModel) Reset() {
	*m = MessageModel{Recipients: []string{}}
}

// State is everything a session remembers between turns.
type State struct {
	SchemaVersion  int            `json:"schema_version"`
	UserContext    UserContext    `json:"user_context"`
	InvitationInfo InvitationInfo `json:"invitation_info"`
	Email          EmailModel     `json:"email"`
	Message        MessageModel   `json:"message"`
	Workflow       Workflow       `json:"workflow"`
}

// NewState seeds the state of a fresh session.
func NewState(user UserContext) State {
	s := State{
		SchemaVersion: CurrentSchemaVersion,
		UserContext:   user,
		Workflow:      NewWorkflow(),
	}
	s.InvitationInfo.Reset()
	s.Email.Reset()
	s.Message.Reset()
	return s
}

// ResetInvitation clears the collected details and restarts the workflow.
func (s *State) ResetInvitation() {
	s.InvitationInfo.Reset()
	s.Workflow.Restart()
}

// UpdateInvitation merges the patch. A real change sends the workflow back to
// collecting and drops attachments rendered from the old details.
func (s *State) UpdateInvitation(p InvitationPatch) bool {
	changed := s.InvitationInfo.Apply(p)
	if !changed {
		return false
	}
	s.Email.Attachments = nil
	if s.Workflow.Stage != StageCollecting {
		s.Workflow.Restart()
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
