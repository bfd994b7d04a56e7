package invitation

import (
	"errors"
	"fmt"
)

// Agent names. The root agent owns the invitation details; the sub-agents own
// one dispatch channel each.
const (
	RootAgent      = "invitation_agent"
	EmailAgent     = "email_agent"
	MessagingAgent = "messaging_agent"
)

type Stage string

const (
	StageCollecting               Stage = "collecting"
	StageConfirmedPendingDispatch Stage = "confirmed_pending_dispatch"
	StageComposing                Stage = "composing"
	StageConfirmedPendingSend     Stage = "confirmed_pending_send"
	StageDispatched               Stage = "dispatched"
)

func (s Stage) valid() bool {
	switch s {
	case StageCollecting, StageConfirmedPendingDispatch, StageComposing,
		StageConfirmedPendingSend, StageDispatched:
		return true
	}
	return false
}

type Channel string

const (
	ChannelNone      Channel = ""
	ChannelEmail     Channel = "email"
	ChannelMessaging Channel = "messaging"
)

type DispatchStatus string

const (
	DispatchPending DispatchStatus = "pending"
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
)

// ErrTransition is returned when a workflow step is not allowed from the
// current stage.
var ErrTransition = errors.New("workflow transition not allowed")

// Policy holds the deployment switches that shape the workflow.
type Policy struct {
	MessagingEnabled       bool
	ContinueOnEmailFailure bool
}

// Workflow tracks where a session is between collecting details and having
// dispatched them. Every stage change goes through its methods.
type Workflow struct {
	Stage             Stage          `json:"stage"`
	ActiveAgent       string         `json:"active_agent"`
	Channel           Channel        `json:"channel"`
	EmailDispatch     DispatchStatus `json:"email_dispatch"`
	MessagingDispatch DispatchStatus `json:"messaging_dispatch"`
}

func NewWorkflow() Workflow {
	return Workflow{
		Stage:             StageCollecting,
		ActiveAgent:       RootAgent,
		Channel:           ChannelNone,
		EmailDispatch:     DispatchPending,
		MessagingDispatch: DispatchPending,
	}
}

// Restart returns to collecting and forgets dispatch results.
func (w *Workflow) Restart() {
	*w = NewWorkflow()
}

// ConfirmInvitation moves a complete invitation to confirmed.
func (w *Workflow) ConfirmInvitation(info InvitationInfo) error {
	if w.Stage != StageCollecting {
		return fmt.Errorf("%w: invitation already confirmed (stage %s)", ErrTransition, w.Stage)
	}
	if missing := info.MissingRequired(); len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields %v", ErrTransition, missing)
	}
	w.Stage = StageConfirmedPendingDispatch
	return nil
}

// Transfer hands control to another agent. The root agent may only delegate
// to a sub-agent and a sub-agent may only hand back to the root agent.
func (w *Workflow) Transfer(target string, policy Policy) error {
	if target == w.ActiveAgent {
		return fmt.Errorf("%w: %s is already active", ErrTransition, target)
	}

	if w.ActiveAgent != RootAgent {
		if target != RootAgent {
			return fmt.Errorf("%w: %s can only transfer back to %s", ErrTransition, w.ActiveAgent, RootAgent)
		}
		if w.Stage == StageComposing || w.Stage == StageConfirmedPendingSend {
			w.Stage = StageConfirmedPendingDispatch
		}
		w.ActiveAgent = RootAgent
		w.Channel = ChannelNone
		return nil
	}

	switch target {
	case EmailAgent:
		if w.Stage != StageConfirmedPendingDispatch {
			return fmt.Errorf("%w: invitation must be confirmed before composing the email (stage %s)", ErrTransition, w.Stage)
		}
		if w.EmailDispatch == DispatchSent {
			return fmt.Errorf("%w: email has already been sent", ErrTransition)
		}
		w.enter(EmailAgent, ChannelEmail)
		return nil

	case MessagingAgent:
		if !policy.MessagingEnabled {
			return fmt.Errorf("%w: messaging channel is not enabled", ErrTransition)
		}
		if w.Stage != StageConfirmedPendingDispatch {
			return fmt.Errorf("%w: invitation must be confirmed before composing the message (stage %s)", ErrTransition, w.Stage)
		}
		if w.MessagingDispatch == DispatchSent {
			return fmt.Errorf("%w: message has already been sent", ErrTransition)
		}
		switch {
		case w.EmailDispatch == DispatchSent:
		case w.EmailDispatch == DispatchFailed && policy.ContinueOnEmailFailure:
		default:
			return fmt.Errorf("%w: email must be sent before messaging (email %s)", ErrTransition, w.EmailDispatch)
		}
		w.enter(MessagingAgent, ChannelMessaging)
		return nil
	}

	return fmt.Errorf("%w: unknown agent %q", ErrTransition, target)
}

func (w *Workflow) enter(agent string, ch Channel) {
	w.ActiveAgent = agent
	w.Channel = ch
	w.Stage = StageComposing
}

// CanRevise reports whether the draft on ch may be edited now.
func (w *Workflow) CanRevise(ch Channel) error {
	return w.requireChannel(ch)
}

// ReviseDraft records a draft change on ch. A confirmed draft goes back to
// composing.
func (w *Workflow) ReviseDraft(ch Channel) error {
	if err := w.requireChannel(ch); err != nil {
		return err
	}
	if w.Stage == StageConfirmedPendingSend {
		w.Stage = StageComposing
	}
	return nil
}

// ConfirmDraft marks the draft on ch as ready to send.
func (w *Workflow) ConfirmDraft(ch Channel) error {
	if err := w.requireChannel(ch); err != nil {
		return err
	}
	if w.Stage != StageComposing {
		return fmt.Errorf("%w: no draft being composed (stage %s)", ErrTransition, w.Stage)
	}
	w.Stage = StageConfirmedPendingSend
	return nil
}

// CanSend reports whether the confirmed draft on ch may be sent now.
func (w *Workflow) CanSend(ch Channel) error {
	if err := w.requireChannel(ch); err != nil {
		return err
	}
	if w.Stage != StageConfirmedPendingSend {
		return fmt.Errorf("%w: draft must be confirmed before sending (stage %s)", ErrTransition, w.Stage)
	}
	return nil
}

// RecordSend stores the outcome of a send on ch. A failure keeps the stage so
// the user can retry.
func (w *Workflow) RecordSend(ch Channel, ok bool, policy Policy) {
	status := DispatchFailed
	if ok {
		status = DispatchSent
	}

	switch ch {
	case ChannelEmail:
		w.EmailDispatch = status
	case ChannelMessaging:
		w.MessagingDispatch = status
	}

	if !ok {
		return
	}

	if w.allSent(policy) {
		w.Stage = StageDispatched
		return
	}
	w.Stage = StageConfirmedPendingDispatch
}

// allSent reports whether every enabled channel has been sent.
func (w *Workflow) allSent(policy Policy) bool {
	if w.EmailDispatch != DispatchSent {
		return false
	}
	return !policy.MessagingEnabled || w.MessagingDispatch == DispatchSent
}

func (w *Workflow) requireChannel(ch Channel) error {
	if w.Channel != ch {
		return fmt.Errorf("%w: %s channel is not active", ErrTransition, ch)
	}
	switch w.Stage {
	case StageComposing, StageConfirmedPendingSend:
		return nil
	}
	return fmt.Errorf("%w: not composing (stage %s)", ErrTransition, w.Stage)
}
