package alert

import (
	"fmt"
	"strings"
)

// Action tags as they appear on the wire.
const (
	ActionResolve  = "resolve"
	ActionEscalate = "escalate"
	ActionCall     = "call"
	ActionMessage  = "message"
	ActionMarkRead = "read"
)

// Action is a user-chosen operation on an alert. The set of implementations is
// closed: Resolve, Escalate, Call, Message and MarkRead.
type Action interface {
	Name() string
	validate() error
}

// Resolve archives the alert with a note.
type Resolve struct {
	Note string
}

// Escalate raises the alert's escalation level and notifies the care team.
type Escalate struct{}

// Call asks the telephony collaborator to ring the patient.
type Call struct {
	PatientID string
}

// Message sends Text to the patient.
type Message struct {
	PatientID string
	Text      string
}

// MarkRead only marks the alert read.
type MarkRead struct{}

func (Resolve) Name() string  { return ActionResolve }
func (Escalate) Name() string { return ActionEscalate }
func (Call) Name() string     { return ActionCall }
func (Message) Name() string  { return ActionMessage }
func (MarkRead) Name() string { return ActionMarkRead }

func (r Resolve) validate() error { return validateNote(r.Note) }

func (Escalate) validate() error { return nil }

func (c Call) validate() error {
	return requirePatient(c.PatientID)
}

func (m Message) validate() error {
	if err := requirePatient(m.PatientID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}
	return nil
}

func (MarkRead) validate() error { return nil }

func requirePatient(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	return nil
}

// ActionRequest is the loosely-typed action payload accepted at the edges.
type ActionRequest struct {
	Action    string `json:"action"`
	Note      string `json:"note,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// DecodeAction converts a request into a typed Action. Unknown tags yield
// ErrUnsupportedAction; payload fields are checked later by the dispatcher.
func DecodeAction(req ActionRequest) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionResolve:
		return Resolve{Note: req.Note}, nil
	case ActionEscalate:
		return Escalate{}, nil
	case ActionCall:
		return Call{PatientID: req.PatientID}, nil
	case ActionMessage:
		return Message{PatientID: req.PatientID, Text: req.Message}, nil
	case ActionMarkRead, "mark_read":
		return MarkRead{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, req.Action)
	}
}
