package notification

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Mock collaborators (test doubles)
// ---------------------------------------------------------------------------

// CallRecord records a single call to InitiateCall.
type CallRecord struct {
	PatientID string
}

// MockTelephony is a test double for Telephony. When Fail is set it reports a
// failed Outcome; when Err is set it returns the error; Delay blocks until the
// delay passes or the context ends.
type MockTelephony struct {
	mu    sync.Mutex
	calls []CallRecord
	Fail  bool
	Err   string
	Delay time.Duration
}

func (m *MockTelephony) InitiateCall(ctx context.Context, patientID string) (Outcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CallRecord{PatientID: patientID})
	m.mu.Unlock()
	if err := wait(ctx, m.Delay); err != nil {
		return Outcome{}, err
	}
	if m.Err != "" {
		return Outcome{}, errors.New(m.Err)
	}
	if m.Fail {
		return Outcome{Success: false, Message: "line busy"}, nil
	}
	return Outcome{Success: true, Message: "call connected"}, nil
}

// Calls returns a copy of recorded calls.
func (m *MockTelephony) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.calls))
	copy(out, m.calls)
	return out
}

// MessageRecord records a single call to SendMessage.
type MessageRecord struct {
	PatientID string
	Text      string
}

// MockMessenger is a test double for Messenger.
type MockMessenger struct {
	mu       sync.Mutex
	messages []MessageRecord
	Fail     bool
	Err      string
	Delay    time.Duration
}

func (m *MockMessenger) SendMessage(ctx context.Context, patientID, text string) (Outcome, error) {
	m.mu.Lock()
	m.messages = append(m.messages, MessageRecord{PatientID: patientID, Text: text})
	m.mu.Unlock()
	if err := wait(ctx, m.Delay); err != nil {
		return Outcome{}, err
	}
	if m.Err != "" {
		return Outcome{}, errors.New(m.Err)
	}
	if m.Fail {
		return Outcome{Success: false, Message: "device unreachable"}, nil
	}
	return Outcome{Success: true, Message: "message delivered"}, nil
}

// Messages returns a copy of recorded messages.
func (m *MockMessenger) Messages() []MessageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MessageRecord, len(m.messages))
	copy(out, m.messages)
	return out
}

// MockNotifier is a test double for EscalationNotifier. Notified is signalled
// once per escalation when non-nil.
type MockNotifier struct {
	mu          sync.Mutex
	escalations []Escalation
	Err         string
	Notified    chan Escalation
}

func (m *MockNotifier) NotifyEscalation(_ context.Context, e Escalation) error {
	m.mu.Lock()
	m.escalations = append(m.escalations, e)
	m.mu.Unlock()
	if m.Notified != nil {
		m.Notified <- e
	}
	if m.Err != "" {
		return errors.New(m.Err)
	}
	return nil
}

// Escalations returns a copy of recorded escalations.
func (m *MockNotifier) Escalations() []Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Escalation, len(m.escalations))
	copy(out, m.escalations)
	return out
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
