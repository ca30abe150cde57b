// Package notification provides the outbound contact collaborators used by
// alert triage (telephony, patient messaging, care-team escalation) together
// with template rendering, per-channel rate limits, an in-memory contact log
// and Echo HTTP handlers.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ---------------------------------------------------------------------------
// Channels and outcomes
// ---------------------------------------------------------------------------

// Channel identifies the kind of outbound contact.
type Channel string

const (
	ChannelCall       Channel = "call"
	ChannelMessage    Channel = "message"
	ChannelEscalation Channel = "escalation"
)

// Outcome is the result reported by a telephony or messaging collaborator.
// A failed Outcome is a normal result: busy lines and unreachable devices are
// expected.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Failed builds an unsuccessful Outcome.
func Failed(format string, args ...any) Outcome {
	return Outcome{Success: false, Message: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Collaborator interfaces
// ---------------------------------------------------------------------------

// Telephony places a phone call to a patient.
type Telephony interface {
	InitiateCall(ctx context.Context, patientID string) (Outcome, error)
}

// Messenger sends a text message to a patient.
type Messenger interface {
	SendMessage(ctx context.Context, patientID, text string) (Outcome, error)
}

// Escalation describes an alert that was escalated to the care team.
type Escalation struct {
	AlertID     string    `json:"alert_id"`
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Title       string    `json:"title"`
	Severity    string    `json:"severity"`
	Level       int       `json:"level"`
	EscalatedAt time.Time `json:"escalated_at"`
}

// EscalationNotifier tells the care team that an alert was escalated.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, e Escalation) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable contact template.
type Template struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Subject string  `json:"subject"`
	Body    string  `json:"body"`
	Channel Channel `json:"channel"`
}

// TemplateEngine manages contact templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "alert-escalated",
			Name:    "Alert Escalated",
			Subject: "[{{severity}}] Escalation level {{level}}: {{title}}",
			Body:    "Alert {{alert_id}} for patient {{patient_name}} ({{patient_id}}) was escalated to level {{level}} at {{escalated_at}}: {{title}}",
			Channel: ChannelEscalation,
		},
		{
			ID:      "call-attempt",
			Name:    "Call Attempt",
			Subject: "Call to patient {{patient_id}}",
			Body:    "Navigator call regarding alert {{alert_id}}",
			Channel: ChannelCall,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// escalationData flattens an Escalation for template rendering.
func escalationData(e Escalation) map[string]string {
	return map[string]string{
		"alert_id":     e.AlertID,
		"patient_id":   e.PatientID,
		"patient_name": e.PatientName,
		"title":        e.Title,
		"severity":     strings.ToUpper(e.Severity),
		"level":        strconv.Itoa(e.Level),
		"escalated_at": e.EscalatedAt.Format(time.RFC3339),
	}
}

// ---------------------------------------------------------------------------
// Contact log
// ---------------------------------------------------------------------------

// Contact statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Contact records one outbound call, message or escalation notice.
type Contact struct {
	ID          string     `json:"id"`
	Channel     Channel    `json:"channel"`
	AlertID     string     `json:"alert_id,omitempty"`
	PatientID   string     `json:"patient_id"`
	Subject     string     `json:"subject,omitempty"`
	Body        string     `json:"body,omitempty"`
	Status      string     `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// ManagerConfig bounds outbound traffic.
type ManagerConfig struct {
	// Timeout bounds each collaborator call. Zero means 10 seconds.
	Timeout time.Duration
	// PerMinute limits contacts per channel. Zero disables limiting.
	PerMinute int
	// MaxContacts caps the contact log; the oldest entries are dropped
	// first. Zero means DefaultMaxContacts.
	MaxContacts int
}

// DefaultMaxContacts is the contact log size when none is configured.
const DefaultMaxContacts = 1000

// ErrRateLimited is reported when a channel's outbound budget is exhausted.
var ErrRateLimited = errors.New("outbound rate limit exceeded")

// Manager runs collaborator calls with a bounded timeout and per-channel rate
// limits, and records every attempt in an in-memory contact log.
type Manager struct {
	telephony Telephony
	messenger Messenger
	notifier  EscalationNotifier
	templates *TemplateEngine
	timeout   time.Duration
	limiters  map[Channel]*rate.Limiter
	log       zerolog.Logger

	mu          sync.RWMutex
	contacts    map[string]*Contact
	ring        []string // contact ids in insertion order, oldest at next once full
	next        int
	maxContacts int
}

// NewManager constructs a Manager.
func NewManager(tel Telephony, msg Messenger, esc EscalationNotifier, tpl *TemplateEngine, cfg ManagerConfig, logger zerolog.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxContacts <= 0 {
		cfg.MaxContacts = DefaultMaxContacts
	}
	m := &Manager{
		telephony:   tel,
		messenger:   msg,
		notifier:    esc,
		templates:   tpl,
		timeout:     cfg.Timeout,
		limiters:    make(map[Channel]*rate.Limiter),
		log:         logger.With().Str("component", "notification").Logger(),
		contacts:    make(map[string]*Contact),
		ring:        make([]string, 0, cfg.MaxContacts),
		maxContacts: cfg.MaxContacts,
	}
	if cfg.PerMinute > 0 {
		for _, ch := range []Channel{ChannelCall, ChannelMessage, ChannelEscalation} {
			m.limiters[ch] = rate.NewLimiter(rate.Limit(cfg.PerMinute)/60, cfg.PerMinute)
		}
	}
	return m
}

// Timeout returns the bound applied to each collaborator call.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

func (m *Manager) allow(ch Channel) bool {
	l, ok := m.limiters[ch]
	return !ok || l.Allow()
}

// Call asks the telephony collaborator to ring the patient. Failures, errors
// and timeouts are folded into the returned Outcome.
func (m *Manager) Call(ctx context.Context, alertID, patientID string) Outcome {
	_, body, err := m.templates.Render("call-attempt", map[string]string{"alert_id": alertID, "patient_id": patientID})
	if err != nil {
		m.log.Error().Err(err).Str("alert_id", alertID).Msg("render call template")
		return Failed("call failed: %v", err)
	}
	c := m.record(ChannelCall, alertID, patientID, "", body)
	if !m.allow(ChannelCall) {
		return m.complete(c, Outcome{}, ErrRateLimited)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	out, err := m.telephony.InitiateCall(ctx, patientID)
	return m.complete(c, out, err)
}

// Message sends text to the patient through the messaging collaborator.
func (m *Manager) Message(ctx context.Context, alertID, patientID, text string) Outcome {
	c := m.record(ChannelMessage, alertID, patientID, "", text)
	if !m.allow(ChannelMessage) {
		return m.complete(c, Outcome{}, ErrRateLimited)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	out, err := m.messenger.SendMessage(ctx, patientID, text)
	return m.complete(c, out, err)
}

// Escalate notifies the care team. The returned error is informational; the
// escalation itself has already happened.
func (m *Manager) Escalate(ctx context.Context, e Escalation) error {
	subject, body, err := m.templates.Render("alert-escalated", escalationData(e))
	if err != nil {
		return fmt.Errorf("render escalation: %w", err)
	}
	c := m.record(ChannelEscalation, e.AlertID, e.PatientID, subject, body)
	if !m.allow(ChannelEscalation) {
		m.complete(c, Outcome{}, ErrRateLimited)
		return ErrRateLimited
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.notifier.NotifyEscalation(ctx, e); err != nil {
		m.complete(c, Outcome{}, err)
		return err
	}
	m.complete(c, Outcome{Success: true, Message: "care team notified"}, nil)
	return nil
}

func (m *Manager) record(ch Channel, alertID, patientID, subject, body string) *Contact {
	c := &Contact{
		ID:        uuid.New().String(),
		Channel:   ch,
		AlertID:   alertID,
		PatientID: patientID,
		Subject:   subject,
		Body:      body,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	m.contacts[c.ID] = c
	if len(m.ring) < m.maxContacts {
		m.ring = append(m.ring, c.ID)
	} else {
		delete(m.contacts, m.ring[m.next])
		m.ring[m.next] = c.ID
		m.next = (m.next + 1) % m.maxContacts
	}
	m.mu.Unlock()
	return c
}

func (m *Manager) complete(c *Contact, out Outcome, err error) Outcome {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			out = Failed("%s timed out after %s", c.Channel, m.timeout)
		} else {
			out = Failed("%s failed: %v", c.Channel, err)
		}
	}

	now := time.Now().UTC()
	m.mu.Lock()
	c.CompletedAt = &now
	c.Result = out.Message
	if out.Success {
		c.Status = StatusSent
	} else {
		c.Status = StatusFailed
		if err != nil {
			c.Error = err.Error()
		}
	}
	m.mu.Unlock()

	evt := m.log.Info()
	if !out.Success {
		evt = m.log.Warn().Err(err)
	}
	evt.Str("contact_id", c.ID).
		Str("channel", string(c.Channel)).
		Str("alert_id", c.AlertID).
		Bool("success", out.Success).
		Str("result", out.Message).
		Msg("outbound contact completed")
	return out
}

// GetContact retrieves a contact by ID.
func (m *Manager) GetContact(_ context.Context, id string) (*Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact %q not found", id)
	}
	cp := *c
	return &cp, nil
}

// ListContacts returns contacts newest first, optionally restricted to one
// patient, up to limit.
func (m *Manager) ListContacts(_ context.Context, patientID string, limit int) []*Contact {
	m.mu.RLock()
	result := make([]*Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		if patientID == "" || c.PatientID == patientID {
			cp := *c
			result = append(result, &cp)
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// ContactStats returns counts of contacts grouped by channel and status, keyed
// "<channel>.<status>".
func (m *Manager) ContactStats(_ context.Context) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int)
	for _, c := range m.contacts {
		stats[string(c.Channel)+"."+c.Status]++
	}
	return stats
}
