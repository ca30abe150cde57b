package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/carenav/navigator/internal/platform/notification"
	"github.com/carenav/navigator/internal/platform/websocket"
)

// Contacts reaches patients and the care team. *notification.Manager
// implements it; collaborator failures come back as Outcome values.
type Contacts interface {
	Call(ctx context.Context, alertID, patientID string) notification.Outcome
	Message(ctx context.Context, alertID, patientID, text string) notification.Outcome
	Escalate(ctx context.Context, e notification.Escalation) error
}

// Recorder receives dispatch metrics.
type Recorder interface {
	ObserveAction(action, outcome string)
	ObserveContact(channel string, success bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAction(string, string) {}
func (nopRecorder) ObserveContact(string, bool) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, websocket.Event) error { return nil }

// Delivery is the pending result of a call or message. It resolves exactly
// once.
type Delivery struct {
	done    chan struct{}
	outcome notification.Outcome
}

func newDelivery() *Delivery {
	return &Delivery{done: make(chan struct{})}
}

func (d *Delivery) resolve(out notification.Outcome) {
	d.outcome = out
	close(d.done)
}

// Done is closed once the outcome is available.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Outcome returns the outcome and whether it is available yet.
func (d *Delivery) Outcome() (notification.Outcome, bool) {
	select {
	case <-d.done:
		return d.outcome, true
	default:
		return notification.Outcome{}, false
	}
}

// Wait blocks until the outcome is available or ctx ends.
func (d *Delivery) Wait(ctx context.Context) (notification.Outcome, error) {
	select {
	case <-d.done:
		return d.outcome, nil
	case <-ctx.Done():
		return notification.Outcome{}, ctx.Err()
	}
}

// Result is returned by Dispatch. Delivery is set for Call and Message only.
type Result struct {
	Alert    *Alert
	Delivery *Delivery
}

// Dispatcher applies user actions to alerts.
//
// Every action follows the same steps: validate the payload, look the alert
// up, mark it read, then apply the action. The first two steps fail without
// touching the store. Calls and messages run in the background and report
// through Result.Delivery; escalation notices are fire-and-forget.
type Dispatcher struct {
	store    *Store
	contacts Contacts
	events   websocket.EventPublisher
	metrics  Recorder
	log      zerolog.Logger

	pending sync.WaitGroup
}

// DispatcherOption configures optional Dispatcher dependencies.
type DispatcherOption func(*Dispatcher)

// WithPublisher sends alert events to p.
func WithPublisher(p websocket.EventPublisher) DispatcherOption {
	return func(d *Dispatcher) { d.events = p }
}

// WithRecorder sends dispatch metrics to r.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = r }
}

func NewDispatcher(store *Store, contacts Contacts, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		contacts: contacts,
		events:   nopPublisher{},
		metrics:  nopRecorder{},
		log:      logger.With().Str("component", "alert-dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch applies action to the alert with the given id.
func (d *Dispatcher) Dispatch(ctx context.Context, id string, action Action) (*Result, error) {
	res, err := d.dispatch(ctx, id, action)
	name := "unknown"
	if action != nil {
		name = action.Name()
	}
	d.metrics.ObserveAction(name, outcomeLabel(err))
	if err != nil {
		d.log.Debug().Err(err).Str("alert_id", id).Str("action", name).Msg("dispatch rejected")
		return nil, err
	}
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, id string, action Action) (*Result, error) {
	if action == nil {
		return nil, ErrUnsupportedAction
	}
	if err := action.validate(); err != nil {
		return nil, err
	}

	a, readChanged, err := d.mutate(ctx, id, action)
	if err != nil {
		return nil, err
	}

	if readChanged {
		d.publish(ctx, websocket.EventAlertRead, a, nil)
	}

	res := &Result{Alert: a}
	switch act := action.(type) {
	case Resolve:
		d.publish(ctx, websocket.EventAlertResolved, a, map[string]any{"note": act.Note, "resolved_at": a.ResolvedAt})
	case Escalate:
		d.publish(ctx, websocket.EventAlertEscalated, a, map[string]int{"level": a.EscalationLevel})
		d.notifyCareTeam(ctx, a)
	case Call:
		res.Delivery = d.deliver(ctx, a, notification.ChannelCall, func(ctx context.Context) notification.Outcome {
			return d.contacts.Call(ctx, a.ID, act.PatientID)
		})
	case Message:
		res.Delivery = d.deliver(ctx, a, notification.ChannelMessage, func(ctx context.Context) notification.Outcome {
			return d.contacts.Message(ctx, a.ID, act.PatientID, act.Text)
		})
	}

	d.log.Info().
		Str("alert_id", a.ID).
		Str("action", action.Name()).
		Bool("resolved", a.IsResolved).
		Int("escalation_level", a.EscalationLevel).
		Msg("alert action dispatched")
	return res, nil
}

// mutate performs the store side of an action under the store lock.
func (d *Dispatcher) mutate(ctx context.Context, id string, action Action) (*Alert, bool, error) {
	s := d.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		a           *Alert
		readChanged bool
	)
	err := s.atomic(ctx, func(ctx context.Context) error {
		if err := checkPatient(ctx, s, id, action); err != nil {
			return err
		}
		var err error
		a, readChanged, err = s.markRead(ctx, id)
		if err != nil {
			return err
		}
		switch act := action.(type) {
		case Resolve:
			a, err = s.resolve(ctx, id, act.Note)
		case Escalate:
			a, err = s.escalate(ctx, id)
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return a, readChanged, nil
}

// checkPatient rejects a call or message addressed to anyone but the
// alert's own patient.
func checkPatient(ctx context.Context, s *Store, id string, action Action) error {
	var patientID string
	switch act := action.(type) {
	case Call:
		patientID = act.PatientID
	case Message:
		patientID = act.PatientID
	default:
		return nil
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.PatientID != patientID {
		return fmt.Errorf("%w: patient_id does not match alert %s", ErrValidation, id)
	}
	return nil
}

// deliver runs send in the background. The request context's values are
// kept but its cancellation is not, so the contact outlives the request; the
// collaborator timeout still bounds it.
func (d *Dispatcher) deliver(ctx context.Context, a *Alert, ch notification.Channel, send func(context.Context) notification.Outcome) *Delivery {
	dl := newDelivery()
	bg := context.WithoutCancel(ctx)
	alertID, patientID := a.ID, a.PatientID

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		out := send(bg)
		d.metrics.ObserveContact(string(ch), out.Success)
		d.publishRaw(bg, websocket.EventAlertContacted, alertID, patientID, map[string]any{
			"channel": ch,
			"success": out.Success,
			"message": out.Message,
		})
		dl.resolve(out)
	}()
	return dl
}

func (d *Dispatcher) notifyCareTeam(ctx context.Context, a *Alert) {
	esc := notification.Escalation{
		AlertID:     a.ID,
		PatientID:   a.PatientID,
		PatientName: a.PatientName,
		Title:       a.Title,
		Severity:    string(a.Type),
		Level:       a.EscalationLevel,
		EscalatedAt: a.UpdatedAt,
	}
	bg := context.WithoutCancel(ctx)

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		err := d.contacts.Escalate(bg, esc)
		d.metrics.ObserveContact(string(notification.ChannelEscalation), err == nil)
		if err != nil {
			d.log.Warn().Err(err).Str("alert_id", esc.AlertID).Int("level", esc.Level).Msg("care team notification failed")
		}
	}()
}

// Wait blocks until background deliveries and notifications finish.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

func (d *Dispatcher) publish(ctx context.Context, eventType string, a *Alert, payload any) {
	d.publishRaw(ctx, eventType, a.ID, a.PatientID, payload)
}

func (d *Dispatcher) publishRaw(ctx context.Context, eventType, alertID, patientID string, payload any) {
	evt, err := websocket.NewAlertEvent(eventType, alertID, patientID, payload)
	if err == nil {
		err = d.events.Publish(ctx, evt)
	}
	if err != nil {
		d.log.Warn().Err(err).Str("alert_id", alertID).Str("event", eventType).Msg("failed to publish alert event")
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrUnsupportedAction):
		return "unsupported"
	default:
		return "error"
	}
}
