package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Simulated gateways
// ---------------------------------------------------------------------------

// SimulatedTelephony logs call requests and reports success. It stands in for
// a telephony provider in development deployments.
type SimulatedTelephony struct {
	log zerolog.Logger
}

func NewSimulatedTelephony(logger zerolog.Logger) *SimulatedTelephony {
	return &SimulatedTelephony{log: logger.With().Str("gateway", "telephony").Logger()}
}

func (s *SimulatedTelephony) InitiateCall(ctx context.Context, patientID string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	s.log.Info().Str("patient_id", patientID).Msg("simulated call placed")
	return Outcome{Success: true, Message: fmt.Sprintf("call to patient %s initiated", patientID)}, nil
}

// SimulatedMessenger logs outgoing messages and reports success.
type SimulatedMessenger struct {
	log zerolog.Logger
}

func NewSimulatedMessenger(logger zerolog.Logger) *SimulatedMessenger {
	return &SimulatedMessenger{log: logger.With().Str("gateway", "messaging").Logger()}
}

func (s *SimulatedMessenger) SendMessage(ctx context.Context, patientID, text string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	s.log.Info().Str("patient_id", patientID).Int("length", len(text)).Msg("simulated message sent")
	return Outcome{Success: true, Message: fmt.Sprintf("message sent to patient %s", patientID)}, nil
}

// LogNotifier records escalations in the log only.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger.With().Str("gateway", "care-team").Logger()}
}

func (n *LogNotifier) NotifyEscalation(_ context.Context, e Escalation) error {
	n.log.Warn().
		Str("alert_id", e.AlertID).
		Str("patient_id", e.PatientID).
		Str("severity", e.Severity).
		Int("level", e.Level).
		Msg("alert escalated to care team")
	return nil
}

// ---------------------------------------------------------------------------
// Webhook notifier
// ---------------------------------------------------------------------------

// WebhookNotifier posts escalations as JSON to a care-team endpoint.
type WebhookNotifier struct {
	url    string
	client *resty.Client
}

// NewWebhookNotifier creates a notifier for url. The timeout applies per request.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "navigator-server")
	return &WebhookNotifier{url: url, client: client}
}

func (w *WebhookNotifier) NotifyEscalation(ctx context.Context, e Escalation) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"event":      "alert.escalated",
			"escalation": e,
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post escalation webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("escalation webhook returned status %d", resp.StatusCode())
	}
	return nil
}
