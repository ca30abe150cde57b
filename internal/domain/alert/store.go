package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the single source of truth for alert state. All mutations are
// serialized, so each one runs to completion before the next starts, and a
// failed mutation leaves the stored alert unchanged.
type Store struct {
	mu   sync.Mutex
	repo Repository
	now  func() time.Time
	loc  *time.Location
	log  zerolog.Logger
}

func NewStore(repo Repository, logger zerolog.Logger) *Store {
	return &Store{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		loc:  time.Local,
		log:  logger.With().Str("component", "alert-store").Logger(),
	}
}

// SetClock overrides the time source used for ResolvedAt/UpdatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetLocation sets the zone that defines calendar days for Now. Stored
// timestamps are unaffected and stay in UTC.
func (s *Store) SetLocation(loc *time.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = loc
}

// Now returns the store's current time in its location.
func (s *Store) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().In(s.loc)
}

// atomic runs fn inside a repository transaction when the repository
// supports one. Must be called with s.mu held.
func (s *Store) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := s.repo.(Transactor); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(ctx)
}

// -- Reads --

func (s *Store) Get(ctx context.Context, id string) (*Alert, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a snapshot of every alert.
func (s *Store) List(ctx context.Context) ([]*Alert, error) {
	return s.repo.List(ctx)
}

// Unread returns alerts with IsRead == false.
func (s *Store) Unread(ctx context.Context) ([]*Alert, error) {
	return s.view(ctx, func(a *Alert) bool { return !a.IsRead })
}

// Unresolved returns alerts with IsResolved == false.
func (s *Store) Unresolved(ctx context.Context) ([]*Alert, error) {
	return s.view(ctx, func(a *Alert) bool { return !a.IsResolved })
}

// Critical returns unresolved critical alerts.
func (s *Store) Critical(ctx context.Context) ([]*Alert, error) {
	return s.view(ctx, (*Alert).IsCritical)
}

func (s *Store) view(ctx context.Context, keep func(*Alert) bool) ([]*Alert, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Alert, 0, len(all))
	for _, a := range all {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// -- Mutations --

// MarkAsRead flags the alert as read. Calling it on an already-read alert is
// a no-op.
func (s *Store) MarkAsRead(ctx context.Context, id string) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, _, err := s.markRead(ctx, id)
	return a, err
}

// markRead must be called with s.mu held. The bool reports whether the
// alert changed.
func (s *Store) markRead(ctx context.Context, id string) (*Alert, bool, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if a.IsRead {
		return a, false, nil
	}
	a.IsRead = true
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, false, fmt.Errorf("mark alert %s read: %w", id, err)
	}
	return a, true, nil
}

// MarkAllAsRead flags every unread alert as read and returns how many changed.
func (s *Store) MarkAllAsRead(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.repo.MarkAllRead(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}
	s.log.Debug().Int("count", n).Msg("marked all alerts read")
	return n, nil
}

// Resolve archives the alert with an explanatory note. The note must contain
// non-whitespace text. Resolving an already-resolved alert replaces its note.
func (s *Store) Resolve(ctx context.Context, id, note string) (*Alert, error) {
	if err := validateNote(note); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(ctx, id, note)
}

func (s *Store) resolve(ctx context.Context, id, note string) (*Alert, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsResolved {
		s.log.Info().Str("alert_id", id).Msg("alert already resolved, replacing resolution note")
	}
	now := s.now()
	a.IsResolved = true
	a.ResolutionNote = &note
	a.ResolvedAt = &now
	a.UpdatedAt = now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("resolve alert %s: %w", id, err)
	}
	return a, nil
}

func validateNote(note string) error {
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("%w: resolution note is required", ErrValidation)
	}
	return nil
}

// Escalate raises the alert's escalation level by one. There is no upper bound.
func (s *Store) Escalate(ctx context.Context, id string) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.escalate(ctx, id)
}

func (s *Store) escalate(ctx context.Context, id string) (*Alert, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.EscalationLevel++
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("escalate alert %s: %w", id, err)
	}
	return a, nil
}

// -- Feed --

// Ingest adds alerts produced by an upstream feed. Missing ids are generated,
// lifecycle fields start from a fresh state unless the feed provides them.
// Ingest is all-or-nothing: the first invalid or duplicate alert aborts the
// batch and nothing is added. The caller's alerts are never modified.
func (s *Store) Ingest(ctx context.Context, batch ...*Alert) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := make([]*Alert, len(batch))
	seen := make(map[string]bool, len(batch))
	for i, in := range batch {
		if in == nil {
			return 0, fmt.Errorf("%w: nil alert at position %d", ErrValidation, i)
		}
		a := in.Clone()
		alerts[i] = a
		if err := s.prepare(a); err != nil {
			return 0, err
		}
		if seen[a.ID] {
			return 0, fmt.Errorf("%w: %s appears twice in batch", ErrDuplicate, a.ID)
		}
		seen[a.ID] = true
		if _, err := s.repo.GetByID(ctx, a.ID); err == nil {
			return 0, fmt.Errorf("%w: %s", ErrDuplicate, a.ID)
		} else if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
	}

	err := s.atomic(ctx, func(ctx context.Context) error {
		for _, a := range alerts {
			if err := s.repo.Create(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("count", len(alerts)).Msg("alerts ingested")
	return len(alerts), nil
}

func (s *Store) prepare(a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: alert %s has invalid type %q", ErrValidation, a.ID, a.Type)
	}
	if !a.Category.IsValid() {
		return fmt.Errorf("%w: alert %s has invalid category %q", ErrValidation, a.ID, a.Category)
	}
	if a.EscalationLevel < 0 {
		return fmt.Errorf("%w: alert %s has negative escalation level", ErrValidation, a.ID)
	}
	if a.IsResolved && (a.ResolutionNote == nil || strings.TrimSpace(*a.ResolutionNote) == "") {
		return fmt.Errorf("%w: resolved alert %s has no resolution note", ErrValidation, a.ID)
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.Timestamp
	}
	return nil
}
