package alert

import (
	"context"
	"time"
)

// Repository persists alert records. Implementations return ErrNotFound for
// unknown ids and ErrDuplicate from Create when the id is taken.
type Repository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id string) (*Alert, error)
	Update(ctx context.Context, a *Alert) error
	List(ctx context.Context) ([]*Alert, error)
	// MarkAllRead flags every unread alert as read and returns how many changed.
	MarkAllRead(ctx context.Context, at time.Time) (int, error)
}

// Transactor is implemented by repositories that can run several operations
// atomically. fn receives a context carrying the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
