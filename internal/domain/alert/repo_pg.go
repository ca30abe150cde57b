package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carenav/navigator/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

type alertRepoPG struct{ pool *pgxpool.Pool }

// NewAlertRepoPG returns a Repository backed by the alert table. List orders
// by insertion sequence, matching the in-memory repository.
func NewAlertRepoPG(pool *pgxpool.Pool) Repository {
	return &alertRepoPG{pool: pool}
}

func (r *alertRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// InTx implements Transactor.
func (r *alertRepoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

const alertCols = `id, patient_id, patient_name, type, category, title, description,
	timestamp, is_read, is_resolved, resolution_note, resolved_at, escalation_level,
	related_data, updated_at`

func (r *alertRepoPG) scanAlert(row pgx.Row) (*Alert, error) {
	var (
		a       Alert
		related []byte
	)
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.Type, &a.Category, &a.Title,
		&a.Description, &a.Timestamp, &a.IsRead, &a.IsResolved, &a.ResolutionNote,
		&a.ResolvedAt, &a.EscalationLevel, &related, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(related) > 0 {
		if err := json.Unmarshal(related, &a.RelatedData); err != nil {
			return nil, fmt.Errorf("decode related_data for alert %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func encodeRelated(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func (r *alertRepoPG) Create(ctx context.Context, a *Alert) error {
	related, err := encodeRelated(a.RelatedData)
	if err != nil {
		return fmt.Errorf("encode related_data: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO alert (id, patient_id, patient_name, type, category, title, description,
			timestamp, is_read, is_resolved, resolution_note, resolved_at, escalation_level,
			related_data, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		a.ID, a.PatientID, a.PatientName, a.Type, a.Category, a.Title, a.Description,
		a.Timestamp, a.IsRead, a.IsResolved, a.ResolutionNote, a.ResolvedAt, a.EscalationLevel,
		related, a.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, a.ID)
	}
	return err
}

func (r *alertRepoPG) GetByID(ctx context.Context, id string) (*Alert, error) {
	a, err := r.scanAlert(r.conn(ctx).QueryRow(ctx, `SELECT `+alertCols+` FROM alert WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, err
}

// Update writes the mutable lifecycle fields.
func (r *alertRepoPG) Update(ctx context.Context, a *Alert) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE alert SET is_read=$2, is_resolved=$3, resolution_note=$4, resolved_at=$5,
			escalation_level=$6, updated_at=$7
		WHERE id = $1`,
		a.ID, a.IsRead, a.IsResolved, a.ResolutionNote, a.ResolvedAt,
		a.EscalationLevel, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	return nil
}

func (r *alertRepoPG) List(ctx context.Context) ([]*Alert, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+alertCols+` FROM alert ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Alert{}
	for rows.Next() {
		a, err := r.scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *alertRepoPG) MarkAllRead(ctx context.Context, at time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE alert SET is_read = TRUE, updated_at = $1 WHERE NOT is_read`, at)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
