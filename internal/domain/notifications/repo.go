package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("notifications: not found")
	ErrInvalidKind = errors.New("notifications: invalid kind")
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const subCols = `id, user_id, uid, kind, enabled, threshold, max_notif, current_notif, last_notify_at, created_at, updated_at`

func scanSub(row pgx.Row) (*Subscription, error) {
	var s Subscription
	if err := row.Scan(
		&s.ID, &s.UserID, &s.UID, &s.Kind, &s.Enabled,
		&s.Threshold, &s.MaxNotif, &s.CurrentNotif, &s.LastNotifyAt,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// EnsureDefaults lazily creates one disabled subscription row per kind for
// the user/uid pair. Existing rows are left untouched.
func (r *Repo) EnsureDefaults(ctx context.Context, userID string, uid int64) error {
	for _, k := range Kinds() {
		threshold, maxNotif := k.Defaults()
		if _, err := r.pool.Exec(ctx, `
			INSERT INTO notification_subscriptions (user_id, uid, kind, threshold, max_notif)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, uid, kind) DO NOTHING`,
			userID, uid, k, threshold, maxNotif,
		); err != nil {
			return fmt.Errorf("ensure %s: %w", k, err)
		}
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID string, uid int64, kind Kind) (*Subscription, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+subCols+`
		FROM notification_subscriptions
		WHERE user_id = $1 AND uid = $2 AND kind = $3`,
		userID, uid, kind)
	s, err := scanSub(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ListEnabled returns every enabled subscription of the given kind,
// in creation order. This is the sweep's working set.
func (r *Repo) ListEnabled(ctx context.Context, kind Kind) ([]Subscription, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+subCols+`
		FROM notification_subscriptions
		WHERE kind = $1 AND enabled
		ORDER BY id`,
		kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repo) SetEnabled(ctx context.Context, userID string, uid int64, kind Kind, enabled bool) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_subscriptions
		SET enabled = $4, updated_at = now()
		WHERE user_id = $1 AND uid = $2 AND kind = $3`,
		userID, uid, kind, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetThreshold(ctx context.Context, userID string, uid int64, kind Kind, threshold, maxNotif int) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_subscriptions
		SET threshold = $4, max_notif = $5, updated_at = now()
		WHERE user_id = $1 AND uid = $2 AND kind = $3`,
		userID, uid, kind, threshold, maxNotif)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementNotif bumps current_notif and stamps last_notify_at. The guard
// keeps current_notif below max_notif even if two sweeps race.
func (r *Repo) IncrementNotif(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_subscriptions
		SET current_notif = current_notif + 1,
		    last_notify_at = now(),
		    updated_at = now()
		WHERE id = $1 AND current_notif < max_notif`,
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFor removes every subscription row of one user/uid pair. Called
// when the account itself is unlinked.
func (r *Repo) DeleteFor(ctx context.Context, userID string, uid int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM notification_subscriptions
		WHERE user_id = $1 AND uid = $2`,
		userID, uid)
	return err
}

// ResetNotif zeroes the alert counter. Idempotent.
func (r *Repo) ResetNotif(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_subscriptions
		SET current_notif = 0, updated_at = now()
		WHERE id = $1`,
		id)
	return err
}
