package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("accounts: not found")

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const accountCols = `id, user_id, uid, ltuid, ltoken, active, daily_checkin, cookie_invalid, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	if err := row.Scan(
		&a.ID, &a.UserID, &a.UID, &a.LtUID, &a.LtToken,
		&a.Active, &a.DailyCheckin, &a.CookieInvalid,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert registers (or re-registers) an account for the user. A fresh
// cookie clears any previous invalid mark. The first account a user
// registers becomes active.
func (r *Repo) Upsert(ctx context.Context, userID string, uid, ltuid int64, ltoken string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO user_accounts (user_id, uid, ltuid, ltoken, active)
		VALUES ($1, $2, $3, $4,
			NOT EXISTS (SELECT 1 FROM user_accounts WHERE user_id = $1 AND active))
		ON CONFLICT (user_id, uid)
		DO UPDATE SET
			ltuid          = EXCLUDED.ltuid,
			ltoken         = EXCLUDED.ltoken,
			cookie_invalid = FALSE,
			updated_at     = now()
		RETURNING `+accountCols,
		userID, uid, ltuid, ltoken)
	return scanAccount(row)
}

func (r *Repo) GetActive(ctx context.Context, userID string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountCols+`
		FROM user_accounts
		WHERE user_id = $1 AND active`,
		userID)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Get resolves one account by its owner and in-game uid. The uid alone is
// not unique: two users may register the same game account.
func (r *Repo) Get(ctx context.Context, userID string, uid int64) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountCols+`
		FROM user_accounts
		WHERE user_id = $1 AND uid = $2`,
		userID, uid)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// SetUID moves the user's active account to a new in-game uid.
func (r *Repo) SetUID(ctx context.Context, userID string, uid int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_accounts
		SET uid = $2, updated_at = now()
		WHERE user_id = $1 AND active`,
		userID, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive switches the user's active account to the given uid.
// Both updates run in one transaction so exactly one row stays active.
func (r *Repo) SetActive(ctx context.Context, userID string, uid int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE user_accounts SET active = FALSE, updated_at = now() WHERE user_id = $1 AND active`,
		userID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE user_accounts SET active = TRUE, updated_at = now() WHERE user_id = $1 AND uid = $2`,
		userID, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *Repo) SetDailyCheckin(ctx context.Context, userID string, uid int64, enabled bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_accounts
		SET daily_checkin = $3, updated_at = now()
		WHERE user_id = $1 AND uid = $2`,
		userID, uid, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCookieInvalid records an upstream credential rejection. The row is
// kept so the user can re-submit a cookie; both schedulers skip it.
func (r *Repo) MarkCookieInvalid(ctx context.Context, userID string, uid int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_accounts
		SET cookie_invalid = TRUE, updated_at = now()
		WHERE user_id = $1 AND uid = $2`,
		userID, uid)
	return err
}

// ListCheckinEnabled returns accounts the daily claim sweep should visit:
// check-in enabled and the credential not known to be dead.
func (r *Repo) ListCheckinEnabled(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountCols+`
		FROM user_accounts
		WHERE daily_checkin AND NOT cookie_invalid
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *Repo) ListAll(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountCols+`
		FROM user_accounts
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *Repo) Delete(ctx context.Context, userID string, uid int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_accounts WHERE user_id = $1 AND uid = $2`,
		userID, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]Account, error) {
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
