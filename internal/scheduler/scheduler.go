// Package scheduler runs the two background sweeps: threshold
// notifications over real-time notes and the daily reward claim.
// Both are stateless over the store; every counter that must survive a
// restart lives in a row, so an aborted sweep never needs recovery.
package scheduler

import (
	"context"
	"time"

	"github.com/seriatw/shenhe-bot/internal/domain/accounts"
	"github.com/seriatw/shenhe-bot/internal/domain/notifications"
	"github.com/seriatw/shenhe-bot/internal/hoyolab"
)

// SubscriptionStore is the slice of the notifications repo the notifier uses.
type SubscriptionStore interface {
	ListEnabled(ctx context.Context, kind notifications.Kind) ([]notifications.Subscription, error)
	IncrementNotif(ctx context.Context, id int64) error
	ResetNotif(ctx context.Context, id int64) error
}

// AccountStore is the slice of the accounts repo both sweeps use.
type AccountStore interface {
	Get(ctx context.Context, userID string, uid int64) (*accounts.Account, error)
	ListCheckinEnabled(ctx context.Context) ([]accounts.Account, error)
	MarkCookieInvalid(ctx context.Context, userID string, uid int64) error
}

// NotesFetcher fetches real-time notes for one account.
type NotesFetcher interface {
	FetchNotes(ctx context.Context, uid int64, cookie accounts.Cookie) (hoyolab.Notes, error)
}

// RewardClaimer performs the daily check-in for one account.
type RewardClaimer interface {
	ClaimDailyReward(ctx context.Context, uid int64, cookie accounts.Cookie) (hoyolab.ClaimResult, error)
}

// Dispatcher delivers an alert to the user. Delivery failures are the
// dispatcher's problem; the sweeps log and move on.
type Dispatcher interface {
	Notify(ctx context.Context, userID string, sub notifications.Subscription, value int) error
}

// sleep waits for d or until ctx is canceled. Returns false on cancel.
// Used for the inter-item courtesy delay toward the upstream API.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// waitReady blocks until the host signals it is fully initialized
// (store connected, gateway session open) or ctx is canceled.
func waitReady(ctx context.Context, ready <-chan struct{}) bool {
	if ready == nil {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-ready:
		return true
	}
}

// nextAnchor returns the next occurrence of hour:00 in loc strictly after
// now. If today's anchor has passed, it rolls to tomorrow.
func nextAnchor(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	anchor := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !anchor.After(local) {
		anchor = anchor.Add(24 * time.Hour)
	}
	return anchor
}
