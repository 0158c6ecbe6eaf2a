package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/seriatw/shenhe-bot/internal/domain/accounts"
	"github.com/seriatw/shenhe-bot/internal/hoyolab"
)

func checkinAcct(uid int64) accounts.Account {
	return accounts.Account{UserID: "u1", UID: uid, LtUID: 1, LtToken: "t", DailyCheckin: true}
}

func newClaimer(accts *fakeAccounts, client *fakeClient) *Claimer {
	return NewClaimer(accts, client, slog.Default(), 1, time.UTC, 0, nil)
}

// One expired credential in the middle: the other two accounts are still
// attempted and the reported success count is 2.
func TestClaimSweep_ExpiredCredentialIsIsolated(t *testing.T) {
	accts := &fakeAccounts{
		checkin: []accounts.Account{
			checkinAcct(800000001),
			checkinAcct(800000002),
			checkinAcct(800000003),
		},
	}
	client := &fakeClient{
		claimRes: map[int64]hoyolab.ClaimResult{},
		errs:     map[int64]error{800000002: hoyolab.ErrInvalidCookie},
	}

	claimed, total := newClaimer(accts, client).Sweep(context.Background())
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if claimed != 2 {
		t.Fatalf("claimed = %d, want 2", claimed)
	}
	if len(client.claimed) != 3 {
		t.Fatalf("attempted %d claims, want 3", len(client.claimed))
	}
	if len(accts.invalid) != 1 || accts.invalid[0] != 800000002 {
		t.Fatalf("invalid marks = %v, want [800000002]", accts.invalid)
	}
}

// Already claimed is a success no-op, both times.
func TestClaimSweep_AlreadyClaimedIsIdempotentSuccess(t *testing.T) {
	accts := &fakeAccounts{checkin: []accounts.Account{checkinAcct(800000001)}}
	client := &fakeClient{
		claimRes: map[int64]hoyolab.ClaimResult{800000001: {AlreadyClaimed: true}},
	}

	c := newClaimer(accts, client)
	for run := 1; run <= 2; run++ {
		claimed, total := c.Sweep(context.Background())
		if claimed != 1 || total != 1 {
			t.Fatalf("run %d: claimed/total = %d/%d, want 1/1", run, claimed, total)
		}
	}
	if len(client.claimed) != 2 {
		t.Fatalf("attempted %d claims, want 2", len(client.claimed))
	}
}

// A random upstream failure logs and continues; the batch cannot fail as
// a whole.
func TestClaimSweep_TransientFailureContinues(t *testing.T) {
	accts := &fakeAccounts{checkin: []accounts.Account{
		checkinAcct(800000001),
		checkinAcct(800000002),
	}}
	client := &fakeClient{
		claimRes: map[int64]hoyolab.ClaimResult{},
		errs:     map[int64]error{800000001: errors.New("rate limited")},
	}

	claimed, total := newClaimer(accts, client).Sweep(context.Background())
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if claimed != 1 {
		t.Fatalf("claimed = %d, want 1", claimed)
	}
	if len(accts.invalid) != 0 {
		t.Fatalf("transient error must not mark cookie invalid, got %v", accts.invalid)
	}
}

func TestClaimSweep_CancellationStopsBetweenItems(t *testing.T) {
	accts := &fakeAccounts{checkin: []accounts.Account{
		checkinAcct(800000001),
		checkinAcct(800000002),
	}}
	client := &fakeClient{claimRes: map[int64]hoyolab.ClaimResult{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	claimed, total := newClaimer(accts, client).Sweep(ctx)
	if claimed != 0 || total != 0 {
		t.Fatalf("canceled sweep did %d/%d items, want 0/0", claimed, total)
	}
}

func TestNextAnchor(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "before anchor today",
			now:  time.Date(2026, time.March, 10, 0, 30, 0, 0, loc),
			hour: 1,
			want: time.Date(2026, time.March, 10, 1, 0, 0, 0, loc),
		},
		{
			name: "after anchor rolls to tomorrow",
			now:  time.Date(2026, time.March, 10, 13, 0, 0, 0, loc),
			hour: 1,
			want: time.Date(2026, time.March, 11, 1, 0, 0, 0, loc),
		},
		{
			name: "exactly at anchor rolls to tomorrow",
			now:  time.Date(2026, time.March, 10, 1, 0, 0, 0, loc),
			hour: 1,
			want: time.Date(2026, time.March, 11, 1, 0, 0, 0, loc),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := nextAnchor(tc.now, tc.hour, loc)
			if !got.Equal(tc.want) {
				t.Fatalf("nextAnchor = %v, want %v", got, tc.want)
			}
		})
	}
}
