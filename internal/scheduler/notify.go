package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/seriatw/shenhe-bot/internal/domain/notifications"
	"github.com/seriatw/shenhe-bot/internal/hoyolab"
	"github.com/seriatw/shenhe-bot/internal/infra/metrics"
)

// valueKinds are the subscription kinds the notes sweep can evaluate:
// their monitored quantity comes straight out of one FetchNotes call.
var valueKinds = []notifications.Kind{
	notifications.KindResin,
	notifications.KindPot,
	notifications.KindPT,
}

// Notifier is the periodic threshold-notification sweep.
type Notifier struct {
	subs     SubscriptionStore
	accounts AccountStore
	client   NotesFetcher
	dispatch Dispatcher
	log      *slog.Logger

	interval  time.Duration
	itemDelay time.Duration
	ready     <-chan struct{}
}

func NewNotifier(
	subs SubscriptionStore,
	accounts AccountStore,
	client NotesFetcher,
	dispatch Dispatcher,
	log *slog.Logger,
	interval, itemDelay time.Duration,
	ready <-chan struct{},
) *Notifier {
	return &Notifier{
		subs:      subs,
		accounts:  accounts,
		client:    client,
		dispatch:  dispatch,
		log:       log,
		interval:  interval,
		itemDelay: itemDelay,
		ready:     ready,
	}
}

// Run sweeps once as soon as the host is ready, then on every interval
// tick until ctx is canceled.
func (n *Notifier) Run(ctx context.Context) {
	if !waitReady(ctx, n.ready) {
		return
	}
	n.sweepAll(ctx)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			n.log.Info("notifier stopping")
			return
		case <-ticker.C:
			n.sweepAll(ctx)
		}
	}
}

func (n *Notifier) sweepAll(ctx context.Context) {
	start := time.Now()
	total := 0
	for _, kind := range valueKinds {
		total += n.Sweep(ctx, kind)
	}
	metrics.SweepsTotal.WithLabelValues("notify").Inc()
	metrics.SweepDuration.WithLabelValues("notify").Observe(time.Since(start).Seconds())
	n.log.Info("notification sweep finished", "processed", total, "took", time.Since(start))
}

// Sweep evaluates every enabled subscription of one kind and returns how
// many it processed. Per-item failures never abort the sweep; only the
// initial store listing is fatal for this tick.
func (n *Notifier) Sweep(ctx context.Context, kind notifications.Kind) int {
	subs, err := n.subs.ListEnabled(ctx, kind)
	if err != nil {
		n.log.Error("list subscriptions failed", "kind", kind, "err", err)
		return 0
	}

	processed := 0
	for i, sub := range subs {
		if ctx.Err() != nil {
			return processed
		}
		if i > 0 && !sleep(ctx, n.itemDelay) {
			return processed
		}
		n.process(ctx, sub)
		processed++
	}
	return processed
}

// process applies the alert rules to one subscription:
// value >= threshold and count below max → dispatch and increment;
// value below threshold → reset count; fetch failure → leave untouched.
func (n *Notifier) process(ctx context.Context, sub notifications.Subscription) {
	acct, err := n.accounts.Get(ctx, sub.UserID, sub.UID)
	if err != nil {
		n.log.Warn("account lookup failed", "user", sub.UserID, "uid", sub.UID, "err", err)
		metrics.SweepItemsTotal.WithLabelValues("notify", "error").Inc()
		return
	}
	if acct.CookieInvalid {
		metrics.SweepItemsTotal.WithLabelValues("notify", "skipped").Inc()
		return
	}

	notes, err := n.client.FetchNotes(ctx, sub.UID, acct.Cookie())
	if hoyolab.IsInvalidCookie(err) {
		n.log.Warn("cookie rejected", "user", sub.UserID, "uid", sub.UID)
		if err := n.accounts.MarkCookieInvalid(ctx, sub.UserID, sub.UID); err != nil {
			n.log.Error("mark cookie invalid failed", "uid", sub.UID, "err", err)
		}
		metrics.SweepItemsTotal.WithLabelValues("notify", "invalid_cookie").Inc()
		return
	}
	if err != nil {
		n.log.Warn("fetch notes failed", "uid", sub.UID, "err", err)
		metrics.SweepItemsTotal.WithLabelValues("notify", "transient").Inc()
		return
	}

	value, ok := monitoredValue(sub.Kind, notes)
	if !ok {
		metrics.SweepItemsTotal.WithLabelValues("notify", "skipped").Inc()
		return
	}

	switch {
	case value >= sub.Threshold && sub.CurrentNotif < sub.MaxNotif:
		if err := n.dispatch.Notify(ctx, sub.UserID, sub, value); err != nil {
			// Delivery is fire-and-forget: the counter still advances so a
			// dead DM channel cannot make the bot spam every sweep.
			n.log.Warn("alert delivery failed", "user", sub.UserID, "kind", sub.Kind, "err", err)
		}
		if err := n.subs.IncrementNotif(ctx, sub.ID); err != nil {
			n.log.Error("increment notif failed", "id", sub.ID, "err", err)
		}
		metrics.AlertsDispatched.Inc()
		metrics.SweepItemsTotal.WithLabelValues("notify", "alerted").Inc()
	case value < sub.Threshold:
		if sub.CurrentNotif != 0 {
			if err := n.subs.ResetNotif(ctx, sub.ID); err != nil {
				n.log.Error("reset notif failed", "id", sub.ID, "err", err)
			}
		}
		metrics.SweepItemsTotal.WithLabelValues("notify", "below").Inc()
	default:
		// At max: stay silent until the value drops and rises again.
		metrics.SweepItemsTotal.WithLabelValues("notify", "suppressed").Inc()
	}
}

// monitoredValue extracts the quantity a kind watches from the notes.
// Day-based kinds (talent, weapon) are not derivable from notes and are
// handled by their own flows, so ok is false for them.
func monitoredValue(kind notifications.Kind, notes hoyolab.Notes) (int, bool) {
	switch kind {
	case notifications.KindResin:
		return notes.CurrentResin, true
	case notifications.KindPot:
		return notes.CurrentHomeCoin, true
	case notifications.KindPT:
		if notes.TransformerReady() {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
