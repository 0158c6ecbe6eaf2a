package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/seriatw/shenhe-bot/internal/hoyolab"
	"github.com/seriatw/shenhe-bot/internal/infra/metrics"
)

// Claimer runs the daily reward claim for every check-in enabled account,
// once a day at the configured anchor hour.
type Claimer struct {
	accounts AccountStore
	client   RewardClaimer
	log      *slog.Logger

	anchorHour int
	loc        *time.Location
	itemDelay  time.Duration
	ready      <-chan struct{}

	now func() time.Time // test hook
}

func NewClaimer(
	accounts AccountStore,
	client RewardClaimer,
	log *slog.Logger,
	anchorHour int,
	loc *time.Location,
	itemDelay time.Duration,
	ready <-chan struct{},
) *Claimer {
	return &Claimer{
		accounts:   accounts,
		client:     client,
		log:        log,
		anchorHour: anchorHour,
		loc:        loc,
		itemDelay:  itemDelay,
		ready:      ready,
		now:        time.Now,
	}
}

// Run waits for the host to be ready, then for the next anchor time of
// day (rolling to tomorrow if it already passed), then sweeps every 24h.
// Claims happen at a predictable low-traffic hour, not at restart time.
func (c *Claimer) Run(ctx context.Context) {
	if !waitReady(ctx, c.ready) {
		return
	}

	anchor := nextAnchor(c.now(), c.anchorHour, c.loc)
	c.log.Info("daily claim scheduled", "at", anchor)
	if !sleep(ctx, time.Until(anchor)) {
		return
	}

	c.sweepOnce(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("claimer stopping")
			return
		case <-ticker.C:
			c.sweepOnce(ctx)
		}
	}
}

func (c *Claimer) sweepOnce(ctx context.Context) {
	start := time.Now()
	claimed, total := c.Sweep(ctx)
	metrics.SweepsTotal.WithLabelValues("claim").Inc()
	metrics.SweepDuration.WithLabelValues("claim").Observe(time.Since(start).Seconds())
	c.log.Info("auto claim finished", "claimed", claimed, "total", total, "took", time.Since(start))
}

// Sweep attempts the claim for every eligible account and returns how many
// succeeded (already-claimed counts as success) out of how many it visited.
// A failing account never stops the batch.
func (c *Claimer) Sweep(ctx context.Context) (claimed, total int) {
	accts, err := c.accounts.ListCheckinEnabled(ctx)
	if err != nil {
		c.log.Error("list accounts failed", "err", err)
		return 0, 0
	}

	for i, acct := range accts {
		if ctx.Err() != nil {
			return claimed, total
		}
		if i > 0 && !sleep(ctx, c.itemDelay) {
			return claimed, total
		}
		total++

		res, err := c.client.ClaimDailyReward(ctx, acct.UID, acct.Cookie())
		switch {
		case hoyolab.IsInvalidCookie(err):
			c.log.Warn("cookie rejected during claim", "user", acct.UserID, "uid", acct.UID)
			if err := c.accounts.MarkCookieInvalid(ctx, acct.UserID, acct.UID); err != nil {
				c.log.Error("mark cookie invalid failed", "uid", acct.UID, "err", err)
			}
			metrics.SweepItemsTotal.WithLabelValues("claim", "invalid_cookie").Inc()
		case err != nil:
			c.log.Warn("claim failed", "uid", acct.UID, "err", err)
			metrics.SweepItemsTotal.WithLabelValues("claim", "transient").Inc()
		case res.AlreadyClaimed:
			claimed++
			metrics.ClaimsSucceeded.Inc()
			metrics.SweepItemsTotal.WithLabelValues("claim", "already_claimed").Inc()
		default:
			claimed++
			metrics.ClaimsSucceeded.Inc()
			metrics.SweepItemsTotal.WithLabelValues("claim", "claimed").Inc()
		}
	}
	return claimed, total
}
