package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/seriatw/shenhe-bot/internal/bot"
	"github.com/seriatw/shenhe-bot/internal/config"
	"github.com/seriatw/shenhe-bot/internal/domain/accounts"
	"github.com/seriatw/shenhe-bot/internal/domain/notifications"
	"github.com/seriatw/shenhe-bot/internal/hoyolab"
	"github.com/seriatw/shenhe-bot/internal/infra/db"
	httpx "github.com/seriatw/shenhe-bot/internal/infra/http"
	"github.com/seriatw/shenhe-bot/internal/infra/logger"
	"github.com/seriatw/shenhe-bot/internal/scheduler"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func runMigrations(dsn string, log *slog.Logger) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN, log); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Error("bad timezone", "tz", cfg.App.Timezone, "err", err)
		return
	}

	accountsRepo := accounts.NewRepo(pool)
	notifsRepo := notifications.NewRepo(pool)
	client := hoyolab.NewClient(cfg.Hoyolab.BaseURL, cfg.Hoyolab.Timeout)

	b, err := bot.New(cfg.Discord.Token, log, accountsRepo, notifsRepo, client,
		cfg.Discord.AdminUserID, cfg.Discord.GuildID)
	if err != nil {
		log.Error("bot init failed", "err", err)
		return
	}
	if err := b.Start(); err != nil {
		log.Error("bot start failed", "err", err)
		return
	}
	defer func() { _ = b.Stop() }()
	log.Info("discord session opened")

	notifier := scheduler.NewNotifier(notifsRepo, accountsRepo, client, b, log,
		cfg.Scheduler.CheckInterval, cfg.Scheduler.ItemDelay, b.Ready())
	claimer := scheduler.NewClaimer(accountsRepo, client, log,
		cfg.Scheduler.ClaimHour, loc, cfg.Scheduler.ItemDelay, b.Ready())
	go notifier.Run(ctx)
	go claimer.Run(ctx)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
