package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/seriatw/shenhe-bot/internal/domain/accounts"
	"github.com/seriatw/shenhe-bot/internal/domain/notifications"
	"github.com/seriatw/shenhe-bot/internal/hoyolab"
)

// AccountStore is the slice of the accounts repo the command handlers use.
type AccountStore interface {
	Upsert(ctx context.Context, userID string, uid, ltuid int64, ltoken string) (*accounts.Account, error)
	GetActive(ctx context.Context, userID string) (*accounts.Account, error)
	SetUID(ctx context.Context, userID string, uid int64) error
	SetActive(ctx context.Context, userID string, uid int64) error
	SetDailyCheckin(ctx context.Context, userID string, uid int64, enabled bool) error
	MarkCookieInvalid(ctx context.Context, userID string, uid int64) error
	ListAll(ctx context.Context) ([]accounts.Account, error)
	Delete(ctx context.Context, userID string, uid int64) error
}

// SubscriptionStore is the slice of the notifications repo the command
// handlers use.
type SubscriptionStore interface {
	EnsureDefaults(ctx context.Context, userID string, uid int64) error
	Get(ctx context.Context, userID string, uid int64, kind notifications.Kind) (*notifications.Subscription, error)
	SetEnabled(ctx context.Context, userID string, uid int64, kind notifications.Kind, enabled bool) error
	SetThreshold(ctx context.Context, userID string, uid int64, kind notifications.Kind, threshold, maxNotif int) error
	DeleteFor(ctx context.Context, userID string, uid int64) error
}

// GameClient is the upstream API surface the command handlers use.
type GameClient interface {
	FetchNotes(ctx context.Context, uid int64, cookie accounts.Cookie) (hoyolab.Notes, error)
	ClaimDailyReward(ctx context.Context, uid int64, cookie accounts.Cookie) (hoyolab.ClaimResult, error)
}

type Bot struct {
	session *discordgo.Session
	log     *slog.Logger

	accounts AccountStore
	notifs   SubscriptionStore
	client   GameClient

	adminUserID string
	guildID     string

	ready     chan struct{}
	readyOnce sync.Once
}

func New(token string, log *slog.Logger,
	accountsRepo AccountStore, notifsRepo SubscriptionStore,
	client GameClient, adminUserID, guildID string) (*Bot, error) {

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages

	b := &Bot{
		session:     session,
		log:         log,
		accounts:    accountsRepo,
		notifs:      notifsRepo,
		client:      client,
		adminUserID: adminUserID,
		guildID:     guildID,
		ready:       make(chan struct{}),
	}

	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("discord session ready", "user", r.User.Username, "guilds", len(r.Guilds))
		b.readyOnce.Do(func() { close(b.ready) })
	})
	session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.handleInteraction(context.Background(), i)
	})

	return b, nil
}

// Ready is closed once the gateway session reports itself ready. The
// schedulers gate their first sweep on it.
func (b *Bot) Ready() <-chan struct{} { return b.ready }

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

// Notify implements scheduler.Dispatcher: a direct-message embed telling
// the user their threshold fired.
func (b *Bot) Notify(_ context.Context, userID string, sub notifications.Subscription, value int) error {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	_, err = b.session.ChannelMessageSendEmbed(ch.ID, alertEmbed(sub, value))
	if err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

func (b *Bot) registerCommands() error {
	kindChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(notifications.Kinds()))
	for _, k := range notifications.Kinds() {
		kindChoices = append(kindChoices, &discordgo.ApplicationCommandOptionChoice{
			Name: string(k), Value: string(k),
		})
	}

	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "cookie",
			Description: "Register your Hoyolab cookie",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "cookie",
					Description: "The cookie string copied from hoyolab.com",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "uid",
					Description: "Your 9-digit game UID",
					Required:    true,
				},
			},
		},
		{
			Name:        "setuid",
			Description: "Change the game UID on your active account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "uid",
					Description: "Your 9-digit game UID",
					Required:    true,
				},
			},
		},
		{
			Name:        "account",
			Description: "Manage your registered game accounts",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "switch",
					Description: "Make another registered UID your active account",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "uid",
							Description: "The UID to activate",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Unlink a registered UID and its notification settings",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "uid",
							Description: "The UID to unlink",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "check",
			Description: "Show real-time notes: resin, realm currency, transformer",
		},
		{
			Name:        "claim",
			Description: "Claim today's Hoyolab daily reward",
		},
		{
			Name:        "checkin",
			Description: "Turn automatic daily check-in on or off",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Claim the reward for you every day",
					Required:    true,
				},
			},
		},
		{
			Name:        "remind",
			Description: "Show or change a notification setting",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "Which notification",
					Required:    true,
					Choices:     kindChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "toggle",
					Description: "Enable or disable it",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "threshold",
					Description: "Alert when the value reaches this",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max",
					Description: "Stop after this many alerts until the value drops",
				},
			},
		},
		{
			Name:        "uid",
			Description: "Look up a member's game UID",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Whose UID to look up",
					Required:    true,
				},
			},
		},
		{
			Name:        "users",
			Description: "Admin: list registered accounts",
		},
		{
			Name:        "export",
			Description: "Admin: export registered accounts as a workbook",
		},
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, cmds)
	return err
}

// parseCookie extracts the ltuid/ltoken pair out of a pasted browser
// cookie string.
func parseCookie(raw string) (ltuid int64, ltoken string, err error) {
	for _, part := range strings.Split(raw, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ltuid", "ltuid_v2":
			if _, err := fmt.Sscan(strings.TrimSpace(v), &ltuid); err != nil {
				return 0, "", fmt.Errorf("bad ltuid: %w", err)
			}
		case "ltoken", "ltoken_v2":
			ltoken = strings.TrimSpace(v)
		}
	}
	if ltuid == 0 || ltoken == "" {
		return 0, "", fmt.Errorf("cookie is missing ltuid or ltoken")
	}
	return ltuid, ltoken, nil
}
