package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/seriatw/shenhe-bot/internal/domain/accounts"
	"github.com/seriatw/shenhe-bot/internal/domain/notifications"
	"github.com/seriatw/shenhe-bot/internal/hoyolab"
)

func (b *Bot) handleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	data := i.ApplicationCommandData()
	b.log.Info("command", "name", data.Name, "user", interactionUserID(i))

	switch data.Name {
	case "cookie":
		b.handleCookie(ctx, i)
	case "setuid":
		b.handleSetUID(ctx, i)
	case "account":
		b.handleAccount(ctx, i)
	case "check":
		b.handleCheck(ctx, i)
	case "claim":
		b.handleClaim(ctx, i)
	case "checkin":
		b.handleCheckin(ctx, i)
	case "remind":
		b.handleRemind(ctx, i)
	case "uid":
		b.handleUIDLookup(ctx, i)
	case "users":
		b.handleUsers(ctx, i)
	case "export":
		b.handleExport(ctx, i)
	default:
		b.respondError(i, "Unknown command.")
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (b *Bot) handleCookie(ctx context.Context, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	raw := opts["cookie"].StringValue()
	uid := opts["uid"].IntValue()
	userID := interactionUserID(i)

	ltuid, ltoken, err := parseCookie(raw)
	if err != nil {
		b.respondError(i, "That doesn't look like a valid cookie. Make sure it contains ltuid and ltoken.")
		return
	}
	if _, err := hoyolab.ServerFromUID(uid); err != nil {
		b.respondError(i, "That UID doesn't look right: it must be 9 digits on an overseas server.")
		return
	}

	// Verify the credential before persisting it.
	if _, err := b.client.FetchNotes(ctx, uid, accounts.Cookie{LtUID: ltuid, LtToken: ltoken}); err != nil {
		if hoyolab.IsInvalidCookie(err) {
			b.respondError(i, "Hoyolab rejected that cookie. Log out and back in on hoyolab.com, then copy it again.")
			return
		}
		b.log.Warn("cookie verification failed", "user", userID, "err", err)
		b.respondError(i, "Couldn't reach Hoyolab to verify the cookie. Try again in a bit.")
		return
	}

	if _, err := b.accounts.Upsert(ctx, userID, uid, ltuid, ltoken); err != nil {
		b.log.Error("account upsert failed", "user", userID, "err", err)
		b.respondError(i, "Couldn't save your account. Try again.")
		return
	}
	if err := b.notifs.EnsureDefaults(ctx, userID, uid); err != nil {
		b.log.Error("ensure notification defaults failed", "user", userID, "err", err)
	}
	b.respondEmbed(i, defaultEmbed("Account registered",
		fmt.Sprintf("UID %d is linked. Use `/remind` to set up notifications and `/checkin` for automatic daily rewards.", uid)), true)
}

func (b *Bot) handleSetUID(ctx context.Context, i *discordgo.InteractionCreate) {
	uid := optionMap(i)["uid"].IntValue()
	userID := interactionUserID(i)

	if _, err := hoyolab.ServerFromUID(uid); err != nil {
		b.respondError(i, "That UID doesn't look right: it must be 9 digits on an overseas server.")
		return
	}
	if err := b.accounts.SetUID(ctx, userID, uid); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			b.respondError(i, "You have no registered account yet. Use `/cookie` first.")
			return
		}
		b.log.Error("set uid failed", "user", userID, "err", err)
		b.respondError(i, "Couldn't update your UID. Try again.")
		return
	}
	b.respondEmbed(i, defaultEmbed("UID updated", fmt.Sprintf("Your active account now points at %d.", uid)), true)
}

func (b *Bot) handleAccount(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		b.respondError(i, "Unknown subcommand.")
		return
	}
	sc := data.Options[0]
	var uid int64
	for _, o := range sc.Options {
		if o.Name == "uid" {
			uid = o.IntValue()
		}
	}
	userID := interactionUserID(i)

	switch sc.Name {
	case "switch":
		if err := b.accounts.SetActive(ctx, userID, uid); err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				b.respondError(i, "No account with that UID is registered to you. Use `/cookie` to add it first.")
				return
			}
			b.log.Error("switch account failed", "user", userID, "uid", uid, "err", err)
			b.respondError(i, "Couldn't switch accounts. Try again.")
			return
		}
		b.respondEmbed(i, defaultEmbed("Active account switched",
			fmt.Sprintf("Commands now default to UID %d.", uid)), true)
	case "remove":
		if err := b.accounts.Delete(ctx, userID, uid); err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				b.respondError(i, "No account with that UID is registered to you.")
				return
			}
			b.log.Error("remove account failed", "user", userID, "uid", uid, "err", err)
			b.respondError(i, "Couldn't remove the account. Try again.")
			return
		}
		if err := b.notifs.DeleteFor(ctx, userID, uid); err != nil {
			b.log.Error("delete subscriptions failed", "user", userID, "uid", uid, "err", err)
		}
		b.respondEmbed(i, defaultEmbed("Account removed",
			fmt.Sprintf("UID %d and its notification settings are unlinked.", uid)), true)
	default:
		b.respondError(i, "Unknown subcommand.")
	}
}

func (b *Bot) handleCheck(ctx context.Context, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	acct, err := b.accounts.GetActive(ctx, userID)
	if err != nil {
		b.respondError(i, "You have no registered account yet. Use `/cookie` first.")
		return
	}

	notes, err := b.client.FetchNotes(ctx, acct.UID, acct.Cookie())
	if err != nil {
		if hoyolab.IsInvalidCookie(err) {
			_ = b.accounts.MarkCookieInvalid(ctx, acct.UserID, acct.UID)
			b.respondError(i, "Your cookie has expired. Submit a fresh one with `/cookie`.")
			return
		}
		b.log.Warn("fetch notes failed", "uid", acct.UID, "err", err)
		b.respondError(i, "Hoyolab didn't answer. Try again in a bit.")
		return
	}
	b.respondEmbed(i, notesEmbed(acct.UID, notes), false)
}

func (b *Bot) handleClaim(ctx context.Context, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	acct, err := b.accounts.GetActive(ctx, userID)
	if err != nil {
		b.respondError(i, "You have no registered account yet. Use `/cookie` first.")
		return
	}

	res, err := b.client.ClaimDailyReward(ctx, acct.UID, acct.Cookie())
	if err != nil {
		if hoyolab.IsInvalidCookie(err) {
			_ = b.accounts.MarkCookieInvalid(ctx, acct.UserID, acct.UID)
			b.respondError(i, "Your cookie has expired. Submit a fresh one with `/cookie`.")
			return
		}
		b.log.Warn("claim failed", "uid", acct.UID, "err", err)
		b.respondError(i, "The claim didn't go through. Try again in a bit.")
		return
	}
	if res.AlreadyClaimed {
		b.respondEmbed(i, defaultEmbed("Already claimed", "Today's reward was claimed earlier. Come back tomorrow."), true)
		return
	}
	b.respondEmbed(i, defaultEmbed("Reward claimed", "Today's daily reward is yours."), true)
}

func (b *Bot) handleCheckin(ctx context.Context, i *discordgo.InteractionCreate) {
	enabled := optionMap(i)["enabled"].BoolValue()
	userID := interactionUserID(i)

	acct, err := b.accounts.GetActive(ctx, userID)
	if err != nil {
		b.respondError(i, "You have no registered account yet. Use `/cookie` first.")
		return
	}
	if err := b.accounts.SetDailyCheckin(ctx, userID, acct.UID, enabled); err != nil {
		b.log.Error("set checkin failed", "user", userID, "err", err)
		b.respondError(i, "Couldn't update the setting. Try again.")
		return
	}
	state := "off"
	if enabled {
		state = "on"
	}
	b.respondEmbed(i, defaultEmbed("Daily check-in "+state,
		"The bot claims the daily reward for every enabled account once a day."), true)
}

func (b *Bot) handleRemind(ctx context.Context, i *discordgo.InteractionCreate) {
	opts := optionMap(i)
	kind := notifications.Kind(opts["kind"].StringValue())
	userID := interactionUserID(i)

	if !kind.Valid() {
		b.respondError(i, "Unknown notification kind.")
		return
	}
	acct, err := b.accounts.GetActive(ctx, userID)
	if err != nil {
		b.respondError(i, "You have no registered account yet. Use `/cookie` first.")
		return
	}
	// Rows are created lazily with per-kind defaults on first access.
	if err := b.notifs.EnsureDefaults(ctx, userID, acct.UID); err != nil {
		b.log.Error("ensure notification defaults failed", "user", userID, "err", err)
		b.respondError(i, "Couldn't load your settings. Try again.")
		return
	}

	if o, ok := opts["toggle"]; ok {
		if err := b.notifs.SetEnabled(ctx, userID, acct.UID, kind, o.BoolValue()); err != nil {
			b.log.Error("set toggle failed", "user", userID, "kind", kind, "err", err)
			b.respondError(i, "Couldn't update the setting. Try again.")
			return
		}
	}

	_, okThreshold := opts["threshold"]
	_, okMax := opts["max"]
	if okThreshold || okMax {
		sub, err := b.notifs.Get(ctx, userID, acct.UID, kind)
		if err != nil {
			b.log.Error("load subscription failed", "user", userID, "kind", kind, "err", err)
			b.respondError(i, "Couldn't load your settings. Try again.")
			return
		}
		threshold, maxNotif := sub.Threshold, sub.MaxNotif
		if o, ok := opts["threshold"]; ok {
			threshold = int(o.IntValue())
		}
		if o, ok := opts["max"]; ok {
			maxNotif = int(o.IntValue())
		}
		if threshold < 0 || maxNotif < 0 {
			b.respondError(i, "Threshold and max must not be negative.")
			return
		}
		if kind == notifications.KindResin && threshold > 160 {
			b.respondError(i, "Resin caps at 160; pick a threshold at or below it.")
			return
		}
		if err := b.notifs.SetThreshold(ctx, userID, acct.UID, kind, threshold, maxNotif); err != nil {
			b.log.Error("set threshold failed", "user", userID, "kind", kind, "err", err)
			b.respondError(i, "Couldn't update the setting. Try again.")
			return
		}
	}

	sub, err := b.notifs.Get(ctx, userID, acct.UID, kind)
	if err != nil {
		b.log.Error("load subscription failed", "user", userID, "kind", kind, "err", err)
		b.respondError(i, "Couldn't load your settings. Try again.")
		return
	}
	b.respondEmbed(i, settingsEmbed(*sub), true)
}

func (b *Bot) handleUIDLookup(ctx context.Context, i *discordgo.InteractionCreate) {
	member := optionMap(i)["member"].UserValue(b.session)
	acct, err := b.accounts.GetActive(ctx, member.ID)
	if err != nil {
		b.respondError(i, "That member hasn't registered a UID.")
		return
	}
	b.respondEmbed(i, defaultEmbed("UID", fmt.Sprintf("%s — %d", member.Username, acct.UID)), false)
}

func (b *Bot) handleUsers(ctx context.Context, i *discordgo.InteractionCreate) {
	if !b.isAdmin(i) {
		b.respondError(i, "Admins only.")
		return
	}
	accts, err := b.accounts.ListAll(ctx)
	if err != nil {
		b.log.Error("list accounts failed", "err", err)
		b.respondError(i, "Couldn't list accounts.")
		return
	}

	var sb strings.Builder
	for n, a := range accts {
		flags := ""
		if a.CookieInvalid {
			flags = " (cookie invalid)"
		}
		fmt.Fprintf(&sb, "%d. <@%s> — %d%s\n", n+1, a.UserID, a.UID, flags)
	}
	if sb.Len() == 0 {
		sb.WriteString("No accounts registered.")
	}
	b.respondEmbed(i, defaultEmbed(fmt.Sprintf("Registered accounts (%d)", len(accts)), sb.String()), true)
}

func (b *Bot) isAdmin(i *discordgo.InteractionCreate) bool {
	return b.adminUserID != "" && interactionUserID(i) == b.adminUserID
}

func (b *Bot) respondEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}
	if ephemeral {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := b.session.InteractionRespond(i.Interaction, resp); err != nil {
		b.log.Warn("interaction respond failed", "err", err)
	}
}

func (b *Bot) respondError(i *discordgo.InteractionCreate, msg string) {
	b.respondEmbed(i, errorEmbed(msg), true)
}
