package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/seriatw/shenhe-bot/internal/domain/notifications"
	"github.com/seriatw/shenhe-bot/internal/hoyolab"
)

const (
	colorDefault = 0xA68BD3
	colorError   = 0xFC5165
)

func defaultEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorDefault,
	}
}

func errorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Something went wrong",
		Description: description,
		Color:       colorError,
	}
}

func notesEmbed(uid int64, n hoyolab.Notes) *discordgo.MessageEmbed {
	transformer := "not obtained"
	if n.Transformer.Obtained {
		transformer = "on cooldown"
		if n.TransformerReady() {
			transformer = "ready"
		}
	}

	e := defaultEmbed("Real-time notes", fmt.Sprintf("UID %d", uid))
	e.Fields = []*discordgo.MessageEmbedField{
		{
			Name:   "🌙 Resin",
			Value:  fmt.Sprintf("%d/%d (full in %s)", n.CurrentResin, n.MaxResin, (time.Duration(n.ResinRecoverySec) * time.Second).Round(time.Minute)),
			Inline: true,
		},
		{
			Name:   "🫖 Realm currency",
			Value:  fmt.Sprintf("%d/%d", n.CurrentHomeCoin, n.MaxHomeCoin),
			Inline: true,
		},
		{
			Name:   "⚗️ Parametric transformer",
			Value:  transformer,
			Inline: true,
		},
	}
	return e
}

func kindTitle(kind notifications.Kind) string {
	switch kind {
	case notifications.KindResin:
		return "🌙 Resin reminder"
	case notifications.KindPot:
		return "🫖 Realm currency reminder"
	case notifications.KindPT:
		return "⚗️ Parametric transformer reminder"
	case notifications.KindTalent:
		return "📘 Talent material reminder"
	case notifications.KindWeapon:
		return "🗡️ Weapon material reminder"
	default:
		return "Reminder"
	}
}

func settingsEmbed(sub notifications.Subscription) *discordgo.MessageEmbed {
	state := "off"
	if sub.Enabled {
		state = "on"
	}
	e := defaultEmbed(kindTitle(sub.Kind), "Current settings")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Toggle", Value: state, Inline: true},
		{Name: "Threshold", Value: fmt.Sprint(sub.Threshold), Inline: true},
		{Name: "Max alerts", Value: fmt.Sprintf("%d (sent %d)", sub.MaxNotif, sub.CurrentNotif), Inline: true},
	}
	return e
}

func alertEmbed(sub notifications.Subscription, value int) *discordgo.MessageEmbed {
	var body string
	switch sub.Kind {
	case notifications.KindResin:
		body = fmt.Sprintf("Your resin is at %d/160 — it's about to overflow!", value)
	case notifications.KindPot:
		body = fmt.Sprintf("Your realm currency reached %d. Time to collect.", value)
	case notifications.KindPT:
		body = "Your parametric transformer is ready."
	default:
		body = "Your reminder fired."
	}
	e := defaultEmbed(kindTitle(sub.Kind), body)
	e.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Threshold %d · alert %d of %d · adjust with /remind", sub.Threshold, sub.CurrentNotif+1, sub.MaxNotif),
	}
	return e
}
