package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/xuri/excelize/v2"
)

// handleExport builds an xlsx workbook of all registered accounts and
// attaches it to the reply. Admin only; cookie material stays out of it.
func (b *Bot) handleExport(ctx context.Context, i *discordgo.InteractionCreate) {
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

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Accounts"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		b.log.Error("create sheet failed", "err", err)
		b.respondError(i, "Couldn't build the workbook.")
		return
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"User ID", "UID", "Active", "Daily check-in", "Cookie invalid", "Registered"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for row, a := range accts {
		values := []any{
			a.UserID, a.UID, a.Active, a.DailyCheckin, a.CookieInvalid,
			a.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		b.log.Error("write workbook failed", "err", err)
		b.respondError(i, "Couldn't build the workbook.")
		return
	}

	err = b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("%d accounts exported.", len(accts)),
			Flags:   discordgo.MessageFlagsEphemeral,
			Files: []*discordgo.File{
				{Name: "accounts.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Reader: buf},
			},
		},
	})
	if err != nil {
		b.log.Warn("interaction respond failed", "err", err)
	}
}
