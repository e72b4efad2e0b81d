package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scdl-bot/internal/repository"
	"scdl-bot/internal/service"
)

// notifyNewUser posts the new user's details and the refreshed registry to
// the report channel. Failures are only logged.
func (b *Bot) notifyNewUser(ctx context.Context, from *tgbotapi.User) {
	if b.config.ReportChannel == "" {
		return
	}

	now := b.now().Format(repository.TimeLayout)
	username := "no username"
	if from.UserName != "" {
		username = "@" + from.UserName
	}
	text := fmt.Sprintf("👤 New user joined!\nID: <code>%d</code>\nName: %s\nUsername: %s\nTime: %s",
		from.ID, escape(displayName(from)), escape(username), now)

	chatID, channel := service.ParseChannel(b.config.ReportChannel)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ChannelUsername = channel
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[warn] notify report channel: %v", err)
		return
	}

	if err := b.sendRegistry(ctx, "📊 Updated users list - %d total users (%s)"); err != nil {
		log.Printf("[warn] send registry to report channel: %v", err)
	}
}

// SendRegistryReport posts the registry CSV to the report channel.
// It is run by the daily scheduler.
func (b *Bot) SendRegistryReport(ctx context.Context) error {
	if b.config.ReportChannel == "" {
		return nil
	}
	return b.sendRegistry(ctx, "📊 Daily users report - %d total users (%s)")
}

func (b *Bot) sendRegistry(ctx context.Context, captionFormat string) error {
	data, total, err := b.registry.ExportCSV(ctx)
	if err != nil {
		return fmt.Errorf("export csv: %w", err)
	}

	chatID, channel := service.ParseChannel(b.config.ReportChannel)
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "users.csv", Bytes: data})
	doc.ChannelUsername = channel
	doc.Caption = fmt.Sprintf(captionFormat, total, b.now().Format(repository.TimeLayout))
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}
