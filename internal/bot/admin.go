package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scdl-bot/internal/service"
)

const (
	textNotAuthorized = "❌ You are not authorized to use this command."
	adminHelp         = "<b>Admin commands</b>\n" +
		"• /broadcast &lt;message&gt; - send a message to all users\n" +
		"• /add_channel &lt;@username or -100id&gt; - add a sponsor channel\n" +
		"• /remove_channel &lt;@username or -100id&gt; - remove a sponsor channel\n" +
		"• /list_channels - show sponsor channels\n" +
		"• /send_csv - export users as CSV\n" +
		"• /send_xlsx - export users as a spreadsheet"
)

// authorized replies with a refusal for non-admins. Callers stop when it returns false.
func (b *Bot) authorized(msg *tgbotapi.Message) (bool, error) {
	if b.config.IsAdmin(msg.From.ID) {
		return true, nil
	}
	return false, b.sendText(msg.Chat.ID, textNotAuthorized)
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) error {
	if ok, err := b.authorized(msg); !ok {
		return err
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		return b.sendText(msg.Chat.ID, "Usage: /broadcast &lt;message&gt;")
	}

	recipients, err := b.broadcast.Recipients(ctx)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}

	status, err := b.send(msg.Chat.ID, fmt.Sprintf("⏳ Broadcasting to %d users...", len(recipients)), nil)
	if err != nil {
		return fmt.Errorf("send status: %w", err)
	}

	log.Printf("[info] broadcast started by %d to %d users", msg.From.ID, len(recipients))
	chatID := msg.Chat.ID
	taskCtx := context.WithoutCancel(ctx)
	b.tasks.Go(func() error {
		res, err := b.broadcast.Send(taskCtx, b, recipients, text)
		if err != nil {
			log.Printf("broadcast interrupted: %v", err)
		}
		b.metrics.BroadcastMessages.WithLabelValues("sent").Add(float64(res.Sent))
		b.metrics.BroadcastMessages.WithLabelValues("failed").Add(float64(res.Failed))
		log.Printf("[info] broadcast finished sent=%d failed=%d", res.Sent, res.Failed)

		summary := fmt.Sprintf("✅ Broadcast complete!\n✓ Sent: %d\n✗ Failed: %d", res.Sent, res.Failed)
		if err := b.editText(chatID, status.MessageID, summary); err != nil {
			log.Printf("edit broadcast status: %v", err)
		}
		return nil
	})
	return nil
}

func (b *Bot) handleAddChannel(ctx context.Context, msg *tgbotapi.Message) error {
	if ok, err := b.authorized(msg); !ok {
		return err
	}

	ch := firstArgument(msg)
	if ch == "" {
		return b.sendText(msg.Chat.ID, "Usage: /add_channel &lt;@username or -100xxxxxxx&gt;")
	}

	channels, err := b.channels.Add(ctx, ch)
	switch {
	case errors.Is(err, service.ErrChannelExists):
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Channel %s is already in the sponsor list.", escape(ch)))
	case errors.Is(err, service.ErrEmptyChannel):
		return b.sendText(msg.Chat.ID, "Usage: /add_channel &lt;@username or -100xxxxxxx&gt;")
	case err != nil:
		return fmt.Errorf("add channel: %w", err)
	}

	log.Printf("[info] sponsor channel added: %s", ch)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Added %s to sponsor channels.\n\n📋 Current sponsor channels:\n%s", escape(ch), formatChannels(channels)))
}

func (b *Bot) handleRemoveChannel(ctx context.Context, msg *tgbotapi.Message) error {
	if ok, err := b.authorized(msg); !ok {
		return err
	}

	ch := firstArgument(msg)
	if ch == "" {
		return b.sendText(msg.Chat.ID, "Usage: /remove_channel &lt;@username or -100xxxxxxx&gt;")
	}
	display := escape(service.ChannelDisplayName(ch))

	channels, err := b.channels.Remove(ctx, ch)
	switch {
	case errors.Is(err, service.ErrChannelNotFound):
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Channel %s was not found in the sponsor list.", display))
	case errors.Is(err, service.ErrEmptyChannel):
		return b.sendText(msg.Chat.ID, "Usage: /remove_channel &lt;@username or -100xxxxxxx&gt;")
	case err != nil:
		return fmt.Errorf("remove channel: %w", err)
	}

	log.Printf("[info] sponsor channel removed: %s", ch)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Removed %s from sponsor channels.\n\n📋 Current sponsor channels:\n%s", display, formatChannels(channels)))
}

func (b *Bot) handleListChannels(ctx context.Context, msg *tgbotapi.Message) error {
	if ok, err := b.authorized(msg); !ok {
		return err
	}

	channels, err := b.channels.List(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	if len(channels) == 0 {
		return b.sendText(msg.Chat.ID, "No sponsor channels configured.")
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📋 Sponsor channels (%d):\n%s", len(channels), formatChannels(channels)))
}

func (b *Bot) handleSendCSV(ctx context.Context, msg *tgbotapi.Message) error {
	if ok, err := b.authorized(msg); !ok {
		return err
	}

	data, total, err := b.registry.ExportCSV(ctx)
	if err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	doc := tgbotapi.NewDocument(msg.From.ID, tgbotapi.FileBytes{Name: "users.csv", Bytes: data})
	doc.Caption = fmt.Sprintf("📊 Users database - %d total users.", total)
	_, err = b.api.Send(doc)
	return err
}

func (b *Bot) handleSendXLSX(ctx context.Context, msg *tgbotapi.Message) error {
	if ok, err := b.authorized(msg); !ok {
		return err
	}

	data, total, err := b.registry.ExportXLSX(ctx)
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	doc := tgbotapi.NewDocument(msg.From.ID, tgbotapi.FileBytes{Name: "users.xlsx", Bytes: data})
	doc.Caption = fmt.Sprintf("📊 Users database - %d total users.", total)
	_, err = b.api.Send(doc)
	return err
}

func firstArgument(msg *tgbotapi.Message) string {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func formatChannels(channels []string) string {
	if len(channels) == 0 {
		return "(empty)"
	}
	lines := make([]string, 0, len(channels))
	for _, ch := range channels {
		lines = append(lines, "• "+escape(ch))
	}
	return strings.Join(lines, "\n")
}
