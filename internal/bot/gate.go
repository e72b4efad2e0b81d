package bot

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scdl-bot/internal/i18n"
	"scdl-bot/internal/service"
)

// register records first contact. A new user triggers a best-effort report;
// storage or report failures are logged and never reach the user.
func (b *Bot) register(ctx context.Context, from *tgbotapi.User) {
	created, err := b.registry.Register(ctx, from.ID)
	if err != nil {
		log.Printf("[warn] register user %d: %v", from.ID, err)
		return
	}
	if !created {
		return
	}
	log.Printf("[info] new user registered: %d", from.ID)
	b.refreshUserGauge(ctx)
	b.notifyNewUser(ctx, from)
}

func (b *Bot) refreshUserGauge(ctx context.Context) {
	total, err := b.registry.Count(ctx)
	if err != nil {
		log.Printf("[warn] count users: %v", err)
		return
	}
	b.metrics.UsersTotal.Set(float64(total))
}

// language returns the user's locale and whether one was chosen. A failing
// store does not trap users behind the picker: they get the default locale.
func (b *Bot) language(ctx context.Context, userID int64) (string, bool) {
	lang, ok, err := b.languages.Get(ctx, userID)
	if err != nil {
		log.Printf("[warn] load language for %d: %v", userID, err)
		return i18n.DefaultLang, true
	}
	if !ok || lang == "" {
		return i18n.DefaultLang, false
	}
	return lang, true
}

func (b *Bot) sendLanguagePicker(chatID int64) error {
	return b.sendWithMarkup(chatID, i18n.SelectLanguagePrompt, languageKeyboard())
}

// unjoinedChannels evaluates membership fresh on every call.
func (b *Bot) unjoinedChannels(ctx context.Context, userID int64) []string {
	channels, err := b.channels.List(ctx)
	if err != nil {
		log.Printf("[warn] load sponsor channels: %v", err)
		return nil
	}
	return b.membership.Unjoined(ctx, userID, channels)
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("English 🇺🇸", cbLangPrefix+i18n.LangEnglish)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("فارسی 🇮🇷", cbLangPrefix+i18n.LangPersian)),
	)
}

// joinKeyboard has one join button per public channel plus the recheck button.
// Numeric-id channels are still enforced but have no link to offer.
func (b *Bot) joinKeyboard(lang string, unjoined []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(unjoined)+1)
	for _, ch := range unjoined {
		url, ok := service.JoinURL(ch)
		if !ok {
			continue
		}
		label := b.texts.Text(lang, "join_channel", "name", service.ChannelDisplayName(ch))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, url)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(b.texts.Text(lang, "i_joined"), cbCheckMembership),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
