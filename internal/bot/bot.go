package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"scdl-bot/internal/config"
	"scdl-bot/internal/downloader"
	"scdl-bot/internal/i18n"
	"scdl-bot/internal/repository"
	"scdl-bot/internal/service"
)

const (
	cbLangPrefix      = "lang_"
	cbCheckMembership = "check_membership"
)

// Dependencies are the services the bot dispatches to.
type Dependencies struct {
	Registry   *service.RegistryService
	Channels   *service.ChannelService
	Broadcast  *service.BroadcastService
	Languages  repository.LanguageStore
	Translator *i18n.Translator
	Downloader downloader.Downloader
	Metrics    *Metrics
}

// Bot routes Telegram updates through the registration, language and
// membership gates before handling content.
type Bot struct {
	api        telegramAPI
	config     *config.Config
	registry   *service.RegistryService
	channels   *service.ChannelService
	membership *service.MembershipChecker
	broadcast  *service.BroadcastService
	languages  repository.LanguageStore
	texts      *i18n.Translator
	downloader downloader.Downloader
	metrics    *Metrics
	// tasks runs downloads and broadcasts off the update loop.
	tasks errgroup.Group
	now   func() time.Time
}

func New(cfg *config.Config, deps Dependencies) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return newBot(api, api.Self.ID, cfg, deps), nil
}

func newBot(api telegramAPI, botID int64, cfg *config.Config, deps Dependencies) *Bot {
	return &Bot{
		api:        api,
		config:     cfg,
		registry:   deps.Registry,
		channels:   deps.Channels,
		membership: service.NewMembershipChecker(memberLookup{api: api, botID: botID}),
		broadcast:  deps.Broadcast,
		languages:  deps.Languages,
		texts:      deps.Translator,
		downloader: deps.Downloader,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	b.refreshUserGauge(ctx)

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return ctx.Err()
}

// Wait blocks until background downloads and broadcasts have finished.
func (b *Bot) Wait() {
	b.tasks.Wait()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	started := time.Now()
	defer func() {
		b.metrics.UpdateProcessingTime.Observe(time.Since(started).Seconds())
	}()
	b.metrics.UpdatesProcessed.Inc()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		err = b.handleMessage(ctx, update.Message)
	}
	if err != nil {
		b.metrics.ErrorsTotal.Inc()
		log.Printf("handle update %d: %v", update.UpdateID, err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s", msg.From.ID, msg.Command())
		return b.handleCommand(ctx, msg)
	}

	// Stickers, photos and voice notes carry no text to look for a link in.
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}

	return b.handleText(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	command := msg.Command()
	switch command {
	case "start":
		b.countCommand(command)
		return b.handleStart(ctx, msg)
	case "help":
		b.countCommand(command)
		return b.handleHelp(ctx, msg)
	case "broadcast":
		b.countCommand(command)
		return b.handleBroadcast(ctx, msg)
	case "add_channel":
		b.countCommand(command)
		return b.handleAddChannel(ctx, msg)
	case "remove_channel":
		b.countCommand(command)
		return b.handleRemoveChannel(ctx, msg)
	case "list_channels":
		b.countCommand(command)
		return b.handleListChannels(ctx, msg)
	case "send_csv":
		b.countCommand(command)
		return b.handleSendCSV(ctx, msg)
	case "send_xlsx":
		b.countCommand(command)
		return b.handleSendXLSX(ctx, msg)
	default:
		b.countCommand("unknown")
		return nil
	}
}

func (b *Bot) countCommand(name string) {
	b.metrics.CommandsProcessed.WithLabelValues(name).Inc()
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	switch {
	case strings.HasPrefix(cb.Data, cbLangPrefix):
		log.Printf("[info] callback language user=%d data=%s", cb.From.ID, cb.Data)
		return b.handleLanguageSelected(ctx, cb, strings.TrimPrefix(cb.Data, cbLangPrefix))
	case cb.Data == cbCheckMembership:
		log.Printf("[info] callback membership recheck user=%d", cb.From.ID)
		return b.handleCheckMembership(ctx, cb)
	default:
		return nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	b.register(ctx, msg.From)

	lang, ok := b.language(ctx, msg.From.ID)
	if !ok {
		return b.sendLanguagePicker(msg.Chat.ID)
	}

	hello := b.texts.Text(lang, "hello", "name", escape(displayName(msg.From)))
	unjoined := b.unjoinedChannels(ctx, msg.From.ID)
	if len(unjoined) == 0 {
		return b.sendText(msg.Chat.ID, joinParagraphs(hello, b.texts.Text(lang, "already_member"), b.texts.Text(lang, "send_link")))
	}
	b.metrics.MembershipBlocks.Inc()
	text := joinParagraphs(hello, b.texts.Text(lang, "join_channel_first"), b.texts.Text(lang, "join_and_click"))
	return b.sendWithMarkup(msg.Chat.ID, text, b.joinKeyboard(lang, unjoined))
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	lang, _ := b.language(ctx, msg.From.ID)
	text := b.texts.Text(lang, "help")
	if b.config.IsAdmin(msg.From.ID) {
		text += "\n\n" + adminHelp
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleLanguageSelected(ctx context.Context, cb *tgbotapi.CallbackQuery, lang string) error {
	if !b.texts.Supported(lang) {
		return nil
	}
	b.register(ctx, cb.From)

	if err := b.languages.Set(ctx, cb.From.ID, lang); err != nil {
		return fmt.Errorf("save language: %w", err)
	}

	chatID, messageID := cb.Message.Chat.ID, cb.Message.MessageID
	hello := b.texts.Text(lang, "hello", "name", escape(displayName(cb.From)))
	unjoined := b.unjoinedChannels(ctx, cb.From.ID)
	if len(unjoined) == 0 {
		return b.editText(chatID, messageID, joinParagraphs(hello, b.texts.Text(lang, "already_member"), b.texts.Text(lang, "send_link")))
	}
	b.metrics.MembershipBlocks.Inc()
	text := joinParagraphs(hello, b.texts.Text(lang, "join_channel_first"), b.texts.Text(lang, "join_and_click"))
	return b.editWithMarkup(chatID, messageID, text, b.joinKeyboard(lang, unjoined))
}

func (b *Bot) handleCheckMembership(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	b.register(ctx, cb.From)

	lang, _ := b.language(ctx, cb.From.ID)
	chatID, messageID := cb.Message.Chat.ID, cb.Message.MessageID
	unjoined := b.unjoinedChannels(ctx, cb.From.ID)
	if len(unjoined) == 0 {
		return b.editText(chatID, messageID, joinParagraphs(b.texts.Text(lang, "verified"), b.texts.Text(lang, "send_link")))
	}
	b.metrics.MembershipBlocks.Inc()
	text := joinParagraphs(b.texts.Text(lang, "not_joined"), b.texts.Text(lang, "join_first_then_click"))
	return b.editWithMarkup(chatID, messageID, text, b.joinKeyboard(lang, unjoined))
}

// handleText runs the full gate for a free-text message and starts a download for a valid link.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	b.register(ctx, msg.From)

	lang, ok := b.language(ctx, msg.From.ID)
	if !ok {
		return b.sendLanguagePicker(msg.Chat.ID)
	}

	if unjoined := b.unjoinedChannels(ctx, msg.From.ID); len(unjoined) > 0 {
		b.metrics.MembershipBlocks.Inc()
		text := joinParagraphs(b.texts.Text(lang, "need_join"), b.texts.Text(lang, "join_and_click"))
		return b.sendWithMarkup(msg.Chat.ID, text, b.joinKeyboard(lang, unjoined))
	}

	link, ok := service.ExtractLink(msg.Text)
	if !ok {
		return b.sendText(msg.Chat.ID, joinParagraphs(b.texts.Text(lang, "invalid_link"), b.texts.Text(lang, "link_example")))
	}

	status, err := b.send(msg.Chat.ID, b.texts.Text(lang, "downloading"), nil)
	if err != nil {
		return fmt.Errorf("send status: %w", err)
	}

	log.Printf("[info] download requested user=%d link=%s", msg.From.ID, link)
	req := deliveryRequest{chatID: msg.Chat.ID, statusID: status.MessageID, lang: lang, link: link}
	taskCtx := context.WithoutCancel(ctx)
	b.metrics.DownloadsInFlight.Inc()
	b.tasks.Go(func() error {
		defer b.metrics.DownloadsInFlight.Dec()
		b.deliver(taskCtx, req)
		return nil
	})
	return nil
}

func (b *Bot) send(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return b.api.Send(msg)
}

func (b *Bot) sendText(chatID int64, text string) error {
	_, err := b.send(chatID, text, nil)
	return err
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) error {
	_, err := b.send(chatID, text, markup)
	return err
}

// SendText delivers a plain, unformatted message. Broadcasts go through it.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) editText(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) editWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(edit)
	return err
}

func escape(s string) string {
	return html.EscapeString(s)
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = strings.TrimSpace(u.UserName)
	}
	if name == "" {
		name = fmt.Sprint(u.ID)
	}
	return name
}

func joinParagraphs(parts ...string) string {
	return strings.Join(parts, "\n\n")
}
