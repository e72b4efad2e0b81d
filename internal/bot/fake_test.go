package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"scdl-bot/internal/config"
	"scdl-bot/internal/downloader"
	"scdl-bot/internal/i18n"
	"scdl-bot/internal/repository"
	"scdl-bot/internal/service"
)

const (
	testBotID   = 1000
	testAdminID = 1
)

type fakeAPI struct {
	mu         sync.Mutex
	nextID     int
	sent       []tgbotapi.Chattable
	requests   []tgbotapi.Chattable
	members    map[string]tgbotapi.ChatMember
	memberErrs map[string]error
	failAudio  bool
	failTextTo map[int64]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		members:    make(map[string]tgbotapi.ChatMember),
		memberErrs: make(map[string]error),
		failTextTo: make(map[int64]bool),
	}
}

func memberKey(chat string, userID int64) string {
	return fmt.Sprintf("%s/%d", chat, userID)
}

func (f *fakeAPI) setMember(chat string, userID int64, status string) {
	f.members[memberKey(chat, userID)] = tgbotapi.ChatMember{Status: status}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.AudioConfig:
		if f.failAudio {
			return tgbotapi.Message{}, errors.New("Request Entity Too Large")
		}
	case tgbotapi.MessageConfig:
		if f.failTextTo[v.ChatID] {
			return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
		}
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	chat := cfg.SuperGroupUsername
	if chat == "" {
		chat = strconv.FormatInt(cfg.ChatID, 10)
	}
	key := memberKey(chat, cfg.UserID)
	if err, ok := f.memberErrs[key]; ok {
		return tgbotapi.ChatMember{}, err
	}
	if m, ok := f.members[key]; ok {
		return m, nil
	}
	return tgbotapi.ChatMember{Status: service.StatusLeft}, nil
}

func (f *fakeAPI) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	if len(msgs) == 0 {
		t.Fatalf("no messages sent")
	}
	return msgs[len(msgs)-1]
}

func (f *fakeAPI) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeAPI) lastEdit(t *testing.T) tgbotapi.EditMessageTextConfig {
	t.Helper()
	edits := f.edits()
	if len(edits) == 0 {
		t.Fatalf("no edits sent")
	}
	return edits[len(edits)-1]
}

func (f *fakeAPI) documents() []tgbotapi.DocumentConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeAPI) audios() []tgbotapi.AudioConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.AudioConfig
	for _, c := range f.sent {
		if a, ok := c.(tgbotapi.AudioConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

type fakeDownloader struct {
	dir   string
	fail  bool
	panic bool
	calls []string
}

func (d *fakeDownloader) Download(ctx context.Context, link string) (downloader.Track, error) {
	d.calls = append(d.calls, link)
	if d.panic {
		panic("extractor crashed")
	}
	if d.fail {
		return downloader.Track{}, fmt.Errorf("extract: %w", downloader.ErrNoArtifact)
	}
	path := filepath.Join(d.dir, "track.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		return downloader.Track{}, err
	}
	return downloader.Track{Path: path, Title: "Test Track"}, nil
}

type harness struct {
	bot        *Bot
	api        *fakeAPI
	cfg        *config.Config
	users      *repository.CSVUserRepository
	channels   *repository.JSONChannelRepository
	languages  *repository.MemoryLanguageStore
	downloader *fakeDownloader
	texts      *i18n.Translator
}

func newHarness(t *testing.T, sponsors ...string) *harness {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	users, err := repository.NewCSVUserRepository(filepath.Join(dir, "users.csv"))
	if err != nil {
		t.Fatalf("users repo: %v", err)
	}
	channels := repository.NewJSONChannelRepository(filepath.Join(dir, "channels.json"))
	channelSvc := service.NewChannelService(channels)
	if _, err := channelSvc.Seed(ctx, sponsors); err != nil {
		t.Fatalf("seed channels: %v", err)
	}

	registry := service.NewRegistryService(users)
	languages := repository.NewMemoryLanguageStore()
	texts := i18n.New()
	dl := &fakeDownloader{dir: dir}
	cfg := &config.Config{TelegramToken: "test", AdminUserID: testAdminID}
	api := newFakeAPI()

	b := newBot(api, testBotID, cfg, Dependencies{
		Registry:   registry,
		Channels:   channelSvc,
		Broadcast:  service.NewBroadcastService(registry, 0),
		Languages:  languages,
		Translator: texts,
		Downloader: dl,
		Metrics:    NewMetrics(prometheus.NewRegistry()),
	})

	return &harness{
		bot:        b,
		api:        api,
		cfg:        cfg,
		users:      users,
		channels:   channels,
		languages:  languages,
		downloader: dl,
		texts:      texts,
	}
}

// dispatch feeds one update through the bot and waits for background work.
func (h *harness) dispatch(update tgbotapi.Update) {
	h.bot.handleUpdate(context.Background(), update)
	h.bot.Wait()
}

func (h *harness) setLanguage(t *testing.T, userID int64, lang string) {
	t.Helper()
	if err := h.languages.Set(context.Background(), userID, lang); err != nil {
		t.Fatalf("set language: %v", err)
	}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: userID, FirstName: "Ann", UserName: "ann"},
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			Text:      text,
		},
	}
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	update := textUpdate(userID, text)
	cmd := strings.Fields(text)[0]
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return update
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: userID, FirstName: "Ann"},
			Message: &tgbotapi.Message{
				MessageID: 55,
				Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
			},
			Data: data,
		},
	}
}

func inlineRows(t *testing.T, markup interface{}) [][]tgbotapi.InlineKeyboardButton {
	t.Helper()
	kb, ok := markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", markup)
	}
	return kb.InlineKeyboard
}
