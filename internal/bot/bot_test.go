package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"scdl-bot/internal/i18n"
	"scdl-bot/internal/model"
	"scdl-bot/internal/service"
)

const validLink = "https://soundcloud.com/artist/track-name"

func TestStartAsksForLanguageFirst(t *testing.T) {
	h := newHarness(t)

	h.dispatch(commandUpdate(42, "/start"))

	msg := h.api.lastMessage(t)
	if msg.Text != i18n.SelectLanguagePrompt {
		t.Fatalf("expected language prompt, got %q", msg.Text)
	}
	rows := inlineRows(t, msg.ReplyMarkup)
	if len(rows) != 2 {
		t.Fatalf("expected 2 language rows, got %d", len(rows))
	}
	if data := rows[1][0].CallbackData; data == nil || *data != "lang_fa" {
		t.Fatalf("unexpected persian callback data: %v", data)
	}

	user, err := h.users.Get(context.Background(), 42)
	if err != nil || user == nil {
		t.Fatalf("user should be registered on /start: %v", err)
	}
}

func TestStartWithLanguageAndNoSponsors(t *testing.T) {
	h := newHarness(t)
	h.setLanguage(t, 42, i18n.LangEnglish)

	h.dispatch(commandUpdate(42, "/start"))

	msg := h.api.lastMessage(t)
	if !strings.Contains(msg.Text, "Hello Ann!") || !strings.Contains(msg.Text, "already a member") {
		t.Fatalf("unexpected greeting: %q", msg.Text)
	}
	if msg.ReplyMarkup != nil {
		t.Fatalf("expected no keyboard, got %v", msg.ReplyMarkup)
	}
}

func TestStartShowsJoinKeyboardForUnjoinedChannels(t *testing.T) {
	h := newHarness(t, "@sponsor", "-1001234567890")
	h.setLanguage(t, 42, i18n.LangEnglish)

	h.dispatch(commandUpdate(42, "/start"))

	msg := h.api.lastMessage(t)
	if !strings.Contains(msg.Text, "join our channel") {
		t.Fatalf("expected join prompt, got %q", msg.Text)
	}
	rows := inlineRows(t, msg.ReplyMarkup)
	// numeric channel has no public link, so only @sponsor plus the recheck button
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if url := rows[0][0].URL; url == nil || *url != "https://t.me/sponsor" {
		t.Fatalf("unexpected join url: %v", url)
	}
	if data := rows[1][0].CallbackData; data == nil || *data != cbCheckMembership {
		t.Fatalf("unexpected recheck data: %v", data)
	}
	if got := testutil.ToFloat64(h.bot.metrics.MembershipBlocks); got != 1 {
		t.Fatalf("membership blocks = %v, want 1", got)
	}
}

func TestLanguageCallbackStoresChoice(t *testing.T) {
	h := newHarness(t)

	h.dispatch(callbackUpdate(42, "lang_fa"))

	lang, ok, err := h.languages.Get(context.Background(), 42)
	if err != nil || !ok || lang != i18n.LangPersian {
		t.Fatalf("language = %q ok=%v err=%v", lang, ok, err)
	}
	edit := h.api.lastEdit(t)
	if edit.MessageID != 55 || !strings.Contains(edit.Text, "سلام") {
		t.Fatalf("unexpected edit: %+v", edit)
	}
	if len(h.api.requests) != 1 {
		t.Fatalf("callback should be acknowledged once, got %d requests", len(h.api.requests))
	}
}

func TestUnsupportedLanguageCallbackIsIgnored(t *testing.T) {
	h := newHarness(t)

	h.dispatch(callbackUpdate(42, "lang_de"))

	if _, ok, _ := h.languages.Get(context.Background(), 42); ok {
		t.Fatalf("unsupported language must not be stored")
	}
	if len(h.api.edits()) != 0 {
		t.Fatalf("expected no edits")
	}
}

func TestCheckMembershipVerified(t *testing.T) {
	h := newHarness(t, "@sponsor")
	h.setLanguage(t, 42, i18n.LangEnglish)
	h.api.setMember("@sponsor", 42, service.StatusMember)

	h.dispatch(callbackUpdate(42, cbCheckMembership))

	edit := h.api.lastEdit(t)
	if !strings.Contains(edit.Text, "verified") {
		t.Fatalf("expected verified text, got %q", edit.Text)
	}
	if edit.ReplyMarkup != nil {
		t.Fatalf("verified edit should drop the keyboard")
	}
}

func TestCheckMembershipStillMissing(t *testing.T) {
	h := newHarness(t, "@sponsor")
	h.setLanguage(t, 42, i18n.LangEnglish)

	h.dispatch(callbackUpdate(42, cbCheckMembership))

	edit := h.api.lastEdit(t)
	if !strings.Contains(edit.Text, "haven't joined") {
		t.Fatalf("expected not joined text, got %q", edit.Text)
	}
	if edit.ReplyMarkup == nil {
		t.Fatalf("expected the join keyboard to be kept")
	}
}

func TestDeniedMemberListPassesWhenBotIsAdmin(t *testing.T) {
	h := newHarness(t, "@sponsor")
	h.setLanguage(t, 42, i18n.LangEnglish)
	h.api.memberErrs[memberKey("@sponsor", 42)] = errors.New("Bad Request: member list is inaccessible")
	h.api.setMember("@sponsor", testBotID, service.StatusAdministrator)

	h.dispatch(textUpdate(42, "hello"))

	if !strings.Contains(h.api.lastMessage(t).Text, "valid SoundCloud link") {
		t.Fatalf("user should pass the gate, got %q", h.api.lastMessage(t).Text)
	}
}

func TestTextWithoutLanguageShowsPicker(t *testing.T) {
	h := newHarness(t)

	h.dispatch(textUpdate(42, validLink))

	if h.api.lastMessage(t).Text != i18n.SelectLanguagePrompt {
		t.Fatalf("expected language picker")
	}
	if len(h.downloader.calls) != 0 {
		t.Fatalf("download must not start before a language is chosen")
	}
}

func TestTextBlockedByMembership(t *testing.T) {
	h := newHarness(t, "@sponsor")
	h.setLanguage(t, 42, i18n.LangEnglish)

	h.dispatch(textUpdate(42, validLink))

	msg := h.api.lastMessage(t)
	if !strings.Contains(msg.Text, "need to join") {
		t.Fatalf("expected join requirement, got %q", msg.Text)
	}
	if len(h.downloader.calls) != 0 {
		t.Fatalf("download must not start for unjoined users")
	}
}

func TestInvalidLink(t *testing.T) {
	h := newHarness(t)
	h.setLanguage(t, 42, i18n.LangEnglish)

	h.dispatch(textUpdate(42, "https://youtube.com/watch?v=1"))

	msg := h.api.lastMessage(t)
	if !strings.Contains(msg.Text, "valid SoundCloud link") || !strings.Contains(msg.Text, "Example:") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestDeliverySuccessRemovesFile(t *testing.T) {
	h := newHarness(t)
	h.setLanguage(t, 42, i18n.LangEnglish)

	h.dispatch(textUpdate(42, "check this "+validLink+"?in=set"))

	if len(h.downloader.calls) != 1 || !strings.HasPrefix(h.downloader.calls[0], validLink) {
		t.Fatalf("unexpected download calls: %v", h.downloader.calls)
	}
	audios := h.api.audios()
	if len(audios) != 1 {
		t.Fatalf("expected one audio, got %d", len(audios))
	}
	if audios[0].Title != "Test Track" || audios[0].Performer != performer {
		t.Fatalf("unexpected audio metadata: %+v", audios[0])
	}
	if edit := h.api.lastEdit(t); edit.Text != h.texts.Text(i18n.LangEnglish, "success") {
		t.Fatalf("unexpected final status: %q", edit.Text)
	}
	if _, err := os.Stat(filepath.Join(h.downloader.dir, "track.mp3")); !os.IsNotExist(err) {
		t.Fatalf("file should be removed after sending, stat err=%v", err)
	}
	if got := testutil.ToFloat64(h.bot.metrics.Downloads.WithLabelValues("sent")); got != 1 {
		t.Fatalf("sent downloads = %v, want 1", got)
	}
}

func TestDeliverySendFailureKeepsFile(t *testing.T) {
	h := newHarness(t)
	h.setLanguage(t, 42, i18n.LangEnglish)
	h.api.failAudio = true

	h.dispatch(textUpdate(42, validLink))

	edit := h.api.lastEdit(t)
	if !strings.Contains(edit.Text, "Failed to send") || !strings.Contains(edit.Text, "couldn't be sent") {
		t.Fatalf("unexpected status: %q", edit.Text)
	}
	if _, err := os.Stat(filepath.Join(h.downloader.dir, "track.mp3")); err != nil {
		t.Fatalf("file should be kept after a failed send: %v", err)
	}
}

func TestDeliveryDownloadFailure(t *testing.T) {
	h := newHarness(t)
	h.setLanguage(t, 42, i18n.LangPersian)
	h.downloader.fail = true

	h.dispatch(textUpdate(42, validLink))

	want := joinParagraphs(h.texts.Text(i18n.LangPersian, "download_failed"), h.texts.Text(i18n.LangPersian, "link_check"))
	if edit := h.api.lastEdit(t); edit.Text != want {
		t.Fatalf("status = %q, want %q", edit.Text, want)
	}
	if len(h.api.audios()) != 0 {
		t.Fatalf("no audio should be sent")
	}
}

func TestDeliveryPanicReportsGenericError(t *testing.T) {
	h := newHarness(t)
	h.setLanguage(t, 42, i18n.LangEnglish)
	h.downloader.panic = true

	h.dispatch(textUpdate(42, validLink))

	if edit := h.api.lastEdit(t); !strings.Contains(edit.Text, "An error occurred") {
		t.Fatalf("unexpected status: %q", edit.Text)
	}
}

func TestAdminCommandsRejectOthers(t *testing.T) {
	h := newHarness(t)

	for _, cmd := range []string{"/broadcast hi", "/add_channel @x", "/remove_channel @x", "/list_channels", "/send_csv", "/send_xlsx"} {
		h.dispatch(commandUpdate(42, cmd))
		if msg := h.api.lastMessage(t); msg.Text != textNotAuthorized {
			t.Fatalf("%s: expected refusal, got %q", cmd, msg.Text)
		}
	}
	if len(h.api.documents()) != 0 {
		t.Fatalf("no export should reach a non-admin")
	}
}

func TestAddChannelDuplicate(t *testing.T) {
	h := newHarness(t, "@sponsor")

	h.dispatch(commandUpdate(testAdminID, "/add_channel sponsor"))

	if msg := h.api.lastMessage(t); !strings.Contains(msg.Text, "already in the sponsor list") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
	channels, _ := h.channels.List(context.Background())
	if len(channels) != 1 {
		t.Fatalf("channels = %v", channels)
	}
}

func TestAddAndRemoveChannel(t *testing.T) {
	h := newHarness(t, "@sponsor")

	h.dispatch(commandUpdate(testAdminID, "/add_channel @second"))
	if msg := h.api.lastMessage(t); !strings.Contains(msg.Text, "• @sponsor\n• @second") {
		t.Fatalf("unexpected add reply: %q", msg.Text)
	}

	h.dispatch(commandUpdate(testAdminID, "/remove_channel sponsor"))
	if msg := h.api.lastMessage(t); !strings.Contains(msg.Text, "Removed @sponsor") {
		t.Fatalf("unexpected remove reply: %q", msg.Text)
	}

	h.dispatch(commandUpdate(testAdminID, "/remove_channel @missing"))
	if msg := h.api.lastMessage(t); !strings.Contains(msg.Text, "not found") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}

	channels, _ := h.channels.List(context.Background())
	if len(channels) != 1 || channels[0] != "@second" {
		t.Fatalf("channels = %v", channels)
	}
}

func TestListChannelsEmpty(t *testing.T) {
	h := newHarness(t)

	h.dispatch(commandUpdate(testAdminID, "/list_channels"))

	if msg := h.api.lastMessage(t); msg.Text != "No sponsor channels configured." {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestBroadcastTalliesFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []int64{2, 3, 4} {
		if _, err := h.users.Upsert(ctx, model.User{ID: id, JoinedAt: h.bot.now()}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	h.api.failTextTo[3] = true

	h.dispatch(commandUpdate(testAdminID, "/broadcast  Big news"))

	var delivered []int64
	for _, msg := range h.api.messages() {
		if msg.Text == "Big news" {
			delivered = append(delivered, msg.ChatID)
		}
	}
	if len(delivered) != 2 || delivered[0] != 2 || delivered[1] != 4 {
		t.Fatalf("delivered to %v", delivered)
	}
	edit := h.api.lastEdit(t)
	if !strings.Contains(edit.Text, "Sent: 2") || !strings.Contains(edit.Text, "Failed: 1") {
		t.Fatalf("unexpected summary: %q", edit.Text)
	}
}

func TestBroadcastWithoutMessageShowsUsage(t *testing.T) {
	h := newHarness(t)

	h.dispatch(commandUpdate(testAdminID, "/broadcast"))

	if msg := h.api.lastMessage(t); !strings.HasPrefix(msg.Text, "Usage: /broadcast") {
		t.Fatalf("unexpected reply: %q", msg.Text)
	}
}

func TestSendCSVToAdmin(t *testing.T) {
	h := newHarness(t)
	h.dispatch(commandUpdate(42, "/start"))

	h.dispatch(commandUpdate(testAdminID, "/send_csv"))

	docs := h.api.documents()
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	if docs[0].ChatID != testAdminID || !strings.Contains(docs[0].Caption, "1 total users") {
		t.Fatalf("unexpected document: chat=%d caption=%q", docs[0].ChatID, docs[0].Caption)
	}
	file, ok := docs[0].File.(tgbotapi.FileBytes)
	if !ok || !strings.Contains(string(file.Bytes), "42,") {
		t.Fatalf("unexpected csv payload: %T", docs[0].File)
	}
}

func TestNewUserIsReportedToChannel(t *testing.T) {
	h := newHarness(t)
	h.cfg.ReportChannel = "@reports"

	h.dispatch(commandUpdate(42, "/start"))
	h.dispatch(commandUpdate(42, "/start"))

	var reports []tgbotapi.MessageConfig
	for _, msg := range h.api.messages() {
		if msg.ChannelUsername == "@reports" {
			reports = append(reports, msg)
		}
	}
	if len(reports) != 1 {
		t.Fatalf("expected one report for a new user, got %d", len(reports))
	}
	if !strings.Contains(reports[0].Text, "<code>42</code>") || !strings.Contains(reports[0].Text, "@ann") {
		t.Fatalf("unexpected report: %q", reports[0].Text)
	}
	docs := h.api.documents()
	if len(docs) != 1 || docs[0].ChannelUsername != "@reports" {
		t.Fatalf("expected registry document in report channel, got %d", len(docs))
	}
}

func TestGroupMessagesAreIgnored(t *testing.T) {
	h := newHarness(t)
	update := textUpdate(42, validLink)
	update.Message.Chat.Type = "supergroup"

	h.dispatch(update)

	if len(h.api.sent) != 0 {
		t.Fatalf("expected no replies in groups, got %d", len(h.api.sent))
	}
}

func TestNonTextMessagesAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.setLanguage(t, 42, i18n.LangEnglish)
	update := textUpdate(42, "")
	update.Message.Sticker = &tgbotapi.Sticker{FileID: "sticker-1"}

	h.dispatch(update)

	if len(h.api.sent) != 0 {
		t.Fatalf("expected no reply to a sticker, got %d", len(h.api.sent))
	}
	if len(h.downloader.calls) != 0 {
		t.Fatalf("no download should start")
	}
}

func TestHelpIncludesAdminSection(t *testing.T) {
	h := newHarness(t)

	h.dispatch(commandUpdate(testAdminID, "/help"))
	if msg := h.api.lastMessage(t); !strings.Contains(msg.Text, "Admin commands") {
		t.Fatalf("admin help missing: %q", msg.Text)
	}

	h.dispatch(commandUpdate(42, "/help"))
	if msg := h.api.lastMessage(t); strings.Contains(msg.Text, "Admin commands") {
		t.Fatalf("admin help leaked to user: %q", msg.Text)
	}
}

func TestClassifyMemberError(t *testing.T) {
	cases := map[string]service.LookupKind{
		"Bad Request: member list is inaccessible": service.LookupPlatformDenied,
		"Bad Request: chat not found":              service.LookupNotFound,
		"Bad Request: user not found":              service.LookupNotFound,
		"Too Many Requests: retry after 5":         service.LookupOther,
	}
	for msg, want := range cases {
		if got := classifyMemberError(errors.New(msg)); got != want {
			t.Errorf("%q: got %v, want %v", msg, got, want)
		}
	}
}
