package bot

import (
	"context"
	"log"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scdl-bot/internal/downloader"
)

const performer = "SoundCloud"

type deliveryRequest struct {
	chatID   int64
	statusID int
	lang     string
	link     string
}

// deliver downloads the link and sends the audio, reporting progress by
// editing the status message. A file that fails to send stays on disk.
func (b *Bot) deliver(ctx context.Context, req deliveryRequest) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("processing %s: %v", req.link, r)
			b.metrics.Downloads.WithLabelValues("error").Inc()
			b.editStatus(req, "error_occurred", "try_again")
		}
	}()

	started := time.Now()
	track, err := b.downloader.Download(ctx, req.link)
	b.metrics.DownloadDuration.Observe(time.Since(started).Seconds())
	if err == nil && !fileExists(track.Path) {
		err = downloader.ErrNoArtifact
	}
	if err != nil {
		log.Printf("[warn] download %s: %v", req.link, err)
		b.metrics.Downloads.WithLabelValues("download_failed").Inc()
		b.editStatus(req, "download_failed", "link_check")
		return
	}

	audio := tgbotapi.NewAudio(req.chatID, tgbotapi.FilePath(track.Path))
	audio.Title = track.Title
	audio.Performer = performer
	audio.Caption = "🎵 " + track.Title
	if _, err := b.api.Send(audio); err != nil {
		log.Printf("send audio %s: %v (file kept at %s)", req.link, err, track.Path)
		b.metrics.Downloads.WithLabelValues("send_failed").Inc()
		b.editStatus(req, "send_failed", "downloaded_not_sent")
		return
	}

	cleanupTrack(track)
	b.metrics.Downloads.WithLabelValues("sent").Inc()
	b.editStatus(req, "success")
}

func (b *Bot) editStatus(req deliveryRequest, keys ...string) {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, b.texts.Text(req.lang, key))
	}
	if err := b.editText(req.chatID, req.statusID, joinParagraphs(parts...)); err != nil {
		log.Printf("edit status message: %v", err)
	}
}

func cleanupTrack(track downloader.Track) {
	if err := os.Remove(track.Path); err != nil {
		log.Printf("[warn] delete %s: %v", track.Path, err)
		return
	}
	log.Printf("[info] deleted temp file: %s", track.Path)
	if track.Dir != "" {
		// Only succeeds when the directory is empty.
		os.Remove(track.Dir)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
