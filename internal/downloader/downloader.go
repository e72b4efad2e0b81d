// Package downloader fetches audio for a media link through yt-dlp.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
)

// ErrNoArtifact is returned when extraction finished without an audio file.
var ErrNoArtifact = errors.New("no audio file produced")

// AudioExtensions are the containers accepted as a finished download, in preference order.
var AudioExtensions = []string{"mp3", "m4a", "opus", "webm", "ogg", "flac"}

const (
	defaultTitle = "track"
	printSep     = "\t"
)

// Track is a downloaded file owned by the request that created it.
// Dir is the request's scratch directory; it only ever holds this track.
type Track struct {
	Path  string
	Title string
	Dir   string
}

// Downloader turns a link into a local audio file.
type Downloader interface {
	Download(ctx context.Context, link string) (Track, error)
}

// YTDLP downloads with the yt-dlp binary, one scratch directory per request.
type YTDLP struct {
	baseDir string
}

// NewYTDLP stores downloads under baseDir, or the OS temp dir when empty.
func NewYTDLP(baseDir string) *YTDLP {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &YTDLP{baseDir: baseDir}
}

type toolInstaller struct {
	name    string
	install func(ctx context.Context) (*ytdlp.ResolvedInstall, error)
}

// tools resolves, or downloads into the go-ytdlp cache, every binary an
// mp3 extraction needs.
var tools = []toolInstaller{
	{name: "yt-dlp", install: func(ctx context.Context) (*ytdlp.ResolvedInstall, error) {
		return ytdlp.Install(ctx, nil)
	}},
	{name: "ffmpeg", install: func(ctx context.Context) (*ytdlp.ResolvedInstall, error) {
		return ytdlp.InstallFFmpeg(ctx, nil)
	}},
	{name: "ffprobe", install: func(ctx context.Context) (*ytdlp.ResolvedInstall, error) {
		return ytdlp.InstallFFprobe(ctx, nil)
	}},
}

// Prepare makes sure yt-dlp, ffmpeg and ffprobe are available. It must
// succeed before the first Download.
func (d *YTDLP) Prepare(ctx context.Context) error {
	if err := os.MkdirAll(d.baseDir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	for _, tool := range tools {
		resolved, err := tool.install(ctx)
		if err != nil {
			return fmt.Errorf("install %s: %w", tool.name, err)
		}
		log.Printf("[info] %s ready at %s", tool.name, resolved.Executable)
	}
	return nil
}

// Download blocks until yt-dlp exits.
func (d *YTDLP) Download(ctx context.Context, link string) (Track, error) {
	dir := filepath.Join(d.baseDir, "scdl-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Track{}, fmt.Errorf("create download dir: %w", err)
	}

	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("0").
		NoPlaylist().
		NoWarnings().
		Output(filepath.Join(dir, "%(title).100B.%(ext)s")).
		Print("after_move:%(title)s" + printSep + "%(filepath)s")

	res, err := cmd.Run(ctx, link)
	if err != nil {
		os.RemoveAll(dir)
		return Track{}, fmt.Errorf("yt-dlp %s: %w: %v", link, ErrNoArtifact, err)
	}

	title, path := parsePrinted(res.Stdout)
	if path == "" || !fileExists(path) {
		path = findArtifact(dir)
	}
	if path == "" {
		os.RemoveAll(dir)
		return Track{}, fmt.Errorf("yt-dlp %s: %w", link, ErrNoArtifact)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if title == "" {
		title = defaultTitle
	}

	log.Printf("[info] downloaded %q to %s", title, path)
	return Track{Path: path, Title: title, Dir: dir}, nil
}

// parsePrinted reads the last "title<TAB>path" line yt-dlp printed after moving the file.
func parsePrinted(stdout string) (string, string) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimRight(lines[i], "\r")
		idx := strings.LastIndex(line, printSep)
		if idx < 0 {
			continue
		}
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+len(printSep):])
	}
	return "", ""
}

// findArtifact picks a finished audio file from dir, preferring AudioExtensions order.
func findArtifact(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, ext := range AudioExtensions {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.EqualFold(strings.TrimPrefix(filepath.Ext(e.Name()), "."), ext) {
				return filepath.Join(dir, e.Name())
			}
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
