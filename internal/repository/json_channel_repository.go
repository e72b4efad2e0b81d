package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type channelsDocument struct {
	Channels []string `json:"channels"`
}

// JSONChannelRepository stores the sponsor list as {"channels": [...]}.
// Like the CSV registry it is a whole-file rewrite with no cross-process locking.
type JSONChannelRepository struct {
	path string
	mu   sync.Mutex
}

func NewJSONChannelRepository(path string) *JSONChannelRepository {
	return &JSONChannelRepository{path: path}
}

func (r *JSONChannelRepository) List(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var doc channelsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return doc.Channels, nil
}

func (r *JSONChannelRepository) ReplaceAll(ctx context.Context, channels []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if channels == nil {
		channels = []string{}
	}
	raw, err := json.MarshalIndent(channelsDocument{Channels: channels}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".channels-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write channels: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// Initialized reports whether the file exists.
func (r *JSONChannelRepository) Initialized(ctx context.Context) (bool, error) {
	_, err := os.Stat(r.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", r.path, err)
	}
}
