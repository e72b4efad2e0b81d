package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"scdl-bot/internal/repository"
)

var (
	ErrChannelExists   = errors.New("channel already in sponsor list")
	ErrChannelNotFound = errors.New("channel not in sponsor list")
	ErrEmptyChannel    = errors.New("channel identifier is empty")
)

// ChannelService manages the sponsor channel list. Every mutation is a
// read-modify-write of the whole list; concurrent admin edits can race.
type ChannelService struct {
	repo repository.ChannelRepository
}

func NewChannelService(repo repository.ChannelRepository) *ChannelService {
	return &ChannelService{repo: repo}
}

// Seed writes the configured channels when the list has never been persisted.
func (s *ChannelService) Seed(ctx context.Context, seed []string) ([]string, error) {
	ok, err := s.repo.Initialized(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.repo.List(ctx)
	}
	channels := dedupeChannels(seed)
	if err := s.repo.ReplaceAll(ctx, channels); err != nil {
		return nil, fmt.Errorf("seed channels: %w", err)
	}
	log.Printf("[info] seeded %d sponsor channels from config", len(channels))
	return channels, nil
}

func (s *ChannelService) List(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}

// Add appends ch unless an entry with the same normalized form exists.
// It returns the list as persisted after the call.
func (s *ChannelService) Add(ctx context.Context, ch string) ([]string, error) {
	norm := NormalizeChannel(ch)
	if norm == "" {
		return nil, ErrEmptyChannel
	}
	channels, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range channels {
		if NormalizeChannel(existing) == norm {
			return channels, ErrChannelExists
		}
	}
	channels = append(channels, ch)
	if err := s.repo.ReplaceAll(ctx, channels); err != nil {
		return nil, fmt.Errorf("save channels: %w", err)
	}
	return channels, nil
}

// Remove drops every entry matching the normalized form of ch.
func (s *ChannelService) Remove(ctx context.Context, ch string) ([]string, error) {
	norm := NormalizeChannel(ch)
	if norm == "" {
		return nil, ErrEmptyChannel
	}
	channels, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(channels))
	for _, existing := range channels {
		if NormalizeChannel(existing) != norm {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(channels) {
		return channels, ErrChannelNotFound
	}
	if err := s.repo.ReplaceAll(ctx, kept); err != nil {
		return nil, fmt.Errorf("save channels: %w", err)
	}
	return kept, nil
}

func dedupeChannels(channels []string) []string {
	seen := make(map[string]struct{}, len(channels))
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		norm := NormalizeChannel(ch)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, ch)
	}
	return out
}
