package service

import (
	"context"
	"log"
	"time"
)

// DefaultBroadcastDelay keeps a broadcast under Telegram's flood limits.
const DefaultBroadcastDelay = 50 * time.Millisecond

// TextSender delivers one plain text message to a chat.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// BroadcastResult tallies a finished broadcast.
type BroadcastResult struct {
	Sent   int
	Failed int
}

// BroadcastService sends a message to every registered user.
type BroadcastService struct {
	registry *RegistryService
	delay    time.Duration
}

func NewBroadcastService(registry *RegistryService, delay time.Duration) *BroadcastService {
	if delay < 0 {
		delay = 0
	}
	return &BroadcastService{registry: registry, delay: delay}
}

// Recipients lists the user ids a broadcast would reach.
func (s *BroadcastService) Recipients(ctx context.Context) ([]int64, error) {
	return s.registry.UserIDs(ctx)
}

// Send delivers text to each recipient in order, pausing between sends.
// A failed recipient is counted and skipped; only ctx cancellation stops the loop.
func (s *BroadcastService) Send(ctx context.Context, sender TextSender, recipients []int64, text string) (BroadcastResult, error) {
	var res BroadcastResult
	for _, id := range recipients {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := sender.SendText(ctx, id, text); err != nil {
			log.Printf("[warn] broadcast to %d: %v", id, err)
			res.Failed++
		} else {
			res.Sent++
		}
		if err := s.pause(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *BroadcastService) pause(ctx context.Context) error {
	if s.delay == 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
