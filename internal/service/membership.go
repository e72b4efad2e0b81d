package service

import (
	"context"
	"log"
)

// LookupKind classifies the outcome of a single membership query.
type LookupKind int

const (
	LookupSuccess LookupKind = iota
	// LookupPlatformDenied means the platform refused to disclose the member list.
	LookupPlatformDenied
	LookupNotFound
	LookupOther
)

// Membership statuses reported by Telegram.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// MemberResult is the outcome of looking up one user in one channel.
type MemberResult struct {
	Kind            LookupKind
	Status          string
	CanSendMessages bool
	Err             error
}

// MemberLookup queries the chat platform for a user's status in a channel.
type MemberLookup interface {
	LookupMember(ctx context.Context, channel string, userID int64) MemberResult
	BotID() int64
}

// IsJoined collapses a platform status to "is member".
func IsJoined(status string, canSendMessages bool) bool {
	switch status {
	case StatusCreator, StatusAdministrator, StatusMember:
		return true
	case StatusRestricted:
		return canSendMessages
	default:
		return false
	}
}

// MembershipChecker computes which sponsor channels a user still has to join.
// Nothing is cached: every call asks the platform again.
type MembershipChecker struct {
	lookup MemberLookup
}

func NewMembershipChecker(lookup MemberLookup) *MembershipChecker {
	return &MembershipChecker{lookup: lookup}
}

// Unjoined returns the channels the user is not a member of, in input order
// and without duplicates. Lookup failures other than a denied member list
// never block the user.
func (c *MembershipChecker) Unjoined(ctx context.Context, userID int64, channels []string) []string {
	var unjoined []string
	seen := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		norm := NormalizeChannel(ch)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}

		if !c.joined(ctx, ch, userID) {
			unjoined = append(unjoined, ch)
		}
	}
	return unjoined
}

func (c *MembershipChecker) joined(ctx context.Context, ch string, userID int64) bool {
	res := c.lookup.LookupMember(ctx, ch, userID)
	switch res.Kind {
	case LookupSuccess:
		return IsJoined(res.Status, res.CanSendMessages)
	case LookupPlatformDenied:
		return c.botCannotIntrospect(ctx, ch)
	default:
		log.Printf("[warn] check channel %s for user %d: %v", ch, userID, res.Err)
		return true
	}
}

// botCannotIntrospect is the fallback for a denied member list: when the bot
// is an admin of the channel it would normally see members, so the denial is a
// platform limitation and the user passes.
func (c *MembershipChecker) botCannotIntrospect(ctx context.Context, ch string) bool {
	res := c.lookup.LookupMember(ctx, ch, c.lookup.BotID())
	if res.Kind != LookupSuccess {
		log.Printf("[warn] check bot status in %s: %v", ch, res.Err)
		return true
	}
	return res.Status == StatusCreator || res.Status == StatusAdministrator
}
