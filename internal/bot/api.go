package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"scdl-bot/internal/service"
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot relies on.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// memberLookup answers membership queries through the Bot API.
type memberLookup struct {
	api   telegramAPI
	botID int64
}

func (l memberLookup) BotID() int64 {
	return l.botID
}

func (l memberLookup) LookupMember(ctx context.Context, channel string, userID int64) service.MemberResult {
	chatID, username := service.ParseChannel(channel)
	member, err := l.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             chatID,
			SuperGroupUsername: username,
			UserID:             userID,
		},
	})
	if err != nil {
		return service.MemberResult{Kind: classifyMemberError(err), Err: err}
	}
	return service.MemberResult{
		Kind:            service.LookupSuccess,
		Status:          member.Status,
		CanSendMessages: member.CanSendMessages,
	}
}

func classifyMemberError(err error) service.LookupKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "member list is inaccessible"):
		return service.LookupPlatformDenied
	case strings.Contains(msg, "not found"):
		return service.LookupNotFound
	default:
		return service.LookupOther
	}
}

