package handlers

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"

	"github.com/ArshiaRabet/modbot/internal/bot"
	"github.com/ArshiaRabet/modbot/internal/config"
	"github.com/ArshiaRabet/modbot/internal/i18n"
)

// Greeter welcomes new chat members and points them at the rules.
type Greeter struct {
	s bot.Service

	sendMessage func(msg api.Chattable)
}

func NewGreeter(s bot.Service) *Greeter {
	return &Greeter{
		s: s,
		sendMessage: func(msg api.Chattable) {
			_ = tool.Err(s.GetBot().Send(msg))
		},
	}
}

func (g *Greeter) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if chat == nil || u.Message == nil || len(u.Message.NewChatMembers) == 0 {
		return true, nil
	}

	lang := config.Get().DefaultLanguage
	for _, member := range u.Message.NewChatMembers {
		if member.IsBot {
			continue
		}
		msg := api.NewMessage(chat.ID, fmt.Sprintf(i18n.Get("Welcome %s! Read the rules with /rules.", lang), bot.MentionHTML(&member)))
		msg.ParseMode = api.ModeHTML
		msg.ReplyParameters.ChatID = chat.ID
		msg.ReplyParameters.MessageID = u.Message.MessageID
		msg.ReplyParameters.AllowSendingWithoutReply = true
		msg.DisableNotification = true
		g.sendMessage(msg)
	}
	return true, nil
}
