package handlers

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ArshiaRabet/modbot/internal/bot"
	"github.com/ArshiaRabet/modbot/internal/config"
	"github.com/ArshiaRabet/modbot/internal/i18n"
	"github.com/ArshiaRabet/modbot/internal/observability"
)

// LinkGuard deletes link-bearing messages from non-admins when the
// admin-only-links policy is enabled. Outbound calls go through the
// function fields, swapped for fakes in tests.
type LinkGuard struct {
	s bot.Service

	sendMessage   func(msg api.Chattable)
	deleteMessage func(ctx context.Context, chatID int64, messageID int) error
}

func NewLinkGuard(s bot.Service) *LinkGuard {
	return &LinkGuard{
		s: s,
		sendMessage: func(msg api.Chattable) {
			_ = tool.Err(s.GetBot().Send(msg))
		},
		deleteMessage: func(ctx context.Context, chatID int64, messageID int) error {
			return bot.DeleteChatMessage(ctx, s.GetBot(), chatID, messageID)
		},
	}
}

func (g *LinkGuard) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if chat == nil || user == nil {
		return true, nil
	}

	// Links can be edited into a clean message after the fact, so edited
	// messages go through the same policy.
	m := u.Message
	if m == nil {
		m = u.EditedMessage
	}

	cfg := config.Get()
	switch {
	case
		!bool(cfg.AdminOnlyLinks),
		m == nil,
		user.IsBot,
		!hasLink(m):
		return true, nil
	}

	isAdmin, err := g.s.IsChatAdmin(ctx, chat.ID, user.ID)
	if err != nil {
		return true, errors.WithMessage(err, "cant check admin status")
	}
	if isAdmin {
		return true, nil
	}

	if err := g.deleteMessage(ctx, chat.ID, m.MessageID); err != nil {
		return false, errors.WithMessage(err, "cant delete link message")
	}
	observability.CountModerationAction("link_delete")
	g.getLogEntry().WithFields(log.Fields{
		"chat_id": chat.ID,
		"user_id": user.ID,
	}).Info("deleted link message from non-admin")

	lang := cfg.DefaultLanguage
	notice := api.NewMessage(chat.ID, fmt.Sprintf(i18n.Get("%s, sending links is restricted to admins.", lang), bot.MentionHTML(user)))
	notice.ParseMode = api.ModeHTML
	notice.MessageThreadID = m.MessageThreadID
	notice.DisableNotification = true
	notice.LinkPreviewOptions.IsDisabled = true
	g.sendMessage(notice)

	return false, nil
}

// hasLink reports url or text_link entities in the message text or caption.
func hasLink(m *api.Message) bool {
	for _, entities := range [][]api.MessageEntity{m.Entities, m.CaptionEntities} {
		for _, entity := range entities {
			if entity.Type == "url" || entity.Type == "text_link" {
				return true
			}
		}
	}
	return false
}

func (g *LinkGuard) getLogEntry() *log.Entry {
	return log.WithField("context", "linkguard")
}
