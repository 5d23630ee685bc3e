package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/ArshiaRabet/modbot/internal/policy/permissions"
	"github.com/ArshiaRabet/modbot/internal/storage"
)

type service struct {
	bot      *api.BotAPI
	warnings storage.Warnings
	admins   *adminCache
}

func NewService(bot *api.BotAPI, warnings storage.Warnings) *service {
	s := &service{
		bot:      bot,
		warnings: warnings,
	}
	s.admins = newAdminCache(adminCacheTTL, s.fetchAdminIDs)
	return s
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetWarnings() storage.Warnings {
	return s.warnings
}

func (s *service) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	ids, err := s.admins.adminIDs(ctx, chatID)
	if err != nil {
		return false, err
	}
	_, ok := ids[userID]
	return ok, nil
}

func (s *service) InvalidateAdmins(chatID int64) {
	s.admins.invalidate(chatID)
}

func (s *service) fetchAdminIDs(ctx context.Context, chatID int64) (map[int64]struct{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	members, err := s.bot.GetChatAdministrators(api.ChatAdministratorsConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
	})
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]struct{}, len(members))
	for _, member := range members {
		if !permissions.CanModerate(&member) {
			continue
		}
		ids[member.User.ID] = struct{}{}
	}
	return ids, nil
}
