package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/ArshiaRabet/modbot/internal/storage"
)

// ServiceBot defines bot-specific operations
type ServiceBot interface {
	GetBot() *api.BotAPI
}

// ServiceStore defines warning-store operations
type ServiceStore interface {
	GetWarnings() storage.Warnings
}

// Service defines the core bot service interface
type Service interface {
	ServiceBot
	ServiceStore
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	InvalidateAdmins(chatID int64)
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
