package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/ArshiaRabet/modbot/internal/policy/permissions"
)

func MuteChatMember(ctx context.Context, bot *api.BotAPI, chatID, userID int64, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.RestrictChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
			UntilDate:   until.Unix(),
			Permissions: permissions.None(),

			UseIndependentChatPermissions: true,
		}); err != nil {
			return errors.WithMessage(err, "cant restrict")
		}
		return nil
	}
}

func UnmuteChatMember(ctx context.Context, bot *api.BotAPI, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.RestrictChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
			UntilDate:   0,
			Permissions: permissions.Full(),

			UseIndependentChatPermissions: true,
		}); err != nil {
			return errors.WithMessage(err, "cant unrestrict")
		}
		return nil
	}
}

func BanChatMember(ctx context.Context, bot *api.BotAPI, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.BanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
			UntilDate: 0,
		}); err != nil {
			return errors.WithMessage(err, "cant ban")
		}
		return nil
	}
}

func LockChat(ctx context.Context, bot *api.BotAPI, chatID int64) error {
	return setChatPermissions(ctx, bot, chatID, permissions.None())
}

func UnlockChat(ctx context.Context, bot *api.BotAPI, chatID int64) error {
	return setChatPermissions(ctx, bot, chatID, permissions.Full())
}

func setChatPermissions(ctx context.Context, bot *api.BotAPI, chatID int64, perms *api.ChatPermissions) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.SetChatPermissionsConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			Permissions: perms,

			UseIndependentChatPermissions: true,
		}); err != nil {
			return errors.WithMessage(err, "cant set chat permissions")
		}
		return nil
	}
}

func PinChatMessage(ctx context.Context, bot *api.BotAPI, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.PinChatMessageConfig{
			BaseChatMessage: api.BaseChatMessage{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				MessageID: messageID,
			},
		}); err != nil {
			return errors.WithMessage(err, "cant pin")
		}
		return nil
	}
}

func DeleteChatMessage(ctx context.Context, bot *api.BotAPI, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			return err
		}
		return nil
	}
}
