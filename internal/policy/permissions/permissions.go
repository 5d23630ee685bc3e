// Package permissions holds the chat permission sets the bot applies when
// restricting members or locking whole chats.
package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// None revokes every sending right. Used for mutes and chat locks.
func None() *api.ChatPermissions {
	return &api.ChatPermissions{}
}

// Full restores the regular member rights. Used for unmutes and chat unlocks.
func Full() *api.ChatPermissions {
	return &api.ChatPermissions{
		CanSendMessages:       true,
		CanSendAudios:         true,
		CanSendDocuments:      true,
		CanSendPhotos:         true,
		CanSendVideos:         true,
		CanSendVideoNotes:     true,
		CanSendVoiceNotes:     true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
	}
}

// CanModerate reports whether the chat member may issue moderation commands.
func CanModerate(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}
