package permissions

import (
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
)

func TestCanModerate(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		member *api.ChatMember
		want   bool
	}{
		{"nil member", nil, false},
		{"creator", &api.ChatMember{Status: "creator"}, true},
		{"administrator", &api.ChatMember{Status: "administrator"}, true},
		{"regular member", &api.ChatMember{Status: "member"}, false},
		{"restricted member", &api.ChatMember{Status: "restricted"}, false},
	} {
		if got := CanModerate(tt.member); got != tt.want {
			t.Errorf("%s: got %v want %v", tt.name, got, tt.want)
		}
	}
}

func TestPermissionSets(t *testing.T) {
	t.Parallel()

	none := None()
	if none.CanSendMessages {
		t.Fatalf("restricted set should not allow sending messages")
	}

	full := Full()
	if !full.CanSendMessages || !full.CanSendPhotos || !full.CanAddWebPagePreviews {
		t.Fatalf("unrestricted set should allow regular member rights: %+v", full)
	}
}
