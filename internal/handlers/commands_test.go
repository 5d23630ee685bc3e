package handlers

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/ArshiaRabet/modbot/internal/bot"
	"github.com/ArshiaRabet/modbot/internal/storage"
	"github.com/ArshiaRabet/modbot/internal/storage/jsonfile"
)

type stubService struct {
	warnings    storage.Warnings
	adminIDs    map[int64]bool
	adminChecks int
}

func (s *stubService) GetBot() *api.BotAPI           { return nil }
func (s *stubService) GetWarnings() storage.Warnings { return s.warnings }
func (s *stubService) InvalidateAdmins(chatID int64) {}
func (s *stubService) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	s.adminChecks++
	return s.adminIDs[userID], nil
}

type moderationCalls struct {
	sent    []string
	mutes   []muteCall
	unmutes int
	bans    int
	locks   int
	unlocks int
	pins    int
}

type muteCall struct {
	chatID int64
	userID int64
	until  time.Time
}

// setupEnv pins the process-wide config before the first handler run. Every
// test that drives Handle sets the same values, so load order does not matter.
func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:TEST-TOKEN")
	t.Setenv("BOT_LANG", "en")
	t.Setenv("ADMIN_ONLY_LINKS", "true")
	t.Setenv("WARNINGS_LIMIT", "3")
}

func newTestService(t *testing.T, adminIDs map[int64]bool) *stubService {
	t.Helper()
	warnings, err := jsonfile.NewWarningStore(filepath.Join(t.TempDir(), "warnings.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return &stubService{warnings: warnings, adminIDs: adminIDs}
}

func newTestCommands(s bot.Service) (*Commands, *moderationCalls) {
	calls := &moderationCalls{}
	c := NewCommands(s)
	c.sendMessage = func(msg api.Chattable) {
		if m, ok := msg.(api.MessageConfig); ok {
			calls.sent = append(calls.sent, m.Text)
		}
	}
	c.muteMember = func(ctx context.Context, chatID, userID int64, until time.Time) error {
		calls.mutes = append(calls.mutes, muteCall{chatID, userID, until})
		return nil
	}
	c.unmuteMember = func(ctx context.Context, chatID, userID int64) error {
		calls.unmutes++
		return nil
	}
	c.banMember = func(ctx context.Context, chatID, userID int64) error {
		calls.bans++
		return nil
	}
	c.lockChat = func(ctx context.Context, chatID int64) error {
		calls.locks++
		return nil
	}
	c.unlockChat = func(ctx context.Context, chatID int64) error {
		calls.unlocks++
		return nil
	}
	c.pinMessage = func(ctx context.Context, chatID int64, messageID int) error {
		calls.pins++
		return nil
	}
	return c, calls
}

func commandUpdate(text string, target *api.User) *api.Update {
	m := &api.Message{
		MessageID: 10,
		Date:      int(time.Now().Unix()),
		Chat:      api.Chat{ID: -100},
		From:      &api.User{ID: 7, FirstName: "Sam"},
		Text:      text,
		Entities: []api.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])},
		},
	}
	if target != nil {
		m.ReplyToMessage = &api.Message{
			MessageID: 9,
			Chat:      api.Chat{ID: -100},
			From:      target,
		}
	}
	return &api.Update{UpdateID: 1, Message: m}
}

func (c *moderationCalls) sentContaining(fragment string) bool {
	for _, text := range c.sent {
		if strings.Contains(text, fragment) {
			return true
		}
	}
	return false
}

func (c *moderationCalls) moderationTotal() int {
	return len(c.mutes) + c.unmutes + c.bans + c.locks + c.unlocks + c.pins
}

func TestAdminGatedCommandsRejectNonAdmins(t *testing.T) {
	setupEnv(t)

	target := &api.User{ID: 42, FirstName: "Rude"}
	for _, command := range []string{
		"/warn", "/mute", "/unmute", "/ban", "/resetwarns", "/lock", "/unlock", "/pin",
	} {
		svc := newTestService(t, nil)
		commands, calls := newTestCommands(svc)

		u := commandUpdate(command, target)
		proceed, err := commands.Handle(context.Background(), u, &api.Chat{ID: -100}, u.Message.From)
		if err != nil {
			t.Fatalf("%s: handle: %v", command, err)
		}
		if proceed {
			t.Errorf("%s: command should consume the update", command)
		}
		if svc.adminChecks != 1 {
			t.Errorf("%s: expected one admin check, got %d", command, svc.adminChecks)
		}
		if !calls.sentContaining("Only admins can use this command.") {
			t.Errorf("%s: no rejection reply, sent %q", command, calls.sent)
		}
		if calls.moderationTotal() != 0 {
			t.Errorf("%s: moderation action ran for a non-admin: %+v", command, calls)
		}
		if counts := svc.warnings.GetAll(-100); len(counts) != 0 {
			t.Errorf("%s: store mutated by a non-admin: %v", command, counts)
		}
	}
}

func TestWarnEscalationMutesOnceAndResets(t *testing.T) {
	setupEnv(t)

	svc := newTestService(t, map[int64]bool{7: true})
	commands, calls := newTestCommands(svc)

	target := &api.User{ID: 42, FirstName: "Rude"}
	warn := func() {
		t.Helper()
		u := commandUpdate("/warn", target)
		if _, err := commands.Handle(context.Background(), u, &api.Chat{ID: -100}, u.Message.From); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	warn()
	if got := svc.warnings.Get(-100, 42); got != 1 {
		t.Fatalf("count after first warn: %d", got)
	}
	warn()
	if got := svc.warnings.Get(-100, 42); got != 2 {
		t.Fatalf("count after second warn: %d", got)
	}
	if len(calls.mutes) != 0 {
		t.Fatalf("muted before the limit: %+v", calls.mutes)
	}

	warn()
	if got := svc.warnings.Get(-100, 42); got != 0 {
		t.Fatalf("count not reset at the limit: %d", got)
	}
	if len(calls.mutes) != 1 {
		t.Fatalf("expected exactly one mute at the limit, got %d", len(calls.mutes))
	}
	mute := calls.mutes[0]
	if mute.chatID != -100 || mute.userID != 42 {
		t.Fatalf("mute targeted the wrong member: %+v", mute)
	}
	if d := time.Until(mute.until); d < 59*time.Minute || d > 61*time.Minute {
		t.Fatalf("escalation mute should last one hour, got %v", d)
	}
	if !calls.sentContaining("Warning #3 recorded for") {
		t.Fatalf("missing third warning reply: %q", calls.sent)
	}
	if !calls.sentContaining("has been muted for one hour due to repeated warnings.") {
		t.Fatalf("missing escalation announcement: %q", calls.sent)
	}

	// The counter starts over after the reset, no second escalation yet.
	warn()
	if got := svc.warnings.Get(-100, 42); got != 1 {
		t.Fatalf("count after post-escalation warn: %d", got)
	}
	if len(calls.mutes) != 1 {
		t.Fatalf("unexpected second mute: %+v", calls.mutes)
	}
}

func TestMuteMalformedDurationIsRejectedWithoutAction(t *testing.T) {
	setupEnv(t)

	svc := newTestService(t, map[int64]bool{7: true})
	commands, calls := newTestCommands(svc)

	u := commandUpdate("/mute soon", &api.User{ID: 42, FirstName: "Rude"})
	proceed, err := commands.Handle(context.Background(), u, &api.Chat{ID: -100}, u.Message.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatalf("command should consume the update")
	}
	if len(calls.mutes) != 0 {
		t.Fatalf("malformed duration still muted: %+v", calls.mutes)
	}
	if !calls.sentContaining("Mute duration must be a positive number of minutes.") {
		t.Fatalf("missing validation reply: %q", calls.sent)
	}
}

func TestReplyTargetedCommandsRequireAReply(t *testing.T) {
	setupEnv(t)

	svc := newTestService(t, map[int64]bool{7: true})
	commands, calls := newTestCommands(svc)

	u := commandUpdate("/warn", nil)
	proceed, err := commands.Handle(context.Background(), u, &api.Chat{ID: -100}, u.Message.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatalf("command should consume the update")
	}
	if !calls.sentContaining("Reply to the target user's message first.") {
		t.Fatalf("missing guidance reply: %q", calls.sent)
	}
	if calls.moderationTotal() != 0 || len(svc.warnings.GetAll(-100)) != 0 {
		t.Fatalf("state changed without a reply target: %+v", calls)
	}
}

func TestParseMuteDuration(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name      string
		arguments string
		want      time.Duration
		wantErr   bool
	}{
		{"empty arguments use the default", "", defaultMuteDuration, false},
		{"whitespace only uses the default", "   ", defaultMuteDuration, false},
		{"plain minutes", "5", 5 * time.Minute, false},
		{"zero is clamped to the minimum", "0", minMuteDuration, false},
		{"negative is clamped to the minimum", "-3", minMuteDuration, false},
		{"extra words after the number are ignored", "15 because of spam", 15 * time.Minute, false},
		{"non-numeric is rejected", "abc", 0, true},
		{"fractional is rejected", "2.5", 0, true},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseMuteDuration(tt.arguments)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error for %q", tt.arguments)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tt.arguments, err)
			}
			if got != tt.want {
				t.Fatalf("parse %q: got %v want %v", tt.arguments, got, tt.want)
			}
		})
	}
}

func TestStatsTextSortsUsersAndLinksThem(t *testing.T) {
	t.Parallel()

	got := statsText(map[int64]int{30: 1, 10: 3, 20: 2}, "en")

	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("unexpected line count: %q", got)
	}
	if lines[0] != "Warning stats:" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	for i, want := range []string{
		`• <a href="tg://user?id=10">User 10</a>: 3 warnings`,
		`• <a href="tg://user?id=20">User 20</a>: 2 warnings`,
		`• <a href="tg://user?id=30">User 30</a>: 1 warnings`,
	} {
		if lines[i+1] != want {
			t.Fatalf("line %d: got %q want %q", i+1, lines[i+1], want)
		}
	}
}

func TestHelpTextListsEveryCommand(t *testing.T) {
	t.Parallel()

	got := helpText("en")
	for _, command := range []string{
		"/warn", "/warns", "/mute", "/unmute", "/lock", "/unlock",
		"/ban", "/resetwarns", "/pin", "/stats", "/rules", "/help",
	} {
		if !strings.Contains(got, command) {
			t.Errorf("help text does not mention %s", command)
		}
	}
}
