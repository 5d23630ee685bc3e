package handlers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ArshiaRabet/modbot/internal/bot"
	"github.com/ArshiaRabet/modbot/internal/config"
	"github.com/ArshiaRabet/modbot/internal/i18n"
	"github.com/ArshiaRabet/modbot/internal/observability"
)

const (
	defaultMuteDuration    = 10 * time.Minute
	minMuteDuration        = 1 * time.Minute
	escalationMuteDuration = 1 * time.Hour
)

// Commands implements every slash command of the bot. Mutating commands are
// admin-gated against the live administrator list, reply-targeted commands
// refuse to run without a reply target. Outbound calls go through the
// function fields, swapped for fakes in tests.
type Commands struct {
	s bot.Service

	sendMessage  func(msg api.Chattable)
	muteMember   func(ctx context.Context, chatID, userID int64, until time.Time) error
	unmuteMember func(ctx context.Context, chatID, userID int64) error
	banMember    func(ctx context.Context, chatID, userID int64) error
	lockChat     func(ctx context.Context, chatID int64) error
	unlockChat   func(ctx context.Context, chatID int64) error
	pinMessage   func(ctx context.Context, chatID int64, messageID int) error
}

func NewCommands(s bot.Service) *Commands {
	return &Commands{
		s: s,
		sendMessage: func(msg api.Chattable) {
			_ = tool.Err(s.GetBot().Send(msg))
		},
		muteMember: func(ctx context.Context, chatID, userID int64, until time.Time) error {
			return bot.MuteChatMember(ctx, s.GetBot(), chatID, userID, until)
		},
		unmuteMember: func(ctx context.Context, chatID, userID int64) error {
			return bot.UnmuteChatMember(ctx, s.GetBot(), chatID, userID)
		},
		banMember: func(ctx context.Context, chatID, userID int64) error {
			return bot.BanChatMember(ctx, s.GetBot(), chatID, userID)
		},
		lockChat: func(ctx context.Context, chatID int64) error {
			return bot.LockChat(ctx, s.GetBot(), chatID)
		},
		unlockChat: func(ctx context.Context, chatID int64) error {
			return bot.UnlockChat(ctx, s.GetBot(), chatID)
		},
		pinMessage: func(ctx context.Context, chatID int64, messageID int) error {
			return bot.PinChatMessage(ctx, s.GetBot(), chatID, messageID)
		},
	}
}

func (c *Commands) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if chat == nil || user == nil {
		return true, nil
	}

	switch {
	case
		u.Message == nil,
		user.IsBot,
		!u.Message.IsCommand():
		return true, nil
	}
	m := u.Message
	lang := config.Get().DefaultLanguage

	observability.CountCommand(m.Command())
	switch m.Command() {
	case "start":
		c.reply(m, chat, startText(lang))
	case "help", "komak":
		c.reply(m, chat, helpText(lang))
	case "rules":
		c.reply(m, chat, rulesText(lang))
	case "warn":
		return c.warn(ctx, m, chat, user, lang)
	case "warns":
		return c.warnInfo(m, chat, lang)
	case "mute":
		return c.mute(ctx, m, chat, user, lang)
	case "unmute":
		return c.unmute(ctx, m, chat, user, lang)
	case "lock":
		return c.lock(ctx, m, chat, user, lang)
	case "unlock":
		return c.unlock(ctx, m, chat, user, lang)
	case "ban":
		return c.ban(ctx, m, chat, user, lang)
	case "resetwarns":
		return c.resetWarns(ctx, m, chat, user, lang)
	case "pin":
		return c.pin(ctx, m, chat, user, lang)
	case "stats":
		return c.stats(m, chat, lang)
	default:
		c.getLogEntry().Trace("unknown command: ", m.Command())
		return true, nil
	}
	return false, nil
}

func (c *Commands) warn(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	target := c.replyTarget(m, chat, lang)
	if target == nil {
		return false, nil
	}
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	count, err := c.s.GetWarnings().Increment(chat.ID, target.ID)
	if err != nil {
		return false, errors.WithMessage(err, "cant increment warnings")
	}
	observability.CountModerationAction("warn")
	c.reply(m, chat, fmt.Sprintf(i18n.Get("Warning #%d recorded for %s.", lang), count, bot.MentionHTML(target)))

	if count < config.Get().WarningsLimit {
		return false, nil
	}

	// Threshold reached: one-hour mute, then the counter starts over.
	if err := c.muteMember(ctx, chat.ID, target.ID, time.Now().Add(escalationMuteDuration)); err != nil {
		return false, errors.WithMessage(err, "cant mute on escalation")
	}
	if err := c.s.GetWarnings().Reset(chat.ID, target.ID); err != nil {
		return false, errors.WithMessage(err, "cant reset warnings")
	}
	observability.CountModerationAction("automute")
	c.reply(m, chat, fmt.Sprintf(i18n.Get("%s has been muted for one hour due to repeated warnings.", lang), bot.MentionHTML(target)))
	return false, nil
}

func (c *Commands) warnInfo(m *api.Message, chat *api.Chat, lang string) (bool, error) {
	target := c.replyTarget(m, chat, lang)
	if target == nil {
		return false, nil
	}
	count := c.s.GetWarnings().Get(chat.ID, target.ID)
	c.reply(m, chat, fmt.Sprintf(i18n.Get("%s has %d warnings so far.", lang), bot.MentionHTML(target), count))
	return false, nil
}

func (c *Commands) mute(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	target := c.replyTarget(m, chat, lang)
	if target == nil {
		return false, nil
	}
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	duration, err := parseMuteDuration(m.CommandArguments())
	if err != nil {
		c.getLogEntry().WithError(err).Debug("rejected mute duration")
		c.reply(m, chat, i18n.Get("Mute duration must be a positive number of minutes.", lang))
		return false, nil
	}

	if err := c.muteMember(ctx, chat.ID, target.ID, time.Now().Add(duration)); err != nil {
		return false, errors.WithMessage(err, "cant mute")
	}
	observability.CountModerationAction("mute")
	c.reply(m, chat, fmt.Sprintf(i18n.Get("%s has been muted for %d minutes.", lang), bot.MentionHTML(target), int(duration/time.Minute)))
	return false, nil
}

func (c *Commands) unmute(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	target := c.replyTarget(m, chat, lang)
	if target == nil {
		return false, nil
	}
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	if err := c.unmuteMember(ctx, chat.ID, target.ID); err != nil {
		return false, errors.WithMessage(err, "cant unmute")
	}
	observability.CountModerationAction("unmute")
	c.reply(m, chat, fmt.Sprintf(i18n.Get("%s can send messages again.", lang), bot.MentionHTML(target)))
	return false, nil
}

func (c *Commands) lock(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	if err := c.lockChat(ctx, chat.ID); err != nil {
		return false, errors.WithMessage(err, "cant lock chat")
	}
	observability.CountModerationAction("lock")
	c.reply(m, chat, i18n.Get("The group is locked, members are restricted from chatting.", lang))
	return false, nil
}

func (c *Commands) unlock(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	if err := c.unlockChat(ctx, chat.ID); err != nil {
		return false, errors.WithMessage(err, "cant unlock chat")
	}
	observability.CountModerationAction("unlock")
	c.reply(m, chat, i18n.Get("The group is unlocked, members can send messages.", lang))
	return false, nil
}

func (c *Commands) ban(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	target := c.replyTarget(m, chat, lang)
	if target == nil {
		return false, nil
	}
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	if err := c.banMember(ctx, chat.ID, target.ID); err != nil {
		return false, errors.WithMessage(err, "cant ban")
	}
	observability.CountModerationAction("ban")
	c.reply(m, chat, fmt.Sprintf(i18n.Get("%s has been removed and banned from the group.", lang), bot.MentionHTML(target)))
	return false, nil
}

func (c *Commands) resetWarns(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	target := c.replyTarget(m, chat, lang)
	if target == nil {
		return false, nil
	}
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	if err := c.s.GetWarnings().Reset(chat.ID, target.ID); err != nil {
		return false, errors.WithMessage(err, "cant reset warnings")
	}
	observability.CountModerationAction("resetwarns")
	c.reply(m, chat, fmt.Sprintf(i18n.Get("All warnings for %s have been cleared.", lang), bot.MentionHTML(target)))
	return false, nil
}

func (c *Commands) pin(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	if m.ReplyToMessage == nil {
		c.reply(m, chat, i18n.Get("Reply to the target user's message first.", lang))
		return false, nil
	}
	if isAdmin, err := c.requireAdmin(ctx, m, chat, user, lang); err != nil || !isAdmin {
		return false, err
	}

	if err := c.pinMessage(ctx, chat.ID, m.ReplyToMessage.MessageID); err != nil {
		return false, errors.WithMessage(err, "cant pin message")
	}
	observability.CountModerationAction("pin")
	c.reply(m, chat, i18n.Get("The selected message has been pinned.", lang))
	return false, nil
}

func (c *Commands) stats(m *api.Message, chat *api.Chat, lang string) (bool, error) {
	counts := c.s.GetWarnings().GetAll(chat.ID)
	if len(counts) == 0 {
		c.reply(m, chat, i18n.Get("No warnings recorded yet.", lang))
		return false, nil
	}
	c.reply(m, chat, statsText(counts, lang))
	return false, nil
}

// requireAdmin sends the rejection reply itself, callers only branch on the
// returned flag.
func (c *Commands) requireAdmin(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User, lang string) (bool, error) {
	isAdmin, err := c.s.IsChatAdmin(ctx, chat.ID, user.ID)
	if err != nil {
		return false, errors.WithMessage(err, "cant check admin status")
	}
	if !isAdmin {
		c.reply(m, chat, i18n.Get("Only admins can use this command.", lang))
	}
	return isAdmin, nil
}

func (c *Commands) replyTarget(m *api.Message, chat *api.Chat, lang string) *api.User {
	if m.ReplyToMessage == nil || m.ReplyToMessage.From == nil {
		c.reply(m, chat, i18n.Get("Reply to the target user's message first.", lang))
		return nil
	}
	return m.ReplyToMessage.From
}

func (c *Commands) reply(m *api.Message, chat *api.Chat, text string) {
	msg := api.NewMessage(chat.ID, text)
	msg.ParseMode = api.ModeHTML
	msg.ReplyParameters.ChatID = chat.ID
	msg.ReplyParameters.MessageID = m.MessageID
	msg.ReplyParameters.AllowSendingWithoutReply = true
	msg.MessageThreadID = m.MessageThreadID
	msg.DisableNotification = true
	msg.LinkPreviewOptions.IsDisabled = true
	c.sendMessage(msg)
}

func parseMuteDuration(arguments string) (time.Duration, error) {
	fields := strings.Fields(arguments)
	if len(fields) == 0 {
		return defaultMuteDuration, nil
	}
	minutes, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, errors.WithMessagef(err, "bad duration %q", fields[0])
	}
	duration := time.Duration(minutes) * time.Minute
	if duration < minMuteDuration {
		duration = minMuteDuration
	}
	return duration, nil
}

func statsText(counts map[int64]int, lang string) string {
	userIDs := make([]int64, 0, len(counts))
	for userID := range counts {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	lines := []string{i18n.Get("Warning stats:", lang)}
	for _, userID := range userIDs {
		label := fmt.Sprintf(i18n.Get("User %d", lang), userID)
		count := fmt.Sprintf(i18n.Get("%d warnings", lang), counts[userID])
		lines = append(lines, fmt.Sprintf(`• <a href="tg://user?id=%d">%s</a>: %s`, userID, label, count))
	}
	return strings.Join(lines, "\n")
}

func startText(lang string) string {
	return strings.Join([]string{
		i18n.Get("✨ The group moderation bot is active!", lang),
		"",
		i18n.Get("Use /help to see the list of commands.", lang),
	}, "\n")
}

func helpText(lang string) string {
	lines := []string{
		i18n.Get("Main commands:", lang),
		i18n.Get("• /warn - add a warning to the replied user", lang),
		i18n.Get("• /warns - show the replied user's warning count", lang),
		i18n.Get("• /mute <minutes> - temporarily mute the replied user", lang),
		i18n.Get("• /unmute - lift the mute from the replied user", lang),
		i18n.Get("• /lock - lock the group and restrict members from chatting", lang),
		i18n.Get("• /unlock - allow members to chat again", lang),
		i18n.Get("• /ban - remove and ban the replied user", lang),
		i18n.Get("• /resetwarns - clear the replied user's warnings", lang),
		i18n.Get("• /pin - pin the replied message", lang),
		i18n.Get("• /stats - show recorded warning counts", lang),
		i18n.Get("• /rules - show the group rules", lang),
		i18n.Get("• /help or /komak - show this help", lang),
		i18n.Get("Sending links is restricted to admins when enabled.", lang),
	}
	return strings.Join(lines, "\n")
}

func rulesText(lang string) string {
	return strings.Join([]string{
		i18n.Get("General rules:", lang),
		i18n.Get("1. Respect the members", lang),
		i18n.Get("2. No spam or suspicious links", lang),
		i18n.Get("3. Use replies when asking for help", lang),
	}, "\n")
}

func (c *Commands) getLogEntry() *log.Entry {
	return log.WithField("context", "commands")
}
