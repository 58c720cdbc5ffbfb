package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/command-tender/backend/store"
	"github.com/onnwee/command-tender/backend/telemetry"
)

// Management triggers. They are matched before stored commands.
const (
	addTrigger    = "!addcmd"
	editTrigger   = "!editcmd"
	deleteTrigger = "!delcmd"
)

// Bot resolves chat messages against the command store.
type Bot struct {
	store store.Store
}

// NewBot returns a Bot backed by st.
func NewBot(st store.Store) *Bot {
	return &Bot{store: st}
}

// Handle returns the reply for msg, if any.
func (b *Bot) Handle(ctx context.Context, msg twitch.PrivateMessage) (string, bool) {
	text := strings.TrimSpace(msg.Message)
	if !strings.HasPrefix(text, store.Sentinel) {
		return "", false
	}
	trigger, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "chat"), slog.String("user", msg.User.Name))

	switch strings.ToLower(trigger) {
	case addTrigger, editTrigger, deleteTrigger:
		if !isModerator(msg.User) {
			return "", false
		}
		return b.manage(ctx, logger, strings.ToLower(trigger), rest), true
	}

	c, err := b.store.Get(ctx, trigger)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error("command lookup failed", slog.String("command", trigger), slog.Any("err", err))
		}
		return "", false
	}
	return c.Response, true
}

func (b *Bot) manage(ctx context.Context, logger *slog.Logger, trigger, args string) string {
	name, response, _ := strings.Cut(args, " ")
	response = strings.TrimSpace(response)

	switch trigger {
	case addTrigger:
		if name == "" || response == "" {
			return "Usage: !addcmd <name> <response>"
		}
		c, err := b.store.Add(ctx, name, response)
		if err != nil {
			return b.failure(logger, "add", name, err)
		}
		telemetry.RecordMutation("add", "ok")
		logger.Info("command added", slog.String("command", c.Name))
		return fmt.Sprintf("Command %s added.", c.Name)
	case editTrigger:
		if name == "" || response == "" {
			return "Usage: !editcmd <name> <response>"
		}
		c, err := b.store.Edit(ctx, name, response)
		if err != nil {
			return b.failure(logger, "edit", name, err)
		}
		telemetry.RecordMutation("edit", "ok")
		logger.Info("command edited", slog.String("command", c.Name))
		return fmt.Sprintf("Command %s updated.", c.Name)
	default:
		if name == "" {
			return "Usage: !delcmd <name>"
		}
		deleted, err := b.store.Delete(ctx, name)
		if err != nil {
			return b.failure(logger, "delete", name, err)
		}
		telemetry.RecordMutation("delete", "ok")
		logger.Info("command deleted", slog.String("command", deleted))
		return fmt.Sprintf("Command %s deleted.", deleted)
	}
}

func (b *Bot) failure(logger *slog.Logger, op, name string, err error) string {
	display := store.NormalizeName(name)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		telemetry.RecordMutation(op, "exists")
		return fmt.Sprintf("Command %s already exists.", display)
	case errors.Is(err, store.ErrNotFound):
		telemetry.RecordMutation(op, "not_found")
		return fmt.Sprintf("Command %s does not exist.", display)
	case errors.Is(err, store.ErrInvalidInput):
		telemetry.RecordMutation(op, "invalid")
		return "Invalid command name or response."
	default:
		telemetry.RecordMutation(op, "error")
		logger.Error("command store failure", slog.String("op", op), slog.String("command", display), slog.Any("err", err))
		return "Could not save the command, try again later."
	}
}

// isModerator reports whether the sender may manage commands.
func isModerator(u twitch.User) bool {
	return u.Badges["broadcaster"] > 0 || u.Badges["moderator"] > 0
}

// Config holds the IRC credentials for Start.
type Config struct {
	Channel  string
	Username string
	OAuth    string
}

// Start connects to Twitch chat and answers commands until ctx is cancelled.
func Start(ctx context.Context, cfg Config, bot *Bot) {
	if cfg.Channel == "" || cfg.Username == "" || cfg.OAuth == "" {
		slog.Info("twitch creds not set; skipping chat bot", slog.String("component", "chat"))
		return
	}
	oauth := cfg.OAuth
	if !strings.HasPrefix(oauth, "oauth:") {
		oauth = "oauth:" + oauth
	}
	client := twitch.NewClient(cfg.Username, oauth)

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		reply, ok := bot.Handle(ctx, msg)
		if !ok {
			return
		}
		client.Say(msg.Channel, reply)
		telemetry.RecordChatReply(replyKind(msg.Message))
	})
	client.OnConnect(func() {
		slog.Info("twitch chat connected", slog.String("channel", cfg.Channel), slog.String("component", "chat"))
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = client.Disconnect()
		close(done)
	}()

	client.Join(cfg.Channel)
	if err := client.Connect(); err != nil && !errors.Is(err, twitch.ErrClientDisconnected) {
		slog.Error("twitch chat connect error", slog.Any("err", err), slog.String("component", "chat"))
	}
	<-done
}

// replyKind labels a reply for metrics.
func replyKind(message string) string {
	trigger, _, _ := strings.Cut(strings.TrimSpace(message), " ")
	switch strings.ToLower(trigger) {
	case addTrigger, editTrigger, deleteTrigger:
		return "manage"
	default:
		return "command"
	}
}
