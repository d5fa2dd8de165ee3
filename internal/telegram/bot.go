// Package telegram mirrors run status to a Telegram chat and accepts
// /relay commands that start new runs from the phone.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/emilalvaro25/vibe/internal/config"
	"github.com/emilalvaro25/vibe/internal/statusbus"
)

// Runner starts one relay run. Satisfied by relay.Orchestrator.
type Runner interface {
	Run(ctx context.Context, goal, todo string) (string, error)
}

type Bot struct {
	bot     *telego.Bot
	handler *th.BotHandler
	runner  Runner
	cfg     config.TelegramConfig
	cancel  context.CancelFunc
	dispose func()
}

func NewBot(cfg config.TelegramConfig, runner Runner, bus *statusbus.Bus) (*Bot, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b := &Bot{
		bot:    bot,
		runner: runner,
		cfg:    cfg,
	}

	// Mirror every status line to the configured chat.
	if bus != nil && cfg.ChatID != 0 {
		b.dispose = bus.Subscribe(statusbus.EventStatus, func(payload any) {
			status, ok := payload.(statusbus.Status)
			if !ok {
				return
			}
			text := formatStatus(status)
			if err := b.SendMessage(context.Background(), cfg.ChatID, text); err != nil {
				slog.Error("failed to send telegram status", "chat", cfg.ChatID, "error", err)
			}
		})
	}

	return b, nil
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("create handler: %w", err)
	}
	b.handler = handler

	handler.HandleMessage(func(hctx *th.Context, message telego.Message) error {
		b.handleMessage(ctx, message)
		return nil
	})

	go handler.Start()

	<-ctx.Done()
	_ = handler.Stop()
	return nil
}

func (b *Bot) Stop() {
	if b.dispose != nil {
		b.dispose()
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.handler != nil {
		_ = b.handler.Stop()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg telego.Message) {
	chatID := msg.Chat.ID
	if b.cfg.ChatID != 0 && chatID != b.cfg.ChatID {
		slog.Warn("message from unconfigured chat ignored", "chat_id", chatID)
		return
	}

	goal, ok := parseRelayCommand(msg.Text)
	if !ok {
		return
	}
	if goal == "" {
		_ = b.SendMessage(ctx, chatID, "Usage: /relay <goal>")
		return
	}

	_ = b.sendChatAction(ctx, chatID, "typing")

	go func() {
		runID, err := b.runner.Run(context.WithoutCancel(ctx), goal, "")
		if err != nil {
			slog.Error("relay run from telegram failed", "run", runID, "error", err)
			_ = b.SendMessage(context.Background(), chatID, fmt.Sprintf("Run %s failed: %v", runID, err))
			return
		}
		_ = b.SendMessage(context.Background(), chatID, fmt.Sprintf("Run %s finished.", runID))
	}()
}

// parseRelayCommand extracts the goal from a "/relay <goal>" message. The
// command may carry a bot mention suffix in group chats.
func parseRelayCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/relay") {
		return "", false
	}
	rest := strings.TrimPrefix(text, "/relay")
	if at := strings.Index(rest, "@"); at == 0 {
		if sp := strings.IndexAny(rest, " \n"); sp >= 0 {
			rest = rest[sp:]
		} else {
			rest = ""
		}
	}
	return strings.TrimSpace(rest), true
}

func formatStatus(s statusbus.Status) string {
	switch s.Level {
	case statusbus.LevelError:
		return "❌ " + s.Text
	case statusbus.LevelWarn:
		return "⚠️ " + s.Text
	case statusbus.LevelSuccess:
		return "✅ " + s.Text
	default:
		return s.Text
	}
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range chunkMessage(text, 4096) {
		msg := tu.Message(tu.ID(chatID), chunk)
		if _, err := b.bot.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) sendChatAction(ctx context.Context, chatID int64, action string) error {
	return b.bot.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action))
}
