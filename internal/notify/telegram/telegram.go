// Package telegram sends operator alerts on TASK_FAIL: an enrichment
// beyond the Python original (which had no alerting), grounded on the
// teacher's Telegram channel (plugin/chat_apps/channels/telegram).
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/cidxb/rark/internal/task"
)

// Notifier posts a message to a single chat whenever NotifyFailure is
// called. A nil *Notifier is valid and a no-op, so wiring it is
// optional wherever it's constructed.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// New creates a Notifier from a bot token and destination chat ID.
func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NotifyFailure posts a TASK_FAIL alert. The send runs on its own
// goroutine so the kernel loop is not held up by the network call.
// Errors are logged, not returned: a notification failure must never
// affect kernel behavior.
func (n *Notifier) NotifyFailure(ctx context.Context, t *task.Task, reason string) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("⚠️ task failed\nname: %s\nid: %s\npriority: %d\nreason: %s", t.Name, t.ID, t.Priority, reason)
	msg := tgbotapi.NewMessage(n.chatID, text)
	id := t.ID
	go func() {
		if _, err := n.bot.Send(msg); err != nil {
			slog.Error("telegram: failed to send alert", "task", id, "error", err)
		}
	}()
}
