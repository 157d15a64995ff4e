package notify

import (
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-runner/internal/logger"
)

// Telegram pushes messages to a single chat via a bot.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	logger *logger.Logger
}

func NewTelegram(token string, chatID int64, log *logger.Logger) (*Telegram, error) {
	bot, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.Named("telegram"),
	}, nil
}

// Send implements Notifier. Delivery failures are logged, never surfaced.
func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}

	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		t.logger.Warn("failed to deliver telegram message", zap.Error(err))
	}
}

// Sendf implements Notifier.
func (t *Telegram) Sendf(format string, args ...any) {
	t.Send(fmt.Sprintf(format, args...))
}
