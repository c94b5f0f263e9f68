package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender отправляет HTML-сообщения через Bot API, разбивая длинный текст на части.
type Sender struct {
	bot botAPI
}

var _ domain.MessageSender = (*Sender)(nil)

// NewSender создаёт отправителя поверх клиента Bot API.
func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

// Send доставляет текст в чат. Останавливается на первой неудачной части.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	for i, part := range SplitMessage(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		start := time.Now()
		_, err := s.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return fmt.Errorf("отправка части %d: %w", i+1, err)
		}
	}
	return nil
}
