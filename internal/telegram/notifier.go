// Package telegram delivers run and ingestion summaries to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	maxSendRetries = 3
	retrySleepBase = time.Second
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts summaries to a single configured chat.
type Notifier struct {
	api       sender
	chatID    int64
	retryBase time.Duration
	logger    *zap.Logger
}

func NewNotifier(cfg config.TelegramConfig, logger *zap.Logger) (*Notifier, error) {
	return newNotifier(cfg, tgbotapi.APIEndpoint, &http.Client{Timeout: 30 * time.Second}, logger)
}

func newNotifier(cfg config.TelegramConfig, endpoint string, client *http.Client, logger *zap.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram notifier authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("chat_id", cfg.ChatID),
	)

	return &Notifier{
		api:       api,
		chatID:    cfg.ChatID,
		retryBase: retrySleepBase,
		logger:    logger,
	}, nil
}

// RunFinished reports a test run. Delivery failures are logged only.
func (n *Notifier) RunFinished(ctx context.Context, project *entity.Project, report *entity.RunReport) {
	n.send(ctx, FormatRunSummary(project, report))
}

// IngestionFinished reports a final ingestion status.
func (n *Notifier) IngestionFinished(ctx context.Context, status *entity.IngestionStatus) {
	n.send(ctx, FormatIngestionSummary(status))
}

func (n *Notifier) send(ctx context.Context, text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true

	err := retry.Do(
		func() error {
			_, err := n.api.Send(msg)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(maxSendRetries),
		retry.Delay(n.retryBase),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			n.logger.Warn("failed to send message, retrying",
				zap.Error(err),
				zap.Uint("attempt", attempt+1),
				zap.Int64("chat_id", n.chatID),
			)
		}),
	)
	if err != nil {
		n.logger.Error("failed to send message", zap.Error(err), zap.Int64("chat_id", n.chatID))
	}
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) RunFinished(context.Context, *entity.Project, *entity.RunReport) {}

func (Nop) IngestionFinished(context.Context, *entity.IngestionStatus) {}
