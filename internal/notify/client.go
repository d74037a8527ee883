// Package notify reports pipeline runs and failures to operators via the
// Telegram Bot API. It formats training and evaluation outcomes into
// human-readable messages and handles delivery with retry logic for
// reliability.
package notify

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tripworks/tipcast/internal/training"
)

// Client handles Telegram notifications
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendTrainingReport announces a completed training run.
func (c *Client) SendTrainingReport(a *training.Artifact, artifactPath string) error {
	return c.send(formatTrainingReport(a, artifactPath))
}

// SendEvaluationReport announces a completed evaluation run.
func (c *Client) SendEvaluationReport(a *training.Artifact, ev *training.Evaluation) error {
	return c.send(formatEvaluationReport(a, ev))
}

// SendError reports a failed pipeline run.
func (c *Client) SendError(runErr error) error {
	message := "⚠️ *Pipeline run failed*\n\n"
	message += escapeMarkdownV2(runErr.Error())
	return c.send(message)
}

func (c *Client) send(message string) error {
	msg := tgbotapi.NewMessage(c.chatID, message)
	msg.ParseMode = "MarkdownV2" // Use MarkdownV2 for better escaping support

	// Send with retry
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatTrainingReport formats a training artifact into a Telegram message
func formatTrainingReport(a *training.Artifact, artifactPath string) string {
	message := "🤖 *Model trained*\n\n"
	message += fmt.Sprintf("📅 Trained: %s\n", escapeMarkdownV2(a.TrainedAt.Format("2006-01-02 15:04:05")))
	message += fmt.Sprintf("Estimator: %s\n", escapeMarkdownV2(a.EstimatorKind))
	message += fmt.Sprintf("Target: %s\n", escapeMarkdownV2(a.TargetColumn))
	message += fmt.Sprintf("Rows: %d\n", a.RowCount)
	message += fmt.Sprintf("Fit time: %s\n", escapeMarkdownV2(formatDuration(a.FitDuration)))
	message += fmt.Sprintf("Artifact: %s\n", escapeMarkdownV2(artifactPath))
	return message
}

// formatEvaluationReport formats an evaluation outcome into a Telegram message
func formatEvaluationReport(a *training.Artifact, ev *training.Evaluation) string {
	message := "📊 *Model evaluated*\n\n"
	message += fmt.Sprintf("Estimator: %s\n", escapeMarkdownV2(a.EstimatorKind))
	message += fmt.Sprintf("Target: %s\n", escapeMarkdownV2(a.TargetColumn))
	message += fmt.Sprintf("%s: *%s*\n", escapeMarkdownV2(string(ev.Metric)), escapeMarkdownV2(fmt.Sprintf("%.6f", ev.Value)))
	message += fmt.Sprintf("Hold\\-out rows: %d\n", ev.RowCount)
	return message
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}

// formatDuration formats a duration at the resolution that matters for
// model fits
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) - mins*60
	return fmt.Sprintf("%dm%ds", mins, secs)
}
