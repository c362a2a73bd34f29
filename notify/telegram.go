// Package notify reports finished crawl runs to a Telegram chat.
package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Summary describes one finished run
type Summary struct {
	RunID            string
	Records          int
	Flats            int
	Parking          int
	SkippedComplexes int
	MalformedTiles   int
	Output           string
	SheetURL         string
	Duration         time.Duration
	Err              error
}

// Telegram sends run summaries to one chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *log.Logger
}

// NewTelegram authorizes the bot token against the default Bot API
func NewTelegram(token string, chatID int64, logger *log.Logger) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID, logger)
}

// NewTelegramWithEndpoint is NewTelegram against a custom Bot API server.
// endpoint is a format string taking the token and the method name.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, logger *log.Logger) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	logger.Debug("authorized on telegram", "account", bot.Self.UserName)

	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// Send posts the summary. Failures are returned, the run itself is already done.
func (t *Telegram) Send(s Summary) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatSummary(s))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending run summary: %w", err)
	}
	t.logger.Debug("run summary sent", "chat", t.chatID)
	return nil
}

// FormatSummary renders the HTML message body for a run
func FormatSummary(s Summary) string {
	var b strings.Builder

	if s.Err != nil {
		fmt.Fprintf(&b, "❌ ndv.ru crawl failed: %s\n", html.EscapeString(s.Err.Error()))
		fmt.Fprintf(&b, "Saved %d records collected before the failure.\n", s.Records)
	} else {
		fmt.Fprintf(&b, "✅ ndv.ru crawl finished: %d records\n", s.Records)
	}

	fmt.Fprintf(&b, "\nFlats: %d\nParking spaces: %d\n", s.Flats, s.Parking)
	if s.SkippedComplexes > 0 {
		fmt.Fprintf(&b, "Complexes without parking: %d\n", s.SkippedComplexes)
	}
	if s.MalformedTiles > 0 {
		fmt.Fprintf(&b, "Skipped malformed tiles: %d\n", s.MalformedTiles)
	}
	if s.Duration > 0 {
		fmt.Fprintf(&b, "Took: %s\n", s.Duration.Round(time.Second))
	}
	if s.Output != "" {
		fmt.Fprintf(&b, "\nOutput: <code>%s</code>", html.EscapeString(s.Output))
	}
	if s.SheetURL != "" {
		fmt.Fprintf(&b, "\nView spreadsheet: %s", s.SheetURL)
	}
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nRun: <code>%s</code>", s.RunID)
	}

	return strings.TrimRight(b.String(), "\n")
}
